// Package input loads audit target lists from plain text and CSV files.
package input

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pharos-audit/pharos/internal/domain"
)

// ErrInvalidTarget marks a line or cell that is not an auditable URL.
var ErrInvalidTarget = errors.New("invalid audit target")

// Loader reads target URL lists from disk.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a Loader.
func NewLoader(logger *slog.Logger) (*Loader, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &Loader{logger: logger.With("component", "input_loader")}, nil
}

// Load reads the target list at path. Files ending in .csv are parsed as
// CSV, taking URLs from a header-named "url" column or the first column;
// anything else is treated as plain text with one URL per line. Blank
// lines and #-comments are skipped, duplicates are dropped keeping the
// first occurrence, and every target must be an absolute HTTP or HTTPS
// URL.
func (l *Loader) Load(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open target list: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	var targets []string
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		targets, err = l.parseCSV(f)
	} else {
		targets, err = l.parseLines(f)
	}
	if err != nil {
		return nil, err
	}

	deduped := dedupe(targets)
	if dropped := len(targets) - len(deduped); dropped > 0 {
		l.logger.Info("dropped duplicate targets",
			"count", dropped,
			"path", path)
	}
	return deduped, nil
}

// FromArgs validates targets passed directly on the command line, with
// the same dedup rules as file loading.
func (l *Loader) FromArgs(args []string) ([]string, error) {
	var targets []string
	for i, raw := range args {
		target := strings.TrimSpace(raw)
		if target == "" {
			continue
		}
		if !domain.IsAuditableURL(target) {
			return nil, fmt.Errorf("%w: argument %d: %q", ErrInvalidTarget, i+1, target)
		}
		targets = append(targets, target)
	}

	deduped := dedupe(targets)
	if dropped := len(targets) - len(deduped); dropped > 0 {
		l.logger.Info("dropped duplicate targets", "count", dropped)
	}
	return deduped, nil
}

// parseLines reads one URL per line.
func (l *Loader) parseLines(r io.Reader) ([]string, error) {
	var targets []string
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !domain.IsAuditableURL(line) {
			return nil, fmt.Errorf("%w: line %d: %q", ErrInvalidTarget, lineNo, line)
		}
		targets = append(targets, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read target list: %w", err)
	}
	return targets, nil
}

// parseCSV reads URLs from a CSV file. A header row naming a "url" column
// selects that column; otherwise URLs come from the first column and a
// non-URL first row is skipped as a header.
func (l *Loader) parseCSV(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	// Rows may carry extra annotation columns; only the URL column matters.
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var targets []string
	col := 0
	rowNo := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse CSV: %w", err)
		}
		rowNo++
		if len(record) == 0 {
			continue
		}
		if rowNo == 1 {
			if urlCol := findURLColumn(record); urlCol >= 0 {
				col = urlCol
				continue
			}
		}
		if col >= len(record) {
			continue
		}
		target := strings.TrimSpace(record[col])
		if target == "" || strings.HasPrefix(target, "#") {
			continue
		}
		if !domain.IsAuditableURL(target) {
			// A non-URL first row is a header; anything later is a mistake.
			if rowNo == 1 {
				l.logger.Debug("skipping CSV header row", "value", target)
				continue
			}
			return nil, fmt.Errorf("%w: row %d: %q", ErrInvalidTarget, rowNo, target)
		}
		targets = append(targets, target)
	}
	return targets, nil
}

// findURLColumn returns the index of the header cell named "url", or -1
// when the row does not name one.
func findURLColumn(record []string) int {
	for i, cell := range record {
		if strings.EqualFold(strings.TrimSpace(cell), "url") {
			return i
		}
	}
	return -1
}

// dedupe drops later duplicates, preserving first-occurrence order.
func dedupe(targets []string) []string {
	seen := make(map[string]struct{}, len(targets))
	out := make([]string, 0, len(targets))
	for _, t := range targets {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
