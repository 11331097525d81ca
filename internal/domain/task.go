package domain

import (
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// DeviceMode selects the emulated device profile for an audit.
type DeviceMode string

// Possible device mode values
const (
	DeviceMobile  DeviceMode = "mobile"
	DeviceDesktop DeviceMode = "desktop"
)

// isValidDeviceMode checks if the given device mode is one of the defined values.
func isValidDeviceMode(mode DeviceMode) bool {
	switch mode {
	case DeviceMobile, DeviceDesktop:
		return true
	default:
		return false
	}
}

// AuditSettings holds the per-batch audit parameters that every task in the
// batch shares: the emulated device and the per-attempt timeout. The timeout
// bounds a single execution attempt, not the task as a whole.
type AuditSettings struct {
	Device  DeviceMode    `json:"device"`
	Timeout time.Duration `json:"timeout"`
}

// Validate checks if the AuditSettings have valid data.
func (s AuditSettings) Validate() error {
	if !isValidDeviceMode(s.Device) {
		return fmt.Errorf("%w: %q", ErrInvalidDeviceMode, s.Device)
	}
	if s.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	return nil
}

// AuditTask is one submitted unit of work: a single URL to audit with the
// batch's settings. The target URL is immutable once the task is created.
// A task is owned exclusively by the runner it is admitted to; the
// orchestrator only ever sees it again inside its terminal TaskOutcome.
type AuditTask struct {
	ID        uuid.UUID     `json:"id"`
	TargetURL string        `json:"target_url"`
	Index     int           `json:"index"`
	Settings  AuditSettings `json:"settings"`
	CreatedAt time.Time     `json:"created_at"`
}

// NewAuditTask creates a new AuditTask for the given target URL.
// Index is the task's zero-based position in submission order; it is carried
// through to progress events and report file names.
// Returns an error if validation fails.
func NewAuditTask(targetURL string, index int, settings AuditSettings) (*AuditTask, error) {
	task := &AuditTask{
		ID:        uuid.New(),
		TargetURL: targetURL,
		Index:     index,
		Settings:  settings,
		CreatedAt: time.Now().UTC(),
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the AuditTask has valid data.
// Returns an error if any field fails validation.
func (t *AuditTask) Validate() error {
	if t.TargetURL == "" {
		return ErrEmptyTargetURL
	}
	if !IsAuditableURL(t.TargetURL) {
		return fmt.Errorf("%w: %q", ErrInvalidTargetURL, t.TargetURL)
	}
	if t.Index < 0 {
		return ErrInvalidTaskIndex
	}
	return t.Settings.Validate()
}

// IsAuditableURL reports whether raw is an absolute HTTP or HTTPS URL with
// a host, i.e. something the audit engine can navigate to.
func IsAuditableURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}
