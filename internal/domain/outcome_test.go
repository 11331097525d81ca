package domain

import (
	"testing"
	"time"
)

func testTask(t *testing.T) *AuditTask {
	t.Helper()
	task, err := NewAuditTask("https://example.com", 0, validSettings())
	if err != nil {
		t.Fatalf("Expected no error creating task, got %v", err)
	}
	return task
}

func testReport() *Report {
	return &Report{
		URL:        "https://example.com",
		FinalURL:   "https://example.com",
		Device:     DeviceMobile,
		FetchedAt:  time.Now().UTC(),
		StatusCode: 200,
		Timing: Timing{
			TTFB:  120 * time.Millisecond,
			Total: 800 * time.Millisecond,
		},
		TransferBytes: 51200,
		Score:         0.93,
	}
}

func TestNewSucceededOutcome(t *testing.T) {
	t.Parallel() // Enable parallel execution
	task := testTask(t)
	report := testReport()

	out, err := NewSucceededOutcome(task, report, 1, 800*time.Millisecond)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if out.Status != TaskSucceeded {
		t.Errorf("Expected status %s, got %s", TaskSucceeded, out.Status)
	}
	if !out.Succeeded() {
		t.Error("Expected Succeeded() to be true")
	}
	if out.Report != report {
		t.Error("Expected outcome to carry the report")
	}
	if out.Err != nil {
		t.Error("Expected no error detail on a succeeded outcome")
	}
	if out.TerminalState() != StateSucceeded {
		t.Errorf("Expected terminal state %s, got %s", StateSucceeded, out.TerminalState())
	}

	// Succeeded outcome without a report is inconsistent
	_, err = NewSucceededOutcome(task, nil, 1, time.Second)
	if err != ErrMissingReport {
		t.Errorf("Expected error %v, got %v", ErrMissingReport, err)
	}
}

func TestNewFailedOutcome(t *testing.T) {
	t.Parallel() // Enable parallel execution
	task := testTask(t)
	taskErr := NewTaskError(FailureNetwork, "connection refused")

	out, err := NewFailedOutcome(task, taskErr, 2, 3*time.Second)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if out.Status != TaskFailed {
		t.Errorf("Expected status %s, got %s", TaskFailed, out.Status)
	}
	if out.Succeeded() {
		t.Error("Expected Succeeded() to be false")
	}
	if out.Err != taskErr {
		t.Error("Expected outcome to carry the error detail")
	}
	if out.TerminalState() != StateFailed {
		t.Errorf("Expected terminal state %s, got %s", StateFailed, out.TerminalState())
	}

	// Failed outcome without error detail is inconsistent
	_, err = NewFailedOutcome(task, nil, 1, time.Second)
	if err != ErrMissingFailure {
		t.Errorf("Expected error %v, got %v", ErrMissingFailure, err)
	}

	// Attempt count outside the retry budget is inconsistent
	_, err = NewFailedOutcome(task, taskErr, 3, time.Second)
	if err != ErrInvalidAttemptCount {
		t.Errorf("Expected error %v, got %v", ErrInvalidAttemptCount, err)
	}
	_, err = NewFailedOutcome(task, taskErr, 0, time.Second)
	if err != ErrInvalidAttemptCount {
		t.Errorf("Expected error %v, got %v", ErrInvalidAttemptCount, err)
	}
}

func TestFailureKindRetryable(t *testing.T) {
	t.Parallel() // Enable parallel execution
	cases := []struct {
		kind FailureKind
		want bool
	}{
		{FailureNetwork, true},
		{FailureTimeout, true},
		{FailureEngine, false},
		{FailureCanceled, false},
	}

	for _, c := range cases {
		if got := c.kind.Retryable(); got != c.want {
			t.Errorf("FailureKind(%s).Retryable() = %v, want %v", c.kind, got, c.want)
		}
	}
}

func TestTaskErrorError(t *testing.T) {
	t.Parallel() // Enable parallel execution
	taskErr := NewTaskError(FailureTimeout, "attempt exceeded 35s deadline")
	want := "timeout: attempt exceeded 35s deadline"
	if taskErr.Error() != want {
		t.Errorf("Expected %q, got %q", want, taskErr.Error())
	}
}

func TestReportGrade(t *testing.T) {
	t.Parallel() // Enable parallel execution
	cases := []struct {
		score float64
		want  string
	}{
		{0.95, "good"},
		{0.9, "good"},
		{0.7, "needs-improvement"},
		{0.5, "needs-improvement"},
		{0.49, "poor"},
		{0, "poor"},
	}

	for _, c := range cases {
		r := Report{Score: c.score}
		if got := r.Grade(); got != c.want {
			t.Errorf("Grade() with score %.2f = %q, want %q", c.score, got, c.want)
		}
	}
}

func TestBatchSummaryAllSucceeded(t *testing.T) {
	t.Parallel() // Enable parallel execution
	s := BatchSummary{Total: 3, Succeeded: 3, Failed: 0}
	if !s.AllSucceeded() {
		t.Error("Expected AllSucceeded() to be true with zero failures")
	}

	s = BatchSummary{Total: 3, Succeeded: 2, Failed: 1}
	if s.AllSucceeded() {
		t.Error("Expected AllSucceeded() to be false with one failure")
	}
}
