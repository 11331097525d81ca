package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func validSettings() AuditSettings {
	return AuditSettings{
		Device:  DeviceMobile,
		Timeout: 30 * time.Second,
	}
}

func TestNewAuditTask(t *testing.T) {
	t.Parallel() // Enable parallel execution
	// Test valid task creation
	targetURL := "https://example.com/pricing"

	task, err := NewAuditTask(targetURL, 0, validSettings())

	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if task.ID == uuid.Nil {
		t.Error("Expected non-nil UUID, got nil UUID")
	}

	if task.TargetURL != targetURL {
		t.Errorf("Expected target URL %s, got %s", targetURL, task.TargetURL)
	}

	if task.Index != 0 {
		t.Errorf("Expected index 0, got %d", task.Index)
	}

	if task.CreatedAt.IsZero() {
		t.Error("Expected non-zero CreatedAt time")
	}

	// Test empty URL
	_, err = NewAuditTask("", 0, validSettings())
	if err != ErrEmptyTargetURL {
		t.Errorf("Expected error %v, got %v", ErrEmptyTargetURL, err)
	}

	// Test negative index
	_, err = NewAuditTask(targetURL, -1, validSettings())
	if err != ErrInvalidTaskIndex {
		t.Errorf("Expected error %v, got %v", ErrInvalidTaskIndex, err)
	}
}

func TestAuditTaskValidate(t *testing.T) {
	t.Parallel() // Enable parallel execution
	validTask := AuditTask{
		ID:        uuid.New(),
		TargetURL: "https://example.com",
		Index:     3,
		Settings:  validSettings(),
	}

	// Test valid task
	if err := validTask.Validate(); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	// Test relative URL
	invalidTask := validTask
	invalidTask.TargetURL = "/just/a/path"
	if err := invalidTask.Validate(); !errors.Is(err, ErrInvalidTargetURL) {
		t.Errorf("Expected error %v, got %v", ErrInvalidTargetURL, err)
	}

	// Test unsupported scheme
	invalidTask = validTask
	invalidTask.TargetURL = "ftp://example.com/file"
	if err := invalidTask.Validate(); !errors.Is(err, ErrInvalidTargetURL) {
		t.Errorf("Expected error %v, got %v", ErrInvalidTargetURL, err)
	}

	// Test invalid device mode
	invalidTask = validTask
	invalidTask.Settings.Device = "tablet"
	if err := invalidTask.Validate(); !errors.Is(err, ErrInvalidDeviceMode) {
		t.Errorf("Expected error %v, got %v", ErrInvalidDeviceMode, err)
	}

	// Test non-positive timeout
	invalidTask = validTask
	invalidTask.Settings.Timeout = 0
	if err := invalidTask.Validate(); !errors.Is(err, ErrInvalidTimeout) {
		t.Errorf("Expected error %v, got %v", ErrInvalidTimeout, err)
	}
}

func TestIsAuditableURL(t *testing.T) {
	t.Parallel() // Enable parallel execution
	cases := []struct {
		raw  string
		want bool
	}{
		{"https://example.com", true},
		{"http://example.com/path?q=1", true},
		{"https://sub.example.co.uk:8443/deep/path", true},
		{"ftp://example.com", false},
		{"example.com", false},
		{"//example.com", false},
		{"https://", false},
		{"", false},
		{"not a url at all", false},
	}

	for _, c := range cases {
		if got := IsAuditableURL(c.raw); got != c.want {
			t.Errorf("IsAuditableURL(%q) = %v, want %v", c.raw, got, c.want)
		}
	}
}
