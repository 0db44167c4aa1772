package config

import (
	"testing"
	"time"
)

func TestValidatePositiveDuration(t *testing.T) {
	if err := ValidatePositiveDuration(time.Second); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidatePositiveDuration(0); err == nil {
		t.Error("expected error for zero duration")
	}
	if err := ValidatePositiveDuration(-time.Second); err == nil {
		t.Error("expected error for negative duration")
	}
}

func TestValidateDurationRange(t *testing.T) {
	if err := ValidateDurationRange(time.Minute, time.Second, time.Hour); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateDurationRange(time.Millisecond, time.Second, time.Hour); err == nil {
		t.Error("expected error below minimum")
	}
	if err := ValidateDurationRange(2*time.Hour, time.Second, time.Hour); err == nil {
		t.Error("expected error above maximum")
	}
	if err := ValidateDurationRange(time.Minute, time.Hour, time.Second); err == nil {
		t.Error("expected error for inverted range")
	}
}
