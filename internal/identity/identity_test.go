package identity

import (
	"errors"
	"testing"

	"github.com/carebridge/carebridge/internal/model"
)

func TestProfileID_EquivalentVariants(t *testing.T) {
	variants := []string{
		"555-123-4567",
		"+1 (555) 123-4567",
		"15551234567",
		"+15551234567",
		"(555) 123 4567",
	}
	for _, v := range variants {
		got, err := ProfileID(v)
		if err != nil {
			t.Fatalf("ProfileID(%q): %v", v, err)
		}
		if got != "+15551234567" {
			t.Fatalf("ProfileID(%q) = %q, want +15551234567", v, got)
		}
	}
}

func TestProfileID_International(t *testing.T) {
	got, err := ProfileID("+44 20 7123 4567")
	if err != nil {
		t.Fatalf("ProfileID: %v", err)
	}
	if got != "+442071234567" {
		t.Fatalf("got %q", got)
	}
}

func TestProfileID_Invalid(t *testing.T) {
	for _, v := range []string{"abc", "", "123", "+12"} {
		if _, err := ProfileID(v); !errors.Is(err, model.ErrInvalidPhoneNumber) {
			t.Fatalf("ProfileID(%q): expected ErrInvalidPhoneNumber, got %v", v, err)
		}
	}
}

func TestMessageID(t *testing.T) {
	if got := MessageID("SM123"); got != "SM123" {
		t.Fatalf("MessageID with provider ID = %q", got)
	}
	a, b := MessageID(""), MessageID("")
	if a == "" || a == b {
		t.Fatalf("MessageID without provider ID should be fresh UUIDs, got %q and %q", a, b)
	}
}

func TestTaskID_Unique(t *testing.T) {
	if TaskID() == TaskID() {
		t.Fatal("TaskID returned equal values")
	}
}
