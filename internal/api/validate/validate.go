package validate

import (
	"fmt"
	"regexp"
)

// UserID must be letters, digits, hyphen, underscore, 1-64 chars.
// Auth provider subjects fit this shape.
var userIdRx = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// nameRx allows letters, digits, single spaces, hyphen and apostrophe.
var nameRx = regexp.MustCompile(`^[A-Za-z0-9' -]+$`)

func UserID(v string) error {
	if v == "" {
		return fmt.Errorf("userId is required")
	}
	if !userIdRx.MatchString(v) {
		return fmt.Errorf("userId contains invalid characters")
	}
	return nil
}

// Name validates a display name:
// - 1-100 bytes
// - letters, digits, space, hyphen, apostrophe only
func Name(v string) error {
	if v == "" {
		return fmt.Errorf("name is required")
	}
	if len(v) > 100 {
		return fmt.Errorf("name exceeds 100 characters")
	}
	if !nameRx.MatchString(v) {
		return fmt.Errorf("name contains invalid characters")
	}
	return nil
}
