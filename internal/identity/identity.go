// Package identity derives entity identifiers. Profile IDs are the
// recipient's E.164-normalized phone number so that two callers creating
// "the same" profile converge on one document; task and message IDs fall
// back to UUIDs.
package identity

import (
	"strings"

	"github.com/google/uuid"

	"github.com/carebridge/carebridge/internal/model"
)

// ProfileID normalizes a phone number to E.164 and returns it as the
// profile identifier. Normalization is deterministic: "555-123-4567",
// "+1 (555) 123-4567" and "15551234567" all yield "+15551234567".
func ProfileID(phone string) (string, error) {
	trimmed := strings.TrimSpace(phone)
	hasPlus := strings.HasPrefix(trimmed, "+")

	var digits strings.Builder
	for _, r := range trimmed {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()

	var normalized string
	switch {
	case len(d) == 10:
		// Bare national number: assume US/Canada.
		normalized = "+1" + d
	case len(d) == 11 && d[0] == '1':
		normalized = "+" + d
	case hasPlus:
		normalized = "+" + d
	default:
		normalized = d
	}

	if !strings.HasPrefix(normalized, "+") || len(normalized) < 11 {
		return "", model.ErrInvalidPhoneNumber
	}
	return normalized, nil
}

// TaskID returns a fresh UUID. Tasks are not idempotency-keyed because
// several tasks can legitimately share a profile and time slot.
func TaskID() string {
	return uuid.New().String()
}

// MessageID returns the provider message ID when present so replayed
// webhook deliveries collapse onto one record, else a fresh UUID.
func MessageID(providerID string) string {
	if providerID != "" {
		return providerID
	}
	return uuid.New().String()
}
