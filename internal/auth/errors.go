package auth

import "errors"

var (
	// ErrMissingSignature is returned when a webhook request carries no
	// provider signature header.
	ErrMissingSignature = errors.New("webhook signature required")

	// ErrInvalidSignature is returned when the signature does not match
	// the request payload.
	ErrInvalidSignature = errors.New("invalid webhook signature")
)
