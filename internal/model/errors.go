package model

import "errors"

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")

	// ErrInvalidPhoneNumber is returned by ID derivation when a phone
	// number cannot be normalized to E.164.
	ErrInvalidPhoneNumber = errors.New("invalid phone number")

	// ErrMalformedInboundEvent is returned when a webhook payload lacks a
	// resolvable sender phone number.
	ErrMalformedInboundEvent = errors.New("malformed inbound event")

	// ErrSendFailed marks an outbound SMS delivery failure. The scheduler
	// retries a fixed number of times and otherwise leaves the task due.
	ErrSendFailed = errors.New("sms send failed")
)
