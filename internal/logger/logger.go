// Package logger provides a configured zerolog logger.
package logger

import (
	"os"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
	zpkgerrors "github.com/rs/zerolog/pkgerrors"
)

func configureStackMarshaling() {
	// Wire zerolog to github.com/pkg/errors so .Stack() renders real
	// stack traces, attaching one to plain std errors when missing.
	zerolog.ErrorStackMarshaler = func(err error) interface{} {
		type stackTracer interface{ StackTrace() pkgerrors.StackTrace }
		if _, ok := err.(stackTracer); !ok {
			err = pkgerrors.WithStack(err)
		}
		return zpkgerrors.MarshalStack(err)
	}
	zerolog.ErrorMarshalFunc = func(err error) interface{} {
		type stackTracer interface{ StackTrace() pkgerrors.StackTrace }
		if _, ok := err.(stackTracer); ok {
			return err
		}
		return pkgerrors.WithStack(err)
	}
}

// New returns a JSON logger tagged with the service name. Call sites
// should use .Stack() on error events to include stacks.
func New(serviceName string) zerolog.Logger {
	configureStackMarshaling()
	return zerolog.New(os.Stdout).With().
		Str("service", serviceName).
		Timestamp().
		Logger()
}

// NewDevelopment returns a human-readable console logger for local runs.
func NewDevelopment(serviceName string) zerolog.Logger {
	configureStackMarshaling()
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().
		Str("service", serviceName).
		Timestamp().
		Logger()
}
