// Package logger builds the service-wide zerolog logger.
package logger

import (
	"os"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
	zpkgerrors "github.com/rs/zerolog/pkgerrors"
)

var setupOnce sync.Once

// New returns a JSON logger tagged with the service name. The level comes
// from MY3_LOG_LEVEL (default info). Error events logged with .Stack()
// include a stack trace even for plain errors.
func New(service string) zerolog.Logger {
	setupOnce.Do(configureStackMarshaling)

	level := zerolog.InfoLevel
	if raw := os.Getenv("MY3_LOG_LEVEL"); raw != "" {
		if parsed, err := zerolog.ParseLevel(raw); err == nil {
			level = parsed
		}
	}

	return zerolog.New(os.Stdout).Level(level).With().
		Str("service", service).
		Timestamp().
		Logger()
}

// configureStackMarshaling teaches zerolog to render github.com/pkg/errors
// stack traces, attaching one when the error does not already carry it.
func configureStackMarshaling() {
	type stackTracer interface{ StackTrace() pkgerrors.StackTrace }

	zerolog.ErrorStackMarshaler = func(err error) interface{} {
		if _, ok := err.(stackTracer); !ok {
			err = pkgerrors.WithStack(err)
		}
		return zpkgerrors.MarshalStack(err)
	}
	zerolog.ErrorMarshalFunc = func(err error) interface{} {
		if _, ok := err.(stackTracer); ok {
			return err
		}
		return pkgerrors.WithStack(err)
	}
}
