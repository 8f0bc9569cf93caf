// Package logger provides the service's configured zerolog logger.
package logger

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New returns a logger tagged with the service name. CRM_LOG_LEVEL selects
// the minimum level; unset or unrecognized values mean info.
func New(serviceName string) zerolog.Logger {
	level := zerolog.InfoLevel
	if raw := os.Getenv("CRM_LOG_LEVEL"); raw != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(raw)); err == nil {
			level = parsed
		}
	}
	return zerolog.New(os.Stdout).Level(level).With().
		Str("service", serviceName).
		Timestamp().
		Logger()
}
