package helpers

import (
	"time"

	"github.com/rs/zerolog/log"
)

// ParseDuration parses a positive duration such as "10s" or "24h". Empty input
// silently yields the fallback; malformed or non-positive input logs a warning first.
func ParseDuration(durationStr string, fallback time.Duration) time.Duration {
	if durationStr == "" {
		return fallback
	}
	duration, err := time.ParseDuration(durationStr)
	if err == nil && duration > 0 {
		return duration
	}
	// global logger: config is parsed before the logger is configured
	log.Warn().Err(err).
		Str("value", durationStr).
		Dur("fallback", fallback).
		Msg("Invalid duration, using fallback")
	return fallback
}
