package config

import (
	"os"
	"strings"
)

// CronDisabled turns off the in-process schedules (daily sync, holiday refresh).
// Useful when running multiple replicas: exactly one instance should keep cron on.
//
// Set via env:
// - CRON_DISABLED=true
func CronDisabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("CRON_DISABLED")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// StrictParse makes the directory scanner fail a file on the first bad row
// instead of skipping it. Default is off: bad rows are logged and skipped.
//
// Set via env:
// - RECON_STRICT_PARSE=true
func StrictParse() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("RECON_STRICT_PARSE")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// OutboxDisabled skips the event outbox entirely (no records written, no
// dispatcher started). For local development without Pub/Sub.
//
// Set via env:
// - OUTBOX_DISABLED=true
func OutboxDisabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("OUTBOX_DISABLED")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
