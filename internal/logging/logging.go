// Package logging configures the process-wide logger for the CLI.
package logging

import (
	"os"

	log "github.com/sirupsen/logrus"
)

// Init initializes the global logger with the given level ("debug", "info",
// "warn", "error"). An unknown level falls back to info.
func Init(level string, jsonFormat bool) {
	parsed, err := log.ParseLevel(level)
	if err != nil {
		log.Warnf("Invalid log level '%s', defaulting to 'info': %v", level, err)
		parsed = log.InfoLevel
	}
	log.SetLevel(parsed)

	if jsonFormat {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	log.SetOutput(os.Stdout)
}
