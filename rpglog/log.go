// Package rpglog carries the process-wide logger. Commands initialize it
// once at startup; every other package logs through L.
package rpglog

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
)

// L is the shared logger. It defaults to info-level stderr output so
// library code can log before Init runs.
var L = log.NewWithOptions(os.Stderr, log.Options{Level: log.InfoLevel, Prefix: "gorpg"})

// Init reconfigures L. An empty logFile keeps stderr; debug widens the
// level and reports caller positions.
func Init(debug bool, logFile string) error {
	w := os.Stderr
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("rpglog: opening log file: %w", err)
		}
		w = f
	}
	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}
	L = log.NewWithOptions(w, log.Options{
		Level:        level,
		Prefix:       "gorpg",
		ReportCaller: debug,
	})
	return nil
}
