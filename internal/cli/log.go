// Package cli is the sitecraft command line.
//
// Editing commands open the tenant in an editor session, apply one operation
// and save, so the CLI and the live editor share the document model, the
// change log and the persistence gateway. serve runs the HTTP API.
//
// Loggers travel in the command context (log.WithContext); -v lowers the
// level to debug and installs logging hooks for sessions and requests.
package cli

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
	})
}

type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) progress { return progress{l, time.Now()} }

// done logs "msg (elapsed)" at info level.
func (p progress) done(msg string) {
	p.logger.Info(msg, "took", time.Since(p.start).Round(time.Millisecond))
}
