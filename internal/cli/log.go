// Package cli implements the flashplan command-line interface.
//
// The commands create, inspect and convert partition layouts. A layout
// comes from a TOML project file (flashplan.toml by default) or straight
// from a catalog device and template via --device and --template.
//
// # Commands
//
//   - init: write a project file, picking device and template interactively
//   - show: print the resolved layout, region usage and findings
//   - export, import: convert between projects and pm_static.yml
//   - render: draw the memory map as SVG, PNG or DOT
//   - devices, templates: list the catalog
//   - serve: run the HTTP API
//   - cache, config: manage the render cache and settings
//
// # Logging
//
// Logs go to stderr at info level. --verbose (-v) or log.level in the
// config file lowers the threshold; whichever is lower wins. Commands get
// the logger from their context.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// parseLevel reads a configured log level. Empty means info.
func parseLevel(s string) (log.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "":
		return log.InfoLevel, nil
	case "verbose":
		return log.DebugLevel, nil
	case "warning":
		return log.WarnLevel, nil
	}
	lvl, err := log.ParseLevel(s)
	if err != nil {
		return 0, fmt.Errorf("log level %q: want debug, info, warn or error", s)
	}
	return lvl, nil
}

// progress logs how long an operation took.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg with the elapsed time, e.g. "Exported 7 records (3ms)".
func (p *progress) done(msg string, keyvals ...any) {
	p.logger.Info(fmt.Sprintf("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond)), keyvals...)
}

type loggerKey struct{}

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// loggerFromContext returns the command logger, or log.Default outside a
// command.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
