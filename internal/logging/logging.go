// Package logging configures the process logger and optional error reporting.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Options selects log level, format and destination.
type Options struct {
	Level  string
	Format string
	Output io.Writer
}

// New builds a logrus logger. Format is "text" (default) or "json".
func New(o Options) (*logrus.Logger, error) {
	l := logrus.New()
	out := o.Output
	if out == nil {
		out = os.Stderr
	}
	l.SetOutput(out)

	lvl := strings.TrimSpace(o.Level)
	if lvl == "" {
		lvl = "info"
	}
	parsed, err := logrus.ParseLevel(lvl)
	if err != nil {
		return nil, fmt.Errorf("invalid log_level %q: %w", o.Level, err)
	}
	l.SetLevel(parsed)

	switch strings.ToLower(strings.TrimSpace(o.Format)) {
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05.000"})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("invalid log_format %q (use text or json)", o.Format)
	}
	return l, nil
}

// Discard returns a logger that drops everything; used when callers pass nil.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// RequestID returns a fresh id for correlating log lines of one request.
func RequestID() string {
	return uuid.NewString()
}

var sentryEnabled atomic.Bool

// InitSentry enables error reporting when dsn is non-empty.
func InitSentry(dsn, release string) error {
	if strings.TrimSpace(dsn) == "" {
		return nil
	}
	if err := sentry.Init(sentry.ClientOptions{Dsn: dsn, Release: release}); err != nil {
		return fmt.Errorf("sentry init: %w", err)
	}
	sentryEnabled.Store(true)
	return nil
}

// Report sends err to the error tracker if one is configured.
func Report(err error, tags map[string]string) {
	if err == nil || !sentryEnabled.Load() {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
}

// Flush waits up to timeout for buffered reports to be delivered.
func Flush(timeout time.Duration) {
	if sentryEnabled.Load() {
		sentry.Flush(timeout)
	}
}
