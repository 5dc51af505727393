package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger returns the diagnostic logger, writing to w (normally stderr so
// that --json output stays clean).
func newLogger(w io.Writer, level log.Level) *log.Logger {
	l := log.New(w)
	l.SetLevel(level)
	l.SetReportTimestamp(true)
	l.SetTimeFormat(time.TimeOnly)
	return l
}

// progress times one command step.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg with the elapsed time appended: "Checked 3 manifests (42ms)".
func (p *progress) done(msg string, keyvals ...any) {
	took := time.Since(p.start).Round(time.Millisecond)
	p.logger.Info(msg+" ("+took.String()+")", keyvals...)
}

type loggerKey struct{}

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// loggerFromContext returns the logger set by withLogger, falling back to
// the package default.
func loggerFromContext(ctx context.Context) *log.Logger {
	l, ok := ctx.Value(loggerKey{}).(*log.Logger)
	if !ok {
		return log.Default()
	}
	return l
}
