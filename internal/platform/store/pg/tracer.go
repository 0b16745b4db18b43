package pg

import (
	"context"
	"errors"
	"strings"
	"time"

	"syncengine/internal/platform/logger"

	"github.com/jackc/pgx/v5"
)

// QueryEvent describes one finished statement
type QueryEvent struct {
	SQL     string
	Args    []any
	Elapsed time.Duration
	Err     error
	Slow    bool
}

// QueryTracer receives every statement
type QueryTracer interface {
	OnQuery(ctx context.Context, ev QueryEvent)
}

// LogTracer writes statements to log with the request or task fields from ctx
// slow statements log at warn and failures at error, the rest only when all is set
func LogTracer(log logger.Logger, all bool) QueryTracer {
	return logTracer{log: log.With().Str("component", "pg").Logger(), all: all}
}

type logTracer struct {
	log logger.Logger
	all bool
}

func (t logTracer) OnQuery(ctx context.Context, ev QueryEvent) {
	l := logger.From(ctx, t.log)
	failed := ev.Err != nil && !errors.Is(ev.Err, pgx.ErrNoRows)

	e := l.Info()
	switch {
	case failed:
		e = l.Error().Err(ev.Err)
	case ev.Slow:
		e = l.Warn()
	case !t.all:
		return
	}
	e.Dur("elapsed", ev.Elapsed).
		Bool("slow", ev.Slow).
		Int("args", len(ev.Args)).
		Str("sql", squash(ev.SQL)).
		Msg("pg: query")
}

// squash folds runs of whitespace so multi line sql stays on one log line
func squash(s string) string { return strings.Join(strings.Fields(s), " ") }
