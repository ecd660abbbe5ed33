package logging

import (
	"context"
	"log/slog"
)

// leaderGate passes only errors. It wraps the handler of every rank but the
// leader so that informational output appears once per group.
type leaderGate struct {
	next slog.Handler
}

func (g *leaderGate) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= slog.LevelError && g.next.Enabled(ctx, level)
}

func (g *leaderGate) Handle(ctx context.Context, record slog.Record) error {
	if record.Level < slog.LevelError {
		return nil
	}
	return g.next.Handle(ctx, record)
}

func (g *leaderGate) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &leaderGate{next: g.next.WithAttrs(attrs)}
}

func (g *leaderGate) WithGroup(name string) slog.Handler {
	return &leaderGate{next: g.next.WithGroup(name)}
}
