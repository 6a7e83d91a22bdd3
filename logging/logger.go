// Package logging defines the context-aware structured logger the engine and
// HTTP layer write to, with slog and zap adapters.
package logging

import "context"

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key-value pairs, e.g.:
//
//	log.Warn(ctx, "login failed", "ip", ip)
type Logger interface {
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key-value pairs.
	With(args ...any) Logger
}

type nop struct{}

func (nop) Info(context.Context, string, ...any)  {}
func (nop) Warn(context.Context, string, ...any)  {}
func (nop) Error(context.Context, string, ...any) {}
func (n nop) With(...any) Logger                  { return n }

// Nop returns a Logger that discards everything.
func Nop() Logger { return nop{} }
