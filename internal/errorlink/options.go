package errorlink

import (
	"context"

	"github.com/hanpama/gqlink/internal/link"
	"github.com/hanpama/gqlink/internal/logging"
)

// Handler reacts to a classified failure. It must not alter the outcome
// seen by callers.
type Handler func(ctx context.Context, env *link.ErrorEnvelope)

// Options configures the interceptor.
//
// Defaults:
// - Logger:   logging.Nop()
// - Handlers: UNAUTHENTICATED signs out, ANOTHER_ERROR_CODE does nothing
// - Default:  does nothing
type Options struct {
	Logger   logging.Logger
	Handlers map[Code]Handler
	Default  Handler
}

type Option func(*Options)

func WithLogger(l logging.Logger) Option { return func(o *Options) { o.Logger = l } }

// WithHandler registers h for code, replacing any built-in policy.
func WithHandler(code Code, h Handler) Option {
	return func(o *Options) { o.Handlers[code] = h }
}

// WithDefault sets the handler for unrecognized or absent codes.
func WithDefault(h Handler) Option { return func(o *Options) { o.Default = h } }

func noop(context.Context, *link.ErrorEnvelope) {}
