// Package errorlink reports failed operations and applies recovery policy
// keyed by the first GraphQL error's extension code.
package errorlink

import (
	"context"
	"errors"
	"strings"

	"github.com/hanpama/gqlink/internal/link"
	"github.com/hanpama/gqlink/internal/logging"
	"github.com/hanpama/gqlink/internal/tokenstore"
)

// Code is a GraphQL error extension code.
type Code string

const (
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	CodeAnotherError    Code = "ANOTHER_ERROR_CODE"
)

const (
	AuthPrefix = "/auth"
	SignInPath = "/auth/signin"
)

// Navigator exposes the host's current location and full-page redirects.
type Navigator interface {
	Path() string
	Navigate(path string)
}

// Link observes outcomes and never changes them: results and errors are
// returned to the caller exactly as the next link produced them.
type Link struct {
	tokens   tokenstore.Store
	nav      Navigator
	log      logging.Logger
	handlers map[Code]Handler
	fallback Handler
}

func New(tokens tokenstore.Store, nav Navigator, opts ...Option) *Link {
	l := &Link{tokens: tokens, nav: nav}
	o := &Options{
		Logger: logging.Nop(),
		Handlers: map[Code]Handler{
			CodeUnauthenticated: l.signOut,
			CodeAnotherError:    noop,
		},
		Default: noop,
	}
	for _, f := range opts {
		f(o)
	}
	l.log, l.handlers, l.fallback = o.Logger, o.Handlers, o.Default
	return l
}

func (l *Link) Request(ctx context.Context, op *link.Operation, forward link.NextLink) (*link.Result, error) {
	res, err := forward(ctx, op)
	if errors.Is(err, context.Canceled) {
		return res, err
	}
	if env := link.Envelope(op, res, err); env != nil {
		l.report(ctx, env)
		// A timeout is reported but says nothing about the session.
		if !errors.Is(err, context.DeadlineExceeded) {
			l.handler(Code(env.Code()))(ctx, env)
		}
	}
	return res, err
}

func (l *Link) handler(code Code) Handler {
	if h, ok := l.handlers[code]; ok && code != "" {
		return h
	}
	return l.fallback
}

func (l *Link) report(ctx context.Context, env *link.ErrorEnvelope) {
	name := env.Operation.Name
	for _, e := range env.GraphQLErrors {
		l.log.Error(ctx, "graphql error",
			"operation", name, "message", e.Message, "path", e.PathString(), "code", e.Code())
	}
	if ne := env.NetworkError; ne != nil {
		l.log.Error(ctx, "network error", "operation", name, "status", ne.StatusCode, "error", ne.Error())
	}
}

// signOut drops the token and sends the user to the sign-in page, unless
// they are already on an auth page.
func (l *Link) signOut(ctx context.Context, _ *link.ErrorEnvelope) {
	if strings.HasPrefix(l.nav.Path(), AuthPrefix) {
		return
	}
	l.tokens.Clear()
	l.nav.Navigate(SignInPath)
	l.log.Info(ctx, "session expired, redirecting", "to", SignInPath)
}

var _ link.Link = (*Link)(nil)
