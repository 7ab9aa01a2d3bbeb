// Package authlink attaches the bearer token to outgoing operations.
package authlink

import (
	"context"

	"github.com/hanpama/gqlink/internal/link"
	"github.com/hanpama/gqlink/internal/tokenstore"
)

// Header is the header key the token travels in.
const Header = "Authorization"

// Link sets the authorization header from the token store on every
// operation. Without a token the header is still sent, with an empty
// value.
type Link struct {
	tokens tokenstore.Store
}

func New(tokens tokenstore.Store) *Link { return &Link{tokens: tokens} }

func (l *Link) Request(ctx context.Context, op *link.Operation, forward link.NextLink) (*link.Result, error) {
	headers := op.Headers()
	headers.Set(Header, Value(l.tokens))
	op.SetContext(map[string]any{link.HeadersKey: headers})
	return forward(ctx, op)
}

// Value is the header value for the current token.
func Value(tokens tokenstore.Store) string {
	if token, ok := tokens.Read(); ok && token != "" {
		return "Bearer " + token
	}
	return ""
}

var _ link.Link = (*Link)(nil)
