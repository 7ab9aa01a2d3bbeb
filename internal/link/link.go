// Package link defines the request pipeline: operations travel through an
// ordered chain of links, and results travel back the same way.
//
// A link may rewrite the operation context, observe the outcome, or
// terminate the chain by performing the exchange itself.
package link

import "context"

// NextLink runs the rest of the chain.
type NextLink func(ctx context.Context, op *Operation) (*Result, error)

// Link is one element of a chain. forward runs the links after it;
// terminating links never call it.
type Link interface {
	Request(ctx context.Context, op *Operation, forward NextLink) (*Result, error)
}

// LinkFunc adapts a function to Link.
type LinkFunc func(ctx context.Context, op *Operation, forward NextLink) (*Result, error)

func (f LinkFunc) Request(ctx context.Context, op *Operation, forward NextLink) (*Result, error) {
	return f(ctx, op, forward)
}

// From composes links outermost first.
func From(links ...Link) NextLink {
	next := NextLink(func(context.Context, *Operation) (*Result, error) {
		return nil, ErrNoTerminatingLink
	})
	for i := len(links) - 1; i >= 0; i-- {
		l, forward := links[i], next
		next = func(ctx context.Context, op *Operation) (*Result, error) {
			return l.Request(ctx, op, forward)
		}
	}
	return next
}
