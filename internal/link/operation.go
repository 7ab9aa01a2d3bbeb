package link

import (
	"io"
	"maps"
	"net/http"
)

// Kind is the GraphQL operation type of a document.
type Kind string

const (
	Query        Kind = "query"
	Mutation     Kind = "mutation"
	Subscription Kind = "subscription"
)

// HeadersKey is the context key holding outgoing HTTP headers.
const HeadersKey = "headers"

// Upload is a file attached to an operation. Path addresses the variable
// the file replaces, e.g. "file", "files.1" or "input.avatar".
type Upload struct {
	Path        string
	Filename    string
	ContentType string
	Body        io.Reader
}

// Operation is a single query or mutation travelling through a chain.
// Everything except the context is fixed once the operation is dispatched.
type Operation struct {
	Name      string
	Kind      Kind
	Query     string
	Variables map[string]any
	Uploads   []Upload

	context map[string]any
}

// Context returns a shallow copy of the operation context.
func (o *Operation) Context() map[string]any {
	return maps.Clone(o.context)
}

// Value returns a single context entry.
func (o *Operation) Value(key string) (any, bool) {
	v, ok := o.context[key]
	return v, ok
}

// SetContext merges values into the operation context. Existing keys are
// replaced.
func (o *Operation) SetContext(values map[string]any) {
	if o.context == nil {
		o.context = make(map[string]any, len(values))
	}
	maps.Copy(o.context, values)
}

// Headers returns a copy of the outgoing headers stored in the context.
func (o *Operation) Headers() http.Header {
	if h, ok := o.context[HeadersKey].(http.Header); ok {
		return h.Clone()
	}
	return http.Header{}
}
