// Package client assembles the request pipeline and runs operations
// through it.
//
// The chain order is fixed, outermost first: status tracking, auth,
// error interception, HTTP transport. Status tracking therefore sees every
// operation, the auth header is set before the request is built, and
// errors are observed before they reach the caller.
package client

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hanpama/gqlink/internal/authlink"
	"github.com/hanpama/gqlink/internal/cache"
	eventbus "github.com/hanpama/gqlink/internal/eventbus"
	"github.com/hanpama/gqlink/internal/errorlink"
	"github.com/hanpama/gqlink/internal/httplink"
	language "github.com/hanpama/gqlink/internal/language"
	"github.com/hanpama/gqlink/internal/link"
	"github.com/hanpama/gqlink/internal/opid"
	"github.com/hanpama/gqlink/internal/statuslink"
	"github.com/hanpama/gqlink/internal/tokenstore"
)

var ErrUnsupportedOperation = errors.New("client: subscriptions are not supported")

// Request describes one operation to run.
type Request struct {
	Query         string
	OperationName string
	Variables     map[string]any
	Uploads       []link.Upload
	// Context seeds the operation context, e.g. extra headers under
	// link.HeadersKey.
	Context map[string]any
}

// OperationError is returned under ErrorPolicyNone when the endpoint
// answered with GraphQL errors.
type OperationError struct {
	Operation string
	Errors    []link.GraphQLError
}

func (e *OperationError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, ge := range e.Errors {
		msgs[i] = ge.Error()
	}
	name := e.Operation
	if name == "" {
		name = "anonymous operation"
	}
	return fmt.Sprintf("%s: %s", name, strings.Join(msgs, "; "))
}

// Client is the assembled pipeline. It is safe for concurrent use.
type Client struct {
	chain  link.NextLink
	status *statuslink.Link
	cache  *cache.Cache
	opts   *Options
}

// New builds the pipeline against endpoint. tokens and nav are shared with
// the host application: the auth link reads tokens, and the error link
// clears it and navigates on expired sessions.
func New(endpoint string, tokens tokenstore.Store, nav errorlink.Navigator, opts ...Option) (*Client, error) {
	o := defaultOptions()
	for _, f := range opts {
		f(o)
	}
	if o.Bus == nil {
		o.Bus = eventbus.New()
	}
	if o.Cache == nil {
		o.Cache = cache.New()
	}

	trOpts := []httplink.Option{httplink.WithBus(o.Bus)}
	if o.HTTPClient != nil {
		trOpts = append(trOpts, httplink.WithHTTPClient(o.HTTPClient))
	}
	transport, err := httplink.New(endpoint, append(trOpts, o.Transport...)...)
	if err != nil {
		return nil, err
	}
	errOpts := append([]errorlink.Option{errorlink.WithLogger(o.Logger)}, o.Errors...)

	status := statuslink.New(o.Bus)
	c := &Client{
		status: status,
		cache:  o.Cache,
		opts:   o,
		chain: link.From(
			status,
			authlink.New(tokens),
			errorlink.New(tokens, nav, errOpts...),
			transport,
		),
	}
	return c, nil
}

// Execute runs req through the pipeline. Network failures are returned as
// *link.NetworkError; GraphQL errors follow the error policy.
func (c *Client) Execute(ctx context.Context, req Request, opts ...ExecOption) (*link.Result, error) {
	kind, name, err := language.Describe(req.Query, req.OperationName)
	if err != nil {
		return nil, fmt.Errorf("client: %w", err)
	}

	var policy Defaults
	switch kind {
	case language.Query:
		policy = c.opts.Query
	case language.Mutation:
		policy = c.opts.Mutation
	default:
		return nil, ErrUnsupportedOperation
	}
	for _, f := range opts {
		f(&policy)
	}

	var key string
	if kind == language.Query && policy.Fetch != NoCache {
		if key, err = cache.Key(req.Query, req.Variables); err != nil {
			return nil, err
		}
		if policy.Fetch == CacheFirst {
			if res, ok := c.cache.Read(key); ok {
				return res, nil
			}
		}
	}

	op := &link.Operation{
		Name:      name,
		Kind:      link.Kind(kind),
		Query:     req.Query,
		Variables: req.Variables,
		Uploads:   req.Uploads,
	}
	op.SetContext(req.Context)

	ctx, _ = opid.NewContext(ctx)
	res, err := c.chain(ctx, op)
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		if policy.Errors == ErrorPolicyNone {
			return nil, &OperationError{Operation: name, Errors: res.Errors}
		}
		return res, nil
	}
	if key != "" {
		c.cache.Write(key, res)
	}
	return res, nil
}

// Query runs a query document.
func (c *Client) Query(ctx context.Context, query string, variables map[string]any, opts ...ExecOption) (*link.Result, error) {
	return c.Execute(ctx, Request{Query: query, Variables: variables}, opts...)
}

// Mutate runs a mutation document, optionally with uploads.
func (c *Client) Mutate(ctx context.Context, mutation string, variables map[string]any, uploads ...link.Upload) (*link.Result, error) {
	return c.Execute(ctx, Request{Query: mutation, Variables: variables, Uploads: uploads})
}

// InFlight is the number of operations awaiting a response.
func (c *Client) InFlight() int64 { return c.status.InFlight() }

// Busy reports whether any operation is awaiting a response.
func (c *Client) Busy() bool { return c.status.Busy() }

// OnBusyChange calls fn whenever the client goes from idle to busy or back.
func (c *Client) OnBusyChange(fn func(busy bool)) (unsubscribe func()) {
	return c.status.Subscribe(fn)
}

func (c *Client) Cache() *cache.Cache { return c.cache }

// Bus carries the pipeline's events, for tracing and diagnostics.
func (c *Client) Bus() *eventbus.Bus { return c.opts.Bus }
