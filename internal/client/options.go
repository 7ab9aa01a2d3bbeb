package client

import (
	"net/http"

	"github.com/hanpama/gqlink/internal/cache"
	eventbus "github.com/hanpama/gqlink/internal/eventbus"
	"github.com/hanpama/gqlink/internal/errorlink"
	"github.com/hanpama/gqlink/internal/httplink"
	"github.com/hanpama/gqlink/internal/logging"
)

// FetchPolicy decides whether a query may be answered from the cache.
type FetchPolicy int

const (
	// NoCache always hits the network and never stores the result.
	NoCache FetchPolicy = iota
	// NetworkOnly always hits the network and stores the result.
	NetworkOnly
	// CacheFirst answers from the cache when possible.
	CacheFirst
)

// ErrorPolicy decides what callers see when a result carries GraphQL errors.
type ErrorPolicy int

const (
	// ErrorPolicyNone turns GraphQL errors into an *OperationError.
	ErrorPolicyNone ErrorPolicy = iota
	// ErrorPolicyAll returns the result with its errors and partial data.
	ErrorPolicyAll
)

// Defaults are the policies applied to one operation kind.
type Defaults struct {
	Fetch  FetchPolicy
	Errors ErrorPolicy
}

// Options configures the client.
//
// Defaults:
// - Query:    NoCache, ErrorPolicyNone
// - Mutation: NoCache, ErrorPolicyAll (mutations never read the cache)
// - Logger:   logging.Nop()
// - Bus:      a private bus
// - Cache:    a fresh in-memory cache
type Options struct {
	Query    Defaults
	Mutation Defaults

	Logger     logging.Logger
	Bus        *eventbus.Bus
	Cache      *cache.Cache
	HTTPClient *http.Client

	Transport []httplink.Option
	Errors    []errorlink.Option
}

type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		Query:    Defaults{Fetch: NoCache, Errors: ErrorPolicyNone},
		Mutation: Defaults{Fetch: NoCache, Errors: ErrorPolicyAll},
		Logger:   logging.Nop(),
	}
}

func WithQueryDefaults(d Defaults) Option    { return func(o *Options) { o.Query = d } }
func WithMutationDefaults(d Defaults) Option { return func(o *Options) { o.Mutation = d } }
func WithLogger(l logging.Logger) Option     { return func(o *Options) { o.Logger = l } }
func WithBus(b *eventbus.Bus) Option         { return func(o *Options) { o.Bus = b } }
func WithCache(c *cache.Cache) Option        { return func(o *Options) { o.Cache = c } }
func WithHTTPClient(c *http.Client) Option   { return func(o *Options) { o.HTTPClient = c } }

func WithTransportOptions(opts ...httplink.Option) Option {
	return func(o *Options) { o.Transport = append(o.Transport, opts...) }
}

func WithErrorOptions(opts ...errorlink.Option) Option {
	return func(o *Options) { o.Errors = append(o.Errors, opts...) }
}

// ExecOption overrides the defaults for a single call.
type ExecOption func(*Defaults)

func WithFetchPolicy(p FetchPolicy) ExecOption { return func(d *Defaults) { d.Fetch = p } }
func WithErrorPolicy(p ErrorPolicy) ExecOption { return func(d *Defaults) { d.Errors = p } }
