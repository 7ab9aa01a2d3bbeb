package httplink

import (
	"net/http"

	eventbus "github.com/hanpama/gqlink/internal/eventbus"
)

// Options configures the transport.
//
// Defaults:
// - Client: an http.Client with a cookie jar, so cookies set by the
//   endpoint are sent back on later requests
// - Bus:    nil (no events)
type Options struct {
	Client  *http.Client
	Bus     *eventbus.Bus
	Headers http.Header
}

type Option func(*Options)

func WithHTTPClient(c *http.Client) Option { return func(o *Options) { o.Client = c } }
func WithBus(b *eventbus.Bus) Option        { return func(o *Options) { o.Bus = b } }

// WithHeader adds a static header to every request. Headers carried by the
// operation context win over static ones.
func WithHeader(key, value string) Option {
	return func(o *Options) { o.Headers.Add(key, value) }
}
