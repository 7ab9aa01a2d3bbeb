// Package httplink is the terminating link: it sends operations to a
// GraphQL endpoint over HTTP and decodes the response.
package httplink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"golang.org/x/net/publicsuffix"

	eventbus "github.com/hanpama/gqlink/internal/eventbus"
	events "github.com/hanpama/gqlink/internal/events"
	"github.com/hanpama/gqlink/internal/link"
)

var (
	ErrNoEndpoint    = errors.New("httplink: endpoint not configured")
	ErrInvalidUpload = errors.New("httplink: invalid upload")
)

// Link performs exactly one HTTP exchange per operation. It does not retry.
type Link struct {
	endpoint string
	opts     *Options
}

func New(endpoint string, opts ...Option) (*Link, error) {
	if endpoint == "" {
		return nil, ErrNoEndpoint
	}
	o := &Options{Headers: http.Header{}}
	for _, f := range opts {
		f(o)
	}
	if o.Client == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("httplink: cookie jar: %w", err)
		}
		o.Client = &http.Client{Jar: jar}
	}
	return &Link{endpoint: endpoint, opts: o}, nil
}

func (l *Link) Request(ctx context.Context, op *link.Operation, _ link.NextLink) (*link.Result, error) {
	req, multipart, err := l.newRequest(ctx, op)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	status := 0
	eventbus.Publish(ctx, l.opts.Bus, events.HTTPClientStart{Request: req, Multipart: multipart})
	defer func() {
		eventbus.Publish(ctx, l.opts.Bus, events.HTTPClientFinish{Request: req, Status: status, Err: err, Duration: time.Since(start)})
	}()

	resp, err := l.opts.Client.Do(req)
	if err != nil {
		err = &link.NetworkError{Message: err.Error(), Err: err}
		return nil, err
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	body, rerr := io.ReadAll(resp.Body)
	if rerr != nil {
		err = &link.NetworkError{StatusCode: status, Message: "read response: " + rerr.Error(), Err: rerr}
		return nil, err
	}
	if status < 200 || status > 299 {
		err = &link.NetworkError{
			StatusCode: status,
			Message:    fmt.Sprintf("response not successful: received status code %d", status),
			Body:       body,
		}
		return nil, err
	}

	var res link.Result
	if derr := json.Unmarshal(body, &res); derr != nil {
		err = &link.NetworkError{StatusCode: status, Message: "malformed response: " + derr.Error(), Body: body, Err: derr}
		return nil, err
	}
	return &res, nil
}

func (l *Link) newRequest(ctx context.Context, op *link.Operation) (*http.Request, bool, error) {
	multipart := len(op.Uploads) > 0
	encode := encodeJSON
	if multipart {
		encode = encodeMultipart
	}
	body, contentType, err := encode(op)
	if err != nil {
		return nil, false, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.endpoint, body)
	if err != nil {
		return nil, false, fmt.Errorf("httplink: build request: %w", err)
	}
	for k, vs := range l.opts.Headers {
		req.Header[k] = append([]string(nil), vs...)
	}
	scoped := make(http.Header)
	for k, vs := range op.Headers() {
		for _, v := range vs {
			scoped.Add(k, v)
		}
	}
	for k, vs := range scoped {
		req.Header[k] = vs
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	return req, multipart, nil
}

var _ link.Link = (*Link)(nil)
