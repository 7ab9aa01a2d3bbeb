package client

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hanpama/gqlink/internal/errorlink"
	"github.com/hanpama/gqlink/internal/gqltest"
	"github.com/hanpama/gqlink/internal/link"
	"github.com/hanpama/gqlink/internal/logging"
	"github.com/hanpama/gqlink/internal/navigation"
	"github.com/hanpama/gqlink/internal/tokenstore"
)

type harness struct {
	srv    *gqltest.Server
	tokens *tokenstore.Memory
	nav    *navigation.Memory
	logs   *bytes.Buffer
	c      *Client
}

func newHarness(t *testing.T, path string, r gqltest.Responder, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		srv:    gqltest.NewServer(r),
		tokens: tokenstore.NewMemory(),
		nav:    navigation.NewMemory(path),
		logs:   &bytes.Buffer{},
	}
	t.Cleanup(h.srv.Close)
	log, err := logging.NewText(h.logs, "debug")
	require.NoError(t, err)
	opts = append([]Option{WithLogger(log)}, opts...)
	h.c, err = New(h.srv.Endpoint(), h.tokens, h.nav, opts...)
	require.NoError(t, err)
	return h
}

const meQuery = `query Me { me { id } }`

func TestAuthorizationHeader(t *testing.T) {
	h := newHarness(t, "/", gqltest.Data(map[string]any{"me": nil}))
	ctx := context.Background()

	h.tokens.Write("T1")
	_, err := h.c.Query(ctx, meQuery, nil)
	require.NoError(t, err)
	h.tokens.Clear()
	_, err = h.c.Query(ctx, meQuery, nil)
	require.NoError(t, err)

	reqs := h.srv.Requests()
	require.Len(t, reqs, 2)
	require.Equal(t, []string{"Bearer T1"}, reqs[0].Header.Values("Authorization"))
	require.Equal(t, []string{""}, reqs[1].Header.Values("Authorization"))
}

func TestUnauthenticatedRedirectsOnce(t *testing.T) {
	h := newHarness(t, "/dashboard", gqltest.Errors("expired", "UNAUTHENTICATED"))
	h.tokens.Write("T1")

	_, err := h.c.Query(context.Background(), meQuery, nil)
	var oe *OperationError
	require.ErrorAs(t, err, &oe)
	require.Equal(t, "Me", oe.Operation)
	require.Equal(t, "UNAUTHENTICATED", oe.Errors[0].Code())

	_, ok := h.tokens.Read()
	require.False(t, ok)
	require.Equal(t, []string{errorlink.SignInPath}, h.nav.Redirects())
	require.Contains(t, h.logs.String(), "graphql error")

	// Now on the sign-in page: no further redirect.
	_, err = h.c.Query(context.Background(), meQuery, nil)
	require.Error(t, err)
	require.Equal(t, []string{errorlink.SignInPath}, h.nav.Redirects())
}

func TestUnauthenticatedOnAuthPath(t *testing.T) {
	h := newHarness(t, "/auth/signin", gqltest.Errors("expired", "UNAUTHENTICATED"))
	h.tokens.Write("T1")

	_, err := h.c.Query(context.Background(), meQuery, nil)
	require.Error(t, err)
	tok, ok := h.tokens.Read()
	require.True(t, ok)
	require.Equal(t, "T1", tok)
	require.Empty(t, h.nav.Redirects())
}

func TestOtherCodeIsReportedOnly(t *testing.T) {
	h := newHarness(t, "/dashboard", gqltest.Errors("nope", "ANOTHER_ERROR_CODE"))
	h.tokens.Write("T1")

	_, err := h.c.Query(context.Background(), meQuery, nil)
	require.Error(t, err)
	_, ok := h.tokens.Read()
	require.True(t, ok)
	require.Empty(t, h.nav.Redirects())
	require.Contains(t, h.logs.String(), "code=ANOTHER_ERROR_CODE")
}

func TestMutationCollectsAllErrors(t *testing.T) {
	h := newHarness(t, "/", func(gqltest.Request) gqltest.Response {
		return gqltest.Response{Body: map[string]any{
			"data": map[string]any{"a": 1, "b": nil},
			"errors": []map[string]any{
				{"message": "b failed", "path": []any{"b"}, "extensions": map[string]any{"code": "BAD_INPUT"}},
				{"message": "c failed", "path": []any{"c", 0}},
			},
		}}
	})

	res, err := h.c.Mutate(context.Background(), `mutation Save { a b }`, nil)
	require.NoError(t, err)
	require.JSONEq(t, `{"a":1,"b":null}`, string(res.Data))
	require.Len(t, res.Errors, 2)
	require.Equal(t, []any{"c", 0}, res.Errors[1].Path)

	// The query default discards data; callers may opt in per call.
	res, err = h.c.Query(context.Background(), `{ a b }`, nil, WithErrorPolicy(ErrorPolicyAll))
	require.NoError(t, err)
	require.Len(t, res.Errors, 2)
}

func TestNetworkErrorPropagates(t *testing.T) {
	h := newHarness(t, "/dashboard", gqltest.Status(http.StatusInternalServerError))
	_, err := h.c.Query(context.Background(), meQuery, nil)
	var ne *link.NetworkError
	require.ErrorAs(t, err, &ne)
	require.Equal(t, http.StatusInternalServerError, ne.StatusCode)
	require.Contains(t, h.logs.String(), "network error")
	require.Empty(t, h.nav.Redirects())
	require.EqualValues(t, 0, h.c.InFlight())
}

func TestBusyTracking(t *testing.T) {
	h := newHarness(t, "/", gqltest.Data(nil))

	var mu sync.Mutex
	var seen []bool
	var during atomic.Int64
	unsubscribe := h.c.OnBusyChange(func(b bool) {
		if b {
			during.Store(h.c.InFlight())
		}
		mu.Lock()
		seen = append(seen, b)
		mu.Unlock()
	})
	defer unsubscribe()

	_, err := h.c.Query(context.Background(), meQuery, nil)
	require.NoError(t, err)
	require.EqualValues(t, 1, during.Load())
	require.False(t, h.c.Busy())
	mu.Lock()
	require.Equal(t, []bool{true, false}, seen)
	mu.Unlock()
}

func TestCancellationSettlesWithoutSideEffects(t *testing.T) {
	block := make(chan struct{})
	h := newHarness(t, "/dashboard", func(gqltest.Request) gqltest.Response {
		<-block
		return gqltest.Response{Body: map[string]any{"data": nil, "errors": []map[string]any{
			{"message": "late", "extensions": map[string]any{"code": "UNAUTHENTICATED"}},
		}}}
	})
	defer close(block)
	h.tokens.Write("T1")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := h.c.Query(ctx, meQuery, nil)
		done <- err
	}()
	require.Eventually(t, func() bool { return len(h.srv.Requests()) == 1 }, time.Second, time.Millisecond)
	require.True(t, h.c.Busy())
	cancel()

	err := <-done
	require.True(t, link.Canceled(err), "got %v", err)
	require.EqualValues(t, 0, h.c.InFlight())
	require.Empty(t, h.nav.Redirects())
	_, ok := h.tokens.Read()
	require.True(t, ok)
	require.NotContains(t, h.logs.String(), "network error")
}

func TestUploadThroughPipeline(t *testing.T) {
	h := newHarness(t, "/", gqltest.Data(map[string]any{"upload": "ok"}))
	h.tokens.Write("T1")

	_, err := h.c.Mutate(context.Background(),
		`mutation Upload($file: Upload!) { upload(file: $file) }`,
		map[string]any{"file": nil},
		link.Upload{Path: "file", Filename: "report.pdf", ContentType: "application/pdf", Body: strings.NewReader("%PDF")},
	)
	require.NoError(t, err)

	r := h.srv.Requests()[0]
	require.True(t, r.Multipart)
	require.Len(t, r.Files, 1)
	require.Equal(t, map[string][]string{"0": {"variables.file"}}, r.Map)
	require.Equal(t, "Bearer T1", r.Header.Get("Authorization"))
}

func TestFetchPolicies(t *testing.T) {
	h := newHarness(t, "/", gqltest.Data(map[string]any{"me": map[string]any{"id": "u1"}}))
	ctx := context.Background()

	_, err := h.c.Query(ctx, meQuery, nil)
	require.NoError(t, err)
	require.Equal(t, 0, h.c.Cache().Len(), "queries bypass the cache by default")

	_, err = h.c.Query(ctx, meQuery, nil, WithFetchPolicy(CacheFirst))
	require.NoError(t, err)
	require.Equal(t, 1, h.c.Cache().Len())
	res, err := h.c.Query(ctx, meQuery, nil, WithFetchPolicy(CacheFirst))
	require.NoError(t, err)
	require.JSONEq(t, `{"me":{"id":"u1"}}`, string(res.Data))
	require.Len(t, h.srv.Requests(), 2, "second cache-first read is served locally")

	_, err = h.c.Query(ctx, meQuery, nil, WithFetchPolicy(NetworkOnly))
	require.NoError(t, err)
	require.Len(t, h.srv.Requests(), 3)

	_, err = h.c.Mutate(ctx, `mutation { touch }`, nil)
	require.NoError(t, err)
	require.Equal(t, 1, h.c.Cache().Len(), "mutations never touch the cache")
}

func TestCacheFirstDefaultForQueries(t *testing.T) {
	h := newHarness(t, "/", gqltest.Data(map[string]any{"a": 1}),
		WithQueryDefaults(Defaults{Fetch: CacheFirst}))
	for i := 0; i < 3; i++ {
		_, err := h.c.Query(context.Background(), `{ a }`, map[string]any{"x": 1})
		require.NoError(t, err)
	}
	require.Len(t, h.srv.Requests(), 1)
}

func TestRejectsBadDocuments(t *testing.T) {
	h := newHarness(t, "/", gqltest.Data(nil))
	ctx := context.Background()

	_, err := h.c.Execute(ctx, Request{Query: `subscription { ticks }`})
	require.ErrorIs(t, err, ErrUnsupportedOperation)

	_, err = h.c.Execute(ctx, Request{Query: `query {`})
	require.Error(t, err)

	res, err := h.c.Execute(ctx, Request{Query: `query A { a } mutation B { b }`, OperationName: "B"})
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Equal(t, "B", h.srv.Requests()[0].Operation.OperationName)
	require.EqualValues(t, 0, h.c.InFlight())
}

func TestContextHeadersAndCustomHandler(t *testing.T) {
	var handled []string
	h := newHarness(t, "/", gqltest.Errors("slow down", "RATE_LIMITED"),
		WithMutationDefaults(Defaults{Errors: ErrorPolicyAll}),
		WithErrorOptions(errorlink.WithHandler("RATE_LIMITED", func(_ context.Context, env *link.ErrorEnvelope) {
			handled = append(handled, env.Operation.Name)
		})))

	_, err := h.c.Execute(context.Background(), Request{
		Query:   `mutation Ping { ping }`,
		Context: map[string]any{link.HeadersKey: http.Header{"X-Team": {"t-1"}}},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"Ping"}, handled)
	r := h.srv.Requests()[0]
	require.Equal(t, "t-1", r.Header.Get("X-Team"))
	_, present := r.Header["Authorization"]
	require.True(t, present)
}

func TestNewRequiresEndpoint(t *testing.T) {
	_, err := New("", tokenstore.NewMemory(), navigation.NewMemory("/"))
	require.Error(t, err)
}
