package authlink

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanpama/gqlink/internal/link"
	"github.com/hanpama/gqlink/internal/tokenstore"
)

func capture(t *testing.T, l link.Link, op *link.Operation) http.Header {
	t.Helper()
	var got http.Header
	terminal := link.LinkFunc(func(ctx context.Context, op *link.Operation, _ link.NextLink) (*link.Result, error) {
		got = op.Headers()
		return &link.Result{}, nil
	})
	_, err := link.From(l, terminal)(context.Background(), op)
	require.NoError(t, err)
	return got
}

func TestBearerHeaderWithToken(t *testing.T) {
	tokens := tokenstore.NewMemory()
	tokens.Write("abc")
	h := capture(t, New(tokens), &link.Operation{Kind: link.Query})
	require.Equal(t, []string{"Bearer abc"}, h.Values("authorization"))
}

func TestEmptyHeaderWithoutToken(t *testing.T) {
	h := capture(t, New(tokenstore.NewMemory()), &link.Operation{Kind: link.Query})
	v, present := h[http.CanonicalHeaderKey("authorization")]
	require.True(t, present, "header key must be present")
	require.Equal(t, []string{""}, v)
}

func TestReadsStoreOnEveryOperation(t *testing.T) {
	tokens := tokenstore.NewMemory()
	l := New(tokens)
	tokens.Write("one")
	require.Equal(t, "Bearer one", capture(t, l, &link.Operation{}).Get(Header))
	tokens.Clear()
	require.Equal(t, "", capture(t, l, &link.Operation{}).Get(Header))
}

func TestKeepsOtherHeaders(t *testing.T) {
	op := &link.Operation{}
	op.SetContext(map[string]any{link.HeadersKey: http.Header{"X-Team": {"t1"}, "Authorization": {"stale"}}})
	tokens := tokenstore.NewMemory()
	tokens.Write("fresh")
	h := capture(t, New(tokens), op)
	require.Equal(t, "t1", h.Get("X-Team"))
	require.Equal(t, []string{"Bearer fresh"}, h.Values(Header))
}

func TestForwardsErrorsUnchanged(t *testing.T) {
	want := &link.NetworkError{Message: "down"}
	failing := link.LinkFunc(func(context.Context, *link.Operation, link.NextLink) (*link.Result, error) {
		return nil, want
	})
	_, err := link.From(New(tokenstore.NewMemory()), failing)(context.Background(), &link.Operation{})
	require.Same(t, want, err)
}
