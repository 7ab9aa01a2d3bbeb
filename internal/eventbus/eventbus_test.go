package eventbus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type ping struct{ n int }
type pong struct{}

func TestPublishDispatchesByType(t *testing.T) {
	b := New()
	var got []int
	var pongs int
	Subscribe(b, func(_ context.Context, p ping) { got = append(got, p.n) })
	Subscribe(b, func(_ context.Context, p ping) { got = append(got, p.n*10) })
	Subscribe(b, func(context.Context, pong) { pongs++ })

	Publish(context.Background(), b, ping{n: 1})
	require.Equal(t, []int{1, 10}, got)
	require.Equal(t, 0, pongs)
}

func TestUnsubscribeRemovesOnlyThatHandler(t *testing.T) {
	b := New()
	var a, c int
	// Same closure body twice: removal must not depend on code pointers.
	mk := func(dst *int) Handler[ping] { return func(context.Context, ping) { *dst++ } }
	unA := Subscribe(b, mk(&a))
	Subscribe(b, mk(&c))

	unA()
	unA()
	Publish(context.Background(), b, ping{})
	require.Equal(t, 0, a)
	require.Equal(t, 1, c)
}

func TestNilBus(t *testing.T) {
	var b *Bus
	un := Subscribe(b, func(context.Context, ping) { t.Fatal("called") })
	un()
	Publish(context.Background(), b, ping{})
}
