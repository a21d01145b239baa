package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.RequireAuth("pw")

	_, err := New(context.Background(), Options{Addr: mr.Addr()})
	assert.Error(t, err, "auth required")

	client, err := New(context.Background(), Options{Addr: mr.Addr(), Password: "pw"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestNewUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := New(context.Background(), Options{Addr: addr})
	assert.ErrorContains(t, err, "platform/cache: ping")
}
