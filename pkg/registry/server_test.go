package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestServer(t *testing.T, opts ...Option) (*Server, *Client) {
	t.Helper()

	server := NewServer(New(opts...), "127.0.0.1:0")
	require.NoError(t, server.Start(context.Background()))
	t.Cleanup(func() { _ = server.Stop(context.Background()) })

	return server, NewClient("http://" + server.Addr())
}

func TestServer_RegisterDiscoverUnregister(t *testing.T) {
	_, client := startTestServer(t)
	ctx := context.Background()

	require.NoError(t, client.Register(ctx, testCard("alpha", "http://alpha:8000")))
	require.NoError(t, client.Register(ctx, testCard("beta", "http://beta:8000")))

	cards, err := client.Discover(ctx, nil)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, "alpha", cards[0].Name)

	cards, err = client.Discover(ctx, map[string]string{"name": "beta"})
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "beta", cards[0].Name)

	require.NoError(t, client.Unregister(ctx, "http://alpha:8000"))
	cards, err = client.Discover(ctx, nil)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "beta", cards[0].Name)

	// Unregistering an absent agent is still a 200.
	assert.NoError(t, client.Unregister(ctx, "http://alpha:8000"))
}

func TestServer_Heartbeat(t *testing.T) {
	_, client := startTestServer(t, WithTTL(60*time.Millisecond))
	ctx := context.Background()

	assert.ErrorIs(t, client.Heartbeat(ctx, "http://nobody:8000"), ErrNotRegistered)

	require.NoError(t, client.Register(ctx, testCard("alive", "http://alive:8000")))

	deadline := time.Now().Add(150 * time.Millisecond)
	for time.Now().Before(deadline) {
		require.NoError(t, client.Heartbeat(ctx, "http://alive:8000"))
		time.Sleep(15 * time.Millisecond)
	}

	cards, err := client.Discover(ctx, nil)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "alive", cards[0].Name)
}

func TestServer_Status(t *testing.T) {
	_, client := startTestServer(t)
	ctx := context.Background()

	require.NoError(t, client.Register(ctx, testCard("alpha", "http://alpha:8000")))

	status, err := client.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", status["status"])
	assert.EqualValues(t, 1, status["agents"])
	assert.Contains(t, status, "uptime_seconds")
}

func TestServer_StopIdempotent(t *testing.T) {
	server := NewServer(New(), "127.0.0.1:0")
	require.NoError(t, server.Stop(context.Background()))
	require.NoError(t, server.Start(context.Background()))
	require.NoError(t, server.Start(context.Background()))
	require.NoError(t, server.Stop(context.Background()))
	require.NoError(t, server.Stop(context.Background()))
}

// Stop racing the serve goroutine's first scheduling must not panic.
func TestServer_ImmediateStopAfterStart(t *testing.T) {
	for i := 0; i < 100; i++ {
		server := NewServer(New(), "127.0.0.1:0")
		require.NoError(t, server.Start(context.Background()))
		require.NoError(t, server.Stop(context.Background()))
	}
}
