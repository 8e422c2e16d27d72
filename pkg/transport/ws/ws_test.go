package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bets-framework/ppets/pkg/protocol"
	"github.com/bets-framework/ppets/pkg/transport"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExchange(t *testing.T) {
	done := make(chan error, 1)
	h := NewHandler(func(ctx context.Context, conn transport.Conn) {
		if err := conn.Send(ctx, protocol.Get, nil); err != nil {
			done <- err
			return
		}
		_, err := conn.Receive(ctx)
		done <- err
	}, zerolog.Nop())
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"))
	require.NoError(t, err)
	defer conn.Close()

	msg, err := conn.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, protocol.Get, msg.Command)
	assert.True(t, msg.IsRequest())

	require.NoError(t, conn.Send(ctx, protocol.Response, transport.OK()))
	require.NoError(t, <-done)
}

func TestPeerClosed(t *testing.T) {
	h := NewHandler(func(ctx context.Context, conn transport.Conn) {}, zerolog.Nop())
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"))
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Receive(ctx)
	require.ErrorIs(t, err, transport.ErrClosed)
}

func TestDialFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := Dial(ctx, "ws://127.0.0.1:1/none")
	require.Error(t, err)
}
