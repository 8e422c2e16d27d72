package pipe

import (
	"context"
	"testing"
	"time"

	"github.com/bets-framework/ppets/pkg/protocol"
	"github.com/bets-framework/ppets/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipeExchange(t *testing.T) {
	reader, device := New("reader", "device")
	ctx := context.Background()

	require.NoError(t, reader.Send(ctx, protocol.Get, nil))
	msg, err := device.Receive(ctx)
	require.NoError(t, err)
	assert.True(t, msg.IsRequest())
	assert.Equal(t, protocol.Get, msg.Command)

	require.NoError(t, device.Send(ctx, protocol.Response, transport.OK()))
	msg, err = reader.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, protocol.Data, msg.Type)
	_, sw, err := transport.SplitStatus(msg.Data)
	require.NoError(t, err)
	assert.Equal(t, transport.StatusOK, sw)
}

func TestPipeControl(t *testing.T) {
	reader, device := New("reader", "device")
	ctx := context.Background()

	require.NoError(t, reader.Send(ctx, protocol.Close, nil))
	msg, err := device.Receive(ctx)
	require.NoError(t, err)
	assert.True(t, msg.Is(protocol.Close))
}

func TestPipeClose(t *testing.T) {
	reader, device := New("reader", "device")
	require.NoError(t, reader.Close())
	require.NoError(t, reader.Close())

	_, err := device.Receive(context.Background())
	require.ErrorIs(t, err, transport.ErrClosed)
	require.ErrorIs(t, device.Send(context.Background(), protocol.Response, nil), transport.ErrClosed)
}

func TestPipeReceiveDeadline(t *testing.T) {
	_, device := New("reader", "device")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := device.Receive(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPipeDeliversBeforeClose(t *testing.T) {
	reader, device := New("reader", "device")
	ctx := context.Background()
	require.NoError(t, reader.Send(ctx, protocol.Close, nil))
	require.NoError(t, reader.Close())

	msg, err := device.Receive(ctx)
	require.NoError(t, err)
	assert.True(t, msg.Is(protocol.Close))

	_, err = device.Receive(ctx)
	require.ErrorIs(t, err, transport.ErrClosed)
}
