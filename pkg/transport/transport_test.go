package transport_test

import (
	"context"
	"errors"
	"testing"

	"github.com/bets-framework/ppets/pkg/protocol"
	"github.com/bets-framework/ppets/pkg/transport"
	"github.com/bets-framework/ppets/pkg/transport/pipe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus(t *testing.T) {
	data := transport.AppendStatus([]byte{1, 2, 3}, transport.StatusOK)
	assert.Equal(t, []byte{1, 2, 3, 0x90, 0x00}, data)

	payload, sw, err := transport.SplitStatus(data)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, payload)
	assert.Equal(t, transport.StatusOK, sw)

	_, _, err = transport.SplitStatus([]byte{0x90})
	require.ErrorIs(t, err, transport.ErrNoStatus)
	assert.Equal(t, "6F00", transport.StatusFailure.String())
}

func TestFrame(t *testing.T) {
	data, err := transport.Frame{Command: protocol.Put, Payload: []byte("snapshot")}.Marshal()
	require.NoError(t, err)
	f, err := transport.UnmarshalFrame(data)
	require.NoError(t, err)
	assert.Equal(t, protocol.Put, f.Command)
	assert.Equal(t, protocol.Data, f.Message().Type)

	data, err = transport.Frame{Command: protocol.Start}.Marshal()
	require.NoError(t, err)
	_, err = transport.UnmarshalFrame(data)
	require.Error(t, err)
}

func TestWithInternal(t *testing.T) {
	a, b := pipe.New("reader", "device")
	rec := &transport.Recorder{}
	conn := transport.WithInternal(a, rec)
	ctx := context.Background()

	require.NoError(t, conn.Send(ctx, protocol.PutInternal, []byte("report")))
	msg, err := conn.Receive(ctx)
	require.NoError(t, err)
	_, sw, err := transport.SplitStatus(msg.Data)
	require.NoError(t, err)
	assert.Equal(t, transport.StatusOK, sw)
	assert.Equal(t, [][]byte{[]byte("report")}, rec.Records())

	require.NoError(t, conn.Send(ctx, protocol.GetInternal, nil))
	msg, err = conn.Receive(ctx)
	require.NoError(t, err)
	payload, _, err := transport.SplitStatus(msg.Data)
	require.NoError(t, err)
	assert.Equal(t, []byte("report"), payload)

	// other commands reach the peer
	require.NoError(t, conn.Send(ctx, protocol.Get, nil))
	msg, err = b.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, protocol.Get, msg.Command)
}

func TestWithInternalFailure(t *testing.T) {
	a, _ := pipe.New("reader", "device")
	sink := transport.SinkFunc(func(context.Context, protocol.Command, []byte) ([]byte, error) {
		return nil, errors.New("full")
	})
	conn := transport.WithInternal(a, sink)
	ctx := context.Background()

	require.NoError(t, conn.Send(ctx, protocol.PutInternal, []byte("report")))
	msg, err := conn.Receive(ctx)
	require.NoError(t, err)
	_, sw, err := transport.SplitStatus(msg.Data)
	require.NoError(t, err)
	assert.Equal(t, transport.StatusFailure, sw)
}
