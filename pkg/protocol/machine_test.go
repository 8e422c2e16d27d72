package protocol

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	seen []Command
}

func echo(next int) State[*counter] {
	return StateFunc[*counter](func(msg Message, c *counter) (Action, error) {
		c.seen = append(c.seen, msg.Command)
		return Proceed(next, Get, nil), nil
	})
}

func finish() State[*counter] {
	return StateFunc[*counter](func(msg Message, c *counter) (Action, error) {
		if msg.Type != Data {
			return Action{}, ErrUnhandledMessage
		}
		c.seen = append(c.seen, msg.Command)
		return Succeed(Close, nil), nil
	})
}

type declared struct {
	State[*counter]
	next []int
}

func (d declared) Successors() []int { return d.next }

func TestAdvance(t *testing.T) {
	m, err := NewMachine("test", []State[*counter]{echo(1), finish()}, &counter{})
	require.NoError(t, err)

	a, err := m.Advance(StartMessage())
	require.NoError(t, err)
	assert.Equal(t, Continue, a.Status)
	assert.Equal(t, 1, m.Index())

	a, err = m.Advance(NewMessage(Response, []byte{1}))
	require.NoError(t, err)
	assert.Equal(t, EndSuccess, a.Status)
	assert.Equal(t, Close, a.Command)

	done, status := m.Done()
	assert.True(t, done)
	assert.Equal(t, EndSuccess, status)
	assert.Equal(t, []Command{Start, Response}, m.Context().seen)

	_, err = m.Advance(NewMessage(Response, []byte{1}))
	require.ErrorIs(t, err, ErrSessionEnded)
}

func TestAdvanceIndexOutOfRange(t *testing.T) {
	m, err := NewMachine("test", []State[*counter]{echo(2), finish()}, &counter{})
	require.NoError(t, err)

	a, err := m.Advance(StartMessage())
	require.ErrorIs(t, err, ErrStateIndex)
	assert.Equal(t, EndFailure, a.Status)

	var protoErr *Error
	require.True(t, errors.As(err, &protoErr))
	assert.Equal(t, "test", protoErr.Protocol)
	assert.Equal(t, 0, protoErr.Index)

	done, status := m.Done()
	assert.True(t, done)
	assert.Equal(t, EndFailure, status)
}

func TestAdvanceUnhandled(t *testing.T) {
	m, err := NewMachine("test", []State[*counter]{finish()}, &counter{})
	require.NoError(t, err)
	_, err = m.Advance(NewMessage(Open, nil))
	require.ErrorIs(t, err, ErrUnhandledMessage)

	m, err = NewMachine("test", []State[*counter]{finish()}, &counter{})
	require.NoError(t, err)
	_, err = m.Advance(NewMessage(Close, nil))
	require.ErrorIs(t, err, ErrCancelled)
}

func TestValidateSequence(t *testing.T) {
	require.Error(t, ValidateSequence[*counter](nil))

	good := []State[*counter]{declared{echo(1), []int{1}}, finish()}
	require.NoError(t, ValidateSequence(good))

	bad := []State[*counter]{declared{echo(1), []int{1, 3}}, finish()}
	require.ErrorIs(t, ValidateSequence(bad), ErrStateIndex)

	_, err := NewMachine("test", bad, &counter{})
	require.ErrorIs(t, err, ErrStateIndex)
}

type chanConn struct {
	sent chan Message
	recv chan Message
}

func (c *chanConn) Send(ctx context.Context, cmd Command, payload []byte) error {
	select {
	case c.sent <- NewMessage(cmd, payload):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *chanConn) Receive(ctx context.Context) (Message, error) {
	select {
	case msg := <-c.recv:
		return msg, nil
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

func TestRun(t *testing.T) {
	conn := &chanConn{sent: make(chan Message, 4), recv: make(chan Message, 4)}
	conn.recv <- NewMessage(Response, []byte{0x90, 0x00})

	m, err := NewMachine("test", []State[*counter]{echo(1), finish()}, &counter{})
	require.NoError(t, err)
	first := StartMessage()
	res := m.Run(context.Background(), conn, &first)
	require.NoError(t, res.Err)
	assert.Equal(t, EndSuccess, res.Status)

	require.Len(t, conn.sent, 2)
	assert.Equal(t, Get, (<-conn.sent).Command)
	assert.Equal(t, Close, (<-conn.sent).Command)
}

func TestRunTimeout(t *testing.T) {
	conn := &chanConn{sent: make(chan Message, 4), recv: make(chan Message)}

	m, err := NewMachine("test", []State[*counter]{echo(1), finish()}, &counter{}, WithTimeout(20*time.Millisecond))
	require.NoError(t, err)
	first := StartMessage()
	res := m.Run(context.Background(), conn, &first)
	assert.Equal(t, EndFailure, res.Status)
	require.ErrorIs(t, res.Err, ErrTimeout)
}

func TestRunFailureStillEmits(t *testing.T) {
	failing := StateFunc[*counter](func(msg Message, c *counter) (Action, error) {
		return Fail(Close, []byte{0x6F, 0x00}), errors.New("bad proof")
	})
	conn := &chanConn{sent: make(chan Message, 4), recv: make(chan Message, 4)}
	m, err := NewMachine("test", []State[*counter]{failing}, &counter{})
	require.NoError(t, err)

	first := StartMessage()
	res := m.Run(context.Background(), conn, &first)
	assert.Equal(t, EndFailure, res.Status)
	require.EqualError(t, res.Err, "test: state 0: bad proof")
	require.Len(t, conn.sent, 1)
	assert.Equal(t, Close, (<-conn.sent).Command)
}
