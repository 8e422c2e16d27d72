package transport

import (
	"context"
	"sync"

	"github.com/bets-framework/ppets/pkg/protocol"
)

// InternalSink consumes the commands a peer addresses to its own end of the
// connection (GET_INTERNAL, PUT_INTERNAL). The returned data is the response,
// without status word.
type InternalSink interface {
	Internal(ctx context.Context, cmd protocol.Command, payload []byte) ([]byte, error)
}

// SinkFunc adapts a function to InternalSink.
type SinkFunc func(ctx context.Context, cmd protocol.Command, payload []byte) ([]byte, error)

// Internal implements InternalSink.
func (f SinkFunc) Internal(ctx context.Context, cmd protocol.Command, payload []byte) ([]byte, error) {
	return f(ctx, cmd, payload)
}

// Recorder is an InternalSink keeping every PUT_INTERNAL payload.
// GET_INTERNAL is answered with the last recorded payload.
type Recorder struct {
	mtx  sync.Mutex
	puts [][]byte
}

// Internal implements InternalSink.
func (r *Recorder) Internal(_ context.Context, cmd protocol.Command, payload []byte) ([]byte, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	if cmd == protocol.PutInternal {
		r.puts = append(r.puts, append([]byte(nil), payload...))
		return nil, nil
	}
	if len(r.puts) == 0 {
		return nil, nil
	}
	return r.puts[len(r.puts)-1], nil
}

// Records returns a copy of the recorded payloads, oldest first.
func (r *Recorder) Records() [][]byte {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return append([][]byte(nil), r.puts...)
}

type internalConn struct {
	Conn
	sink InternalSink

	mtx     sync.Mutex
	pending []protocol.Message
}

// WithInternal returns a connection answering internal commands through sink,
// and forwarding the others to conn.
func WithInternal(conn Conn, sink InternalSink) Conn {
	return &internalConn{Conn: conn, sink: sink}
}

func (c *internalConn) Send(ctx context.Context, cmd protocol.Command, payload []byte) error {
	if !cmd.Internal() {
		return c.Conn.Send(ctx, cmd, payload)
	}
	reply, err := c.sink.Internal(ctx, cmd, payload)
	sw := StatusOK
	if err != nil {
		reply, sw = nil, StatusFailure
	}
	c.mtx.Lock()
	c.pending = append(c.pending, protocol.NewMessage(protocol.Response, AppendStatus(reply, sw)))
	c.mtx.Unlock()
	return nil
}

func (c *internalConn) Receive(ctx context.Context) (protocol.Message, error) {
	c.mtx.Lock()
	if len(c.pending) > 0 {
		msg := c.pending[0]
		c.pending = c.pending[1:]
		c.mtx.Unlock()
		return msg, nil
	}
	c.mtx.Unlock()
	return c.Conn.Receive(ctx)
}
