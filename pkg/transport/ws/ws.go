// Package ws carries transport frames over a websocket. The reader listens,
// devices dial in; each binary message is one cbor Frame.
package ws

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bets-framework/ppets/pkg/protocol"
	"github.com/bets-framework/ppets/pkg/transport"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const writeWait = 5 * time.Second

// Conn is a transport connection over a websocket.
type Conn struct {
	ws *websocket.Conn

	writeMtx sync.Mutex
	frames   chan transport.Frame

	once   sync.Once
	closed chan struct{}
}

func newConn(c *websocket.Conn) *Conn {
	conn := &Conn{
		ws:     c,
		frames: make(chan transport.Frame, 1),
		closed: make(chan struct{}),
	}
	go conn.readLoop()
	return conn
}

func (c *Conn) readLoop() {
	defer c.Close()
	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		if kind != websocket.BinaryMessage {
			continue
		}
		f, err := transport.UnmarshalFrame(data)
		if err != nil {
			return
		}
		select {
		case c.frames <- f:
		case <-c.closed:
			return
		}
	}
}

// Send writes cmd and payload as one frame.
func (c *Conn) Send(ctx context.Context, cmd protocol.Command, payload []byte) error {
	data, err := transport.Frame{Command: cmd, Payload: payload}.Marshal()
	if err != nil {
		return fmt.Errorf("ws: encode frame: %w", err)
	}
	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	c.writeMtx.Lock()
	defer c.writeMtx.Unlock()
	select {
	case <-c.closed:
		return transport.ErrClosed
	default:
	}
	if err = c.ws.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.BinaryMessage, data)
}

// Receive waits for the next frame of the peer.
func (c *Conn) Receive(ctx context.Context) (protocol.Message, error) {
	select {
	case f := <-c.frames:
		return f.Message(), nil
	case <-c.closed:
		select {
		case f := <-c.frames:
			return f.Message(), nil
		default:
		}
		return protocol.Message{}, transport.ErrClosed
	case <-ctx.Done():
		return protocol.Message{}, ctx.Err()
	}
}

// Close sends a close message to the peer and releases the socket.
func (c *Conn) Close() error {
	var err error
	c.once.Do(func() {
		close(c.closed)
		c.writeMtx.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		c.writeMtx.Unlock()
		err = c.ws.Close()
	})
	return err
}

var _ transport.Conn = (*Conn)(nil)

// Dial connects to a reader listening at url.
func Dial(ctx context.Context, url string) (*Conn, error) {
	c, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("ws: dial %s: %w", url, err)
	}
	return newConn(c), nil
}

// SessionFunc runs one session over an accepted connection.
type SessionFunc func(ctx context.Context, conn transport.Conn)

// Handler upgrades every request to a websocket, and runs session on it.
// The connection is closed when session returns.
type Handler struct {
	Session SessionFunc
	Log     zerolog.Logger

	upgrader websocket.Upgrader
}

// NewHandler returns a Handler running session for every device.
func NewHandler(session SessionFunc, log zerolog.Logger) *Handler {
	return &Handler{
		Session: session,
		Log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}
	conn := newConn(c)
	defer conn.Close()
	h.Log.Debug().Str("remote", r.RemoteAddr).Msg("device connected")
	h.Session(r.Context(), conn)
}
