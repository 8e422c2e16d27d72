package protocol

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bets-framework/ppets/internal/params"
	"github.com/rs/zerolog"
)

// Conn is the transport seen by a machine: one command and payload out, one message back.
type Conn interface {
	Send(ctx context.Context, cmd Command, payload []byte) error
	Receive(ctx context.Context) (Message, error)
}

// Result is the outcome of Machine.Run.
type Result struct {
	Status  Status
	Payload []byte
	Err     error
}

type options struct {
	log     zerolog.Logger
	timeout time.Duration
}

// Option configures a Machine.
type Option func(*options)

// WithLogger sets the logger of the machine. By default, nothing is logged.
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithTimeout sets the timeout used for actions which do not carry their own.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// Machine drives one protocol session: it holds the ordered states, the index of
// the current one and the session's context.
//
// The sequence is fixed at construction. A machine is used for a single session;
// once a terminal status is reached it cannot be advanced anymore.
type Machine[C any] struct {
	name    string
	states  []State[C]
	ctx     C
	timeout time.Duration

	Log zerolog.Logger

	mtx    sync.Mutex
	index  int
	done   bool
	status Status
}

// NewMachine creates a machine starting at the first of states.
func NewMachine[C any](name string, states []State[C], ctx C, opts ...Option) (*Machine[C], error) {
	if err := ValidateSequence(states); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	o := options{log: zerolog.Nop(), timeout: params.DefaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	m := &Machine[C]{
		name:    name,
		states:  states,
		ctx:     ctx,
		timeout: o.timeout,
	}
	m.Log = o.log.With().
		Str("protocol", name).
		Int("state", 0).
		Logger()
	return m, nil
}

// ValidateSequence checks that a sequence is not empty, and that every state
// declaring its successors only points inside the sequence.
func ValidateSequence[C any](states []State[C]) error {
	if len(states) == 0 {
		return errors.New("protocol: empty state sequence")
	}
	for i, s := range states {
		if s == nil {
			return fmt.Errorf("protocol: state %d is nil", i)
		}
		succ, ok := s.(Successors)
		if !ok {
			continue
		}
		for _, next := range succ.Successors() {
			if next < 0 || next >= len(states) {
				return fmt.Errorf("%w: state %d continues at %d of %d", ErrStateIndex, i, next, len(states))
			}
		}
	}
	return nil
}

// Name returns the protocol name given at construction.
func (m *Machine[C]) Name() string { return m.name }

// Len returns the number of states in the sequence.
func (m *Machine[C]) Len() int { return len(m.states) }

// Context returns the session's context.
func (m *Machine[C]) Context() C { return m.ctx }

// Index returns the index of the state handling the next message.
func (m *Machine[C]) Index() int {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return m.index
}

// Done returns true once a terminal status was reached, along with that status.
func (m *Machine[C]) Done() (bool, Status) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return m.done, m.status
}

// Advance hands msg to the current state and applies the resulting action.
//
// On success, the returned action is the one to transmit. On error, the session
// has ended with EndFailure; the returned action may still carry a command the
// failing state wants delivered to the peer.
func (m *Machine[C]) Advance(msg Message) (Action, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	if m.done {
		return Action{Status: m.status}, m.wrap(ErrSessionEnded)
	}

	m.Log.Debug().Stringer("msg", msg).Msg("got new message")
	action, err := m.states[m.index].Action(msg, m.ctx)
	if err != nil {
		if errors.Is(err, ErrUnhandledMessage) && msg.Is(Close) {
			err = ErrCancelled
		}
		if action.Status != EndFailure {
			action = Fail(None, nil)
		}
		return action, m.abort(err)
	}

	switch action.Status {
	case Continue:
		if action.Next < 0 || action.Next >= len(m.states) {
			return Fail(None, nil), m.abort(fmt.Errorf("%w: %d of %d", ErrStateIndex, action.Next, len(m.states)))
		}
		m.index = action.Next
		m.Log.UpdateContext(func(c zerolog.Context) zerolog.Context {
			return c.Int("state", m.index)
		})
		m.Log.Debug().Stringer("command", action.Command).Msg("state advanced")
	case EndSuccess, EndFailure:
		m.done = true
		m.status = action.Status
		m.Log.Info().Stringer("status", action.Status).Msg("session ended")
	default:
		return Fail(None, nil), m.abort(fmt.Errorf("protocol: invalid status %s", action.Status))
	}
	return action, nil
}

// Run executes the session over conn until a terminal status is reached.
//
// If first is nil, the machine starts by waiting for the peer; otherwise first is
// handed to the initial state (StartMessage for the initiating peer).
func (m *Machine[C]) Run(ctx context.Context, conn Conn, first *Message) Result {
	var (
		msg Message
		err error
	)
	if first != nil {
		msg = *first
	} else if msg, err = m.receive(ctx, conn, m.timeout); err != nil {
		return m.failed(err)
	}

	for {
		action, err := m.Advance(msg)
		if action.Command != None {
			if sendErr := conn.Send(ctx, action.Command, action.Payload); sendErr != nil && err == nil {
				return m.failed(fmt.Errorf("send %s: %w", action.Command, sendErr))
			}
		}
		if err != nil {
			m.Log.Error().Err(err).Msg("session failed")
			return Result{Status: EndFailure, Payload: action.Payload, Err: err}
		}
		if action.Status.Terminal() {
			return Result{Status: action.Status, Payload: action.Payload}
		}

		timeout := action.Timeout
		if timeout <= 0 {
			timeout = m.timeout
		}
		if msg, err = m.receive(ctx, conn, timeout); err != nil {
			return m.failed(err)
		}
	}
}

func (m *Machine[C]) receive(ctx context.Context, conn Conn, timeout time.Duration) (Message, error) {
	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	msg, err := conn.Receive(rctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return Message{}, ErrTimeout
		}
		return Message{}, fmt.Errorf("receive: %w", err)
	}
	return msg, nil
}

// failed ends the session after a transport error, and reports it.
func (m *Machine[C]) failed(err error) Result {
	m.mtx.Lock()
	err = m.abort(err)
	m.mtx.Unlock()
	m.Log.Error().Err(err).Msg("session failed")
	return Result{Status: EndFailure, Err: err}
}

// abort ends the session with a failure, and wraps err with the current state.
func (m *Machine[C]) abort(err error) error {
	if !m.done {
		m.done = true
		m.status = EndFailure
	}
	return m.wrap(err)
}

func (m *Machine[C]) wrap(err error) error {
	var protoErr *Error
	if errors.As(err, &protoErr) {
		return err
	}
	return &Error{Protocol: m.name, Index: m.index, Err: err}
}
