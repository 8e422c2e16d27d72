package test

import (
	"context"

	"github.com/bets-framework/ppets/pkg/protocol"
	"github.com/bets-framework/ppets/pkg/transport"
	"github.com/bets-framework/ppets/pkg/transport/pipe"
)

// Rule is a hook applied to every frame before it is sent.
type Rule interface {
	// ModifyPayload returns the payload delivered in place of payload.
	// from is "reader" or "device".
	ModifyPayload(from string, cmd protocol.Command, payload []byte) []byte
}

// RuleFunc adapts a function to Rule.
type RuleFunc func(from string, cmd protocol.Command, payload []byte) []byte

// ModifyPayload implements Rule.
func (f RuleFunc) ModifyPayload(from string, cmd protocol.Command, payload []byte) []byte {
	return f(from, cmd, payload)
}

type ruleConn struct {
	transport.Conn
	name string
	rule Rule
}

func (c *ruleConn) Send(ctx context.Context, cmd protocol.Command, payload []byte) error {
	return c.Conn.Send(ctx, cmd, c.rule.ModifyPayload(c.name, cmd, payload))
}

// Network links a reader and a device in memory.
// The reader's end answers internal commands through Sink.
type Network struct {
	Reader transport.Conn
	Device transport.Conn
	Sink   *transport.Recorder
}

// NewNetwork returns a linked pair of connections. If rule is not nil, it is
// applied to the frames of both ends.
func NewNetwork(rule Rule) *Network {
	r, d := pipe.New("reader", "device")
	var reader, device transport.Conn = r, d
	if rule != nil {
		reader = &ruleConn{Conn: reader, name: "reader", rule: rule}
		device = &ruleConn{Conn: device, name: "device", rule: rule}
	}
	sink := &transport.Recorder{}
	return &Network{
		Reader: transport.WithInternal(reader, sink),
		Device: device,
		Sink:   sink,
	}
}
