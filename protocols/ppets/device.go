package ppets

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/bets-framework/ppets/pkg/protocol"
	"github.com/bets-framework/ppets/pkg/transport"
	zkrep "github.com/bets-framework/ppets/pkg/zk/rep"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/sign/bls"
)

// ErrNoTicket is returned when the device is asked to show a ticket it was never issued.
var ErrNoTicket = errors.New("ppets: no ticket")

// deviceFail answers the reader with a failure status, and ends the device's session.
func deviceFail(err error) (protocol.Action, error) {
	return protocol.Fail(protocol.Response, failure()), err
}

func deviceCheckFail(what string) (protocol.Action, error) {
	return deviceFail(fmt.Errorf("%w: %s", ErrVerification, what))
}

// deviceOpen accepts the channel.
type deviceOpen struct{}

func (deviceOpen) Action(msg protocol.Message, c *Context) (protocol.Action, error) {
	if !msg.Is(protocol.Open) {
		return protocol.Action{}, protocol.ErrUnhandledMessage
	}
	c.setStage(StageInit)
	return protocol.Proceed(deviceSelectIndex, protocol.Response, ok(nil)), nil
}

func (deviceOpen) Successors() []int { return []int{deviceSelectIndex} }

// deviceSelect accepts the selection of the ticketing application.
type deviceSelect struct{}

func (deviceSelect) Action(msg protocol.Message, _ *Context) (protocol.Action, error) {
	if !msg.Is(protocol.Select) {
		return protocol.Action{}, protocol.ErrUnhandledMessage
	}
	if !bytes.Equal(msg.Data, AID) {
		return deviceFail(fmt.Errorf("ppets: unknown application %X", msg.Data))
	}
	return protocol.Proceed(deviceSetupIndex, protocol.Response, ok(nil)), nil
}

func (deviceSelect) Successors() []int { return []int{deviceSetupIndex} }

// deviceSetup installs the reader's snapshot, and keeps only the user's record.
type deviceSetup struct{}

func (deviceSetup) Action(msg protocol.Message, c *Context) (protocol.Action, error) {
	if !isPut(msg) {
		return protocol.Action{}, protocol.ErrUnhandledMessage
	}
	s, err := DecodeSnapshot(msg.Data)
	if err != nil {
		return deviceFail(err)
	}
	if err = c.Apply(s); err != nil {
		return deviceFail(err)
	}
	c.PruneLocalOnly()
	c.setStage(StageSetupExchange)
	return protocol.Proceed(deviceUserKeyIndex, protocol.Response, ok(nil)), nil
}

func (deviceSetup) Successors() []int { return []int{deviceUserKeyIndex} }

// deviceUserKey creates the user's key, and proves knowledge of its secret.
type deviceUserKey struct{}

func (deviceUserKey) Action(msg protocol.Message, c *Context) (protocol.Action, error) {
	if !isRequest(msg, protocol.Get) {
		return protocol.Action{}, protocol.ErrUnhandledMessage
	}
	if err := c.ActAs(User); err != nil {
		return deviceFail(err)
	}
	user, err := c.UserData()
	if err != nil {
		return deviceFail(err)
	}
	g1 := c.group.G1()
	user.KeyPair = c.newKeyPair(g1)

	proof, err := zkrep.NewProof(c.transcript("register"), g1, c.group.RandomStream(),
		user.Public, []kyber.Point{g1.Point().Base()}, []kyber.Scalar{c.group.Scalar(user.Secret)})
	if err != nil {
		return deviceFail(err)
	}
	data, err := marshal(userKeyMsg{
		Key:        marshalPoint(user.Public),
		Attributes: user.Attributes,
		Proof:      proof,
	})
	if err != nil {
		return deviceFail(err)
	}
	return protocol.Proceed(deviceCredentialIndex, protocol.Response, ok(data)), nil
}

func (deviceUserKey) Successors() []int { return []int{deviceCredentialIndex} }

// deviceCredential checks and stores the authority's credential.
type deviceCredential struct{}

func (deviceCredential) Action(msg protocol.Message, c *Context) (protocol.Action, error) {
	if !isPut(msg) {
		return protocol.Action{}, protocol.ErrUnhandledMessage
	}
	user, err := c.UserData()
	if err != nil {
		return deviceFail(err)
	}
	var m credentialMsg
	if err = decode(msg.Data, &m, "credential"); err != nil {
		return deviceFail(err)
	}
	credential, err := credentialMessage(marshalPoint(user.Public), user.Attributes)
	if err != nil {
		return deviceFail(err)
	}
	if !c.Check(bls.Verify(c.group.Suite(), c.keys.Authority, credential, m.Signature) == nil, "credential") {
		return deviceCheckFail("credential")
	}
	user.Credential = m.Signature
	c.setStage(StageRegistered)
	return protocol.Proceed(deviceRequestIndex, protocol.Response, ok(nil)), nil
}

func (deviceCredential) Successors() []int { return []int{deviceRequestIndex} }

// request commits to a fresh serial s and blinding d: C = s•G + d•H.
// With proofs, the user also proves knowledge of the opening and of its key.
func (c *Context) request(msg protocol.Message, proofs bool) (protocol.Action, error) {
	if !isRequest(msg, protocol.Get) {
		return protocol.Action{}, protocol.ErrUnhandledMessage
	}
	user, err := c.UserData()
	if err != nil {
		return deviceFail(err)
	}
	if user.Credential == nil {
		return deviceFail(errors.New("ppets: ticket request before registration"))
	}
	g1 := c.group.G1()
	G := g1.Point().Base()
	user.Serial = c.provider.RandomScalar(c.group.Order())
	user.Blinding = c.provider.RandomScalar(c.group.Order())
	s, d := c.group.Scalar(user.Serial), c.group.Scalar(user.Blinding)
	C := g1.Point().Add(g1.Point().Mul(s, G), g1.Point().Mul(d, c.keys.H))

	m := requestMsg{
		Key:        marshalPoint(user.Public),
		Attributes: user.Attributes,
		Credential: user.Credential,
		Commitment: marshalPoint(C),
	}
	if proofs {
		rand := c.group.RandomStream()
		m.Opening, err = zkrep.NewProof(c.transcript("issue opening", user.Public, C), g1, rand,
			C, []kyber.Point{G, c.keys.H}, []kyber.Scalar{s, d})
		if err != nil {
			return deviceFail(err)
		}
		m.KeyProof, err = zkrep.NewProof(c.transcript("issue key", user.Public, C), g1, rand,
			user.Public, []kyber.Point{G}, []kyber.Scalar{c.group.Scalar(user.Secret)})
		if err != nil {
			return deviceFail(err)
		}
	}
	data, err := marshal(m)
	if err != nil {
		return deviceFail(err)
	}
	return protocol.Proceed(deviceTicketIndex, protocol.Response, ok(data)), nil
}

// deviceRequest requests a ticket, with proofs.
type deviceRequest struct{}

func (deviceRequest) Action(msg protocol.Message, c *Context) (protocol.Action, error) {
	return c.request(msg, true)
}

func (deviceRequest) Successors() []int { return []int{deviceTicketIndex} }

// deviceRequestLite requests a ticket without proofs.
type deviceRequestLite struct{}

func (deviceRequestLite) Action(msg protocol.Message, c *Context) (protocol.Action, error) {
	return c.request(msg, false)
}

func (deviceRequestLite) Successors() []int { return []int{deviceTicketIndex} }

// deviceTicket checks the seller's signature, and that the ticket is the one requested.
type deviceTicket struct{}

func (deviceTicket) Action(msg protocol.Message, c *Context) (protocol.Action, error) {
	if !isPut(msg) {
		return protocol.Action{}, protocol.ErrUnhandledMessage
	}
	user, err := c.UserData()
	if err != nil {
		return deviceFail(err)
	}
	var m ticketMsg
	if err = decode(msg.Data, &m, "ticket"); err != nil {
		return deviceFail(err)
	}
	tm, err := ticketMessage(m.Ticket)
	if err != nil {
		return deviceFail(err)
	}
	if !c.Check(bls.Verify(c.group.Suite(), c.keys.Seller, tm, m.Signature) == nil, "ticket signature") {
		return deviceCheckFail("ticket signature")
	}

	g1 := c.group.G1()
	C := g1.Point().Add(
		g1.Point().Mul(c.group.Scalar(user.Serial), nil),
		g1.Point().Mul(c.group.Scalar(user.Blinding), c.keys.H))
	ours := bytes.Equal(m.Ticket.Commitment, marshalPoint(C)) &&
		bytes.Equal(m.Ticket.Key, marshalPoint(user.Public))
	if !c.Check(ours, "ticket content") {
		return deviceCheckFail("ticket content")
	}

	user.Ticket = &m.Ticket
	user.TicketSignature = m.Signature
	c.setStage(StageIssued)
	c.Log.Info().Uint64("serial", m.Ticket.Serial).Uint64("price", m.Ticket.Price).Msg("ticket received")
	return protocol.Proceed(deviceProveIndex, protocol.Response, ok(nil)), nil
}

func (deviceTicket) Successors() []int { return []int{deviceProveIndex} }

// prove shows the ticket, as many times as the reader asks, until the reader closes
// the channel.
func (c *Context) prove(msg protocol.Message, lite bool) (protocol.Action, error) {
	user, err := c.UserData()
	if err != nil {
		return deviceFail(err)
	}
	if msg.Is(protocol.Close) {
		return c.closed(msg, user)
	}
	if !isRequest(msg, protocol.Get) {
		return protocol.Action{}, protocol.ErrUnhandledMessage
	}
	if user.Ticket == nil {
		return deviceFail(ErrNoTicket)
	}
	c.setStage(StageValidating)

	g1 := c.group.G1()
	G := g1.Point().Base()
	s, d := c.group.Scalar(user.Serial), c.group.Scalar(user.Blinding)
	serial := marshalScalar(s)
	m := proofMsg{
		Ticket:    *user.Ticket,
		Signature: user.TicketSignature,
		Serial:    serial,
	}
	if lite {
		m.Blinding = marshalScalar(d)
	} else {
		C, err := unmarshalPoint(g1, user.Ticket.Commitment, "commitment")
		if err != nil {
			return deviceFail(err)
		}
		rand := c.group.RandomStream()
		// C - s•G = d•H
		blinded := g1.Point().Mul(d, c.keys.H)
		m.BlindingProof, err = zkrep.NewProof(c.transcript("validate blinding", C, serial), g1, rand,
			blinded, []kyber.Point{c.keys.H}, []kyber.Scalar{d})
		if err != nil {
			return deviceFail(err)
		}
		m.KeyProof, err = zkrep.NewProof(c.transcript("validate key", C, serial), g1, rand,
			user.Public, []kyber.Point{G}, []kyber.Scalar{c.group.Scalar(user.Secret)})
		if err != nil {
			return deviceFail(err)
		}
	}
	data, err := marshal(m)
	if err != nil {
		return deviceFail(err)
	}
	user.Shown++
	return protocol.Proceed(deviceProveIndex, protocol.Response, ok(data)), nil
}

// closed ends the session on the reader's CLOSE. A close carrying a failure status,
// or coming before every validation pass was shown, cancels the session.
func (c *Context) closed(msg protocol.Message, user *UserData) (protocol.Action, error) {
	if len(msg.Data) > 0 {
		_, sw, err := transport.SplitStatus(msg.Data)
		if err != nil {
			return protocol.Fail(protocol.None, nil), fmt.Errorf("%w: %v", protocol.ErrCancelled, err)
		}
		if sw != transport.StatusOK {
			c.setStage(StageVerificationFailed)
			return protocol.Fail(protocol.None, nil), fmt.Errorf("%w: reader closed with status %s", protocol.ErrCancelled, sw)
		}
	}
	if user.Shown < c.params.NumValidations {
		return protocol.Fail(protocol.None, nil), fmt.Errorf("%w: closed after %d of %d validations",
			protocol.ErrCancelled, user.Shown, c.params.NumValidations)
	}
	c.Log.Info().Msg("channel closed by reader")
	return protocol.Succeed(protocol.Response, ok(nil)), nil
}

// deviceProve shows the ticket with proofs of its blinding and of the user's key.
type deviceProve struct{}

func (deviceProve) Action(msg protocol.Message, c *Context) (protocol.Action, error) {
	return c.prove(msg, false)
}

func (deviceProve) Successors() []int { return []int{deviceProveIndex} }

// deviceProveLite shows the ticket with its opening.
type deviceProveLite struct{}

func (deviceProveLite) Action(msg protocol.Message, c *Context) (protocol.Action, error) {
	return c.prove(msg, true)
}

func (deviceProveLite) Successors() []int { return []int{deviceProveIndex} }
