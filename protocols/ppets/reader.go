package ppets

import (
	"context"
	"errors"
	"fmt"

	"github.com/bets-framework/ppets/internal/params"
	"github.com/bets-framework/ppets/pkg/protocol"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/sign/bls"
)

// ErrVerification is returned when a check fails and verification failures are not ignored.
var ErrVerification = errors.New("ppets: verification failed")

// readerAbort closes the channel with a failure status, which the device tells apart
// from the plain CLOSE ending a session.
func readerAbort() protocol.Action {
	return protocol.Fail(protocol.Close, failure())
}

// readerFail ends the reader's session after a failed check, closing the channel.
func (c *Context) readerFail(what string) (protocol.Action, error) {
	c.setStage(StageVerificationFailed)
	return readerAbort(), fmt.Errorf("%w: %s", ErrVerification, what)
}

// readerOpen opens the channel to the device.
type readerOpen struct{}

func (readerOpen) Action(msg protocol.Message, c *Context) (protocol.Action, error) {
	if !msg.Is(protocol.Start) {
		return protocol.Action{}, protocol.ErrUnhandledMessage
	}
	c.setStage(StageInit)
	return protocol.Proceed(readerSelectIndex, protocol.Open, nil), nil
}

func (readerOpen) Successors() []int { return []int{readerSelectIndex} }

// readerSelect selects the ticketing application on the device.
type readerSelect struct{}

func (readerSelect) Action(msg protocol.Message, _ *Context) (protocol.Action, error) {
	if _, err := response(msg); err != nil {
		return protocol.Action{}, err
	}
	return protocol.Proceed(readerPutSetupIndex, protocol.Select, AID), nil
}

func (readerSelect) Successors() []int { return []int{readerPutSetupIndex} }

// readerPutSetup creates the group and the keys of the reader's roles, and sends
// their public part to the device.
type readerPutSetup struct{}

func (readerPutSetup) Action(msg protocol.Message, c *Context) (protocol.Action, error) {
	if _, err := response(msg); err != nil {
		return protocol.Action{}, err
	}
	if err := c.setup(); err != nil {
		return readerAbort(), err
	}
	snapshot, err := c.Snapshot()
	if err != nil {
		return readerAbort(), err
	}
	c.setStage(StageSetupExchange)
	return protocol.Proceed(readerGetUserKeyIndex, protocol.Put, snapshot), nil
}

func (readerPutSetup) Successors() []int { return []int{readerGetUserKeyIndex} }

// readerGetUserKey asks the device for the user's key.
type readerGetUserKey struct{}

func (readerGetUserKey) Action(msg protocol.Message, _ *Context) (protocol.Action, error) {
	if _, err := response(msg); err != nil {
		return protocol.Action{}, err
	}
	return protocol.Proceed(readerRegisterIndex, protocol.Get, nil), nil
}

func (readerGetUserKey) Successors() []int { return []int{readerRegisterIndex} }

// readerRegister checks that the user knows the secret of its key, and gives it a
// credential: the authority's signature over the key and the user's attributes.
type readerRegister struct{}

func (readerRegister) Action(msg protocol.Message, c *Context) (protocol.Action, error) {
	payload, err := response(msg)
	if err != nil {
		return protocol.Action{}, err
	}
	if err = c.ActAs(CentralAuthority); err != nil {
		return readerAbort(), err
	}
	authority, err := c.AuthorityData()
	if err != nil {
		return readerAbort(), err
	}
	m, err := c.decodeUserKey(payload)
	if err != nil {
		return readerAbort(), err
	}
	g1 := c.group.G1()
	Y, err := unmarshalPoint(g1, m.Key, "user key")
	if err != nil {
		return readerAbort(), err
	}

	// Y = x•G
	ok := m.Proof.Verify(c.transcript("register"), g1, Y, []kyber.Point{g1.Point().Base()})
	if !c.Check(ok, "user key proof") {
		return c.readerFail("user key proof")
	}

	credential, err := credentialMessage(m.Key, m.Attributes)
	if err != nil {
		return readerAbort(), err
	}
	sig, err := bls.Sign(c.group.Suite(), c.group.Scalar(authority.Secret), credential)
	if err != nil {
		return readerAbort(), fmt.Errorf("ppets: sign credential: %w", err)
	}
	authority.Registered = append(authority.Registered, m.Key)

	data, err := marshal(credentialMsg{Signature: sig})
	if err != nil {
		return readerAbort(), err
	}
	c.setStage(StageRegistered)
	c.Log.Info().Strs("attributes", m.Attributes).Msg("user registered")
	return protocol.Proceed(readerGetRequestIndex, protocol.Put, data), nil
}

func (readerRegister) Successors() []int { return []int{readerGetRequestIndex} }

// readerGetRequest asks the device for a ticket request.
type readerGetRequest struct{}

func (readerGetRequest) Action(msg protocol.Message, _ *Context) (protocol.Action, error) {
	if _, err := response(msg); err != nil {
		return protocol.Action{}, err
	}
	return protocol.Proceed(readerIssueIndex, protocol.Get, nil), nil
}

func (readerGetRequest) Successors() []int { return []int{readerIssueIndex} }

type issueMode struct {
	// proofs are checked in the full variants
	proofs bool
	// abc requires the policy's attributes instead of pricing from them
	abc bool
}

// issue checks a ticket request as the seller, and signs the ticket.
func (c *Context) issue(msg protocol.Message, mode issueMode) (protocol.Action, error) {
	payload, err := response(msg)
	if err != nil {
		return protocol.Action{}, err
	}
	if err = c.ActAs(Seller); err != nil {
		return readerAbort(), err
	}
	seller, err := c.SellerData()
	if err != nil {
		return readerAbort(), err
	}
	m, err := c.decodeRequest(payload)
	if err != nil {
		return readerAbort(), err
	}
	g1 := c.group.G1()
	Y, err := unmarshalPoint(g1, m.Key, "user key")
	if err != nil {
		return readerAbort(), err
	}
	C, err := unmarshalPoint(g1, m.Commitment, "commitment")
	if err != nil {
		return readerAbort(), err
	}

	credential, err := credentialMessage(m.Key, m.Attributes)
	if err != nil {
		return readerAbort(), err
	}
	if !c.Check(bls.Verify(c.group.Suite(), c.keys.Authority, credential, m.Credential) == nil, "credential") {
		return c.readerFail("credential")
	}

	if mode.proofs {
		G := g1.Point().Base()
		// C = s•G + d•H
		ok := m.Opening.Verify(c.transcript("issue opening", Y, C), g1, C, []kyber.Point{G, c.keys.H})
		if !c.Check(ok, "commitment opening proof") {
			return c.readerFail("commitment opening proof")
		}
		// Y = x•G
		ok = m.KeyProof.Verify(c.transcript("issue key", Y, C), g1, Y, []kyber.Point{G})
		if !c.Check(ok, "user key proof") {
			return c.readerFail("user key proof")
		}
	}

	ticket := Ticket{
		Serial:     seller.Issued + 1,
		Variant:    c.variant,
		Key:        m.Key,
		Commitment: m.Commitment,
		Attributes: dedup(m.Attributes),
	}
	if mode.abc {
		if !c.Check(seller.Policy.Satisfied(ticket.Attributes), "required attributes") {
			return c.readerFail("required attributes")
		}
		ticket.Price = seller.Policy.Price
	} else {
		ticket.Price = seller.Policy.PriceFor(ticket.Attributes)
	}

	tm, err := ticketMessage(ticket)
	if err != nil {
		return readerAbort(), err
	}
	sig, err := bls.Sign(c.group.Suite(), c.group.Scalar(seller.Secret), tm)
	if err != nil {
		return readerAbort(), fmt.Errorf("ppets: sign ticket: %w", err)
	}
	seller.Issued++

	data, err := marshal(ticketMsg{Ticket: ticket, Signature: sig})
	if err != nil {
		return readerAbort(), err
	}
	c.setStage(StageIssued)
	c.Log.Info().Uint64("serial", ticket.Serial).Uint64("price", ticket.Price).Msg("ticket issued")
	return protocol.Proceed(readerGetProofIndex, protocol.Put, data), nil
}

// readerIssue issues a ticket priced from the user's attributes, after checking the
// proofs of the request.
type readerIssue struct{}

func (readerIssue) Action(msg protocol.Message, c *Context) (protocol.Action, error) {
	return c.issue(msg, issueMode{proofs: true})
}

func (readerIssue) Successors() []int { return []int{readerGetProofIndex} }

// readerIssueLite is readerIssue without proofs: only the credential is checked.
type readerIssueLite struct{}

func (readerIssueLite) Action(msg protocol.Message, c *Context) (protocol.Action, error) {
	return c.issue(msg, issueMode{})
}

func (readerIssueLite) Successors() []int { return []int{readerGetProofIndex} }

// readerIssueABC issues a ticket bound to the user's attributes, which must include
// those required by the policy.
type readerIssueABC struct{}

func (readerIssueABC) Action(msg protocol.Message, c *Context) (protocol.Action, error) {
	return c.issue(msg, issueMode{proofs: true, abc: true})
}

func (readerIssueABC) Successors() []int { return []int{readerGetProofIndex} }

// readerGetProof asks the device to show its ticket.
type readerGetProof struct{}

func (readerGetProof) Action(msg protocol.Message, _ *Context) (protocol.Action, error) {
	if _, err := response(msg); err != nil {
		return protocol.Action{}, err
	}
	return protocol.Proceed(readerValidateIndex, protocol.Get, nil), nil
}

func (readerGetProof) Successors() []int { return []int{readerValidateIndex} }

type validateMode struct {
	// lite expects the blinding to be revealed instead of proven
	lite bool
	abc  bool
}

// rejectTicket records a failed validation pass and ends the session.
func (c *Context) rejectTicket(v *VerifierData, what string) (protocol.Action, error) {
	v.Outcomes = append(v.Outcomes, OutcomeVerificationFailed)
	return c.readerFail(what)
}

// validate checks a shown ticket as the verifier, and records its serial in the ledger.
//
// The ticket is validated NumValidations times; the first pass consumes the ticket,
// so that the following ones are double spends.
func (c *Context) validate(msg protocol.Message, mode validateMode) (protocol.Action, error) {
	payload, err := response(msg)
	if err != nil {
		return protocol.Action{}, err
	}
	if err = c.ActAs(Verifier); err != nil {
		return readerAbort(), err
	}
	v, err := c.VerifierData()
	if err != nil {
		return readerAbort(), err
	}
	c.setStage(StageValidating)
	m, err := c.decodeProof(payload)
	if err != nil {
		return readerAbort(), err
	}
	t := m.Ticket

	if !c.Check(t.Variant == c.variant, "ticket variant") {
		return c.rejectTicket(v, "ticket variant")
	}
	tm, err := ticketMessage(t)
	if err != nil {
		return readerAbort(), err
	}
	if !c.Check(bls.Verify(c.group.Suite(), c.keys.Seller, tm, m.Signature) == nil, "ticket signature") {
		return c.rejectTicket(v, "ticket signature")
	}

	g1 := c.group.G1()
	G := g1.Point().Base()
	C, err := unmarshalPoint(g1, t.Commitment, "commitment")
	if err != nil {
		return readerAbort(), err
	}
	s, err := c.unmarshalScalar(m.Serial, "serial")
	if err != nil {
		return readerAbort(), err
	}
	serial := marshalScalar(s)

	if mode.lite {
		d, err := c.unmarshalScalar(m.Blinding, "blinding")
		if err != nil {
			return readerAbort(), err
		}
		// C = s•G + d•H
		opened := g1.Point().Add(g1.Point().Mul(s, G), g1.Point().Mul(d, c.keys.H))
		if !c.Check(opened.Equal(C), "ticket opening") {
			return c.rejectTicket(v, "ticket opening")
		}
	} else {
		Y, err := unmarshalPoint(g1, t.Key, "user key")
		if err != nil {
			return readerAbort(), err
		}
		// C - s•G = d•H
		blinded := g1.Point().Sub(C, g1.Point().Mul(s, G))
		ok := m.BlindingProof.Verify(c.transcript("validate blinding", C, serial), g1, blinded, []kyber.Point{c.keys.H})
		if !c.Check(ok, "blinding proof") {
			return c.rejectTicket(v, "blinding proof")
		}
		// Y = x•G
		ok = m.KeyProof.Verify(c.transcript("validate key", C, serial), g1, Y, []kyber.Point{G})
		if !c.Check(ok, "user key proof") {
			return c.rejectTicket(v, "user key proof")
		}
	}

	if mode.abc {
		if !c.Check(c.policy.Satisfied(t.Attributes), "required attributes") {
			return c.rejectTicket(v, "required attributes")
		}
	} else if !c.Check(t.Price == c.policy.PriceFor(t.Attributes), "ticket price") {
		return c.rejectTicket(v, "ticket price")
	}

	ctx, cancel := context.WithTimeout(context.Background(), params.DefaultTimeout)
	defer cancel()
	spent, err := v.Ledger.Consume(ctx, Tag(serial))
	if err != nil {
		return readerAbort(), fmt.Errorf("ppets: ledger: %w", err)
	}
	outcome := OutcomeValid
	if spent {
		outcome = OutcomeDoubleSpend
	}
	v.Outcomes = append(v.Outcomes, outcome)
	c.Log.Info().
		Int("pass", len(v.Outcomes)).
		Uint64("serial", t.Serial).
		Stringer("outcome", outcome).
		Msg("ticket validated")

	if len(v.Outcomes) < c.params.NumValidations {
		return protocol.Proceed(readerValidateIndex, protocol.Get, nil), nil
	}

	report := Report{
		Variant:       c.variant,
		Serial:        t.Serial,
		Outcomes:      append([]Outcome(nil), v.Outcomes...),
		SkippedChecks: c.SkippedChecks(),
		Price:         t.Price,
		Attributes:    t.Attributes,
	}
	data, err := c.sealReport(report, v)
	if err != nil {
		return readerAbort(), err
	}
	if report.DoubleSpent() {
		c.setStage(StageDoubleSpend)
	} else {
		c.setStage(StageValid)
	}
	return protocol.Proceed(readerCloseIndex, protocol.PutInternal, data), nil
}

// readerValidate validates a ticket shown with proofs of its blinding and key.
type readerValidate struct{}

func (readerValidate) Action(msg protocol.Message, c *Context) (protocol.Action, error) {
	return c.validate(msg, validateMode{})
}

func (readerValidate) Successors() []int { return []int{readerValidateIndex, readerCloseIndex} }

// readerValidateLite validates a ticket shown with its opening.
type readerValidateLite struct{}

func (readerValidateLite) Action(msg protocol.Message, c *Context) (protocol.Action, error) {
	return c.validate(msg, validateMode{lite: true})
}

func (readerValidateLite) Successors() []int { return []int{readerValidateIndex, readerCloseIndex} }

// readerValidateABC validates a ticket like readerValidate, and checks its attributes
// against the policy.
type readerValidateABC struct{}

func (readerValidateABC) Action(msg protocol.Message, c *Context) (protocol.Action, error) {
	return c.validate(msg, validateMode{abc: true})
}

func (readerValidateABC) Successors() []int { return []int{readerValidateIndex, readerCloseIndex} }

// readerClose closes the channel once the internal sink took the report.
type readerClose struct{}

func (readerClose) Action(msg protocol.Message, _ *Context) (protocol.Action, error) {
	if _, err := response(msg); err != nil {
		return protocol.Action{}, err
	}
	return protocol.Proceed(readerDoneIndex, protocol.Close, nil), nil
}

func (readerClose) Successors() []int { return []int{readerDoneIndex} }

// readerDone ends the session when the device acknowledged the close.
type readerDone struct{}

func (readerDone) Action(msg protocol.Message, c *Context) (protocol.Action, error) {
	if _, err := response(msg); err != nil {
		return protocol.Action{}, err
	}
	return protocol.Succeed(protocol.None, c.report), nil
}
