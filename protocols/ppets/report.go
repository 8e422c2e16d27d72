package ppets

import (
	"fmt"

	"go.dedis.ch/kyber/v3/sign/bls"
)

// Outcome is the result of one validation pass.
type Outcome uint8

const (
	OutcomeValid Outcome = iota + 1
	OutcomeDoubleSpend
	OutcomeVerificationFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeValid:
		return "VALID"
	case OutcomeDoubleSpend:
		return "DOUBLE_SPEND_DETECTED"
	case OutcomeVerificationFailed:
		return "VERIFICATION_FAILED"
	default:
		return fmt.Sprintf("OUTCOME(%d)", uint8(o))
	}
}

// Report summarizes the validations of a session. The reader pushes it to its
// internal sink before closing the channel, and returns it as the session's result.
type Report struct {
	Variant       Variant   `cbor:"1,keyasint"`
	Serial        uint64    `cbor:"2,keyasint"`
	Outcomes      []Outcome `cbor:"3,keyasint"`
	SkippedChecks []string  `cbor:"4,keyasint,omitempty"`
	Price         uint64    `cbor:"5,keyasint"`
	Attributes    []string  `cbor:"6,keyasint,omitempty"`
	// Signature of the verifier over the other fields.
	Signature []byte `cbor:"7,keyasint,omitempty"`
}

// DoubleSpent returns true if one of the passes detected a double spend.
func (r *Report) DoubleSpent() bool {
	for _, o := range r.Outcomes {
		if o == OutcomeDoubleSpend {
			return true
		}
	}
	return false
}

// DecodeReport decodes a report sent by a reader.
func DecodeReport(data []byte) (*Report, error) {
	r := &Report{}
	if err := decode(data, r, "report"); err != nil {
		return nil, err
	}
	return r, nil
}

func reportMessage(r Report) ([]byte, error) {
	r.Signature = nil
	return signable("PPETS report", r)
}

// sealReport signs r as the verifier, and keeps its encoding as the session's report.
func (c *Context) sealReport(r Report, v *VerifierData) ([]byte, error) {
	msg, err := reportMessage(r)
	if err != nil {
		return nil, err
	}
	if r.Signature, err = bls.Sign(c.group.Suite(), c.group.Scalar(v.Secret), msg); err != nil {
		return nil, fmt.Errorf("ppets: sign report: %w", err)
	}
	data, err := marshal(r)
	if err != nil {
		return nil, err
	}
	c.report = data
	return data, nil
}

// VerifyReport checks the verifier's signature over r with the verifier's public key of c.
func (c *Context) VerifyReport(r *Report) error {
	if c.group == nil || c.keys.Verifier == nil {
		return fmt.Errorf("ppets: no verifier key before setup")
	}
	msg, err := reportMessage(*r)
	if err != nil {
		return err
	}
	return bls.Verify(c.group.Suite(), c.keys.Verifier, msg, r.Signature)
}
