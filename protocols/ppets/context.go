package ppets

import (
	"fmt"

	"github.com/bets-framework/ppets/pkg/bilinear"
	"github.com/bets-framework/ppets/pkg/ledger"
	"github.com/bets-framework/ppets/pkg/pool"
	"github.com/rs/zerolog"
	"go.dedis.ch/kyber/v3"
)

// Stage is the progress of a session.
type Stage uint8

const (
	StageInit Stage = iota
	StageSetupExchange
	StageRegistered
	StageIssued
	StageValidating
	StageValid
	StageDoubleSpend
	StageVerificationFailed
)

var stageNames = [...]string{
	StageInit:               "INIT",
	StageSetupExchange:      "SETUP_EXCHANGE",
	StageRegistered:         "REGISTERED",
	StageIssued:             "ISSUED",
	StageValidating:         "VALIDATING",
	StageValid:              "VALID",
	StageDoubleSpend:        "DOUBLE_SPEND_DETECTED",
	StageVerificationFailed: "VERIFICATION_FAILED",
}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("STAGE(%d)", uint8(s))
}

// PublicKeys are the public values every peer holds after setup.
type PublicKeys struct {
	Authority kyber.Point
	Seller    kyber.Point
	Verifier  kyber.Point
	// H is the second commitment generator, in G1.
	H kyber.Point
}

// Context is the state shared by the states of one session.
//
// It is owned by a single machine, and is not safe for concurrent use.
type Context struct {
	Log zerolog.Logger

	provider bilinear.Provider
	pool     *pool.Pool
	params   Parameters
	group    *bilinear.Group
	keys     PublicKeys
	variant  Variant
	stage    Stage

	// local is the set of roles this peer plays
	local   map[Actor]bool
	current Actor
	data    map[Actor]ActorData

	ledger     ledger.Store
	policy     Policy
	attributes []string

	skipped []string
	report  []byte
}

// ContextOption configures a Context.
type ContextOption func(*Context)

// WithLogger sets the logger of the context.
func WithLogger(log zerolog.Logger) ContextOption {
	return func(c *Context) { c.Log = log }
}

// WithPool spreads the key generation of setup over pl.
func WithPool(pl *pool.Pool) ContextOption {
	return func(c *Context) { c.pool = pl }
}

// WithParameters sets the initial parameters of the context.
func WithParameters(p Parameters) ContextOption {
	return func(c *Context) { c.params = p }
}

// WithLedger sets the store the verifier records consumed tickets in.
// Readers sharing a store detect tickets spent in another session.
func WithLedger(store ledger.Store) ContextOption {
	return func(c *Context) { c.ledger = store }
}

// WithPolicy sets the pricing and attribute policy of the seller and verifier.
func WithPolicy(p Policy) ContextOption {
	return func(c *Context) { c.policy = p }
}

// WithAttributes sets the attributes disclosed by the user.
func WithAttributes(attributes ...string) ContextOption {
	return func(c *Context) { c.attributes = append([]string(nil), attributes...) }
}

func newContext(provider bilinear.Provider, local []Actor, opts []ContextOption) *Context {
	c := &Context{
		Log:      zerolog.Nop(),
		provider: provider,
		params:   DefaultParameters(),
		policy:   DefaultPolicy(),
		local:    make(map[Actor]bool, len(local)),
		data:     make(map[Actor]ActorData, len(local)),
	}
	for _, opt := range opts {
		opt(c)
	}
	for _, a := range local {
		c.local[a] = true
	}
	c.resetData()
	return c
}

// NewReaderContext returns the context of a reader, which plays the central authority,
// the seller and the verifier. Without a ledger, consumed tickets are kept in memory.
func NewReaderContext(provider bilinear.Provider, opts ...ContextOption) *Context {
	c := newContext(provider, readerActors, opts)
	if c.ledger == nil {
		c.ledger = ledger.NewMemory()
		c.resetData()
	}
	c.current = CentralAuthority
	return c
}

// NewDeviceContext returns the context of a device, which plays the user.
// The group and public keys are received from the reader during setup.
func NewDeviceContext(provider bilinear.Provider, opts ...ContextOption) *Context {
	c := newContext(provider, deviceActors, opts)
	c.current = User
	return c
}

// resetData replaces the record of every local role with a fresh one.
func (c *Context) resetData() {
	c.data = make(map[Actor]ActorData, len(c.local))
	for a := range c.local {
		switch a {
		case CentralAuthority:
			c.data[a] = &AuthorityData{}
		case Seller:
			c.data[a] = &SellerData{Policy: c.policy}
		case Verifier:
			c.data[a] = &VerifierData{Ledger: c.ledger}
		case User:
			c.data[a] = &UserData{Attributes: append([]string(nil), c.attributes...)}
		}
	}
}

// ActAs makes actor the current role. The data of the other roles is left untouched.
func (c *Context) ActAs(actor Actor) error {
	if !c.local[actor] {
		return fmt.Errorf("%w: %s is not played by this peer", ErrWrongActor, actor)
	}
	c.current = actor
	return nil
}

// Current returns the current role.
func (c *Context) Current() Actor { return c.current }

// Plays returns true if the local peer plays actor.
func (c *Context) Plays(actor Actor) bool { return c.local[actor] }

func (c *Context) dataFor(actor Actor) (ActorData, error) {
	if c.current != actor {
		return nil, fmt.Errorf("%w: current actor is %s, not %s", ErrWrongActor, c.current, actor)
	}
	d, ok := c.data[actor]
	if !ok {
		return nil, fmt.Errorf("%w: no data for %s", ErrWrongActor, actor)
	}
	return d, nil
}

// AuthorityData returns the data of the central authority, if it is the current role.
func (c *Context) AuthorityData() (*AuthorityData, error) {
	d, err := c.dataFor(CentralAuthority)
	if err != nil {
		return nil, err
	}
	return d.(*AuthorityData), nil
}

// SellerData returns the data of the seller, if it is the current role.
func (c *Context) SellerData() (*SellerData, error) {
	d, err := c.dataFor(Seller)
	if err != nil {
		return nil, err
	}
	return d.(*SellerData), nil
}

// VerifierData returns the data of the verifier, if it is the current role.
func (c *Context) VerifierData() (*VerifierData, error) {
	d, err := c.dataFor(Verifier)
	if err != nil {
		return nil, err
	}
	return d.(*VerifierData), nil
}

// UserData returns the data of the user, if it is the current role.
func (c *Context) UserData() (*UserData, error) {
	d, err := c.dataFor(User)
	if err != nil {
		return nil, err
	}
	return d.(*UserData), nil
}

// Parameters returns the current configuration.
func (c *Context) Parameters() Parameters { return c.params }

// Group returns the bilinear group, or nil before setup.
func (c *Context) Group() *bilinear.Group { return c.group }

// PublicKeys returns the public keys known after setup.
func (c *Context) PublicKeys() PublicKeys { return c.keys }

// Variant returns the variant of the protocol run with this context.
func (c *Context) Variant() Variant { return c.variant }

// Stage returns how far the session went.
func (c *Context) Stage() Stage { return c.stage }

func (c *Context) setStage(s Stage) {
	c.stage = s
	c.Log.Debug().Stringer("stage", s).Msg("session stage")
}

// Check is the single place where a verification result is decided.
//
// A failed check is fatal, unless verification failures are ignored: then it is
// logged, counted as skipped, and the session goes on as if it had passed.
func (c *Context) Check(ok bool, what string) bool {
	if ok {
		return true
	}
	if !c.params.SkipVerification {
		c.Log.Error().Str("check", what).Stringer("actor", c.current).Msg("verification failed")
		return false
	}
	c.Log.Warn().Str("check", what).Stringer("actor", c.current).Msg("verification failed, skipped")
	c.skipped = append(c.skipped, what)
	return true
}

// SkippedChecks returns the checks that failed but were ignored.
func (c *Context) SkippedChecks() []string {
	return append([]string(nil), c.skipped...)
}

// ReportBytes returns the encoded report of the last validation, or nil.
func (c *Context) ReportBytes() []byte { return c.report }
