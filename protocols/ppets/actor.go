package ppets

import (
	"errors"
	"fmt"

	"github.com/bets-framework/ppets/pkg/ledger"
	"github.com/cronokirby/saferith"
	"go.dedis.ch/kyber/v3"
)

// ErrWrongActor is returned when the data of a role is requested while another role is current,
// or when the local peer does not play the role.
var ErrWrongActor = errors.New("ppets: wrong actor")

// Actor is a role of the protocol.
type Actor uint8

const (
	CentralAuthority Actor = iota + 1
	Seller
	Verifier
	User
)

func (a Actor) String() string {
	switch a {
	case CentralAuthority:
		return "CENTRAL_AUTHORITY"
	case Seller:
		return "SELLER"
	case Verifier:
		return "VERIFIER"
	case User:
		return "USER"
	default:
		return fmt.Sprintf("ACTOR(%d)", uint8(a))
	}
}

var (
	readerActors = []Actor{CentralAuthority, Seller, Verifier}
	deviceActors = []Actor{User}
)

// ActorData holds what one role knows during a session.
// The implementations are *AuthorityData, *SellerData, *VerifierData and *UserData.
type ActorData interface {
	Actor() Actor
	actorData()
}

// KeyPair is the long term key of a role for one session.
type KeyPair struct {
	// Secret x ∈ [0, p)
	Secret *saferith.Nat
	// Public = x•B, with B the base of G2 for the reader's roles and of G1 for the user.
	Public kyber.Point
}

// AuthorityData is the data of the central authority, which registers users.
type AuthorityData struct {
	KeyPair
	// Registered holds the encoded keys of the users given a credential.
	Registered [][]byte
}

// SellerData is the data of the seller, which issues tickets.
type SellerData struct {
	KeyPair
	Policy Policy
	// Issued counts the tickets issued, and numbers them.
	Issued uint64
}

// VerifierData is the data of the verifier, which validates tickets.
type VerifierData struct {
	KeyPair
	Ledger   ledger.Store
	Outcomes []Outcome
}

// UserData is the data of the user, the holder of a ticket.
type UserData struct {
	KeyPair
	Attributes []string
	// Credential is the authority's signature over the user's key and attributes.
	Credential []byte
	// Serial s and Blinding d open the ticket commitment C = s•G + d•H.
	Serial   *saferith.Nat
	Blinding *saferith.Nat
	Ticket   *Ticket
	// TicketSignature is the seller's signature over Ticket.
	TicketSignature []byte
	// Shown counts the proofs sent to the verifier.
	Shown int
}

func (*AuthorityData) Actor() Actor { return CentralAuthority }
func (*SellerData) Actor() Actor    { return Seller }
func (*VerifierData) Actor() Actor  { return Verifier }
func (*UserData) Actor() Actor      { return User }

func (*AuthorityData) actorData() {}
func (*SellerData) actorData()    {}
func (*VerifierData) actorData()  {}
func (*UserData) actorData()      {}
