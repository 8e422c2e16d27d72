package bilinear

import (
	"fmt"

	"github.com/bets-framework/ppets/internal/params"
)

// Family identifies a pairing-friendly group construction.
type Family string

const (
	// TypeA is a symmetric pairing over a supersingular curve of prime order r.
	TypeA Family = "A"
	// TypeA1 is the composite order variant of TypeA, whose order is a product of primes.
	TypeA1 Family = "A1"
	// TypeE is built from the complex multiplication method, with prime order r.
	TypeE Family = "E"
)

// UnsupportedParameterError is returned for a configuration value we do not know how to handle.
type UnsupportedParameterError struct {
	Name  string
	Value string
}

func (e *UnsupportedParameterError) Error() string {
	return fmt.Sprintf("bilinear: unsupported %s: %q", e.Name, e.Value)
}

// ParseFamily maps "A", "A1" or "E" to a Family.
func ParseFamily(s string) (Family, error) {
	switch f := Family(s); f {
	case TypeA, TypeA1, TypeE:
		return f, nil
	default:
		return "", &UnsupportedParameterError{Name: "pairing family", Value: s}
	}
}

// Params describes the group to instantiate.
//
// The meaning of the two strength slots depends on the family:
// for TypeA and TypeE they are the bit sizes of the group order r and of the base field q,
// for TypeA1 they are the number of primes in the order and the bit size of each prime.
type Params struct {
	Family    Family
	Strength1 int
	Strength2 int
}

// DefaultParams returns the default strength for f.
func DefaultParams(f Family) Params {
	switch f {
	case TypeA1:
		return Params{Family: TypeA1, Strength1: 3, Strength2: 160}
	case TypeE:
		return Params{Family: TypeE, Strength1: 160, Strength2: 1024}
	default:
		return Params{Family: TypeA, Strength1: 256, Strength2: 512}
	}
}

// RBits is the bit size of the prime order, for TypeA and TypeE.
func (p Params) RBits() int { return p.Strength1 }

// QBits is the bit size of the base field, for TypeA and TypeE.
func (p Params) QBits() int { return p.Strength2 }

// PrimeCount is the number of primes in the order, for TypeA1.
func (p Params) PrimeCount() int { return p.Strength1 }

// PrimeBits is the bit size of each prime in the order, for TypeA1.
func (p Params) PrimeBits() int { return p.Strength2 }

// OrderBits is the maximum bit length of the group order described by p.
func (p Params) OrderBits() int {
	if p.Family == TypeA1 {
		return p.PrimeCount() * p.PrimeBits()
	}
	return p.RBits()
}

// Validate checks that the strength slots make sense for the family.
func (p Params) Validate() error {
	if _, err := ParseFamily(string(p.Family)); err != nil {
		return err
	}
	switch p.Family {
	case TypeA1:
		if p.PrimeCount() < 1 || p.PrimeCount() > params.MaxA1Primes {
			return fmt.Errorf("bilinear: type A1 prime count %d out of range [1, %d]", p.PrimeCount(), params.MaxA1Primes)
		}
		if p.PrimeBits() < params.BitsMinPrime {
			return fmt.Errorf("bilinear: type A1 prime size %d below %d bits", p.PrimeBits(), params.BitsMinPrime)
		}
	default:
		if p.RBits() < params.BitsMinPrime {
			return fmt.Errorf("bilinear: type %s r bits %d below %d", p.Family, p.RBits(), params.BitsMinPrime)
		}
		if p.QBits() <= p.RBits() {
			return fmt.Errorf("bilinear: type %s q bits %d must exceed r bits %d", p.Family, p.QBits(), p.RBits())
		}
	}
	if p.OrderBits() > params.BitsMaxOrder {
		return fmt.Errorf("bilinear: group order of %d bits exceeds %d", p.OrderBits(), params.BitsMaxOrder)
	}
	return nil
}

func (p Params) String() string {
	if p.Family == TypeA1 {
		return fmt.Sprintf("type A1 (%d primes of %d bits)", p.PrimeCount(), p.PrimeBits())
	}
	return fmt.Sprintf("type %s (r %d bits, q %d bits)", p.Family, p.RBits(), p.QBits())
}
