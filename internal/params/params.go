package params

import "time"

const (
	SecParam = 256
	SecBytes = SecParam / 8

	// BitsMinPrime is the smallest prime size accepted for a group order or
	// one of the A1 prime factors.
	BitsMinPrime = 16
	// BitsMaxOrder bounds the size of a group order received from a peer, so
	// that a malicious snapshot cannot make us test huge numbers for primality.
	BitsMaxOrder = 4096
	// MaxA1Primes bounds the number of prime factors of a composite order.
	MaxA1Primes = 16

	// PrimalityIterations is the number of Miller-Rabin rounds used when
	// generating or checking a group order.
	PrimalityIterations = 20

	// DefaultTimeout is used for any Action that does not carry its own timeout.
	DefaultTimeout = 10 * time.Second
)
