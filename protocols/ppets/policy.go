package ppets

import "sort"

// Policy is how the seller prices tickets, and what the verifier requires of them.
type Policy struct {
	// Price is the full price of a ticket.
	Price uint64 `yaml:"price"`
	// Discounts maps an attribute to the amount it takes off the price (FGP).
	Discounts map[string]uint64 `yaml:"discounts"`
	// Required lists the attributes a ticket must be bound to (ABC).
	Required []string `yaml:"required"`
}

// DefaultPolicy prices every ticket at 100, without discounts or required attributes.
func DefaultPolicy() Policy {
	return Policy{Price: 100}
}

// PriceFor returns the price of a ticket for a user disclosing attributes.
// Each distinct attribute counts once, and the price never goes below zero.
func (p Policy) PriceFor(attributes []string) uint64 {
	price := p.Price
	for _, a := range dedup(attributes) {
		d := p.Discounts[a]
		if d >= price {
			return 0
		}
		price -= d
	}
	return price
}

// Satisfied returns true if attributes include every required attribute.
func (p Policy) Satisfied(attributes []string) bool {
	have := make(map[string]bool, len(attributes))
	for _, a := range attributes {
		have[a] = true
	}
	for _, r := range p.Required {
		if !have[r] {
			return false
		}
	}
	return true
}

// dedup returns the sorted distinct attributes.
func dedup(attributes []string) []string {
	seen := make(map[string]bool, len(attributes))
	out := make([]string, 0, len(attributes))
	for _, a := range attributes {
		if !seen[a] {
			seen[a] = true
			out = append(out, a)
		}
	}
	sort.Strings(out)
	return out
}
