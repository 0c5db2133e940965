package enums

import (
	"fmt"
	"strings"
)

// PriceBasis maps to the price_basis enum in Postgres.
type PriceBasis string

const (
	PriceBasisFOB       PriceBasis = "FOB"
	PriceBasisDelivered PriceBasis = "DELIVERED"
)

var validPriceBases = []PriceBasis{
	PriceBasisFOB,
	PriceBasisDelivered,
}

// String implements fmt.Stringer.
func (p PriceBasis) String() string {
	return string(p)
}

// IsValid reports whether the value matches the canonical price_basis enum.
func (p PriceBasis) IsValid() bool {
	for _, candidate := range validPriceBases {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePriceBasis converts raw strings into PriceBasis, ignoring case.
func ParsePriceBasis(value string) (PriceBasis, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validPriceBases {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid price basis %q", value)
}
