package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Profile is a recipient's percentage adjustments. Percentages may be negative.
type Profile struct {
	GlobalPercent   decimal.Decimal            `json:"globalPercent"`
	ProductPercents map[string]decimal.Decimal `json:"productPercents,omitempty"`
}

// ProductKey normalizes a line item classification into the key used by
// product-specific adjustments.
func ProductKey(commodity, variety string) string {
	c := strings.ToLower(strings.TrimSpace(commodity))
	v := strings.ToLower(strings.TrimSpace(variety))
	if v == "" {
		return c
	}
	return c + "/" + v
}

// Clone returns a deep copy safe to persist as a snapshot.
func (p Profile) Clone() Profile {
	out := Profile{GlobalPercent: p.GlobalPercent}
	if len(p.ProductPercents) > 0 {
		out.ProductPercents = make(map[string]decimal.Decimal, len(p.ProductPercents))
		for k, v := range p.ProductPercents {
			out.ProductPercents[k] = v
		}
	}
	return out
}

// percentFor returns the most specific product percentage for an item.
func (p Profile) percentFor(commodity, variety string) (decimal.Decimal, bool) {
	if len(p.ProductPercents) == 0 {
		return decimal.Decimal{}, false
	}
	if strings.TrimSpace(variety) != "" {
		if pct, ok := p.ProductPercents[ProductKey(commodity, variety)]; ok {
			return pct, true
		}
	}
	pct, ok := p.ProductPercents[ProductKey(commodity, "")]
	return pct, ok
}
