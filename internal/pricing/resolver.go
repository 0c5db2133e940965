package pricing

import "github.com/shopspring/decimal"

// Source records which rule produced a resolution.
type Source string

const (
	SourceOverridePrice   Source = "override_price"
	SourceOverrideComment Source = "override_comment"
	SourceProduct         Source = "product_adjustment"
	SourceGlobal          Source = "global_adjustment"
	SourceWithheld        Source = "withheld"
	SourceHidden          Source = "hidden"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Item is the pricing-relevant slice of a line item. A nil BasePrice means the
// owner withheld the price.
type Item struct {
	ID        string
	Commodity string
	Variety   string
	BasePrice *decimal.Decimal
}

// Resolution is the effective price of one line item for one viewer.
type Resolution struct {
	ItemID         string
	Price          *decimal.Decimal
	Comment        string
	Visible        bool
	Source         Source
	AppliedPercent *decimal.Decimal
}

// Resolve applies the precedence override, product percentage, global percentage.
// Rules do not stack.
func Resolve(item Item, profile Profile, override *Override) Resolution {
	res := Resolution{ItemID: item.ID, Visible: true}

	if override != nil && !override.IsZero() {
		if text, ok := override.Comment(); ok {
			res.Comment = text
			res.Source = SourceOverrideComment
			return res
		}
		if item.BasePrice == nil {
			res.Source = SourceWithheld
			return res
		}
		price, _ := override.Price()
		res.Price = &price
		res.Source = SourceOverridePrice
		return res
	}

	if item.BasePrice == nil {
		res.Source = SourceWithheld
		return res
	}

	pct, ok := profile.percentFor(item.Commodity, item.Variety)
	res.Source = SourceProduct
	if !ok {
		pct = profile.GlobalPercent
		res.Source = SourceGlobal
	}
	price := Adjust(*item.BasePrice, pct)
	res.Price = &price
	res.AppliedPercent = &pct
	return res
}

// Hidden is the resolution for a viewer without a valid token.
func Hidden(item Item) Resolution {
	return Resolution{ItemID: item.ID, Source: SourceHidden}
}

// ResolveAll resolves items in order. overrides is keyed by item id.
func ResolveAll(items []Item, profile Profile, overrides map[string]Override) []Resolution {
	out := make([]Resolution, 0, len(items))
	for _, item := range items {
		var ov *Override
		if o, ok := overrides[item.ID]; ok {
			ov = &o
		}
		out = append(out, Resolve(item, profile, ov))
	}
	return out
}

// HideAll hides every item.
func HideAll(items []Item) []Resolution {
	out := make([]Resolution, 0, len(items))
	for _, item := range items {
		out = append(out, Hidden(item))
	}
	return out
}

// Adjust returns base * (1 + pct/100) without rounding.
func Adjust(base, pct decimal.Decimal) decimal.Decimal {
	return base.Mul(one.Add(pct.Div(hundred)))
}

// DisplayPrice formats a price for presentation with two decimals.
func DisplayPrice(price decimal.Decimal) string {
	return price.StringFixed(2)
}
