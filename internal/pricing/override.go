package pricing

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrEmptyOverride is returned when an override carries neither a price nor a comment.
var ErrEmptyOverride = errors.New("override must carry a price or a comment")

// Override is a one-off per-line-item value captured at send time. It is either
// a numeric price used verbatim or a free-text comment that replaces the price.
type Override struct {
	price     decimal.Decimal
	comment   string
	isComment bool
	set       bool
}

func PriceOverride(price decimal.Decimal) Override {
	return Override{price: price, set: true}
}

func CommentOverride(text string) Override {
	return Override{comment: text, isComment: true, set: true}
}

// Price returns the override price when the override is numeric.
func (o Override) Price() (decimal.Decimal, bool) {
	if !o.set || o.isComment {
		return decimal.Decimal{}, false
	}
	return o.price, true
}

// Comment returns the override text when the override is textual.
func (o Override) Comment() (string, bool) {
	if !o.set || !o.isComment {
		return "", false
	}
	return o.comment, true
}

func (o Override) IsZero() bool {
	return !o.set
}

type storedOverride struct {
	Price   *decimal.Decimal `json:"price,omitempty"`
	Comment *string          `json:"comment,omitempty"`
}

// MarshalJSON writes the storage form {"price":"7.5"} or {"comment":"..."}.
func (o Override) MarshalJSON() ([]byte, error) {
	if !o.set {
		return nil, ErrEmptyOverride
	}
	if o.isComment {
		text := o.comment
		return json.Marshal(storedOverride{Comment: &text})
	}
	price := o.price
	return json.Marshal(storedOverride{Price: &price})
}

// UnmarshalJSON accepts the storage form plus the wire shorthands: a bare
// number is a price and a bare string is a comment unless it parses as a decimal.
func (o *Override) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ErrEmptyOverride
	}

	switch trimmed[0] {
	case '{':
		var stored storedOverride
		if err := json.Unmarshal(trimmed, &stored); err != nil {
			return fmt.Errorf("decode override: %w", err)
		}
		switch {
		case stored.Price != nil && stored.Comment != nil:
			return errors.New("override cannot carry both a price and a comment")
		case stored.Price != nil:
			*o = PriceOverride(*stored.Price)
		case stored.Comment != nil:
			*o = CommentOverride(*stored.Comment)
		default:
			return ErrEmptyOverride
		}
		return nil
	case '"':
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return fmt.Errorf("decode override: %w", err)
		}
		parsed, err := ParseOverride(text)
		if err != nil {
			return err
		}
		*o = parsed
		return nil
	default:
		price, err := decimal.NewFromString(string(trimmed))
		if err != nil {
			return fmt.Errorf("decode override price: %w", err)
		}
		*o = PriceOverride(price)
		return nil
	}
}

// ParseOverride interprets raw owner input: decimals become prices, anything
// else non-blank becomes a comment.
func ParseOverride(raw string) (Override, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return Override{}, ErrEmptyOverride
	}
	if price, err := decimal.NewFromString(value); err == nil {
		return PriceOverride(price), nil
	}
	return CommentOverride(value), nil
}
