package store

import (
	"strings"

	"github.com/angelmondragon/pricesheets-backend/internal/pricing"
	"github.com/angelmondragon/pricesheets-backend/pkg/db/models"
	"github.com/shopspring/decimal"
)

// ProfileOf converts a recipient's stored adjustments into a pricing profile.
func ProfileOf(recipient *models.Recipient) pricing.Profile {
	profile := pricing.Profile{GlobalPercent: recipient.GlobalAdjustmentPercent}
	if len(recipient.ProductAdjustments) == 0 {
		return profile
	}
	profile.ProductPercents = make(map[string]decimal.Decimal, len(recipient.ProductAdjustments))
	for _, adj := range recipient.ProductAdjustments {
		commodity, variety, _ := strings.Cut(adj.ProductKey, "/")
		profile.ProductPercents[pricing.ProductKey(commodity, variety)] = adj.AdjustmentPercent
	}
	return profile
}

// PricingItems projects line items onto the resolver's input.
func PricingItems(lineItems []models.LineItem) []pricing.Item {
	items := make([]pricing.Item, 0, len(lineItems))
	for _, li := range lineItems {
		items = append(items, pricing.Item{
			ID:        li.ID.String(),
			Commodity: li.Commodity,
			Variety:   li.Variety,
			BasePrice: li.BasePrice,
		})
	}
	return items
}

// SnapshotOf copies a pricing profile into its stored form.
func SnapshotOf(profile pricing.Profile) *models.ProfileSnapshot {
	clone := profile.Clone()
	return &models.ProfileSnapshot{
		GlobalPercent:   clone.GlobalPercent,
		ProductPercents: clone.ProductPercents,
	}
}

// ProfileFromSnapshot converts a stored snapshot back into a pricing profile.
func ProfileFromSnapshot(snapshot models.ProfileSnapshot) pricing.Profile {
	return pricing.Profile{
		GlobalPercent:   snapshot.GlobalPercent,
		ProductPercents: snapshot.ProductPercents,
	}.Clone()
}

// OverrideValues converts resolver overrides into their stored form.
func OverrideValues(overrides map[string]pricing.Override) map[string]models.OverrideValue {
	if len(overrides) == 0 {
		return nil
	}
	out := make(map[string]models.OverrideValue, len(overrides))
	for itemID, override := range overrides {
		if price, ok := override.Price(); ok {
			out[itemID] = models.OverrideValue{Price: &price}
			continue
		}
		if comment, ok := override.Comment(); ok {
			out[itemID] = models.OverrideValue{Comment: &comment}
		}
	}
	return out
}

// OverridesOf converts a send record's stored overrides for the resolver.
// Entries carrying neither a price nor a comment are dropped.
func OverridesOf(record *models.SendRecord) map[string]pricing.Override {
	if len(record.Overrides) == 0 {
		return nil
	}
	out := make(map[string]pricing.Override, len(record.Overrides))
	for itemID, value := range record.Overrides {
		switch {
		case value.Price != nil:
			out[itemID] = pricing.PriceOverride(*value.Price)
		case value.Comment != nil:
			out[itemID] = pricing.CommentOverride(*value.Comment)
		}
	}
	return out
}
