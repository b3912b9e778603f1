package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOfferActiveAt(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	before := now.Add(-24 * time.Hour)
	after := now.Add(24 * time.Hour)

	flagged := Offer{Active: true}
	assert.True(t, flagged.ActiveAt(now))

	windowed := Offer{ValidFrom: &before, ValidTo: &after}
	assert.True(t, windowed.ActiveAt(now))
	assert.False(t, windowed.ActiveAt(after.Add(time.Hour)))
	assert.False(t, windowed.ActiveAt(before.Add(-time.Hour)))

	// a single bound leaves the other side open
	from := Offer{ValidFrom: &before}
	assert.True(t, from.ActiveAt(now))
	assert.False(t, from.ActiveAt(before.Add(-time.Hour)))

	until := Offer{ValidTo: &after}
	assert.True(t, until.ActiveAt(now))
	assert.False(t, until.ActiveAt(after.Add(time.Hour)))

	inactive := Offer{}
	assert.False(t, inactive.ActiveAt(now))
}

func TestOfferCovers(t *testing.T) {
	soap := &Product{ID: "p1", Category: "toiletries"}
	oil := &Product{ID: "p2", Category: "ayurvedic"}

	all := Offer{Scope: ScopeAll}
	assert.True(t, all.Covers(soap))
	assert.True(t, all.Covers(oil))

	unscoped := Offer{}
	assert.True(t, unscoped.Covers(soap))

	byCategory := Offer{Scope: ScopeCategory, Category: "ayurvedic"}
	assert.False(t, byCategory.Covers(soap))
	assert.True(t, byCategory.Covers(oil))

	byProduct := Offer{Scope: ScopeProducts, ProductIDs: []string{"p1"}}
	assert.True(t, byProduct.Covers(soap))
	assert.False(t, byProduct.Covers(oil))
}

func TestProductUnitPrice(t *testing.T) {
	p := Product{Prices: []PriceTier{
		{Quantity: 1, Price: 120},
		{Quantity: 10, Price: 100, IsDefault: true},
	}}
	assert.Equal(t, 100.0, p.UnitPrice())

	noDefault := Product{Prices: []PriceTier{{Quantity: 1, Price: 55}}}
	assert.Equal(t, 55.0, noDefault.UnitPrice())

	empty := Product{}
	assert.Equal(t, 0.0, empty.UnitPrice())
}
