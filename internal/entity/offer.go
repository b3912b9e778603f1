package entity

import "time"

// Offer types.
const (
	OfferPercentage        = "percentage"
	OfferFixed             = "fixed"
	OfferBogo              = "bogo"
	OfferBulk              = "bulk"
	OfferQuantityThreshold = "quantity-threshold"
	OfferPriceThreshold    = "price-threshold"
	OfferWelcome           = "welcome"
)

// Offer scopes.
const (
	ScopeAll      = "all"
	ScopeCategory = "category"
	ScopeProducts = "products"
)

type Offer struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Type          string     `json:"type"`
	DiscountValue float64    `json:"discount_value"` // percent or currency, by type
	Scope         string     `json:"scope"`
	Category      string     `json:"category,omitempty"`
	ProductIDs    []string   `json:"product_ids,omitempty"`
	MinQuantity   int        `json:"min_quantity,omitempty"`
	MinAmount     float64    `json:"min_amount,omitempty"`
	BuyQuantity   int        `json:"buy_quantity,omitempty"` // bogo only
	GetQuantity   int        `json:"get_quantity,omitempty"` // bogo only
	Active        bool       `json:"active"`
	ValidFrom     *time.Time `json:"valid_from,omitempty"`
	ValidTo       *time.Time `json:"valid_to,omitempty"`
}

// ActiveAt reports whether the offer can be applied at the given time: the
// active flag is set, or the time falls inside the validity window. A
// missing bound leaves that side of the window open.
func (o *Offer) ActiveAt(now time.Time) bool {
	if o.Active {
		return true
	}
	if o.ValidFrom == nil && o.ValidTo == nil {
		return false
	}
	if o.ValidFrom != nil && now.Before(*o.ValidFrom) {
		return false
	}
	if o.ValidTo != nil && now.After(*o.ValidTo) {
		return false
	}
	return true
}

// Covers reports whether the offer's scope includes the given product.
func (o *Offer) Covers(p *Product) bool {
	switch o.Scope {
	case ScopeCategory:
		return o.Category == p.Category
	case ScopeProducts:
		for _, id := range o.ProductIDs {
			if id == p.ID {
				return true
			}
		}
		return false
	default:
		// empty scope means unrestricted, same as "all"
		return true
	}
}
