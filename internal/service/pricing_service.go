package service

import (
	"context"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/rs/zerolog"

	"shop-billing/internal/config"
	"shop-billing/internal/entity"
	"shop-billing/internal/repository"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// PricingService computes cart totals: unit prices from the default tier,
// the single best offer per line, per-line GST, and loyalty point
// redemption. It never mutates stock, points or anything persisted.
type PricingService struct {
	store repository.Store
	cfg   *config.Config
}

// NewPricingService creates a new instance of PricingService.
func NewPricingService(store repository.Store, cfg *config.Config) *PricingService {
	return &PricingService{store: store, cfg: cfg}
}

// PriceCart prices the given cart lines for a customer. Quantities are
// clamped to current stock; lines that clamp to zero are dropped silently.
// An unknown product id is an error.
func (s *PricingService) PriceCart(ctx context.Context, lines []entity.CartLine, customer *entity.Customer, redeemPoints bool) (*entity.PricedCart, error) {
	offers, err := s.store.ActiveOffers(ctx, time.Now())
	if err != nil {
		return nil, fmt.Errorf("load offers: %w", err)
	}

	firstPurchase := customer == nil || len(customer.BillHistory) == 0

	cart := &entity.PricedCart{}
	for _, line := range lines {
		product, err := s.store.GetProduct(ctx, line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("load product %s: %w", line.ProductID, err)
		}
		if product == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownProduct, line.ProductID)
		}

		qty := line.Quantity
		if qty > product.Stock {
			qty = product.Stock
		}
		if qty <= 0 {
			// out of stock since the cart was built; exclude the line
			continue
		}

		unitPrice := product.UnitPrice()
		lineSubtotal := unitPrice * float64(qty)
		discount := bestOfferDiscount(offers, product, qty, unitPrice, lineSubtotal, firstPurchase)

		rate := product.GSTRate
		if rate == 0 {
			rate = s.cfg.GSTRate
		}
		gst := (lineSubtotal - discount) * rate / 100

		cart.Items = append(cart.Items, entity.PricedItem{
			ProductID: product.ID,
			Name:      product.Name,
			Quantity:  qty,
			UnitPrice: unitPrice,
			Discount:  discount,
			GST:       gst,
			LineTotal: lineSubtotal - discount + gst,
		})
		cart.Subtotal += lineSubtotal
		cart.OfferDiscount += discount
		cart.TotalGST += gst
	}

	prePointsTotal := cart.Subtotal - cart.OfferDiscount + cart.TotalGST

	if redeemPoints && customer != nil && customer.Points > 0 && prePointsTotal > 0 {
		maxPointsNeeded := int(math.Ceil(prePointsTotal / s.cfg.PointsValue))
		pointsUsed := customer.Points
		if pointsUsed > maxPointsNeeded {
			pointsUsed = maxPointsNeeded
		}
		cart.PointsUsed = pointsUsed
		cart.PointsDiscount = float64(pointsUsed) * s.cfg.PointsValue
		if cart.PointsDiscount > prePointsTotal {
			cart.PointsDiscount = prePointsTotal
		}
	}

	cart.GrandTotal = math.Max(0, prePointsTotal-cart.PointsDiscount)
	return cart, nil
}

// bestOfferDiscount returns the largest discount any single applicable offer
// yields for the line. Offers never stack; ties go to the offer declared
// first because only a strictly larger discount replaces the current best.
func bestOfferDiscount(offers []entity.Offer, product *entity.Product, qty int, unitPrice, lineSubtotal float64, firstPurchase bool) float64 {
	best := 0.0
	for i := range offers {
		d := offerDiscount(&offers[i], product, qty, unitPrice, lineSubtotal, firstPurchase)
		if d > best {
			best = d
		}
	}
	if best > lineSubtotal {
		best = lineSubtotal
	}
	return best
}

func offerDiscount(o *entity.Offer, product *entity.Product, qty int, unitPrice, lineSubtotal float64, firstPurchase bool) float64 {
	if !o.Covers(product) {
		return 0
	}
	if o.MinQuantity > 0 && qty < o.MinQuantity {
		return 0
	}
	if o.MinAmount > 0 && lineSubtotal < o.MinAmount {
		return 0
	}

	switch o.Type {
	case entity.OfferPercentage, entity.OfferBulk:
		return lineSubtotal * o.DiscountValue / 100
	case entity.OfferFixed, entity.OfferQuantityThreshold, entity.OfferPriceThreshold:
		return math.Min(o.DiscountValue, lineSubtotal)
	case entity.OfferBogo:
		if o.BuyQuantity <= 0 || o.GetQuantity <= 0 {
			return 0
		}
		sets := qty / (o.BuyQuantity + o.GetQuantity)
		return float64(sets*o.GetQuantity) * unitPrice
	case entity.OfferWelcome:
		if !firstPurchase {
			return 0
		}
		return lineSubtotal * o.DiscountValue / 100
	default:
		return 0
	}
}
