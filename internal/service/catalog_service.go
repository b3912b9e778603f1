package service

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"shop-billing/internal/config"
	"shop-billing/internal/entity"
	"shop-billing/internal/repository"
)

// CatalogService owns product and offer lifecycle: retailer CRUD, stock
// edits and the low-stock listing. Stock decrements on approval belong to
// the order workflow, not here.
type CatalogService struct {
	store repository.Store
	cfg   *config.Config
}

// NewCatalogService creates a new instance of CatalogService.
func NewCatalogService(store repository.Store, cfg *config.Config) *CatalogService {
	return &CatalogService{store: store, cfg: cfg}
}

// newProductID builds a collision-resistant product id. Bulk variant
// creation can add many products within the same millisecond, so the
// timestamp alone is not enough.
func newProductID() string {
	return fmt.Sprintf("p%d-%04d", time.Now().UnixMilli(), rand.Intn(10000))
}

func normalizeTiers(tiers []entity.PriceTier) []entity.PriceTier {
	defaults := 0
	for i := range tiers {
		if tiers[i].IsDefault {
			defaults++
			if defaults > 1 {
				tiers[i].IsDefault = false
			}
		}
	}
	if defaults == 0 && len(tiers) > 0 {
		tiers[0].IsDefault = true
	}
	return tiers
}

// AddProducts appends products to the catalog, assigning each a fresh id
// and making sure exactly one price tier is default. Accepting a batch is
// what variant creation uses.
func (s *CatalogService) AddProducts(ctx context.Context, toAdd []entity.Product) ([]entity.Product, error) {
	stateMu.Lock()
	defer stateMu.Unlock()

	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	added := make([]entity.Product, 0, len(toAdd))
	for _, p := range toAdd {
		p.ID = newProductID()
		if p.Stock < 0 {
			p.Stock = 0
		}
		p.Prices = normalizeTiers(p.Prices)
		products = append(products, p)
		added = append(added, p)
	}

	if err := s.store.SaveProducts(ctx, products); err != nil {
		return nil, fmt.Errorf("save products: %w", err)
	}
	logger.Info().Msgf("Added %d products", len(added))
	return added, nil
}

// UpdateProduct replaces the stored product with the given one.
func (s *CatalogService) UpdateProduct(ctx context.Context, p entity.Product) (*entity.Product, error) {
	stateMu.Lock()
	defer stateMu.Unlock()

	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	for i := range products {
		if products[i].ID == p.ID {
			if p.Stock < 0 {
				p.Stock = 0
			}
			p.Prices = normalizeTiers(p.Prices)
			products[i] = p
			if err := s.store.SaveProducts(ctx, products); err != nil {
				return nil, fmt.Errorf("save products: %w", err)
			}
			return &p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrProductNotFound, p.ID)
}

// AdjustStock applies a delta to a product's stock, clamped at zero.
func (s *CatalogService) AdjustStock(ctx context.Context, id string, delta int) (*entity.Product, error) {
	stateMu.Lock()
	defer stateMu.Unlock()

	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	for i := range products {
		if products[i].ID == id {
			products[i].Stock += delta
			if products[i].Stock < 0 {
				products[i].Stock = 0
			}
			if err := s.store.SaveProducts(ctx, products); err != nil {
				return nil, fmt.Errorf("save products: %w", err)
			}
			p := products[i]
			return &p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrProductNotFound, id)
}

// DeleteProduct removes a product from the catalog.
func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	stateMu.Lock()
	defer stateMu.Unlock()

	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return fmt.Errorf("load products: %w", err)
	}
	for i := range products {
		if products[i].ID == id {
			products = append(products[:i], products[i+1:]...)
			return s.store.SaveProducts(ctx, products)
		}
	}
	return fmt.Errorf("%w: %s", ErrProductNotFound, id)
}

// ListProducts returns the whole catalog.
func (s *CatalogService) ListProducts(ctx context.Context) ([]entity.Product, error) {
	return s.store.ListProducts(ctx)
}

// LowStock lists products at or below the configured threshold, excluding
// those already out of stock. Advisory only; checkout is never blocked.
func (s *CatalogService) LowStock(ctx context.Context) ([]entity.Product, error) {
	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	var low []entity.Product
	for _, p := range products {
		if p.Stock > 0 && p.Stock <= s.cfg.LowStockThreshold {
			low = append(low, p)
		}
	}
	return low, nil
}

// CreateOffer stores a new offer.
func (s *CatalogService) CreateOffer(ctx context.Context, o entity.Offer) (*entity.Offer, error) {
	stateMu.Lock()
	defer stateMu.Unlock()

	offers, err := s.store.ListOffers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load offers: %w", err)
	}
	o.ID = uuid.NewString()
	offers = append(offers, o)
	if err := s.store.SaveOffers(ctx, offers); err != nil {
		return nil, fmt.Errorf("save offers: %w", err)
	}
	return &o, nil
}

// ToggleOffer flips an offer's active flag.
func (s *CatalogService) ToggleOffer(ctx context.Context, id string) (*entity.Offer, error) {
	stateMu.Lock()
	defer stateMu.Unlock()

	offers, err := s.store.ListOffers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load offers: %w", err)
	}
	for i := range offers {
		if offers[i].ID == id {
			offers[i].Active = !offers[i].Active
			if err := s.store.SaveOffers(ctx, offers); err != nil {
				return nil, fmt.Errorf("save offers: %w", err)
			}
			o := offers[i]
			return &o, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrOfferNotFound, id)
}

// DeleteOffer removes an offer.
func (s *CatalogService) DeleteOffer(ctx context.Context, id string) error {
	stateMu.Lock()
	defer stateMu.Unlock()

	offers, err := s.store.ListOffers(ctx)
	if err != nil {
		return fmt.Errorf("load offers: %w", err)
	}
	for i := range offers {
		if offers[i].ID == id {
			offers = append(offers[:i], offers[i+1:]...)
			return s.store.SaveOffers(ctx, offers)
		}
	}
	return fmt.Errorf("%w: %s", ErrOfferNotFound, id)
}

// ListOffers returns every offer, active or not.
func (s *CatalogService) ListOffers(ctx context.Context) ([]entity.Offer, error) {
	return s.store.ListOffers(ctx)
}

// ActiveOffers returns the offers applicable right now, for the storefront.
func (s *CatalogService) ActiveOffers(ctx context.Context) ([]entity.Offer, error) {
	return s.store.ActiveOffers(ctx, time.Now())
}

// Shop returns the retailer profile shown on receipts.
func (s *CatalogService) Shop(ctx context.Context) (*entity.Shop, error) {
	return s.store.GetShop(ctx)
}

// UpdateShop replaces the retailer profile.
func (s *CatalogService) UpdateShop(ctx context.Context, shop entity.Shop) error {
	return s.store.SaveShop(ctx, &shop)
}
