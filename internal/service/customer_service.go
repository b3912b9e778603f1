package service

import (
	"context"
	"fmt"

	"shop-billing/internal/entity"
	"shop-billing/internal/repository"
)

// CustomerService owns customer records: lazy creation on first login,
// wishlists and bill history. Points are written only by the order workflow.
type CustomerService struct {
	store repository.Store
}

// NewCustomerService creates a new instance of CustomerService.
func NewCustomerService(store repository.Store) *CustomerService {
	return &CustomerService{store: store}
}

// GetOrCreateCustomer looks up the customer by identity key, creating the
// record on first login. The name+mobile pair is the identity: a different
// spelling of either is a different customer.
func (s *CustomerService) GetOrCreateCustomer(ctx context.Context, name, mobile string) (*entity.Customer, error) {
	stateMu.Lock()
	defer stateMu.Unlock()
	return s.getOrCreate(ctx, name, mobile)
}

// getOrCreate is GetOrCreateCustomer without the lock, for callers already
// holding stateMu.
func (s *CustomerService) getOrCreate(ctx context.Context, name, mobile string) (*entity.Customer, error) {
	key := entity.IdentityKey(name, mobile)
	customer, err := s.store.GetCustomer(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load customer: %w", err)
	}
	if customer != nil {
		return customer, nil
	}

	customer = &entity.Customer{
		Name:        name,
		Mobile:      mobile,
		Wishlist:    []string{},
		BillHistory: []string{},
	}
	if err := s.store.SaveCustomer(ctx, customer); err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	logger.Info().Msgf("Created customer %s", key)
	return customer, nil
}

// AddToWishlist puts a product on the customer's wishlist. Adding an already
// wishlisted product is a no-op.
func (s *CustomerService) AddToWishlist(ctx context.Context, name, mobile, productID string) (*entity.Customer, error) {
	product, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProduct, productID)
	}

	stateMu.Lock()
	defer stateMu.Unlock()

	customer, err := s.getOrCreate(ctx, name, mobile)
	if err != nil {
		return nil, err
	}
	if customer.HasWishlisted(productID) {
		return customer, nil
	}
	customer.Wishlist = append(customer.Wishlist, productID)
	if err := s.store.SaveCustomer(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

// RemoveFromWishlist takes a product off the customer's wishlist.
func (s *CustomerService) RemoveFromWishlist(ctx context.Context, name, mobile, productID string) (*entity.Customer, error) {
	stateMu.Lock()
	defer stateMu.Unlock()

	customer, err := s.getOrCreate(ctx, name, mobile)
	if err != nil {
		return nil, err
	}
	for i, id := range customer.Wishlist {
		if id == productID {
			customer.Wishlist = append(customer.Wishlist[:i], customer.Wishlist[i+1:]...)
			if err := s.store.SaveCustomer(ctx, customer); err != nil {
				return nil, err
			}
			break
		}
	}
	return customer, nil
}

// Bills returns the customer's bill history.
func (s *CustomerService) Bills(ctx context.Context, name, mobile string) ([]entity.Bill, error) {
	return s.store.ListBills(ctx, entity.IdentityKey(name, mobile))
}

// ListCustomers returns every customer record, for the retailer dashboard.
func (s *CustomerService) ListCustomers(ctx context.Context) ([]entity.Customer, error) {
	return s.store.ListCustomers(ctx)
}
