package repository

import (
	"context"
	"time"

	"shop-billing/internal/entity"
)

// Store is the storage gateway the services depend on. Lookups return
// (nil, nil) when the entity does not exist; persistence is
// swap-the-whole-collection, so callers treat each Save as atomic per entity
// collection and never see partial writes.
type Store interface {
	GetProduct(ctx context.Context, id string) (*entity.Product, error)
	ListProducts(ctx context.Context) ([]entity.Product, error)
	SaveProducts(ctx context.Context, products []entity.Product) error

	ListOffers(ctx context.Context) ([]entity.Offer, error)
	ActiveOffers(ctx context.Context, now time.Time) ([]entity.Offer, error)
	SaveOffers(ctx context.Context, offers []entity.Offer) error

	GetCustomer(ctx context.Context, key string) (*entity.Customer, error)
	ListCustomers(ctx context.Context) ([]entity.Customer, error)
	SaveCustomer(ctx context.Context, customer *entity.Customer) error

	GetRequest(ctx context.Context, id string) (*entity.Request, error)
	// ListPendingRequests returns the pending set, optionally narrowed to one
	// customer identity key. An empty key matches everything.
	ListPendingRequests(ctx context.Context, customerKey string) ([]entity.Request, error)
	SaveRequest(ctx context.Context, request *entity.Request) error
	DeleteRequest(ctx context.Context, id string) error

	SaveBill(ctx context.Context, bill *entity.Bill) error
	// ListBills returns bills, optionally narrowed to one customer identity
	// key. An empty key matches everything.
	ListBills(ctx context.Context, customerKey string) ([]entity.Bill, error)

	GetShop(ctx context.Context) (*entity.Shop, error)
	SaveShop(ctx context.Context, shop *entity.Shop) error
}
