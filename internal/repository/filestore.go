package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"shop-billing/internal/entity"
)

// snapshot is the whole data file. The file store reads it, mutates it and
// writes it back under one mutex, which is the process-wide serialization
// point the flat-file design relies on.
type snapshot struct {
	Products  []entity.Product           `json:"products"`
	Offers    []entity.Offer             `json:"offers"`
	Customers map[string]entity.Customer `json:"customers"`
	Requests  []entity.Request           `json:"requests"`
	Bills     []entity.Bill              `json:"bills"`
	Shop      entity.Shop                `json:"shop"`
}

// FileStore persists the whole shop state as one JSON file.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore opens the data file at path, creating it with an empty
// snapshot when absent.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := s.write(&snapshot{Customers: map[string]entity.Customer{}}); err != nil {
			return nil, fmt.Errorf("init data file: %w", err)
		}
	}
	return s, nil
}

func (s *FileStore) read() (*snapshot, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read data file: %w", err)
	}
	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("parse data file: %w", err)
	}
	if snap.Customers == nil {
		snap.Customers = map[string]entity.Customer{}
	}
	return &snap, nil
}

// write marshals the snapshot to a temp file and renames it over the data
// file, so readers never observe a half-written snapshot.
func (s *FileStore) write(snap *snapshot) error {
	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal data file: %w", err)
	}
	tmp := filepath.Join(filepath.Dir(s.path), fmt.Sprintf(".%s.tmp", filepath.Base(s.path)))
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// update runs fn over the current snapshot and persists the result.
func (s *FileStore) update(fn func(*snapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, err := s.read()
	if err != nil {
		return err
	}
	if err := fn(snap); err != nil {
		return err
	}
	return s.write(snap)
}

func (s *FileStore) view(fn func(*snapshot)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, err := s.read()
	if err != nil {
		return err
	}
	fn(snap)
	return nil
}

func (s *FileStore) GetProduct(ctx context.Context, id string) (*entity.Product, error) {
	var found *entity.Product
	err := s.view(func(snap *snapshot) {
		for i := range snap.Products {
			if snap.Products[i].ID == id {
				p := snap.Products[i]
				found = &p
				return
			}
		}
	})
	return found, err
}

func (s *FileStore) ListProducts(ctx context.Context) ([]entity.Product, error) {
	var products []entity.Product
	err := s.view(func(snap *snapshot) {
		products = append(products, snap.Products...)
	})
	return products, err
}

func (s *FileStore) SaveProducts(ctx context.Context, products []entity.Product) error {
	return s.update(func(snap *snapshot) error {
		snap.Products = products
		return nil
	})
}

func (s *FileStore) ListOffers(ctx context.Context) ([]entity.Offer, error) {
	var offers []entity.Offer
	err := s.view(func(snap *snapshot) {
		offers = append(offers, snap.Offers...)
	})
	return offers, err
}

func (s *FileStore) ActiveOffers(ctx context.Context, now time.Time) ([]entity.Offer, error) {
	var active []entity.Offer
	err := s.view(func(snap *snapshot) {
		for i := range snap.Offers {
			if snap.Offers[i].ActiveAt(now) {
				active = append(active, snap.Offers[i])
			}
		}
	})
	return active, err
}

func (s *FileStore) SaveOffers(ctx context.Context, offers []entity.Offer) error {
	return s.update(func(snap *snapshot) error {
		snap.Offers = offers
		return nil
	})
}

func (s *FileStore) GetCustomer(ctx context.Context, key string) (*entity.Customer, error) {
	var found *entity.Customer
	err := s.view(func(snap *snapshot) {
		if c, ok := snap.Customers[key]; ok {
			found = &c
		}
	})
	return found, err
}

func (s *FileStore) ListCustomers(ctx context.Context) ([]entity.Customer, error) {
	var customers []entity.Customer
	err := s.view(func(snap *snapshot) {
		for _, c := range snap.Customers {
			customers = append(customers, c)
		}
	})
	return customers, err
}

func (s *FileStore) SaveCustomer(ctx context.Context, customer *entity.Customer) error {
	return s.update(func(snap *snapshot) error {
		snap.Customers[customer.Key()] = *customer
		return nil
	})
}

func (s *FileStore) GetRequest(ctx context.Context, id string) (*entity.Request, error) {
	var found *entity.Request
	err := s.view(func(snap *snapshot) {
		for i := range snap.Requests {
			if snap.Requests[i].ID == id {
				r := snap.Requests[i]
				found = &r
				return
			}
		}
	})
	return found, err
}

func (s *FileStore) ListPendingRequests(ctx context.Context, customerKey string) ([]entity.Request, error) {
	var pending []entity.Request
	err := s.view(func(snap *snapshot) {
		for i := range snap.Requests {
			r := snap.Requests[i]
			if r.Status != entity.StatusPending {
				continue
			}
			if customerKey != "" && r.CustomerKey() != customerKey {
				continue
			}
			pending = append(pending, r)
		}
	})
	return pending, err
}

func (s *FileStore) SaveRequest(ctx context.Context, request *entity.Request) error {
	return s.update(func(snap *snapshot) error {
		for i := range snap.Requests {
			if snap.Requests[i].ID == request.ID {
				snap.Requests[i] = *request
				return nil
			}
		}
		snap.Requests = append(snap.Requests, *request)
		return nil
	})
}

func (s *FileStore) DeleteRequest(ctx context.Context, id string) error {
	return s.update(func(snap *snapshot) error {
		for i := range snap.Requests {
			if snap.Requests[i].ID == id {
				snap.Requests = append(snap.Requests[:i], snap.Requests[i+1:]...)
				return nil
			}
		}
		return nil
	})
}

func (s *FileStore) SaveBill(ctx context.Context, bill *entity.Bill) error {
	return s.update(func(snap *snapshot) error {
		snap.Bills = append(snap.Bills, *bill)
		return nil
	})
}

func (s *FileStore) ListBills(ctx context.Context, customerKey string) ([]entity.Bill, error) {
	var bills []entity.Bill
	err := s.view(func(snap *snapshot) {
		for i := range snap.Bills {
			if customerKey != "" && snap.Bills[i].CustomerKey() != customerKey {
				continue
			}
			bills = append(bills, snap.Bills[i])
		}
	})
	return bills, err
}

func (s *FileStore) GetShop(ctx context.Context) (*entity.Shop, error) {
	var shop entity.Shop
	err := s.view(func(snap *snapshot) {
		shop = snap.Shop
	})
	if err != nil {
		return nil, err
	}
	return &shop, nil
}

func (s *FileStore) SaveShop(ctx context.Context, shop *entity.Shop) error {
	return s.update(func(snap *snapshot) error {
		snap.Shop = *shop
		return nil
	})
}
