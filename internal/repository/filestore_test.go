package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop-billing/internal/entity"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "data.json"))
	require.NoError(t, err)
	return store
}

func TestNewFileStore_InitializesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	_, err := NewFileStore(path)
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.NoError(t, err)

	// reopening an existing file keeps its contents
	store, err := NewFileStore(path)
	require.NoError(t, err)
	products, err := store.ListProducts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestFileStore_Products(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	missing, err := store.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, store.SaveProducts(ctx, []entity.Product{
		{ID: "p1", Name: "Soap", Stock: 5, Prices: []entity.PriceTier{{Quantity: 1, Price: 40, IsDefault: true}}},
	}))

	p, err := store.GetProduct(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Soap", p.Name)
	assert.Equal(t, 40.0, p.UnitPrice())
}

func TestFileStore_ActiveOffers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()
	past := now.Add(-48 * time.Hour)
	earlier := now.Add(-72 * time.Hour)

	require.NoError(t, store.SaveOffers(ctx, []entity.Offer{
		{ID: "on", Active: true},
		{ID: "off"},
		{ID: "expired", ValidFrom: &earlier, ValidTo: &past},
	}))

	active, err := store.ActiveOffers(ctx, now)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "on", active[0].ID)
}

func TestFileStore_Customers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	missing, err := store.GetCustomer(ctx, "nobody_0")
	require.NoError(t, err)
	assert.Nil(t, missing)

	c := &entity.Customer{Name: "Ramesh", Mobile: "9876543210", Points: 3}
	require.NoError(t, store.SaveCustomer(ctx, c))

	loaded, err := store.GetCustomer(ctx, c.Key())
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, 3, loaded.Points)

	// save is an upsert keyed by identity
	c.Points = 9
	require.NoError(t, store.SaveCustomer(ctx, c))
	all, err := store.ListCustomers(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 9, all[0].Points)
}

func TestFileStore_Requests(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	r1 := &entity.Request{ID: "r1", CustomerName: "Ramesh", CustomerMobile: "9876543210", Status: entity.StatusPending, CreatedAt: time.Now()}
	r2 := &entity.Request{ID: "r2", CustomerName: "Sita", CustomerMobile: "9123456789", Status: entity.StatusPending, CreatedAt: time.Now()}
	require.NoError(t, store.SaveRequest(ctx, r1))
	require.NoError(t, store.SaveRequest(ctx, r2))

	all, err := store.ListPendingRequests(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := store.ListPendingRequests(ctx, entity.IdentityKey("Sita", "9123456789"))
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "r2", mine[0].ID)

	// saving an existing id replaces it in place
	r1.GrandTotal = 99
	require.NoError(t, store.SaveRequest(ctx, r1))
	loaded, err := store.GetRequest(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 99.0, loaded.GrandTotal)

	require.NoError(t, store.DeleteRequest(ctx, "r1"))
	gone, err := store.GetRequest(ctx, "r1")
	require.NoError(t, err)
	assert.Nil(t, gone)

	// deleting an unknown id is a no-op
	require.NoError(t, store.DeleteRequest(ctx, "r1"))
}

func TestFileStore_Bills(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveBill(ctx, &entity.Bill{BillNumber: "B1", CustomerName: "Ramesh", CustomerMobile: "9876543210"}))
	require.NoError(t, store.SaveBill(ctx, &entity.Bill{BillNumber: "B2", CustomerName: "Sita", CustomerMobile: "9123456789"}))

	all, err := store.ListBills(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := store.ListBills(ctx, entity.IdentityKey("Ramesh", "9876543210"))
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "B1", mine[0].BillNumber)
}

func TestFileStore_Shop(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveShop(ctx, &entity.Shop{Name: "Jain Stores", GSTIN: "22AAAAA0000A1Z5"}))
	shop, err := store.GetShop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Jain Stores", shop.Name)
}
