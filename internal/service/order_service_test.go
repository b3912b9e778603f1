package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop-billing/internal/entity"
	"shop-billing/internal/repository"
)

func TestSubmitRequest_CreatesPending(t *testing.T) {
	store, _, _, _, orders := newBillingEnv(t)
	ctx := context.Background()
	require.NoError(t, store.SaveProducts(ctx, []entity.Product{product("p1", 100, 18, 5)}))

	request, err := orders.SubmitRequest(ctx, "Ramesh", "9876543210", []entity.CartLine{{ProductID: "p1", Quantity: 2}}, false, "")
	require.NoError(t, err)

	assert.Equal(t, entity.StatusPending, request.Status)
	assert.InDelta(t, 236, request.GrandTotal, 1e-9)

	// submission touches neither stock nor customer state
	p, err := store.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stock)
	c, err := store.GetCustomer(ctx, entity.IdentityKey("Ramesh", "9876543210"))
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, 0, c.Points)

	pending, err := orders.PendingRequests(ctx, "", "")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, request.ID, pending[0].ID)
}

func TestSubmitRequest_DuplicateRejected(t *testing.T) {
	store, _, _, _, orders := newBillingEnv(t)
	ctx := context.Background()
	require.NoError(t, store.SaveProducts(ctx, []entity.Product{product("p1", 100, 18, 5)}))
	lines := []entity.CartLine{{ProductID: "p1", Quantity: 2}}

	_, err := orders.SubmitRequest(ctx, "Ramesh", "9876543210", lines, false, "")
	require.NoError(t, err)
	_, err = orders.SubmitRequest(ctx, "Ramesh", "9876543210", lines, false, "")
	require.ErrorIs(t, err, ErrDuplicateRequest)

	// same cart from a different customer is not a duplicate
	_, err = orders.SubmitRequest(ctx, "Sita", "9123456789", lines, false, "")
	require.NoError(t, err)
}

func TestSubmitRequest_EmptyCart(t *testing.T) {
	store, _, _, _, orders := newBillingEnv(t)
	ctx := context.Background()
	require.NoError(t, store.SaveProducts(ctx, []entity.Product{product("p1", 100, 18, 0)}))

	_, err := orders.SubmitRequest(ctx, "Ramesh", "9876543210", []entity.CartLine{{ProductID: "p1", Quantity: 2}}, false, "")
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestApproveRequest_BillsAndDecrements(t *testing.T) {
	store, _, _, _, orders := newBillingEnv(t)
	ctx := context.Background()
	require.NoError(t, store.SaveProducts(ctx, []entity.Product{product("p1", 100, 18, 5)}))

	request, err := orders.SubmitRequest(ctx, "Ramesh", "9876543210", []entity.CartLine{{ProductID: "p1", Quantity: 2}}, false, "")
	require.NoError(t, err)

	bill, warnings, err := orders.ApproveRequest(ctx, request.ID)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.InDelta(t, 236, bill.GrandTotal, 1e-9)
	assert.Equal(t, 2, bill.PointsEarned)
	assert.Equal(t, request.ID, bill.RequestID)

	p, err := store.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Stock)

	c, err := store.GetCustomer(ctx, entity.IdentityKey("Ramesh", "9876543210"))
	require.NoError(t, err)
	assert.Equal(t, 2, c.Points)
	assert.Contains(t, c.BillHistory, bill.BillNumber)

	// request is consumed; a second approval finds nothing
	_, _, err = orders.ApproveRequest(ctx, request.ID)
	require.ErrorIs(t, err, ErrRequestNotFound)
}

func TestApproveRequest_PointsRecheck(t *testing.T) {
	store, _, _, _, orders := newBillingEnv(t)
	ctx := context.Background()
	require.NoError(t, store.SaveProducts(ctx, []entity.Product{product("p1", 100, 18, 5)}))
	customer := &entity.Customer{Name: "Ramesh", Mobile: "9876543210", Points: 50}
	require.NoError(t, store.SaveCustomer(ctx, customer))

	request, err := orders.SubmitRequest(ctx, "Ramesh", "9876543210", []entity.CartLine{{ProductID: "p1", Quantity: 2}}, true, "")
	require.NoError(t, err)
	assert.Equal(t, 50, request.PointsUsed)
	assert.InDelta(t, 186, request.GrandTotal, 1e-9)

	// balance spent elsewhere between submission and approval
	customer.Points = 0
	require.NoError(t, store.SaveCustomer(ctx, customer))

	bill, warnings, err := orders.ApproveRequest(ctx, request.ID)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], WarnPointsAdjusted)
	assert.Equal(t, 0, bill.PointsUsed)
	assert.InDelta(t, 236, bill.GrandTotal, 1e-9)
	assert.Equal(t, 2, bill.PointsEarned)
}

func TestApproveRequest_StockClamp(t *testing.T) {
	store, _, _, _, orders := newBillingEnv(t)
	ctx := context.Background()
	require.NoError(t, store.SaveProducts(ctx, []entity.Product{product("p1", 100, 18, 5)}))

	request, err := orders.SubmitRequest(ctx, "Ramesh", "9876543210", []entity.CartLine{{ProductID: "p1", Quantity: 2}}, false, "")
	require.NoError(t, err)

	// stock dropped to one unit since submission
	require.NoError(t, store.SaveProducts(ctx, []entity.Product{product("p1", 100, 18, 1)}))

	bill, warnings, err := orders.ApproveRequest(ctx, request.ID)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], WarnInsufficientStock)
	require.Len(t, bill.Items, 1)
	assert.Equal(t, 1, bill.Items[0].Quantity)
	assert.InDelta(t, 118, bill.GrandTotal, 1e-9)
	assert.Equal(t, 1, bill.PointsEarned)

	p, err := store.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Stock)
}

func TestApproveRequest_StockNeverNegative(t *testing.T) {
	store, _, _, _, orders := newBillingEnv(t)
	ctx := context.Background()
	require.NoError(t, store.SaveProducts(ctx, []entity.Product{product("p1", 100, 18, 5)}))

	request, err := orders.SubmitRequest(ctx, "Ramesh", "9876543210", []entity.CartLine{{ProductID: "p1", Quantity: 2}}, false, "")
	require.NoError(t, err)

	require.NoError(t, store.SaveProducts(ctx, []entity.Product{product("p1", 100, 18, 0)}))

	bill, warnings, err := orders.ApproveRequest(ctx, request.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, warnings)
	require.Len(t, bill.Items, 1)
	assert.Equal(t, 0, bill.Items[0].Quantity)
	assert.InDelta(t, 0, bill.GrandTotal, 1e-9)

	p, err := store.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Stock)
}

func TestApproveRequest_CascadeCorrectsSiblings(t *testing.T) {
	store, _, _, _, orders := newBillingEnv(t)
	ctx := context.Background()
	require.NoError(t, store.SaveProducts(ctx, []entity.Product{
		product("p1", 100, 18, 5),
		product("p2", 100, 18, 5),
	}))
	require.NoError(t, store.SaveCustomer(ctx, &entity.Customer{Name: "Ramesh", Mobile: "9876543210", Points: 100}))

	// both requests were priced against the same 100-point balance
	first, err := orders.SubmitRequest(ctx, "Ramesh", "9876543210", []entity.CartLine{{ProductID: "p1", Quantity: 1}}, true, "")
	require.NoError(t, err)
	second, err := orders.SubmitRequest(ctx, "Ramesh", "9876543210", []entity.CartLine{{ProductID: "p2", Quantity: 1}}, true, "")
	require.NoError(t, err)
	assert.Equal(t, 100, first.PointsUsed)
	assert.Equal(t, 100, second.PointsUsed)
	assert.InDelta(t, 18, second.GrandTotal, 1e-9)

	_, _, err = orders.ApproveRequest(ctx, first.ID)
	require.NoError(t, err)

	// balance is now 0 (18 earned no point), so the sibling loses its redemption
	c, err := store.GetCustomer(ctx, entity.IdentityKey("Ramesh", "9876543210"))
	require.NoError(t, err)
	assert.Equal(t, 0, c.Points)

	corrected, err := store.GetRequest(ctx, second.ID)
	require.NoError(t, err)
	require.NotNil(t, corrected)
	assert.Equal(t, 0, corrected.PointsUsed)
	assert.InDelta(t, 0, corrected.PointsDiscount, 1e-9)
	assert.InDelta(t, 118, corrected.GrandTotal, 1e-9)
}

func TestRejectRequest_NoSideEffects(t *testing.T) {
	store, _, _, _, orders := newBillingEnv(t)
	ctx := context.Background()
	require.NoError(t, store.SaveProducts(ctx, []entity.Product{product("p1", 100, 18, 5)}))
	require.NoError(t, store.SaveCustomer(ctx, &entity.Customer{Name: "Ramesh", Mobile: "9876543210", Points: 50}))

	request, err := orders.SubmitRequest(ctx, "Ramesh", "9876543210", []entity.CartLine{{ProductID: "p1", Quantity: 2}}, true, "")
	require.NoError(t, err)

	require.NoError(t, orders.RejectRequest(ctx, request.ID))

	p, err := store.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stock)
	c, err := store.GetCustomer(ctx, entity.IdentityKey("Ramesh", "9876543210"))
	require.NoError(t, err)
	assert.Equal(t, 50, c.Points)

	require.ErrorIs(t, orders.RejectRequest(ctx, request.ID), ErrRequestNotFound)
	_, _, err = orders.ApproveRequest(ctx, request.ID)
	require.ErrorIs(t, err, ErrRequestNotFound)
}

func TestApproveRequest_UnknownRequest(t *testing.T) {
	_, _, _, _, orders := newBillingEnv(t)
	_, _, err := orders.ApproveRequest(context.Background(), "missing")
	require.ErrorIs(t, err, ErrRequestNotFound)
}

func TestPendingRequests_FilterByCustomer(t *testing.T) {
	store, _, _, _, orders := newBillingEnv(t)
	ctx := context.Background()
	require.NoError(t, store.SaveProducts(ctx, []entity.Product{product("p1", 100, 18, 10)}))

	_, err := orders.SubmitRequest(ctx, "Ramesh", "9876543210", []entity.CartLine{{ProductID: "p1", Quantity: 1}}, false, "")
	require.NoError(t, err)
	_, err = orders.SubmitRequest(ctx, "Sita", "9123456789", []entity.CartLine{{ProductID: "p1", Quantity: 2}}, false, "")
	require.NoError(t, err)

	all, err := orders.PendingRequests(ctx, "", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := orders.PendingRequests(ctx, "Sita", "9123456789")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Sita", mine[0].CustomerName)
}

// pausingStore stalls the first GetCustomer between its read and the
// caller's subsequent write, exposing the read-modify-write window.
type pausingStore struct {
	repository.Store
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (p *pausingStore) GetCustomer(ctx context.Context, key string) (*entity.Customer, error) {
	c, err := p.Store.GetCustomer(ctx, key)
	p.once.Do(func() {
		close(p.entered)
		<-p.release
	})
	return c, err
}

func TestWishlistWriteCannotRevertApproval(t *testing.T) {
	store, _, _, _, orders := newBillingEnv(t)
	ctx := context.Background()
	require.NoError(t, store.SaveProducts(ctx, []entity.Product{product("p1", 100, 18, 5)}))
	require.NoError(t, store.SaveCustomer(ctx, &entity.Customer{Name: "Ramesh", Mobile: "9876543210", Points: 50}))

	request, err := orders.SubmitRequest(ctx, "Ramesh", "9876543210", []entity.CartLine{{ProductID: "p1", Quantity: 2}}, true, "")
	require.NoError(t, err)

	paused := &pausingStore{Store: store, entered: make(chan struct{}), release: make(chan struct{})}
	customers := NewCustomerService(paused)

	wishlistDone := make(chan error, 1)
	go func() {
		_, err := customers.AddToWishlist(ctx, "Ramesh", "9876543210", "p1")
		wishlistDone <- err
	}()
	<-paused.entered

	// the wishlist edit sits between its customer read and its write; an
	// approval racing in here must not see (or be overwritten by) the stale
	// 50-point snapshot
	approveDone := make(chan error, 1)
	go func() {
		_, _, err := orders.ApproveRequest(ctx, request.ID)
		approveDone <- err
	}()
	time.Sleep(50 * time.Millisecond)
	close(paused.release)

	require.NoError(t, <-wishlistDone)
	require.NoError(t, <-approveDone)

	c, err := store.GetCustomer(ctx, entity.IdentityKey("Ramesh", "9876543210"))
	require.NoError(t, err)
	// 50 redeemed, 1 earned on the 186 grand total; the wishlist write must
	// not resurrect the spent balance
	assert.Equal(t, 1, c.Points)
	assert.Contains(t, c.Wishlist, "p1")
	assert.Len(t, c.BillHistory, 1)
}

func TestNextBillNumber_Unique(t *testing.T) {
	_, _, _, _, orders := newBillingEnv(t)
	seen := make(map[string]struct{}, 2000)
	for i := 0; i < 2000; i++ {
		n := orders.nextBillNumber()
		_, dup := seen[n]
		require.False(t, dup, "bill number %s issued twice", n)
		seen[n] = struct{}{}
	}
}

func TestReclampItem(t *testing.T) {
	item := entity.PricedItem{
		ProductID: "p1",
		Quantity:  2,
		UnitPrice: 100,
		Discount:  30,
		GST:       30.6,
		LineTotal: 200.6,
	}
	clamped := reclampItem(item, 1)
	assert.Equal(t, 1, clamped.Quantity)
	assert.InDelta(t, 15, clamped.Discount, 1e-9)
	assert.InDelta(t, 15.3, clamped.GST, 1e-9)
	assert.InDelta(t, 100.3, clamped.LineTotal, 1e-9)

	zeroed := reclampItem(item, 0)
	assert.Equal(t, 0, zeroed.Quantity)
	assert.InDelta(t, 0, zeroed.LineTotal, 1e-9)
}
