package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"shop-billing/internal/config"
	"shop-billing/internal/entity"
	"shop-billing/internal/repository"
)

// OrderService owns the request/bill lifecycle and is the only writer of
// stock and loyalty points. Submissions and approvals run under stateMu:
// the flat-file store has no transactional isolation, so mutual exclusion
// lives in the service layer, and approvals of two requests for the same
// customer can never interleave.
type OrderService struct {
	store       repository.Store
	pricing     *PricingService
	customers   *CustomerService
	cfg         *config.Config
	kafkaWriter *kafka.Writer
	rdb         *redis.Client

	billSeq uint32
}

// NewOrderService creates a new instance of OrderService. kafkaWriter and
// rdb may be nil; event publishing and the idempotent-key guard are skipped
// when unconfigured.
func NewOrderService(store repository.Store, pricing *PricingService, customers *CustomerService, cfg *config.Config, kafkaWriter *kafka.Writer, rdb *redis.Client) *OrderService {
	return &OrderService{
		store:       store,
		pricing:     pricing,
		customers:   customers,
		cfg:         cfg,
		kafkaWriter: kafkaWriter,
		rdb:         rdb,
	}
}

// SubmitRequest prices the cart at submission time and persists it as a
// pending request. Stock and points stay untouched until approval.
func (s *OrderService) SubmitRequest(ctx context.Context, name, mobile string, lines []entity.CartLine, redeemPoints bool, idempotentKey string) (*entity.Request, error) {
	ok, err := s.validateIdempotentKey(ctx, idempotentKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrDuplicateRequest
	}

	customer, err := s.customers.GetOrCreateCustomer(ctx, name, mobile)
	if err != nil {
		return nil, err
	}

	// Re-price against current stock; the preview the customer saw may be
	// stale.
	cart, err := s.pricing.PriceCart(ctx, lines, customer, redeemPoints)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, ErrEmptyCart
	}

	stateMu.Lock()
	defer stateMu.Unlock()

	pending, err := s.store.ListPendingRequests(ctx, customer.Key())
	if err != nil {
		return nil, fmt.Errorf("load pending requests: %w", err)
	}
	for i := range pending {
		if sameItems(pending[i].Items, cart.Items) && pending[i].GrandTotal == cart.GrandTotal {
			logger.Warn().Msgf("Duplicate submission for customer %s", customer.Key())
			return nil, ErrDuplicateRequest
		}
	}

	request := &entity.Request{
		ID:             uuid.NewString(),
		CustomerName:   name,
		CustomerMobile: mobile,
		Items:          cart.Items,
		Subtotal:       cart.Subtotal,
		OfferDiscount:  cart.OfferDiscount,
		TotalGST:       cart.TotalGST,
		PointsUsed:     cart.PointsUsed,
		PointsDiscount: cart.PointsDiscount,
		GrandTotal:     cart.GrandTotal,
		Status:         entity.StatusPending,
		CreatedAt:      time.Now(),
	}
	if err := s.store.SaveRequest(ctx, request); err != nil {
		return nil, fmt.Errorf("save request: %w", err)
	}

	s.publishOrderEvent(ctx, fmt.Sprintf("request-submitted-%s", request.ID), request)
	return request, nil
}

// ApproveRequest turns a pending request into a bill: re-checks points,
// deducts them, decrements stock, accrues earned points, persists the bill
// and corrects the customer's other pending requests. Once the request and
// customer are found the approval always completes; drift in points or stock
// is corrected in place and reported in the returned warnings.
func (s *OrderService) ApproveRequest(ctx context.Context, requestID string) (*entity.Bill, []string, error) {
	stateMu.Lock()
	defer stateMu.Unlock()

	request, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, nil, fmt.Errorf("load request: %w", err)
	}
	if request == nil || request.Status != entity.StatusPending {
		return nil, nil, ErrRequestNotFound
	}

	customer, err := s.store.GetCustomer(ctx, request.CustomerKey())
	if err != nil {
		return nil, nil, fmt.Errorf("load customer: %w", err)
	}
	if customer == nil {
		return nil, nil, ErrCustomerNotFound
	}

	var warnings []string

	// Points re-check: another approval may have spent the balance the
	// request was priced against. Degrade to no redemption, never fail.
	pointsUsed := request.PointsUsed
	pointsDiscount := request.PointsDiscount
	if customer.Points < pointsUsed {
		logger.Warn().Msgf("Customer %s has %d points, request %s wanted %d; dropping redemption",
			customer.Key(), customer.Points, request.ID, pointsUsed)
		warnings = append(warnings, fmt.Sprintf("%s: customer has %d points, request assumed %d; redemption removed", WarnPointsAdjusted, customer.Points, pointsUsed))
		pointsUsed = 0
		pointsDiscount = 0
	}
	customer.Points -= pointsUsed

	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load products: %w", err)
	}
	byID := make(map[string]*entity.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	// Decrement stock, clamping lines whose stock dropped since submission.
	items := make([]entity.PricedItem, 0, len(request.Items))
	for _, item := range request.Items {
		product := byID[item.ProductID]
		available := 0
		if product != nil {
			available = product.Stock
		}
		if item.Quantity > available {
			logger.Warn().Msgf("Stock for %s dropped to %d, request %s wanted %d; clamping",
				item.ProductID, available, request.ID, item.Quantity)
			warnings = append(warnings, fmt.Sprintf("%s: %s has %d in stock, billed quantity reduced from %d", WarnInsufficientStock, item.Name, available, item.Quantity))
			item = reclampItem(item, available)
		}
		if product != nil {
			product.Stock -= item.Quantity
		}
		items = append(items, item)
	}
	if err := s.store.SaveProducts(ctx, products); err != nil {
		return nil, nil, fmt.Errorf("save products: %w", err)
	}

	// Rebuild aggregates from the (possibly clamped) lines.
	var subtotal, offerDiscount, totalGST float64
	for _, item := range items {
		subtotal += item.UnitPrice * float64(item.Quantity)
		offerDiscount += item.Discount
		totalGST += item.GST
	}
	grandTotal := math.Max(0, subtotal-offerDiscount+totalGST-pointsDiscount)

	pointsEarned := int(math.Floor(grandTotal / s.cfg.PointsRatio))
	customer.Points += pointsEarned

	bill := &entity.Bill{
		BillNumber:     s.nextBillNumber(),
		RequestID:      request.ID,
		CustomerName:   request.CustomerName,
		CustomerMobile: request.CustomerMobile,
		Items:          items,
		Subtotal:       subtotal,
		OfferDiscount:  offerDiscount,
		TotalGST:       totalGST,
		PointsUsed:     pointsUsed,
		PointsDiscount: pointsDiscount,
		GrandTotal:     grandTotal,
		PointsEarned:   pointsEarned,
		Status:         entity.StatusApproved,
		CreatedAt:      request.CreatedAt,
		ApprovedAt:     time.Now(),
	}
	customer.BillHistory = append(customer.BillHistory, bill.BillNumber)

	if err := s.store.SaveBill(ctx, bill); err != nil {
		return nil, nil, fmt.Errorf("save bill: %w", err)
	}
	if err := s.store.SaveCustomer(ctx, customer); err != nil {
		return nil, nil, fmt.Errorf("save customer: %w", err)
	}
	if err := s.store.DeleteRequest(ctx, request.ID); err != nil {
		return nil, nil, fmt.Errorf("delete request: %w", err)
	}

	if err := s.cascadeCorrection(ctx, customer); err != nil {
		return nil, nil, err
	}

	s.publishOrderEvent(ctx, fmt.Sprintf("bill-approved-%s", bill.BillNumber), bill)
	return bill, warnings, nil
}

// RejectRequest discards a pending request with no effect on stock or points.
func (s *OrderService) RejectRequest(ctx context.Context, requestID string) error {
	stateMu.Lock()
	defer stateMu.Unlock()

	request, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return fmt.Errorf("load request: %w", err)
	}
	if request == nil || request.Status != entity.StatusPending {
		return ErrRequestNotFound
	}
	if err := s.store.DeleteRequest(ctx, requestID); err != nil {
		return fmt.Errorf("delete request: %w", err)
	}

	request.Status = entity.StatusRejected
	s.publishOrderEvent(ctx, fmt.Sprintf("request-rejected-%s", request.ID), request)
	return nil
}

// PendingRequests lists the pending set, optionally for one customer.
func (s *OrderService) PendingRequests(ctx context.Context, name, mobile string) ([]entity.Request, error) {
	key := ""
	if name != "" || mobile != "" {
		key = entity.IdentityKey(name, mobile)
	}
	return s.store.ListPendingRequests(ctx, key)
}

// Bills lists all bills, for the retailer dashboard.
func (s *OrderService) Bills(ctx context.Context) ([]entity.Bill, error) {
	return s.store.ListBills(ctx, "")
}

// cascadeCorrection re-checks every other pending request of the customer:
// their point redemptions were priced against a balance that just changed,
// so each is re-clamped to the new balance and its grand total adjusted. A
// customer can never redeem more points across pending requests than they
// hold at approval time.
func (s *OrderService) cascadeCorrection(ctx context.Context, customer *entity.Customer) error {
	pending, err := s.store.ListPendingRequests(ctx, customer.Key())
	if err != nil {
		return fmt.Errorf("load pending requests: %w", err)
	}
	for i := range pending {
		r := pending[i]
		if r.PointsUsed <= customer.Points {
			continue
		}
		newUsed := customer.Points
		released := float64(r.PointsUsed-newUsed) * s.cfg.PointsValue
		r.PointsUsed = newUsed
		r.PointsDiscount = float64(newUsed) * s.cfg.PointsValue
		r.GrandTotal += released
		logger.Warn().Msgf("Corrected pending request %s for %s: points %d, total up by %.2f",
			r.ID, customer.Key(), newUsed, released)
		if err := s.store.SaveRequest(ctx, &r); err != nil {
			return fmt.Errorf("save corrected request: %w", err)
		}
	}
	return nil
}

// reclampItem rescales a priced line to a smaller quantity. The offer
// discount is scaled proportionally and GST recomputed from the effective
// per-line rate, so the clamped line stays internally consistent.
func reclampItem(item entity.PricedItem, qty int) entity.PricedItem {
	if qty < 0 {
		qty = 0
	}
	oldSubtotal := item.UnitPrice * float64(item.Quantity)
	newSubtotal := item.UnitPrice * float64(qty)

	discount := 0.0
	if oldSubtotal > 0 {
		discount = item.Discount * newSubtotal / oldSubtotal
	}
	gst := 0.0
	if oldSubtotal-item.Discount > 0 {
		rate := item.GST / (oldSubtotal - item.Discount)
		gst = (newSubtotal - discount) * rate
	}

	item.Quantity = qty
	item.Discount = discount
	item.GST = gst
	item.LineTotal = newSubtotal - discount + gst
	return item
}

func sameItems(a, b []entity.PricedItem) bool {
	if len(a) != len(b) {
		return false
	}
	quantities := make(map[string]int, len(a))
	for _, it := range a {
		quantities[it.ProductID] += it.Quantity
	}
	for _, it := range b {
		quantities[it.ProductID] -= it.Quantity
	}
	for _, q := range quantities {
		if q != 0 {
			return false
		}
	}
	return true
}

func (s *OrderService) nextBillNumber() string {
	seq := atomic.AddUint32(&s.billSeq, 1)
	return fmt.Sprintf("B%d-%03d", time.Now().UnixMilli(), seq)
}

func (s *OrderService) publishOrderEvent(ctx context.Context, key string, payload interface{}) {
	if s.kafkaWriter == nil {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		logger.Error().Err(err).Msg("Error marshalling order event")
		return
	}
	msg := kafka.Message{
		Key:   []byte(key),
		Value: raw,
	}
	if err := s.kafkaWriter.WriteMessages(ctx, msg); err != nil {
		logger.Error().Err(err).Msgf("Error publishing order event %s", key)
	}
}

// validateIdempotentKey consumes the caller-supplied Idempotent-Key via
// redis with a 24h TTL. No key or no redis means the guard is skipped; the
// content-based duplicate check in SubmitRequest still applies.
func (s *OrderService) validateIdempotentKey(ctx context.Context, key string) (bool, error) {
	if s.rdb == nil || key == "" {
		return true, nil
	}
	redisKey := fmt.Sprintf("idempotent-key:%s", key)
	val, err := s.rdb.Get(ctx, redisKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, err
	}
	if val != "" {
		return false, nil
	}
	if err := s.rdb.Set(ctx, redisKey, "exists", 24*time.Hour).Err(); err != nil {
		return false, err
	}
	return true, nil
}
