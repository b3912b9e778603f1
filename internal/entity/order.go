package entity

import "time"

// Request statuses.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// CartLine is a customer's raw cart entry, held per session only.
type CartLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// PricedItem is one fully priced cart line with name and unit price snapshots.
type PricedItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Discount  float64 `json:"discount"`
	GST       float64 `json:"gst"`
	LineTotal float64 `json:"line_total"`
}

// PricedCart is the Pricing Engine output: itemized lines plus aggregates.
type PricedCart struct {
	Items          []PricedItem `json:"items"`
	Subtotal       float64      `json:"subtotal"`
	OfferDiscount  float64      `json:"offer_discount"`
	TotalGST       float64      `json:"total_gst"`
	PointsUsed     int          `json:"points_used"`
	PointsDiscount float64      `json:"points_discount"`
	GrandTotal     float64      `json:"grand_total"`
}

// Request is a submitted, not yet approved order. It lives in the pending set
// until the retailer approves (becomes a Bill) or rejects it.
type Request struct {
	ID             string       `json:"id"`
	CustomerName   string       `json:"customer_name"`
	CustomerMobile string       `json:"customer_mobile"`
	Items          []PricedItem `json:"items"`
	Subtotal       float64      `json:"subtotal"`
	OfferDiscount  float64      `json:"offer_discount"`
	TotalGST       float64      `json:"total_gst"`
	PointsUsed     int          `json:"points_used"`
	PointsDiscount float64      `json:"points_discount"`
	GrandTotal     float64      `json:"grand_total"`
	Status         string       `json:"status"`
	CreatedAt      time.Time    `json:"created_at"`
}

// CustomerKey returns the identity key of the request's customer.
func (r *Request) CustomerKey() string {
	return IdentityKey(r.CustomerName, r.CustomerMobile)
}

// Bill is an approved request. Immutable once created.
type Bill struct {
	BillNumber     string       `json:"bill_number"`
	RequestID      string       `json:"request_id"`
	CustomerName   string       `json:"customer_name"`
	CustomerMobile string       `json:"customer_mobile"`
	Items          []PricedItem `json:"items"`
	Subtotal       float64      `json:"subtotal"`
	OfferDiscount  float64      `json:"offer_discount"`
	TotalGST       float64      `json:"total_gst"`
	PointsUsed     int          `json:"points_used"`
	PointsDiscount float64      `json:"points_discount"`
	GrandTotal     float64      `json:"grand_total"`
	PointsEarned   int          `json:"points_earned"`
	Status         string       `json:"status"`
	CreatedAt      time.Time    `json:"created_at"`
	ApprovedAt     time.Time    `json:"approved_at"`
}

// CustomerKey returns the identity key of the bill's customer.
func (b *Bill) CustomerKey() string {
	return IdentityKey(b.CustomerName, b.CustomerMobile)
}
