package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"shop-billing/internal/entity"
)

// MySQLStore implements Store on a MySQL database. Collection-valued fields
// that the services never query by (price tiers, wishlists, offer product
// lists) are stored as JSON text; request and bill line items get their own
// tables.
type MySQLStore struct {
	db *sql.DB
}

func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

func marshalJSON(v interface{}) string {
	raw, _ := json.Marshal(v)
	return string(raw)
}

func scanProduct(scan func(dest ...interface{}) error) (*entity.Product, error) {
	var p entity.Product
	var prices string
	err := scan(&p.ID, &p.Name, &p.Brand, &p.Category, &p.Stock, &p.GSTRate, &prices, &p.MeasureValue, &p.MeasureUnit, &p.Image)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(prices), &p.Prices); err != nil {
		return nil, fmt.Errorf("decode price tiers for %s: %w", p.ID, err)
	}
	return &p, nil
}

func (s *MySQLStore) GetProduct(ctx context.Context, id string) (*entity.Product, error) {
	query := `SELECT id, name, brand, category, stock, gst_rate, prices, measure_value, measure_unit, image FROM products WHERE id = ?`
	row := s.db.QueryRowContext(ctx, query, id)
	p, err := scanProduct(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func (s *MySQLStore) ListProducts(ctx context.Context) ([]entity.Product, error) {
	query := `SELECT id, name, brand, category, stock, gst_rate, prices, measure_value, measure_unit, image FROM products`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []entity.Product
	for rows.Next() {
		p, err := scanProduct(rows.Scan)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// SaveProducts swaps the whole collection, mirroring the file store's
// whole-snapshot semantics.
func (s *MySQLStore) SaveProducts(ctx context.Context, products []entity.Product) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM products`); err != nil {
		tx.Rollback()
		return err
	}

	if len(products) > 0 {
		query := `INSERT INTO products (id, name, brand, category, stock, gst_rate, prices, measure_value, measure_unit, image) VALUES `
		var values []interface{}
		for _, p := range products {
			query += "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?),"
			values = append(values, p.ID, p.Name, p.Brand, p.Category, p.Stock, p.GSTRate, marshalJSON(p.Prices), p.MeasureValue, p.MeasureUnit, p.Image)
		}
		query = query[:len(query)-1]
		if _, err := tx.ExecContext(ctx, query, values...); err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

func (s *MySQLStore) ListOffers(ctx context.Context) ([]entity.Offer, error) {
	query := `SELECT id, name, type, discount_value, scope, category, product_ids, min_quantity, min_amount, buy_quantity, get_quantity, active, valid_from, valid_to FROM offers`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var offers []entity.Offer
	for rows.Next() {
		var o entity.Offer
		var productIDs string
		var validFrom, validTo sql.NullTime
		err := rows.Scan(&o.ID, &o.Name, &o.Type, &o.DiscountValue, &o.Scope, &o.Category, &productIDs, &o.MinQuantity, &o.MinAmount, &o.BuyQuantity, &o.GetQuantity, &o.Active, &validFrom, &validTo)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(productIDs), &o.ProductIDs); err != nil {
			return nil, fmt.Errorf("decode product ids for offer %s: %w", o.ID, err)
		}
		if validFrom.Valid {
			o.ValidFrom = &validFrom.Time
		}
		if validTo.Valid {
			o.ValidTo = &validTo.Time
		}
		offers = append(offers, o)
	}
	return offers, rows.Err()
}

func (s *MySQLStore) ActiveOffers(ctx context.Context, now time.Time) ([]entity.Offer, error) {
	offers, err := s.ListOffers(ctx)
	if err != nil {
		return nil, err
	}
	var active []entity.Offer
	for i := range offers {
		if offers[i].ActiveAt(now) {
			active = append(active, offers[i])
		}
	}
	return active, nil
}

func (s *MySQLStore) SaveOffers(ctx context.Context, offers []entity.Offer) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM offers`); err != nil {
		tx.Rollback()
		return err
	}

	query := `INSERT INTO offers (id, name, type, discount_value, scope, category, product_ids, min_quantity, min_amount, buy_quantity, get_quantity, active, valid_from, valid_to) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for _, o := range offers {
		var validFrom, validTo interface{}
		if o.ValidFrom != nil {
			validFrom = *o.ValidFrom
		}
		if o.ValidTo != nil {
			validTo = *o.ValidTo
		}
		if _, err := tx.ExecContext(ctx, query, o.ID, o.Name, o.Type, o.DiscountValue, o.Scope, o.Category, marshalJSON(o.ProductIDs), o.MinQuantity, o.MinAmount, o.BuyQuantity, o.GetQuantity, o.Active, validFrom, validTo); err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

func (s *MySQLStore) GetCustomer(ctx context.Context, key string) (*entity.Customer, error) {
	query := `SELECT name, mobile, points, wishlist, bill_history FROM customers WHERE identity_key = ?`
	var c entity.Customer
	var wishlist, billHistory string
	err := s.db.QueryRowContext(ctx, query, key).Scan(&c.Name, &c.Mobile, &c.Points, &wishlist, &billHistory)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(wishlist), &c.Wishlist); err != nil {
		return nil, fmt.Errorf("decode wishlist for %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(billHistory), &c.BillHistory); err != nil {
		return nil, fmt.Errorf("decode bill history for %s: %w", key, err)
	}
	return &c, nil
}

func (s *MySQLStore) ListCustomers(ctx context.Context) ([]entity.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, mobile, points, wishlist, bill_history FROM customers`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []entity.Customer
	for rows.Next() {
		var c entity.Customer
		var wishlist, billHistory string
		if err := rows.Scan(&c.Name, &c.Mobile, &c.Points, &wishlist, &billHistory); err != nil {
			return nil, err
		}
		json.Unmarshal([]byte(wishlist), &c.Wishlist)
		json.Unmarshal([]byte(billHistory), &c.BillHistory)
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (s *MySQLStore) SaveCustomer(ctx context.Context, customer *entity.Customer) error {
	query := `
		INSERT INTO customers (identity_key, name, mobile, points, wishlist, bill_history)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE name = VALUES(name), mobile = VALUES(mobile), points = VALUES(points), wishlist = VALUES(wishlist), bill_history = VALUES(bill_history)`
	_, err := s.db.ExecContext(ctx, query, customer.Key(), customer.Name, customer.Mobile, customer.Points, marshalJSON(customer.Wishlist), marshalJSON(customer.BillHistory))
	return err
}

func (s *MySQLStore) requestItems(ctx context.Context, requestID string) ([]entity.PricedItem, error) {
	query := `SELECT product_id, name, quantity, unit_price, discount, gst, line_total FROM request_items WHERE request_id = ?`
	rows, err := s.db.QueryContext(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []entity.PricedItem
	for rows.Next() {
		var it entity.PricedItem
		if err := rows.Scan(&it.ProductID, &it.Name, &it.Quantity, &it.UnitPrice, &it.Discount, &it.GST, &it.LineTotal); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *MySQLStore) GetRequest(ctx context.Context, id string) (*entity.Request, error) {
	query := `SELECT id, customer_name, customer_mobile, subtotal, offer_discount, total_gst, points_used, points_discount, grand_total, status, created_at FROM requests WHERE id = ?`
	var r entity.Request
	err := s.db.QueryRowContext(ctx, query, id).Scan(&r.ID, &r.CustomerName, &r.CustomerMobile, &r.Subtotal, &r.OfferDiscount, &r.TotalGST, &r.PointsUsed, &r.PointsDiscount, &r.GrandTotal, &r.Status, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.Items, err = s.requestItems(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *MySQLStore) ListPendingRequests(ctx context.Context, customerKey string) ([]entity.Request, error) {
	query := `SELECT id, customer_name, customer_mobile, subtotal, offer_discount, total_gst, points_used, points_discount, grand_total, status, created_at FROM requests WHERE status = ?`
	args := []interface{}{entity.StatusPending}
	if customerKey != "" {
		query += ` AND customer_key = ?`
		args = append(args, customerKey)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []entity.Request
	for rows.Next() {
		var r entity.Request
		err := rows.Scan(&r.ID, &r.CustomerName, &r.CustomerMobile, &r.Subtotal, &r.OfferDiscount, &r.TotalGST, &r.PointsUsed, &r.PointsDiscount, &r.GrandTotal, &r.Status, &r.CreatedAt)
		if err != nil {
			return nil, err
		}
		requests = append(requests, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range requests {
		requests[i].Items, err = s.requestItems(ctx, requests[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return requests, nil
}

func (s *MySQLStore) SaveRequest(ctx context.Context, request *entity.Request) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO requests (id, customer_name, customer_mobile, customer_key, subtotal, offer_discount, total_gst, points_used, points_discount, grand_total, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE points_used = VALUES(points_used), points_discount = VALUES(points_discount), grand_total = VALUES(grand_total), status = VALUES(status)`
	_, err = tx.ExecContext(ctx, query, request.ID, request.CustomerName, request.CustomerMobile, request.CustomerKey(), request.Subtotal, request.OfferDiscount, request.TotalGST, request.PointsUsed, request.PointsDiscount, request.GrandTotal, request.Status, request.CreatedAt)
	if err != nil {
		tx.Rollback()
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM request_items WHERE request_id = ?`, request.ID); err != nil {
		tx.Rollback()
		return err
	}

	if len(request.Items) > 0 {
		itemQuery := `INSERT INTO request_items (request_id, product_id, name, quantity, unit_price, discount, gst, line_total) VALUES `
		var values []interface{}
		for _, it := range request.Items {
			itemQuery += "(?, ?, ?, ?, ?, ?, ?, ?),"
			values = append(values, request.ID, it.ProductID, it.Name, it.Quantity, it.UnitPrice, it.Discount, it.GST, it.LineTotal)
		}
		itemQuery = itemQuery[:len(itemQuery)-1]
		if _, err := tx.ExecContext(ctx, itemQuery, values...); err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

func (s *MySQLStore) DeleteRequest(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM request_items WHERE request_id = ?`, id); err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM requests WHERE id = ?`, id); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *MySQLStore) SaveBill(ctx context.Context, bill *entity.Bill) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO bills (bill_number, request_id, customer_name, customer_mobile, customer_key, subtotal, offer_discount, total_gst, points_used, points_discount, grand_total, points_earned, status, created_at, approved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, query, bill.BillNumber, bill.RequestID, bill.CustomerName, bill.CustomerMobile, bill.CustomerKey(), bill.Subtotal, bill.OfferDiscount, bill.TotalGST, bill.PointsUsed, bill.PointsDiscount, bill.GrandTotal, bill.PointsEarned, bill.Status, bill.CreatedAt, bill.ApprovedAt)
	if err != nil {
		tx.Rollback()
		return err
	}

	if len(bill.Items) > 0 {
		itemQuery := `INSERT INTO bill_items (bill_number, product_id, name, quantity, unit_price, discount, gst, line_total) VALUES `
		var values []interface{}
		for _, it := range bill.Items {
			itemQuery += "(?, ?, ?, ?, ?, ?, ?, ?),"
			values = append(values, bill.BillNumber, it.ProductID, it.Name, it.Quantity, it.UnitPrice, it.Discount, it.GST, it.LineTotal)
		}
		itemQuery = itemQuery[:len(itemQuery)-1]
		if _, err := tx.ExecContext(ctx, itemQuery, values...); err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

func (s *MySQLStore) ListBills(ctx context.Context, customerKey string) ([]entity.Bill, error) {
	query := `SELECT bill_number, request_id, customer_name, customer_mobile, subtotal, offer_discount, total_gst, points_used, points_discount, grand_total, points_earned, status, created_at, approved_at FROM bills`
	args := []interface{}{}
	if customerKey != "" {
		query += ` WHERE customer_key = ?`
		args = append(args, customerKey)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bills []entity.Bill
	for rows.Next() {
		var b entity.Bill
		err := rows.Scan(&b.BillNumber, &b.RequestID, &b.CustomerName, &b.CustomerMobile, &b.Subtotal, &b.OfferDiscount, &b.TotalGST, &b.PointsUsed, &b.PointsDiscount, &b.GrandTotal, &b.PointsEarned, &b.Status, &b.CreatedAt, &b.ApprovedAt)
		if err != nil {
			return nil, err
		}
		bills = append(bills, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	itemQuery := `SELECT product_id, name, quantity, unit_price, discount, gst, line_total FROM bill_items WHERE bill_number = ?`
	for i := range bills {
		itemRows, err := s.db.QueryContext(ctx, itemQuery, bills[i].BillNumber)
		if err != nil {
			return nil, err
		}
		for itemRows.Next() {
			var it entity.PricedItem
			if err := itemRows.Scan(&it.ProductID, &it.Name, &it.Quantity, &it.UnitPrice, &it.Discount, &it.GST, &it.LineTotal); err != nil {
				itemRows.Close()
				return nil, err
			}
			bills[i].Items = append(bills[i].Items, it)
		}
		if err := itemRows.Err(); err != nil {
			itemRows.Close()
			return nil, err
		}
		itemRows.Close()
	}
	return bills, nil
}

func (s *MySQLStore) GetShop(ctx context.Context) (*entity.Shop, error) {
	var shop entity.Shop
	err := s.db.QueryRowContext(ctx, `SELECT name, address, phone, email, gstin FROM shop WHERE id = 1`).Scan(&shop.Name, &shop.Address, &shop.Phone, &shop.Email, &shop.GSTIN)
	if err == sql.ErrNoRows {
		return &entity.Shop{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &shop, nil
}

func (s *MySQLStore) SaveShop(ctx context.Context, shop *entity.Shop) error {
	query := `
		INSERT INTO shop (id, name, address, phone, email, gstin)
		VALUES (1, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE name = VALUES(name), address = VALUES(address), phone = VALUES(phone), email = VALUES(email), gstin = VALUES(gstin)`
	_, err := s.db.ExecContext(ctx, query, shop.Name, shop.Address, shop.Phone, shop.Email, shop.GSTIN)
	return err
}
