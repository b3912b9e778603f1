package migrations

import (
	"database/sql"
	"time"
)

var tables = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id VARCHAR(64) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		brand VARCHAR(255) NOT NULL,
		category VARCHAR(255) NOT NULL,
		stock INT NOT NULL,
		gst_rate DOUBLE NOT NULL,
		prices TEXT NOT NULL,
		measure_value DOUBLE NOT NULL,
		measure_unit VARCHAR(32) NOT NULL,
		image TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS offers (
		id VARCHAR(64) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		type VARCHAR(32) NOT NULL,
		discount_value DOUBLE NOT NULL,
		scope VARCHAR(32) NOT NULL,
		category VARCHAR(255) NOT NULL,
		product_ids TEXT NOT NULL,
		min_quantity INT NOT NULL,
		min_amount DOUBLE NOT NULL,
		buy_quantity INT NOT NULL,
		get_quantity INT NOT NULL,
		active BOOLEAN NOT NULL,
		valid_from DATETIME NULL,
		valid_to DATETIME NULL
	);`,
	`CREATE TABLE IF NOT EXISTS customers (
		identity_key VARCHAR(255) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		mobile VARCHAR(32) NOT NULL,
		points INT NOT NULL,
		wishlist TEXT NOT NULL,
		bill_history TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS requests (
		id VARCHAR(64) PRIMARY KEY,
		customer_name VARCHAR(255) NOT NULL,
		customer_mobile VARCHAR(32) NOT NULL,
		customer_key VARCHAR(255) NOT NULL,
		subtotal DOUBLE NOT NULL,
		offer_discount DOUBLE NOT NULL,
		total_gst DOUBLE NOT NULL,
		points_used INT NOT NULL,
		points_discount DOUBLE NOT NULL,
		grand_total DOUBLE NOT NULL,
		status VARCHAR(20) NOT NULL,
		created_at DATETIME NOT NULL,
		INDEX idx_requests_customer (customer_key)
	);`,
	`CREATE TABLE IF NOT EXISTS request_items (
		id INT AUTO_INCREMENT PRIMARY KEY,
		request_id VARCHAR(64) NOT NULL,
		product_id VARCHAR(64) NOT NULL,
		name VARCHAR(255) NOT NULL,
		quantity INT NOT NULL,
		unit_price DOUBLE NOT NULL,
		discount DOUBLE NOT NULL,
		gst DOUBLE NOT NULL,
		line_total DOUBLE NOT NULL,
		INDEX idx_request_items_request (request_id)
	);`,
	`CREATE TABLE IF NOT EXISTS bills (
		bill_number VARCHAR(64) PRIMARY KEY,
		request_id VARCHAR(64) NOT NULL,
		customer_name VARCHAR(255) NOT NULL,
		customer_mobile VARCHAR(32) NOT NULL,
		customer_key VARCHAR(255) NOT NULL,
		subtotal DOUBLE NOT NULL,
		offer_discount DOUBLE NOT NULL,
		total_gst DOUBLE NOT NULL,
		points_used INT NOT NULL,
		points_discount DOUBLE NOT NULL,
		grand_total DOUBLE NOT NULL,
		points_earned INT NOT NULL,
		status VARCHAR(20) NOT NULL,
		created_at DATETIME NOT NULL,
		approved_at DATETIME NOT NULL,
		INDEX idx_bills_customer (customer_key)
	);`,
	`CREATE TABLE IF NOT EXISTS bill_items (
		id INT AUTO_INCREMENT PRIMARY KEY,
		bill_number VARCHAR(64) NOT NULL,
		product_id VARCHAR(64) NOT NULL,
		name VARCHAR(255) NOT NULL,
		quantity INT NOT NULL,
		unit_price DOUBLE NOT NULL,
		discount DOUBLE NOT NULL,
		gst DOUBLE NOT NULL,
		line_total DOUBLE NOT NULL,
		INDEX idx_bill_items_bill (bill_number)
	);`,
	`CREATE TABLE IF NOT EXISTS shop (
		id INT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		address TEXT NOT NULL,
		phone VARCHAR(32) NOT NULL,
		email VARCHAR(255) NOT NULL,
		gstin VARCHAR(32) NOT NULL
	);`,
}

// AutoMigrate creates all tables if they do not exist, retrying each
// statement in case the database is still starting up.
func AutoMigrate(retries int, db *sql.DB) error {
	for _, query := range tables {
		_, err := db.Exec(query)
		for i := 0; err != nil && i < retries; i++ {
			time.Sleep(1 * time.Second)
			_, err = db.Exec(query)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
