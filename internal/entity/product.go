package entity

// PriceTier is one (quantity, price) pair on a product. Exactly one tier per
// product is marked default; its price is the unit price used for billing.
type PriceTier struct {
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
	IsDefault bool    `json:"is_default"`
}

type Product struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Brand        string      `json:"brand"`
	Category     string      `json:"category"`
	Stock        int         `json:"stock"`
	GSTRate      float64     `json:"gst_rate"` // percent; 0 falls back to the shop default
	Prices       []PriceTier `json:"prices"`
	MeasureValue float64     `json:"measure_value,omitempty"`
	MeasureUnit  string      `json:"measure_unit,omitempty"`
	Image        string      `json:"image,omitempty"`
}

// UnitPrice returns the default tier's price, or the first tier's price when
// no tier is marked default.
func (p *Product) UnitPrice() float64 {
	for _, t := range p.Prices {
		if t.IsDefault {
			return t.Price
		}
	}
	if len(p.Prices) > 0 {
		return p.Prices[0].Price
	}
	return 0
}

/*
MySQL schema (see migrations):

CREATE TABLE products (
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
);
*/
