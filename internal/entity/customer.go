package entity

import "strings"

// IdentityKey derives the customer record key from a name and mobile pair.
// Name and mobile together define identity: changing either yields a new
// customer record. Every lookup and write must go through this function so a
// customer's history never fragments over trimming or case differences.
func IdentityKey(name, mobile string) string {
	var digits strings.Builder
	for _, r := range mobile {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	return strings.ToLower(strings.TrimSpace(name)) + "_" + digits.String()
}

type Customer struct {
	Name        string   `json:"name"`
	Mobile      string   `json:"mobile"`
	Points      int      `json:"points"`
	Wishlist    []string `json:"wishlist"`
	BillHistory []string `json:"bill_history"` // bill numbers, oldest first
}

// Key returns the customer's identity key.
func (c *Customer) Key() string {
	return IdentityKey(c.Name, c.Mobile)
}

// HasWishlisted reports whether the product is on the customer's wishlist.
func (c *Customer) HasWishlisted(productID string) bool {
	for _, id := range c.Wishlist {
		if id == productID {
			return true
		}
	}
	return false
}
