package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentityKey(t *testing.T) {
	assert.Equal(t, "ramesh_9876543210", IdentityKey("Ramesh", "9876543210"))
	assert.Equal(t, "ramesh_9876543210", IdentityKey("  Ramesh  ", "98765 43210"))
	assert.Equal(t, "ramesh_9876543210", IdentityKey("RAMESH", "+91-not-digits-9876543210"[3:]))
}

func TestIdentityKey_StripsNonDigits(t *testing.T) {
	assert.Equal(t, "a_911234", IdentityKey("A", "+91 12-34"))
}

func TestIdentityKey_NameChangesIdentity(t *testing.T) {
	// name+mobile together are the identity; a different name is a
	// different customer record
	assert.NotEqual(t, IdentityKey("Ramesh", "9876543210"), IdentityKey("Ramesh K", "9876543210"))
}

func TestCustomerKey(t *testing.T) {
	c := Customer{Name: "Sita Devi", Mobile: "91234 56789"}
	assert.Equal(t, "sita devi_9123456789", c.Key())
}

func TestHasWishlisted(t *testing.T) {
	c := Customer{Wishlist: []string{"p1", "p2"}}
	assert.True(t, c.HasWishlisted("p2"))
	assert.False(t, c.HasWishlisted("p3"))
}
