package catalog

import (
	"time"

	"github.com/freshmart/storefront/internal/money"
)

// Product as served by the backend catalog. Cart lines embed a copy taken at
// add-time, so a held Product can go stale relative to backend truth.
type Product struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Price       money.Amount `json:"price"`
	IsAvailable bool         `json:"isAvailable"`
	UnitLabel   string       `json:"unitLabel,omitempty"`
	Description string       `json:"description,omitempty"`
	ImageURL    string       `json:"imageUrl,omitempty"`
	Vendor      string       `json:"vendor,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// CheckoutLine is the sanitized (productId, quantity) pair submitted to the
// order-placement operation. Display data never crosses this boundary.
type CheckoutLine struct {
	ProductID int64 `json:"productId"`
	Quantity  int64 `json:"quantity"`
}

// NewProduct carries the fields of a product creation request.
type NewProduct struct {
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Price       money.Amount `json:"price"`
	UnitLabel   string       `json:"unitLabel,omitempty"`
	ImageURL    string       `json:"imageUrl,omitempty"`
	Vendor      string       `json:"vendor,omitempty"`
}
