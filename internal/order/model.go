package order

import (
	"time"

	"github.com/freshmart/storefront/internal/money"
)

// Item is a purchased line as echoed back by the backend. It is a snapshot of
// the product at purchase time, not a live reference.
type Item struct {
	ProductID   int64        `json:"productId"`
	Name        string       `json:"name"`
	Price       money.Amount `json:"price"`
	Quantity    int64        `json:"quantity"`
	IsAvailable bool         `json:"isAvailable"`
	ImageURL    string       `json:"imageUrl,omitempty"`
	Vendor      string       `json:"vendor,omitempty"`
}

// Confirmation is the backend's authoritative record of a placed order.
// Immutable once received.
type Confirmation struct {
	OrderID       int64        `json:"orderId"`
	Status        Status       `json:"status"`
	Customer      string       `json:"customer"`
	PaymentMethod string       `json:"paymentMethod"`
	TotalAmount   money.Amount `json:"totalAmount"`
	Items         []Item       `json:"items"`
	Message       string       `json:"message"`
	CreatedAt     time.Time    `json:"createdAt"`
}
