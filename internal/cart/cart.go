package cart

import (
	"errors"
	"fmt"
	"sync"

	"github.com/freshmart/storefront/internal/catalog"
	"github.com/freshmart/storefront/internal/money"
)

// ErrInvalidQuantity rejects add requests with a non-positive quantity.
var ErrInvalidQuantity = errors.New("cart: quantity must be at least 1")

// UnavailableError rejects adding a product already known to be unavailable.
type UnavailableError struct {
	Name string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s is currently unavailable and cannot be added to cart", e.Name)
}

// Item is one cart line: a product snapshot plus the requested quantity.
// Quantity is always >= 1; an update that would drop it to zero removes the
// line instead.
type Item struct {
	Product  catalog.Product `json:"product"`
	Quantity int64           `json:"quantity"`
}

// Store is the session's mutable cart. All mutation goes through its methods;
// nothing else may touch the line list. Lines keep insertion order and are
// unique per product id.
type Store struct {
	mu    sync.Mutex
	items []Item
}

func NewStore() *Store {
	return &Store{}
}

// Add puts qty units of p into the cart. Adding a product already present
// accumulates onto its existing line. Unavailable products are rejected with
// no state change.
func (s *Store) Add(p catalog.Product, qty int64) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	if !p.IsAvailable {
		return &UnavailableError{Name: p.Name}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].Product.ID == p.ID {
			s.items[i].Quantity += qty
			return nil
		}
	}

	s.items = append(s.items, Item{Product: p, Quantity: qty})
	return nil
}

// UpdateQuantity replaces the quantity of the line for productID, keeping its
// position. A quantity <= 0 removes the line. Unknown ids are a no-op.
func (s *Store) UpdateQuantity(productID, qty int64) {
	if qty <= 0 {
		s.Remove(productID)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].Product.ID == productID {
			s.items[i].Quantity = qty
			return
		}
	}
}

// Remove deletes the line for productID if present.
func (s *Store) Remove(productID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].Product.ID == productID {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return
		}
	}
}

// Clear empties the cart unconditionally.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
}

// Items returns a copy of the current lines in insertion order.
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := make([]Item, len(s.items))
	copy(cp, s.items)
	return cp
}

// ItemCount is the total number of units across all lines.
func (s *Store) ItemCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, it := range s.items {
		n += it.Quantity
	}
	return n
}

// Subtotal recomputes the price sum from the current lines on every call, so
// it can never drift from the line list.
func (s *Store) Subtotal() money.Amount {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total money.Amount
	for _, it := range s.items {
		total += it.Product.Price.Mul(it.Quantity)
	}
	return total
}

// Total equals Subtotal; no tax or shipping is modeled.
func (s *Store) Total() money.Amount {
	return s.Subtotal()
}
