package cart

import (
	"fmt"
	"strings"

	"github.com/freshmart/storefront/internal/catalog"
)

// UnavailableItemsError reports the cart lines whose products are missing
// from or unavailable in the fresh catalog, by display name, so callers can
// tell the customer exactly what to remove.
type UnavailableItemsError struct {
	Names []string
}

func (e *UnavailableItemsError) Error() string {
	return fmt.Sprintf("the following items are no longer available: %s", strings.Join(e.Names, ", "))
}

// Reconcile validates cart lines against a freshly fetched product list.
// Cart snapshots can go stale between add-to-cart and checkout; the backend
// is the source of truth at the moment of commitment, so every line must
// resolve to a currently available product. The cart itself is never touched
// here — on failure the caller surfaces the offending names and lets the
// customer edit.
func Reconcile(items []Item, fresh []catalog.Product) error {
	byID := make(map[int64]catalog.Product, len(fresh))
	for _, p := range fresh {
		byID[p.ID] = p
	}

	var unavailable []string
	for _, it := range items {
		current, ok := byID[it.Product.ID]
		if !ok || !current.IsAvailable {
			unavailable = append(unavailable, it.Product.Name)
		}
	}

	if len(unavailable) > 0 {
		return &UnavailableItemsError{Names: unavailable}
	}
	return nil
}
