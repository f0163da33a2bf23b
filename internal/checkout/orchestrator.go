package checkout

import (
	"context"
	"log"
	"sync"

	"github.com/freshmart/storefront/internal/cart"
	"github.com/freshmart/storefront/internal/catalog"
	"github.com/freshmart/storefront/internal/order"
)

// State of the current or most recent checkout attempt.
type State string

const (
	StateIdle        State = "idle"
	StateReconciling State = "reconciling"
	StateSubmitting  State = "submitting"
	StateConfirmed   State = "confirmed"
	StateFailed      State = "failed"
)

// ProductFetcher supplies fresh catalog truth for reconciliation.
type ProductFetcher interface {
	GetAllProducts(ctx context.Context) ([]catalog.Product, error)
}

// OrderPlacer submits sanitized cart lines to the backend's order placement.
type OrderPlacer interface {
	Checkout(ctx context.Context, lines []catalog.CheckoutLine, paymentMethod string) (*order.Confirmation, error)
}

// ConfirmationRecorder persists received confirmations for order history.
type ConfirmationRecorder interface {
	Save(ctx context.Context, conf *order.Confirmation) error
}

// ConfirmationPublisher announces a confirmed order to downstream consumers.
type ConfirmationPublisher interface {
	PublishOrderConfirmed(ctx context.Context, conf *order.Confirmation) error
}

// Orchestrator drives one session's cart through checkout:
//
//	Idle -> Reconciling -> Submitting -> Confirmed | Failed
//
// A single attempt is in flight at any time. Each attempt is one best-effort
// submission; retries are fresh attempts starting with a new reconciliation
// pass, because backend state may have moved again.
type Orchestrator struct {
	cart     *cart.Store
	products ProductFetcher
	orders   OrderPlacer
	receipts ConfirmationRecorder  // optional
	events   ConfirmationPublisher // optional
	logger   *log.Logger

	mu       sync.Mutex
	state    State
	inFlight bool
}

func NewOrchestrator(c *cart.Store, products ProductFetcher, orders OrderPlacer, logger *log.Logger) *Orchestrator {
	return &Orchestrator{
		cart:     c,
		products: products,
		orders:   orders,
		logger:   logger,
		state:    StateIdle,
	}
}

// WithRecorder adds best-effort receipt persistence after confirmation.
func (o *Orchestrator) WithRecorder(r ConfirmationRecorder) *Orchestrator {
	o.receipts = r
	return o
}

// WithPublisher adds best-effort event publishing after confirmation.
func (o *Orchestrator) WithPublisher(p ConfirmationPublisher) *Orchestrator {
	o.events = p
	return o
}

// State reports the state of the current or most recent attempt.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Checkout runs one attempt against the cart's current contents.
//
// Failure modes, all returned as values and all leaving the cart intact:
// ErrEmptyCart (no network call made), ErrInFlight (a concurrent attempt is
// running), *cart.UnavailableItemsError (reconciliation found stale lines),
// *Error (backend rejected or was unreachable). On success the cart is
// cleared and the backend's confirmation returned. If ctx is cancelled
// before the result is applied, the result is discarded and the cart stays
// as the customer left it.
func (o *Orchestrator) Checkout(ctx context.Context, paymentMethod string) (*order.Confirmation, error) {
	o.mu.Lock()
	if o.inFlight {
		o.mu.Unlock()
		return nil, ErrInFlight
	}

	items := o.cart.Items()
	if len(items) == 0 {
		o.mu.Unlock()
		return nil, ErrEmptyCart
	}

	o.inFlight = true
	o.state = StateReconciling
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.inFlight = false
		o.mu.Unlock()
	}()

	// Last-moment availability check against the full, freshly fetched
	// catalog. The cart keeps its own snapshots for display; only the
	// availability gate uses fresh truth.
	fresh, err := o.products.GetAllProducts(ctx)
	if err != nil {
		o.setState(StateFailed)
		return nil, &Error{Reason: "could not refresh product availability", Err: err}
	}

	if err := cart.Reconcile(items, fresh); err != nil {
		o.setState(StateFailed)
		return nil, err
	}

	o.setState(StateSubmitting)

	lines := make([]catalog.CheckoutLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, catalog.CheckoutLine{ProductID: it.Product.ID, Quantity: it.Quantity})
	}

	conf, err := o.orders.Checkout(ctx, lines, paymentMethod)
	if err != nil {
		o.setState(StateIdle)
		return nil, &Error{Reason: "order submission rejected", Err: err}
	}

	// Navigation-away cancels the attempt: never apply a late result to a
	// cart the customer may have edited since.
	if err := ctx.Err(); err != nil {
		o.setState(StateIdle)
		return nil, &Error{Reason: "attempt cancelled before confirmation applied", Err: err}
	}

	o.cart.Clear()
	o.setState(StateConfirmed)

	if o.receipts != nil {
		if err := o.receipts.Save(ctx, conf); err != nil {
			o.logger.Printf("record receipt for order %d: %v", conf.OrderID, err)
		}
	}
	if o.events != nil {
		if err := o.events.PublishOrderConfirmed(ctx, conf); err != nil {
			o.logger.Printf("publish OrderConfirmed for order %d: %v", conf.OrderID, err)
		}
	}

	return conf, nil
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}
