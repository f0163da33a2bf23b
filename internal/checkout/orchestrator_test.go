package checkout

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/freshmart/storefront/internal/cart"
	"github.com/freshmart/storefront/internal/catalog"
	"github.com/freshmart/storefront/internal/money"
	"github.com/freshmart/storefront/internal/order"
)

type fakeFetcher struct {
	products []catalog.Product
	err      error
	calls    int
}

func (f *fakeFetcher) GetAllProducts(ctx context.Context) ([]catalog.Product, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.products, nil
}

type fakePlacer struct {
	conf  *order.Confirmation
	err   error
	calls int

	// block, when set, is received from before returning; lets tests hold
	// an attempt in the Submitting state.
	block chan struct{}
	// onCall runs before returning, with the submission context.
	onCall func(ctx context.Context)

	gotLines  []catalog.CheckoutLine
	gotMethod string
}

func (f *fakePlacer) Checkout(ctx context.Context, lines []catalog.CheckoutLine, paymentMethod string) (*order.Confirmation, error) {
	f.calls++
	f.gotLines = lines
	f.gotMethod = paymentMethod
	if f.block != nil {
		<-f.block
	}
	if f.onCall != nil {
		f.onCall(ctx)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.conf, nil
}

type fakeRecorder struct {
	saved []*order.Confirmation
	err   error
}

func (f *fakeRecorder) Save(ctx context.Context, conf *order.Confirmation) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, conf)
	return nil
}

type fakePublisher struct {
	published []*order.Confirmation
}

func (f *fakePublisher) PublishOrderConfirmed(ctx context.Context, conf *order.Confirmation) error {
	f.published = append(f.published, conf)
	return nil
}

func available(id int64, name string, price money.Amount) catalog.Product {
	return catalog.Product{ID: id, Name: name, Price: price, IsAvailable: true}
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestCheckoutEmptyCart(t *testing.T) {
	fetcher := &fakeFetcher{}
	placer := &fakePlacer{}
	o := NewOrchestrator(cart.NewStore(), fetcher, placer, testLogger())

	_, err := o.Checkout(context.Background(), "online")
	if !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
	if fetcher.calls != 0 || placer.calls != 0 {
		t.Fatalf("empty cart checkout must not issue network calls (fetch %d, place %d)", fetcher.calls, placer.calls)
	}
	if o.State() != StateIdle {
		t.Fatalf("expected state idle, got %s", o.State())
	}
}

func TestCheckoutReconciliationFailure(t *testing.T) {
	c := cart.NewStore()
	if err := c.Add(available(1, "A", 500), 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := c.Add(available(2, "B", 1000), 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if got := c.Subtotal(); got != 2000 {
		t.Fatalf("expected subtotal 2000, got %d", got)
	}

	fetcher := &fakeFetcher{products: []catalog.Product{
		available(1, "A", 500),
		{ID: 2, Name: "B", Price: 1000, IsAvailable: false},
	}}
	placer := &fakePlacer{}
	o := NewOrchestrator(c, fetcher, placer, testLogger())

	_, err := o.Checkout(context.Background(), "online")

	var ue *cart.UnavailableItemsError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UnavailableItemsError, got %v", err)
	}
	if len(ue.Names) != 1 || ue.Names[0] != "B" {
		t.Fatalf("expected offenders [B], got %v", ue.Names)
	}
	if placer.calls != 0 {
		t.Fatalf("submission must not run after failed reconciliation")
	}

	// cart untouched: customer edits and retries
	items := c.Items()
	if len(items) != 2 || items[0].Quantity != 2 || items[1].Quantity != 1 {
		t.Fatalf("cart changed by failed reconciliation: %+v", items)
	}
	if o.State() != StateFailed {
		t.Fatalf("expected state failed, got %s", o.State())
	}
}

func TestCheckoutSuccess(t *testing.T) {
	c := cart.NewStore()
	if err := c.Add(available(1, "A", 500), 2); err != nil {
		t.Fatalf("add: %v", err)
	}

	conf := &order.Confirmation{
		OrderID:       101,
		Status:        order.StatusConfirmed,
		PaymentMethod: "online",
		TotalAmount:   1000,
		Items:         []order.Item{{ProductID: 1, Name: "A", Price: 500, Quantity: 2}},
		Message:       "Order placed",
		CreatedAt:     time.Now().UTC(),
	}
	fetcher := &fakeFetcher{products: []catalog.Product{available(1, "A", 500)}}
	placer := &fakePlacer{conf: conf}
	recorder := &fakeRecorder{}
	publisher := &fakePublisher{}
	o := NewOrchestrator(c, fetcher, placer, testLogger()).WithRecorder(recorder).WithPublisher(publisher)

	got, err := o.Checkout(context.Background(), "online")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.OrderID != 101 || got.TotalAmount != 1000 {
		t.Fatalf("unexpected confirmation %+v", got)
	}

	if len(placer.gotLines) != 1 || placer.gotLines[0].ProductID != 1 || placer.gotLines[0].Quantity != 2 {
		t.Fatalf("unexpected submitted lines %+v", placer.gotLines)
	}
	if placer.gotMethod != "online" {
		t.Fatalf("unexpected payment method %q", placer.gotMethod)
	}

	if len(c.Items()) != 0 {
		t.Fatalf("cart must be cleared after confirmed checkout")
	}
	if o.State() != StateConfirmed {
		t.Fatalf("expected state confirmed, got %s", o.State())
	}
	if len(recorder.saved) != 1 || recorder.saved[0].OrderID != 101 {
		t.Fatalf("expected receipt recorded, got %+v", recorder.saved)
	}
	if len(publisher.published) != 1 {
		t.Fatalf("expected one OrderConfirmed event, got %d", len(publisher.published))
	}
}

func TestCheckoutSubmissionFailurePreservesCart(t *testing.T) {
	c := cart.NewStore()
	if err := c.Add(available(1, "A", 500), 2); err != nil {
		t.Fatalf("add: %v", err)
	}

	fetcher := &fakeFetcher{products: []catalog.Product{available(1, "A", 500)}}
	placer := &fakePlacer{err: errors.New("network down")}
	o := NewOrchestrator(c, fetcher, placer, testLogger())

	_, err := o.Checkout(context.Background(), "online")
	var ce *Error
	if !errors.As(err, &ce) {
		t.Fatalf("expected checkout Error, got %v", err)
	}

	if len(c.Items()) != 1 || c.Items()[0].Quantity != 2 {
		t.Fatalf("cart must be preserved on submission failure, got %+v", c.Items())
	}
	if o.State() != StateIdle {
		t.Fatalf("expected state back to idle for retry, got %s", o.State())
	}

	// retry with the same items succeeds without re-adding
	placer.err = nil
	placer.conf = &order.Confirmation{OrderID: 102, Status: order.StatusConfirmed, TotalAmount: 1000}

	got, err := o.Checkout(context.Background(), "online")
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if got.OrderID != 102 {
		t.Fatalf("unexpected confirmation %+v", got)
	}
	if fetcher.calls != 2 {
		t.Fatalf("every attempt must re-reconcile, got %d fetches", fetcher.calls)
	}
	if len(c.Items()) != 0 {
		t.Fatalf("cart must be cleared after successful retry")
	}
}

func TestCheckoutRejectsConcurrentAttempt(t *testing.T) {
	c := cart.NewStore()
	if err := c.Add(available(1, "A", 500), 1); err != nil {
		t.Fatalf("add: %v", err)
	}

	release := make(chan struct{})
	fetcher := &fakeFetcher{products: []catalog.Product{available(1, "A", 500)}}
	placer := &fakePlacer{
		conf:  &order.Confirmation{OrderID: 103, Status: order.StatusConfirmed, TotalAmount: 500},
		block: release,
	}
	o := NewOrchestrator(c, fetcher, placer, testLogger())

	done := make(chan error, 1)
	go func() {
		_, err := o.Checkout(context.Background(), "online")
		done <- err
	}()

	// wait until the first attempt holds the submission
	deadline := time.After(2 * time.Second)
	for o.State() != StateSubmitting {
		select {
		case <-deadline:
			t.Fatalf("first attempt never reached submitting")
		case <-time.After(time.Millisecond):
		}
	}

	if _, err := o.Checkout(context.Background(), "online"); !errors.Is(err, ErrInFlight) {
		t.Fatalf("expected ErrInFlight for concurrent attempt, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("in-flight attempt corrupted by concurrent call: %v", err)
	}
	if len(c.Items()) != 0 {
		t.Fatalf("expected cart cleared by the in-flight attempt")
	}
	if placer.calls != 1 {
		t.Fatalf("expected exactly one submission, got %d", placer.calls)
	}
}

func TestCheckoutCancelledResultDiscarded(t *testing.T) {
	c := cart.NewStore()
	if err := c.Add(available(1, "A", 500), 2); err != nil {
		t.Fatalf("add: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	fetcher := &fakeFetcher{products: []catalog.Product{available(1, "A", 500)}}
	placer := &fakePlacer{
		conf:   &order.Confirmation{OrderID: 104, Status: order.StatusConfirmed, TotalAmount: 1000},
		onCall: func(ctx context.Context) { cancel() },
	}
	o := NewOrchestrator(c, fetcher, placer, testLogger())

	_, err := o.Checkout(ctx, "online")
	var ce *Error
	if !errors.As(err, &ce) {
		t.Fatalf("expected checkout Error for cancelled attempt, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected wrapped context.Canceled, got %v", err)
	}

	if len(c.Items()) != 1 {
		t.Fatalf("cancelled attempt must not clear the cart, got %+v", c.Items())
	}
	if o.State() != StateIdle {
		t.Fatalf("expected state idle after cancellation, got %s", o.State())
	}
}

func TestCheckoutBackendUnreachableDuringReconcile(t *testing.T) {
	c := cart.NewStore()
	if err := c.Add(available(1, "A", 500), 1); err != nil {
		t.Fatalf("add: %v", err)
	}

	fetcher := &fakeFetcher{err: errors.New("backend unreachable")}
	placer := &fakePlacer{}
	o := NewOrchestrator(c, fetcher, placer, testLogger())

	_, err := o.Checkout(context.Background(), "online")
	var ce *Error
	if !errors.As(err, &ce) {
		t.Fatalf("expected checkout Error, got %v", err)
	}
	if placer.calls != 0 {
		t.Fatalf("submission must not run when the fresh fetch fails")
	}
	if len(c.Items()) != 1 {
		t.Fatalf("cart must be preserved")
	}
}

func TestCheckoutReceiptFailureDoesNotFailCheckout(t *testing.T) {
	c := cart.NewStore()
	if err := c.Add(available(1, "A", 500), 1); err != nil {
		t.Fatalf("add: %v", err)
	}

	fetcher := &fakeFetcher{products: []catalog.Product{available(1, "A", 500)}}
	placer := &fakePlacer{conf: &order.Confirmation{OrderID: 105, Status: order.StatusConfirmed, TotalAmount: 500}}
	recorder := &fakeRecorder{err: errors.New("db down")}
	o := NewOrchestrator(c, fetcher, placer, testLogger()).WithRecorder(recorder)

	conf, err := o.Checkout(context.Background(), "online")
	if err != nil {
		t.Fatalf("receipt persistence is best-effort, checkout must succeed: %v", err)
	}
	if conf.OrderID != 105 {
		t.Fatalf("unexpected confirmation %+v", conf)
	}
	if len(c.Items()) != 0 {
		t.Fatalf("expected cart cleared")
	}
}
