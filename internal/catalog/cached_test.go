package catalog

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"
)

type fakeBackend struct {
	products []Product

	fetchCnt  int
	createErr error
	toggleErr error
}

func (f *fakeBackend) GetAllProducts(ctx context.Context) ([]Product, error) {
	f.fetchCnt++
	cp := make([]Product, len(f.products))
	copy(cp, f.products)
	return cp, nil
}

func (f *fakeBackend) GetProductsForVendor(ctx context.Context, vendor string) ([]Product, error) {
	var out []Product
	for _, p := range f.products {
		if p.Vendor == vendor {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeBackend) CreateProduct(ctx context.Context, np NewProduct) (int64, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}
	id := int64(len(f.products) + 1)
	f.products = append(f.products, Product{ID: id, Name: np.Name, Price: np.Price, IsAvailable: true})
	return id, nil
}

func (f *fakeBackend) DeleteProduct(ctx context.Context, id int64) error {
	for i, p := range f.products {
		if p.ID == id {
			f.products = append(f.products[:i], f.products[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakeBackend) ToggleAvailability(ctx context.Context, id int64) error {
	if f.toggleErr != nil {
		return f.toggleErr
	}
	for i := range f.products {
		if f.products[i].ID == id {
			f.products[i].IsAvailable = !f.products[i].IsAvailable
			return nil
		}
	}
	return ErrNotFound
}

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestCachedCatalogServesFromCache(t *testing.T) {
	backend := &fakeBackend{products: []Product{
		{ID: 1, Name: "Toor Dal", Price: 18000, IsAvailable: true},
		{ID: 2, Name: "Ghee", Price: 65000, IsAvailable: false},
	}}
	cc := NewCachedCatalog(backend, NewMemoryCache(time.Minute), discardLogger())
	ctx := context.Background()

	first, err := cc.ListProducts(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first) != 2 || backend.fetchCnt != 1 {
		t.Fatalf("expected one backend fetch for 2 products, got %d fetches", backend.fetchCnt)
	}

	if _, err := cc.ListProducts(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if backend.fetchCnt != 1 {
		t.Fatalf("expected warm cache to avoid a second fetch, got %d", backend.fetchCnt)
	}

	available, err := cc.ListAvailableProducts(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(available) != 1 || available[0].ID != 1 {
		t.Fatalf("expected only product 1 to be available, got %+v", available)
	}
}

func TestCachedCatalogInvalidatesOnMutation(t *testing.T) {
	tests := map[string]struct {
		mutate func(cc *CachedCatalog, ctx context.Context) error
	}{
		"create": {func(cc *CachedCatalog, ctx context.Context) error {
			_, err := cc.CreateProduct(ctx, NewProduct{Name: "Poha", Price: 4500})
			return err
		}},
		"delete": {func(cc *CachedCatalog, ctx context.Context) error {
			return cc.DeleteProduct(ctx, 1)
		}},
		"toggle availability": {func(cc *CachedCatalog, ctx context.Context) error {
			return cc.ToggleAvailability(ctx, 1)
		}},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			backend := &fakeBackend{products: []Product{{ID: 1, Name: "Toor Dal", Price: 18000, IsAvailable: true}}}
			cc := NewCachedCatalog(backend, NewMemoryCache(time.Minute), discardLogger())
			ctx := context.Background()

			if _, err := cc.ListProducts(ctx); err != nil {
				t.Fatalf("warm cache: %v", err)
			}
			if backend.fetchCnt != 1 {
				t.Fatalf("expected warm cache, got %d fetches", backend.fetchCnt)
			}

			if err := tc.mutate(cc, ctx); err != nil {
				t.Fatalf("mutation failed: %v", err)
			}

			if _, err := cc.ListProducts(ctx); err != nil {
				t.Fatalf("refetch: %v", err)
			}
			if backend.fetchCnt != 2 {
				t.Fatalf("expected mutation to invalidate the cache, got %d fetches", backend.fetchCnt)
			}
		})
	}
}

func TestCachedCatalogKeepsCacheWhenMutationFails(t *testing.T) {
	backend := &fakeBackend{
		products:  []Product{{ID: 1, Name: "Toor Dal", Price: 18000, IsAvailable: true}},
		toggleErr: errors.New("backend down"),
	}
	cc := NewCachedCatalog(backend, NewMemoryCache(time.Minute), discardLogger())
	ctx := context.Background()

	if _, err := cc.ListProducts(ctx); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	if err := cc.ToggleAvailability(ctx, 1); err == nil {
		t.Fatalf("expected toggle to fail")
	}

	if _, err := cc.ListProducts(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if backend.fetchCnt != 1 {
		t.Fatalf("failed mutation must not invalidate the cache, got %d fetches", backend.fetchCnt)
	}
}

func TestMemoryCacheTTL(t *testing.T) {
	cache := NewMemoryCache(10 * time.Millisecond)
	ctx := context.Background()

	if err := cache.Set(ctx, []Product{{ID: 1}}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, ok, _ := cache.Get(ctx); !ok {
		t.Fatalf("expected hit right after set")
	}

	time.Sleep(20 * time.Millisecond)
	if _, ok, _ := cache.Get(ctx); ok {
		t.Fatalf("expected expiry after ttl")
	}
}
