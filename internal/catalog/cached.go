package catalog

import (
	"context"
	"log"
)

// Fetcher is the read side of the backend consumed by CachedCatalog.
type Fetcher interface {
	GetAllProducts(ctx context.Context) ([]Product, error)
	GetProductsForVendor(ctx context.Context, vendor string) ([]Product, error)
}

// Mutator is the write side of the backend consumed by CachedCatalog.
type Mutator interface {
	CreateProduct(ctx context.Context, np NewProduct) (int64, error)
	DeleteProduct(ctx context.Context, id int64) error
	ToggleAvailability(ctx context.Context, id int64) error
}

// Backend is what CachedCatalog needs from the remote catalog.
type Backend interface {
	Fetcher
	Mutator
}

// CachedCatalog serves product reads from the cache and routes every product
// mutation through the backend, invalidating the cache after each success.
// Checkout reconciliation must NOT read through this type; it always fetches
// fresh truth directly from the backend.
type CachedCatalog struct {
	backend Backend
	cache   Cache
	logger  *log.Logger
}

func NewCachedCatalog(backend Backend, cache Cache, logger *log.Logger) *CachedCatalog {
	return &CachedCatalog{backend: backend, cache: cache, logger: logger}
}

// ListProducts returns the full catalog, served from cache when warm.
func (cc *CachedCatalog) ListProducts(ctx context.Context) ([]Product, error) {
	if cached, ok, err := cc.cache.Get(ctx); err != nil {
		// A broken cache degrades to a backend fetch, it never fails reads.
		cc.logger.Printf("product cache read error: %v", err)
	} else if ok {
		return cached, nil
	}

	products, err := cc.backend.GetAllProducts(ctx)
	if err != nil {
		return nil, err
	}

	if err := cc.cache.Set(ctx, products); err != nil {
		cc.logger.Printf("product cache write error: %v", err)
	}
	return products, nil
}

// ListAvailableProducts filters the catalog down to what customers can buy.
func (cc *CachedCatalog) ListAvailableProducts(ctx context.Context) ([]Product, error) {
	all, err := cc.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	available := make([]Product, 0, len(all))
	for _, p := range all {
		if p.IsAvailable {
			available = append(available, p)
		}
	}
	return available, nil
}

func (cc *CachedCatalog) ListProductsForVendor(ctx context.Context, vendor string) ([]Product, error) {
	return cc.backend.GetProductsForVendor(ctx, vendor)
}

func (cc *CachedCatalog) CreateProduct(ctx context.Context, np NewProduct) (int64, error) {
	id, err := cc.backend.CreateProduct(ctx, np)
	if err != nil {
		return 0, err
	}
	cc.invalidate(ctx)
	return id, nil
}

func (cc *CachedCatalog) DeleteProduct(ctx context.Context, id int64) error {
	if err := cc.backend.DeleteProduct(ctx, id); err != nil {
		return err
	}
	cc.invalidate(ctx)
	return nil
}

func (cc *CachedCatalog) ToggleAvailability(ctx context.Context, id int64) error {
	if err := cc.backend.ToggleAvailability(ctx, id); err != nil {
		return err
	}
	cc.invalidate(ctx)
	return nil
}

func (cc *CachedCatalog) invalidate(ctx context.Context) {
	if err := cc.cache.Invalidate(ctx); err != nil {
		cc.logger.Printf("product cache invalidate error: %v", err)
	}
}
