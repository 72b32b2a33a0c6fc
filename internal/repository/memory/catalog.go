package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/andresuchdata/autopo-py/replenishment/internal/domain"
)

// CatalogProduct is one product served by Catalog.
type CatalogProduct struct {
	Info   domain.ProductInfo
	ADS    float64
	Stock  domain.StockRecommendation
	Active bool
}

// Catalog serves sales signals and stock policy results from memory.
type Catalog struct {
	mu       sync.Mutex
	products map[int64]CatalogProduct
	order    []int64

	// Fail makes every lookup of these product ids return the error.
	Fail map[int64]error
	// ActiveErr makes GetActiveProducts fail.
	ActiveErr error
}

func NewCatalog() *Catalog {
	return &Catalog{
		products: make(map[int64]CatalogProduct),
		Fail:     make(map[int64]error),
	}
}

// Put adds or replaces a product. Products are listed in insertion order.
func (c *Catalog) Put(id int64, p CatalogProduct) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.products[id]; !ok {
		c.order = append(c.order, id)
	}
	c.products[id] = p
}

func (c *Catalog) GetActiveProducts(ctx context.Context) ([]int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ActiveErr != nil {
		return nil, c.ActiveErr
	}
	ids := make([]int64, 0, len(c.order))
	for _, id := range c.order {
		if c.products[id].Active {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (c *Catalog) GetProductInfo(ctx context.Context, productID int64) (*domain.ProductInfo, error) {
	p, ok, err := c.lookup(productID)
	if err != nil || !ok {
		return nil, err
	}
	info := p.Info
	return &info, nil
}

func (c *Catalog) CalculateADS(ctx context.Context, productID int64) (float64, error) {
	p, ok, err := c.lookup(productID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, errors.New("product not found")
	}
	return p.ADS, nil
}

func (c *Catalog) CalculateCompleteRecommendation(ctx context.Context, productID int64, ads float64) (*domain.StockRecommendation, error) {
	p, ok, err := c.lookup(productID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New("product not found")
	}
	stock := p.Stock
	return &stock, nil
}

func (c *Catalog) lookup(id int64) (CatalogProduct, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.Fail[id]; err != nil {
		return CatalogProduct{}, false, err
	}
	p, ok := c.products[id]
	return p, ok, nil
}
