package replenishment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/andresuchdata/autopo-py/replenishment/internal/domain"
	"github.com/andresuchdata/autopo-py/replenishment/internal/repository/memory"
)

var testNow = time.Date(2024, 3, 5, 15, 30, 0, 0, time.UTC)

type fakeProduct struct {
	name  string
	sku   *string
	ads   float64
	stock domain.StockRecommendation
}

// fakeCollaborators implements both SalesSignalProvider and StockPolicyEngine.
type fakeCollaborators struct {
	mu       sync.Mutex
	products map[int64]fakeProduct
	active   []int64

	// onInfo runs before every product lookup; attempt starts at 1 per id.
	onInfo   func(id int64, attempt int) error
	attempts map[int64]int
}

func newFakeCollaborators() *fakeCollaborators {
	return &fakeCollaborators{
		products: map[int64]fakeProduct{},
		attempts: map[int64]int{},
	}
}

func (f *fakeCollaborators) add(id int64, p fakeProduct) {
	f.products[id] = p
	f.active = append(f.active, id)
}

func (f *fakeCollaborators) GetActiveProducts(ctx context.Context) ([]int64, error) {
	return append([]int64(nil), f.active...), nil
}

func (f *fakeCollaborators) GetProductInfo(ctx context.Context, productID int64) (*domain.ProductInfo, error) {
	f.mu.Lock()
	f.attempts[productID]++
	attempt := f.attempts[productID]
	hook := f.onInfo
	p, ok := f.products[productID]
	f.mu.Unlock()

	if hook != nil {
		if err := hook(productID, attempt); err != nil {
			return nil, err
		}
	}
	if !ok {
		return nil, nil
	}
	return &domain.ProductInfo{Name: p.name, SKU: p.sku}, nil
}

func (f *fakeCollaborators) CalculateADS(ctx context.Context, productID int64) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.products[productID].ads, nil
}

func (f *fakeCollaborators) CalculateCompleteRecommendation(ctx context.Context, productID int64, ads float64) (*domain.StockRecommendation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stock := f.products[productID].stock
	return &stock, nil
}

func (f *fakeCollaborators) attemptsFor(id int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts[id]
}

type harness struct {
	engine *Engine
	fakes  *fakeCollaborators
	store  *memory.RecommendationRepository
	runs   *memory.CalculationRunRepository
	sleeps []time.Duration
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	h := &harness{
		fakes: newFakeCollaborators(),
		store: memory.NewRecommendationRepository(),
		runs:  memory.NewCalculationRunRepository(),
	}
	h.engine = NewEngine(h.fakes, h.fakes, h.store, h.runs, cfg)
	h.engine.now = func() time.Time { return testNow }
	h.engine.sleep = func(d time.Duration) { h.sleeps = append(h.sleeps, d) }
	return h
}

// simpleProduct is actionable and above the default threshold.
func simpleProduct(name string) fakeProduct {
	return fakeProduct{
		name:  name,
		ads:   2,
		stock: domain.StockRecommendation{CurrentStock: 5, TargetStock: 30, RecommendedQuantity: 25},
	}
}

func productIDs(recs []domain.Recommendation) []int64 {
	ids := make([]int64, len(recs))
	for i, r := range recs {
		ids[i] = r.ProductID
	}
	return ids
}

func (h *harness) latestRun(t *testing.T) *domain.CalculationRun {
	t.Helper()
	run, err := h.runs.GetLatestRun(context.Background())
	if err != nil {
		t.Fatalf("latest run: %v", err)
	}
	if run == nil {
		t.Fatal("no run recorded")
	}
	return run
}
