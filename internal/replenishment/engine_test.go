package replenishment

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/andresuchdata/autopo-py/replenishment/internal/domain"
)

func TestGenerateSingleRecommendation(t *testing.T) {
	sku := "SKU-1"
	tests := []struct {
		name    string
		product *fakeProduct
		infoErr error
		want    *domain.Recommendation
		wantErr bool
	}{
		{
			name: "unknown product is skipped",
		},
		{
			name:    "below threshold is skipped",
			product: &fakeProduct{name: "Slow", ads: 0.09, stock: domain.StockRecommendation{RecommendedQuantity: 50}},
		},
		{
			name:    "threshold is inclusive",
			product: &fakeProduct{name: "Edge", sku: &sku, ads: 0.1, stock: domain.StockRecommendation{CurrentStock: 1, TargetStock: 3, RecommendedQuantity: 2}},
			want: &domain.Recommendation{
				ProductID: 7, ProductName: "Edge", SKU: &sku, ADS: 0.1,
				CurrentStock: 1, TargetStock: 3, RecommendedQuantity: 2,
				CalculationDate: domain.CalculationDay(testNow),
			},
		},
		{
			name:    "missing name becomes Unknown",
			product: &fakeProduct{ads: 1, stock: domain.StockRecommendation{TargetStock: 7, RecommendedQuantity: 7}},
			want: &domain.Recommendation{
				ProductID: 7, ProductName: "Unknown", ADS: 1,
				TargetStock: 7, RecommendedQuantity: 7,
				CalculationDate: domain.CalculationDay(testNow),
			},
		},
		{
			name:    "collaborator errors propagate",
			product: &fakeProduct{name: "Broken", ads: 1},
			infoErr: errors.New("lookup failed"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, DefaultConfig())
			if tt.product != nil {
				h.fakes.add(7, *tt.product)
			}
			if tt.infoErr != nil {
				h.fakes.onInfo = func(int64, int) error { return tt.infoErr }
			}

			got, err := h.engine.GenerateSingleRecommendation(context.Background(), 7, h.engine.Today())
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestGenerateRecommendations_EndToEnd(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.fakes.add(1, fakeProduct{name: "A", ads: 5, stock: domain.StockRecommendation{CurrentStock: 2, TargetStock: 20, RecommendedQuantity: 18}})
	h.fakes.add(2, fakeProduct{name: "B", ads: 0.05, stock: domain.StockRecommendation{CurrentStock: 0, TargetStock: 10, RecommendedQuantity: 10}})

	recs, err := h.engine.GenerateRecommendations(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(recs) != 1 || recs[0].ProductID != 1 {
		t.Fatalf("recs = %v, want only product 1", productIDs(recs))
	}
	if status := StockStatusFor(recs[0]); status != domain.StockStatusCritical {
		t.Errorf("status = %s, want critical", status)
	}
	if h.store.Len() != 1 {
		t.Errorf("stored = %d, want 1", h.store.Len())
	}

	run := h.latestRun(t)
	if run.Status != domain.RunStatusSuccess {
		t.Errorf("run status = %s, want success", run.Status)
	}
	if run.TotalProducts != 2 || run.ProductsProcessed != 2 || run.RecommendationsGenerated != 1 {
		t.Errorf("run counters = %+v", run)
	}
	if run.CompletedAt == nil || run.ErrorCount != 0 || run.ErrorMessage != nil {
		t.Errorf("run not finalized cleanly: %+v", run)
	}
	if !run.CalculationDate.Equal(domain.CalculationDay(testNow)) {
		t.Errorf("calculation date = %v", run.CalculationDate)
	}
	if h.runs.Finalizations != 1 {
		t.Errorf("finalizations = %d, want 1", h.runs.Finalizations)
	}
}

func TestGenerateRecommendations_PreservesInputOrder(t *testing.T) {
	for _, workers := range []int{1, 4} {
		cfg := DefaultConfig()
		cfg.BatchSize = 2
		cfg.Workers = workers
		cfg.ErrorRecovery = false
		h := newHarness(t, cfg)

		input := []int64{5, 3, 9, 1, 4, 2, 8}
		for _, id := range input {
			h.fakes.add(id, simpleProduct("p"))
		}
		// 9 is skipped, 4 fails on its own
		h.fakes.products[9] = fakeProduct{name: "slow", ads: 0.01}
		h.fakes.onInfo = func(id int64, _ int) error {
			if id == 4 {
				return errors.New("bad row")
			}
			return nil
		}

		recs, err := h.engine.GenerateRecommendations(context.Background(), input, nil)
		if err != nil {
			t.Fatalf("workers=%d: %v", workers, err)
		}
		want := []int64{5, 3, 1, 2, 8}
		if got := productIDs(recs); !reflect.DeepEqual(got, want) {
			t.Errorf("workers=%d: order = %v, want %v", workers, got, want)
		}
		if run := h.latestRun(t); run.ErrorCount != 1 || run.Status != domain.RunStatusSuccess {
			t.Errorf("workers=%d: run = %+v", workers, run)
		}
	}
}

func TestGenerateRecommendations_ExplicitIDs(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.fakes.products[10] = simpleProduct("not active")

	recs, err := h.engine.GenerateRecommendations(context.Background(), []int64{10}, nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(recs) != 1 {
		t.Errorf("recs = %d, want 1", len(recs))
	}
}

func TestGenerateRecommendations_NoProducts(t *testing.T) {
	h := newHarness(t, DefaultConfig())

	_, err := h.engine.GenerateRecommendations(context.Background(), nil, nil)
	if !errors.Is(err, domain.ErrNoProducts) {
		t.Fatalf("err = %v, want ErrNoProducts", err)
	}
	if h.store.SaveCalls != 0 {
		t.Errorf("save calls = %d, want 0", h.store.SaveCalls)
	}

	run := h.latestRun(t)
	if run.Status != domain.RunStatusError {
		t.Errorf("status = %s, want error", run.Status)
	}
	if run.ErrorMessage == nil || !strings.Contains(*run.ErrorMessage, "no products") {
		t.Errorf("error message = %v", run.ErrorMessage)
	}
	if run.CompletedAt == nil {
		t.Error("failed run must still be completed")
	}
}

func TestGenerateRecommendations_Progress(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BatchSize = 2
	h := newHarness(t, cfg)
	for id := int64(1); id <= 5; id++ {
		h.fakes.add(id, simpleProduct("p"))
	}

	type tick struct {
		processed, total int
		percent          float64
	}
	var ticks []tick
	_, err := h.engine.GenerateRecommendations(context.Background(), nil, func(processed, total int, percent float64) {
		ticks = append(ticks, tick{processed, total, percent})
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	want := []tick{{2, 5, 40}, {4, 5, 80}, {5, 5, 100}}
	if !reflect.DeepEqual(ticks, want) {
		t.Errorf("ticks = %+v, want %+v", ticks, want)
	}
	if !reflect.DeepEqual(h.runs.ProgressTicks, []int{2, 4, 5}) {
		t.Errorf("persisted ticks = %v", h.runs.ProgressTicks)
	}
}

func TestGenerateRecommendations_AuditIsBestEffort(t *testing.T) {
	tests := []struct {
		name  string
		setup func(h *harness)
	}{
		{"create fails", func(h *harness) { h.runs.CreateErr = errors.New("insert failed") }},
		{"progress fails", func(h *harness) { h.runs.ProgressErr = errors.New("update failed") }},
		{"finalize fails", func(h *harness) { h.runs.FinalizeErr = errors.New("update failed") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, DefaultConfig())
			h.fakes.add(1, simpleProduct("p"))
			tt.setup(h)

			recs, err := h.engine.GenerateRecommendations(context.Background(), nil, nil)
			if err != nil {
				t.Fatalf("audit failure escaped: %v", err)
			}
			if len(recs) != 1 || h.store.Len() != 1 {
				t.Errorf("recs = %d, stored = %d", len(recs), h.store.Len())
			}
		})
	}
}

func TestGenerateRecommendations_CreateFailureSkipsFinalize(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.fakes.add(1, simpleProduct("p"))
	h.runs.CreateErr = errors.New("insert failed")

	if _, err := h.engine.GenerateRecommendations(context.Background(), nil, nil); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if h.runs.Finalizations != 0 || len(h.runs.ProgressTicks) != 0 {
		t.Errorf("no audit writes expected without a run, got %d finalizations and %v ticks",
			h.runs.Finalizations, h.runs.ProgressTicks)
	}
}

func TestGenerateRecommendations_WithoutRunRepository(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.engine.runs = nil
	h.fakes.add(1, simpleProduct("p"))

	recs, err := h.engine.GenerateRecommendations(context.Background(), nil, nil)
	if err != nil || len(recs) != 1 {
		t.Errorf("recs = %d, err = %v", len(recs), err)
	}
}

func TestGenerateRecommendations_SaveFailure(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.fakes.add(1, simpleProduct("p"))
	h.store.SaveErr = errors.New("transaction aborted")

	_, err := h.engine.GenerateRecommendations(context.Background(), nil, nil)
	if err == nil {
		t.Fatal("expected save error")
	}
	if run := h.latestRun(t); run.Status != domain.RunStatusError {
		t.Errorf("status = %s, want error", run.Status)
	}
}

func TestGenerateWeeklyReport(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.fakes.add(1, fakeProduct{name: "small", ads: 1, stock: domain.StockRecommendation{CurrentStock: 1, TargetStock: 10, RecommendedQuantity: 9}})
	h.fakes.add(2, fakeProduct{name: "none", ads: 1, stock: domain.StockRecommendation{CurrentStock: 20, TargetStock: 10}})
	h.fakes.add(3, fakeProduct{name: "large", ads: 3, stock: domain.StockRecommendation{CurrentStock: 0, TargetStock: 40, RecommendedQuantity: 40}})

	report, err := h.engine.GenerateWeeklyReport(context.Background())
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if got := productIDs(report.Actionable); !reflect.DeepEqual(got, []int64{3, 1}) {
		t.Errorf("actionable = %v, want [3 1]", got)
	}
	if len(report.AllRecommendations) != 3 {
		t.Errorf("all = %d, want 3", len(report.AllRecommendations))
	}
	if report.Summary.ActionableCount != 2 || report.Summary.TotalRecommendedQuantity != 49 {
		t.Errorf("summary = %+v", report.Summary)
	}
	if !report.Date.Equal(domain.CalculationDay(testNow)) || !report.GeneratedAt.Equal(testNow) {
		t.Errorf("date = %v, generated = %v", report.Date, report.GeneratedAt)
	}
}

func TestGenerateWeeklyReport_WrapsError(t *testing.T) {
	h := newHarness(t, DefaultConfig())

	_, err := h.engine.GenerateWeeklyReport(context.Background())
	if !errors.Is(err, domain.ErrNoProducts) {
		t.Fatalf("err = %v, want wrapped ErrNoProducts", err)
	}
	if !strings.Contains(err.Error(), "weekly report") {
		t.Errorf("missing context: %v", err)
	}
}
