package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/andresuchdata/autopo-py/replenishment/internal/config"
	"github.com/andresuchdata/autopo-py/replenishment/internal/domain"
	"github.com/minio/minio-go/v7"
)

type memoryObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newMemoryObjects() *memoryObjects {
	return &memoryObjects{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memoryObjects) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ObjectInfo
	for k, v := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, ObjectInfo{Key: k, Size: int64(len(v))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *memoryObjects) GetObject(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	return data, nil
}

func (m *memoryObjects) UploadObject(ctx context.Context, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

func weeklyReport(day int, qty int) *domain.WeeklyReport {
	date := time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC)
	rec := domain.Recommendation{ProductID: 1, ProductName: "Tea", ADS: 2, CurrentStock: 1, TargetStock: 30, RecommendedQuantity: qty, CalculationDate: date}
	return &domain.WeeklyReport{
		Date:               date,
		GeneratedAt:        date.Add(time.Hour),
		Summary:            domain.RecommendationSummary{TotalProducts: 1, ActionableCount: 1},
		Actionable:         []domain.Recommendation{rec},
		AllRecommendations: []domain.Recommendation{rec},
	}
}

func TestReportArchive_RoundTrip(t *testing.T) {
	ctx := context.Background()
	objects := newMemoryObjects()
	archive := NewObjectReportArchive(objects, "/reports/weekly/")

	key, err := archive.ArchiveWeeklyReport(ctx, weeklyReport(4, 29))
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if key != "reports/weekly/2024-03-04.json" {
		t.Errorf("key = %q", key)
	}
	if objects.types[key] != "application/json" {
		t.Errorf("content type = %q", objects.types[key])
	}

	if _, err := archive.ArchiveWeeklyReport(ctx, weeklyReport(4, 31)); err != nil {
		t.Fatalf("re-archive: %v", err)
	}
	if _, err := archive.ArchiveWeeklyReport(ctx, weeklyReport(11, 5)); err != nil {
		t.Fatalf("archive second week: %v", err)
	}

	dates, err := archive.ListWeeklyReports(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(dates) != 2 || dates[0] != "2024-03-11" || dates[1] != "2024-03-04" {
		t.Errorf("dates = %v", dates)
	}

	got, err := archive.GetWeeklyReport(ctx, "2024-03-04")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Actionable[0].RecommendedQuantity != 31 {
		t.Errorf("same-day archive should replace, got qty %d", got.Actionable[0].RecommendedQuantity)
	}
}

func TestReportArchive_GetErrors(t *testing.T) {
	objects := newMemoryObjects()
	archive := NewObjectReportArchive(objects, "weekly")
	ctx := context.Background()

	if _, err := archive.GetWeeklyReport(ctx, "2024-03-04"); !errors.Is(err, ErrReportNotFound) {
		t.Errorf("missing report: err = %v, want ErrReportNotFound", err)
	}

	objects.objects["weekly/2024-03-05.json"] = []byte("{not json")
	_, err := archive.GetWeeklyReport(ctx, "2024-03-05")
	if err == nil || errors.Is(err, ErrReportNotFound) {
		t.Errorf("corrupt report: err = %v, want a decode error", err)
	}

	disabled := NewNoopReportArchive()
	if _, err := disabled.GetWeeklyReport(ctx, "2024-03-04"); !errors.Is(err, ErrReportNotFound) {
		t.Errorf("disabled archive: err = %v, want ErrReportNotFound", err)
	}
}

func TestWrapGetErr(t *testing.T) {
	missing := minio.ErrorResponse{Code: "NoSuchKey", Message: "The specified key does not exist."}
	if err := wrapGetErr("weekly/x.json", missing); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("NoSuchKey: err = %v, want ErrObjectNotFound", err)
	}

	denied := minio.ErrorResponse{Code: "AccessDenied", Message: "Access Denied."}
	if err := wrapGetErr("weekly/x.json", denied); errors.Is(err, ErrObjectNotFound) {
		t.Errorf("AccessDenied must not read as a missing object: %v", err)
	}
}

func TestReportArchive_DefaultPrefix(t *testing.T) {
	objects := newMemoryObjects()
	archive := NewObjectReportArchive(objects, "")

	key, err := archive.ArchiveWeeklyReport(context.Background(), weeklyReport(4, 1))
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if !strings.HasPrefix(key, defaultReportPrefix+"/") {
		t.Errorf("key = %q, want default prefix", key)
	}
}

func TestNewReportArchive_Disabled(t *testing.T) {
	archive, err := NewReportArchive(config.StorageConfig{Enabled: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	key, err := archive.ArchiveWeeklyReport(context.Background(), weeklyReport(4, 1))
	if err != nil || key != "" {
		t.Errorf("noop archive = %q, %v", key, err)
	}
}

func TestNewMinioClient_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.StorageConfig
	}{
		{"missing endpoint", config.StorageConfig{AccessKey: "a", SecretKey: "b", Bucket: "c"}},
		{"missing credentials", config.StorageConfig{Endpoint: "localhost:9000", Bucket: "c"}},
		{"missing bucket", config.StorageConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewMinioClient(tt.cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSplitEndpoint(t *testing.T) {
	tests := []struct {
		in       string
		useSSL   bool
		endpoint string
		secure   bool
	}{
		{"https://s3.example.com", false, "s3.example.com", true},
		{"http://minio:9000", true, "minio:9000", false},
		{"minio:9000", true, "minio:9000", true},
		{"//minio:9000", false, "minio:9000", false},
	}
	for _, tt := range tests {
		endpoint, secure := splitEndpoint(tt.in, tt.useSSL)
		if endpoint != tt.endpoint || secure != tt.secure {
			t.Errorf("splitEndpoint(%q, %v) = %q, %v", tt.in, tt.useSSL, endpoint, secure)
		}
	}
}
