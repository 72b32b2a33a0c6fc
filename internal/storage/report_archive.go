package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/andresuchdata/autopo-py/replenishment/internal/config"
	"github.com/andresuchdata/autopo-py/replenishment/internal/domain"
)

const defaultReportPrefix = "replenishment/weekly"

// ErrReportNotFound means no report was archived for the requested date.
var ErrReportNotFound = errors.New("weekly report not found")

// ReportArchive keeps weekly reports as JSON objects named by report date.
type ReportArchive interface {
	ArchiveWeeklyReport(ctx context.Context, report *domain.WeeklyReport) (string, error)
	GetWeeklyReport(ctx context.Context, date string) (*domain.WeeklyReport, error)
	ListWeeklyReports(ctx context.Context) ([]string, error)
}

type objectReportArchive struct {
	store  ObjectStorage
	prefix string
}

type noopReportArchive struct{}

// NewReportArchive returns a no-op archive when storage is disabled.
func NewReportArchive(cfg config.StorageConfig) (ReportArchive, error) {
	if !cfg.Enabled {
		return &noopReportArchive{}, nil
	}

	client, err := NewMinioClient(cfg)
	if err != nil {
		return nil, err
	}
	return NewObjectReportArchive(client, cfg.Prefix), nil
}

func NewObjectReportArchive(store ObjectStorage, prefix string) ReportArchive {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = defaultReportPrefix
	}
	return &objectReportArchive{store: store, prefix: prefix}
}

func NewNoopReportArchive() ReportArchive {
	return &noopReportArchive{}
}

func (a *objectReportArchive) key(date string) string {
	return path.Join(a.prefix, date+".json")
}

// ArchiveWeeklyReport writes report under <prefix>/<date>.json, replacing any
// earlier report of the same day, and returns the object key.
func (a *objectReportArchive) ArchiveWeeklyReport(ctx context.Context, report *domain.WeeklyReport) (string, error) {
	if report == nil {
		return "", fmt.Errorf("nil weekly report")
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("encode weekly report: %w", err)
	}

	key := a.key(report.Date.UTC().Format("2006-01-02"))
	if err := a.store.UploadObject(ctx, key, payload, "application/json"); err != nil {
		return "", err
	}
	return key, nil
}

func (a *objectReportArchive) GetWeeklyReport(ctx context.Context, date string) (*domain.WeeklyReport, error) {
	payload, err := a.store.GetObject(ctx, a.key(date))
	if errors.Is(err, ErrObjectNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrReportNotFound, date)
	}
	if err != nil {
		return nil, err
	}

	var report domain.WeeklyReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("decode weekly report: %w", err)
	}
	return &report, nil
}

// ListWeeklyReports returns the archived report dates, newest first.
func (a *objectReportArchive) ListWeeklyReports(ctx context.Context) ([]string, error) {
	objects, err := a.store.ListObjects(ctx, a.prefix+"/")
	if err != nil {
		return nil, err
	}

	dates := make([]string, 0, len(objects))
	for _, obj := range objects {
		name := path.Base(obj.Key)
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		dates = append(dates, strings.TrimSuffix(name, ".json"))
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates, nil
}

func (n *noopReportArchive) ArchiveWeeklyReport(ctx context.Context, report *domain.WeeklyReport) (string, error) {
	return "", nil
}

func (n *noopReportArchive) GetWeeklyReport(ctx context.Context, date string) (*domain.WeeklyReport, error) {
	return nil, fmt.Errorf("%w: report archive disabled", ErrReportNotFound)
}

func (n *noopReportArchive) ListWeeklyReports(ctx context.Context) ([]string, error) {
	return []string{}, nil
}
