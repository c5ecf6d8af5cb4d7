package services

import (
	"context"
	"encoding/csv"
	"encoding/gob"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"olist-dashboard/internal/errors"
	"olist-dashboard/internal/metrics"
	"olist-dashboard/internal/models"
)

const (
	snapshotVersion = "v1"
	ctxCheckEvery   = 1000
)

// RecordStore is the read-only, approval-ordered set of records a dashboard is
// built from. It is constructed once and shared by reference.
type RecordStore struct {
	records []models.OrderRecord
	bounds  models.DateRange
	report  models.LoadReport
}

// NewRecordStore sorts a copy of records by approval time. Every record must
// carry an approval timestamp.
func NewRecordStore(records []models.OrderRecord) (*RecordStore, error) {
	for i, r := range records {
		if r.ApprovedAt == nil {
			return nil, errors.Load(fmt.Sprintf("record %d (order %q) has no approval timestamp", i, r.OrderID))
		}
	}

	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b models.OrderRecord) int {
		return a.ApprovedAt.Compare(*b.ApprovedAt)
	})

	s := &RecordStore{records: sorted}
	if len(sorted) > 0 {
		s.bounds = models.NewDateRange(*sorted[0].ApprovedAt, *sorted[len(sorted)-1].ApprovedAt)
	}
	s.report = models.LoadReport{
		RowsRead: len(sorted),
		RowsKept: len(sorted),
		Bounds:   s.bounds,
		LoadedAt: time.Now().UTC(),
	}
	return s, nil
}

// Records returns the store's records. Callers must treat the slice as read-only.
func (s *RecordStore) Records() []models.OrderRecord { return s.records }

func (s *RecordStore) Len() int { return len(s.records) }

func (s *RecordStore) MinApprovedAt() time.Time {
	if len(s.records) == 0 {
		return time.Time{}
	}
	return *s.records[0].ApprovedAt
}

func (s *RecordStore) MaxApprovedAt() time.Time {
	if len(s.records) == 0 {
		return time.Time{}
	}
	return *s.records[len(s.records)-1].ApprovedAt
}

// Bounds is the calendar-day span of approval timestamps.
func (s *RecordStore) Bounds() models.DateRange { return s.bounds }

func (s *RecordStore) Report() models.LoadReport { return s.report }

// Select validates rng against the store bounds, clamps a partially
// overlapping range, and returns the matching records with the effective range.
func (s *RecordStore) Select(rng models.DateRange) ([]models.OrderRecord, models.DateRange, error) {
	if rng.Start.After(rng.End) {
		return nil, rng, errors.InvalidRange(fmt.Sprintf("start date %s is after end date %s",
			rng.Start.Format(models.DayLayout), rng.End.Format(models.DayLayout)))
	}
	if len(s.records) == 0 {
		return nil, rng, errors.InvalidRange("no records are loaded")
	}
	if rng.End.Before(s.bounds.Start) || rng.Start.After(s.bounds.End) {
		return nil, rng, errors.InvalidRange(fmt.Sprintf("range %s lies outside available data %s", rng, s.bounds))
	}

	clamped := rng
	if clamped.Start.Before(s.bounds.Start) {
		clamped.Start = s.bounds.Start
	}
	if clamped.End.After(s.bounds.End) {
		clamped.End = s.bounds.End
	}

	// Narrow to the sorted window first; Filter then copies it out.
	lo, _ := slices.BinarySearchFunc(s.records, clamped.Start, func(r models.OrderRecord, day time.Time) int {
		return r.ApprovedDay().Compare(day)
	})
	hi, _ := slices.BinarySearchFunc(s.records, clamped.End.AddDate(0, 0, 1), func(r models.OrderRecord, day time.Time) int {
		return r.ApprovedDay().Compare(day)
	})

	out, err := Filter(s.records[lo:hi], clamped.Start, clamped.End)
	if err != nil {
		return nil, clamped, err
	}
	return out, clamped, nil
}

// Loader builds record stores from CSV exports, optionally through a gob
// snapshot of the parsed records.
type Loader struct {
	logger   *slog.Logger
	metrics  *metrics.Registry
	cacheDir string
}

// NewLoader returns a loader. An empty cacheDir disables snapshots.
func NewLoader(logger *slog.Logger, m *metrics.Registry, cacheDir string) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger, metrics: m, cacheDir: cacheDir}
}

func (l *Loader) LoadFromCSV(ctx context.Context, filename string) (*RecordStore, error) {
	fileInfo, err := os.Stat(filename)
	if err != nil {
		return nil, errors.LoadWrap(err, "dataset is not readable")
	}

	if l.cacheDir != "" {
		if store, err := l.loadSnapshot(filename, fileInfo.ModTime()); err == nil {
			l.logger.Info("loaded records from snapshot",
				"source", filename,
				"records", store.Len(),
			)
			l.metrics.ObserveLoad(store.report.RowsKept, 0, true)
			return store, nil
		}
	}

	start := time.Now()
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.LoadWrap(err, "dataset is not readable")
	}
	defer file.Close()

	store, err := l.Load(ctx, file, filename)
	if err != nil {
		return nil, err
	}

	if l.cacheDir != "" {
		if err := l.saveSnapshot(filename, store); err != nil {
			l.logger.Warn("failed to save snapshot", "error", err)
		}
	}

	duration := time.Since(start)
	l.logger.Info("csv processing complete",
		"records", store.Len(),
		"dropped", store.report.RowsDropped,
		"bounds", store.bounds.String(),
		"duration", duration,
		"rate", fmt.Sprintf("%.0f records/sec", float64(store.report.RowsRead)/duration.Seconds()))

	return store, nil
}

// Load parses a CSV stream with a header row. Rows whose approval timestamp,
// payment value or review score cannot be parsed are dropped and logged.
func (l *Loader) Load(ctx context.Context, r io.Reader, source string) (*RecordStore, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.Load("dataset is empty")
	}
	if err != nil {
		return nil, errors.LoadWrap(err, "read header")
	}

	cols, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	records := make([]models.OrderRecord, 0, 1024)
	rowsRead, dropped := 0, 0

	for {
		if rowsRead%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, errors.LoadWrap(err, "load cancelled")
			}
		}

		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.LoadWrap(err, "read csv")
		}
		rowsRead++

		line, _ := reader.FieldPos(0)
		rec, err := cols.parseRow(fields, line)
		if err != nil {
			dropped++
			l.logger.Warn("dropping row", "source", source, "error", err)
			continue
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, errors.Load(fmt.Sprintf("no valid records found in %d rows", rowsRead))
	}

	store, err := NewRecordStore(records)
	if err != nil {
		return nil, err
	}
	store.report.Source = source
	store.report.RowsRead = rowsRead
	store.report.RowsDropped = dropped

	l.metrics.ObserveLoad(store.report.RowsKept, dropped, false)
	return store, nil
}

type snapshot struct {
	Version     string
	Source      string
	SavedAt     time.Time
	RowsRead    int
	RowsDropped int
	Records     []models.OrderRecord
}

func (l *Loader) snapshotFilename(csvPath string) string {
	name := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(csvPath)
	return filepath.Join(l.cacheDir, fmt.Sprintf("%s_%s.gob", name, snapshotVersion))
}

func (l *Loader) saveSnapshot(csvPath string, store *RecordStore) error {
	if err := os.MkdirAll(l.cacheDir, 0o755); err != nil {
		return err
	}

	file, err := os.Create(l.snapshotFilename(csvPath))
	if err != nil {
		return err
	}
	defer file.Close()

	return gob.NewEncoder(file).Encode(snapshot{
		Version:     snapshotVersion,
		Source:      csvPath,
		SavedAt:     time.Now().UTC(),
		RowsRead:    store.report.RowsRead,
		RowsDropped: store.report.RowsDropped,
		Records:     store.records,
	})
}

// loadSnapshot only accepts snapshots written after the CSV was last modified.
func (l *Loader) loadSnapshot(csvPath string, csvModTime time.Time) (*RecordStore, error) {
	file, err := os.Open(l.snapshotFilename(csvPath))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var snap snapshot
	if err := gob.NewDecoder(file).Decode(&snap); err != nil {
		return nil, err
	}
	if snap.Version != snapshotVersion || snap.Source != csvPath {
		return nil, fmt.Errorf("snapshot mismatch: version %q source %q", snap.Version, snap.Source)
	}
	if !csvModTime.Before(snap.SavedAt) {
		return nil, fmt.Errorf("snapshot is stale")
	}

	store, err := NewRecordStore(snap.Records)
	if err != nil {
		return nil, err
	}
	store.report.Source = csvPath
	store.report.RowsRead = snap.RowsRead
	store.report.RowsDropped = snap.RowsDropped
	store.report.FromCache = true
	return store, nil
}
