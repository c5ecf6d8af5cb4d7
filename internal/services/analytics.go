package services

import (
	"context"
	"log/slog"
	"strconv"

	"golang.org/x/sync/errgroup"

	"olist-dashboard/internal/errors"
	"olist-dashboard/internal/metrics"
	"olist-dashboard/internal/models"
	"olist-dashboard/internal/observability"
)

const (
	defaultTopN      = 5
	defaultTopCities = 10
)

type Options struct {
	TopN      int
	TopCities int
}

// Analytics runs the filter and aggregation pipeline over a record store.
// It holds no per-range state; every call recomputes from the store.
type Analytics struct {
	store   *RecordStore
	logger  *slog.Logger
	metrics *metrics.Registry
	opts    Options
}

func NewAnalytics(store *RecordStore, logger *slog.Logger, m *metrics.Registry, opts Options) *Analytics {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.TopN <= 0 {
		opts.TopN = defaultTopN
	}
	if opts.TopCities <= 0 {
		opts.TopCities = defaultTopCities
	}
	return &Analytics{
		store:   store,
		logger:  logger,
		metrics: m,
		opts:    opts,
	}
}

func (a *Analytics) Bounds() models.DateRange { return a.store.Bounds() }

func (a *Analytics) Report() models.LoadReport { return a.store.Report() }

// ResolveRange parses user-supplied bounds, defaulting to the full dataset.
func (a *Analytics) ResolveRange(start, end string) (models.DateRange, error) {
	rng, err := ParseRange(start, end, a.store.Bounds())
	if err != nil {
		a.metrics.ObserveRejected()
		return models.DateRange{}, err
	}
	return rng, nil
}

// Run filters the store to rng and builds every dashboard table. An invalid
// range returns an INVALID_RANGE error and no tables; an empty selection
// returns empty tables.
func (a *Analytics) Run(ctx context.Context, rng models.DateRange) (*models.Dashboard, error) {
	ctx, span := observability.StartSpan(ctx, "dashboard.pipeline")
	span.SetTag("range.requested", rng.String())

	d, err := a.run(ctx, rng)

	span.Finish()
	log := observability.LoggerFrom(ctx, a.logger)
	if err != nil {
		span.SetError(err)
		log.Debug("pipeline failed", "span", span)
		return nil, err
	}

	span.SetTag("range.effective", d.Range.String())
	span.SetTag("records", strconv.Itoa(d.RecordCount))
	a.metrics.ObserveRun(span.Duration.Seconds(), d.RecordCount)
	log.Debug("pipeline complete", "span", span)
	return d, nil
}

func (a *Analytics) run(ctx context.Context, rng models.DateRange) (*models.Dashboard, error) {
	records, effective, err := a.store.Select(rng)
	if err != nil {
		if errors.HasCode(err, errors.CodeInvalidRange) {
			a.metrics.ObserveRejected()
		}
		return nil, err
	}

	d := &models.Dashboard{Range: effective, RecordCount: len(records)}

	g, ctx := errgroup.WithContext(ctx)
	run := func(fn func()) {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fn()
			return nil
		})
	}
	run(func() { d.DailyOrders = DailyOrders(records) })
	run(func() { d.DailySpend = DailySpend(records) })
	run(func() { d.CategorySales = CategorySales(records) })
	run(func() { d.ReviewScores = ReviewScores(records) })
	run(func() { d.States = CustomersByState(records) })
	run(func() { d.Cities = CustomersByCity(records) })
	run(func() { d.OrderStatuses = OrderStatuses(records) })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d.Income = Income(d.DailySpend)
	d.Products = Products(d.CategorySales, a.opts.TopN)
	d.TopCities = TopN(d.Cities, a.opts.TopCities)
	d.MostCommonScore = mostCommonScore(d.ReviewScores)
	d.MostCommonState = mostCommonState(d.States)
	d.MostCommonCity = mostCommonCity(d.Cities)
	d.MostCommonStatus = mostCommonStatus(d.OrderStatuses)
	return d, nil
}

// Select resolves YYYY-MM-DD bounds and returns the matching records for
// callers that need a single table.
func (a *Analytics) Select(start, end string) ([]models.OrderRecord, models.DateRange, error) {
	rng, err := a.ResolveRange(start, end)
	if err != nil {
		return nil, models.DateRange{}, err
	}
	records, effective, err := a.store.Select(rng)
	if err != nil {
		a.metrics.ObserveRejected()
		return nil, effective, err
	}
	return records, effective, nil
}

// RunStrings resolves YYYY-MM-DD bounds and runs the pipeline.
func (a *Analytics) RunStrings(ctx context.Context, start, end string) (*models.Dashboard, error) {
	rng, err := a.ResolveRange(start, end)
	if err != nil {
		return nil, err
	}
	return a.Run(ctx, rng)
}

// Stats is the monitoring view of the loaded dataset.
func (a *Analytics) Stats() map[string]any {
	report := a.store.Report()
	return map[string]any{
		"record_count": a.store.Len(),
		"rows_read":    report.RowsRead,
		"rows_dropped": report.RowsDropped,
		"from_cache":   report.FromCache,
		"loaded_at":    report.LoadedAt,
		"bounds":       a.store.Bounds(),
		"source":       report.Source,
	}
}
