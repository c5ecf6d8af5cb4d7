package services

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"olist-dashboard/internal/errors"
	"olist-dashboard/internal/metrics"
	"olist-dashboard/internal/models"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

const (
	rowJan2 = "o2,c2,RJ,rio de janeiro,p2,toys,20.00,4,delivered,2018-01-02 08:00:00,2018-01-02 09:10:00,2018-01-03 10:00:00,,2018-01-20 00:00:00,2018-01-05 09:10:00"
	rowJan1 = "o1,c1,SP,sao paulo,p1,bed_bath_table,10.00,5.0,delivered,2018-01-01 07:00:00,2018-01-01T08:00:00,,2018-01-09,2018-01-20,2018-01-04 08:00:00"
	rowJan3 = "o3,c1,SP,sao paulo,p3,toys,5.00,,shipped,2018-01-03,2018/01/03 12:00:00,not-a-date,,,"
)

func TestLoader_LoadFromCSV_ValidData(t *testing.T) {
	f := createTempCSV(t, csvRows(rowJan2, rowJan1, rowJan3))

	store, err := NewLoader(quietLogger(), nil, "").LoadFromCSV(context.Background(), f)
	require.NoError(t, err)

	require.Equal(t, 3, store.Len())
	got := store.Records()
	assert.Equal(t, []string{"o1", "o2", "o3"}, []string{got[0].OrderID, got[1].OrderID, got[2].OrderID},
		"records should be sorted by approval time")

	assert.Equal(t, "2018-01-01..2018-01-03", store.Bounds().String())
	assert.Equal(t, time.Date(2018, 1, 1, 8, 0, 0, 0, time.UTC), store.MinApprovedAt())
	assert.Equal(t, time.Date(2018, 1, 3, 12, 0, 0, 0, time.UTC), store.MaxApprovedAt())

	assert.Equal(t, 5, got[0].ReviewScore)
	assert.Equal(t, 0, got[2].ReviewScore, "empty score means no review")
	assert.Nil(t, got[2].DeliveredCarrierAt, "unparseable secondary timestamps are stored as nil")
	assert.Nil(t, got[1].DeliveredCustomerAt)
	require.NotNil(t, got[0].DeliveredCustomerAt)
	assert.True(t, got[0].PaymentValue.Equal(decimal.NewFromInt(10)))

	report := store.Report()
	assert.Equal(t, 3, report.RowsRead)
	assert.Equal(t, 0, report.RowsDropped)
	assert.Equal(t, f, report.Source)
	assert.False(t, report.FromCache)
}

func TestLoader_LoadFromCSV_DropsUnparseableRows(t *testing.T) {
	// Missing approval, bad payment, negative payment, fractional score,
	// unparseable approval and a short row.
	bad := []string{
		"o4,c4,SP,campinas,p4,toys,7.00,5,delivered,2018-01-01,,,,,",
		"o5,c5,SP,campinas,p5,toys,abc,5,delivered,2018-01-01,2018-01-01,,,,",
		"o6,c6,SP,campinas,p6,toys,-1.00,5,delivered,2018-01-01,2018-01-01,,,,",
		"o7,c7,SP,campinas,p7,toys,1.00,4.5,delivered,2018-01-01,2018-01-01,,,,",
		"o8,c8,SP,campinas,p8,toys,1.00,5,delivered,2018-01-01,yesterday,,,,",
		"o9,c9,SP",
	}
	f := createTempCSV(t, csvRows(append([]string{rowJan1}, bad...)...))

	reg := metrics.NewRegistry()
	store, err := NewLoader(quietLogger(), reg, "").LoadFromCSV(context.Background(), f)
	require.NoError(t, err)

	assert.Equal(t, 1, store.Len())
	assert.Equal(t, 7, store.Report().RowsRead)
	assert.Equal(t, 6, store.Report().RowsDropped)
	assert.Equal(t, 6.0, testutil.ToFloat64(reg.RowsDropped))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.RecordsLoaded))
}

func TestLoader_LoadFromCSV_EmptyPaymentKeepsRow(t *testing.T) {
	f := createTempCSV(t, csvRows(
		"o1,c1,SP,sao paulo,p1,toys,10.00,5,delivered,2018-01-01,2018-01-01 08:00:00,,,,",
		"o2,c2,RJ,rio de janeiro,p2,toys,,,shipped,2018-01-01,2018-01-01 09:00:00,,,,",
	))

	store, err := NewLoader(quietLogger(), nil, "").LoadFromCSV(context.Background(), f)
	require.NoError(t, err)

	require.Equal(t, 2, store.Len())
	assert.Equal(t, 0, store.Report().RowsDropped)
	assert.True(t, store.Records()[1].PaymentValue.IsZero())

	recs := store.Records()
	assert.Equal(t, []models.CategorySales{{Category: "toys", ProductCount: 2}}, CategorySales(recs))
	assert.Equal(t, []models.StateCustomers{
		{State: "RJ", CustomerCount: 1},
		{State: "SP", CustomerCount: 1},
	}, CustomersByState(recs))
	assert.Equal(t, []models.StatusCount{
		{Status: "delivered", Count: 1},
		{Status: "shipped", Count: 1},
	}, OrderStatuses(recs))
	assert.Equal(t, []models.ReviewScoreCount{{Score: 5, Count: 1}}, ReviewScores(recs))

	spend := DailySpend(recs)
	require.Len(t, spend, 1)
	assert.True(t, spend[0].TotalSpend.Equal(decimal.NewFromInt(10)), "got %s", spend[0].TotalSpend)
}

func TestLoader_LoadFromCSV_InvalidData(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{name: "empty file", csv: ""},
		{name: "header only", csv: csvHeader},
		{name: "missing columns", csv: "order_id,customer_id\no1,c1\n"},
		{name: "no valid rows", csv: csvRows("o1,c1,SP,x,p1,toys,1.00,5,delivered,,,,,,")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := createTempCSV(t, tt.csv)

			_, err := NewLoader(quietLogger(), nil, "").LoadFromCSV(context.Background(), f)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.CodeLoad), "want LOAD_ERROR, got %v", err)
		})
	}
}

func TestLoader_LoadFromCSV_MissingFile(t *testing.T) {
	_, err := NewLoader(quietLogger(), nil, "").LoadFromCSV(context.Background(), "does-not-exist.csv")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeLoad))
}

func TestLoader_LoadFromCSV_MissingColumnsAreListed(t *testing.T) {
	header := strings.Replace(csvHeader, "order_approved_at,", "", 1)
	f := createTempCSV(t, header+"\n")

	_, err := NewLoader(quietLogger(), nil, "").LoadFromCSV(context.Background(), f)
	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "order_approved_at", appErr.Details)
}

func TestLoader_ColumnOrderIsFree(t *testing.T) {
	cols := strings.Split(csvHeader, ",")
	row := strings.Split(rowJan1, ",")
	// Swap the first and last columns in both header and row.
	cols[0], cols[len(cols)-1] = cols[len(cols)-1], cols[0]
	row[0], row[len(row)-1] = row[len(row)-1], row[0]

	f := createTempCSV(t, strings.Join(cols, ",")+",extra\n"+strings.Join(row, ",")+",ignored\n")

	store, err := NewLoader(quietLogger(), nil, "").LoadFromCSV(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, "o1", store.Records()[0].OrderID)
}

func TestLoader_Load_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLoader(quietLogger(), nil, "").Load(ctx, strings.NewReader(csvRows(rowJan1)), "test")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoader_Snapshot(t *testing.T) {
	f := createTempCSV(t, csvRows(rowJan2, rowJan1, rowJan3))
	cacheDir := t.TempDir()

	// Backdate the CSV so the snapshot written next is strictly newer.
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(f, old, old))

	loader := NewLoader(quietLogger(), nil, cacheDir)
	first, err := loader.LoadFromCSV(context.Background(), f)
	require.NoError(t, err)
	assert.False(t, first.Report().FromCache)

	second, err := loader.LoadFromCSV(context.Background(), f)
	require.NoError(t, err)
	assert.True(t, second.Report().FromCache)
	assert.Equal(t, first.Len(), second.Len())
	assert.Equal(t, first.Bounds(), second.Bounds())
	assert.True(t, first.Records()[1].PaymentValue.Equal(second.Records()[1].PaymentValue))
	assert.Nil(t, second.Records()[2].DeliveredCarrierAt)

	// Touching the CSV invalidates the snapshot.
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(f, future, future))
	third, err := loader.LoadFromCSV(context.Background(), f)
	require.NoError(t, err)
	assert.False(t, third.Report().FromCache)
}

func TestNewRecordStore_RejectsMissingApproval(t *testing.T) {
	_, err := NewRecordStore([]models.OrderRecord{{OrderID: "o1"}})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeLoad))
}

func TestNewRecordStore_DoesNotMutateInput(t *testing.T) {
	in := records(t,
		order{id: "late", approved: "2018-02-01"},
		order{id: "early", approved: "2018-01-01"},
	)

	store := mustStore(t, in)
	assert.Equal(t, "late", in[0].OrderID)
	assert.Equal(t, "early", store.Records()[0].OrderID)
}

func TestRecordStore_Select(t *testing.T) {
	store := mustStore(t, sampleOrders(t))

	tests := []struct {
		name      string
		start     string
		end       string
		wantCount int
		wantRange string
		wantErr   bool
	}{
		{name: "full range", start: "2018-01-01", end: "2018-01-03", wantCount: 5, wantRange: "2018-01-01..2018-01-03"},
		{name: "single day", start: "2018-01-02", end: "2018-01-02", wantCount: 1, wantRange: "2018-01-02..2018-01-02"},
		{name: "first two days", start: "2018-01-01", end: "2018-01-02", wantCount: 4, wantRange: "2018-01-01..2018-01-02"},
		{name: "clamped start", start: "2017-12-01", end: "2018-01-01", wantCount: 3, wantRange: "2018-01-01..2018-01-01"},
		{name: "clamped end", start: "2018-01-03", end: "2018-06-01", wantCount: 1, wantRange: "2018-01-03..2018-01-03"},
		{name: "before data", start: "2017-01-01", end: "2017-12-31", wantErr: true},
		{name: "after data", start: "2018-01-04", end: "2018-02-01", wantErr: true},
		{name: "reversed", start: "2018-02-01", end: "2018-01-01", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, rng, err := store.Select(models.NewDateRange(day(t, tt.start), day(t, tt.end)))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.HasCode(err, errors.CodeInvalidRange))
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Len(t, got, tt.wantCount)
			assert.Equal(t, tt.wantRange, rng.String())
		})
	}
}

func TestRecordStore_SelectReturnsCopy(t *testing.T) {
	store := mustStore(t, sampleOrders(t))

	got, _, err := store.Select(store.Bounds())
	require.NoError(t, err)
	got[0].OrderID = "mutated"

	assert.Equal(t, "o1", store.Records()[0].OrderID)
}

func TestRecordStore_SelectEmptyStore(t *testing.T) {
	store := mustStore(t, nil)
	_, _, err := store.Select(models.NewDateRange(time.Now(), time.Now()))
	assert.True(t, errors.HasCode(err, errors.CodeInvalidRange))
}
