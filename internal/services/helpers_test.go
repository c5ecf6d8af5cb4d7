package services

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"olist-dashboard/internal/models"
)

const csvHeader = "order_id,customer_id,customer_state,customer_city,product_id,product_category_name_english," +
	"payment_value,review_score,order_status,order_purchase_timestamp,order_approved_at," +
	"order_delivered_carrier_date,order_delivered_customer_date,order_estimated_delivery_date,shipping_limit_date"

func createTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "orders.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func csvRows(rows ...string) string {
	return csvHeader + "\n" + strings.Join(rows, "\n") + "\n"
}

func ts(t testing.TB, s string) *time.Time {
	t.Helper()
	v, err := parseTimestamp(s)
	require.NoError(t, err)
	require.NotNil(t, v)
	return v
}

// order builds a record with the fields the aggregators read.
type order struct {
	id, customer, state, city, category, status, approved, payment string
	score                                                          int
}

func (o order) record(t testing.TB) models.OrderRecord {
	t.Helper()
	r := models.OrderRecord{
		OrderID:         o.id,
		CustomerID:      o.customer,
		ProductID:       "p-" + o.id,
		CustomerState:   o.state,
		CustomerCity:    o.city,
		ProductCategory: o.category,
		OrderStatus:     o.status,
		ApprovedAt:      ts(t, o.approved),
		ReviewScore:     o.score,
	}
	if o.payment != "" {
		r.PaymentValue = decimal.RequireFromString(o.payment)
	}
	return r
}

func records(t testing.TB, orders ...order) []models.OrderRecord {
	t.Helper()
	out := make([]models.OrderRecord, len(orders))
	for i, o := range orders {
		out[i] = o.record(t)
	}
	return out
}

func mustStore(t *testing.T, recs []models.OrderRecord) *RecordStore {
	t.Helper()
	s, err := NewRecordStore(recs)
	require.NoError(t, err)
	return s
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(models.DayLayout, s)
	require.NoError(t, err)
	return d
}

// sampleOrders spans three days with overlapping customers and orders.
func sampleOrders(t *testing.T) []models.OrderRecord {
	return records(t,
		order{id: "o1", customer: "c1", state: "SP", city: "sao paulo", category: "toys", status: "delivered", approved: "2018-01-01 10:00:00", payment: "10.00", score: 5},
		order{id: "o1", customer: "c1", state: "SP", city: "sao paulo", category: "bed_bath_table", status: "delivered", approved: "2018-01-01 10:00:00", payment: "0.10", score: 5},
		order{id: "o2", customer: "c2", state: "RJ", city: "rio de janeiro", category: "toys", status: "shipped", approved: "2018-01-01 18:30:00", payment: "0.20", score: 4},
		order{id: "o3", customer: "c1", state: "SP", city: "sao paulo", category: "health_beauty", status: "delivered", approved: "2018-01-02 09:00:00", payment: "20.00", score: 3},
		order{id: "o4", customer: "c3", state: "MG", city: "belo horizonte", category: "toys", status: "canceled", approved: "2018-01-03 23:59:59", payment: "5.00", score: 1},
	)
}
