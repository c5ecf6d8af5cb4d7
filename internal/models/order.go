package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DayLayout is the calendar-day key used by the daily tables and range parameters.
const DayLayout = "2006-01-02"

// OrderRecord is one order line item. Timestamps are stored in UTC; a nil
// timestamp means the source field was empty or unparseable, except ApprovedAt
// which is always set for records held by a store.
type OrderRecord struct {
	OrderID    string
	CustomerID string
	ProductID  string

	CustomerState   string
	CustomerCity    string
	ProductCategory string
	OrderStatus     string

	PurchasedAt         *time.Time
	ApprovedAt          *time.Time
	DeliveredCarrierAt  *time.Time
	DeliveredCustomerAt *time.Time
	EstimatedDeliveryAt *time.Time
	ShippingLimitAt     *time.Time

	PaymentValue decimal.Decimal
	// ReviewScore is 0 when the row carries no review.
	ReviewScore int
}

// ApprovedDay returns the calendar day of the approval timestamp at UTC midnight.
func (r OrderRecord) ApprovedDay() time.Time {
	if r.ApprovedAt == nil {
		return time.Time{}
	}
	return Day(*r.ApprovedAt)
}

// Day truncates t to its calendar day in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
