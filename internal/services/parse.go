package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"olist-dashboard/internal/errors"
	"olist-dashboard/internal/models"
)

const (
	colOrderID           = "order_id"
	colCustomerID        = "customer_id"
	colCustomerState     = "customer_state"
	colCustomerCity      = "customer_city"
	colProductID         = "product_id"
	colProductCategory   = "product_category_name_english"
	colPaymentValue      = "payment_value"
	colReviewScore       = "review_score"
	colOrderStatus       = "order_status"
	colPurchaseTimestamp = "order_purchase_timestamp"
	colApprovedAt        = "order_approved_at"
	colDeliveredCarrier  = "order_delivered_carrier_date"
	colDeliveredCustomer = "order_delivered_customer_date"
	colEstimatedDelivery = "order_estimated_delivery_date"
	colShippingLimit     = "shipping_limit_date"
)

var requiredColumns = []string{
	colOrderID, colCustomerID, colCustomerState, colCustomerCity, colProductID,
	colProductCategory, colPaymentValue, colReviewScore, colOrderStatus,
	colPurchaseTimestamp, colApprovedAt, colDeliveredCarrier, colDeliveredCustomer,
	colEstimatedDelivery, colShippingLimit,
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
}

// columns maps required column names to their header positions.
type columns struct {
	index map[string]int
	width int
}

func mapColumns(header []string) (*columns, error) {
	cols := &columns{index: make(map[string]int, len(header))}
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, seen := cols.index[name]; !seen {
			cols.index[name] = i
		}
	}

	var missing []string
	for _, name := range requiredColumns {
		i, ok := cols.index[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		cols.width = max(cols.width, i+1)
	}
	if len(missing) > 0 {
		e := errors.Load("dataset is missing required columns")
		e.Details = strings.Join(missing, ", ")
		return nil, e
	}
	return cols, nil
}

func (c *columns) get(fields []string, name string) string {
	return strings.TrimSpace(fields[c.index[name]])
}

func (c *columns) parseRow(fields []string, line int) (models.OrderRecord, error) {
	if len(fields) < c.width {
		return models.OrderRecord{}, errors.Parse("row is too short",
			fmt.Sprintf("line %d: %d fields, need %d", line, len(fields), c.width))
	}

	approved, err := parseTimestamp(c.get(fields, colApprovedAt))
	if err != nil || approved == nil {
		return models.OrderRecord{}, errors.Parse("approval timestamp is missing or invalid",
			fmt.Sprintf("line %d, column %s: %q", line, colApprovedAt, c.get(fields, colApprovedAt)))
	}

	payment, err := parsePayment(c.get(fields, colPaymentValue))
	if err != nil {
		return models.OrderRecord{}, errors.Parse("payment value is invalid",
			fmt.Sprintf("line %d, column %s: %v", line, colPaymentValue, err))
	}

	score, err := parseReviewScore(c.get(fields, colReviewScore))
	if err != nil {
		return models.OrderRecord{}, errors.Parse("review score is invalid",
			fmt.Sprintf("line %d, column %s: %v", line, colReviewScore, err))
	}

	return models.OrderRecord{
		OrderID:         c.get(fields, colOrderID),
		CustomerID:      c.get(fields, colCustomerID),
		ProductID:       c.get(fields, colProductID),
		CustomerState:   c.get(fields, colCustomerState),
		CustomerCity:    c.get(fields, colCustomerCity),
		ProductCategory: c.get(fields, colProductCategory),
		OrderStatus:     c.get(fields, colOrderStatus),

		PurchasedAt:         parseOptionalTimestamp(c.get(fields, colPurchaseTimestamp)),
		ApprovedAt:          approved,
		DeliveredCarrierAt:  parseOptionalTimestamp(c.get(fields, colDeliveredCarrier)),
		DeliveredCustomerAt: parseOptionalTimestamp(c.get(fields, colDeliveredCustomer)),
		EstimatedDeliveryAt: parseOptionalTimestamp(c.get(fields, colEstimatedDelivery)),
		ShippingLimitAt:     parseOptionalTimestamp(c.get(fields, colShippingLimit)),

		PaymentValue: payment,
		ReviewScore:  score,
	}, nil
}

// parseTimestamp accepts ISO-8601 and the common date[ time] variants. Zoned
// values are converted to UTC, naive ones are read as UTC. Empty input is nil.
func parseTimestamp(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognised timestamp %q", s)
}

// parseOptionalTimestamp stores unparseable secondary timestamps as nil.
func parseOptionalTimestamp(s string) *time.Time {
	t, err := parseTimestamp(s)
	if err != nil {
		return nil
	}
	return t
}

// parsePayment reads a non-negative decimal. Empty means no payment was
// recorded; the row is kept and contributes nothing to spend.
func parsePayment(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative value %s", s)
	}
	return d, nil
}

// parseReviewScore accepts "4" and "4.0"; empty means no review.
func parseReviewScore(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return validScore(n, s)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("not a whole number: %q", s)
	}
	return validScore(int(f), s)
}

func validScore(n int, raw string) (int, error) {
	if n < 0 {
		return 0, fmt.Errorf("negative score %q", raw)
	}
	return n, nil
}
