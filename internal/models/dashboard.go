package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// DateRange is an inclusive pair of calendar days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: Day(start), End: Day(end)}
}

// Contains reports whether the calendar day of t lies within the range.
func (r DateRange) Contains(t time.Time) bool {
	d := Day(t)
	return !d.Before(r.Start) && !d.After(r.End)
}

func (r DateRange) Days() int {
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

func (r DateRange) String() string {
	return r.Start.Format(DayLayout) + ".." + r.End.Format(DayLayout)
}

func (r DateRange) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Start string `json:"start"`
		End   string `json:"end"`
	}{
		Start: r.Start.Format(DayLayout),
		End:   r.End.Format(DayLayout),
	})
}

type DailyOrders struct {
	Day        string          `json:"day"`
	OrderCount int             `json:"order_count"`
	Revenue    decimal.Decimal `json:"revenue"`
}

type DailySpend struct {
	Day        string          `json:"day"`
	TotalSpend decimal.Decimal `json:"total_spend"`
}

type CategorySales struct {
	Category     string `json:"product_category_name_english"`
	ProductCount int    `json:"product_count"`
}

type ReviewScoreCount struct {
	Score int `json:"review_score"`
	Count int `json:"count"`
}

type StateCustomers struct {
	State         string `json:"customer_state"`
	CustomerCount int    `json:"customer_count"`
}

type CityCustomers struct {
	City          string `json:"customer_city"`
	TotalCustomer int    `json:"total_customer"`
}

type StatusCount struct {
	Status string `json:"order_status"`
	Count  int    `json:"count"`
}

type IncomeSummary struct {
	TotalSpend   decimal.Decimal `json:"total_spend"`
	AverageSpend decimal.Decimal `json:"average_spend"`
}

type ProductSummary struct {
	TotalItems       int             `json:"total_items"`
	AverageItems     decimal.Decimal `json:"average_items"`
	TopCategories    []CategorySales `json:"top_categories"`
	BottomCategories []CategorySales `json:"bottom_categories"`
}

// Dashboard is everything the presentation layer renders for one date range.
// Most-common fields hold "" (or 0 for the review score) when the range has no data.
type Dashboard struct {
	Range       DateRange `json:"range"`
	RecordCount int       `json:"record_count"`

	DailyOrders []DailyOrders `json:"daily_orders"`
	DailySpend  []DailySpend  `json:"daily_spend"`
	Income      IncomeSummary `json:"income"`

	CategorySales []CategorySales `json:"category_sales"`
	Products      ProductSummary  `json:"products"`

	ReviewScores    []ReviewScoreCount `json:"review_scores"`
	MostCommonScore int                `json:"most_common_score"`

	States          []StateCustomers `json:"customers_by_state"`
	MostCommonState string           `json:"most_common_state"`

	Cities         []CityCustomers `json:"customers_by_city"`
	TopCities      []CityCustomers `json:"top_cities"`
	MostCommonCity string          `json:"most_common_city"`

	OrderStatuses    []StatusCount `json:"order_statuses"`
	MostCommonStatus string        `json:"most_common_status"`
}

// LoadReport summarises how a record store was built.
type LoadReport struct {
	Source      string    `json:"source"`
	RowsRead    int       `json:"rows_read"`
	RowsKept    int       `json:"rows_kept"`
	RowsDropped int       `json:"rows_dropped"`
	Bounds      DateRange `json:"bounds"`
	FromCache   bool      `json:"from_cache"`
	LoadedAt    time.Time `json:"loaded_at"`
}
