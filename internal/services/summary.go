package services

import (
	"cmp"

	"github.com/shopspring/decimal"

	"olist-dashboard/internal/models"
)

// MostCommon returns the key with the highest count. Ties go to the smallest
// key, which matches the first row of a ranked table. ok is false for an empty
// table.
func MostCommon[T any, K cmp.Ordered](rows []T, key func(T) K, count func(T) int) (mode K, ok bool) {
	best := 0
	for _, row := range rows {
		k, n := key(row), count(row)
		if !ok || n > best || (n == best && k < mode) {
			mode, best, ok = k, n, true
		}
	}
	return mode, ok
}

// TopN returns a copy of the first n rows, or all rows when there are fewer.
func TopN[T any](rows []T, n int) []T {
	n = min(max(n, 0), len(rows))
	out := make([]T, n)
	copy(out, rows[:n])
	return out
}

// BottomN returns a copy of the last n rows in table order.
func BottomN[T any](rows []T, n int) []T {
	n = min(max(n, 0), len(rows))
	out := make([]T, n)
	copy(out, rows[len(rows)-n:])
	return out
}

// Income totals the daily spend table. The average is per day present.
func Income(daily []models.DailySpend) models.IncomeSummary {
	total := decimal.Zero
	for _, d := range daily {
		total = total.Add(d.TotalSpend)
	}
	avg := decimal.Zero
	if len(daily) > 0 {
		avg = total.Div(decimal.NewFromInt(int64(len(daily))))
	}
	return models.IncomeSummary{TotalSpend: total, AverageSpend: avg}
}

// Products summarises the category table; the average is items per category.
func Products(categories []models.CategorySales, n int) models.ProductSummary {
	total := 0
	for _, c := range categories {
		total += c.ProductCount
	}
	avg := decimal.Zero
	if len(categories) > 0 {
		avg = decimal.NewFromInt(int64(total)).Div(decimal.NewFromInt(int64(len(categories))))
	}
	return models.ProductSummary{
		TotalItems:       total,
		AverageItems:     avg,
		TopCategories:    TopN(categories, n),
		BottomCategories: BottomN(categories, n),
	}
}

func mostCommonState(rows []models.StateCustomers) string {
	state, _ := MostCommon(rows,
		func(r models.StateCustomers) string { return r.State },
		func(r models.StateCustomers) int { return r.CustomerCount })
	return state
}

func mostCommonCity(rows []models.CityCustomers) string {
	city, _ := MostCommon(rows,
		func(r models.CityCustomers) string { return r.City },
		func(r models.CityCustomers) int { return r.TotalCustomer })
	return city
}

func mostCommonStatus(rows []models.StatusCount) string {
	status, _ := MostCommon(rows,
		func(r models.StatusCount) string { return r.Status },
		func(r models.StatusCount) int { return r.Count })
	return status
}

func mostCommonScore(rows []models.ReviewScoreCount) int {
	score, _ := MostCommon(rows,
		func(r models.ReviewScoreCount) int { return r.Score },
		func(r models.ReviewScoreCount) int { return r.Count })
	return score
}
