package services

import (
	"cmp"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"olist-dashboard/internal/models"
)

// The aggregators below are pure: they read records, never retain them, and
// order their output deterministically. Count-ranked tables sort by count
// descending and break ties on the key ascending.

type keyCount[K cmp.Ordered] struct {
	key K
	n   int
}

func rankCounts[K cmp.Ordered](counts map[K]int) []keyCount[K] {
	ranked := make([]keyCount[K], 0, len(counts))
	for k, n := range counts {
		ranked = append(ranked, keyCount[K]{key: k, n: n})
	}
	slices.SortFunc(ranked, func(a, b keyCount[K]) int {
		if c := cmp.Compare(b.n, a.n); c != 0 {
			return c
		}
		return cmp.Compare(a.key, b.key)
	})
	return ranked
}

func distinctCounts(records []models.OrderRecord, key func(models.OrderRecord) string) map[string]int {
	seen := make(map[string]map[string]struct{})
	for _, r := range records {
		k := key(r)
		if seen[k] == nil {
			seen[k] = make(map[string]struct{})
		}
		seen[k][r.CustomerID] = struct{}{}
	}
	counts := make(map[string]int, len(seen))
	for k, ids := range seen {
		counts[k] = len(ids)
	}
	return counts
}

// DailyOrders counts distinct orders and sums payments per approval day. Only
// days that have records appear.
func DailyOrders(records []models.OrderRecord) []models.DailyOrders {
	type bucket struct {
		orders  map[string]struct{}
		revenue decimal.Decimal
	}
	buckets := make(map[string]*bucket)

	for _, r := range records {
		if r.ApprovedAt == nil {
			continue
		}
		day := r.ApprovedDay().Format(models.DayLayout)
		b := buckets[day]
		if b == nil {
			b = &bucket{orders: make(map[string]struct{})}
			buckets[day] = b
		}
		b.orders[r.OrderID] = struct{}{}
		b.revenue = b.revenue.Add(r.PaymentValue)
	}

	result := make([]models.DailyOrders, 0, len(buckets))
	for day, b := range buckets {
		result = append(result, models.DailyOrders{Day: day, OrderCount: len(b.orders), Revenue: b.revenue})
	}
	slices.SortFunc(result, func(a, b models.DailyOrders) int { return strings.Compare(a.Day, b.Day) })
	return result
}

// DailySpend sums payments per approval day.
func DailySpend(records []models.OrderRecord) []models.DailySpend {
	sums := make(map[string]decimal.Decimal)
	for _, r := range records {
		if r.ApprovedAt == nil {
			continue
		}
		day := r.ApprovedDay().Format(models.DayLayout)
		sums[day] = sums[day].Add(r.PaymentValue)
	}

	result := make([]models.DailySpend, 0, len(sums))
	for day, total := range sums {
		result = append(result, models.DailySpend{Day: day, TotalSpend: total})
	}
	slices.SortFunc(result, func(a, b models.DailySpend) int { return strings.Compare(a.Day, b.Day) })
	return result
}

// CategorySales counts line items per product category.
func CategorySales(records []models.OrderRecord) []models.CategorySales {
	counts := make(map[string]int)
	for _, r := range records {
		counts[r.ProductCategory]++
	}

	ranked := rankCounts(counts)
	result := make([]models.CategorySales, len(ranked))
	for i, kc := range ranked {
		result[i] = models.CategorySales{Category: kc.key, ProductCount: kc.n}
	}
	return result
}

// ReviewScores is a histogram of the scores present; rows without a review
// are skipped.
func ReviewScores(records []models.OrderRecord) []models.ReviewScoreCount {
	counts := make(map[int]int)
	for _, r := range records {
		if r.ReviewScore > 0 {
			counts[r.ReviewScore]++
		}
	}

	ranked := rankCounts(counts)
	result := make([]models.ReviewScoreCount, len(ranked))
	for i, kc := range ranked {
		result[i] = models.ReviewScoreCount{Score: kc.key, Count: kc.n}
	}
	return result
}

// CustomersByState counts distinct customers per state.
func CustomersByState(records []models.OrderRecord) []models.StateCustomers {
	ranked := rankCounts(distinctCounts(records, func(r models.OrderRecord) string { return r.CustomerState }))
	result := make([]models.StateCustomers, len(ranked))
	for i, kc := range ranked {
		result[i] = models.StateCustomers{State: kc.key, CustomerCount: kc.n}
	}
	return result
}

// CustomersByCity counts distinct customers per city.
func CustomersByCity(records []models.OrderRecord) []models.CityCustomers {
	ranked := rankCounts(distinctCounts(records, func(r models.OrderRecord) string { return r.CustomerCity }))
	result := make([]models.CityCustomers, len(ranked))
	for i, kc := range ranked {
		result[i] = models.CityCustomers{City: kc.key, TotalCustomer: kc.n}
	}
	return result
}

// OrderStatuses counts rows per order status.
func OrderStatuses(records []models.OrderRecord) []models.StatusCount {
	counts := make(map[string]int)
	for _, r := range records {
		counts[r.OrderStatus]++
	}

	ranked := rankCounts(counts)
	result := make([]models.StatusCount, len(ranked))
	for i, kc := range ranked {
		result[i] = models.StatusCount{Status: kc.key, Count: kc.n}
	}
	return result
}
