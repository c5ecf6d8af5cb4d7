package services

import (
	"fmt"
	"strings"
	"time"

	"olist-dashboard/internal/errors"
	"olist-dashboard/internal/models"
)

// Filter returns a new slice holding the records whose approval day lies in
// [start, end]. Both bounds are calendar days; any time-of-day is ignored.
func Filter(records []models.OrderRecord, start, end time.Time) ([]models.OrderRecord, error) {
	rng := models.NewDateRange(start, end)
	if rng.Start.After(rng.End) {
		return nil, errors.InvalidRange(fmt.Sprintf("start date %s is after end date %s",
			rng.Start.Format(models.DayLayout), rng.End.Format(models.DayLayout)))
	}

	out := make([]models.OrderRecord, 0, len(records))
	for _, r := range records {
		if r.ApprovedAt != nil && rng.Contains(*r.ApprovedAt) {
			out = append(out, r)
		}
	}
	return out, nil
}

// ParseRange reads YYYY-MM-DD bounds as supplied by the dashboard. An empty
// value defaults to the matching side of bounds.
func ParseRange(start, end string, bounds models.DateRange) (models.DateRange, error) {
	rng := bounds

	if s := strings.TrimSpace(start); s != "" {
		t, err := time.Parse(models.DayLayout, s)
		if err != nil {
			return models.DateRange{}, errors.InvalidRangeWrap(err, fmt.Sprintf("start date %q is not YYYY-MM-DD", s))
		}
		rng.Start = t
	}
	if s := strings.TrimSpace(end); s != "" {
		t, err := time.Parse(models.DayLayout, s)
		if err != nil {
			return models.DateRange{}, errors.InvalidRangeWrap(err, fmt.Sprintf("end date %q is not YYYY-MM-DD", s))
		}
		rng.End = t
	}

	if rng.Start.After(rng.End) {
		return models.DateRange{}, errors.InvalidRange(fmt.Sprintf("start date %s is after end date %s",
			rng.Start.Format(models.DayLayout), rng.End.Format(models.DayLayout)))
	}
	return rng, nil
}
