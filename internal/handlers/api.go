package handlers

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"time"

	"olist-dashboard/internal/errors"
	"olist-dashboard/internal/models"
	"olist-dashboard/internal/observability"
	"olist-dashboard/internal/services"
)

const cacheControl = "public, max-age=300"

type APIHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewAPIHandlers(analytics *services.Analytics, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

// TableResponse is the payload of the single-table endpoints.
type TableResponse struct {
	Range      models.DateRange `json:"range"`
	Rows       any              `json:"rows"`
	MostCommon any              `json:"most_common,omitempty"`
}

func (h *APIHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	errors.WriteError(w, observability.LoggerFrom(r.Context(), h.logger), err, observability.GetRequestID(r.Context()))
}

// pipelineError reports a run that was cut short by the request deadline or a
// disconnect as 503 rather than a server fault.
func pipelineError(err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		return errors.ServiceUnavailableWrap(err, "The dashboard could not be computed in time")
	}
	return err
}

func (h *APIHandlers) writeTable(w http.ResponseWriter, r *http.Request, build func([]models.OrderRecord) (rows any, mostCommon any)) {
	q := r.URL.Query()
	records, rng, err := h.analytics.Select(q.Get("start"), q.Get("end"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	rows, mostCommon := build(records)
	errors.WriteSuccessWithHeaders(w, TableResponse{Range: rng, Rows: rows, MostCommon: mostCommon},
		map[string]string{"Cache-Control": cacheControl})
}

func (h *APIHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data, err := h.analytics.RunStrings(r.Context(), q.Get("start"), q.Get("end"))
	if err != nil {
		h.fail(w, r, pipelineError(err))
		return
	}

	errors.WriteSuccessWithHeaders(w, data, map[string]string{"Cache-Control": cacheControl})
}

func (h *APIHandlers) HandleBounds(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.analytics.Bounds())
}

func (h *APIHandlers) HandleDailyOrders(w http.ResponseWriter, r *http.Request) {
	h.writeTable(w, r, func(records []models.OrderRecord) (any, any) {
		return services.DailyOrders(records), nil
	})
}

func (h *APIHandlers) HandleDailySpend(w http.ResponseWriter, r *http.Request) {
	h.writeTable(w, r, func(records []models.OrderRecord) (any, any) {
		return services.DailySpend(records), nil
	})
}

func (h *APIHandlers) HandleCategories(w http.ResponseWriter, r *http.Request) {
	h.writeTable(w, r, func(records []models.OrderRecord) (any, any) {
		return services.CategorySales(records), nil
	})
}

func (h *APIHandlers) HandleReviewScores(w http.ResponseWriter, r *http.Request) {
	h.writeTable(w, r, func(records []models.OrderRecord) (any, any) {
		rows := services.ReviewScores(records)
		score, ok := services.MostCommon(rows,
			func(r models.ReviewScoreCount) int { return r.Score },
			func(r models.ReviewScoreCount) int { return r.Count })
		if !ok {
			return rows, nil
		}
		return rows, score
	})
}

func (h *APIHandlers) HandleStates(w http.ResponseWriter, r *http.Request) {
	h.writeTable(w, r, func(records []models.OrderRecord) (any, any) {
		rows := services.CustomersByState(records)
		state, ok := services.MostCommon(rows,
			func(r models.StateCustomers) string { return r.State },
			func(r models.StateCustomers) int { return r.CustomerCount })
		if !ok {
			return rows, nil
		}
		return rows, state
	})
}

func (h *APIHandlers) HandleCities(w http.ResponseWriter, r *http.Request) {
	h.writeTable(w, r, func(records []models.OrderRecord) (any, any) {
		rows := services.CustomersByCity(records)
		city, ok := services.MostCommon(rows,
			func(r models.CityCustomers) string { return r.City },
			func(r models.CityCustomers) int { return r.TotalCustomer })
		if !ok {
			return rows, nil
		}
		return rows, city
	})
}

func (h *APIHandlers) HandleOrderStatus(w http.ResponseWriter, r *http.Request) {
	h.writeTable(w, r, func(records []models.OrderRecord) (any, any) {
		rows := services.OrderStatuses(records)
		status, ok := services.MostCommon(rows,
			func(r models.StatusCount) string { return r.Status },
			func(r models.StatusCount) int { return r.Count })
		if !ok {
			return rows, nil
		}
		return rows, status
	})
}

// HandleNotFound answers unknown /api/ paths with the JSON error envelope.
func (h *APIHandlers) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	h.fail(w, r, errors.NotFound("No API endpoint at "+r.URL.Path))
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {

	healthData := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {

	stats := h.analytics.Stats()

	errors.WriteSuccess(w, stats)
}
