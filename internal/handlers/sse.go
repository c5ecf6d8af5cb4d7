package handlers

import (
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"

	"github.com/starfederation/datastar-go/datastar"

	"olist-dashboard/internal/errors"
	"olist-dashboard/internal/models"
	"olist-dashboard/internal/observability"
	"olist-dashboard/internal/services"
	"olist-dashboard/internal/ui/templates"
)

// rangeSignals are the date-picker signals bound on the dashboard page.
type rangeSignals struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type SSEHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewSSEHandlers(analytics *services.Analytics, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

// HandleRefresh reruns the pipeline for the page's current date range and
// patches the metric cards, the panels and the dashboard signal.
func (h *SSEHandlers) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	log := observability.LoggerFrom(r.Context(), h.logger)

	var signals rangeSignals
	readErr := datastar.ReadSignals(r, &signals)

	sse := datastar.NewSSE(w, r)
	defer flush(w)

	if readErr != nil {
		log.Warn("read signals", "error", readErr)
		h.patchRangeError(r, sse, log, "The selected date range could not be read.")
		return
	}

	data, err := h.analytics.RunStrings(r.Context(), signals.StartDate, signals.EndDate)
	if err != nil {
		var appErr *errors.AppError
		if stderrors.As(err, &appErr) && appErr.Code == errors.CodeInvalidRange {
			log.Info("range rejected", "start", signals.StartDate, "end", signals.EndDate, "reason", appErr.Message)
			h.patchRangeError(r, sse, log, appErr.Message)
			return
		}
		log.Error("run dashboard pipeline", "error", err)
		h.patchRangeError(r, sse, log, "The dashboard could not be refreshed.")
		return
	}

	h.patchDashboard(r, sse, log, data)
}

func (h *SSEHandlers) patchDashboard(r *http.Request, sse *datastar.ServerSentEventGenerator, log *slog.Logger, data *models.Dashboard) {
	for _, c := range []struct {
		name string
		fn   func() (string, error)
	}{
		{"metrics", func() (string, error) { return templates.RenderString(r.Context(), templates.Metrics(data)) }},
		{"panels", func() (string, error) { return templates.RenderString(r.Context(), templates.Panels(data)) }},
		{"range error", func() (string, error) { return templates.RenderString(r.Context(), templates.RangeError("")) }},
	} {
		html, err := c.fn()
		if err != nil {
			log.Error("render "+c.name, "error", err)
			return
		}
		if err := sse.PatchElements(html); err != nil {
			log.Warn("patch elements", "component", c.name, "error", err)
			return
		}
	}

	jsonData, err := json.Marshal(map[string]any{
		"dashboard":  data,
		"rangeError": "",
	})
	if err != nil {
		log.Error("marshal dashboard signals", "error", err)
		return
	}
	if err := sse.PatchSignals(jsonData); err != nil {
		log.Warn("patch signals", "error", err)
	}
}

func (h *SSEHandlers) patchRangeError(r *http.Request, sse *datastar.ServerSentEventGenerator, log *slog.Logger, message string) {
	html, err := templates.RenderString(r.Context(), templates.RangeError(message))
	if err != nil {
		log.Error("render range error", "error", err)
		return
	}
	if err := sse.PatchElements(html); err != nil {
		log.Warn("patch elements", "component", "range error", "error", err)
		return
	}

	jsonData, err := json.Marshal(map[string]any{"rangeError": message})
	if err != nil {
		log.Error("marshal range error signal", "error", err)
		return
	}
	if err := sse.PatchSignals(jsonData); err != nil {
		log.Warn("patch signals", "error", err)
	}
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
