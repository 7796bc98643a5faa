package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/otp-relay/internal/domain"
)

// TrafficService is the slice of the stats service the handler needs.
type TrafficService interface {
	Today(ctx context.Context) (domain.DayStats, error)
	TrafficForDays(ctx context.Context, n int) (domain.TrafficSummary, error)
	AllTime(ctx context.Context) (domain.TrafficSummary, error)
	TodayByServiceAndCountry(ctx context.Context) (map[string]map[string]int, error)
}

type StatsHandler struct {
	traffic TrafficService
}

func NewStatsHandler(traffic TrafficService) *StatsHandler {
	return &StatsHandler{traffic: traffic}
}

func (h *StatsHandler) Today(w http.ResponseWriter, r *http.Request) {
	day, err := h.traffic.Today(r.Context())
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, day)
}

// Traffic aggregates the last ?days=N days, default 7, capped at 90.
func (h *StatsHandler) Traffic(w http.ResponseWriter, r *http.Request) {
	days := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = n
	}
	if days > 90 {
		days = 90
	}
	summary, err := h.traffic.TrafficForDays(r.Context(), days)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *StatsHandler) AllTime(w http.ResponseWriter, r *http.Request) {
	summary, err := h.traffic.AllTime(r.Context())
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *StatsHandler) Breakdown(w http.ResponseWriter, r *http.Request) {
	breakdown, err := h.traffic.TodayByServiceAndCountry(r.Context())
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, breakdown)
}
