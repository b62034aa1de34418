package checks

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/adapters"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/models/api"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/models/domain"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/services/probes"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/store/source"
	"github.com/rs/zerolog"
)

// Runner runs registered checks on demand
type Runner interface {
	Checks() []probes.Probe
	Run(ctx context.Context, name string) (*domain.CheckReport, error)
}

type Handler struct {
	runner  Runner
	metrics *Metrics
}

func NewHandler(runner Runner, metrics *Metrics) *Handler {
	return &Handler{
		runner:  runner,
		metrics: metrics,
	}
}

func (h *Handler) ListChecks(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	response := []api.Check{}
	for _, p := range h.runner.Checks() {
		response = append(response, api.Check{Name: p.Name(), Description: p.Description()})
	}

	writeJSON(w, logger, http.StatusOK, response)
}

func (h *Handler) RunCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)
	check := chi.URLParam(r, "check")

	report, err := h.runner.Run(ctx, check)
	if err != nil {
		status := errorStatus(err)
		if status != http.StatusNotFound && h.metrics != nil {
			h.metrics.Failed(check)
		}
		logger.Error().
			Err(err).
			Str("check", check).
			Int("status", status).
			Msg("failed to run check")
		writeJSON(w, logger, status, api.Error{Error: err.Error()})
		return
	}

	if h.metrics != nil {
		h.metrics.Observe(check, report)
	}
	writeJSON(w, logger, http.StatusOK, adapters.MapCheckReportDomainToApi(*report))
}

func errorStatus(err error) int {
	var fetchErr *source.FetchError
	switch {
	case errors.Is(err, probes.ErrUnknownCheck):
		return http.StatusNotFound
	case errors.As(err, &fetchErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, logger *zerolog.Logger, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error().
			Err(err).
			Msg("failed to encode response")
	}
}
