package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shipline-labs/shipline/internal/domain"
	"github.com/shipline-labs/shipline/internal/repo/postgres"
)

type runReader interface {
	GetRun(ctx context.Context, runID string) (postgres.RunRecord, error)
}

type intakeStore interface {
	WithTx(ctx context.Context, fn func(tx postgres.Tx) error) error
}

type runStarter interface {
	Start(run domain.PipelineRun)
}

type releaserAPI struct {
	logger *slog.Logger

	runs   runReader
	intake intakeStore
	runner runStarter

	webhookSecret  string
	webhookMaxSkew time.Duration
}

func newReleaserAPI(
	logger *slog.Logger,
	runs runReader,
	intake intakeStore,
	runner runStarter,
	webhookSecret string,
	webhookMaxSkew time.Duration,
) *releaserAPI {
	return &releaserAPI{
		logger:         logger,
		runs:           runs,
		intake:         intake,
		runner:         runner,
		webhookSecret:  webhookSecret,
		webhookMaxSkew: webhookMaxSkew,
	}
}

func (api *releaserAPI) register(mux *http.ServeMux) {
	mux.HandleFunc("POST /events", api.handleEvent)
	mux.HandleFunc("GET /runs/{run_id}", api.handleGetRun)
}

func (api *releaserAPI) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := strings.TrimSpace(r.PathValue("run_id"))
	if runID == "" {
		api.writeError(w, r, http.StatusBadRequest, "run_id_required")
		return
	}

	record, err := api.runs.GetRun(r.Context(), runID)
	if err != nil {
		if errors.Is(err, postgres.ErrRunNotFound) {
			api.writeError(w, r, http.StatusNotFound, "not_found")
			return
		}
		api.logger.Error("read run failed", "run_id", runID, "error", err)
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	api.writeJSON(w, http.StatusOK, record)
}

func (api *releaserAPI) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(body)
}

func (api *releaserAPI) writeError(w http.ResponseWriter, r *http.Request, status int, code string) {
	api.writeJSON(w, status, map[string]any{
		"error":      code,
		"request_id": r.Header.Get("X-Request-Id"),
	})
}
