package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github-insights/internal/apperrors"
	"github-insights/internal/model"
	"github-insights/internal/store"
)

// SyncService triggers synchronization runs. Satisfied by syncer.Syncer.
type SyncService interface {
	SyncUser(ctx context.Context, login string, full bool) (model.SyncJob, error)
}

// AnalyticsService serves snapshots. Satisfied by analytics.Aggregator.
type AnalyticsService interface {
	GetAnalytics(ctx context.Context, userID int64) (model.AnalyticsSnapshot, error)
	RefreshAnalytics(ctx context.Context, userID int64) (model.AnalyticsSnapshot, error)
	HasAnalyticsData(ctx context.Context, userID int64) (bool, error)
}

// InsightService generates the AI reading of a snapshot. Optional: nil
// when no API key is configured.
type InsightService interface {
	Generate(ctx context.Context, snap model.AnalyticsSnapshot) (model.Insights, error)
}

// Handler is the container for API dependencies.
type Handler struct {
	db        store.Querier
	syncs     SyncService
	analytics AnalyticsService
	insights  InsightService
	logger    *slog.Logger
}

// NewRouter creates and configures a new chi router with all API routes.
func NewRouter(db store.Querier, syncs SyncService, analytics AnalyticsService, insights InsightService, logger *slog.Logger) http.Handler {
	h := &Handler{
		db:        db,
		syncs:     syncs,
		analytics: analytics,
		insights:  insights,
		logger:    logger,
	}

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Minute)) // a full sync is slow by nature

	// API Routes
	r.Get("/health", h.healthCheck)
	r.Route("/v1/users/{login}", func(r chi.Router) {
		r.Post("/sync", h.triggerSync)
		r.Get("/sync/status", h.syncStatus)
		r.Get("/analytics", h.getAnalytics)
		r.Post("/analytics/refresh", h.refreshAnalytics)
		r.Get("/insights", h.getInsights)
	})

	return r
}

// healthCheck is a simple health endpoint.
func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// syncSummary is the response body for a completed sync trigger.
type syncSummary struct {
	JobID           int64                 `json:"job_id"`
	Status          string                `json:"status"`
	ReposProcessed  int                   `json:"repos_processed"`
	CommitsInserted int                   `json:"commits_inserted"`
	CommitsSkipped  int                   `json:"commits_skipped"`
	ReposFailed     int                   `json:"repos_failed"`
	Errors          []model.RepoSyncError `json:"errors,omitempty"`
	DurationSeconds float64               `json:"duration_seconds"`
}

// triggerSync runs one orchestrator pass synchronously.
// POST /v1/users/{login}/sync?full=true
func (h *Handler) triggerSync(w http.ResponseWriter, r *http.Request) {
	login := chi.URLParam(r, "login")
	full, _ := strconv.ParseBool(r.URL.Query().Get("full"))

	started := time.Now()
	job, err := h.syncs.SyncUser(r.Context(), login, full)
	if err != nil {
		h.respondSyncError(w, login, err)
		return
	}

	respondWithJSON(w, http.StatusOK, syncSummary{
		JobID:           job.ID,
		Status:          job.Status,
		ReposProcessed:  job.ReposProcessed,
		CommitsInserted: job.CommitsInserted,
		CommitsSkipped:  job.CommitsSkipped,
		ReposFailed:     job.ReposFailed,
		Errors:          job.ErrorDetails,
		DurationSeconds: time.Since(started).Seconds(),
	})
}

// syncStatus returns the latest job alongside aggregate stored counts.
// GET /v1/users/{login}/sync/status
func (h *Handler) syncStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := h.lookupUser(w, r)
	if !ok {
		return
	}

	job, err := h.db.LatestSyncJob(r.Context(), user.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.logger.Error("Failed to load latest sync job", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	repoCount, err := h.db.CountRepositoriesByUser(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("Failed to count repositories", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	commitCount, err := h.db.CountCommitsByUser(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("Failed to count commits", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	resp := map[string]any{
		"stored_repositories": repoCount,
		"stored_commits":      commitCount,
	}
	if job.ID != 0 {
		resp["latest_job"] = jobStatus(job)
	}
	respondWithJSON(w, http.StatusOK, resp)
}

// getAnalytics serves the cached snapshot, computing only when absent.
// GET /v1/users/{login}/analytics
func (h *Handler) getAnalytics(w http.ResponseWriter, r *http.Request) {
	user, ok := h.lookupUser(w, r)
	if !ok {
		return
	}

	snap, err := h.analytics.GetAnalytics(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("Failed to get analytics", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondWithJSON(w, http.StatusOK, snap)
}

// refreshAnalytics forces a recomputation.
// POST /v1/users/{login}/analytics/refresh
func (h *Handler) refreshAnalytics(w http.ResponseWriter, r *http.Request) {
	user, ok := h.lookupUser(w, r)
	if !ok {
		return
	}

	snap, err := h.analytics.RefreshAnalytics(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("Failed to refresh analytics", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondWithJSON(w, http.StatusOK, snap)
}

// getInsights generates the AI reading of the current snapshot.
// GET /v1/users/{login}/insights
func (h *Handler) getInsights(w http.ResponseWriter, r *http.Request) {
	if h.insights == nil {
		respondWithError(w, http.StatusServiceUnavailable, "Insight generation is not configured")
		return
	}

	user, ok := h.lookupUser(w, r)
	if !ok {
		return
	}

	has, err := h.analytics.HasAnalyticsData(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("Failed to check analytics data", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if !has {
		respondWithError(w, http.StatusNotFound, "No analytics data yet; run a sync first")
		return
	}

	snap, err := h.analytics.GetAnalytics(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("Failed to get analytics", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	insights, err := h.insights.Generate(r.Context(), snap)
	if err != nil {
		h.logger.Error("Failed to generate insights", "error", err)
		respondWithError(w, http.StatusBadGateway, "Insight generation failed")
		return
	}
	respondWithJSON(w, http.StatusOK, insights)
}

func (h *Handler) lookupUser(w http.ResponseWriter, r *http.Request) (model.User, bool) {
	login := chi.URLParam(r, "login")
	user, err := h.db.GetUserByLogin(r.Context(), login)
	if errors.Is(err, store.ErrNotFound) {
		respondWithError(w, http.StatusNotFound, "User not found")
		return model.User{}, false
	}
	if err != nil {
		h.logger.Error("Failed to load user", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return model.User{}, false
	}
	return user, true
}

func (h *Handler) respondSyncError(w http.ResponseWriter, login string, err error) {
	var credErr *apperrors.ErrCredentialMissing
	if errors.As(err, &credErr) {
		respondWithError(w, http.StatusUnprocessableEntity, credErr.Error())
		return
	}

	var rateErr *apperrors.ErrRateLimited
	if errors.As(err, &rateErr) {
		w.Header().Set("Retry-After", strconv.FormatInt(int64(time.Until(rateErr.ResetAt).Seconds())+1, 10))
		respondWithError(w, http.StatusTooManyRequests, rateErr.Error())
		return
	}

	h.logger.Error("Sync failed", "user", login, "error", err)
	respondWithError(w, http.StatusInternalServerError, "Sync failed")
}

func jobStatus(job model.SyncJob) map[string]any {
	status := map[string]any{
		"job_id":           job.ID,
		"status":           job.Status,
		"started_at":       job.StartedAt,
		"repos_processed":  job.ReposProcessed,
		"commits_inserted": job.CommitsInserted,
		"commits_skipped":  job.CommitsSkipped,
		"repos_failed":     job.ReposFailed,
	}
	if job.CompletedAt.Valid {
		status["completed_at"] = job.CompletedAt.Time
	}
	if job.ErrorMessage != nil {
		status["error_message"] = *job.ErrorMessage
	}
	return status
}
