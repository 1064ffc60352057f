// Package syncer drives one complete synchronization for one user:
// repository discovery, incremental commit fetch, enrichment, persistence
// and sync-job bookkeeping.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github-insights/internal/apperrors"
	"github-insights/internal/enrich"
	"github-insights/internal/model"
	"github-insights/internal/store"
)

// RemoteClient is the slice of the GitHub client the orchestrator needs.
type RemoteClient interface {
	RateLimitState(ctx context.Context) (model.RateLimit, error)
	ListRepositories(ctx context.Context, filter model.RepoFilter) ([]model.Repository, error)
	ListCommits(ctx context.Context, owner, name string, since time.Time) ([]model.Commit, error)
	FetchCommitStats(ctx context.Context, owner, name string, shas []string) (map[string]model.CommitStats, error)
	ListLanguages(ctx context.Context, owner, name string) (map[string]int, error)
}

// ClientFactory builds a RemoteClient for a user's token. Tokens are
// per-user, so the client cannot be constructed once at startup.
type ClientFactory func(token string) RemoteClient

// Refresher recomputes a user's analytics. Satisfied by the analytics
// aggregator.
type Refresher interface {
	RefreshAnalytics(ctx context.Context, userID int64) (model.AnalyticsSnapshot, error)
}

// Options tune one orchestrator instance.
type Options struct {
	// Concurrency bounds the per-repository worker pool. The shared
	// rate-limit accounting lives inside the RemoteClient, so workers
	// never need their own budget arithmetic.
	Concurrency int

	// StatsBudget is the per-repository cap on statistics API calls.
	StatsBudget int

	// RecentWindow separates "recent" from "older" commits for sampling.
	RecentWindow time.Duration

	// MinRateRemaining is the request budget required to start a sync.
	MinRateRemaining int

	// Filter narrows which repositories are synced.
	Filter model.RepoFilter
}

// Syncer orchestrates the fetching and storing of a user's history.
type Syncer struct {
	db        store.Querier
	newClient ClientFactory
	refresher Refresher
	logger    *slog.Logger
	opts      Options
}

// NewSyncer creates a new Syncer instance.
func NewSyncer(db store.Querier, newClient ClientFactory, refresher Refresher, logger *slog.Logger, opts Options) *Syncer {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Syncer{
		db:        db,
		newClient: newClient,
		refresher: refresher,
		logger:    logger,
		opts:      opts,
	}
}

// repoResult is one repository's outcome within a sync. Collecting these
// instead of propagating errors is what makes failure isolation and the
// final job summary a plain fold.
type repoResult struct {
	repo     string
	inserted int64
	skipped  int64
	err      error
}

// SyncUser runs one complete synchronization for the user. Preconditions
// (credential, rate budget) fail before any job row exists; once the job
// is created, per-repository failures are tallied but never abort the run.
// When full is true the stored incremental boundary is ignored and
// complete history is refetched.
func (s *Syncer) SyncUser(ctx context.Context, login string, full bool) (model.SyncJob, error) {
	user, err := s.db.GetUserByLogin(ctx, login)
	if errors.Is(err, store.ErrNotFound) {
		return model.SyncJob{}, &apperrors.ErrCredentialMissing{Login: login}
	}
	if err != nil {
		return model.SyncJob{}, &apperrors.ErrStorage{Op: "load user", Err: err}
	}
	if user.AccessToken == "" {
		return model.SyncJob{}, &apperrors.ErrCredentialMissing{Login: login}
	}

	client := s.newClient(user.AccessToken)

	// Pre-empt a guaranteed-to-fail run before creating any job state.
	rl, err := client.RateLimitState(ctx)
	if err != nil {
		return model.SyncJob{}, fmt.Errorf("checking rate limit: %w", err)
	}
	if rl.Remaining < s.opts.MinRateRemaining {
		return model.SyncJob{}, &apperrors.ErrRateLimited{Remaining: rl.Remaining, ResetAt: rl.ResetAt}
	}

	job, err := s.db.CreateSyncJob(ctx, user.ID)
	if err != nil {
		return model.SyncJob{}, &apperrors.ErrStorage{Op: "create sync job", Err: err}
	}
	logger := s.logger.With("user", login, "job_id", job.ID)
	logger.Info("Sync started", "full", full, "rate_remaining", rl.Remaining)

	// Repository metadata is cheap and must stay current, so the full
	// list is fetched every run regardless of the incremental mode.
	repos, err := client.ListRepositories(ctx, s.opts.Filter)
	if err != nil {
		msg := fmt.Sprintf("listing repositories: %v", err)
		s.finishFailed(ctx, job.ID, msg, logger)
		return model.SyncJob{}, fmt.Errorf("listing repositories: %w", err)
	}
	logger.Info("Repositories discovered", "count", len(repos))

	results := make([]repoResult, len(repos))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i, repo := range repos {
		i, repo := i, repo
		g.Go(func() error {
			repo.UserID = user.ID
			res := s.syncRepo(gctx, client, repo, full)
			mu.Lock()
			results[i] = res
			mu.Unlock()
			// Never propagate: one broken repository must not cancel
			// the group and starve the rest.
			return nil
		})
	}
	_ = g.Wait()

	// Bookkeeping survives caller cancellation: partial progress is
	// valid and resumable, so the ledger must say what happened.
	finishCtx := context.WithoutCancel(ctx)
	job = foldResults(job, results)
	if err := s.db.CompleteSyncJob(finishCtx, job); err != nil {
		return job, &apperrors.ErrStorage{Op: "complete sync job", Err: err}
	}
	job.Status = model.SyncStatusCompleted
	logger.Info("Sync completed",
		"repos", job.ReposProcessed, "inserted", job.CommitsInserted,
		"skipped", job.CommitsSkipped, "failed", job.ReposFailed)

	// Best effort: a failed recomputation must not fail the sync.
	if s.refresher != nil {
		if _, err := s.refresher.RefreshAnalytics(finishCtx, user.ID); err != nil {
			logger.Warn("Analytics refresh failed after sync", "error", err)
		}
	}

	return job, nil
}

// syncRepo handles one repository end to end and reports its outcome.
func (s *Syncer) syncRepo(ctx context.Context, client RemoteClient, repo model.Repository, full bool) repoResult {
	res := repoResult{repo: repo.FullName()}
	logger := s.logger.With("repo", res.repo)

	stored, err := s.db.UpsertRepository(ctx, repo)
	if err != nil {
		res.err = &apperrors.ErrStorage{Op: "upsert repository", Err: err}
		return res
	}

	since, err := s.sinceBoundary(ctx, stored.GithubRepoID, full)
	if err != nil {
		res.err = err
		return res
	}

	commits, err := client.ListCommits(ctx, repo.Owner, repo.Name, since)
	if err != nil {
		res.err = &apperrors.ErrTransientFetch{Repo: res.repo, Err: err}
		return res
	}

	valid, dropped := enrich.ValidateBatch(commits, logger)
	if dropped > 0 {
		logger.Warn("Dropped malformed commits", "count", dropped)
	}

	var statsBySha map[string]model.CommitStats
	if len(valid) > 0 {
		shas := enrich.SampleShas(valid, s.opts.StatsBudget, s.opts.RecentWindow, time.Now())
		statsBySha, err = client.FetchCommitStats(ctx, repo.Owner, repo.Name, shas)
		if err != nil {
			// Partial stats are usable; unenriched commits stay flagged.
			logger.Warn("Statistics sampling incomplete", "fetched", len(statsBySha), "error", err)
		}
		valid = enrich.MergeStats(valid, statsBySha)
	}

	inserted, err := s.db.BatchInsertCommits(ctx, stored.GithubRepoID, valid)
	if err != nil {
		res.err = &apperrors.ErrStorage{Op: "insert commits", Err: err}
		return res
	}
	res.inserted = inserted
	res.skipped = int64(len(valid)) - inserted

	// Backfill sampled stats onto rows skipped as duplicates. Rows that
	// already carry stats are untouched by the conditional update.
	if res.skipped > 0 {
		for sha, stats := range statsBySha {
			if err := s.db.UpdateCommitStats(ctx, stored.GithubRepoID, sha, stats); err != nil {
				logger.Warn("Stat backfill failed", "sha", sha, "error", err)
				break
			}
		}
	}

	if langs, err := client.ListLanguages(ctx, repo.Owner, repo.Name); err != nil {
		logger.Warn("Language listing failed", "error", err)
	} else if err := s.db.SetRepositoryLanguages(ctx, stored.GithubRepoID, langs); err != nil {
		logger.Warn("Language persistence failed", "error", err)
	}

	if err := s.db.TouchRepositorySync(ctx, stored.GithubRepoID, time.Now()); err != nil {
		logger.Warn("Failed to record sync time", "error", err)
	}

	logger.Info("Repository synced", "inserted", res.inserted, "skipped", res.skipped)
	return res
}

// sinceBoundary determines the incremental fetch boundary: just past the
// most recent stored commit, or the zero time for a full (re)sync.
func (s *Syncer) sinceBoundary(ctx context.Context, repoID int64, full bool) (time.Time, error) {
	if full {
		return time.Time{}, nil
	}
	latest, ok, err := s.db.LatestCommitDate(ctx, repoID)
	if err != nil {
		return time.Time{}, &apperrors.ErrStorage{Op: "latest commit date", Err: err}
	}
	if !ok {
		return time.Time{}, nil
	}
	// Nudge past the boundary commit so it is not refetched every run.
	return latest.Add(1 * time.Second), nil
}

// foldResults folds the per-repository outcomes into the job summary.
func foldResults(job model.SyncJob, results []repoResult) model.SyncJob {
	for _, r := range results {
		job.ReposProcessed++
		job.CommitsInserted += int(r.inserted)
		job.CommitsSkipped += int(r.skipped)
		if r.err != nil {
			job.ReposFailed++
			job.ErrorDetails = append(job.ErrorDetails, model.RepoSyncError{
				Repo:  r.repo,
				Error: r.err.Error(),
			})
		}
	}
	if job.ReposFailed > 0 {
		msg := fmt.Sprintf("%d of %d repositories failed", job.ReposFailed, job.ReposProcessed)
		job.ErrorMessage = &msg
	}
	return job
}

func (s *Syncer) finishFailed(ctx context.Context, jobID int64, message string, logger *slog.Logger) {
	if err := s.db.FailSyncJob(context.WithoutCancel(ctx), jobID, message); err != nil {
		logger.Error("Failed to mark sync job failed", "error", err)
	}
}
