// Package store is the persistence layer: a Querier interface consumed by
// the orchestrator, aggregator and HTTP handlers, and a Postgres
// implementation over pgx.
package store

import (
	"context"
	"time"

	"github-insights/internal/model"
)

// Querier is the set of storage operations the rest of the service
// depends on. Tests substitute a mock; production uses *Postgres.
type Querier interface {
	// Users
	GetUserByLogin(ctx context.Context, login string) (model.User, error)
	CreateUser(ctx context.Context, login, token string) (model.User, error)

	// Repositories
	UpsertRepository(ctx context.Context, repo model.Repository) (model.Repository, error)
	ListRepositoriesByUser(ctx context.Context, userID int64) ([]model.Repository, error)
	CountRepositoriesByUser(ctx context.Context, userID int64) (int64, error)
	SetRepositoryLanguages(ctx context.Context, repoID int64, languages map[string]int) error
	LanguageBytesByUser(ctx context.Context, userID int64) (map[string]int64, error)
	TouchRepositorySync(ctx context.Context, repoID int64, at time.Time) error

	// Commits
	BatchInsertCommits(ctx context.Context, repoID int64, commits []model.Commit) (inserted int64, err error)
	LatestCommitDate(ctx context.Context, repoID int64) (time.Time, bool, error)
	UpdateCommitStats(ctx context.Context, repoID int64, sha string, stats model.CommitStats) error
	ListCommitsByUser(ctx context.Context, userID int64) ([]model.Commit, error)
	CountCommitsByUser(ctx context.Context, userID int64) (int64, error)

	// Sync jobs
	CreateSyncJob(ctx context.Context, userID int64) (model.SyncJob, error)
	CompleteSyncJob(ctx context.Context, job model.SyncJob) error
	FailSyncJob(ctx context.Context, jobID int64, message string) error
	LatestSyncJob(ctx context.Context, userID int64) (model.SyncJob, error)

	// Analytics snapshots
	GetSnapshot(ctx context.Context, userID int64) (model.AnalyticsSnapshot, error)
	SaveSnapshot(ctx context.Context, snapshot model.AnalyticsSnapshot) error
	HasSnapshot(ctx context.Context, userID int64) (bool, error)
}
