// Package storetest provides a testify mock of store.Querier shared by
// the orchestrator, aggregator and handler tests.
package storetest

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github-insights/internal/model"
)

// MockQuerier is a mock of the store.Querier interface.
type MockQuerier struct {
	mock.Mock
}

func (m *MockQuerier) GetUserByLogin(ctx context.Context, login string) (model.User, error) {
	args := m.Called(ctx, login)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockQuerier) CreateUser(ctx context.Context, login, token string) (model.User, error) {
	args := m.Called(ctx, login, token)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockQuerier) UpsertRepository(ctx context.Context, repo model.Repository) (model.Repository, error) {
	args := m.Called(ctx, repo)
	return args.Get(0).(model.Repository), args.Error(1)
}

func (m *MockQuerier) ListRepositoriesByUser(ctx context.Context, userID int64) ([]model.Repository, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]model.Repository), args.Error(1)
}

func (m *MockQuerier) CountRepositoriesByUser(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockQuerier) SetRepositoryLanguages(ctx context.Context, repoID int64, languages map[string]int) error {
	args := m.Called(ctx, repoID, languages)
	return args.Error(0)
}

func (m *MockQuerier) LanguageBytesByUser(ctx context.Context, userID int64) (map[string]int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(map[string]int64), args.Error(1)
}

func (m *MockQuerier) TouchRepositorySync(ctx context.Context, repoID int64, at time.Time) error {
	args := m.Called(ctx, repoID, at)
	return args.Error(0)
}

func (m *MockQuerier) BatchInsertCommits(ctx context.Context, repoID int64, commits []model.Commit) (int64, error) {
	args := m.Called(ctx, repoID, commits)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockQuerier) LatestCommitDate(ctx context.Context, repoID int64) (time.Time, bool, error) {
	args := m.Called(ctx, repoID)
	return args.Get(0).(time.Time), args.Bool(1), args.Error(2)
}

func (m *MockQuerier) UpdateCommitStats(ctx context.Context, repoID int64, sha string, stats model.CommitStats) error {
	args := m.Called(ctx, repoID, sha, stats)
	return args.Error(0)
}

func (m *MockQuerier) ListCommitsByUser(ctx context.Context, userID int64) ([]model.Commit, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]model.Commit), args.Error(1)
}

func (m *MockQuerier) CountCommitsByUser(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockQuerier) CreateSyncJob(ctx context.Context, userID int64) (model.SyncJob, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(model.SyncJob), args.Error(1)
}

func (m *MockQuerier) CompleteSyncJob(ctx context.Context, job model.SyncJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockQuerier) FailSyncJob(ctx context.Context, jobID int64, message string) error {
	args := m.Called(ctx, jobID, message)
	return args.Error(0)
}

func (m *MockQuerier) LatestSyncJob(ctx context.Context, userID int64) (model.SyncJob, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(model.SyncJob), args.Error(1)
}

func (m *MockQuerier) GetSnapshot(ctx context.Context, userID int64) (model.AnalyticsSnapshot, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(model.AnalyticsSnapshot), args.Error(1)
}

func (m *MockQuerier) SaveSnapshot(ctx context.Context, snapshot model.AnalyticsSnapshot) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

func (m *MockQuerier) HasSnapshot(ctx context.Context, userID int64) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}
