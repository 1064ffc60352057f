//go:build integration

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github-insights/internal/analytics"
	"github-insights/internal/githubapi"
	"github-insights/internal/store"
	"github-insights/internal/syncer"
)

func setupTestDatabase(ctx context.Context, t *testing.T) *pgxpool.Pool {
	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test-db"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgContainer.Terminate(ctx) })

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	m, err := migrate.New("file://../../migrations", connStr)
	require.NoError(t, err)
	require.NoError(t, m.Up())

	dbpool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(dbpool.Close)

	return dbpool
}

// fakeGitHub serves just enough of the REST API for one small user.
func fakeGitHub(t *testing.T) *httptest.Server {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Limit", "5000")
		w.Header().Set("X-RateLimit-Remaining", "4999")
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", time.Now().Add(time.Hour).Unix()))
		w.Header().Set("Content-Type", "application/json")

		path := strings.TrimPrefix(r.URL.Path, "/api/v3")
		switch {
		case path == "/rate_limit":
			fmt.Fprintf(w, `{"resources": {"core": {"limit": 5000, "remaining": 4999, "reset": %d}}}`,
				time.Now().Add(time.Hour).Unix())
		case path == "/user/repos":
			fmt.Fprint(w, `[{"id": 123, "name": "demo", "owner": {"login": "octo"}, "language": "Go", "default_branch": "main"}]`)
		case path == "/repos/octo/demo/commits" && r.URL.Query().Get("sha") == "":
			fmt.Fprint(w, `[
				{"sha": "abc", "commit": {"author": {"name": "tester", "email": "t@t.com", "date": "2026-08-01T12:00:00Z"}, "committer": {"name": "tester", "email": "t@t.com", "date": "2026-08-01T12:00:00Z"}, "message": "feat: new feature"}},
				{"sha": "def", "commit": {"author": {"name": "tester", "email": "t@t.com", "date": "2026-08-02T12:00:00Z"}, "committer": {"name": "tester", "email": "t@t.com", "date": "2026-08-02T12:00:00Z"}, "message": "fix: a bug"}}
			]`)
		case strings.HasPrefix(path, "/repos/octo/demo/commits/"):
			fmt.Fprint(w, `{"sha": "abc", "stats": {"additions": 10, "deletions": 2}, "files": [{"filename": "main.go"}]}`)
		case path == "/repos/octo/demo/languages":
			fmt.Fprint(w, `{"Go": 4321}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message": "Not Found"}`)
		}
	})
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestSync_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	dbpool := setupTestDatabase(ctx, t)
	server := fakeGitHub(t)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	db := store.NewPostgres(dbpool)

	user, err := db.CreateUser(ctx, "octo", "test-token")
	require.NoError(t, err)

	newClient := func(token string) syncer.RemoteClient {
		client := githubapi.NewClient(token, logger, 0)
		require.NoError(t, client.WithBaseURL(server.URL))
		return client
	}

	aggregator := analytics.NewAggregator(db, logger)
	appSyncer := syncer.NewSyncer(db, newClient, aggregator, logger, syncer.Options{
		Concurrency:      2,
		StatsBudget:      10,
		RecentWindow:     30 * 24 * time.Hour,
		MinRateRemaining: 50,
	})

	// First sync pulls the full history.
	job, err := appSyncer.SyncUser(ctx, "octo", false)
	require.NoError(t, err)
	assert.Equal(t, 1, job.ReposProcessed)
	assert.Equal(t, 2, job.CommitsInserted)
	assert.Equal(t, 0, job.ReposFailed)

	repos, err := db.ListRepositoriesByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, repos, 1)
	assert.Equal(t, int64(123), repos[0].GithubRepoID)

	commits, err := db.ListCommitsByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, commits, 2)
	assert.Equal(t, "abc", commits[0].SHA)

	// Second sync over unchanged history inserts nothing.
	job, err = appSyncer.SyncUser(ctx, "octo", true)
	require.NoError(t, err)
	assert.Equal(t, 0, job.CommitsInserted)
	assert.Equal(t, 2, job.CommitsSkipped)

	// The analytics snapshot was refreshed as part of the sync.
	snap, err := db.GetSnapshot(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.TotalCommits)
	assert.Equal(t, "Go", snap.Languages[0].Language)
}
