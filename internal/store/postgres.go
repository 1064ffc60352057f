package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github-insights/internal/model"
)

// Postgres implements Querier over a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres store backed by the given pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("store: not found")

func (s *Postgres) GetUserByLogin(ctx context.Context, login string) (model.User, error) {
	var u model.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, github_login, access_token, created_at FROM users WHERE github_login = $1`,
		login,
	).Scan(&u.ID, &u.GithubLogin, &u.AccessToken, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

func (s *Postgres) CreateUser(ctx context.Context, login, token string) (model.User, error) {
	var u model.User
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (github_login, access_token) VALUES ($1, $2)
		 RETURNING id, github_login, access_token, created_at`,
		login, token,
	).Scan(&u.ID, &u.GithubLogin, &u.AccessToken, &u.CreatedAt)
	return u, err
}

// UpsertRepository inserts or refreshes a repository keyed on its GitHub
// numeric ID, so metadata follows renames instead of duplicating rows.
func (s *Postgres) UpsertRepository(ctx context.Context, repo model.Repository) (model.Repository, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO repositories (
			github_repo_id, user_id, owner, name, description, url,
			default_branch, language, private, fork, archived,
			stars_count, forks_count, open_issues_count, watchers_count,
			repo_created_at, repo_updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		ON CONFLICT (github_repo_id) DO UPDATE SET
			owner = EXCLUDED.owner,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			url = EXCLUDED.url,
			default_branch = EXCLUDED.default_branch,
			language = EXCLUDED.language,
			private = EXCLUDED.private,
			fork = EXCLUDED.fork,
			archived = EXCLUDED.archived,
			stars_count = EXCLUDED.stars_count,
			forks_count = EXCLUDED.forks_count,
			open_issues_count = EXCLUDED.open_issues_count,
			watchers_count = EXCLUDED.watchers_count,
			repo_updated_at = EXCLUDED.repo_updated_at,
			db_updated_at = now()
		RETURNING github_repo_id, user_id, owner, name, description, url,
			default_branch, language, private, fork, archived,
			stars_count, forks_count, open_issues_count, watchers_count,
			repo_created_at, repo_updated_at, last_synced_at,
			db_created_at, db_updated_at`,
		repo.GithubRepoID, repo.UserID, repo.Owner, repo.Name, repo.Description,
		repo.URL, repo.DefaultBranch, repo.Language, repo.Private, repo.Fork,
		repo.Archived, repo.StarsCount, repo.ForksCount, repo.OpenIssuesCount,
		repo.WatchersCount, repo.RepoCreatedAt, repo.RepoUpdatedAt,
	)
	return scanRepository(row)
}

func (s *Postgres) ListRepositoriesByUser(ctx context.Context, userID int64) ([]model.Repository, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT github_repo_id, user_id, owner, name, description, url,
			default_branch, language, private, fork, archived,
			stars_count, forks_count, open_issues_count, watchers_count,
			repo_created_at, repo_updated_at, last_synced_at,
			db_created_at, db_updated_at
		FROM repositories WHERE user_id = $1 ORDER BY owner, name`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var repos []model.Repository
	for rows.Next() {
		repo, err := scanRepository(rows)
		if err != nil {
			return nil, err
		}
		repos = append(repos, repo)
	}
	return repos, rows.Err()
}

func (s *Postgres) CountRepositoriesByUser(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM repositories WHERE user_id = $1`, userID,
	).Scan(&n)
	return n, err
}

func (s *Postgres) SetRepositoryLanguages(ctx context.Context, repoID int64, languages map[string]int) error {
	payload, err := json.Marshal(languages)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`UPDATE repositories SET languages = $2, db_updated_at = now() WHERE github_repo_id = $1`,
		repoID, payload,
	)
	return err
}

// LanguageBytesByUser folds the per-repository language byte counts into
// a single map for the user.
func (s *Postgres) LanguageBytesByUser(ctx context.Context, userID int64) (map[string]int64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT languages FROM repositories WHERE user_id = $1 AND languages IS NOT NULL`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	total := make(map[string]int64)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var langs map[string]int64
		if err := json.Unmarshal(payload, &langs); err != nil {
			return nil, err
		}
		for lang, bytes := range langs {
			total[lang] += bytes
		}
	}
	return total, rows.Err()
}

func (s *Postgres) TouchRepositorySync(ctx context.Context, repoID int64, at time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE repositories SET last_synced_at = $2 WHERE github_repo_id = $1`,
		repoID, at,
	)
	return err
}

// BatchInsertCommits inserts the batch in one round trip, skipping rows
// whose (repository_id, sha) already exist. The returned count is rows
// actually inserted; callers derive the duplicate tally from the
// difference. A conflict is never an error here, only the sync engine's
// idempotence at work.
func (s *Postgres) BatchInsertCommits(ctx context.Context, repoID int64, commits []model.Commit) (int64, error) {
	if len(commits) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, c := range commits {
		batch.Queue(`
			INSERT INTO commits (
				repository_id, sha, message, author_name, author_email,
				author_date, committer_name, committer_email, commit_date,
				additions, deletions, files_changed, stats_sampled
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
			ON CONFLICT (repository_id, sha) DO NOTHING`,
			repoID, c.SHA, c.Message, c.AuthorName, c.AuthorEmail,
			c.AuthorDate, c.CommitterName, c.CommitterEmail, c.CommitDate,
			c.Additions, c.Deletions, c.FilesChanged, c.StatsSampled,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	var inserted int64
	for range commits {
		tag, err := results.Exec()
		if err != nil {
			return inserted, err
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}

// LatestCommitDate returns the most recent stored commit timestamp for a
// repository. The second return is false when the repository has no
// commits yet, which tells the orchestrator to run a full fetch.
func (s *Postgres) LatestCommitDate(ctx context.Context, repoID int64) (time.Time, bool, error) {
	var latest *time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT max(commit_date) FROM commits WHERE repository_id = $1`,
		repoID,
	).Scan(&latest)
	if err != nil {
		return time.Time{}, false, err
	}
	if latest == nil {
		return time.Time{}, false, nil
	}
	return *latest, true, nil
}

// UpdateCommitStats backfills sampled statistics onto an already-stored
// commit. Rows that carried real stats at insert time are left alone:
// commits are append-only except for this one backfill path.
func (s *Postgres) UpdateCommitStats(ctx context.Context, repoID int64, sha string, stats model.CommitStats) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE commits
		SET additions = $3, deletions = $4, files_changed = $5, stats_sampled = true
		WHERE repository_id = $1 AND sha = $2 AND stats_sampled = false`,
		repoID, sha, stats.Additions, stats.Deletions, stats.FilesChanged,
	)
	return err
}

func (s *Postgres) ListCommitsByUser(ctx context.Context, userID int64) ([]model.Commit, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.repository_id, c.sha, c.message, c.author_name, c.author_email,
			c.author_date, c.committer_name, c.committer_email, c.commit_date,
			c.additions, c.deletions, c.files_changed, c.stats_sampled, c.db_created_at
		FROM commits c
		JOIN repositories r ON r.github_repo_id = c.repository_id
		WHERE r.user_id = $1
		ORDER BY c.commit_date`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var commits []model.Commit
	for rows.Next() {
		var c model.Commit
		if err := rows.Scan(
			&c.RepositoryID, &c.SHA, &c.Message, &c.AuthorName, &c.AuthorEmail,
			&c.AuthorDate, &c.CommitterName, &c.CommitterEmail, &c.CommitDate,
			&c.Additions, &c.Deletions, &c.FilesChanged, &c.StatsSampled, &c.DBCreatedAt,
		); err != nil {
			return nil, err
		}
		commits = append(commits, c)
	}
	return commits, rows.Err()
}

func (s *Postgres) CountCommitsByUser(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM commits c
		JOIN repositories r ON r.github_repo_id = c.repository_id
		WHERE r.user_id = $1`,
		userID,
	).Scan(&n)
	return n, err
}

// CreateSyncJob inserts the job already in in_progress: creation and the
// transition happen in one statement, so no observer ever sees a pending
// job that is actually running.
func (s *Postgres) CreateSyncJob(ctx context.Context, userID int64) (model.SyncJob, error) {
	var job model.SyncJob
	err := s.pool.QueryRow(ctx, `
		INSERT INTO sync_jobs (user_id, status, started_at)
		VALUES ($1, $2, now())
		RETURNING id, user_id, status, started_at`,
		userID, model.SyncStatusInProgress,
	).Scan(&job.ID, &job.UserID, &job.Status, &job.StartedAt)
	return job, err
}

func (s *Postgres) CompleteSyncJob(ctx context.Context, job model.SyncJob) error {
	details, err := json.Marshal(job.ErrorDetails)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		UPDATE sync_jobs SET
			status = $2, completed_at = now(),
			repos_processed = $3, commits_inserted = $4,
			commits_skipped = $5, repos_failed = $6,
			error_message = $7, error_details = $8
		WHERE id = $1`,
		job.ID, model.SyncStatusCompleted,
		job.ReposProcessed, job.CommitsInserted,
		job.CommitsSkipped, job.ReposFailed,
		job.ErrorMessage, details,
	)
	return err
}

func (s *Postgres) FailSyncJob(ctx context.Context, jobID int64, message string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE sync_jobs SET status = $2, completed_at = now(), error_message = $3
		WHERE id = $1`,
		jobID, model.SyncStatusFailed, message,
	)
	return err
}

func (s *Postgres) LatestSyncJob(ctx context.Context, userID int64) (model.SyncJob, error) {
	var (
		job     model.SyncJob
		details []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, status, started_at, completed_at,
			repos_processed, commits_inserted, commits_skipped, repos_failed,
			error_message, error_details
		FROM sync_jobs WHERE user_id = $1
		ORDER BY started_at DESC LIMIT 1`,
		userID,
	).Scan(&job.ID, &job.UserID, &job.Status, &job.StartedAt, &job.CompletedAt,
		&job.ReposProcessed, &job.CommitsInserted, &job.CommitsSkipped,
		&job.ReposFailed, &job.ErrorMessage, &details)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.SyncJob{}, ErrNotFound
	}
	if err != nil {
		return model.SyncJob{}, err
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &job.ErrorDetails); err != nil {
			return model.SyncJob{}, err
		}
	}
	return job, nil
}

func (s *Postgres) GetSnapshot(ctx context.Context, userID int64) (model.AnalyticsSnapshot, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT payload FROM analytics_snapshots WHERE user_id = $1`, userID,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.AnalyticsSnapshot{}, ErrNotFound
	}
	if err != nil {
		return model.AnalyticsSnapshot{}, err
	}
	var snap model.AnalyticsSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return model.AnalyticsSnapshot{}, err
	}
	return snap, nil
}

// SaveSnapshot overwrites the user's snapshot wholesale. The snapshot is a
// cache of derived state, so there is nothing to merge.
func (s *Postgres) SaveSnapshot(ctx context.Context, snapshot model.AnalyticsSnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO analytics_snapshots (user_id, payload, calculated_at, range_start, range_end)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			payload = EXCLUDED.payload,
			calculated_at = EXCLUDED.calculated_at,
			range_start = EXCLUDED.range_start,
			range_end = EXCLUDED.range_end`,
		snapshot.UserID, payload, snapshot.CalculatedAt,
		snapshot.RangeStart, snapshot.RangeEnd,
	)
	return err
}

func (s *Postgres) HasSnapshot(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM analytics_snapshots WHERE user_id = $1)`, userID,
	).Scan(&exists)
	return exists, err
}

func scanRepository(row pgx.Row) (model.Repository, error) {
	var r model.Repository
	err := row.Scan(
		&r.GithubRepoID, &r.UserID, &r.Owner, &r.Name, &r.Description, &r.URL,
		&r.DefaultBranch, &r.Language, &r.Private, &r.Fork, &r.Archived,
		&r.StarsCount, &r.ForksCount, &r.OpenIssuesCount, &r.WatchersCount,
		&r.RepoCreatedAt, &r.RepoUpdatedAt, &r.LastSyncedAt,
		&r.DBCreatedAt, &r.DBUpdatedAt,
	)
	return r, err
}
