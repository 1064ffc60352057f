package model

import (
	"database/sql"
	"time"
)

// User is the owner of a synced history. AccessToken is the GitHub
// credential used for all remote calls on this user's behalf.
type User struct {
	ID          int64
	GithubLogin string
	AccessToken string
	CreatedAt   time.Time
}

// Repository represents the metadata of a GitHub repository. The GitHub
// numeric ID is the identity key: it survives renames, so upserts match
// on it rather than on owner/name.
type Repository struct {
	GithubRepoID    int64 `json:"github_repo_id"`
	UserID          int64
	Owner           string
	Name            string
	Description     *string
	URL             string
	DefaultBranch   string
	Language        *string
	Private         bool
	Fork            bool
	Archived        bool
	StarsCount      int
	ForksCount      int
	OpenIssuesCount int
	WatchersCount   int
	RepoCreatedAt   time.Time
	RepoUpdatedAt   time.Time
	LastSyncedAt    sql.NullTime
	DBCreatedAt     time.Time
	DBUpdatedAt     time.Time
}

// FullName returns the owner/name form used in GitHub URLs and logs.
func (r *Repository) FullName() string {
	return r.Owner + "/" + r.Name
}

// Commit is one commit as stored. (RepositoryID, SHA) is globally unique;
// rows are append-only except that zero stats may be backfilled later.
// StatsSampled distinguishes "really zero lines changed" from "stats were
// never fetched for this commit".
type Commit struct {
	RepositoryID   int64
	SHA            string
	Message        string
	AuthorName     string
	AuthorEmail    string
	AuthorDate     time.Time
	CommitterName  string
	CommitterEmail string
	CommitDate     time.Time
	Additions      int
	Deletions      int
	FilesChanged   int
	StatsSampled   bool
	DBCreatedAt    time.Time
}

// TotalChanges is additions plus deletions.
func (c *Commit) TotalChanges() int {
	return c.Additions + c.Deletions
}

// CommitStats is the line-change statistics fetched for a single commit
// in the sampling pass.
type CommitStats struct {
	Additions    int
	Deletions    int
	FilesChanged int
}

// RepoFilter narrows the repository list fetched for a user. Filtering is
// applied client-side after the full paginated listing.
type RepoFilter struct {
	IncludeForks    bool
	IncludeArchived bool
	IncludeOrgs     bool
}

// Sync job statuses.
const (
	SyncStatusPending    = "pending"
	SyncStatusInProgress = "in_progress"
	SyncStatusCompleted  = "completed"
	SyncStatusFailed     = "failed"
)

// SyncJob is one synchronization run. Rows are an append-only ledger:
// created when a sync starts, mutated only by the orchestrator, never
// deleted.
type SyncJob struct {
	ID              int64
	UserID          int64
	Status          string
	StartedAt       time.Time
	CompletedAt     sql.NullTime
	ReposProcessed  int
	CommitsInserted int
	CommitsSkipped  int
	ReposFailed     int
	ErrorMessage    *string
	ErrorDetails    []RepoSyncError
}

// RepoSyncError is one entry in a job's per-repository error tally.
type RepoSyncError struct {
	Repo  string `json:"repo"`
	Error string `json:"error"`
}

// RateLimit is the remote API request budget as last reported by GitHub.
// Ephemeral state, never persisted.
type RateLimit struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// AnalyticsSnapshot is the cached, per-user analytics result. It is
// derivable purely from the stored commits and repositories, so it is
// overwritten wholesale on every recomputation and never treated as a
// source of truth.
type AnalyticsSnapshot struct {
	UserID          int64              `json:"user_id"`
	TotalCommits    int                `json:"total_commits"`
	TotalRepos      int                `json:"total_repos"`
	TotalAdditions  int                `json:"total_additions"`
	TotalDeletions  int                `json:"total_deletions"`
	CurrentStreak   int                `json:"current_streak"`
	LongestStreak   int                `json:"longest_streak"`
	ActiveDays      int                `json:"active_days"`
	CommitsByHour   [24]int            `json:"commits_by_hour"`
	CommitsByDay    [7]int             `json:"commits_by_day"`
	Languages       []LanguageStat     `json:"languages"`
	RepoActivity    []RepoActivity     `json:"repo_activity"`
	Impact          ImpactStats        `json:"impact"`
	Quality         QualityStats       `json:"quality"`
	Persona         Persona            `json:"persona"`
	Comparison      []ComparisonResult `json:"comparison"`
	UnenrichedCount int                `json:"unenriched_count"`
	RangeStart      time.Time          `json:"range_start"`
	RangeEnd        time.Time          `json:"range_end"`
	CalculatedAt    time.Time          `json:"calculated_at"`
}

// LanguageStat is one language's share of the user's work.
type LanguageStat struct {
	Language string  `json:"language"`
	Bytes    int64   `json:"bytes"`
	Commits  int     `json:"commits"`
	Percent  float64 `json:"percent"`
}

// RepoActivity is the per-repository commit breakdown.
type RepoActivity struct {
	Repo       string    `json:"repo"`
	Commits    int       `json:"commits"`
	Additions  int       `json:"additions"`
	Deletions  int       `json:"deletions"`
	LastCommit time.Time `json:"last_commit"`
}

// Commit categories assigned by the churn/impact calculator.
const (
	CategoryFeature     = "feature"
	CategoryRefactor    = "refactor"
	CategoryFix         = "fix"
	CategoryCleanup     = "cleanup"
	CategoryMaintenance = "maintenance"
)

// ImpactStats is the churn/impact calculator output.
type ImpactStats struct {
	Categories  map[string]int `json:"categories"`
	ChurnRate   float64        `json:"churn_rate"`
	ImpactScore float64        `json:"impact_score"`
}

// QualityStats grades commit-message hygiene.
type QualityStats struct {
	Score             float64 `json:"score"`
	Grade             string  `json:"grade"`
	AvgMessageLength  float64 `json:"avg_message_length"`
	ConventionalRatio float64 `json:"conventional_ratio"`
	ShortMessageRatio float64 `json:"short_message_ratio"`
	DescriptiveRatio  float64 `json:"descriptive_ratio"`
	WIPRatio          float64 `json:"wip_ratio"`
}

// Persona is the derived developer archetype.
type Persona struct {
	Archetype   string `json:"archetype"`
	Schedule    string `json:"schedule"`
	Description string `json:"description"`
}

// ComparisonResult places one of the user's metrics against a fixed
// population baseline.
type ComparisonResult struct {
	Metric     string  `json:"metric"`
	Value      float64 `json:"value"`
	Baseline   float64 `json:"baseline"`
	Percentile int     `json:"percentile"`
}

// Insights is the AI-generated reading of a snapshot. The snapshot is the
// stable input contract; these three lists are the stable output.
type Insights struct {
	Patterns    []string  `json:"patterns"`
	Strengths   []string  `json:"strengths"`
	Suggestions []string  `json:"suggestions"`
	GeneratedAt time.Time `json:"generated_at"`
}
