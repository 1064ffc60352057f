// Package githubapi wraps go-github with full pagination, rate-limit
// accounting and the retry policy the sync engine depends on.
package githubapi

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	"github-insights/internal/model"
)

const (
	perPage = 100 // GitHub's maximum page size

	// Primary rate-limit responses are retried with server-provided
	// backoff. Secondary (abuse-detection) responses get a single retry:
	// hammering those risks credential suspension.
	maxPrimaryRetries   = 3
	maxSecondaryRetries = 1
)

// Client is a wrapper around the go-github client. One Client instance is
// shared by all repository workers of a sync so that rate-limit accounting
// stays centralized.
type Client struct {
	gh         *github.Client
	logger     *slog.Logger
	rate       rateTracker
	statsDelay time.Duration
}

// NewClient creates and configures a new Client instance. The provided
// token is used to create an authenticated http.Client.
func NewClient(token string, logger *slog.Logger, statsDelay time.Duration) *Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(context.Background(), ts)

	return &Client{
		gh:         github.NewClient(tc),
		logger:     logger,
		statsDelay: statsDelay,
	}
}

// WithBaseURL points the client at an alternate API base, GitHub
// Enterprise style. Used by tests to aim at a local fake.
func (c *Client) WithBaseURL(baseURL string) error {
	gh, err := c.gh.WithEnterpriseURLs(baseURL, baseURL)
	if err != nil {
		return err
	}
	c.gh = gh
	return nil
}

// RateLimitState queries the current request budget from GitHub and
// updates the shared tracker. The rate-limit endpoint itself does not
// consume budget.
func (c *Client) RateLimitState(ctx context.Context) (model.RateLimit, error) {
	limits, _, err := c.gh.RateLimit.Get(ctx)
	if err != nil {
		return model.RateLimit{}, err
	}
	core := limits.GetCore()
	rl := model.RateLimit{
		Limit:     core.Limit,
		Remaining: core.Remaining,
		ResetAt:   core.Reset.Time,
	}
	c.rate.set(rl)
	return rl, nil
}

// LastObservedRate returns the budget as of the most recent response,
// without issuing a request.
func (c *Client) LastObservedRate() model.RateLimit {
	return c.rate.snapshot()
}

// ListRepositories returns every repository accessible to the credential.
// Pagination is exhausted before the filter is applied, so exclusion of
// forks or archived repositories never truncates the listing itself.
func (c *Client) ListRepositories(ctx context.Context, filter model.RepoFilter) ([]model.Repository, error) {
	affiliation := "owner"
	if filter.IncludeOrgs {
		affiliation = "owner,organization_member"
	}
	opts := &github.RepositoryListByAuthenticatedUserOptions{
		Affiliation: affiliation,
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	var all []model.Repository
	for {
		var (
			repos []*github.Repository
			resp  *github.Response
		)
		err := c.withRetry(ctx, func() (*github.Response, error) {
			var err error
			repos, resp, err = c.gh.Repositories.ListByAuthenticatedUser(ctx, opts)
			return resp, err
		})
		if err != nil {
			return nil, err
		}

		for _, r := range repos {
			if r.GetFork() && !filter.IncludeForks {
				continue
			}
			if r.GetArchived() && !filter.IncludeArchived {
				continue
			}
			all = append(all, toInternalRepository(r))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

// ListCommits fetches all commits for a repository since a given time,
// or complete history when since is the zero time. It traverses every
// page: a repository's commit count routinely exceeds one page, and a
// single-page fetch would silently corrupt the stored history.
func (c *Client) ListCommits(ctx context.Context, owner, name string, since time.Time) ([]model.Commit, error) {
	opts := &github.CommitsListOptions{
		ListOptions: github.ListOptions{PerPage: perPage},
	}
	if !since.IsZero() {
		opts.Since = since
	}

	var all []model.Commit
	for {
		c.logger.Debug("Fetching commits page", "owner", owner, "repo", name, "page", opts.Page)

		var (
			commits []*github.RepositoryCommit
			resp    *github.Response
		)
		err := c.withRetry(ctx, func() (*github.Response, error) {
			var err error
			commits, resp, err = c.gh.Repositories.ListCommits(ctx, owner, name, opts)
			return resp, err
		})
		if err != nil {
			return nil, err
		}

		for _, commit := range commits {
			all = append(all, toInternalCommit(commit))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

// FetchCommitStats fetches line-change statistics for the given commits,
// one request per SHA. A small delay separates requests so a long sampling
// pass does not trip GitHub's secondary abuse detection. Commits that have
// vanished upstream (404, typically force-pushed away) are skipped; any
// other error aborts the pass so the caller can decide what to do.
func (c *Client) FetchCommitStats(ctx context.Context, owner, name string, shas []string) (map[string]model.CommitStats, error) {
	stats := make(map[string]model.CommitStats, len(shas))

	for i, sha := range shas {
		if i > 0 && c.statsDelay > 0 {
			if err := sleepUntil(ctx, time.Now().Add(c.statsDelay)); err != nil {
				return stats, err
			}
		}

		var commit *github.RepositoryCommit
		err := c.withRetry(ctx, func() (*github.Response, error) {
			var (
				resp *github.Response
				err  error
			)
			commit, resp, err = c.gh.Repositories.GetCommit(ctx, owner, name, sha, nil)
			return resp, err
		})
		if err != nil {
			var ghErr *github.ErrorResponse
			if errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == 404 {
				c.logger.Warn("Commit gone upstream, skipping stats", "owner", owner, "repo", name, "sha", sha)
				continue
			}
			return stats, err
		}

		stats[sha] = model.CommitStats{
			Additions:    commit.GetStats().GetAdditions(),
			Deletions:    commit.GetStats().GetDeletions(),
			FilesChanged: len(commit.Files),
		}
	}

	return stats, nil
}

// ListLanguages returns the per-language byte counts for a repository.
func (c *Client) ListLanguages(ctx context.Context, owner, name string) (map[string]int, error) {
	var langs map[string]int
	err := c.withRetry(ctx, func() (*github.Response, error) {
		var (
			resp *github.Response
			err  error
		)
		langs, resp, err = c.gh.Repositories.ListLanguages(ctx, owner, name)
		return resp, err
	})
	if err != nil {
		return nil, err
	}
	return langs, nil
}

// withRetry runs fn, recording rate-limit headers off every response and
// applying the retry policy: primary rate limits wait out the reset and
// retry up to maxPrimaryRetries times, secondary limits honor Retry-After
// once, everything else propagates untouched.
func (c *Client) withRetry(ctx context.Context, fn func() (*github.Response, error)) error {
	primary, secondary := 0, 0

	for {
		resp, err := fn()
		c.rate.observe(resp)
		if err == nil {
			return nil
		}

		var rateErr *github.RateLimitError
		if errors.As(err, &rateErr) {
			primary++
			if primary > maxPrimaryRetries {
				return err
			}
			reset := rateErr.Rate.Reset.Time
			c.logger.Warn("Primary rate limit hit, waiting for reset",
				"reset_at", reset, "attempt", primary)
			if werr := sleepUntil(ctx, reset); werr != nil {
				return werr
			}
			continue
		}

		var abuseErr *github.AbuseRateLimitError
		if errors.As(err, &abuseErr) {
			secondary++
			if secondary > maxSecondaryRetries {
				return err
			}
			wait := abuseErr.GetRetryAfter()
			if wait <= 0 {
				wait = time.Minute
			}
			c.logger.Warn("Secondary rate limit hit, backing off once", "retry_after", wait)
			if werr := sleepUntil(ctx, time.Now().Add(wait)); werr != nil {
				return werr
			}
			continue
		}

		return err
	}
}

// toInternalRepository translates a github.Repository object to our internal model.Repository.
func toInternalRepository(r *github.Repository) model.Repository {
	return model.Repository{
		GithubRepoID:    r.GetID(),
		Owner:           r.GetOwner().GetLogin(),
		Name:            r.GetName(),
		Description:     r.Description,
		URL:             r.GetHTMLURL(),
		DefaultBranch:   r.GetDefaultBranch(),
		Language:        r.Language,
		Private:         r.GetPrivate(),
		Fork:            r.GetFork(),
		Archived:        r.GetArchived(),
		StarsCount:      r.GetStargazersCount(),
		ForksCount:      r.GetForksCount(),
		OpenIssuesCount: r.GetOpenIssuesCount(),
		WatchersCount:   r.GetWatchersCount(),
		RepoCreatedAt:   r.GetCreatedAt().Time,
		RepoUpdatedAt:   r.GetUpdatedAt().Time,
	}
}

// toInternalCommit translates a github.RepositoryCommit object to our internal model.Commit.
// Stats are zero at this stage; the enrichment pipeline merges sampled
// statistics in afterwards.
func toInternalCommit(c *github.RepositoryCommit) model.Commit {
	return model.Commit{
		SHA:            c.GetSHA(),
		Message:        c.GetCommit().GetMessage(),
		AuthorName:     c.GetCommit().GetAuthor().GetName(),
		AuthorEmail:    c.GetCommit().GetAuthor().GetEmail(),
		AuthorDate:     c.GetCommit().GetAuthor().GetDate().Time,
		CommitterName:  c.GetCommit().GetCommitter().GetName(),
		CommitterEmail: c.GetCommit().GetCommitter().GetEmail(),
		CommitDate:     c.GetCommit().GetCommitter().GetDate().Time,
	}
}
