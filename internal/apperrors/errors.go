// Package apperrors defines the error taxonomy shared by the sync engine
// and the HTTP layer. Each type maps to a distinct recovery policy: some
// abort the whole run, some only the current repository, some only the
// current record.
package apperrors

import (
	"fmt"
	"time"
)

// ErrCredentialMissing is returned when a user has no usable GitHub token.
// Fatal to the sync; no job row is created.
type ErrCredentialMissing struct {
	Login string
}

func (e *ErrCredentialMissing) Error() string {
	return fmt.Sprintf("no GitHub credential linked for user %q", e.Login)
}

// ErrRateLimited is returned when the remaining request budget is too low
// to start (or continue) a sync. Carries the reset time so the caller
// knows when a retry can succeed.
type ErrRateLimited struct {
	Remaining int
	ResetAt   time.Time
}

func (e *ErrRateLimited) Error() string {
	return fmt.Sprintf("GitHub rate limit exhausted (%d remaining), resets at %s",
		e.Remaining, e.ResetAt.Format(time.RFC3339))
}

// ErrTransientFetch wraps a network or 5xx failure during a single
// repository's fetch. Recovered by skip-and-continue; tallied on the job.
type ErrTransientFetch struct {
	Repo string
	Err  error
}

func (e *ErrTransientFetch) Error() string {
	return fmt.Sprintf("fetch failed for %s: %v", e.Repo, e.Err)
}

func (e *ErrTransientFetch) Unwrap() error { return e.Err }

// ErrValidation marks a malformed commit record. Recovered by dropping
// the single record.
type ErrValidation struct {
	SHA    string
	Reason string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("invalid commit %q: %s", e.SHA, e.Reason)
}

// ErrStorage wraps a database write failure. Aborts the current
// repository's batch only; the sync continues with the next repository.
type ErrStorage struct {
	Op  string
	Err error
}

func (e *ErrStorage) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *ErrStorage) Unwrap() error { return e.Err }
