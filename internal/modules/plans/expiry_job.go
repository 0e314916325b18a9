package plans

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// DefaultExpiryAge is how long a plan may stay Pending before it is cancelled
const DefaultExpiryAge = 72 * time.Hour

// ExpiryJob cancels Pending plans that were never executed
type ExpiryJob struct {
	repo    *Repository
	maxAge  time.Duration
	timeout time.Duration
	now     func() time.Time
	log     zerolog.Logger
}

// NewExpiryJob creates the job. A non-positive maxAge uses DefaultExpiryAge.
func NewExpiryJob(repo *Repository, maxAge time.Duration, log zerolog.Logger) *ExpiryJob {
	if maxAge <= 0 {
		maxAge = DefaultExpiryAge
	}
	return &ExpiryJob{
		repo:    repo,
		maxAge:  maxAge,
		timeout: time.Minute,
		now:     time.Now,
		log:     log.With().Str("job", "expire_pending_plans").Logger(),
	}
}

// Name returns the job name
func (j *ExpiryJob) Name() string {
	return "expire_pending_plans"
}

// Run executes the job
func (j *ExpiryJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	cutoff := j.now().Add(-j.maxAge)
	n, err := j.repo.ExpirePending(ctx, cutoff)
	if err != nil {
		return err
	}

	if n > 0 {
		j.log.Info().
			Int64("expired", n).
			Time("cutoff", cutoff).
			Msg("Cancelled stale pending plans")
	}
	return nil
}
