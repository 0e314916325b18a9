package scheduler

import "github.com/rs/zerolog"

// Purger drops expired cache entries and reports how many were removed
type Purger interface {
	Purge() int
}

// PurgeReturnsCacheJob evicts expired expected-return predictions
type PurgeReturnsCacheJob struct {
	cache Purger
	log   zerolog.Logger
}

// NewPurgeReturnsCacheJob creates the job
func NewPurgeReturnsCacheJob(cache Purger, log zerolog.Logger) *PurgeReturnsCacheJob {
	return &PurgeReturnsCacheJob{
		cache: cache,
		log:   log.With().Str("job", "purge_returns_cache").Logger(),
	}
}

// Name returns the job name
func (j *PurgeReturnsCacheJob) Name() string {
	return "purge_returns_cache"
}

// Run executes the job
func (j *PurgeReturnsCacheJob) Run() error {
	removed := j.cache.Purge()
	if removed > 0 {
		j.log.Debug().Int("removed", removed).Msg("Purged expired predictions")
	}
	return nil
}
