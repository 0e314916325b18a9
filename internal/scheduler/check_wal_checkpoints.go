package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/rebalancer/internal/database"
	"github.com/rs/zerolog"
)

// walFrameWarnThreshold is the WAL size in frames above which the log is truncated
const walFrameWarnThreshold = 1000

// CheckWALCheckpointsJob inspects each database's write-ahead log and truncates it when it grows large
type CheckWALCheckpointsJob struct {
	databases []*database.DB
	timeout   time.Duration
	log       zerolog.Logger
}

// NewCheckWALCheckpointsJob creates the job for the given databases
func NewCheckWALCheckpointsJob(log zerolog.Logger, databases ...*database.DB) *CheckWALCheckpointsJob {
	return &CheckWALCheckpointsJob{
		databases: databases,
		timeout:   30 * time.Second,
		log:       log.With().Str("job", "check_wal_checkpoints").Logger(),
	}
}

// Name returns the job name
func (j *CheckWALCheckpointsJob) Name() string {
	return "check_wal_checkpoints"
}

// Run executes the job
func (j *CheckWALCheckpointsJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	var failed int
	for _, db := range j.databases {
		if db == nil {
			continue
		}

		// PRAGMA wal_checkpoint returns: busy, log, checkpointed
		var busy, frames, checkpointed int
		err := db.Conn().QueryRowContext(ctx, "PRAGMA wal_checkpoint(PASSIVE)").Scan(&busy, &frames, &checkpointed)
		if err != nil {
			j.log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to check WAL checkpoint")
			failed++
			continue
		}

		if frames <= walFrameWarnThreshold {
			j.log.Debug().Str("database", db.Name()).Int("wal_frames", frames).Msg("WAL checkpoint status OK")
			continue
		}

		j.log.Warn().
			Str("database", db.Name()).
			Int("wal_frames", frames).
			Int("checkpointed", checkpointed).
			Msg("WAL file is large, truncating")
		if err := db.WALCheckpoint(ctx); err != nil {
			j.log.Warn().Err(err).Str("database", db.Name()).Msg("WAL truncation failed")
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("WAL checkpoint failed for %d database(s)", failed)
	}
	return nil
}
