package di

import (
	"fmt"

	"github.com/aristath/rebalancer/internal/config"
	"github.com/aristath/rebalancer/internal/modules/plans"
	"github.com/aristath/rebalancer/internal/scheduler"
	"github.com/rs/zerolog"
)

// RegisterJobs creates the background jobs and schedules them.
// The scheduler is created but not started.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	sched := scheduler.New(log)
	container.Scheduler = sched

	jobs := &JobInstances{
		ExpirePlans:         plans.NewExpiryJob(container.PlanRepo, cfg.PlanExpiryAge, log),
		CheckWALCheckpoints: scheduler.NewCheckWALCheckpointsJob(log, container.Databases()...),
		PurgeReturnsCache:   scheduler.NewPurgeReturnsCacheJob(container.Predictor, log),
	}

	schedules := []struct {
		schedule string
		job      scheduler.Job
	}{
		{cfg.PlanExpirySchedule, jobs.ExpirePlans},
		{cfg.WALCheckSchedule, jobs.CheckWALCheckpoints},
		{cfg.CachePurgeSchedule, jobs.PurgeReturnsCache},
	}
	for _, s := range schedules {
		if err := sched.AddJob(s.schedule, s.job); err != nil {
			return nil, fmt.Errorf("failed to schedule %s: %w", s.job.Name(), err)
		}
	}

	return jobs, nil
}
