// Package di provides dependency injection wiring and initialization.
package di

import (
	"github.com/aristath/rebalancer/internal/database"
	"github.com/aristath/rebalancer/internal/modules/marketdata"
	"github.com/aristath/rebalancer/internal/modules/optimization"
	"github.com/aristath/rebalancer/internal/modules/plans"
	"github.com/aristath/rebalancer/internal/modules/rebalancing"
	rebalancinghandlers "github.com/aristath/rebalancer/internal/modules/rebalancing/handlers"
	"github.com/aristath/rebalancer/internal/scheduler"
)

// Container holds all application dependencies.
// It is created by Wire and handed to the server and the scheduler.
type Container struct {
	// Databases
	PlansDB *database.DB

	// Market data
	MarketData     *marketdata.Aggregator
	ContextBuilder *marketdata.ContextBuilder

	// Models
	Predictor *optimization.CachingPredictor
	RiskModel optimization.RiskModel

	// Plan generation and storage
	RebalancingService *rebalancing.Service
	PlanRepo           *plans.Repository

	// HTTP
	RebalancingHandler *rebalancinghandlers.Handler

	// Background jobs
	Scheduler *scheduler.Scheduler
}

// Databases returns every open database, for health checks and WAL maintenance
func (c *Container) Databases() []*database.DB {
	if c.PlansDB == nil {
		return nil
	}
	return []*database.DB{c.PlansDB}
}

// Close closes every open database
func (c *Container) Close() error {
	if c.PlansDB != nil {
		return c.PlansDB.Close()
	}
	return nil
}

// JobInstances holds the registered background jobs for manual triggering
type JobInstances struct {
	ExpirePlans         scheduler.Job
	CheckWALCheckpoints scheduler.Job
	PurgeReturnsCache   scheduler.Job
}

// All returns the jobs in registration order
func (j *JobInstances) All() []scheduler.Job {
	return []scheduler.Job{j.ExpirePlans, j.CheckWALCheckpoints, j.PurgeReturnsCache}
}
