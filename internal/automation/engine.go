// Package automation polls the activity ledger and runs matching workflows.
// The engine is a single background loop: no overlapping ticks, watermark
// advanced before processing, and at-most-once execution enforced by the
// uniqueness constraint on (workflow, activity), not by the loop itself.
package automation

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/relata/relata/internal/model"
	"github.com/relata/relata/internal/platform/clock"
	"github.com/relata/relata/internal/store"
)

// triggerTypes are the activity types workflows may subscribe to. Events the
// engine itself emits are excluded so workflows cannot trigger each other.
var triggerTypes = []model.ActivityType{
	model.ActivityContactCreated,
	model.ActivityContactUpdated,
	model.ActivityContactArchived,
	model.ActivityContactMerged,
	model.ActivityContactPropertySet,
	model.ActivityCompanyCreated,
	model.ActivityCompanyArchived,
	model.ActivityAssociationAdded,
	model.ActivityAssociationRemoved,
	model.ActivityDealCreated,
	model.ActivityDealStageChanged,
	model.ActivityDealWon,
	model.ActivityDealLost,
	model.ActivityDealArchived,
	model.ActivityTicketCreated,
	model.ActivityTicketStageChanged,
	model.ActivityTicketClosed,
	model.ActivityTicketReopened,
	model.ActivityTicketArchived,
}

// Config controls polling cadence, batch size, and the startup lookback.
type Config struct {
	PollInterval    time.Duration
	BatchSize       int
	InitialLookback time.Duration
}

// Engine drives workflow execution off the ledger.
type Engine struct {
	store    store.Store
	executor *Executor
	clock    clock.Clock
	log      zerolog.Logger
	cfg      Config

	// The watermark is process-memory only; a restart re-derives it from
	// the lookback window. Replays are harmless because executions are
	// unique per (workflow, activity). watermarkID breaks ties between
	// rows stamped with the same created_at by one transaction, matching
	// the batch order.
	watermark   time.Time
	watermarkID string
	running     atomic.Bool
}

func NewEngine(s store.Store, c clock.Clock, cfg Config, log zerolog.Logger) *Engine {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.InitialLookback <= 0 {
		cfg.InitialLookback = time.Minute
	}
	return &Engine{
		store:    s,
		executor: NewExecutor(s, c, log),
		clock:    c,
		log:      log,
		cfg:      cfg,
	}
}

// Run polls until ctx is canceled.
func (e *Engine) Run(ctx context.Context) error {
	e.watermark = e.clock.Now().Add(-e.cfg.InitialLookback)
	e.watermarkID = ""
	e.log.Info().
		Dur("interval", e.cfg.PollInterval).
		Int("batch", e.cfg.BatchSize).
		Time("watermark", e.watermark).
		Msg("automation engine starting")

	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.log.Info().Msg("automation engine stopping")
			return ctx.Err()
		case <-ticker.C:
			if !e.running.CompareAndSwap(false, true) {
				// Previous tick still running (a delay step can outlast the
				// interval); skip rather than overlap.
				continue
			}
			if err := e.Tick(ctx); err != nil {
				// Best-effort at the tick level; correctness lives in the
				// per-execution records.
				e.log.Error().Err(err).Msg("automation tick")
			}
			e.running.Store(false)
		}
	}
}

// Tick processes one batch. Exposed for tests that drive the engine without
// the timer.
func (e *Engine) Tick(ctx context.Context) error {
	batch, err := e.store.Activities().Batch(ctx, model.ActivityBatchRequest{
		After:        e.watermark,
		AfterID:      e.watermarkID,
		TriggerTypes: triggerTypes,
		Limit:        e.cfg.BatchSize,
	})
	if err != nil {
		return err
	}
	for _, act := range batch {
		// Advance before processing: a crash mid-batch must not replay
		// already-seen activities within this process lifetime.
		e.watermark = act.CreatedAt
		e.watermarkID = act.ActivityID

		matches, err := e.store.Workflows().MatchByTrigger(ctx, act.WorkspaceID, act.Type)
		if err != nil {
			e.log.Error().Err(err).Str("activityId", act.ActivityID).Msg("workflow lookup")
			continue
		}
		for _, wf := range matches {
			if err := e.executor.Execute(ctx, wf, act); err != nil {
				e.log.Error().Err(err).
					Str("workflowId", wf.WorkflowID).
					Str("activityId", act.ActivityID).
					Msg("workflow execution")
			}
		}
	}
	return nil
}

// Watermark reports the engine's current position, for observability.
func (e *Engine) Watermark() time.Time { return e.watermark }
