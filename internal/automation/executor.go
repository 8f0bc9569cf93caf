package automation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/relata/relata/internal/model"
	"github.com/relata/relata/internal/platform/clock"
	"github.com/relata/relata/internal/store"
)

// automationActor is recorded as the actor on every engine-emitted activity.
const automationActor = "automation"

// Executor runs one workflow against one triggering activity and records the
// immutable outcome. Every outcome path tolerates a concurrent duplicate: the
// first record wins and the loser backs off without emitting.
type Executor struct {
	store store.Store
	clock clock.Clock
	log   zerolog.Logger
}

func NewExecutor(s store.Store, c clock.Clock, log zerolog.Logger) *Executor {
	return &Executor{store: s, clock: c, log: log}
}

// Execute is idempotent per (workflow, activity) pair.
func (x *Executor) Execute(ctx context.Context, wf *model.Workflow, act *model.Activity) error {
	existing, err := x.store.Executions().Get(ctx, wf.WorkflowID, act.ActivityID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	if !wf.Enabled || wf.ArchivedAt != nil {
		reason := "disabled"
		if wf.ArchivedAt != nil {
			reason = "archived"
		}
		return x.record(ctx, wf, act, model.ExecutionSkipped, nil,
			model.ActivityAutomationSkipped, map[string]interface{}{"workflowId": wf.WorkflowID, "reason": reason})
	}

	steps, err := x.store.Workflows().Steps(ctx, wf.WorkflowID)
	if err != nil {
		return err
	}
	for _, step := range steps {
		if err := x.runStep(ctx, wf, act, step); err != nil {
			msg := err.Error()
			return x.record(ctx, wf, act, model.ExecutionFailed, &msg,
				model.ActivityAutomationFailed, map[string]interface{}{"workflowId": wf.WorkflowID, "stepOrder": step.StepOrder, "error": msg})
		}
	}
	return x.record(ctx, wf, act, model.ExecutionSuccess, nil,
		model.ActivityAutomationSucceeded, map[string]interface{}{"workflowId": wf.WorkflowID})
}

// record writes the outcome row and its diagnostic activity atomically. When
// a concurrent execution already landed, the whole write rolls back and the
// duplicate is silently dropped, so the outcome activity is never emitted
// twice.
func (x *Executor) record(ctx context.Context, wf *model.Workflow, act *model.Activity, status model.ExecutionStatus, execErr *string, eventType model.ActivityType, payload map[string]interface{}) error {
	now := x.clock.Now()
	err := x.store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Executions().Create(ctx, &model.WorkflowExecution{
			WorkflowID: wf.WorkflowID,
			ActivityID: act.ActivityID,
			ContactID:  act.ContactID,
			Status:     status,
			Error:      execErr,
			ExecutedAt: now,
		}); err != nil {
			return err
		}
		_, err := tx.Activities().Append(ctx, automationEvent(act, eventType, payload, now))
		return err
	})
	if errors.Is(err, model.ErrDuplicateExecution) {
		x.log.Debug().
			Str("workflowId", wf.WorkflowID).
			Str("activityId", act.ActivityID).
			Msg("execution already recorded")
		return nil
	}
	return err
}

// emit appends one automation side-effect activity in its own transaction.
func (x *Executor) emit(ctx context.Context, act *model.Activity, typ model.ActivityType, payload map[string]interface{}) error {
	now := x.clock.Now()
	return x.store.WithTx(ctx, func(tx store.Tx) error {
		_, err := tx.Activities().Append(ctx, automationEvent(act, typ, payload, now))
		return err
	})
}

// automationEvent builds a ledger row on the triggering activity's contact.
func automationEvent(act *model.Activity, typ model.ActivityType, payload map[string]interface{}, at time.Time) *model.Activity {
	return &model.Activity{
		ActivityID:  uuid.New().String(),
		WorkspaceID: act.WorkspaceID,
		ContactID:   act.ContactID,
		Type:        typ,
		Subtype:     model.SubtypeSystem,
		ActorUserID: automationActor,
		Payload:     payload,
		OccurredAt:  at,
		CreatedAt:   at,
	}
}
