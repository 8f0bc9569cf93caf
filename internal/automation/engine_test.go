package automation

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relata/relata/internal/model"
	"github.com/relata/relata/internal/platform/clock"
	"github.com/relata/relata/internal/store"
	"github.com/relata/relata/internal/store/sqlite"
)

type fixture struct {
	store  store.Store
	clock  clock.Clock
	engine *Engine
	ws     string
	c      *model.Contact
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st, err := sqlite.Open(ctx, ":memory:")
	require.NoError(t, err)
	ws, err := st.Workspaces().Create(ctx, &model.Workspace{Name: "auto"})
	require.NoError(t, err)
	c, err := st.Contacts().Create(ctx, &model.Contact{WorkspaceID: ws.WorkspaceID})
	require.NoError(t, err)
	ck := clock.NewMonotonic()
	eng := NewEngine(st, ck, Config{PollInterval: 20 * time.Millisecond, BatchSize: 50, InitialLookback: time.Minute}, zerolog.Nop())
	eng.watermark = ck.Now().Add(-time.Minute)
	return &fixture{store: st, clock: ck, engine: eng, ws: ws.WorkspaceID, c: c}
}

func (f *fixture) trigger(t *testing.T, typ model.ActivityType) *model.Activity {
	t.Helper()
	at := f.clock.Now()
	act, err := f.store.Activities().Append(context.Background(), &model.Activity{
		WorkspaceID: f.ws, ContactID: f.c.ContactID, Type: typ, Subtype: model.SubtypeSystem,
		ActorUserID: "tester", OccurredAt: at, CreatedAt: at,
	})
	require.NoError(t, err)
	return act
}

func (f *fixture) workflow(t *testing.T, enabled bool, steps ...*model.WorkflowStep) *model.Workflow {
	t.Helper()
	wf, err := f.store.Workflows().Create(context.Background(), &model.Workflow{
		WorkspaceID:  f.ws,
		Name:         "wf",
		TriggerTypes: []model.ActivityType{model.ActivityContactCreated},
		Enabled:      enabled,
		CreationTime: f.clock.Now(),
	}, steps)
	require.NoError(t, err)
	return wf
}

func (f *fixture) activitiesOfType(t *testing.T, typ model.ActivityType) []*model.Activity {
	t.Helper()
	all, err := f.store.Activities().List(context.Background(), model.ListActivitiesRequest{
		WorkspaceID: f.ws, ContactID: f.c.ContactID, Limit: 100,
	})
	require.NoError(t, err)
	var out []*model.Activity
	for _, a := range all {
		if a.Type == typ {
			out = append(out, a)
		}
	}
	return out
}

func (f *fixture) defineNumber(t *testing.T, key string) {
	t.Helper()
	_, err := f.store.Properties().CreateDefinition(context.Background(), &model.PropertyDefinition{
		WorkspaceID: f.ws, Key: key, Label: key, Type: model.PropertyNumber, CreationTime: f.clock.Now(),
	})
	require.NoError(t, err)
}

func TestTickExecutesMatchingWorkflowOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.defineNumber(t, "budget")
	wf := f.workflow(t, true, &model.WorkflowStep{
		StepOrder: 1, ActionType: model.StepSetProperty,
		Config: map[string]interface{}{"propertyKey": "budget", "value": 500.0},
	})
	act := f.trigger(t, model.ActivityContactCreated)

	require.NoError(t, f.engine.Tick(ctx))

	exec, err := f.store.Executions().Get(ctx, wf.WorkflowID, act.ActivityID)
	require.NoError(t, err)
	require.NotNil(t, exec)
	assert.Equal(t, model.ExecutionSuccess, exec.Status)

	cur, err := f.store.Properties().CurrentValues(ctx, f.ws, f.c.ContactID)
	require.NoError(t, err)
	assert.Equal(t, 500.0, cur["budget"])
	assert.Len(t, f.activitiesOfType(t, model.ActivityAutomationPropertyUpdated), 1)
	assert.Len(t, f.activitiesOfType(t, model.ActivityAutomationSucceeded), 1)

	// The watermark has advanced past the trigger; another tick is a no-op.
	require.NoError(t, f.engine.Tick(ctx))
	assert.Len(t, f.activitiesOfType(t, model.ActivityAutomationSucceeded), 1)
}

func TestExecuteIsIdempotentPerPair(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	wf := f.workflow(t, true, &model.WorkflowStep{
		StepOrder: 1, ActionType: model.StepCreateTask, Config: map[string]interface{}{"title": "call"},
	})
	act := f.trigger(t, model.ActivityContactCreated)

	require.NoError(t, f.engine.executor.Execute(ctx, wf, act))
	require.NoError(t, f.engine.executor.Execute(ctx, wf, act))

	assert.Len(t, f.activitiesOfType(t, model.ActivityAutomationTaskCreated), 1)
	assert.Len(t, f.activitiesOfType(t, model.ActivityAutomationSucceeded), 1)
}

func TestDisabledWorkflowSkipped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	wf := f.workflow(t, false)
	act := f.trigger(t, model.ActivityContactCreated)

	require.NoError(t, f.engine.executor.Execute(ctx, wf, act))

	exec, err := f.store.Executions().Get(ctx, wf.WorkflowID, act.ActivityID)
	require.NoError(t, err)
	require.NotNil(t, exec)
	assert.Equal(t, model.ExecutionSkipped, exec.Status)

	skipped := f.activitiesOfType(t, model.ActivityAutomationSkipped)
	require.Len(t, skipped, 1)
	assert.Equal(t, "disabled", skipped[0].Payload["reason"])
}

func TestArchivedWorkflowSkippedWithReason(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	wf := f.workflow(t, true)
	require.NoError(t, f.store.Workflows().Archive(ctx, f.ws, wf.WorkflowID, f.clock.Now()))
	wf, err := f.store.Workflows().Get(ctx, f.ws, wf.WorkflowID)
	require.NoError(t, err)
	act := f.trigger(t, model.ActivityContactCreated)

	require.NoError(t, f.engine.executor.Execute(ctx, wf, act))

	skipped := f.activitiesOfType(t, model.ActivityAutomationSkipped)
	require.Len(t, skipped, 1)
	assert.Equal(t, "archived", skipped[0].Payload["reason"])
}

func TestStepFailureRecordsFailedExecution(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	// The property definition does not exist, so the step fails.
	wf := f.workflow(t, true, &model.WorkflowStep{
		StepOrder: 1, ActionType: model.StepSetProperty,
		Config: map[string]interface{}{"propertyKey": "ghost", "value": 1.0},
	})
	act := f.trigger(t, model.ActivityContactCreated)

	require.NoError(t, f.engine.executor.Execute(ctx, wf, act))

	exec, err := f.store.Executions().Get(ctx, wf.WorkflowID, act.ActivityID)
	require.NoError(t, err)
	require.NotNil(t, exec)
	assert.Equal(t, model.ExecutionFailed, exec.Status)
	require.NotNil(t, exec.Error)

	failed := f.activitiesOfType(t, model.ActivityAutomationFailed)
	require.Len(t, failed, 1)
	assert.NotEmpty(t, failed[0].Payload["error"])
}

func TestStepFailureAbortsRemainingSteps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	wf := f.workflow(t, true,
		&model.WorkflowStep{StepOrder: 1, ActionType: model.StepDelay, Config: map[string]interface{}{"delayMs": -5.0}},
		&model.WorkflowStep{StepOrder: 2, ActionType: model.StepCreateTask, Config: map[string]interface{}{"title": "never"}},
	)
	act := f.trigger(t, model.ActivityContactCreated)

	require.NoError(t, f.engine.executor.Execute(ctx, wf, act))

	assert.Empty(t, f.activitiesOfType(t, model.ActivityAutomationTaskCreated))
	exec, err := f.store.Executions().Get(ctx, wf.WorkflowID, act.ActivityID)
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionFailed, exec.Status)
}

func TestConvergentPropertyWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.defineNumber(t, "score")
	step := &model.WorkflowStep{
		StepOrder: 1, ActionType: model.StepSetProperty,
		Config: map[string]interface{}{"propertyKey": "score", "value": 10.0},
	}
	wf := f.workflow(t, true, step)

	// Two distinct trigger activities run the same convergent step twice.
	act1 := f.trigger(t, model.ActivityContactCreated)
	act2 := f.trigger(t, model.ActivityContactCreated)
	require.NoError(t, f.engine.executor.Execute(ctx, wf, act1))
	require.NoError(t, f.engine.executor.Execute(ctx, wf, act2))

	// One value row, two trace activities.
	updates := f.activitiesOfType(t, model.ActivityAutomationPropertyUpdated)
	require.Len(t, updates, 2)
	assert.Equal(t, true, updates[1].Payload["written"])
	assert.Equal(t, false, updates[0].Payload["written"])

	lv, err := f.store.Properties().LatestValue(ctx, f.ws, f.c.ContactID, "score")
	require.NoError(t, err)
	assert.Equal(t, 10.0, lv.Value)
}

func TestConvergentCompanyAssociation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	co, err := f.store.Companies().Create(ctx, &model.Company{WorkspaceID: f.ws, Name: "Initech"})
	require.NoError(t, err)
	wf := f.workflow(t, true, &model.WorkflowStep{
		StepOrder: 1, ActionType: model.StepAssociateCompany,
		Config: map[string]interface{}{"companyId": co.CompanyID},
	})

	act1 := f.trigger(t, model.ActivityContactCreated)
	act2 := f.trigger(t, model.ActivityContactCreated)
	require.NoError(t, f.engine.executor.Execute(ctx, wf, act1))
	require.NoError(t, f.engine.executor.Execute(ctx, wf, act2))

	assert.Len(t, f.activitiesOfType(t, model.ActivityAutomationCompanyLinked), 2)
	assocs, err := f.store.Companies().ActiveAssociationsForContact(ctx, f.ws, f.c.ContactID)
	require.NoError(t, err)
	assert.Len(t, assocs, 1)
}

func TestUnknownActionTypeFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	wf := f.workflow(t, true, &model.WorkflowStep{StepOrder: 1, ActionType: "teleport"})
	act := f.trigger(t, model.ActivityContactCreated)

	require.NoError(t, f.engine.executor.Execute(ctx, wf, act))

	exec, err := f.store.Executions().Get(ctx, wf.WorkflowID, act.ActivityID)
	require.NoError(t, err)
	require.NotNil(t, exec)
	assert.Equal(t, model.ExecutionFailed, exec.Status)
}

func TestDelayStepConfig(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	x := f.engine.executor

	// Milliseconds win over seconds.
	start := time.Now()
	err := x.stepDelay(ctx, &model.WorkflowStep{Config: map[string]interface{}{"delayMs": 5.0, "delaySeconds": 30.0}})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)

	err = x.stepDelay(ctx, &model.WorkflowStep{Config: map[string]interface{}{}})
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	err = x.stepDelay(ctx, &model.WorkflowStep{Config: map[string]interface{}{"delaySeconds": "soon"}})
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestWatermarkAdvancesBeforeProcessing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	act := f.trigger(t, model.ActivityContactCreated)

	before := f.engine.Watermark()
	require.NoError(t, f.engine.Tick(ctx))
	after := f.engine.Watermark()

	assert.True(t, after.After(before))
	assert.Equal(t, act.CreatedAt.UTC(), after.UTC())
}

func TestBatchBoundaryKeepsSameInstantPair(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.engine.cfg.BatchSize = 1
	wf := f.workflow(t, true, &model.WorkflowStep{
		StepOrder: 1, ActionType: model.StepCreateTask, Config: map[string]interface{}{"title": "call"},
	})

	// One command transaction stamps every row it appends with a single
	// clock reading; merge and associate do exactly this.
	at := f.clock.Now()
	var pair []*model.Activity
	for i := 0; i < 2; i++ {
		act, err := f.store.Activities().Append(ctx, &model.Activity{
			WorkspaceID: f.ws, ContactID: f.c.ContactID, Type: model.ActivityContactCreated,
			Subtype: model.SubtypeSystem, ActorUserID: "tester", OccurredAt: at, CreatedAt: at,
		})
		require.NoError(t, err)
		pair = append(pair, act)
	}

	// With a batch of one, the boundary falls between the two rows; the
	// second must still surface on the following tick.
	for i := 0; i < 3; i++ {
		require.NoError(t, f.engine.Tick(ctx))
	}

	for _, act := range pair {
		exec, err := f.store.Executions().Get(ctx, wf.WorkflowID, act.ActivityID)
		require.NoError(t, err)
		require.NotNil(t, exec)
		assert.Equal(t, model.ExecutionSuccess, exec.Status)
	}
	assert.Len(t, f.activitiesOfType(t, model.ActivityAutomationTaskCreated), 2)
}

func TestEngineIgnoresAutomationEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.workflow(t, true, &model.WorkflowStep{
		StepOrder: 1, ActionType: model.StepCreateTask, Config: map[string]interface{}{"title": "t"},
	})
	// Engine-emitted events are not trigger types; nothing should execute.
	f.trigger(t, model.ActivityAutomationTaskCreated)

	require.NoError(t, f.engine.Tick(ctx))
	assert.Empty(t, f.activitiesOfType(t, model.ActivityAutomationSucceeded))
}
