package commands

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relata/relata/internal/model"
	"github.com/relata/relata/internal/platform/clock"
	"github.com/relata/relata/internal/store"
	"github.com/relata/relata/internal/store/sqlite"
)

func newFixture(t *testing.T) (*Services, store.Store, string) {
	t.Helper()
	st, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	ws, err := st.Workspaces().Create(context.Background(), &model.Workspace{Name: "test"})
	require.NoError(t, err)
	return NewServices(st, clock.NewMonotonic()), st, ws.WorkspaceID
}

func mustContact(t *testing.T, svc *Services, ws string) *model.Contact {
	t.Helper()
	email := "a@example.test"
	c, _, err := svc.Contacts.Create(context.Background(), CreateContactRequest{
		WorkspaceID: ws, ActorID: "u1", Email: &email,
	})
	require.NoError(t, err)
	return c
}

func timeline(t *testing.T, st store.Store, ws, contactID string) []*model.Activity {
	t.Helper()
	acts, err := st.Activities().List(context.Background(), model.ListActivitiesRequest{
		WorkspaceID: ws, ContactID: contactID, Limit: 100,
	})
	require.NoError(t, err)
	return acts
}

func TestCreateContactEmitsActivity(t *testing.T) {
	svc, st, ws := newFixture(t)
	ctx := context.Background()

	email := "ada@example.test"
	c, act, err := svc.Contacts.Create(ctx, CreateContactRequest{WorkspaceID: ws, ActorID: "u1", Email: &email})
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, model.ActivityContactCreated, act.Type)
	assert.Equal(t, "ada@example.test", act.Payload["email"])

	acts := timeline(t, st, ws, c.ContactID)
	require.Len(t, acts, 1)
}

func TestCreateContactRequiresActor(t *testing.T) {
	svc, _, ws := newFixture(t)
	_, _, err := svc.Contacts.Create(context.Background(), CreateContactRequest{WorkspaceID: ws})
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestUpdateArchivedContactFails(t *testing.T) {
	svc, st, ws := newFixture(t)
	ctx := context.Background()
	c := mustContact(t, svc, ws)

	_, err := svc.Contacts.Archive(ctx, ws, c.ContactID, "u1")
	require.NoError(t, err)

	name := "Ada"
	_, _, err = svc.Contacts.Update(ctx, UpdateContactRequest{WorkspaceID: ws, ContactID: c.ContactID, ActorID: "u1", FirstName: &name})
	assert.ErrorIs(t, err, model.ErrAlreadyArchived)

	// Archiving twice is also a conflict.
	_, err = svc.Contacts.Archive(ctx, ws, c.ContactID, "u1")
	assert.ErrorIs(t, err, model.ErrAlreadyArchived)

	// Failed commands leave no extra activities behind.
	acts := timeline(t, st, ws, c.ContactID)
	assert.Len(t, acts, 2) // created + archived
}

func TestMergeEmitsOnBothTimelines(t *testing.T) {
	svc, st, ws := newFixture(t)
	ctx := context.Background()
	primary := mustContact(t, svc, ws)
	secondary := mustContact(t, svc, ws)

	acts, err := svc.Contacts.Merge(ctx, ws, primary.ContactID, secondary.ContactID, "u1")
	require.NoError(t, err)
	require.Len(t, acts, 2)

	got, err := st.Contacts().Get(ctx, ws, secondary.ContactID)
	require.NoError(t, err)
	assert.True(t, got.Archived())

	pActs := timeline(t, st, ws, primary.ContactID)
	require.NotEmpty(t, pActs)
	assert.Equal(t, model.ActivityContactMerged, pActs[0].Type)
	assert.Equal(t, secondary.ContactID, pActs[0].Payload["mergedContactId"])

	sActs := timeline(t, st, ws, secondary.ContactID)
	assert.Equal(t, model.ActivityContactMerged, sActs[0].Type)
	assert.Equal(t, primary.ContactID, sActs[0].Payload["primaryContactId"])
}

func TestMergeSelfRejected(t *testing.T) {
	svc, _, ws := newFixture(t)
	c := mustContact(t, svc, ws)
	_, err := svc.Contacts.Merge(context.Background(), ws, c.ContactID, c.ContactID, "u1")
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestSetPropertyEventFirstOrdering(t *testing.T) {
	svc, st, ws := newFixture(t)
	ctx := context.Background()
	c := mustContact(t, svc, ws)

	_, err := svc.Properties.CreateDefinition(ctx, CreateDefinitionRequest{
		WorkspaceID: ws, ActorID: "u1", Key: "budget", Label: "Budget", Type: model.PropertyNumber,
	})
	require.NoError(t, err)

	val, act, err := svc.Properties.Set(ctx, SetPropertyRequest{
		WorkspaceID: ws, ContactID: c.ContactID, ActorID: "u1", Key: "budget", Value: 1000.0,
	})
	require.NoError(t, err)
	assert.Equal(t, 1000.0, val.Value)
	assert.Equal(t, model.ActivityContactPropertySet, act.Type)
	assert.Nil(t, act.Payload["oldValue"])
	assert.Equal(t, 1000.0, act.Payload["newValue"])
	// The activity row precedes the value row within the transaction.
	assert.False(t, act.CreatedAt.After(val.CreatedAt))

	// Second set records the prior value in the audit payload.
	_, act2, err := svc.Properties.Set(ctx, SetPropertyRequest{
		WorkspaceID: ws, ContactID: c.ContactID, ActorID: "u1", Key: "budget", Value: 2000.0,
	})
	require.NoError(t, err)
	assert.Equal(t, 1000.0, act2.Payload["oldValue"])

	cur, err := st.Properties().CurrentValues(ctx, ws, c.ContactID)
	require.NoError(t, err)
	assert.Equal(t, 2000.0, cur["budget"])
}

func TestSetPropertyInvalidValueWritesNothing(t *testing.T) {
	svc, st, ws := newFixture(t)
	ctx := context.Background()
	c := mustContact(t, svc, ws)

	_, err := svc.Properties.CreateDefinition(ctx, CreateDefinitionRequest{
		WorkspaceID: ws, ActorID: "u1", Key: "budget", Label: "Budget", Type: model.PropertyNumber,
	})
	require.NoError(t, err)

	_, _, err = svc.Properties.Set(ctx, SetPropertyRequest{
		WorkspaceID: ws, ContactID: c.ContactID, ActorID: "u1", Key: "budget", Value: "a",
	})
	assert.ErrorIs(t, err, model.ErrInvalidPropertyValue)

	lv, err := st.Properties().LatestValue(ctx, ws, c.ContactID, "budget")
	require.NoError(t, err)
	assert.Nil(t, lv)
	assert.Len(t, timeline(t, st, ws, c.ContactID), 1) // only contact_created
}

func TestClearPropertyAppendsNullRow(t *testing.T) {
	svc, st, ws := newFixture(t)
	ctx := context.Background()
	c := mustContact(t, svc, ws)

	_, err := svc.Properties.CreateDefinition(ctx, CreateDefinitionRequest{
		WorkspaceID: ws, ActorID: "u1", Key: "tier", Label: "Tier", Type: model.PropertyEnum, Options: []string{"gold"},
	})
	require.NoError(t, err)
	_, _, err = svc.Properties.Set(ctx, SetPropertyRequest{WorkspaceID: ws, ContactID: c.ContactID, ActorID: "u1", Key: "tier", Value: "gold"})
	require.NoError(t, err)

	_, _, err = svc.Properties.Clear(ctx, ws, c.ContactID, "u1", "tier")
	require.NoError(t, err)

	lv, err := st.Properties().LatestValue(ctx, ws, c.ContactID, "tier")
	require.NoError(t, err)
	require.NotNil(t, lv)
	assert.Nil(t, lv.Value)

	cur, err := st.Properties().CurrentValues(ctx, ws, c.ContactID)
	require.NoError(t, err)
	assert.Empty(t, cur)
}

func TestCompanyAssociationConflicts(t *testing.T) {
	svc, _, ws := newFixture(t)
	ctx := context.Background()
	c := mustContact(t, svc, ws)

	co, _, err := svc.Companies.Create(ctx, CreateCompanyRequest{
		WorkspaceID: ws, ContactID: c.ContactID, ActorID: "u1", Name: "Initech",
	})
	require.NoError(t, err)

	_, _, err = svc.Companies.Associate(ctx, ws, c.ContactID, co.CompanyID, "u1")
	require.NoError(t, err)
	_, _, err = svc.Companies.Associate(ctx, ws, c.ContactID, co.CompanyID, "u1")
	assert.ErrorIs(t, err, model.ErrAlreadyAssociated)

	_, err = svc.Companies.Disassociate(ctx, ws, c.ContactID, co.CompanyID, "u1")
	require.NoError(t, err)
	_, err = svc.Companies.Disassociate(ctx, ws, c.ContactID, co.CompanyID, "u1")
	assert.ErrorIs(t, err, model.ErrNoActiveAssociation)

	// Re-associating after removal is allowed; latest row wins.
	_, _, err = svc.Companies.Associate(ctx, ws, c.ContactID, co.CompanyID, "u1")
	require.NoError(t, err)
}

func setupDealPipeline(t *testing.T, svc *Services, ws string) (pipeline, open, won, lost string) {
	t.Helper()
	ctx := context.Background()
	pl, err := svc.Pipelines.CreatePipeline(ctx, ws, "sales", "u1")
	require.NoError(t, err)
	mk := func(name string, isWon, isLost bool, order int) string {
		st, err := svc.Pipelines.CreateStage(ctx, &model.PipelineStage{
			WorkspaceID: ws, PipelineID: pl.PipelineID, Name: name, DisplayOrder: order,
			IsClosedWon: isWon, IsClosedLost: isLost,
		}, "u1")
		require.NoError(t, err)
		return st.StageID
	}
	return pl.PipelineID, mk("open", false, false, 1), mk("won", true, false, 2), mk("lost", false, true, 3)
}

func TestDealLifecycle(t *testing.T) {
	svc, st, ws := newFixture(t)
	ctx := context.Background()
	c := mustContact(t, svc, ws)
	plID, openID, wonID, _ := setupDealPipeline(t, svc, ws)

	deal, acts, err := svc.Deals.Create(ctx, CreateDealRequest{
		WorkspaceID: ws, ActorID: "u1", PrimaryContactID: c.ContactID,
		Name: "big", PipelineID: plID, StageID: openID,
	})
	require.NoError(t, err)
	assert.Equal(t, model.DealOpen, deal.Status)
	require.Len(t, acts, 1)
	assert.Equal(t, model.ActivityDealCreated, acts[0].Type)

	primary, err := st.Deals().ActivePrimary(ctx, ws, deal.DealID)
	require.NoError(t, err)
	require.NotNil(t, primary)
	assert.Equal(t, c.ContactID, primary.ContactID)

	upd, acts, err := svc.Deals.ChangeStage(ctx, ws, deal.DealID, wonID, "u1")
	require.NoError(t, err)
	assert.Equal(t, model.DealWon, upd.Status)
	require.Len(t, acts, 2)
	assert.Equal(t, model.ActivityDealStageChanged, acts[0].Type)
	assert.Equal(t, model.ActivityDealWon, acts[1].Type)
}

func TestDealCreatedInClosingStageEmitsOutcome(t *testing.T) {
	svc, _, ws := newFixture(t)
	c := mustContact(t, svc, ws)
	plID, _, _, lostID := setupDealPipeline(t, svc, ws)

	deal, acts, err := svc.Deals.Create(context.Background(), CreateDealRequest{
		WorkspaceID: ws, ActorID: "u1", PrimaryContactID: c.ContactID,
		Name: "doomed", PipelineID: plID, StageID: lostID,
	})
	require.NoError(t, err)
	assert.Equal(t, model.DealLost, deal.Status)
	require.Len(t, acts, 2)
	assert.Equal(t, model.ActivityDealLost, acts[1].Type)
}

func TestDealStageMustBelongToPipeline(t *testing.T) {
	svc, _, ws := newFixture(t)
	ctx := context.Background()
	c := mustContact(t, svc, ws)
	plID, openID, _, _ := setupDealPipeline(t, svc, ws)

	other, err := svc.Pipelines.CreatePipeline(ctx, ws, "other", "u1")
	require.NoError(t, err)
	foreign, err := svc.Pipelines.CreateStage(ctx, &model.PipelineStage{
		WorkspaceID: ws, PipelineID: other.PipelineID, Name: "x", DisplayOrder: 1,
	}, "u1")
	require.NoError(t, err)

	_, _, err = svc.Deals.Create(ctx, CreateDealRequest{
		WorkspaceID: ws, ActorID: "u1", PrimaryContactID: c.ContactID,
		Name: "bad", PipelineID: plID, StageID: foreign.StageID,
	})
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	deal, _, err := svc.Deals.Create(ctx, CreateDealRequest{
		WorkspaceID: ws, ActorID: "u1", PrimaryContactID: c.ContactID,
		Name: "good", PipelineID: plID, StageID: openID,
	})
	require.NoError(t, err)
	_, _, err = svc.Deals.ChangeStage(ctx, ws, deal.DealID, foreign.StageID, "u1")
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestDealAssociationRules(t *testing.T) {
	svc, st, ws := newFixture(t)
	ctx := context.Background()
	primary := mustContact(t, svc, ws)
	other := mustContact(t, svc, ws)
	plID, openID, _, _ := setupDealPipeline(t, svc, ws)

	deal, _, err := svc.Deals.Create(ctx, CreateDealRequest{
		WorkspaceID: ws, ActorID: "u1", PrimaryContactID: primary.ContactID,
		Name: "d", PipelineID: plID, StageID: openID,
	})
	require.NoError(t, err)

	// Removing the primary is forbidden.
	_, err = svc.Deals.Disassociate(ctx, ws, deal.DealID, primary.ContactID, "u1")
	assert.ErrorIs(t, err, model.ErrCannotRemovePrimary)

	// Both timelines receive association_added.
	acts, err := svc.Deals.Associate(ctx, ws, deal.DealID, other.ContactID, "u1")
	require.NoError(t, err)
	require.Len(t, acts, 2)
	assert.Equal(t, primary.ContactID, acts[0].ContactID)
	assert.Equal(t, other.ContactID, acts[1].ContactID)

	_, err = svc.Deals.Associate(ctx, ws, deal.DealID, other.ContactID, "u1")
	assert.ErrorIs(t, err, model.ErrAlreadyAssociated)

	acts, err = svc.Deals.Disassociate(ctx, ws, deal.DealID, other.ContactID, "u1")
	require.NoError(t, err)
	require.Len(t, acts, 2)

	active, err := st.Deals().ActiveAssociations(ctx, ws, deal.DealID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.True(t, active[0].IsPrimary)
}

func TestDealDisassociateArchivedDeal(t *testing.T) {
	svc, st, ws := newFixture(t)
	ctx := context.Background()
	primary := mustContact(t, svc, ws)
	other := mustContact(t, svc, ws)
	plID, openID, _, _ := setupDealPipeline(t, svc, ws)

	deal, _, err := svc.Deals.Create(ctx, CreateDealRequest{
		WorkspaceID: ws, ActorID: "u1", PrimaryContactID: primary.ContactID,
		Name: "d", PipelineID: plID, StageID: openID,
	})
	require.NoError(t, err)
	_, err = svc.Deals.Associate(ctx, ws, deal.DealID, other.ContactID, "u1")
	require.NoError(t, err)
	_, err = svc.Deals.Archive(ctx, ws, deal.DealID, "u1")
	require.NoError(t, err)

	_, err = svc.Deals.Disassociate(ctx, ws, deal.DealID, other.ContactID, "u1")
	assert.ErrorIs(t, err, model.ErrAlreadyArchived)

	// No removal row landed on the archived deal.
	active, err := st.Deals().ActiveAssociations(ctx, ws, deal.DealID)
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestTicketClosedReopenedEdges(t *testing.T) {
	svc, _, ws := newFixture(t)
	ctx := context.Background()
	c := mustContact(t, svc, ws)

	pl, err := svc.Pipelines.CreateTicketPipeline(ctx, ws, "support", "u1")
	require.NoError(t, err)
	newStage, err := svc.Pipelines.CreateTicketStage(ctx, &model.TicketStage{
		WorkspaceID: ws, PipelineID: pl.PipelineID, Name: "new", DisplayOrder: 1,
	}, "u1")
	require.NoError(t, err)
	doneStage, err := svc.Pipelines.CreateTicketStage(ctx, &model.TicketStage{
		WorkspaceID: ws, PipelineID: pl.PipelineID, Name: "done", DisplayOrder: 2, IsClosed: true,
	}, "u1")
	require.NoError(t, err)

	tk, _, err := svc.Tickets.Create(ctx, CreateTicketRequest{
		WorkspaceID: ws, ActorID: "u1", RequesterContactID: c.ContactID,
		Name: "help", Priority: model.PriorityHigh, PipelineID: pl.PipelineID, StageID: newStage.StageID,
	})
	require.NoError(t, err)
	assert.Equal(t, model.TicketOpen, tk.Status)

	// open -> closed emits ticket_closed.
	_, acts, err := svc.Tickets.ChangeStage(ctx, ws, tk.TicketID, doneStage.StageID, "u1")
	require.NoError(t, err)
	require.Len(t, acts, 2)
	assert.Equal(t, model.ActivityTicketClosed, acts[1].Type)

	// closed -> closed is just a stage change.
	_, acts, err = svc.Tickets.ChangeStage(ctx, ws, tk.TicketID, doneStage.StageID, "u1")
	require.NoError(t, err)
	require.Len(t, acts, 1)

	// closed -> open emits ticket_reopened.
	_, acts, err = svc.Tickets.ChangeStage(ctx, ws, tk.TicketID, newStage.StageID, "u1")
	require.NoError(t, err)
	require.Len(t, acts, 2)
	assert.Equal(t, model.ActivityTicketReopened, acts[1].Type)
}

func TestTicketDisassociateArchivedTicket(t *testing.T) {
	svc, st, ws := newFixture(t)
	ctx := context.Background()
	requester := mustContact(t, svc, ws)
	other := mustContact(t, svc, ws)

	pl, err := svc.Pipelines.CreateTicketPipeline(ctx, ws, "support", "u1")
	require.NoError(t, err)
	stage, err := svc.Pipelines.CreateTicketStage(ctx, &model.TicketStage{
		WorkspaceID: ws, PipelineID: pl.PipelineID, Name: "new", DisplayOrder: 1,
	}, "u1")
	require.NoError(t, err)

	tk, _, err := svc.Tickets.Create(ctx, CreateTicketRequest{
		WorkspaceID: ws, ActorID: "u1", RequesterContactID: requester.ContactID,
		Name: "help", Priority: model.PriorityLow, PipelineID: pl.PipelineID, StageID: stage.StageID,
	})
	require.NoError(t, err)
	_, err = svc.Tickets.Associate(ctx, ws, tk.TicketID, other.ContactID, "u1")
	require.NoError(t, err)
	_, err = svc.Tickets.Archive(ctx, ws, tk.TicketID, "u1")
	require.NoError(t, err)

	_, err = svc.Tickets.Disassociate(ctx, ws, tk.TicketID, other.ContactID, "u1")
	assert.ErrorIs(t, err, model.ErrAlreadyArchived)

	active, err := st.Tickets().ActiveAssociations(ctx, ws, tk.TicketID)
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestTicketRejectsUnknownPriority(t *testing.T) {
	svc, _, ws := newFixture(t)
	c := mustContact(t, svc, ws)
	_, _, err := svc.Tickets.Create(context.Background(), CreateTicketRequest{
		WorkspaceID: ws, ActorID: "u1", RequesterContactID: c.ContactID,
		Name: "x", Priority: "whenever", PipelineID: "p", StageID: "s",
	})
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestWorkflowCreatedDisabled(t *testing.T) {
	svc, _, ws := newFixture(t)
	ctx := context.Background()

	wf, err := svc.Workflows.Create(ctx, CreateWorkflowRequest{
		WorkspaceID: ws, ActorID: "u1", Name: "welcome",
		TriggerTypes: []model.ActivityType{model.ActivityContactCreated},
		Steps:        []WorkflowStepInput{{StepOrder: 1, ActionType: model.StepCreateTask}},
	})
	require.NoError(t, err)
	assert.False(t, wf.Enabled)

	require.NoError(t, svc.Workflows.Enable(ctx, ws, wf.WorkflowID, "u1"))
	got, err := svc.Workflows.Get(ctx, ws, wf.WorkflowID)
	require.NoError(t, err)
	assert.True(t, got.Enabled)

	require.NoError(t, svc.Workflows.Archive(ctx, ws, wf.WorkflowID, "u1"))
	err = svc.Workflows.Enable(ctx, ws, wf.WorkflowID, "u1")
	assert.ErrorIs(t, err, model.ErrAlreadyArchived)
}

func TestSetupCommandsRequireActor(t *testing.T) {
	svc, _, ws := newFixture(t)
	ctx := context.Background()

	_, err := svc.Pipelines.CreatePipeline(ctx, ws, "sales", "")
	assert.ErrorIs(t, err, model.ErrInvalidInput)
	_, err = svc.Pipelines.CreateTicketPipeline(ctx, ws, "support", "")
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	pl, err := svc.Pipelines.CreatePipeline(ctx, ws, "sales", "u1")
	require.NoError(t, err)
	_, err = svc.Pipelines.CreateStage(ctx, &model.PipelineStage{
		WorkspaceID: ws, PipelineID: pl.PipelineID, Name: "open", DisplayOrder: 1,
	}, "")
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	tpl, err := svc.Pipelines.CreateTicketPipeline(ctx, ws, "support", "u1")
	require.NoError(t, err)
	_, err = svc.Pipelines.CreateTicketStage(ctx, &model.TicketStage{
		WorkspaceID: ws, PipelineID: tpl.PipelineID, Name: "new", DisplayOrder: 1,
	}, "")
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	wf, err := svc.Workflows.Create(ctx, CreateWorkflowRequest{
		WorkspaceID: ws, ActorID: "u1", Name: "w",
		TriggerTypes: []model.ActivityType{model.ActivityContactCreated},
	})
	require.NoError(t, err)
	assert.ErrorIs(t, svc.Workflows.Enable(ctx, ws, wf.WorkflowID, ""), model.ErrInvalidInput)
	assert.ErrorIs(t, svc.Workflows.Disable(ctx, ws, wf.WorkflowID, ""), model.ErrInvalidInput)
	assert.ErrorIs(t, svc.Workflows.Archive(ctx, ws, wf.WorkflowID, ""), model.ErrInvalidInput)
}

func TestWorkflowRejectsUnknownAction(t *testing.T) {
	svc, _, ws := newFixture(t)
	_, err := svc.Workflows.Create(context.Background(), CreateWorkflowRequest{
		WorkspaceID: ws, ActorID: "u1", Name: "bad",
		TriggerTypes: []model.ActivityType{model.ActivityContactCreated},
		Steps:        []WorkflowStepInput{{StepOrder: 1, ActionType: "launch_missiles"}},
	})
	assert.ErrorIs(t, err, model.ErrUnsupportedActionType)
}

func TestBackdatedOccurredAt(t *testing.T) {
	svc, _, ws := newFixture(t)
	past := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	email := "old@example.test"
	_, act, err := svc.Contacts.Create(context.Background(), CreateContactRequest{
		WorkspaceID: ws, ActorID: "u1", Email: &email, OccurredAt: &past,
	})
	require.NoError(t, err)
	assert.Equal(t, past, act.OccurredAt)
	assert.True(t, act.CreatedAt.After(past))
}
