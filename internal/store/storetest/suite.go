// Package storetest holds a compliance suite every store.Store backend must
// pass. Backends provide a clean, isolated store from makeStore.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/relata/relata/internal/model"
	"github.com/relata/relata/internal/store"
)

// Run exercises the full repository surface against one backend.
func Run(t *testing.T, makeStore func(t *testing.T) store.Store) {
	t.Helper()

	s := makeStore(t)
	ctx := context.Background()

	ws, err := s.Workspaces().Create(ctx, &model.Workspace{Name: "acme"})
	if err != nil {
		t.Fatalf("CreateWorkspace: %v", err)
	}
	if got, err := s.Workspaces().Get(ctx, ws.WorkspaceID); err != nil || got.Name != "acme" {
		t.Fatalf("GetWorkspace: got=%v err=%v", got, err)
	}

	// Contacts
	email := "c-" + uuid.New().String() + "@example.test"
	c, err := s.Contacts().Create(ctx, &model.Contact{WorkspaceID: ws.WorkspaceID, Email: &email})
	if err != nil {
		t.Fatalf("CreateContact: %v", err)
	}
	first := "Ada"
	c.FirstName = &first
	if upd, err := s.Contacts().UpdateFields(ctx, c); err != nil || upd.FirstName == nil || *upd.FirstName != "Ada" {
		t.Fatalf("UpdateFields: got=%v err=%v", upd, err)
	}
	if lst, err := s.Contacts().List(ctx, ws.WorkspaceID); err != nil || len(lst) != 1 {
		t.Fatalf("ListContacts: n=%d err=%v", len(lst), err)
	}
	if _, err := s.Contacts().Get(ctx, ws.WorkspaceID, "missing"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("GetContact missing: err=%v", err)
	}

	// Companies and association history
	co, err := s.Companies().Create(ctx, &model.Company{WorkspaceID: ws.WorkspaceID, Name: "Initech"})
	if err != nil {
		t.Fatalf("CreateCompany: %v", err)
	}
	a1, err := s.Companies().AppendAssociation(ctx, &model.ContactCompanyAssociation{
		WorkspaceID: ws.WorkspaceID, ContactID: c.ContactID, CompanyID: co.CompanyID,
	})
	if err != nil {
		t.Fatalf("AppendAssociation: %v", err)
	}
	if got, err := s.Companies().ActiveAssociation(ctx, ws.WorkspaceID, c.ContactID, co.CompanyID); err != nil || got == nil {
		t.Fatalf("ActiveAssociation: got=%v err=%v", got, err)
	}
	// A newer archived row hides the pair without touching the old row.
	archivedAt := a1.CreatedAt.Add(time.Millisecond)
	if _, err := s.Companies().AppendAssociation(ctx, &model.ContactCompanyAssociation{
		WorkspaceID: ws.WorkspaceID, ContactID: c.ContactID, CompanyID: co.CompanyID,
		CreatedAt: archivedAt, ArchivedAt: &archivedAt,
	}); err != nil {
		t.Fatalf("AppendAssociation archive marker: %v", err)
	}
	if got, err := s.Companies().ActiveAssociation(ctx, ws.WorkspaceID, c.ContactID, co.CompanyID); err != nil || got != nil {
		t.Fatalf("ActiveAssociation after archive: got=%v err=%v", got, err)
	}
	if lst, err := s.Companies().ActiveAssociationsForContact(ctx, ws.WorkspaceID, c.ContactID); err != nil || len(lst) != 0 {
		t.Fatalf("ActiveAssociationsForContact after archive: n=%d err=%v", len(lst), err)
	}

	// Property definitions and value history
	if _, err := s.Properties().CreateDefinition(ctx, &model.PropertyDefinition{
		WorkspaceID: ws.WorkspaceID, Key: "tier", Label: "Tier", Type: model.PropertyEnum, Options: []string{"gold", "silver"},
	}); err != nil {
		t.Fatalf("CreateDefinition: %v", err)
	}
	if d, err := s.Properties().GetDefinition(ctx, ws.WorkspaceID, "tier"); err != nil || len(d.Options) != 2 {
		t.Fatalf("GetDefinition: got=%v err=%v", d, err)
	}
	base := time.Now().UTC()
	for i, v := range []interface{}{"silver", "gold"} {
		if _, err := s.Properties().AppendValue(ctx, &model.PropertyValue{
			WorkspaceID: ws.WorkspaceID, ContactID: c.ContactID, PropertyKey: "tier",
			Value: v, CreatedAt: base.Add(time.Duration(i) * time.Millisecond),
		}); err != nil {
			t.Fatalf("AppendValue %d: %v", i, err)
		}
	}
	if lv, err := s.Properties().LatestValue(ctx, ws.WorkspaceID, c.ContactID, "tier"); err != nil || lv == nil || lv.Value != "gold" {
		t.Fatalf("LatestValue: got=%v err=%v", lv, err)
	}
	// Clearing is a nil-value row; replay must drop the key.
	if _, err := s.Properties().AppendValue(ctx, &model.PropertyValue{
		WorkspaceID: ws.WorkspaceID, ContactID: c.ContactID, PropertyKey: "tier",
		Value: nil, CreatedAt: base.Add(2 * time.Millisecond),
	}); err != nil {
		t.Fatalf("AppendValue clear: %v", err)
	}
	if cur, err := s.Properties().CurrentValues(ctx, ws.WorkspaceID, c.ContactID); err != nil || len(cur) != 0 {
		t.Fatalf("CurrentValues after clear: got=%v err=%v", cur, err)
	}
	if lv, err := s.Properties().LatestValue(ctx, ws.WorkspaceID, c.ContactID, "missing"); err != nil || lv != nil {
		t.Fatalf("LatestValue missing key: got=%v err=%v", lv, err)
	}

	// Deal pipeline and deal association roles
	pl, err := s.Pipelines().CreatePipeline(ctx, &model.Pipeline{WorkspaceID: ws.WorkspaceID, Name: "sales"})
	if err != nil {
		t.Fatalf("CreatePipeline: %v", err)
	}
	open, err := s.Pipelines().CreateStage(ctx, &model.PipelineStage{WorkspaceID: ws.WorkspaceID, PipelineID: pl.PipelineID, Name: "open", DisplayOrder: 1})
	if err != nil {
		t.Fatalf("CreateStage: %v", err)
	}
	won, err := s.Pipelines().CreateStage(ctx, &model.PipelineStage{WorkspaceID: ws.WorkspaceID, PipelineID: pl.PipelineID, Name: "won", DisplayOrder: 2, IsClosedWon: true})
	if err != nil {
		t.Fatalf("CreateStage won: %v", err)
	}
	deal, err := s.Deals().Create(ctx, &model.Deal{
		WorkspaceID: ws.WorkspaceID, Name: "big deal", PipelineID: pl.PipelineID, StageID: open.StageID, Status: model.DealOpen,
	})
	if err != nil {
		t.Fatalf("CreateDeal: %v", err)
	}
	if _, err := s.Deals().AppendAssociation(ctx, &model.DealContactAssociation{
		WorkspaceID: ws.WorkspaceID, DealID: deal.DealID, ContactID: c.ContactID, IsPrimary: true,
	}); err != nil {
		t.Fatalf("AppendDealAssociation: %v", err)
	}
	if p, err := s.Deals().ActivePrimary(ctx, ws.WorkspaceID, deal.DealID); err != nil || p == nil || p.ContactID != c.ContactID {
		t.Fatalf("ActivePrimary: got=%v err=%v", p, err)
	}
	if err := s.Deals().UpdateStage(ctx, ws.WorkspaceID, deal.DealID, won.StageID, model.DealWon); err != nil {
		t.Fatalf("UpdateDealStage: %v", err)
	}
	if got, err := s.Deals().Get(ctx, ws.WorkspaceID, deal.DealID); err != nil || got.Status != model.DealWon {
		t.Fatalf("GetDeal after stage change: got=%v err=%v", got, err)
	}

	// Ticket pipeline and requester role
	tpl, err := s.Pipelines().CreateTicketPipeline(ctx, &model.TicketPipeline{WorkspaceID: ws.WorkspaceID, Name: "support"})
	if err != nil {
		t.Fatalf("CreateTicketPipeline: %v", err)
	}
	tstage, err := s.Pipelines().CreateTicketStage(ctx, &model.TicketStage{WorkspaceID: ws.WorkspaceID, PipelineID: tpl.PipelineID, Name: "new", DisplayOrder: 1})
	if err != nil {
		t.Fatalf("CreateTicketStage: %v", err)
	}
	tk, err := s.Tickets().Create(ctx, &model.Ticket{
		WorkspaceID: ws.WorkspaceID, Name: "help", Priority: model.PriorityMedium,
		PipelineID: tpl.PipelineID, StageID: tstage.StageID, Status: model.TicketOpen,
	})
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if _, err := s.Tickets().AppendAssociation(ctx, &model.TicketContactAssociation{
		WorkspaceID: ws.WorkspaceID, TicketID: tk.TicketID, ContactID: c.ContactID, IsRequester: true,
	}); err != nil {
		t.Fatalf("AppendTicketAssociation: %v", err)
	}
	if r, err := s.Tickets().ActiveRequester(ctx, ws.WorkspaceID, tk.TicketID); err != nil || r == nil || !r.IsRequester {
		t.Fatalf("ActiveRequester: got=%v err=%v", r, err)
	}

	// Workflows
	wf, err := s.Workflows().Create(ctx, &model.Workflow{
		WorkspaceID: ws.WorkspaceID, Name: "welcome",
		TriggerTypes: []model.ActivityType{model.ActivityContactCreated},
	}, []*model.WorkflowStep{
		{StepOrder: 1, ActionType: model.StepCreateTask, Config: map[string]interface{}{"title": "call"}},
		{StepOrder: 2, ActionType: model.StepDelay, Config: map[string]interface{}{"delay_ms": float64(1)}},
	})
	if err != nil {
		t.Fatalf("CreateWorkflow: %v", err)
	}
	if steps, err := s.Workflows().Steps(ctx, wf.WorkflowID); err != nil || len(steps) != 2 || steps[0].StepOrder != 1 {
		t.Fatalf("Steps: n=%d err=%v", len(steps), err)
	}
	// Disabled workflows never match.
	if m, err := s.Workflows().MatchByTrigger(ctx, ws.WorkspaceID, model.ActivityContactCreated); err != nil || len(m) != 0 {
		t.Fatalf("MatchByTrigger disabled: n=%d err=%v", len(m), err)
	}
	if err := s.Workflows().SetEnabled(ctx, ws.WorkspaceID, wf.WorkflowID, true); err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}
	if m, err := s.Workflows().MatchByTrigger(ctx, ws.WorkspaceID, model.ActivityContactCreated); err != nil || len(m) != 1 {
		t.Fatalf("MatchByTrigger enabled: n=%d err=%v", len(m), err)
	}
	if m, err := s.Workflows().MatchByTrigger(ctx, ws.WorkspaceID, model.ActivityDealWon); err != nil || len(m) != 0 {
		t.Fatalf("MatchByTrigger other type: n=%d err=%v", len(m), err)
	}

	// Activities: append, paged list, watermark batch
	var lastCreated time.Time
	var lastID string
	for i := 0; i < 5; i++ {
		at := base.Add(time.Duration(i+10) * time.Millisecond)
		act, err := s.Activities().Append(ctx, &model.Activity{
			WorkspaceID: ws.WorkspaceID, ContactID: c.ContactID,
			Type: model.ActivityContactUpdated, Subtype: model.SubtypeSystem, ActorUserID: "tester",
			Payload: map[string]interface{}{"n": float64(i)}, OccurredAt: at, CreatedAt: at,
		})
		if err != nil {
			t.Fatalf("AppendActivity %d: %v", i, err)
		}
		lastCreated = act.CreatedAt
		lastID = act.ActivityID
	}
	page1, err := s.Activities().List(ctx, model.ListActivitiesRequest{WorkspaceID: ws.WorkspaceID, ContactID: c.ContactID, Limit: 3})
	if err != nil || len(page1) != 3 {
		t.Fatalf("ListActivities page1: n=%d err=%v", len(page1), err)
	}
	if !page1[0].OccurredAt.After(page1[2].OccurredAt) {
		t.Fatalf("ListActivities not newest-first")
	}
	page2, err := s.Activities().List(ctx, model.ListActivitiesRequest{
		WorkspaceID: ws.WorkspaceID, ContactID: c.ContactID, Limit: 3, Cursor: page1[2].ActivityID,
	})
	if err != nil || len(page2) != 2 {
		t.Fatalf("ListActivities page2: n=%d err=%v", len(page2), err)
	}
	seen := map[string]bool{}
	for _, a := range append(page1, page2...) {
		if seen[a.ActivityID] {
			t.Fatalf("pagination returned %s twice", a.ActivityID)
		}
		seen[a.ActivityID] = true
	}
	batch, err := s.Activities().Batch(ctx, model.ActivityBatchRequest{
		After: base, TriggerTypes: []model.ActivityType{model.ActivityContactUpdated}, Limit: 10,
	})
	if err != nil || len(batch) != 5 {
		t.Fatalf("Batch: n=%d err=%v", len(batch), err)
	}
	if empty, err := s.Activities().Batch(ctx, model.ActivityBatchRequest{
		After: lastCreated, AfterID: lastID, TriggerTypes: []model.ActivityType{model.ActivityContactUpdated}, Limit: 10,
	}); err != nil || len(empty) != 0 {
		t.Fatalf("Batch past watermark: n=%d err=%v", len(empty), err)
	}
	// Rows stamped with the same created_at (one transaction, one clock
	// reading) are split by activity_id, not lost.
	tied := base.Add(20 * time.Millisecond)
	for i := 0; i < 2; i++ {
		if _, err := s.Activities().Append(ctx, &model.Activity{
			WorkspaceID: ws.WorkspaceID, ContactID: c.ContactID,
			Type: model.ActivityContactUpdated, Subtype: model.SubtypeSystem, ActorUserID: "tester",
			OccurredAt: tied, CreatedAt: tied,
		}); err != nil {
			t.Fatalf("AppendActivity tied %d: %v", i, err)
		}
	}
	pair, err := s.Activities().Batch(ctx, model.ActivityBatchRequest{
		After: lastCreated, AfterID: lastID, TriggerTypes: []model.ActivityType{model.ActivityContactUpdated}, Limit: 10,
	})
	if err != nil || len(pair) != 2 {
		t.Fatalf("Batch same-instant pair: n=%d err=%v", len(pair), err)
	}
	if rest, err := s.Activities().Batch(ctx, model.ActivityBatchRequest{
		After: pair[0].CreatedAt, AfterID: pair[0].ActivityID,
		TriggerTypes: []model.ActivityType{model.ActivityContactUpdated}, Limit: 10,
	}); err != nil || len(rest) != 1 || rest[0].ActivityID != pair[1].ActivityID {
		t.Fatalf("Batch after first of pair: n=%d err=%v", len(rest), err)
	}

	// Executions: the (workflow, activity) pair is write-once.
	exec1 := &model.WorkflowExecution{
		WorkflowID: wf.WorkflowID, ActivityID: batch[0].ActivityID, ContactID: c.ContactID,
		Status: model.ExecutionSuccess,
	}
	if _, err := s.Executions().Create(ctx, exec1); err != nil {
		t.Fatalf("CreateExecution: %v", err)
	}
	if _, err := s.Executions().Create(ctx, &model.WorkflowExecution{
		WorkflowID: wf.WorkflowID, ActivityID: batch[0].ActivityID, ContactID: c.ContactID,
		Status: model.ExecutionFailed,
	}); !errors.Is(err, model.ErrDuplicateExecution) {
		t.Fatalf("duplicate execution: err=%v", err)
	}
	if got, err := s.Executions().Get(ctx, wf.WorkflowID, batch[0].ActivityID); err != nil || got == nil || got.Status != model.ExecutionSuccess {
		t.Fatalf("GetExecution: got=%v err=%v", got, err)
	}
	if got, err := s.Executions().Get(ctx, wf.WorkflowID, "missing"); err != nil || got != nil {
		t.Fatalf("GetExecution missing: got=%v err=%v", got, err)
	}

	// Transaction rollback leaves nothing behind.
	sentinel := errors.New("boom")
	err = s.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Contacts().Create(ctx, &model.Contact{WorkspaceID: ws.WorkspaceID}); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("WithTx rollback: err=%v", err)
	}
	if lst, err := s.Contacts().List(ctx, ws.WorkspaceID); err != nil || len(lst) != 1 {
		t.Fatalf("contacts after rollback: n=%d err=%v", len(lst), err)
	}

	// Archive is the only terminal state.
	if err := s.Contacts().Archive(ctx, ws.WorkspaceID, c.ContactID, time.Now().UTC()); err != nil {
		t.Fatalf("ArchiveContact: %v", err)
	}
	if got, err := s.Contacts().Get(ctx, ws.WorkspaceID, c.ContactID); err != nil || !got.Archived() {
		t.Fatalf("GetContact after archive: got=%v err=%v", got, err)
	}
}
