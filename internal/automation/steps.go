package automation

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/relata/relata/internal/model"
	"github.com/relata/relata/internal/properties"
	"github.com/relata/relata/internal/store"
)

// runStep dispatches on the closed action set. A step failure aborts the
// remaining steps of this workflow run only; other workflows and activities
// are unaffected.
func (x *Executor) runStep(ctx context.Context, wf *model.Workflow, act *model.Activity, step *model.WorkflowStep) error {
	switch step.ActionType {
	case model.StepDelay:
		return x.stepDelay(ctx, step)
	case model.StepCreateTask:
		return x.emit(ctx, act, model.ActivityAutomationTaskCreated, step.Config)
	case model.StepSendNotification:
		return x.emit(ctx, act, model.ActivityAutomationNotificationSent, step.Config)
	case model.StepSetProperty:
		return x.stepSetProperty(ctx, act, step)
	case model.StepAssociateCompany:
		return x.stepAssociateCompany(ctx, act, step)
	default:
		return fmt.Errorf("%w: %q", model.ErrUnsupportedActionType, step.ActionType)
	}
}

// stepDelay suspends this workflow run. Milliseconds win when both units are
// configured. The engine is single-threaded, so a long delay stalls the rest
// of the batch; that trade-off is load-bearing for the ordering guarantees
// and must stay.
func (x *Executor) stepDelay(ctx context.Context, step *model.WorkflowStep) error {
	ms, hasMs, err := numberField(step.Config, "delayMs")
	if err != nil {
		return err
	}
	secs, hasSecs, err := numberField(step.Config, "delaySeconds")
	if err != nil {
		return err
	}
	var d time.Duration
	switch {
	case hasMs:
		d = time.Duration(ms * float64(time.Millisecond))
	case hasSecs:
		d = time.Duration(secs * float64(time.Second))
	default:
		return fmt.Errorf("%w: delay step requires delayMs or delaySeconds", model.ErrInvalidInput)
	}
	if d < 0 {
		return fmt.Errorf("%w: delay must not be negative", model.ErrInvalidInput)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// stepSetProperty is a convergent write: when the latest stored value already
// deep-equals the new value the row is skipped, but the trace activity is
// emitted either way.
func (x *Executor) stepSetProperty(ctx context.Context, act *model.Activity, step *model.WorkflowStep) error {
	key, ok := step.Config["propertyKey"].(string)
	if !ok || key == "" {
		return fmt.Errorf("%w: set_contact_property requires propertyKey", model.ErrInvalidInput)
	}
	raw := step.Config["value"]
	now := x.clock.Now()
	return x.store.WithTx(ctx, func(tx store.Tx) error {
		def, err := tx.Properties().GetDefinition(ctx, act.WorkspaceID, key)
		if err != nil {
			return err
		}
		normalized, err := properties.Validate(def, raw)
		if err != nil {
			return err
		}
		latest, err := tx.Properties().LatestValue(ctx, act.WorkspaceID, act.ContactID, key)
		if err != nil {
			return err
		}
		wrote := false
		if latest == nil || !reflect.DeepEqual(latest.Value, normalized) {
			if _, err := tx.Properties().AppendValue(ctx, &model.PropertyValue{
				WorkspaceID: act.WorkspaceID,
				ContactID:   act.ContactID,
				PropertyKey: key,
				Value:       normalized,
				CreatedAt:   now,
			}); err != nil {
				return err
			}
			wrote = true
		}
		_, err = tx.Activities().Append(ctx, automationEvent(act, model.ActivityAutomationPropertyUpdated,
			map[string]interface{}{"propertyKey": key, "value": normalized, "written": wrote}, now))
		return err
	})
}

// stepAssociateCompany is convergent in the same way: an existing active
// association skips the insert but still leaves the trace activity.
func (x *Executor) stepAssociateCompany(ctx context.Context, act *model.Activity, step *model.WorkflowStep) error {
	companyID, ok := step.Config["companyId"].(string)
	if !ok || companyID == "" {
		return fmt.Errorf("%w: associate_company requires companyId", model.ErrInvalidInput)
	}
	now := x.clock.Now()
	return x.store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Companies().Get(ctx, act.WorkspaceID, companyID); err != nil {
			return err
		}
		existing, err := tx.Companies().ActiveAssociation(ctx, act.WorkspaceID, act.ContactID, companyID)
		if err != nil {
			return err
		}
		wrote := false
		if existing == nil {
			if _, err := tx.Companies().AppendAssociation(ctx, &model.ContactCompanyAssociation{
				WorkspaceID: act.WorkspaceID,
				ContactID:   act.ContactID,
				CompanyID:   companyID,
				CreatedAt:   now,
			}); err != nil {
				return err
			}
			wrote = true
		}
		_, err = tx.Activities().Append(ctx, automationEvent(act, model.ActivityAutomationCompanyLinked,
			map[string]interface{}{"companyId": companyID, "written": wrote}, now))
		return err
	})
}

func numberField(m map[string]interface{}, key string) (float64, bool, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, false, nil
	}
	switch n := v.(type) {
	case float64:
		return n, true, nil
	case int:
		return float64(n), true, nil
	}
	return 0, false, fmt.Errorf("%w: %s must be a number", model.ErrInvalidInput, key)
}
