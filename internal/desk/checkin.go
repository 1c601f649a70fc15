package desk

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"librarydesk/internal/catalog"
	"librarydesk/internal/circulation"
	"librarydesk/internal/querycache"
	"librarydesk/internal/render"
	"librarydesk/internal/wizard"
)

// fallbackLocationID is used when neither the form nor the desk names a branch.
const fallbackLocationID = 1

// CheckinForm holds the selections of a check-in. A zero NewLocationID means
// the current branch.
type CheckinForm struct {
	CopyID        int64             `json:"copy_id,omitempty"`
	NewCondition  catalog.Condition `json:"new_condition"`
	NewLocationID int64             `json:"new_location_id,omitempty"`
	Notes         string            `json:"notes,omitempty"`
}

// CheckinDetails are the editable fields of the confirm step.
type CheckinDetails struct {
	NewCondition  catalog.Condition `json:"new_condition" validate:"omitempty,oneof=New Excellent Good Fair Poor"`
	NewLocationID int64             `json:"new_location_id" validate:"gte=0"`
	Notes         string            `json:"notes"`
}

type CheckinWizard = wizard.Wizard[CheckinForm, circulation.Receipt]

const (
	checkinSelectItem = iota
	checkinConfirm
)

func newCheckinForm() CheckinForm {
	return CheckinForm{NewCondition: catalog.ConditionExcellent}
}

func checkinReady(step int, f CheckinForm) bool {
	switch step {
	case checkinSelectItem:
		return f.CopyID > 0
	default:
		return f.CopyID > 0 && f.NewCondition.Valid()
	}
}

func (d *Desk) newCheckin(sessionID string) *CheckinWizard {
	return wizard.New(wizard.Flow[CheckinForm, circulation.Receipt]{
		Name:          "checkin",
		Steps:         []string{"Select Item", "Confirm Details"},
		NewForm:       newCheckinForm,
		Ready:         checkinReady,
		Hints:         []string{"Select item to proceed"},
		CommitLabel:   "Finish",
		CommitTooltip: "Finish Check-In",
		Commit: func(ctx context.Context, form CheckinForm) (circulation.Receipt, error) {
			return d.commitCheckin(commitContext(ctx, sessionID), form)
		},
		FailureMessage: func(err error) string {
			return "Failed to check in item: " + render.Message(err)
		},
	})
}

// checkinRequest resolves the form's defaults against the current branch.
func (d *Desk) checkinRequest(form CheckinForm) circulation.CheckinRequest {
	location := form.NewLocationID
	if location == 0 {
		location = d.app.BranchID()
	}
	if location == 0 {
		location = fallbackLocationID
	}
	return circulation.CheckinRequest{
		CopyID:        form.CopyID,
		NewCondition:  form.NewCondition,
		NewLocationID: location,
		Notes:         form.Notes,
	}
}

func (d *Desk) commitCheckin(ctx context.Context, form CheckinForm) (circulation.Receipt, error) {
	req := d.checkinRequest(form)

	ctx, span := d.tracer.Start(ctx, "desk.checkin", trace.WithAttributes(
		attribute.Int64("copy.id", req.CopyID),
		attribute.String("copy.condition", string(req.NewCondition)),
		attribute.Int64("branch.id", req.NewLocationID),
	))
	defer span.End()

	if err := validate.Struct(req); err != nil {
		return circulation.Receipt{}, fmt.Errorf("invalid check-in request: %w", err)
	}

	receipt, err := d.services.Circulation.Checkin(ctx, req)
	if err == nil {
		d.cache.Invalidate(querycache.AfterCheckin...)
		if receipt == nil {
			err = fmt.Errorf("failed to check in copy %d: %w", req.CopyID, ErrEmptyReceipt)
		}
	}
	d.metrics.commit(ctx, "checkin", err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.logger.ErrorContext(ctx, "check-in failed", "copy_id", req.CopyID, "error", err)
		return circulation.Receipt{}, err
	}

	if receipt.FineAmount > 0 {
		d.metrics.fines.Add(ctx, receipt.FineAmount)
	}
	d.logger.InfoContext(ctx, "copy checked in",
		"transaction_id", receipt.ID,
		"copy_id", req.CopyID,
		"condition", req.NewCondition,
		"fine_amount", receipt.FineAmount,
	)
	return *receipt, nil
}

// selectCheckinCopy loads the copy and records it on the form, taking its
// current condition as the default. Only checked-out copies can be selected.
func (d *Desk) selectCheckinCopy(ctx context.Context, w *CheckinWizard, copyID int64) error {
	found, err := d.services.Catalog.GetCopy(ctx, copyID)
	if err != nil {
		return err
	}
	if found.Status != catalog.StatusCheckedOut {
		return fmt.Errorf("%w: copy %d is %s", catalog.ErrCopyNotCheckedOut, found.ID, found.Status.Label())
	}
	condition := catalog.ConditionExcellent
	if found.Condition.Valid() {
		condition = found.Condition
	}

	return w.Update(func(f *CheckinForm) error {
		f.CopyID = copyID
		f.NewCondition = condition
		return nil
	})
}

func (d *Desk) setCheckinDetails(w *CheckinWizard, details CheckinDetails) error {
	if err := validate.Struct(details); err != nil {
		return err
	}
	return w.Update(func(f *CheckinForm) error {
		if details.NewCondition != "" {
			f.NewCondition = details.NewCondition
		}
		f.NewLocationID = details.NewLocationID
		f.Notes = details.Notes
		return nil
	})
}

// CheckinMessage is the success notice for a completed check-in.
func CheckinMessage(form CheckinForm, receipt circulation.Receipt) string {
	copyID := receipt.CopyID
	if copyID == 0 {
		copyID = form.CopyID
	}
	msg := fmt.Sprintf("Item %d successfully checked in!", copyID)
	if receipt.FineAmount > 0 {
		msg += fmt.Sprintf(" Fine applied: $%.2f", receipt.FineAmount)
	}
	return msg
}

// CheckinView is the check-in wizard as rendered for its session.
type CheckinView struct {
	Session string `json:"session"`
	wizard.View[CheckinForm, circulation.Receipt]
	Copy       *catalog.Copy `json:"copy,omitempty"`
	CopyError  string        `json:"copy_error,omitempty"`
	LocationID int64         `json:"location_id,omitempty"`
	Message    string        `json:"message,omitempty"`
}

func (d *Desk) checkinView(ctx context.Context, sessionID string, v wizard.View[CheckinForm, circulation.Receipt]) CheckinView {
	view := CheckinView{Session: sessionID, View: v}
	if v.Receipt != nil {
		view.Message = CheckinMessage(v.Form, *v.Receipt)
		return view
	}
	if v.Step == checkinConfirm {
		view.LocationID = d.checkinRequest(v.Form).NewLocationID
		found, err := d.services.Catalog.GetCopy(ctx, v.Form.CopyID)
		if err != nil {
			view.CopyError = render.UnableToLoad
		} else {
			view.Copy = found
		}
	}
	return view
}
