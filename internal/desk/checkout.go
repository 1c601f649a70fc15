package desk

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"librarydesk/internal/catalog"
	"librarydesk/internal/circulation"
	"librarydesk/internal/membership"
	"librarydesk/internal/querycache"
	"librarydesk/internal/render"
	"librarydesk/internal/wizard"
)

// CheckoutForm holds the selections of a checkout.
type CheckoutForm struct {
	PatronID int64         `json:"patron_id,omitempty"`
	Copy     *catalog.Copy `json:"copy,omitempty"`
}

func (f CheckoutForm) CopyID() int64 {
	if f.Copy == nil {
		return 0
	}
	return f.Copy.ID
}

type CheckoutWizard = wizard.Wizard[CheckoutForm, circulation.Receipt]

const (
	checkoutSelectPatron = iota
	checkoutSelectItem
	checkoutConfirm
)

func checkoutReady(step int, f CheckoutForm) bool {
	switch step {
	case checkoutSelectPatron:
		return f.PatronID > 0
	case checkoutSelectItem:
		return f.Copy.Selectable()
	default:
		return f.PatronID > 0 && f.Copy.Selectable()
	}
}

func (d *Desk) newCheckout(sessionID string) *CheckoutWizard {
	return wizard.New(wizard.Flow[CheckoutForm, circulation.Receipt]{
		Name:          "checkout",
		Steps:         []string{"Select Patron", "Select Item", "Confirm Details"},
		Ready:         checkoutReady,
		Hints:         []string{"Select patron to proceed", "Select item to proceed"},
		CommitLabel:   "Complete",
		CommitTooltip: "Complete the transaction",
		Commit: func(ctx context.Context, form CheckoutForm) (circulation.Receipt, error) {
			return d.commitCheckout(commitContext(ctx, sessionID), form)
		},
		FailureMessage: func(err error) string {
			return "Failed to check out item. Error: " + render.Message(err)
		},
	})
}

func (d *Desk) commitCheckout(ctx context.Context, form CheckoutForm) (circulation.Receipt, error) {
	req := circulation.CheckoutRequest{PatronID: form.PatronID, CopyID: form.CopyID()}

	ctx, span := d.tracer.Start(ctx, "desk.checkout", trace.WithAttributes(
		attribute.Int64("patron.id", req.PatronID),
		attribute.Int64("copy.id", req.CopyID),
	))
	defer span.End()

	if err := validate.Struct(req); err != nil {
		return circulation.Receipt{}, fmt.Errorf("invalid checkout request: %w", err)
	}

	receipt, err := d.services.Circulation.Checkout(ctx, req)
	if err == nil {
		d.cache.Invalidate(querycache.AfterCheckout...)
		if receipt == nil {
			err = fmt.Errorf("failed to check out copy %d: %w", req.CopyID, ErrEmptyReceipt)
		}
	}
	d.metrics.commit(ctx, "checkout", err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.logger.ErrorContext(ctx, "checkout failed", "patron_id", req.PatronID, "copy_id", req.CopyID, "error", err)
		return circulation.Receipt{}, err
	}

	d.logger.InfoContext(ctx, "copy checked out",
		"transaction_id", receipt.ID,
		"patron_id", req.PatronID,
		"copy_id", req.CopyID,
		"due_date", receipt.DueDate,
	)
	return *receipt, nil
}

// selectCheckoutCopy loads the copy and records it on the form. Only available
// copies can be selected.
func (d *Desk) selectCheckoutCopy(ctx context.Context, w *CheckoutWizard, copyID int64) error {
	found, err := d.services.Catalog.GetCopy(ctx, copyID)
	if err != nil {
		return err
	}
	if !found.Selectable() {
		return fmt.Errorf("%w: copy %d is %s", catalog.ErrCopyNotSelectable, found.ID, found.Status.Label())
	}
	return w.Update(func(f *CheckoutForm) error {
		f.Copy = found
		return nil
	})
}

// CheckoutPreview is what the confirm step shows before committing.
type CheckoutPreview struct {
	Patron      *membership.PatronView `json:"patron,omitempty"`
	PatronError string                 `json:"patron_error,omitempty"`
	Item        *catalog.Item          `json:"item,omitempty"`
	ItemError   string                 `json:"item_error,omitempty"`
	Copy        *catalog.Copy          `json:"copy"`
	DueDate     time.Time              `json:"due_date"`
	Warnings    []Warning              `json:"warnings,omitempty"`
}

// Warning is shown on the confirm step without blocking the commit.
type Warning struct {
	Title    string `json:"title"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// checkoutPreview loads the patron and item of form. Either may fail to load
// without failing the preview.
func (d *Desk) checkoutPreview(ctx context.Context, form CheckoutForm) *CheckoutPreview {
	if form.Copy == nil {
		return nil
	}
	preview := &CheckoutPreview{Copy: form.Copy}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		patron, err := d.membershipHandler.Patron(gctx, form.PatronID)
		if err != nil {
			preview.PatronError = render.UnableToLoad
			return nil
		}
		preview.Patron = patron
		return nil
	})
	g.Go(func() error {
		item, err := d.services.Catalog.GetItem(gctx, form.Copy.LibraryItemID)
		if err != nil {
			d.logger.WarnContext(gctx, "query failed", "query", "library item", "item_id", form.Copy.LibraryItemID, "error", err)
			preview.ItemError = render.UnableToLoad
			return nil
		}
		preview.Item = item
		return nil
	})
	g.Wait()

	itemType, year := form.Copy.ItemType, 0
	if preview.Item != nil {
		itemType, year = preview.Item.ItemType, preview.Item.Year()
	}
	preview.DueDate = d.calc.DueDate(itemType, year)

	if preview.Patron != nil {
		preview.Warnings = d.patronWarnings(preview.Patron.Patron)
	}
	return preview
}

func (d *Desk) patronWarnings(p *membership.Patron) []Warning {
	var warnings []Warning
	if p.HasOutstandingBalance() {
		warnings = append(warnings, Warning{
			Title:    "Outstanding Balance",
			Message:  fmt.Sprintf("This patron has an outstanding balance of $%.2f.", p.Balance),
			Severity: "warning",
		})
	}
	if d.calc.CardExpired(p.CardExpirationDate) {
		warnings = append(warnings, Warning{
			Title:    "Expired Library Card",
			Message:  "This patron's library card expired on " + p.CardExpirationDate.Format("Jan 02, 2006") + ".",
			Severity: "error",
		})
	}
	return warnings
}

// CheckoutView is the checkout wizard as rendered for its session.
type CheckoutView struct {
	Session string `json:"session"`
	wizard.View[CheckoutForm, circulation.Receipt]
	Preview *CheckoutPreview `json:"preview,omitempty"`
}

func (d *Desk) checkoutView(ctx context.Context, sessionID string, v wizard.View[CheckoutForm, circulation.Receipt]) CheckoutView {
	view := CheckoutView{Session: sessionID, View: v}
	if v.Step == checkoutConfirm && !v.Terminal {
		view.Preview = d.checkoutPreview(ctx, v.Form)
	}
	return view
}
