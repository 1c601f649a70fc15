package desk

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"librarydesk/internal/catalog"
	"librarydesk/internal/circulation"
	"librarydesk/internal/render"
	"librarydesk/internal/wizard"
)

// wizardResponse carries the wizard view along with the reason an action was
// refused, if it was.
type wizardResponse[V any] struct {
	View    V      `json:"view"`
	Problem string `json:"problem,omitempty"`
}

// wizardEndpoints serves the actions shared by every wizard flow.
type wizardEndpoints[F, R, V any] struct {
	sessions *Sessions[*wizard.Wizard[F, R]]
	render   func(ctx context.Context, sessionID string, v wizard.View[F, R]) V
	logger   *slog.Logger
}

func (e *wizardEndpoints[F, R, V]) session(w http.ResponseWriter, r *http.Request) (string, *wizard.Wizard[F, R], bool) {
	id := chi.URLParam(r, "sessionID")
	wz, err := e.sessions.Get(id)
	if err != nil {
		render.Error(w, http.StatusNotFound, err.Error())
		return "", nil, false
	}
	return id, wz, true
}

func (e *wizardEndpoints[F, R, V]) respond(w http.ResponseWriter, r *http.Request, id string, v wizard.View[F, R], err error) {
	resp := wizardResponse[V]{View: e.render(r.Context(), id, v)}
	status := actionStatus(err)
	switch {
	case err == nil:
	case errors.Is(err, wizard.ErrCommitFailed):
		// The view's notification already carries the message.
	default:
		resp.Problem = render.Message(err)
		e.logger.DebugContext(r.Context(), "wizard action refused", "session", id, "reason", err)
	}
	render.JSON(w, status, resp)
}

func (e *wizardEndpoints[F, R, V]) create(w http.ResponseWriter, r *http.Request) {
	id, wz := e.sessions.Create()
	render.JSON(w, http.StatusCreated, wizardResponse[V]{View: e.render(r.Context(), id, wz.View())})
}

func (e *wizardEndpoints[F, R, V]) get(w http.ResponseWriter, r *http.Request) {
	id, wz, ok := e.session(w, r)
	if !ok {
		return
	}
	e.respond(w, r, id, wz.View(), nil)
}

func (e *wizardEndpoints[F, R, V]) next(w http.ResponseWriter, r *http.Request) {
	id, wz, ok := e.session(w, r)
	if !ok {
		return
	}
	v, err := wz.Next(r.Context())
	e.respond(w, r, id, v, err)
}

func (e *wizardEndpoints[F, R, V]) back(w http.ResponseWriter, r *http.Request) {
	id, wz, ok := e.session(w, r)
	if !ok {
		return
	}
	v, err := wz.Back()
	e.respond(w, r, id, v, err)
}

func (e *wizardEndpoints[F, R, V]) retry(w http.ResponseWriter, r *http.Request) {
	id, wz, ok := e.session(w, r)
	if !ok {
		return
	}
	v, err := wz.Retry(r.Context())
	e.respond(w, r, id, v, err)
}

func (e *wizardEndpoints[F, R, V]) dismiss(w http.ResponseWriter, r *http.Request) {
	id, wz, ok := e.session(w, r)
	if !ok {
		return
	}
	e.respond(w, r, id, wz.DismissError(), nil)
}

func (e *wizardEndpoints[F, R, V]) reset(w http.ResponseWriter, r *http.Request) {
	id, wz, ok := e.session(w, r)
	if !ok {
		return
	}
	e.respond(w, r, id, wz.Reset(), nil)
}

func (e *wizardEndpoints[F, R, V]) remove(w http.ResponseWriter, r *http.Request) {
	if err := e.sessions.Delete(chi.URLParam(r, "sessionID")); err != nil {
		render.Error(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// update runs a selection against the session's wizard and responds with the
// resulting view.
func (e *wizardEndpoints[F, R, V]) update(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, wz *wizard.Wizard[F, R]) error) {
	id, wz, ok := e.session(w, r)
	if !ok {
		return
	}
	err := apply(r.Context(), wz)
	e.respond(w, r, id, wz.View(), err)
}

func actionStatus(err error) int {
	var invalid validator.ValidationErrors
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, wizard.ErrCommitFailed):
		return http.StatusBadGateway
	case errors.Is(err, catalog.ErrCopyNotSelectable),
		errors.Is(err, catalog.ErrCopyNotCheckedOut),
		errors.As(err, &invalid),
		errors.Is(err, errInvalidSelection):
		return http.StatusUnprocessableEntity
	case errors.Is(err, wizard.ErrStepIncomplete),
		errors.Is(err, wizard.ErrCommitPending),
		errors.Is(err, wizard.ErrStaleCommit),
		errors.Is(err, wizard.ErrNothingToRetry),
		errors.Is(err, wizard.ErrFirstStep),
		errors.Is(err, wizard.ErrFinished):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

var errInvalidSelection = errors.New("invalid selection")

type patronSelection struct {
	PatronID int64 `json:"patron_id" validate:"required,gt=0"`
}

type copySelection struct {
	CopyID int64 `json:"copy_id" validate:"required,gt=0"`
}

func decodeSelection(r *http.Request, v any) error {
	if err := render.Decode(r, v); err != nil {
		return errors.Join(errInvalidSelection, err)
	}
	return validate.Struct(v)
}

func (d *Desk) checkoutEndpoints() *wizardEndpoints[CheckoutForm, circulation.Receipt, CheckoutView] {
	return &wizardEndpoints[CheckoutForm, circulation.Receipt, CheckoutView]{
		sessions: d.checkouts,
		render:   d.checkoutView,
		logger:   d.logger,
	}
}

func (d *Desk) checkinEndpoints() *wizardEndpoints[CheckinForm, circulation.Receipt, CheckinView] {
	return &wizardEndpoints[CheckinForm, circulation.Receipt, CheckinView]{
		sessions: d.checkins,
		render:   d.checkinView,
		logger:   d.logger,
	}
}

func (d *Desk) handleSelectPatron(e *wizardEndpoints[CheckoutForm, circulation.Receipt, CheckoutView]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e.update(w, r, func(ctx context.Context, wz *CheckoutWizard) error {
			var sel patronSelection
			if err := decodeSelection(r, &sel); err != nil {
				return err
			}
			return wz.Update(func(f *CheckoutForm) error {
				f.PatronID = sel.PatronID
				return nil
			})
		})
	}
}

func (d *Desk) handleSelectCheckoutCopy(e *wizardEndpoints[CheckoutForm, circulation.Receipt, CheckoutView]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e.update(w, r, func(ctx context.Context, wz *CheckoutWizard) error {
			var sel copySelection
			if err := decodeSelection(r, &sel); err != nil {
				return err
			}
			return d.selectCheckoutCopy(ctx, wz, sel.CopyID)
		})
	}
}

func (d *Desk) handleSelectCheckinCopy(e *wizardEndpoints[CheckinForm, circulation.Receipt, CheckinView]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e.update(w, r, func(ctx context.Context, wz *CheckinWizard) error {
			var sel copySelection
			if err := decodeSelection(r, &sel); err != nil {
				return err
			}
			return d.selectCheckinCopy(ctx, wz, sel.CopyID)
		})
	}
}

func (d *Desk) handleCheckinDetails(e *wizardEndpoints[CheckinForm, circulation.Receipt, CheckinView]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e.update(w, r, func(ctx context.Context, wz *CheckinWizard) error {
			var details CheckinDetails
			if err := render.Decode(r, &details); err != nil {
				return errors.Join(errInvalidSelection, err)
			}
			return d.setCheckinDetails(wz, details)
		})
	}
}
