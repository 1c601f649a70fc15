package desk

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"librarydesk/internal/circulation"
	"librarydesk/internal/membership"
	"librarydesk/internal/render"
)

// DashboardView is the home page: branch counters and the overdue loans.
type DashboardView struct {
	Branch   Branch                                        `json:"branch"`
	Settings Settings                                      `json:"settings"`
	Stats    render.Section[*circulation.Stats]            `json:"stats"`
	Overdue  render.Section[[]circulation.TransactionView] `json:"overdue_transactions"`
}

// HandleDashboard loads the stats and the overdue transactions concurrently.
// Each section fails on its own.
func (d *Desk) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	view := DashboardView{Branch: d.app.Branch(), Settings: d.app.Settings()}

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		stats, err := d.circulationHandler.Stats(ctx)
		view.Stats = render.Loaded(stats, err)
		return nil
	})
	g.Go(func() error {
		filter := circulation.TransactionFilter{Status: circulation.StatusOverdue}
		overdue, err := d.circulationHandler.Transactions(ctx, filter)
		view.Overdue = render.Loaded(overdue, err)
		return nil
	})
	g.Wait()

	render.JSON(w, http.StatusOK, view)
}

// PatronPageView is a patron with their loan history.
type PatronPageView struct {
	Patron       render.Section[*membership.PatronView]        `json:"patron"`
	Transactions render.Section[[]circulation.TransactionView] `json:"transactions"`
	Warnings     []Warning                                     `json:"warnings,omitempty"`
}

func (d *Desk) HandlePatronPage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "patronID"), 10, 64)
	if err != nil || id <= 0 {
		render.Error(w, http.StatusBadRequest, "invalid patron ID")
		return
	}

	var view PatronPageView
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		patron, err := d.membershipHandler.Patron(ctx, id)
		view.Patron = render.Loaded(patron, err)
		return nil
	})
	g.Go(func() error {
		filter := circulation.TransactionFilter{PatronID: id}
		transactions, err := d.circulationHandler.Transactions(ctx, filter)
		view.Transactions = render.Loaded(transactions, err)
		return nil
	})
	g.Wait()

	if p := view.Patron.Data; p != nil {
		view.Warnings = d.patronWarnings(p.Patron)
	}
	render.JSON(w, http.StatusOK, view)
}

func (d *Desk) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, http.StatusOK, d.app.Settings())
}

func (d *Desk) HandlePutSettings(w http.ResponseWriter, r *http.Request) {
	var s Settings
	if err := render.Decode(r, &s); err != nil {
		render.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := d.app.SetSettings(s); err != nil {
		render.Error(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	d.logger.InfoContext(r.Context(), "settings updated", "theme_mode", s.ThemeMode, "notifications", s.NotificationsEnabled, "email_updates", s.EmailUpdates)
	render.JSON(w, http.StatusOK, d.app.Settings())
}

func (d *Desk) HandleGetBranch(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, http.StatusOK, d.app.Branch())
}

func (d *Desk) HandlePutBranch(w http.ResponseWriter, r *http.Request) {
	var b Branch
	if err := render.Decode(r, &b); err != nil {
		render.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := d.app.SetBranch(b); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrInvalidBranch) {
			status = http.StatusUnprocessableEntity
		}
		render.Error(w, status, err.Error())
		return
	}
	d.logger.InfoContext(r.Context(), "branch selected", "branch_id", b.ID, "branch_name", b.Name)
	render.JSON(w, http.StatusOK, d.app.Branch())
}

func (d *Desk) HandleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, http.StatusOK, map[string]any{
		"status":            "ok",
		"checkout_sessions": d.checkouts.Len(),
		"checkin_sessions":  d.checkins.Len(),
	})
}
