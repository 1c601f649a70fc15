package circulation

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"librarydesk/internal/catalog"
	"librarydesk/internal/querycache"
	"librarydesk/internal/render"
)

type Handler struct {
	service       Service
	copies        catalog.Service
	calc          *Calculator
	cache         *querycache.Cache
	currentBranch func() int64
	logger        *slog.Logger
}

func NewHandler(service Service, copies catalog.Service, calc *Calculator, cache *querycache.Cache, currentBranch func() int64, logger *slog.Logger) *Handler {
	return &Handler{
		service:       service,
		copies:        copies,
		calc:          calc,
		cache:         cache,
		currentBranch: currentBranch,
		logger:        logger,
	}
}

// TransactionView is a Transaction with its overdue state evaluated now.
type TransactionView struct {
	*Transaction
	StatusLabel string  `json:"status_label"`
	Overdue     bool    `json:"overdue"`
	DaysOverdue int     `json:"days_overdue"`
	AccruedFine float64 `json:"accrued_fine"`
}

func (h *Handler) transactionView(t *Transaction) TransactionView {
	v := TransactionView{Transaction: t, StatusLabel: t.Status.Label()}
	// Returned loans keep the fine recorded at check-in.
	if t.ReturnDate == nil {
		v.Overdue = h.calc.IsOverdue(t.DueDate)
		v.DaysOverdue = h.calc.DaysOverdue(t.DueDate)
		v.AccruedFine = h.calc.Fine(t.DueDate)
	}
	return v
}

// CheckedOutView is a copy on loan with its overdue state evaluated now.
type CheckedOutView struct {
	*catalog.CheckedOutCopy
	Overdue     bool    `json:"overdue"`
	DaysOverdue int     `json:"days_overdue"`
	AccruedFine float64 `json:"accrued_fine"`
}

// HandleTransactions lists transactions, filtered by ?patron_id= and ?status=.
func (h *Handler) HandleTransactions(w http.ResponseWriter, r *http.Request) {
	filter := TransactionFilter{Status: TransactionStatus(r.URL.Query().Get("status"))}
	if raw := r.URL.Query().Get("patron_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			render.Error(w, http.StatusBadRequest, "invalid patron ID")
			return
		}
		filter.PatronID = id
	}

	views, err := h.Transactions(r.Context(), filter)
	render.JSON(w, http.StatusOK, render.Loaded(views, err))
}

// Transactions loads a transaction listing for composition into larger views.
func (h *Handler) Transactions(ctx context.Context, filter TransactionFilter) ([]TransactionView, error) {
	key := querycache.NewKey(querycache.Transactions, filter.PatronID, string(filter.Status))
	transactions, err := querycache.Get(ctx, h.cache, key, func(ctx context.Context) ([]*Transaction, error) {
		return h.service.ListTransactions(ctx, filter)
	})
	if err != nil {
		h.logger.WarnContext(ctx, "query failed", "query", "transactions", "error", err)
		return nil, err
	}

	views := make([]TransactionView, 0, len(transactions))
	for _, t := range transactions {
		views = append(views, h.transactionView(t))
	}
	return views, nil
}

// HandleCheckedOut lists the copies on loan from the current branch, flagging
// overdue ones.
func (h *Handler) HandleCheckedOut(w http.ResponseWriter, r *http.Request) {
	branchID := h.currentBranch()
	if raw := r.URL.Query().Get("branch_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			render.Error(w, http.StatusBadRequest, "invalid branch ID")
			return
		}
		branchID = id
	}

	key := querycache.NewKey(querycache.CheckedOutCopies, branchID)
	copies, err := querycache.Get(r.Context(), h.cache, key, func(ctx context.Context) ([]*catalog.CheckedOutCopy, error) {
		return h.copies.ListCheckedOutCopies(ctx, branchID)
	})
	if err != nil {
		h.logger.WarnContext(r.Context(), "query failed", "query", "checked out copies", "error", err)
	}

	views := make([]CheckedOutView, 0, len(copies))
	for _, c := range copies {
		views = append(views, CheckedOutView{
			CheckedOutCopy: c,
			Overdue:        h.calc.IsOverdue(c.DueDate),
			DaysOverdue:    h.calc.DaysOverdue(c.DueDate),
			AccruedFine:    h.calc.Fine(c.DueDate),
		})
	}
	render.JSON(w, http.StatusOK, render.Loaded(views, err))
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Stats(r.Context())
	render.JSON(w, http.StatusOK, render.Loaded(stats, err))
}

// Stats loads the dashboard counters for composition into larger views.
func (h *Handler) Stats(ctx context.Context) (*Stats, error) {
	stats, err := querycache.Get(ctx, h.cache, querycache.NewKey(querycache.Stats), h.service.Stats)
	if err != nil {
		h.logger.WarnContext(ctx, "query failed", "query", "stats", "error", err)
		return nil, err
	}
	return stats, nil
}
