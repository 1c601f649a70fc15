package membership

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"librarydesk/internal/querycache"
	"librarydesk/internal/render"
)

type Handler struct {
	service Service
	cache   *querycache.Cache
	logger  *slog.Logger
}

func NewHandler(service Service, cache *querycache.Cache, logger *slog.Logger) *Handler {
	return &Handler{service: service, cache: cache, logger: logger}
}

// PatronView is a Patron with its display name resolved.
type PatronView struct {
	*Patron
	Name string `json:"name"`
}

func newPatronView(p *Patron) PatronView {
	return PatronView{Patron: p, Name: p.Name()}
}

// HandlePatrons lists patrons, or searches them when ?q= is given.
func (h *Handler) HandlePatrons(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	var (
		patrons []*Patron
		err     error
	)
	if query == "" {
		patrons, err = querycache.Get(r.Context(), h.cache, querycache.NewKey(querycache.Patrons), h.service.ListPatrons)
	} else {
		patrons, err = h.service.SearchPatrons(r.Context(), query)
	}
	if err != nil {
		h.logger.WarnContext(r.Context(), "query failed", "query", "patrons", "error", err)
	}

	views := make([]PatronView, 0, len(patrons))
	for _, p := range patrons {
		views = append(views, newPatronView(p))
	}
	render.JSON(w, http.StatusOK, render.Loaded(views, err))
}

func (h *Handler) HandlePatron(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "patronID"), 10, 64)
	if err != nil || id <= 0 {
		render.Error(w, http.StatusBadRequest, "invalid patron ID")
		return
	}

	view, err := h.Patron(r.Context(), id)
	render.JSON(w, http.StatusOK, render.Loaded(view, err))
}

// Patron loads one patron for composition into larger views.
func (h *Handler) Patron(ctx context.Context, id int64) (*PatronView, error) {
	patron, err := h.service.GetPatron(ctx, id)
	if err != nil {
		h.logger.WarnContext(ctx, "query failed", "query", "patron", "patron_id", id, "error", err)
		return nil, err
	}
	v := newPatronView(patron)
	return &v, nil
}
