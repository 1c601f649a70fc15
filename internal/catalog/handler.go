package catalog

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"librarydesk/internal/querycache"
	"librarydesk/internal/render"
)

var validate = validator.New()

type Handler struct {
	service       Service
	cache         *querycache.Cache
	currentBranch func() int64
	logger        *slog.Logger
}

func NewHandler(service Service, cache *querycache.Cache, currentBranch func() int64, logger *slog.Logger) *Handler {
	return &Handler{
		service:       service,
		cache:         cache,
		currentBranch: currentBranch,
		logger:        logger,
	}
}

func (h *Handler) HandleItems(w http.ResponseWriter, r *http.Request) {
	items, err := querycache.Get(r.Context(), h.cache, querycache.NewKey(querycache.LibraryItems), h.service.ListItems)
	h.logLoadError(r.Context(), "library items", err)
	render.JSON(w, http.StatusOK, render.Loaded(itemViews(items), err))
}

func (h *Handler) HandleItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "itemID")
	if err != nil {
		render.Error(w, http.StatusBadRequest, "invalid item ID")
		return
	}

	item, err := h.service.GetItem(r.Context(), id)
	h.logLoadError(r.Context(), "library item", err)
	var view *ItemView
	if item != nil {
		v := newItemView(item)
		view = &v
	}
	render.JSON(w, http.StatusOK, render.Loaded(view, err))
}

func (h *Handler) HandleItemCopies(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "itemID")
	if err != nil {
		render.Error(w, http.StatusBadRequest, "invalid item ID")
		return
	}

	key := querycache.NewKey(querycache.ItemCopies, id)
	copies, err := querycache.Get(r.Context(), h.cache, key, func(ctx context.Context) ([]*Copy, error) {
		return h.service.ListCopiesByItem(ctx, id)
	})
	h.logLoadError(r.Context(), "item copies", err)
	render.JSON(w, http.StatusOK, render.Loaded(copyViews(copies), err))
}

// HandleCopies lists copies of a branch, optionally restricted to one status.
// ?available=true keeps only copies that can be checked out.
func (h *Handler) HandleCopies(w http.ResponseWriter, r *http.Request) {
	status := CopyStatus(r.URL.Query().Get("status"))
	if r.URL.Query().Get("available") == "true" {
		status = StatusAvailable
	}
	h.listCopies(w, r, status)
}

// HandleAvailable lists the copies of a branch that can be checked out.
func (h *Handler) HandleAvailable(w http.ResponseWriter, r *http.Request) {
	h.listCopies(w, r, StatusAvailable)
}

func (h *Handler) listCopies(w http.ResponseWriter, r *http.Request, status CopyStatus) {
	branchID, err := h.branchParam(r)
	if err != nil {
		render.Error(w, http.StatusBadRequest, "invalid branch ID")
		return
	}
	filter := CopyFilter{BranchID: branchID, Status: status}

	key := querycache.NewKey(querycache.AllItemCopies, filter.BranchID, string(filter.Status))
	copies, err := querycache.Get(r.Context(), h.cache, key, func(ctx context.Context) ([]*Copy, error) {
		return h.service.ListCopies(ctx, filter)
	})
	h.logLoadError(r.Context(), "copies", err)
	render.JSON(w, http.StatusOK, render.Loaded(copyViews(copies), err))
}

func (h *Handler) HandleCreateCopy(w http.ResponseWriter, r *http.Request) {
	var req NewCopy
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.OwningBranchID == 0 {
		req.OwningBranchID = h.currentBranch()
	}
	if err := validate.Struct(req); err != nil {
		render.Error(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	created, err := h.service.CreateCopy(r.Context(), req)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "create copy failed", "library_item_id", req.LibraryItemID, "error", err)
		render.Error(w, http.StatusBadGateway, render.Message(err))
		return
	}
	h.cache.Invalidate(querycache.AfterCreateCopy...)

	render.JSON(w, http.StatusCreated, newCopyView(created))
}

func (h *Handler) HandleUnshelved(w http.ResponseWriter, r *http.Request) {
	branchID, err := h.branchParam(r)
	if err != nil {
		render.Error(w, http.StatusBadRequest, "invalid branch ID")
		return
	}

	key := querycache.NewKey(querycache.UnshelvedItemCopies, branchID)
	copies, err := querycache.Get(r.Context(), h.cache, key, func(ctx context.Context) ([]*Copy, error) {
		return h.service.ListUnshelvedCopies(ctx, branchID)
	})
	h.logLoadError(r.Context(), "unshelved copies", err)
	render.JSON(w, http.StatusOK, render.Loaded(copyViews(copies), err))
}

func (h *Handler) HandleReshelve(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "copyID")
	if err != nil {
		render.Error(w, http.StatusBadRequest, "invalid copy ID")
		return
	}

	shelved, err := h.service.ReshelveCopy(r.Context(), id)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "reshelve failed", "copy_id", id, "error", err)
		render.Error(w, http.StatusBadGateway, "Failed to reshelve item: "+render.Message(err))
		return
	}
	h.cache.Invalidate(querycache.AfterReshelve...)
	h.logger.InfoContext(r.Context(), "copy reshelved", "copy_id", id)

	render.JSON(w, http.StatusOK, map[string]any{
		"message": "Item successfully marked as reshelved!",
		"copy":    newCopyView(shelved),
	})
}

func (h *Handler) branchParam(r *http.Request) (int64, error) {
	raw := r.URL.Query().Get("branch_id")
	if raw == "" {
		return h.currentBranch(), nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

func (h *Handler) logLoadError(ctx context.Context, what string, err error) {
	if err != nil {
		h.logger.WarnContext(ctx, "query failed", "query", what, "error", err)
	}
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}
