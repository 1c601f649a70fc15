package catalog

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"librarydesk/internal/querycache"
)

type remoteError struct{ message string }

func (e *remoteError) Error() string       { return "failed to reshelve: " + e.message }
func (e *remoteError) UserMessage() string { return e.message }

type stubService struct {
	Service
	filters     []CopyFilter
	created     []NewCopy
	reshelved   []int64
	reshelveErr error
}

func (s *stubService) ListCopies(ctx context.Context, filter CopyFilter) ([]*Copy, error) {
	s.filters = append(s.filters, filter)
	return []*Copy{{ID: 42, Status: StatusAvailable, Condition: ConditionGood}}, nil
}

func (s *stubService) CreateCopy(ctx context.Context, c NewCopy) (*Copy, error) {
	s.created = append(s.created, c)
	return &Copy{ID: 50, LibraryItemID: c.LibraryItemID, OwningBranchID: c.OwningBranchID, Status: StatusProcessing}, nil
}

func (s *stubService) ReshelveCopy(ctx context.Context, copyID int64) (*Copy, error) {
	s.reshelved = append(s.reshelved, copyID)
	if s.reshelveErr != nil {
		return nil, s.reshelveErr
	}
	return &Copy{ID: copyID, Status: StatusAvailable}, nil
}

func newTestRouter(svc Service, cache *querycache.Cache) http.Handler {
	h := NewHandler(svc, cache, func() int64 { return 2 }, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	r.Get("/library-item-copies", h.HandleCopies)
	r.Post("/library-item-copies", h.HandleCreateCopy)
	r.Get("/available", h.HandleAvailable)
	r.Post("/reshelve/{copyID}", h.HandleReshelve)
	return r
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))
	return rec
}

func TestCopiesAreCachedUntilInvalidated(t *testing.T) {
	svc := &stubService{}
	cache := querycache.New()
	router := newTestRouter(svc, cache)

	rec := serve(router, http.MethodGet, "/available", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status_label":"Available"`)
	assert.Contains(t, rec.Body.String(), `"selectable":true`)

	serve(router, http.MethodGet, "/library-item-copies?available=true", "")
	assert.Equal(t, []CopyFilter{{BranchID: 2, Status: StatusAvailable}}, svc.filters)

	cache.Invalidate(querycache.AfterReshelve...)
	serve(router, http.MethodGet, "/available", "")
	assert.Len(t, svc.filters, 2)

	serve(router, http.MethodGet, "/library-item-copies?branch_id=5", "")
	assert.Equal(t, CopyFilter{BranchID: 5}, svc.filters[2])
}

func TestCreateCopyDefaultsBranchAndValidates(t *testing.T) {
	svc := &stubService{}
	router := newTestRouter(svc, querycache.New())

	rec := serve(router, http.MethodPost, "/library-item-copies", `{"library_item_id":7,"condition":"New"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, svc.created, 1)
	assert.Equal(t, int64(2), svc.created[0].OwningBranchID)

	rec = serve(router, http.MethodPost, "/library-item-copies", `{"condition":"New"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = serve(router, http.MethodPost, "/library-item-copies", `{"library_item_id":7,"condition":"Mint"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Len(t, svc.created, 1)
}

func TestReshelve(t *testing.T) {
	svc := &stubService{}
	router := newTestRouter(svc, querycache.New())

	rec := serve(router, http.MethodPost, "/reshelve/42", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Item successfully marked as reshelved!")
	assert.Equal(t, []int64{42}, svc.reshelved)

	svc.reshelveErr = &remoteError{message: "Copy is not unshelved"}
	rec = serve(router, http.MethodPost, "/reshelve/42", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to reshelve item: Copy is not unshelved"}`, rec.Body.String())

	rec = serve(router, http.MethodPost, "/reshelve/zero", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
