package circulation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"librarydesk/internal/catalog"
	"librarydesk/internal/querycache"
)

type stubService struct {
	Service
	transactions []*Transaction
	filters      []TransactionFilter
	err          error
}

func (s *stubService) ListTransactions(ctx context.Context, filter TransactionFilter) ([]*Transaction, error) {
	s.filters = append(s.filters, filter)
	return s.transactions, s.err
}

type stubCopies struct {
	catalog.Service
	checkedOut []*catalog.CheckedOutCopy
	branches   []int64
}

func (s *stubCopies) ListCheckedOutCopies(ctx context.Context, branchID int64) ([]*catalog.CheckedOutCopy, error) {
	s.branches = append(s.branches, branchID)
	return s.checkedOut, nil
}

func newTestHandler(svc Service, copies catalog.Service) *Handler {
	calc := NewCalculator(WithClock(func() time.Time { return fixedNow }))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(svc, copies, calc, querycache.New(), func() int64 { return 2 }, logger)
}

func TestHandleCheckedOutFlagsOverdueCopies(t *testing.T) {
	copies := &stubCopies{checkedOut: []*catalog.CheckedOutCopy{
		{Copy: catalog.Copy{ID: 1}, DueDate: fixedNow.Add(-49 * time.Hour)},
		{Copy: catalog.Copy{ID: 2}, DueDate: fixedNow.Add(time.Hour)},
	}}
	h := newTestHandler(&stubService{}, copies)

	rec := httptest.NewRecorder()
	h.HandleCheckedOut(rec, httptest.NewRequest(http.MethodGet, "/checked-out", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []CheckedOutView `json:"data"`
	}
	require.NoError(t, jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)

	assert.True(t, body.Data[0].Overdue)
	assert.Equal(t, 3, body.Data[0].DaysOverdue)
	assert.Equal(t, 1.5, body.Data[0].AccruedFine)
	assert.False(t, body.Data[1].Overdue)
	assert.Zero(t, body.Data[1].AccruedFine)
	assert.Equal(t, []int64{2}, copies.branches)
}

func TestHandleTransactionsFilters(t *testing.T) {
	returned := fixedNow.Add(-time.Hour)
	svc := &stubService{transactions: []*Transaction{
		{ID: 1, DueDate: fixedNow.AddDate(0, 0, -2), Status: StatusOverdue},
		{ID: 2, DueDate: fixedNow.AddDate(0, 0, -2), ReturnDate: &returned, FineAmount: 1, Status: StatusReturned},
	}}
	h := newTestHandler(svc, &stubCopies{})

	rec := httptest.NewRecorder()
	h.HandleTransactions(rec, httptest.NewRequest(http.MethodGet, "/transactions?patron_id=4&status=Overdue", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []TransactionView `json:"data"`
	}
	require.NoError(t, jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
	assert.Equal(t, []TransactionFilter{{PatronID: 4, Status: StatusOverdue}}, svc.filters)

	assert.True(t, body.Data[0].Overdue)
	assert.Equal(t, 1.0, body.Data[0].AccruedFine)
	// Returned loans keep the fine recorded at check-in.
	assert.False(t, body.Data[1].Overdue)
	assert.Zero(t, body.Data[1].AccruedFine)
	assert.Equal(t, 1.0, body.Data[1].FineAmount)
}

func TestHandleTransactionsLoadError(t *testing.T) {
	h := newTestHandler(&stubService{err: errors.New("connection refused")}, &stubCopies{})

	rec := httptest.NewRecorder()
	h.HandleTransactions(rec, httptest.NewRequest(http.MethodGet, "/transactions", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":null,"error":"unable to load"}`, rec.Body.String())
}

func TestHandleTransactionsRejectsBadPatron(t *testing.T) {
	h := newTestHandler(&stubService{}, &stubCopies{})

	rec := httptest.NewRecorder()
	h.HandleTransactions(rec, httptest.NewRequest(http.MethodGet, "/transactions?patron_id=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
