package clients

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"librarydesk/internal/circulation"
)

func (c *DataServiceClient) Checkout(ctx context.Context, req circulation.CheckoutRequest) (*circulation.Receipt, error) {
	receipt, err := write[*circulation.Receipt](ctx, c, "checkout", http.MethodPost, "/transactions/checkout", req)
	if err != nil {
		return nil, fmt.Errorf("failed to check out copy %d: %w", req.CopyID, err)
	}
	return receipt, nil
}

func (c *DataServiceClient) Checkin(ctx context.Context, req circulation.CheckinRequest) (*circulation.Receipt, error) {
	receipt, err := write[*circulation.Receipt](ctx, c, "checkin", http.MethodPost, "/transactions/checkin", req)
	if err != nil {
		return nil, fmt.Errorf("failed to check in copy %d: %w", req.CopyID, err)
	}
	return receipt, nil
}

func (c *DataServiceClient) ListTransactions(ctx context.Context, filter circulation.TransactionFilter) ([]*circulation.Transaction, error) {
	q := url.Values{}
	if filter.PatronID > 0 {
		q.Set("patron_id", fmt.Sprint(filter.PatronID))
	}
	if filter.Status != "" {
		q.Set("status", string(filter.Status))
	}
	transactions, err := read[[]*circulation.Transaction](ctx, c, "list_transactions", "/transactions", q)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return transactions, nil
}

func (c *DataServiceClient) Stats(ctx context.Context) (*circulation.Stats, error) {
	stats, err := read[*circulation.Stats](ctx, c, "stats", "/stats", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}
	return stats, nil
}
