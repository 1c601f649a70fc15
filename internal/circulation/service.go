package circulation

import (
	"context"
)

// Service defines the circulation queries and commands offered by the data service.
type Service interface {
	Checkout(ctx context.Context, req CheckoutRequest) (*Receipt, error)
	Checkin(ctx context.Context, req CheckinRequest) (*Receipt, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]*Transaction, error)
	Stats(ctx context.Context) (*Stats, error)
}
