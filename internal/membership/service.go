package membership

import (
	"context"
)

// Service defines the patron queries offered by the data service.
type Service interface {
	ListPatrons(ctx context.Context) ([]*Patron, error)
	SearchPatrons(ctx context.Context, query string) ([]*Patron, error)
	GetPatron(ctx context.Context, id int64) (*Patron, error)
}
