package clients

import (
	"context"
	"fmt"
	"net/url"

	"librarydesk/internal/membership"
)

func (c *DataServiceClient) ListPatrons(ctx context.Context) ([]*membership.Patron, error) {
	patrons, err := read[[]*membership.Patron](ctx, c, "list_patrons", "/patrons", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list patrons: %w", err)
	}
	return patrons, nil
}

func (c *DataServiceClient) SearchPatrons(ctx context.Context, query string) ([]*membership.Patron, error) {
	patrons, err := read[[]*membership.Patron](ctx, c, "search_patrons", "/patrons", url.Values{"q": {query}})
	if err != nil {
		return nil, fmt.Errorf("failed to search patrons: %w", err)
	}
	return patrons, nil
}

func (c *DataServiceClient) GetPatron(ctx context.Context, id int64) (*membership.Patron, error) {
	patron, err := read[*membership.Patron](ctx, c, "get_patron", idPath("/patrons/%d", id), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get patron %d: %w", id, err)
	}
	return patron, nil
}
