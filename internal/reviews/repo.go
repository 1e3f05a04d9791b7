package reviews

import "context"

// ReviewsRepo defines persistence operations for review items. The metrics
// rollup reads the full org collection through ListByOrg with limit 0.
type ReviewsRepo interface {
	Create(ctx context.Context, item Item) error
	GetByID(ctx context.Context, orgID, itemID string) (Item, error)
	Update(ctx context.Context, item Item) error
	ListByOrg(ctx context.Context, orgID string, limit, offset int) ([]Item, error)
}
