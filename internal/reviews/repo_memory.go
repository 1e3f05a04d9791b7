package reviews

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory implementation of ReviewsRepo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]map[string]Item // orgId -> itemId -> item
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[string]map[string]Item),
	}
}

// Create stores a new review item.
func (r *MemoryRepo) Create(ctx context.Context, item Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	org, ok := r.data[item.OrgID]
	if !ok {
		org = make(map[string]Item)
		r.data[item.OrgID] = org
	}
	org[item.ID] = cloneItem(item)
	return nil
}

// GetByID returns a review item by ID for an org.
func (r *MemoryRepo) GetByID(ctx context.Context, orgID, itemID string) (Item, error) {
	if err := ctx.Err(); err != nil {
		return Item{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.data[orgID][itemID]
	if !ok {
		return Item{}, ErrNotFound
	}
	return cloneItem(item), nil
}

// Update replaces a stored review item.
func (r *MemoryRepo) Update(ctx context.Context, item Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	org := r.data[item.OrgID]
	if _, ok := org[item.ID]; !ok {
		return ErrNotFound
	}
	org[item.ID] = cloneItem(item)
	return nil
}

// ListByOrg returns items for an org, newest first. limit <= 0 means no
// limit.
func (r *MemoryRepo) ListByOrg(ctx context.Context, orgID string, limit, offset int) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}

	r.mu.RLock()
	org := r.data[orgID]
	items := make([]Item, 0, len(org))
	for _, item := range org {
		items = append(items, cloneItem(item))
	}
	r.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})

	if offset >= len(items) {
		return []Item{}, nil
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end], nil
}

func cloneItem(item Item) Item {
	out := item
	if item.DueDate != nil {
		due := *item.DueDate
		out.DueDate = &due
	}
	if item.TouchTimeSeconds != nil {
		touch := *item.TouchTimeSeconds
		out.TouchTimeSeconds = &touch
	}
	return out
}

var _ ReviewsRepo = (*MemoryRepo)(nil)
