package evidence

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory implementation of EvidenceRepo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]map[string]Artifact // orgId -> artifactId -> artifact
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[string]map[string]Artifact),
	}
}

// Create stores a new artifact.
func (r *MemoryRepo) Create(ctx context.Context, a Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	org, ok := r.data[a.OrgID]
	if !ok {
		org = make(map[string]Artifact)
		r.data[a.OrgID] = org
	}
	org[a.ID] = cloneArtifact(a)
	return nil
}

// GetByID returns an artifact by ID for an org.
func (r *MemoryRepo) GetByID(ctx context.Context, orgID, artifactID string) (Artifact, error) {
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.data[orgID][artifactID]
	if !ok {
		return Artifact{}, ErrNotFound
	}
	return cloneArtifact(a), nil
}

// Update replaces a stored artifact, matches included.
func (r *MemoryRepo) Update(ctx context.Context, a Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	org := r.data[a.OrgID]
	if _, ok := org[a.ID]; !ok {
		return ErrNotFound
	}
	org[a.ID] = cloneArtifact(a)
	return nil
}

// Delete removes an artifact. Deleting an unknown artifact is an error.
func (r *MemoryRepo) Delete(ctx context.Context, orgID, artifactID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	org := r.data[orgID]
	if _, ok := org[artifactID]; !ok {
		return ErrNotFound
	}
	delete(org, artifactID)
	return nil
}

// ListByOrg returns artifacts for an org, newest first. limit <= 0 means no
// limit.
func (r *MemoryRepo) ListByOrg(ctx context.Context, orgID string, limit, offset int) ([]Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}

	r.mu.RLock()
	org := r.data[orgID]
	arts := make([]Artifact, 0, len(org))
	for _, a := range org {
		arts = append(arts, cloneArtifact(a))
	}
	r.mu.RUnlock()

	sort.Slice(arts, func(i, j int) bool {
		if arts[i].UploadedAt.Equal(arts[j].UploadedAt) {
			return arts[i].ID < arts[j].ID
		}
		return arts[i].UploadedAt.After(arts[j].UploadedAt)
	})

	if offset >= len(arts) {
		return []Artifact{}, nil
	}
	end := len(arts)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return arts[offset:end], nil
}

func cloneArtifact(a Artifact) Artifact {
	out := a
	out.Matches = append([]Match(nil), a.Matches...)
	if a.PeriodFrom != nil {
		from := *a.PeriodFrom
		out.PeriodFrom = &from
	}
	if a.PeriodTo != nil {
		to := *a.PeriodTo
		out.PeriodTo = &to
	}
	return out
}

var _ EvidenceRepo = (*MemoryRepo)(nil)
