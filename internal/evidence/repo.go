package evidence

import "context"

// EvidenceRepo defines persistence operations for artifacts. Matches are
// persisted as part of their artifact; Update replaces the stored match set
// wholesale.
type EvidenceRepo interface {
	Create(ctx context.Context, a Artifact) error
	GetByID(ctx context.Context, orgID, artifactID string) (Artifact, error)
	Update(ctx context.Context, a Artifact) error
	Delete(ctx context.Context, orgID, artifactID string) error
	ListByOrg(ctx context.Context, orgID string, limit, offset int) ([]Artifact, error)
}
