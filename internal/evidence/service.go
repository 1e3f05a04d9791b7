package evidence

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"complai-backend/internal/extract"
	"complai-backend/internal/matching"
	"complai-backend/internal/shared/config"
	"complai-backend/internal/shared/metrics"
	"complai-backend/internal/shared/storage/object"
	"complai-backend/internal/shared/telemetry"
)

const (
	proposalK           = 5
	maxQueryChars       = 2000
	maxReasonChars      = 160
	maxExtractReadBytes = 1 << 20 // 1MB of extracted text is plenty for a query
)

// Service contains business logic for evidence artifacts and their matches.
type Service struct {
	Repo     EvidenceRepo
	Store    object.ObjectStore
	Provider matching.Provider
	Policy   config.Policy
	Now      func() time.Time
}

// CreateInput carries the caller-supplied fields for a new artifact.
type CreateInput struct {
	FileName   string
	UploadedBy string
	Category   string
	PeriodFrom *time.Time
	PeriodTo   *time.Time
}

// ArtifactPatch is a pointer-field patch; nil fields are left unchanged.
type ArtifactPatch struct {
	FileName   *string
	Category   *string
	PeriodFrom *time.Time
	PeriodTo   *time.Time
}

// Add records a new artifact. Artifacts start pending, redacted, with no
// matches.
func (s *Service) Add(ctx context.Context, orgID string, in CreateInput) (Artifact, error) {
	if orgID == "" || strings.TrimSpace(in.FileName) == "" {
		return Artifact{}, ErrInvalidInput
	}

	a := Artifact{
		ID:         uuid.NewString(),
		OrgID:      orgID,
		FileName:   strings.TrimSpace(in.FileName),
		UploadedAt: s.now(),
		UploadedBy: in.UploadedBy,
		Category:   in.Category,
		PeriodFrom: in.PeriodFrom,
		PeriodTo:   in.PeriodTo,
		Status:     StatusPending,
		Redacted:   true,
		Matches:    []Match{},
	}

	if err := s.Repo.Create(ctx, a); err != nil {
		return Artifact{}, err
	}
	return a, nil
}

// Upload saves the file to object storage, extracts text for match queries
// where the format is supported, and records the artifact.
func (s *Service) Upload(ctx context.Context, orgID string, in CreateInput, r io.Reader) (Artifact, error) {
	if orgID == "" || strings.TrimSpace(in.FileName) == "" {
		return Artifact{}, ErrInvalidInput
	}

	// The payload is buffered so the same bytes feed both storage and text
	// extraction.
	raw, err := io.ReadAll(r)
	if err != nil {
		return Artifact{}, fmt.Errorf("read upload: %w", err)
	}

	storageKey, size, mimeType, err := s.Store.Save(ctx, orgID, in.FileName, bytes.NewReader(raw))
	if err != nil {
		return Artifact{}, err
	}

	a := Artifact{
		ID:         uuid.NewString(),
		OrgID:      orgID,
		FileName:   strings.TrimSpace(in.FileName),
		UploadedAt: s.now(),
		UploadedBy: in.UploadedBy,
		Category:   in.Category,
		PeriodFrom: in.PeriodFrom,
		PeriodTo:   in.PeriodTo,
		Status:     StatusPending,
		Redacted:   true,
		Matches:    []Match{},
		MimeType:   mimeType,
		SizeBytes:  size,
		StorageKey: storageKey,
	}

	// Extraction failures are logged, not fatal; match queries fall back to
	// the file name and category.
	if extractedKey, err := extract.TextToStore(ctx, s.Store, raw, storageKey, mimeType, a.FileName); err != nil {
		telemetry.Warn("evidence.extract_failed", map[string]any{
			"artifact_id": a.ID,
			"org_id":      orgID,
			"error":       err.Error(),
		})
	} else {
		a.ExtractedTextKey = extractedKey
	}

	if err := s.Repo.Create(ctx, a); err != nil {
		return Artifact{}, err
	}
	return a, nil
}

// RegisterFromStore records an artifact for a file already placed in object
// storage, such as through a presigned upload.
func (s *Service) RegisterFromStore(ctx context.Context, orgID string, in CreateInput, storageKey, contentType string, sizeBytes int64) (Artifact, error) {
	if orgID == "" || strings.TrimSpace(in.FileName) == "" || strings.TrimSpace(storageKey) == "" {
		return Artifact{}, ErrInvalidInput
	}

	a := Artifact{
		ID:         uuid.NewString(),
		OrgID:      orgID,
		FileName:   strings.TrimSpace(in.FileName),
		UploadedAt: s.now(),
		UploadedBy: in.UploadedBy,
		Category:   in.Category,
		PeriodFrom: in.PeriodFrom,
		PeriodTo:   in.PeriodTo,
		Status:     StatusPending,
		Redacted:   true,
		Matches:    []Match{},
		MimeType:   contentType,
		SizeBytes:  sizeBytes,
		StorageKey: strings.TrimSpace(storageKey),
	}

	if err := s.Repo.Create(ctx, a); err != nil {
		return Artifact{}, err
	}
	return a, nil
}

// Get returns an artifact by ID.
func (s *Service) Get(ctx context.Context, orgID, artifactID string) (Artifact, error) {
	if orgID == "" || artifactID == "" {
		return Artifact{}, ErrInvalidInput
	}
	return s.Repo.GetByID(ctx, orgID, artifactID)
}

// List returns artifacts for an org, newest first.
func (s *Service) List(ctx context.Context, orgID string, limit, offset int) ([]Artifact, error) {
	if orgID == "" {
		return nil, ErrInvalidInput
	}
	return s.Repo.ListByOrg(ctx, orgID, limit, offset)
}

// Update applies a patch to an artifact. Nil patch fields leave the stored
// value unchanged; an all-nil patch is a valid no-op write.
func (s *Service) Update(ctx context.Context, orgID, artifactID string, patch ArtifactPatch) (Artifact, error) {
	a, err := s.Get(ctx, orgID, artifactID)
	if err != nil {
		return Artifact{}, err
	}

	if patch.FileName != nil {
		if strings.TrimSpace(*patch.FileName) == "" {
			return Artifact{}, ErrInvalidInput
		}
		a.FileName = strings.TrimSpace(*patch.FileName)
	}
	if patch.Category != nil {
		a.Category = *patch.Category
	}
	if patch.PeriodFrom != nil {
		a.PeriodFrom = patch.PeriodFrom
	}
	if patch.PeriodTo != nil {
		a.PeriodTo = patch.PeriodTo
	}

	if err := s.Repo.Update(ctx, a); err != nil {
		return Artifact{}, err
	}
	return a, nil
}

// Delete hard-deletes an artifact and best-effort removes its stored objects.
func (s *Service) Delete(ctx context.Context, orgID, artifactID string) error {
	a, err := s.Get(ctx, orgID, artifactID)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, orgID, artifactID); err != nil {
		return err
	}

	for _, key := range []string{a.StorageKey, a.ExtractedTextKey} {
		if key == "" || s.Store == nil {
			continue
		}
		if err := s.Store.Delete(ctx, key); err != nil {
			telemetry.Warn("evidence.object_delete_failed", map[string]any{
				"artifact_id": artifactID,
				"storage_key": key,
				"error":       err.Error(),
			})
		}
	}
	return nil
}

// AddMatch appends a candidate match to an artifact. Duplicates are allowed,
// and matches may be added after the artifact was accepted or rejected
// without changing its status.
func (s *Service) AddMatch(ctx context.Context, orgID, artifactID string, m Match) (Artifact, error) {
	if err := validateMatch(m); err != nil {
		return Artifact{}, err
	}
	a, err := s.Get(ctx, orgID, artifactID)
	if err != nil {
		return Artifact{}, err
	}

	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	a.Matches = append(a.Matches, m)

	if err := s.Repo.Update(ctx, a); err != nil {
		return Artifact{}, err
	}
	return a, nil
}

// AcceptMatch accepts an artifact on the strength of one of its matches. The
// match must clear the strong-match threshold; otherwise ErrWeakMatch is
// returned and the artifact status is left untouched.
func (s *Service) AcceptMatch(ctx context.Context, orgID, artifactID, matchID string) (Artifact, error) {
	a, err := s.Get(ctx, orgID, artifactID)
	if err != nil {
		return Artifact{}, err
	}

	idx := findMatch(a.Matches, matchID)
	if idx < 0 {
		return Artifact{}, fmt.Errorf("match %s: %w", matchID, ErrNotFound)
	}
	if !a.Matches[idx].Strong(s.Policy.StrongMatchThreshold) {
		return Artifact{}, fmt.Errorf("match %s confidence %.2f: %w", matchID, a.Matches[idx].Confidence, ErrWeakMatch)
	}

	a.Status = StatusAccepted
	if err := s.Repo.Update(ctx, a); err != nil {
		return Artifact{}, err
	}
	metrics.IncMatchAccepted()
	return a, nil
}

// RejectMatch removes the match and rejects the artifact. The artifact is
// rejected even when other strong matches remain; rejection is a judgement
// about the evidence, not about one link.
func (s *Service) RejectMatch(ctx context.Context, orgID, artifactID, matchID string) (Artifact, error) {
	a, err := s.Get(ctx, orgID, artifactID)
	if err != nil {
		return Artifact{}, err
	}

	idx := findMatch(a.Matches, matchID)
	if idx < 0 {
		return Artifact{}, fmt.Errorf("match %s: %w", matchID, ErrNotFound)
	}

	a.Matches = append(a.Matches[:idx], a.Matches[idx+1:]...)
	a.Status = StatusRejected

	if err := s.Repo.Update(ctx, a); err != nil {
		return Artifact{}, err
	}
	metrics.IncMatchRejected()
	return a, nil
}

// Coverage returns the fraction of the given obligation IDs that are covered
// by an accepted artifact holding a strong obligation match. Empty input is
// zero coverage. The org's full artifact collection is rescanned on every
// call.
func (s *Service) Coverage(ctx context.Context, orgID string, obligationIDs []string) (float64, error) {
	if orgID == "" {
		return 0, ErrInvalidInput
	}
	if len(obligationIDs) == 0 {
		return 0, nil
	}

	arts, err := s.Repo.ListByOrg(ctx, orgID, 0, 0)
	if err != nil {
		return 0, err
	}

	covered := make(map[string]bool)
	for _, a := range arts {
		if a.Status != StatusAccepted {
			continue
		}
		for _, m := range a.Matches {
			if m.Kind == KindObligation && m.Strong(s.Policy.StrongMatchThreshold) {
				covered[m.TargetID] = true
			}
		}
	}

	hit := 0
	for _, id := range obligationIDs {
		if covered[id] {
			hit++
		}
	}
	return float64(hit) / float64(len(obligationIDs)), nil
}

// ProposeMatches asks the matching provider for candidate obligations and
// controls and appends them as matches. The query prefers extracted document
// text and falls back to the file name and category.
func (s *Service) ProposeMatches(ctx context.Context, orgID, artifactID string) ([]Match, error) {
	if s.Provider == nil {
		return nil, matching.ErrNotConfigured
	}
	a, err := s.Get(ctx, orgID, artifactID)
	if err != nil {
		return nil, err
	}

	query := s.matchQuery(ctx, a)
	resp, err := s.Provider.Search(ctx, query, proposalK, nil)
	if err != nil {
		return nil, fmt.Errorf("propose matches for %s: %w", artifactID, err)
	}

	proposed := make([]Match, 0, len(resp.Results))
	for _, res := range resp.Results {
		kind := MatchKind(res.Metadata["kind"])
		switch kind {
		case KindObligation, KindControl, KindAuditItem:
		default:
			kind = KindObligation
		}
		proposed = append(proposed, Match{
			ID:         uuid.NewString(),
			Kind:       kind,
			TargetID:   res.ID,
			Confidence: res.Score,
			Reason:     snippet(res.Content, maxReasonChars),
		})
	}

	if len(proposed) > 0 {
		a.Matches = append(a.Matches, proposed...)
		if err := s.Repo.Update(ctx, a); err != nil {
			return nil, err
		}
	}
	metrics.IncMatchesProposed(len(proposed))

	telemetry.Info("evidence.matches_proposed", map[string]any{
		"artifact_id": artifactID,
		"org_id":      orgID,
		"count":       len(proposed),
	})
	return proposed, nil
}

func (s *Service) matchQuery(ctx context.Context, a Artifact) string {
	if a.ExtractedTextKey != "" && s.Store != nil {
		if body, err := s.Store.Open(ctx, a.ExtractedTextKey); err == nil {
			defer body.Close()
			raw, err := io.ReadAll(io.LimitReader(body, maxExtractReadBytes))
			if err == nil && len(strings.TrimSpace(string(raw))) > 0 {
				return snippet(string(raw), maxQueryChars)
			}
		}
	}
	return strings.TrimSpace(a.FileName + " " + a.Category)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func validateMatch(m Match) error {
	switch m.Kind {
	case KindObligation, KindControl, KindAuditItem:
	default:
		return fmt.Errorf("match kind %q: %w", m.Kind, ErrInvalidInput)
	}
	if m.TargetID == "" {
		return fmt.Errorf("match target required: %w", ErrInvalidInput)
	}
	if m.Confidence < 0 || m.Confidence > 1 {
		return fmt.Errorf("match confidence %.2f out of range: %w", m.Confidence, ErrInvalidInput)
	}
	return nil
}

func findMatch(matches []Match, matchID string) int {
	for i := range matches {
		if matches[i].ID == matchID {
			return i
		}
	}
	return -1
}

func snippet(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) <= max {
		return text
	}
	return text[:max]
}
