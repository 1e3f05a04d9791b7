package reviews

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"complai-backend/internal/shared/config"
	"complai-backend/internal/shared/metrics"
	"complai-backend/internal/shared/telemetry"
)

// Service contains business logic for the review queue. Every mutating
// action ends with a wholesale metrics recomputation.
type Service struct {
	Repo   ReviewsRepo
	Timers *Arena
	Policy config.Policy
	Now    func() time.Time

	// OnRecompute observes every metrics recomputation. Bootstrap feeds the
	// process-wide metrics from here; tests count calls through it.
	OnRecompute func(orgID string, snap Snapshot)
}

// CreateInput carries the caller-supplied fields for a new review item.
type CreateInput struct {
	Kind        Kind
	Title       string
	Description string
	Confidence  float64
	Status      Status
	AssignedTo  string
	DueDate     *time.Time
}

// ItemPatch is a pointer-field patch; nil fields are left unchanged.
type ItemPatch struct {
	Title       *string
	Description *string
	Confidence  *float64
	Status      *Status
	AssignedTo  *string
	DueDate     *time.Time
}

// Add places a new item on the queue. Status defaults to my_queue.
func (s *Service) Add(ctx context.Context, orgID string, in CreateInput) (Item, error) {
	if orgID == "" || !validKind(in.Kind) {
		return Item{}, ErrInvalidInput
	}
	if in.Confidence < 0 || in.Confidence > 1 {
		return Item{}, ErrInvalidInput
	}
	status := in.Status
	if status == "" {
		status = StatusMyQueue
	}
	if !validStatus(status) {
		return Item{}, ErrInvalidInput
	}

	now := s.now()
	item := Item{
		ID:          uuid.NewString(),
		OrgID:       orgID,
		Kind:        in.Kind,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Confidence:  in.Confidence,
		Status:      status,
		AssignedTo:  in.AssignedTo,
		DueDate:     in.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.Repo.Create(ctx, item); err != nil {
		return Item{}, err
	}
	s.recompute(ctx, orgID)
	return item, nil
}

// Get returns an item by ID.
func (s *Service) Get(ctx context.Context, orgID, itemID string) (Item, error) {
	if orgID == "" || itemID == "" {
		return Item{}, ErrInvalidInput
	}
	return s.Repo.GetByID(ctx, orgID, itemID)
}

// List returns items for an org, newest first.
func (s *Service) List(ctx context.Context, orgID string, limit, offset int) ([]Item, error) {
	if orgID == "" {
		return nil, ErrInvalidInput
	}
	return s.Repo.ListByOrg(ctx, orgID, limit, offset)
}

// Update applies a patch to an item. UpdatedAt is refreshed even for an
// empty patch; unknown ids are an explicit error.
func (s *Service) Update(ctx context.Context, orgID, itemID string, patch ItemPatch) (Item, error) {
	item, err := s.Get(ctx, orgID, itemID)
	if err != nil {
		return Item{}, err
	}

	if patch.Title != nil {
		item.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		item.Description = *patch.Description
	}
	if patch.Confidence != nil {
		if *patch.Confidence < 0 || *patch.Confidence > 1 {
			return Item{}, ErrInvalidInput
		}
		item.Confidence = *patch.Confidence
	}
	if patch.Status != nil {
		if !validStatus(*patch.Status) {
			return Item{}, ErrInvalidInput
		}
		item.Status = *patch.Status
	}
	if patch.AssignedTo != nil {
		item.AssignedTo = *patch.AssignedTo
	}
	if patch.DueDate != nil {
		item.DueDate = patch.DueDate
	}
	item.UpdatedAt = s.now()

	if err := s.Repo.Update(ctx, item); err != nil {
		return Item{}, err
	}
	s.recompute(ctx, orgID)
	return item, nil
}

// StartTimer records a timer for the item, silently overwriting any prior
// unstopped timer.
func (s *Service) StartTimer(ctx context.Context, orgID, itemID string) error {
	if _, err := s.Get(ctx, orgID, itemID); err != nil {
		return err
	}
	s.Timers.Start(itemID)
	return nil
}

// StopTimer stops the item's timer and records the elapsed whole seconds.
// Stopping without an active timer leaves the item untouched.
func (s *Service) StopTimer(ctx context.Context, orgID, itemID string) (Item, error) {
	item, err := s.Get(ctx, orgID, itemID)
	if err != nil {
		return Item{}, err
	}

	seconds, ok := s.Timers.Stop(itemID)
	if !ok {
		return item, nil
	}

	item.TouchTimeSeconds = &seconds
	item.UpdatedAt = s.now()
	if err := s.Repo.Update(ctx, item); err != nil {
		return Item{}, err
	}
	metrics.ObserveTouchTimeSeconds(float64(seconds))
	return item, nil
}

// Validate completes or returns an item. Notes are side-logged only; they
// are not stored on the item.
func (s *Service) Validate(ctx context.Context, orgID, itemID string, approved bool, notes string) (Item, error) {
	item, err := s.applyValidate(ctx, orgID, itemID, approved)
	if err != nil {
		return Item{}, err
	}

	if notes != "" {
		telemetry.Info("review.validate_notes", map[string]any{
			"item_id": itemID,
			"org_id":  orgID,
			"notes":   notes,
		})
	}

	s.recompute(ctx, orgID)
	return item, nil
}

// BatchValidate applies the same transition to each item in sequence and
// recomputes metrics exactly once at the end. Unknown ids are skipped with a
// warning so one stale id does not abort the batch.
func (s *Service) BatchValidate(ctx context.Context, orgID string, itemIDs []string, approved bool) ([]Item, error) {
	out := make([]Item, 0, len(itemIDs))
	for _, id := range itemIDs {
		item, err := s.applyValidate(ctx, orgID, id, approved)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				telemetry.Warn("review.batch_validate_skip", map[string]any{
					"item_id": id,
					"org_id":  orgID,
				})
				continue
			}
			return nil, err
		}
		out = append(out, item)
	}
	s.recompute(ctx, orgID)
	return out, nil
}

// Return sends an item back for rework, incrementing its loop count. The
// reason is side-logged only.
func (s *Service) Return(ctx context.Context, orgID, itemID, reason string) (Item, error) {
	item, err := s.Get(ctx, orgID, itemID)
	if err != nil {
		return Item{}, err
	}

	if seconds, ok := s.Timers.Stop(itemID); ok {
		item.TouchTimeSeconds = &seconds
		metrics.ObserveTouchTimeSeconds(float64(seconds))
	}
	item.Status = StatusReturned
	item.LoopCount++
	item.UpdatedAt = s.now()

	if err := s.Repo.Update(ctx, item); err != nil {
		return Item{}, err
	}

	if reason != "" {
		telemetry.Info("review.return_reason", map[string]any{
			"item_id": itemID,
			"org_id":  orgID,
			"reason":  reason,
		})
	}
	metrics.IncReviewReturned()
	s.recompute(ctx, orgID)
	return item, nil
}

// Metrics computes the current reviewer-metrics snapshot for an org.
func (s *Service) Metrics(ctx context.Context, orgID string) (Snapshot, error) {
	if orgID == "" {
		return Snapshot{}, ErrInvalidInput
	}
	items, err := s.Repo.ListByOrg(ctx, orgID, 0, 0)
	if err != nil {
		return Snapshot{}, err
	}
	return ComputeSnapshot(items, s.now(), s.Policy), nil
}

// SweepTimers drops timers older than maxAge.
func (s *Service) SweepTimers(maxAge time.Duration) int {
	dropped := s.Timers.Sweep(maxAge)
	if dropped > 0 {
		telemetry.Warn("review.timer_sweep", map[string]any{"dropped": dropped})
	}
	return dropped
}

// applyValidate performs the validate transition without recomputing metrics
// so batch callers can recompute once.
func (s *Service) applyValidate(ctx context.Context, orgID, itemID string, approved bool) (Item, error) {
	item, err := s.Get(ctx, orgID, itemID)
	if err != nil {
		return Item{}, err
	}

	if seconds, ok := s.Timers.Stop(itemID); ok {
		item.TouchTimeSeconds = &seconds
		metrics.ObserveTouchTimeSeconds(float64(seconds))
	}
	if approved {
		item.Status = StatusCompleted
	} else {
		item.Status = StatusReturned
	}
	item.UpdatedAt = s.now()

	if err := s.Repo.Update(ctx, item); err != nil {
		return Item{}, err
	}
	if approved {
		metrics.IncReviewCompleted()
	}
	return item, nil
}

// recompute derives a fresh snapshot and hands it to the observer. Rollup
// failures are logged, never surfaced, so the triggering mutation still
// succeeds.
func (s *Service) recompute(ctx context.Context, orgID string) {
	items, err := s.Repo.ListByOrg(ctx, orgID, 0, 0)
	if err != nil {
		telemetry.Error("review.rollup_failed", map[string]any{
			"org_id": orgID,
			"error":  err.Error(),
		})
		return
	}
	snap := ComputeSnapshot(items, s.now(), s.Policy)
	metrics.IncRollup()
	if s.OnRecompute != nil {
		s.OnRecompute(orgID, snap)
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}
