package matching

import (
	"context"
	"errors"
	"net"
	"time"

	"complai-backend/internal/shared/telemetry"
)

const retryBaseDelay = 300 * time.Millisecond

type retryingProvider struct {
	base Provider
}

// WithRetry wraps a provider with a single retry on transient network
// failures. Non-transient errors propagate immediately.
func WithRetry(base Provider) Provider {
	if base == nil {
		return nil
	}
	return retryingProvider{base: base}
}

func (r retryingProvider) Search(ctx context.Context, query string, k int, filters map[string]string) (SearchResponse, error) {
	resp, err := r.base.Search(ctx, query, k, filters)
	if err == nil || !shouldRetry(err) {
		return resp, err
	}
	if err := wait(ctx); err != nil {
		return SearchResponse{}, err
	}
	telemetry.Warn("match.retry", map[string]any{"op": "search"})
	return r.base.Search(ctx, query, k, filters)
}

func (r retryingProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	resp, err := r.base.Chat(ctx, messages)
	if err == nil || !shouldRetry(err) {
		return resp, err
	}
	if err := wait(ctx); err != nil {
		return "", err
	}
	telemetry.Warn("match.retry", map[string]any{"op": "chat"})
	return r.base.Chat(ctx, messages)
}

func (r retryingProvider) Embed(ctx context.Context, texts []string) (Embeddings, error) {
	resp, err := r.base.Embed(ctx, texts)
	if err == nil || !shouldRetry(err) {
		return resp, err
	}
	if err := wait(ctx); err != nil {
		return Embeddings{}, err
	}
	telemetry.Warn("match.retry", map[string]any{"op": "embed"})
	return r.base.Embed(ctx, texts)
}

func wait(ctx context.Context) error {
	select {
	case <-time.After(retryBaseDelay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}
