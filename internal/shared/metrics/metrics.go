package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	matchesProposedTotal  atomic.Uint64
	matchesAcceptedTotal  atomic.Uint64
	matchesRejectedTotal  atomic.Uint64
	reviewsCompletedTotal atomic.Uint64
	reviewsReturnedTotal  atomic.Uint64
	rollupTotal           atomic.Uint64

	proposalJobsReceivedTotal  atomic.Uint64
	proposalJobsCompletedTotal atomic.Uint64
	proposalJobsFailedTotal    atomic.Uint64
	proposalJobsDroppedTotal   atomic.Uint64

	touchTimeSeconds = newHistogram([]float64{30, 60, 120, 300, 600, 1200, 1800, 3600})
)

// IncMatchesProposed adds n to the proposed-match counter.
func IncMatchesProposed(n int) {
	if n > 0 {
		matchesProposedTotal.Add(uint64(n))
	}
}

// IncMatchAccepted increments the accepted-match counter.
func IncMatchAccepted() {
	matchesAcceptedTotal.Add(1)
}

// IncMatchRejected increments the rejected-match counter.
func IncMatchRejected() {
	matchesRejectedTotal.Add(1)
}

// IncReviewCompleted increments the completed-review counter.
func IncReviewCompleted() {
	reviewsCompletedTotal.Add(1)
}

// IncReviewReturned increments the returned-review counter.
func IncReviewReturned() {
	reviewsReturnedTotal.Add(1)
}

// IncRollup increments the metrics-recompute counter.
func IncRollup() {
	rollupTotal.Add(1)
}

// IncProposalJobsReceived increments the queue-message-received counter.
func IncProposalJobsReceived() {
	proposalJobsReceivedTotal.Add(1)
}

// IncProposalJobsCompleted increments the queue-message-completed counter.
func IncProposalJobsCompleted() {
	proposalJobsCompletedTotal.Add(1)
}

// IncProposalJobsFailed increments the queue-message-failed counter.
func IncProposalJobsFailed() {
	proposalJobsFailedTotal.Add(1)
}

// IncProposalJobsDropped counts messages deleted as unrecoverable.
func IncProposalJobsDropped() {
	proposalJobsDroppedTotal.Add(1)
}

// ObserveTouchTimeSeconds records a reviewer touch time.
func ObserveTouchTimeSeconds(value float64) {
	if value < 0 {
		value = 0
	}
	touchTimeSeconds.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "evidence_matches_proposed_total", "Total candidate matches proposed", matchesProposedTotal.Load())
	writeCounter(&buf, "evidence_matches_accepted_total", "Total matches accepted", matchesAcceptedTotal.Load())
	writeCounter(&buf, "evidence_matches_rejected_total", "Total matches rejected", matchesRejectedTotal.Load())
	writeCounter(&buf, "reviews_completed_total", "Total review items completed", reviewsCompletedTotal.Load())
	writeCounter(&buf, "reviews_returned_total", "Total review items returned for rework", reviewsReturnedTotal.Load())
	writeCounter(&buf, "review_metrics_rollup_total", "Total full metrics recomputations", rollupTotal.Load())
	writeCounter(&buf, "proposal_jobs_received_total", "Total proposal queue messages received", proposalJobsReceivedTotal.Load())
	writeCounter(&buf, "proposal_jobs_completed_total", "Total proposal queue messages completed", proposalJobsCompletedTotal.Load())
	writeCounter(&buf, "proposal_jobs_failed_total", "Total proposal queue messages failed", proposalJobsFailedTotal.Load())
	writeCounter(&buf, "proposal_jobs_dropped_total", "Total proposal queue messages dropped as unrecoverable", proposalJobsDroppedTotal.Load())
	writeHistogram(&buf, "review_touch_time_seconds", "Reviewer touch time in seconds", touchTimeSeconds.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
	return out
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
