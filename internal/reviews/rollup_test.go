package reviews

import (
	"math"
	"testing"
	"time"

	"complai-backend/internal/shared/config"
)

func testPolicy() config.Policy {
	return config.Policy{
		StrongMatchThreshold:          0.75,
		AutoReadyThreshold:            0.85,
		ClassificationBaselineMinutes: 30,
		DefaultBaselineMinutes:        45,
		HourlyRateUSD:                 450,
	}
}

func int64Ptr(v int64) *int64 { return &v }

func TestComputeSnapshotEmptyCollectionIsAllZero(t *testing.T) {
	snap := ComputeSnapshot(nil, time.Now(), testPolicy())
	if snap != (Snapshot{}) {
		t.Fatalf("expected all-zero snapshot, got %+v", snap)
	}
}

func TestComputeSnapshotWorkedScenario(t *testing.T) {
	now := time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC)
	created := now.Add(-2 * time.Hour)
	items := []Item{
		{ID: "i1", Kind: KindClassification, Status: StatusCompleted, TouchTimeSeconds: int64Ptr(60), CreatedAt: created},
		{ID: "i2", Kind: KindClassification, Status: StatusCompleted, TouchTimeSeconds: int64Ptr(120), CreatedAt: created},
		{ID: "i3", Kind: KindAuditItem, Status: StatusCompleted, TouchTimeSeconds: int64Ptr(600), CreatedAt: created},
	}

	snap := ComputeSnapshot(items, now, testPolicy())

	if snap.ItemsCompleted != 3 {
		t.Fatalf("expected 3 completed, got %d", snap.ItemsCompleted)
	}
	if snap.MedianTimeSeconds != 120 {
		t.Fatalf("expected median 120, got %d", snap.MedianTimeSeconds)
	}
	// 29 + 28 + 35 minutes saved = 92 minutes.
	wantHours := 92.0 / 60.0
	if math.Abs(snap.HoursAvoided-wantHours) > 1e-9 {
		t.Fatalf("expected hoursAvoided %.4f, got %.4f", wantHours, snap.HoursAvoided)
	}
	wantDollars := wantHours * 450
	if math.Abs(snap.DollarsSaved-wantDollars) > 1e-6 {
		t.Fatalf("expected dollarsSaved %.2f, got %.2f", wantDollars, snap.DollarsSaved)
	}
	if math.Abs(snap.DollarsSaved-690.0) > 0.01 {
		t.Fatalf("expected dollarsSaved close to 690, got %.4f", snap.DollarsSaved)
	}
	if snap.FirstPassRate != 1.0 {
		t.Fatalf("expected firstPassRate 1.0, got %f", snap.FirstPassRate)
	}
	if snap.ItemsToday != 3 {
		t.Fatalf("expected 3 items today, got %d", snap.ItemsToday)
	}
}

func TestComputeSnapshotUpperMiddleMedianForEvenLength(t *testing.T) {
	now := time.Now().UTC()
	items := []Item{
		{ID: "i1", Kind: KindAnomaly, Status: StatusCompleted, TouchTimeSeconds: int64Ptr(100), CreatedAt: now},
		{ID: "i2", Kind: KindAnomaly, Status: StatusCompleted, TouchTimeSeconds: int64Ptr(200), CreatedAt: now},
		{ID: "i3", Kind: KindAnomaly, Status: StatusCompleted, TouchTimeSeconds: int64Ptr(300), CreatedAt: now},
		{ID: "i4", Kind: KindAnomaly, Status: StatusCompleted, TouchTimeSeconds: int64Ptr(400), CreatedAt: now},
	}

	snap := ComputeSnapshot(items, now, testPolicy())
	// Upper-middle element of [100,200,300,400], not the 250 average.
	if snap.MedianTimeSeconds != 300 {
		t.Fatalf("expected upper-middle median 300, got %d", snap.MedianTimeSeconds)
	}
}

func TestComputeSnapshotMedianIgnoresUnsetAndZeroTouchTimes(t *testing.T) {
	now := time.Now().UTC()
	items := []Item{
		{ID: "i1", Kind: KindAnomaly, Status: StatusCompleted, TouchTimeSeconds: int64Ptr(0), CreatedAt: now},
		{ID: "i2", Kind: KindAnomaly, Status: StatusCompleted, CreatedAt: now},
		{ID: "i3", Kind: KindAnomaly, Status: StatusCompleted, TouchTimeSeconds: int64Ptr(90), CreatedAt: now},
	}

	snap := ComputeSnapshot(items, now, testPolicy())
	if snap.MedianTimeSeconds != 90 {
		t.Fatalf("expected median 90, got %d", snap.MedianTimeSeconds)
	}
}

func TestComputeSnapshotAutoReadyRate(t *testing.T) {
	now := time.Now().UTC()
	items := []Item{
		// Counts: explicit auto_ready status.
		{ID: "i1", Kind: KindAuditItem, Status: StatusAutoReady, Confidence: 0.2, CreatedAt: now},
		// Counts: high-confidence classification.
		{ID: "i2", Kind: KindClassification, Status: StatusMyQueue, Confidence: 0.9, CreatedAt: now},
		// Does not count: high-confidence but not classification.
		{ID: "i3", Kind: KindAnomaly, Status: StatusMyQueue, Confidence: 0.9, CreatedAt: now},
		// Does not count: classification below threshold.
		{ID: "i4", Kind: KindClassification, Status: StatusMyQueue, Confidence: 0.84, CreatedAt: now},
	}

	snap := ComputeSnapshot(items, now, testPolicy())
	if snap.AutoReadyRate != 0.5 {
		t.Fatalf("expected autoReadyRate 0.5, got %f", snap.AutoReadyRate)
	}
}

func TestComputeSnapshotReturnLoopCountIsMean(t *testing.T) {
	now := time.Now().UTC()
	items := []Item{
		{ID: "i1", Kind: KindAnomaly, Status: StatusMyQueue, LoopCount: 3, CreatedAt: now},
		{ID: "i2", Kind: KindAnomaly, Status: StatusMyQueue, LoopCount: 0, CreatedAt: now},
	}

	snap := ComputeSnapshot(items, now, testPolicy())
	if snap.ReturnLoopCount != 1.5 {
		t.Fatalf("expected mean loop count 1.5, got %f", snap.ReturnLoopCount)
	}
}

func TestComputeSnapshotFirstPassRate(t *testing.T) {
	now := time.Now().UTC()
	items := []Item{
		{ID: "i1", Kind: KindAnomaly, Status: StatusCompleted, LoopCount: 0, CreatedAt: now},
		{ID: "i2", Kind: KindAnomaly, Status: StatusCompleted, LoopCount: 2, CreatedAt: now},
		{ID: "i3", Kind: KindAnomaly, Status: StatusMyQueue, LoopCount: 0, CreatedAt: now},
	}

	snap := ComputeSnapshot(items, now, testPolicy())
	if snap.FirstPassRate != 0.5 {
		t.Fatalf("expected firstPassRate 0.5, got %f", snap.FirstPassRate)
	}
}

func TestComputeSnapshotItemsTodayUsesDatePrefix(t *testing.T) {
	now := time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC)
	items := []Item{
		{ID: "i1", Kind: KindAnomaly, Status: StatusMyQueue, CreatedAt: time.Date(2026, 3, 10, 0, 1, 0, 0, time.UTC)},
		{ID: "i2", Kind: KindAnomaly, Status: StatusMyQueue, CreatedAt: time.Date(2026, 3, 9, 23, 59, 0, 0, time.UTC)},
	}

	snap := ComputeSnapshot(items, now, testPolicy())
	if snap.ItemsToday != 1 {
		t.Fatalf("expected 1 item today, got %d", snap.ItemsToday)
	}
}

func TestComputeSnapshotNoTimeSavedWhenSlowerThanBaseline(t *testing.T) {
	now := time.Now().UTC()
	items := []Item{
		// 40 minutes actual against a 30 minute baseline saves nothing.
		{ID: "i1", Kind: KindClassification, Status: StatusCompleted, TouchTimeSeconds: int64Ptr(2400), CreatedAt: now},
	}

	snap := ComputeSnapshot(items, now, testPolicy())
	if snap.HoursAvoided != 0 || snap.DollarsSaved != 0 {
		t.Fatalf("expected no savings, got %+v", snap)
	}
}
