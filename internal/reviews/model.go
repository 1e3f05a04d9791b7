package reviews

import "time"

// Kind classifies what a review item asks the reviewer to check.
type Kind string

const (
	KindClassification Kind = "classification"
	KindAuditItem      Kind = "audit_item"
	KindAnomaly        Kind = "anomaly"
)

// Status is the queue state of a review item.
type Status string

const (
	StatusMyQueue          Status = "my_queue"
	StatusAwaitingApproval Status = "awaiting_approval"
	StatusReturned         Status = "returned"
	StatusAutoReady        Status = "auto_ready"
	StatusCompleted        Status = "completed"
)

// Item is a unit of reviewer work. Items are mutated through the queue
// lifecycle but never deleted in normal flow.
type Item struct {
	ID               string
	OrgID            string
	Kind             Kind
	Title            string
	Description      string
	Confidence       float64
	Status           Status
	AssignedTo       string
	DueDate          *time.Time
	TouchTimeSeconds *int64
	LoopCount        int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Snapshot is the derived reviewer-metrics rollup. It is recomputed wholesale
// from the item collection and never persisted as a source of truth.
type Snapshot struct {
	ItemsToday        int     `json:"itemsToday"`
	ItemsCompleted    int     `json:"itemsCompleted"`
	MedianTimeSeconds int64   `json:"medianTimeSeconds"`
	FirstPassRate     float64 `json:"firstPassRate"`
	AutoReadyRate     float64 `json:"autoReadyRate"`
	ReturnLoopCount   float64 `json:"returnLoopCount"`
	HoursAvoided      float64 `json:"hoursAvoided"`
	DollarsSaved      float64 `json:"dollarsSaved"`
}

func validKind(k Kind) bool {
	switch k {
	case KindClassification, KindAuditItem, KindAnomaly:
		return true
	}
	return false
}

func validStatus(s Status) bool {
	switch s {
	case StatusMyQueue, StatusAwaitingApproval, StatusReturned, StatusAutoReady, StatusCompleted:
		return true
	}
	return false
}
