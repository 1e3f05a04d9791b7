package evidence

import "time"

// Status is the lifecycle state of an evidence artifact.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// MatchKind identifies what a candidate match points at.
type MatchKind string

const (
	KindObligation MatchKind = "obligation"
	KindControl    MatchKind = "control"
	KindAuditItem  MatchKind = "audit_item"
)

// Match is a candidate link from an artifact to an obligation, control or
// audit item. A match lives inside its artifact and has no independent
// lifecycle.
type Match struct {
	ID         string
	Kind       MatchKind
	TargetID   string
	Confidence float64
	Reason     string
}

// Artifact is an uploaded piece of compliance evidence owned by an org.
// Artifacts are always stored redacted.
type Artifact struct {
	ID               string
	OrgID            string
	FileName         string
	UploadedAt       time.Time
	UploadedBy       string
	Category         string
	PeriodFrom       *time.Time
	PeriodTo         *time.Time
	Status           Status
	Redacted         bool
	Matches          []Match
	MimeType         string
	SizeBytes        int64
	StorageKey       string
	ExtractedTextKey string
}

// Strong reports whether the match clears the given confidence threshold.
func (m Match) Strong(threshold float64) bool {
	return m.Confidence >= threshold
}
