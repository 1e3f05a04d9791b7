package evidence

import "time"

// MatchResponse is the outward-facing representation of a candidate match.
type MatchResponse struct {
	MatchID    string  `json:"matchId"`
	Kind       string  `json:"kind"`
	TargetID   string  `json:"targetId"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason,omitempty"`
}

// ArtifactResponse is the outward-facing representation of an artifact.
type ArtifactResponse struct {
	ArtifactID string          `json:"artifactId"`
	FileName   string          `json:"fileName"`
	UploadedAt time.Time       `json:"uploadedAt"`
	UploadedBy string          `json:"uploadedBy,omitempty"`
	Category   string          `json:"category,omitempty"`
	PeriodFrom *time.Time      `json:"periodFrom,omitempty"`
	PeriodTo   *time.Time      `json:"periodTo,omitempty"`
	Status     string          `json:"status"`
	Redacted   bool            `json:"redacted"`
	Matches    []MatchResponse `json:"matches"`
	MimeType   string          `json:"mimeType,omitempty"`
	SizeBytes  int64           `json:"sizeBytes,omitempty"`
}

func toMatchResponse(m Match) MatchResponse {
	return MatchResponse{
		MatchID:    m.ID,
		Kind:       string(m.Kind),
		TargetID:   m.TargetID,
		Confidence: m.Confidence,
		Reason:     m.Reason,
	}
}

func toResponse(a Artifact) ArtifactResponse {
	matches := make([]MatchResponse, 0, len(a.Matches))
	for _, m := range a.Matches {
		matches = append(matches, toMatchResponse(m))
	}
	return ArtifactResponse{
		ArtifactID: a.ID,
		FileName:   a.FileName,
		UploadedAt: a.UploadedAt,
		UploadedBy: a.UploadedBy,
		Category:   a.Category,
		PeriodFrom: a.PeriodFrom,
		PeriodTo:   a.PeriodTo,
		Status:     string(a.Status),
		Redacted:   a.Redacted,
		Matches:    matches,
		MimeType:   a.MimeType,
		SizeBytes:  a.SizeBytes,
	}
}
