package evidence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PGRepo implements EvidenceRepo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new artifact and its matches.
func (r *PGRepo) Create(ctx context.Context, a Artifact) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const query = `
INSERT INTO evidence_artifacts (
    id,
    org_id,
    file_name,
    uploaded_by,
    category,
    period_from,
    period_to,
    status,
    redacted,
    mime_type,
    size_bytes,
    storage_key,
    extracted_text_key,
    uploaded_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	if _, err := tx.ExecContext(
		ctx,
		query,
		a.ID,
		a.OrgID,
		a.FileName,
		a.UploadedBy,
		a.Category,
		nullTime(a.PeriodFrom),
		nullTime(a.PeriodTo),
		string(a.Status),
		a.Redacted,
		a.MimeType,
		a.SizeBytes,
		nullString(a.StorageKey),
		nullString(a.ExtractedTextKey),
		a.UploadedAt,
	); err != nil {
		return err
	}

	if err := insertMatches(ctx, tx, a.ID, a.Matches); err != nil {
		return err
	}
	return tx.Commit()
}

// GetByID fetches an artifact with its matches.
func (r *PGRepo) GetByID(ctx context.Context, orgID, artifactID string) (Artifact, error) {
	const query = `
SELECT id, org_id, file_name, uploaded_by, category, period_from, period_to, status, redacted, mime_type, size_bytes, storage_key, extracted_text_key, uploaded_at
FROM evidence_artifacts
WHERE org_id = $1 AND id = $2
LIMIT 1`
	a, err := scanArtifact(r.DB.QueryRowContext(ctx, query, orgID, artifactID))
	if err != nil {
		return Artifact{}, err
	}

	matches, err := r.loadMatches(ctx, artifactID)
	if err != nil {
		return Artifact{}, err
	}
	a.Matches = matches
	return a, nil
}

// Update replaces an artifact row and its match set wholesale.
func (r *PGRepo) Update(ctx context.Context, a Artifact) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const query = `
UPDATE evidence_artifacts
SET file_name = $1,
    uploaded_by = $2,
    category = $3,
    period_from = $4,
    period_to = $5,
    status = $6,
    redacted = $7,
    mime_type = $8,
    size_bytes = $9,
    storage_key = $10,
    extracted_text_key = $11
WHERE org_id = $12 AND id = $13`

	res, err := tx.ExecContext(
		ctx,
		query,
		a.FileName,
		a.UploadedBy,
		a.Category,
		nullTime(a.PeriodFrom),
		nullTime(a.PeriodTo),
		string(a.Status),
		a.Redacted,
		a.MimeType,
		a.SizeBytes,
		nullString(a.StorageKey),
		nullString(a.ExtractedTextKey),
		a.OrgID,
		a.ID,
	)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM evidence_matches WHERE artifact_id = $1`, a.ID); err != nil {
		return err
	}
	if err := insertMatches(ctx, tx, a.ID, a.Matches); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete hard-deletes an artifact; matches cascade.
func (r *PGRepo) Delete(ctx context.Context, orgID, artifactID string) error {
	const query = `DELETE FROM evidence_artifacts WHERE org_id = $1 AND id = $2`
	res, err := r.DB.ExecContext(ctx, query, orgID, artifactID)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByOrg lists artifacts newest-first with their matches. limit <= 0 loads
// the full org collection, which coverage scans rely on.
func (r *PGRepo) ListByOrg(ctx context.Context, orgID string, limit, offset int) ([]Artifact, error) {
	if offset < 0 {
		offset = 0
	}
	query := `
SELECT id, org_id, file_name, uploaded_by, category, period_from, period_to, status, redacted, mime_type, size_bytes, storage_key, extracted_text_key, uploaded_at
FROM evidence_artifacts
WHERE org_id = $1
ORDER BY uploaded_at DESC, id`
	args := []any{orgID}
	if limit > 0 {
		query += ` LIMIT $2 OFFSET $3`
		args = append(args, limit, offset)
	} else if offset > 0 {
		query += ` OFFSET $2`
		args = append(args, offset)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		matches, err := r.loadMatches(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Matches = matches
	}
	return out, nil
}

func (r *PGRepo) loadMatches(ctx context.Context, artifactID string) ([]Match, error) {
	const query = `
SELECT id, kind, target_id, confidence, reason
FROM evidence_matches
WHERE artifact_id = $1
ORDER BY position`
	rows, err := r.DB.QueryContext(ctx, query, artifactID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Match
	for rows.Next() {
		var m Match
		var kind string
		if err := rows.Scan(&m.ID, &kind, &m.TargetID, &m.Confidence, &m.Reason); err != nil {
			return nil, err
		}
		m.Kind = MatchKind(kind)
		out = append(out, m)
	}
	return out, rows.Err()
}

func insertMatches(ctx context.Context, tx *sql.Tx, artifactID string, matches []Match) error {
	const query = `
INSERT INTO evidence_matches (id, artifact_id, position, kind, target_id, confidence, reason)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for i, m := range matches {
		if _, err := tx.ExecContext(ctx, query, m.ID, artifactID, i, string(m.Kind), m.TargetID, m.Confidence, m.Reason); err != nil {
			return fmt.Errorf("insert match %s: %w", m.ID, err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArtifact(row rowScanner) (Artifact, error) {
	var a Artifact
	var status string
	var periodFrom, periodTo sql.NullTime
	var storageKey, extractedKey sql.NullString
	err := row.Scan(
		&a.ID,
		&a.OrgID,
		&a.FileName,
		&a.UploadedBy,
		&a.Category,
		&periodFrom,
		&periodTo,
		&status,
		&a.Redacted,
		&a.MimeType,
		&a.SizeBytes,
		&storageKey,
		&extractedKey,
		&a.UploadedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Artifact{}, ErrNotFound
		}
		return Artifact{}, err
	}
	a.Status = Status(status)
	if periodFrom.Valid {
		a.PeriodFrom = &periodFrom.Time
	}
	if periodTo.Valid {
		a.PeriodTo = &periodTo.Time
	}
	if storageKey.Valid {
		a.StorageKey = storageKey.String
	}
	if extractedKey.Valid {
		a.ExtractedTextKey = extractedKey.String
	}
	return a, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

var _ EvidenceRepo = (*PGRepo)(nil)
