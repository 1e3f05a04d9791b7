package evidence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoCreateInsertsArtifactAndMatches(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	a := Artifact{
		ID:         "art-1",
		OrgID:      "org-1",
		FileName:   "payslips.pdf",
		Status:     StatusPending,
		Redacted:   true,
		MimeType:   "application/pdf",
		SizeBytes:  1024,
		StorageKey: "org-1/payslips.pdf",
		UploadedAt: time.Now().UTC(),
		Matches: []Match{
			{ID: "m-1", Kind: KindObligation, TargetID: "obl-1", Confidence: 0.9, Reason: "quarterly SG"},
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO evidence_artifacts").
		WithArgs(
			a.ID,
			a.OrgID,
			a.FileName,
			a.UploadedBy,
			a.Category,
			nil, // period_from
			nil, // period_to
			string(a.Status),
			a.Redacted,
			a.MimeType,
			a.SizeBytes,
			a.StorageKey,
			nil, // extracted_text_key
			a.UploadedAt,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO evidence_matches").
		WithArgs("m-1", a.ID, 0, "obligation", "obl-1", 0.9, "quarterly SG").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := repo.Create(context.Background(), a); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoUpdateReplacesMatchesWholesale(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	a := Artifact{
		ID:       "art-1",
		OrgID:    "org-1",
		FileName: "payslips.pdf",
		Status:   StatusAccepted,
		Redacted: true,
		Matches: []Match{
			{ID: "m-2", Kind: KindControl, TargetID: "ctl-1", Confidence: 0.8},
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE evidence_artifacts").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM evidence_matches").
		WithArgs(a.ID).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO evidence_matches").
		WithArgs("m-2", a.ID, 0, "control", "ctl-1", 0.8, "").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := repo.Update(context.Background(), a); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoUpdateUnknownArtifactIsNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE evidence_artifacts").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err = repo.Update(context.Background(), Artifact{ID: "missing", OrgID: "org-1", FileName: "x"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoDeleteUnknownArtifactIsNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}

	mock.ExpectExec("DELETE FROM evidence_artifacts").
		WithArgs("org-1", "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), "org-1", "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoGetByIDScansMatches(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	uploadedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	artifactRows := sqlmock.NewRows([]string{
		"id", "org_id", "file_name", "uploaded_by", "category", "period_from", "period_to",
		"status", "redacted", "mime_type", "size_bytes", "storage_key", "extracted_text_key", "uploaded_at",
	}).AddRow("art-1", "org-1", "payslips.pdf", "user-1", "payslip", nil, nil,
		"pending", true, "application/pdf", int64(1024), "org-1/payslips.pdf", nil, uploadedAt)

	mock.ExpectQuery("SELECT (.+) FROM evidence_artifacts").
		WithArgs("org-1", "art-1").
		WillReturnRows(artifactRows)

	matchRows := sqlmock.NewRows([]string{"id", "kind", "target_id", "confidence", "reason"}).
		AddRow("m-1", "obligation", "obl-1", 0.9, "SG quarterly").
		AddRow("m-2", "control", "ctl-1", 0.7, "")

	mock.ExpectQuery("SELECT (.+) FROM evidence_matches").
		WithArgs("art-1").
		WillReturnRows(matchRows)

	a, err := repo.GetByID(context.Background(), "org-1", "art-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if len(a.Matches) != 2 || a.Matches[0].Kind != KindObligation {
		t.Fatalf("unexpected matches %+v", a.Matches)
	}
	if a.Status != StatusPending || !a.Redacted {
		t.Fatalf("unexpected artifact %+v", a)
	}
}
