package orchestration

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"pait-backend/internal/specialist"
	"pait-backend/internal/synthesis"
)

func TestPGRepoGetByIDDecodesBlobs(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	created := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	completed := created.Add(3 * time.Second)
	resultsJSON, _ := json.Marshal(map[specialist.Role]specialist.Result{
		specialist.RoleTrading: {Role: specialist.RoleTrading, Score: 0.8, Confidence: 0.9},
	})
	compositeJSON, _ := json.Marshal(synthesis.Composite{Value: 2511, Raw: 0.72857, Band: synthesis.BandFramework})

	rows := sqlmock.NewRows([]string{
		"id", "subject_id", "subject_tier", "intent_id", "artifact_id", "state",
		"failure_reason", "results", "composite", "seal_status", "seal_record_id",
		"created_at", "completed_at",
	}).AddRow(
		"sess-1", "sub-1", "vip", "strategy-evaluation", "art-1", "sealed",
		nil, resultsJSON, compositeJSON, "sealed", "rec-1", created, completed,
	)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT")).WithArgs("sess-1").WillReturnRows(rows)

	repo := &PGRepo{DB: db}
	session, err := repo.GetByID(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if session.State != StateSealed {
		t.Fatalf("state = %q", session.State)
	}
	if session.Composite == nil || session.Composite.Value != 2511 {
		t.Fatalf("composite = %+v", session.Composite)
	}
	if got := session.Results[specialist.RoleTrading].Score; got != 0.8 {
		t.Fatalf("trading score = %v", got)
	}
	if session.CompletedAt == nil || !session.CompletedAt.Equal(completed) {
		t.Fatalf("completed_at = %v", session.CompletedAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT")).WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	repo := &PGRepo{DB: db}
	if _, err := repo.GetByID(context.Background(), "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoUpdateMissingSession(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE sessions")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := &PGRepo{DB: db}
	err = repo.Update(context.Background(), Session{ID: "missing", State: StateFailed})
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoListSealPendingFiltersSealed(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	created := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "subject_id", "subject_tier", "intent_id", "artifact_id", "state",
		"failure_reason", "results", "composite", "seal_status", "seal_record_id",
		"created_at", "completed_at",
	}).AddRow(
		"sess-2", "sub-1", "free", "exploratory", "art-1", "sealed",
		nil, nil, nil, "pending", nil, created, created,
	)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT")).
		WithArgs("sealed", "sealed", 50).
		WillReturnRows(rows)

	repo := &PGRepo{DB: db}
	pending, err := repo.ListSealPending(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListSealPending: %v", err)
	}
	if len(pending) != 1 || pending[0].SealStatus != SealStatusPending {
		t.Fatalf("pending = %+v", pending)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
