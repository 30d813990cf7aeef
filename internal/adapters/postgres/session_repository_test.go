package postgres

import (
	"errors"
	"testing"
	"time"

	"github.com/longregen/argo/internal/domain"
	"github.com/longregen/argo/internal/domain/models"
	"github.com/pashagolub/pgxmock/v4"
)

func TestSessionRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &SessionRepository{
		BaseRepository: BaseRepository{pool: nil},
	}

	session := models.NewSession("as_test1", "First session")

	mock.ExpectExec("INSERT INTO argo_sessions").
		WithArgs(session.ID, session.Title, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	ctx := setupMockContext(mock)
	err = repo.Create(ctx, session)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestSessionRepository_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &SessionRepository{
		BaseRepository: BaseRepository{pool: nil},
	}

	now := time.Now()
	rows := pgxmock.NewRows([]string{"id", "title", "created_at", "updated_at"}).
		AddRow("as_test2", "Found session", now, now)

	mock.ExpectQuery("SELECT id, title, created_at, updated_at").
		WithArgs("as_test2").
		WillReturnRows(rows)

	ctx := setupMockContext(mock)
	session, err := repo.GetByID(ctx, "as_test2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Title != "Found session" {
		t.Errorf("expected title 'Found session', got %s", session.Title)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestSessionRepository_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &SessionRepository{
		BaseRepository: BaseRepository{pool: nil},
	}

	mock.ExpectQuery("SELECT id, title, created_at, updated_at").
		WithArgs("as_missing").
		WillReturnRows(pgxmock.NewRows([]string{"id", "title", "created_at", "updated_at"}))

	ctx := setupMockContext(mock)
	_, err = repo.GetByID(ctx, "as_missing")
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestSessionRepository_Touch_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &SessionRepository{
		BaseRepository: BaseRepository{pool: nil},
	}

	mock.ExpectExec("UPDATE argo_sessions SET updated_at").
		WithArgs("as_missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ctx := setupMockContext(mock)
	err = repo.Touch(ctx, "as_missing")
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
