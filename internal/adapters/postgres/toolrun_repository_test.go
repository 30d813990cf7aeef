package postgres

import (
	"testing"
	"time"

	"github.com/longregen/argo/internal/domain/models"
	"github.com/pashagolub/pgxmock/v4"
)

func TestToolRunRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &ToolRunRepository{
		BaseRepository: BaseRepository{pool: nil},
	}

	run := &models.ToolRun{
		ID:        "atr_1",
		SessionID: "as_1",
		ToolName:  "web_search",
		Input:     `{"query":"pgvector cosine"}`,
		Output:    "3 results",
		Metadata:  map[string]string{"duration_ms": "412"},
		Status:    models.ToolRunOK,
		CreatedAt: time.Now(),
	}

	mock.ExpectExec("INSERT INTO argo_tool_runs").
		WithArgs(run.ID, run.SessionID, run.ToolName, run.Input,
			pgxmock.AnyArg(), pgxmock.AnyArg(), "ok", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	ctx := setupMockContext(mock)
	err = repo.Create(ctx, run)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestToolRunRepository_StatsBySession(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &ToolRunRepository{
		BaseRepository: BaseRepository{pool: nil},
	}

	rows := pgxmock.NewRows([]string{"tool_name", "runs", "errors"}).
		AddRow("web_access", 3, 1).
		AddRow("web_search", 2, 0)

	mock.ExpectQuery("SELECT tool_name").
		WithArgs("as_1").
		WillReturnRows(rows)

	ctx := setupMockContext(mock)
	stats, err := repo.StatsBySession(ctx, "as_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TotalRuns != 5 {
		t.Errorf("expected 5 total runs, got %d", stats.TotalRuns)
	}
	if stats.Errors != 1 {
		t.Errorf("expected 1 error, got %d", stats.Errors)
	}
	if stats.ByTool["web_access"] != 3 {
		t.Errorf("expected 3 web_access runs, got %d", stats.ByTool["web_access"])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
