package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"sendwave/internal/models"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock DB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func campaignRows(id int, status models.CampaignStatus) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "org_id", "name", "status", "scheduled_at", "started_at", "completed_at",
		"min_interval_seconds", "max_interval_seconds", "total_sent", "total_failed",
		"created_at", "updated_at",
	}).AddRow(id, 1, "Test Campaign", string(status), nil, nil, nil, 30, 60, 0, 0, now, now)
}

func TestCampaignRepository_GetByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCampaignRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM campaigns WHERE id = \$1`).
		WithArgs(1).
		WillReturnRows(campaignRows(1, models.CampaignStatusDraft))

	campaign, err := repo.GetByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("Expected no error but got %v", err)
	}
	if campaign.ID != 1 || campaign.Status != models.CampaignStatusDraft {
		t.Errorf("Unexpected campaign: %+v", campaign)
	}
	if campaign.MinIntervalSeconds != 30 || campaign.MaxIntervalSeconds != 60 {
		t.Errorf("Interval bounds not scanned: %+v", campaign)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestCampaignRepository_GetByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCampaignRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM campaigns WHERE id = \$1`).
		WithArgs(99).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), 99)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound but got %v", err)
	}
}

func TestCampaignRepository_MarkRunning_GuardsSourceStatus(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCampaignRepository(db)
	at := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta(`status = 'running'`)).
		WithArgs(1, at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.MarkRunning(context.Background(), 1, at); err != nil {
		t.Fatalf("Expected no error but got %v", err)
	}

	// Zero rows affected means the campaign already left draft/scheduled
	mock.ExpectExec(regexp.QuoteMeta(`status = 'running'`)).
		WithArgs(1, at).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.MarkRunning(context.Background(), 1, at); err == nil {
		t.Error("Expected error for non-startable campaign but got nil")
	}
}

func TestCampaignRepository_MarkCompleted_OnlyFromRunning(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCampaignRepository(db)
	at := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta(`status = 'completed'`)).
		WithArgs(1, at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	completed, err := repo.MarkCompleted(context.Background(), 1, at)
	if err != nil {
		t.Fatalf("Expected no error but got %v", err)
	}
	if !completed {
		t.Error("Expected transition to be reported")
	}

	// Second invocation loses the conditional UPDATE
	mock.ExpectExec(regexp.QuoteMeta(`status = 'completed'`)).
		WithArgs(1, at).
		WillReturnResult(sqlmock.NewResult(0, 0))

	completed, err = repo.MarkCompleted(context.Background(), 1, at)
	if err != nil {
		t.Fatalf("Expected no error but got %v", err)
	}
	if completed {
		t.Error("Expected duplicate completion to report false")
	}
}

func TestCampaignRepository_Transition(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCampaignRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`status = ANY($3)`)).
		WithArgs(1, models.CampaignStatusPaused, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	moved, err := repo.Transition(context.Background(), 1,
		[]models.CampaignStatus{models.CampaignStatusRunning}, models.CampaignStatusPaused)
	if err != nil {
		t.Fatalf("Expected no error but got %v", err)
	}
	if !moved {
		t.Error("Expected transition to be reported")
	}
}

func TestCampaignRepository_IncrementTotalSent_IsAtomic(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCampaignRepository(db)

	// The increment happens in the database, never read-modify-write
	mock.ExpectExec(regexp.QuoteMeta(`total_sent = total_sent + 1`)).
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.IncrementTotalSent(context.Background(), 1); err != nil {
		t.Fatalf("Expected no error but got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestCampaignRepository_ListDueScheduled(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCampaignRepository(db)
	now := time.Now().UTC()

	rows := campaignRows(1, models.CampaignStatusScheduled)
	rows.AddRow(2, 1, "Second", "scheduled", nil, nil, nil, 10, 20, 0, 0, now, now)

	mock.ExpectQuery(regexp.QuoteMeta(`status = 'scheduled' AND scheduled_at <= $1`)).
		WithArgs(now).
		WillReturnRows(rows)

	due, err := repo.ListDueScheduled(context.Background(), now)
	if err != nil {
		t.Fatalf("Expected no error but got %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("Expected 2 due campaigns but got %d", len(due))
	}
	if due[0].ID != 1 || due[1].ID != 2 {
		t.Errorf("Unexpected due set: %+v", due)
	}
}

func TestCampaignRepository_GetWithProgress(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCampaignRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM campaigns WHERE id = \$1`).
		WithArgs(1).
		WillReturnRows(campaignRows(1, models.CampaignStatusRunning))

	mock.ExpectQuery(regexp.QuoteMeta(`FROM send_records`)).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"total", "pending", "sent", "failed"}).
			AddRow(10, 4, 5, 1))

	got, err := repo.GetWithProgress(context.Background(), 1)
	if err != nil {
		t.Fatalf("Expected no error but got %v", err)
	}
	if got.Progress.Total != 10 || got.Progress.Pending != 4 || got.Progress.Sent != 5 || got.Progress.Failed != 1 {
		t.Errorf("Unexpected progress: %+v", got.Progress)
	}
}
