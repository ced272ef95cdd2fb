package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/arklim/village-admin/internal/core/domain"
	"github.com/arklim/village-admin/internal/core/port"
	"github.com/arklim/village-admin/internal/repository"
)

var villageCodeColumnList = []string{"id", "code", "name", "color_hex", "is_visible", "created_at", "updated_at"}

func newVillageCodeMock(t *testing.T) (pgxmock.PgxPoolIface, *VillageCodeRepository) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	t.Cleanup(mock.Close)

	return mock, NewVillageCodeRepositoryWithExecutor(mock)
}

func TestVillageCodeRepository_Create(t *testing.T) {
	mock, repo := newVillageCodeMock(t)

	createdAt := time.Now().UTC()
	rows := pgxmock.NewRows(villageCodeColumnList).
		AddRow(int64(1), "VLG-01", "North Village", "#336699", true, createdAt, createdAt)

	mock.ExpectQuery(`INSERT INTO village_codes .*RETURNING`).
		WithArgs("VLG-01", "North Village", "#336699", true).
		WillReturnRows(rows)

	record, err := repo.Create(context.Background(), domain.NewVillageCodeInput{
		Code:      "VLG-01",
		Name:      "North Village",
		ColorHex:  "#336699",
		IsVisible: true,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if record.ID != 1 || record.Code != "VLG-01" {
		t.Fatalf("unexpected record: %+v", record)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestVillageCodeRepository_CreateDuplicate(t *testing.T) {
	mock, repo := newVillageCodeMock(t)

	mock.ExpectQuery(`INSERT INTO village_codes`).
		WithArgs("VLG-01", "North Village", "#336699", true).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "village_codes_code_unique"})

	_, err := repo.Create(context.Background(), domain.NewVillageCodeInput{
		Code:      "VLG-01",
		Name:      "North Village",
		ColorHex:  "#336699",
		IsVisible: true,
	})
	if !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestVillageCodeRepository_GetByIDMiss(t *testing.T) {
	mock, repo := newVillageCodeMock(t)

	mock.ExpectQuery(`SELECT .*FROM village_codes`).
		WithArgs(int64(42)).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), 42)
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestVillageCodeRepository_ListFiltersHidden(t *testing.T) {
	mock, repo := newVillageCodeMock(t)

	createdAt := time.Now().UTC()
	rows := pgxmock.NewRows(villageCodeColumnList).
		AddRow(int64(2), "VLG-02", "South Village", "#aa0000", true, createdAt, createdAt)

	mock.ExpectQuery(`SELECT .*FROM village_codes WHERE is_visible = \$1 ORDER BY created_at DESC`).
		WithArgs(true).
		WillReturnRows(rows)

	records, err := repo.List(context.Background(), port.VillageCodeFilter{})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(records) != 1 || records[0].Code != "VLG-02" {
		t.Fatalf("unexpected records: %+v", records)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestVillageCodeRepository_ListIncludeHidden(t *testing.T) {
	mock, repo := newVillageCodeMock(t)

	createdAt := time.Now().UTC()
	rows := pgxmock.NewRows(villageCodeColumnList).
		AddRow(int64(3), "VLG-03", "Hidden Village", "#222222", false, createdAt, createdAt)

	mock.ExpectQuery(`SELECT .*FROM village_codes ORDER BY created_at DESC`).
		WillReturnRows(rows)

	records, err := repo.List(context.Background(), port.VillageCodeFilter{IncludeHidden: true})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(records) != 1 || records[0].IsVisible {
		t.Fatalf("expected the hidden record, got %+v", records)
	}
}

func TestVillageCodeRepository_UpdateAlwaysTouchesUpdatedAt(t *testing.T) {
	mock, repo := newVillageCodeMock(t)

	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	repo.WithClock(func() time.Time { return fixed })

	rows := pgxmock.NewRows(villageCodeColumnList).
		AddRow(int64(1), "VLG-01", "North Village", "#336699", true, fixed.Add(-time.Hour), fixed)

	// An empty update still refreshes updated_at.
	mock.ExpectQuery(`UPDATE village_codes SET updated_at = \$1 WHERE id = \$2 RETURNING`).
		WithArgs(fixed, int64(1)).
		WillReturnRows(rows)

	record, err := repo.Update(context.Background(), 1, domain.VillageCodeUpdate{})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if !record.UpdatedAt.Equal(fixed) {
		t.Fatalf("expected updated_at %v, got %v", fixed, record.UpdatedAt)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestVillageCodeRepository_UpdateMiss(t *testing.T) {
	mock, repo := newVillageCodeMock(t)

	name := "Renamed"
	mock.ExpectQuery(`UPDATE village_codes`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.Update(context.Background(), 99, domain.VillageCodeUpdate{Name: &name})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestVillageCodeRepository_DeleteReturnsRow(t *testing.T) {
	mock, repo := newVillageCodeMock(t)

	createdAt := time.Now().UTC()
	rows := pgxmock.NewRows(villageCodeColumnList).
		AddRow(int64(5), "VLG-05", "West Village", "#00ff00", true, createdAt, createdAt)

	mock.ExpectQuery(`DELETE FROM village_codes WHERE id = \$1 RETURNING`).
		WithArgs(int64(5)).
		WillReturnRows(rows)

	record, err := repo.Delete(context.Background(), 5)
	if err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if record.ID != 5 {
		t.Fatalf("expected deleted row 5, got %+v", record)
	}
}

func TestVillageCodeRepository_DeleteTwice(t *testing.T) {
	mock, repo := newVillageCodeMock(t)

	createdAt := time.Now().UTC()
	rows := pgxmock.NewRows(villageCodeColumnList).
		AddRow(int64(6), "VLG-06", "East Village", "#0000ff", true, createdAt, createdAt)

	mock.ExpectQuery(`DELETE FROM village_codes`).
		WithArgs(int64(6)).
		WillReturnRows(rows)
	mock.ExpectQuery(`DELETE FROM village_codes`).
		WithArgs(int64(6)).
		WillReturnError(pgx.ErrNoRows)

	if _, err := repo.Delete(context.Background(), 6); err != nil {
		t.Fatalf("first Delete returned error: %v", err)
	}
	if _, err := repo.Delete(context.Background(), 6); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}
