package postgres_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"ridepool-backend/internal/domain"
	"ridepool-backend/internal/repository/postgres"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var contractCols = []string{"id", "name", "creator_id", "member_ids", "start_date", "end_date", "total_seats",
	"start_address", "end_address", "weekly_schedule", "auto_post_extra_seats", "status", "created_at", "updated_at"}

func contractRow(rows *sqlmock.Rows, id int32, members string, seats int32, status string) *sqlmock.Rows {
	start := time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC)
	return rows.AddRow(id, "Morning commute", 1, members, start, start.AddDate(0, 1, 0), seats,
		"12 Elm St", "Downtown Office", []byte(`[{"day":"Monday","time":"08:00"}]`), true, status, start, start)
}

func TestContractRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := postgres.NewContractRepository(db)
	ctx := context.Background()

	newContract := func() *domain.Contract {
		return &domain.Contract{
			Name:       "Morning commute",
			CreatorID:  1,
			Members:    []int32{1, 2},
			StartDate:  time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC),
			EndDate:    time.Date(2026, 12, 2, 0, 0, 0, 0, time.UTC),
			TotalSeats: 4,
			Route: domain.Route{
				StartLocation: domain.Address{Address: "12 Elm St"},
				EndLocation:   domain.Address{Address: "Downtown Office"},
			},
			WeeklySchedule: domain.WeeklySchedule{{Day: "Monday", Time: "08:00"}},
			Status:         domain.ContractStatusActive,
		}
	}

	t.Run("Success", func(t *testing.T) {
		c := newContract()
		mock.ExpectQuery("INSERT INTO contracts").
			WithArgs(c.Name, c.CreatorID, sqlmock.AnyArg(), c.StartDate, c.EndDate, c.TotalSeats,
				"12 Elm St", "Downtown Office", []byte(`[{"day":"Monday","time":"08:00"}]`), false,
				domain.ContractStatusActive, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

		err := repo.Create(ctx, c)
		assert.NoError(t, err)
		assert.Equal(t, int32(7), c.ID)
		assert.False(t, c.CreatedAt.IsZero())
	})

	t.Run("DuplicateName", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO contracts").
			WillReturnError(&pq.Error{Code: "23505", Constraint: "contracts_creator_name_key"})

		err := repo.Create(ctx, newContract())
		assert.ErrorIs(t, err, domain.ErrDuplicateContractName)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContractRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := postgres.NewContractRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM contracts WHERE id = \\$1").
			WithArgs(int32(3)).
			WillReturnRows(contractRow(sqlmock.NewRows(contractCols), 3, "{1,2,3}", 5, "ACTIVE"))

		c, err := repo.GetByID(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, []int32{1, 2, 3}, c.Members)
		assert.Equal(t, int32(2), c.ExtraSeats())
		require.Len(t, c.WeeklySchedule, 1)
		assert.Equal(t, "Monday", c.WeeklySchedule[0].Day)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM contracts WHERE id = \\$1").
			WithArgs(int32(99)).
			WillReturnRows(sqlmock.NewRows(contractCols))

		_, err := repo.GetByID(ctx, 99)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestContractRepository_UpdateStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := postgres.NewContractRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec("UPDATE contracts SET status").
			WithArgs(domain.ContractStatusCompleted, sqlmock.AnyArg(), int32(3), domain.ContractStatusActive).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.UpdateStatus(ctx, 3, domain.ContractStatusActive, domain.ContractStatusCompleted))
	})

	t.Run("StaleStatus", func(t *testing.T) {
		mock.ExpectExec("UPDATE contracts SET status").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM contracts WHERE id = $1)")).
			WithArgs(int32(3)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		err := repo.UpdateStatus(ctx, 3, domain.ContractStatusActive, domain.ContractStatusCancelled)
		assert.ErrorIs(t, err, domain.ErrInvalidState)
	})
}

func TestContractRepository_AddMember(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := postgres.NewContractRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM contracts WHERE id = \\$1 FOR UPDATE").
			WithArgs(int32(3)).
			WillReturnRows(contractRow(sqlmock.NewRows(contractCols), 3, "{1,2}", 3, "ACTIVE"))
		mock.ExpectExec("UPDATE contracts SET member_ids").
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), int32(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		c, err := repo.AddMember(ctx, 3, 9)
		require.NoError(t, err)
		assert.Equal(t, []int32{1, 2, 9}, c.Members)
	})

	t.Run("Full", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM contracts WHERE id = \\$1 FOR UPDATE").
			WithArgs(int32(3)).
			WillReturnRows(contractRow(sqlmock.NewRows(contractCols), 3, "{1,2}", 2, "ACTIVE"))
		mock.ExpectRollback()

		_, err := repo.AddMember(ctx, 3, 9)
		assert.ErrorIs(t, err, domain.ErrContractFull)
	})

	t.Run("AlreadyMemberCheckedFirst", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM contracts WHERE id = \\$1 FOR UPDATE").
			WithArgs(int32(3)).
			WillReturnRows(contractRow(sqlmock.NewRows(contractCols), 3, "{1,2}", 2, "CANCELLED"))
		mock.ExpectRollback()

		_, err := repo.AddMember(ctx, 3, 2)
		assert.ErrorIs(t, err, domain.ErrAlreadyMember)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContractRepository_ListAutoPostActive(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := postgres.NewContractRepository(db)

	// Midnight west of UTC is still the 2nd of December as a calendar date.
	today := time.Date(2026, 12, 2, 0, 0, 0, 0, time.FixedZone("PST", -8*60*60))
	mock.ExpectQuery(regexp.QuoteMeta("end_date >= $2::date")).
		WithArgs(domain.ContractStatusActive, "2026-12-02").
		WillReturnRows(contractRow(sqlmock.NewRows(contractCols), 3, "{1,2}", 4, "ACTIVE"))

	contracts, err := repo.ListAutoPostActive(context.Background(), today)
	require.NoError(t, err)
	require.Len(t, contracts, 1)
	assert.Equal(t, int32(3), contracts[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
