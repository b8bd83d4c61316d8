package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"ridepool-backend/internal/domain"
	"ridepool-backend/internal/logger"
	"ridepool-backend/internal/repository"

	"github.com/lib/pq"
)

const contractColumns = `id, name, creator_id, member_ids, start_date, end_date, total_seats,
	start_address, end_address, weekly_schedule, auto_post_extra_seats, status, created_at, updated_at`

type contractRepository struct {
	db *sql.DB
}

func NewContractRepository(db *sql.DB) repository.ContractRepository {
	return &contractRepository{db: db}
}

func (r *contractRepository) Create(ctx context.Context, c *domain.Contract) error {
	logger.EnterMethod("contractRepository.Create", "name", c.Name, "creatorID", c.CreatorID)

	schedule, err := json.Marshal(c.WeeklySchedule)
	if err != nil {
		return fmt.Errorf("failed to encode weekly schedule: %w", err)
	}
	now := time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = c.CreatedAt

	query := `INSERT INTO contracts (name, creator_id, member_ids, start_date, end_date, total_seats,
	          start_address, end_address, weekly_schedule, auto_post_extra_seats, status, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13) RETURNING id`
	logger.DatabaseCall("INSERT", "contracts", "creatorID", c.CreatorID)
	err = r.db.QueryRowContext(ctx, query,
		c.Name, c.CreatorID, pq.Array(c.Members), c.StartDate, c.EndDate, c.TotalSeats,
		c.Route.StartLocation.Address, c.Route.EndLocation.Address, schedule,
		c.AutoPostExtraSeats, c.Status, c.CreatedAt, c.UpdatedAt,
	).Scan(&c.ID)
	if err != nil {
		if isUniqueViolation(err, "contracts_creator_name_key") {
			err = domain.ErrDuplicateContractName
		}
		logger.ExitMethodWithError("contractRepository.Create", err)
		return err
	}
	logger.DatabaseResult("INSERT", 1, nil, "contractID", c.ID)
	logger.ExitMethod("contractRepository.Create", "contractID", c.ID)
	return nil
}

func (r *contractRepository) GetByID(ctx context.Context, id int32) (*domain.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE id = $1`
	c, err := scanContract(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "contract")
	}
	return c, nil
}

func (r *contractRepository) ListByMember(ctx context.Context, userID int32) ([]domain.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE $1 = ANY(member_ids) ORDER BY created_at DESC`
	return r.list(ctx, query, userID)
}

func (r *contractRepository) ListAutoPostActive(ctx context.Context, onOrAfter time.Time) ([]domain.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts
	          WHERE status = $1 AND auto_post_extra_seats = TRUE AND end_date >= $2::date
	          ORDER BY id`
	// Bound as a calendar date so the session time zone cannot shift the day.
	return r.list(ctx, query, domain.ContractStatusActive, onOrAfter.Format(time.DateOnly))
}

func (r *contractRepository) list(ctx context.Context, query string, args ...any) ([]domain.Contract, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contracts []domain.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, *c)
	}
	return contracts, rows.Err()
}

func (r *contractRepository) UpdateStatus(ctx context.Context, id int32, from, to domain.ContractStatus) error {
	query := `UPDATE contracts SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	res, err := r.db.ExecContext(ctx, query, to, time.Now(), id, from)
	if err != nil {
		return err
	}
	return r.expectOne(ctx, res, id)
}

func (r *contractRepository) UpdateAutoPost(ctx context.Context, id int32, enabled bool) error {
	query := `UPDATE contracts SET auto_post_extra_seats = $1, updated_at = $2 WHERE id = $3`
	res, err := r.db.ExecContext(ctx, query, enabled, time.Now(), id)
	if err != nil {
		return err
	}
	return r.expectOne(ctx, res, id)
}

func (r *contractRepository) UpdateSchedule(ctx context.Context, id int32, schedule domain.WeeklySchedule) error {
	raw, err := json.Marshal(schedule)
	if err != nil {
		return fmt.Errorf("failed to encode weekly schedule: %w", err)
	}
	query := `UPDATE contracts SET weekly_schedule = $1, updated_at = $2 WHERE id = $3`
	res, err := r.db.ExecContext(ctx, query, raw, time.Now(), id)
	if err != nil {
		return err
	}
	return r.expectOne(ctx, res, id)
}

// expectOne distinguishes a missing row from a row whose guard did not match.
func (r *contractRepository) expectOne(ctx context.Context, res sql.Result, id int32) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM contracts WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("contract: %w", domain.ErrNotFound)
	}
	return domain.ErrInvalidState
}

func (r *contractRepository) AddMember(ctx context.Context, id int32, userID int32) (*domain.Contract, error) {
	logger.EnterMethod("contractRepository.AddMember", "contractID", id, "userID", userID)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		logger.ExitMethodWithError("contractRepository.AddMember", err)
		return nil, err
	}
	defer tx.Rollback()

	query := `SELECT ` + contractColumns + ` FROM contracts WHERE id = $1 FOR UPDATE`
	c, err := scanContract(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		err = notFound(err, "contract")
		logger.ExitMethodWithError("contractRepository.AddMember", err)
		return nil, err
	}

	switch {
	case c.IsMember(userID):
		return nil, domain.ErrAlreadyMember
	case int32(len(c.Members)) >= c.TotalSeats:
		return nil, domain.ErrContractFull
	case !c.IsActive():
		return nil, domain.ErrNotActive
	}

	c.Members = append(c.Members, userID)
	c.UpdatedAt = time.Now()
	_, err = tx.ExecContext(ctx, `UPDATE contracts SET member_ids = $1, updated_at = $2 WHERE id = $3`,
		pq.Array(c.Members), c.UpdatedAt, id)
	if err != nil {
		logger.ExitMethodWithError("contractRepository.AddMember", err)
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		logger.ExitMethodWithError("contractRepository.AddMember", err)
		return nil, err
	}

	logger.ExitMethod("contractRepository.AddMember", "members", len(c.Members))
	return c, nil
}

func (r *contractRepository) CountByStatus(ctx context.Context) ([]domain.StatusCount, error) {
	return countByStatus(ctx, r.db, "contracts")
}

func scanContract(row rowScanner) (*domain.Contract, error) {
	var (
		c        domain.Contract
		members  pq.Int64Array
		schedule []byte
	)
	err := row.Scan(&c.ID, &c.Name, &c.CreatorID, &members, &c.StartDate, &c.EndDate, &c.TotalSeats,
		&c.Route.StartLocation.Address, &c.Route.EndLocation.Address, &schedule,
		&c.AutoPostExtraSeats, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.Members = make([]int32, len(members))
	for i, m := range members {
		c.Members[i] = int32(m)
	}
	if err := json.Unmarshal(schedule, &c.WeeklySchedule); err != nil {
		return nil, fmt.Errorf("failed to decode weekly schedule for contract %d: %w", c.ID, err)
	}
	return &c, nil
}

func countByStatus(ctx context.Context, db *sql.DB, table string) ([]domain.StatusCount, error) {
	rows, err := db.QueryContext(ctx, `SELECT status, COUNT(*) FROM `+table+` GROUP BY status ORDER BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []domain.StatusCount
	for rows.Next() {
		var sc domain.StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, err
		}
		counts = append(counts, sc)
	}
	return counts, rows.Err()
}
