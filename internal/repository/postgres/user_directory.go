package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"ridepool-backend/internal/repository"

	"github.com/lib/pq"
)

type userDirectory struct {
	db    *sql.DB
	query string
}

// NewUserDirectory checks ids against a table owned by the identity service.
// table and column are trusted configuration values.
func NewUserDirectory(db *sql.DB, table, column string) repository.UserDirectory {
	return &userDirectory{
		db:    db,
		query: fmt.Sprintf(`SELECT %s FROM %s WHERE %s = ANY($1)`, column, table, column),
	}
}

func (d *userDirectory) Missing(ctx context.Context, ids []int32) ([]int32, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := d.db.QueryContext(ctx, d.query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to look up users: %w", err)
	}
	defer rows.Close()

	found := make(map[int32]bool, len(ids))
	for rows.Next() {
		var id int32
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var missing []int32
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}
