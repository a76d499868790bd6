package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"finance-sim/internal/model"
)

// Birthdays stores the birthday tracker rows.
type Birthdays struct {
	db *sql.DB
}

// List returns every birthday in insertion order.
func (b *Birthdays) List(ctx context.Context) ([]model.Birthday, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT id, name, month, day FROM birthdays ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite query birthdays: %w", err)
	}
	defer rows.Close()

	var out []model.Birthday
	for rows.Next() {
		var bd model.Birthday
		if err := rows.Scan(&bd.ID, &bd.Name, &bd.Month, &bd.Day); err != nil {
			return nil, fmt.Errorf("sqlite scan birthday: %w", err)
		}
		out = append(out, bd)
	}
	return out, rows.Err()
}

// Add inserts bd and returns its id. Range checks are enforced by the schema.
func (b *Birthdays) Add(ctx context.Context, bd model.Birthday) (int64, error) {
	res, err := b.db.ExecContext(ctx,
		`INSERT INTO birthdays (name, month, day) VALUES (?, ?, ?)`,
		bd.Name, bd.Month, bd.Day)
	if err != nil {
		return 0, fmt.Errorf("sqlite insert birthday: %w", err)
	}
	return res.LastInsertId()
}

func (b *Birthdays) Delete(ctx context.Context, id int64) error {
	res, err := b.db.ExecContext(ctx, `DELETE FROM birthdays WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite delete birthday: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrBirthdayNotFound
	}
	return nil
}
