package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"finance-sim/internal/model"
)

// Users stores accounts.
type Users struct {
	db *sql.DB
}

// Create inserts a new account funded with cash. A taken username yields
// model.ErrUserExists.
func (u *Users) Create(ctx context.Context, username, hash string, cash decimal.Decimal) (model.User, error) {
	res, err := u.db.ExecContext(ctx,
		`INSERT INTO users (username, hash, cash) VALUES (?, ?, ?)`,
		username, hash, cash.String())
	if err != nil {
		var se sqlite3.Error
		if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique {
			return model.User{}, model.ErrUserExists
		}
		return model.User{}, fmt.Errorf("sqlite insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, fmt.Errorf("sqlite user id: %w", err)
	}
	return model.User{ID: id, Username: username, Hash: hash, Cash: cash}, nil
}

// ByUsername looks up an account by its exact username.
func (u *Users) ByUsername(ctx context.Context, username string) (model.User, error) {
	return u.one(ctx, `WHERE username = ?`, username)
}

func (u *Users) ByID(ctx context.Context, id int64) (model.User, error) {
	return u.one(ctx, `WHERE id = ?`, id)
}

// SetTOTP stores the user's TOTP secret and whether it is enforced at login.
func (u *Users) SetTOTP(ctx context.Context, id int64, secret string, enabled bool) error {
	res, err := u.db.ExecContext(ctx,
		`UPDATE users SET totp_secret = ?, totp_enabled = ? WHERE id = ?`,
		secret, enabled, id)
	if err != nil {
		return fmt.Errorf("sqlite update totp: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

func (u *Users) one(ctx context.Context, where string, arg any) (model.User, error) {
	var usr model.User
	err := u.db.QueryRowContext(ctx,
		`SELECT id, username, hash, cash, totp_secret, totp_enabled FROM users `+where, arg,
	).Scan(&usr.ID, &usr.Username, &usr.Hash, &usr.Cash, &usr.TOTPSecret, &usr.TOTPEnabled)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("sqlite read user: %w", err)
	}
	return usr, nil
}
