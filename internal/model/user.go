package model

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrUserExists   = errors.New("username already exists")
	ErrUserNotFound = errors.New("user not found")
)

// User is a registered account with its simulated cash balance.
type User struct {
	ID          int64           `json:"id"`
	Username    string          `json:"username"`
	Hash        string          `json:"-"`
	Cash        decimal.Decimal `json:"cash"`
	TOTPSecret  string          `json:"-"`
	TOTPEnabled bool            `json:"totp_enabled"`
}

// Birthday is a row of the birthday tracker.
type Birthday struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Month int    `json:"month"`
	Day   int    `json:"day"`
}

// ErrBirthdayNotFound is returned when deleting a birthday that does not exist.
var ErrBirthdayNotFound = errors.New("birthday not found")
