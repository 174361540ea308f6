package models

import "time"

// User owns accounts and authors transactions. The ledger core trusts the
// user id resolved by the auth middleware and never re-derives it.
type User struct {
	ID        int64     `json:"id" example:"1"`
	Username  string    `json:"username" example:"jdoe"`
	Email     string    `json:"email" example:"jdoe@example.com"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
