package entity

import "time"

// User represents an account row in the `users` table.
// Email is always stored normalized (trimmed, lowercased).
type User struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// PublicView is the projection returned to clients; it never carries the hash.
type PublicView struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (u *User) Public() PublicView {
	return PublicView{ID: u.ID, Email: u.Email}
}
