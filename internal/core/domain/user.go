package domain

import "time"

// User models a registered customer or staff account.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Principal returns the access-layer view of the user.
func (u *User) Principal() Principal {
	return Principal{ID: u.ID, Role: u.Role}
}
