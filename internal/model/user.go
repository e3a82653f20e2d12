package model

import (
	"time"

	"github.com/google/uuid"
)

// Role is the authorization level of a user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User is the local mirror of an identity provider account. Its ID is the
// provider's account id; the row is created when the account's email is confirmed.
type User struct {
	ID        uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	Email     string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	Role      Role      `json:"role" gorm:"type:varchar(20);not null;default:'user'"`
	FirstName *string   `json:"first_name,omitempty" gorm:"size:100"`
	LastName  *string   `json:"last_name,omitempty" gorm:"size:100"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user holds the elevated role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// UserView is the sanitized user representation returned to clients.
type UserView struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName *string   `json:"first_name,omitempty"`
	LastName  *string   `json:"last_name,omitempty"`
	Role      Role      `json:"role"`
	IsAdmin   bool      `json:"isAdmin"`
}

// View returns the client-facing projection of u.
func (u *User) View() UserView {
	return UserView{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
		IsAdmin:   u.IsAdmin(),
	}
}
