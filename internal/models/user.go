// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Token type prefixes stored in User.ConfirmationToken.
const (
	TokenTypeConfirm = "c"
	TokenTypeReset   = "r"
)

// User represents a registered member of the board.
type User struct {
	ID                       string     `gorm:"type:uuid;primaryKey" json:"id"`
	FirstName                string     `gorm:"size:64;not null" json:"firstName"`
	LastName                 string     `gorm:"size:64;not null" json:"lastName"`
	UserName                 string     `gorm:"size:64;uniqueIndex;not null" json:"userName"`
	Email                    string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Password                 string     `gorm:"not null" json:"-"`
	ConfirmationToken        *string    `gorm:"size:80;index" json:"-"`
	ConfirmationTokenExpires *time.Time `json:"-"`
	Confirmed                bool       `gorm:"not null;default:false" json:"confirmed"`
	LastLogin                *time.Time `json:"lastLogin,omitempty"`
	CreatedAt                time.Time  `json:"createdAt"`
	UpdatedAt                time.Time  `json:"updatedAt"`
}

// BeforeCreate assigns a UUID when the caller did not.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// PublicUser is the profile shape returned to other users.
type PublicUser struct {
	ID        string    `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	UserName  string    `json:"userName"`
	CreatedAt time.Time `json:"createdAt"`
}

// Public strips private fields.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		UserName:  u.UserName,
		CreatedAt: u.CreatedAt,
	}
}
