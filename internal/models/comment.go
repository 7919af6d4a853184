package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Comment body length bounds, inclusive.
const (
	CommentMinLength = 10
	CommentMaxLength = 250
)

// Comment is a reply attached to a post.
type Comment struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Body      string    `gorm:"size:250;not null" json:"body"`
	UserID    string    `gorm:"type:uuid;not null;index" json:"userId"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	PostID    string    `gorm:"type:uuid;not null;index" json:"postId"`
	Post      *Post     `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	FirstName string `gorm:"->;-:migration" json:"firstName,omitempty"`
	LastName  string `gorm:"->;-:migration" json:"lastName,omitempty"`
}

// BeforeCreate assigns a UUID when the caller did not.
func (c *Comment) BeforeCreate(_ *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
