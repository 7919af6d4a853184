package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Tag is a reusable label shared across posts.
type Tag struct {
	ID   string `gorm:"type:uuid;primaryKey" json:"tagId"`
	Text string `gorm:"size:64;uniqueIndex;not null" json:"text"`
}

// BeforeCreate assigns a UUID when the caller did not.
func (t *Tag) BeforeCreate(_ *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// PostTagLink is the join row between posts and tags.
type PostTagLink struct {
	PostID string `gorm:"type:uuid;primaryKey"`
	TagID  string `gorm:"type:uuid;primaryKey;index"`
	Post   *Post  `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE"`
	Tag    *Tag   `gorm:"foreignKey:TagID;constraint:OnDelete:CASCADE"`
}

// TableName returns the join table name.
func (PostTagLink) TableName() string {
	return "post_tags"
}

// PostTag is the read shape of a tag attached to a post.
type PostTag struct {
	PostID string `json:"-"`
	TagID  string `json:"tagId"`
	Text   string `json:"text"`
}
