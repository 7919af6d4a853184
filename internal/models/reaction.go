package models

import "time"

// UserPostLike records that a user liked a post.
type UserPostLike struct {
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_user_post_likes_pair" json:"userId"`
	PostID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_user_post_likes_pair;index" json:"postId"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Post      *Post     `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName returns the join table name.
func (UserPostLike) TableName() string { return "user_post_likes" }

// UserCheckin records that a user holds a spot at an event.
type UserCheckin struct {
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_user_checkins_pair" json:"userId"`
	PostID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_user_checkins_pair;index" json:"postId"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Post      *Post     `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName returns the join table name.
func (UserCheckin) TableName() string { return "user_checkins" }

// UserReport records that a user flagged a post.
type UserReport struct {
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_user_reports_pair" json:"userId"`
	PostID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_user_reports_pair;index" json:"postId"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Post      *Post     `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName returns the join table name.
func (UserReport) TableName() string { return "user_reports" }
