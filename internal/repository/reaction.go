package repository

import (
	"context"

	"uboard/internal/models"
	"uboard/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReactionRepository manages a (user_id, post_id) join table.
type ReactionRepository interface {
	// Add inserts the pair if absent and reports whether a row was written.
	Add(ctx context.Context, userID, postID string) (bool, error)
	// Remove deletes the pair and reports whether a row existed.
	Remove(ctx context.Context, userID, postID string) (bool, error)
	Has(ctx context.Context, userID, postID string) (bool, error)
	Count(ctx context.Context, postID string) (int64, error)
}

type reactionRepository[T any] struct {
	db    *gorm.DB
	table string
	row   func(userID, postID string) *T
}

// NewLikeRepository manages user_post_likes.
func NewLikeRepository(db *gorm.DB) ReactionRepository {
	return &reactionRepository[models.UserPostLike]{
		db:    db,
		table: "user_post_likes",
		row: func(userID, postID string) *models.UserPostLike {
			return &models.UserPostLike{UserID: userID, PostID: postID}
		},
	}
}

// NewCheckinRepository manages user_checkins.
func NewCheckinRepository(db *gorm.DB) ReactionRepository {
	return &reactionRepository[models.UserCheckin]{
		db:    db,
		table: "user_checkins",
		row: func(userID, postID string) *models.UserCheckin {
			return &models.UserCheckin{UserID: userID, PostID: postID}
		},
	}
}

// NewReportRepository manages user_reports.
func NewReportRepository(db *gorm.DB) ReactionRepository {
	return &reactionRepository[models.UserReport]{
		db:    db,
		table: "user_reports",
		row: func(userID, postID string) *models.UserReport {
			return &models.UserReport{UserID: userID, PostID: postID}
		},
	}
}

func (r *reactionRepository[T]) Add(ctx context.Context, userID, postID string) (bool, error) {
	defer observability.TrackQuery("insert", r.table)()
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(r.row(userID, postID))
	return res.RowsAffected > 0, res.Error
}

func (r *reactionRepository[T]) Remove(ctx context.Context, userID, postID string) (bool, error) {
	defer observability.TrackQuery("delete", r.table)()
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(new(T))
	return res.RowsAffected > 0, res.Error
}

func (r *reactionRepository[T]) Has(ctx context.Context, userID, postID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(new(T)).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Count(&n).Error
	return n > 0, err
}

func (r *reactionRepository[T]) Count(ctx context.Context, postID string) (int64, error) {
	defer observability.TrackQuery("count", r.table)()
	var n int64
	err := r.db.WithContext(ctx).Model(new(T)).Where("post_id = ?", postID).Count(&n).Error
	return n, err
}
