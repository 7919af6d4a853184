package repository

import (
	"context"
	"errors"

	"uboard/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TagRepository resolves reusable tags and their links to posts.
type TagRepository interface {
	FindOrCreate(ctx context.Context, text string) (*models.Tag, error)
	Link(ctx context.Context, postID, tagID string) error
	ForPosts(ctx context.Context, postIDs []string) (map[string][]models.PostTag, error)
	GetByText(ctx context.Context, text string) (*models.Tag, error)
}

type tagRepository struct {
	db *gorm.DB
}

// NewTagRepository creates a new TagRepository
func NewTagRepository(db *gorm.DB) TagRepository {
	return &tagRepository{db: db}
}

// FindOrCreate inserts text if no tag carries it yet and returns the stored row.
func (r *tagRepository) FindOrCreate(ctx context.Context, text string) (*models.Tag, error) {
	db := r.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.Tag{Text: text}).Error; err != nil {
		return nil, err
	}
	return r.GetByText(ctx, text)
}

func (r *tagRepository) GetByText(ctx context.Context, text string) (*models.Tag, error) {
	var tag models.Tag
	if err := r.db.WithContext(ctx).Where("text = ?", text).First(&tag).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

func (r *tagRepository) Link(ctx context.Context, postID, tagID string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.PostTagLink{PostID: postID, TagID: tagID}).Error
}

// ForPosts loads the tags of every post in postIDs, keyed by post id.
func (r *tagRepository) ForPosts(ctx context.Context, postIDs []string) (map[string][]models.PostTag, error) {
	out := make(map[string][]models.PostTag, len(postIDs))
	if len(postIDs) == 0 {
		return out, nil
	}

	var rows []models.PostTag
	err := r.db.WithContext(ctx).
		Table("post_tags").
		Select("post_tags.post_id, tags.id AS tag_id, tags.text").
		Joins("JOIN tags ON tags.id = post_tags.tag_id").
		Where("post_tags.post_id IN ?", postIDs).
		Order("tags.text ASC").
		Scan(&rows).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	for _, row := range rows {
		out[row.PostID] = append(out[row.PostID], row)
	}
	return out, nil
}
