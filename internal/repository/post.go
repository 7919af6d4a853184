package repository

import (
	"context"

	"uboard/internal/models"
	"uboard/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostQuery filters list reads. Empty Type or "All" matches every type.
type PostQuery struct {
	Type     string
	AuthorID string
	Limit    int
	Offset   int
}

// SearchQuery filters ranked full-text reads.
type SearchQuery struct {
	Text   string
	Type   string
	Limit  int
	Offset int
}

// PostRepository defines interface for post operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	// GetByID returns the post with counters and flags for viewerID.
	GetByID(ctx context.Context, id, viewerID string) (*models.Post, error)
	// FindByID returns the stored row only.
	FindByID(ctx context.Context, id string) (*models.Post, error)
	// LockByID reads the stored row and holds a row lock until the
	// surrounding transaction ends.
	LockByID(ctx context.Context, id string) (*models.Post, error)
	List(ctx context.Context, q PostQuery, viewerID string) ([]*models.Post, error)
	Count(ctx context.Context, q PostQuery) (int64, error)
	Search(ctx context.Context, q SearchQuery, viewerID string) ([]*models.Post, error)
	SearchCount(ctx context.Context, q SearchQuery) (int64, error)
	// CountByThumbnail counts stored posts that reference url.
	CountByThumbnail(ctx context.Context, url string) (int64, error)
	Update(ctx context.Context, post *models.Post) error
	// Delete removes the post with its comments, tag links and reactions.
	Delete(ctx context.Context, id string) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new PostRepository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// postDetailsColumns projects the derived counters. The three placeholders
// all bind the viewer id.
const postDetailsColumns = `posts.*, users.first_name, users.last_name,
	(SELECT COUNT(*) FROM user_post_likes l WHERE l.post_id = posts.id) AS like_count,
	(SELECT COUNT(*) FROM user_post_likes l WHERE l.post_id = posts.id AND l.user_id = ?) AS user_like_count,
	(SELECT COUNT(*) FROM user_checkins c WHERE c.post_id = posts.id) AS users_checked_in,
	(SELECT COUNT(*) FROM user_checkins c WHERE c.post_id = posts.id AND c.user_id = ?) AS user_checkin_count,
	(SELECT COUNT(*) FROM user_reports r WHERE r.post_id = posts.id AND r.user_id = ?) AS user_report_count,
	(SELECT COUNT(*) FROM comments m WHERE m.post_id = posts.id) AS total_comments`

func applyPostDetails(db *gorm.DB, viewerID string) *gorm.DB {
	return db.Model(&models.Post{}).
		Select(postDetailsColumns, viewerID, viewerID, viewerID).
		Joins("JOIN users ON users.id = posts.user_id")
}

func applyPostFilter(db *gorm.DB, q PostQuery) *gorm.DB {
	if q.Type != "" && q.Type != models.PostTypeAll {
		db = db.Where("posts.type = ?", q.Type)
	}
	if q.AuthorID != "" {
		db = db.Where("posts.user_id = ?", q.AuthorID)
	}
	return db
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery("create", "posts")()
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *postRepository) GetByID(ctx context.Context, id, viewerID string) (*models.Post, error) {
	defer observability.TrackQuery("get", "posts")()
	var post models.Post
	err := applyPostDetails(r.db.WithContext(ctx), viewerID).
		Where("posts.id = ?", id).
		Take(&post).Error
	if err != nil {
		return nil, err
	}

	posts := []*models.Post{&post}
	if err := r.attachTags(ctx, posts); err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) FindByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) LockByID(ctx context.Context, id string) (*models.Post, error) {
	db := r.db.WithContext(ctx)
	if isPostgres(db) {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var post models.Post
	if err := db.Where("id = ?", id).Take(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) List(ctx context.Context, q PostQuery, viewerID string) ([]*models.Post, error) {
	ctx, span := observability.StartRepositorySpan(ctx, "List", "posts")
	var err error
	defer func() { observability.EndSpan(span, err) }()
	defer observability.TrackQuery("list", "posts")()

	var posts []*models.Post
	err = applyPostFilter(applyPostDetails(r.db.WithContext(ctx), viewerID), q).
		Order("posts.created_at DESC").
		Limit(q.Limit).
		Offset(q.Offset).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	err = r.attachTags(ctx, posts)
	return posts, err
}

func (r *postRepository) Count(ctx context.Context, q PostQuery) (int64, error) {
	var total int64
	err := applyPostFilter(r.db.WithContext(ctx).Model(&models.Post{}), q).Count(&total).Error
	return total, err
}

func (r *postRepository) CountByThumbnail(ctx context.Context, url string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Post{}).Where("thumbnail = ?", url).Count(&total).Error
	return total, err
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery("update", "posts")()
	post.FlattenCoords()
	return r.db.WithContext(ctx).
		Model(post).
		Select("title", "body", "location", "capacity", "lat", "lng", "updated_at").
		Updates(post).Error
}

func (r *postRepository) Delete(ctx context.Context, id string) error {
	defer observability.TrackQuery("delete", "posts")()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dependents := []interface{}{
			&models.UserPostLike{},
			&models.UserCheckin{},
			&models.UserReport{},
			&models.Comment{},
			&models.PostTagLink{},
		}
		for _, model := range dependents {
			if err := tx.Where("post_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}
		res := tx.Where("id = ?", id).Delete(&models.Post{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *postRepository) attachTags(ctx context.Context, posts []*models.Post) error {
	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	tags, err := NewTagRepository(r.db).ForPosts(ctx, ids)
	if err != nil {
		return err
	}
	for _, p := range posts {
		p.Tags = tags[p.ID]
		p.DeriveFlags()
	}
	return nil
}
