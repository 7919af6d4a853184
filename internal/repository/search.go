package repository

import (
	"context"
	"errors"

	"uboard/internal/models"
	"uboard/internal/observability"
)

// ErrSearchUnsupported is returned when the database has no full-text engine.
var ErrSearchUnsupported = errors.New("full-text search requires PostgreSQL")

// searchFrom joins each post with its author and its space-joined tag text.
const searchFrom = `FROM posts
	JOIN users ON users.id = posts.user_id
	LEFT JOIN (
		SELECT post_tags.post_id, string_agg(tags.text, ' ') AS text
		FROM post_tags JOIN tags ON tags.id = post_tags.tag_id
		GROUP BY post_tags.post_id
	) AS tag_text ON tag_text.post_id = posts.id
	CROSS JOIN plainto_tsquery('english', ?) AS query`

// searchDocument weights title A, author B, tags and location C, body D.
const searchDocument = `(
	setweight(to_tsvector('english', coalesce(posts.title, '')), 'A') ||
	setweight(to_tsvector('english', coalesce(users.first_name, '') || ' ' || coalesce(users.last_name, '')), 'B') ||
	setweight(to_tsvector('english', coalesce(tag_text.text, '') || ' ' || coalesce(posts.location, '')), 'C') ||
	setweight(to_tsvector('english', coalesce(posts.body, '')), 'D')
)`

const searchWhere = `WHERE query @@ ` + searchDocument + `
	AND (posts.type = ? OR ? = 'All')`

const searchSQL = `SELECT ` + postDetailsColumns + `,
	ts_rank_cd(` + searchDocument + `, query, 1|4) AS rank
	` + searchFrom + `
	` + searchWhere + `
	ORDER BY rank DESC, posts.created_at DESC
	LIMIT ? OFFSET ?`

const searchCountSQL = `SELECT COUNT(*) ` + searchFrom + `
	` + searchWhere

func searchType(t string) string {
	if t == "" {
		return models.PostTypeAll
	}
	return t
}

// Search ranks posts whose weighted document matches q.Text.
func (r *postRepository) Search(ctx context.Context, q SearchQuery, viewerID string) ([]*models.Post, error) {
	if !isPostgres(r.db) {
		return nil, ErrSearchUnsupported
	}
	ctx, span := observability.StartRepositorySpan(ctx, "Search", "posts")
	var err error
	defer func() { observability.EndSpan(span, err) }()
	defer observability.TrackQuery("search", "posts")()

	postType := searchType(q.Type)
	var posts []*models.Post
	err = r.db.WithContext(ctx).
		Raw(searchSQL, viewerID, viewerID, viewerID, q.Text, postType, postType, q.Limit, q.Offset).
		Scan(&posts).Error
	if err != nil {
		return nil, err
	}
	err = r.attachTags(ctx, posts)
	return posts, err
}

// SearchCount counts every match of q.Text, ignoring pagination.
func (r *postRepository) SearchCount(ctx context.Context, q SearchQuery) (int64, error) {
	if !isPostgres(r.db) {
		return 0, ErrSearchUnsupported
	}
	postType := searchType(q.Type)
	var total int64
	err := r.db.WithContext(ctx).Raw(searchCountSQL, q.Text, postType, postType).Scan(&total).Error
	return total, err
}
