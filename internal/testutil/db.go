// Package testutil provides shared test databases and fixtures.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"uboard/internal/database"
	"uboard/internal/middleware"
	"uboard/internal/models"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens a private in-memory SQLite database with the full schema.
// Foreign keys are enforced so cascades behave as on Postgres.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: database.NewGormLogger(middleware.Logger).LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return db
}

// CreateUser inserts a confirmed user named after handle.
func CreateUser(t *testing.T, db *gorm.DB, handle string) *models.User {
	t.Helper()
	u := &models.User{
		FirstName: "First" + handle,
		LastName:  "Last" + handle,
		UserName:  handle,
		Email:     handle + "@example.com",
		Password:  "hashed",
		Confirmed: true,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user %s: %v", handle, err)
	}
	return u
}

// PostOption customises a fixture post.
type PostOption func(*models.Post)

// WithType sets the post type.
func WithType(postType string) PostOption {
	return func(p *models.Post) { p.Type = postType }
}

// WithCapacity makes the post an event with the given capacity.
func WithCapacity(capacity int) PostOption {
	return func(p *models.Post) {
		p.Type = models.PostTypeEvents
		p.Capacity = capacity
		if p.Location == "" {
			p.Location = "Hart House"
		}
	}
}

// WithBody sets the post body.
func WithBody(body string) PostOption {
	return func(p *models.Post) { p.Body = body }
}

// CreatedAt pins the creation time.
func CreatedAt(ts time.Time) PostOption {
	return func(p *models.Post) { p.CreatedAt = ts }
}

// CreatePost inserts a post authored by author.
func CreatePost(t *testing.T, db *gorm.DB, author *models.User, title string, opts ...PostOption) *models.Post {
	t.Helper()
	p := &models.Post{
		Type:   "General",
		Title:  title,
		Body:   "Body of " + title,
		UserID: author.ID,
	}
	for _, opt := range opts {
		opt(p)
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("create post %s: %v", title, err)
	}
	return p
}
