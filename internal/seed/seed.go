package seed

import (
	"context"
	"fmt"
	"log"

	"uboard/internal/models"
	"uboard/internal/repository"

	"gorm.io/gorm"
)

// Options configures the seeder.
type Options struct {
	NumUsers           int
	NumPosts           int
	MaxCommentsPerPost int
	MaxLikesPerPost    int
	ShouldClean        bool
	SkipBcrypt         bool
	DryRun             bool
	MaxDays            int
	RandSeed           int64
}

// Result reports what a seed run created.
type Result struct {
	Users    []*models.User
	Posts    []*models.Post
	Comments int
}

// Seed populates db with demo users, posts, tags, comments, likes and checkins.
func Seed(ctx context.Context, db *gorm.DB, opts Options) (*Result, error) {
	log.Printf("Seeding database with %d users and %d posts...", opts.NumUsers, opts.NumPosts)
	if opts.NumUsers <= 0 {
		return nil, fmt.Errorf("NumUsers must be positive")
	}
	if db == nil && !opts.DryRun {
		return nil, fmt.Errorf("a database is required unless DryRun is set")
	}

	if opts.ShouldClean && !opts.DryRun {
		if err := clearData(db); err != nil {
			return nil, fmt.Errorf("clear existing data: %w", err)
		}
	}

	var store repository.Store
	if db != nil {
		store = repository.NewStore(db)
	}
	f := NewFactory(store, opts)
	res := &Result{}

	for i := 0; i < opts.NumUsers; i++ {
		user, err := f.CreateUser(ctx, func(u *models.User) {
			if i == 0 {
				u.UserName = "demo"
				u.Email = "demo@example.com"
			}
		})
		if err != nil {
			return nil, fmt.Errorf("create user %d: %w", i, err)
		}
		res.Users = append(res.Users, user)
	}
	log.Printf("created %d users", len(res.Users))

	for i := 0; i < opts.NumPosts; i++ {
		author := res.Users[f.rng.Intn(len(res.Users))]
		postType := PostTypes[f.rng.Intn(len(PostTypes))]
		post, err := f.CreatePost(ctx, author, postType)
		if err != nil {
			return nil, fmt.Errorf("create post %d: %w", i, err)
		}
		res.Posts = append(res.Posts, post)

		n, err := f.interact(ctx, post, res.Users)
		if err != nil {
			return nil, fmt.Errorf("seed interactions for post %s: %w", post.ID, err)
		}
		res.Comments += n
	}
	log.Printf("created %d posts and %d comments", len(res.Posts), res.Comments)

	return res, nil
}

func (f *Factory) interact(ctx context.Context, post *models.Post, users []*models.User) (int, error) {
	comments := 0
	if f.opts.MaxCommentsPerPost > 0 {
		for n := f.rng.Intn(f.opts.MaxCommentsPerPost + 1); n > 0; n-- {
			if _, err := f.CreateComment(ctx, users[f.rng.Intn(len(users))], post); err != nil {
				return comments, err
			}
			comments++
		}
	}

	if f.opts.MaxLikesPerPost > 0 {
		for n := f.rng.Intn(f.opts.MaxLikesPerPost + 1); n > 0; n-- {
			user := users[f.rng.Intn(len(users))]
			if err := f.CreateLike(ctx, user, post); err != nil {
				return comments, err
			}
			if err := f.CreateCheckin(ctx, user, post); err != nil {
				return comments, err
			}
		}
	}
	return comments, nil
}

func clearData(db *gorm.DB) error {
	log.Println("clearing existing data...")
	if db.Dialector.Name() == "postgres" {
		return db.Exec(`TRUNCATE TABLE user_reports, user_checkins, user_post_likes, comments, post_tags, tags, posts, users CASCADE`).Error
	}
	for _, table := range []string{"user_reports", "user_checkins", "user_post_likes", "comments", "post_tags", "tags", "posts", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return err
		}
	}
	return nil
}
