// Package seed creates demo data for development databases. It is not used
// by the API at runtime.
package seed

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"uboard/internal/models"
	"uboard/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
)

// DefaultPassword is the plain-text password of every seeded user.
const DefaultPassword = "password123"

// PostTypes are the categories seeded posts are drawn from.
var PostTypes = []string{models.PostTypeEvents, "General", "Housing", "Buy & Sell", "Lost & Found"}

var tagPool = []string{
	"free", "campus", "weekend", "music", "sports", "study", "food",
	"volunteer", "outdoors", "tech", "books", "furniture", "pets",
}

// Factory builds domain entities and persists them through the repositories.
type Factory struct {
	store repository.Store
	opts  Options
	rng   *rand.Rand
	// synthetic ID counter when running in DryRun mode
	nextID int
}

// NewFactory creates a Factory bound to store. store may be nil in DryRun mode.
func NewFactory(store repository.Store, opts Options) *Factory {
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gofakeit.Seed(seed)
	//nolint:gosec // Weak random number generator is fine for seeding
	return &Factory{store: store, opts: opts, rng: rand.New(rand.NewSource(seed))}
}

func (f *Factory) dryID(kind string) string {
	f.nextID++
	return fmt.Sprintf("dry-%s-%d", kind, f.nextID)
}

// BuildUser returns an unsaved user with a hashed DefaultPassword.
func (f *Factory) BuildUser(overrides ...func(*models.User)) *models.User {
	first := gofakeit.FirstName()
	last := gofakeit.LastName()
	handle := strings.ToLower(first+"."+last) + fmt.Sprintf("%d", gofakeit.Number(100, 999))

	user := &models.User{
		FirstName: first,
		LastName:  last,
		UserName:  handle,
		Email:     handle + "@example.com",
		Confirmed: true,
	}

	if f.opts.SkipBcrypt {
		user.Password = DefaultPassword
	} else {
		hashed, _ := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
		user.Password = string(hashed)
	}

	for _, override := range overrides {
		override(user)
	}
	return user
}

// CreateUser persists a sample user.
func (f *Factory) CreateUser(ctx context.Context, overrides ...func(*models.User)) (*models.User, error) {
	user := f.BuildUser(overrides...)
	if f.opts.DryRun {
		user.ID = f.dryID("user")
		log.Printf("[dry-run] CreateUser: %s", user.UserName)
		return user, nil
	}
	if err := f.store.Users().Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPost returns an unsaved post of postType authored by user. Events get a
// location and a capacity; other types are uncapped.
func (f *Factory) BuildPost(user *models.User, postType string, overrides ...func(*models.Post)) *models.Post {
	post := &models.Post{
		Type:   postType,
		Title:  strings.TrimSuffix(gofakeit.Sentence(5), "."),
		Body:   gofakeit.Paragraph(1, 3, 8, "\n"),
		UserID: user.ID,
	}

	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.rng.Intn(maxDays))*24*time.Hour +
		time.Duration(f.rng.Intn(24))*time.Hour +
		time.Duration(f.rng.Intn(60))*time.Minute
	post.CreatedAt = time.Now().Add(-back)

	if postType == models.PostTypeEvents {
		addr := gofakeit.Address()
		post.Location = addr.Street + ", " + addr.City
		post.Capacity = gofakeit.Number(5, 60)
		post.Coords = &models.Coords{Lat: addr.Latitude, Lng: addr.Longitude}
	} else if f.rng.Float32() < 0.3 {
		post.Location = gofakeit.City()
	}

	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePost persists a post and links up to MaxTags random tags.
func (f *Factory) CreatePost(ctx context.Context, user *models.User, postType string, overrides ...func(*models.Post)) (*models.Post, error) {
	post := f.BuildPost(user, postType, overrides...)
	if f.opts.DryRun {
		post.ID = f.dryID("post")
		log.Printf("[dry-run] CreatePost: type=%s user=%s title=%q", post.Type, post.UserID, post.Title)
		return post, nil
	}

	tags := f.pickTags()
	err := f.store.Atomic(ctx, func(tx repository.Store) error {
		if err := tx.Posts().Create(ctx, post); err != nil {
			return err
		}
		for _, text := range tags {
			tag, err := tx.Tags().FindOrCreate(ctx, text)
			if err != nil {
				return err
			}
			if err := tx.Tags().Link(ctx, post.ID, tag.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

func (f *Factory) pickTags() []string {
	n := f.rng.Intn(4)
	picked := make([]string, 0, n)
	for _, i := range f.rng.Perm(len(tagPool))[:n] {
		picked = append(picked, tagPool[i])
	}
	return picked
}

// CreateComment persists a comment whose body fits the allowed length range.
func (f *Factory) CreateComment(ctx context.Context, user *models.User, post *models.Post) (*models.Comment, error) {
	body := gofakeit.Sentence(8)
	for len([]rune(body)) < models.CommentMinLength {
		body += " " + gofakeit.Word()
	}
	if r := []rune(body); len(r) > models.CommentMaxLength {
		body = string(r[:models.CommentMaxLength])
	}

	comment := &models.Comment{Body: body, UserID: user.ID, PostID: post.ID}
	if f.opts.DryRun {
		comment.ID = f.dryID("comment")
		return comment, nil
	}
	if err := f.store.Comments().Create(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// CreateLike records a like. Repeated calls are no-ops.
func (f *Factory) CreateLike(ctx context.Context, user *models.User, post *models.Post) error {
	if f.opts.DryRun {
		return nil
	}
	_, err := f.store.Likes().Add(ctx, user.ID, post.ID)
	return err
}

// CreateCheckin checks user into an event, leaving it below capacity.
func (f *Factory) CreateCheckin(ctx context.Context, user *models.User, post *models.Post) error {
	if f.opts.DryRun || !post.IsEvent() {
		return nil
	}
	count, err := f.store.Checkins().Count(ctx, post.ID)
	if err != nil {
		return err
	}
	if post.Capacity > 0 && count >= int64(post.Capacity) {
		return nil
	}
	_, err = f.store.Checkins().Add(ctx, user.ID, post.ID)
	return err
}
