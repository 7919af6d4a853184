package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"uboard/internal/middleware"
	"uboard/internal/models"
	"uboard/internal/observability"
	"uboard/internal/repository"
)

const (
	// MaxResults caps every paginated read.
	MaxResults = 50
	// MaxReports is the report count at which a post is removed.
	MaxReports = 3
	// MaxTags is the number of tags kept per post.
	MaxTags = 3

	// Column widths, counted in characters.
	MaxTitleLength    = 255
	MaxLocationLength = 255
	MaxTagLength      = 64
)

// UploadedFile is a file already spooled to local disk by the transport.
type UploadedFile struct {
	Filename string
	Path     string
}

// FileManager stores post attachments and returns their public URL.
// Remove deletes a stored attachment by that URL; a missing file is not an error.
type FileManager interface {
	Status() bool
	Upload(ctx context.Context, path, filename string) (string, error)
	Remove(ctx context.Context, url string) error
}

type PostService struct {
	store  repository.Store
	files  FileManager
	events Publisher
}

type CreatePostInput struct {
	AuthorID string
	Type     string
	Title    string
	Body     string
	Location string
	Capacity *int
	Tags     []string
	Coords   *models.Coords
	File     *UploadedFile
}

// UpdatePostInput carries a partial update. Nil fields keep their value.
type UpdatePostInput struct {
	UserID   string
	PostID   string
	Title    *string
	Body     *string
	Location *string
	Capacity *int
	Coords   *models.Coords
}

type ListPostsInput struct {
	UserID string
	Type   string
	Limit  int
	Offset int
}

type SearchPostsInput struct {
	UserID string
	Type   string
	Query  string
	Limit  int
	Offset int
}

// ReportResult is the outcome of a report.
type ReportResult struct {
	Count   int64 `json:"count"`
	Deleted bool  `json:"deleted"`
}

func NewPostService(store repository.Store, files FileManager, events Publisher) *PostService {
	return &PostService{
		store:  store,
		files:  files,
		events: publisherOrNop(events),
	}
}

func (s *PostService) Create(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	postType := strings.TrimSpace(in.Type)
	title := strings.TrimSpace(in.Title)
	body := strings.TrimSpace(in.Body)
	location := strings.TrimSpace(in.Location)

	if postType == "" || title == "" || body == "" {
		return nil, models.NewValidationError("Type, title and body are required")
	}
	if postType == models.PostTypeAll {
		return nil, models.NewValidationError("Invalid post type")
	}
	if in.Capacity == nil {
		return nil, models.NewValidationError("Capacity is required")
	}
	if *in.Capacity < 0 {
		return nil, models.NewValidationError("Capacity cannot be negative")
	}
	if postType == models.PostTypeEvents && location == "" {
		return nil, models.NewValidationError("Location is required for events")
	}
	if err := checkLengths(title, location); err != nil {
		return nil, err
	}
	tags := NormalizeTags(in.Tags)
	for _, tag := range tags {
		if utf8.RuneCountInString(tag) > MaxTagLength {
			return nil, models.NewValidationError(fmt.Sprintf("Tags must be at most %d characters", MaxTagLength))
		}
	}

	post := &models.Post{
		Type:     postType,
		Title:    title,
		Body:     body,
		Location: location,
		Capacity: *in.Capacity,
		Coords:   in.Coords,
		UserID:   in.AuthorID,
	}

	if in.File != nil {
		if s.files == nil || !s.files.Status() {
			return nil, models.NewUploadDisabledError()
		}
		url, err := s.files.Upload(ctx, in.File.Path, in.File.Filename)
		if err != nil {
			return nil, storeErr(ctx, "File", "upload thumbnail", in.File.Filename, err)
		}
		post.Thumbnail = &url
	}

	err := s.store.Atomic(ctx, func(tx repository.Store) error {
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
			post.Tags = append(post.Tags, models.PostTag{PostID: post.ID, TagID: tag.ID, Text: tag.Text})
		}
		return nil
	})
	if err != nil {
		s.discardThumbnail(ctx, post.Thumbnail)
		return nil, storeErr(ctx, "Post", "create post", in.AuthorID, err)
	}
	post.DeriveFlags()

	observability.PostEventsTotal.WithLabelValues("created").Inc()
	s.events.Publish(ctx, EventPostCreated, map[string]interface{}{
		"postId": post.ID,
		"type":   post.Type,
		"title":  post.Title,
		"userId": post.UserID,
	})
	return post, nil
}

// discardThumbnail removes an upload whose post was never stored, unless
// another post already points at the same content-addressed file.
func (s *PostService) discardThumbnail(ctx context.Context, url *string) {
	if url == nil {
		return
	}
	inUse, err := s.store.Posts().CountByThumbnail(ctx, *url)
	if err == nil && inUse > 0 {
		return
	}
	if err == nil {
		err = s.files.Remove(ctx, *url)
	}
	if err != nil {
		middleware.Logger.WarnContext(ctx, "thumbnail cleanup failed",
			slog.String("url", *url),
			slog.String("error", err.Error()),
		)
	}
}

func checkLengths(title, location string) error {
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return models.NewValidationError(fmt.Sprintf("Title must be at most %d characters", MaxTitleLength))
	}
	if utf8.RuneCountInString(location) > MaxLocationLength {
		return models.NewValidationError(fmt.Sprintf("Location must be at most %d characters", MaxLocationLength))
	}
	return nil
}

// NormalizeTags trims tags, drops blanks and duplicates, and keeps the first MaxTags.
func NormalizeTags(raw []string) []string {
	out := make([]string, 0, MaxTags)
	seen := make(map[string]struct{}, len(raw))
	for _, t := range raw {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
		if len(out) == MaxTags {
			break
		}
	}
	return out
}

func (s *PostService) Get(ctx context.Context, userID, postID string) (*models.Post, error) {
	post, err := s.store.Posts().GetByID(ctx, postID, userID)
	if err != nil {
		return nil, storeErr(ctx, "Post", "get post", postID, err)
	}
	return post, nil
}

func (s *PostService) List(ctx context.Context, in ListPostsInput) (models.Page[*models.Post], error) {
	return s.list(ctx, repository.PostQuery{
		Type:   in.Type,
		Limit:  clampLimit(in.Limit),
		Offset: clampOffset(in.Offset),
	}, in.UserID)
}

// ListByUser lists posts written by authorID.
func (s *PostService) ListByUser(ctx context.Context, userID, authorID string, limit, offset int) (models.Page[*models.Post], error) {
	if _, err := s.store.Users().GetByID(ctx, authorID); err != nil {
		return models.Page[*models.Post]{}, storeErr(ctx, "User", "get user", authorID, err)
	}
	return s.list(ctx, repository.PostQuery{
		AuthorID: authorID,
		Limit:    clampLimit(limit),
		Offset:   clampOffset(offset),
	}, userID)
}

func (s *PostService) list(ctx context.Context, q repository.PostQuery, viewerID string) (models.Page[*models.Post], error) {
	posts, err := s.store.Posts().List(ctx, q, viewerID)
	if err != nil {
		return models.Page[*models.Post]{}, storeErr(ctx, "Post", "list posts", q.Type, err)
	}
	total, err := s.store.Posts().Count(ctx, q)
	if err != nil {
		return models.Page[*models.Post]{}, storeErr(ctx, "Post", "count posts", q.Type, err)
	}
	return models.Page[*models.Post]{Items: posts, Total: total}, nil
}

func (s *PostService) Search(ctx context.Context, in SearchPostsInput) (models.Page[*models.Post], error) {
	text := strings.TrimSpace(in.Query)
	if text == "" {
		return models.Page[*models.Post]{}, models.NewValidationError("Search query is required")
	}
	q := repository.SearchQuery{
		Text:   text,
		Type:   in.Type,
		Limit:  clampLimit(in.Limit),
		Offset: clampOffset(in.Offset),
	}
	posts, err := s.store.Posts().Search(ctx, q, in.UserID)
	if err != nil {
		return models.Page[*models.Post]{}, storeErr(ctx, "Post", "search posts", text, err)
	}
	total, err := s.store.Posts().SearchCount(ctx, q)
	if err != nil {
		return models.Page[*models.Post]{}, storeErr(ctx, "Post", "count search", text, err)
	}
	return models.Page[*models.Post]{Items: posts, Total: total}, nil
}

func (s *PostService) Update(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.store.Posts().FindByID(ctx, in.PostID)
	if err != nil {
		return nil, storeErr(ctx, "Post", "get post", in.PostID, err)
	}
	if post.UserID != in.UserID {
		return nil, models.NewUnauthorizedError("You can only update your own posts")
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, models.NewValidationError("Title cannot be blank")
		}
		post.Title = title
	}
	if in.Body != nil {
		body := strings.TrimSpace(*in.Body)
		if body == "" {
			return nil, models.NewValidationError("Body cannot be blank")
		}
		post.Body = body
	}
	if in.Location != nil {
		post.Location = strings.TrimSpace(*in.Location)
		if post.IsEvent() && post.Location == "" {
			return nil, models.NewValidationError("Location is required for events")
		}
	}
	if in.Capacity != nil {
		if *in.Capacity < 0 {
			return nil, models.NewValidationError("Capacity cannot be negative")
		}
		post.Capacity = *in.Capacity
	}
	if in.Coords != nil {
		post.Coords = in.Coords
	}
	if err := checkLengths(post.Title, post.Location); err != nil {
		return nil, err
	}

	if err := s.store.Posts().Update(ctx, post); err != nil {
		return nil, storeErr(ctx, "Post", "update post", in.PostID, err)
	}
	return s.Get(ctx, in.UserID, in.PostID)
}

func (s *PostService) Delete(ctx context.Context, userID, postID string) error {
	post, err := s.store.Posts().FindByID(ctx, postID)
	if err != nil {
		return storeErr(ctx, "Post", "get post", postID, err)
	}
	if post.UserID != userID {
		return models.NewUnauthorizedError("You can only delete your own posts")
	}
	if err := s.store.Posts().Delete(ctx, postID); err != nil {
		return storeErr(ctx, "Post", "delete post", postID, err)
	}

	observability.PostEventsTotal.WithLabelValues("deleted").Inc()
	s.events.Publish(ctx, EventPostDeleted, map[string]interface{}{"postId": postID})
	return nil
}

// Upvote records a like. Liking twice is a no-op.
func (s *PostService) Upvote(ctx context.Context, userID, postID string) error {
	if _, err := s.store.Posts().FindByID(ctx, postID); err != nil {
		return storeErr(ctx, "Post", "get post", postID, err)
	}
	added, err := s.store.Likes().Add(ctx, userID, postID)
	if err != nil {
		return storeErr(ctx, "Post", "upvote", postID, err)
	}
	if added {
		s.reactionUpdated(ctx, postID, "upvote")
	}
	return nil
}

// Downvote removes a like and reports whether one existed.
func (s *PostService) Downvote(ctx context.Context, userID, postID string) (bool, error) {
	if _, err := s.store.Posts().FindByID(ctx, postID); err != nil {
		return false, storeErr(ctx, "Post", "get post", postID, err)
	}
	removed, err := s.store.Likes().Remove(ctx, userID, postID)
	if err != nil {
		return false, storeErr(ctx, "Post", "downvote", postID, err)
	}
	if removed {
		s.reactionUpdated(ctx, postID, "downvote")
	}
	return removed, nil
}

// Report records a report and deletes the post once MaxReports is reached.
func (s *PostService) Report(ctx context.Context, userID, postID string) (ReportResult, error) {
	var result ReportResult
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		if _, err := tx.Posts().LockByID(ctx, postID); err != nil {
			return err
		}
		if _, err := tx.Reports().Add(ctx, userID, postID); err != nil {
			return err
		}
		count, err := tx.Reports().Count(ctx, postID)
		if err != nil {
			return err
		}
		result.Count = count
		if count < MaxReports {
			return nil
		}
		if err := tx.Posts().Delete(ctx, postID); err != nil {
			return err
		}
		result.Deleted = true
		return nil
	})
	if err != nil {
		return ReportResult{}, storeErr(ctx, "Post", "report", postID, err)
	}

	observability.PostEventsTotal.WithLabelValues("reported").Inc()
	if result.Deleted {
		observability.ReportDeletions.Inc()
		s.events.Publish(ctx, EventPostDeleted, map[string]interface{}{"postId": postID, "reason": "reports"})
	}
	return result, nil
}

// Checkin reserves a spot. A capacity of zero means unlimited.
func (s *PostService) Checkin(ctx context.Context, userID, postID string) error {
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		post, err := tx.Posts().LockByID(ctx, postID)
		if err != nil {
			return err
		}
		already, err := tx.Checkins().Has(ctx, userID, postID)
		if err != nil || already {
			// An existing attendee stays checked in even when the event is full.
			return err
		}
		if post.Capacity > 0 {
			count, err := tx.Checkins().Count(ctx, postID)
			if err != nil {
				return err
			}
			if count+1 > int64(post.Capacity) {
				observability.CheckinRejections.Inc()
				return models.NewCapacityExceededError(postID)
			}
		}
		_, err = tx.Checkins().Add(ctx, userID, postID)
		return err
	})
	if err != nil {
		return storeErr(ctx, "Post", "checkin", postID, err)
	}
	s.reactionUpdated(ctx, postID, "checkin")
	return nil
}

// Checkout releases a spot and reports whether the user held one.
func (s *PostService) Checkout(ctx context.Context, userID, postID string) (bool, error) {
	if _, err := s.store.Posts().FindByID(ctx, postID); err != nil {
		return false, storeErr(ctx, "Post", "get post", postID, err)
	}
	removed, err := s.store.Checkins().Remove(ctx, userID, postID)
	if err != nil {
		return false, storeErr(ctx, "Post", "checkout", postID, err)
	}
	if removed {
		s.reactionUpdated(ctx, postID, "checkout")
	}
	return removed, nil
}

func (s *PostService) reactionUpdated(ctx context.Context, postID, action string) {
	observability.PostEventsTotal.WithLabelValues(action).Inc()
	s.events.Publish(ctx, EventPostReactionUpdated, map[string]interface{}{
		"postId": postID,
		"action": action,
	})
}
