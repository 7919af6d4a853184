package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"uboard/internal/models"
	"uboard/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostService_Create_Validation(t *testing.T) {
	t.Parallel()

	f := newPostFixture(t)
	author := testutil.CreateUser(t, f.db, "author")
	ctx := context.Background()

	valid := func() CreatePostInput {
		return CreatePostInput{
			AuthorID: author.ID,
			Type:     "General",
			Title:    "Lost keys",
			Body:     "Blue lanyard near the library",
			Capacity: intPtr(0),
		}
	}

	tests := []struct {
		name   string
		mutate func(*CreatePostInput)
	}{
		{"missing type", func(in *CreatePostInput) { in.Type = "" }},
		{"blank title", func(in *CreatePostInput) { in.Title = "   " }},
		{"missing body", func(in *CreatePostInput) { in.Body = "" }},
		{"missing capacity", func(in *CreatePostInput) { in.Capacity = nil }},
		{"negative capacity", func(in *CreatePostInput) { in.Capacity = intPtr(-1) }},
		{"filter type is not a post type", func(in *CreatePostInput) { in.Type = models.PostTypeAll }},
		{"event without location", func(in *CreatePostInput) {
			in.Type = models.PostTypeEvents
			in.Location = ""
		}},
		{"title too long", func(in *CreatePostInput) { in.Title = strings.Repeat("t", MaxTitleLength+1) }},
		{"location too long", func(in *CreatePostInput) { in.Location = strings.Repeat("l", MaxLocationLength+1) }},
		{"tag too long", func(in *CreatePostInput) { in.Tags = []string{"ok", strings.Repeat("g", MaxTagLength+1)} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid()
			tt.mutate(&in)
			_, err := f.svc.Create(ctx, in)
			assertValidationError(t, err)
		})
	}

	var count int64
	require.NoError(t, f.db.Model(&models.Post{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestPostService_Create_UploadDisabled(t *testing.T) {
	t.Parallel()

	f := newPostFixture(t)
	f.files.enabled = false
	author := testutil.CreateUser(t, f.db, "author")

	_, err := f.svc.Create(context.Background(), CreatePostInput{
		AuthorID: author.ID,
		Type:     "General",
		Title:    "Poster",
		Body:     "See attached",
		Capacity: intPtr(0),
		File:     &UploadedFile{Filename: "poster.png", Path: "/tmp/poster.png"},
	})
	assertCode(t, err, models.CodeUploadDisabled)
	assert.Equal(t, 0, f.files.calls)
	assert.Equal(t, fiber.StatusBadRequest, models.StatusForError(err))
}

func TestPostService_Create_StoresThumbnailAndTags(t *testing.T) {
	t.Parallel()

	f := newPostFixture(t)
	author := testutil.CreateUser(t, f.db, "author")
	ctx := context.Background()

	post, err := f.svc.Create(ctx, CreatePostInput{
		AuthorID: author.ID,
		Type:     models.PostTypeEvents,
		Title:    "Board game night",
		Body:     "Bring your favourite game",
		Location: "Hart House",
		Capacity: intPtr(12),
		Tags:     []string{"games", " social ", "games", "", "night", "extra"},
		Coords:   &models.Coords{Lat: 43.66, Lng: -79.39},
		File:     &UploadedFile{Filename: "poster.png", Path: "/tmp/poster.png"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, f.files.calls)
	require.NotNil(t, post.Thumbnail)
	assert.Equal(t, "/uploads/thumb.webp", *post.Thumbnail)
	require.Len(t, post.Tags, MaxTags)
	assert.Equal(t, []string{"games", "social", "night"}, tagTexts(post.Tags))
	assert.Zero(t, post.LikeCount)

	got, err := f.svc.Get(ctx, author.ID, post.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"games", "social", "night"}, tagTexts(got.Tags))
	require.NotNil(t, got.Coords)
	assert.InDelta(t, 43.66, got.Coords.Lat, 1e-9)
	assert.Equal(t, 12, got.Capacity)

	assert.Equal(t, []string{EventPostCreated}, f.events.names())
}

func TestPostService_Create_LengthsCountCharacters(t *testing.T) {
	t.Parallel()

	f := newPostFixture(t)
	author := testutil.CreateUser(t, f.db, "author")

	post, err := f.svc.Create(context.Background(), CreatePostInput{
		AuthorID: author.ID,
		Type:     "General",
		Title:    strings.Repeat("é", MaxTitleLength),
		Body:     "Accents count once",
		Capacity: intPtr(0),
		Tags:     []string{strings.Repeat("ü", MaxTagLength)},
	})
	require.NoError(t, err)
	assert.Equal(t, MaxTitleLength, len([]rune(post.Title)))
	require.Len(t, post.Tags, 1)
}

func TestPostService_Create_RemovesThumbnailOnFailure(t *testing.T) {
	t.Parallel()

	f := newPostFixture(t)
	_, err := f.svc.Create(context.Background(), CreatePostInput{
		AuthorID: "no-such-user",
		Type:     "General",
		Title:    "Orphan poster",
		Body:     "Author does not exist",
		Capacity: intPtr(0),
		File:     &UploadedFile{Filename: "poster.png", Path: "/tmp/poster.png"},
	})
	assertCode(t, err, models.CodeStoreFailure)
	assert.Equal(t, 1, f.files.calls)
	assert.Equal(t, []string{"/uploads/thumb.webp"}, f.files.removed)
}

func TestPostService_Create_KeepsSharedThumbnailOnFailure(t *testing.T) {
	t.Parallel()

	f := newPostFixture(t)
	author := testutil.CreateUser(t, f.db, "author")
	existing := testutil.CreatePost(t, f.db, author, "Same poster")
	require.NoError(t, f.db.Model(&models.Post{}).Where("id = ?", existing.ID).
		Update("thumbnail", "/uploads/thumb.webp").Error)

	_, err := f.svc.Create(context.Background(), CreatePostInput{
		AuthorID: "no-such-user",
		Type:     "General",
		Title:    "Orphan poster",
		Body:     "Author does not exist",
		Capacity: intPtr(0),
		File:     &UploadedFile{Filename: "poster.png", Path: "/tmp/poster.png"},
	})
	assertCode(t, err, models.CodeStoreFailure)
	assert.Empty(t, f.files.removed)
}

func TestPostService_Create_RollsBackOnFailure(t *testing.T) {
	t.Parallel()

	f := newPostFixture(t)
	_, err := f.svc.Create(context.Background(), CreatePostInput{
		AuthorID: "no-such-user",
		Type:     "General",
		Title:    "Orphan",
		Body:     "Author does not exist",
		Capacity: intPtr(0),
		Tags:     []string{"orphan"},
	})
	assertCode(t, err, models.CodeStoreFailure)

	var tags int64
	require.NoError(t, f.db.Model(&models.Tag{}).Count(&tags).Error)
	assert.Zero(t, tags)
	assert.Empty(t, f.events.names())
}

func TestNormalizeTags(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{}, NormalizeTags(nil))
	assert.Equal(t, []string{"a", "A", "b"}, NormalizeTags([]string{" a", "A", "a ", "b", "c"}))
	assert.Equal(t, []string{"x"}, NormalizeTags([]string{"", "  ", "x"}))
}

func TestPostService_Get_DerivedFieldsPerViewer(t *testing.T) {
	t.Parallel()

	f := newPostFixture(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, f.db, "author")
	fan := testutil.CreateUser(t, f.db, "fan")
	post := testutil.CreatePost(t, f.db, author, "Concert", testutil.WithCapacity(10))

	require.NoError(t, f.svc.Upvote(ctx, fan.ID, post.ID))
	require.NoError(t, f.svc.Upvote(ctx, fan.ID, post.ID))
	require.NoError(t, f.svc.Checkin(ctx, fan.ID, post.ID))
	_, err := f.svc.Report(ctx, fan.ID, post.ID)
	require.NoError(t, err)

	asFan, err := f.svc.Get(ctx, fan.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), asFan.LikeCount)
	assert.True(t, asFan.DoesUserLike)
	assert.Equal(t, int64(1), asFan.UsersCheckedIn)
	assert.True(t, asFan.IsUserCheckedIn)
	assert.True(t, asFan.DidUserReport)
	assert.Equal(t, "Firstauthor", asFan.FirstName)

	asAuthor, err := f.svc.Get(ctx, author.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), asAuthor.LikeCount)
	assert.False(t, asAuthor.DoesUserLike)
	assert.False(t, asAuthor.IsUserCheckedIn)
	assert.False(t, asAuthor.DidUserReport)
}

func TestPostService_Get_NotFound(t *testing.T) {
	t.Parallel()

	f := newPostFixture(t)
	_, err := f.svc.Get(context.Background(), "viewer", "missing")
	assertNotFoundError(t, err)
}

func TestPostService_List_CapsAndCounts(t *testing.T) {
	t.Parallel()

	f := newPostFixture(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, f.db, "author")
	for i := 0; i < MaxResults+5; i++ {
		testutil.CreatePost(t, f.db, author, fmt.Sprintf("Post %d", i))
	}
	testutil.CreatePost(t, f.db, author, "Meetup", testutil.WithCapacity(5))

	page, err := f.svc.List(ctx, ListPostsInput{UserID: author.ID, Limit: 500})
	require.NoError(t, err)
	assert.Len(t, page.Items, MaxResults)
	assert.Equal(t, int64(MaxResults+6), page.Total)
	assert.Equal(t, fiber.StatusOK, page.Status())

	page, err = f.svc.List(ctx, ListPostsInput{UserID: author.ID, Type: models.PostTypeEvents, Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(1), page.Total)

	page, err = f.svc.List(ctx, ListPostsInput{UserID: author.ID, Limit: 10, Offset: 1000})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, int64(MaxResults+6), page.Total)
	assert.Equal(t, fiber.StatusNoContent, page.Status())

	page, err = f.svc.List(ctx, ListPostsInput{UserID: author.ID, Type: "Housing"})
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, page.Status())
	assert.Zero(t, page.Total)
}

func TestPostService_ListByUser(t *testing.T) {
	t.Parallel()

	f := newPostFixture(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice")
	bob := testutil.CreateUser(t, f.db, "bob")
	testutil.CreatePost(t, f.db, alice, "Alice one")
	testutil.CreatePost(t, f.db, alice, "Alice two")
	testutil.CreatePost(t, f.db, bob, "Bob one")

	page, err := f.svc.ListByUser(ctx, bob.ID, alice.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, int64(2), page.Total)
	for _, p := range page.Items {
		assert.Equal(t, alice.ID, p.UserID)
	}

	_, err = f.svc.ListByUser(ctx, bob.ID, "ghost", 0, 0)
	assertNotFoundError(t, err)
}

func TestPostService_Search_RequiresQuery(t *testing.T) {
	t.Parallel()

	f := newPostFixture(t)
	_, err := f.svc.Search(context.Background(), SearchPostsInput{UserID: "u", Query: "   "})
	assertValidationError(t, err)
}

func TestPostService_Search_UnsupportedDialectIsStoreFailure(t *testing.T) {
	t.Parallel()

	f := newPostFixture(t)
	_, err := f.svc.Search(context.Background(), SearchPostsInput{UserID: "u", Query: "concert"})
	assertCode(t, err, models.CodeStoreFailure)
	assert.Equal(t, fiber.StatusInternalServerError, models.StatusForError(err))
}

func TestPostService_Update(t *testing.T) {
	t.Parallel()

	f := newPostFixture(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, f.db, "author")
	other := testutil.CreateUser(t, f.db, "other")
	post := testutil.CreatePost(t, f.db, author, "Study group", testutil.WithCapacity(4))

	_, err := f.svc.Update(ctx, UpdatePostInput{UserID: other.ID, PostID: post.ID, Title: strPtr("Mine now")})
	assertUnauthorizedError(t, err)

	_, err = f.svc.Update(ctx, UpdatePostInput{UserID: author.ID, PostID: "missing", Title: strPtr("x")})
	assertNotFoundError(t, err)

	_, err = f.svc.Update(ctx, UpdatePostInput{UserID: author.ID, PostID: post.ID, Title: strPtr(" ")})
	assertValidationError(t, err)

	_, err = f.svc.Update(ctx, UpdatePostInput{UserID: author.ID, PostID: post.ID, Location: strPtr("")})
	assertValidationError(t, err)

	_, err = f.svc.Update(ctx, UpdatePostInput{UserID: author.ID, PostID: post.ID, Title: strPtr(strings.Repeat("t", MaxTitleLength+1))})
	assertValidationError(t, err)

	_, err = f.svc.Update(ctx, UpdatePostInput{UserID: author.ID, PostID: post.ID, Location: strPtr(strings.Repeat("l", MaxLocationLength+1))})
	assertValidationError(t, err)

	updated, err := f.svc.Update(ctx, UpdatePostInput{
		UserID:   author.ID,
		PostID:   post.ID,
		Title:    strPtr("Study group (moved)"),
		Capacity: intPtr(8),
		Coords:   &models.Coords{Lat: 1.5, Lng: 2.5},
	})
	require.NoError(t, err)
	assert.Equal(t, "Study group (moved)", updated.Title)
	assert.Equal(t, post.Body, updated.Body)
	assert.Equal(t, "Hart House", updated.Location)
	assert.Equal(t, 8, updated.Capacity)
	require.NotNil(t, updated.Coords)
	assert.InDelta(t, 2.5, updated.Coords.Lng, 1e-9)
}

func TestPostService_Delete(t *testing.T) {
	t.Parallel()

	f := newPostFixture(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, f.db, "author")
	other := testutil.CreateUser(t, f.db, "other")
	post, err := f.svc.Create(ctx, CreatePostInput{
		AuthorID: author.ID,
		Type:     "General",
		Title:    "Free couch",
		Body:     "Pick up by Friday",
		Capacity: intPtr(0),
		Tags:     []string{"free"},
	})
	require.NoError(t, err)

	assertUnauthorizedError(t, f.svc.Delete(ctx, other.ID, post.ID))
	assertNotFoundError(t, f.svc.Delete(ctx, author.ID, "missing"))

	require.NoError(t, f.svc.Delete(ctx, author.ID, post.ID))
	_, err = f.svc.Get(ctx, author.ID, post.ID)
	assertNotFoundError(t, err)

	tag, err := f.store.Tags().GetByText(ctx, "free")
	require.NoError(t, err)
	assert.Equal(t, "free", tag.Text)
	assert.Contains(t, f.events.names(), EventPostDeleted)
}

func TestPostService_UpvoteDownvote(t *testing.T) {
	t.Parallel()

	f := newPostFixture(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, f.db, "author")
	fan := testutil.CreateUser(t, f.db, "fan")
	post := testutil.CreatePost(t, f.db, author, "Bake sale")

	removed, err := f.svc.Downvote(ctx, fan.ID, post.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	require.NoError(t, f.svc.Upvote(ctx, fan.ID, post.ID))
	removed, err = f.svc.Downvote(ctx, fan.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	assertNotFoundError(t, f.svc.Upvote(ctx, fan.ID, "missing"))
	_, err = f.svc.Downvote(ctx, fan.ID, "missing")
	assertNotFoundError(t, err)
}

func TestPostService_Report_DeletesAtThreshold(t *testing.T) {
	t.Parallel()

	f := newPostFixture(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, f.db, "author")
	post := testutil.CreatePost(t, f.db, author, "Spam")

	first := testutil.CreateUser(t, f.db, "r1")
	res, err := f.svc.Report(ctx, first.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, ReportResult{Count: 1}, res)

	res, err = f.svc.Report(ctx, first.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Count, "repeat reports by one user count once")

	for i, handle := range []string{"r2", "r3"} {
		u := testutil.CreateUser(t, f.db, handle)
		res, err = f.svc.Report(ctx, u.ID, post.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(i+2), res.Count)
	}
	assert.True(t, res.Deleted)

	_, err = f.svc.Get(ctx, author.ID, post.ID)
	assertNotFoundError(t, err)

	_, err = f.svc.Report(ctx, first.ID, post.ID)
	assertNotFoundError(t, err)
}

func TestPostService_CheckinScenario(t *testing.T) {
	t.Parallel()

	f := newPostFixture(t)
	ctx := context.Background()
	host := testutil.CreateUser(t, f.db, "host")
	a := testutil.CreateUser(t, f.db, "a")
	b := testutil.CreateUser(t, f.db, "b")
	event := testutil.CreatePost(t, f.db, host, "Tiny seminar", testutil.WithCapacity(1))

	require.NoError(t, f.svc.Checkin(ctx, a.ID, event.ID))
	require.NoError(t, f.svc.Checkin(ctx, a.ID, event.ID), "checking in twice is a no-op")

	err := f.svc.Checkin(ctx, b.ID, event.ID)
	assertCode(t, err, models.CodeCapacityExceeded)
	assert.Equal(t, fiber.StatusConflict, models.StatusForError(err))
	require.NoError(t, f.svc.Checkin(ctx, a.ID, event.ID), "an attendee of a full event can check in again")

	removed, err := f.svc.Checkout(ctx, b.ID, event.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = f.svc.Checkout(ctx, a.ID, event.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	require.NoError(t, f.svc.Checkin(ctx, b.ID, event.ID))
	got, err := f.svc.Get(ctx, b.ID, event.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.UsersCheckedIn)
	assert.True(t, got.IsUserCheckedIn)

	assertNotFoundError(t, f.svc.Checkin(ctx, a.ID, "missing"))
}

func TestPostService_Checkin_ZeroCapacityIsUnlimited(t *testing.T) {
	t.Parallel()

	f := newPostFixture(t)
	ctx := context.Background()
	host := testutil.CreateUser(t, f.db, "host")
	post := testutil.CreatePost(t, f.db, host, "Open house")

	for _, handle := range []string{"u1", "u2", "u3"} {
		u := testutil.CreateUser(t, f.db, handle)
		require.NoError(t, f.svc.Checkin(ctx, u.ID, post.ID))
	}
	count, err := f.store.Checkins().Count(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestPostService_StoreFailureIsWrapped(t *testing.T) {
	t.Parallel()

	f := newPostFixture(t)
	closeDB(t, f.db)

	_, err := f.svc.Get(context.Background(), "viewer", "post-1")
	assertCode(t, err, models.CodeStoreFailure)

	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Contains(t, appErr.Message, "get post")
	assert.Error(t, errors.Unwrap(err))
}

func tagTexts(tags []models.PostTag) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, t.Text)
	}
	return out
}
