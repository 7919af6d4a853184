package seed

import (
	"context"
	"testing"
	"time"

	"uboard/internal/models"
	"uboard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPost_EventsCarryLocationAndCapacity(t *testing.T) {
	f := NewFactory(nil, Options{DryRun: true, MaxDays: 30, RandSeed: 42})
	user := &models.User{ID: "u1"}

	p := f.BuildPost(user, models.PostTypeEvents)
	assert.NotEmpty(t, p.Location)
	assert.GreaterOrEqual(t, p.Capacity, 5)
	require.NotNil(t, p.Coords)
	assert.Less(t, time.Since(p.CreatedAt), 31*24*time.Hour)

	general := f.BuildPost(user, "General")
	assert.Zero(t, general.Capacity)
}

func TestSeed_DryRunWritesNothing(t *testing.T) {
	res, err := Seed(context.Background(), nil, Options{NumUsers: 3, NumPosts: 5, DryRun: true, SkipBcrypt: true})
	require.NoError(t, err)
	assert.Len(t, res.Users, 3)
	assert.Len(t, res.Posts, 5)
	assert.Equal(t, "demo", res.Users[0].UserName)
}

func TestSeed_PopulatesDatabase(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()

	res, err := Seed(ctx, db, Options{
		NumUsers:           4,
		NumPosts:           8,
		MaxCommentsPerPost: 3,
		MaxLikesPerPost:    4,
		SkipBcrypt:         true,
		RandSeed:           7,
	})
	require.NoError(t, err)

	var users, posts, comments int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	require.NoError(t, db.Model(&models.Post{}).Count(&posts).Error)
	require.NoError(t, db.Model(&models.Comment{}).Count(&comments).Error)
	assert.Equal(t, int64(4), users)
	assert.Equal(t, int64(8), posts)
	assert.Equal(t, int64(res.Comments), comments)

	var linked int64
	require.NoError(t, db.Model(&models.PostTagLink{}).Count(&linked).Error)
	assert.LessOrEqual(t, linked, int64(8*3))

	for _, p := range res.Posts {
		if !p.IsEvent() {
			continue
		}
		var checkins int64
		require.NoError(t, db.Model(&models.UserCheckin{}).Where("post_id = ?", p.ID).Count(&checkins).Error)
		assert.LessOrEqual(t, checkins, int64(p.Capacity))
	}

	_, err = Seed(ctx, db, Options{NumUsers: 2, NumPosts: 1, ShouldClean: true, SkipBcrypt: true})
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	assert.Equal(t, int64(2), users)
}
