package repository

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"clipshare/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostRepository_GetByID_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "posts" WHERE "posts"."id" = $1 ORDER BY "posts"."id" LIMIT $2`)).
		WithArgs(7, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	post, err := repo.GetByID(context.Background(), 7)
	assert.Nil(t, post)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
	assert.Equal(t, MsgPostNotFound, models.AsAppError(err).Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_GetByID_WithComments(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "posts" WHERE "posts"."id" = $1 ORDER BY "posts"."id" LIMIT $2`)).
		WithArgs(1, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "user_id", "privacy"}).AddRow(1, "Post 1", 10, "public"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id","post_id" FROM "comments" WHERE post_id IN ($1) ORDER BY created_at ASC, id ASC`)).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "post_id"}).AddRow(4, 1).AddRow(9, 1))

	post, err := repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Post 1", post.Title)
	assert.Equal(t, []uint{4, 9}, post.Comments)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_UpdateOwned_NotOwner(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "posts" SET "privacy"=$1,"updated_at"=$2 WHERE id = $3 AND user_id = $4`)).
		WithArgs("private", sqlmock.AnyArg(), 1, 2).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	post, err := repo.UpdateOwned(context.Background(), 1, 2, map[string]any{"privacy": "private"})
	assert.Nil(t, post)
	assert.True(t, models.IsCode(err, models.CodeValidation))
	assert.Equal(t, MsgInvalidRequest, models.AsAppError(err).Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_LikeUnlike(t *testing.T) {
	db := setupSQLite(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	owner := seedUser(t, db, "owner")
	fan := seedUser(t, db, "fan")
	post := seedPost(t, db, owner.ID, "clip", models.PrivacyPublic, time.Now())

	liked, err := repo.Like(ctx, fan.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), liked.Likes)

	liked, err = repo.Like(ctx, fan.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), liked.Likes, "liking twice counts once")

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, owner.ID).Error)
	assert.Equal(t, int64(1), reloaded.Likes)

	unliked, err := repo.Unlike(ctx, fan.ID, post.ID)
	require.NoError(t, err)
	assert.Zero(t, unliked.Likes)

	unliked, err = repo.Unlike(ctx, fan.ID, post.ID)
	require.NoError(t, err)
	assert.Zero(t, unliked.Likes, "counters never go negative")

	_, err = repo.Like(ctx, fan.ID, 999)
	assert.True(t, models.IsCode(err, models.CodeValidation))
	_, err = repo.Like(ctx, 999, post.ID)
	assert.True(t, models.IsCode(err, models.CodeValidation))
}

func TestPostRepository_LikeVerifiesOwner(t *testing.T) {
	db := setupSQLite(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	owner := seedUser(t, db, "star")
	require.NoError(t, db.Model(owner).UpdateColumn("likes", models.VerifiedLikesThreshold).Error)
	fan := seedUser(t, db, "fan")
	post := seedPost(t, db, owner.ID, "hit", models.PrivacyPublic, time.Now())

	_, err := repo.Like(ctx, fan.ID, post.ID)
	require.NoError(t, err)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, owner.ID).Error)
	assert.Equal(t, int64(models.VerifiedLikesThreshold+1), reloaded.Likes)
	assert.Equal(t, 1, reloaded.Verified)
}

func TestPostRepository_AddView(t *testing.T) {
	db := setupSQLite(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	owner := seedUser(t, db, "owner")
	post := seedPost(t, db, owner.ID, "clip", models.PrivacyPublic, time.Now())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.AddView(ctx, post.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := repo.AddView(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(21), got.Viewed, "no increment is lost")

	_, err = repo.AddView(ctx, 999)
	assert.True(t, models.IsCode(err, models.CodeValidation))
	assert.Equal(t, MsgInvalidPostID, models.AsAppError(err).Message)
}

func TestPostRepository_RecentByUsers(t *testing.T) {
	db := setupSQLite(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	a := seedUser(t, db, "a")
	b := seedUser(t, db, "b")
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		seedPost(t, db, a.ID, "a"+string(rune('0'+i)), models.PrivacyPublic, base.Add(time.Duration(i)*time.Hour))
	}
	seedPost(t, db, b.ID, "b0", models.PrivacyFriends, base.Add(90*time.Minute))

	posts, err := repo.RecentByUsers(ctx, []uint{a.ID, b.ID}, 5)
	require.NoError(t, err)
	require.Len(t, posts, 6)

	titles := make([]string, len(posts))
	for i, p := range posts {
		titles[i] = p.Title
	}
	assert.Equal(t, []string{"b0", "a2", "a3", "a4", "a5", "a6"}, titles, "five newest per user, oldest first")
}

func TestPostRepository_ListAndSearch(t *testing.T) {
	db := setupSQLite(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	owner := seedUser(t, db, "owner")
	viewer := seedUser(t, db, "viewer")
	now := time.Now()
	seedPost(t, db, owner.ID, "Spider-Man", models.PrivacyPublic, now)
	seedPost(t, db, owner.ID, "Spider secret", models.PrivacyPrivate, now)
	seedPost(t, db, viewer.ID, "my spider", models.PrivacyPrivate, now)

	posts, total, err := repo.List(ctx, PostFilter{Privacy: models.PrivacyPublic}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, posts, 1)

	posts, total, err = repo.Search(ctx, "SPIDER", viewer.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total, "other users' private posts are not searched")
	assert.Len(t, posts, 2)
}

func TestPostRepository_DeleteOwned(t *testing.T) {
	db := setupSQLite(t)
	repo := NewPostRepository(db)
	comments := NewCommentRepository(db)
	ctx := context.Background()

	owner := seedUser(t, db, "owner")
	other := seedUser(t, db, "other")
	post := seedPost(t, db, owner.ID, "clip", models.PrivacyPublic, time.Now())
	_, err := repo.Like(ctx, other.ID, post.ID)
	require.NoError(t, err)
	require.NoError(t, comments.Create(ctx, &models.Comment{UserID: other.ID, PostID: post.ID, Comment: "nice"}))

	err = repo.DeleteOwned(ctx, post.ID, other.ID)
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	require.NoError(t, repo.DeleteOwned(ctx, post.ID, owner.ID))
	var likes, remaining int64
	require.NoError(t, db.Model(&models.PostLike{}).Count(&likes).Error)
	require.NoError(t, db.Model(&models.Comment{}).Count(&remaining).Error)
	assert.Zero(t, likes)
	assert.Zero(t, remaining)
}
