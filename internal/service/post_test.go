package service

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"clipshare/internal/media"
	"clipshare/internal/models"
	"clipshare/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPostService(posts *postRepoStub, users *userRepoStub, store *mediaStub) *PostService {
	return NewPostService(posts, users, NewRelationshipView(users), store)
}

func TestPostService_List_Queries(t *testing.T) {
	t.Parallel()

	posts := noopPostRepo()
	var got repository.PostFilter
	posts.listFn = func(_ context.Context, f repository.PostFilter, _, _ int) ([]models.Post, int64, error) {
		got = f
		return []models.Post{{ID: 1, UserID: 1}}, 11, nil
	}
	users := noopUserRepo()
	users.getByIDsFn = usersFrom(models.User{ID: 1, Username: "owner"})
	svc := newTestPostService(posts, users, newMediaStub())
	ctx := context.Background()

	t.Run("whitelisted", func(t *testing.T) {
		page, err := svc.List(ctx, map[string]string{"country": "US", "likes": "3", "userId": "1", "page": "1"},
			PageQuery{Page: "1", SelfURL: "http://api.test/api/v1/post?country=US"})
		require.NoError(t, err)
		assert.Equal(t, models.PrivacyPublic, got.Privacy, "listing is public only")
		assert.Equal(t, "US", got.Country)
		require.NotNil(t, got.Likes)
		assert.Equal(t, int64(3), *got.Likes)
		assert.Equal(t, uint(1), got.UserID)
		assert.Equal(t, 2, page.AllPage)
		require.NotNil(t, page.NextURL)
		require.Len(t, page.Result, 1)
		assert.Equal(t, "owner", page.Result[0].User.Username)
	})

	for name, query := range map[string]map[string]string{
		"unknown key":     {"privacy": "private"},
		"non numeric":     {"likes": "many"},
		"negative userId": {"userId": "-1"},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := svc.List(ctx, query, PageQuery{})
			assertValidationError(t, err)
			assert.Equal(t, MsgInvalidQueries, models.AsAppError(err).Message)
		})
	}
}

func TestPostService_Get_Visibility(t *testing.T) {
	t.Parallel()

	const ownerID, friendID, strangerID = 1, 2, 3
	owner := &models.User{ID: ownerID, Following: []uint{friendID}, Followers: []uint{friendID, strangerID}}

	users := noopUserRepo()
	users.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
		if id == ownerID {
			u := *owner
			return &u, nil
		}
		return nil, models.NewNotFoundError(repository.MsgUserNotFound)
	}
	posts := noopPostRepo()
	posts.getByIDFn = func(_ context.Context, id uint) (*models.Post, error) {
		switch id {
		case 10:
			return &models.Post{ID: 10, UserID: ownerID, Privacy: models.PrivacyFriends}, nil
		case 11:
			return &models.Post{ID: 11, UserID: ownerID, Privacy: models.PrivacyPrivate}, nil
		case 12:
			return &models.Post{ID: 12, UserID: 404, Privacy: models.PrivacyPublic}, nil
		case 13:
			return &models.Post{ID: 13, UserID: 404, Privacy: models.PrivacyPrivate}, nil
		}
		return nil, models.NewNotFoundError(repository.MsgPostNotFound)
	}
	svc := newTestPostService(posts, users, newMediaStub())
	ctx := context.Background()

	read, err := svc.Get(ctx, friendID, 10)
	require.NoError(t, err)
	assert.Equal(t, uint(ownerID), read.User.ID)

	_, err = svc.Get(ctx, strangerID, 10)
	assertCode(t, err, models.CodePolicyDenied)

	_, err = svc.Get(ctx, friendID, 11)
	assertCode(t, err, models.CodePolicyDenied)

	read, err = svc.Get(ctx, strangerID, 12)
	require.NoError(t, err, "public posts stay readable after the owner is gone")
	assert.Nil(t, read.User)

	_, err = svc.Get(ctx, strangerID, 13)
	assertCode(t, err, models.CodeNotFound)

	_, err = svc.Get(ctx, strangerID, 99)
	assertCode(t, err, models.CodeNotFound)
}

func TestPostService_FollowingFeed(t *testing.T) {
	t.Parallel()

	// viewer follows 2 and 3; only 2 follows back.
	viewer := &models.User{ID: 1, Following: []uint{2, 3}, Followers: []uint{2}}
	now := time.Now()

	posts := noopPostRepo()
	posts.recentByUsersFn = func(_ context.Context, ids []uint, perUser int) ([]models.Post, error) {
		assert.Equal(t, []uint{2, 3}, ids)
		assert.Equal(t, 5, perUser)
		return []models.Post{
			{ID: 20, UserID: 2, Privacy: models.PrivacyFriends, CreatedAt: now.Add(-3 * time.Hour)},
			{ID: 30, UserID: 3, Privacy: models.PrivacyFriends, CreatedAt: now.Add(-2 * time.Hour)},
			{ID: 31, UserID: 3, Privacy: models.PrivacyPublic, CreatedAt: now.Add(-time.Hour)},
			{ID: 21, UserID: 2, Privacy: models.PrivacyPrivate, CreatedAt: now},
		}, nil
	}
	users := noopUserRepo()
	users.getByIDsFn = usersFrom(models.User{ID: 2}, models.User{ID: 3})

	feed, err := newTestPostService(posts, users, newMediaStub()).FollowingFeed(context.Background(), viewer)
	require.NoError(t, err)

	ids := make([]uint, len(feed))
	for i, item := range feed {
		ids[i] = item.Post.ID
	}
	assert.Equal(t, []uint{20, 31}, ids)
}

func TestPostService_Search(t *testing.T) {
	t.Parallel()

	posts := noopPostRepo()
	var keyword string
	var viewer uint
	posts.searchFn = func(_ context.Context, k string, v uint, _, _ int) ([]models.Post, int64, error) {
		keyword, viewer = k, v
		return nil, 0, nil
	}
	svc := newTestPostService(posts, noopUserRepo(), newMediaStub())
	ctx := context.Background()

	_, err := svc.Search(ctx, 1, "", PageQuery{})
	assert.Equal(t, MsgMissingKeyword, models.AsAppError(err).Message)

	page, err := svc.Search(ctx, 7, "spider", PageQuery{})
	require.NoError(t, err)
	assert.Equal(t, "spider", keyword)
	assert.Equal(t, uint(7), viewer)
	assert.Equal(t, 0, page.AllPage)
	assert.Nil(t, page.NextURL)
	assert.NotNil(t, page.Result)

	_, err = svc.SearchByTag(ctx, 7, base64.StdEncoding.EncodeToString([]byte("#first")), PageQuery{})
	require.NoError(t, err)
	assert.Equal(t, "#first", keyword)

	_, err = svc.SearchByTag(ctx, 7, "", PageQuery{})
	assert.Equal(t, MsgMissingTag, models.AsAppError(err).Message)

	_, err = svc.SearchByTag(ctx, 7, "!!!", PageQuery{})
	assertValidationError(t, err)
}

func TestPostService_UploadAndSetPostData(t *testing.T) {
	t.Parallel()

	store := newMediaStub()
	posts := noopPostRepo()
	var created *models.Post
	posts.createFn = func(_ context.Context, p *models.Post) error {
		p.ID = 50
		created = p
		return nil
	}
	svc := newTestPostService(posts, noopUserRepo(), store)
	me := &models.User{ID: 1, Country: "US"}
	ctx := context.Background()

	uploaded, err := svc.Upload(ctx, "video/mp4", strings.NewReader("bytes"))
	require.NoError(t, err)
	assert.Equal(t, "videos/"+uploaded.FileID, uploaded.SaveTo)

	_, err = svc.SetPostData(ctx, me, SetPostDataInput{})
	assertValidationError(t, err)
	assert.Len(t, models.AsAppError(err).Fields, 5)

	_, err = svc.SetPostData(ctx, me, SetPostDataInput{
		Title: strPtr("t"), Desc: strPtr("d"), Privacy: strPtr(models.PrivacyPublic),
		SaveTo: strPtr("videos/other.mp4"), FileID: strPtr("other.mp4"),
	})
	assert.Equal(t, media.MsgInvalidFile, models.AsAppError(err).Message)

	post, err := svc.SetPostData(ctx, me, SetPostDataInput{
		Title:   strPtr("Spider-Man"),
		Desc:    strPtr("with <script>x</script>great power #first"),
		Privacy: strPtr(models.PrivacyFriends),
		SaveTo:  strPtr(uploaded.SaveTo),
		FileID:  strPtr(uploaded.FileID),
	})
	require.NoError(t, err)
	assert.Same(t, created, post)
	assert.Equal(t, "US", post.Country)
	assert.Equal(t, models.CommentsAllowed, post.AllowComment)
	assert.Equal(t, store.URL(media.KindVideo, uploaded.FileID), post.File)
	assert.NotContains(t, post.Desc, "<script>")
}

func TestPostService_OwnerUpdates(t *testing.T) {
	t.Parallel()

	posts := noopPostRepo()
	var fields map[string]any
	posts.updateOwnedFn = func(_ context.Context, id, ownerID uint, f map[string]any) (*models.Post, error) {
		if ownerID != 1 {
			return nil, models.NewValidationError(repository.MsgInvalidRequest)
		}
		fields = f
		return &models.Post{ID: id, UserID: ownerID}, nil
	}
	svc := newTestPostService(posts, noopUserRepo(), newMediaStub())
	ctx := context.Background()
	me := &models.User{ID: 1}

	_, err := svc.ChangePrivacy(ctx, me, 5, strPtr("everyone"))
	assertValidationError(t, err)

	_, err = svc.ChangePrivacy(ctx, me, 5, strPtr(models.PrivacyPrivate))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"privacy": models.PrivacyPrivate}, fields)

	_, err = svc.ChangeAllowCommenting(ctx, me, 5, strPtr(models.CommentsDisallowed))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"allow_comment": models.CommentsDisallowed}, fields)

	_, err = svc.ChangeAllowCommenting(ctx, &models.User{ID: 2}, 5, strPtr(models.CommentsAllowed))
	assert.Equal(t, repository.MsgInvalidRequest, models.AsAppError(err).Message)
}

func TestPostService_Delete(t *testing.T) {
	t.Parallel()

	const fileID = "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee.mp4"
	store := newMediaStub(fileID)
	posts := noopPostRepo()
	posts.getOwnedFn = func(_ context.Context, id, ownerID uint) (*models.Post, error) {
		if id == 5 && ownerID == 1 {
			return &models.Post{ID: 5, UserID: 1, File: store.URL(media.KindVideo, fileID)}, nil
		}
		return nil, nil
	}
	deleted := false
	posts.deleteOwnedFn = func(_ context.Context, _, _ uint) error {
		deleted = true
		return nil
	}
	svc := newTestPostService(posts, noopUserRepo(), store)

	err := svc.Delete(context.Background(), &models.User{ID: 2}, 5)
	assertCode(t, err, models.CodeNotFound)
	assert.Equal(t, repository.MsgPostDoesNotExist, models.AsAppError(err).Message)
	assert.False(t, deleted)

	require.NoError(t, svc.Delete(context.Background(), &models.User{ID: 1}, 5))
	assert.True(t, deleted)
	assert.Equal(t, []string{fileID}, store.deleted)
}

func TestPostService_LikeReturnsPostAndUser(t *testing.T) {
	t.Parallel()

	users := noopUserRepo()
	users.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
		return &models.User{ID: id, Liked: []uint{8}}, nil
	}
	svc := newTestPostService(noopPostRepo(), users, newMediaStub())

	res, err := svc.Like(context.Background(), &models.User{ID: 1}, 8)
	require.NoError(t, err)
	assert.Equal(t, uint(8), res.Post.ID)
	assert.Equal(t, []uint{8}, res.User.Liked)

	res, err = svc.Unlike(context.Background(), &models.User{ID: 1}, 8)
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Post.Likes)
}
