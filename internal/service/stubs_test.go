package service

import (
	"context"
	"io"
	"testing"

	"clipshare/internal/media"
	"clipshare/internal/models"
	"clipshare/internal/repository"
	"clipshare/internal/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn             func(context.Context, uint) (*models.User, error)
	getByIDsFn            func(context.Context, []uint) ([]models.User, error)
	getByEmailFn          func(context.Context, string) (*models.User, error)
	getByUsernameFn       func(context.Context, string) (*models.User, error)
	createFn              func(context.Context, *models.User) error
	updateFieldsFn        func(context.Context, uint, map[string]any) (*models.User, error)
	listFn                func(context.Context, repository.UserFilter, int, int) ([]models.User, int64, error)
	searchByNameFn        func(context.Context, string, int, int) ([]models.User, int64, error)
	countGoogleAccountsFn func(context.Context) (int64, error)
	followFn              func(context.Context, uint, uint) error
	unfollowFn            func(context.Context, uint, uint) error
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByIDs(ctx context.Context, ids []uint) ([]models.User, error) {
	return s.getByIDsFn(ctx, ids)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) UpdateFields(ctx context.Context, id uint, fields map[string]any) (*models.User, error) {
	return s.updateFieldsFn(ctx, id, fields)
}
func (s *userRepoStub) List(ctx context.Context, f repository.UserFilter, limit, offset int) ([]models.User, int64, error) {
	return s.listFn(ctx, f, limit, offset)
}
func (s *userRepoStub) SearchByName(ctx context.Context, keyword string, limit, offset int) ([]models.User, int64, error) {
	return s.searchByNameFn(ctx, keyword, limit, offset)
}
func (s *userRepoStub) CountGoogleAccounts(ctx context.Context) (int64, error) {
	return s.countGoogleAccountsFn(ctx)
}
func (s *userRepoStub) Follow(ctx context.Context, followerID, followeeID uint) error {
	return s.followFn(ctx, followerID, followeeID)
}
func (s *userRepoStub) Unfollow(ctx context.Context, followerID, followeeID uint) error {
	return s.unfollowFn(ctx, followerID, followeeID)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id}, nil
		},
		getByIDsFn:      func(_ context.Context, _ []uint) ([]models.User, error) { return nil, nil },
		getByEmailFn:    func(_ context.Context, _ string) (*models.User, error) { return nil, nil },
		getByUsernameFn: func(_ context.Context, _ string) (*models.User, error) { return nil, nil },
		createFn:        func(_ context.Context, _ *models.User) error { return nil },
		updateFieldsFn: func(_ context.Context, id uint, _ map[string]any) (*models.User, error) {
			return &models.User{ID: id}, nil
		},
		listFn: func(_ context.Context, _ repository.UserFilter, _, _ int) ([]models.User, int64, error) {
			return nil, 0, nil
		},
		searchByNameFn: func(_ context.Context, _ string, _, _ int) ([]models.User, int64, error) {
			return nil, 0, nil
		},
		countGoogleAccountsFn: func(_ context.Context) (int64, error) { return 0, nil },
		followFn:              func(_ context.Context, _, _ uint) error { return nil },
		unfollowFn:            func(_ context.Context, _, _ uint) error { return nil },
	}
}

// usersFrom returns a GetByIDs stub backed by a fixed set of users.
func usersFrom(users ...models.User) func(context.Context, []uint) ([]models.User, error) {
	return func(_ context.Context, ids []uint) ([]models.User, error) {
		var out []models.User
		for _, id := range ids {
			for _, u := range users {
				if u.ID == id {
					out = append(out, u)
				}
			}
		}
		return out, nil
	}
}

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn        func(context.Context, *models.Post) error
	getByIDFn       func(context.Context, uint) (*models.Post, error)
	getOwnedFn      func(context.Context, uint, uint) (*models.Post, error)
	listFn          func(context.Context, repository.PostFilter, int, int) ([]models.Post, int64, error)
	listByIDsFn     func(context.Context, []uint) ([]models.Post, error)
	recentByUsersFn func(context.Context, []uint, int) ([]models.Post, error)
	searchFn        func(context.Context, string, uint, int, int) ([]models.Post, int64, error)
	countByUserFn   func(context.Context, uint) (int64, error)
	updateOwnedFn   func(context.Context, uint, uint, map[string]any) (*models.Post, error)
	deleteOwnedFn   func(context.Context, uint, uint) error
	likeFn          func(context.Context, uint, uint) (*models.Post, error)
	unlikeFn        func(context.Context, uint, uint) (*models.Post, error)
	addViewFn       func(context.Context, uint) (*models.ViewCount, error)
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) GetOwned(ctx context.Context, id, ownerID uint) (*models.Post, error) {
	return s.getOwnedFn(ctx, id, ownerID)
}
func (s *postRepoStub) List(ctx context.Context, f repository.PostFilter, limit, offset int) ([]models.Post, int64, error) {
	return s.listFn(ctx, f, limit, offset)
}
func (s *postRepoStub) ListByIDs(ctx context.Context, ids []uint) ([]models.Post, error) {
	return s.listByIDsFn(ctx, ids)
}
func (s *postRepoStub) RecentByUsers(ctx context.Context, userIDs []uint, perUser int) ([]models.Post, error) {
	return s.recentByUsersFn(ctx, userIDs, perUser)
}
func (s *postRepoStub) Search(ctx context.Context, keyword string, viewerID uint, limit, offset int) ([]models.Post, int64, error) {
	return s.searchFn(ctx, keyword, viewerID, limit, offset)
}
func (s *postRepoStub) CountByUser(ctx context.Context, userID uint) (int64, error) {
	return s.countByUserFn(ctx, userID)
}
func (s *postRepoStub) UpdateOwned(ctx context.Context, id, ownerID uint, fields map[string]any) (*models.Post, error) {
	return s.updateOwnedFn(ctx, id, ownerID, fields)
}
func (s *postRepoStub) DeleteOwned(ctx context.Context, id, ownerID uint) error {
	return s.deleteOwnedFn(ctx, id, ownerID)
}
func (s *postRepoStub) Like(ctx context.Context, userID, postID uint) (*models.Post, error) {
	return s.likeFn(ctx, userID, postID)
}
func (s *postRepoStub) Unlike(ctx context.Context, userID, postID uint) (*models.Post, error) {
	return s.unlikeFn(ctx, userID, postID)
}
func (s *postRepoStub) AddView(ctx context.Context, postID uint) (*models.ViewCount, error) {
	return s.addViewFn(ctx, postID)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn: func(_ context.Context, _ *models.Post) error { return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Post, error) {
			return &models.Post{ID: id, Privacy: models.PrivacyPublic, AllowComment: models.CommentsAllowed}, nil
		},
		getOwnedFn: func(_ context.Context, _, _ uint) (*models.Post, error) { return nil, nil },
		listFn: func(_ context.Context, _ repository.PostFilter, _, _ int) ([]models.Post, int64, error) {
			return nil, 0, nil
		},
		listByIDsFn:     func(_ context.Context, _ []uint) ([]models.Post, error) { return nil, nil },
		recentByUsersFn: func(_ context.Context, _ []uint, _ int) ([]models.Post, error) { return nil, nil },
		searchFn: func(_ context.Context, _ string, _ uint, _, _ int) ([]models.Post, int64, error) {
			return nil, 0, nil
		},
		countByUserFn: func(_ context.Context, _ uint) (int64, error) { return 0, nil },
		updateOwnedFn: func(_ context.Context, id, ownerID uint, _ map[string]any) (*models.Post, error) {
			return &models.Post{ID: id, UserID: ownerID}, nil
		},
		deleteOwnedFn: func(_ context.Context, _, _ uint) error { return nil },
		likeFn: func(_ context.Context, _, postID uint) (*models.Post, error) {
			return &models.Post{ID: postID, Likes: 1}, nil
		},
		unlikeFn: func(_ context.Context, _, postID uint) (*models.Post, error) {
			return &models.Post{ID: postID}, nil
		},
		addViewFn: func(_ context.Context, postID uint) (*models.ViewCount, error) {
			return &models.ViewCount{PostID: postID, Viewed: 1}, nil
		},
	}
}

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	createFn     func(context.Context, *models.Comment) error
	listByPostFn func(context.Context, uint, int, int) ([]models.Comment, int64, error)
	deleteFn     func(context.Context, uint, uint, uint) error
}

func (s *commentRepoStub) Create(ctx context.Context, comment *models.Comment) error {
	return s.createFn(ctx, comment)
}
func (s *commentRepoStub) ListByPost(ctx context.Context, postID uint, limit, offset int) ([]models.Comment, int64, error) {
	return s.listByPostFn(ctx, postID, limit, offset)
}
func (s *commentRepoStub) Delete(ctx context.Context, postID, id, userID uint) error {
	return s.deleteFn(ctx, postID, id, userID)
}

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		createFn: func(_ context.Context, _ *models.Comment) error { return nil },
		listByPostFn: func(_ context.Context, _ uint, _, _ int) ([]models.Comment, int64, error) {
			return nil, 0, nil
		},
		deleteFn: func(_ context.Context, _, _, _ uint) error { return nil },
	}
}

// mediaStub is an in-memory MediaStore.
type mediaStub struct {
	files   map[string]bool
	deleted []string
	saveErr error
}

func newMediaStub(existing ...string) *mediaStub {
	m := &mediaStub{files: map[string]bool{}}
	for _, id := range existing {
		m.files[id] = true
	}
	return m
}

func (m *mediaStub) Save(_ media.Kind, _ string, r io.Reader) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	id := "11111111-2222-3333-4444-555555555555.mp4"
	m.files[id] = true
	return id, nil
}
func (m *mediaStub) Exists(_ media.Kind, fileID string) bool { return m.files[fileID] }
func (m *mediaStub) Delete(_ media.Kind, fileID string) error {
	delete(m.files, fileID)
	m.deleted = append(m.deleted, fileID)
	return nil
}
func (m *mediaStub) URL(kind media.Kind, fileID string) string {
	return "http://media.test/" + string(kind) + "/" + fileID
}
func (m *mediaStub) SaveTo(kind media.Kind, fileID string) string {
	return string(kind) + "/" + fileID
}
func (m *mediaStub) FileIDFromURL(kind media.Kind, url string) (string, bool) {
	prefix := "http://media.test/" + string(kind) + "/"
	if len(url) <= len(prefix) || url[:len(prefix)] != prefix {
		return "", false
	}
	return url[len(prefix):], true
}

func newTestTokens(t *testing.T) *token.Service {
	t.Helper()
	svc, err := token.NewService("test-secret-with-enough-length-0123")
	require.NoError(t, err)
	return svc
}

func strPtr(s string) *string { return &s }

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, models.AsAppError(err).Code, err.Error())
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeValidation)
}
