package service

import (
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"clipshare/internal/media"
	"clipshare/internal/middleware"
	"clipshare/internal/models"
	"clipshare/internal/observability"
	"clipshare/internal/repository"
	"clipshare/internal/validation"
	"clipshare/internal/visibility"
)

// Post request messages.
const (
	MsgInvalidQueries = "Invalid queries!"
	MsgMissingTag     = "Please specify your tag!"
	feedPostsPerUser  = 5
)

// OwnerLookup loads a single user with relationship lists.
type OwnerLookup interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
}

type PostService struct {
	posts repository.PostRepository
	users OwnerLookup
	view  *RelationshipView
	media MediaStore
}

// SetPostDataInput is the metadata body sent after a video upload.
type SetPostDataInput struct {
	Title   *string `json:"title"`
	Desc    *string `json:"desc"`
	Privacy *string `json:"privacy"`
	SaveTo  *string `json:"saveTo"`
	FileID  *string `json:"fileId"`
}

func NewPostService(posts repository.PostRepository, users OwnerLookup, view *RelationshipView, store MediaStore) *PostService {
	return &PostService{posts: posts, users: users, view: view, media: store}
}

// List returns one page of public posts. query holds the raw query
// parameters; only country, likes, userId and page are accepted.
func (s *PostService) List(ctx context.Context, query map[string]string, page PageQuery) (*models.PostPage, error) {
	filter := repository.PostFilter{Privacy: models.PrivacyPublic}
	for key, value := range query {
		switch key {
		case "page":
		case "country":
			filter.Country = value
		case "likes":
			likes, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, models.NewValidationError(MsgInvalidQueries)
			}
			filter.Likes = &likes
		case "userId":
			id, err := strconv.ParseUint(value, 10, 64)
			if err != nil {
				return nil, models.NewValidationError(MsgInvalidQueries)
			}
			filter.UserID = uint(id)
		default:
			return nil, models.NewValidationError(MsgInvalidQueries)
		}
	}

	w := page.window()
	posts, total, err := s.posts.List(ctx, filter, w.Limit, w.Skip)
	if err != nil {
		return nil, err
	}
	return s.postPage(ctx, posts, pageResult(w, total, page.SelfURL))
}

// Get returns a post with its owner when viewer may see it.
func (s *PostService) Get(ctx context.Context, viewerID, postID uint) (*models.PostWithOwner, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	owner, err := s.users.GetByID(ctx, post.UserID)
	if err != nil {
		if !models.IsCode(err, models.CodeNotFound) {
			return nil, err
		}
		owner = nil
	}
	if err := visibility.Check(post.Privacy, visibility.OwnerFromUser(owner), viewerID); err != nil {
		if models.IsCode(err, models.CodePolicyDenied) {
			observability.VisibilityDenials.WithLabelValues(post.Privacy).Inc()
		}
		return nil, err
	}
	return &models.PostWithOwner{Post: post, User: owner}, nil
}

// FollowingFeed returns the newest posts of everyone viewer follows, oldest
// first, skipping posts viewer may not see.
func (s *PostService) FollowingFeed(ctx context.Context, viewer *models.User) ([]models.UserAndPost, error) {
	posts, err := s.posts.RecentByUsers(ctx, viewer.Following, feedPostsPerUser)
	if err != nil {
		return nil, err
	}

	// Every owner here is followed by viewer, so the viewer's own lists
	// are enough to decide the friends policy.
	followsViewer := visibility.NewIDSet(viewer.Followers)
	followedByViewer := visibility.NewIDSet(viewer.Following)
	visible := posts[:0]
	for _, post := range posts {
		owner := &visibility.Owner{ID: post.UserID, Following: visibility.IDSet{}, Followers: visibility.IDSet{}}
		if followsViewer.Has(post.UserID) {
			owner.Following[viewer.ID] = struct{}{}
		}
		if followedByViewer.Has(post.UserID) {
			owner.Followers[viewer.ID] = struct{}{}
		}
		if visibility.Allowed(post.Privacy, owner, viewer.ID) {
			visible = append(visible, post)
		}
	}
	return s.view.Attach(ctx, visible)
}

// Search returns one page of posts whose title or description contains keyword.
func (s *PostService) Search(ctx context.Context, viewerID uint, keyword string, page PageQuery) (*models.PostPage, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, models.NewValidationError(MsgMissingKeyword)
	}
	return s.search(ctx, viewerID, keyword, page)
}

// SearchByTag is Search for a base64 encoded hashtag.
func (s *PostService) SearchByTag(ctx context.Context, viewerID uint, encoded string, page PageQuery) (*models.PostPage, error) {
	if encoded == "" {
		return nil, models.NewValidationError(MsgMissingTag)
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		raw, err = base64.RawURLEncoding.DecodeString(encoded)
	}
	tag := strings.TrimSpace(string(raw))
	if err != nil || tag == "" {
		return nil, models.NewValidationError(MsgMissingTag)
	}
	return s.search(ctx, viewerID, tag, page)
}

func (s *PostService) search(ctx context.Context, viewerID uint, keyword string, page PageQuery) (*models.PostPage, error) {
	w := page.window()
	posts, total, err := s.posts.Search(ctx, keyword, viewerID, w.Limit, w.Skip)
	if err != nil {
		return nil, err
	}
	return s.postPage(ctx, posts, pageResult(w, total, page.SelfURL))
}

func (s *PostService) postPage(ctx context.Context, posts []models.Post, result models.PageResult) (*models.PostPage, error) {
	attached, err := s.view.Attach(ctx, posts)
	if err != nil {
		return nil, err
	}
	return &models.PostPage{PageResult: result, Result: attached}, nil
}

// Upload stores a video. The post is created later by SetPostData.
func (s *PostService) Upload(ctx context.Context, contentType string, r io.Reader) (*models.UploadedFile, error) {
	fileID, err := s.media.Save(media.KindVideo, contentType, r)
	if err != nil {
		return nil, err
	}
	middleware.Logger.InfoContext(ctx, "Video uploaded", slog.String("file_id", fileID))
	return &models.UploadedFile{SaveTo: s.media.SaveTo(media.KindVideo, fileID), FileID: fileID}, nil
}

// SetPostData creates the post for a previously uploaded video.
func (s *PostService) SetPostData(ctx context.Context, me *models.User, in SetPostDataInput) (*models.Post, error) {
	var f validation.Fields
	f.Required("title", in.Title, "Post Title is required!")
	f.Required("desc", in.Desc, "Post Description is required!")
	f.OneOf("privacy", in.Privacy, models.PrivacyPublic, models.PrivacyPrivate, models.PrivacyFriends)
	f.Required("saveTo", in.SaveTo, "saveTo is required!")
	f.Required("fileId", in.FileID, "fileId is required!")
	if err := f.Err(); err != nil {
		return nil, err
	}

	fileID := strings.TrimSpace(*in.FileID)
	if !s.media.Exists(media.KindVideo, fileID) || *in.SaveTo != s.media.SaveTo(media.KindVideo, fileID) {
		return nil, models.NewValidationError(media.MsgInvalidFile)
	}

	post := &models.Post{
		UserID:       me.ID,
		File:         s.media.URL(media.KindVideo, fileID),
		Title:        validation.SanitizeText(*in.Title),
		Desc:         validation.SanitizeText(*in.Desc),
		Country:      me.Country,
		Privacy:      *in.Privacy,
		AllowComment: models.CommentsAllowed,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *PostService) ChangePrivacy(ctx context.Context, me *models.User, postID uint, newPrivacy *string) (*models.Post, error) {
	var f validation.Fields
	f.OneOf("newPrivacy", newPrivacy, models.PrivacyPublic, models.PrivacyPrivate, models.PrivacyFriends)
	if err := f.Err(); err != nil {
		return nil, err
	}
	return s.posts.UpdateOwned(ctx, postID, me.ID, map[string]any{"privacy": *newPrivacy})
}

func (s *PostService) ChangeAllowCommenting(ctx context.Context, me *models.User, postID uint, allow *string) (*models.Post, error) {
	var f validation.Fields
	f.OneOf("allowCommenting", allow, models.CommentsAllowed, models.CommentsDisallowed)
	if err := f.Err(); err != nil {
		return nil, err
	}
	return s.posts.UpdateOwned(ctx, postID, me.ID, map[string]any{"allow_comment": *allow})
}

// Delete removes one of my posts together with its video file.
func (s *PostService) Delete(ctx context.Context, me *models.User, postID uint) error {
	post, err := s.posts.GetOwned(ctx, postID, me.ID)
	if err != nil {
		return err
	}
	if post == nil {
		return models.NewNotFoundError(repository.MsgPostDoesNotExist)
	}
	if err := s.posts.DeleteOwned(ctx, postID, me.ID); err != nil {
		return err
	}

	if fileID, ok := s.media.FileIDFromURL(media.KindVideo, post.File); ok {
		if err := s.media.Delete(media.KindVideo, fileID); err != nil {
			middleware.Logger.WarnContext(ctx, "Failed to delete video file",
				slog.String("file_id", fileID),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

func (s *PostService) Like(ctx context.Context, me *models.User, postID uint) (*models.LikeResult, error) {
	post, err := s.posts.Like(ctx, me.ID, postID)
	if err != nil {
		return nil, err
	}
	return s.likeResult(ctx, me, post)
}

func (s *PostService) Unlike(ctx context.Context, me *models.User, postID uint) (*models.LikeResult, error) {
	post, err := s.posts.Unlike(ctx, me.ID, postID)
	if err != nil {
		return nil, err
	}
	return s.likeResult(ctx, me, post)
}

func (s *PostService) likeResult(ctx context.Context, me *models.User, post *models.Post) (*models.LikeResult, error) {
	user, err := s.users.GetByID(ctx, me.ID)
	if err != nil {
		return nil, err
	}
	return &models.LikeResult{Post: post, User: user}, nil
}

// AddView counts one view of a post.
func (s *PostService) AddView(ctx context.Context, postID uint) (*models.ViewCount, error) {
	return s.posts.AddView(ctx, postID)
}
