package service

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"clipshare/internal/media"
	"clipshare/internal/middleware"
	"clipshare/internal/models"
	"clipshare/internal/repository"
	"clipshare/internal/validation"
)

// User request messages.
const (
	MsgIncludeFilter = "Include some filter!"
	MsgMissingBio    = "Please provide the new bio!"
	maxBioLen        = 500
)

type UserService struct {
	users repository.UserRepository
	view  *RelationshipView
	media MediaStore
}

// ListUsersInput is an admin user listing.
type ListUsersInput struct {
	Filter repository.UserFilter
	// NoQuery is set when the request carried no query parameters at all.
	NoQuery bool
	Page    PageQuery
}

func NewUserService(users repository.UserRepository, view *RelationshipView, store MediaStore) *UserService {
	return &UserService{users: users, view: view, media: store}
}

// Profile returns user with its relationship lists materialized.
func (s *UserService) Profile(ctx context.Context, user *models.User) (*models.UserProfile, error) {
	return s.view.Profile(ctx, user)
}

// GetByUsername returns the public record of a user. The liked list is
// hidden from other viewers when the owner turned it off.
func (s *UserService) GetByUsername(ctx context.Context, viewerID uint, username string) (*models.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError(repository.MsgUserNotFound)
	}
	if user.ID != viewerID && user.ShowLikedVideos == "false" {
		user.Liked = []uint{}
	}
	return user, nil
}

// ListUsers returns one page of users matching a filter. Admins only.
func (s *UserService) ListUsers(ctx context.Context, viewer *models.User, in ListUsersInput) (*models.UserPage, error) {
	if viewer == nil || !viewer.IsAdmin() {
		return nil, models.NewPolicyDeniedError(repository.MsgInvalidRequest)
	}
	if in.NoQuery {
		return nil, models.NewValidationError(MsgIncludeFilter)
	}

	w := in.Page.window()
	users, total, err := s.users.List(ctx, in.Filter, w.Limit, w.Skip)
	if err != nil {
		return nil, err
	}
	return &models.UserPage{PageResult: pageResult(w, total, in.Page.SelfURL), User: users}, nil
}

// SearchByName returns one page of users whose name contains keyword.
func (s *UserService) SearchByName(ctx context.Context, keyword string, page PageQuery) (*models.UserPage, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, models.NewValidationError(MsgMissingKeyword)
	}

	w := page.window()
	users, total, err := s.users.SearchByName(ctx, keyword, w.Limit, w.Skip)
	if err != nil {
		return nil, err
	}
	return &models.UserPage{PageResult: pageResult(w, total, page.SelfURL), User: users}, nil
}

// Follow makes me follow target and returns my refreshed profile.
func (s *UserService) Follow(ctx context.Context, me *models.User, targetID uint) (*models.UserProfile, error) {
	if err := s.users.Follow(ctx, me.ID, targetID); err != nil {
		return nil, err
	}
	return s.reloadProfile(ctx, me.ID)
}

// Unfollow removes the follow edge from me to target and returns my refreshed profile.
func (s *UserService) Unfollow(ctx context.Context, me *models.User, targetID uint) (*models.UserProfile, error) {
	if err := s.users.Unfollow(ctx, me.ID, targetID); err != nil {
		return nil, err
	}
	return s.reloadProfile(ctx, me.ID)
}

func (s *UserService) UpdateBio(ctx context.Context, me *models.User, newBio *string) (*models.UserProfile, error) {
	var f validation.Fields
	f.Required("newBio", newBio, MsgMissingBio)
	if err := f.Err(); err != nil {
		return nil, err
	}
	bio := validation.SanitizeText(*newBio)
	if len(bio) > maxBioLen {
		return nil, models.NewFieldValidationError([]models.FieldError{{Field: "newBio", Message: "Bio too long (max 500 characters)"}})
	}
	return s.update(ctx, me.ID, map[string]any{"bio": bio})
}

// ChangeLikedVideosStatus sets whether other users may see my liked videos.
func (s *UserService) ChangeLikedVideosStatus(ctx context.Context, me *models.User, status *string) (*models.UserProfile, error) {
	var f validation.Fields
	f.OneOf("newPrivacyStatus", status, "true", "false")
	if err := f.Err(); err != nil {
		return nil, err
	}
	return s.update(ctx, me.ID, map[string]any{"show_liked_videos": *status})
}

// ChangeProfilePicture stores a new picture and drops the previous one
// when it was stored here too.
func (s *UserService) ChangeProfilePicture(ctx context.Context, me *models.User, contentType string, r io.Reader) (*models.UserProfile, error) {
	fileID, err := s.media.Save(media.KindProfilePicture, contentType, r)
	if err != nil {
		return nil, err
	}
	profile, err := s.update(ctx, me.ID, map[string]any{
		"profile_picture": s.media.URL(media.KindProfilePicture, fileID),
	})
	if err != nil {
		_ = s.media.Delete(media.KindProfilePicture, fileID)
		return nil, err
	}

	if prev, ok := s.media.FileIDFromURL(media.KindProfilePicture, me.ProfilePicture); ok {
		if err := s.media.Delete(media.KindProfilePicture, prev); err != nil {
			middleware.Logger.WarnContext(ctx, "Failed to delete previous profile picture",
				slog.String("file_id", prev),
				slog.String("error", err.Error()),
			)
		}
	}
	return profile, nil
}

func (s *UserService) update(ctx context.Context, id uint, fields map[string]any) (*models.UserProfile, error) {
	user, err := s.users.UpdateFields(ctx, id, fields)
	if err != nil {
		return nil, err
	}
	return s.view.Profile(ctx, user)
}

func (s *UserService) reloadProfile(ctx context.Context, id uint) (*models.UserProfile, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view.Profile(ctx, user)
}

