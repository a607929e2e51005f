package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"clipshare/internal/middleware"
	"clipshare/internal/models"
	"clipshare/internal/repository"
	"clipshare/internal/token"
	"clipshare/internal/validation"
)

// MsgEmailAccountExists rejects a Google login for an email registered with a password.
const MsgEmailAccountExists = "Your account have been registered using email"

// IdentityProvider is the federated login provider.
type IdentityProvider interface {
	AuthURL() string
	IDToken(ctx context.Context, code string) (string, error)
}

// GoogleService logs users in with a Google authorization code, creating
// the account on first use.
type GoogleService struct {
	users    repository.UserRepository
	provider IdentityProvider
	auth     *AuthService
}

// GoogleLoginInput is the Google login body.
type GoogleLoginInput struct {
	Code *string `json:"code"`
}

func NewGoogleService(users repository.UserRepository, provider IdentityProvider, auth *AuthService) *GoogleService {
	return &GoogleService{users: users, provider: provider, auth: auth}
}

func (s *GoogleService) AuthURL() string {
	return s.provider.AuthURL()
}

func (s *GoogleService) LoginOrSignUp(ctx context.Context, in GoogleLoginInput) (*models.SessionUser, error) {
	var f validation.Fields
	f.Required("code", in.Code, "Please provide the code!")
	if err := f.Err(); err != nil {
		return nil, err
	}

	idToken, err := s.provider.IDToken(ctx, *in.Code)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "Google code exchange failed", slog.String("error", err.Error()))
		return nil, models.NewValidationError(repository.MsgInvalidRequest)
	}
	claims, ok := token.DecodeUnverified(idToken)
	if !ok {
		return nil, models.NewValidationError(repository.MsgInvalidRequest)
	}

	email := strings.ToLower(strings.TrimSpace(claims.Email))
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil && !existing.IsGoogleAccount {
		return nil, models.NewValidationError(MsgEmailAccountExists)
	}

	name := validation.SanitizeText(claims.Name)
	country := strings.ToUpper(claims.Locale)

	var user *models.User
	if existing != nil {
		user, err = s.users.UpdateFields(ctx, existing.ID, map[string]any{
			"name":            name,
			"country":         country,
			"profile_picture": claims.Picture,
		})
		if err != nil {
			return nil, err
		}
	} else {
		user, err = s.signUp(ctx, email, name, country, claims.Picture)
		if err != nil {
			return nil, err
		}
	}
	return s.auth.IssueSession(ctx, user)
}

func (s *GoogleService) signUp(ctx context.Context, email, name, country, picture string) (*models.User, error) {
	count, err := s.users.CountGoogleAccounts(ctx)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Username:        fmt.Sprintf("%s$%d", strings.ToLower(strings.ReplaceAll(name, " ", "_")), count+1),
		Name:            name,
		Email:           email,
		Type:            models.UserTypeUser,
		Role:            models.RoleUser,
		Country:         country,
		ProfilePicture:  picture,
		Bio:             DefaultBio,
		ShowLikedVideos: "true",
		IsGoogleAccount: true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	middleware.Logger.InfoContext(ctx, "Google account created", slog.Uint64("user_id", uint64(user.ID)))
	return user, nil
}
