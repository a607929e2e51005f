package service

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"clipshare/internal/middleware"
	"clipshare/internal/models"
	"clipshare/internal/repository"
	"clipshare/internal/token"
	"clipshare/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// Login and registration messages.
const (
	MsgInvalidLogin    = "Invalid email or password!"
	MsgAlreadyLoggedIn = "You've been logged in!"
	DefaultBio         = "No Bio yet"
)

// TokenIssuer signs and verifies the credential pair.
type TokenIssuer interface {
	SignAccess(email string) (string, error)
	SignRefresh(email, userID string) (string, error)
	Verify(credential string) (*token.Claims, bool)
}

// AuthService registers accounts and issues credential pairs.
type AuthService struct {
	users       repository.UserRepository
	tokens      TokenIssuer
	view        *RelationshipView
	cost        int
	adminSignup func() bool
}

// RegisterInput is the registration body. Nil fields were absent.
type RegisterInput struct {
	Username *string `json:"username"`
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Type     *string `json:"type"`
	Country  *string `json:"country"`
}

// LoginInput is the login body. Nil fields were absent.
type LoginInput struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// NewAuthService hashes passwords with bcrypt at cost. adminSignup decides
// whether a registration of type admin really gets the admin role.
func NewAuthService(
	users repository.UserRepository,
	tokens TokenIssuer,
	view *RelationshipView,
	cost int,
	adminSignup func() bool,
) *AuthService {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	if adminSignup == nil {
		adminSignup = func() bool { return false }
	}
	return &AuthService{users: users, tokens: tokens, view: view, cost: cost, adminSignup: adminSignup}
}

// Register creates an account. It returns (nil, nil) when the email is
// already registered, so callers cannot probe for accounts.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	var f validation.Fields
	f.Required("username", in.Username, "Please provide a username to register new account!")
	f.Required("name", in.Name, "Please provide a name to register new account!")
	f.Required("email", in.Email, "Please provide a email to register new account!")
	f.Required("password", in.Password, "Please provide a password to register new account!")
	f.OneOf("type", in.Type, models.UserTypeAdmin, models.UserTypeUser)
	f.Required("country", in.Country, "Please provide your country to register new account!")
	if err := f.Err(); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(*in.Email))
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewFieldValidationError([]models.FieldError{{Field: "email", Message: validation.MsgInvalidEmail}})
	}
	if err := validation.ValidatePassword(*in.Password); err != nil {
		return nil, models.NewFieldValidationError([]models.FieldError{{Field: "password", Message: validation.MsgInvalidPassword}})
	}
	username := strings.TrimSpace(*in.Username)
	if err := validation.ValidateUsername(username); err != nil {
		return nil, models.NewFieldValidationError([]models.FieldError{{Field: "username", Message: err.Error()}})
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), s.cost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	role := models.RoleUser
	if *in.Type == models.UserTypeAdmin && s.adminSignup() {
		role = models.RoleAdmin
	}
	name := validation.SanitizeText(*in.Name)
	user := &models.User{
		Username:        username,
		Name:            name,
		Email:           email,
		Password:        string(hash),
		Type:            *in.Type,
		Role:            role,
		Country:         strings.ToUpper(strings.TrimSpace(*in.Country)),
		ProfilePicture:  AvatarURL(name),
		Bio:             DefaultBio,
		ShowLikedVideos: "true",
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	user.Password = ""
	return user, nil
}

// Login checks the password and returns the user with a fresh credential pair.
// Unknown email and wrong password fail identically.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*models.SessionUser, error) {
	var f validation.Fields
	f.Required("email", in.Email, "Please provide email to login!")
	f.Required("password", in.Password, "Please provide password to login!")
	if err := f.Err(); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(*in.Email)))
	if err != nil {
		return nil, err
	}
	if user == nil || user.Password == "" {
		return nil, models.NewCredentialMismatchError(MsgInvalidLogin)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(*in.Password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, models.NewCredentialMismatchError(MsgInvalidLogin)
		}
		return nil, models.NewInternalError(err)
	}
	return s.IssueSession(ctx, user)
}

// AlreadyAuthenticated reports whether either presented credential is still valid.
func (s *AuthService) AlreadyAuthenticated(access, refresh string) bool {
	if _, ok := s.tokens.Verify(access); ok {
		return true
	}
	_, ok := s.tokens.Verify(refresh)
	return ok
}

// Refresh exchanges a valid refresh credential for a new access credential.
func (s *AuthService) Refresh(ctx context.Context, refresh string) (string, error) {
	claims, ok := s.tokens.Verify(refresh)
	if !ok {
		return "", models.NewUnauthorizedError()
	}

	user, err := middleware.ResolveRefreshPrincipal(ctx, s.users, claims)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", models.NewUnauthorizedError()
	}

	access, err := s.tokens.SignAccess(user.Email)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return access, nil
}

// IssueSession materializes user's relationships and signs a new credential pair.
func (s *AuthService) IssueSession(ctx context.Context, user *models.User) (*models.SessionUser, error) {
	profile, err := s.view.Profile(ctx, user)
	if err != nil {
		return nil, err
	}
	access, err := s.tokens.SignAccess(user.Email)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	refresh, err := s.tokens.SignRefresh(user.Email, strconv.FormatUint(uint64(user.ID), 10))
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &models.SessionUser{UserProfile: *profile, AccessToken: access, RefreshToken: refresh}, nil
}

// AvatarURL returns the generated initials avatar for name.
func AvatarURL(name string) string {
	q := url.Values{}
	q.Set("name", name)
	q.Set("background", "000")
	q.Set("color", "fff")
	return "https://ui-avatars.com/api?" + q.Encode()
}
