// Package bootstrap creates the system account and its sample posts so a
// fresh install has something to show logged-out visitors.
package bootstrap

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"

	"clipshare/internal/middleware"
	"clipshare/internal/models"
	"clipshare/internal/service"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

//go:embed fixture.yml
var fixtureYAML []byte

// Fixture is the system account and the public posts created for it.
type Fixture struct {
	Account struct {
		Username string `yaml:"username"`
		Name     string `yaml:"name"`
		Country  string `yaml:"country"`
		Email    string `yaml:"email"`
		Password string `yaml:"password"`
		Type     string `yaml:"type"`
	} `yaml:"account"`
	Posts []struct {
		Title string `yaml:"title"`
		Desc  string `yaml:"desc"`
		File  string `yaml:"file"`
	} `yaml:"posts"`
}

// ParseFixture decodes a fixture document.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if f.Account.Email == "" || f.Account.Password == "" {
		return nil, fmt.Errorf("parse fixture: account email and password are required")
	}
	return &f, nil
}

// DefaultFixture returns the embedded fixture.
func DefaultFixture() *Fixture {
	f, err := ParseFixture(fixtureYAML)
	if err != nil {
		panic(err)
	}
	return f
}

// Users is the user store the setup writes to.
type Users interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

// Posts is the post store the setup writes to.
type Posts interface {
	CountByUser(ctx context.Context, userID uint) (int64, error)
	Create(ctx context.Context, post *models.Post) error
}

type Setup struct {
	users   Users
	posts   Posts
	fixture *Fixture
	cost    int
}

func NewSetup(users Users, posts Posts, fixture *Fixture, cost int) *Setup {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &Setup{users: users, posts: posts, fixture: fixture, cost: cost}
}

// Run creates the system account when missing and its posts when it has
// none. It is safe to call repeatedly.
func (s *Setup) Run(ctx context.Context) (*models.User, error) {
	user, err := s.account(ctx)
	if err != nil {
		return nil, err
	}

	n, err := s.posts.CountByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		for _, p := range s.fixture.Posts {
			post := &models.Post{
				UserID:       user.ID,
				File:         p.File,
				Title:        p.Title,
				Desc:         p.Desc,
				Country:      user.Country,
				Privacy:      models.PrivacyPublic,
				AllowComment: models.CommentsAllowed,
			}
			if err := s.posts.Create(ctx, post); err != nil {
				return nil, err
			}
		}
		middleware.Logger.InfoContext(ctx, "System posts created", slog.Int("count", len(s.fixture.Posts)))
	}

	user.Password = ""
	return user, nil
}

func (s *Setup) account(ctx context.Context) (*models.User, error) {
	a := s.fixture.Account
	email := strings.ToLower(a.Email)

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(a.Password), s.cost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	role := models.RoleUser
	if a.Type == models.UserTypeAdmin {
		role = models.RoleAdmin
	}
	user := &models.User{
		Username:        a.Username,
		Name:            a.Name,
		Email:           email,
		Password:        string(hash),
		Type:            a.Type,
		Role:            role,
		Country:         strings.ToUpper(a.Country),
		ProfilePicture:  service.AvatarURL(a.Name),
		Bio:             service.DefaultBio,
		ShowLikedVideos: "true",
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	middleware.Logger.InfoContext(ctx, "System account created", slog.Uint64("user_id", uint64(user.ID)))
	return user, nil
}
