package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"clipshare/internal/models"
	"clipshare/internal/token"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

type stubLookup struct {
	getByEmail func(ctx context.Context, email string) (*models.User, error)
	getByID    func(ctx context.Context, id uint) (*models.User, error)
}

func (s stubLookup) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmail(ctx, email)
}

func (s stubLookup) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByID(ctx, id)
}

func lookupFor(users ...*models.User) stubLookup {
	return stubLookup{
		getByEmail: func(_ context.Context, email string) (*models.User, error) {
			for _, u := range users {
				if u.Email == email {
					return u, nil
				}
			}
			return nil, nil
		},
		getByID: func(_ context.Context, id uint) (*models.User, error) {
			for _, u := range users {
				if u.ID == id {
					return u, nil
				}
			}
			return nil, models.NewNotFoundError("User not found!")
		},
	}
}

type gateResponse struct {
	Status int
	Body   struct {
		Data           *uint  `json:"data"`
		Error          any    `json:"error"`
		NewAccessToken string `json:"newAccessToken"`
	}
}

func newGateApp(tokens *token.Service, users PrincipalLookup) *fiber.App {
	app := fiber.New()
	app.Get("/protected", AuthGate(tokens, users), func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		return c.JSON(models.Envelope{
			Data:           user.ID,
			NewAccessToken: RotatedAccessToken(c),
		})
	})
	return app
}

func doGate(t *testing.T, app *fiber.App, access, refresh string) gateResponse {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if access != "" {
		req.Header.Set(HeaderAccessToken, access)
	}
	if refresh != "" {
		req.Header.Set(HeaderRefreshToken, refresh)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out gateResponse
	out.Status = resp.StatusCode
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out.Body))
	return out
}

func TestAuthGate(t *testing.T) {
	alice := &models.User{ID: 7, Email: "alice@example.com", Role: models.RoleUser}

	now := time.Now()
	tokens, err := token.NewService(testSecret)
	require.NoError(t, err)
	past, err := token.NewService(testSecret, token.WithClock(func() time.Time { return now.Add(-time.Hour) }))
	require.NoError(t, err)

	validAccess, _ := tokens.SignAccess(alice.Email)
	expiredAccess, _ := past.SignAccess(alice.Email)
	validRefresh, _ := tokens.SignRefresh(alice.Email, strconv.Itoa(int(alice.ID)))
	expiredRefresh, _ := tokens.Sign(token.Claims{Email: alice.Email, UserID: "7"}, -time.Minute)
	ghostAccess, _ := tokens.SignAccess("ghost@example.com")
	ghostRefresh, _ := tokens.SignRefresh("ghost@example.com", "99")
	emailOnlyRefresh, _ := tokens.SignRefresh(alice.Email, "99")

	app := newGateApp(tokens, lookupFor(alice))

	tests := []struct {
		name        string
		access      string
		refresh     string
		wantStatus  int
		wantRotated bool
	}{
		{"valid access", validAccess, "", http.StatusOK, false},
		{"valid access and refresh", validAccess, validRefresh, http.StatusOK, false},
		{"expired access valid refresh", expiredAccess, validRefresh, http.StatusOK, true},
		{"missing access valid refresh", "", validRefresh, http.StatusOK, true},
		{"refresh id stale falls back to email", "", emailOnlyRefresh, http.StatusOK, true},
		{"no credentials", "", "", http.StatusUnauthorized, false},
		{"both expired", expiredAccess, expiredRefresh, http.StatusUnauthorized, false},
		{"garbage", "abc", "def", http.StatusUnauthorized, false},
		{"access for deleted user", ghostAccess, "", http.StatusUnauthorized, false},
		{"refresh for deleted user", "", ghostRefresh, http.StatusUnauthorized, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := doGate(t, app, tt.access, tt.refresh)
			assert.Equal(t, tt.wantStatus, got.Status)

			if tt.wantStatus == http.StatusUnauthorized {
				assert.Nil(t, got.Body.Data)
				assert.Equal(t, models.UnauthorizedMessage, got.Body.Error)
				assert.Empty(t, got.Body.NewAccessToken)
				return
			}

			require.NotNil(t, got.Body.Data)
			assert.Equal(t, alice.ID, *got.Body.Data)
			if !tt.wantRotated {
				assert.Empty(t, got.Body.NewAccessToken)
				return
			}
			claims, ok := tokens.Verify(got.Body.NewAccessToken)
			require.True(t, ok, "rotated credential must verify")
			assert.Equal(t, alice.Email, claims.Email)
			assert.Empty(t, claims.UserID)
		})
	}
}

func TestAuthGate_RotatedCredentialAuthorizesNextRequest(t *testing.T) {
	alice := &models.User{ID: 7, Email: "alice@example.com"}
	tokens, err := token.NewService(testSecret)
	require.NoError(t, err)
	refresh, _ := tokens.SignRefresh(alice.Email, "7")

	app := newGateApp(tokens, lookupFor(alice))

	first := doGate(t, app, "", refresh)
	require.Equal(t, http.StatusOK, first.Status)
	require.NotEmpty(t, first.Body.NewAccessToken)

	second := doGate(t, app, first.Body.NewAccessToken, "")
	assert.Equal(t, http.StatusOK, second.Status)
	assert.Empty(t, second.Body.NewAccessToken)
}

func TestAuthGate_StoreFailureIsNotAuthFailure(t *testing.T) {
	tokens, err := token.NewService(testSecret)
	require.NoError(t, err)
	access, _ := tokens.SignAccess("alice@example.com")

	lookup := stubLookup{
		getByEmail: func(context.Context, string) (*models.User, error) {
			return nil, models.NewInternalError(errors.New("connection refused"))
		},
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			appErr := models.AsAppError(err)
			return c.Status(appErr.Status()).JSON(models.Envelope{Error: appErr.Payload()})
		},
	})
	app.Get("/protected", AuthGate(tokens, lookup), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(HeaderAccessToken, access)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}
