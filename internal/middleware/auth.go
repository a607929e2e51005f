package middleware

import (
	"context"
	"strconv"

	"clipshare/internal/models"
	"clipshare/internal/observability"
	"clipshare/internal/token"

	"github.com/gofiber/fiber/v2"
)

// Credential headers read by AuthGate.
const (
	HeaderAccessToken  = "x-access-token"
	HeaderRefreshToken = "x-refresh-token"
)

// Fiber locals written by AuthGate.
const (
	LocalUser           = "user"
	LocalUserID         = "userID"
	LocalNewAccessToken = "newAccessToken"
)

// TokenVerifier verifies credentials and mints replacement access credentials.
type TokenVerifier interface {
	Verify(credential string) (*token.Claims, bool)
	SignAccess(email string) (string, error)
}

// PrincipalLookup resolves the user behind a credential.
// GetByEmail returns (nil, nil) when no user matches; GetByID returns a not-found AppError.
type PrincipalLookup interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uint) (*models.User, error)
}

// AuthGate authenticates every request on the routes it guards.
//
// A valid access credential authorizes the request as is. Otherwise a valid
// refresh credential authorizes it and a new access credential is stored in
// c.Locals(LocalNewAccessToken) for the response envelope. Anything else is
// rejected with 401 before the handler runs.
func AuthGate(tokens TokenVerifier, users PrincipalLookup) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		if claims, ok := tokens.Verify(c.Get(HeaderAccessToken)); ok {
			user, err := users.GetByEmail(ctx, claims.Email)
			if err != nil {
				return err
			}
			if user == nil {
				return reject(c)
			}
			observability.AuthOutcomes.WithLabelValues("authorized").Inc()
			return proceed(c, user)
		}

		claims, ok := tokens.Verify(c.Get(HeaderRefreshToken))
		if !ok {
			return reject(c)
		}

		user, err := ResolveRefreshPrincipal(ctx, users, claims)
		if err != nil {
			return err
		}
		if user == nil {
			return reject(c)
		}

		access, err := tokens.SignAccess(user.Email)
		if err != nil {
			return models.NewInternalError(err)
		}
		c.Locals(LocalNewAccessToken, access)
		observability.AuthOutcomes.WithLabelValues("rotated").Inc()
		return proceed(c, user)
	}
}

// ResolveRefreshPrincipal finds the user behind refresh claims. It prefers the
// stable id claim and falls back to the email; (nil, nil) means nobody matched.
func ResolveRefreshPrincipal(ctx context.Context, users PrincipalLookup, claims *token.Claims) (*models.User, error) {
	if id, err := strconv.ParseUint(claims.UserID, 10, 64); err == nil && id > 0 {
		user, err := users.GetByID(ctx, uint(id))
		switch {
		case err == nil && user != nil:
			return user, nil
		case err != nil && !models.IsCode(err, models.CodeNotFound):
			return nil, err
		}
	}
	return users.GetByEmail(ctx, claims.Email)
}

func proceed(c *fiber.Ctx, user *models.User) error {
	c.Locals(LocalUser, user)
	c.Locals(LocalUserID, user.ID)
	c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, user.ID))
	return c.Next()
}

func reject(c *fiber.Ctx) error {
	observability.AuthOutcomes.WithLabelValues("rejected").Inc()
	return c.Status(fiber.StatusUnauthorized).JSON(models.Envelope{
		Data:  nil,
		Error: models.UnauthorizedMessage,
	})
}

// CurrentUser returns the principal stored by AuthGate, or nil on unguarded routes.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(LocalUser).(*models.User)
	return user
}

// RotatedAccessToken returns the access credential minted for this request, if any.
func RotatedAccessToken(c *fiber.Ctx) string {
	access, _ := c.Locals(LocalNewAccessToken).(string)
	return access
}
