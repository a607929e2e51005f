package server

import (
	"clipshare/internal/middleware"
	"clipshare/internal/models"
	"clipshare/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Register handles user registration
// @Summary Register a new user
// @Description Create an account. An already registered email returns 200 with null data.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body service.RegisterInput true "Registration data"
// @Success 201 {object} models.Envelope{data=models.User}
// @Success 200 {object} models.Envelope
// @Failure 406 {object} models.Envelope
// @Router /auth/register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var in service.RegisterInput
	if err := parseBody(c, &in); err != nil {
		return err
	}

	user, err := s.authService.Register(c.UserContext(), in)
	if err != nil {
		return err
	}
	if user == nil {
		return respond(c, fiber.StatusOK, nil)
	}
	return respond(c, fiber.StatusCreated, user)
}

// Login handles user login
// @Summary Login user
// @Description Authenticate with email and password and receive a credential pair
// @Tags auth
// @Accept json
// @Produce json
// @Param request body service.LoginInput true "Login credentials"
// @Success 200 {object} models.Envelope{data=models.SessionUser}
// @Failure 403 {object} models.Envelope
// @Failure 406 {object} models.Envelope
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	if s.authService.AlreadyAuthenticated(c.Get(middleware.HeaderAccessToken), c.Get(middleware.HeaderRefreshToken)) {
		return models.NewPolicyDeniedError(service.MsgAlreadyLoggedIn)
	}

	var in service.LoginInput
	if err := parseBody(c, &in); err != nil {
		return err
	}

	session, err := s.authService.Login(c.UserContext(), in)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, session)
}

// Refresh exchanges a refresh credential for a new access credential
// @Summary Refresh access token
// @Tags auth
// @Produce json
// @Param x-refresh-token header string true "Refresh token"
// @Success 200 {object} models.Envelope
// @Failure 401 {object} models.Envelope
// @Router /auth/refresh [post]
func (s *Server) Refresh(c *fiber.Ctx) error {
	access, err := s.authService.Refresh(c.UserContext(), c.Get(middleware.HeaderRefreshToken))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, fiber.Map{"accessToken": access})
}

// GoogleAuthURL returns the Google consent page URL
// @Summary Google consent URL
// @Tags google
// @Produce json
// @Success 200 {object} models.Envelope
// @Router /google/authURL/client [get]
func (s *Server) GoogleAuthURL(c *fiber.Ctx) error {
	if s.googleService == nil {
		return fiber.ErrNotFound
	}
	return respond(c, fiber.StatusOK, s.googleService.AuthURL())
}

// GoogleLogin signs in or signs up with a Google authorization code
// @Summary Login with Google
// @Tags google
// @Accept json
// @Produce json
// @Param request body service.GoogleLoginInput true "Authorization code"
// @Success 200 {object} models.Envelope{data=models.SessionUser}
// @Failure 406 {object} models.Envelope
// @Router /google/login [post]
func (s *Server) GoogleLogin(c *fiber.Ctx) error {
	if s.googleService == nil {
		return fiber.ErrNotFound
	}

	var in service.GoogleLoginInput
	if err := parseBody(c, &in); err != nil {
		return err
	}

	session, err := s.googleService.LoginOrSignUp(c.UserContext(), in)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, session)
}

// Setup provisions the system account and its sample posts
// @Summary Provision system account
// @Tags setup
// @Produce json
// @Success 200 {object} models.Envelope{data=models.User}
// @Router /setup [get]
func (s *Server) Setup(c *fiber.Ctx) error {
	user, err := s.setup.Run(c.UserContext())
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, user)
}

// GetFeatureFlags lists flag states for the current admin
// @Summary Feature flag snapshot
// @Tags admin
// @Produce json
// @Security AccessToken
// @Success 200 {object} models.Envelope
// @Router /admin/feature-flags [get]
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	return respond(c, fiber.StatusOK, s.featureFlags.Snapshot(viewerID(c)))
}
