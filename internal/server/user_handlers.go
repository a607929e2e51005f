package server

import (
	"strconv"

	"clipshare/internal/middleware"
	"clipshare/internal/models"
	"clipshare/internal/repository"
	"clipshare/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMe returns the current user's profile
// @Summary Current user
// @Tags users
// @Produce json
// @Security AccessToken
// @Success 200 {object} models.Envelope{data=models.UserProfile}
// @Failure 401 {object} models.Envelope
// @Router /user [get]
func (s *Server) GetMe(c *fiber.Ctx) error {
	profile, err := s.userService.Profile(c.UserContext(), middleware.CurrentUser(c))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, profile)
}

// GetUsers lists users matching a filter
// @Summary List users (admin)
// @Tags users
// @Produce json
// @Security AccessToken
// @Param page query int false "Page number"
// @Param username query string false "Username"
// @Param country query string false "Country code"
// @Success 200 {object} models.Envelope{data=models.UserPage}
// @Failure 406 {object} models.Envelope
// @Router /user/users [get]
func (s *Server) GetUsers(c *fiber.Ctx) error {
	queries := c.Queries()
	filter, err := parseUserFilter(queries)
	if err != nil {
		return err
	}

	page, err := s.userService.ListUsers(c.UserContext(), middleware.CurrentUser(c), service.ListUsersInput{
		Filter:  filter,
		NoQuery: len(queries) == 0,
		Page:    s.pageQuery(c),
	})
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, page)
}

func parseUserFilter(queries map[string]string) (repository.UserFilter, error) {
	var f repository.UserFilter
	for key, value := range queries {
		switch key {
		case "page":
		case "username":
			f.Username = value
		case "name":
			f.Name = value
		case "email":
			f.Email = value
		case "country":
			f.Country = value
		case "type":
			f.Type = value
		case "role":
			role, err := strconv.Atoi(value)
			if err != nil {
				return f, models.NewValidationError(service.MsgInvalidQueries)
			}
			f.Role = role
		case "verified":
			verified, err := strconv.Atoi(value)
			if err != nil {
				return f, models.NewValidationError(service.MsgInvalidQueries)
			}
			f.Verified = &verified
		default:
			return f, models.NewValidationError(service.MsgInvalidQueries)
		}
	}
	return f, nil
}

// SearchUsers searches users by name
// @Summary Search users
// @Tags users
// @Produce json
// @Security AccessToken
// @Param keyword query string true "Keyword"
// @Param page query int false "Page number"
// @Success 200 {object} models.Envelope{data=models.UserPage}
// @Failure 406 {object} models.Envelope
// @Router /user/search [get]
func (s *Server) SearchUsers(c *fiber.Ctx) error {
	page, err := s.userService.SearchByName(c.UserContext(), c.Query("keyword"), s.pageQuery(c))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, page)
}

// GetUserByUsername returns a user by username
// @Summary Get user by username
// @Tags users
// @Produce json
// @Security AccessToken
// @Param username path string true "Username"
// @Success 200 {object} models.Envelope{data=models.User}
// @Failure 404 {object} models.Envelope
// @Router /user/{username}/one [get]
func (s *Server) GetUserByUsername(c *fiber.Ctx) error {
	user, err := s.userService.GetByUsername(c.UserContext(), viewerID(c), c.Params("username"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, user)
}

// FollowUser follows another user
// @Summary Follow user
// @Tags users
// @Produce json
// @Security AccessToken
// @Param userId path int true "User ID"
// @Success 200 {object} models.Envelope{data=models.UserProfile}
// @Failure 406 {object} models.Envelope
// @Router /user/{userId}/follow [post]
func (s *Server) FollowUser(c *fiber.Ctx) error {
	targetID, err := parseID(c, "userId", repository.MsgInvalidRequest)
	if err != nil {
		return err
	}
	profile, err := s.userService.Follow(c.UserContext(), middleware.CurrentUser(c), targetID)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, profile)
}

// UnfollowUser stops following another user
// @Summary Unfollow user
// @Tags users
// @Produce json
// @Security AccessToken
// @Param userId path int true "User ID"
// @Success 200 {object} models.Envelope{data=models.UserProfile}
// @Router /user/{userId}/follow [delete]
func (s *Server) UnfollowUser(c *fiber.Ctx) error {
	targetID, err := parseID(c, "userId", repository.MsgInvalidRequest)
	if err != nil {
		return err
	}
	profile, err := s.userService.Unfollow(c.UserContext(), middleware.CurrentUser(c), targetID)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, profile)
}

// ChangeProfilePicture replaces the current user's picture
// @Summary Change profile picture
// @Tags users
// @Accept mpfd
// @Produce json
// @Security AccessToken
// @Param file formData file true "PNG or JPEG image"
// @Success 200 {object} models.Envelope{data=models.UserProfile}
// @Failure 406 {object} models.Envelope
// @Router /user/profile_picture [patch]
func (s *Server) ChangeProfilePicture(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return models.NewValidationError(msgMissingFile)
	}
	f, err := fh.Open()
	if err != nil {
		return models.NewInternalError(err)
	}
	defer func() { _ = f.Close() }()

	profile, err := s.userService.ChangeProfilePicture(c.UserContext(), middleware.CurrentUser(c), fh.Header.Get("Content-Type"), f)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, profile)
}

// ChangeLikedVideosStatus toggles the public liked list
// @Summary Change liked videos visibility
// @Tags users
// @Accept json
// @Produce json
// @Security AccessToken
// @Param request body object true "{\"newPrivacyStatus\": \"true|false\"}"
// @Success 200 {object} models.Envelope{data=models.UserProfile}
// @Failure 406 {object} models.Envelope
// @Router /user/liked_video_status [patch]
func (s *Server) ChangeLikedVideosStatus(c *fiber.Ctx) error {
	var in struct {
		NewPrivacyStatus *string `json:"newPrivacyStatus"`
	}
	if err := parseBody(c, &in); err != nil {
		return err
	}
	profile, err := s.userService.ChangeLikedVideosStatus(c.UserContext(), middleware.CurrentUser(c), in.NewPrivacyStatus)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, profile)
}

// UpdateBio changes the current user's bio
// @Summary Update bio
// @Tags users
// @Accept json
// @Produce json
// @Security AccessToken
// @Param request body object true "{\"newBio\": \"...\"}"
// @Success 200 {object} models.Envelope{data=models.UserProfile}
// @Failure 406 {object} models.Envelope
// @Router /user/bio [patch]
func (s *Server) UpdateBio(c *fiber.Ctx) error {
	var in struct {
		NewBio *string `json:"newBio"`
	}
	if err := parseBody(c, &in); err != nil {
		return err
	}
	profile, err := s.userService.UpdateBio(c.UserContext(), middleware.CurrentUser(c), in.NewBio)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, profile)
}
