package server

import (
	"errors"
	"log/slog"
	"strconv"

	"clipshare/internal/middleware"
	"clipshare/internal/models"
	"clipshare/internal/service"

	"github.com/gofiber/fiber/v2"
)

const msgInvalidBody = "Invalid request body"

// respond writes data in the response envelope, carrying the rotated access
// credential when the auth gate minted one.
func respond(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(models.Envelope{
		Data:           data,
		Error:          nil,
		NewAccessToken: middleware.RotatedAccessToken(c),
	})
}

// errorHandler renders every error returned by a handler or middleware.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(models.Envelope{
			Error:          fe.Message,
			NewAccessToken: middleware.RotatedAccessToken(c),
		})
	}

	appErr := models.AsAppError(err)
	status := appErr.Status()
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "Request failed",
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
	}
	return c.Status(status).JSON(models.Envelope{
		Error:          appErr.Payload(),
		NewAccessToken: middleware.RotatedAccessToken(c),
	})
}

// parseID extracts a positive numeric route parameter.
func parseID(c *fiber.Ctx, param, message string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(param), 10, 64)
	if err != nil || id == 0 {
		return 0, models.NewValidationError(message)
	}
	return uint(id), nil
}

// parseBody decodes a JSON body. An empty body decodes to the zero value so
// required-field validation reports what is missing.
func parseBody(c *fiber.Ctx, dest any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(dest); err != nil {
		return models.NewValidationError(msgInvalidBody)
	}
	return nil
}

// pageQuery captures ?page and the absolute URL of the current request.
func (s *Server) pageQuery(c *fiber.Ctx) service.PageQuery {
	return service.PageQuery{
		Page:    c.Query("page"),
		SelfURL: s.config.BaseURL + c.OriginalURL(),
	}
}

// viewerID is the current principal's id, or zero on public routes.
func viewerID(c *fiber.Ctx) uint {
	if user := middleware.CurrentUser(c); user != nil {
		return user.ID
	}
	return 0
}
