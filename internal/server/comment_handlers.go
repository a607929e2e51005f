package server

import (
	"clipshare/internal/middleware"
	"clipshare/internal/repository"
	"clipshare/internal/service"

	"github.com/gofiber/fiber/v2"
)

// AddComment handles POST /api/v1/post/:postId/comments
// @Summary Comment on a post
// @Tags comments
// @Accept json
// @Produce json
// @Security AccessToken
// @Param postId path int true "Post ID"
// @Param request body service.AddCommentInput true "Comment"
// @Success 201 {object} models.Envelope{data=models.Comment}
// @Failure 406 {object} models.Envelope
// @Router /post/{postId}/comments [post]
func (s *Server) AddComment(c *fiber.Ctx) error {
	postID, err := parseID(c, "postId", repository.MsgInvalidPostID)
	if err != nil {
		return err
	}
	var in service.AddCommentInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	comment, err := s.commentService.Add(c.UserContext(), middleware.CurrentUser(c), postID, in)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, comment)
}

// GetComments handles GET /api/v1/post/:postId/comments
// @Summary List comments on a post
// @Tags comments
// @Produce json
// @Security AccessToken
// @Param postId path int true "Post ID"
// @Param page query int false "Page number"
// @Success 200 {object} models.Envelope{data=models.CommentPage}
// @Failure 404 {object} models.Envelope
// @Router /post/{postId}/comments [get]
func (s *Server) GetComments(c *fiber.Ctx) error {
	postID, err := parseID(c, "postId", repository.MsgInvalidPostID)
	if err != nil {
		return err
	}
	page, err := s.commentService.List(c.UserContext(), viewerID(c), postID, s.pageQuery(c))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, page)
}

// DeleteComment handles DELETE /api/v1/post/:postId/comments/:commentId
// @Summary Delete own comment
// @Tags comments
// @Produce json
// @Security AccessToken
// @Param postId path int true "Post ID"
// @Param commentId path int true "Comment ID"
// @Success 200 {object} models.Envelope
// @Failure 404 {object} models.Envelope
// @Router /post/{postId}/comments/{commentId} [delete]
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	postID, err := parseID(c, "postId", repository.MsgInvalidPostID)
	if err != nil {
		return err
	}
	commentID, err := parseID(c, "commentId", repository.MsgCommentNotFound)
	if err != nil {
		return err
	}
	if err := s.commentService.Delete(c.UserContext(), middleware.CurrentUser(c), postID, commentID); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Comment deleted!")
}
