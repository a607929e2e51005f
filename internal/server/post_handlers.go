package server

import (
	"clipshare/internal/middleware"
	"clipshare/internal/models"
	"clipshare/internal/repository"
	"clipshare/internal/service"

	"github.com/gofiber/fiber/v2"
)

const msgMissingFile = "Please upload a file!"

// GetPosts handles GET /api/v1/post
// @Summary List public posts
// @Description Public feed, newest first. Accepts country, likes and userId filters.
// @Tags posts
// @Produce json
// @Param page query int false "Page number"
// @Param country query string false "Country code"
// @Param likes query int false "Minimum likes"
// @Param userId query int false "Owner ID"
// @Success 200 {object} models.Envelope{data=models.PostPage}
// @Failure 406 {object} models.Envelope
// @Router /post [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	page, err := s.postService.List(c.UserContext(), c.Queries(), s.pageQuery(c))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, page)
}

// GetPost handles GET /api/v1/post/:postId/one
// @Summary Get a single post
// @Tags posts
// @Produce json
// @Security AccessToken
// @Param postId path int true "Post ID"
// @Success 200 {object} models.Envelope{data=models.PostWithOwner}
// @Failure 404 {object} models.Envelope
// @Failure 406 {object} models.Envelope
// @Router /post/{postId}/one [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	postID, err := parseID(c, "postId", repository.MsgInvalidPostID)
	if err != nil {
		return err
	}
	post, err := s.postService.Get(c.UserContext(), viewerID(c), postID)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, post)
}

// GetFollowingPosts handles GET /api/v1/post/following/post
// @Summary Posts from followed users
// @Tags posts
// @Produce json
// @Security AccessToken
// @Success 200 {object} models.Envelope{data=[]models.UserAndPost}
// @Router /post/following/post [get]
func (s *Server) GetFollowingPosts(c *fiber.Ctx) error {
	feed, err := s.postService.FollowingFeed(c.UserContext(), middleware.CurrentUser(c))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, feed)
}

// SearchPosts handles GET /api/v1/post/search
// @Summary Search posts
// @Tags posts
// @Produce json
// @Security AccessToken
// @Param keyword query string true "Keyword"
// @Param page query int false "Page number"
// @Success 200 {object} models.Envelope{data=models.PostPage}
// @Failure 406 {object} models.Envelope
// @Router /post/search [get]
func (s *Server) SearchPosts(c *fiber.Ctx) error {
	page, err := s.postService.Search(c.UserContext(), viewerID(c), c.Query("keyword"), s.pageQuery(c))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, page)
}

// SearchPostsByTag handles GET /api/v1/post/search/tag
// @Summary Search posts by hashtag
// @Tags posts
// @Produce json
// @Security AccessToken
// @Param tag query string true "Base64 encoded tag"
// @Param page query int false "Page number"
// @Success 200 {object} models.Envelope{data=models.PostPage}
// @Failure 406 {object} models.Envelope
// @Router /post/search/tag [get]
func (s *Server) SearchPostsByTag(c *fiber.Ctx) error {
	page, err := s.postService.SearchByTag(c.UserContext(), viewerID(c), c.Query("tag"), s.pageQuery(c))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, page)
}

// UploadVideo handles POST /api/v1/post
// @Summary Upload a video
// @Description Stores the file; the post is created by POST /post/post_data.
// @Tags posts
// @Accept mpfd
// @Produce json
// @Security AccessToken
// @Param file formData file true "MP4 or MKV video"
// @Success 200 {object} models.Envelope{data=models.UploadedFile}
// @Failure 406 {object} models.Envelope
// @Router /post [post]
func (s *Server) UploadVideo(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return models.NewValidationError(msgMissingFile)
	}
	f, err := fh.Open()
	if err != nil {
		return models.NewInternalError(err)
	}
	defer func() { _ = f.Close() }()

	uploaded, err := s.postService.Upload(c.UserContext(), fh.Header.Get("Content-Type"), f)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, uploaded)
}

// SetPostData handles POST /api/v1/post/post_data
// @Summary Create a post for an uploaded video
// @Tags posts
// @Accept json
// @Produce json
// @Security AccessToken
// @Param request body service.SetPostDataInput true "Post data"
// @Success 201 {object} models.Envelope{data=models.Post}
// @Failure 406 {object} models.Envelope
// @Router /post/post_data [post]
func (s *Server) SetPostData(c *fiber.Ctx) error {
	var in service.SetPostDataInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	post, err := s.postService.SetPostData(c.UserContext(), middleware.CurrentUser(c), in)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, post)
}

// ChangePostPrivacy handles PATCH /api/v1/post/:postId/post_privacy
// @Summary Change post privacy
// @Tags posts
// @Accept json
// @Produce json
// @Security AccessToken
// @Param postId path int true "Post ID"
// @Param request body object true "{\"newPrivacy\": \"public|friends|private\"}"
// @Success 200 {object} models.Envelope{data=models.Post}
// @Failure 404 {object} models.Envelope
// @Failure 406 {object} models.Envelope
// @Router /post/{postId}/post_privacy [patch]
func (s *Server) ChangePostPrivacy(c *fiber.Ctx) error {
	postID, err := parseID(c, "postId", repository.MsgInvalidPostID)
	if err != nil {
		return err
	}
	var in struct {
		NewPrivacy *string `json:"newPrivacy"`
	}
	if err := parseBody(c, &in); err != nil {
		return err
	}
	post, err := s.postService.ChangePrivacy(c.UserContext(), middleware.CurrentUser(c), postID, in.NewPrivacy)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, post)
}

// ChangePostCommenting handles POST /api/v1/post/:postId/post_commenting
// @Summary Allow or disallow comments
// @Tags posts
// @Accept json
// @Produce json
// @Security AccessToken
// @Param postId path int true "Post ID"
// @Param request body object true "{\"allowCommenting\": \"allow|disallowed\"}"
// @Success 200 {object} models.Envelope{data=models.Post}
// @Failure 404 {object} models.Envelope
// @Failure 406 {object} models.Envelope
// @Router /post/{postId}/post_commenting [post]
func (s *Server) ChangePostCommenting(c *fiber.Ctx) error {
	postID, err := parseID(c, "postId", repository.MsgInvalidPostID)
	if err != nil {
		return err
	}
	var in struct {
		AllowCommenting *string `json:"allowCommenting"`
	}
	if err := parseBody(c, &in); err != nil {
		return err
	}
	post, err := s.postService.ChangeAllowCommenting(c.UserContext(), middleware.CurrentUser(c), postID, in.AllowCommenting)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, post)
}

// DeletePost handles DELETE /api/v1/post/:postId
// @Summary Delete own post
// @Tags posts
// @Produce json
// @Security AccessToken
// @Param postId path int true "Post ID"
// @Success 200 {object} models.Envelope
// @Failure 404 {object} models.Envelope
// @Router /post/{postId} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	postID, err := parseID(c, "postId", repository.MsgInvalidPostID)
	if err != nil {
		return err
	}
	if err := s.postService.Delete(c.UserContext(), middleware.CurrentUser(c), postID); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Post deleted!")
}

// LikePost handles POST /api/v1/post/:postId/like
// @Summary Like a post
// @Tags posts
// @Produce json
// @Security AccessToken
// @Param postId path int true "Post ID"
// @Success 200 {object} models.Envelope{data=models.LikeResult}
// @Failure 404 {object} models.Envelope
// @Router /post/{postId}/like [post]
func (s *Server) LikePost(c *fiber.Ctx) error {
	postID, err := parseID(c, "postId", repository.MsgInvalidPostID)
	if err != nil {
		return err
	}
	result, err := s.postService.Like(c.UserContext(), middleware.CurrentUser(c), postID)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, result)
}

// UnlikePost handles PATCH /api/v1/post/:postId/like
// @Summary Unlike a post
// @Tags posts
// @Produce json
// @Security AccessToken
// @Param postId path int true "Post ID"
// @Success 200 {object} models.Envelope{data=models.LikeResult}
// @Failure 404 {object} models.Envelope
// @Router /post/{postId}/like [patch]
func (s *Server) UnlikePost(c *fiber.Ctx) error {
	postID, err := parseID(c, "postId", repository.MsgInvalidPostID)
	if err != nil {
		return err
	}
	result, err := s.postService.Unlike(c.UserContext(), middleware.CurrentUser(c), postID)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, result)
}

// AddPostView handles PATCH /api/v1/post/:postId/view
// @Summary Count a view
// @Tags posts
// @Produce json
// @Security AccessToken
// @Param postId path int true "Post ID"
// @Success 200 {object} models.Envelope{data=models.ViewCount}
// @Failure 404 {object} models.Envelope
// @Router /post/{postId}/view [patch]
func (s *Server) AddPostView(c *fiber.Ctx) error {
	postID, err := parseID(c, "postId", repository.MsgInvalidPostID)
	if err != nil {
		return err
	}
	views, err := s.postService.AddView(c.UserContext(), postID)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, views)
}
