package service

import (
	"context"

	"clipshare/internal/models"
	"clipshare/internal/repository"
	"clipshare/internal/validation"
)

// Comment request messages.
const (
	MsgMissingComment = "Please provide your comment!"
	MsgCommentingOff  = "Commenting is disabled for this post!"
	maxCommentLen     = 1000
	msgCommentTooLong = "Comment too long (max 1000 characters)"
)

// PostReader is the read side of posts a comment depends on.
type PostReader interface {
	Get(ctx context.Context, viewerID, postID uint) (*models.PostWithOwner, error)
}

type CommentService struct {
	comments repository.CommentRepository
	posts    PostReader
}

// AddCommentInput is the comment body. ReplyTo names a comment on the same post.
type AddCommentInput struct {
	Comment *string `json:"comment"`
	ReplyTo *uint   `json:"replyTo"`
}

func NewCommentService(comments repository.CommentRepository, posts PostReader) *CommentService {
	return &CommentService{comments: comments, posts: posts}
}

// Add comments on a post me can see and that still accepts comments.
func (s *CommentService) Add(ctx context.Context, me *models.User, postID uint, in AddCommentInput) (*models.Comment, error) {
	var f validation.Fields
	f.Required("comment", in.Comment, MsgMissingComment)
	if err := f.Err(); err != nil {
		return nil, err
	}
	text := validation.SanitizeText(*in.Comment)
	if text == "" {
		return nil, models.NewFieldValidationError([]models.FieldError{{Field: "comment", Message: MsgMissingComment}})
	}
	if len(text) > maxCommentLen {
		return nil, models.NewFieldValidationError([]models.FieldError{{Field: "comment", Message: msgCommentTooLong}})
	}

	read, err := s.posts.Get(ctx, me.ID, postID)
	if err != nil {
		return nil, err
	}
	if read.Post.AllowComment != models.CommentsAllowed {
		return nil, models.NewPolicyDeniedError(MsgCommentingOff)
	}

	comment := &models.Comment{
		UserID:  me.ID,
		PostID:  postID,
		Comment: text,
		ReplyTo: in.ReplyTo,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// List returns one page of comments on a post viewer can see, oldest first.
func (s *CommentService) List(ctx context.Context, viewerID, postID uint, page PageQuery) (*models.CommentPage, error) {
	if _, err := s.posts.Get(ctx, viewerID, postID); err != nil {
		return nil, err
	}

	w := page.window()
	comments, total, err := s.comments.ListByPost(ctx, postID, w.Limit, w.Skip)
	if err != nil {
		return nil, err
	}
	return &models.CommentPage{PageResult: pageResult(w, total, page.SelfURL), Comments: comments}, nil
}

// Delete removes one of my comments on postID and its direct replies.
func (s *CommentService) Delete(ctx context.Context, me *models.User, postID, commentID uint) error {
	return s.comments.Delete(ctx, postID, commentID, me.ID)
}
