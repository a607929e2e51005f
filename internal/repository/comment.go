package repository

import (
	"context"
	"errors"

	"clipshare/internal/cache"
	"clipshare/internal/models"
	"clipshare/internal/observability"

	"gorm.io/gorm"
)

// MsgCommentNotFound is returned when a reply target does not exist on the post.
const MsgCommentNotFound = "Comment not found!"

// CommentRepository defines persistence operations for comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	ListByPost(ctx context.Context, postID uint, limit, offset int) ([]models.Comment, int64, error)
	Delete(ctx context.Context, postID, id, userID uint) error
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository returns a new CommentRepository implementation.
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

// Create stores comment. A reply must target a comment on the same post.
func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	defer observability.TrackQuery("insert", "comments")()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if comment.ReplyTo != nil {
			var n int64
			if err := tx.Model(&models.Comment{}).
				Where("id = ? AND post_id = ?", *comment.ReplyTo, comment.PostID).
				Count(&n).Error; err != nil {
				return models.NewInternalError(err)
			}
			if n == 0 {
				return models.NewNotFoundError(MsgCommentNotFound)
			}
		}
		if err := tx.Create(comment).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	cache.InvalidatePost(ctx, comment.PostID)
	return nil
}

// ListByPost returns one page of a post's comments, oldest first, and the total.
func (r *commentRepository) ListByPost(ctx context.Context, postID uint, limit, offset int) ([]models.Comment, int64, error) {
	defer observability.TrackQuery("select", "comments")()

	db := readDB(r.db).WithContext(ctx)
	var total int64
	if err := db.Model(&models.Comment{}).Where("post_id = ?", postID).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	comments := []models.Comment{}
	if total > int64(offset) {
		if err := db.Where("post_id = ?", postID).
			Order("created_at ASC, id ASC").
			Limit(limit).Offset(offset).
			Find(&comments).Error; err != nil {
			return nil, 0, models.NewInternalError(err)
		}
	}
	return comments, total, nil
}

// Delete removes a comment on postID written by userID along with its direct
// replies. A comment on another post is not found.
func (r *commentRepository) Delete(ctx context.Context, postID, id, userID uint) error {
	defer observability.TrackQuery("delete", "comments")()

	var comment models.Comment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND post_id = ? AND user_id = ?", id, postID, userID).First(&comment).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError(MsgCommentNotFound)
			}
			return models.NewInternalError(err)
		}
		if err := tx.Where("id = ? OR reply_to = ?", id, id).Delete(&models.Comment{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	cache.InvalidatePost(ctx, comment.PostID)
	return nil
}
