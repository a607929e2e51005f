package models

import (
	"time"
)

// Comment is a comment on a post, optionally replying to another comment.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"_id"`
	UserID    uint      `gorm:"not null;index" json:"userId"`
	PostID    uint      `gorm:"not null;index" json:"postId"`
	Comment   string    `gorm:"type:text;not null" json:"comment"`
	ReplyTo   *uint     `gorm:"index" json:"replyTo,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
