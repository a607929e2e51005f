package models

import (
	"time"
)

// Privacy values for Post.Privacy.
const (
	PrivacyPublic  = "public"
	PrivacyPrivate = "private"
	PrivacyFriends = "friends"
)

// AllowComment values for Post.AllowComment.
const (
	CommentsAllowed    = "allow"
	CommentsDisallowed = "disallowed"
)

// Post is an uploaded video with its metadata and counters.
type Post struct {
	ID           uint      `gorm:"primaryKey" json:"_id"`
	UserID       uint      `gorm:"not null;index" json:"userId"`
	File         string    `gorm:"not null" json:"file"`
	Title        string    `gorm:"not null" json:"title"`
	Desc         string    `gorm:"column:description;type:text;not null" json:"desc"`
	Country      string    `gorm:"not null" json:"country"`
	Likes        int64     `gorm:"not null;default:0" json:"likes"`
	Privacy      string    `gorm:"not null;index" json:"privacy"`
	Viewed       int64     `gorm:"not null;default:0" json:"viewed"`
	AllowComment string    `gorm:"not null;default:allow" json:"allowComment"`
	Comments     []uint    `gorm:"-" json:"comments"`
	CreatedAt    time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// PostLike records that a user liked a post.
type PostLike struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"userId"`
	PostID    uint      `gorm:"primaryKey;autoIncrement:false;index" json:"postId"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserAndPost pairs a post with its owner's display record.
type UserAndPost struct {
	User *UserSummary `json:"user"`
	Post *Post        `json:"post"`
}

// PostWithOwner is the single-post read payload: the full owner record, when resolvable.
type PostWithOwner struct {
	Post *Post `json:"post"`
	User *User `json:"user"`
}

// LikeResult is returned by like and unlike.
type LikeResult struct {
	Post *Post `json:"post"`
	User *User `json:"user"`
}

// ViewCount is returned by the view counters.
type ViewCount struct {
	PostID uint  `json:"postId"`
	Viewed int64 `json:"viewed"`
}

// UploadedFile is returned by the upload endpoints before post metadata is set.
type UploadedFile struct {
	SaveTo string `json:"saveTo"`
	FileID string `json:"fileId"`
}
