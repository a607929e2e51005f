// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// Role values stored on User.Role.
const (
	RoleAdmin = 1
	RoleUser  = 2
)

// Account types accepted at registration.
const (
	UserTypeAdmin = "admin"
	UserTypeUser  = "user"
)

// VerifiedLikesThreshold is the received-likes count above which a user is marked verified.
const VerifiedLikesThreshold = 5000

// User represents an account. Following, Followers, Videos and Liked are
// derived from the follows, posts and post_likes tables.
type User struct {
	ID              uint      `gorm:"primaryKey" json:"_id"`
	Username        string    `gorm:"not null;index" json:"username"`
	Name            string    `gorm:"not null" json:"name"`
	Email           string    `gorm:"unique;not null" json:"email"`
	Password        string    `json:"-"`
	Type            string    `gorm:"not null;default:user" json:"type"`
	Role            int       `gorm:"not null;default:2" json:"role"`
	Country         string    `gorm:"not null" json:"country"`
	ProfilePicture  string    `gorm:"not null" json:"profile_picture"`
	Bio             string    `gorm:"not null" json:"bio"`
	Likes           int64     `gorm:"not null;default:0" json:"likes"`
	Verified        int       `gorm:"not null;default:0" json:"verified"`
	ShowLikedVideos string    `gorm:"not null;default:true" json:"showLikedVideos"`
	IsGoogleAccount bool      `gorm:"not null;default:false" json:"isGoogleAccount"`
	Following       []uint    `gorm:"-" json:"following"`
	Followers       []uint    `gorm:"-" json:"followers"`
	Videos          []uint    `gorm:"-" json:"videos"`
	Liked           []uint    `gorm:"-" json:"liked"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// IsAdmin reports whether the user has the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Summary returns the lightweight display record for the user.
func (u *User) Summary() UserSummary {
	return UserSummary{
		UserID:         u.ID,
		Username:       u.Username,
		Name:           u.Name,
		ProfilePicture: u.ProfilePicture,
		Verified:       u.Verified,
	}
}

// Follow is one directed edge: FollowerID follows FolloweeID.
type Follow struct {
	FollowerID uint      `gorm:"primaryKey;autoIncrement:false" json:"followerId"`
	FolloweeID uint      `gorm:"primaryKey;autoIncrement:false;index" json:"followeeId"`
	CreatedAt  time.Time `json:"createdAt"`
}

// UserSummary is the display record used in relationship lists and post listings.
type UserSummary struct {
	UserID         uint   `json:"userId"`
	Username       string `json:"username"`
	Name           string `json:"name"`
	ProfilePicture string `json:"profile_picture"`
	Verified       int    `json:"verified"`
}

// UserProfile is a user with its relationship id lists materialized into summaries.
type UserProfile struct {
	User
	Following []UserSummary `json:"following"`
	Followers []UserSummary `json:"followers"`
}

// SessionUser is the login payload: the user plus a fresh token pair.
type SessionUser struct {
	UserProfile
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
