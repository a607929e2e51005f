package models

// Envelope is the body shape of every API response.
// NewAccessToken is set only when the request's access token was rotated.
type Envelope struct {
	Data           any    `json:"data"`
	Error          any    `json:"error"`
	NewAccessToken string `json:"newAccessToken,omitempty"`
}

// PageResult is the data shape shared by every paginated listing.
// Results are serialized under a listing-specific key, see PostPage and UserPage.
type PageResult struct {
	Page    int     `json:"page"`
	NextURL *string `json:"nextURL"`
	AllPage int     `json:"allPage"`
}

// PostPage is a page of posts with their owners.
type PostPage struct {
	PageResult
	Result []UserAndPost `json:"result"`
}

// UserPage is a page of users.
type UserPage struct {
	PageResult
	User []User `json:"user"`
}

// CommentPage is a page of comments on one post.
type CommentPage struct {
	PageResult
	Comments []Comment `json:"comments"`
}
