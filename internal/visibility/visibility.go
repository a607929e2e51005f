// Package visibility decides whether a viewer may see a post.
package visibility

import (
	"clipshare/internal/models"
)

// Denial messages returned to callers.
const (
	MsgOwnerNotFound = "User not found!"
	MsgOwnerOnly     = "Only the owner can see this post"
	MsgFriendsOnly   = "Only the owner's friends can see this post"
)

// IDSet is a set of user ids.
type IDSet map[uint]struct{}

// NewIDSet builds a set from ids.
func NewIDSet(ids []uint) IDSet {
	set := make(IDSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Has reports whether id is in the set.
func (s IDSet) Has(id uint) bool {
	_, ok := s[id]
	return ok
}

// Owner is the slice of a post owner's state the decision depends on.
type Owner struct {
	ID        uint
	Following IDSet
	Followers IDSet
}

// OwnerFromUser builds an Owner from a user with its relationship lists loaded.
func OwnerFromUser(u *models.User) *Owner {
	if u == nil {
		return nil
	}
	return &Owner{
		ID:        u.ID,
		Following: NewIDSet(u.Following),
		Followers: NewIDSet(u.Followers),
	}
}

// Check returns nil when viewer may see a post with the given privacy owned by owner.
// owner may be nil when the owning account no longer resolves.
func Check(privacy string, owner *Owner, viewer uint) error {
	switch privacy {
	case models.PrivacyPublic:
		return nil
	case models.PrivacyPrivate:
		if owner == nil {
			return models.NewNotFoundError(MsgOwnerNotFound)
		}
		if owner.ID != viewer {
			return models.NewPolicyDeniedError(MsgOwnerOnly)
		}
		return nil
	case models.PrivacyFriends:
		if owner == nil {
			return models.NewNotFoundError(MsgOwnerNotFound)
		}
		if owner.ID == viewer {
			return nil
		}
		if !owner.Following.Has(viewer) || !owner.Followers.Has(viewer) {
			return models.NewPolicyDeniedError(MsgFriendsOnly)
		}
		return nil
	default:
		return models.NewPolicyDeniedError(MsgOwnerOnly)
	}
}

// Allowed is Check reduced to a boolean, for filtering listings.
func Allowed(privacy string, owner *Owner, viewer uint) bool {
	return Check(privacy, owner, viewer) == nil
}
