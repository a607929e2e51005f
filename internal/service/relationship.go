// Package service implements the application's business operations on top of the repositories.
package service

import (
	"context"
	"log/slog"

	"clipshare/internal/middleware"
	"clipshare/internal/models"
	"clipshare/internal/observability"
)

// UserLookup batch-resolves user ids.
type UserLookup interface {
	GetByIDs(ctx context.Context, ids []uint) ([]models.User, error)
}

// RelationshipView turns raw follow id lists into display records.
type RelationshipView struct {
	users UserLookup
}

func NewRelationshipView(users UserLookup) *RelationshipView {
	return &RelationshipView{users: users}
}

// Summaries resolves ids to summaries, keeping their order. Ids that no
// longer resolve are left out; each one is logged and counted under list.
func (v *RelationshipView) Summaries(ctx context.Context, list string, ids []uint) ([]models.UserSummary, error) {
	out := make([]models.UserSummary, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	found, err := v.Resolve(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		u, ok := found[id]
		if !ok {
			observability.UnresolvedRelationships.WithLabelValues(list).Inc()
			middleware.Logger.WarnContext(ctx, "Dropping unresolvable relationship",
				slog.String("list", list),
				slog.Uint64("user_id", uint64(id)),
			)
			continue
		}
		out = append(out, u.Summary())
	}
	return out, nil
}

// Resolve returns the users found among ids keyed by id. Zero ids are skipped.
func (v *RelationshipView) Resolve(ctx context.Context, ids []uint) (map[uint]*models.User, error) {
	unique := make([]uint, 0, len(ids))
	seen := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	found := make(map[uint]*models.User, len(unique))
	if len(unique) == 0 {
		return found, nil
	}
	users, err := v.users.GetByIDs(ctx, unique)
	if err != nil {
		return nil, err
	}
	for i := range users {
		found[users[i].ID] = &users[i]
	}
	return found, nil
}

// Profile returns user with both relationship lists materialized.
func (v *RelationshipView) Profile(ctx context.Context, user *models.User) (*models.UserProfile, error) {
	following, err := v.Summaries(ctx, "following", user.Following)
	if err != nil {
		return nil, err
	}
	followers, err := v.Summaries(ctx, "followers", user.Followers)
	if err != nil {
		return nil, err
	}
	profile := &models.UserProfile{
		User:      *user,
		Following: following,
		Followers: followers,
	}
	profile.Password = ""
	return profile, nil
}

// Attach pairs each post with its owner's summary. Posts whose owner no
// longer resolves are left out of the result.
func (v *RelationshipView) Attach(ctx context.Context, posts []models.Post) ([]models.UserAndPost, error) {
	out := make([]models.UserAndPost, 0, len(posts))
	if len(posts) == 0 {
		return out, nil
	}
	ownerIDs := make([]uint, len(posts))
	for i := range posts {
		ownerIDs[i] = posts[i].UserID
	}
	owners, err := v.Resolve(ctx, ownerIDs)
	if err != nil {
		return nil, err
	}
	for i := range posts {
		owner, ok := owners[posts[i].UserID]
		if !ok {
			observability.UnresolvedRelationships.WithLabelValues("post_owner").Inc()
			continue
		}
		summary := owner.Summary()
		out = append(out, models.UserAndPost{User: &summary, Post: &posts[i]})
	}
	return out, nil
}
