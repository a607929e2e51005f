package repository

import (
	"context"
	"testing"
	"time"

	"clipshare/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentRepository(t *testing.T) {
	db := setupSQLite(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	owner := seedUser(t, db, "owner")
	post := seedPost(t, db, owner.ID, "clip", models.PrivacyPublic, time.Now())
	other := seedPost(t, db, owner.ID, "other", models.PrivacyPublic, time.Now())

	root := &models.Comment{UserID: owner.ID, PostID: post.ID, Comment: "first"}
	require.NoError(t, repo.Create(ctx, root))

	reply := &models.Comment{UserID: owner.ID, PostID: post.ID, Comment: "reply", ReplyTo: &root.ID}
	require.NoError(t, repo.Create(ctx, reply))

	stray := &models.Comment{UserID: owner.ID, PostID: other.ID, Comment: "stray", ReplyTo: &root.ID}
	err := repo.Create(ctx, stray)
	assert.True(t, models.IsCode(err, models.CodeNotFound), "replies stay on the same post")

	list, total, err := repo.ListByPost(ctx, post.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, list, 2)
	assert.Equal(t, "first", list[0].Comment)

	err = repo.Delete(ctx, post.ID, root.ID, owner.ID+100)
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	err = repo.Delete(ctx, other.ID, root.ID, owner.ID)
	assert.True(t, models.IsCode(err, models.CodeNotFound), "comment belongs to another post")

	require.NoError(t, repo.Delete(ctx, post.ID, root.ID, owner.ID))
	_, total, err = repo.ListByPost(ctx, post.ID, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total, "direct replies go with their parent")
}
