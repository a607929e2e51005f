package repository

import (
	"context"
	"errors"

	"clipshare/internal/cache"
	"clipshare/internal/models"
	"clipshare/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Messages for post lookups and mutations.
const (
	MsgPostNotFound     = "Post not found!"
	MsgPostDoesNotExist = "Post does not found!"
	MsgInvalidPostID    = "Invalid PostId"
)

// PostFilter holds the whitelisted columns a post listing may filter on.
type PostFilter struct {
	Country string
	Likes   *int64
	UserID  uint
	Privacy string
}

func (f PostFilter) apply(db *gorm.DB) *gorm.DB {
	if f.Country != "" {
		db = db.Where("country = ?", f.Country)
	}
	if f.Likes != nil {
		db = db.Where("likes = ?", *f.Likes)
	}
	if f.UserID != 0 {
		db = db.Where("user_id = ?", f.UserID)
	}
	if f.Privacy != "" {
		db = db.Where("privacy = ?", f.Privacy)
	}
	return db
}

// PostRepository defines persistence operations for posts, likes and views.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	GetOwned(ctx context.Context, id, ownerID uint) (*models.Post, error)
	List(ctx context.Context, filter PostFilter, limit, offset int) ([]models.Post, int64, error)
	ListByIDs(ctx context.Context, ids []uint) ([]models.Post, error)
	RecentByUsers(ctx context.Context, userIDs []uint, perUser int) ([]models.Post, error)
	Search(ctx context.Context, keyword string, viewerID uint, limit, offset int) ([]models.Post, int64, error)
	CountByUser(ctx context.Context, userID uint) (int64, error)
	UpdateOwned(ctx context.Context, id, ownerID uint, fields map[string]any) (*models.Post, error)
	DeleteOwned(ctx context.Context, id, ownerID uint) error
	Like(ctx context.Context, userID, postID uint) (*models.Post, error)
	Unlike(ctx context.Context, userID, postID uint) (*models.Post, error)
	AddView(ctx context.Context, postID uint) (*models.ViewCount, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository returns a new PostRepository implementation.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery("insert", "posts")()

	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	post.Comments = []uint{}
	cache.InvalidateUser(ctx, post.UserID)
	return nil
}

// GetByID returns the post with its comment ids, or a not-found AppError.
func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := cache.Aside(ctx, cache.PostKey(id), &post, cache.PostTTL, func() error {
		ctx, span := observability.StartRepositorySpan(ctx, "GetByID", "posts")
		defer span.End()
		defer observability.TrackQuery("select", "posts")()

		db := readDB(r.db).WithContext(ctx)
		if err := db.First(&post, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError(MsgPostNotFound)
			}
			observability.RecordErrorInContext(ctx, err)
			return models.NewInternalError(err)
		}
		return loadCommentIDs(db, []*models.Post{&post})
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// GetOwned returns the post only when ownerID owns it, otherwise (nil, nil).
func (r *postRepository) GetOwned(ctx context.Context, id, ownerID uint) (*models.Post, error) {
	defer observability.TrackQuery("select", "posts")()

	var post models.Post
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, ownerID).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

// List returns one page of posts matching filter and the total match count.
func (r *postRepository) List(ctx context.Context, filter PostFilter, limit, offset int) ([]models.Post, int64, error) {
	defer observability.TrackQuery("select", "posts")()

	db := readDB(r.db).WithContext(ctx)
	return r.page(db, func(q *gorm.DB) *gorm.DB { return filter.apply(q) }, limit, offset)
}

// ListByIDs returns the posts among ids, oldest first.
func (r *postRepository) ListByIDs(ctx context.Context, ids []uint) ([]models.Post, error) {
	posts := []models.Post{}
	if len(ids) == 0 {
		return posts, nil
	}
	defer observability.TrackQuery("select", "posts")()

	db := readDB(r.db).WithContext(ctx)
	if err := db.Where("id IN ?", ids).Order("created_at ASC, id ASC").Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := withCommentIDs(db, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// RecentByUsers returns up to perUser of the newest posts of each user,
// merged and ordered oldest first.
func (r *postRepository) RecentByUsers(ctx context.Context, userIDs []uint, perUser int) ([]models.Post, error) {
	posts := []models.Post{}
	if len(userIDs) == 0 {
		return posts, nil
	}
	defer observability.TrackQuery("select", "posts")()

	db := readDB(r.db).WithContext(ctx)
	ranked := db.Model(&models.Post{}).
		Select("posts.*, ROW_NUMBER() OVER (PARTITION BY user_id ORDER BY created_at DESC, id DESC) AS rn").
		Where("user_id IN ?", userIDs)
	if err := db.Table("(?) AS ranked", ranked).
		Where("rn <= ?", perUser).
		Order("created_at ASC, id ASC").
		Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := withCommentIDs(db, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// Search matches keyword against title and description, ignoring case.
// Only public posts and the viewer's own posts are searched.
func (r *postRepository) Search(ctx context.Context, keyword string, viewerID uint, limit, offset int) ([]models.Post, int64, error) {
	defer observability.TrackQuery("search", "posts")()

	db := readDB(r.db).WithContext(ctx)
	pattern := likePattern(keyword)
	return r.page(db, func(q *gorm.DB) *gorm.DB {
		return q.Where(`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`, pattern, pattern).
			Where("(privacy = ? OR user_id = ?)", models.PrivacyPublic, viewerID)
	}, limit, offset)
}

func (r *postRepository) page(db *gorm.DB, scope func(*gorm.DB) *gorm.DB, limit, offset int) ([]models.Post, int64, error) {
	var total int64
	if err := db.Model(&models.Post{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	posts := []models.Post{}
	if total > int64(offset) {
		if err := db.Scopes(scope).Order("id ASC").Limit(limit).Offset(offset).Find(&posts).Error; err != nil {
			return nil, 0, models.NewInternalError(err)
		}
	}
	if err := withCommentIDs(db, posts); err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (r *postRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}

// UpdateOwned updates a post owned by ownerID. A post ownerID does not own
// is reported as an invalid request.
func (r *postRepository) UpdateOwned(ctx context.Context, id, ownerID uint, fields map[string]any) (*models.Post, error) {
	defer observability.TrackQuery("update", "posts")()

	res := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ? AND user_id = ?", id, ownerID).
		Updates(fields)
	if res.Error != nil {
		return nil, models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, models.NewValidationError(MsgInvalidRequest)
	}
	cache.InvalidatePost(ctx, id)
	return r.GetByID(ctx, id)
}

// DeleteOwned removes a post owned by ownerID together with its likes and comments.
func (r *postRepository) DeleteOwned(ctx context.Context, id, ownerID uint) error {
	defer observability.TrackQuery("delete", "posts")()

	var likers []uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, ownerID).Delete(&models.Post{})
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError(MsgPostDoesNotExist)
		}
		if err := tx.Model(&models.PostLike{}).Where("post_id = ?", id).Pluck("user_id", &likers).Error; err != nil {
			return models.NewInternalError(err)
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.PostLike{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	cache.InvalidatePost(ctx, id)
	cache.InvalidateUser(ctx, append(likers, ownerID)...)
	return nil
}

// Like records userID's like of postID. The post and owner counters move only
// when the like is new, so liking twice counts once. Crossing
// models.VerifiedLikesThreshold received likes marks the owner verified.
func (r *postRepository) Like(ctx context.Context, userID, postID uint) (*models.Post, error) {
	defer observability.TrackQuery("like", "posts")()

	var ownerID uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if ownerID, err = requireLikeTargets(tx, userID, postID); err != nil {
			return err
		}

		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.PostLike{UserID: userID, PostID: postID})
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}

		if err := tx.Model(&models.Post{}).Where("id = ?", postID).
			UpdateColumn("likes", gorm.Expr("likes + 1")).Error; err != nil {
			return models.NewInternalError(err)
		}
		if err := tx.Model(&models.User{}).Where("id = ?", ownerID).UpdateColumns(map[string]any{
			"likes":    gorm.Expr("likes + 1"),
			"verified": gorm.Expr("CASE WHEN likes + 1 > ? THEN 1 ELSE verified END", models.VerifiedLikesThreshold),
		}).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.afterLikeChange(ctx, userID, ownerID, postID)
}

// Unlike removes userID's like of postID. Counters never go below zero.
func (r *postRepository) Unlike(ctx context.Context, userID, postID uint) (*models.Post, error) {
	defer observability.TrackQuery("unlike", "posts")()

	var ownerID uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if ownerID, err = requireLikeTargets(tx, userID, postID); err != nil {
			return err
		}

		res := tx.Where("user_id = ? AND post_id = ?", userID, postID).Delete(&models.PostLike{})
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}

		decrement := gorm.Expr("CASE WHEN likes > 0 THEN likes - 1 ELSE 0 END")
		if err := tx.Model(&models.Post{}).Where("id = ?", postID).
			UpdateColumn("likes", decrement).Error; err != nil {
			return models.NewInternalError(err)
		}
		if err := tx.Model(&models.User{}).Where("id = ?", ownerID).
			UpdateColumn("likes", decrement).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.afterLikeChange(ctx, userID, ownerID, postID)
}

func (r *postRepository) afterLikeChange(ctx context.Context, userID, ownerID, postID uint) (*models.Post, error) {
	cache.InvalidatePost(ctx, postID)
	cache.InvalidateUser(ctx, userID, ownerID)
	return r.GetByID(ctx, postID)
}

// requireLikeTargets checks that both the post and the liking user exist and returns the post owner.
func requireLikeTargets(tx *gorm.DB, userID, postID uint) (uint, error) {
	var post models.Post
	if err := tx.Select("id", "user_id").First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, models.NewValidationError(MsgInvalidRequest)
		}
		return 0, models.NewInternalError(err)
	}
	var n int64
	if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	if n == 0 {
		return 0, models.NewValidationError(MsgInvalidRequest)
	}
	return post.UserID, nil
}

// AddView increments the view counter in place and returns the new count.
func (r *postRepository) AddView(ctx context.Context, postID uint) (*models.ViewCount, error) {
	defer observability.TrackQuery("view", "posts")()

	out := &models.ViewCount{PostID: postID}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Post{}).Where("id = ?", postID).
			UpdateColumn("viewed", gorm.Expr("viewed + 1"))
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return models.NewValidationError(MsgInvalidPostID)
		}
		if err := tx.Model(&models.Post{}).Where("id = ?", postID).Pluck("viewed", &out.Viewed).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	cache.InvalidatePost(ctx, postID)
	return out, nil
}

func withCommentIDs(db *gorm.DB, posts []models.Post) error {
	ptrs := make([]*models.Post, len(posts))
	for i := range posts {
		ptrs[i] = &posts[i]
	}
	return loadCommentIDs(db, ptrs)
}

// loadCommentIDs fills Comments for posts, oldest comment first.
func loadCommentIDs(db *gorm.DB, posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]uint, len(posts))
	byID := make(map[uint]*models.Post, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
		p.Comments = []uint{}
		byID[p.ID] = p
	}

	var comments []models.Comment
	if err := db.Select("id", "post_id").Where("post_id IN ?", ids).
		Order("created_at ASC, id ASC").Find(&comments).Error; err != nil {
		return models.NewInternalError(err)
	}
	for _, c := range comments {
		byID[c.PostID].Comments = append(byID[c.PostID].Comments, c.ID)
	}
	return nil
}
