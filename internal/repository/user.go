package repository

import (
	"context"
	"errors"
	"fmt"

	"clipshare/internal/cache"
	"clipshare/internal/models"
	"clipshare/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Messages for user lookups and mutations.
const (
	MsgUserNotFound   = "User not found!"
	MsgInvalidRequest = "Invalid request!"
	MsgUserExists     = "User already exists"
)

// UserFilter holds the whitelisted columns a user listing may filter on.
// Zero values are ignored.
type UserFilter struct {
	Username string
	Name     string
	Email    string
	Country  string
	Type     string
	Role     int
	Verified *int
}

// Empty reports whether no filter column is set.
func (f UserFilter) Empty() bool {
	return f == UserFilter{}
}

func (f UserFilter) apply(db *gorm.DB) *gorm.DB {
	if f.Username != "" {
		db = db.Where("username = ?", f.Username)
	}
	if f.Name != "" {
		db = db.Where("name = ?", f.Name)
	}
	if f.Email != "" {
		db = db.Where("email = ?", f.Email)
	}
	if f.Country != "" {
		db = db.Where("country = ?", f.Country)
	}
	if f.Type != "" {
		db = db.Where("type = ?", f.Type)
	}
	if f.Role != 0 {
		db = db.Where("role = ?", f.Role)
	}
	if f.Verified != nil {
		db = db.Where("verified = ?", *f.Verified)
	}
	return db
}

// UserRepository defines persistence operations for users and follows.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByIDs(ctx context.Context, ids []uint) ([]models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateFields(ctx context.Context, id uint, fields map[string]any) (*models.User, error)
	List(ctx context.Context, filter UserFilter, limit, offset int) ([]models.User, int64, error)
	SearchByName(ctx context.Context, keyword string, limit, offset int) ([]models.User, int64, error)
	CountGoogleAccounts(ctx context.Context) (int64, error)
	Follow(ctx context.Context, followerID, followeeID uint) error
	Unfollow(ctx context.Context, followerID, followeeID uint) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// GetByID returns the user with its relationship lists, or a not-found AppError.
// The result is cached; the password hash is never part of it.
func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := cache.Aside(ctx, cache.UserKey(id), &user, cache.UserTTL, func() error {
		ctx, span := observability.StartRepositorySpan(ctx, "GetByID", "users")
		defer span.End()
		defer observability.TrackQuery("select", "users")()

		db := readDB(r.db).WithContext(ctx)
		if err := db.First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError(MsgUserNotFound)
			}
			observability.RecordErrorInContext(ctx, err)
			return models.NewInternalError(err)
		}
		if err := loadUserRelations(db, []*models.User{&user}); err != nil {
			return models.NewInternalError(err)
		}
		user.Password = ""
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByIDs returns the users found among ids without relationship lists, in no particular order.
func (r *userRepository) GetByIDs(ctx context.Context, ids []uint) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	defer observability.TrackQuery("select", "users")()

	var users []models.User
	if err := readDB(r.db).WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for i := range users {
		users[i].Password = ""
	}
	return users, nil
}

// GetByEmail returns the user including the password hash, or (nil, nil) when none matches.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "email = ?", email)
}

// GetByUsername returns the user, or (nil, nil) when none matches.
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := r.findOne(ctx, "username = ?", username)
	if user != nil {
		user.Password = ""
	}
	return user, err
}

func (r *userRepository) findOne(ctx context.Context, query string, arg any) (*models.User, error) {
	defer observability.TrackQuery("select", "users")()

	db := readDB(r.db).WithContext(ctx)
	var user models.User
	if err := db.Where(query, arg).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	if err := loadUserRelations(db, []*models.User{&user}); err != nil {
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	defer observability.TrackQuery("insert", "users")()

	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewValidationError(MsgUserExists)
		}
		return models.NewInternalError(err)
	}
	user.Following, user.Followers = []uint{}, []uint{}
	user.Videos, user.Liked = []uint{}, []uint{}
	return nil
}

// UpdateFields applies a column update and returns the refreshed user.
func (r *userRepository) UpdateFields(ctx context.Context, id uint, fields map[string]any) (*models.User, error) {
	defer observability.TrackQuery("update", "users")()

	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		if isUniqueConstraintError(res.Error) {
			return nil, models.NewValidationError(MsgUserExists)
		}
		return nil, models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, models.NewNotFoundError(MsgUserNotFound)
	}
	cache.InvalidateUser(ctx, id)
	return r.GetByID(ctx, id)
}

// List returns one page of users matching filter and the total match count.
func (r *userRepository) List(ctx context.Context, filter UserFilter, limit, offset int) ([]models.User, int64, error) {
	defer observability.TrackQuery("select", "users")()

	db := readDB(r.db).WithContext(ctx)
	return r.page(db, func(q *gorm.DB) *gorm.DB { return filter.apply(q) }, limit, offset)
}

// SearchByName matches users whose name contains keyword, ignoring case.
func (r *userRepository) SearchByName(ctx context.Context, keyword string, limit, offset int) ([]models.User, int64, error) {
	defer observability.TrackQuery("search", "users")()

	db := readDB(r.db).WithContext(ctx)
	pattern := likePattern(keyword)
	return r.page(db, func(q *gorm.DB) *gorm.DB {
		return q.Where(`LOWER(name) LIKE ? ESCAPE '\'`, pattern)
	}, limit, offset)
}

// page counts and fetches with the same scope so totals match the listing.
func (r *userRepository) page(db *gorm.DB, scope func(*gorm.DB) *gorm.DB, limit, offset int) ([]models.User, int64, error) {
	var total int64
	if err := db.Model(&models.User{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	users := []models.User{}
	if total > int64(offset) {
		if err := db.Scopes(scope).Order("id ASC").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
			return nil, 0, models.NewInternalError(err)
		}
	}

	ptrs := make([]*models.User, len(users))
	for i := range users {
		users[i].Password = ""
		ptrs[i] = &users[i]
	}
	if err := loadUserRelations(db, ptrs); err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return users, total, nil
}

func (r *userRepository) CountGoogleAccounts(ctx context.Context) (int64, error) {
	var n int64
	if err := readDB(r.db).WithContext(ctx).Model(&models.User{}).Where("is_google_account = ?", true).Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}

// Follow records that followerID follows followeeID. Both sides of the
// relationship come from one row, written in one transaction. Following twice is a no-op.
func (r *userRepository) Follow(ctx context.Context, followerID, followeeID uint) error {
	if followerID == followeeID {
		return models.NewValidationError(MsgInvalidRequest)
	}
	defer observability.TrackQuery("insert", "follows")()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireUsers(tx, followerID, followeeID); err != nil {
			return err
		}
		edge := models.Follow{FollowerID: followerID, FolloweeID: followeeID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&edge).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	cache.InvalidateUser(ctx, followerID, followeeID)
	return nil
}

// Unfollow removes the edge. Removing a missing edge is a no-op.
func (r *userRepository) Unfollow(ctx context.Context, followerID, followeeID uint) error {
	defer observability.TrackQuery("delete", "follows")()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireUsers(tx, followerID, followeeID); err != nil {
			return err
		}
		if err := tx.Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
			Delete(&models.Follow{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	cache.InvalidateUser(ctx, followerID, followeeID)
	return nil
}

func requireUsers(tx *gorm.DB, ids ...uint) error {
	var n int64
	if err := tx.Model(&models.User{}).Where("id IN ?", ids).Count(&n).Error; err != nil {
		return models.NewInternalError(err)
	}
	if n != int64(len(ids)) {
		return models.NewNotFoundError(MsgInvalidRequest)
	}
	return nil
}

// loadUserRelations fills Following, Followers, Videos and Liked for users.
// Every list is ordered by creation time, oldest first.
func loadUserRelations(db *gorm.DB, users []*models.User) error {
	if len(users) == 0 {
		return nil
	}
	ids := make([]uint, len(users))
	byID := make(map[uint]*models.User, len(users))
	for i, u := range users {
		ids[i] = u.ID
		u.Following, u.Followers = []uint{}, []uint{}
		u.Videos, u.Liked = []uint{}, []uint{}
		byID[u.ID] = u
	}

	var edges []models.Follow
	if err := db.Where("follower_id IN ? OR followee_id IN ?", ids, ids).
		Order("created_at ASC, follower_id ASC, followee_id ASC").Find(&edges).Error; err != nil {
		return fmt.Errorf("load follows: %w", err)
	}
	for _, e := range edges {
		if u, ok := byID[e.FollowerID]; ok {
			u.Following = append(u.Following, e.FolloweeID)
		}
		if u, ok := byID[e.FolloweeID]; ok {
			u.Followers = append(u.Followers, e.FollowerID)
		}
	}

	var posts []models.Post
	if err := db.Select("id", "user_id").Where("user_id IN ?", ids).
		Order("created_at ASC, id ASC").Find(&posts).Error; err != nil {
		return fmt.Errorf("load videos: %w", err)
	}
	for _, p := range posts {
		byID[p.UserID].Videos = append(byID[p.UserID].Videos, p.ID)
	}

	var likes []models.PostLike
	if err := db.Where("user_id IN ?", ids).
		Order("created_at ASC, post_id ASC").Find(&likes).Error; err != nil {
		return fmt.Errorf("load likes: %w", err)
	}
	for _, l := range likes {
		byID[l.UserID].Liked = append(byID[l.UserID].Liked, l.PostID)
	}
	return nil
}
