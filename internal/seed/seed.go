// Package seed fills a development database with fake accounts, follows,
// posts, likes and comments. Development and testing only.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"clipshare/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultPassword is the password of every seeded account.
const DefaultPassword = "password123"

// Options tunes a seeding run.
type Options struct {
	// Seed makes runs reproducible when non-zero.
	Seed int64
	// SkipBcrypt stores DefaultPassword with the minimum bcrypt cost.
	SkipBcrypt bool
	// MaxDays spreads created_at over the last MaxDays days.
	MaxDays int
}

type Seeder struct {
	db   *gorm.DB
	opts Options
	fake *gofakeit.Faker
	rnd  *rand.Rand
	hash string
}

func NewSeeder(db *gorm.DB, opts Options) (*Seeder, error) {
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	if opts.MaxDays <= 0 {
		opts.MaxDays = 90
	}
	cost := bcrypt.DefaultCost
	if opts.SkipBcrypt {
		cost = bcrypt.MinCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), cost)
	if err != nil {
		return nil, err
	}
	return &Seeder{
		db:   db,
		opts: opts,
		fake: gofakeit.New(opts.Seed),
		rnd:  rand.New(rand.NewSource(opts.Seed)), //nolint:gosec // fake data
		hash: string(hash),
	}, nil
}

// ClearAll deletes every row the seeder can create.
func (s *Seeder) ClearAll() error {
	for _, table := range []string{"comments", "post_likes", "follows", "posts", "users"} {
		if err := s.db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	log.Println("🧹 Cleared seeded tables")
	return nil
}

// BuildUser returns an unsaved fake user.
func (s *Seeder) BuildUser() *models.User {
	name := s.fake.Name()
	return &models.User{
		Username:        strings.ToLower(s.fake.Username()) + fmt.Sprintf("%d", s.fake.Number(100, 999)),
		Name:            name,
		Email:           strings.ToLower(s.fake.Email()),
		Password:        s.hash,
		Type:            models.UserTypeUser,
		Role:            models.RoleUser,
		Country:         strings.ToUpper(s.fake.CountryAbr()),
		ProfilePicture:  fmt.Sprintf("https://i.pravatar.cc/150?u=%s", s.fake.UUID()),
		Bio:             s.fake.Sentence(10),
		ShowLikedVideos: "true",
		CreatedAt:       s.past(),
	}
}

// BuildPost returns an unsaved fake post owned by owner.
func (s *Seeder) BuildPost(owner *models.User) *models.Post {
	privacies := []string{models.PrivacyPublic, models.PrivacyPublic, models.PrivacyPublic, models.PrivacyFriends, models.PrivacyPrivate}
	return &models.Post{
		UserID:       owner.ID,
		File:         fmt.Sprintf("https://cdn.example.com/videos/%s.mp4", s.fake.UUID()),
		Title:        s.fake.Sentence(5),
		Desc:         s.fake.Sentence(12) + " #" + strings.ToLower(s.fake.HipsterWord()),
		Country:      owner.Country,
		Privacy:      privacies[s.rnd.Intn(len(privacies))],
		AllowComment: models.CommentsAllowed,
		CreatedAt:    s.past(),
	}
}

// SeedSocialMesh creates n users and a follow graph where roughly a third
// of the edges are mutual.
func (s *Seeder) SeedSocialMesh(n int) ([]*models.User, error) {
	users := make([]*models.User, n)
	for i := range users {
		users[i] = s.BuildUser()
	}
	if len(users) == 0 {
		return users, nil
	}
	if err := s.db.CreateInBatches(users, 100).Error; err != nil {
		return nil, fmt.Errorf("create users: %w", err)
	}

	var follows []models.Follow
	for _, u := range users {
		for range s.rnd.Intn(min(10, n)) {
			target := users[s.rnd.Intn(n)]
			if target.ID == u.ID {
				continue
			}
			follows = append(follows, models.Follow{FollowerID: u.ID, FolloweeID: target.ID})
			if s.rnd.Intn(3) == 0 {
				follows = append(follows, models.Follow{FollowerID: target.ID, FolloweeID: u.ID})
			}
		}
	}
	if err := insertIgnore(s.db, follows); err != nil {
		return nil, fmt.Errorf("create follows: %w", err)
	}
	log.Printf("👥 Seeded %d users and %d follow edges", n, len(follows))
	return users, nil
}

// SeedEngagement creates posts spread over users, then likes and comments on them.
func (s *Seeder) SeedEngagement(users []*models.User, numPosts int) ([]*models.Post, error) {
	if len(users) == 0 || numPosts <= 0 {
		return nil, nil
	}
	posts := make([]*models.Post, numPosts)
	for i := range posts {
		posts[i] = s.BuildPost(users[s.rnd.Intn(len(users))])
	}
	if err := s.db.CreateInBatches(posts, 100).Error; err != nil {
		return nil, fmt.Errorf("create posts: %w", err)
	}

	likes := make(map[[2]uint]struct{})
	var comments []models.Comment
	for _, p := range posts {
		for range s.rnd.Intn(min(8, len(users)) + 1) {
			liker := users[s.rnd.Intn(len(users))]
			likes[[2]uint{liker.ID, p.ID}] = struct{}{}
		}
		for range s.rnd.Intn(4) {
			comments = append(comments, models.Comment{
				UserID:  users[s.rnd.Intn(len(users))].ID,
				PostID:  p.ID,
				Comment: s.fake.Sentence(8),
			})
		}
	}

	rows := make([]models.PostLike, 0, len(likes))
	for key := range likes {
		rows = append(rows, models.PostLike{UserID: key[0], PostID: key[1]})
	}
	if err := insertIgnore(s.db, rows); err != nil {
		return nil, fmt.Errorf("create likes: %w", err)
	}
	if len(comments) > 0 {
		if err := s.db.CreateInBatches(comments, 100).Error; err != nil {
			return nil, fmt.Errorf("create comments: %w", err)
		}
	}
	if err := s.syncLikeCounters(); err != nil {
		return nil, err
	}
	log.Printf("🎬 Seeded %d posts, %d likes, %d comments", len(posts), len(rows), len(comments))
	return posts, nil
}

// syncLikeCounters recomputes the denormalized like counters from post_likes.
func (s *Seeder) syncLikeCounters() error {
	if err := s.db.Exec(`UPDATE posts SET likes = (SELECT COUNT(*) FROM post_likes WHERE post_likes.post_id = posts.id)`).Error; err != nil {
		return fmt.Errorf("sync post likes: %w", err)
	}
	if err := s.db.Exec(`UPDATE users SET likes = (SELECT COALESCE(SUM(posts.likes), 0) FROM posts WHERE posts.user_id = users.id)`).Error; err != nil {
		return fmt.Errorf("sync user likes: %w", err)
	}
	return nil
}

func insertIgnore[T any](db *gorm.DB, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(rows, 200).Error
}

func (s *Seeder) past() time.Time {
	back := time.Duration(s.rnd.Intn(s.opts.MaxDays*24*60)) * time.Minute
	return time.Now().Add(-back)
}
