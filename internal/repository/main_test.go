package repository

import (
	"testing"
	"time"

	"clipshare/internal/database"
	"clipshare/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	return gormDB, mock
}

// setupSQLite returns a migrated in-memory database. The pool is pinned to
// one connection so every query sees the same memory database.
func setupSQLite(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string) *models.User {
	u := &models.User{
		Username: username,
		Name:     username,
		Email:    username + "@example.com",
		Password: "hash",
		Type:     models.UserTypeUser,
		Role:     models.RoleUser,
		Country:  "ID",
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedPost(t *testing.T, db *gorm.DB, owner uint, title, privacy string, at time.Time) *models.Post {
	p := &models.Post{
		UserID:    owner,
		File:      "/media/videos/" + title + ".mp4",
		Title:     title,
		Desc:      "about " + title,
		Country:   "ID",
		Privacy:   privacy,
		CreatedAt: at,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}
