package database

import "clipshare/internal/models"

// Models lists every GORM model, in dependency order.
func Models() []any {
	return []any{
		&models.User{},
		&models.Follow{},
		&models.Post{},
		&models.PostLike{},
		&models.Comment{},
	}
}
