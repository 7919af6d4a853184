package database

import "uboard/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Post{},
		&models.Tag{},
		&models.PostTagLink{},
		&models.Comment{},
		&models.UserPostLike{},
		&models.UserCheckin{},
		&models.UserReport{},
	}
}
