// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories that share one database handle, so a unit
// of work can run all of them inside a single transaction.
type Store interface {
	Users() UserRepository
	Posts() PostRepository
	Tags() TagRepository
	Comments() CommentRepository
	Likes() ReactionRepository
	Checkins() ReactionRepository
	Reports() ReactionRepository

	// Atomic runs fn with a Store bound to one transaction.
	Atomic(ctx context.Context, fn func(tx Store) error) error
}

type gormStore struct {
	db *gorm.DB
}

// NewStore creates a Store backed by db.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Users() UserRepository       { return NewUserRepository(s.db) }
func (s *gormStore) Posts() PostRepository       { return NewPostRepository(s.db) }
func (s *gormStore) Tags() TagRepository         { return NewTagRepository(s.db) }
func (s *gormStore) Comments() CommentRepository { return NewCommentRepository(s.db) }
func (s *gormStore) Likes() ReactionRepository   { return NewLikeRepository(s.db) }
func (s *gormStore) Checkins() ReactionRepository {
	return NewCheckinRepository(s.db)
}
func (s *gormStore) Reports() ReactionRepository { return NewReportRepository(s.db) }

func (s *gormStore) Atomic(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

func isPostgres(db *gorm.DB) bool {
	return db.Dialector.Name() == "postgres"
}
