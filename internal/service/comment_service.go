package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"uboard/internal/models"
	"uboard/internal/repository"
)

type CommentService struct {
	store  repository.Store
	events Publisher
}

type CreateCommentInput struct {
	UserID string
	PostID string
	Body   string
}

// UpdateCommentInput edits a comment. A blank body keeps the old one.
type UpdateCommentInput struct {
	UserID    string
	CommentID string
	Body      string
}

type ListCommentsInput struct {
	PostID string
	Limit  int
	Offset int
}

func NewCommentService(store repository.Store, events Publisher) *CommentService {
	return &CommentService{
		store:  store,
		events: publisherOrNop(events),
	}
}

func validateCommentBody(body string) error {
	n := utf8.RuneCountInString(body)
	if n < models.CommentMinLength || n > models.CommentMaxLength {
		return models.NewValidationError(fmt.Sprintf(
			"Comment must be between %d and %d characters",
			models.CommentMinLength, models.CommentMaxLength,
		))
	}
	return nil
}

func (s *CommentService) Create(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	body := strings.TrimSpace(in.Body)
	if body == "" {
		return nil, models.NewValidationError("Comment body is required")
	}
	if err := validateCommentBody(body); err != nil {
		return nil, err
	}
	if _, err := s.store.Posts().FindByID(ctx, in.PostID); err != nil {
		return nil, storeErr(ctx, "Post", "get post", in.PostID, err)
	}

	comment := &models.Comment{
		Body:   body,
		UserID: in.UserID,
		PostID: in.PostID,
	}
	if err := s.store.Comments().Create(ctx, comment); err != nil {
		return nil, storeErr(ctx, "Comment", "create comment", in.PostID, err)
	}

	created, err := s.Get(ctx, comment.ID)
	if err != nil {
		return nil, err
	}
	s.events.Publish(ctx, EventCommentCreated, map[string]interface{}{
		"postId":    in.PostID,
		"commentId": created.ID,
		"userId":    in.UserID,
	})
	return created, nil
}

func (s *CommentService) Get(ctx context.Context, commentID string) (*models.Comment, error) {
	comment, err := s.store.Comments().GetByID(ctx, commentID)
	if err != nil {
		return nil, storeErr(ctx, "Comment", "get comment", commentID, err)
	}
	return comment, nil
}

// ListForPost returns comments newest first.
func (s *CommentService) ListForPost(ctx context.Context, in ListCommentsInput) (models.Page[*models.Comment], error) {
	if _, err := s.store.Posts().FindByID(ctx, in.PostID); err != nil {
		return models.Page[*models.Comment]{}, storeErr(ctx, "Post", "get post", in.PostID, err)
	}
	comments, err := s.store.Comments().ListByPost(ctx, in.PostID, clampLimit(in.Limit), clampOffset(in.Offset))
	if err != nil {
		return models.Page[*models.Comment]{}, storeErr(ctx, "Comment", "list comments", in.PostID, err)
	}
	total, err := s.store.Comments().CountByPost(ctx, in.PostID)
	if err != nil {
		return models.Page[*models.Comment]{}, storeErr(ctx, "Comment", "count comments", in.PostID, err)
	}
	return models.Page[*models.Comment]{Items: comments, Total: total}, nil
}

func (s *CommentService) Update(ctx context.Context, in UpdateCommentInput) (*models.Comment, error) {
	comment, err := s.Get(ctx, in.CommentID)
	if err != nil {
		return nil, err
	}
	if comment.UserID != in.UserID {
		return nil, models.NewUnauthorizedError("You can only update your own comments")
	}

	if body := strings.TrimSpace(in.Body); body != "" {
		if err := validateCommentBody(body); err != nil {
			return nil, err
		}
		comment.Body = body
		if err := s.store.Comments().Update(ctx, comment); err != nil {
			return nil, storeErr(ctx, "Comment", "update comment", in.CommentID, err)
		}
	}
	return s.Get(ctx, in.CommentID)
}

func (s *CommentService) Delete(ctx context.Context, userID, commentID string) error {
	comment, err := s.Get(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.UserID != userID {
		return models.NewUnauthorizedError("You can only delete your own comments")
	}
	if err := s.store.Comments().Delete(ctx, commentID); err != nil {
		return storeErr(ctx, "Comment", "delete comment", commentID, err)
	}
	return nil
}
