package server

import (
	"uboard/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/v1/users/me
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	user, err := s.userService.Me(c.UserContext(), currentUser(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, user, "")
}

// GetUserProfile handles GET /api/v1/users/:id
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	user, err := s.userService.GetUser(c.UserContext(), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, user, "")
}

// GetUserPosts handles GET /api/v1/users/:id/posts
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	authorID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	page := parsePagination(c)

	posts, err := s.postService.ListByUser(c.UserContext(), currentUser(c), authorID, page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.RespondPage(c, posts)
}

// GetFeatureFlags returns the flags as evaluated for the current user.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	return models.Respond(c, fiber.StatusOK, s.featureFlags.Snapshot(currentUser(c)), "")
}
