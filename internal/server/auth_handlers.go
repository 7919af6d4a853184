package server

import (
	"uboard/internal/models"
	"uboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

type tokenRequest struct {
	Token string `json:"token"`
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// Signup handles POST /api/v1/auth/signup
// @Summary User signup
// @Description Register a new account and send a confirmation email
// @Tags auth
// @Accept json
// @Produce json
// @Param request body service.SignupInput true "Signup request"
// @Success 201 {object} models.Envelope
// @Failure 400 {object} models.Envelope
// @Router /auth/signup [post]
func (s *Server) Signup(c *fiber.Ctx) error {
	var req service.SignupInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	user, err := s.userService.Signup(c.UserContext(), req)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.Respond(c, fiber.StatusCreated, user.Public(), "Check your email to confirm your account")
}

// Login handles POST /api/v1/auth/login
// @Summary User login
// @Description Exchange credentials for a bearer token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body service.LoginInput true "Login request"
// @Success 200 {object} models.Envelope
// @Failure 401 {object} models.Envelope
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req service.LoginInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	res, err := s.userService.Login(c.UserContext(), req)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, res, "")
}

// ConfirmEmail handles POST /api/v1/auth/confirm
func (s *Server) ConfirmEmail(c *fiber.Ctx) error {
	var req tokenRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if err := s.userService.ConfirmEmail(c.UserContext(), req.Token); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, nil, "Email confirmed")
}

// RequestPasswordReset handles POST /api/v1/auth/password-reset/request.
// The answer is the same whether or not the address belongs to an account.
func (s *Server) RequestPasswordReset(c *fiber.Ctx) error {
	var req passwordResetRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if err := s.userService.RequestPasswordReset(c.UserContext(), req.Email); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, nil, "If the address is registered, a reset link has been sent")
}

// ResetPassword handles POST /api/v1/auth/password-reset
func (s *Server) ResetPassword(c *fiber.Ctx) error {
	var req resetPasswordRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if err := s.userService.ResetPassword(c.UserContext(), req.Token, req.Password); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, nil, "Password updated")
}
