package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"uboard/internal/middleware"
	"uboard/internal/models"
	"uboard/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// TokenTTL is how long confirmation and reset tokens stay valid.
const TokenTTL = 12 * time.Hour

var errInvalidToken = models.NewValidationError("Invalid or expired token")

type UserService struct {
	users    repository.UserRepository
	mailer   Mailer
	jwt      middleware.JWTConfig
	validate *validator.Validate
	now      func() time.Time
}

type SignupInput struct {
	FirstName string `json:"firstName" validate:"required,max=64"`
	LastName  string `json:"lastName" validate:"required,max=64"`
	UserName  string `json:"userName" validate:"required,max=64"`
	Email     string `json:"email" validate:"required,email,max=255"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
}

type LoginInput struct {
	UserName string `json:"userName" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResult is returned on a successful login.
type LoginResult struct {
	Token string            `json:"token"`
	User  models.PublicUser `json:"user"`
}

func NewUserService(users repository.UserRepository, mailer Mailer, jwt middleware.JWTConfig) *UserService {
	return &UserService{
		users:    users,
		mailer:   mailer,
		jwt:      jwt,
		validate: validator.New(),
		now:      time.Now,
	}
}

func (s *UserService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.UserName = strings.TrimSpace(in.UserName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := s.validate.Struct(in); err != nil {
		return nil, validationMessage(err)
	}

	taken, err := s.users.Taken(ctx, in.UserName, in.Email)
	if err != nil {
		return nil, storeErr(ctx, "User", "check user", in.UserName, err)
	}
	if taken {
		return nil, models.NewValidationError("Username or email is already in use")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewStoreFailure("hash password", in.UserName, err)
	}

	token := newToken()
	stored := models.TokenTypeConfirm + ":" + token
	expires := s.now().Add(TokenTTL)
	user := &models.User{
		FirstName:                in.FirstName,
		LastName:                 in.LastName,
		UserName:                 in.UserName,
		Email:                    in.Email,
		Password:                 string(hash),
		ConfirmationToken:        &stored,
		ConfirmationTokenExpires: &expires,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, storeErr(ctx, "User", "create user", in.UserName, err)
	}

	if !s.mailer.SendConfirmEmail(ctx, user.Email, token) {
		middleware.Logger.WarnContext(ctx, "confirmation email not sent", slog.String("user_id", user.ID))
	}
	return user, nil
}

func (s *UserService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, validationMessage(err)
	}

	user, err := s.users.GetByUserName(ctx, strings.TrimSpace(in.UserName))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	if err != nil {
		return nil, storeErr(ctx, "User", "get user", in.UserName, err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)) != nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	if !user.Confirmed {
		return nil, models.NewUnauthorizedError("Email address not confirmed")
	}

	now := s.now()
	token, err := s.jwt.IssueToken(user.ID, now)
	if err != nil {
		return nil, models.NewStoreFailure("issue token", user.ID, err)
	}
	user.LastLogin = &now
	if err := s.users.Update(ctx, user); err != nil {
		return nil, storeErr(ctx, "User", "record login", user.ID, err)
	}
	return &LoginResult{Token: token, User: user.Public()}, nil
}

// ConfirmEmail marks the owner of a confirmation token as confirmed.
func (s *UserService) ConfirmEmail(ctx context.Context, token string) error {
	user, err := s.userForToken(ctx, models.TokenTypeConfirm, token)
	if err != nil {
		return err
	}
	user.Confirmed = true
	user.ConfirmationToken = nil
	user.ConfirmationTokenExpires = nil
	return storeErr(ctx, "User", "confirm email", user.ID, s.users.Update(ctx, user))
}

// RequestPasswordReset mails a reset link. Unknown addresses succeed silently.
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.validate.Var(email, "required,email"); err != nil {
		return models.NewValidationError("A valid email is required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return storeErr(ctx, "User", "get user", email, err)
	}

	token := newToken()
	stored := models.TokenTypeReset + ":" + token
	expires := s.now().Add(TokenTTL)
	user.ConfirmationToken = &stored
	user.ConfirmationTokenExpires = &expires
	if err := s.users.Update(ctx, user); err != nil {
		return storeErr(ctx, "User", "store reset token", user.ID, err)
	}
	if !s.mailer.SendResetEmail(ctx, user.Email, token) {
		middleware.Logger.WarnContext(ctx, "reset email not sent", slog.String("user_id", user.ID))
	}
	return nil
}

func (s *UserService) ResetPassword(ctx context.Context, token, password string) error {
	if err := s.validate.Var(password, "required,min=8,max=72"); err != nil {
		return models.NewValidationError("Password must be between 8 and 72 characters")
	}
	user, err := s.userForToken(ctx, models.TokenTypeReset, token)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.NewStoreFailure("hash password", user.ID, err)
	}
	user.Password = string(hash)
	user.ConfirmationToken = nil
	user.ConfirmationTokenExpires = nil
	return storeErr(ctx, "User", "reset password", user.ID, s.users.Update(ctx, user))
}

func (s *UserService) Me(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeErr(ctx, "User", "get user", userID, err)
	}
	return user, nil
}

// GetUser returns another member's public profile.
func (s *UserService) GetUser(ctx context.Context, id string) (models.PublicUser, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return models.PublicUser{}, storeErr(ctx, "User", "get user", id, err)
	}
	return user.Public(), nil
}

func (s *UserService) userForToken(ctx context.Context, kind, token string) (*models.User, error) {
	token = strings.TrimSpace(token)
	if token == "" || strings.Contains(token, ":") {
		return nil, errInvalidToken
	}
	user, err := s.users.GetByToken(ctx, kind+":"+token)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errInvalidToken
	}
	if err != nil {
		return nil, storeErr(ctx, "User", "get token", kind, err)
	}
	if user.ConfirmationTokenExpires == nil || s.now().After(*user.ConfirmationTokenExpires) {
		return nil, errInvalidToken
	}
	return user, nil
}

// newToken returns 32 random hex characters. The stored form is prefixed
// with the token type so a confirmation token cannot reset a password.
func newToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func validationMessage(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return models.NewValidationError("Invalid input")
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return models.NewValidationError(fe.Field() + " is required")
	case "email":
		return models.NewValidationError("A valid email is required")
	case "min":
		return models.NewValidationError(fe.Field() + " must be at least " + fe.Param() + " characters")
	case "max":
		return models.NewValidationError(fe.Field() + " must be at most " + fe.Param() + " characters")
	default:
		return models.NewValidationError(fe.Field() + " is invalid")
	}
}
