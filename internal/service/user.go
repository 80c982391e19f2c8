package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/mwynn/storefront/internal/auth"
	"github.com/mwynn/storefront/internal/domain"
	"github.com/mwynn/storefront/internal/event"
	"github.com/mwynn/storefront/internal/mailer"
	"github.com/mwynn/storefront/internal/repository"
	apperrors "github.com/mwynn/storefront/pkg/errors"
	"github.com/mwynn/storefront/pkg/middleware"
)

// bcryptCost is the cost factor for bcrypt password hashing.
const bcryptCost = 12

// minPasswordLength is the minimum password length required.
const minPasswordLength = 8

// resetTokenBytes is the entropy of the raw password-reset token.
const resetTokenBytes = 20

// UserService implements the business logic for account and auth operations.
type UserService struct {
	userRepo      repository.UserRepository
	jwtManager    *auth.JWTManager
	mailer        mailer.Mailer
	publisher     event.Publisher
	logger        *slog.Logger
	resetTokenTTL time.Duration
	appBaseURL    string
}

// NewUserService creates a new user service.
func NewUserService(
	userRepo repository.UserRepository,
	jwtManager *auth.JWTManager,
	m mailer.Mailer,
	publisher event.Publisher,
	logger *slog.Logger,
	resetTokenTTL time.Duration,
	appBaseURL string,
) *UserService {
	return &UserService{
		userRepo:      userRepo,
		jwtManager:    jwtManager,
		mailer:        m,
		publisher:     publisher,
		logger:        logger,
		resetTokenTTL: resetTokenTTL,
		appBaseURL:    appBaseURL,
	}
}

// RegisterInput holds the parameters for registering a new user.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Avatar   domain.Avatar
}

// LoginInput holds the parameters for user login.
type LoginInput struct {
	Email    string
	Password string
}

// UpdatePasswordInput holds the parameters for an authenticated password change.
type UpdatePasswordInput struct {
	OldPassword     string
	NewPassword     string
	ConfirmPassword string
}

// ResetPasswordInput holds the parameters for completing a password reset.
type ResetPasswordInput struct {
	Token           string
	Password        string
	ConfirmPassword string
}

// Register creates a new account with the default role and returns the user
// plus a session token.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*domain.User, string, error) {
	if input.Name == "" {
		return nil, "", apperrors.InvalidInput("name is required")
	}
	if input.Email == "" {
		return nil, "", apperrors.InvalidInput("email is required")
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, "", err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: string(hashedPassword),
		Role:         domain.RoleUser,
		Avatar:       input.Avatar,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := s.jwtManager.Generate(user.ID.Hex(), user.Email, user.Role)
	if err != nil {
		return nil, "", fmt.Errorf("generate session token: %w", err)
	}

	// Publish registration event (non-blocking on failure).
	if err := s.publisher.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", user.ID.Hex()),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID.Hex()),
		slog.String("email", user.Email),
	)

	return user, token, nil
}

// Login authenticates a user and returns the user plus a session token.
func (s *UserService) Login(ctx context.Context, input LoginInput) (*domain.User, string, error) {
	if input.Email == "" || input.Password == "" {
		return nil, "", apperrors.InvalidInput("email and password are required")
	}

	user, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, "", apperrors.Unauthorized("invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, "", apperrors.Unauthorized("invalid email or password")
	}

	token, err := s.jwtManager.Generate(user.ID.Hex(), user.Email, user.Role)
	if err != nil {
		return nil, "", fmt.Errorf("generate session token: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", user.ID.Hex()),
	)

	return user, token, nil
}

// ResolveIdentity validates a session token and loads the account behind it.
// It backs the authentication middleware, so a deleted account invalidates
// outstanding tokens immediately.
func (s *UserService) ResolveIdentity(ctx context.Context, credential string) (*middleware.Identity, error) {
	claims, err := s.jwtManager.Validate(credential)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid or expired token")
	}

	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid or expired token")
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid or expired token")
	}

	return &middleware.Identity{
		ID:    user.ID.Hex(),
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
	}, nil
}

// GetProfile retrieves a user by ID.
func (s *UserService) GetProfile(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// UpdateProfile updates the caller's name and email.
func (s *UserService) UpdateProfile(ctx context.Context, id primitive.ObjectID, name, email string) (*domain.User, error) {
	if name == "" {
		return nil, apperrors.InvalidInput("name is required")
	}
	if email == "" {
		return nil, apperrors.InvalidInput("email is required")
	}

	if err := s.userRepo.UpdateProfile(ctx, id, name, email); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user profile updated",
		slog.String("user_id", id.Hex()),
	)

	return s.userRepo.GetByID(ctx, id)
}

// UpdatePassword changes the caller's password after verifying the old one,
// and returns a fresh session token.
func (s *UserService) UpdatePassword(ctx context.Context, id primitive.ObjectID, input UpdatePasswordInput) (*domain.User, string, error) {
	if input.OldPassword == "" {
		return nil, "", apperrors.InvalidInput("old password is required")
	}
	if err := validatePassword(input.NewPassword); err != nil {
		return nil, "", err
	}
	if input.NewPassword != input.ConfirmPassword {
		return nil, "", apperrors.InvalidInput("password does not match")
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.OldPassword)); err != nil {
		return nil, "", apperrors.InvalidInput("old password is incorrect")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash new password: %w", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, id, string(hashedPassword)); err != nil {
		return nil, "", err
	}

	token, err := s.jwtManager.Generate(user.ID.Hex(), user.Email, user.Role)
	if err != nil {
		return nil, "", fmt.Errorf("generate session token: %w", err)
	}

	s.logger.InfoContext(ctx, "password changed",
		slog.String("user_id", id.Hex()),
	)

	return user, token, nil
}

// ForgotPassword generates a single-use reset token, stores only its digest,
// and emails the raw token to the account holder. If the email cannot be
// sent the stored token is cleared so no orphaned digest lingers.
func (s *UserService) ForgotPassword(ctx context.Context, email string) error {
	if email == "" {
		return apperrors.InvalidInput("email is required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	rawToken, tokenHash, err := newResetToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}

	expiresAt := time.Now().UTC().Add(s.resetTokenTTL)
	if err := s.userRepo.SetResetToken(ctx, user.ID, tokenHash, expiresAt); err != nil {
		return err
	}

	resetURL := fmt.Sprintf("%s/api/password/reset/%s", s.appBaseURL, rawToken)
	msg := mailer.Message{
		To:      user.Email,
		Subject: "Storefront password recovery",
		Body: fmt.Sprintf(
			"Your password reset link is:\n\n%s\n\nThe link expires in %s. If you did not request this email, please ignore it.",
			resetURL, s.resetTokenTTL,
		),
	}

	if err := s.mailer.Send(ctx, msg); err != nil {
		if clearErr := s.userRepo.ClearResetToken(ctx, user.ID); clearErr != nil {
			s.logger.ErrorContext(ctx, "failed to clear reset token after mail failure",
				slog.String("user_id", user.ID.Hex()),
				slog.String("error", clearErr.Error()),
			)
		}
		return apperrors.Upstream("failed to send password reset email", err)
	}

	s.logger.InfoContext(ctx, "password reset email sent",
		slog.String("user_id", user.ID.Hex()),
	)

	return nil
}

// ResetPassword completes a password reset. The raw token from the emailed
// link is hashed and matched against the stored digest; expired or unknown
// tokens are rejected. On success the token is consumed and a fresh session
// token is returned.
func (s *UserService) ResetPassword(ctx context.Context, input ResetPasswordInput) (*domain.User, string, error) {
	if input.Token == "" {
		return nil, "", apperrors.InvalidInput("reset token is required")
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, "", err
	}
	if input.Password != input.ConfirmPassword {
		return nil, "", apperrors.InvalidInput("password does not match")
	}

	tokenHash := hashResetToken(input.Token)
	user, err := s.userRepo.GetByResetToken(ctx, tokenHash, time.Now().UTC())
	if err != nil {
		return nil, "", apperrors.InvalidInput("reset password token is invalid or expired")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash new password: %w", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, user.ID, string(hashedPassword)); err != nil {
		return nil, "", err
	}

	if err := s.userRepo.ClearResetToken(ctx, user.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to clear consumed reset token",
			slog.String("user_id", user.ID.Hex()),
			slog.String("error", err.Error()),
		)
	}

	token, err := s.jwtManager.Generate(user.ID.Hex(), user.Email, user.Role)
	if err != nil {
		return nil, "", fmt.Errorf("generate session token: %w", err)
	}

	s.logger.InfoContext(ctx, "password reset completed",
		slog.String("user_id", user.ID.Hex()),
	)

	return user, token, nil
}

// ListUsers returns all accounts. Admin only.
func (s *UserService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.userRepo.List(ctx)
}

// UpdateRole assigns a role to an account. The role set is closed; anything
// outside it is rejected before touching the store. Admin only.
func (s *UserService) UpdateRole(ctx context.Context, id primitive.ObjectID, role string) (*domain.User, error) {
	if !domain.IsValidRole(role) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("role must be one of: %v", domain.ValidRoles()))
	}

	if err := s.userRepo.UpdateRole(ctx, id, role); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user role updated",
		slog.String("user_id", id.Hex()),
		slog.String("role", role),
	)

	return s.userRepo.GetByID(ctx, id)
}

// DeleteUser removes an account. Admin only.
func (s *UserService) DeleteUser(ctx context.Context, id primitive.ObjectID) error {
	if err := s.userRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "user deleted",
		slog.String("user_id", id.Hex()),
	)

	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	return nil
}

// newResetToken returns a raw reset token and the hex SHA-256 digest that is
// stored in its place.
func newResetToken() (raw, digest string, err error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	raw = hex.EncodeToString(buf)
	return raw, hashResetToken(raw), nil
}

func hashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
