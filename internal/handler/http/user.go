package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mwynn/storefront/internal/domain"
	"github.com/mwynn/storefront/internal/service"
	apperrors "github.com/mwynn/storefront/pkg/errors"
	"github.com/mwynn/storefront/pkg/httputil"
	"github.com/mwynn/storefront/pkg/middleware"
	"github.com/mwynn/storefront/pkg/validator"
)

// SessionCookieConfig controls the session cookie the auth endpoints issue.
type SessionCookieConfig struct {
	MaxAge time.Duration
	Secure bool
}

// UserHandler handles HTTP requests for account and auth endpoints.
type UserHandler struct {
	service *service.UserService
	logger  *slog.Logger
	cookie  SessionCookieConfig
}

// NewUserHandler creates a new user HTTP handler.
func NewUserHandler(svc *service.UserService, logger *slog.Logger, cookie SessionCookieConfig) *UserHandler {
	return &UserHandler{service: svc, logger: logger, cookie: cookie}
}

// RegisterRequest is the JSON request body for registration.
type RegisterRequest struct {
	Name     string        `json:"name" validate:"required,min=1,max=100"`
	Email    string        `json:"email" validate:"required,email"`
	Password string        `json:"password" validate:"required,min=8"`
	Avatar   domain.Avatar `json:"avatar"`
}

// LoginRequest is the JSON request body for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ForgotPasswordRequest is the JSON request body for requesting a reset link.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest is the JSON request body for completing a reset.
type ResetPasswordRequest struct {
	Password        string `json:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

// UpdatePasswordRequest is the JSON request body for a password change.
type UpdatePasswordRequest struct {
	OldPassword     string `json:"old_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

// UpdateProfileRequest is the JSON request body for a profile update.
type UpdateProfileRequest struct {
	Name  string `json:"name" validate:"required,min=1,max=100"`
	Email string `json:"email" validate:"required,email"`
}

// UpdateRoleRequest is the JSON request body for a role assignment.
type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

// Register handles POST /api/registerUser
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	user, token, err := h.service.Register(r.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Avatar:   req.Avatar,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.setSessionCookie(w, token)
	httputil.WriteSuccess(w, http.StatusCreated, httputil.Envelope{
		"user":  user,
		"token": token,
	})
}

// Login handles POST /api/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	user, token, err := h.service.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.setSessionCookie(w, token)
	httputil.WriteSuccess(w, http.StatusOK, httputil.Envelope{
		"user":  user,
		"token": token,
	})
}

// Logout handles GET /api/logout
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearSessionCookie(w)
	httputil.WriteSuccess(w, http.StatusOK, httputil.Envelope{
		"message": "logged out",
	})
}

// ForgotPassword handles POST /api/password/forgot
func (h *UserHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, httputil.Envelope{
		"message": "email sent to " + req.Email + " successfully",
	})
}

// ResetPassword handles PUT /api/password/reset/{token}
func (h *UserHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	user, token, err := h.service.ResetPassword(r.Context(), service.ResetPasswordInput{
		Token:           chi.URLParam(r, "token"),
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.setSessionCookie(w, token)
	httputil.WriteSuccess(w, http.StatusOK, httputil.Envelope{
		"user":  user,
		"token": token,
	})
}

// GetMe handles GET /api/me
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	id, err := identityObjectID(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	user, err := h.service.GetProfile(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, httputil.Envelope{"user": user})
}

// UpdatePassword handles PUT /api/password/update
func (h *UserHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	id, err := identityObjectID(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	var req UpdatePasswordRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	user, token, err := h.service.UpdatePassword(r.Context(), id, service.UpdatePasswordInput{
		OldPassword:     req.OldPassword,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.setSessionCookie(w, token)
	httputil.WriteSuccess(w, http.StatusOK, httputil.Envelope{
		"user":  user,
		"token": token,
	})
}

// UpdateProfile handles PUT /api/me/update
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, err := identityObjectID(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	var req UpdateProfileRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), id, req.Name, req.Email)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, httputil.Envelope{"user": user})
}

// ListUsers handles GET /api/admin/users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, httputil.Envelope{"users": users})
}

// GetUser handles GET /api/admin/singleUser/{id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := objectIDParam(r, "id")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	user, err := h.service.GetProfile(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, httputil.Envelope{"user": user})
}

// UpdateRole handles PUT /api/admin/updateRole/{id}
func (h *UserHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id, err := objectIDParam(r, "id")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	var req UpdateRoleRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	user, err := h.service.UpdateRole(r.Context(), id, req.Role)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, httputil.Envelope{"user": user})
}

// DeleteUser handles DELETE /api/admin/deleteUser/{id}
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := objectIDParam(r, "id")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if err := h.service.DeleteUser(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, httputil.Envelope{
		"message": "user deleted successfully",
	})
}

func (h *UserHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.CredentialCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.cookie.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *UserHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.CredentialCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// identityObjectID resolves the authenticated caller's user ID.
func identityObjectID(r *http.Request) (primitive.ObjectID, error) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		return primitive.NilObjectID, apperrors.Unauthorized("please login to access this resource")
	}
	id, err := primitive.ObjectIDFromHex(identity.ID)
	if err != nil {
		return primitive.NilObjectID, apperrors.Unauthorized("invalid or expired token")
	}
	return id, nil
}

// objectIDParam parses an ObjectID from a URL parameter.
func objectIDParam(r *http.Request, name string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, name))
	if err != nil {
		return primitive.NilObjectID, apperrors.InvalidInput("invalid " + name + " parameter")
	}
	return id, nil
}
