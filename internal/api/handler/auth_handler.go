package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/bookstore/backoffice/internal/api/metrics"
	"github.com/bookstore/backoffice/internal/core/domain"
	"github.com/bookstore/backoffice/internal/core/ports"
)

const tokenTypeBearer = "Bearer"

// AuthHandler exposes the session lifecycle over HTTP.
type AuthHandler struct {
	sessions ports.SessionService
}

func NewAuthHandler(sessions ports.SessionService) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

// Login authenticates an employee or a client and opens a session.
//
// @Summary      Login
// @Description  Role selects the principal store (EMPLOYEE or CLIENT). A missing role resolves to CLIENT unless strict role mode is on.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  tokenResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	start := time.Now()
	sess, err := h.sessions.Login(c.Request().Context(), ports.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	metrics.SessionOperationDuration.WithLabelValues("login").Observe(time.Since(start).Seconds())
	metrics.LoginsTotal.WithLabelValues(roleLabel(req.Role), outcome(err)).Inc()
	if err != nil {
		// An unknown email must look the same as a wrong password.
		if errors.Is(err, domain.ErrPrincipalNotFound) {
			return domain.ErrBadCredentials
		}
		return err
	}

	return c.JSON(http.StatusOK, toTokenResponse(sess))
}

// Refresh exchanges a refresh token for a new token pair.
//
// @Summary      Refresh tokens
// @Description  The presented refresh token is invalidated; the response carries its replacement.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      refreshRequest  true  "Refresh token and owner"
// @Success      200   {object}  tokenResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	start := time.Now()
	sess, err := h.sessions.Refresh(c.Request().Context(), ports.RefreshInput{
		RefreshToken: req.RefreshToken,
		Email:        req.Email,
		Role:         req.Role,
	})
	metrics.SessionOperationDuration.WithLabelValues("refresh").Observe(time.Since(start).Seconds())
	metrics.RefreshesTotal.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toTokenResponse(sess))
}

// ForgotPassword issues a reset code and sends it to the principal's email.
//
// @Summary      Request a password reset code
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      forgotPasswordRequest  true  "Principal email and role"
// @Success      202   {object}  acceptedResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      502   {object}  errorResponse
// @Router       /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	start := time.Now()
	_, err := h.sessions.ForgotPassword(c.Request().Context(), req.Email, req.Role)
	metrics.SessionOperationDuration.WithLabelValues("forgot_password").Observe(time.Since(start).Seconds())
	metrics.PasswordResetsTotal.WithLabelValues("requested", outcome(err)).Inc()
	if err != nil {
		return err
	}

	return c.JSON(http.StatusAccepted, acceptedResponse{Message: "reset code sent"})
}

// ChangePassword sets a new password using a reset code.
//
// @Summary      Change password with a reset code
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  changePasswordRequest  true  "Reset code and new password"
// @Success      204
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /auth/change-password [post]
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	var req changePasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	start := time.Now()
	err := h.sessions.ChangePassword(c.Request().Context(), ports.ChangePasswordInput{
		Email:       req.Email,
		NewPassword: req.NewPassword,
		ResetCode:   req.ResetCode,
		Role:        req.Role,
	})
	metrics.SessionOperationDuration.WithLabelValues("change_password").Observe(time.Since(start).Seconds())
	metrics.PasswordResetsTotal.WithLabelValues("completed", outcome(err)).Inc()
	if err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

// Logout revokes the caller's refresh token.
//
// @Summary      Logout
// @Tags         auth
// @Security     BearerAuth
// @Success      204
// @Failure      401  {object}  errorResponse
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	id, role, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	start := time.Now()
	err = h.sessions.Logout(c.Request().Context(), id.Subject, string(role))
	metrics.SessionOperationDuration.WithLabelValues("logout").Observe(time.Since(start).Seconds())
	if err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

// Me returns the identity carried by the bearer token.
//
// @Summary      Current identity
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  identityResponse
// @Failure      401  {object}  errorResponse
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	id, _, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, identityResponse{Subject: id.Subject, Roles: id.Roles})
}

func toTokenResponse(s *domain.Session) tokenResponse {
	return tokenResponse{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    s.ExpiresInSeconds,
	}
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return nil
}
