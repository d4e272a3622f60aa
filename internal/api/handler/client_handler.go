package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bookstore/backoffice/internal/core/ports"
)

// ClientHandler lets employees lock and unlock client accounts.
type ClientHandler struct {
	accounts ports.AccountService
}

func NewClientHandler(accounts ports.AccountService) *ClientHandler {
	return &ClientHandler{accounts: accounts}
}

// Block locks a client account and revokes its refresh token.
//
// @Summary      Block a client
// @Tags         clients
// @Accept       json
// @Security     BearerAuth
// @Param        body  body  clientEmailRequest  true  "Client email"
// @Success      204
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/clients/block [post]
func (h *ClientHandler) Block(c echo.Context) error {
	var req clientEmailRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.accounts.BlockClient(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Unblock lifts the lock on a client account.
//
// @Summary      Unblock a client
// @Tags         clients
// @Accept       json
// @Security     BearerAuth
// @Param        body  body  clientEmailRequest  true  "Client email"
// @Success      204
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/clients/unblock [post]
func (h *ClientHandler) Unblock(c echo.Context) error {
	var req clientEmailRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.accounts.UnblockClient(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
