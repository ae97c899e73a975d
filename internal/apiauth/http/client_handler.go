// Package http provides HTTP middleware and utilities for admin API
// authentication.
package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apiauthDomain "github.com/gateproof/authcore/internal/apiauth/domain"
	"github.com/gateproof/authcore/internal/apiauth/http/dto"
	apiauthUseCase "github.com/gateproof/authcore/internal/apiauth/usecase"
	"github.com/gateproof/authcore/internal/httputil"
	customValidation "github.com/gateproof/authcore/internal/validation"
)

// ClientHandler handles HTTP requests for client management operations.
type ClientHandler struct {
	clientUseCase apiauthUseCase.ClientUseCase
	logger        *slog.Logger
}

// NewClientHandler creates a new client handler with required dependencies.
func NewClientHandler(
	clientUseCase apiauthUseCase.ClientUseCase,
	logger *slog.Logger,
) *ClientHandler {
	return &ClientHandler{
		clientUseCase: clientUseCase,
		logger:        logger,
	}
}

// CreateHandler creates a new admin client with scopes.
// POST /v1/clients - Requires clients:admin scope.
// Returns 201 Created with ID and plain text secret.
func (h *ClientHandler) CreateHandler(c *gin.Context) {
	var req dto.CreateClientRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	input := &apiauthDomain.CreateClientInput{
		Name:     req.Name,
		IsActive: req.IsActive,
		Scopes:   req.Scopes,
	}

	output, err := h.clientUseCase.Create(c.Request.Context(), input)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.CreateClientResponse{
		ID:     output.ID.String(),
		Secret: output.PlainSecret,
	})
}

// GetHandler retrieves a client by ID.
// GET /v1/clients/:id - Requires clients:admin scope.
func (h *ClientHandler) GetHandler(c *gin.Context) {
	clientID, err := parseClientID(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	client, err := h.clientUseCase.Get(c.Request.Context(), clientID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapClientToResponse(client))
}

// UpdateHandler updates a client's name, active flag and scopes.
// PUT /v1/clients/:id - Requires clients:admin scope.
func (h *ClientHandler) UpdateHandler(c *gin.Context) {
	clientID, err := parseClientID(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	var req dto.UpdateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	input := &apiauthDomain.UpdateClientInput{
		Name:     req.Name,
		IsActive: req.IsActive,
		Scopes:   req.Scopes,
	}

	if err := h.clientUseCase.Update(c.Request.Context(), clientID, input); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}

// DeactivateHandler soft-deletes a client.
// DELETE /v1/clients/:id - Requires clients:admin scope.
func (h *ClientHandler) DeactivateHandler(c *gin.Context) {
	clientID, err := parseClientID(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := h.clientUseCase.Deactivate(c.Request.Context(), clientID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}

// UnlockHandler clears a client's lockout state.
// POST /v1/clients/:id/unlock - Requires clients:admin scope.
func (h *ClientHandler) UnlockHandler(c *gin.Context) {
	clientID, err := parseClientID(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := h.clientUseCase.Unlock(c.Request.Context(), clientID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListHandler retrieves clients with pagination.
// GET /v1/clients - Requires clients:admin scope.
func (h *ClientHandler) ListHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	clients, err := h.clientUseCase.List(c.Request.Context(), offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapClientsToListResponse(clients))
}

func parseClientID(c *gin.Context) (uuid.UUID, error) {
	clientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid client id format: must be a valid UUID")
	}
	return clientID, nil
}
