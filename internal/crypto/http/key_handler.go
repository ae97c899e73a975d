// Package http provides HTTP handlers for encryption key management.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	cryptoDomain "github.com/gateproof/authcore/internal/crypto/domain"
	"github.com/gateproof/authcore/internal/crypto/http/dto"
	cryptoUseCase "github.com/gateproof/authcore/internal/crypto/usecase"
	"github.com/gateproof/authcore/internal/httputil"
	customValidation "github.com/gateproof/authcore/internal/validation"
)

// KeyHandler handles HTTP requests for encryption key rotation.
type KeyHandler struct {
	keyUseCase cryptoUseCase.KeyUseCase
	logger     *slog.Logger
}

// NewKeyHandler creates a new key handler with required dependencies.
func NewKeyHandler(
	keyUseCase cryptoUseCase.KeyUseCase,
	logger *slog.Logger,
) *KeyHandler {
	return &KeyHandler{
		keyUseCase: keyUseCase,
		logger:     logger,
	}
}

// RotateHandler rotates the active encryption key.
// POST /v1/keys/rotate - Requires keys:rotate scope.
// The body is optional; without one the default algorithm is kept. Stored
// tokens are re-encrypted in the background after rotation, so old keys stay
// available for decryption until the job drains.
// Returns 201 Created with the new key metadata.
func (h *KeyHandler) RotateHandler(c *gin.Context) {
	var req dto.RotateKeyRequest

	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httputil.HandleValidationErrorGin(c, err, h.logger)
			return
		}
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	alg := cryptoDomain.Algorithm(req.Algorithm)
	if req.Algorithm == "" {
		alg = cryptoDomain.AESGCM
	}

	key, err := h.keyUseCase.Rotate(c.Request.Context(), alg)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.logger.Info("encryption key rotated",
		slog.String("key_id", key.ID.String()),
		slog.Uint64("version", uint64(key.Version)),
		slog.String("algorithm", string(key.Algorithm)),
	)

	c.JSON(http.StatusCreated, dto.MapKeyToResponse(key))
}
