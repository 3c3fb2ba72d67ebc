package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"user-contract-service/internal/usecase/user"
	pkgerrors "user-contract-service/pkg/errors"
	"user-contract-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserHandler handles HTTP requests for user lookups
type UserHandler struct {
	uc  user.Usecase
	log *zap.Logger
}

// NewUserHandler creates a new UserHandler instance
func NewUserHandler(uc user.Usecase, log *zap.Logger) *UserHandler {
	return &UserHandler{
		uc:  uc,
		log: log,
	}
}

// UserResponse represents the HTTP response for user data
type UserResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// GetUser handles GET /users/:id
//
//	200 application/json {"id","name","email"} when the user exists
//	404 with an empty body when it does not
func (h *UserHandler) GetUser(c *gin.Context) {
	log := logger.WithContext(c.Request.Context(), h.log)

	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.handleError(c, log, pkgerrors.NewValidationError("id", "User ID must be a valid number"))
		return
	}

	log.Debug("GetUser request", zap.Int64("id", id))

	resp, err := h.uc.GetUser(c.Request.Context(), user.GetUserRequest{ID: id})
	if err != nil {
		h.handleError(c, log, err)
		return
	}

	data, err := json.Marshal(UserResponse{
		ID:    resp.ID,
		Name:  resp.Name,
		Email: resp.Email,
	})
	if err != nil {
		h.handleError(c, log, pkgerrors.NewInternalError("failed to encode user", err))
		return
	}

	// c.JSON would append "; charset=utf-8" to the content type
	c.Data(http.StatusOK, "application/json", data)
}

// handleError converts errors to HTTP responses. Not found carries no body.
func (h *UserHandler) handleError(c *gin.Context, log *zap.Logger, err error) {
	status := pkgerrors.HTTPStatus(err)

	switch status {
	case http.StatusNotFound:
		log.Debug("User not found", zap.Error(err))
		c.AbortWithStatus(status)
	case http.StatusBadRequest:
		log.Warn("Invalid user ID", zap.String("id", c.Param("id")), zap.Error(err))
		var ve *pkgerrors.ValidationError
		message := err.Error()
		if errors.As(err, &ve) {
			message = ve.Message
		}
		c.AbortWithStatusJSON(status, ErrorResponse{
			Error:   "invalid_id",
			Message: message,
		})
	default:
		log.Error("GetUser failed", zap.Error(err))
		c.AbortWithStatusJSON(status, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
	}
}
