package handler

import (
	"net/http"

	"user-contract-service/internal/contract"
	"user-contract-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StateChangeRequest is the body of POST /_pact/provider-states
type StateChangeRequest struct {
	State  string         `json:"state" binding:"required"`
	Params map[string]any `json:"params"`
	Action string         `json:"action" binding:"omitempty,oneof=setup teardown"`
}

// ProviderStateHandler lets a contract verifier running out of process
// establish provider states
type ProviderStateHandler struct {
	states contract.StateHandlers
	log    *zap.Logger
}

// NewProviderStateHandler creates a new ProviderStateHandler instance
func NewProviderStateHandler(states contract.StateHandlers, log *zap.Logger) *ProviderStateHandler {
	return &ProviderStateHandler{states: states, log: log}
}

// ChangeState handles POST /_pact/provider-states
func (h *ProviderStateHandler) ChangeState(c *gin.Context) {
	log := logger.WithContext(c.Request.Context(), h.log)

	var req StateChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid provider state request", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	fn, ok := h.states[req.State]
	if !ok {
		log.Warn("Unknown provider state", zap.String("state", req.State))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "unknown_state",
			Message: "no handler for provider state " + req.State,
		})
		return
	}

	setup := req.Action != "teardown"
	if err := fn(c.Request.Context(), setup, contract.ProviderState{Name: req.State, Params: req.Params}); err != nil {
		log.Error("Provider state change failed", zap.String("state", req.State), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "state_error",
			Message: err.Error(),
		})
		return
	}

	log.Info("Provider state changed", zap.String("state", req.State), zap.Bool("setup", setup))
	c.JSON(http.StatusOK, gin.H{})
}
