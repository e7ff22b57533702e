package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/ridwanfathin/assistant-health-sync/internal/model"
	"github.com/ridwanfathin/assistant-health-sync/internal/service"
)

// IntegrationHandler exposes integration state to the app
type IntegrationHandler struct {
	integrationService service.IntegrationService
}

// NewIntegrationHandler creates a new integration handler
func NewIntegrationHandler(integrationService service.IntegrationService) *IntegrationHandler {
	return &IntegrationHandler{
		integrationService: integrationService,
	}
}

// ListIntegrations handles the GET /functions/v1/health-integrations endpoint
// @Summary List integrations
// @Description Connection status and last sync diagnostics for every provider
// @Tags integrations
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.IntegrationsListResponse "Integrations"
// @Failure 401 {object} model.ErrorResponse "Missing or invalid session"
// @Failure 500 {object} model.ErrorResponse "Internal server error"
// @Router /functions/v1/health-integrations [get]
func (h *IntegrationHandler) ListIntegrations(c *gin.Context) {
	userID, exists := getUserID(c)
	if !exists {
		respondUnauthorized(c, ErrMissingSession)
		return
	}

	integrations, err := h.integrationService.ListIntegrations(c.Request.Context(), userID)
	if err != nil {
		logError(c, "list_integrations_failed", err, map[string]interface{}{"user_id": userID})
		respondServiceError(c, err)
		return
	}

	response := model.IntegrationsListResponse{
		Data: make([]model.IntegrationResponse, 0, len(integrations)),
	}
	for _, integration := range integrations {
		response.Data = append(response.Data, model.NewIntegrationResponse(integration))
	}
	respondOK(c, response)
}

// RegisterRoutes registers the integration routes
func (h *IntegrationHandler) RegisterRoutes(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	functions := router.Group("/functions/v1", authMiddleware)
	{
		functions.GET("/health-integrations", h.ListIntegrations)
	}
}
