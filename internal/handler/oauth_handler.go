package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/ridwanfathin/assistant-health-sync/internal/model"
	"github.com/ridwanfathin/assistant-health-sync/internal/service"
)

// OAuthHandler handles the provider connect handshake
type OAuthHandler struct {
	oauthService service.OAuthService
}

// NewOAuthHandler creates a new OAuth handler
func NewOAuthHandler(oauthService service.OAuthService) *OAuthHandler {
	return &OAuthHandler{
		oauthService: oauthService,
	}
}

// Start handles the POST /functions/v1/health-oauth-start endpoint
// @Summary Start a provider connection
// @Description Creates a single-use state and returns the provider consent URL
// @Tags oauth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.OAuthStartRequest true "Provider and optional return URL"
// @Success 200 {object} model.OAuthStartResponse "Authorize URL"
// @Failure 400 {object} model.ErrorResponse "Unsupported provider"
// @Failure 401 {object} model.ErrorResponse "Missing or invalid session"
// @Failure 500 {object} model.ErrorResponse "Provider credentials missing"
// @Router /functions/v1/health-oauth-start [post]
func (h *OAuthHandler) Start(c *gin.Context) {
	userID, exists := getUserID(c)
	if !exists {
		respondUnauthorized(c, ErrMissingSession)
		return
	}

	var req model.OAuthStartRequest
	if err := bindJSON(c, &req); err != nil {
		respondBadRequest(c, ErrInvalidInput, err.Error())
		return
	}

	start, err := h.oauthService.Start(c.Request.Context(), userID, req.Provider, req.ReturnTo)
	if err != nil {
		logError(c, "oauth_start_failed", err, map[string]interface{}{
			"user_id":  userID,
			"provider": req.Provider,
		})
		respondServiceError(c, err)
		return
	}

	respondOK(c, model.OAuthStartResponse{
		Provider:     start.Provider.String(),
		AuthorizeURL: start.AuthorizeURL,
	})
}

// Callback handles the GET /functions/v1/health-oauth-callback endpoint
// @Summary Provider redirect target
// @Description Completes the handshake and redirects the browser back to the app with health_oauth=success or health_oauth=error
// @Tags oauth
// @Param state query string false "Handshake state"
// @Param code query string false "Authorization code"
// @Param error query string false "Provider error"
// @Success 302 "Redirect to the app"
// @Router /functions/v1/health-oauth-callback [get]
func (h *OAuthHandler) Callback(c *gin.Context) {
	result := h.oauthService.Callback(c.Request.Context(), service.CallbackParams{
		State: c.Query("state"),
		Code:  c.Query("code"),
		Error: c.Query("error"),
	})
	c.Redirect(StatusFound, result.RedirectURL)
}

// RegisterRoutes registers the handshake routes. The callback is reached by
// the provider redirect and carries no session.
func (h *OAuthHandler) RegisterRoutes(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	functions := router.Group("/functions/v1")
	{
		functions.POST("/health-oauth-start", authMiddleware, h.Start)
		functions.GET("/health-oauth-callback", h.Callback)
	}
}
