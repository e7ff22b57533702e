package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/ridwanfathin/assistant-health-sync/internal/domain"
	"github.com/ridwanfathin/assistant-health-sync/internal/model"
	"github.com/ridwanfathin/assistant-health-sync/internal/service"
)

// SyncHandler handles the provider sync endpoints
type SyncHandler struct {
	syncService service.SyncService
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(syncService service.SyncService) *SyncHandler {
	return &SyncHandler{
		syncService: syncService,
	}
}

// SyncFitbit handles the POST /functions/v1/health-fitbit-sync endpoint
// @Summary Sync Fitbit data
// @Description Import daily Fitbit metrics for the authenticated user
// @Tags sync
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.SyncRequest false "Sync options"
// @Success 200 {object} model.SyncResponse "Sync result"
// @Failure 400 {object} model.ErrorResponse "No stored token or reauthorization required"
// @Failure 401 {object} model.ErrorResponse "Missing or invalid session"
// @Failure 409 {object} model.ErrorResponse "Sync already in progress"
// @Failure 500 {object} model.ErrorResponse "Provider or configuration error"
// @Router /functions/v1/health-fitbit-sync [post]
func (h *SyncHandler) SyncFitbit(c *gin.Context) {
	result, ok := h.sync(c, domain.ProviderFitbit)
	if !ok {
		return
	}
	respondOK(c, model.NewSyncResponse(result))
}

// SyncGoogleFit handles the POST /functions/v1/health-google-fit-sync endpoint
// @Summary Sync Google Fit data
// @Description Import daily Google Fit metrics for the authenticated user. Data types the account refuses are skipped and reported.
// @Tags sync
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.SyncRequest false "Sync options"
// @Success 200 {object} model.GoogleFitSyncResponse "Sync result"
// @Failure 400 {object} model.ErrorResponse "No stored token or reauthorization required"
// @Failure 401 {object} model.ErrorResponse "Missing or invalid session"
// @Failure 409 {object} model.ErrorResponse "Sync already in progress"
// @Failure 500 {object} model.ErrorResponse "Provider or configuration error"
// @Router /functions/v1/health-google-fit-sync [post]
func (h *SyncHandler) SyncGoogleFit(c *gin.Context) {
	result, ok := h.sync(c, domain.ProviderGoogleFit)
	if !ok {
		return
	}
	respondOK(c, model.NewGoogleFitSyncResponse(result))
}

func (h *SyncHandler) sync(c *gin.Context, p domain.Provider) (*domain.SyncResult, bool) {
	userID, exists := getUserID(c)
	if !exists {
		respondUnauthorized(c, ErrMissingSession)
		return nil, false
	}

	var req model.SyncRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondBadRequest(c, ErrInvalidInput, err.Error())
		return nil, false
	}

	result, err := h.syncService.Sync(c.Request.Context(), userID, p, service.SyncOptions{
		Days: req.Days,
		Auto: req.Auto,
	})
	if err != nil {
		logError(c, "sync_failed", err, map[string]interface{}{
			"user_id":  userID,
			"provider": p.String(),
		})
		respondServiceError(c, err)
		return nil, false
	}
	return result, true
}

// RegisterRoutes registers the sync routes
func (h *SyncHandler) RegisterRoutes(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	functions := router.Group("/functions/v1", authMiddleware)
	{
		functions.POST("/health-fitbit-sync", h.SyncFitbit)
		functions.POST("/health-google-fit-sync", h.SyncGoogleFit)
	}
}
