package handler

import (
	"errors"
	"fmt"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// contextUserID is where the auth middleware stores the session subject
const contextUserID = "userID"

// getUserID returns the authenticated user or false when the middleware did not run
func getUserID(c *gin.Context) (string, bool) {
	userID := c.GetString(contextUserID)
	return userID, userID != ""
}

// bindJSON binds JSON request body to a struct
func bindJSON(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		return fmt.Errorf("invalid JSON format: %v", err)
	}
	return nil
}

// bindOptionalJSON is bindJSON for endpoints whose body may be empty
func bindOptionalJSON(c *gin.Context, obj interface{}) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(obj); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid JSON format: %v", err)
	}
	return nil
}

// logError writes a handler failure through the request scoped logger
func logError(c *gin.Context, event string, err error, fields map[string]interface{}) {
	entry := zerolog.Ctx(c.Request.Context()).Error().Err(err).Str("event", event)
	if fields != nil {
		entry = entry.Fields(fields)
	}
	entry.Msg("request failed")
}
