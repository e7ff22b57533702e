package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ridwanfathin/assistant-health-sync/internal/logger"
	"github.com/ridwanfathin/assistant-health-sync/internal/metrics"
	"github.com/rs/zerolog"
)

// sensitiveFields contains patterns for fields that should be redacted
var sensitiveFields = []string{
	"password",
	"token",
	"api_key",
	"apikey",
	"api-key",
	"secret",
	"authorization",
	"auth",
	"bearer",
	"key",
	"credential",
	"access_token",
	"refresh_token",
	"session",
	"cookie",
}

// sensitiveQueryParams are redacted from logged query strings. The OAuth
// callback carries the authorization code and state there.
var sensitiveQueryParams = map[string]bool{
	"code":  true,
	"state": true,
}

// sensitiveHeaderPatterns contains regex patterns for sensitive headers
var sensitiveHeaderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)authorization`),
	regexp.MustCompile(`(?i)api[-_]?key`),
	regexp.MustCompile(`(?i)token`),
	regexp.MustCompile(`(?i)secret`),
	regexp.MustCompile(`(?i)password`),
	regexp.MustCompile(`(?i)bearer`),
	regexp.MustCompile(`(?i)cookie`),
	regexp.MustCompile(`(?i)session`),
}

// responseWriter is a custom response writer to capture response body
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// RequestIDHeader carries the request id in both directions
const RequestIDHeader = "X-Request-ID"

// maxLoggedBody bounds how much of a non-JSON body ends up in a log line
const maxLoggedBody = 1000

// RequestResponseLogger logs every request and response through log with
// secrets redacted, and records request counts and latency in stats.
// Handlers reach the request scoped logger through zerolog.Ctx.
func RequestResponseLogger(log logger.Logger, stats *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Start timer
		startTime := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header(RequestIDHeader, requestID)

		reqLog := log.With().Str("request_id", requestID).Logger()
		c.Request = c.Request.WithContext(reqLog.WithContext(c.Request.Context()))

		// Read and store request body
		var requestBody []byte
		if c.Request.Body != nil {
			requestBody, _ = io.ReadAll(c.Request.Body)
			// Restore the body for the next handler
			c.Request.Body = io.NopCloser(bytes.NewBuffer(requestBody))
		}

		// Create custom response writer to capture response
		responseBodyWriter := &responseWriter{
			ResponseWriter: c.Writer,
			body:           bytes.NewBufferString(""),
		}
		c.Writer = responseBodyWriter

		// Process request
		c.Next()

		latency := time.Since(startTime)
		status := c.Writer.Status()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		stats.ObserveHTTPRequest(c.Request.Method, route, status, latency)

		writeLogEntry(reqLog, c, status, requestBody, responseBodyWriter.body.Bytes(), latency)
	}
}

// writeLogEntry emits one structured line for a finished request
func writeLogEntry(log zerolog.Logger, c *gin.Context, status int, requestBody, responseBody []byte, latency time.Duration) {
	var event *zerolog.Event
	switch {
	case status >= 500:
		event = log.Error()
	case status >= 400:
		event = log.Warn()
	default:
		event = log.Info()
	}

	event = event.
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Int("status_code", status).
		Dur("latency", latency).
		Str("client_ip", c.ClientIP()).
		Str("user_agent", c.Request.UserAgent()).
		Interface("headers", redactHeaders(c.Request.Header))

	if query := redactQuery(c.Request.URL.Query()); len(query) > 0 {
		event = event.Interface("query_params", query)
	}
	if userID := c.GetString("userID"); userID != "" {
		event = event.Str("user_id", userID)
	}

	// Parse and redact bodies
	if len(requestBody) > 0 {
		event = event.Interface("request_body", parseAndRedactBody(requestBody))
	}
	if len(responseBody) > 0 {
		event = event.Interface("response_body", parseAndRedactBody(responseBody))
	}

	if len(c.Errors) > 0 {
		event = event.Str("error", c.Errors.String())
	}

	event.Msg("http request")
}

// redactHeaders redacts sensitive headers
func redactHeaders(headers map[string][]string) map[string]string {
	redacted := make(map[string]string)
	for key, values := range headers {
		if isSensitiveHeader(key) {
			redacted[key] = "[REDACTED]"
		} else {
			redacted[key] = strings.Join(values, ", ")
		}
	}
	return redacted
}

// redactQuery copies query parameters with sensitive values replaced
func redactQuery(query map[string][]string) map[string][]string {
	redacted := make(map[string][]string, len(query))
	for key, values := range query {
		if sensitiveQueryParams[strings.ToLower(key)] || isSensitiveField(key) {
			redacted[key] = []string{"[REDACTED]"}
		} else {
			redacted[key] = values
		}
	}
	return redacted
}

// isSensitiveHeader checks if a header name is sensitive
func isSensitiveHeader(headerName string) bool {
	for _, pattern := range sensitiveHeaderPatterns {
		if pattern.MatchString(headerName) {
			return true
		}
	}
	return false
}

// parseAndRedactBody parses JSON body and redacts sensitive fields
func parseAndRedactBody(body []byte) interface{} {
	// Try to parse as JSON
	var jsonBody interface{}
	if err := json.Unmarshal(body, &jsonBody); err != nil {
		// If not JSON, return truncated string
		bodyStr := string(body)
		if len(bodyStr) > maxLoggedBody {
			bodyStr = bodyStr[:maxLoggedBody] + "... (truncated)"
		}
		return bodyStr
	}

	// Redact sensitive fields
	redactSensitiveFields(jsonBody)
	return jsonBody
}

// redactSensitiveFields recursively redacts sensitive fields in JSON data
func redactSensitiveFields(data interface{}) {
	switch v := data.(type) {
	case map[string]interface{}:
		for key, value := range v {
			if isSensitiveField(key) {
				v[key] = "[REDACTED]"
			} else {
				redactSensitiveFields(value)
			}
		}
	case []interface{}:
		for _, item := range v {
			redactSensitiveFields(item)
		}
	}
}

// isSensitiveField checks if a field name is sensitive
func isSensitiveField(fieldName string) bool {
	lowerField := strings.ToLower(fieldName)
	for _, sensitive := range sensitiveFields {
		if strings.Contains(lowerField, sensitive) {
			return true
		}
	}
	return false
}
