package middleware

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
)

// LoggerMiddleware writes one JSON line per request. Bodies and headers
// other than the request id are never logged.
func LoggerMiddleware() gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		entry := struct {
			Timestamp string  `json:"ts"`
			RequestID string  `json:"request_id,omitempty"`
			ClientIP  string  `json:"ip"`
			Method    string  `json:"method"`
			Path      string  `json:"path"`
			Status    int     `json:"status"`
			LatencyMs float64 `json:"latency_ms"`
			BodySize  int     `json:"size"`
			Error     string  `json:"error,omitempty"`
		}{
			Timestamp: param.TimeStamp.UTC().Format(time.RFC3339Nano),
			RequestID: param.Request.Header.Get(HeaderRequestID),
			ClientIP:  param.ClientIP,
			Method:    param.Method,
			Path:      param.Path,
			Status:    param.StatusCode,
			LatencyMs: float64(param.Latency) / float64(time.Millisecond),
			BodySize:  param.BodySize,
			Error:     param.ErrorMessage,
		}
		if entry.RequestID == "" {
			if id, ok := param.Keys[ContextRequestID].(string); ok {
				entry.RequestID = id
			}
		}
		b, _ := json.Marshal(entry)
		return string(b) + "\n"
	})
}
