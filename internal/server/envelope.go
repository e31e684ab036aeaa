package server

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ostrander/workbench/internal/apperr"
)

const correlationKey = "correlation_id"

// correlationMiddleware tags every request with a correlation id, echoed in
// the response header and the envelope.
func correlationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()
		c.Set(correlationKey, id)
		c.Header("X-Correlation-Id", id)
		c.Next()
	}
}

func correlationID(c *gin.Context) string {
	if id, ok := c.Get(correlationKey); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"ok":            true,
		"data":          data,
		"correlationId": correlationID(c),
	})
}

// respondError renders a business failure from the error taxonomy, or a
// generic 500 for unexpected storage failures (whose transaction has already
// rolled back).
func respondError(c *gin.Context, err error) {
	if ae, ok := apperr.From(err); ok {
		c.JSON(apperr.HTTPStatus(ae.Code), gin.H{
			"ok":            false,
			"error":         errorBody{Code: ae.Code, Message: ae.Message, Details: ae.Details},
			"correlationId": correlationID(c),
		})
		return
	}
	log.Printf("server: %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"ok":            false,
		"error":         errorBody{Code: "internal", Message: "internal error"},
		"correlationId": correlationID(c),
	})
}
