package server

import (
	"bytes"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/ostrander/workbench/internal/apperr"
	"github.com/ostrander/workbench/internal/idempotency"
	"gorm.io/gorm"
)

// idempotencyMiddleware wraps every mutating route. A request without a key
// is rejected before any side effect; a replayed key returns the stored
// response verbatim; otherwise the produced response is recorded after the
// handler (and its transaction) has finished. Responses of 500 and above are
// never recorded: their transaction rolled back, so a retry must re-execute.
func idempotencyMiddleware(gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(idempotency.Header)
		if key == "" {
			respondError(c, apperr.New(apperr.CodeMissingIdempotency, idempotency.Header+" header is required"))
			c.Abort()
			return
		}

		method, path := c.Request.Method, c.Request.URL.Path
		stored, err := idempotency.Lookup(gdb, method, path, key)
		if err != nil {
			respondError(c, err)
			c.Abort()
			return
		}
		if stored != nil {
			c.Data(stored.Status, "application/json; charset=utf-8", stored.Body)
			c.Abort()
			return
		}

		capture := &bodyCapture{ResponseWriter: c.Writer}
		c.Writer = capture
		c.Next()

		status := capture.Status()
		if status >= 500 {
			return
		}
		if err := idempotency.Record(gdb, method, path, key, status, capture.buf.Bytes()); err != nil {
			log.Printf("server: record idempotent response for %s %s: %v", method, path, err)
		}
	}
}

// bodyCapture tees the response body so it can be stored for replay.
type bodyCapture struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *bodyCapture) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyCapture) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
