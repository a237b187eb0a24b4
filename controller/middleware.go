package controller

import (
	"crypto/subtle"

	"sandbox-app-service/controller/respond"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader request correlation header
const RequestIDHeader = "X-Request-ID"

// RequestIDMiddleware keeps an incoming X-Request-ID or assigns a new one
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// APIKeyMiddleware rejects requests whose X-API-Key is not in keys.
// An empty key list lets everything through.
func APIKeyMiddleware(keys []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(keys) == 0 {
			c.Next()
			return
		}

		given := []byte(c.GetHeader("X-API-Key"))
		for _, k := range keys {
			if subtle.ConstantTimeCompare([]byte(k), given) == 1 {
				c.Next()
				return
			}
		}
		respond.Unauthorized(c, "invalid or missing API key")
	}
}
