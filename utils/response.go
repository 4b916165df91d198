package utils

import "github.com/gin-gonic/gin"

// The content API's success payloads are fixed legacy shapes and are written
// directly by the controllers; only error responses share a structure.

// Error returns a JSON error response with the given status code.
func Error(ctx *gin.Context, status int, message string) {
	ctx.JSON(status, gin.H{"error": message})
}

// ValidationError returns a 400 with per-field detail, mirroring the legacy
// serializer error shape.
func ValidationError(ctx *gin.Context, detail map[string]string) {
	ctx.JSON(400, gin.H{"detail": detail})
}
