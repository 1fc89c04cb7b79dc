package controllers

import (
	"PinguinGuard/services"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

var statusByCode = map[services.ErrorCode]int{
	services.CodeUnauthenticated:    http.StatusUnauthorized,
	services.CodePermissionDenied:   http.StatusForbidden,
	services.CodeNotFound:           http.StatusNotFound,
	services.CodeInvalidArgument:    http.StatusBadRequest,
	services.CodeFailedPrecondition: http.StatusConflict,
	services.CodeInternal:           http.StatusInternalServerError,
}

// respondError переводит ошибку сервиса в HTTP-ответ. Детали внутренних
// ошибок только логируются.
func respondError(c *gin.Context, err error) {
	code := services.CodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("[HTTP] %s %s: %v", c.Request.Method, c.FullPath(), err)
		message = "internal error"
	}
	c.JSON(status, gin.H{"success": false, "code": code, "error": message})
}

func respondData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

// callerID возвращает firebase_uid, выставленный AuthMiddleware.
func callerID(c *gin.Context) string {
	return c.GetString("firebase_uid")
}
