package controllers

import (
	"PinguinGuard/services"
	"net/http"

	"github.com/gin-gonic/gin"
)

var translationService *services.TranslationService

func SetTranslationService(service *services.TranslationService) {
	translationService = service
}

func GetTranslations(c *gin.Context) {
	lang := c.DefaultQuery("lang", "en")

	if translationService == nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Translation service not initialized",
		})
		return
	}

	translations := translationService.GetAllTranslations(lang)

	c.JSON(http.StatusOK, gin.H{
		"status":       "success",
		"translations": translations,
	})
}
