package controllers

import (
	"PinguinGuard/websocket"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

var WebSocketHub *websocket.Hub

// SetWebSocketHub только сохраняет хаб; Run запускает main со своим контекстом.
func SetWebSocketHub(hub *websocket.Hub) {
	WebSocketHub = hub
}

// ServeWs подключает участника семьи ребенка к потоку событий предложений.
func ServeWs(c *gin.Context) {
	userID := callerID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	userType := c.GetString("user_type")

	childID := c.Query("child_id")
	if childID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "child_id is required"})
		return
	}

	record, err := proposalService.Eligibility.CanView(c.Request.Context(), userID, childID)
	if err != nil {
		respondError(c, err)
		return
	}

	log.Printf("[WebSocket] user %s (%s) connecting to family %s", userID, userType, record.FamilyID)

	if err := websocket.ServeWs(WebSocketHub, c.Writer, c.Request, userID, record.FamilyID, userType); err != nil {
		log.Printf("[WebSocket] Ошибка апгрейда соединения: %v", err)
	}
}
