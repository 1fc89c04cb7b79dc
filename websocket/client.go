package websocket

import (
	"PinguinGuard/interfaces"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Время ожидания записи сообщения
	writeWait = 10 * time.Second

	// Время ожидания чтения сообщений от клиента
	pongWait = 60 * time.Second

	// Период отправки пингов, должен быть меньше pongWait
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Мобильные клиенты не присылают Origin
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client соединение WebSocket одного участника семьи. Канал только
// на отправку событий: входящие сообщения читаются ради pong и закрытия.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	UserID   string
	FamilyID string
	UserType string
	send     chan interfaces.WebSocketMessage
}

func NewClient(hub *Hub, conn *websocket.Conn, userID, familyID, userType string) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		UserID:   userID,
		FamilyID: familyID,
		UserType: userType,
		send:     make(chan interfaces.WebSocketMessage, 256),
	}
}

// ReadPump держит соединение открытым и снимает клиента с регистрации при обрыве.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
		log.Printf("[WebSocket] Соединение закрыто для пользователя %s", c.UserID)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WebSocket] Ошибка при чтении сообщения от %s: %v", c.UserID, err)
			}
			return
		}
	}
}

// WritePump отправляет сообщения клиенту
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				log.Printf("[WebSocket] Error writing message to client %s: %v", c.UserID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWs переводит запрос в WebSocket и подключает клиента к семье.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request, userID, familyID, userType string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := NewClient(hub, conn, userID, familyID, userType)
	hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
	return nil
}
