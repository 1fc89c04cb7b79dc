package websocket

import (
	"PinguinGuard/interfaces"
	"context"
	"log"
	"sync"
)

const (
	// Новому клиенту отправляются последние события семьи
	historyMaxSize = 50

	MessageProposalHistory = "proposal_history"
)

// delivery: сообщение для семьи. Если recipients не пуст, его получают только они.
type delivery struct {
	message    interfaces.WebSocketMessage
	recipients []string
}

// Hub хранит активные соединения, сгруппированные по семье, и рассылает
// им события предложений.
type Hub struct {
	// Зарегистрированные клиенты, сгруппированные по family_id
	clients map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan delivery
	done       chan struct{}

	mu      sync.Mutex
	history map[string][]interfaces.WebSocketMessage
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan delivery, 256),
		done:       make(chan struct{}),
		history:    make(map[string][]interfaces.WebSocketMessage),
	}
}

// Register регистрирует нового клиента в хабе
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.send)
	}
}

// Unregister отменяет регистрацию клиента
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Done закрывается, когда Run завершился.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// ClientCount возвращает число подключенных клиентов семьи.
func (h *Hub) ClientCount(familyID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[familyID])
}

// Run обслуживает хаб до отмены ctx. При выходе все соединения закрываются.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		h.mu.Lock()
		for familyID, clients := range h.clients {
			for client := range clients {
				close(client.send)
			}
			delete(h.clients, familyID)
		}
		h.mu.Unlock()
		close(h.done)
		log.Printf("[WebSocket] Хаб остановлен")
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			if _, ok := h.clients[client.FamilyID]; !ok {
				h.clients[client.FamilyID] = make(map[*Client]bool)
			}
			h.clients[client.FamilyID][client] = true
			history := append([]interfaces.WebSocketMessage(nil), h.history[client.FamilyID]...)
			h.mu.Unlock()
			log.Printf("[WebSocket] Клиент %s (%s) подключен к семье %s", client.UserID, client.UserType, client.FamilyID)

			if len(history) > 0 {
				select {
				case client.send <- interfaces.WebSocketMessage{
					Type:     MessageProposalHistory,
					FamilyID: client.FamilyID,
					Message:  history,
				}:
				default:
				}
			}

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()

		case d := <-h.broadcast:
			h.deliver(d)
		}
	}
}

func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.clients[client.FamilyID]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.clients, client.FamilyID)
	}
	log.Printf("[WebSocket] Клиент %s отключен", client.UserID)
}

func (h *Hub) deliver(d delivery) {
	h.mu.Lock()
	defer h.mu.Unlock()

	familyID := d.message.FamilyID
	for client := range h.clients[familyID] {
		if len(d.recipients) > 0 && !contains(d.recipients, client.UserID) {
			continue
		}
		select {
		case client.send <- d.message:
		default:
			// медленный клиент: отключаем, чтобы не блокировать семью
			h.removeLocked(client)
		}
	}

	if len(d.recipients) == 0 {
		history := append(h.history[familyID], d.message)
		if len(history) > historyMaxSize {
			history = history[len(history)-historyMaxSize:]
		}
		h.history[familyID] = history
	}
}

// NotifyProposal рассылает событие подключенным клиентам семьи.
// Сигнал о заблокированном понижении прав получает только его адресат.
func (h *Hub) NotifyProposal(ctx context.Context, event interfaces.ProposalEvent) {
	if event.FamilyID == "" {
		return
	}
	d := delivery{message: interfaces.WebSocketMessage{
		Type:      interfaces.EventProposalUpdated,
		FamilyID:  event.FamilyID,
		SenderID:  event.ActorID,
		Message:   event,
		Timestamp: event.Timestamp,
	}}
	if event.Type == interfaces.EventPermissionBlocked {
		d.message.Type = interfaces.EventPermissionBlocked
		d.recipients = event.Recipients
	}

	select {
	case h.broadcast <- d:
	case <-h.done:
	case <-ctx.Done():
		log.Printf("[WebSocket] Событие %s для семьи %s не доставлено: %v", event.Type, event.FamilyID, ctx.Err())
	}
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
