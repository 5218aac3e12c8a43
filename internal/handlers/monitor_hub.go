package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// --- Глобальные переменные и константы ---

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Для разработки разрешаем все источники
	},
}

// EventMonitor - единственный экземпляр хаба живого мониторинга
// посещаемости для всего приложения.
var EventMonitor = NewMonitorHub()

// --- Структуры ---

// MonitorMessage - кадр, который уходит подписчикам события.
type MonitorMessage struct {
	Type    string `json:"type"`
	EventID uint   `json:"event_id"`
	Payload any    `json:"payload"`
}

type monitorClient struct {
	hub     *MonitorHub
	conn    *websocket.Conn
	send    chan []byte
	eventID uint
}

type broadcastFrame struct {
	eventID uint
	data    []byte
}

// MonitorHub раздает свежие отметки посещаемости подключенным экранам
// мониторинга. Подписка привязана к конкретному событию.
type MonitorHub struct {
	clients    map[uint]map[*monitorClient]bool
	broadcast  chan broadcastFrame
	register   chan *monitorClient
	unregister chan *monitorClient
	mu         sync.Mutex
}

// --- Методы Хаба ---

func NewMonitorHub() *MonitorHub {
	return &MonitorHub{
		broadcast:  make(chan broadcastFrame),
		register:   make(chan *monitorClient),
		unregister: make(chan *monitorClient),
		clients:    make(map[uint]map[*monitorClient]bool),
	}
}

func (h *MonitorHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.eventID] == nil {
				h.clients[client.eventID] = make(map[*monitorClient]bool)
			}
			h.clients[client.eventID][client] = true
			h.mu.Unlock()
			slog.Info("Monitor client registered", "eventID", client.eventID)

		case client := <-h.unregister:
			h.mu.Lock()
			if set, ok := h.clients[client.eventID]; ok {
				if _, ok := set[client]; ok {
					delete(set, client)
					close(client.send)
					if len(set) == 0 {
						delete(h.clients, client.eventID)
					}
				}
			}
			h.mu.Unlock()
			slog.Info("Monitor client unregistered", "eventID", client.eventID)

		case frame := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients[frame.eventID] {
				select {
				case client.send <- frame.data:
				default:
					close(client.send)
					delete(h.clients[frame.eventID], client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast отправляет свежую отметку всем подписчикам события. Вызов не
// блокирует обработчик HTTP-запроса.
func (h *MonitorHub) Broadcast(eventID uint, record any) {
	msg := MonitorMessage{Type: "newAttendance", EventID: eventID, Payload: record}
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("Failed to marshal monitor message", "error", err)
		return
	}

	select {
	case h.broadcast <- broadcastFrame{eventID: eventID, data: data}:
	default:
		// Хаб не запущен или перегружен - мониторинг не должен ронять
		// запись посещаемости.
	}
}

// --- Методы Клиента и WebSocket Endpoint ---

func (c *monitorClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	for {
		// Экран мониторинга только слушает; входящие кадры игнорируем.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("Unexpected websocket close error", "error", err)
			}
			break
		}
	}
}

func (c *monitorClient) writePump() {
	defer func() {
		c.conn.Close()
	}()
	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			slog.Error("Failed to write message to websocket", "error", err)
			return
		}
	}
}

// EventMonitorWSHandler подключает экран мониторинга к живой ленте
// отметок конкретного события.
func EventMonitorWSHandler(c *gin.Context) {
	eventID, err := strconv.ParseUint(c.Param("event_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid event id."})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}

	client := &monitorClient{
		hub:     EventMonitor,
		conn:    conn,
		send:    make(chan []byte, 256),
		eventID: uint(eventID),
	}
	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}
