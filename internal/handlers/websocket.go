package handlers

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"seeker-scratch/internal/models"
	"seeker-scratch/internal/services"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	clientBuffer   = 64
	broadcastQueue = 256
)

var upgrader = websocket.Upgrader{
	// The bridge only listens on loopback; accept local UI origins.
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		host := u.Hostname()
		if host == "localhost" {
			return true
		}
		ip := net.ParseIP(host)
		return ip != nil && ip.IsLoopback()
	},
}

type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type Client struct {
	Wallet string
	Conn   *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func newClient(wallet string, conn *websocket.Conn) *Client {
	return &Client{Wallet: wallet, Conn: conn, send: make(chan []byte, clientBuffer)}
}

// WebSocketHub relays feedback cues, balance changes and reveal progress to
// every connected UI. Broadcasts never block the caller; a client that falls
// behind is dropped.
type WebSocketHub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	done       chan struct{}
}

var _ services.Broadcaster = (*WebSocketHub)(nil)

func NewWebSocketHub() *WebSocketHub {
	return &WebSocketHub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, broadcastQueue),
		done:       make(chan struct{}),
	}
}

// Run serves the hub until ctx is cancelled, then closes every client.
func (hub *WebSocketHub) Run(ctx context.Context) {
	defer close(hub.done)
	for {
		select {
		case <-ctx.Done():
			for client := range hub.clients {
				delete(hub.clients, client)
				client.close()
			}
			return

		case client := <-hub.register:
			hub.clients[client] = true
			log.WithField("wallet", client.Wallet).Debug("ws: client registered")

		case client := <-hub.unregister:
			if _, ok := hub.clients[client]; ok {
				delete(hub.clients, client)
				client.close()
				log.WithField("wallet", client.Wallet).Debug("ws: client unregistered")
			}

		case message := <-hub.broadcast:
			hub.broadcastMessage(message)
		}
	}
}

func (hub *WebSocketHub) broadcastMessage(message *Message) {
	payload, err := json.Marshal(message)
	if err != nil {
		log.WithError(err).Warn("ws: failed to encode message")
		return
	}
	for client := range hub.clients {
		if !client.offer(payload) {
			delete(hub.clients, client)
			client.close()
			log.WithField("wallet", client.Wallet).Warn("ws: client too slow, dropped")
		}
	}
}

func (hub *WebSocketHub) publish(message *Message) {
	select {
	case hub.broadcast <- message:
	default:
		log.WithField("type", message.Type).Debug("ws: broadcast queue full, dropping")
	}
}

func (hub *WebSocketHub) BroadcastFeedback(ev services.FeedbackEvent) {
	hub.publish(&Message{Type: "FEEDBACK", Data: ev})
}

func (hub *WebSocketHub) BroadcastBalance(balance models.BalanceResponse) {
	hub.publish(&Message{Type: "BALANCE_UPDATE", Data: balance})
}

func (hub *WebSocketHub) BroadcastReveal(snapshot models.RevealSnapshot) {
	hub.publish(&Message{Type: "REVEAL_UPDATE", Data: snapshot})
}

type WebSocketHandler struct {
	hub    *WebSocketHub
	state  *services.LedgerState
	reveal *services.RevealMachine
}

func NewWebSocketHandler(hub *WebSocketHub, state *services.LedgerState, reveal *services.RevealMachine) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, state: state, reveal: reveal}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Warn("ws: failed to upgrade")
		return
	}

	client := newClient(c.GetString("wallet"), conn)

	h.sendInitialState(client)
	select {
	case h.hub.register <- client:
	case <-h.hub.done:
		conn.Close()
		return
	}
	go client.writePump()

	defer func() {
		select {
		case h.hub.unregister <- client:
		case <-h.hub.done:
		}
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		err := conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.WithError(err).Warn("ws: read failed")
			}
			break
		}

		h.handleMessage(client, &msg)
	}
}

func (h *WebSocketHandler) handleMessage(client *Client, msg *Message) {
	switch msg.Type {
	case "PING":
		client.enqueue(&Message{
			Type: "PONG",
			Data: gin.H{"timestamp": time.Now().Unix()},
		})
	case "GET_REVEAL":
		client.enqueue(&Message{Type: "REVEAL_UPDATE", Data: h.reveal.Snapshot()})
	}
}

// sendInitialState queues the current balance and reveal snapshot ahead of
// any broadcast.
func (h *WebSocketHandler) sendInitialState(client *Client) {
	if owner, ok := h.state.Owner(); ok {
		if lamports, known := h.state.Balance(); known {
			client.enqueue(&Message{Type: "BALANCE_UPDATE", Data: models.BalanceResponse{
				Owner:    owner,
				Lamports: lamports,
				SOL:      models.LamportsToSOL(lamports),
			}})
		}
	}
	client.enqueue(&Message{Type: "REVEAL_UPDATE", Data: h.reveal.Snapshot()})
}

// enqueue queues a direct reply. It is dropped when the client is closed or
// its buffer is full.
func (client *Client) enqueue(msg *Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	client.offer(payload)
}

// offer reports whether payload was queued. A closed client never accepts.
func (client *Client) offer(payload []byte) bool {
	client.mu.Lock()
	defer client.mu.Unlock()
	if client.closed {
		return false
	}
	select {
	case client.send <- payload:
		return true
	default:
		return false
	}
}

// close ends the write pump. Safe to call more than once.
func (client *Client) close() {
	client.mu.Lock()
	defer client.mu.Unlock()
	if !client.closed {
		client.closed = true
		close(client.send)
	}
}

func (client *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case payload, ok := <-client.send:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
