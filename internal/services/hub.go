package services

import (
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Sachin-Buluswar/DebateAI-sub003/internal/config"
	"github.com/Sachin-Buluswar/DebateAI-sub003/internal/models"
)

// Hub fans server notifications out to every client watching a debate and
// funnels inbound client commands to a single dispatcher.
type Hub struct {
	// Debate connections: debateId -> set of clients
	debates map[string]map[*Client]bool

	broadcast  chan *BroadcastMessage
	register   chan *Registration
	unregister chan *Registration

	// handleMessage receives raw inbound frames from client read pumps.
	handleMessage chan *ClientMessage

	// onMessage is the command dispatcher installed by the handlers layer.
	onMessage func(c *Client, data []byte)

	metrics *Metrics
	log     *logrus.Logger

	mu sync.RWMutex
}

type Registration struct {
	DebateID string
	Client   *Client
}

type BroadcastMessage struct {
	DebateID string
	Message  *models.WSMessage
}

func NewHub(metrics *Metrics, logger *logrus.Logger) *Hub {
	return &Hub{
		debates:       make(map[string]map[*Client]bool),
		broadcast:     make(chan *BroadcastMessage, config.HubBroadcastBufferSize),
		register:      make(chan *Registration, 64),
		unregister:    make(chan *Registration, 64),
		handleMessage: make(chan *ClientMessage, config.HubBroadcastBufferSize),
		metrics:       metrics,
		log:           logger,
	}
}

// SetMessageHandler installs the inbound command dispatcher. Must be called
// before Run.
func (h *Hub) SetMessageHandler(fn func(c *Client, data []byte)) {
	h.onMessage = fn
}

func (h *Hub) Run() {
	for {
		select {
		case reg := <-h.register:
			h.registerClient(reg)

		case reg := <-h.unregister:
			h.unregisterClient(reg)

		case msg := <-h.broadcast:
			h.broadcastToDebate(msg)

		case cm := <-h.handleMessage:
			if h.onMessage != nil {
				h.onMessage(cm.Client, cm.Message)
			}
		}
	}
}

func (h *Hub) registerClient(reg *Registration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.debates[reg.DebateID] == nil {
		h.debates[reg.DebateID] = make(map[*Client]bool)
		h.metrics.IncrementDebates()
	}
	h.debates[reg.DebateID][reg.Client] = true
	h.metrics.IncrementConnections()

	h.log.WithFields(logrus.Fields{
		"debate":      reg.DebateID,
		"connections": len(h.debates[reg.DebateID]),
	}).Info("websocket registered")
}

func (h *Hub) unregisterClient(reg *Registration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.debates[reg.DebateID]
	if !ok {
		return
	}
	if _, exists := clients[reg.Client]; !exists {
		return
	}
	delete(clients, reg.Client)
	h.metrics.DecrementConnections()
	reg.Client.Close()

	if len(clients) == 0 {
		delete(h.debates, reg.DebateID)
		h.metrics.DecrementDebates()
	}
}

func (h *Hub) broadcastToDebate(msg *BroadcastMessage) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.debates[msg.DebateID]))
	for c := range h.debates[msg.DebateID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	if len(clients) == 0 {
		return
	}

	data, err := json.Marshal(msg.Message)
	if err != nil {
		h.log.WithField("err", err).Error("failed to marshal broadcast")
		return
	}

	for _, c := range clients {
		c.Send(data)
	}
}

// BroadcastToDebate queues a notification for every client on a debate.
func (h *Hub) BroadcastToDebate(debateID string, message *models.WSMessage) {
	h.broadcast <- &BroadcastMessage{DebateID: debateID, Message: message}
}

// SendToClient delivers a message to one client only.
func (h *Hub) SendToClient(c *Client, message *models.WSMessage) {
	data, err := json.Marshal(message)
	if err != nil {
		h.log.WithField("err", err).Error("failed to marshal direct message")
		return
	}
	c.Send(data)
}

func (h *Hub) Register(debateID string, c *Client) {
	h.register <- &Registration{DebateID: debateID, Client: c}
}

func (h *Hub) Unregister(debateID string, c *Client) {
	h.unregister <- &Registration{DebateID: debateID, Client: c}
}

// GetMetrics returns the current metrics snapshot.
func (h *Hub) GetMetrics() MetricsSnapshot {
	return h.metrics.Snapshot()
}
