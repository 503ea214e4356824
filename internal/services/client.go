package services

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Sachin-Buluswar/DebateAI-sub003/internal/config"
	"github.com/Sachin-Buluswar/DebateAI-sub003/internal/models"
)

// Client represents a single WebSocket connection with its own send
// goroutine.
type Client struct {
	conn     *websocket.Conn
	send     chan []byte
	hub      *Hub
	debateID string
	log      *logrus.Logger

	// Rate limiting
	messageCount int
	rateLimitMu  sync.Mutex
	lastReset    time.Time

	// Lifecycle
	ctx     context.Context
	cancel  context.CancelFunc
	closed  bool
	closeMu sync.Mutex
}

func NewClient(conn *websocket.Conn, hub *Hub, debateID string, logger *logrus.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		conn:      conn,
		send:      make(chan []byte, config.ClientSendBufferSize),
		hub:       hub,
		debateID:  debateID,
		log:       logger,
		lastReset: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// DebateID returns the debate this connection is attached to.
func (c *Client) DebateID() string {
	return c.debateID
}

// Start begins the client's read and write pumps.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// writePump handles outgoing messages to the WebSocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				_ = c.conn.Close(websocket.StatusNormalClosure, "")
				return
			}

			writeCtx, cancel := context.WithTimeout(c.ctx, config.WriteTimeout)
			err := c.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()

			if err != nil {
				c.log.WithFields(logrus.Fields{"debate": c.debateID, "err": err}).Warn("write error")
				c.hub.metrics.IncrementBroadcastErrors()
				return
			}
			c.hub.metrics.IncrementMessagesSent()

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(c.ctx, config.WriteTimeout)
			err := c.conn.Ping(pingCtx)
			cancel()

			if err != nil {
				c.log.WithFields(logrus.Fields{"debate": c.debateID, "err": err}).Warn("ping error")
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// readPump handles incoming messages from the WebSocket connection.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c.debateID, c)
		c.Close()
	}()

	for {
		readCtx, cancel := context.WithTimeout(c.ctx, config.PongTimeout)
		_, message, err := c.conn.Read(readCtx)
		cancel()

		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				c.log.WithFields(logrus.Fields{"debate": c.debateID, "err": err}).Debug("read error")
				c.hub.metrics.IncrementConnectionErrors()
			}
			return
		}

		if !c.checkRateLimit() {
			c.log.WithField("debate", c.debateID).Warn("rate limit exceeded")
			c.hub.metrics.IncrementRateLimitViolations()

			c.hub.SendToClient(c, &models.WSMessage{
				Type: models.MsgTypeError,
				Payload: map[string]string{
					"message": "Rate limit exceeded. Please slow down.",
				},
			})
			continue
		}

		c.hub.metrics.IncrementMessagesReceived()

		c.hub.handleMessage <- &ClientMessage{
			Client:  c,
			Message: message,
		}
	}
}

// checkRateLimit verifies the client hasn't exceeded message rate limits.
func (c *Client) checkRateLimit() bool {
	c.rateLimitMu.Lock()
	defer c.rateLimitMu.Unlock()

	now := time.Now()
	if now.Sub(c.lastReset) > config.RateLimitWindow {
		c.messageCount = 0
		c.lastReset = now
	}

	c.messageCount++
	return c.messageCount <= config.MaxMessagesPerSecond
}

// Send queues a message for delivery. A full buffer means the client is too
// slow and the connection is dropped.
func (c *Client) Send(message []byte) bool {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- message:
		return true
	default:
		c.log.WithField("debate", c.debateID).Warn("send buffer full, closing slow client")
		c.hub.metrics.IncrementBroadcastErrors()
		go c.Close()
		return false
	}
}

// Close cleanly shuts down the client connection. Idempotent.
func (c *Client) Close() {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	c.cancel()
	close(c.send)
	_ = c.conn.Close(websocket.StatusNormalClosure, "")
}

// ClientMessage represents a message received from a client.
type ClientMessage struct {
	Client  *Client
	Message []byte
}
