package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
)

// Typed realtime events. The provider's wire names and payload shapes are
// mapped onto these in this package only, so the provider is swappable
// without touching the crossfire bridge.

type InboundType string

const (
	EventPing           InboundType = "ping"
	EventUserTranscript InboundType = "user_transcript"
	EventAgentResponse  InboundType = "agent_response"
	EventAudio          InboundType = "audio"
	EventInterruption   InboundType = "interruption"
)

// InboundEvent is one typed event from the live connection. Audio arrives
// already decoded.
type InboundEvent struct {
	Type    InboundType
	EventID int
	Text    string
	Audio   []byte
}

// SessionInit is the initialization payload for a new live connection.
type SessionInit struct {
	SystemPrompt string
	DynamicVars  map[string]string
}

// RealtimeConn is one live bidirectional connection to the conversational
// provider.
type RealtimeConn interface {
	SendInit(ctx context.Context, init SessionInit) error
	SendAudio(ctx context.Context, pcm []byte) error
	SendContext(ctx context.Context, text string) error
	Pong(ctx context.Context, eventID int) error
	// Events delivers typed inbound events. The channel closes when the
	// connection drops, including a missed keep-alive.
	Events() <-chan InboundEvent
	Close() error
}

// RealtimeDialer mints a short-lived signed connection credential and opens
// connections with it.
type RealtimeDialer interface {
	SignedURL(ctx context.Context) (string, error)
	Dial(ctx context.Context, url string) (RealtimeConn, error)
}

// AgentDialer is the production dialer, keyed by a configured agent id.
type AgentDialer struct {
	baseURL string
	apiKey  string
	agentID string
	http    *http.Client
	log     *logrus.Logger
}

func NewAgentDialer(baseURL, apiKey, agentID string, logger *logrus.Logger) *AgentDialer {
	return &AgentDialer{
		baseURL: baseURL,
		apiKey:  apiKey,
		agentID: agentID,
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     logger,
	}
}

// SignedURL requests a single-use websocket URL for the configured agent.
func (d *AgentDialer) SignedURL(ctx context.Context) (string, error) {
	url := fmt.Sprintf("%s/v1/convai/conversation/get-signed-url?agent_id=%s", d.baseURL, d.agentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build signed-url request: %w", err)
	}
	req.Header.Set("xi-api-key", d.apiKey)

	resp, err := d.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("signed-url request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read signed-url response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("signed-url status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var parsed struct {
		SignedURL string `json:"signed_url"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("malformed signed-url response: %w", err)
	}
	if parsed.SignedURL == "" {
		return "", fmt.Errorf("signed-url response missing url")
	}
	return parsed.SignedURL, nil
}

func (d *AgentDialer) Dial(ctx context.Context, url string) (RealtimeConn, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("realtime dial failed: %w", err)
	}
	// Audio frames from the provider can be large.
	conn.SetReadLimit(1 << 22)

	rc := &wsRealtimeConn{
		conn:   conn,
		events: make(chan InboundEvent, 64),
		log:    d.log,
	}
	go rc.readLoop()
	return rc, nil
}

// Provider wire shapes. Incidental detail; nothing outside this file
// depends on them.

type wireEvent struct {
	Type string `json:"type"`

	PingEvent *struct {
		EventID int `json:"event_id"`
		PingMs  int `json:"ping_ms"`
	} `json:"ping_event,omitempty"`

	UserTranscriptionEvent *struct {
		UserTranscript string `json:"user_transcript"`
	} `json:"user_transcription_event,omitempty"`

	AgentResponseEvent *struct {
		AgentResponse string `json:"agent_response"`
	} `json:"agent_response_event,omitempty"`

	AudioEvent *struct {
		AudioBase64 string `json:"audio_base_64"`
	} `json:"audio_event,omitempty"`
}

type wsRealtimeConn struct {
	conn   *websocket.Conn
	events chan InboundEvent
	log    *logrus.Logger
}

func (c *wsRealtimeConn) readLoop() {
	defer close(c.events)

	ctx := context.Background()
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			// Connection closed (including a dropped keep-alive); the
			// consumer sees the channel close, not an error.
			return
		}

		var raw wireEvent
		if err := json.Unmarshal(data, &raw); err != nil {
			c.log.WithField("err", err).Debug("skipping malformed realtime event")
			continue
		}

		switch raw.Type {
		case "ping":
			ev := InboundEvent{Type: EventPing}
			if raw.PingEvent != nil {
				ev.EventID = raw.PingEvent.EventID
			}
			c.events <- ev
		case "user_transcript":
			if raw.UserTranscriptionEvent != nil {
				c.events <- InboundEvent{Type: EventUserTranscript, Text: raw.UserTranscriptionEvent.UserTranscript}
			}
		case "agent_response":
			if raw.AgentResponseEvent != nil {
				c.events <- InboundEvent{Type: EventAgentResponse, Text: raw.AgentResponseEvent.AgentResponse}
			}
		case "audio":
			if raw.AudioEvent != nil {
				pcm, err := DecodeAudio(raw.AudioEvent.AudioBase64)
				if err != nil {
					c.log.WithField("err", err).Warn("dropping undecodable audio chunk")
					continue
				}
				c.events <- InboundEvent{Type: EventAudio, Audio: pcm}
			}
		case "interruption":
			c.events <- InboundEvent{Type: EventInterruption}
		default:
			// Unknown event types are ignored.
		}
	}
}

func (c *wsRealtimeConn) send(ctx context.Context, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal realtime payload: %w", err)
	}
	if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("realtime write failed: %w", err)
	}
	return nil
}

func (c *wsRealtimeConn) SendInit(ctx context.Context, init SessionInit) error {
	vars := make(map[string]string, len(init.DynamicVars))
	for k, v := range init.DynamicVars {
		vars[k] = v
	}
	return c.send(ctx, map[string]any{
		"type": "conversation_initiation_client_data",
		"conversation_config_override": map[string]any{
			"agent": map[string]any{
				"prompt": map[string]any{"prompt": init.SystemPrompt},
			},
		},
		"dynamic_variables": vars,
	})
}

func (c *wsRealtimeConn) SendAudio(ctx context.Context, pcm []byte) error {
	return c.send(ctx, map[string]any{
		"user_audio_chunk": EncodeAudio(pcm),
	})
}

func (c *wsRealtimeConn) SendContext(ctx context.Context, text string) error {
	return c.send(ctx, map[string]any{
		"type": "contextual_update",
		"text": text,
	})
}

func (c *wsRealtimeConn) Events() <-chan InboundEvent {
	return c.events
}

func (c *wsRealtimeConn) Pong(ctx context.Context, eventID int) error {
	return c.send(ctx, map[string]any{
		"type":     "pong",
		"event_id": eventID,
	})
}

func (c *wsRealtimeConn) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "")
}
