package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	"github.com/pocketbase/pocketbase/core"
	"github.com/sirupsen/logrus"

	"github.com/Sachin-Buluswar/DebateAI-sub003/internal/models"
	"github.com/Sachin-Buluswar/DebateAI-sub003/internal/providers"
	"github.com/Sachin-Buluswar/DebateAI-sub003/internal/security"
	"github.com/Sachin-Buluswar/DebateAI-sub003/internal/services"
)

// WSHandler owns the client channel: it upgrades connections, attaches them
// to the hub, and dispatches inbound commands to the session's orchestrator.
type WSHandler struct {
	hub         *services.Hub
	registry    *services.Registry
	dm          *services.DebateManager
	bridge      *services.CrossfireBridge
	guard       *services.Guard
	transcriber providers.Transcriber
	origins     *security.OriginValidator
	log         *logrus.Logger
}

func NewWSHandler(hub *services.Hub, registry *services.Registry, dm *services.DebateManager, bridge *services.CrossfireBridge, guard *services.Guard, transcriber providers.Transcriber, origins *security.OriginValidator, logger *logrus.Logger) *WSHandler {
	h := &WSHandler{
		hub:         hub,
		registry:    registry,
		dm:          dm,
		bridge:      bridge,
		guard:       guard,
		transcriber: transcriber,
		origins:     origins,
		log:         logger,
	}
	hub.SetMessageHandler(h.Dispatch)
	return h
}

// HandleWebSocket upgrades the request and attaches the client to its
// debate.
func (h *WSHandler) HandleWebSocket(re *core.RequestEvent) error {
	debateID := re.Request.PathValue("debateId")

	if _, err := h.dm.GetDebate(debateID); err != nil {
		return re.JSON(http.StatusNotFound, map[string]string{"error": "Debate not found"})
	}

	conn, err := websocket.Accept(re.Response, re.Request, h.origins.GetAcceptOptions())
	if err != nil {
		return err
	}

	client := services.NewClient(conn, h.hub, debateID, h.log)
	h.hub.Register(debateID, client)
	client.Start()

	// Send the current state so a reconnecting client catches up.
	if orch, err := h.registry.Obtain(debateID); err == nil {
		h.hub.SendToClient(client, &models.WSMessage{
			Type:     models.MsgTypeStateUpdate,
			DebateID: debateID,
			Mode:     models.ModeSpeech,
			Payload:  orch.Snapshot(),
		})
	}

	return nil
}

// Dispatch routes one inbound client command.
func (h *WSHandler) Dispatch(client *services.Client, data []byte) {
	var msg models.WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		h.log.WithField("err", err).Debug("unparseable client message")
		return
	}

	if !security.IsValidMessageType(msg.Type) {
		h.sendError(client, "Unknown command")
		return
	}
	if err := security.ValidateMessagePayload(msg.Type, msg.Payload); err != nil {
		h.sendError(client, err.Error())
		return
	}

	debateID := client.DebateID()
	orch, err := h.registry.Obtain(debateID)
	if err != nil {
		h.sendError(client, "Debate session unavailable")
		return
	}

	switch msg.Type {
	case models.MsgTypeStart:
		orch.Start()
		if err := h.dm.SetStatus(debateID, "live"); err != nil {
			h.log.WithFields(logrus.Fields{"debate": debateID, "err": err}).Warn("failed to mark debate live")
		}

	case models.MsgTypePause:
		orch.Pause()

	case models.MsgTypeResume:
		orch.Resume()

	case models.MsgTypeSkip:
		orch.Skip()

	case models.MsgTypeSave:
		h.save(client, orch)

	case models.MsgTypeUserSpeech:
		h.userSpeech(client, orch, msg.Payload)
	}
}

func (h *WSHandler) save(client *services.Client, orch *services.DebateOrchestrator) {
	blob, err := orch.Serialize()
	if err != nil {
		h.sendError(client, "Failed to serialize session")
		return
	}
	if err := h.dm.SaveSnapshot(orch.DebateID(), blob); err != nil {
		h.log.WithFields(logrus.Fields{"debate": orch.DebateID(), "err": err}).Warn("failed to save snapshot")
		h.sendError(client, "Failed to save session")
		return
	}
	h.hub.SendToClient(client, &models.WSMessage{
		Type:     models.MsgTypeSaved,
		DebateID: orch.DebateID(),
	})
}

// userSpeech accepts either typed text or an encoded audio chunk. Audio is
// forwarded to a live crossfire exchange when one exists, otherwise batch
// transcribed (guarded, with a manual-input fallback).
func (h *WSHandler) userSpeech(client *services.Client, orch *services.DebateOrchestrator, payload interface{}) {
	payloadMap, ok := payload.(map[string]interface{})
	if !ok {
		return
	}
	debateID := orch.DebateID()

	if text, ok := payloadMap["text"].(string); ok && text != "" {
		orch.AddUserTranscript("User", text)
		return
	}

	encoded, ok := payloadMap["audio"].(string)
	if !ok || encoded == "" {
		return
	}
	audio, err := providers.DecodeAudio(encoded)
	if err != nil {
		h.sendError(client, "Invalid audio encoding")
		return
	}

	if h.bridge.Active(debateID) {
		h.bridge.SendUserAudio(context.Background(), debateID, audio)
		return
	}

	if h.transcriber == nil {
		return
	}
	go func() {
		result, err := h.guard.RunWithRetry(context.Background(), debateID, services.OpSTT,
			func(sessionID string, ev services.GuardEvent) {
				h.hub.BroadcastToDebate(sessionID, &models.WSMessage{
					Type:     models.MsgTypeResilience,
					DebateID: sessionID,
					Payload:  ev,
				})
			},
			func(ctx context.Context) (any, error) {
				return h.transcriber.Transcribe(ctx, audio)
			})
		if err != nil || result == nil {
			return
		}
		if text, ok := result.(string); ok && text != "" {
			orch.AddUserTranscript("User", text)
		}
	}()
}

func (h *WSHandler) sendError(client *services.Client, message string) {
	h.hub.SendToClient(client, &models.WSMessage{
		Type:    models.MsgTypeError,
		Payload: map[string]string{"message": message},
	})
}
