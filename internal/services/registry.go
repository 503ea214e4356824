package services

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Sachin-Buluswar/DebateAI-sub003/internal/models"
	"github.com/Sachin-Buluswar/DebateAI-sub003/internal/providers"
)

// Registry owns the live orchestrators, one per debate id, and wires their
// dependencies together. Sessions are created lazily when a client first
// attaches and removed when the session ends.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*DebateOrchestrator

	hub        *Hub
	dm         *DebateManager
	guard      *Guard
	utterances *UtteranceGenerator
	analyzer   *SessionAnalyzer
	crossfire  *CrossfireBridge
	synth      providers.Synthesizer
	metrics    *Metrics
	log        *logrus.Logger
}

func NewRegistry(hub *Hub, dm *DebateManager, guard *Guard, utterances *UtteranceGenerator, analyzer *SessionAnalyzer, crossfire *CrossfireBridge, synth providers.Synthesizer, metrics *Metrics, logger *logrus.Logger) *Registry {
	r := &Registry{
		sessions:   make(map[string]*DebateOrchestrator),
		hub:        hub,
		dm:         dm,
		guard:      guard,
		utterances: utterances,
		analyzer:   analyzer,
		crossfire:  crossfire,
		synth:      synth,
		metrics:    metrics,
		log:        logger,
	}
	r.registerFallbacks()
	return r
}

// registerFallbacks installs the per-operation degradation handlers: each
// tells the affected session's clients how the feature degrades instead of
// surfacing an error.
func (r *Registry) registerFallbacks() {
	notifyFallback := func(debateID string, op OperationType, action, message string) {
		r.metrics.IncrementDegradedOperations()
		r.hub.BroadcastToDebate(debateID, &models.WSMessage{
			Type:     models.MsgTypeFallback,
			DebateID: debateID,
			Payload: map[string]string{
				"operation": string(op),
				"action":    action,
				"message":   message,
			},
		})
	}

	r.guard.RegisterFallback(OpTTS, func(debateID string) {
		notifyFallback(debateID, OpTTS, "text_only", "Voice playback is unavailable; utterances will be shown as text.")
	})
	r.guard.RegisterFallback(OpSTT, func(debateID string) {
		notifyFallback(debateID, OpSTT, "manual_input", "Speech recognition is unavailable; please type your speech instead.")
	})
	r.guard.RegisterFallback(OpStateSync, func(debateID string) {
		notifyFallback(debateID, OpStateSync, "warning", "A sync hiccup occurred; the session continues.")
	})
	r.guard.RegisterFallback(OpCrossfire, func(debateID string) {
		notifyFallback(debateID, OpCrossfire, "turn_based", "Live crossfire is unavailable; continuing in turn-based mode.")
	})
}

// Obtain returns the live orchestrator for a debate, creating it from the
// stored record on first use.
func (r *Registry) Obtain(debateID string) (*DebateOrchestrator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if orch, ok := r.sessions[debateID]; ok {
		return orch, nil
	}

	record, err := r.dm.GetDebate(debateID)
	if err != nil {
		return nil, err
	}
	participants, err := r.dm.GetParticipants(debateID)
	if err != nil {
		return nil, err
	}
	if len(participants) == 0 {
		return nil, fmt.Errorf("debate %s has no roster", debateID)
	}

	orch := NewOrchestrator(
		debateID,
		record.GetString("topic"),
		participants,
		models.Difficulty(record.GetString("difficulty")),
		r.depsFor(debateID),
	)
	r.sessions[debateID] = orch
	return orch, nil
}

// Restore rebuilds a session from its saved snapshot, replacing any live
// orchestrator for that debate.
func (r *Registry) Restore(debateID string) (*DebateOrchestrator, error) {
	blob, err := r.dm.LoadSnapshot(debateID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.sessions[debateID]; ok {
		// Quiet teardown: End would run the end-of-debate pipeline (report,
		// status change, Remove), which must not fire for a replaced session.
		old.Shutdown()
		delete(r.sessions, debateID)
	}

	orch, err := RestoreOrchestrator(debateID, blob, r.depsFor(debateID))
	if err != nil {
		return nil, err
	}
	r.sessions[debateID] = orch
	r.log.WithField("debate", debateID).Info("session restored from snapshot")
	return orch, nil
}

// Lookup returns the live orchestrator if one exists.
func (r *Registry) Lookup(debateID string) *DebateOrchestrator {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[debateID]
}

// Remove drops a session and clears its error metrics.
func (r *Registry) Remove(debateID string) {
	r.mu.Lock()
	delete(r.sessions, debateID)
	r.mu.Unlock()
	r.guard.ClearSession(debateID)
}

func (r *Registry) depsFor(debateID string) OrchestratorDeps {
	return OrchestratorDeps{
		Utterances: r.utterances,
		Analyzer:   r.analyzer,
		Crossfire:  r.crossfire,
		Guard:      r.guard,
		Synth:      r.synth,
		Notify: func(msg *models.WSMessage) {
			r.hub.BroadcastToDebate(debateID, msg)
		},
		OnTranscript: func(id string, entry models.TranscriptEntry) {
			if err := r.dm.AppendTranscript(id, entry); err != nil {
				r.log.WithFields(logrus.Fields{"debate": id, "err": err}).Warn("failed to persist transcript entry")
			}
		},
		OnEnded: func(id string, report models.ScoreReport) {
			if err := r.dm.SaveReport(id, report); err != nil {
				r.log.WithFields(logrus.Fields{"debate": id, "err": err}).Warn("failed to persist report")
			}
			if err := r.dm.SetStatus(id, "ended"); err != nil {
				r.log.WithFields(logrus.Fields{"debate": id, "err": err}).Warn("failed to mark debate ended")
			}
			r.Remove(id)
		},
		Logger: r.log,
	}
}
