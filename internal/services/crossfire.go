package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Sachin-Buluswar/DebateAI-sub003/internal/models"
	"github.com/Sachin-Buluswar/DebateAI-sub003/internal/providers"
)

// CrossfireBridge bridges the turn-based orchestrator to one live
// multi-speaker realtime exchange per crossfire phase. The provider exposes
// a single logical persona per connection, so one connection represents all
// simulated participants combined and inbound text is attributed back to a
// specific debater.
type CrossfireBridge struct {
	mu       sync.Mutex
	sessions map[string]*crossfireSession
	dialer   providers.RealtimeDialer
	guard    *Guard
	log      *logrus.Logger
}

type crossfireSession struct {
	id           string
	connectionID string
	conn         providers.RealtimeConn
	simulated    []models.Participant
	onAudio      func([]byte)
	onTranscript func(speaker, text string)
	active       bool
	cancel       context.CancelFunc
}

func NewCrossfireBridge(dialer providers.RealtimeDialer, guard *Guard, logger *logrus.Logger) *CrossfireBridge {
	return &CrossfireBridge{
		sessions: make(map[string]*crossfireSession),
		dialer:   dialer,
		guard:    guard,
		log:      logger,
	}
}

// Open establishes the live session for a debate. Calling it again while a
// session is active logs a warning and returns with no side effects. A
// provider failure after retries degrades (the crossfire fallback fires and
// Open returns nil); the phase simply runs without the live exchange.
func (b *CrossfireBridge) Open(ctx context.Context, sessionID, topic string, participants []models.Participant, onAudio func([]byte), onTranscript func(speaker, text string), notify GuardNotify) error {
	b.mu.Lock()
	if existing, ok := b.sessions[sessionID]; ok && existing.active {
		b.mu.Unlock()
		b.log.WithField("session", sessionID).Warn("crossfire session already active, ignoring open")
		return nil
	}
	b.mu.Unlock()

	result, err := b.guard.RunWithRetry(ctx, sessionID, OpCrossfire, notify, func(ctx context.Context) (any, error) {
		url, err := b.dialer.SignedURL(ctx)
		if err != nil {
			return nil, err
		}
		conn, err := b.dialer.Dial(ctx, url)
		if err != nil {
			return nil, err
		}
		return conn, nil
	})
	if err != nil || result == nil {
		// Degraded: the guard already dispatched the turn-based fallback.
		return nil
	}
	conn, ok := result.(providers.RealtimeConn)
	if !ok {
		return fmt.Errorf("unexpected realtime connection type %T", result)
	}

	simulated := simulatedOnly(participants)
	sessCtx, cancel := context.WithCancel(context.Background())
	sess := &crossfireSession{
		id:           sessionID,
		connectionID: uuid.New().String(),
		conn:         conn,
		simulated:    simulated,
		onAudio:      onAudio,
		onTranscript: onTranscript,
		active:       true,
		cancel:       cancel,
	}

	b.mu.Lock()
	b.sessions[sessionID] = sess
	b.mu.Unlock()

	init := providers.SessionInit{
		SystemPrompt: crossfireSystemPrompt(topic, simulated),
		DynamicVars: map[string]string{
			"topic":        topic,
			"participants": participantNames(simulated),
			"phase":        "crossfire",
		},
	}
	if err := conn.SendInit(sessCtx, init); err != nil {
		b.log.WithFields(logrus.Fields{"session": sessionID, "err": err}).Error("crossfire init failed")
		b.Close(sessionID)
		return nil
	}

	go b.readLoop(sessCtx, sess)

	b.log.WithFields(logrus.Fields{
		"session":    sessionID,
		"connection": sess.connectionID,
	}).Info("crossfire session opened")
	return nil
}

// readLoop routes provider events strictly to the owning session object.
func (b *CrossfireBridge) readLoop(ctx context.Context, sess *crossfireSession) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sess.conn.Events():
			if !ok {
				b.log.WithField("session", sess.id).Info("crossfire connection closed by provider")
				b.Close(sess.id)
				return
			}
			b.handleEvent(ctx, sess, ev)
		}
	}
}

func (b *CrossfireBridge) handleEvent(ctx context.Context, sess *crossfireSession, ev providers.InboundEvent) {
	switch ev.Type {
	case providers.EventPing:
		// The provider drops the connection if the ping is not echoed in
		// time, so answer before anything else.
		if err := sess.conn.Pong(ctx, ev.EventID); err != nil {
			b.log.WithFields(logrus.Fields{"session": sess.id, "err": err}).Warn("pong failed")
		}
	case providers.EventUserTranscript:
		sess.onTranscript("User", ev.Text)
	case providers.EventAgentResponse:
		speaker, text := attributeSpeaker(ev.Text, sess.simulated)
		sess.onTranscript(speaker, text)
	case providers.EventAudio:
		sess.onAudio(ev.Audio)
	case providers.EventInterruption:
		b.log.WithField("session", sess.id).Debug("crossfire interruption")
	}
}

// SendUserAudio forwards one chunk of user audio to the live session. A
// missing or closed session is a silent no-op apart from a log line.
func (b *CrossfireBridge) SendUserAudio(ctx context.Context, sessionID string, pcm []byte) {
	sess := b.lookup(sessionID)
	if sess == nil {
		b.log.WithField("session", sessionID).Debug("dropping user audio, no active crossfire session")
		return
	}
	if err := sess.conn.SendAudio(ctx, pcm); err != nil {
		b.log.WithFields(logrus.Fields{"session": sessionID, "err": err}).Warn("failed to forward user audio")
	}
}

// SendContextualUpdate injects non-interrupting context, such as a
// time-remaining notice, into the live exchange.
func (b *CrossfireBridge) SendContextualUpdate(ctx context.Context, sessionID, text string) {
	sess := b.lookup(sessionID)
	if sess == nil {
		return
	}
	if err := sess.conn.SendContext(ctx, text); err != nil {
		b.log.WithFields(logrus.Fields{"session": sessionID, "err": err}).Warn("failed to send contextual update")
	}
}

// Close tears down the live session and deletes its state. Safe on an
// unknown or already-closed id.
func (b *CrossfireBridge) Close(sessionID string) {
	b.mu.Lock()
	sess, ok := b.sessions[sessionID]
	if ok {
		sess.active = false
		delete(b.sessions, sessionID)
	}
	b.mu.Unlock()

	if !ok {
		return
	}
	sess.cancel()
	if err := sess.conn.Close(); err != nil {
		b.log.WithFields(logrus.Fields{"session": sessionID, "err": err}).Debug("crossfire close")
	}
	b.log.WithField("session", sessionID).Info("crossfire session closed")
}

// Active reports whether a live session exists for the debate.
func (b *CrossfireBridge) Active(sessionID string) bool {
	return b.lookup(sessionID) != nil
}

func (b *CrossfireBridge) lookup(sessionID string) *crossfireSession {
	b.mu.Lock()
	defer b.mu.Unlock()
	sess, ok := b.sessions[sessionID]
	if !ok || !sess.active {
		return nil
	}
	return sess
}

// attributeSpeaker resolves which simulated debater a response belongs to by
// matching a leading "Name:" token, falling back to the first simulated
// participant.
func attributeSpeaker(text string, simulated []models.Participant) (string, string) {
	for _, p := range simulated {
		prefix := p.Name + ":"
		if strings.HasPrefix(text, prefix) {
			return p.Name, strings.TrimSpace(strings.TrimPrefix(text, prefix))
		}
	}
	if len(simulated) > 0 {
		return simulated[0].Name, text
	}
	return "AI", text
}

func simulatedOnly(participants []models.Participant) []models.Participant {
	out := make([]models.Participant, 0, len(participants))
	for _, p := range participants {
		if p.IsAI {
			out = append(out, p)
		}
	}
	return out
}

func participantNames(participants []models.Participant) string {
	names := make([]string, 0, len(participants))
	for _, p := range participants {
		names = append(names, p.Name)
	}
	return strings.Join(names, ", ")
}

func crossfireSystemPrompt(topic string, simulated []models.Participant) string {
	var b strings.Builder
	b.WriteString("You are voicing every simulated debater in a Public Forum crossfire exchange. ")
	fmt.Fprintf(&b, "The resolution is %q.\n\nDebaters you play:\n", topic)
	for _, p := range simulated {
		fmt.Fprintf(&b, "- %s (%s side, speaker %d)\n", p.Name, p.Team, p.Role)
	}
	b.WriteString("\nRules: keep exchanges rapid and conversational; answer questions directly; ")
	b.WriteString("prefix every reply with the speaking debater's name followed by a colon, for example \"Jordan: ...\"; ")
	b.WriteString("never speak for the human debater; stay strictly on the resolution.")
	return b.String()
}
