package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sachin-Buluswar/DebateAI-sub003/internal/config"
	"github.com/Sachin-Buluswar/DebateAI-sub003/internal/models"
	"github.com/Sachin-Buluswar/DebateAI-sub003/internal/providers"
)

// NotifyFunc delivers a state-change notification to the client channel.
// Implementations must not call back into the orchestrator.
type NotifyFunc func(msg *models.WSMessage)

// OrchestratorDeps are the collaborators a debate session needs. Notify and
// Logger are required; the rest may be nil, in which case the matching
// feature is skipped.
type OrchestratorDeps struct {
	Utterances   *UtteranceGenerator
	Analyzer     *SessionAnalyzer
	Crossfire    *CrossfireBridge
	Guard        *Guard
	Synth        providers.Synthesizer
	Notify       NotifyFunc
	OnTranscript func(debateID string, entry models.TranscriptEntry)
	OnEnded      func(debateID string, report models.ScoreReport)
	Logger       *logrus.Logger
}

// DebateOrchestrator is the per-session state machine. It owns the session
// state, the phase timer, pause/resume and phase advancement. Exactly one
// phase is live at a time; advancement happens through timer expiry or an
// explicit skip, never both.
type DebateOrchestrator struct {
	mu sync.Mutex

	debateID     string
	plan         models.PhasePlan
	planIdx      int
	gen          int // phase generation; stale timer callbacks are dropped
	state        models.SessionState
	participants []models.Participant
	difficulty   models.Difficulty
	transcript   []models.TranscriptEntry

	timer           *phaseTimer
	storedRemaining time.Duration
	started         bool
	tickCount       int

	deps OrchestratorDeps
}

// Option tweaks orchestrator construction.
type Option func(*DebateOrchestrator)

// WithPhasePlan overrides the standard phase sequence. Used by short
// formats and tests.
func WithPhasePlan(plan models.PhasePlan) Option {
	return func(o *DebateOrchestrator) {
		o.plan = plan
	}
}

func NewOrchestrator(debateID, topic string, participants []models.Participant, difficulty models.Difficulty, deps OrchestratorDeps, opts ...Option) *DebateOrchestrator {
	o := &DebateOrchestrator{
		debateID:     debateID,
		plan:         models.StandardPlan(),
		participants: participants,
		difficulty:   difficulty,
		timer:        newPhaseTimer(),
		deps:         deps,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.state = models.SessionState{
		Topic:            topic,
		Phase:            o.plan[0].Phase,
		CurrentSpeakerID: ResolveSpeaker(o.plan[0].Spec, participants),
		RemainingSeconds: int(o.plan[0].Spec.Duration / time.Second),
	}
	return o
}

func (o *DebateOrchestrator) DebateID() string { return o.debateID }

// Participants returns a copy of the immutable roster.
func (o *DebateOrchestrator) Participants() []models.Participant {
	out := make([]models.Participant, len(o.participants))
	copy(out, o.participants)
	return out
}

// Start begins executing the first phase. Idempotent: a second call is a
// no-op.
func (o *DebateOrchestrator) Start() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.started || o.state.Ended {
		return
	}
	o.started = true
	o.runPhaseLocked(0)
}

// End cancels all timers and forces the session into the terminal state.
// Safe to call repeatedly.
func (o *DebateOrchestrator) End() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.endLocked()
}

// Pause freezes the live phase, preserving remaining time exactly. No-op if
// already paused, not started, or ended.
func (o *DebateOrchestrator) Pause() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.started || o.state.Paused || o.state.Ended {
		return
	}
	o.storedRemaining = o.timer.Remaining()
	o.timer.Cancel()
	o.gen++
	o.state.Paused = true
	// The last tick may be up to a second old; the pause snapshot carries
	// the exact frozen value.
	o.state.RemainingSeconds = int(o.storedRemaining.Round(time.Second) / time.Second)
	o.notifyStateLocked(models.ModePause)
}

// Shutdown stops the timer and any live crossfire without running the
// end-of-session pipeline: no notifications, no analysis, no OnEnded. Used
// when a session object is being replaced rather than finishing.
func (o *DebateOrchestrator) Shutdown() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state.Ended {
		return
	}
	o.timer.Cancel()
	o.gen++
	if o.deps.Crossfire != nil {
		o.deps.Crossfire.Close(o.debateID)
	}
	o.state.Phase = models.PhaseEnded
	o.state.Ended = true
	o.state.Paused = false
	o.state.RemainingSeconds = 0
}

// Resume re-arms the timer for precisely the stored remaining time.
func (o *DebateOrchestrator) Resume() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.state.Paused || o.state.Ended {
		return
	}
	o.state.Paused = false
	o.armTimerLocked(o.storedRemaining)
	o.notifyStateLocked(models.ModeResume)
}

// Skip advances to the next phase immediately, performing the same
// transition as natural expiry. No-op while paused or ended.
func (o *DebateOrchestrator) Skip() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.started || o.state.Paused || o.state.Ended {
		return
	}
	o.advanceLocked()
}

// Snapshot returns a copy of the session state.
func (o *DebateOrchestrator) Snapshot() models.SessionState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// IsStarted reports whether Start has executed.
func (o *DebateOrchestrator) IsStarted() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.started
}

// AddUserTranscript records a spoken turn from the human debater and
// notifies the client channel.
func (o *DebateOrchestrator) AddUserTranscript(speaker, text string) {
	o.mu.Lock()
	if o.state.Ended {
		o.mu.Unlock()
		return
	}
	entry := models.TranscriptEntry{Speaker: speaker, Phase: o.state.Phase, Text: text, At: time.Now()}
	o.transcript = append(o.transcript, entry)
	o.mu.Unlock()

	if o.deps.OnTranscript != nil {
		o.deps.OnTranscript(o.debateID, entry)
	}
	o.notify(&models.WSMessage{
		Type:     models.MsgTypeTranscript,
		DebateID: o.debateID,
		Payload:  entry,
	})
}

type savedSession struct {
	State             models.SessionState      `json:"state"`
	Participants      []models.Participant     `json:"participants"`
	Difficulty        models.Difficulty        `json:"difficulty"`
	StoredRemainingMS int64                    `json:"storedRemainingMs"`
	Paused            bool                     `json:"isPaused"`
	Started           bool                     `json:"isStarted"`
	Transcript        []models.TranscriptEntry `json:"transcript"`
}

// Serialize captures the session for the persistence collaborator. The core
// is agnostic to where the blob is stored.
func (o *DebateOrchestrator) Serialize() ([]byte, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	remaining := o.storedRemaining
	switch {
	case !o.started:
		// The timer was never armed; the first phase is still whole.
		remaining = o.plan[o.planIdx].Spec.Duration
	case !o.state.Paused && !o.state.Ended:
		remaining = o.timer.Remaining()
	}
	return json.Marshal(savedSession{
		State:             o.state,
		Participants:      o.participants,
		Difficulty:        o.difficulty,
		StoredRemainingMS: remaining.Milliseconds(),
		Paused:            o.state.Paused,
		Started:           o.started,
		Transcript:        o.transcript,
	})
}

// RestoreOrchestrator rebuilds a session from a serialized blob. Unless the
// saved session was paused, ended, or never started, phase execution resumes
// immediately with the stored remaining time.
func RestoreOrchestrator(debateID string, blob []byte, deps OrchestratorDeps, opts ...Option) (*DebateOrchestrator, error) {
	var saved savedSession
	if err := json.Unmarshal(blob, &saved); err != nil {
		return nil, fmt.Errorf("failed to decode saved session: %w", err)
	}

	o := NewOrchestrator(debateID, saved.State.Topic, saved.Participants, saved.Difficulty, deps, opts...)

	o.mu.Lock()
	defer o.mu.Unlock()

	o.state = saved.State
	o.transcript = saved.Transcript
	o.storedRemaining = time.Duration(saved.StoredRemainingMS) * time.Millisecond
	o.started = saved.Started

	if saved.State.Ended {
		o.started = true
		return o, nil
	}

	idx := o.plan.IndexOf(saved.State.Phase)
	if idx < 0 {
		return nil, fmt.Errorf("saved phase %q not in plan", saved.State.Phase)
	}
	o.planIdx = idx

	if !saved.Started {
		// Created but never started: wait for an explicit Start.
		return o, nil
	}

	if saved.Paused {
		o.state.Paused = true
		return o, nil
	}

	// Auto-resume. The timer is re-armed for the stored remaining time and
	// a crossfire phase reopens its live session.
	o.armTimerLocked(o.storedRemaining)
	mode := models.ModeSpeech
	if o.plan[idx].Spec.Crossfire {
		mode = models.ModeCrossfire
		go o.openCrossfire()
	}
	o.notifyStateLocked(mode)
	return o, nil
}

// runPhaseLocked enters the phase at plan index idx. Caller holds mu.
func (o *DebateOrchestrator) runPhaseLocked(idx int) {
	pp := o.plan[idx]
	o.planIdx = idx
	o.tickCount = 0
	o.state.Phase = pp.Phase
	o.state.PhaseStartedAt = time.Now()
	o.state.RemainingSeconds = int(pp.Spec.Duration / time.Second)
	o.state.CurrentSpeakerID = ResolveSpeaker(pp.Spec, o.participants)

	mode := models.ModeSpeech
	if pp.Spec.Crossfire {
		mode = models.ModeCrossfire
		go o.openCrossfire()
	} else if sp := o.participantByID(o.state.CurrentSpeakerID); sp != nil && sp.IsAI {
		go o.speakSimulated(*sp, pp)
	}

	o.notifyStateLocked(mode)
	o.armTimerLocked(pp.Spec.Duration)

	if o.deps.Logger != nil {
		o.deps.Logger.WithFields(logrus.Fields{
			"debate":  o.debateID,
			"phase":   pp.Phase,
			"speaker": o.state.CurrentSpeakerID,
			"seconds": int(pp.Spec.Duration / time.Second),
		}).Info("phase started")
	}
}

// armTimerLocked starts the phase timer for d under a fresh generation so
// callbacks from any earlier arming are ignored.
func (o *DebateOrchestrator) armTimerLocked(d time.Duration) {
	o.gen++
	gen := o.gen
	o.timer.Start(d,
		func(remaining time.Duration) { o.onTick(gen, remaining) },
		func() { o.onExpire(gen) },
	)
}

func (o *DebateOrchestrator) onTick(gen int, remaining time.Duration) {
	o.mu.Lock()
	if gen != o.gen || o.state.Paused || o.state.Ended {
		o.mu.Unlock()
		return
	}
	o.state.RemainingSeconds = int(remaining.Round(time.Second) / time.Second)
	o.tickCount++
	emit := o.tickCount%config.TimerNotifyEvery == 0
	crossfireNotice := emit && o.plan[o.planIdx].Spec.Crossfire
	seconds := o.state.RemainingSeconds
	if emit {
		o.notifyStateLocked(models.ModeTimer)
	}
	o.mu.Unlock()

	if crossfireNotice && o.deps.Crossfire != nil {
		o.deps.Crossfire.SendContextualUpdate(context.Background(), o.debateID,
			fmt.Sprintf("%d seconds remain in this crossfire.", seconds))
	}
}

func (o *DebateOrchestrator) onExpire(gen int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.gen || o.state.Paused || o.state.Ended {
		return
	}
	o.advanceLocked()
}

// advanceLocked performs the single transition path shared by timer expiry
// and skip: cancel the pending timer, tear down a live crossfire session,
// then enter the next phase or the terminal state.
func (o *DebateOrchestrator) advanceLocked() {
	o.timer.Cancel()
	o.gen++

	if o.plan[o.planIdx].Spec.Crossfire && o.deps.Crossfire != nil {
		o.deps.Crossfire.Close(o.debateID)
	}

	next := o.planIdx + 1
	if next >= len(o.plan) {
		o.endLocked()
		return
	}
	o.runPhaseLocked(next)
}

func (o *DebateOrchestrator) endLocked() {
	if o.state.Ended {
		return
	}
	o.timer.Cancel()
	o.gen++
	if o.deps.Crossfire != nil {
		o.deps.Crossfire.Close(o.debateID)
	}

	o.state.Phase = models.PhaseEnded
	o.state.Ended = true
	o.state.Paused = false
	o.state.RemainingSeconds = 0
	o.started = true

	o.notifyLocked(&models.WSMessage{
		Type:     models.MsgTypeSessionEnded,
		DebateID: o.debateID,
		Payload:  o.state,
	})

	if o.deps.Logger != nil {
		o.deps.Logger.WithField("debate", o.debateID).Info("session ended")
	}

	transcript := make([]models.TranscriptEntry, len(o.transcript))
	copy(transcript, o.transcript)
	topic := o.state.Topic
	userName := o.humanName()
	go o.finishAnalysis(topic, transcript, userName)
}

func (o *DebateOrchestrator) finishAnalysis(topic string, transcript []models.TranscriptEntry, userName string) {
	if o.deps.Analyzer == nil {
		if o.deps.OnEnded != nil {
			o.deps.OnEnded(o.debateID, models.ScoreReport{})
		}
		return
	}

	report := o.deps.Analyzer.Analyze(context.Background(), o.debateID, topic, transcript, userName, o.guardNotify)
	o.notify(&models.WSMessage{
		Type:     models.MsgTypeReport,
		DebateID: o.debateID,
		Payload:  report,
	})
	if o.deps.OnEnded != nil {
		o.deps.OnEnded(o.debateID, report)
	}
}

// speakSimulated generates and voices one turn for a simulated speaker.
func (o *DebateOrchestrator) speakSimulated(speaker models.Participant, pp models.PlannedPhase) {
	o.mu.Lock()
	if o.state.Ended || o.state.Phase != pp.Phase {
		o.mu.Unlock()
		return
	}
	req := UtteranceRequest{
		Topic:        o.state.Topic,
		Speaker:      speaker,
		Phase:        pp.Phase,
		Spec:         pp.Spec,
		Transcript:   append([]models.TranscriptEntry(nil), o.transcript...),
		OpponentLast: o.lastUtteranceByTeamLocked(opposing(speaker.Team)),
		Difficulty:   o.difficulty,
		TimeLimit:    pp.Spec.Duration,
	}
	o.mu.Unlock()

	if o.deps.Utterances == nil {
		return
	}

	text := o.deps.Utterances.Generate(context.Background(), o.debateID, req, o.guardNotify)

	o.mu.Lock()
	if o.state.Ended || o.state.Phase != pp.Phase {
		// The phase moved on while we were generating; drop the turn.
		o.mu.Unlock()
		return
	}
	entry := models.TranscriptEntry{Speaker: speaker.Name, Phase: pp.Phase, Text: text, At: time.Now()}
	o.transcript = append(o.transcript, entry)
	o.mu.Unlock()

	if o.deps.OnTranscript != nil {
		o.deps.OnTranscript(o.debateID, entry)
	}
	o.notify(&models.WSMessage{
		Type:     models.MsgTypeUtterance,
		DebateID: o.debateID,
		Mode:     models.ModeSpeech,
		Payload: map[string]any{
			"speaker": speaker.Name,
			"phase":   pp.Phase,
			"text":    text,
		},
	})

	o.voice(text)
}

// voice synthesizes an utterance. On degradation the TTS fallback has
// already told the client to display text only.
func (o *DebateOrchestrator) voice(text string) {
	if o.deps.Synth == nil || o.deps.Guard == nil {
		return
	}
	result, err := o.deps.Guard.RunWithRetry(context.Background(), o.debateID, OpTTS, o.guardNotify, func(ctx context.Context) (any, error) {
		return o.deps.Synth.Synthesize(ctx, text)
	})
	if err != nil || result == nil {
		return
	}
	audio, ok := result.([]byte)
	if !ok || len(audio) == 0 {
		return
	}
	o.notify(&models.WSMessage{
		Type:     models.MsgTypeAudio,
		DebateID: o.debateID,
		Mode:     models.ModeSpeech,
		Payload:  map[string]any{"audio": providers.EncodeAudio(audio), "format": "mp3"},
	})
}

func (o *DebateOrchestrator) openCrossfire() {
	if o.deps.Crossfire == nil {
		return
	}

	o.mu.Lock()
	topic := o.state.Topic
	roster := append([]models.Participant(nil), o.participants...)
	o.mu.Unlock()

	onAudio := func(pcm []byte) {
		o.notify(&models.WSMessage{
			Type:     models.MsgTypeAudio,
			DebateID: o.debateID,
			Mode:     models.ModeCrossfire,
			Payload:  map[string]any{"audio": providers.EncodeAudio(pcm), "format": "pcm"},
		})
	}
	onTranscript := func(speaker, text string) {
		o.AddUserTranscript(speaker, text)
	}

	if err := o.deps.Crossfire.Open(context.Background(), o.debateID, topic, roster, onAudio, onTranscript, o.guardNotify); err != nil && o.deps.Logger != nil {
		o.deps.Logger.WithFields(logrus.Fields{"debate": o.debateID, "err": err}).Error("crossfire open failed")
	}
}

// guardNotify adapts resilience events onto the client channel.
func (o *DebateOrchestrator) guardNotify(sessionID string, ev GuardEvent) {
	o.notify(&models.WSMessage{
		Type:     models.MsgTypeResilience,
		DebateID: sessionID,
		Payload:  ev,
	})
}

func (o *DebateOrchestrator) notifyStateLocked(mode string) {
	o.notifyLocked(&models.WSMessage{
		Type:     models.MsgTypeStateUpdate,
		DebateID: o.debateID,
		Mode:     mode,
		Payload:  o.state,
	})
}

func (o *DebateOrchestrator) notifyLocked(msg *models.WSMessage) {
	if o.deps.Notify != nil {
		o.deps.Notify(msg)
	}
}

func (o *DebateOrchestrator) notify(msg *models.WSMessage) {
	if o.deps.Notify != nil {
		o.deps.Notify(msg)
	}
}

func (o *DebateOrchestrator) participantByID(id string) *models.Participant {
	for i := range o.participants {
		if o.participants[i].ID == id {
			return &o.participants[i]
		}
	}
	return nil
}

func (o *DebateOrchestrator) humanName() string {
	for _, p := range o.participants {
		if !p.IsAI {
			return p.Name
		}
	}
	return "User"
}

// lastUtteranceByTeamLocked finds the most recent transcript line spoken by
// a member of the given team. Caller holds mu.
func (o *DebateOrchestrator) lastUtteranceByTeamLocked(team models.Team) string {
	names := make(map[string]bool)
	for _, p := range o.participants {
		if p.Team == team {
			names[p.Name] = true
		}
	}
	for i := len(o.transcript) - 1; i >= 0; i-- {
		if names[o.transcript[i].Speaker] {
			return o.transcript[i].Text
		}
	}
	return ""
}

func opposing(team models.Team) models.Team {
	if team == models.TeamPro {
		return models.TeamCon
	}
	return models.TeamPro
}
