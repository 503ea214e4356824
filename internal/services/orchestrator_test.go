package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sachin-Buluswar/DebateAI-sub003/internal/models"
)

// notifyRecorder captures everything the orchestrator pushes to the client
// channel.
type notifyRecorder struct {
	mu       sync.Mutex
	messages []*models.WSMessage
}

func (r *notifyRecorder) notify(msg *models.WSMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

func (r *notifyRecorder) typesSeen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, 0, len(r.messages))
	for _, m := range r.messages {
		types = append(types, m.Type)
	}
	return types
}

func toyPlan(phaseLen time.Duration) models.PhasePlan {
	return models.PhasePlan{
		{Phase: models.PhaseProConstructive, Spec: models.PhaseSpec{Duration: phaseLen, Team: models.TeamPro, Slot: 1}},
		{Phase: models.PhaseConConstructive, Spec: models.PhaseSpec{Duration: phaseLen, Team: models.TeamCon, Slot: 1}},
	}
}

func newTestOrchestrator(t *testing.T, plan models.PhasePlan) (*DebateOrchestrator, *notifyRecorder) {
	t.Helper()
	recorder := &notifyRecorder{}
	deps := OrchestratorDeps{
		Notify: recorder.notify,
		Logger: testLogger(),
	}
	orch := NewOrchestrator("debate-1", "carbon tax", testRoster(), models.DifficultyMedium, deps, WithPhasePlan(plan))
	return orch, recorder
}

func TestOrchestratorRunsPlanToCompletion(t *testing.T) {
	orch, recorder := newTestOrchestrator(t, toyPlan(150*time.Millisecond))

	var seen []models.Phase
	var seenMu sync.Mutex
	ended := make(chan struct{})
	orch.deps.Notify = func(msg *models.WSMessage) {
		recorder.notify(msg)
		if msg.Type == models.MsgTypeStateUpdate {
			if state, ok := msg.Payload.(models.SessionState); ok {
				seenMu.Lock()
				seen = append(seen, state.Phase)
				seenMu.Unlock()
			}
		}
		if msg.Type == models.MsgTypeSessionEnded {
			close(ended)
		}
	}

	orch.Start()

	select {
	case <-ended:
	case <-time.After(3 * time.Second):
		t.Fatal("session did not reach the terminal state")
	}

	final := orch.Snapshot()
	assert.Equal(t, models.PhaseEnded, final.Phase)
	assert.True(t, final.Ended)
	assert.Zero(t, final.RemainingSeconds)

	seenMu.Lock()
	defer seenMu.Unlock()
	require.GreaterOrEqual(t, len(seen), 2)
	assert.Equal(t, models.PhaseProConstructive, seen[0])
	assert.Contains(t, seen, models.PhaseConConstructive)
}

func TestStartIsIdempotent(t *testing.T) {
	orch, _ := newTestOrchestrator(t, toyPlan(5*time.Second))
	defer orch.End()

	orch.Start()
	first := orch.Snapshot()
	orch.Start()
	second := orch.Snapshot()

	assert.Equal(t, first.Phase, second.Phase)
	assert.True(t, orch.IsStarted())
}

func TestPauseFreezesRemainingTime(t *testing.T) {
	orch, _ := newTestOrchestrator(t, toyPlan(10*time.Second))
	defer orch.End()

	orch.Start()
	orch.Pause()

	paused := orch.Snapshot()
	require.True(t, paused.Paused)

	// While paused nothing advances.
	time.Sleep(100 * time.Millisecond)
	still := orch.Snapshot()
	assert.Equal(t, paused.Phase, still.Phase)
	assert.Equal(t, paused.RemainingSeconds, still.RemainingSeconds)
}

func TestPauseThenImmediateResume(t *testing.T) {
	orch, _ := newTestOrchestrator(t, toyPlan(10*time.Second))
	defer orch.End()

	orch.Start()
	before := orch.Snapshot()

	orch.Pause()
	orch.Resume()

	after := orch.Snapshot()
	assert.False(t, after.Paused)
	assert.Equal(t, before.Phase, after.Phase)
	assert.Equal(t, before.RemainingSeconds, after.RemainingSeconds)
}

func TestPauseEdgeCases(t *testing.T) {
	orch, _ := newTestOrchestrator(t, toyPlan(10*time.Second))
	defer orch.End()

	// Pause before start is a no-op.
	orch.Pause()
	assert.False(t, orch.Snapshot().Paused)

	orch.Start()
	orch.Pause()
	// Double pause is a no-op.
	orch.Pause()
	assert.True(t, orch.Snapshot().Paused)

	// Resume when not paused is a no-op.
	orch.Resume()
	orch.Resume()
	assert.False(t, orch.Snapshot().Paused)
}

func TestSkipAdvancesPhase(t *testing.T) {
	orch, _ := newTestOrchestrator(t, toyPlan(10*time.Second))
	defer orch.End()

	orch.Start()
	require.Equal(t, models.PhaseProConstructive, orch.Snapshot().Phase)

	orch.Skip()
	after := orch.Snapshot()
	assert.Equal(t, models.PhaseConConstructive, after.Phase)
	assert.Equal(t, "p3", after.CurrentSpeakerID)
}

func TestSkipPastLastPhaseEndsSession(t *testing.T) {
	orch, _ := newTestOrchestrator(t, toyPlan(10*time.Second))

	orch.Start()
	orch.Skip()
	orch.Skip()

	final := orch.Snapshot()
	assert.True(t, final.Ended)
	assert.Equal(t, models.PhaseEnded, final.Phase)
}

func TestSkipWhilePausedIsNoOp(t *testing.T) {
	orch, _ := newTestOrchestrator(t, toyPlan(10*time.Second))
	defer orch.End()

	orch.Start()
	orch.Pause()
	before := orch.Snapshot()

	orch.Skip()
	after := orch.Snapshot()
	assert.Equal(t, before.Phase, after.Phase)
	assert.True(t, after.Paused)
}

func TestSkipAfterEndIsNoOp(t *testing.T) {
	orch, _ := newTestOrchestrator(t, toyPlan(10*time.Second))

	orch.Start()
	orch.End()
	before := orch.Snapshot()

	orch.Skip()
	after := orch.Snapshot()
	assert.Equal(t, before, after)
}

func TestEndIsIdempotent(t *testing.T) {
	orch, recorder := newTestOrchestrator(t, toyPlan(10*time.Second))

	orch.Start()
	orch.End()
	orch.End()

	endedCount := 0
	for _, typ := range recorder.typesSeen() {
		if typ == models.MsgTypeSessionEnded {
			endedCount++
		}
	}
	assert.Equal(t, 1, endedCount)
}

func TestAddUserTranscriptNotifies(t *testing.T) {
	orch, recorder := newTestOrchestrator(t, toyPlan(10*time.Second))
	defer orch.End()

	var persisted []models.TranscriptEntry
	var mu sync.Mutex
	orch.deps.OnTranscript = func(_ string, entry models.TranscriptEntry) {
		mu.Lock()
		persisted = append(persisted, entry)
		mu.Unlock()
	}

	orch.Start()
	orch.AddUserTranscript("Sam", "We affirm the resolution.")

	mu.Lock()
	require.Len(t, persisted, 1)
	assert.Equal(t, "Sam", persisted[0].Speaker)
	assert.Equal(t, models.PhaseProConstructive, persisted[0].Phase)
	mu.Unlock()

	assert.Contains(t, recorder.typesSeen(), models.MsgTypeTranscript)
}

func TestAddUserTranscriptAfterEndIsDropped(t *testing.T) {
	orch, _ := newTestOrchestrator(t, toyPlan(10*time.Second))

	called := false
	orch.deps.OnTranscript = func(string, models.TranscriptEntry) { called = true }

	orch.Start()
	orch.End()
	orch.AddUserTranscript("Sam", "too late")

	assert.False(t, called)
}

func TestSerializeRestoreRoundTrip(t *testing.T) {
	plan := toyPlan(10 * time.Second)
	orch, _ := newTestOrchestrator(t, plan)

	orch.Start()
	orch.AddUserTranscript("Sam", "Opening argument.")
	orch.Skip()
	orch.Pause()

	blob, err := orch.Serialize()
	require.NoError(t, err)
	orch.End()

	recorder := &notifyRecorder{}
	restored, err := RestoreOrchestrator("debate-1", blob, OrchestratorDeps{
		Notify: recorder.notify,
		Logger: testLogger(),
	}, WithPhasePlan(plan))
	require.NoError(t, err)

	state := restored.Snapshot()
	assert.Equal(t, models.PhaseConConstructive, state.Phase)
	assert.True(t, state.Paused, "a paused session restores paused")
	assert.False(t, state.Ended)
	assert.True(t, restored.IsStarted())

	// Resuming continues from the restored phase.
	restored.Resume()
	assert.False(t, restored.Snapshot().Paused)
	restored.End()
}

func TestRestoreRunningSessionAutoResumes(t *testing.T) {
	plan := toyPlan(10 * time.Second)
	orch, _ := newTestOrchestrator(t, plan)

	orch.Start()
	blob, err := orch.Serialize()
	require.NoError(t, err)
	orch.End()

	recorder := &notifyRecorder{}
	restored, err := RestoreOrchestrator("debate-1", blob, OrchestratorDeps{
		Notify: recorder.notify,
		Logger: testLogger(),
	}, WithPhasePlan(plan))
	require.NoError(t, err)
	defer restored.End()

	state := restored.Snapshot()
	assert.False(t, state.Paused)
	assert.False(t, state.Ended)
	assert.Equal(t, models.PhaseProConstructive, state.Phase)
	// Skip works immediately, proving the timer was re-armed.
	restored.Skip()
	assert.Equal(t, models.PhaseConConstructive, restored.Snapshot().Phase)
}

func TestRestoreNeverStartedSessionWaitsForStart(t *testing.T) {
	plan := toyPlan(5 * time.Second)
	orch, _ := newTestOrchestrator(t, plan)

	blob, err := orch.Serialize()
	require.NoError(t, err)

	restored, err := RestoreOrchestrator("debate-1", blob, OrchestratorDeps{
		Notify: (&notifyRecorder{}).notify,
		Logger: testLogger(),
	}, WithPhasePlan(plan))
	require.NoError(t, err)
	defer restored.End()

	assert.False(t, restored.IsStarted())
	state := restored.Snapshot()
	assert.Equal(t, models.PhaseProConstructive, state.Phase)
	assert.Equal(t, 5, state.RemainingSeconds)

	// No timer was armed: nothing may advance on its own.
	time.Sleep(300 * time.Millisecond)
	after := restored.Snapshot()
	assert.Equal(t, models.PhaseProConstructive, after.Phase)
	assert.False(t, after.Ended)

	restored.Start()
	assert.True(t, restored.IsStarted())
	assert.Equal(t, models.PhaseProConstructive, restored.Snapshot().Phase)
}

func TestShutdownSkipsEndPipeline(t *testing.T) {
	orch, recorder := newTestOrchestrator(t, toyPlan(10*time.Second))

	endedCalled := make(chan struct{}, 1)
	orch.deps.OnEnded = func(string, models.ScoreReport) { endedCalled <- struct{}{} }

	orch.Start()
	orch.Shutdown()

	select {
	case <-endedCalled:
		t.Fatal("quiet shutdown must not run the end-of-session pipeline")
	case <-time.After(200 * time.Millisecond):
	}
	assert.NotContains(t, recorder.typesSeen(), models.MsgTypeSessionEnded)

	// The discarded instance is inert: commands and End are no-ops.
	orch.Skip()
	assert.Equal(t, models.PhaseEnded, orch.Snapshot().Phase)
	orch.End()
	assert.NotContains(t, recorder.typesSeen(), models.MsgTypeSessionEnded)
}

func TestPauseSnapshotCarriesFrozenRemaining(t *testing.T) {
	orch, _ := newTestOrchestrator(t, toyPlan(10*time.Second))
	defer orch.End()

	orch.Start()
	// Pause between ticks, when the last tick update is stale.
	time.Sleep(600 * time.Millisecond)
	orch.Pause()

	snap := orch.Snapshot()
	orch.mu.Lock()
	stored := orch.storedRemaining
	orch.mu.Unlock()

	assert.Equal(t, int(stored.Round(time.Second)/time.Second), snap.RemainingSeconds)
	assert.Less(t, snap.RemainingSeconds, 10, "pause snapshot must not carry the phase-entry value")
}

func TestRestoreEndedSessionStaysEnded(t *testing.T) {
	plan := toyPlan(10 * time.Second)
	orch, _ := newTestOrchestrator(t, plan)

	orch.Start()
	orch.End()
	blob, err := orch.Serialize()
	require.NoError(t, err)

	restored, err := RestoreOrchestrator("debate-1", blob, OrchestratorDeps{
		Notify: (&notifyRecorder{}).notify,
		Logger: testLogger(),
	}, WithPhasePlan(plan))
	require.NoError(t, err)

	assert.True(t, restored.Snapshot().Ended)
}

func TestRestoreRejectsUnknownPhase(t *testing.T) {
	_, err := RestoreOrchestrator("debate-1", []byte(`{"state":{"phase":"no_such_phase"}}`), OrchestratorDeps{
		Notify: (&notifyRecorder{}).notify,
		Logger: testLogger(),
	})
	assert.Error(t, err)
}

func TestSpeakerSequenceFollowsPlan(t *testing.T) {
	orch, _ := newTestOrchestrator(t, toyPlan(10*time.Second))
	defer orch.End()

	orch.Start()
	assert.Equal(t, "p1", orch.Snapshot().CurrentSpeakerID)
	orch.Skip()
	assert.Equal(t, "p3", orch.Snapshot().CurrentSpeakerID)
}
