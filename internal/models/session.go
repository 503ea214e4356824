package models

import "time"

// SessionState is the live state of one debate session. It is mutated only
// by the orchestrator; every external read receives a snapshot copy.
type SessionState struct {
	Topic            string    `json:"topic"`
	Phase            Phase     `json:"phase"`
	CurrentSpeakerID string    `json:"currentSpeakerId"`
	PhaseStartedAt   time.Time `json:"phaseStartedAt"`
	RemainingSeconds int       `json:"remainingSeconds"`
	Paused           bool      `json:"paused"`
	Ended            bool      `json:"ended"`
}

// TranscriptEntry is one spoken turn, accumulated for the post-debate analysis.
type TranscriptEntry struct {
	Speaker string    `json:"speaker"`
	Phase   Phase     `json:"phase"`
	Text    string    `json:"text"`
	At      time.Time `json:"at"`
}
