package models

// WSMessage is the envelope for everything on the client channel.
type WSMessage struct {
	Type     string      `json:"type"`
	DebateID string      `json:"debateId,omitempty"`
	Mode     string      `json:"mode,omitempty"`
	Payload  interface{} `json:"payload,omitempty"`
}

// Client -> Server command types
const (
	MsgTypeStart      = "start"
	MsgTypePause      = "pause"
	MsgTypeResume     = "resume"
	MsgTypeSkip       = "skip"
	MsgTypeSave       = "save"
	MsgTypeUserSpeech = "user_speech"
)

// Server -> Client notification types
const (
	MsgTypeStateUpdate  = "state_update"
	MsgTypeUtterance    = "utterance"
	MsgTypeAudio        = "audio"
	MsgTypeTranscript   = "transcript"
	MsgTypeSessionEnded = "session_ended"
	MsgTypeReport       = "report"
	MsgTypeSaved        = "saved"
	MsgTypeResilience   = "resilience"
	MsgTypeFallback     = "fallback"
	MsgTypeError        = "error"
)

// Modes tagging state notifications.
const (
	ModeSpeech    = "speech"
	ModeCrossfire = "crossfire"
	ModeTimer     = "timer"
	ModePause     = "pause"
	ModeResume    = "resume"
)
