package security

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Sachin-Buluswar/DebateAI-sub003/internal/models"
)

const (
	maxTopicLength    = 300
	minTopicLength    = 10
	maxUserNameLength = 50
	maxSpeechLength   = 5000
)

// ValidateTopic checks and normalizes a debate resolution.
func ValidateTopic(topic string) (string, error) {
	topic = strings.TrimSpace(topic)
	if utf8.RuneCountInString(topic) < minTopicLength {
		return "", fmt.Errorf("topic must be at least %d characters", minTopicLength)
	}
	if utf8.RuneCountInString(topic) > maxTopicLength {
		return "", fmt.Errorf("topic must be at most %d characters", maxTopicLength)
	}
	if strings.ContainsAny(topic, "<>") {
		return "", fmt.Errorf("topic contains invalid characters")
	}
	return topic, nil
}

// ValidateUserName checks and normalizes the human debater's display name.
func ValidateUserName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("name is required")
	}
	if utf8.RuneCountInString(name) > maxUserNameLength {
		return "", fmt.Errorf("name must be at most %d characters", maxUserNameLength)
	}
	if strings.ContainsAny(name, "<>:") {
		return "", fmt.Errorf("name contains invalid characters")
	}
	return name, nil
}

// ValidateDifficulty normalizes the difficulty tier, defaulting to medium.
func ValidateDifficulty(d string) models.Difficulty {
	switch models.Difficulty(strings.ToLower(strings.TrimSpace(d))) {
	case models.DifficultyEasy:
		return models.DifficultyEasy
	case models.DifficultyHard:
		return models.DifficultyHard
	default:
		return models.DifficultyMedium
	}
}

var validMessageTypes = map[string]bool{
	models.MsgTypeStart:      true,
	models.MsgTypePause:      true,
	models.MsgTypeResume:     true,
	models.MsgTypeSkip:       true,
	models.MsgTypeSave:       true,
	models.MsgTypeUserSpeech: true,
}

// IsValidMessageType checks if a WebSocket command type is recognized.
func IsValidMessageType(msgType string) bool {
	return validMessageTypes[msgType]
}

// ValidateMessagePayload validates a WebSocket command payload.
func ValidateMessagePayload(msgType string, payload interface{}) error {
	switch msgType {
	case models.MsgTypeUserSpeech:
		payloadMap, ok := payload.(map[string]interface{})
		if !ok {
			return fmt.Errorf("user_speech payload must be an object")
		}
		text, hasText := payloadMap["text"].(string)
		_, hasAudio := payloadMap["audio"].(string)
		if !hasText && !hasAudio {
			return fmt.Errorf("user_speech payload must have 'text' or 'audio'")
		}
		if hasText && utf8.RuneCountInString(text) > maxSpeechLength {
			return fmt.Errorf("speech text must be at most %d characters", maxSpeechLength)
		}

	case models.MsgTypeStart, models.MsgTypePause, models.MsgTypeResume, models.MsgTypeSkip, models.MsgTypeSave:
		// No payload required.
	}
	return nil
}
