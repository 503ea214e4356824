package security_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sachin-Buluswar/DebateAI-sub003/internal/models"
	"github.com/Sachin-Buluswar/DebateAI-sub003/internal/security"
)

func TestValidateTopic(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"valid resolution", "Resolved: The US should adopt a carbon tax.", "Resolved: The US should adopt a carbon tax.", false},
		{"trims whitespace", "  Resolved: School uniforms should be mandatory.  ", "Resolved: School uniforms should be mandatory.", false},
		{"minimum length", strings.Repeat("a", 10), strings.Repeat("a", 10), false},
		{"maximum length", strings.Repeat("a", 300), strings.Repeat("a", 300), false},

		{"empty", "", "", true},
		{"too short", "Too short", "", true},
		{"too long", strings.Repeat("a", 301), "", true},
		{"xss attempt", "<script>alert('xss')</script> is the topic", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := security.ValidateTopic(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestValidateUserName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"valid simple name", "Sam", "Sam", false},
		{"valid with space", "Sam Taylor", "Sam Taylor", false},
		{"trims whitespace", "  Sam  ", "Sam", false},
		{"maximum length", strings.Repeat("a", 50), strings.Repeat("a", 50), false},

		{"empty", "", "", true},
		{"whitespace only", "   ", "", true},
		{"too long", strings.Repeat("a", 51), "", true},
		{"xss attempt", "<script>Sam</script>", "", true},
		{"colon reserved for attribution", "Sam: the debater", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := security.ValidateUserName(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestValidateDifficulty(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  models.Difficulty
	}{
		{"easy", "easy", models.DifficultyEasy},
		{"medium", "medium", models.DifficultyMedium},
		{"hard", "hard", models.DifficultyHard},
		{"uppercase", "HARD", models.DifficultyHard},
		{"padded", "  easy ", models.DifficultyEasy},
		{"empty defaults to medium", "", models.DifficultyMedium},
		{"unknown defaults to medium", "nightmare", models.DifficultyMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, security.ValidateDifficulty(tt.input))
		})
	}
}

func TestIsValidMessageType(t *testing.T) {
	for _, msgType := range []string{"start", "pause", "resume", "skip", "save", "user_speech"} {
		assert.True(t, security.IsValidMessageType(msgType), msgType)
	}
	for _, msgType := range []string{"", "state_update", "drop_tables", "START"} {
		assert.False(t, security.IsValidMessageType(msgType), msgType)
	}
}

func TestValidateMessagePayload(t *testing.T) {
	tests := []struct {
		name    string
		msgType string
		payload interface{}
		wantErr bool
	}{
		{"start needs no payload", models.MsgTypeStart, nil, false},
		{"user_speech with text", models.MsgTypeUserSpeech, map[string]interface{}{"text": "We affirm."}, false},
		{"user_speech with audio", models.MsgTypeUserSpeech, map[string]interface{}{"audio": "UEsDBA=="}, false},

		{"user_speech without object", models.MsgTypeUserSpeech, "just a string", true},
		{"user_speech empty object", models.MsgTypeUserSpeech, map[string]interface{}{}, true},
		{"user_speech text too long", models.MsgTypeUserSpeech, map[string]interface{}{"text": strings.Repeat("a", 5001)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := security.ValidateMessagePayload(tt.msgType, tt.payload)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
