package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Sachin-Buluswar/DebateAI-sub003/internal/models"
)

// fakeLLM scripts Complete/CompleteJSON responses for one test.
type fakeLLM struct {
	completeText string
	completeErr  error
	jsonText     string
	jsonErr      error
	calls        int
}

func (f *fakeLLM) Complete(ctx context.Context, system, user string, temperature float64, maxTokens int) (string, error) {
	f.calls++
	return f.completeText, f.completeErr
}

func (f *fakeLLM) CompleteJSON(ctx context.Context, system, user, schemaName string, schema map[string]any, maxTokens int) (string, error) {
	f.calls++
	return f.jsonText, f.jsonErr
}

func utteranceRequest() UtteranceRequest {
	roster := testRoster()
	return UtteranceRequest{
		Topic:      "Resolved: The United States should adopt a carbon tax.",
		Speaker:    roster[1],
		Phase:      models.PhaseProRebuttal,
		Spec:       models.PhaseSpec{Duration: 4 * time.Minute, Team: models.TeamPro, Slot: 2},
		Difficulty: models.DifficultyMedium,
		TimeLimit:  4 * time.Minute,
	}
}

func TestGenerateReturnsSanitizedText(t *testing.T) {
	llm := &fakeLLM{completeText: "**First**, the   carbon tax `works`.\n\n# Second point."}
	guard := NewGuard(fastGuardConfig(), testLogger())
	gen := NewUtteranceGenerator(llm, guard, testLogger())

	text := gen.Generate(context.Background(), "debate-1", utteranceRequest(), nil)

	assert.Equal(t, "First, the carbon tax works. Second point.", text)
}

func TestGenerateNeverReturnsEmpty(t *testing.T) {
	tests := []struct {
		name string
		llm  *fakeLLM
	}{
		{"provider error", &fakeLLM{completeErr: errors.New("timeout")}},
		{"empty completion", &fakeLLM{completeText: "   "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			guard := NewGuard(fastGuardConfig(), testLogger())
			gen := NewUtteranceGenerator(tt.llm, guard, testLogger())

			text := gen.Generate(context.Background(), "debate-2", utteranceRequest(), nil)
			assert.NotEmpty(t, text)
		})
	}
}

func TestGenerateFillerIsDeterministic(t *testing.T) {
	req := utteranceRequest()

	first := fillerLine(req)
	second := fillerLine(req)
	assert.Equal(t, first, second)
	assert.NotEmpty(t, first)
}

func TestDifficultyParams(t *testing.T) {
	easy := difficultyParams(models.DifficultyEasy)
	medium := difficultyParams(models.DifficultyMedium)
	hard := difficultyParams(models.DifficultyHard)

	assert.Less(t, easy.temperature, medium.temperature)
	assert.Less(t, medium.temperature, hard.temperature)
	assert.Less(t, easy.maxTokens, medium.maxTokens)
	assert.Less(t, medium.maxTokens, hard.maxTokens)
}

func TestSanitizeSpokenText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"markdown emphasis", "*Hello* **there**", "Hello there"},
		{"headings and quotes", "# Point one\n> quoted", "Point one quoted"},
		{"whitespace collapse", "one   two\t\tthree", "one two three"},
		{"plain text untouched", "Plain speech stays.", "Plain speech stays."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeSpokenText(tt.input))
		})
	}
}

func TestTranscriptExcerptBounded(t *testing.T) {
	entries := make([]models.TranscriptEntry, 0, 50)
	for i := 0; i < 50; i++ {
		entries = append(entries, models.TranscriptEntry{
			Speaker: "Jordan",
			Text:    "The weighing on this contention has gone completely unanswered so far.",
		})
	}

	excerpt := transcriptExcerpt(entries, 500)
	assert.NotEmpty(t, excerpt)
	assert.LessOrEqual(t, len(excerpt), 500)
	// The excerpt keeps the most recent lines and starts on a line boundary.
	assert.Contains(t, excerpt, "Jordan: ")
}

func TestTranscriptExcerptEmpty(t *testing.T) {
	assert.Empty(t, transcriptExcerpt(nil, 500))
}
