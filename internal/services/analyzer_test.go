package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sachin-Buluswar/DebateAI-sub003/internal/models"
)

func analyzerTranscript() []models.TranscriptEntry {
	return []models.TranscriptEntry{
		{Speaker: "Sam", Phase: models.PhaseProConstructive, Text: "We affirm because a carbon tax corrects a market failure."},
		{Speaker: "Avery", Phase: models.PhaseConConstructive, Text: "We negate because the tax is regressive."},
	}
}

func TestAnalyzeParsesValidReport(t *testing.T) {
	llm := &fakeLLM{jsonText: `{
		"overall": 82,
		"categories": {"arguments": 85, "evidence": 78, "rebuttal": 80, "delivery": 84},
		"strengths": ["Clear framing"],
		"improvements": ["Extend evidence in summary"],
		"keyMoments": ["Crossfire concession on regressivity"],
		"recommendations": ["Weigh impacts explicitly"]
	}`}
	guard := NewGuard(fastGuardConfig(), testLogger())
	analyzer := NewSessionAnalyzer(llm, guard, testLogger())

	report := analyzer.Analyze(context.Background(), "debate-1", "carbon tax", analyzerTranscript(), "Sam", nil)

	assert.Equal(t, 82, report.Overall)
	assert.Equal(t, 78, report.Categories[models.CategoryEvidence])
	require.Len(t, report.Strengths, 1)
	assert.Equal(t, "Clear framing", report.Strengths[0])
}

func TestAnalyzeFallsBackOnMalformedJSON(t *testing.T) {
	llm := &fakeLLM{jsonText: `{"overall": "not a number"`}
	guard := NewGuard(fastGuardConfig(), testLogger())
	analyzer := NewSessionAnalyzer(llm, guard, testLogger())

	report := analyzer.Analyze(context.Background(), "debate-2", "carbon tax", analyzerTranscript(), "Sam", nil)

	assertFallbackReport(t, report)
}

func TestAnalyzeFallsBackOnMissingCategories(t *testing.T) {
	llm := &fakeLLM{jsonText: `{
		"overall": 90,
		"categories": {"arguments": 90},
		"strengths": ["x"],
		"improvements": ["y"],
		"keyMoments": [],
		"recommendations": []
	}`}
	guard := NewGuard(fastGuardConfig(), testLogger())
	analyzer := NewSessionAnalyzer(llm, guard, testLogger())

	report := analyzer.Analyze(context.Background(), "debate-3", "carbon tax", analyzerTranscript(), "Sam", nil)

	assertFallbackReport(t, report)
}

func TestAnalyzeFallsBackOnProviderFailure(t *testing.T) {
	llm := &fakeLLM{jsonErr: errors.New("provider down")}
	guard := NewGuard(fastGuardConfig(), testLogger())
	analyzer := NewSessionAnalyzer(llm, guard, testLogger())

	report := analyzer.Analyze(context.Background(), "debate-4", "carbon tax", analyzerTranscript(), "Sam", nil)

	assertFallbackReport(t, report)
}

func assertFallbackReport(t *testing.T, report models.ScoreReport) {
	t.Helper()
	assert.Equal(t, 70, report.Overall)
	for _, key := range []string{models.CategoryArguments, models.CategoryEvidence, models.CategoryRebuttal, models.CategoryDelivery} {
		assert.Equal(t, 70, report.Categories[key], "category %s", key)
	}
	assert.NotEmpty(t, report.Strengths)
	assert.NotEmpty(t, report.Improvements)
	assert.NotEmpty(t, report.Recommendations)
}
