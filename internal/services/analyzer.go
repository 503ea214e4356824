package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Sachin-Buluswar/DebateAI-sub003/internal/models"
	"github.com/Sachin-Buluswar/DebateAI-sub003/internal/providers"
)

// SessionAnalyzer produces structured post-debate scoring. Contractually
// non-throwing: a malformed or incomplete provider response yields a fixed
// conservative fallback report.
type SessionAnalyzer struct {
	llm   providers.LLMClient
	guard *Guard
	log   *logrus.Logger
}

func NewSessionAnalyzer(llm providers.LLMClient, guard *Guard, logger *logrus.Logger) *SessionAnalyzer {
	return &SessionAnalyzer{llm: llm, guard: guard, log: logger}
}

func scoreReportSchema() map[string]any {
	intScore := map[string]any{"type": "integer", "minimum": 0, "maximum": 100}
	stringList := map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"overall": intScore,
			"categories": map[string]any{
				"type": "object",
				"properties": map[string]any{
					models.CategoryArguments: intScore,
					models.CategoryEvidence:  intScore,
					models.CategoryRebuttal:  intScore,
					models.CategoryDelivery:  intScore,
				},
				"required":             []string{models.CategoryArguments, models.CategoryEvidence, models.CategoryRebuttal, models.CategoryDelivery},
				"additionalProperties": false,
			},
			"strengths":       stringList,
			"improvements":    stringList,
			"keyMoments":      stringList,
			"recommendations": stringList,
		},
		"required":             []string{"overall", "categories", "strengths", "improvements", "keyMoments", "recommendations"},
		"additionalProperties": false,
	}
}

// Analyze scores the human debater's performance across the full transcript.
func (a *SessionAnalyzer) Analyze(ctx context.Context, sessionID, topic string, transcript []models.TranscriptEntry, userName string, notify GuardNotify) models.ScoreReport {
	system := "You are an experienced Public Forum debate judge. Score the named debater fairly and concretely, grounding every comment in what was actually said."
	user := a.buildPrompt(topic, transcript, userName)

	result, err := a.guard.RunWithRetry(ctx, sessionID, OpTextGeneration, notify, func(ctx context.Context) (any, error) {
		raw, err := a.llm.CompleteJSON(ctx, system, user, "score_report", scoreReportSchema(), 900)
		if err != nil {
			return nil, err
		}
		return raw, nil
	})
	if err != nil || result == nil {
		a.log.WithField("session", sessionID).Warn("analysis degraded, returning fallback report")
		return fallbackReport()
	}

	raw, ok := result.(string)
	if !ok {
		return fallbackReport()
	}

	var report models.ScoreReport
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		a.log.WithFields(logrus.Fields{"session": sessionID, "err": err}).Warn("unparseable score report")
		return fallbackReport()
	}
	if !validReport(report) {
		a.log.WithField("session", sessionID).Warn("score report missing required fields")
		return fallbackReport()
	}
	return report
}

func (a *SessionAnalyzer) buildPrompt(topic string, transcript []models.TranscriptEntry, userName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Resolution: %q\n", topic)
	fmt.Fprintf(&b, "Score the debater named %q.\n\nFull transcript:\n", userName)
	for _, e := range transcript {
		fmt.Fprintf(&b, "[%s] %s: %s\n", e.Phase, e.Speaker, e.Text)
	}
	b.WriteString("\nReturn the score report JSON.")
	return b.String()
}

func validReport(r models.ScoreReport) bool {
	if r.Overall < 0 || r.Overall > 100 {
		return false
	}
	for _, key := range []string{models.CategoryArguments, models.CategoryEvidence, models.CategoryRebuttal, models.CategoryDelivery} {
		if _, ok := r.Categories[key]; !ok {
			return false
		}
	}
	return len(r.Strengths) > 0 && len(r.Improvements) > 0
}

// fallbackReport is the fixed conservative report used when scoring cannot
// be obtained.
func fallbackReport() models.ScoreReport {
	return models.ScoreReport{
		Overall: 70,
		Categories: map[string]int{
			models.CategoryArguments: 70,
			models.CategoryEvidence:  70,
			models.CategoryRebuttal:  70,
			models.CategoryDelivery:  70,
		},
		Strengths: []string{
			"You completed a full structured debate round.",
			"You engaged with every phase of the format, including crossfire.",
		},
		Improvements: []string{
			"Detailed scoring was unavailable for this session.",
			"Run another practice round to receive a full breakdown.",
		},
		KeyMoments: []string{},
		Recommendations: []string{
			"Practice collapsing to your strongest arguments in summary speeches.",
			"Record yourself and review pacing in the final focus.",
		},
	}
}
