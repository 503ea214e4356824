package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sachin-Buluswar/DebateAI-sub003/internal/config"
	"github.com/Sachin-Buluswar/DebateAI-sub003/internal/models"
	"github.com/Sachin-Buluswar/DebateAI-sub003/internal/providers"
)

// UtteranceRequest carries everything needed to produce one spoken turn.
type UtteranceRequest struct {
	Topic        string
	Speaker      models.Participant
	Phase        models.Phase
	Spec         models.PhaseSpec
	Transcript   []models.TranscriptEntry
	OpponentLast string
	Difficulty   models.Difficulty
	TimeLimit    time.Duration
}

// UtteranceGenerator produces one turn of debate text for a simulated
// speaker. It is contractually non-throwing: any failure, timeout or empty
// result resolves to a deterministic in-character filler line.
type UtteranceGenerator struct {
	llm   providers.LLMClient
	guard *Guard
	log   *logrus.Logger
}

func NewUtteranceGenerator(llm providers.LLMClient, guard *Guard, logger *logrus.Logger) *UtteranceGenerator {
	return &UtteranceGenerator{llm: llm, guard: guard, log: logger}
}

type generationParams struct {
	temperature float64
	maxTokens   int
}

func difficultyParams(d models.Difficulty) generationParams {
	switch d {
	case models.DifficultyEasy:
		return generationParams{temperature: 0.6, maxTokens: 220}
	case models.DifficultyHard:
		return generationParams{temperature: 0.9, maxTokens: 420}
	default:
		return generationParams{temperature: 0.75, maxTokens: 320}
	}
}

// Generate returns spoken text for the requested turn. Never returns an
// empty string and never propagates an error.
func (u *UtteranceGenerator) Generate(ctx context.Context, sessionID string, req UtteranceRequest, notify GuardNotify) string {
	params := difficultyParams(req.Difficulty)
	system := u.personaInstruction(req.Speaker)
	user := u.phasePrompt(req)

	result, err := u.guard.RunWithRetry(ctx, sessionID, OpTextGeneration, notify, func(ctx context.Context) (any, error) {
		text, err := u.llm.Complete(ctx, system, user, params.temperature, params.maxTokens)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("empty completion")
		}
		return text, nil
	})
	if err != nil || result == nil {
		u.log.WithFields(logrus.Fields{
			"session": sessionID,
			"speaker": req.Speaker.Name,
			"phase":   req.Phase,
		}).Warn("utterance generation degraded, using filler line")
		return fillerLine(req)
	}

	text, ok := result.(string)
	if !ok || strings.TrimSpace(text) == "" {
		return fillerLine(req)
	}
	return sanitizeSpokenText(text)
}

// personaInstruction gives each simulated participant a distinct speaking
// style keyed by side and slot.
func (u *UtteranceGenerator) personaInstruction(p models.Participant) string {
	styles := map[string]string{
		"pro-1": "You speak in a measured, evidence-first style. You build arguments brick by brick and cite concrete examples.",
		"pro-2": "You are quick and combative. You favor sharp analogies and direct attacks on the opponent's weakest link.",
		"con-1": "You are calm and skeptical. You question assumptions and reframe the resolution on your own terms.",
		"con-2": "You are passionate and rhetorical. You appeal to impacts and paint vivid consequences.",
	}
	key := fmt.Sprintf("%s-%d", p.Team, p.Role)
	style, ok := styles[key]
	if !ok {
		style = "You are a disciplined competitive debater."
	}
	return fmt.Sprintf(
		"You are %s, a Public Forum debater on the %s side. %s Stay in character, speak in first person, and never mention being an AI.",
		p.Name, strings.ToUpper(string(p.Team)), style)
}

func (u *UtteranceGenerator) phasePrompt(req UtteranceRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Resolution: %q\n", req.Topic)
	fmt.Fprintf(&b, "You are speaking for the %s side.\n", req.Speaker.Team)

	switch req.Phase {
	case models.PhaseProConstructive, models.PhaseConConstructive:
		b.WriteString("Deliver your constructive case: two or three contentions with warrants and impacts.\n")
	case models.PhaseProRebuttal, models.PhaseConRebuttal:
		b.WriteString("Deliver a rebuttal: directly refute the opposing case, point by point, before extending your own.\n")
	case models.PhaseProSummary, models.PhaseConSummary:
		b.WriteString("Deliver a summary: collapse to your strongest arguments and weigh them against the opposition.\n")
	case models.PhaseProFinalFocus, models.PhaseConFinalFocus:
		b.WriteString("Deliver the final focus: one or two voting issues and why your side wins the round.\n")
	default:
		b.WriteString("Continue the debate from where it stands.\n")
	}

	if excerpt := transcriptExcerpt(req.Transcript, config.TranscriptExcerptChars); excerpt != "" {
		fmt.Fprintf(&b, "\nRecent transcript:\n%s\n", excerpt)
	}
	if req.OpponentLast != "" {
		fmt.Fprintf(&b, "\nYour opponent just said: %q\n", req.OpponentLast)
	}
	if req.TimeLimit > 0 {
		fmt.Fprintf(&b, "\nKeep it deliverable within about %d seconds of speaking time.\n", int(req.TimeLimit.Seconds()))
	}
	b.WriteString("Respond with the speech text only, no stage directions and no markdown.")
	return b.String()
}

// transcriptExcerpt returns the most recent portion of the transcript,
// bounded by maxChars.
func transcriptExcerpt(entries []models.TranscriptEntry, maxChars int) string {
	if len(entries) == 0 {
		return ""
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("%s: %s", e.Speaker, e.Text))
	}
	joined := strings.Join(lines, "\n")
	if len(joined) > maxChars {
		joined = joined[len(joined)-maxChars:]
		if idx := strings.IndexByte(joined, '\n'); idx >= 0 {
			joined = joined[idx+1:]
		}
	}
	return joined
}

var fillerLines = []string{
	"Let me take a moment here and return to the heart of this resolution: the core question is still unanswered by the other side.",
	"I want to refocus this round on the weighing. When you compare our impacts against theirs, our side clearly comes out ahead.",
	"Even setting that exchange aside, our central contention stands untouched, and that alone is enough to carry this debate.",
	"I'd ask everyone to look carefully at what has actually been proven so far, because the burden in this round has not been met by our opponents.",
}

// fillerLine picks a deterministic, contextually plausible line so a
// degraded generation still sounds like debate speech.
func fillerLine(req UtteranceRequest) string {
	idx := (len(req.Transcript) + len(req.Speaker.ID)) % len(fillerLines)
	return fillerLines[idx]
}

var markupStripper = strings.NewReplacer(
	"*", "",
	"#", "",
	"`", "",
	"_", "",
	">", "",
	"~", "",
)

// sanitizeSpokenText strips stray markup so the result reads as spoken text.
func sanitizeSpokenText(s string) string {
	s = markupStripper.Replace(s)
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(s)
}
