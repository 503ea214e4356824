package services

import (
	"github.com/Sachin-Buluswar/DebateAI-sub003/internal/models"
)

// ResolveSpeaker maps a phase onto the participant holding the floor.
// Crossfire phases resolve to the reserved sentinel. The function is total:
// for a speech phase it returns the participant matching the phase's team
// and slot, falling back to the first participant if the roster is somehow
// missing that slot.
func ResolveSpeaker(spec models.PhaseSpec, participants []models.Participant) string {
	if spec.Crossfire {
		return models.CrossfireSpeaker
	}
	for _, p := range participants {
		if p.Team == spec.Team && p.Role == spec.Slot {
			return p.ID
		}
	}
	if len(participants) > 0 {
		return participants[0].ID
	}
	return models.CrossfireSpeaker
}
