package models

import "time"

// Phase identifies one segment of a Public Forum round.
type Phase string

const (
	PhaseProConstructive Phase = "pro_constructive"
	PhaseConConstructive Phase = "con_constructive"
	PhaseFirstCrossfire  Phase = "first_crossfire"
	PhaseProRebuttal     Phase = "pro_rebuttal"
	PhaseConRebuttal     Phase = "con_rebuttal"
	PhaseSecondCrossfire Phase = "second_crossfire"
	PhaseProSummary      Phase = "pro_summary"
	PhaseConSummary      Phase = "con_summary"
	PhaseGrandCrossfire  Phase = "grand_crossfire"
	PhaseProFinalFocus   Phase = "pro_final_focus"
	PhaseConFinalFocus   Phase = "con_final_focus"
	PhaseEnded           Phase = "ended"
)

// CrossfireSpeaker is the reserved speaker id for phases where the floor is
// shared rather than held by one participant.
const CrossfireSpeaker = "crossfire"

// PhaseSpec describes how a phase runs: its length, whether the floor is
// shared (crossfire), and otherwise which team seat holds it.
type PhaseSpec struct {
	Duration  time.Duration
	Crossfire bool
	Team      Team
	Slot      int
}

// PlannedPhase pairs a phase with its spec.
type PlannedPhase struct {
	Phase Phase
	Spec  PhaseSpec
}

// PhasePlan is an ordered phase sequence. The plan never contains the
// terminal Ended phase; the session enters it when the plan runs out.
type PhasePlan []PlannedPhase

// IndexOf returns the plan index of a phase, or -1 if absent.
func (p PhasePlan) IndexOf(phase Phase) int {
	for i, pp := range p {
		if pp.Phase == phase {
			return i
		}
	}
	return -1
}

var standardPlan = PhasePlan{
	{PhaseProConstructive, PhaseSpec{Duration: 4 * time.Minute, Team: TeamPro, Slot: 1}},
	{PhaseConConstructive, PhaseSpec{Duration: 4 * time.Minute, Team: TeamCon, Slot: 1}},
	{PhaseFirstCrossfire, PhaseSpec{Duration: 3 * time.Minute, Crossfire: true}},
	{PhaseProRebuttal, PhaseSpec{Duration: 4 * time.Minute, Team: TeamPro, Slot: 2}},
	{PhaseConRebuttal, PhaseSpec{Duration: 4 * time.Minute, Team: TeamCon, Slot: 2}},
	{PhaseSecondCrossfire, PhaseSpec{Duration: 3 * time.Minute, Crossfire: true}},
	{PhaseProSummary, PhaseSpec{Duration: 3 * time.Minute, Team: TeamPro, Slot: 1}},
	{PhaseConSummary, PhaseSpec{Duration: 3 * time.Minute, Team: TeamCon, Slot: 1}},
	{PhaseGrandCrossfire, PhaseSpec{Duration: 3 * time.Minute, Crossfire: true}},
	{PhaseProFinalFocus, PhaseSpec{Duration: 2 * time.Minute, Team: TeamPro, Slot: 2}},
	{PhaseConFinalFocus, PhaseSpec{Duration: 2 * time.Minute, Team: TeamCon, Slot: 2}},
}

// StandardPlan returns a copy of the standard Public Forum sequence.
func StandardPlan() PhasePlan {
	plan := make(PhasePlan, len(standardPlan))
	copy(plan, standardPlan)
	return plan
}
