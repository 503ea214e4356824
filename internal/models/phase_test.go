package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sachin-Buluswar/DebateAI-sub003/internal/models"
)

func TestStandardPlanOrder(t *testing.T) {
	plan := models.StandardPlan()

	expected := []models.Phase{
		models.PhaseProConstructive,
		models.PhaseConConstructive,
		models.PhaseFirstCrossfire,
		models.PhaseProRebuttal,
		models.PhaseConRebuttal,
		models.PhaseSecondCrossfire,
		models.PhaseProSummary,
		models.PhaseConSummary,
		models.PhaseGrandCrossfire,
		models.PhaseProFinalFocus,
		models.PhaseConFinalFocus,
	}

	require.Len(t, plan, len(expected))
	for i, phase := range expected {
		assert.Equal(t, phase, plan[i].Phase, "plan position %d", i)
	}
}

func TestStandardPlanSpecs(t *testing.T) {
	plan := models.StandardPlan()

	for _, pp := range plan {
		assert.Positive(t, pp.Spec.Duration, "phase %s must have a positive duration", pp.Phase)
		if pp.Spec.Crossfire {
			assert.Empty(t, pp.Spec.Team, "crossfire phase %s has no owning team", pp.Phase)
		} else {
			assert.Contains(t, []models.Team{models.TeamPro, models.TeamCon}, pp.Spec.Team)
			assert.Contains(t, []int{1, 2}, pp.Spec.Slot)
		}
	}

	crossfires := 0
	for _, pp := range plan {
		if pp.Spec.Crossfire {
			crossfires++
		}
	}
	assert.Equal(t, 3, crossfires)
}

func TestStandardPlanExcludesTerminalPhase(t *testing.T) {
	plan := models.StandardPlan()
	assert.Equal(t, -1, plan.IndexOf(models.PhaseEnded))
}

func TestStandardPlanTotalDuration(t *testing.T) {
	var total time.Duration
	for _, pp := range models.StandardPlan() {
		total += pp.Spec.Duration
	}
	// 4x4min speeches + 3x3min crossfires + 2x3min summaries + 2x2min final focuses
	assert.Equal(t, 35*time.Minute, total)
}

func TestPhasePlanIndexOf(t *testing.T) {
	plan := models.StandardPlan()

	assert.Equal(t, 0, plan.IndexOf(models.PhaseProConstructive))
	assert.Equal(t, len(plan)-1, plan.IndexOf(models.PhaseConFinalFocus))
	assert.Equal(t, -1, plan.IndexOf(models.Phase("no_such_phase")))
}

func TestStandardPlanReturnsCopy(t *testing.T) {
	a := models.StandardPlan()
	a[0].Spec.Duration = time.Second

	b := models.StandardPlan()
	assert.Equal(t, 4*time.Minute, b[0].Spec.Duration)
}
