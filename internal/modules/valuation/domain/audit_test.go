package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_NumbersStepsContiguously(t *testing.T) {
	rec := NewRecorder()
	rec.Step(StepFundingRound, "Anchor", map[string]any{"post_money_valuation": "100"}, "", "Starting valuation: $100.00")
	rec.Step(StepMarketAdjustment, "Market", nil, "100 × 1.1", "110")
	rec.Step(StepNoAdjustments, "No adjustments", nil, "", "")

	steps := rec.Steps()
	require.Len(t, steps, 3)
	for i, step := range steps {
		assert.Equal(t, i+1, step.StepNumber)
	}
	assert.Equal(t, StepFundingRound, steps[0].Type())
	assert.Equal(t, StepMarketAdjustment, steps[1].Type())
	assert.Equal(t, "100", steps[0].Inputs["post_money_valuation"])
}

func TestRecorder_CopiesInputs(t *testing.T) {
	inputs := map[string]any{"value": "1"}
	rec := NewRecorder()
	rec.Step(StepFinalCalculation, "Final", inputs, "", "")

	inputs["value"] = "2"
	assert.Equal(t, "1", rec.Steps()[0].Inputs["value"])
	_, tagged := inputs["type"]
	assert.False(t, tagged)
}

func TestRecorder_Warnings(t *testing.T) {
	rec := NewRecorder()
	assert.NotNil(t, rec.Warnings())
	assert.Empty(t, rec.Warnings())

	rec.Warn("round is %d months old", 14)
	assert.Equal(t, []string{"round is 14 months old"}, rec.Warnings())
}

func TestRecorder_IndependentInstances(t *testing.T) {
	first := NewRecorder()
	first.Step(StepTargetMetrics, "Target", nil, "", "")

	second := NewRecorder()
	second.Step(StepTargetMetrics, "Target", nil, "", "")

	assert.Equal(t, 1, second.Steps()[0].StepNumber)
}

func TestAuditStep_TypeFromDecodedJSON(t *testing.T) {
	step := AuditStep{Inputs: StepInputs{"type": "value_range"}}
	assert.Equal(t, StepValueRange, step.Type())
	assert.Equal(t, StepType(""), AuditStep{}.Type())
}
