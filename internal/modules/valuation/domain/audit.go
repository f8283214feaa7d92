package domain

import "fmt"

// StepType discriminates the payload of an audit step.
type StepType string

const (
	StepFundingRound        StepType = "funding_round"
	StepMarketAdjustment    StepType = "market_adjustment"
	StepCompanyAdjustment   StepType = "company_adjustment"
	StepNoAdjustments       StepType = "no_adjustments"
	StepTargetMetrics       StepType = "target_metrics"
	StepComparableCompanies StepType = "comparable_companies"
	StepMultipleStatistics  StepType = "multiple_statistics"
	StepPrivateDiscount     StepType = "private_discount"
	StepFinalCalculation    StepType = "final_calculation"
	StepValueRange          StepType = "value_range"
)

// StepInputs is the tagged payload of an audit step; the "type" key holds its StepType.
type StepInputs map[string]any

// AuditStep is one numbered entry of a method's audit trail.
type AuditStep struct {
	Inputs      StepInputs `json:"inputs"`
	Description string     `json:"description"`
	Calculation string     `json:"calculation,omitempty"`
	Result      string     `json:"result,omitempty"`
	StepNumber  int        `json:"step_number"`
}

// Type returns the step's discriminator.
func (s AuditStep) Type() StepType {
	switch t := s.Inputs["type"].(type) {
	case StepType:
		return t
	case string:
		return StepType(t)
	}
	return ""
}

// Recorder accumulates the audit trail and warnings of one method execution.
// Create a new Recorder for every Execute call.
type Recorder struct {
	steps    []AuditStep
	warnings []string
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Step appends a step numbered after the previous one. The inputs map is copied
// and tagged with stepType.
func (r *Recorder) Step(stepType StepType, description string, inputs map[string]any, calculation, result string) {
	payload := make(StepInputs, len(inputs)+1)
	for k, v := range inputs {
		payload[k] = v
	}
	payload["type"] = string(stepType)

	r.steps = append(r.steps, AuditStep{
		StepNumber:  len(r.steps) + 1,
		Description: description,
		Inputs:      payload,
		Calculation: calculation,
		Result:      result,
	})
}

// Warn records a non-fatal caveat.
func (r *Recorder) Warn(format string, args ...any) {
	r.warnings = append(r.warnings, fmt.Sprintf(format, args...))
}

// Steps returns a copy of the recorded steps.
func (r *Recorder) Steps() []AuditStep {
	out := make([]AuditStep, len(r.steps))
	copy(out, r.steps)
	return out
}

// Warnings returns a copy of the recorded warnings, never nil.
func (r *Recorder) Warnings() []string {
	out := make([]string, len(r.warnings))
	copy(out, r.warnings)
	return out
}
