package domain

import (
	"strings"
)

// MethodID identifies a valuation method
type MethodID string

const (
	MethodLastRound   MethodID = "last_round"
	MethodComparables MethodID = "comparables"
)

// DisplayName is the human-readable method name used in narratives.
func (m MethodID) DisplayName() string {
	switch m {
	case MethodLastRound:
		return "Last Round"
	case MethodComparables:
		return "Comparables"
	}

	words := strings.Fields(strings.ReplaceAll(string(m), "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// Confidence is the reliability tier of a value.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Rank orders confidences: high 3, medium 2, low 1, anything else 0.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	default:
		return 0
	}
}

// Downgrade returns the next lower tier; low stays low.
func (c Confidence) Downgrade() Confidence {
	switch c {
	case ConfidenceHigh:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// Label is the upper-case form used in selection steps.
func (c Confidence) Label() string {
	return strings.ToUpper(string(c))
}

// LowerOf returns the less confident of a and b.
func LowerOf(a, b Confidence) Confidence {
	if b.Rank() < a.Rank() {
		return b
	}
	return a
}
