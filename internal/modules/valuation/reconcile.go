package valuation

import (
	"github.com/shopspring/decimal"

	vdomain "github.com/aristath/vcaudit/internal/modules/valuation/domain"
	"github.com/aristath/vcaudit/internal/modules/valuation/methods"
	"github.com/aristath/vcaudit/pkg/formulas"
)

var hundred = decimal.NewFromInt(100)

type reconciliation struct {
	comparison *vdomain.Comparison
	summary    vdomain.Summary
}

// selection describes how the primary method was chosen.
type selection struct {
	primary int
	// tied lists the indexes sharing the primary's confidence, primary included.
	tied []int
}

func (s selection) byPriority() bool {
	return len(s.tied) > 1
}

// spread is the relative disagreement across method values.
type spread struct {
	fraction decimal.Decimal
	percent  decimal.Decimal
	warning  bool
}

// reconcile turns successful method results, in registry order, into the
// comparison and summary of a valuation. results must not be empty.
func reconcile(
	results []vdomain.MethodResult,
	skipped []vdomain.MethodSkipped,
	registry *methods.Registry,
	cfg vdomain.Config,
) reconciliation {
	sel := selectPrimary(results, registry)
	primary := results[sel.primary]

	var sp *spread
	if len(results) >= 2 {
		s := measureSpread(results, cfg.SpreadWarningThreshold)
		sp = &s
	}

	overall := overallConfidence(results, sel.primary, cfg.SpreadWarningThreshold)
	if sp != nil && sp.warning {
		overall = overall.Downgrade()
	}

	low, high := valueRange(results)

	var comparison *vdomain.Comparison
	if sp != nil {
		items := make([]vdomain.ComparisonItem, len(results))
		for i, r := range results {
			items[i] = vdomain.ComparisonItem{
				Method:     r.Method,
				Value:      r.Value,
				Confidence: r.Confidence,
				IsPrimary:  i == sel.primary,
			}
		}
		comparison = &vdomain.Comparison{
			Methods:        items,
			SpreadPercent:  sp.percent,
			SelectionSteps: selectionSteps(results, skipped, registry, sel),
		}
		if sp.warning {
			comparison.SpreadWarning = spreadWarning(sp.percent)
		}
	}

	return reconciliation{
		comparison: comparison,
		summary: vdomain.Summary{
			PrimaryValue:      primary.Value,
			PrimaryMethod:     primary.Method,
			ValueRangeLow:     low,
			ValueRangeHigh:    high,
			OverallConfidence: overall,
			SummaryText:       summaryText(results, sel.primary),
			SelectionReason:   selectionReason(results, sel, sp),
		},
	}
}

// selectPrimary picks the highest-confidence result. Equal confidence is
// resolved by registry priority, lowest number first.
func selectPrimary(results []vdomain.MethodResult, registry *methods.Registry) selection {
	best := 0
	for i := 1; i < len(results); i++ {
		if results[i].Confidence.Rank() > results[best].Confidence.Rank() {
			best = i
		}
	}

	var tied []int
	for i, r := range results {
		if r.Confidence.Rank() == results[best].Confidence.Rank() {
			tied = append(tied, i)
		}
	}

	primary := tied[0]
	for _, i := range tied[1:] {
		if priorityOf(registry, results[i].Method) < priorityOf(registry, results[primary].Method) {
			primary = i
		}
	}
	return selection{primary: primary, tied: tied}
}

func priorityOf(registry *methods.Registry, id vdomain.MethodID) int {
	if p, ok := registry.Priority(id); ok {
		return p
	}
	return int(^uint(0) >> 1)
}

// measureSpread computes (max-min)/mean over the method values. The percentage is
// rounded to one decimal for display; the warning compares the exact fraction.
func measureSpread(results []vdomain.MethodResult, threshold decimal.Decimal) spread {
	fraction, _ := formulas.RelativeSpread(values(results))
	return spread{
		fraction: fraction,
		percent:  formulas.RoundHalfUp(fraction.Mul(hundred), 1),
		warning:  fraction.GreaterThan(threshold),
	}
}

// overallConfidence is the lowest confidence among the methods whose value lies
// within threshold of the primary's, measured against the pair's mean.
func overallConfidence(results []vdomain.MethodResult, primary int, threshold decimal.Decimal) vdomain.Confidence {
	overall := results[primary].Confidence
	for i, r := range results {
		if i == primary {
			continue
		}
		if agree(results[primary].Value, r.Value, threshold) {
			overall = vdomain.LowerOf(overall, r.Confidence)
		}
	}
	return overall
}

func agree(a, b, threshold decimal.Decimal) bool {
	diff, _ := formulas.RelativeSpread([]decimal.Decimal{a, b})
	return diff.LessThanOrEqual(threshold)
}

// valueRange spans every method value and every method sub-range.
func valueRange(results []vdomain.MethodResult) (decimal.Decimal, decimal.Decimal) {
	var bounds []decimal.Decimal
	for _, r := range results {
		bounds = append(bounds, r.Value)
		if r.RangeLow != nil {
			bounds = append(bounds, *r.RangeLow)
		}
		if r.RangeHigh != nil {
			bounds = append(bounds, *r.RangeHigh)
		}
	}
	low, _ := formulas.Min(bounds)
	high, _ := formulas.Max(bounds)
	return low, high
}

func values(results []vdomain.MethodResult) []decimal.Decimal {
	out := make([]decimal.Decimal, len(results))
	for i, r := range results {
		out[i] = r.Value
	}
	return out
}
