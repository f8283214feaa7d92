package valuation

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	vdomain "github.com/aristath/vcaudit/internal/modules/valuation/domain"
	"github.com/aristath/vcaudit/internal/modules/valuation/methods"
	"github.com/aristath/vcaudit/pkg/formulas"
)

const warningExcerptLength = 50

func summaryText(results []vdomain.MethodResult, primary int) string {
	p := results[primary]
	var b strings.Builder
	fmt.Fprintf(&b, "Primary valuation: %s (via %s method, %s confidence).",
		formulas.FormatCurrency(p.Value), p.Method.DisplayName(), p.Confidence)

	if len(results) > 1 {
		var others []string
		for i, r := range results {
			if i == primary {
				continue
			}
			others = append(others, fmt.Sprintf("%s: %s", r.Method.DisplayName(), formulas.FormatCurrency(r.Value)))
		}
		fmt.Fprintf(&b, " Supporting methods: %s.", strings.Join(others, ", "))
	}
	return b.String()
}

func selectionSteps(
	results []vdomain.MethodResult,
	skipped []vdomain.MethodSkipped,
	registry *methods.Registry,
	sel selection,
) []string {
	names := make([]string, len(results))
	assessed := make([]string, len(results))
	for i, r := range results {
		names[i] = r.Method.DisplayName()
		detail := fmt.Sprintf("%s: %s", r.Method.DisplayName(), r.Confidence.Label())
		if len(r.Warnings) > 0 {
			detail += fmt.Sprintf(" (%s)", excerpt(r.Warnings[0]))
		}
		assessed[i] = detail
	}

	steps := []string{
		fmt.Sprintf("Ran all applicable valuation methods: %s", strings.Join(names, ", ")),
		fmt.Sprintf("Assessed confidence: %s", strings.Join(assessed, "; ")),
	}

	if len(skipped) > 0 {
		notes := make([]string, len(skipped))
		for i, s := range skipped {
			notes[i] = fmt.Sprintf("%s (%s)", s.Method.DisplayName(), s.Reason)
		}
		steps = append(steps, fmt.Sprintf("Not applicable: %s", strings.Join(notes, "; ")))
	}

	order := make([]string, 0, len(registry.IDs()))
	for _, id := range registry.IDs() {
		order = append(order, id.DisplayName())
	}
	steps = append(steps, fmt.Sprintf(
		"Rule: the highest confidence wins; equal confidence is broken by fixed priority (%s), "+
			"so an actual transaction outranks inferred peer pricing",
		strings.Join(order, " > ")))

	primary := results[sel.primary]
	if sel.byPriority() {
		steps = append(steps, fmt.Sprintf(
			"Selected %s as primary (%s confidence, tied with %s; chosen by priority)",
			primary.Method.DisplayName(), primary.Confidence, tiedWith(results, sel)))
	} else {
		steps = append(steps, fmt.Sprintf(
			"Selected %s as primary (%s confidence)",
			primary.Method.DisplayName(), primary.Confidence))
	}
	return steps
}

func selectionReason(results []vdomain.MethodResult, sel selection, sp *spread) string {
	primary := results[sel.primary]
	if len(results) == 1 {
		return fmt.Sprintf("Only one valuation method was applicable. %s was used with %s confidence.",
			primary.Method.DisplayName(), primary.Confidence)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "We used %d valuation methods. %s was selected as primary ",
		len(results), primary.Method.DisplayName())

	if sel.byPriority() {
		fmt.Fprintf(&b, "because it ranks first in the fixed method priority, which favors transaction evidence "+
			"over peer comparison, while %s also has %s confidence.", tiedWith(results, sel), primary.Confidence)
	} else {
		runnerUp := runnerUp(results, sel.primary)
		fmt.Fprintf(&b, "because it has higher confidence (%s vs %s).",
			title(primary.Confidence), title(runnerUp.Confidence))
	}

	if sp != nil {
		if sp.warning {
			fmt.Fprintf(&b, " The %s spread between methods indicates significant valuation uncertainty.",
				formatPercentPoints(sp.percent))
		} else {
			fmt.Fprintf(&b, " The %s spread shows good agreement between methods.",
				formatPercentPoints(sp.percent))
		}
	}
	return b.String()
}

func spreadWarning(percent decimal.Decimal) string {
	return fmt.Sprintf("%s spread between methods indicates significant uncertainty in valuation.",
		formatPercentPoints(percent))
}

// runnerUp returns the best result other than the primary.
func runnerUp(results []vdomain.MethodResult, primary int) vdomain.MethodResult {
	best := -1
	for i, r := range results {
		if i == primary {
			continue
		}
		if best < 0 || r.Confidence.Rank() > results[best].Confidence.Rank() {
			best = i
		}
	}
	return results[best]
}

func tiedWith(results []vdomain.MethodResult, sel selection) string {
	var names []string
	for _, i := range sel.tied {
		if i != sel.primary {
			names = append(names, results[i].Method.DisplayName())
		}
	}
	return strings.Join(names, ", ")
}

// excerpt cuts s to warningExcerptLength runes.
func excerpt(s string) string {
	runes := []rune(s)
	if len(runes) <= warningExcerptLength {
		return s
	}
	return string(runes[:warningExcerptLength]) + "..."
}

func title(c vdomain.Confidence) string {
	s := string(c)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func formatPercentPoints(percent decimal.Decimal) string {
	return percent.StringFixed(1) + "%"
}
