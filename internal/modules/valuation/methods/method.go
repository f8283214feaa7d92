// Package methods implements the valuation methods and the static registry the
// engine instantiates them from.
package methods

import (
	"fmt"

	"github.com/aristath/vcaudit/internal/domain"
	vdomain "github.com/aristath/vcaudit/internal/modules/valuation/domain"
)

// Inputs is everything a method may read during one valuation. Index and
// Comparables are nil when the caller has no such reference data.
type Inputs struct {
	Index       *domain.MarketIndex
	Comparables *domain.ComparableSet
	AsOf        domain.Date
	Company     domain.CompanyData
}

// Method is a valuation method bound to one configuration.
type Method interface {
	// ID returns the method's stable identifier.
	ID() vdomain.MethodID

	// CheckPrerequisites returns nil when the method can run on in, or the reason it cannot.
	// It must be free of side effects.
	CheckPrerequisites(in Inputs) *vdomain.MethodSkipped

	// Execute computes the value. Only called after CheckPrerequisites returned nil.
	// Each call records into its own fresh audit trail.
	Execute(in Inputs) (vdomain.MethodResult, error)
}

// Check runs the method's prerequisite check, turning a panic into a calculation skip.
func Check(m Method, in Inputs) (skip *vdomain.MethodSkipped) {
	defer func() {
		if r := recover(); r != nil {
			skip = &vdomain.MethodSkipped{
				Method: m.ID(),
				Reason: fmt.Sprintf("prerequisite check failed: %v", r),
				Code:   domain.CodeCalculation,
			}
		}
	}()
	return m.CheckPrerequisites(in)
}

// Execute runs a method that passed its prerequisites. Errors and panics become a
// CALCULATION skip so one faulty method never aborts the whole valuation.
func Execute(m Method, in Inputs) (out vdomain.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = vdomain.Skipped(vdomain.MethodSkipped{
				Method: m.ID(),
				Reason: fmt.Sprintf("calculation panicked: %v", r),
				Code:   domain.CodeCalculation,
			})
		}
	}()

	result, err := m.Execute(in)
	if err != nil {
		return vdomain.Skipped(vdomain.MethodSkipped{
			Method: m.ID(),
			Reason: err.Error(),
			Code:   domain.CodeCalculation,
		})
	}
	return vdomain.Succeeded(result)
}

// Run checks prerequisites and executes the method.
func Run(m Method, in Inputs) vdomain.Outcome {
	if skip := Check(m, in); skip != nil {
		return vdomain.Skipped(*skip)
	}
	return Execute(m, in)
}

func insufficient(id vdomain.MethodID, reason string, missing ...string) *vdomain.MethodSkipped {
	return &vdomain.MethodSkipped{
		Method:        id,
		Reason:        reason,
		MissingFields: missing,
		Code:          domain.CodeInsufficientData,
	}
}
