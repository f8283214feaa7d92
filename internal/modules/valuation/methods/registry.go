package methods

import (
	"fmt"
	"sort"
	"sync"

	vdomain "github.com/aristath/vcaudit/internal/modules/valuation/domain"
)

// Factory builds a method bound to a configuration.
type Factory func(cfg vdomain.Config) Method

// Registration binds a method identifier to its factory. Lower Priority wins
// confidence ties during reconciliation.
type Registration struct {
	New      Factory
	ID       vdomain.MethodID
	Priority int
}

// Registry is the fixed, enumerable set of known methods.
type Registry struct {
	byID    map[vdomain.MethodID]Registration
	ordered []Registration
	mu      sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID: make(map[vdomain.MethodID]Registration),
	}
}

// NewPopulatedRegistry returns the registry of every method the engine knows.
// Transaction evidence ranks ahead of peer inference on confidence ties.
func NewPopulatedRegistry() *Registry {
	registry := NewRegistry()
	registry.mustRegister(Registration{ID: vdomain.MethodLastRound, Priority: 0, New: NewLastRound})
	registry.mustRegister(Registration{ID: vdomain.MethodComparables, Priority: 1, New: NewComparables})
	return registry
}

// Register adds a method. IDs and priorities must be unique.
func (r *Registry) Register(reg Registration) error {
	if reg.ID == "" {
		return fmt.Errorf("method registration requires an id")
	}
	if reg.New == nil {
		return fmt.Errorf("method %s has no factory", reg.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[reg.ID]; exists {
		return fmt.Errorf("method %s already registered", reg.ID)
	}
	for _, existing := range r.ordered {
		if existing.Priority == reg.Priority {
			return fmt.Errorf("method %s: priority %d already used by %s", reg.ID, reg.Priority, existing.ID)
		}
	}

	r.byID[reg.ID] = reg
	r.ordered = append(r.ordered, reg)
	sort.SliceStable(r.ordered, func(i, j int) bool {
		return r.ordered[i].Priority < r.ordered[j].Priority
	})
	return nil
}

func (r *Registry) mustRegister(reg Registration) {
	if err := r.Register(reg); err != nil {
		panic(err)
	}
}

// IDs returns the registered method ids in priority order.
func (r *Registry) IDs() []vdomain.MethodID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]vdomain.MethodID, len(r.ordered))
	for i, reg := range r.ordered {
		ids[i] = reg.ID
	}
	return ids
}

// Get returns the registration of a method.
func (r *Registry) Get(id vdomain.MethodID) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.byID[id]
	return reg, ok
}

// Priority returns a method's tie-break rank.
func (r *Registry) Priority(id vdomain.MethodID) (int, bool) {
	reg, ok := r.Get(id)
	return reg.Priority, ok
}

// Instantiate creates fresh instances of every method, in priority order.
func (r *Registry) Instantiate(cfg vdomain.Config) []Method {
	r.mu.RLock()
	defer r.mu.RUnlock()

	methods := make([]Method, len(r.ordered))
	for i, reg := range r.ordered {
		methods[i] = reg.New(cfg)
	}
	return methods
}
