package testing

import (
	"context"
	"strings"
	"sync"

	"github.com/aristath/vcaudit/internal/domain"
)

// MockCompanyProvider is an in-memory CompanyProvider
type MockCompanyProvider struct {
	mu        sync.RWMutex
	companies map[string]domain.CompanyData
	err       error
	calls     int
}

// NewMockCompanyProvider creates a provider holding the given companies
func NewMockCompanyProvider(companies ...domain.CompanyData) *MockCompanyProvider {
	m := &MockCompanyProvider{companies: make(map[string]domain.CompanyData)}
	for _, c := range companies {
		m.companies[c.Company.ID] = c
	}
	return m
}

// SetError sets the error to return
func (m *MockCompanyProvider) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Get was called
func (m *MockCompanyProvider) Calls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

// Get returns the company or a NotFoundError
func (m *MockCompanyProvider) Get(_ context.Context, id string) (domain.CompanyData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return domain.CompanyData{}, m.err
	}
	c, ok := m.companies[id]
	if !ok {
		return domain.CompanyData{}, &domain.NotFoundError{Resource: "company", ID: id}
	}
	return c, nil
}

// MockIndexProvider is an in-memory IndexProvider
type MockIndexProvider struct {
	mu      sync.RWMutex
	indices map[string]*domain.MarketIndex
	err     error
	calls   int
}

// NewMockIndexProvider creates a provider holding the given series
func NewMockIndexProvider(indices ...*domain.MarketIndex) *MockIndexProvider {
	m := &MockIndexProvider{indices: make(map[string]*domain.MarketIndex)}
	for _, idx := range indices {
		m.indices[idx.Name] = idx
	}
	return m
}

// SetError sets the error to return
func (m *MockIndexProvider) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times GetSeries was called
func (m *MockIndexProvider) Calls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

// GetSeries returns the series or a NotFoundError
func (m *MockIndexProvider) GetSeries(_ context.Context, name string) (*domain.MarketIndex, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	idx, ok := m.indices[name]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "market index", ID: name}
	}
	return idx, nil
}

// MockComparablesProvider is an in-memory ComparablesProvider
type MockComparablesProvider struct {
	mu    sync.RWMutex
	sets  map[string]*domain.ComparableSet
	err   error
	calls int
}

// NewMockComparablesProvider creates a provider holding the given sets
func NewMockComparablesProvider(sets ...*domain.ComparableSet) *MockComparablesProvider {
	m := &MockComparablesProvider{sets: make(map[string]*domain.ComparableSet)}
	for _, s := range sets {
		m.sets[strings.ToLower(s.Sector)] = s
	}
	return m
}

// SetError sets the error to return
func (m *MockComparablesProvider) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times GetSet was called
func (m *MockComparablesProvider) Calls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

// GetSet returns the sector's set or a NotFoundError. An InsufficientDataError
// set with SetError is returned together with the stored set.
func (m *MockComparablesProvider) GetSet(_ context.Context, sector string) (*domain.ComparableSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	s, ok := m.sets[strings.ToLower(sector)]
	if m.err != nil {
		if ok && domain.IsInsufficientData(m.err) {
			return s, m.err
		}
		return nil, m.err
	}
	if !ok {
		return nil, &domain.NotFoundError{Resource: "comparables for sector", ID: sector}
	}
	return s, nil
}

var (
	_ domain.CompanyProvider     = (*MockCompanyProvider)(nil)
	_ domain.IndexProvider       = (*MockIndexProvider)(nil)
	_ domain.ComparablesProvider = (*MockComparablesProvider)(nil)
)
