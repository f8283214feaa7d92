package domain

import "context"

// CompanyProvider loads a company's valuation inputs.
// Get returns *NotFoundError when the company does not exist.
type CompanyProvider interface {
	Get(ctx context.Context, id string) (CompanyData, error)
}

// IndexProvider loads a named market index series in a single round trip.
// GetSeries returns *NotFoundError when the index has no points.
type IndexProvider interface {
	GetSeries(ctx context.Context, name string) (*MarketIndex, error)
}

// ComparablesProvider loads the peer group of a sector in a single round trip.
// GetSet distinguishes a sector with no data (*NotFoundError) from one with
// too few entries (*InsufficientDataError). With the latter the short set is
// returned alongside the error so callers can report what was found.
type ComparablesProvider interface {
	GetSet(ctx context.Context, sector string) (*ComparableSet, error)
}
