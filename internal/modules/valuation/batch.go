package valuation

import (
	"context"
	"sync"

	"github.com/aristath/vcaudit/internal/domain"
	vdomain "github.com/aristath/vcaudit/internal/modules/valuation/domain"
)

// BatchItem is the outcome for one company of a batch run: exactly one of
// Result and Error is set.
type BatchItem struct {
	Result    *vdomain.ValuationResult `json:"result,omitempty"`
	Error     *domain.ErrorInfo        `json:"error,omitempty"`
	CompanyID string                   `json:"company_id"`
}

// RunBatch values each company independently. Items come back in input order;
// one company failing never affects another.
func (s *Service) RunBatch(ctx context.Context, companyIDs []string, asOf domain.Date, indexName string) []BatchItem {
	items := make([]BatchItem, len(companyIDs))
	if len(companyIDs) == 0 {
		return items
	}

	jobs := make(chan batchJob, len(companyIDs))
	results := make(chan batchResult, len(companyIDs))

	numWorkers := s.batchWorkers
	if len(companyIDs) < numWorkers {
		numWorkers = len(companyIDs)
	}

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				result, err := s.Run(ctx, Request{CompanyID: job.companyID, AsOf: asOf, IndexName: indexName})
				results <- batchResult{index: job.index, result: result, err: err}
			}
		}()
	}

	for i, id := range companyIDs {
		jobs <- batchJob{index: i, companyID: id}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	for r := range results {
		item := BatchItem{CompanyID: companyIDs[r.index], Result: r.result}
		if r.err != nil {
			item.Result = nil
			item.Error = domain.NewErrorInfo(r.err)
		}
		items[r.index] = item
	}

	failed := 0
	for _, item := range items {
		if item.Error != nil {
			failed++
		}
	}
	s.log.Info().Int("companies", len(items)).Int("failed", failed).Msg("Batch valuation completed")

	return items
}

type batchJob struct {
	index     int
	companyID string
}

type batchResult struct {
	index  int
	result *vdomain.ValuationResult
	err    error
}
