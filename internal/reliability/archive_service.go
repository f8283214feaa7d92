package reliability

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/vcaudit/internal/modules/valuation"
	vdomain "github.com/aristath/vcaudit/internal/modules/valuation/domain"
)

// archiveFormatVersion is bumped whenever the envelope layout changes.
const archiveFormatVersion = "1"

// ArchiveEnvelope is the document written for each archived valuation
type ArchiveEnvelope struct {
	Metadata ArchiveMetadata          `json:"metadata"`
	Result   *vdomain.ValuationResult `json:"result"`
}

// ArchiveMetadata identifies an archived valuation and lets a reader verify
// that the result document was not altered.
type ArchiveMetadata struct {
	ArchivedAt     time.Time `json:"archived_at"`
	FormatVersion  string    `json:"format_version"`
	ValuationID    string    `json:"valuation_id"`
	CompanyID      string    `json:"company_id"`
	InputHash      string    `json:"input_hash"`
	ResultChecksum string    `json:"result_checksum"`
}

// ArchiveReport summarises one archive pass
type ArchiveReport struct {
	Keys     []string `json:"keys"`
	Archived int      `json:"archived"`
	Failed   int      `json:"failed"`
}

// ArchiveService copies saved valuations that have not been archived yet to
// object storage and records where each one went.
type ArchiveService struct {
	results   valuation.ResultStore
	objects   ObjectStore
	prefix    string
	batchSize int
	now       func() time.Time
	log       zerolog.Logger
}

// NewArchiveService creates a new archive service
func NewArchiveService(results valuation.ResultStore, objects ObjectStore, prefix string, batchSize int, log zerolog.Logger) *ArchiveService {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &ArchiveService{
		results:   results,
		objects:   objects,
		prefix:    strings.Trim(prefix, "/"),
		batchSize: batchSize,
		now:       time.Now,
		log:       log.With().Str("service", "archive").Logger(),
	}
}

// ArchivePending archives up to one batch of unarchived valuations, oldest first.
// A failed upload leaves its valuation unarchived for the next pass.
func (s *ArchiveService) ArchivePending(ctx context.Context) (*ArchiveReport, error) {
	startTime := time.Now()

	pending, err := s.results.ListUnarchived(ctx, s.batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list unarchived valuations: %w", err)
	}

	report := &ArchiveReport{Keys: []string{}}
	for _, result := range pending {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		key, err := s.archiveOne(ctx, result)
		if err != nil {
			s.log.Error().Err(err).Str("valuation_id", result.ID.String()).Msg("Failed to archive valuation")
			report.Failed++
			continue
		}
		report.Keys = append(report.Keys, key)
		report.Archived++
	}

	s.log.Info().
		Int("archived", report.Archived).
		Int("failed", report.Failed).
		Dur("duration_ms", time.Since(startTime)).
		Msg("Archive pass completed")

	return report, nil
}

func (s *ArchiveService) archiveOne(ctx context.Context, result *vdomain.ValuationResult) (string, error) {
	body, metadata, err := s.encode(result)
	if err != nil {
		return "", err
	}

	key := s.KeyFor(result)
	err = s.objects.Put(ctx, key, bytes.NewReader(body), "application/gzip", map[string]string{
		"valuation-id":    metadata.ValuationID,
		"input-hash":      metadata.InputHash,
		"result-checksum": metadata.ResultChecksum,
	})
	if err != nil {
		return "", err
	}

	if err := s.results.MarkArchived(ctx, result.ID, key); err != nil {
		return "", fmt.Errorf("uploaded %s but failed to record it: %w", key, err)
	}
	return key, nil
}

// KeyFor returns the object key of a valuation: <prefix>/<company>/<as-of>/<id>.json.gz
func (s *ArchiveService) KeyFor(result *vdomain.ValuationResult) string {
	return path.Join(s.prefix, result.CompanyID, result.AsOfDate.String(), result.ID.String()+".json.gz")
}

func (s *ArchiveService) encode(result *vdomain.ValuationResult) ([]byte, ArchiveMetadata, error) {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return nil, ArchiveMetadata{}, fmt.Errorf("failed to encode valuation %s: %w", result.ID, err)
	}

	envelope := ArchiveEnvelope{
		Metadata: ArchiveMetadata{
			ArchivedAt:     s.now().UTC(),
			FormatVersion:  archiveFormatVersion,
			ValuationID:    result.ID.String(),
			CompanyID:      result.CompanyID,
			InputHash:      result.InputHash,
			ResultChecksum: Checksum(resultJSON),
		},
		Result: result,
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := json.NewEncoder(gz).Encode(envelope); err != nil {
		return nil, ArchiveMetadata{}, fmt.Errorf("failed to write archive document: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, ArchiveMetadata{}, fmt.Errorf("failed to compress archive document: %w", err)
	}
	return buf.Bytes(), envelope.Metadata, nil
}

// ListArchives lists archived valuation documents, newest first
func (s *ArchiveService) ListArchives(ctx context.Context) ([]ObjectInfo, error) {
	prefix := s.prefix
	if prefix != "" {
		prefix += "/"
	}

	objects, err := s.objects.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list archives: %w", err)
	}

	archives := make([]ObjectInfo, 0, len(objects))
	for _, obj := range objects {
		if strings.HasSuffix(obj.Key, ".json.gz") {
			archives = append(archives, obj)
		}
	}
	sort.Slice(archives, func(i, j int) bool {
		return archives[i].LastModified.After(archives[j].LastModified)
	})
	return archives, nil
}

// Checksum returns the sha256 checksum of data in "sha256:<hex>" form
func Checksum(data []byte) string {
	return fmt.Sprintf("sha256:%x", sha256.Sum256(data))
}
