package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/aristath/vcaudit/internal/domain"
	vdomain "github.com/aristath/vcaudit/internal/modules/valuation/domain"
)

// valuationFile mirrors vdomain.Config with every field optional. Decimals are
// read as strings so their exact textual form reaches the config snapshot.
type valuationFile struct {
	MaxRoundAgeMonths            *int              `yaml:"max_round_age_months"`
	HighConfidenceMaxAgeMonths   *int              `yaml:"high_confidence_max_age_months"`
	MediumConfidenceMaxAgeMonths *int              `yaml:"medium_confidence_max_age_months"`
	StaleRoundThresholdMonths    *int              `yaml:"stale_round_threshold_months"`
	Beta                         *string           `yaml:"beta"`
	MinComparables               *int              `yaml:"min_comparables"`
	MultipleFloor                *string           `yaml:"multiple_floor"`
	CompsHighCV                  *string           `yaml:"comps_high_cv"`
	CompsMediumCV                *string           `yaml:"comps_medium_cv"`
	CompsHighConfidenceMinCount  *int              `yaml:"comps_high_confidence_min_count"`
	SpreadWarningThreshold       *string           `yaml:"spread_warning_threshold"`
	ValueDecimalPlaces           *int32            `yaml:"value_decimal_places"`
	StageDiscounts               map[string]string `yaml:"stage_discounts"`
}

// LoadValuationFile overlays the parameters found in a YAML file onto base.
// Keys absent from the file keep their base value; unknown keys are rejected.
func LoadValuationFile(path string, base vdomain.Config) (vdomain.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return base, fmt.Errorf("failed to open valuation config %s: %w", path, err)
	}
	defer f.Close()

	cfg, err := ParseValuationConfig(f, base)
	if err != nil {
		return base, fmt.Errorf("failed to load valuation config %s: %w", path, err)
	}
	return cfg, nil
}

// ParseValuationConfig reads YAML parameters from r and overlays them onto base.
func ParseValuationConfig(r io.Reader, base vdomain.Config) (vdomain.Config, error) {
	var file valuationFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return base, fmt.Errorf("invalid YAML: %w", err)
	}

	cfg := base.Clone()
	setInt(&cfg.MaxRoundAgeMonths, file.MaxRoundAgeMonths)
	setInt(&cfg.HighConfidenceMaxAgeMonths, file.HighConfidenceMaxAgeMonths)
	setInt(&cfg.MediumConfidenceMaxAgeMonths, file.MediumConfidenceMaxAgeMonths)
	setInt(&cfg.StaleRoundThresholdMonths, file.StaleRoundThresholdMonths)
	setInt(&cfg.MinComparables, file.MinComparables)
	setInt(&cfg.CompsHighConfidenceMinCount, file.CompsHighConfidenceMinCount)
	if file.ValueDecimalPlaces != nil {
		cfg.ValueDecimalPlaces = *file.ValueDecimalPlaces
	}

	decimals := []struct {
		key    string
		target *decimal.Decimal
		raw    *string
	}{
		{"beta", &cfg.Beta, file.Beta},
		{"multiple_floor", &cfg.MultipleFloor, file.MultipleFloor},
		{"comps_high_cv", &cfg.CompsHighCV, file.CompsHighCV},
		{"comps_medium_cv", &cfg.CompsMediumCV, file.CompsMediumCV},
		{"spread_warning_threshold", &cfg.SpreadWarningThreshold, file.SpreadWarningThreshold},
	}
	for _, d := range decimals {
		if d.raw == nil {
			continue
		}
		v, err := decimal.NewFromString(*d.raw)
		if err != nil {
			return base, fmt.Errorf("%s: %w", d.key, err)
		}
		*d.target = v
	}

	for stage, raw := range file.StageDiscounts {
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return base, fmt.Errorf("stage_discounts.%s: %w", stage, err)
		}
		cfg.StageDiscounts[domain.Stage(stage)] = v
	}

	if err := cfg.Validate(); err != nil {
		return base, err
	}
	return cfg, nil
}

func setInt(target *int, v *int) {
	if v != nil {
		*target = *v
	}
}
