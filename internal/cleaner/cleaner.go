// Package cleaner normalizes raw field records into a canonical dataset:
// type coercion, domain-bound enforcement, crop-name correction, and
// missing-value imputation, all driven by a configurable policy.
package cleaner

import (
	"database/sql"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/11r0n/MAJI-NDOGO-PROJECT/internal/metrics"
	"github.com/11r0n/MAJI-NDOGO-PROJECT/internal/models"
)

// Policy controls how out-of-range numeric values are handled.
type Policy string

const (
	PolicyClip  Policy = "clip"
	PolicyDrop  Policy = "drop"
	PolicyError Policy = "error"
)

// MissingPolicy controls how missing values are handled.
type MissingPolicy string

const (
	MissingImpute MissingPolicy = "impute"
	MissingDrop   MissingPolicy = "drop"
)

// DefaultCropCorrections fixes the misspellings present in the survey data.
var DefaultCropCorrections = map[string]string{
	"cassaval": "cassava",
	"wheatn":   "wheat",
	"teaa":     "tea",
}

type Config struct {
	OutOfRange      Policy
	Missing         MissingPolicy
	CropCorrections map[string]string
}

func DefaultConfig() Config {
	return Config{
		OutOfRange:      PolicyClip,
		Missing:         MissingImpute,
		CropCorrections: DefaultCropCorrections,
	}
}

// ValidationError reports an unrecoverable malformed value under the error
// policy, naming the offending field and row index.
type ValidationError struct {
	Row    int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("row %d: field %s: %s", e.Row, e.Field, e.Reason)
}

type Cleaner struct {
	cfg    Config
	logger *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Cleaner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CropCorrections == nil {
		cfg.CropCorrections = DefaultCropCorrections
	}
	return &Cleaner{cfg: cfg, logger: logger}
}

// pending is a record partway through cleaning: bound-checked values are
// set, missing fields wait for the imputation pass.
type pending struct {
	row     int
	rec     models.Record
	missing []models.Field
	flags   []string
}

// Clean normalizes raw records into a canonical Dataset. Record order is
// preserved, minus drops. Under the error policy the first unrecoverable
// row aborts the run with a ValidationError.
func (c *Cleaner) Clean(raw []models.FieldRecord) (models.Dataset, error) {
	var (
		rows    []pending
		dropped int

		groupSum = map[string]map[models.Field]float64{}
		groupN   = map[string]map[models.Field]int{}
		totalSum = map[models.Field]float64{}
		totalN   = map[models.Field]int{}
	)

	addSample := func(crop string, f models.Field, v float64) {
		if groupSum[crop] == nil {
			groupSum[crop] = map[models.Field]float64{}
			groupN[crop] = map[models.Field]int{}
		}
		groupSum[crop][f] += v
		groupN[crop][f]++
		totalSum[f] += v
		totalN[f]++
	}

	for i, fr := range raw {
		crop, corrected, ok := c.normalizeCrop(fr.CropType)
		if !ok {
			if c.cfg.OutOfRange == PolicyError {
				return models.Dataset{}, &ValidationError{Row: i, Field: "crop_type", Reason: "missing crop type"}
			}
			c.logger.Debug("dropping record with missing crop type", zap.Int("row", i), zap.Int64("field_id", fr.FieldID))
			metrics.RecordsDropped.WithLabelValues("missing_crop_type").Inc()
			dropped++
			continue
		}

		p := pending{
			row: i,
			rec: models.Record{FieldID: fr.FieldID, CropType: crop, StationID: fr.StationID.String},
		}
		if corrected {
			p.flags = append(p.flags, FlagCropCorrected)
		}

		elevation := fr.Elevation
		if elevation.Valid && elevation.Float64 < 0 {
			elevation.Float64 = math.Abs(elevation.Float64)
			p.flags = append(p.flags, FlagElevationNegative)
		}

		cols := []struct {
			f models.Field
			v float64
			p bool
		}{
			{models.FieldElevation, elevation.Float64, elevation.Valid},
			{models.FieldTemperature, fr.Temperature.Float64, fr.Temperature.Valid},
			{models.FieldRainfall, fr.Rainfall.Float64, fr.Rainfall.Valid},
			{models.FieldPH, fr.PH.Float64, fr.PH.Valid},
			{models.FieldPollution, fr.PollutionLevel.Float64, fr.PollutionLevel.Valid},
			{models.FieldYield, fr.Yield.Float64, fr.Yield.Valid},
		}

		var kept []struct {
			f models.Field
			v float64
		}
		dropRow := false
		for _, rv := range cols {
			if !rv.p {
				if c.cfg.Missing == MissingDrop {
					dropRow = true
					metrics.RecordsDropped.WithLabelValues("missing_value").Inc()
					break
				}
				p.missing = append(p.missing, rv.f)
				continue
			}

			v := rv.v
			b := bounds[rv.f]
			if v < b.min || v > b.max {
				switch c.cfg.OutOfRange {
				case PolicyClip:
					v = math.Min(math.Max(v, b.min), b.max)
					p.flags = append(p.flags, ClipFlag(rv.f))
					metrics.ValuesClipped.WithLabelValues(string(rv.f)).Inc()
				case PolicyDrop:
					dropRow = true
					metrics.RecordsDropped.WithLabelValues("out_of_range").Inc()
				case PolicyError:
					return models.Dataset{}, &ValidationError{
						Row:    i,
						Field:  string(rv.f),
						Reason: fmt.Sprintf("value %v outside [%v, %v]", rv.v, b.min, b.max),
					}
				}
				if dropRow {
					break
				}
			}

			p.rec.SetValue(rv.f, v)
			kept = append(kept, struct {
				f models.Field
				v float64
			}{rv.f, v})
		}
		if dropRow {
			c.logger.Debug("dropping record", zap.Int("row", i), zap.Int64("field_id", fr.FieldID))
			dropped++
			continue
		}

		// Group means see only values from rows that survive, so a
		// dropped row cannot skew imputation.
		for _, s := range kept {
			addSample(crop, s.f, s.v)
		}
		rows = append(rows, p)
	}

	// Imputation pass: group mean by crop, falling back to the overall
	// mean. Rows with a field that has no imputable value anywhere are
	// dropped rather than guessed at.
	records := make([]models.Record, 0, len(rows))
	for _, p := range rows {
		impossible := false
		for _, f := range p.missing {
			var mean float64
			switch {
			case groupN[p.rec.CropType][f] > 0:
				mean = groupSum[p.rec.CropType][f] / float64(groupN[p.rec.CropType][f])
			case totalN[f] > 0:
				mean = totalSum[f] / float64(totalN[f])
			default:
				impossible = true
			}
			if impossible {
				break
			}
			p.rec.SetValue(f, mean)
			p.flags = append(p.flags, ImputeFlag(f))
			metrics.ValuesImputed.WithLabelValues(string(f)).Inc()
		}
		if impossible {
			c.logger.Debug("dropping record with no imputable value", zap.Int("row", p.row), zap.Int64("field_id", p.rec.FieldID))
			metrics.RecordsDropped.WithLabelValues("no_imputable_value").Inc()
			dropped++
			continue
		}
		p.rec.QualityFlags = p.flags
		records = append(records, p.rec)
		metrics.RecordsCleaned.Inc()
	}

	c.logger.Info("cleaning complete",
		zap.Int("input", len(raw)),
		zap.Int("kept", len(records)),
		zap.Int("dropped", dropped))

	return models.NewDataset(records), nil
}

// normalizeCrop trims, lowercases, and applies the correction map. The
// corrected return reports whether a misspelling was fixed.
func (c *Cleaner) normalizeCrop(v sql.NullString) (crop string, corrected, ok bool) {
	if !v.Valid {
		return "", false, false
	}
	crop = strings.ToLower(strings.TrimSpace(v.String))
	if crop == "" {
		return "", false, false
	}
	if fixed, found := c.cfg.CropCorrections[crop]; found {
		return fixed, true, true
	}
	return crop, false, true
}
