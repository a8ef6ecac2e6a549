// Package weather extracts structured measurements from raw weather
// station message text and aggregates them per station.
package weather

import (
	"database/sql"
	"regexp"
	"strconv"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/11r0n/MAJI-NDOGO-PROJECT/internal/models"
)

const (
	MeasurementTemperature = "temperature"
	MeasurementRainfall    = "rainfall"
	MeasurementPollution   = "pollution_level"
)

// DefaultPatterns match the message formats the stations actually send,
// e.g. "Temperature recorded: 25.3 C" or "Rainfall reading of 120 mm".
var DefaultPatterns = map[string]*regexp.Regexp{
	MeasurementTemperature: regexp.MustCompile(`[Tt]emperature\D*?(-?\d+(?:\.\d+)?)\s*C\b`),
	MeasurementRainfall:    regexp.MustCompile(`[Rr]ainfall\D*?(-?\d+(?:\.\d+)?)\s*mm\b`),
	MeasurementPollution:   regexp.MustCompile(`[Pp]ollution\s+[Ll]evel\D*?(-?\d+(?:\.\d+)?)`),
}

// Order in which patterns are tried, so extraction is deterministic when a
// message could match more than one.
var patternOrder = []string{MeasurementTemperature, MeasurementRainfall, MeasurementPollution}

type Extractor struct {
	patterns map[string]*regexp.Regexp
	logger   *zap.Logger
}

func NewExtractor(patterns map[string]*regexp.Regexp, logger *zap.Logger) *Extractor {
	if patterns == nil {
		patterns = DefaultPatterns
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{patterns: patterns, logger: logger}
}

// Extract pulls a (measurement, value) pair out of one message. ok is
// false when no pattern matches.
func (e *Extractor) Extract(message string) (measurement string, value float64, ok bool) {
	for _, key := range patternOrder {
		pattern, have := e.patterns[key]
		if !have {
			continue
		}
		m := pattern.FindStringSubmatch(message)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		e.logger.Debug("measurement extracted", zap.String("measurement", key), zap.Float64("value", v))
		return key, v, true
	}
	e.logger.Debug("no measurement match", zap.String("message", message))
	return "", 0, false
}

// ProcessMessages annotates messages in place with their extracted
// measurement and value, and returns how many matched.
func (e *Extractor) ProcessMessages(msgs []models.WeatherMessage) int {
	matched := 0
	for i := range msgs {
		key, v, ok := e.Extract(msgs[i].Message)
		if !ok {
			msgs[i].Measurement = sql.NullString{}
			msgs[i].Value = sql.NullFloat64{}
			continue
		}
		msgs[i].Measurement = sql.NullString{String: key, Valid: true}
		msgs[i].Value = sql.NullFloat64{Float64: v, Valid: true}
		matched++
	}
	e.logger.Info("messages processed", zap.Int("total", len(msgs)), zap.Int("matched", matched))
	return matched
}

// Means computes the mean value per station and measurement type over
// messages that carry an extracted value. Results keep first-seen order.
func Means(msgs []models.WeatherMessage) []models.StationMean {
	type key struct{ station, measurement string }
	var order []key
	values := map[key][]float64{}

	for _, m := range msgs {
		if !m.Measurement.Valid || !m.Value.Valid {
			continue
		}
		k := key{m.StationID, m.Measurement.String}
		if _, seen := values[k]; !seen {
			order = append(order, k)
		}
		values[k] = append(values[k], m.Value.Float64)
	}

	means := make([]models.StationMean, 0, len(order))
	for _, k := range order {
		vs := values[k]
		means = append(means, models.StationMean{
			StationID:   k.station,
			Measurement: k.measurement,
			Mean:        stat.Mean(vs, nil),
			Count:       len(vs),
		})
	}
	return means
}
