package models

import (
	"database/sql"
	"fmt"
	"time"
)

// Station is a weather station referenced by field records via the
// station-mapping CSV.
type Station struct {
	StationID     string
	Name          string
	Latitude      float64
	Longitude     float64
	Elevation     float64
	ElevationTier string // "valley_floor", "mid_slope", "upper"
	Active        bool
}

// FieldRecord is one raw farm observation as ingested from the survey
// database, before cleaning. Numeric fields may be missing.
type FieldRecord struct {
	FieldID        int64
	CropType       sql.NullString
	Elevation      sql.NullFloat64
	Temperature    sql.NullFloat64
	Rainfall       sql.NullFloat64
	PH             sql.NullFloat64
	PollutionLevel sql.NullFloat64
	Yield          sql.NullFloat64
	StationID      sql.NullString
	CreatedAt      time.Time
}

// Record is one canonical farm observation produced by the cleaner.
// All numeric fields are present and within domain bounds.
type Record struct {
	FieldID        int64
	CropType       string
	Elevation      float64 // meters
	Temperature    float64 // °C
	Rainfall       float64 // mm
	PH             float64
	PollutionLevel float64
	Yield          float64
	StationID      string
	QualityFlags   []string
}

// Field names a numeric column of a Record.
type Field string

const (
	FieldElevation   Field = "elevation"
	FieldTemperature Field = "temperature"
	FieldRainfall    Field = "rainfall"
	FieldPH          Field = "ph"
	FieldPollution   Field = "pollution_level"
	FieldYield       Field = "yield"
)

var fields = []Field{
	FieldElevation, FieldTemperature, FieldRainfall,
	FieldPH, FieldPollution, FieldYield,
}

// Fields returns all numeric record fields in schema order.
func Fields() []Field {
	out := make([]Field, len(fields))
	copy(out, fields)
	return out
}

// ParseField validates a field name from external input.
func ParseField(s string) (Field, error) {
	for _, f := range fields {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown field %q", s)
}

// Value returns the named numeric field of r. Callers should validate the
// name with ParseField first; Value panics on a field that does not exist.
func (r Record) Value(f Field) float64 {
	switch f {
	case FieldElevation:
		return r.Elevation
	case FieldTemperature:
		return r.Temperature
	case FieldRainfall:
		return r.Rainfall
	case FieldPH:
		return r.PH
	case FieldPollution:
		return r.PollutionLevel
	case FieldYield:
		return r.Yield
	}
	panic(fmt.Sprintf("models: no such field %q", f))
}

// SetValue assigns the named numeric field of r.
func (r *Record) SetValue(f Field, v float64) {
	switch f {
	case FieldElevation:
		r.Elevation = v
	case FieldTemperature:
		r.Temperature = v
	case FieldRainfall:
		r.Rainfall = v
	case FieldPH:
		r.PH = v
	case FieldPollution:
		r.PollutionLevel = v
	case FieldYield:
		r.Yield = v
	default:
		panic(fmt.Sprintf("models: no such field %q", f))
	}
}

const (
	TierValleyFloor = "valley_floor"
	TierMidSlope    = "mid_slope"
	TierUpper       = "upper"
)

// TierForElevation buckets an elevation in meters into an elevation band.
func TierForElevation(elevation float64) string {
	switch {
	case elevation < 500:
		return TierValleyFloor
	case elevation < 1200:
		return TierMidSlope
	default:
		return TierUpper
	}
}

// GroupSummary holds descriptive statistics of one field for one group key.
type GroupSummary struct {
	Key    string  `json:"key"`
	Field  Field   `json:"field"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"std_dev"`
}

// ComparisonResult is the outcome of a two-sample Welch t-test.
type ComparisonResult struct {
	GroupA           string  `json:"group_a"`
	GroupB           string  `json:"group_b"`
	Field            Field   `json:"field,omitempty"`
	NA               int     `json:"n_a"`
	NB               int     `json:"n_b"`
	MeanA            float64 `json:"mean_a"`
	MeanB            float64 `json:"mean_b"`
	TStatistic       float64 `json:"t_statistic"`
	DegreesOfFreedom float64 `json:"degrees_of_freedom"`
	PValue           float64 `json:"p_value"`
	Alpha            float64 `json:"alpha"`
	Significant      bool    `json:"significant"`
}

// WeatherMessage is one raw message received from a weather station, with
// the measurement extracted from its text (if any).
type WeatherMessage struct {
	ID          int64
	StationID   string
	Message     string
	Measurement sql.NullString
	Value       sql.NullFloat64
	CreatedAt   time.Time
}

// StationMean is the mean of one measurement type at one station.
type StationMean struct {
	StationID   string  `json:"station_id"`
	Measurement string  `json:"measurement"`
	Mean        float64 `json:"mean"`
	Count       int     `json:"count"`
}
