package cleaner

import (
	"encoding/json"
	"math"

	"github.com/11r0n/MAJI-NDOGO-PROJECT/internal/models"
)

const (
	FlagElevationNegative = "elevation_negative"
	FlagCropCorrected     = "crop_corrected"
)

// ClipFlag and ImputeFlag name the quality flags attached to a record when a
// field is clipped to its domain bounds or imputed from a group mean.
func ClipFlag(f models.Field) string   { return string(f) + "_clipped" }
func ImputeFlag(f models.Field) string { return string(f) + "_imputed" }

type fieldBounds struct {
	min, max float64
}

// Domain bounds for each numeric field. Elevation is bounded after the
// absolute-value correction, so its lower bound is zero.
var bounds = map[models.Field]fieldBounds{
	models.FieldElevation:   {0, math.Inf(1)},
	models.FieldTemperature: {-10, 55},
	models.FieldRainfall:    {0, math.Inf(1)},
	models.FieldPH:          {0, 14},
	models.FieldPollution:   {0, math.Inf(1)},
	models.FieldYield:       {0, math.Inf(1)},
}

// Bounds returns the domain bounds for a field.
func Bounds(f models.Field) (min, max float64) {
	b := bounds[f]
	return b.min, b.max
}

// QualityFlagsToJSON renders quality flags for storage. Empty flag lists
// are stored as the empty string.
func QualityFlagsToJSON(flags []string) string {
	if len(flags) == 0 {
		return ""
	}
	b, _ := json.Marshal(flags)
	return string(b)
}

// QualityFlagsFromJSON parses a stored flag list.
func QualityFlagsFromJSON(s string) []string {
	if s == "" {
		return nil
	}
	var flags []string
	if err := json.Unmarshal([]byte(s), &flags); err != nil {
		return nil
	}
	return flags
}
