// Package analyze computes descriptive aggregates, two-sample comparisons,
// and threshold flagging over cleaned datasets.
package analyze

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/11r0n/MAJI-NDOGO-PROJECT/internal/models"
)

// GroupBy derives a grouping key from a record.
type GroupBy func(models.Record) string

func ByCrop(r models.Record) string {
	return r.CropType
}

func ByElevationTier(r models.Record) string {
	return models.TierForElevation(r.Elevation)
}

func ByStation(r models.Record) string {
	return r.StationID
}

// ParseGroupBy resolves a grouping name from external input.
func ParseGroupBy(s string) (GroupBy, error) {
	switch s {
	case "crop":
		return ByCrop, nil
	case "elevation":
		return ByElevationTier, nil
	case "station":
		return ByStation, nil
	}
	return nil, fmt.Errorf("unknown grouping %q", s)
}

// Summarize computes per-group descriptive statistics of one field. Groups
// appear in first-seen record order, and every record lands in exactly one
// group, so the counts sum to ds.Len().
func Summarize(ds models.Dataset, field models.Field, groupBy GroupBy) []models.GroupSummary {
	var order []string
	values := map[string][]float64{}

	for r := range ds.All() {
		key := groupBy(r)
		if _, seen := values[key]; !seen {
			order = append(order, key)
		}
		values[key] = append(values[key], r.Value(field))
	}

	summaries := make([]models.GroupSummary, 0, len(order))
	for _, key := range order {
		vs := values[key]
		s := models.GroupSummary{
			Key:   key,
			Field: field,
			Count: len(vs),
			Mean:  stat.Mean(vs, nil),
			Min:   vs[0],
			Max:   vs[0],
		}
		for _, v := range vs {
			if v < s.Min {
				s.Min = v
			}
			if v > s.Max {
				s.Max = v
			}
		}
		if len(vs) > 1 {
			s.StdDev = stat.StdDev(vs, nil)
		}
		summaries = append(summaries, s)
	}
	return summaries
}
