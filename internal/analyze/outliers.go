package analyze

import (
	"fmt"
	"iter"

	"github.com/11r0n/MAJI-NDOGO-PROJECT/internal/models"
)

// Direction selects which side of the threshold counts as an outlier.
type Direction string

const (
	Above Direction = "above"
	Below Direction = "below"
)

// ParseDirection resolves a direction from external input.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case Above:
		return Above, nil
	case Below:
		return Below, nil
	}
	return "", fmt.Errorf("unknown direction %q", s)
}

// Outliers returns the records whose field strictly exceeds (or falls
// below) the threshold. The sequence is lazy and can be ranged over more
// than once.
func Outliers(ds models.Dataset, field models.Field, threshold float64, dir Direction) iter.Seq[models.Record] {
	return func(yield func(models.Record) bool) {
		for r := range ds.All() {
			v := r.Value(field)
			if (dir == Above && v > threshold) || (dir == Below && v < threshold) {
				if !yield(r) {
					return
				}
			}
		}
	}
}
