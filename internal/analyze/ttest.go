package analyze

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/11r0n/MAJI-NDOGO-PROJECT/internal/models"
)

// DefaultAlpha is the significance level used when the caller does not
// state one.
const DefaultAlpha = 0.05

// InsufficientDataError reports a sample too small to test.
type InsufficientDataError struct {
	Group string
	Size  int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("group %s: %d observations, need at least 2", e.Group, e.Size)
}

// Welch runs Welch's unequal-variance t-test on two samples and reports a
// two-tailed p-value with a significance verdict at alpha. Both samples
// need at least 2 observations.
func Welch(nameA string, a []float64, nameB string, b []float64, alpha float64) (models.ComparisonResult, error) {
	if alpha <= 0 {
		alpha = DefaultAlpha
	}
	if len(a) < 2 {
		return models.ComparisonResult{}, &InsufficientDataError{Group: nameA, Size: len(a)}
	}
	if len(b) < 2 {
		return models.ComparisonResult{}, &InsufficientDataError{Group: nameB, Size: len(b)}
	}

	na, nb := float64(len(a)), float64(len(b))
	meanA, varA := stat.Mean(a, nil), stat.Variance(a, nil)
	meanB, varB := stat.Mean(b, nil), stat.Variance(b, nil)

	res := models.ComparisonResult{
		GroupA: nameA,
		GroupB: nameB,
		NA:     len(a),
		NB:     len(b),
		MeanA:  meanA,
		MeanB:  meanB,
		Alpha:  alpha,
	}

	se2 := varA/na + varB/nb
	if se2 == 0 {
		// Both samples constant: identical means are indistinguishable,
		// different means are trivially distinct.
		if meanA == meanB {
			res.TStatistic = 0
			res.PValue = 1
		} else {
			res.TStatistic = math.Inf(sign(meanA - meanB))
			res.PValue = 0
			res.Significant = true
		}
		res.DegreesOfFreedom = na + nb - 2
		return res, nil
	}

	res.TStatistic = (meanA - meanB) / math.Sqrt(se2)

	// Welch–Satterthwaite degrees of freedom.
	res.DegreesOfFreedom = se2 * se2 /
		((varA/na)*(varA/na)/(na-1) + (varB/nb)*(varB/nb)/(nb-1))

	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: res.DegreesOfFreedom}
	res.PValue = 2 * dist.CDF(-math.Abs(res.TStatistic))
	res.Significant = res.PValue < alpha

	return res, nil
}

// Compare runs Welch's t-test on one field of two datasets.
func Compare(nameA string, a models.Dataset, nameB string, b models.Dataset, field models.Field, alpha float64) (models.ComparisonResult, error) {
	res, err := Welch(nameA, a.Column(field), nameB, b.Column(field), alpha)
	if err != nil {
		return res, err
	}
	res.Field = field
	return res, nil
}

// CompareGroups runs Welch's t-test on one field between two groups of a
// single dataset.
func CompareGroups(ds models.Dataset, field models.Field, groupBy GroupBy, groupA, groupB string, alpha float64) (models.ComparisonResult, error) {
	var a, b []float64
	for r := range ds.All() {
		switch groupBy(r) {
		case groupA:
			a = append(a, r.Value(field))
		case groupB:
			b = append(b, r.Value(field))
		}
	}
	res, err := Welch(groupA, a, groupB, b, alpha)
	if err != nil {
		return res, err
	}
	res.Field = field
	return res, nil
}

func sign(v float64) int {
	if v < 0 {
		return -1
	}
	return 1
}
