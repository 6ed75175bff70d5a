package statistics

import (
	"math"
	"math/rand"
	"sort"
)

// ConfidenceInterval holds the result of a bootstrap confidence interval
// computation over per-trial outcomes.
type ConfidenceInterval struct {
	Lower           float64 `json:"lower"`
	Upper           float64 `json:"upper"`
	Mean            float64 `json:"mean"`
	ConfidenceLevel float64 `json:"confidence_level"`
	NumBootstraps   int     `json:"num_bootstraps"`
}

// DefaultBootstrapIterations is the number of bootstrap resamples.
const DefaultBootstrapIterations = 10000

// WinRateCI computes a bootstrap confidence interval for a win rate from
// decisive trial outcomes, encoded as 1.0 for a skill win and 0.0 for a
// baseline win. Ties are excluded by the caller, matching the win-rate
// definition. confidenceLevel should be in (0, 1), e.g. 0.95.
func WinRateCI(outcomes []float64, confidenceLevel float64) ConfidenceInterval {
	return WinRateCIWithSeed(outcomes, confidenceLevel, -1)
}

// WinRateCIWithSeed is like WinRateCI but accepts a seed for reproducible
// resampling in tests. A negative seed uses a non-deterministic source.
func WinRateCIWithSeed(outcomes []float64, confidenceLevel float64, seed int64) ConfidenceInterval {
	n := len(outcomes)
	if n < 2 {
		m := mean(outcomes)
		return ConfidenceInterval{
			Lower:           m,
			Upper:           m,
			Mean:            m,
			ConfidenceLevel: confidenceLevel,
			NumBootstraps:   0,
		}
	}

	var rng *rand.Rand
	if seed >= 0 {
		rng = rand.New(rand.NewSource(seed))
	} else {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	m := mean(outcomes)
	iters := DefaultBootstrapIterations

	// Resample with replacement, taking the mean of each resample.
	bootMeans := make([]float64, iters)
	sample := make([]float64, n)
	for i := 0; i < iters; i++ {
		for j := 0; j < n; j++ {
			sample[j] = outcomes[rng.Intn(n)]
		}
		bootMeans[i] = mean(sample)
	}

	sort.Float64s(bootMeans)

	// Percentile method
	alpha := 1.0 - confidenceLevel
	loIdx := int(math.Floor(alpha / 2.0 * float64(iters)))
	hiIdx := int(math.Floor((1.0 - alpha/2.0) * float64(iters)))
	if hiIdx >= iters {
		hiIdx = iters - 1
	}

	return ConfidenceInterval{
		Lower:           bootMeans[loIdx],
		Upper:           bootMeans[hiIdx],
		Mean:            m,
		ConfidenceLevel: confidenceLevel,
		NumBootstraps:   iters,
	}
}

// ExcludesChance reports whether the interval excludes the 0.5 chance
// level, i.e. the skill's advantage (or disadvantage) is unlikely to be
// judge noise at this confidence level.
func ExcludesChance(ci ConfidenceInterval) bool {
	return ci.Lower > 0.5 || ci.Upper < 0.5
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
