// Package synth draws the synthetic customer attributes. Every sampler takes
// the caller's *rand.Rand so a run is reproducible from its seed alone.
package synth

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
)

// DefaultSeed matches the seed used by the published dataset.
const DefaultSeed uint64 = 42

// ErrInvalidWeights is returned when a weight table is not a distribution.
var ErrInvalidWeights = errors.New("invalid categorical weights")

// Satisfaction weights over scores 1..5.
var (
	ChurnedSatisfactionWeights  = []float64{0.4, 0.3, 0.2, 0.05, 0.05}
	RetainedSatisfactionWeights = []float64{0.05, 0.05, 0.2, 0.4, 0.3}
)

// Usage parameters per InternetService value, in GB/month.
type usageParams struct{ mean, stddev float64 }

var usageByService = map[string]usageParams{
	"Fiber optic": {mean: 150, stddev: 50},
	"DSL":         {mean: 50, stddev: 20},
}

// Retention horizon bounds in months, inclusive.
const (
	MinHorizonMonths = 6
	MaxHorizonMonths = 36
)

// Ticket rates for the Poisson draw.
const (
	ChurnedTicketRate  = 2.0
	RetainedTicketRate = 0.5
)

const weightTolerance = 1e-9

// NewRand returns the single generator a run draws from.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))
}

// ValidateWeights checks that w is non-empty, non-negative and sums to 1.
func ValidateWeights(w []float64) error {
	if len(w) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidWeights)
	}
	var sum float64
	for i, p := range w {
		if p < 0 || math.IsNaN(p) {
			return fmt.Errorf("%w: weight[%d]=%v", ErrInvalidWeights, i, p)
		}
		sum += p
	}
	if math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("%w: sum=%v", ErrInvalidWeights, sum)
	}
	return nil
}

// ValidateDefaults validates both satisfaction tables.
func ValidateDefaults() error {
	if err := ValidateWeights(ChurnedSatisfactionWeights); err != nil {
		return fmt.Errorf("churned satisfaction: %w", err)
	}
	if err := ValidateWeights(RetainedSatisfactionWeights); err != nil {
		return fmt.Errorf("retained satisfaction: %w", err)
	}
	return nil
}

// Categorical returns an index in [0, len(w)) drawn with probabilities w.
// One uniform value is consumed per call.
func Categorical(r *rand.Rand, w []float64) int {
	u := r.Float64()
	var cum float64
	for i, p := range w {
		cum += p
		if u < cum {
			return i
		}
	}
	return len(w) - 1
}

// Satisfaction draws a 1..5 score.
func Satisfaction(r *rand.Rand, churned bool) int {
	w := RetainedSatisfactionWeights
	if churned {
		w = ChurnedSatisfactionWeights
	}
	return Categorical(r, w) + 1
}

// DataUsage draws monthly usage for the service type, floored at 0 and
// rounded to one decimal. Unknown services return 0 without drawing.
func DataUsage(r *rand.Rand, service string) float64 {
	p, ok := usageByService[service]
	if !ok {
		return 0
	}
	v := r.NormFloat64()*p.stddev + p.mean
	if v < 0 {
		v = 0
	}
	return Round(v, 1)
}

// Horizon draws a retention horizon in [MinHorizonMonths, MaxHorizonMonths].
func Horizon(r *rand.Rand) int {
	return MinHorizonMonths + r.IntN(MaxHorizonMonths-MinHorizonMonths+1)
}

// CLTV combines historical value with projected value over horizon months.
// Churned customers have no projected value.
func CLTV(total, monthly float64, horizon int, churned bool) float64 {
	future := 0.0
	if !churned {
		future = monthly * float64(horizon)
	}
	return Round(total+future, 2)
}

// Tickets draws last month's support ticket count.
func Tickets(r *rand.Rand, churned bool) int {
	if churned {
		return Poisson(r, ChurnedTicketRate)
	}
	return Poisson(r, RetainedTicketRate)
}

// Poisson uses Knuth's multiplication method, fine for the small rates here.
func Poisson(r *rand.Rand, lambda float64) int {
	if lambda <= 0 {
		return 0
	}
	limit := math.Exp(-lambda)
	k := 0
	p := r.Float64()
	for p > limit {
		k++
		p *= r.Float64()
	}
	return k
}

// Round rounds half away from zero to the given number of decimals.
func Round(v float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(v*pow) / pow
}
