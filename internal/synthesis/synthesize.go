package synthesis

import (
	"errors"
	"math"
	"sort"

	"pait-backend/internal/specialist"
)

// Band is the named classification for a composite score.
type Band string

const (
	BandFramework Band = "Framework"
	BandStrategic Band = "Strategic"
	BandWorking   Band = "Working"
	BandLearning  Band = "Learning"
	BandUnrated   Band = "Unrated"
)

// Display scale bounds for the composite rating.
const (
	ScaleMin = 1200
	ScaleMax = 3000
)

// ErrNoResults indicates synthesis was attempted with zero successful
// results; the caller must treat the session as wholly failed instead.
var ErrNoResults = errors.New("no successful results to synthesize")

// Composite is the derived trust rating. Never mutated after creation.
type Composite struct {
	Value             int               `json:"value"` // 1200..3000 display scale
	Raw               float64           `json:"raw"`   // 0..1 internal
	Band              Band              `json:"band"`
	ContributingRoles []specialist.Role `json:"contributingRoles"`
	Degraded          bool              `json:"degraded"`
}

// Synthesize reduces the successful specialist results into one composite.
// requiredRoles is how many specialists the intent asked for; fewer
// contributions than that marks the composite degraded.
//
// The reduction is deterministic and order-independent: inputs are sorted
// by role before any floating-point accumulation, so shuffled input yields
// a bit-identical composite.
func Synthesize(results []specialist.Result, requiredRoles int) (Composite, error) {
	if len(results) == 0 {
		return Composite{}, ErrNoResults
	}

	sorted := make([]specialist.Result, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Role < sorted[j].Role })

	var weightedSum, confidenceSum float64
	roles := make([]specialist.Role, 0, len(sorted))
	for _, r := range sorted {
		weightedSum += r.Score * r.Confidence
		confidenceSum += r.Confidence
		roles = append(roles, r.Role)
	}

	var raw float64
	if confidenceSum == 0 {
		// Every contributor reported zero confidence; fall back to the
		// unweighted mean rather than divide by zero.
		var sum float64
		for _, r := range sorted {
			sum += r.Score
		}
		raw = sum / float64(len(sorted))
	} else {
		raw = weightedSum / confidenceSum
	}

	value := scale(raw)
	return Composite{
		Value:             value,
		Raw:               raw,
		Band:              bandFor(value),
		ContributingRoles: roles,
		Degraded:          len(sorted) < requiredRoles,
	}, nil
}

func scale(raw float64) int {
	if raw < 0 {
		raw = 0
	}
	if raw > 1 {
		raw = 1
	}
	return int(math.Round(ScaleMin + raw*(ScaleMax-ScaleMin)))
}

func bandFor(value int) Band {
	switch {
	case value >= 2400:
		return BandFramework
	case value >= 2000:
		return BandStrategic
	case value >= 1600:
		return BandWorking
	case value >= 1200:
		return BandLearning
	default:
		return BandUnrated
	}
}
