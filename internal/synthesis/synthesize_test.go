package synthesis

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"pait-backend/internal/specialist"
)

func strategyResults() []specialist.Result {
	return []specialist.Result{
		{Role: specialist.RoleTrading, Score: 0.8, Confidence: 0.9, Summary: "solid"},
		{Role: specialist.RoleLegal, Score: 0.6, Confidence: 0.5, Summary: "mixed"},
	}
}

func TestSynthesizeWeightedMean(t *testing.T) {
	got, err := Synthesize(strategyResults(), 2)
	require.NoError(t, err)

	// (0.8*0.9 + 0.6*0.5) / (0.9 + 0.5)
	require.InDelta(t, 0.728571, got.Raw, 1e-6)
	require.Equal(t, 2511, got.Value)
	require.Equal(t, BandFramework, got.Band)
	require.False(t, got.Degraded)
	require.Equal(t, []specialist.Role{specialist.RoleLegal, specialist.RoleTrading}, got.ContributingRoles)
}

func TestSynthesizeDeterministic(t *testing.T) {
	first, err := Synthesize(strategyResults(), 2)
	require.NoError(t, err)
	second, err := Synthesize(strategyResults(), 2)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestSynthesizeCommutative(t *testing.T) {
	results := []specialist.Result{
		{Role: specialist.RoleTrading, Score: 0.81, Confidence: 0.93},
		{Role: specialist.RoleLegal, Score: 0.62, Confidence: 0.41},
		{Role: specialist.RoleMediaForensics, Score: 0.55, Confidence: 0.77},
		{Role: specialist.RoleConcierge, Score: 0.9, Confidence: 0.12},
	}
	want, err := Synthesize(results, 4)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		shuffled := make([]specialist.Result, len(results))
		copy(shuffled, results)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got, err := Synthesize(shuffled, 4)
		require.NoError(t, err)
		require.Equal(t, want, got, "shuffle %d changed the composite", i)
	}
}

func TestSynthesizeDegradedExcludesFailedRole(t *testing.T) {
	// Three required, one timed out: composite covers the two survivors only.
	survivors := []specialist.Result{
		{Role: specialist.RoleTrading, Score: 0.8, Confidence: 0.9},
		{Role: specialist.RoleLegal, Score: 0.6, Confidence: 0.5},
	}
	got, err := Synthesize(survivors, 3)
	require.NoError(t, err)
	require.True(t, got.Degraded)
	require.InDelta(t, 0.728571, got.Raw, 1e-6)
	require.Len(t, got.ContributingRoles, 2)
}

func TestSynthesizeSingleSurvivor(t *testing.T) {
	got, err := Synthesize([]specialist.Result{
		{Role: specialist.RoleTrading, Score: 0.8, Confidence: 0.9},
	}, 2)
	require.NoError(t, err)
	require.True(t, got.Degraded)
	require.InDelta(t, 0.8, got.Raw, 1e-9)
	require.Equal(t, 2640, got.Value)
	require.Equal(t, BandFramework, got.Band)
}

func TestSynthesizeZeroConfidenceFallsBackToMean(t *testing.T) {
	got, err := Synthesize([]specialist.Result{
		{Role: specialist.RoleTrading, Score: 0.4, Confidence: 0},
		{Role: specialist.RoleLegal, Score: 0.8, Confidence: 0},
	}, 2)
	require.NoError(t, err)
	require.InDelta(t, 0.6, got.Raw, 1e-9)
	require.Equal(t, 2280, got.Value)
	require.Equal(t, BandStrategic, got.Band)
}

func TestSynthesizeEmptyIsAnError(t *testing.T) {
	_, err := Synthesize(nil, 2)
	require.ErrorIs(t, err, ErrNoResults)
}

func TestBandThresholds(t *testing.T) {
	cases := []struct {
		raw  float64
		band Band
	}{
		{1.0, BandFramework},
		{0.67, BandFramework}, // 2406
		{0.66, BandStrategic}, // 2388
		{0.45, BandStrategic}, // 2010
		{0.44, BandWorking},   // 1992
		{0.23, BandWorking},   // 1614
		{0.22, BandLearning},  // 1596
		{0.0, BandLearning},   // 1200
	}
	for _, tc := range cases {
		got, err := Synthesize([]specialist.Result{
			{Role: specialist.RoleTrading, Score: tc.raw, Confidence: 1},
		}, 1)
		require.NoError(t, err)
		require.Equal(t, tc.band, got.Band, "raw %v (value %d)", tc.raw, got.Value)
	}
}
