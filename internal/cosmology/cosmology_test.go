package cosmology

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func defaultModel(t *testing.T) FlatLambdaCDM {
	t.Helper()
	c, err := NewFlatLambdaCDM(70, 0.3)
	require.NoError(t, err)
	return c
}

func TestNewFlatLambdaCDMValidates(t *testing.T) {
	t.Parallel()

	_, err := NewFlatLambdaCDM(0, 0.3)
	assert.Error(t, err)
	_, err = NewFlatLambdaCDM(math.NaN(), 0.3)
	assert.Error(t, err)
	_, err = NewFlatLambdaCDM(70, 1.2)
	assert.Error(t, err)
	_, err = NewFlatLambdaCDM(70, -0.1)
	assert.Error(t, err)
}

func TestLuminosityDistanceKnownValues(t *testing.T) {
	t.Parallel()

	c := defaultModel(t)

	assert.Equal(t, 0.0, c.LuminosityDistance(ptr(0)))
	assert.InDelta(t, 87.0, c.LuminosityDistance(ptr(0.02)), 0.5)
	assert.InDelta(t, 6607.7, c.LuminosityDistance(ptr(1)), 5)
}

func TestLuminosityDistanceMatterOnlyClosedForm(t *testing.T) {
	t.Parallel()

	c, err := NewFlatLambdaCDM(70, 1)
	require.NoError(t, err)

	for _, z := range []float64{0.01, 0.5, 2, 6} {
		want := (1 + z) * 2 * c.HubbleDistance() * (1 - 1/math.Sqrt(1+z))
		assert.InDelta(t, want, c.LuminosityDistance(ptr(z)), want*1e-6, "z=%v", z)
	}
}

func TestLuminosityDistanceInvalidRedshift(t *testing.T) {
	t.Parallel()

	c := defaultModel(t)

	assert.True(t, math.IsNaN(c.LuminosityDistance(nil)))
	assert.True(t, math.IsNaN(c.LuminosityDistance(ptr(math.NaN()))))
	assert.True(t, math.IsNaN(c.LuminosityDistance(ptr(math.Inf(1)))))
	assert.True(t, math.IsNaN(c.LuminosityDistance(ptr(-1))))
	assert.Less(t, c.LuminosityDistance(ptr(-0.001)), 0.0)
}

func TestLuminosityDistanceProperties(t *testing.T) {
	c := defaultModel(t)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("distance is deterministic", prop.ForAll(
		func(z float64) bool {
			return c.LuminosityDistance(ptr(z)) == c.LuminosityDistance(ptr(z))
		},
		gen.Float64Range(0, 10),
	))

	properties.Property("positive redshift yields positive finite distance", prop.ForAll(
		func(z float64) bool {
			d := c.LuminosityDistance(ptr(z))
			return d > 0 && !math.IsInf(d, 0) && !math.IsNaN(d)
		},
		gen.Float64Range(1e-6, 10),
	))

	properties.Property("distance grows with redshift", prop.ForAll(
		func(z, dz float64) bool {
			return c.LuminosityDistance(ptr(z)) < c.LuminosityDistance(ptr(z+dz))
		},
		gen.Float64Range(0, 5),
		gen.Float64Range(1e-3, 1),
	))

	properties.TestingRun(t)
}
