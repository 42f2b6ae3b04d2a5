// Package cosmology converts redshifts into distances under a flat ΛCDM model.
package cosmology

import (
	"fmt"
	"math"
)

// SpeedOfLight in km/s.
const SpeedOfLight = 299792.458

const simpsonSteps = 1000

// FlatLambdaCDM is a flat universe with matter and a cosmological constant; radiation is ignored.
type FlatLambdaCDM struct {
	h0  float64
	om0 float64
	ode float64
}

// NewFlatLambdaCDM validates the Hubble constant (km/s/Mpc) and matter density fraction.
func NewFlatLambdaCDM(h0, om0 float64) (FlatLambdaCDM, error) {
	if !(h0 > 0) || math.IsInf(h0, 0) {
		return FlatLambdaCDM{}, fmt.Errorf("hubble constant must be positive, got %v", h0)
	}
	if !(om0 >= 0 && om0 <= 1) {
		return FlatLambdaCDM{}, fmt.Errorf("matter density must be within [0, 1], got %v", om0)
	}
	return FlatLambdaCDM{h0: h0, om0: om0, ode: 1 - om0}, nil
}

// H0 returns the Hubble constant in km/s/Mpc.
func (c FlatLambdaCDM) H0() float64 { return c.h0 }

// Om0 returns the matter density fraction.
func (c FlatLambdaCDM) Om0() float64 { return c.om0 }

// HubbleDistance is c/H0 in Mpc.
func (c FlatLambdaCDM) HubbleDistance() float64 {
	return SpeedOfLight / c.h0
}

// ComovingDistance returns the line-of-sight comoving distance in Mpc.
func (c FlatLambdaCDM) ComovingDistance(z float64) float64 {
	if z == 0 {
		return 0
	}
	return c.HubbleDistance() * simpson(c.inverseE, 0, z, simpsonSteps)
}

// LuminosityDistance returns the luminosity distance in Mpc, or NaN when the redshift is absent or unusable.
func (c FlatLambdaCDM) LuminosityDistance(redshift *float64) float64 {
	if redshift == nil {
		return math.NaN()
	}
	z := *redshift
	if math.IsNaN(z) || math.IsInf(z, 0) || z <= -1 {
		return math.NaN()
	}
	return (1 + z) * c.ComovingDistance(z)
}

func (c FlatLambdaCDM) inverseE(z float64) float64 {
	zp1 := 1 + z
	return 1 / math.Sqrt(c.om0*zp1*zp1*zp1+c.ode)
}

// simpson integrates f over [a, b] with the composite Simpson rule; n must be even.
func simpson(f func(float64) float64, a, b float64, n int) float64 {
	h := (b - a) / float64(n)
	sum := f(a) + f(b)
	for i := 1; i < n; i++ {
		x := a + float64(i)*h
		if i%2 == 1 {
			sum += 4 * f(x)
		} else {
			sum += 2 * f(x)
		}
	}
	return sum * h / 3
}
