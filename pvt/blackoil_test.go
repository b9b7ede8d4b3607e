package pvt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"

	"github.com/notargets/goreservoir/ad"
	"github.com/notargets/goreservoir/types"
)

func TestBlackOil(t *testing.T) {
	bo, err := NewBlackOil([]RegionParams{DefaultRegionParams()})
	require.NoError(t, err)
	var (
		T    = 350.
		pref = 1.e7
		zero = ad.Constant(0)
	)
	{ // Test reference values
		assert.Equal(t, 1, bo.NumRegions())
		assert.Equal(t, 800., bo.SurfaceDensity(types.Oil, 0))
		assert.InDelta(t, 1./1.01, bo.Water().InverseFormationVolumeFactor(0, T, ad.Constant(pref)).Val, 1.e-14)
		assert.InDelta(t, 5.e-4, bo.Water().Viscosity(0, T, ad.Constant(pref)).Val, 1.e-14)
		assert.InDelta(t, 1./1.05, bo.Oil().InverseFormationVolumeFactor(0, T, ad.Constant(pref), zero).Val, 1.e-14)
		assert.InDelta(t, 100., bo.Gas().InverseFormationVolumeFactor(0, T, ad.Constant(pref), zero).Val, 1.e-10)
		assert.InDelta(t, 2.e-5, bo.Gas().Viscosity(0, T, ad.Constant(pref), zero).Val, 1.e-14)
	}
	{ // Test saturation tables interpolate and hold their end values
		rs := bo.Oil().SaturatedGasDissolutionFactor(0, T, ad.Variable(2.e7, 0))
		assert.InDelta(t, 85., rs.Val, 1.e-10)
		assert.InDelta(t, 70./2.e7, rs.Derivative(0), 1.e-16)
		rv := bo.Gas().SaturatedOilVaporizationFactor(0, T, ad.Variable(4.e7, 0))
		assert.InDelta(t, 2.5e-4, rv.Val, 1.e-16)
		assert.InDelta(t, 1.e-4/2.e7, rv.Derivative(0), 1.e-20)
		rs = bo.Oil().SaturatedGasDissolutionFactor(0, T, ad.Variable(6.e7, 0))
		assert.InDelta(t, 180., rs.Val, 1.e-10)
		assert.Equal(t, 0., rs.Derivative(0))
		rs = bo.Oil().SaturatedGasDissolutionFactor(0, T, ad.Variable(1.e3, 0))
		assert.InDelta(t, 0., rs.Val, 1.e-10)
		assert.Equal(t, 0., rs.Derivative(0))
		// a node takes the slope of the interval on its left
		rs = bo.Oil().SaturatedGasDissolutionFactor(0, T, ad.Variable(1.e7, 0))
		assert.InDelta(t, 50., rs.Val, 1.e-10)
		assert.InDelta(t, 50./(1.e7-1.e5), rs.Derivative(0), 1.e-16)
		rs = bo.Oil().SaturatedGasDissolutionFactor(0, T, ad.Variable(1.e5, 0))
		assert.InDelta(t, 50./(1.e7-1.e5), rs.Derivative(0), 1.e-16)
	}
	{ // Test pressure derivatives of saturated properties against finite differences
		p0 := 2.2e7
		checks := []struct {
			name string
			f    func(p ad.Eval) ad.Eval
		}{
			{"water b", func(p ad.Eval) ad.Eval { return bo.Water().InverseFormationVolumeFactor(0, T, p) }},
			{"oil b", func(p ad.Eval) ad.Eval { return bo.Oil().SaturatedInverseFormationVolumeFactor(0, T, p) }},
			{"oil mu", func(p ad.Eval) ad.Eval { return bo.Oil().SaturatedViscosity(0, T, p) }},
			{"gas b", func(p ad.Eval) ad.Eval { return bo.Gas().SaturatedInverseFormationVolumeFactor(0, T, p) }},
			{"gas mu", func(p ad.Eval) ad.Eval { return bo.Gas().SaturatedViscosity(0, T, p) }},
		}
		for _, c := range checks {
			got := c.f(ad.Variable(p0, 1)).Derivative(1)
			want := fd.Derivative(func(p float64) float64 { return c.f(ad.Constant(p)).Val },
				p0, &fd.Settings{Formula: fd.Central, Step: 10.})
			assert.InDeltaf(t, want, got, 1.e-6*(1.e-12+abs(want)), "%s", c.name)
		}
	}
	{ // Test invalid tables
		rp := DefaultRegionParams()
		rp.Oil.SatRs = rp.Oil.SatRs[:2]
		_, err = NewBlackOil([]RegionParams{rp})
		assert.Error(t, err)
		rp = DefaultRegionParams()
		rp.Gas.SatPressures = []float64{2, 1, 3, 4}
		_, err = NewBlackOil([]RegionParams{rp})
		assert.Error(t, err)
		_, err = NewBlackOil(nil)
		assert.Error(t, err)
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
