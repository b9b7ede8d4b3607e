package msw

import (
	"github.com/notargets/goreservoir/ad"
	"github.com/notargets/goreservoir/reservoir"
	"github.com/notargets/goreservoir/types"
)

// computeSegmentFluidProperties evaluates density, viscosity and mass rate of
// the homogeneous mixture in every segment. The PVT region and temperature of
// the first perforated cell apply to the whole well.
func (w *MultisegmentWell) computeSegmentFluidProperties(problem reservoir.Problem) {
	var (
		first    = problem.CellState(w.wellCells[0])
		T        = first.Temperature
		reg      = first.PvtRegion
		pu       = w.phases
		np       = pu.NumPhases
		surfDens = make([]float64, np)
		oilPos   = pu.Pos[types.Oil]
		gasPos   = pu.Pos[types.Gas]
		hasGas   = pu.Active[types.Gas]
	)
	for c := 0; c < np; c++ {
		surfDens[c] = w.fluid.SurfaceDensity(pu.PhaseAt(c), reg)
	}
	for seg := range w.primaryVariables {
		var (
			mixS   = make([]ad.Eval, np)
			b      = make([]ad.Eval, np)
			visc   = make([]ad.Eval, np)
			p      = w.segmentPressure(seg)
			rs, rv ad.Eval
		)
		for c := range mixS {
			mixS[c] = w.surfaceVolumeFraction(seg, c)
		}
		if pu.Active[types.Water] {
			wp := pu.Pos[types.Water]
			b[wp] = w.fluid.Water().InverseFormationVolumeFactor(reg, T, p)
			visc[wp] = w.fluid.Water().Viscosity(reg, T, p)
		}
		if hasGas {
			gas := w.fluid.Gas()
			if mixS[oilPos].Val > 0 {
				if mixS[gasPos].Val > 0 {
					rv = mixS[oilPos].Div(mixS[gasPos])
				}
				rv = ad.Min(rv, gas.SaturatedOilVaporizationFactor(reg, T, p))
				b[gasPos] = gas.InverseFormationVolumeFactor(reg, T, p, rv)
				visc[gasPos] = gas.Viscosity(reg, T, p, rv)
			} else {
				b[gasPos] = gas.SaturatedInverseFormationVolumeFactor(reg, T, p)
				visc[gasPos] = gas.SaturatedViscosity(reg, T, p)
			}
		}
		oil := w.fluid.Oil()
		switch {
		case !hasGas:
			b[oilPos] = oil.InverseFormationVolumeFactor(reg, T, p, rs)
			visc[oilPos] = oil.Viscosity(reg, T, p, rs)
		case mixS[gasPos].Val > 0:
			if mixS[oilPos].Val > 0 {
				rs = mixS[gasPos].Div(mixS[oilPos])
			}
			rs = ad.Min(rs, oil.SaturatedGasDissolutionFactor(reg, T, p))
			b[oilPos] = oil.InverseFormationVolumeFactor(reg, T, p, rs)
			visc[oilPos] = oil.Viscosity(reg, T, p, rs)
		default:
			b[oilPos] = oil.SaturatedInverseFormationVolumeFactor(reg, T, p)
			visc[oilPos] = oil.SaturatedViscosity(reg, T, p)
		}

		// Reservoir condition volumes of the free phases.
		mix := append([]ad.Eval(nil), mixS...)
		if hasGas {
			d := ad.Constant(1).Sub(rs.Mul(rv))
			if rs.Val != 0 {
				mix[gasPos] = mixS[gasPos].Sub(mixS[oilPos].Mul(rs)).Div(d)
			}
			if rv.Val != 0 {
				mix[oilPos] = mixS[oilPos].Sub(mixS[gasPos].Mul(rv)).Div(d)
			}
		}
		var volrat ad.Eval
		for c := range mix {
			volrat = volrat.Add(mix[c].Div(b[c]))
		}

		var viscosity, density, massRate ad.Eval
		for c := range mix {
			viscosity = viscosity.Add(visc[c].Mul(mix[c].Div(b[c]).Div(volrat)))
			density = density.Add(mixS[c].Scale(surfDens[c]))
			massRate = massRate.Add(w.segmentRate(seg, c).Scale(surfDens[c]))
		}
		w.segmentViscosities[seg] = viscosity
		w.segmentDensities[seg] = density.Div(volrat)
		w.segmentMassRates[seg] = massRate
	}
}
