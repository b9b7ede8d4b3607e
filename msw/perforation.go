package msw

import (
	"fmt"

	"github.com/notargets/goreservoir/ad"
	"github.com/notargets/goreservoir/reservoir"
	"github.com/notargets/goreservoir/types"
)

// mobility returns the phase mobilities at a perforation in the well's
// derivative layout. A perforation with its own saturation table re-evaluates
// relative permeability for that table.
func (w *MultisegmentWell) mobility(problem reservoir.Problem, perf int) (mob []ad.Eval) {
	var (
		cell  = w.wellCells[perf]
		st    = problem.CellState(cell)
		satID = w.satTable[perf] - 1
		phMob [types.MaxPhases]ad.Eval
	)
	if satID < 0 || satID == st.SatRegion {
		phMob = st.Mobility
	} else {
		phMob = problem.ConnectionMobility(cell, satID)
	}
	mob = make([]ad.Eval, w.numComponents())
	for c := range mob {
		mob[c] = phMob[w.phases.PhaseAt(c)].Extend(w.numEq)
	}
	return
}

// computePerfRate returns the surface rates of every component through one
// perforation. Rates are negative for flow from the reservoir into the well.
func (w *MultisegmentWell) computePerfRate(st *reservoir.CellState, mob []ad.Eval, seg, perf int,
	segPressure ad.Eval) (cqS []ad.Eval, err error) {
	var (
		nc     = w.numComponents()
		pu     = w.phases
		cmixS  = make([]ad.Eval, nc)
		bPerf  = make([]ad.Eval, nc)
		pCell  = st.Pressure.Extend(w.numEq)
		rs     = st.Rs.Extend(w.numEq)
		rv     = st.Rv.Extend(w.numEq)
		oilPos = pu.Pos[types.Oil]
		gasPos = pu.Pos[types.Gas]
		hasGas = pu.Active[types.Gas]
	)
	cqS = make([]ad.Eval, nc)
	for c := 0; c < nc; c++ {
		cmixS[c] = w.surfaceVolumeFraction(seg, c)
		bPerf[c] = st.InvB[pu.PhaseAt(c)].Extend(w.numEq)
	}
	var (
		perfSegPressDiff = w.segmentDensities[seg].Scale(w.params.Gravity * w.tp.perfDepthDiffs[perf])
		drawdown         = pCell.AddScalar(w.cellPerfPressureDiffs[perf]).Sub(segPressure.Add(perfSegPressDiff))
	)
	if drawdown.Val > 0 { // producing perforation
		if !w.allowCrossFlow && w.IsInjector() {
			return
		}
		for c := 0; c < nc; c++ {
			cqP := mob[c].Mul(drawdown).Scale(-w.wellIndex[perf])
			cqS[c] = bPerf[c].Mul(cqP)
		}
		if hasGas {
			oilRate, gasRate := cqS[oilPos], cqS[gasPos]
			cqS[gasPos] = cqS[gasPos].Add(rs.Mul(oilRate))
			cqS[oilPos] = cqS[oilPos].Add(rv.Mul(gasRate))
		}
		return
	}
	// injecting perforation
	if !w.allowCrossFlow && w.IsProducer() {
		return
	}
	totalMob := ad.Sum(mob...)
	cqtI := totalMob.Mul(drawdown).Scale(-w.wellIndex[perf])

	// ratio between reservoir and surface volumes of the wellbore mixture
	var volumeRatio ad.Eval
	if pu.Active[types.Water] {
		wp := pu.Pos[types.Water]
		volumeRatio = volumeRatio.Add(cmixS[wp].Div(bPerf[wp]))
	}
	if hasGas {
		d := ad.Constant(1).Sub(rv.Mul(rs))
		if d.Val == 0 {
			err = wellErr(w.name, "perforation rate", fmt.Errorf("%w: zero d value with rs %g and rv %g at perforation %d",
				ErrNumericalProblem, rs.Val, rv.Val, perf))
			return
		}
		tmpOil := cmixS[oilPos].Sub(rv.Mul(cmixS[gasPos])).Div(d)
		volumeRatio = volumeRatio.Add(tmpOil.Div(bPerf[oilPos]))
		tmpGas := cmixS[gasPos].Sub(rs.Mul(cmixS[oilPos])).Div(d)
		volumeRatio = volumeRatio.Add(tmpGas.Div(bPerf[gasPos]))
	} else {
		volumeRatio = volumeRatio.Add(cmixS[oilPos].Div(bPerf[oilPos]))
	}
	cqtIs := cqtI.Div(volumeRatio)
	for c := 0; c < nc; c++ {
		cqS[c] = cmixS[c].Mul(cqtIs)
	}
	return
}

// computePerfCellPressDiffs sets the hydrostatic pressure difference between
// each perforated cell center and its perforation, using the
// relative-permeability weighted phase density of the cell.
func (w *MultisegmentWell) computePerfCellPressDiffs(problem reservoir.Problem) (err error) {
	for perf, cell := range w.wellCells {
		var (
			st             = problem.CellState(cell)
			sumKr, avgDens float64
		)
		for c := 0; c < w.numComponents(); c++ {
			ph := w.phases.PhaseAt(c)
			sumKr += st.RelPerm[ph]
			avgDens += st.RelPerm[ph] * st.Density[ph]
		}
		if sumKr == 0 {
			return wellErr(w.name, "explicit quantities",
				fmt.Errorf("%w: perforation %d in cell %d", ErrZeroMobility, perf, cell))
		}
		avgDens /= sumKr
		w.cellPerfPressureDiffs[perf] = w.params.Gravity * avgDens * w.cellPerfDepthDiffs[perf]
	}
	return
}

// computeInitialComposition stores the surface volume fractions at the start of the step.
func (w *MultisegmentWell) computeInitialComposition() {
	for seg := range w.segmentCompInitial {
		for c := range w.segmentCompInitial[seg] {
			w.segmentCompInitial[seg][c] = w.surfaceVolumeFraction(seg, c).Val
		}
	}
}

// CalculateExplicitQuantities evaluates the quantities held fixed during a time step.
func (w *MultisegmentWell) CalculateExplicitQuantities(problem reservoir.Problem) (err error) {
	if err = w.computePerfCellPressDiffs(problem); err != nil {
		return
	}
	w.computeInitialComposition()
	return
}
