package msw

import (
	"fmt"

	"github.com/notargets/goreservoir/reservoir"
	"github.com/notargets/goreservoir/types"
	"github.com/notargets/goreservoir/utils"
	"github.com/notargets/goreservoir/wellstate"
)

// BeginTimeStep loads the primary variables from the well state and computes
// the quantities held fixed over the step.
func (w *MultisegmentWell) BeginTimeStep(problem reservoir.Problem, state *wellstate.WellState) (err error) {
	w.UpdatePrimaryVariables(state)
	return w.CalculateExplicitQuantities(problem)
}

// UpdatePrimaryVariables sets the primary variables and their evaluations from
// the segment rates and pressures held in the well state.
func (w *MultisegmentWell) UpdatePrimaryVariables(state *wellstate.WellState) {
	var (
		pu  = w.phases
		np  = pu.NumPhases
		top = state.TopSegmentLoc[w.indexOfWell]
	)
	for seg, pv := range w.primaryVariables {
		var (
			loc   = top + seg
			rates = state.SegRates[loc*np : (loc+1)*np]
			total float64
		)
		pv[w.sPres] = state.SegPress[loc]
		for c := 0; c < np; c++ {
			total += w.scalingFactor(c) * rates[c]
		}
		pv[GTotal] = total
		switch {
		case total != 0:
			if pu.Active[types.Water] {
				c := pu.Pos[types.Water]
				pv[w.wFrac] = w.scalingFactor(c) * rates[c] / total
			}
			if pu.Active[types.Gas] {
				c := pu.Pos[types.Gas]
				pv[w.gFrac] = w.scalingFactor(c) * rates[c] / total
			}
		case w.IsInjector():
			if pu.Active[types.Water] {
				pv[w.wFrac] = 0
				if w.control.Distr[pu.Pos[types.Water]] > 0 {
					pv[w.wFrac] = 1
				}
			}
			if pu.Active[types.Gas] {
				pv[w.gFrac] = 0
				if w.control.Distr[pu.Pos[types.Gas]] > 0 {
					pv[w.gFrac] = 1
				}
			}
		default:
			if pu.Active[types.Water] {
				pv[w.wFrac] = 1. / float64(np)
			}
			if pu.Active[types.Gas] {
				pv[w.gFrac] = 1. / float64(np)
			}
		}
	}
	w.InitPrimaryVariablesEvaluation()
}

// UpdateWellStateWithTarget uses the active control target as the initial
// guess of the well state, then reloads the primary variables.
func (w *MultisegmentWell) UpdateWellStateWithTarget(state *wellstate.WellState) {
	var (
		ctrl = w.control
		iw   = w.indexOfWell
		np   = w.phases.NumPhases
		top  = state.TopSegmentLoc[iw]
		rate = state.WellRates[iw*np : (iw+1)*np]
	)
	switch ctrl.Type {
	case types.BHP:
		state.Bhp[iw] = ctrl.Target
		state.SegPress[top] = ctrl.Target
	case types.THP:
		state.Thp[iw] = ctrl.Target
	case types.SurfaceRate, types.ReservoirRate:
		nControlled := ctrl.phasesUnderControl()
		if w.IsInjector() {
			for p := range rate {
				rate[p] = 0
				if d := ctrl.Distr[p]; d > 0 {
					rate[p] = ctrl.Target / d
				}
			}
			w.InitSegmentRatesWithWellRates(state)
			break
		}
		var current float64
		for p := range rate {
			if d := ctrl.Distr[p]; d > 0 {
				current += rate[p] * d
			}
		}
		if current != 0 {
			scale := ctrl.Target / current
			for p := range rate {
				rate[p] *= scale
			}
			for i := top * np; i < (top+w.NumberOfSegments())*np; i++ {
				state.SegRates[i] *= scale
			}
			break
		}
		divided := ctrl.Target / float64(nControlled)
		for p := range rate {
			rate[p] = divided
			if d := ctrl.Distr[p]; d > 0 {
				rate[p] = divided / d
			}
		}
		w.InitSegmentRatesWithWellRates(state)
	}
	w.UpdatePrimaryVariables(state)
}

// InitSegmentRatesWithWellRates spreads the well rates evenly over the
// perforations and accumulates them up the segment tree.
func (w *MultisegmentWell) InitSegmentRatesWithWellRates(state *wellstate.WellState) {
	var (
		iw    = w.indexOfWell
		np    = w.phases.NumPhases
		nperf = len(w.wellCells)
		perfs = state.PerfPhaseRates[w.firstPerf*np : (w.firstPerf+nperf)*np]
		top   = state.TopSegmentLoc[iw]
	)
	for p := 0; p < np; p++ {
		perfRate := state.WellRates[iw*np+p] / float64(nperf)
		for perf := 0; perf < nperf; perf++ {
			perfs[perf*np+p] = perfRate
		}
	}
	segRates := wellstate.CalculateSegmentRates(w.tp.inlets, w.tp.perforations, perfs, np)
	copy(state.SegRates[top*np:], segRates)
}

// updateWellState applies the Newton update dwells with fraction and pressure
// changes limited, relaxed during inner iterations.
func (w *MultisegmentWell) updateWellState(dwells []float64, inner bool, state *wellstate.WellState) {
	var (
		relax = 1.
		nwe   = w.numWellEq
	)
	if w.params.UseInnerIterations && inner {
		relax = w.params.InnerRelaxation
	}
	for seg, pv := range w.primaryVariables {
		dx := dwells[seg*nwe : (seg+1)*nwe]
		if w.wFrac >= 0 {
			pv[w.wFrac] -= utils.LimitMagnitude(dx[w.wFrac], relax*w.params.DwellFractionMax)
		}
		if w.gFrac >= 0 {
			pv[w.gFrac] -= utils.LimitMagnitude(dx[w.gFrac], relax*w.params.DwellFractionMax)
		}
		w.processFractions(seg)
		pv[w.sPres] -= utils.LimitMagnitude(dx[w.sPres], relax*w.params.MaxPressureChangeMsWells)
		pv[GTotal] -= relax * dx[GTotal]
	}
	w.updateWellStateFromPrimaryVariables(state)
	w.InitPrimaryVariablesEvaluation()
}

// processFractions clamps negative phase fractions to zero and renormalizes
// the remaining ones.
func (w *MultisegmentWell) processFractions(seg int) {
	var (
		pu        = w.phases
		pv        = w.primaryVariables[seg]
		fractions = w.fractions(seg)
		oil       = pu.Pos[types.Oil]
	)
	rescale := func(neg int) {
		for c := range fractions {
			if c != neg {
				fractions[c] /= 1 - fractions[neg]
			}
		}
		fractions[neg] = 0
	}
	if pu.Active[types.Water] && fractions[pu.Pos[types.Water]] < 0 {
		rescale(pu.Pos[types.Water])
	}
	if pu.Active[types.Gas] && fractions[pu.Pos[types.Gas]] < 0 {
		rescale(pu.Pos[types.Gas])
	}
	if fractions[oil] < 0 {
		rescale(oil)
	}
	if pu.Active[types.Water] {
		pv[w.wFrac] = fractions[pu.Pos[types.Water]]
	}
	if pu.Active[types.Gas] {
		pv[w.gFrac] = fractions[pu.Pos[types.Gas]]
	}
}

// fractions returns the phase fractions of a segment with oil as the remainder.
func (w *MultisegmentWell) fractions(seg int) (f []float64) {
	var (
		pu  = w.phases
		pv  = w.primaryVariables[seg]
		oil = pu.Pos[types.Oil]
	)
	f = make([]float64, pu.NumPhases)
	f[oil] = 1
	if pu.Active[types.Water] {
		f[pu.Pos[types.Water]] = pv[w.wFrac]
		f[oil] -= pv[w.wFrac]
	}
	if pu.Active[types.Gas] {
		f[pu.Pos[types.Gas]] = pv[w.gFrac]
		f[oil] -= pv[w.gFrac]
	}
	return
}

func (w *MultisegmentWell) updateWellStateFromPrimaryVariables(state *wellstate.WellState) {
	var (
		iw  = w.indexOfWell
		np  = w.phases.NumPhases
		top = state.TopSegmentLoc[iw]
	)
	for seg, pv := range w.primaryVariables {
		f := w.fractions(seg)
		for p := range f {
			// phases without a scaling factor carry no rate
			if scale := w.scalingFactor(p); scale > 0 {
				f[p] /= scale
			} else {
				f[p] = 0
			}
			rate := pv[GTotal] * f[p]
			state.SegRates[(top+seg)*np+p] = rate
			if seg == 0 {
				state.WellRates[iw*np+p] = rate
			}
		}
		state.SegPress[top+seg] = pv[w.sPres]
		if seg == 0 {
			state.Bhp[iw] = pv[w.sPres]
		}
	}
}

// SolveEqAndUpdateWellState solves the assembled well equations with the
// reservoir frozen and applies the update.
func (w *MultisegmentWell) SolveEqAndUpdateWellState(state *wellstate.WellState) (err error) {
	var dx []float64
	if err = w.initialized("solve"); err != nil {
		return
	}
	if dx, err = w.eq.invDX(); err != nil {
		return wellErr(w.name, "solve", err)
	}
	w.updateWellState(dx, false, state)
	return
}

// RecoverWellSolutionAndUpdateWellState computes the well update belonging to
// the reservoir update x and applies it.
func (w *MultisegmentWell) RecoverWellSolutionAndUpdateWellState(x []float64, state *wellstate.WellState) (err error) {
	var xw []float64
	if err = w.checkReservoirVector(x); err != nil {
		return
	}
	if xw, err = w.eq.recoverSolution(x); err != nil {
		return wellErr(w.name, "recover solution", err)
	}
	w.updateWellState(xw, false, state)
	return
}

// Apply computes Ax -= C^T D^-1 B x.
func (w *MultisegmentWell) Apply(x, Ax []float64) (err error) {
	if err = w.checkReservoirVector(x); err != nil {
		return
	}
	if err = w.checkReservoirVector(Ax); err != nil {
		return
	}
	if err = w.eq.apply(x, Ax); err != nil {
		return wellErr(w.name, "apply", err)
	}
	return
}

// ApplyResidual computes r -= C^T D^-1 resWell.
func (w *MultisegmentWell) ApplyResidual(r []float64) (err error) {
	if err = w.checkReservoirVector(r); err != nil {
		return
	}
	if err = w.eq.applyResidual(r); err != nil {
		return wellErr(w.name, "apply residual", err)
	}
	return
}

// AddWellContributions adds -C^T D^-1 B to the reservoir Jacobian.
func (w *MultisegmentWell) AddWellContributions(sink reservoir.Sink) (err error) {
	if err = w.initialized("add contributions"); err != nil {
		return
	}
	if err = w.eq.addContributions(sink); err != nil {
		return wellErr(w.name, "add contributions", err)
	}
	return
}

func (w *MultisegmentWell) checkReservoirVector(x []float64) (err error) {
	if err = w.initialized("reservoir vector"); err != nil {
		return
	}
	if _, nc := w.eq.B.Dims(); len(x) != nc {
		err = wellErr(w.name, "reservoir vector",
			fmt.Errorf("%w: length %d, expected %d", ErrInvalidArgument, len(x), nc))
	}
	return
}
