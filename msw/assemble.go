package msw

import (
	"fmt"
	"time"

	"github.com/notargets/goreservoir/ad"
	"github.com/notargets/goreservoir/reservoir"
	"github.com/notargets/goreservoir/types"
	"github.com/notargets/goreservoir/wellstate"
)

// AssembleWellEq assembles the well equations for time step dt and, unless
// onlyWells is set, adds the perforation sources to the reservoir sink. With
// inner iterations enabled the well equations are first solved with the
// reservoir frozen.
func (w *MultisegmentWell) AssembleWellEq(problem reservoir.Problem, sink reservoir.Sink, dt float64,
	state *wellstate.WellState, onlyWells bool) (trace []IterationTrace, err error) {
	start := time.Now()
	defer func() { assemblySeconds.Observe(time.Since(start).Seconds()) }()
	if w.params.UseInnerIterations {
		if trace, err = w.IterateWellEquations(problem, dt, state); err != nil {
			return
		}
	}
	err = w.AssembleWellEqWithoutIteration(problem, sink, dt, state, onlyWells)
	return
}

// AssembleWellEqWithoutIteration linearizes the mass balance of every segment,
// the control equation at the top segment and the pressure drop equations of
// the others around the current primary variables.
func (w *MultisegmentWell) AssembleWellEqWithoutIteration(problem reservoir.Problem, sink reservoir.Sink,
	dt float64, state *wellstate.WellState, onlyWells bool) (err error) {
	if err = w.initialized("assemble"); err != nil {
		return
	}
	if dt <= 0 {
		return wellErr(w.name, "assemble", fmt.Errorf("%w: time step size %g", ErrInvalidArgument, dt))
	}
	if !onlyWells && sink == nil {
		return wellErr(w.name, "assemble", fmt.Errorf("%w: nil reservoir sink", ErrInvalidArgument))
	}
	w.computeSegmentFluidProperties(problem)
	w.eq.clear(onlyWells)

	var (
		nc  = w.numComponents()
		nwe = w.numWellEq
		D   = w.eq.D
	)
	for seg := range w.primaryVariables {
		volume := w.tp.segments[seg].Volume
		for c := 0; c < nc; c++ {
			acc := w.surfaceVolumeFraction(seg, c).AddScalar(-w.segmentCompInitial[seg][c]).
				Scale(volume / dt).Add(w.segmentRate(seg, c))
			w.eq.resWell[seg*nwe+c] += acc.Val
			for pv := 0; pv < nwe; pv++ {
				D.AddAt(seg, seg, c, pv, w.wellDerivative(acc, pv))
			}
		}
		for _, inlet := range w.tp.inlets[seg] {
			for c := 0; c < nc; c++ {
				rate := w.segmentRate(inlet, c)
				w.eq.resWell[seg*nwe+c] -= rate.Val
				for pv := 0; pv < nwe; pv++ {
					D.AddAt(seg, inlet, c, pv, -w.wellDerivative(rate, pv))
				}
			}
		}
		segPressure := w.segmentPressure(seg)
		for _, perf := range w.tp.perforations[seg] {
			if err = w.assemblePerforation(problem, sink, state, seg, perf, segPressure, onlyWells); err != nil {
				return
			}
		}
		if seg == 0 {
			err = w.assembleControlEq()
		} else {
			w.assemblePressureEq(seg)
		}
		if err != nil {
			return
		}
	}
	return
}

func (w *MultisegmentWell) assemblePerforation(problem reservoir.Problem, sink reservoir.Sink,
	state *wellstate.WellState, seg, perf int, segPressure ad.Eval, onlyWells bool) (err error) {
	var (
		cell = w.wellCells[perf]
		st   = problem.CellState(cell)
		nwe  = w.numWellEq
		cqS  []ad.Eval
	)
	if cqS, err = w.computePerfRate(st, w.mobility(problem, perf), seg, perf, segPressure); err != nil {
		return
	}
	for c, q := range cqS {
		q = q.Scale(w.efficiencyFactor)
		if !onlyWells {
			sink.AddResidual(cell, c, -q.Val)
		}
		w.eq.resWell[seg*nwe+c] -= q.Val
		for pv := 0; pv < nwe; pv++ {
			d := w.wellDerivative(q, pv)
			if !onlyWells {
				w.eq.C.AddAt(seg, cell, pv, c, -d)
			}
			w.eq.D.AddAt(seg, seg, c, pv, -d)
		}
		if !onlyWells {
			for pv := 0; pv < w.numEq; pv++ {
				d := q.Derivative(pv)
				sink.AddJacobian(cell, cell, c, pv, -d)
				w.eq.B.AddAt(seg, cell, c, pv, -d)
			}
		}
		if state != nil {
			state.PerfPhaseRates[(w.firstPerf+perf)*w.phases.NumPhases+c] = q.Val
		}
	}
	if state != nil {
		state.PerfPress[w.firstPerf+perf] = segPressure.Val +
			w.segmentDensities[seg].Val*w.params.Gravity*w.tp.perfDepthDiffs[perf]
	}
	return
}

// controlEquation returns the residual of the active control at the top segment.
func (w *MultisegmentWell) controlEquation() (ctrlEq ad.Eval, err error) {
	var (
		ctrl = w.control
		np   = w.numComponents()
	)
	switch ctrl.Type {
	case types.BHP:
		ctrlEq = w.segmentPressure(0).AddScalar(-ctrl.Target)
	case types.THP:
		err = ErrTHPNotSupported
	case types.SurfaceRate:
		if ctrl.phasesUnderControl() == 1 {
			for c := 0; c < np; c++ {
				if d := ctrl.Distr[c]; d > 0 {
					ctrlEq = w.segmentGTotal(0).Mul(w.volumeFraction(0, c)).
						AddScalar(-w.scalingFactor(c) * ctrl.Target / d)
					break
				}
			}
			return
		}
		var rate ad.Eval
		for c := 0; c < np; c++ {
			if ctrl.Distr[c] > 0 {
				rate = rate.Add(w.segmentGTotal(0).Mul(w.volumeFractionScaled(0, c)))
			}
		}
		ctrlEq = rate.AddScalar(-ctrl.Target)
	case types.ReservoirRate:
		var rate ad.Eval
		for c := 0; c < np; c++ {
			if ctrl.Distr[c] > 0 {
				rate = rate.Add(w.segmentGTotal(0).Mul(w.volumeFraction(0, c)))
			}
		}
		ctrlEq = rate.AddScalar(-ctrl.Target)
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownControl, ctrl.Type.Print())
	}
	return
}

func (w *MultisegmentWell) assembleControlEq() (err error) {
	var ctrlEq ad.Eval
	if ctrlEq, err = w.controlEquation(); err != nil {
		return wellErr(w.name, "control equation", err)
	}
	w.eq.resWell[w.sPres] = ctrlEq.Val
	for pv := 0; pv < w.numWellEq; pv++ {
		w.eq.D.SetAt(0, 0, w.sPres, pv, w.wellDerivative(ctrlEq, pv))
	}
	return
}

func (w *MultisegmentWell) hydroPressureLoss(seg int) ad.Eval {
	return w.segmentDensities[seg].Scale(w.params.Gravity * w.tp.depthDiffs[seg])
}

func (w *MultisegmentWell) frictionPressureLoss(seg int) ad.Eval {
	var (
		s    = w.tp.segments[seg]
		rate = w.segmentMassRates[seg]
		sign = -1.
	)
	if rate.Val < 0 {
		sign = 1
	}
	return frictionPressureLoss(w.tp.lengthToOutlet(seg), s.Diameter, s.CrossArea, s.Roughness,
		w.segmentDensities[seg], rate, w.segmentViscosities[seg]).Scale(sign)
}

func (w *MultisegmentWell) assemblePressureEq(seg int) {
	var (
		row    = seg*w.numWellEq + w.sPres
		outlet = w.tp.outlets[seg]
		D      = w.eq.D
	)
	pEq := w.segmentPressure(seg).Sub(w.hydroPressureLoss(seg))
	if w.tp.pressureDrop.Friction() {
		pEq = pEq.Sub(w.frictionPressureLoss(seg))
	}
	w.eq.resWell[row] = pEq.Val
	for pv := 0; pv < w.numWellEq; pv++ {
		D.SetAt(seg, seg, w.sPres, pv, w.wellDerivative(pEq, pv))
	}

	outletPressure := w.segmentPressure(outlet)
	w.eq.resWell[row] -= outletPressure.Val
	for pv := 0; pv < w.numWellEq; pv++ {
		D.SetAt(seg, outlet, w.sPres, pv, -w.wellDerivative(outletPressure, pv))
	}

	if w.tp.pressureDrop.Acceleration() {
		w.handleAccelerationPressureLoss(seg)
	}
}

// handleAccelerationPressureLoss subtracts the outlet velocity head of seg and
// adds the velocity heads of its inlets, evaluated at the largest area among them.
func (w *MultisegmentWell) handleAccelerationPressureLoss(seg int) {
	var (
		row     = seg*w.numWellEq + w.sPres
		area    = w.tp.segments[seg].CrossArea
		maxArea = area
		D       = w.eq.D
	)
	outHead := velocityHead(area, w.segmentMassRates[seg], w.segmentDensities[seg])
	w.eq.resWell[row] -= outHead.Val
	for pv := 0; pv < w.numWellEq; pv++ {
		D.AddAt(seg, seg, w.sPres, pv, -w.wellDerivative(outHead, pv))
	}
	for _, inlet := range w.tp.inlets[seg] {
		if a := w.tp.segments[inlet].CrossArea; a > maxArea {
			maxArea = a
		}
	}
	for _, inlet := range w.tp.inlets[seg] {
		inHead := velocityHead(maxArea, w.segmentMassRates[inlet], w.segmentDensities[inlet])
		w.eq.resWell[row] += inHead.Val
		for pv := 0; pv < w.numWellEq; pv++ {
			D.AddAt(seg, inlet, w.sPres, pv, w.wellDerivative(inHead, pv))
		}
	}
}
