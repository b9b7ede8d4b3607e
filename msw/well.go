// Package msw implements multisegment wells: the segment tree discretization
// of a wellbore, its local Newton system and the coupling of that system to
// the reservoir Jacobian through a Schur complement.
package msw

import (
	"fmt"
	"log/slog"

	"github.com/notargets/goreservoir/ad"
	"github.com/notargets/goreservoir/pvt"
	"github.com/notargets/goreservoir/reservoir"
	"github.com/notargets/goreservoir/types"
)

// Primary variable layout per segment: total rate first, then the water and gas
// fractions of the active phases, pressure last.
const GTotal = 0

type WellConfig struct {
	Phases      types.PhaseUsage
	Fluid       pvt.FluidSystem
	Params      Parameters
	IndexOfWell int // position in the shared well state
	FirstPerf   int // global index of the first perforation
	NumEq       int // reservoir equations per cell, defaults to the number of phases
	Logger      *slog.Logger
}

type MultisegmentWell struct {
	name             string
	wellType         types.WellType
	allowCrossFlow   bool
	efficiencyFactor float64
	control          Control
	currentStep      int
	indexOfWell      int
	firstPerf        int

	phases    types.PhaseUsage
	fluid     pvt.FluidSystem
	params    Parameters
	logger    *slog.Logger
	numEq     int
	numWellEq int
	wFrac     int
	gFrac     int
	sPres     int

	tp                    *topology
	wellCells             []int
	wellIndex             []float64
	satTable              []int
	perfDepth             []float64
	cellPerfDepthDiffs    []float64
	cellPerfPressureDiffs []float64

	segmentCompInitial [][]float64
	segmentDensities   []ad.Eval
	segmentViscosities []ad.Eval
	segmentMassRates   []ad.Eval

	primaryVariables     [][]float64
	primaryVariablesEval [][]ad.Eval

	eq *wellEquations
}

// NewMultisegmentWell builds the segment topology for report step timeStep.
// The matrices are allocated by Init once the reservoir is known.
func NewMultisegmentWell(spec *WellSpec, timeStep int, cfg WellConfig) (w *MultisegmentWell, err error) {
	if spec == nil {
		return nil, fmt.Errorf("%w: nil well description", ErrInvalidArgument)
	}
	if timeStep < 0 {
		return nil, wellErr(spec.Name, "construct",
			fmt.Errorf("%w: time step %d is negative", ErrInvalidArgument, timeStep))
	}
	var (
		np = cfg.Phases.NumPhases
	)
	if !cfg.Phases.Active[types.Oil] || np == 0 {
		return nil, wellErr(spec.Name, "construct", fmt.Errorf("%w: oil phase must be active", ErrInvalidArgument))
	}
	if cfg.Fluid == nil {
		return nil, wellErr(spec.Name, "construct", fmt.Errorf("%w: nil fluid system", ErrInvalidArgument))
	}
	w = &MultisegmentWell{
		name:             spec.Name,
		wellType:         spec.Type,
		allowCrossFlow:   spec.AllowCrossFlow,
		efficiencyFactor: spec.EfficiencyFactor,
		currentStep:      timeStep,
		indexOfWell:      cfg.IndexOfWell,
		firstPerf:        cfg.FirstPerf,
		phases:           cfg.Phases,
		fluid:            cfg.Fluid,
		params:           cfg.Params,
		logger:           cfg.Logger,
		numEq:            cfg.NumEq,
		numWellEq:        np + 1,
		wFrac:            -1,
		gFrac:            -1,
		sPres:            np,
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	w.logger = w.logger.With("well", w.name)
	if w.numEq == 0 {
		w.numEq = np
	}
	if w.numEq+w.numWellEq > ad.MaxSize {
		return nil, wellErr(w.name, "construct", fmt.Errorf("%w: %d reservoir and %d well variables exceed %d derivatives",
			ErrInvalidArgument, w.numEq, w.numWellEq, ad.MaxSize))
	}
	if w.efficiencyFactor == 0 {
		w.efficiencyFactor = 1
	}
	pv := 1
	if cfg.Phases.Active[types.Water] {
		w.wFrac = pv
		pv++
	}
	if cfg.Phases.Active[types.Gas] {
		w.gFrac = pv
	}
	if err = w.SetControl(spec.Control); err != nil {
		return nil, err
	}
	if w.tp, err = newTopology(spec.Segments, spec.Completions); err != nil {
		return nil, wellErr(w.name, "construct", err)
	}
	nperf := len(spec.Completions)
	w.wellCells = make([]int, nperf)
	w.wellIndex = make([]float64, nperf)
	w.satTable = make([]int, nperf)
	w.perfDepth = make([]float64, nperf)
	for perf, c := range spec.Completions {
		w.wellCells[perf] = c.Cell
		w.wellIndex[perf] = c.WellIndex
		w.satTable[perf] = c.SatTable
		w.perfDepth[perf] = c.Depth
	}
	w.cellPerfDepthDiffs = make([]float64, nperf)
	w.cellPerfPressureDiffs = make([]float64, nperf)

	nseg := w.tp.numSegments()
	w.segmentCompInitial = make([][]float64, nseg)
	w.primaryVariables = make([][]float64, nseg)
	w.primaryVariablesEval = make([][]ad.Eval, nseg)
	for seg := 0; seg < nseg; seg++ {
		w.segmentCompInitial[seg] = make([]float64, np)
		w.primaryVariables[seg] = make([]float64, w.numWellEq)
		w.primaryVariablesEval[seg] = make([]ad.Eval, w.numWellEq)
	}
	w.segmentDensities = make([]ad.Eval, nseg)
	w.segmentViscosities = make([]ad.Eval, nseg)
	w.segmentMassRates = make([]ad.Eval, nseg)
	return
}

// SetControl replaces the active control of the well.
func (w *MultisegmentWell) SetControl(ctrl Control) (err error) {
	np := w.phases.NumPhases
	if ctrl.Type.IsRate() {
		if len(ctrl.Distr) != np {
			return wellErr(w.name, "set control",
				fmt.Errorf("%w: %d distribution entries for %d phases", ErrInvalidArgument, len(ctrl.Distr), np))
		}
		n := ctrl.phasesUnderControl()
		if n == 0 {
			return wellErr(w.name, "set control", fmt.Errorf("%w: no phase under rate control", ErrInvalidArgument))
		}
		if w.wellType == types.Injector && n != 1 {
			return wellErr(w.name, "set control",
				fmt.Errorf("%w: injectors are controlled on a single phase, got %d", ErrInvalidArgument, n))
		}
	}
	if ctrl.Distr == nil {
		ctrl.Distr = make([]float64, np)
	}
	w.control = ctrl
	return
}

// Init binds the well to a reservoir: perforated cells are checked, depth
// differences computed and the local matrices allocated.
func (w *MultisegmentWell) Init(problem reservoir.Problem) (err error) {
	var (
		numCells = problem.NumCells()
	)
	if problem.NumEq() != w.numEq {
		return wellErr(w.name, "init", fmt.Errorf("%w: reservoir has %d equations, well expects %d",
			ErrInvalidArgument, problem.NumEq(), w.numEq))
	}
	for perf, cell := range w.wellCells {
		if cell < 0 || cell >= numCells {
			return wellErr(w.name, "init", fmt.Errorf("%w: perforation %d in cell %d outside [0,%d)",
				ErrInvalidArgument, perf, cell, numCells))
		}
		w.cellPerfDepthDiffs[perf] = w.perfDepth[perf] - problem.CellDepth(cell)
	}
	w.eq = newWellEquations(w.tp, w.wellCells, numCells, w.numEq, w.numWellEq)
	return
}

func (w *MultisegmentWell) Name() string              { return w.name }
func (w *MultisegmentWell) Type() types.WellType      { return w.wellType }
func (w *MultisegmentWell) IsProducer() bool          { return w.wellType == types.Producer }
func (w *MultisegmentWell) IsInjector() bool          { return w.wellType == types.Injector }
func (w *MultisegmentWell) Control() Control          { return w.control }
func (w *MultisegmentWell) CurrentStep() int          { return w.currentStep }
func (w *MultisegmentWell) NumEq() int                { return w.numEq }
func (w *MultisegmentWell) NumStaticWellEq() int      { return w.numWellEq }
func (w *MultisegmentWell) NumberOfSegments() int     { return w.tp.numSegments() }
func (w *MultisegmentWell) NumberOfPerforations() int { return len(w.wellCells) }
func (w *MultisegmentWell) WellCells() []int          { return w.wellCells }
func (w *MultisegmentWell) PressureDropModel() types.PressureDropModel {
	return w.tp.pressureDrop
}

// SegmentInlets returns the inlet locations of every segment.
func (w *MultisegmentWell) SegmentInlets() [][]int { return w.tp.inlets }

// SegmentPerforations returns the perforations attached to every segment.
func (w *MultisegmentWell) SegmentPerforations() [][]int { return w.tp.perforations }

// OutletNumbers returns, per segment location, the number of its outlet segment (0 for the top).
func (w *MultisegmentWell) OutletNumbers() (outlets []int) {
	outlets = make([]int, w.tp.numSegments())
	for loc := range outlets {
		outlets[loc] = w.tp.outletNumber(loc)
	}
	return
}

// Residual returns the well residual, segment major, or nil before Init.
func (w *MultisegmentWell) Residual() []float64 {
	if w.eq == nil {
		return nil
	}
	return w.eq.resWell
}

// initialized fails for operations that need the equations built by Init.
func (w *MultisegmentWell) initialized(op string) (err error) {
	if w.eq == nil {
		err = wellErr(w.name, op, fmt.Errorf("%w: well is not initialized", ErrInvalidArgument))
	}
	return
}

// PrimaryVariables returns a copy of the primary variables of a segment.
func (w *MultisegmentWell) PrimaryVariables(seg int) []float64 {
	return append([]float64(nil), w.primaryVariables[seg]...)
}

// InitPrimaryVariablesEvaluation seeds each well primary variable with a unit
// derivative in slot NumEq+pv.
func (w *MultisegmentWell) InitPrimaryVariablesEvaluation() {
	for seg := range w.primaryVariables {
		for pv, v := range w.primaryVariables[seg] {
			w.primaryVariablesEval[seg][pv] = ad.Variable(v, w.numEq+pv)
		}
	}
}

func (w *MultisegmentWell) numComponents() int { return w.phases.NumPhases }

// scalingFactor converts phase rates to the scale of the total rate variable.
func (w *MultisegmentWell) scalingFactor(comp int) float64 {
	if w.control.Type == types.ReservoirRate {
		return w.control.Distr[comp]
	}
	if w.phases.PhaseAt(comp) == types.Gas {
		return 0.01
	}
	return 1
}

func (w *MultisegmentWell) volumeFraction(seg, comp int) ad.Eval {
	var (
		pu = w.phases
		pv = w.primaryVariablesEval[seg]
	)
	if pu.Active[types.Water] && comp == pu.Pos[types.Water] {
		return pv[w.wFrac]
	}
	if pu.Active[types.Gas] && comp == pu.Pos[types.Gas] {
		return pv[w.gFrac]
	}
	oil := ad.Constant(1)
	if pu.Active[types.Water] {
		oil = oil.Sub(pv[w.wFrac])
	}
	if pu.Active[types.Gas] {
		oil = oil.Sub(pv[w.gFrac])
	}
	return oil
}

func (w *MultisegmentWell) volumeFractionScaled(seg, comp int) ad.Eval {
	if scale := w.scalingFactor(comp); scale > 0 {
		return w.volumeFraction(seg, comp).DivScalar(scale)
	}
	return w.volumeFraction(seg, comp)
}

func (w *MultisegmentWell) surfaceVolumeFraction(seg, comp int) ad.Eval {
	var sum ad.Eval
	for c := 0; c < w.numComponents(); c++ {
		sum = sum.Add(w.volumeFractionScaled(seg, c))
	}
	if sum.Val == 0 {
		panic(fmt.Sprintf("well %s segment %d: scaled volume fractions sum to zero", w.name, seg))
	}
	return w.volumeFractionScaled(seg, comp).Div(sum)
}

func (w *MultisegmentWell) segmentPressure(seg int) ad.Eval {
	return w.primaryVariablesEval[seg][w.sPres]
}

func (w *MultisegmentWell) segmentGTotal(seg int) ad.Eval {
	return w.primaryVariablesEval[seg][GTotal]
}

// segmentRate is the surface rate of component comp leaving segment seg.
func (w *MultisegmentWell) segmentRate(seg, comp int) ad.Eval {
	return w.segmentGTotal(seg).Mul(w.volumeFractionScaled(seg, comp))
}

// wellDerivative extracts the derivative of e with respect to well variable pv.
func (w *MultisegmentWell) wellDerivative(e ad.Eval, pv int) float64 {
	return e.Derivative(w.numEq + pv)
}

func (w *MultisegmentWell) phaseName(comp int) string {
	return w.phases.PhaseAt(comp).Print()
}
