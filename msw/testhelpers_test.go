package msw

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/notargets/goreservoir/pvt"
	"github.com/notargets/goreservoir/reservoir"
	"github.com/notargets/goreservoir/types"
	"github.com/notargets/goreservoir/utils"
	"github.com/notargets/goreservoir/wellstate"
)

func newTestFluid(t *testing.T) *pvt.BlackOil {
	fluid, err := pvt.NewBlackOil([]pvt.RegionParams{pvt.DefaultRegionParams()})
	require.NoError(t, err)
	return fluid
}

// newTestProblem uses two saturation regions, the second with cubic Corey curves.
func newTestProblem(t *testing.T, pu types.PhaseUsage, cells []reservoir.Cell) *reservoir.BlackOilProblem {
	steep := reservoir.DefaultCoreyParams()
	steep.Exponent = [types.MaxPhases]float64{3, 3, 3}
	bp, err := reservoir.NewBlackOilProblem(pu, newTestFluid(t),
		[]reservoir.CoreyParams{reservoir.DefaultCoreyParams(), steep}, cells)
	require.NoError(t, err)
	return bp
}

func threePhaseCells() []reservoir.Cell {
	return []reservoir.Cell{
		{Pressure: 2.e7, Sw: 0.3, Sg: 0.1, Rs: 60, Rv: 1.e-4, Depth: 1010, Temperature: 350},
		{Pressure: 2.05e7, Sw: 0.25, Sg: 0.15, Rs: 70, Rv: 1.e-4, Depth: 1018, Temperature: 350},
		{Pressure: 2.1e7, Sw: 0.2, Sg: 0.1, Rs: 70, Rv: 1.e-4, Depth: 1030, Temperature: 350},
	}
}

// branchedProducer perforates cell 0 from segment 2 and cell 1 from the two
// branches 3 and 4, the last one through saturation table 2.
func branchedProducer(pd types.PressureDropModel, ctrl Control) *WellSpec {
	return &WellSpec{
		Name:             "PROD1",
		Type:             types.Producer,
		AllowCrossFlow:   true,
		EfficiencyFactor: 0.9,
		Segments:         branchedSegments(pd),
		Completions: []Completion{
			{Cell: 0, Segment: 2, Depth: 1012, WellIndex: 1.e-11},
			{Cell: 1, Segment: 3, Depth: 1020, WellIndex: 1.e-11},
			{Cell: 1, Segment: 4, Depth: 1016, WellIndex: 1.e-11, SatTable: 2},
		},
		Control: ctrl,
	}
}

// verticalWell is a chain of nseg segments, 10 m apart, with one perforation
// per segment below the top into consecutive cells.
func verticalWell(name string, wt types.WellType, nseg int, ctrl Control) *WellSpec {
	spec := &WellSpec{
		Name:           name,
		Type:           wt,
		AllowCrossFlow: true,
		Segments:       SegmentSet{PressureDrop: types.H__},
		Control:        ctrl,
	}
	for i := 0; i < nseg; i++ {
		spec.Segments.Segments = append(spec.Segments.Segments, Segment{
			Number: i + 1, Outlet: i, Depth: 1000 + 10*float64(i), TotalLength: 10 * float64(i),
			CrossArea: 0.007854, Diameter: 0.1, Roughness: 1.e-5, Volume: 1.e-6,
		})
	}
	for i := 1; i < nseg; i++ {
		spec.Completions = append(spec.Completions, Completion{
			Cell: i - 1, Segment: i + 1, Depth: 1000 + 10*float64(i), WellIndex: 1.e-11,
		})
	}
	return spec
}

func testParameters() Parameters {
	p := DefaultParameters()
	p.UseInnerIterations = false
	p.ToleranceWells = 1.e-12
	p.TolerancePressureMsWells = 1.e-3
	return p
}

func newTestWell(t *testing.T, spec *WellSpec, pu types.PhaseUsage, params Parameters,
	problem reservoir.Problem) *MultisegmentWell {
	w, err := NewMultisegmentWell(spec, 0, WellConfig{Phases: pu, Fluid: newTestFluid(t), Params: params})
	require.NoError(t, err)
	require.NoError(t, w.Init(problem))
	return w
}

func newTestState(w *MultisegmentWell, bhp float64) *wellstate.WellState {
	return wellstate.New(w.phases.NumPhases, []wellstate.Layout{{
		Name: w.Name(), NumPerforations: w.NumberOfPerforations(), NumSegments: w.NumberOfSegments(), Bhp: bhp,
	}})
}

// setPrimaryVariables overwrites the primary variables and reseeds their evaluations.
func setPrimaryVariables(w *MultisegmentWell, pvs [][]float64) {
	for seg := range pvs {
		copy(w.primaryVariables[seg], pvs[seg])
	}
	w.InitPrimaryVariablesEvaluation()
}

// newtonSolve iterates well only Newton steps until the well converges.
func newtonSolve(t *testing.T, w *MultisegmentWell, problem reservoir.Problem, dt float64,
	state *wellstate.WellState, maxIter int) (report ConvergenceReport, iterations int) {
	bAvg := utils.ConstArray(w.numComponents(), 1)
	for iterations = 0; iterations < maxIter; iterations++ {
		require.NoError(t, w.AssembleWellEqWithoutIteration(problem, nil, dt, state, true))
		var err error
		report, err = w.GetWellConvergence(bAvg)
		require.NoError(t, err)
		if report.Converged {
			return
		}
		require.NoError(t, w.SolveEqAndUpdateWellState(state))
	}
	return
}
