package msw

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/goreservoir/reservoir"
	"github.com/notargets/goreservoir/types"
)

func TestAssembleDerivatives(t *testing.T) {
	var (
		pu      = types.NewPhaseUsage(true, true)
		problem = newTestProblem(t, pu, threePhaseCells())
		w       = newTestWell(t, branchedProducer(types.HFA, Control{Type: types.BHP, Target: 1.9e7}),
			pu, testParameters(), problem)
		dt   = 3600.
		base = [][]float64{
			{-0.01, 0.3, 0.2, 1.9e7},
			{-0.009, 0.31, 0.19, 1.91e7},
			{-0.003, 0.29, 0.21, 1.92e7},
			{-0.004, 0.3, 0.18, 1.915e7},
		}
		nwe   = w.NumStaticWellEq()
		nseg  = w.NumberOfSegments()
		n     = nseg * nwe
		scale = []float64{1.e-7, 1.e-6, 1.e-6, 1.}
		lz    = reservoir.NewLinearizer(3, 3, nil, reservoir.WellConnections(3, [][]int{w.WellCells()}))
	)
	require.Equal(t, 4, nwe)
	setPrimaryVariables(w, base)
	require.NoError(t, w.CalculateExplicitQuantities(problem))
	// move away from the initial composition so the accumulation term contributes
	base[1][1], base[2][2] = 0.32, 0.22
	setPrimaryVariables(w, base)
	require.NoError(t, w.AssembleWellEqWithoutIteration(problem, lz, dt, nil, false))
	var (
		D = w.eq.D.ToDense()
		B = w.eq.B
		C = w.eq.C
	)
	// x holds scaled perturbations of the primary variables
	perturbed := func(x []float64) {
		for seg := 0; seg < nseg; seg++ {
			for pv := 0; pv < nwe; pv++ {
				w.primaryVariables[seg][pv] = base[seg][pv] + x[seg*nwe+pv]*scale[pv]
			}
		}
		w.InitPrimaryVariablesEvaluation()
	}
	{ // Test D against finite differences of the well residual
		J := mat.NewDense(n, n, nil)
		fd.Jacobian(J, func(y, x []float64) {
			perturbed(x)
			require.NoError(t, w.AssembleWellEqWithoutIteration(problem, nil, dt, nil, true))
			copy(y, w.eq.resWell)
		}, make([]float64, n), &fd.JacobianSettings{Formula: fd.Central, Step: 1})
		for row := 0; row < n; row++ {
			tol := 1.e-10
			if row%nwe == w.sPres {
				tol = 1.e-1
			}
			for col := 0; col < n; col++ {
				want := J.At(row, col) / scale[col%nwe]
				assert.InDelta(t, want, D.At(row, col), 1.e-5*math.Abs(want)+tol, "D[%d][%d]", row, col)
			}
		}
	}
	{ // Test C against finite differences of the reservoir residual
		J := mat.NewDense(9, n, nil)
		fd.Jacobian(J, func(y, x []float64) {
			perturbed(x)
			lz.Zero()
			require.NoError(t, w.AssembleWellEqWithoutIteration(problem, lz, dt, nil, false))
			copy(y, lz.Residual)
		}, make([]float64, n), &fd.JacobianSettings{Formula: fd.Central, Step: 1})
		for cell := 0; cell < 3; cell++ {
			for comp := 0; comp < 3; comp++ {
				for seg := 0; seg < nseg; seg++ {
					for pv := 0; pv < nwe; pv++ {
						want := J.At(cell*3+comp, seg*nwe+pv) / scale[pv]
						assert.InDelta(t, want, C.At(seg, cell, pv, comp), 1.e-5*math.Abs(want)+1.e-10,
							"C[%d][%d][%d][%d]", seg, cell, pv, comp)
					}
				}
			}
		}
	}
	perturbed(make([]float64, n))
	{ // Test B against finite differences in the cell pressures
		for cell := 0; cell < 3; cell++ {
			c := problem.Cell(cell)
			J := mat.NewDense(n, 1, nil)
			fd.Jacobian(J, func(y, x []float64) {
				cc := c
				cc.Pressure += x[0]
				require.NoError(t, problem.SetCell(cell, cc))
				require.NoError(t, w.AssembleWellEqWithoutIteration(problem, nil, dt, nil, true))
				copy(y, w.eq.resWell)
			}, []float64{0}, &fd.JacobianSettings{Formula: fd.Central, Step: 1})
			require.NoError(t, problem.SetCell(cell, c))
			for seg := 0; seg < nseg; seg++ {
				for eq := 0; eq < nwe; eq++ {
					want := J.At(seg*nwe+eq, 0)
					assert.InDelta(t, want, B.At(seg, cell, eq, 0), 1.e-5*math.Abs(want)+1.e-16,
						"B[%d][%d][%d]", seg, cell, eq)
				}
			}
		}
	}
	{ // Test the reservoir sink receives the perforation sources
		lz.Zero()
		require.NoError(t, w.AssembleWellEqWithoutIteration(problem, lz, dt, nil, false))
		for comp := 0; comp < 3; comp++ {
			var sum float64
			for seg := 0; seg < nseg; seg++ {
				sum += B.At(seg, 1, comp, 0)
			}
			assert.InDelta(t, sum, lz.Jacobian.At(1, 1, comp, 0), 1.e-12*math.Abs(sum))
		}
		assert.Equal(t, 0., lz.ResidualAt(2, 0))
		// producing perforations draw fluid out of the cells
		assert.True(t, lz.ResidualAt(0, 1) > 0)
	}
}

func TestControlEquations(t *testing.T) {
	var (
		pu      = types.NewPhaseUsage(true, true)
		problem = newTestProblem(t, pu, threePhaseCells())
		w       = newTestWell(t, branchedProducer(types.H__, Control{Type: types.BHP, Target: 1.9e7}),
			pu, testParameters(), problem)
		pvs = [][]float64{
			{-0.01, 0.3, 0.2, 1.95e7},
			{-0.01, 0.3, 0.2, 1.96e7},
			{-0.005, 0.3, 0.2, 1.97e7},
			{-0.005, 0.3, 0.2, 1.96e7},
		}
		dt = 86400.
	)
	setPrimaryVariables(w, pvs)
	require.NoError(t, w.CalculateExplicitQuantities(problem))
	assemble := func(ctrl Control) error {
		require.NoError(t, w.SetControl(ctrl))
		return w.AssembleWellEqWithoutIteration(problem, nil, dt, nil, true)
	}
	top := w.sPres
	{ // Test bhp control
		require.NoError(t, assemble(Control{Type: types.BHP, Target: 1.9e7}))
		assert.InDelta(t, 0.05e7, w.Residual()[top], 1.e-6)
		assert.Equal(t, 1., w.eq.D.At(0, 0, top, w.sPres))
		assert.Equal(t, 0., w.eq.D.At(0, 0, top, GTotal))
	}
	{ // Test single phase surface rate control on oil
		require.NoError(t, assemble(Control{Type: types.SurfaceRate, Target: -0.004, Distr: []float64{0, 2, 0}}))
		assert.InDelta(t, -0.01*0.5+0.002, w.Residual()[top], 1.e-15)
		assert.InDelta(t, 0.5, w.eq.D.At(0, 0, top, GTotal), 1.e-15)
	}
	{ // Test single phase surface rate control on gas uses the gas scaling
		require.NoError(t, assemble(Control{Type: types.SurfaceRate, Target: -1, Distr: []float64{0, 0, 1}}))
		assert.InDelta(t, -0.01*0.2+0.01, w.Residual()[top], 1.e-15)
	}
	{ // Test combined liquid rate control
		require.NoError(t, assemble(Control{Type: types.SurfaceRate, Target: -0.006, Distr: []float64{1, 1, 0}}))
		assert.InDelta(t, -0.01*0.8+0.006, w.Residual()[top], 1.e-15)
	}
	{ // Test reservoir rate control
		require.NoError(t, assemble(Control{Type: types.ReservoirRate, Target: -0.004, Distr: []float64{1, 1, 1}}))
		assert.InDelta(t, -0.01+0.004, w.Residual()[top], 1.e-15)
	}
	{ // Test unsupported controls fail
		err := assemble(Control{Type: types.THP, Target: 1.e6})
		assert.True(t, errors.Is(err, ErrTHPNotSupported))
		var we *WellError
		require.True(t, errors.As(err, &we))
		assert.Equal(t, "PROD1", we.Well)
		err = assemble(Control{Type: types.ControlType(42), Target: 1})
		assert.True(t, errors.Is(err, ErrUnknownControl))
	}
	{ // Test the pressure equation of a hydrostatic segment
		require.NoError(t, assemble(Control{Type: types.BHP, Target: 1.9e7}))
		rho := w.segmentDensities[1].Val
		g := w.params.Gravity
		assert.InDelta(t, 1.96e7-rho*g*10-1.95e7, w.Residual()[w.numWellEq+w.sPres], 1.e-6)
		assert.Equal(t, -1., w.eq.D.At(1, 0, w.sPres, w.sPres))
	}
	{ // Test invalid arguments
		assert.True(t, errors.Is(w.AssembleWellEqWithoutIteration(problem, nil, 0, nil, true), ErrInvalidArgument))
		assert.True(t, errors.Is(w.AssembleWellEqWithoutIteration(problem, nil, dt, nil, false), ErrInvalidArgument))
	}
}
