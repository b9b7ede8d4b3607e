package msw

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/goreservoir/reservoir"
	"github.com/notargets/goreservoir/types"
)

// randomWellEquations fills a four segment system on three cells with two
// equations per cell and three per segment.
func randomWellEquations(t *testing.T) (eq *wellEquations) {
	completions := []Completion{
		{Cell: 0, Segment: 2, Depth: 1010, WellIndex: 1},
		{Cell: 1, Segment: 3, Depth: 1020, WellIndex: 1},
		{Cell: 1, Segment: 4, Depth: 1015, WellIndex: 1},
	}
	tp, err := newTopology(branchedSegments(types.H__), completions)
	require.NoError(t, err)
	eq = newWellEquations(tp, []int{0, 1, 1}, 3, 2, 3)
	rng := rand.New(rand.NewSource(1))
	for seg := 0; seg < 4; seg++ {
		for _, col := range eq.D.RowBlocks(seg) {
			for r := 0; r < 3; r++ {
				for c := 0; c < 3; c++ {
					v := rng.Float64() - 0.5
					if seg == col && r == c {
						v += 10
					}
					eq.D.SetAt(seg, col, r, c, v)
				}
			}
		}
		for _, cell := range eq.B.RowBlocks(seg) {
			for r := 0; r < 3; r++ {
				for c := 0; c < 2; c++ {
					eq.B.SetAt(seg, cell, r, c, rng.Float64()-0.5)
					eq.C.SetAt(seg, cell, r, c, rng.Float64()-0.5)
				}
			}
		}
	}
	for i := range eq.resWell {
		eq.resWell[i] = rng.Float64() - 0.5
	}
	return
}

func TestWellEquations(t *testing.T) {
	var (
		eq = randomWellEquations(t)
		Dd = eq.D.ToDense()
		Bd = eq.B.ToDense()
		Cd = eq.C.ToDense()
		x  = []float64{1, -2, 0.5, 3, 7, -1}
		S  mat.Dense
	)
	{ // Test pattern of the local matrices
		assert.Equal(t, []int{0, 1}, eq.cells)
		assert.Equal(t, []int{0, 1}, eq.D.RowBlocks(0))
		assert.Equal(t, []int{0, 1, 2, 3}, eq.D.RowBlocks(1))
		assert.Equal(t, []int{1, 2}, eq.D.RowBlocks(2))
		assert.False(t, eq.D.HasBlock(2, 3))
		assert.False(t, eq.B.HasBlock(0, 0))
		assert.True(t, eq.B.HasBlock(3, 1))
	}
	var DinvB mat.Dense
	require.NoError(t, DinvB.Solve(Dd, Bd))
	S.Mul(Cd.T(), &DinvB)
	want := mat.NewVecDense(6, nil)
	want.MulVec(&S, mat.NewVecDense(6, x))
	want.ScaleVec(-1, want)
	{ // Test apply against the dense Schur complement
		Ax := make([]float64, 6)
		require.NoError(t, eq.apply(x, Ax))
		assert.InDeltaSlice(t, want.RawVector().Data, Ax, 1.e-12)
	}
	{ // Test explicit contributions give the same operator
		lz := reservoir.NewLinearizer(3, 2, nil, reservoir.WellConnections(3, [][]int{{0, 1, 1}}))
		require.NoError(t, eq.addContributions(lz))
		assert.InDeltaSlice(t, want.RawVector().Data, lz.MulVec(x), 1.e-12)
		assert.Equal(t, 0., lz.Jacobian.At(2, 2, 0, 0))
	}
	{ // Test residual application
		var DinvR mat.VecDense
		require.NoError(t, DinvR.SolveVec(Dd, mat.NewVecDense(12, eq.resWell)))
		var wantR mat.VecDense
		wantR.MulVec(Cd.T(), &DinvR)
		r := []float64{1, 1, 1, 1, 1, 1}
		require.NoError(t, eq.applyResidual(r))
		for i := range r {
			assert.InDelta(t, 1-wantR.AtVec(i), r[i], 1.e-12)
		}
	}
	{ // Test recovered well solution satisfies D xw = rw - B x
		xw, err := eq.recoverSolution(x)
		require.NoError(t, err)
		var lhs, bx mat.VecDense
		lhs.MulVec(Dd, mat.NewVecDense(12, xw))
		bx.MulVec(Bd, mat.NewVecDense(6, x))
		lhs.AddVec(&lhs, &bx)
		assert.InDeltaSlice(t, eq.resWell, lhs.RawVector().Data, 1.e-12)
	}
	{ // Test clearing keeps B and C during well only assembly
		eq.clear(true)
		assert.Equal(t, 0., eq.D.FrobNorm())
		assert.NotEqual(t, 0., eq.B.FrobNorm())
		assert.Equal(t, 0., eq.resWell[5])
		eq.clear(false)
		assert.Equal(t, 0., eq.C.FrobNorm())
	}
	{ // Test a singular well matrix is reported
		_, err := eq.invDX()
		assert.True(t, errors.Is(err, ErrSingularWellMatrix))
	}
}
