package msw

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/goreservoir/reservoir"
	"github.com/notargets/goreservoir/utils"
)

// wellEquations is the local linear system of one well:
//
//	[ A  C^T ] [ x  ]   [ r  ]
//	[ B  D   ] [ xw ] = [ rw ]
//
// where A is the reservoir Jacobian owned by the simulator. D couples segments,
// B holds d(well eq)/d(reservoir var) and C stores d(reservoir eq)/d(well var)
// transposed, both with one block per perforation.
type wellEquations struct {
	numWellEq int
	numEq     int
	D         *utils.BlockSparse
	B         *utils.BlockSparse
	C         *utils.BlockSparse
	resWell   []float64
	cells     []int // distinct perforated cells
	lu        mat.LU
	factored  bool
}

func newWellEquations(tp *topology, wellCells []int, numCells, numEq, numWellEq int) (eq *wellEquations) {
	var (
		nseg      = tp.numSegments()
		dAddr     [][2]int
		offAddr   [][2]int
		seenCells = make(map[int]struct{})
	)
	for seg := 0; seg < nseg; seg++ {
		dAddr = append(dAddr, [2]int{seg, seg})
		if tp.outlets[seg] >= 0 {
			dAddr = append(dAddr, [2]int{seg, tp.outlets[seg]})
		}
		for _, inlet := range tp.inlets[seg] {
			dAddr = append(dAddr, [2]int{seg, inlet})
		}
	}
	eq = &wellEquations{
		numWellEq: numWellEq,
		numEq:     numEq,
		resWell:   make([]float64, nseg*numWellEq),
	}
	for perf, cell := range wellCells {
		offAddr = append(offAddr, [2]int{tp.perfSegment[perf], cell})
		if _, seen := seenCells[cell]; !seen {
			seenCells[cell] = struct{}{}
			eq.cells = append(eq.cells, cell)
		}
	}
	eq.D = utils.NewBlockSparse(nseg, nseg, numWellEq, numWellEq, dAddr)
	eq.B = utils.NewBlockSparse(nseg, numCells, numWellEq, numEq, offAddr)
	eq.C = utils.NewBlockSparse(nseg, numCells, numWellEq, numEq, offAddr)
	return
}

// clear zeroes D and the well residual, and B and C unless only the well
// equations are being assembled.
func (eq *wellEquations) clear(onlyWells bool) {
	eq.D.Zero()
	for i := range eq.resWell {
		eq.resWell[i] = 0
	}
	if !onlyWells {
		eq.B.Zero()
		eq.C.Zero()
	}
	eq.factored = false
}

func (eq *wellEquations) factorize() (err error) {
	if eq.factored {
		return
	}
	eq.lu.Factorize(eq.D.ToDense())
	if cond := eq.lu.Cond(); math.IsNaN(cond) || cond > mat.ConditionTolerance {
		err = fmt.Errorf("%w: condition number %g", ErrSingularWellMatrix, cond)
		return
	}
	eq.factored = true
	return
}

// solve returns D^-1 rhs.
func (eq *wellEquations) solve(rhs []float64) (x []float64, err error) {
	if err = eq.factorize(); err != nil {
		return
	}
	var xv mat.VecDense
	if err = eq.lu.SolveVecTo(&xv, false, mat.NewVecDense(len(rhs), rhs)); err != nil {
		err = fmt.Errorf("%w: %v", ErrSingularWellMatrix, err)
		return
	}
	x = xv.RawVector().Data
	return
}

// invDX returns D^-1 rw, the Newton update of a well-only solve.
func (eq *wellEquations) invDX() ([]float64, error) {
	return eq.solve(eq.resWell)
}

// apply computes Ax -= C^T D^-1 B x.
func (eq *wellEquations) apply(x, Ax []float64) (err error) {
	var (
		nr, _  = eq.B.Dims()
		bx     = make([]float64, nr)
		invDBx []float64
	)
	eq.B.MulVecAdd(1, x, bx)
	if invDBx, err = eq.solve(bx); err != nil {
		return
	}
	eq.C.MulTransVecAdd(-1, invDBx, Ax)
	return
}

// applyResidual computes r -= C^T D^-1 rw.
func (eq *wellEquations) applyResidual(r []float64) (err error) {
	var invDrw []float64
	if invDrw, err = eq.solve(eq.resWell); err != nil {
		return
	}
	eq.C.MulTransVecAdd(-1, invDrw, r)
	return
}

// recoverSolution returns xw = D^-1 (rw - B x).
func (eq *wellEquations) recoverSolution(x []float64) (xw []float64, err error) {
	rhs := make([]float64, len(eq.resWell))
	copy(rhs, eq.resWell)
	eq.B.MulVecAdd(-1, x, rhs)
	return eq.solve(rhs)
}

// addContributions adds -C^T D^-1 B into the reservoir Jacobian. The sink must
// hold blocks for every pair of cells perforated by this well.
func (eq *wellEquations) addContributions(sink reservoir.Sink) (err error) {
	var (
		nr, _ = eq.B.Dims()
		col   = make([]float64, nr)
		nseg  = eq.D.NrBlocks
		y     []float64
	)
	for _, cj := range eq.cells {
		for pv := 0; pv < eq.numEq; pv++ {
			for seg := 0; seg < nseg; seg++ {
				for w := 0; w < eq.numWellEq; w++ {
					col[seg*eq.numWellEq+w] = eq.B.At(seg, cj, w, pv)
				}
			}
			if y, err = eq.solve(col); err != nil {
				return
			}
			for _, ci := range eq.cells {
				for comp := 0; comp < eq.numEq; comp++ {
					var sum float64
					for seg := 0; seg < nseg; seg++ {
						for w := 0; w < eq.numWellEq; w++ {
							sum += eq.C.At(seg, ci, w, comp) * y[seg*eq.numWellEq+w]
						}
					}
					if sum != 0 {
						sink.AddJacobian(ci, cj, comp, pv, -sum)
					}
				}
			}
		}
	}
	return
}
