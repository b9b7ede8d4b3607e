package reservoir

import (
	"fmt"
	"sync"

	"github.com/james-bowman/sparse"

	"github.com/notargets/goreservoir/utils"
)

// Linearizer stores the reservoir Jacobian as cell blocks of NumEq x NumEq and
// the residual as a flat vector. Writes are serialized so that several wells
// may add contributions concurrently.
type Linearizer struct {
	mu       sync.Mutex
	numCells int
	numEq    int
	Jacobian *utils.BlockSparse
	Residual []float64
}

// NewLinearizer allocates the block pattern from the cell adjacency and the well
// graph, plus the diagonal.
func NewLinearizer(numCells, numEq int, neighbors [][]int, wellGraph [][]int) *Linearizer {
	var addresses [][2]int
	for i := 0; i < numCells; i++ {
		addresses = append(addresses, [2]int{i, i})
		if i < len(neighbors) {
			for _, j := range neighbors[i] {
				addresses = append(addresses, [2]int{i, j})
			}
		}
		if i < len(wellGraph) {
			for _, j := range wellGraph[i] {
				addresses = append(addresses, [2]int{i, j})
			}
		}
	}
	return &Linearizer{
		numCells: numCells,
		numEq:    numEq,
		Jacobian: utils.NewBlockSparse(numCells, numCells, numEq, numEq, addresses),
		Residual: make([]float64, numCells*numEq),
	}
}

func (lz *Linearizer) NumCells() int { return lz.numCells }
func (lz *Linearizer) NumEq() int    { return lz.numEq }

func (lz *Linearizer) AddResidual(cell, eq int, v float64) {
	lz.mu.Lock()
	lz.Residual[cell*lz.numEq+eq] += v
	lz.mu.Unlock()
}

func (lz *Linearizer) AddJacobian(row, col, eq, pv int, v float64) {
	lz.mu.Lock()
	defer lz.mu.Unlock()
	if !lz.Jacobian.HasBlock(row, col) {
		panic(fmt.Sprintf("jacobian block (%d,%d) is outside the matrix pattern", row, col))
	}
	lz.Jacobian.AddAt(row, col, eq, pv, v)
}

func (lz *Linearizer) ResidualAt(cell, eq int) float64 {
	return lz.Residual[cell*lz.numEq+eq]
}

func (lz *Linearizer) Zero() {
	lz.Jacobian.Zero()
	for i := range lz.Residual {
		lz.Residual[i] = 0
	}
}

// MulVec returns J x.
func (lz *Linearizer) MulVec(x []float64) (y []float64) {
	y = make([]float64, len(lz.Residual))
	lz.Jacobian.MulVecAdd(1, x, y)
	return
}

// CSR exports the Jacobian for an external linear solver.
func (lz *Linearizer) CSR() *sparse.CSR {
	return lz.Jacobian.ToCSR()
}

// MakeOverlapRowsInvalid replaces the rows of overlap cells with identity rows
// and zero residuals so that they decouple from the owned system.
func (lz *Linearizer) MakeOverlapRowsInvalid(overlap []OverlapRow) {
	lz.mu.Lock()
	defer lz.mu.Unlock()
	for _, row := range overlap {
		for _, col := range lz.Jacobian.RowBlocks(row.Cell) {
			blk := lz.Jacobian.GetBlockView(row.Cell, col)
			blk.Zero()
			if col == row.Cell {
				for e := 0; e < lz.numEq; e++ {
					blk.Set(e, e, 1)
				}
			}
		}
		for e := 0; e < lz.numEq; e++ {
			lz.Residual[row.Cell*lz.numEq+e] = 0
		}
	}
}
