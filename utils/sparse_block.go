package utils

import (
	"fmt"
	"math"
	"sort"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

// BlockSparse represents a sparse block matrix. Only blocks provided via addresses are allocated;
// all other blocks are implicitly zero.
type BlockSparse struct {
	// Global block-matrix dimensions (in block counts).
	NrBlocks, NcBlocks int

	// Each block has dimensions blockRows x blockCols.
	blockRows, blockCols int

	// Contiguous storage for all allocated (nonzero) blocks, each block row-major.
	data []float64

	// addresses maps a block coordinate [i,j] to the offset (in floats) within data.
	addresses map[[2]int]int

	// rowBlocks lists the allocated block columns of each block row in ascending order.
	rowBlocks [][]int
}

// NewBlockSparse creates a new BlockSparse for a sparse block matrix.
// The input parameter addresses is a slice of [2]int specifying the coordinates
// of each nonzero block. Repeated coordinates are allocated once.
func NewBlockSparse(nrBlocks, ncBlocks, blockRows, blockCols int, addresses [][2]int) *BlockSparse {
	var (
		blockSize = blockRows * blockCols
		addrMap   = make(map[[2]int]int, len(addresses))
		rowBlocks = make([][]int, nrBlocks)
	)
	for _, addr := range addresses {
		if addr[0] < 0 || addr[0] >= nrBlocks || addr[1] < 0 || addr[1] >= ncBlocks {
			panic(fmt.Sprintf("block address (%d,%d) outside %dx%d block matrix",
				addr[0], addr[1], nrBlocks, ncBlocks))
		}
		if _, present := addrMap[addr]; present {
			continue
		}
		addrMap[addr] = len(addrMap) * blockSize
		rowBlocks[addr[0]] = append(rowBlocks[addr[0]], addr[1])
	}
	for i := range rowBlocks {
		sort.Ints(rowBlocks[i])
	}
	return &BlockSparse{
		NrBlocks:  nrBlocks,
		NcBlocks:  ncBlocks,
		blockRows: blockRows,
		blockCols: blockCols,
		data:      make([]float64, len(addrMap)*blockSize),
		addresses: addrMap,
		rowBlocks: rowBlocks,
	}
}

func (bs *BlockSparse) BlockDims() (r, c int) { return bs.blockRows, bs.blockCols }

// Dims returns the scalar dimensions of the full matrix.
func (bs *BlockSparse) Dims() (r, c int) {
	return bs.NrBlocks * bs.blockRows, bs.NcBlocks * bs.blockCols
}

func (bs *BlockSparse) NumBlocks() int { return len(bs.addresses) }

func (bs *BlockSparse) HasBlock(i, j int) (ok bool) {
	_, ok = bs.addresses[[2]int{i, j}]
	return
}

// RowBlocks returns the allocated block columns of block row i. Callers must not modify it.
func (bs *BlockSparse) RowBlocks(i int) []int { return bs.rowBlocks[i] }

func (bs *BlockSparse) block(i, j int) []float64 {
	offset, ok := bs.addresses[[2]int{i, j}]
	if !ok {
		panic(fmt.Sprintf("block (%d,%d) not allocated", i, j))
	}
	return bs.data[offset : offset+bs.blockRows*bs.blockCols]
}

// GetBlockView returns a mat.Dense sharing storage with the block at coordinate (i, j).
// If (i,j) is not allocated in this sparse matrix, the function panics.
func (bs *BlockSparse) GetBlockView(i, j int) *mat.Dense {
	return mat.NewDense(bs.blockRows, bs.blockCols, bs.block(i, j))
}

// AddAt adds v to entry (r,c) of block (i,j).
func (bs *BlockSparse) AddAt(i, j, r, c int, v float64) {
	bs.block(i, j)[r*bs.blockCols+c] += v
}

// SetAt sets entry (r,c) of block (i,j).
func (bs *BlockSparse) SetAt(i, j, r, c int, v float64) {
	bs.block(i, j)[r*bs.blockCols+c] = v
}

// At returns entry (r,c) of block (i,j), zero for unallocated blocks.
func (bs *BlockSparse) At(i, j, r, c int) float64 {
	offset, ok := bs.addresses[[2]int{i, j}]
	if !ok {
		return 0
	}
	return bs.data[offset+r*bs.blockCols+c]
}

// Zero clears all allocated blocks, keeping the pattern.
func (bs *BlockSparse) Zero() {
	for i := range bs.data {
		bs.data[i] = 0
	}
}

// MulVecAdd computes y += alpha * A * x for flat vectors x (NcBlocks*blockCols) and y (NrBlocks*blockRows).
func (bs *BlockSparse) MulVecAdd(alpha float64, x, y []float64) {
	var (
		br, bc = bs.blockRows, bs.blockCols
	)
	bs.checkVecs(x, y, false)
	for i, cols := range bs.rowBlocks {
		yi := y[i*br : (i+1)*br]
		for _, j := range cols {
			var (
				blk = bs.block(i, j)
				xj  = x[j*bc : (j+1)*bc]
			)
			for r := 0; r < br; r++ {
				var sum float64
				for c := 0; c < bc; c++ {
					sum += blk[r*bc+c] * xj[c]
				}
				yi[r] += alpha * sum
			}
		}
	}
}

// MulTransVecAdd computes y += alpha * A^T * x for flat vectors x (NrBlocks*blockRows) and y (NcBlocks*blockCols).
func (bs *BlockSparse) MulTransVecAdd(alpha float64, x, y []float64) {
	var (
		br, bc = bs.blockRows, bs.blockCols
	)
	bs.checkVecs(x, y, true)
	for i, cols := range bs.rowBlocks {
		xi := x[i*br : (i+1)*br]
		for _, j := range cols {
			var (
				blk = bs.block(i, j)
				yj  = y[j*bc : (j+1)*bc]
			)
			for r := 0; r < br; r++ {
				axr := alpha * xi[r]
				for c := 0; c < bc; c++ {
					yj[c] += blk[r*bc+c] * axr
				}
			}
		}
	}
}

func (bs *BlockSparse) checkVecs(x, y []float64, trans bool) {
	nr, nc := bs.Dims()
	if trans {
		nr, nc = nc, nr
	}
	if len(x) != nc || len(y) != nr {
		panic(fmt.Sprintf("vector length mismatch: len(x)=%d want %d, len(y)=%d want %d",
			len(x), nc, len(y), nr))
	}
}

// ToDense expands the full matrix into a dense matrix.
func (bs *BlockSparse) ToDense() *mat.Dense {
	nr, nc := bs.Dims()
	dense := mat.NewDense(nr, nc, nil)
	bs.eachNonZero(func(r, c int, v float64) { dense.Set(r, c, v) })
	return dense
}

// ToCSR exports the allocated entries as a compressed sparse row matrix.
func (bs *BlockSparse) ToCSR() *sparse.CSR {
	nr, nc := bs.Dims()
	dok := sparse.NewDOK(nr, nc)
	bs.eachNonZero(func(r, c int, v float64) { dok.Set(r, c, v) })
	return dok.ToCSR()
}

func (bs *BlockSparse) eachNonZero(f func(r, c int, v float64)) {
	var (
		br, bc = bs.blockRows, bs.blockCols
	)
	for i, cols := range bs.rowBlocks {
		for _, j := range cols {
			blk := bs.block(i, j)
			for r := 0; r < br; r++ {
				for c := 0; c < bc; c++ {
					if v := blk[r*bc+c]; v != 0 {
						f(i*br+r, j*bc+c, v)
					}
				}
			}
		}
	}
}

// FrobNorm computes the Frobenius norm over all allocated blocks.
func (bs *BlockSparse) FrobNorm() (norm float64) {
	var sum float64
	for _, v := range bs.data {
		sum += v * v
	}
	norm = math.Sqrt(sum)
	return
}
