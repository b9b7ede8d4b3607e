// Package reservoir defines what the well model needs from the reservoir
// simulator: per-cell intensive quantities and an additive Jacobian sink.
package reservoir

import (
	"github.com/notargets/goreservoir/ad"
	"github.com/notargets/goreservoir/types"
)

// CellState holds the intensive quantities of one cell. Derivatives occupy the
// reservoir slots [0,NumEq) of each Eval.
type CellState struct {
	Pressure    ad.Eval // oil phase pressure
	Rs, Rv      ad.Eval
	Temperature float64
	PvtRegion   int
	SatRegion   int
	InvB        [types.MaxPhases]ad.Eval
	Mobility    [types.MaxPhases]ad.Eval
	RelPerm     [types.MaxPhases]float64
	Density     [types.MaxPhases]float64
}

type Problem interface {
	NumCells() int
	NumEq() int
	CellDepth(cell int) float64
	CellState(cell int) *CellState
	// ConnectionMobility evaluates the phase mobilities of cell using saturation region satRegion.
	ConnectionMobility(cell, satRegion int) [types.MaxPhases]ad.Eval
}

// Sink receives additive contributions to the reservoir residual and Jacobian.
// Indices eq and pv address entries inside the (row,col) cell block.
type Sink interface {
	AddResidual(cell, eq int, v float64)
	AddJacobian(row, col, eq, pv int, v float64)
}
