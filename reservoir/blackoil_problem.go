package reservoir

import (
	"fmt"

	"github.com/notargets/goreservoir/ad"
	"github.com/notargets/goreservoir/pvt"
	"github.com/notargets/goreservoir/types"
)

// CoreyParams gives relative permeability kr = MaxKr * S^Exponent per phase.
type CoreyParams struct {
	Exponent [types.MaxPhases]float64 `json:"Exponent"`
	MaxKr    [types.MaxPhases]float64 `json:"MaxKr"`
}

func DefaultCoreyParams() CoreyParams {
	return CoreyParams{
		Exponent: [types.MaxPhases]float64{2, 2, 2},
		MaxKr:    [types.MaxPhases]float64{1, 1, 1},
	}
}

// Cell is the primary state of one reservoir cell. When Saturated is set the
// dissolution ratios follow the saturation tables, otherwise Rs and Rv are used.
type Cell struct {
	Pressure    float64 `json:"Pressure" validate:"gt=0"`
	Sw          float64 `json:"Sw" validate:"gte=0,lte=1"`
	Sg          float64 `json:"Sg" validate:"gte=0,lte=1"`
	Rs          float64 `json:"Rs" validate:"gte=0"`
	Rv          float64 `json:"Rv" validate:"gte=0"`
	Saturated   bool    `json:"Saturated"`
	Depth       float64 `json:"Depth"`
	Temperature float64 `json:"Temperature"`
	PvtRegion   int     `json:"PvtRegion" validate:"gte=0"`
	SatRegion   int     `json:"SatRegion" validate:"gte=0"`
}

// BlackOilProblem is a reference Problem with pressure and saturation primary
// variables, Corey relative permeabilities and no capillary pressure.
// Primary variable slots: pressure at 0, then Sw and Sg for the active phases.
type BlackOilProblem struct {
	phases types.PhaseUsage
	fluid  pvt.FluidSystem
	corey  []CoreyParams
	cells  []Cell
	states []CellState
	swSlot int
	sgSlot int
}

func NewBlackOilProblem(phases types.PhaseUsage, fluid pvt.FluidSystem, corey []CoreyParams,
	cells []Cell) (bp *BlackOilProblem, err error) {
	bp = &BlackOilProblem{
		phases: phases,
		fluid:  fluid,
		corey:  corey,
		cells:  cells,
		states: make([]CellState, len(cells)),
		swSlot: -1,
		sgSlot: -1,
	}
	slot := 1
	if phases.Active[types.Water] {
		bp.swSlot = slot
		slot++
	}
	if phases.Active[types.Gas] {
		bp.sgSlot = slot
	}
	for _, cp := range corey {
		for p, n := range cp.Exponent {
			if n < 1 {
				err = fmt.Errorf("corey exponent for %s must be at least 1, got %g", types.Phase(p).Print(), n)
				return
			}
		}
	}
	for i := range cells {
		if err = bp.SetCell(i, cells[i]); err != nil {
			return
		}
	}
	return
}

// SetCell replaces the primary state of a cell and recomputes its quantities.
func (bp *BlackOilProblem) SetCell(i int, c Cell) (err error) {
	if c.PvtRegion >= bp.fluid.NumRegions() {
		return fmt.Errorf("cell %d: pvt region %d out of range", i, c.PvtRegion)
	}
	if c.SatRegion >= len(bp.corey) {
		return fmt.Errorf("cell %d: saturation region %d out of range", i, c.SatRegion)
	}
	if c.Sw+c.Sg > 1 {
		return fmt.Errorf("cell %d: water and gas saturations sum to %g", i, c.Sw+c.Sg)
	}
	bp.cells[i] = c
	bp.states[i] = bp.evaluate(c)
	return
}

func (bp *BlackOilProblem) Cell(i int) Cell { return bp.cells[i] }

func (bp *BlackOilProblem) NumCells() int              { return len(bp.cells) }
func (bp *BlackOilProblem) NumEq() int                 { return bp.phases.NumPhases }
func (bp *BlackOilProblem) CellDepth(cell int) float64 { return bp.cells[cell].Depth }
func (bp *BlackOilProblem) CellState(cell int) *CellState {
	return &bp.states[cell]
}

func (bp *BlackOilProblem) ConnectionMobility(cell, satRegion int) (mob [types.MaxPhases]ad.Eval) {
	var (
		st  = &bp.states[cell]
		sat = bp.saturations(bp.cells[cell])
	)
	kr := bp.relPerm(sat, satRegion)
	for p := range kr {
		if bp.phases.Active[p] {
			mob[p] = kr[p].Div(bp.viscosity(types.Phase(p), bp.cells[cell], st))
		}
	}
	return
}

func (bp *BlackOilProblem) saturations(c Cell) (sat [types.MaxPhases]ad.Eval) {
	if bp.swSlot >= 0 {
		sat[types.Water] = ad.Variable(c.Sw, bp.swSlot)
	}
	if bp.sgSlot >= 0 {
		sat[types.Gas] = ad.Variable(c.Sg, bp.sgSlot)
	}
	sat[types.Oil] = ad.Constant(1).Sub(sat[types.Water]).Sub(sat[types.Gas])
	return
}

func (bp *BlackOilProblem) relPerm(sat [types.MaxPhases]ad.Eval, region int) (kr [types.MaxPhases]ad.Eval) {
	cp := bp.corey[region]
	for p := range sat {
		if !bp.phases.Active[p] {
			continue
		}
		s := sat[p]
		if s.Val <= 0 {
			kr[p] = ad.Constant(0)
			continue
		}
		kr[p] = ad.Pow(s, cp.Exponent[p]).Scale(cp.MaxKr[p])
	}
	return
}

func (bp *BlackOilProblem) viscosity(phase types.Phase, c Cell, st *CellState) ad.Eval {
	switch phase {
	case types.Water:
		return bp.fluid.Water().Viscosity(c.PvtRegion, c.Temperature, st.Pressure)
	case types.Oil:
		return bp.fluid.Oil().Viscosity(c.PvtRegion, c.Temperature, st.Pressure, st.Rs)
	default:
		return bp.fluid.Gas().Viscosity(c.PvtRegion, c.Temperature, st.Pressure, st.Rv)
	}
}

func (bp *BlackOilProblem) evaluate(c Cell) (st CellState) {
	var (
		reg = c.PvtRegion
		T   = c.Temperature
	)
	st.Pressure = ad.Variable(c.Pressure, 0)
	st.Temperature = T
	st.PvtRegion = reg
	st.SatRegion = c.SatRegion
	st.Rs, st.Rv = ad.Constant(c.Rs), ad.Constant(c.Rv)
	if c.Saturated && bp.phases.Active[types.Gas] {
		st.Rs = bp.fluid.Oil().SaturatedGasDissolutionFactor(reg, T, st.Pressure)
		st.Rv = bp.fluid.Gas().SaturatedOilVaporizationFactor(reg, T, st.Pressure)
	}
	if bp.phases.Active[types.Water] {
		st.InvB[types.Water] = bp.fluid.Water().InverseFormationVolumeFactor(reg, T, st.Pressure)
	}
	st.InvB[types.Oil] = bp.fluid.Oil().InverseFormationVolumeFactor(reg, T, st.Pressure, st.Rs)
	if bp.phases.Active[types.Gas] {
		st.InvB[types.Gas] = bp.fluid.Gas().InverseFormationVolumeFactor(reg, T, st.Pressure, st.Rv)
	}
	kr := bp.relPerm(bp.saturations(c), c.SatRegion)
	var (
		rhoW = bp.fluid.SurfaceDensity(types.Water, reg)
		rhoO = bp.fluid.SurfaceDensity(types.Oil, reg)
		rhoG = bp.fluid.SurfaceDensity(types.Gas, reg)
	)
	for p := range kr {
		if !bp.phases.Active[p] {
			continue
		}
		st.RelPerm[p] = kr[p].Val
		st.Mobility[p] = kr[p].Div(bp.viscosity(types.Phase(p), c, &st))
	}
	st.Density[types.Water] = rhoW * st.InvB[types.Water].Val
	st.Density[types.Oil] = (rhoO + st.Rs.Val*rhoG) * st.InvB[types.Oil].Val
	st.Density[types.Gas] = (rhoG + st.Rv.Val*rhoO) * st.InvB[types.Gas].Val
	return
}
