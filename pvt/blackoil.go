package pvt

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/interp"

	"github.com/notargets/goreservoir/ad"
	"github.com/notargets/goreservoir/types"
)

// WaterParams describes water as a slightly compressible liquid.
type WaterParams struct {
	RefPressure      float64 `json:"RefPressure"`
	InvBRef          float64 `json:"InvBRef" validate:"gt=0"`
	Compressibility  float64 `json:"Compressibility"`
	Viscosity        float64 `json:"Viscosity" validate:"gt=0"`
	ViscosityPerPres float64 `json:"ViscosityPerPres"`
}

// OilParams describes live oil. The saturated dissolved gas ratio is tabulated against pressure.
type OilParams struct {
	RefPressure     float64   `json:"RefPressure"`
	InvBRef         float64   `json:"InvBRef" validate:"gt=0"`
	Compressibility float64   `json:"Compressibility"`
	RsSwelling      float64   `json:"RsSwelling" validate:"gte=0"`
	Viscosity       float64   `json:"Viscosity" validate:"gt=0"`
	RsThinning      float64   `json:"RsThinning" validate:"gte=0"`
	SatPressures    []float64 `json:"SatPressures" validate:"min=2"`
	SatRs           []float64 `json:"SatRs"`
}

// GasParams describes wet gas as ideal with vaporized oil. The saturated
// vaporized oil ratio is tabulated against pressure.
type GasParams struct {
	RefPressure     float64   `json:"RefPressure" validate:"gt=0"`
	InvBRef         float64   `json:"InvBRef" validate:"gt=0"`
	RvSwelling      float64   `json:"RvSwelling" validate:"gte=0"`
	Viscosity       float64   `json:"Viscosity" validate:"gt=0"`
	ViscosityPerRef float64   `json:"ViscosityPerRef"`
	SatPressures    []float64 `json:"SatPressures" validate:"min=2"`
	SatRv           []float64 `json:"SatRv"`
}

type RegionParams struct {
	SurfaceDensity [types.MaxPhases]float64 `json:"SurfaceDensity"`
	Water          WaterParams              `json:"Water"`
	Oil            OilParams                `json:"Oil"`
	Gas            GasParams                `json:"Gas"`
}

// BlackOil is a reference FluidSystem with one parameter set per PVT region.
type BlackOil struct {
	regions []RegionParams
	rsSat   []*satTable
	rvSat   []*satTable
	water   waterPvt
	oil     oilPvt
	gas     gasPvt
}

func NewBlackOil(regions []RegionParams) (bo *BlackOil, err error) {
	if len(regions) == 0 {
		err = fmt.Errorf("black oil fluid needs at least one pvt region")
		return
	}
	bo = &BlackOil{
		regions: regions,
		rsSat:   make([]*satTable, len(regions)),
		rvSat:   make([]*satTable, len(regions)),
	}
	for r, rp := range regions {
		if bo.rsSat[r], err = fitTable(rp.Oil.SatPressures, rp.Oil.SatRs); err != nil {
			err = fmt.Errorf("region %d oil saturation table: %w", r, err)
			return
		}
		if bo.rvSat[r], err = fitTable(rp.Gas.SatPressures, rp.Gas.SatRv); err != nil {
			err = fmt.Errorf("region %d gas saturation table: %w", r, err)
			return
		}
	}
	bo.water = waterPvt{bo}
	bo.oil = oilPvt{bo}
	bo.gas = gasPvt{bo}
	return
}

// satTable is a saturated ratio tabulated against pressure.
type satTable struct {
	pl     *interp.PiecewiseLinear
	xs, ys []float64
}

func fitTable(xs, ys []float64) (tbl *satTable, err error) {
	if len(xs) < 2 || len(xs) != len(ys) {
		err = fmt.Errorf("need at least two (pressure, ratio) pairs, got %d pressures and %d ratios",
			len(xs), len(ys))
		return
	}
	if !sort.SliceIsSorted(xs, func(i, j int) bool { return xs[i] < xs[j] }) {
		err = fmt.Errorf("pressures must be increasing")
		return
	}
	for i := 1; i < len(xs); i++ {
		if xs[i] == xs[i-1] {
			err = fmt.Errorf("repeated pressure %g", xs[i])
			return
		}
	}
	tbl = &satTable{
		pl: &interp.PiecewiseLinear{},
		xs: append([]float64(nil), xs...),
		ys: append([]float64(nil), ys...),
	}
	if err = tbl.pl.Fit(tbl.xs, tbl.ys); err != nil {
		tbl = nil
	}
	return
}

// slope returns the slope of the interval holding p, using the interval on the
// left at an interior node. It is zero outside the table.
func (tbl *satTable) slope(p float64) float64 {
	n := len(tbl.xs)
	if p < tbl.xs[0] || p > tbl.xs[n-1] {
		return 0
	}
	i := sort.SearchFloat64s(tbl.xs, p)
	if i == 0 {
		i = 1
	}
	return (tbl.ys[i] - tbl.ys[i-1]) / (tbl.xs[i] - tbl.xs[i-1])
}

// lookup evaluates a table at an AD pressure. Outside the table the end values are held.
func lookup(tbl *satTable, p ad.Eval) (r ad.Eval) {
	r = p.Scale(tbl.slope(p.Val))
	r.Val = tbl.pl.Predict(p.Val)
	return
}

func (bo *BlackOil) NumRegions() int { return len(bo.regions) }

func (bo *BlackOil) SurfaceDensity(phase types.Phase, region int) float64 {
	return bo.regions[region].SurfaceDensity[phase]
}

func (bo *BlackOil) Water() WaterPvt { return bo.water }
func (bo *BlackOil) Oil() OilPvt     { return bo.oil }
func (bo *BlackOil) Gas() GasPvt     { return bo.gas }

type waterPvt struct{ bo *BlackOil }

func (w waterPvt) InverseFormationVolumeFactor(region int, _ float64, p ad.Eval) ad.Eval {
	wp := w.bo.regions[region].Water
	return ad.Exp(p.AddScalar(-wp.RefPressure).Scale(wp.Compressibility)).Scale(wp.InvBRef)
}

func (w waterPvt) Viscosity(region int, _ float64, p ad.Eval) ad.Eval {
	wp := w.bo.regions[region].Water
	return ad.Exp(p.AddScalar(-wp.RefPressure).Scale(wp.ViscosityPerPres)).Scale(wp.Viscosity)
}

type oilPvt struct{ bo *BlackOil }

func (o oilPvt) InverseFormationVolumeFactor(region int, _ float64, p, rs ad.Eval) ad.Eval {
	op := o.bo.regions[region].Oil
	// invB = invBref exp(c (p - pref)) / (1 + s rs)
	num := ad.Exp(p.AddScalar(-op.RefPressure).Scale(op.Compressibility)).Scale(op.InvBRef)
	return num.Div(rs.Scale(op.RsSwelling).AddScalar(1))
}

func (o oilPvt) Viscosity(region int, _ float64, _ ad.Eval, rs ad.Eval) ad.Eval {
	op := o.bo.regions[region].Oil
	return rs.Scale(op.RsThinning).AddScalar(1).Inv().Scale(op.Viscosity)
}

func (o oilPvt) SaturatedGasDissolutionFactor(region int, _ float64, p ad.Eval) ad.Eval {
	return lookup(o.bo.rsSat[region], p)
}

func (o oilPvt) SaturatedInverseFormationVolumeFactor(region int, T float64, p ad.Eval) ad.Eval {
	return o.InverseFormationVolumeFactor(region, T, p, o.SaturatedGasDissolutionFactor(region, T, p))
}

func (o oilPvt) SaturatedViscosity(region int, T float64, p ad.Eval) ad.Eval {
	return o.Viscosity(region, T, p, o.SaturatedGasDissolutionFactor(region, T, p))
}

type gasPvt struct{ bo *BlackOil }

func (g gasPvt) InverseFormationVolumeFactor(region int, _ float64, p, rv ad.Eval) ad.Eval {
	gp := g.bo.regions[region].Gas
	// invB = invBref (p / pref) / (1 + s rv)
	return p.Scale(gp.InvBRef / gp.RefPressure).Div(rv.Scale(gp.RvSwelling).AddScalar(1))
}

func (g gasPvt) Viscosity(region int, _ float64, p, _ ad.Eval) ad.Eval {
	gp := g.bo.regions[region].Gas
	return ad.Exp(p.AddScalar(-gp.RefPressure).Scale(gp.ViscosityPerRef / gp.RefPressure)).Scale(gp.Viscosity)
}

func (g gasPvt) SaturatedOilVaporizationFactor(region int, _ float64, p ad.Eval) ad.Eval {
	return lookup(g.bo.rvSat[region], p)
}

func (g gasPvt) SaturatedInverseFormationVolumeFactor(region int, T float64, p ad.Eval) ad.Eval {
	return g.InverseFormationVolumeFactor(region, T, p, g.SaturatedOilVaporizationFactor(region, T, p))
}

func (g gasPvt) SaturatedViscosity(region int, T float64, p ad.Eval) ad.Eval {
	return g.Viscosity(region, T, p, g.SaturatedOilVaporizationFactor(region, T, p))
}

// DefaultRegionParams returns a representative SI parameter set for one region.
func DefaultRegionParams() RegionParams {
	return RegionParams{
		SurfaceDensity: [types.MaxPhases]float64{1000., 800., 1.},
		Water: WaterParams{
			RefPressure:     1.e7,
			InvBRef:         1. / 1.01,
			Compressibility: 4.5e-10,
			Viscosity:       5.e-4,
		},
		Oil: OilParams{
			RefPressure:     1.e7,
			InvBRef:         1. / 1.05,
			Compressibility: 1.5e-9,
			RsSwelling:      0.003,
			Viscosity:       1.e-3,
			RsThinning:      0.005,
			SatPressures:    []float64{1.e5, 1.e7, 3.e7, 5.e7},
			SatRs:           []float64{0., 50., 120., 180.},
		},
		Gas: GasParams{
			RefPressure:     1.e7,
			InvBRef:         100.,
			RvSwelling:      50.,
			Viscosity:       2.e-5,
			ViscosityPerRef: 0.1,
			SatPressures:    []float64{1.e5, 1.e7, 3.e7, 5.e7},
			SatRv:           []float64{0., 1.e-4, 2.e-4, 3.e-4},
		},
	}
}
