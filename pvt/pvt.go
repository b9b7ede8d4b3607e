// Package pvt provides the pressure-volume-temperature capabilities the well
// model consumes, and a reference black-oil implementation.
package pvt

import (
	"github.com/notargets/goreservoir/ad"
	"github.com/notargets/goreservoir/types"
)

type WaterPvt interface {
	InverseFormationVolumeFactor(region int, temperature float64, pressure ad.Eval) ad.Eval
	Viscosity(region int, temperature float64, pressure ad.Eval) ad.Eval
}

// OilPvt evaluates live oil with dissolved gas ratio rs, or at saturation.
type OilPvt interface {
	InverseFormationVolumeFactor(region int, temperature float64, pressure, rs ad.Eval) ad.Eval
	Viscosity(region int, temperature float64, pressure, rs ad.Eval) ad.Eval
	SaturatedInverseFormationVolumeFactor(region int, temperature float64, pressure ad.Eval) ad.Eval
	SaturatedViscosity(region int, temperature float64, pressure ad.Eval) ad.Eval
	SaturatedGasDissolutionFactor(region int, temperature float64, pressure ad.Eval) ad.Eval
}

// GasPvt evaluates wet gas with vaporized oil ratio rv, or at saturation.
type GasPvt interface {
	InverseFormationVolumeFactor(region int, temperature float64, pressure, rv ad.Eval) ad.Eval
	Viscosity(region int, temperature float64, pressure, rv ad.Eval) ad.Eval
	SaturatedInverseFormationVolumeFactor(region int, temperature float64, pressure ad.Eval) ad.Eval
	SaturatedViscosity(region int, temperature float64, pressure ad.Eval) ad.Eval
	SaturatedOilVaporizationFactor(region int, temperature float64, pressure ad.Eval) ad.Eval
}

type FluidSystem interface {
	NumRegions() int
	SurfaceDensity(phase types.Phase, region int) float64
	Water() WaterPvt
	Oil() OilPvt
	Gas() GasPvt
}
