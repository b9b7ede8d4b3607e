package msw

import (
	"fmt"

	"gonum.org/v1/gonum/unit/constant"
)

// Parameters controls convergence checks and Newton updates of multisegment wells.
type Parameters struct {
	ToleranceWells           float64 `json:"ToleranceWells" validate:"gt=0"`
	TolerancePressureMsWells float64 `json:"TolerancePressureMsWells" validate:"gt=0"`
	MaxResidualAllowed       float64 `json:"MaxResidualAllowed" validate:"gt=0"`
	DwellFractionMax         float64 `json:"DwellFractionMax" validate:"gt=0"`
	MaxPressureChangeMsWells float64 `json:"MaxPressureChangeMsWells" validate:"gt=0"`
	UseInnerIterations       bool    `json:"UseInnerIterations"`
	MaxInnerIterations       int     `json:"MaxInnerIterations" validate:"gte=0"`
	InnerRelaxation          float64 `json:"InnerRelaxation" validate:"gt=0,lte=1"`
	Gravity                  float64 `json:"Gravity" validate:"gte=0"`
}

func DefaultParameters() Parameters {
	return Parameters{
		ToleranceWells:           1.e-4,
		TolerancePressureMsWells: 1000.,
		MaxResidualAllowed:       1.e7,
		DwellFractionMax:         0.2,
		MaxPressureChangeMsWells: 2.e5,
		UseInnerIterations:       true,
		MaxInnerIterations:       10,
		InnerRelaxation:          0.2,
		Gravity:                  float64(constant.StandardGravity),
	}
}

func (p Parameters) Print() {
	fmt.Printf("%8.3e\t\t= ToleranceWells\n", p.ToleranceWells)
	fmt.Printf("%8.3e\t\t= TolerancePressureMsWells [Pa]\n", p.TolerancePressureMsWells)
	fmt.Printf("%8.3e\t\t= MaxResidualAllowed\n", p.MaxResidualAllowed)
	fmt.Printf("%8.3f\t\t= DwellFractionMax\n", p.DwellFractionMax)
	fmt.Printf("%8.3e\t\t= MaxPressureChangeMsWells [Pa]\n", p.MaxPressureChangeMsWells)
	fmt.Printf("[%v]\t\t\t= UseInnerIterations\n", p.UseInnerIterations)
	fmt.Printf("[%d]\t\t\t= MaxInnerIterations\n", p.MaxInnerIterations)
	fmt.Printf("%8.3f\t\t= InnerRelaxation\n", p.InnerRelaxation)
	fmt.Printf("%8.5f\t\t= Gravity [m/s2]\n", p.Gravity)
}
