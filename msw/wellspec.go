package msw

import "github.com/notargets/goreservoir/types"

// Segment is one wellbore segment. Numbers are 1-based; Outlet 0 marks the top segment.
type Segment struct {
	Number      int     `json:"Number" validate:"gte=1"`
	Outlet      int     `json:"Outlet" validate:"gte=0"`
	Depth       float64 `json:"Depth"`
	TotalLength float64 `json:"TotalLength" validate:"gte=0"`
	CrossArea   float64 `json:"CrossArea" validate:"gte=0"`
	Diameter    float64 `json:"Diameter" validate:"gte=0"`
	Roughness   float64 `json:"Roughness" validate:"gte=0"`
	Volume      float64 `json:"Volume" validate:"gte=0"`
}

// SegmentSet lists the segments with the top segment first.
type SegmentSet struct {
	Segments     []Segment               `json:"Segments" validate:"min=1,dive"`
	PressureDrop types.PressureDropModel `json:"-"`
	MultiPhase   types.MultiPhaseModel   `json:"-"`
}

// Completion connects a reservoir cell to a segment. SatTable is 1-based,
// 0 uses the saturation region of the cell.
type Completion struct {
	Cell      int     `json:"Cell" validate:"gte=0"`
	Segment   int     `json:"Segment" validate:"gte=1"`
	Depth     float64 `json:"Depth"`
	WellIndex float64 `json:"WellIndex" validate:"gt=0"`
	SatTable  int     `json:"SatTable" validate:"gte=0"`
}

// Control is the active constraint. Distr holds one weight per active phase
// position; positive entries mark the phases under rate control.
type Control struct {
	Type   types.ControlType
	Target float64
	Distr  []float64
}

func (c Control) phasesUnderControl() (n int) {
	for _, d := range c.Distr {
		if d > 0 {
			n++
		}
	}
	return
}

type WellSpec struct {
	Name             string
	Type             types.WellType
	AllowCrossFlow   bool
	EfficiencyFactor float64
	Segments         SegmentSet
	Completions      []Completion
	Control          Control
}
