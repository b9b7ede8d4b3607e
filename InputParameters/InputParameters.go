package InputParameters

import (
	"fmt"
	"sort"

	"github.com/ghodss/yaml"
	"github.com/go-playground/validator/v10"

	"github.com/notargets/goreservoir/msw"
	"github.com/notargets/goreservoir/pvt"
	"github.com/notargets/goreservoir/reservoir"
	"github.com/notargets/goreservoir/types"
)

var validate = validator.New()

type ControlInput struct {
	Type   string    `json:"Type" validate:"required"`
	Target float64   `json:"Target"`
	Distr  []float64 `json:"Distr"`
}

type WellInput struct {
	Name             string           `json:"Name" validate:"required"`
	Type             string           `json:"Type" validate:"required"`
	AllowCrossFlow   bool             `json:"AllowCrossFlow"`
	EfficiencyFactor float64          `json:"EfficiencyFactor" validate:"gte=0"`
	PressureDrop     string           `json:"PressureDrop"` // H--, HF- or HFA
	MultiPhase       string           `json:"MultiPhase"`   // HO or DF
	InitialBhp       float64          `json:"InitialBhp" validate:"gt=0"`
	InitialRates     []float64        `json:"InitialRates"` // per active phase, negative for production
	Control          ControlInput     `json:"Control"`
	Segments         []msw.Segment    `json:"Segments" validate:"min=1,dive"`
	Completions      []msw.Completion `json:"Completions" validate:"min=1,dive"`
}

// InputParametersMSW is a well-only case: a frozen reservoir, the wells
// perforating it and the report steps to solve the wells over.
type InputParametersMSW struct {
	Title               string                  `json:"Title"`
	Phases              []string                `json:"Phases" validate:"min=1,max=3"`
	TimeSteps           []float64               `json:"TimeSteps" validate:"min=1,dive,gt=0"` // report step lengths in seconds
	MaxNewtonIterations int                     `json:"MaxNewtonIterations" validate:"gte=1"`
	Fluid               []pvt.RegionParams      `json:"Fluid" validate:"dive"`
	Corey               []reservoir.CoreyParams `json:"Corey"`
	Cells               []reservoir.Cell        `json:"Cells" validate:"min=1,dive"`
	Wells               []WellInput             `json:"Wells" validate:"min=1,dive"`
	Parameters          msw.Parameters          `json:"Parameters"`
}

// Parse reads a YAML case. Fields absent from the file keep their defaults.
func (ip *InputParametersMSW) Parse(data []byte) (err error) {
	*ip = InputParametersMSW{
		MaxNewtonIterations: 20,
		Parameters:          msw.DefaultParameters(),
	}
	if err = yaml.Unmarshal(data, ip); err != nil {
		return
	}
	if len(ip.Fluid) == 0 {
		ip.Fluid = []pvt.RegionParams{pvt.DefaultRegionParams()}
	}
	if len(ip.Corey) == 0 {
		ip.Corey = []reservoir.CoreyParams{reservoir.DefaultCoreyParams()}
	}
	return
}

// Validate checks field ranges, names of enumerated inputs and cell references.
func (ip *InputParametersMSW) Validate() (err error) {
	if err = validate.Struct(ip); err != nil {
		return
	}
	var pu types.PhaseUsage
	if pu, err = ip.PhaseUsage(); err != nil {
		return
	}
	names := make(map[string]struct{}, len(ip.Wells))
	for _, wi := range ip.Wells {
		if _, dup := names[wi.Name]; dup {
			return fmt.Errorf("well %s is defined twice", wi.Name)
		}
		names[wi.Name] = struct{}{}
		if _, err = wi.spec(); err != nil {
			return
		}
		if len(wi.Control.Distr) != 0 && len(wi.Control.Distr) != pu.NumPhases {
			return fmt.Errorf("well %s: %d control weights for %d phases", wi.Name, len(wi.Control.Distr), pu.NumPhases)
		}
		if len(wi.InitialRates) != 0 && len(wi.InitialRates) != pu.NumPhases {
			return fmt.Errorf("well %s: %d initial rates for %d phases", wi.Name, len(wi.InitialRates), pu.NumPhases)
		}
		for _, c := range wi.Completions {
			if c.Cell >= len(ip.Cells) {
				return fmt.Errorf("well %s: completion cell %d is outside the %d cells", wi.Name, c.Cell, len(ip.Cells))
			}
		}
	}
	return
}

// PhaseUsage maps the phase names onto the active phases. Oil is always active.
func (ip *InputParametersMSW) PhaseUsage() (pu types.PhaseUsage, err error) {
	var active [types.MaxPhases]bool
	for _, label := range ip.Phases {
		var p types.Phase
		if p, err = types.ParsePhase(label); err != nil {
			return
		}
		active[p] = true
	}
	if !active[types.Oil] {
		err = fmt.Errorf("the oil phase must be active")
		return
	}
	pu = types.NewPhaseUsage(active[types.Water], active[types.Gas])
	return
}

func (wi WellInput) spec() (spec *msw.WellSpec, err error) {
	spec = &msw.WellSpec{
		Name:             wi.Name,
		AllowCrossFlow:   wi.AllowCrossFlow,
		EfficiencyFactor: wi.EfficiencyFactor,
		Segments:         msw.SegmentSet{Segments: wi.Segments},
		Completions:      wi.Completions,
		Control:          msw.Control{Target: wi.Control.Target, Distr: wi.Control.Distr},
	}
	if spec.Type, err = types.ParseWellType(wi.Type); err != nil {
		return nil, fmt.Errorf("well %s: %w", wi.Name, err)
	}
	if spec.Control.Type, err = types.ParseControlType(wi.Control.Type); err != nil {
		return nil, fmt.Errorf("well %s: %w", wi.Name, err)
	}
	if len(wi.PressureDrop) != 0 {
		if spec.Segments.PressureDrop, err = types.ParsePressureDropModel(wi.PressureDrop); err != nil {
			return nil, fmt.Errorf("well %s: %w", wi.Name, err)
		}
	}
	if len(wi.MultiPhase) != 0 {
		if spec.Segments.MultiPhase, err = types.ParseMultiPhaseModel(wi.MultiPhase); err != nil {
			return nil, fmt.Errorf("well %s: %w", wi.Name, err)
		}
	}
	return
}

// WellSpecs returns the well descriptions in input order with their initial
// bottom hole pressures.
func (ip *InputParametersMSW) WellSpecs() (specs []*msw.WellSpec, bhp []float64, err error) {
	for _, wi := range ip.Wells {
		var spec *msw.WellSpec
		if spec, err = wi.spec(); err != nil {
			return
		}
		specs = append(specs, spec)
		bhp = append(bhp, wi.InitialBhp)
	}
	return
}

func (ip *InputParametersMSW) NewFluid() (*pvt.BlackOil, error) {
	return pvt.NewBlackOil(ip.Fluid)
}

func (ip *InputParametersMSW) NewProblem(pu types.PhaseUsage, fluid pvt.FluidSystem) (*reservoir.BlackOilProblem, error) {
	return reservoir.NewBlackOilProblem(pu, fluid, ip.Corey, ip.Cells)
}

func (ip *InputParametersMSW) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", ip.Title)
	fmt.Printf("%v\t= Phases\n", ip.Phases)
	fmt.Printf("[%d]\t\t\t= Report Steps\n", len(ip.TimeSteps))
	fmt.Printf("[%d]\t\t\t= MaxNewtonIterations\n", ip.MaxNewtonIterations)
	fmt.Printf("[%d]\t\t\t= Cells\n", len(ip.Cells))
	fmt.Printf("[%d]\t\t\t= PVT Regions\n", len(ip.Fluid))
	fmt.Printf("[%d]\t\t\t= Saturation Regions\n", len(ip.Corey))
	wells := make([]WellInput, len(ip.Wells))
	copy(wells, ip.Wells)
	sort.Slice(wells, func(i, j int) bool { return wells[i].Name < wells[j].Name })
	for _, wi := range wells {
		fmt.Printf("Wells[%s] = %s, %s %8.3e, %d segments, %d completions\n",
			wi.Name, wi.Type, wi.Control.Type, wi.Control.Target, len(wi.Segments), len(wi.Completions))
	}
	ip.Parameters.Print()
}
