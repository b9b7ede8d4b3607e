package msw

import (
	"fmt"
	"math"
	"strings"
)

const (
	problemNaN      = "nan"
	problemTooLarge = "too_large"
	notConverged    = "not_converged"
)

// ProblemWell records a residual entry that is NaN or out of range.
type ProblemWell struct {
	WellName  string
	PhaseName string
	Kind      string
	Segment   int
}

type ConvergenceReport struct {
	Converged             bool
	NaNResidualFound      bool
	TooLargeResidualFound bool
	ProblemWells          []ProblemWell
	MaximumResidual       []float64 // per well equation, scaled for the component rows
}

// Merge combines the report of another well into r.
func (r *ConvergenceReport) Merge(o ConvergenceReport) {
	r.Converged = r.Converged && o.Converged
	r.NaNResidualFound = r.NaNResidualFound || o.NaNResidualFound
	r.TooLargeResidualFound = r.TooLargeResidualFound || o.TooLargeResidualFound
	r.ProblemWells = append(r.ProblemWells, o.ProblemWells...)
	if len(r.MaximumResidual) < len(o.MaximumResidual) {
		r.MaximumResidual = append(r.MaximumResidual, make([]float64, len(o.MaximumResidual)-len(r.MaximumResidual))...)
	}
	for i, v := range o.MaximumResidual {
		r.MaximumResidual[i] = math.Max(r.MaximumResidual[i], v)
	}
}

func (r ConvergenceReport) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "converged = %v, max residual = %8.3e", r.Converged, r.MaximumResidual)
	for _, pw := range r.ProblemWells {
		fmt.Fprintf(&sb, "\n    %s residual in well %s, segment %d, %s", pw.Kind, pw.WellName, pw.Segment, pw.PhaseName)
	}
	return sb.String()
}

// GetWellConvergence checks the well residual. Component rows are scaled by
// the average inverse formation volume factors bAvg, one per component.
func (w *MultisegmentWell) GetWellConvergence(bAvg []float64) (report ConvergenceReport, err error) {
	var (
		nc  = w.numComponents()
		nwe = w.numWellEq
	)
	if err = w.initialized("convergence"); err != nil {
		return
	}
	if len(bAvg) != nc {
		err = wellErr(w.name, "convergence",
			fmt.Errorf("%w: %d scaling factors for %d components", ErrInvalidArgument, len(bAvg), nc))
		return
	}
	report.MaximumResidual = make([]float64, nwe)
	flag := func(seg int, phase, kind string) {
		report.ProblemWells = append(report.ProblemWells,
			ProblemWell{WellName: w.name, PhaseName: phase, Kind: kind, Segment: seg})
		convergenceFailures.WithLabelValues(kind).Inc()
	}
	for seg := 0; seg < w.NumberOfSegments(); seg++ {
		for eq := 0; eq < nwe; eq++ {
			res := math.Abs(w.eq.resWell[seg*nwe+eq])
			if eq < nc {
				res *= bAvg[eq]
				switch {
				case math.IsNaN(res):
					report.NaNResidualFound = true
					flag(seg, w.phaseName(eq), problemNaN)
				case res > w.params.MaxResidualAllowed:
					report.TooLargeResidualFound = true
					flag(seg, w.phaseName(eq), problemTooLarge)
				default:
					report.MaximumResidual[eq] = math.Max(report.MaximumResidual[eq], res)
				}
				continue
			}
			switch {
			case math.IsNaN(res):
				report.NaNResidualFound = true
				flag(seg, "Pressure", problemNaN)
			case math.IsInf(res, 0):
				report.TooLargeResidualFound = true
				flag(seg, "Pressure", problemTooLarge)
			default:
				report.MaximumResidual[eq] = math.Max(report.MaximumResidual[eq], res)
			}
		}
	}
	if report.NaNResidualFound || report.TooLargeResidualFound {
		return
	}
	report.Converged = report.MaximumResidual[w.sPres] < w.params.TolerancePressureMsWells
	for c := 0; c < nc; c++ {
		report.Converged = report.Converged && report.MaximumResidual[c] < w.params.ToleranceWells
	}
	if !report.Converged {
		convergenceFailures.WithLabelValues(notConverged).Inc()
	}
	return
}
