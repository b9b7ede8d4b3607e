package msw

import (
	"log/slog"

	"github.com/notargets/goreservoir/reservoir"
	"github.com/notargets/goreservoir/types"
	"github.com/notargets/goreservoir/utils"
	"github.com/notargets/goreservoir/wellstate"
)

// IterationTrace records one inner iteration.
type IterationTrace struct {
	Iteration       int
	Converged       bool
	MaximumResidual []float64
}

// innerScaling returns the fixed component scaling used by inner iterations:
// 0.5 for water and oil, 0.005 for gas.
func (w *MultisegmentWell) innerScaling() (b []float64) {
	b = utils.ConstArray(w.numComponents(), 0.5)
	if w.phases.Active[types.Gas] {
		b[w.phases.Pos[types.Gas]] = 0.005
	}
	return
}

// IterateWellEquations runs Newton iterations on the well equations alone with
// the reservoir state frozen, stopping at convergence or after
// MaxInnerIterations updates.
func (w *MultisegmentWell) IterateWellEquations(problem reservoir.Problem, dt float64,
	state *wellstate.WellState) (trace []IterationTrace, err error) {
	var (
		b         = w.innerScaling()
		converged bool
		it        int
	)
	defer func() { innerIterations.Observe(float64(it)) }()
	for ; it < w.params.MaxInnerIterations; it++ {
		if err = w.AssembleWellEqWithoutIteration(problem, nil, dt, state, true); err != nil {
			return
		}
		var (
			dx     []float64
			report ConvergenceReport
		)
		if dx, err = w.eq.invDX(); err != nil {
			err = wellErr(w.name, "inner iteration", err)
			return
		}
		if report, err = w.GetWellConvergence(b); err != nil {
			return
		}
		converged = report.Converged
		trace = append(trace, IterationTrace{Iteration: it, Converged: converged,
			MaximumResidual: report.MaximumResidual})
		w.logger.Debug("inner iteration", slog.Int("iteration", it), slog.Bool("converged", converged))
		if converged {
			break
		}
		w.updateWellState(dx, true, state)
	}
	return
}
