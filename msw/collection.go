package msw

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/notargets/goreservoir/pvt"
	"github.com/notargets/goreservoir/reservoir"
	"github.com/notargets/goreservoir/types"
	"github.com/notargets/goreservoir/utils"
	"github.com/notargets/goreservoir/wellstate"
)

type CollectionConfig struct {
	Phases         types.PhaseUsage
	Fluid          pvt.FluidSystem
	Params         Parameters
	ParallelDegree int // defaults to GOMAXPROCS
	Logger         *slog.Logger
}

// WellCollection owns the multisegment wells of one report step and their
// layout inside the shared well state.
type WellCollection struct {
	wells   []*MultisegmentWell
	layouts []wellstate.Layout
	pm      *utils.PartitionMap
	logger  *slog.Logger
}

// NewWellCollection builds one well per description, in order. initialBhp
// seeds the well state pressures of each well.
func NewWellCollection(specs []*WellSpec, initialBhp []float64, timeStep int,
	cfg CollectionConfig) (wc *WellCollection, err error) {
	if len(initialBhp) != len(specs) {
		return nil, fmt.Errorf("%w: %d initial pressures for %d wells", ErrInvalidArgument, len(initialBhp), len(specs))
	}
	if cfg.ParallelDegree < 1 {
		cfg.ParallelDegree = runtime.GOMAXPROCS(0)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	wc = &WellCollection{
		logger: cfg.Logger,
	}
	var (
		firstPerf int
		names     = make(map[string]struct{}, len(specs))
	)
	for i, spec := range specs {
		var w *MultisegmentWell
		if spec != nil {
			if _, dup := names[spec.Name]; dup {
				return nil, fmt.Errorf("%w: well name %s repeated", ErrInvalidArgument, spec.Name)
			}
			names[spec.Name] = struct{}{}
		}
		if w, err = NewMultisegmentWell(spec, timeStep, WellConfig{
			Phases:      cfg.Phases,
			Fluid:       cfg.Fluid,
			Params:      cfg.Params,
			IndexOfWell: i,
			FirstPerf:   firstPerf,
			Logger:      cfg.Logger,
		}); err != nil {
			return
		}
		wc.wells = append(wc.wells, w)
		wc.layouts = append(wc.layouts, wellstate.Layout{
			Name:            w.Name(),
			NumPerforations: w.NumberOfPerforations(),
			NumSegments:     w.NumberOfSegments(),
			Bhp:             initialBhp[i],
		})
		firstPerf += w.NumberOfPerforations()
	}
	wc.pm = utils.NewPartitionMap(cfg.ParallelDegree, len(wc.wells))
	return
}

func (wc *WellCollection) Wells() []*MultisegmentWell { return wc.wells }

func (wc *WellCollection) Well(name string) (w *MultisegmentWell, err error) {
	for _, w = range wc.wells {
		if w.Name() == name {
			return
		}
	}
	return nil, fmt.Errorf("%w: no well named %s", ErrInvalidArgument, name)
}

// NewWellState allocates a well state laid out for the collection.
func (wc *WellCollection) NewWellState() *wellstate.WellState {
	var np int
	if len(wc.wells) > 0 {
		np = wc.wells[0].phases.NumPhases
	}
	return wellstate.New(np, wc.layouts)
}

// WellGraph returns, for every reservoir cell, the cells it couples to through a well.
func (wc *WellCollection) WellGraph(numCells int) [][]int {
	cells := make([][]int, len(wc.wells))
	for i, w := range wc.wells {
		cells[i] = w.WellCells()
	}
	return reservoir.WellConnections(numCells, cells)
}

func (wc *WellCollection) Init(problem reservoir.Problem) (err error) {
	for _, w := range wc.wells {
		if err = w.Init(problem); err != nil {
			return
		}
	}
	return
}

// BeginTimeStep prepares every well for a new time step. Wells under a new
// control should call UpdateWellStateWithTarget first.
func (wc *WellCollection) BeginTimeStep(problem reservoir.Problem, state *wellstate.WellState) (err error) {
	for _, w := range wc.wells {
		if err = w.BeginTimeStep(problem, state); err != nil {
			return
		}
	}
	return
}

// forEachBucket runs f over the wells of every partition concurrently, the
// wells of one partition in sequence.
func (wc *WellCollection) forEachBucket(ctx context.Context, f func(ctx context.Context, w *MultisegmentWell) error) error {
	g, gCtx := errgroup.WithContext(ctx)
	for bn := 0; bn < wc.pm.ParallelDegree; bn++ {
		kMin, kMax := wc.pm.GetBucketRange(bn)
		if kMin == kMax {
			continue
		}
		g.Go(func() (err error) {
			for k := kMin; k < kMax; k++ {
				if err = gCtx.Err(); err != nil {
					return
				}
				if err = f(gCtx, wc.wells[k]); err != nil {
					return
				}
			}
			return
		})
	}
	return g.Wait()
}

// AssembleWellEq assembles all wells concurrently. The sink must tolerate
// concurrent writes. Inner iteration traces are returned by well index.
func (wc *WellCollection) AssembleWellEq(ctx context.Context, problem reservoir.Problem, sink reservoir.Sink,
	dt float64, state *wellstate.WellState, onlyWells bool) (traces [][]IterationTrace, err error) {
	traces = make([][]IterationTrace, len(wc.wells))
	err = wc.forEachBucket(ctx, func(_ context.Context, w *MultisegmentWell) (err error) {
		traces[w.indexOfWell], err = w.AssembleWellEq(problem, sink, dt, state, onlyWells)
		return
	})
	return
}

// GetWellConvergence merges the reports of all wells.
func (wc *WellCollection) GetWellConvergence(bAvg []float64) (report ConvergenceReport, err error) {
	report.Converged = true
	for _, w := range wc.wells {
		var r ConvergenceReport
		if r, err = w.GetWellConvergence(bAvg); err != nil {
			return
		}
		report.Merge(r)
	}
	for _, pw := range report.ProblemWells {
		wc.logger.Warn("abnormal well residual", slog.String("well", pw.WellName),
			slog.String("phase", pw.PhaseName), slog.String("kind", pw.Kind), slog.Int("segment", pw.Segment))
	}
	return
}

// SolveEqAndUpdateWellState takes one well-only Newton step for every well.
func (wc *WellCollection) SolveEqAndUpdateWellState(ctx context.Context, state *wellstate.WellState) error {
	return wc.forEachBucket(ctx, func(_ context.Context, w *MultisegmentWell) error {
		return w.SolveEqAndUpdateWellState(state)
	})
}

// Apply computes Ax -= sum over wells of C^T D^-1 B x.
func (wc *WellCollection) Apply(x, Ax []float64) (err error) {
	for _, w := range wc.wells {
		if err = w.Apply(x, Ax); err != nil {
			return
		}
	}
	return
}

func (wc *WellCollection) ApplyResidual(r []float64) (err error) {
	for _, w := range wc.wells {
		if err = w.ApplyResidual(r); err != nil {
			return
		}
	}
	return
}

func (wc *WellCollection) AddWellContributions(sink reservoir.Sink) (err error) {
	for _, w := range wc.wells {
		if err = w.AddWellContributions(sink); err != nil {
			return
		}
	}
	return
}

func (wc *WellCollection) RecoverWellSolutionAndUpdateWellState(ctx context.Context, x []float64,
	state *wellstate.WellState) error {
	return wc.forEachBucket(ctx, func(_ context.Context, w *MultisegmentWell) error {
		return w.RecoverWellSolutionAndUpdateWellState(x, state)
	})
}
