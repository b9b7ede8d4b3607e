/*
Copyright © 2020 The goreservoir Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/goreservoir/InputParameters"
	"github.com/notargets/goreservoir/msw"
	"github.com/notargets/goreservoir/reservoir"
	"github.com/notargets/goreservoir/types"
	"github.com/notargets/goreservoir/utils"
	"github.com/notargets/goreservoir/wellstate"
)

type ModelMSW struct {
	ICFile         string
	ParallelDegree int
	Profile        bool
	PerfCounters   bool
	Coupled        bool
	RunID          string
}

// MSWCmd represents the msw command
var MSWCmd = &cobra.Command{
	Use:   "msw",
	Short: "Solve multisegment wells against a frozen reservoir",
	Long: `
Reads a case file, then runs Newton iterations on the wells for every report
step and prints the convergence history and the final well state. With
--coupled every iteration goes through the reservoir linear system with the
wells eliminated by a Schur complement,

goreservoir msw -I case.yaml [--coupled]`,
	Run: func(cmd *cobra.Command, args []string) {
		var (
			err error
			ip  *InputParameters.InputParametersMSW
		)
		m := &ModelMSW{
			ICFile:         viper.GetString("msw.inputConditionsFile"),
			ParallelDegree: viper.GetInt("msw.parallel"),
			Profile:        viper.GetBool("msw.profile"),
			PerfCounters:   viper.GetBool("msw.perfCounters"),
			Coupled:        viper.GetBool("msw.coupled"),
			RunID:          uuid.NewString()[:8],
		}
		if ip, err = processInput(m); err != nil {
			fmt.Printf("error: %s\n", err.Error())
			os.Exit(1)
		}
		if m.Profile {
			defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
		}
		run := func() error { return RunMSW(context.Background(), m, ip, os.Stdout) }
		if m.PerfCounters {
			var instructions uint64
			if instructions, err = countInstructions(run); err == nil {
				fmt.Printf("%d CPU instructions\n", instructions)
			}
		} else {
			err = run()
		}
		if err != nil {
			fmt.Printf("error: %s\n", err.Error())
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(MSWCmd)
	MSWCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML case file with cells, wells and report steps")
	MSWCmd.Flags().IntP("parallel", "p", 0, "goroutines assembling wells, 0 uses GOMAXPROCS")
	MSWCmd.Flags().Bool("profile", false, "write a CPU profile to the current directory")
	MSWCmd.Flags().Bool("perfCounters", false, "count CPU instructions of the solve (linux only)")
	MSWCmd.Flags().Bool("coupled", false, "solve through the reservoir system instead of the well equations alone")
	for _, name := range []string{"inputConditionsFile", "parallel", "profile", "perfCounters", "coupled"} {
		_ = viper.BindPFlag("msw."+name, MSWCmd.Flags().Lookup(name))
	}
}

func processInput(m *ModelMSW) (ip *InputParameters.InputParametersMSW, err error) {
	if len(m.ICFile) == 0 {
		err = fmt.Errorf("must supply a case file (-I, --inputConditionsFile) in YAML format")
		return
	}
	var data []byte
	if data, err = os.ReadFile(m.ICFile); err != nil {
		return
	}
	ip = &InputParameters.InputParametersMSW{}
	if err = ip.Parse(data); err != nil {
		return
	}
	err = ip.Validate()
	return
}

// averageInverseFVF averages the inverse formation volume factor of every
// active phase over the cells. It scales the well residual in convergence checks.
func averageInverseFVF(problem reservoir.Problem, pu types.PhaseUsage) (bAvg []float64) {
	bAvg = make([]float64, pu.NumPhases)
	for cell := 0; cell < problem.NumCells(); cell++ {
		st := problem.CellState(cell)
		for c := range bAvg {
			bAvg[c] += st.InvB[pu.PhaseAt(c)].Val
		}
	}
	for c := range bAvg {
		bAvg[c] /= float64(problem.NumCells())
	}
	return
}

// coupledSystem is the reservoir linear system seen through the wells. The
// reservoir is frozen, so this run owns none of the cell rows and every one of
// them becomes an overlap row.
type coupledSystem struct {
	lz      *reservoir.Linearizer
	overlap []reservoir.OverlapRow
}

func newCoupledSystem(wc *msw.WellCollection, problem reservoir.Problem) *coupledSystem {
	var (
		nc         = problem.NumCells()
		graph      = wc.WellGraph(nc)
		overlap, _ = reservoir.FindOverlapAndInterior(nil, graph, make([]bool, nc))
	)
	return &coupledSystem{
		lz:      reservoir.NewLinearizer(nc, problem.NumEq(), nil, graph),
		overlap: overlap,
	}
}

// solve eliminates the wells from the assembled system, solves for the
// reservoir update and recovers the well updates from it. It returns the
// largest reservoir update.
func (cs *coupledSystem) solve(ctx context.Context, wc *msw.WellCollection,
	state *wellstate.WellState) (dxMax float64, err error) {
	if err = wc.AddWellContributions(cs.lz); err != nil {
		return
	}
	if err = wc.ApplyResidual(cs.lz.Residual); err != nil {
		return
	}
	cs.lz.MakeOverlapRowsInvalid(cs.overlap)
	var (
		lu mat.LU
		n  = len(cs.lz.Residual)
		x  = mat.NewVecDense(n, nil)
	)
	lu.Factorize(cs.lz.CSR())
	if err = lu.SolveVecTo(x, false, mat.NewVecDense(n, cs.lz.Residual)); err != nil {
		err = fmt.Errorf("reservoir system: %w", err)
		return
	}
	dx := x.RawVector().Data
	if err = wc.RecoverWellSolutionAndUpdateWellState(ctx, dx, state); err != nil {
		return
	}
	dxMax = utils.MaxAbs(dx)
	return
}

// RunMSW solves the wells of the case for every report step and writes the
// Newton history and the well state after each step to out.
func RunMSW(ctx context.Context, m *ModelMSW, ip *InputParameters.InputParametersMSW, out io.Writer) (err error) {
	var (
		pu      types.PhaseUsage
		specs   []*msw.WellSpec
		bhp     []float64
		wc      *msw.WellCollection
		problem *reservoir.BlackOilProblem
		cs      *coupledSystem
		sink    reservoir.Sink
		logger  = slog.Default().With(slog.String("run", m.RunID))
	)
	if pu, err = ip.PhaseUsage(); err != nil {
		return
	}
	fluid, err := ip.NewFluid()
	if err != nil {
		return
	}
	if problem, err = ip.NewProblem(pu, fluid); err != nil {
		return
	}
	if specs, bhp, err = ip.WellSpecs(); err != nil {
		return
	}
	if wc, err = msw.NewWellCollection(specs, bhp, 0, msw.CollectionConfig{
		Phases:         pu,
		Fluid:          fluid,
		Params:         ip.Parameters,
		ParallelDegree: m.ParallelDegree,
		Logger:         logger,
	}); err != nil {
		return
	}
	if err = wc.Init(problem); err != nil {
		return
	}
	state := wc.NewWellState()
	for i, w := range wc.Wells() {
		copy(state.WellRates[i*pu.NumPhases:(i+1)*pu.NumPhases], ip.Wells[i].InitialRates)
		w.InitSegmentRatesWithWellRates(state)
		w.UpdateWellStateWithTarget(state)
	}
	if m.Coupled {
		cs = newCoupledSystem(wc, problem)
		sink = cs.lz
	}
	bAvg := averageInverseFVF(problem, pu)
	logger.Info("starting well solve", slog.String("title", ip.Title),
		slog.Int("wells", len(specs)), slog.Int("steps", len(ip.TimeSteps)),
		slog.Bool("coupled", m.Coupled), slog.String("blas", utils.BlasBackend()))
	start := time.Now()
	for step, dt := range ip.TimeSteps {
		if err = wc.BeginTimeStep(problem, state); err != nil {
			return
		}
		var (
			report    msw.ConvergenceReport
			innerIter int
		)
		for it := 0; it < ip.MaxNewtonIterations; it++ {
			var traces [][]msw.IterationTrace
			if cs != nil {
				cs.lz.Zero()
			}
			if traces, err = wc.AssembleWellEq(ctx, problem, sink, dt, state, cs == nil); err != nil {
				return
			}
			for _, tr := range traces {
				innerIter += len(tr)
			}
			if report, err = wc.GetWellConvergence(bAvg); err != nil {
				return
			}
			fmt.Fprintf(out, "step %3d iter %3d %s\n", step, it, report.String())
			if report.Converged {
				break
			}
			if cs == nil {
				if err = wc.SolveEqAndUpdateWellState(ctx, state); err != nil {
					return
				}
				continue
			}
			var dxMax float64
			if dxMax, err = cs.solve(ctx, wc, state); err != nil {
				return
			}
			logger.Debug("reservoir update", slog.Int("step", step), slog.Int("iter", it),
				slog.Float64("maxAbs", dxMax))
		}
		if !report.Converged {
			logger.Warn("wells did not converge", slog.Int("step", step),
				slog.Int("iterations", ip.MaxNewtonIterations))
		}
		logger.Debug("report step done", slog.Int("step", step), slog.Int("innerIterations", innerIter))
		fmt.Fprint(out, state.Print())
	}
	logger.Info("well solve done", slog.Duration("elapsed", time.Since(start)))
	return
}
