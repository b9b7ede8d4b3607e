// Package wellstate holds the per-well solution shared between the well models
// and the outer nonlinear solver.
package wellstate

import (
	"fmt"
	"strings"
)

// Layout sizes one well inside the shared state.
type Layout struct {
	Name            string
	NumPerforations int
	NumSegments     int
	Bhp             float64
}

// WellState stores flat arrays indexed by global perforation and segment number,
// phases innermost. Offsets of well w are FirstPerf[w] and TopSegmentLoc[w].
type WellState struct {
	NumPhases      int
	Names          []string
	Bhp            []float64
	Thp            []float64
	WellRates      []float64
	PerfPhaseRates []float64
	PerfPress      []float64
	SegPress       []float64
	SegRates       []float64
	FirstPerf      []int
	TopSegmentLoc  []int
}

func New(numPhases int, wells []Layout) (ws *WellState) {
	var (
		nw           = len(wells)
		nperf, nsegs int
	)
	ws = &WellState{
		NumPhases:     numPhases,
		Names:         make([]string, nw),
		Bhp:           make([]float64, nw),
		Thp:           make([]float64, nw),
		WellRates:     make([]float64, nw*numPhases),
		FirstPerf:     make([]int, nw+1),
		TopSegmentLoc: make([]int, nw+1),
	}
	for w, l := range wells {
		ws.Names[w] = l.Name
		ws.Bhp[w] = l.Bhp
		ws.FirstPerf[w] = nperf
		ws.TopSegmentLoc[w] = nsegs
		nperf += l.NumPerforations
		nsegs += l.NumSegments
	}
	ws.FirstPerf[nw] = nperf
	ws.TopSegmentLoc[nw] = nsegs
	ws.PerfPhaseRates = make([]float64, nperf*numPhases)
	ws.PerfPress = make([]float64, nperf)
	ws.SegRates = make([]float64, nsegs*numPhases)
	ws.SegPress = make([]float64, nsegs)
	for w := range wells {
		for perf := ws.FirstPerf[w]; perf < ws.FirstPerf[w+1]; perf++ {
			ws.PerfPress[perf] = ws.Bhp[w]
		}
		for seg := ws.TopSegmentLoc[w]; seg < ws.TopSegmentLoc[w+1]; seg++ {
			ws.SegPress[seg] = ws.Bhp[w]
		}
	}
	return
}

func (ws *WellState) NumWells() int { return len(ws.Bhp) }

func (ws *WellState) NumSegments(w int) int {
	return ws.TopSegmentLoc[w+1] - ws.TopSegmentLoc[w]
}

func (ws *WellState) NumPerforations(w int) int {
	return ws.FirstPerf[w+1] - ws.FirstPerf[w]
}

// WellRate returns the phase rate of well w at active phase position p.
func (ws *WellState) WellRate(w, p int) float64 { return ws.WellRates[w*ws.NumPhases+p] }

// SegRate returns the phase rate of segment seg (local to well w).
func (ws *WellState) SegRate(w, seg, p int) float64 {
	return ws.SegRates[(ws.TopSegmentLoc[w]+seg)*ws.NumPhases+p]
}

// SegPressure returns the pressure of segment seg (local to well w).
func (ws *WellState) SegPressure(w, seg int) float64 {
	return ws.SegPress[ws.TopSegmentLoc[w]+seg]
}

func (ws *WellState) Index(name string) (w int, err error) {
	for w = range ws.Names {
		if ws.Names[w] == name {
			return
		}
	}
	return -1, fmt.Errorf("no well named %s in well state", name)
}

func (ws *WellState) Print() (txt string) {
	var sb strings.Builder
	for w := range ws.Bhp {
		fmt.Fprintf(&sb, "%-10s bhp = %12.5e, rates = %v\n", ws.Names[w], ws.Bhp[w],
			ws.WellRates[w*ws.NumPhases:(w+1)*ws.NumPhases])
		for seg := 0; seg < ws.NumSegments(w); seg++ {
			fmt.Fprintf(&sb, "    seg[%d] p = %12.5e, rates = %v\n", seg, ws.SegPressure(w, seg),
				ws.SegRates[(ws.TopSegmentLoc[w]+seg)*ws.NumPhases:(ws.TopSegmentLoc[w]+seg+1)*ws.NumPhases])
		}
	}
	txt = sb.String()
	return
}

// CalculateSegmentRates sums, for every segment, the rates of its own
// perforations and of all segments upstream of it. Perforation and segment
// indices are local to one well; inlets must describe a tree rooted at 0.
func CalculateSegmentRates(inlets, segPerfs [][]int, perfRates []float64, np int) (rates []float64) {
	rates = make([]float64, len(inlets)*np)
	var accumulate func(seg int)
	accumulate = func(seg int) {
		for _, perf := range segPerfs[seg] {
			for p := 0; p < np; p++ {
				rates[seg*np+p] += perfRates[perf*np+p]
			}
		}
		for _, inlet := range inlets[seg] {
			accumulate(inlet)
			for p := 0; p < np; p++ {
				rates[seg*np+p] += rates[inlet*np+p]
			}
		}
	}
	if len(inlets) > 0 {
		accumulate(0)
	}
	return
}
