package msw

import (
	"fmt"

	"github.com/notargets/goreservoir/types"
)

// topology is the segment tree of one well stored by location (index into the
// segment list, top segment at 0) with perforations attached to segments.
type topology struct {
	segments       []Segment
	pressureDrop   types.PressureDropModel
	multiPhase     types.MultiPhaseModel
	location       map[int]int
	outlets        []int // -1 for the top segment
	inlets         [][]int
	perforations   [][]int
	perfSegment    []int
	depthDiffs     []float64 // depth(seg) - depth(outlet)
	perfDepthDiffs []float64 // depth(perf) - depth(seg)
}

func newTopology(set SegmentSet, completions []Completion) (tp *topology, err error) {
	var (
		nseg = len(set.Segments)
	)
	if nseg == 0 {
		err = fmt.Errorf("%w: no segments", ErrInvalidTopology)
		return
	}
	if len(completions) == 0 {
		err = fmt.Errorf("%w: no perforations", ErrInvalidTopology)
		return
	}
	tp = &topology{
		segments:       set.Segments,
		pressureDrop:   set.PressureDrop,
		multiPhase:     set.MultiPhase,
		location:       make(map[int]int, nseg),
		outlets:        make([]int, nseg),
		inlets:         make([][]int, nseg),
		perforations:   make([][]int, nseg),
		perfSegment:    make([]int, len(completions)),
		depthDiffs:     make([]float64, nseg),
		perfDepthDiffs: make([]float64, len(completions)),
	}
	for i, s := range set.Segments {
		if s.Number < 1 {
			err = fmt.Errorf("%w: segment number %d at location %d", ErrInvalidTopology, s.Number, i)
			return
		}
		if _, dup := tp.location[s.Number]; dup {
			err = fmt.Errorf("%w: segment number %d repeated", ErrInvalidTopology, s.Number)
			return
		}
		tp.location[s.Number] = i
	}
	if set.Segments[0].Outlet != 0 {
		err = fmt.Errorf("%w: first segment %d must be the top segment with outlet 0",
			ErrInvalidTopology, set.Segments[0].Number)
		return
	}
	tp.outlets[0] = -1
	for i := 1; i < nseg; i++ {
		s := set.Segments[i]
		if s.Outlet == 0 {
			err = fmt.Errorf("%w: segment %d has no outlet", ErrInvalidTopology, s.Number)
			return
		}
		loc, ok := tp.location[s.Outlet]
		if !ok {
			err = fmt.Errorf("%w: outlet %d of segment %d", ErrUnknownSegment, s.Outlet, s.Number)
			return
		}
		tp.outlets[i] = loc
		tp.inlets[loc] = append(tp.inlets[loc], i)
	}
	for i := 1; i < nseg; i++ {
		for j, steps := i, 0; j != 0; j = tp.outlets[j] {
			if steps++; steps > nseg {
				err = fmt.Errorf("%w: starting at segment %d", ErrSegmentCycle, set.Segments[i].Number)
				return
			}
		}
	}
	for i := 1; i < nseg; i++ {
		var (
			s      = set.Segments[i]
			outlet = set.Segments[tp.outlets[i]]
		)
		tp.depthDiffs[i] = s.Depth - outlet.Depth
		if tp.pressureDrop.Friction() {
			if s.TotalLength-outlet.TotalLength <= 0 {
				err = fmt.Errorf("%w: segment %d is not longer than its outlet %d",
					ErrInvalidTopology, s.Number, outlet.Number)
				return
			}
			if s.CrossArea <= 0 || s.Diameter <= 0 {
				err = fmt.Errorf("%w: segment %d needs positive area and diameter for friction",
					ErrInvalidTopology, s.Number)
				return
			}
		}
	}
	for perf, c := range completions {
		loc, ok := tp.location[c.Segment]
		if !ok {
			err = fmt.Errorf("%w: segment %d of perforation %d", ErrUnknownSegment, c.Segment, perf)
			return
		}
		tp.perfSegment[perf] = loc
		tp.perforations[loc] = append(tp.perforations[loc], perf)
		tp.perfDepthDiffs[perf] = c.Depth - tp.segments[loc].Depth
	}
	return
}

func (tp *topology) numSegments() int { return len(tp.segments) }

// outletNumber returns the segment number of the outlet of the segment at loc, 0 for the top.
func (tp *topology) outletNumber(loc int) int {
	if tp.outlets[loc] < 0 {
		return 0
	}
	return tp.segments[tp.outlets[loc]].Number
}

// lengthToOutlet is the tubing length between the segment at loc and its outlet.
func (tp *topology) lengthToOutlet(loc int) float64 {
	return tp.segments[loc].TotalLength - tp.segments[tp.outlets[loc]].TotalLength
}
