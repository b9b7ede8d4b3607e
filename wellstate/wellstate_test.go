package wellstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWellState(t *testing.T) {
	ws := New(3, []Layout{
		{Name: "PROD1", NumPerforations: 2, NumSegments: 3, Bhp: 1.e7},
		{Name: "INJE1", NumPerforations: 1, NumSegments: 1, Bhp: 3.e7},
	})
	{ // Test layout offsets
		assert.Equal(t, 2, ws.NumWells())
		assert.Equal(t, []int{0, 2, 3}, ws.FirstPerf)
		assert.Equal(t, []int{0, 3, 4}, ws.TopSegmentLoc)
		assert.Equal(t, 3, ws.NumSegments(0))
		assert.Equal(t, 1, ws.NumPerforations(1))
		assert.Len(t, ws.SegRates, 12)
		assert.Equal(t, 3.e7, ws.SegPressure(1, 0))
		assert.Equal(t, 1.e7, ws.PerfPress[1])
		w, err := ws.Index("INJE1")
		require.NoError(t, err)
		assert.Equal(t, 1, w)
		_, err = ws.Index("NOPE")
		assert.Error(t, err)
		assert.Contains(t, ws.Print(), "PROD1")
	}
	{ // Test segment rate accumulation over a branched tree
		// 0 <- 1 <- 2, 0 <- 3; perforations: 0 on seg 2, 1 on seg 3, 2 on seg 1
		var (
			inlets   = [][]int{{1, 3}, {2}, {}, {}}
			segPerfs = [][]int{{}, {2}, {0}, {1}}
			perf     = []float64{1, 10, 2, 20, 4, 40}
		)
		rates := CalculateSegmentRates(inlets, segPerfs, perf, 2)
		assert.Equal(t, []float64{7, 70, 5, 50, 1, 10, 2, 20}, rates)
		assert.Empty(t, CalculateSegmentRates(nil, nil, nil, 2))
	}
}
