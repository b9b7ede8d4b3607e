package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypes(t *testing.T) {
	{ // Test phase usage positions
		pu := NewPhaseUsage(true, true)
		assert.Equal(t, 3, pu.NumPhases)
		assert.Equal(t, [MaxPhases]int{0, 1, 2}, pu.Pos)
		assert.Equal(t, Gas, pu.PhaseAt(2))
		assert.Equal(t, "Water-Oil-Gas", pu.Print())

		pu = NewPhaseUsage(false, true)
		assert.Equal(t, 2, pu.NumPhases)
		assert.Equal(t, [MaxPhases]int{-1, 0, 1}, pu.Pos)
		assert.Equal(t, Oil, pu.PhaseAt(0))
		assert.Panics(t, func() { pu.PhaseAt(2) })
	}
	{ // Test name parsing
		ct, err := ParseControlType("RESV")
		assert.NoError(t, err)
		assert.Equal(t, ReservoirRate, ct)
		assert.True(t, ct.IsRate())
		assert.False(t, BHP.IsRate())
		_, err = ParseControlType("grup")
		assert.Error(t, err)
		assert.Equal(t, "CONTROL(9)", ControlType(9).Print())

		pd, err := ParsePressureDropModel("HF-")
		assert.NoError(t, err)
		assert.True(t, pd.Friction())
		assert.False(t, pd.Acceleration())
		assert.True(t, HFA.Acceleration())
		assert.False(t, H__.Friction())

		wt, err := ParseWellType("INJ")
		assert.NoError(t, err)
		assert.Equal(t, "Injector", wt.Print())

		p, err := ParsePhase("Gas")
		assert.NoError(t, err)
		assert.Equal(t, Gas, p)
	}
}
