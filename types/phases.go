package types

import (
	"fmt"
	"strings"
)

// Phase indexes the canonical black-oil phases. The canonical order is fixed,
// the position of an active phase in the equation system is given by PhaseUsage.
type Phase uint8

const (
	Water Phase = iota
	Oil
	Gas
)

const MaxPhases = 3

var (
	PhaseNames = map[string]Phase{
		"water": Water,
		"oil":   Oil,
		"gas":   Gas,
	}
	PhasePrintNames = []string{"Water", "Oil", "Gas"}
)

func (p Phase) Print() (txt string) {
	txt = PhasePrintNames[p]
	return
}

func ParsePhase(label string) (p Phase, err error) {
	var ok bool
	if p, ok = PhaseNames[strings.ToLower(label)]; !ok {
		err = fmt.Errorf("unknown phase named %s", label)
	}
	return
}

// PhaseUsage maps canonical phases onto contiguous positions of the active set.
// Oil is always active.
type PhaseUsage struct {
	NumPhases int
	Active    [MaxPhases]bool
	Pos       [MaxPhases]int
}

func NewPhaseUsage(water, gas bool) (pu PhaseUsage) {
	pu.Active = [MaxPhases]bool{water, true, gas}
	for p := Water; p <= Gas; p++ {
		pu.Pos[p] = -1
		if pu.Active[p] {
			pu.Pos[p] = pu.NumPhases
			pu.NumPhases++
		}
	}
	return
}

// PhaseAt returns the canonical phase stored at active position pos.
func (pu PhaseUsage) PhaseAt(pos int) Phase {
	for p := Water; p <= Gas; p++ {
		if pu.Pos[p] == pos {
			return p
		}
	}
	panic(fmt.Sprintf("no active phase at position %d", pos))
}

func (pu PhaseUsage) Print() (txt string) {
	var names []string
	for p := Water; p <= Gas; p++ {
		if pu.Active[p] {
			names = append(names, p.Print())
		}
	}
	txt = strings.Join(names, "-")
	return
}
