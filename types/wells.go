package types

import (
	"fmt"
	"strings"
)

type WellType uint8

const (
	Producer WellType = iota
	Injector
)

var (
	WellTypeNames = map[string]WellType{
		"producer": Producer,
		"prod":     Producer,
		"injector": Injector,
		"inj":      Injector,
	}
	WellTypePrintNames = []string{"Producer", "Injector"}
)

func (wt WellType) Print() (txt string) {
	txt = WellTypePrintNames[wt]
	return
}

func ParseWellType(label string) (wt WellType, err error) {
	var ok bool
	if wt, ok = WellTypeNames[strings.ToLower(label)]; !ok {
		err = fmt.Errorf("unknown well type %s", label)
	}
	return
}

type ControlType uint8

const (
	BHP ControlType = iota
	THP
	SurfaceRate
	ReservoirRate
)

var (
	ControlNames = map[string]ControlType{
		"bhp":            BHP,
		"thp":            THP,
		"surface_rate":   SurfaceRate,
		"rate":           SurfaceRate,
		"reservoir_rate": ReservoirRate,
		"resv":           ReservoirRate,
	}
	ControlPrintNames = []string{"BHP", "THP", "SURFACE_RATE", "RESERVOIR_RATE"}
)

func (ct ControlType) Print() (txt string) {
	if int(ct) >= len(ControlPrintNames) {
		return fmt.Sprintf("CONTROL(%d)", uint8(ct))
	}
	txt = ControlPrintNames[ct]
	return
}

// IsRate is true for controls expressed as a flow rate target.
func (ct ControlType) IsRate() bool {
	return ct == SurfaceRate || ct == ReservoirRate
}

func ParseControlType(label string) (ct ControlType, err error) {
	var ok bool
	if ct, ok = ControlNames[strings.ToLower(label)]; !ok {
		err = fmt.Errorf("unknown control type %s", label)
	}
	return
}

// PressureDropModel selects the terms of the segment pressure equation.
type PressureDropModel uint8

const (
	H__ PressureDropModel = iota // Hydrostatic only
	HF_                          // Hydrostatic and friction
	HFA                          // Hydrostatic, friction and acceleration
)

var (
	PressureDropNames = map[string]PressureDropModel{
		"h--": H__,
		"h__": H__,
		"hf-": HF_,
		"hf_": HF_,
		"hfa": HFA,
	}
	PressureDropPrintNames = []string{"H--", "HF-", "HFA"}
)

func (pd PressureDropModel) Print() (txt string) {
	txt = PressureDropPrintNames[pd]
	return
}

func (pd PressureDropModel) Friction() bool     { return pd != H__ }
func (pd PressureDropModel) Acceleration() bool { return pd == HFA }

func ParsePressureDropModel(label string) (pd PressureDropModel, err error) {
	var ok bool
	if pd, ok = PressureDropNames[strings.ToLower(label)]; !ok {
		err = fmt.Errorf("unknown pressure drop model %s", label)
	}
	return
}

// MultiPhaseModel is the flow model inside segments. Drift flux is accepted
// on input and treated as homogeneous.
type MultiPhaseModel uint8

const (
	HO MultiPhaseModel = iota
	DF
)

var (
	MultiPhaseNames = map[string]MultiPhaseModel{
		"ho": HO,
		"df": DF,
	}
	MultiPhasePrintNames = []string{"HO", "DF"}
)

func (mp MultiPhaseModel) Print() (txt string) {
	txt = MultiPhasePrintNames[mp]
	return
}

func ParseMultiPhaseModel(label string) (mp MultiPhaseModel, err error) {
	var ok bool
	if mp, ok = MultiPhaseNames[strings.ToLower(label)]; !ok {
		err = fmt.Errorf("unknown multiphase model %s", label)
	}
	return
}
