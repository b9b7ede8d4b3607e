package msw

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrTHPNotSupported    = errors.New("THP control is not supported for multisegment wells")
	ErrUnknownControl     = errors.New("unknown well control type")
	ErrNumericalProblem   = errors.New("numerical problem")
	ErrSingularWellMatrix = errors.New("singular or ill-conditioned well matrix")
	ErrZeroMobility       = errors.New("zero relative permeability sum at perforated cell")
	ErrInvalidTopology    = errors.New("invalid segment topology")
	ErrSegmentCycle       = errors.New("segment outlets form a cycle")
	ErrUnknownSegment     = errors.New("unknown segment number")
)

// WellError names the well and the operation that failed.
type WellError struct {
	Well string
	Op   string
	Err  error
}

func (e *WellError) Error() string {
	return fmt.Sprintf("well %s: %s: %v", e.Well, e.Op, e.Err)
}

func (e *WellError) Unwrap() error { return e.Err }

func wellErr(well, op string, err error) error {
	if err == nil {
		return nil
	}
	var we *WellError
	if errors.As(err, &we) {
		return err
	}
	return &WellError{Well: well, Op: op, Err: err}
}
