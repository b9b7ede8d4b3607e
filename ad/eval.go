package ad

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// MaxSize is the capacity of the derivative array. Reservoir primary variables
// occupy the leading slots, well primary variables follow them.
const MaxSize = 8

// Eval is a forward mode dual number: a value and its partial derivatives
// with respect to up to MaxSize primary variables.
type Eval struct {
	Val float64
	Der [MaxSize]float64
}

func Constant(v float64) (e Eval) {
	e.Val = v
	return
}

// Variable returns an Eval with value v and unit derivative in slot idx.
func Variable(v float64, idx int) (e Eval) {
	if idx < 0 || idx >= MaxSize {
		panic(fmt.Sprintf("derivative index %d out of range [0,%d)", idx, MaxSize))
	}
	e.Val = v
	e.Der[idx] = 1
	return
}

func (e Eval) Value() float64 { return e.Val }

func (e Eval) Derivative(idx int) float64 { return e.Der[idx] }

// Extend returns a copy of e with derivatives in slots >= numEq cleared.
// Used to promote a reservoir quantity into the well's combined layout.
func (e Eval) Extend(numEq int) (r Eval) {
	r.Val = e.Val
	copy(r.Der[:numEq], e.Der[:numEq])
	return
}

// Restrict returns a copy of e keeping only the derivatives in [from,to).
func (e Eval) Restrict(from, to int) (r Eval) {
	r.Val = e.Val
	copy(r.Der[from:to], e.Der[from:to])
	return
}

func (e Eval) Add(b Eval) (r Eval) {
	r.Val = e.Val + b.Val
	floats.AddTo(r.Der[:], e.Der[:], b.Der[:])
	return
}

func (e Eval) Sub(b Eval) (r Eval) {
	r.Val = e.Val - b.Val
	floats.SubTo(r.Der[:], e.Der[:], b.Der[:])
	return
}

func (e Eval) Mul(b Eval) (r Eval) {
	r.Val = e.Val * b.Val
	floats.ScaleTo(r.Der[:], e.Val, b.Der[:])
	floats.AddScaled(r.Der[:], b.Val, e.Der[:])
	return
}

func (e Eval) Div(b Eval) (r Eval) {
	var (
		inv = 1. / b.Val
	)
	r.Val = e.Val * inv
	// (e'b - eb')/b^2
	floats.ScaleTo(r.Der[:], inv, e.Der[:])
	floats.AddScaled(r.Der[:], -e.Val*inv*inv, b.Der[:])
	return
}

func (e Eval) AddScalar(s float64) (r Eval) {
	r = e
	r.Val += s
	return
}

func (e Eval) Scale(s float64) (r Eval) {
	r.Val = e.Val * s
	floats.ScaleTo(r.Der[:], s, e.Der[:])
	return
}

// DivScalar returns e/s.
func (e Eval) DivScalar(s float64) Eval { return e.Scale(1. / s) }

// Inv returns 1/e.
func (e Eval) Inv() (r Eval) {
	var (
		inv = 1. / e.Val
	)
	r.Val = inv
	floats.ScaleTo(r.Der[:], -inv*inv, e.Der[:])
	return
}

func (e Eval) Neg() Eval { return e.Scale(-1) }

func (e Eval) String() string {
	return fmt.Sprintf("%g %v", e.Val, e.Der)
}

// chain applies a scalar function with value fv and derivative dfv at e.Val.
func chain(e Eval, fv, dfv float64) (r Eval) {
	r.Val = fv
	floats.ScaleTo(r.Der[:], dfv, e.Der[:])
	return
}

func Exp(e Eval) Eval {
	v := math.Exp(e.Val)
	return chain(e, v, v)
}

func Log(e Eval) Eval {
	return chain(e, math.Log(e.Val), 1./e.Val)
}

func Log10(e Eval) Eval {
	return chain(e, math.Log10(e.Val), 1./(e.Val*math.Ln10))
}

func Sqrt(e Eval) Eval {
	v := math.Sqrt(e.Val)
	return chain(e, v, 0.5/v)
}

// Pow returns e^p for a constant exponent p.
func Pow(e Eval, p float64) Eval {
	return chain(e, math.Pow(e.Val, p), p*math.Pow(e.Val, p-1))
}

// Abs returns |e|; the derivative at zero is taken from the positive branch.
func Abs(e Eval) Eval {
	if e.Val < 0 {
		return e.Neg()
	}
	return e
}

func Max(a, b Eval) Eval {
	if a.Val >= b.Val {
		return a
	}
	return b
}

func Min(a, b Eval) Eval {
	if a.Val <= b.Val {
		return a
	}
	return b
}

// Sum adds a list of Evals.
func Sum(es ...Eval) (r Eval) {
	for _, e := range es {
		r = r.Add(e)
	}
	return
}

func IsNaN(e Eval) bool { return math.IsNaN(e.Val) }
