//go:build cgo && netlib

package utils

// #cgo LDFLAGS: -lopenblas -lm
import "C"

import (
	"gonum.org/v1/gonum/blas/blas64"
	netblas "gonum.org/v1/netlib/blas/netlib"
)

// The -tags netlib build hands the dense factorizations of the well matrices to OpenBLAS.
func init() {
	blas64.Use(netblas.Implementation{})
	blasBackend = "netlib"
}
