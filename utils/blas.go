package utils

var blasBackend = "gonum"

// BlasBackend names the BLAS implementation used by gonum/mat in this build.
func BlasBackend() string { return blasBackend }
