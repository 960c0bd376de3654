// Package formulas provides the pure statistical building blocks used by the analytics engine.
//
// Every function works on plain float64 slices and reports why a figure cannot be
// produced through one of the sentinel errors below instead of returning 0 or ±Inf.
package formulas

import "errors"

var (
	// ErrInsufficientData means there are too few observations for the statistic.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrDegenerateBase means a ratio would divide by a zero or negative base.
	ErrDegenerateBase = errors.New("degenerate base")
	// ErrZeroVariance means a denominator built from a dispersion measure is zero.
	ErrZeroVariance = errors.New("zero variance")
	// ErrNoDownside means a downside measure was requested for a series with no negative returns.
	ErrNoDownside = errors.New("no negative returns")
)
