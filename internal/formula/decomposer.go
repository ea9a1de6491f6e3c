// Package formula decides whether a fragment m/z can be explained by a
// molecular formula over a small CHNOPS alphabet.
package formula

import (
	"math"

	"github.com/524D/mztrace/deviation"
)

// Monoisotopic masses
const (
	massC      = float64(12.0)
	massH      = float64(1.00782503207)
	massN      = float64(14.0030740048)
	massO      = float64(15.99491461956)
	massP      = float64(30.97376163)
	massS      = float64(31.97207100)
	massProton = float64(1.007276466879)
)

// Bounds limits the element counts of the heteroatoms.
// Carbon and hydrogen are only limited by the mass.
type Bounds struct {
	N int
	O int
	P int
	S int
}

// Decomposer tests m/z values of singly protonated ions
type Decomposer struct {
	dev    deviation.Deviation
	bounds Bounds
}

// NewDecomposer returns a decomposer that accepts formulas within dev
func NewDecomposer(dev deviation.Deviation, bounds Bounds) *Decomposer {
	return &Decomposer{dev: dev, bounds: bounds}
}

// Default returns the decomposer used for MS2 noise estimation:
// C, H, N<=20, O<=20, P<=2, S<=2 at 10 ppm
func Default() *Decomposer {
	return NewDecomposer(deviation.New(10), Bounds{N: 20, O: 20, P: 2, S: 2})
}

// Explainable returns true if mz, taken as [M+H]+, matches at least one
// formula with a non-negative ring and double bond equivalent
func (d *Decomposer) Explainable(mz float64) bool {
	tol := d.dev.AbsoluteFor(mz)
	mass := mz - massProton
	if mass <= tol {
		return false
	}
	for p := 0; p <= d.bounds.P; p++ {
		mp := mass - float64(p)*massP
		if mp < -tol {
			break
		}
		for s := 0; s <= d.bounds.S; s++ {
			ms := mp - float64(s)*massS
			if ms < -tol {
				break
			}
			for n := 0; n <= d.bounds.N; n++ {
				mn := ms - float64(n)*massN
				if mn < -tol {
					break
				}
				for o := 0; o <= d.bounds.O; o++ {
					mo := mn - float64(o)*massO
					if mo < -tol {
						break
					}
					if carbonHydrogen(mo, tol, n+p) {
						return true
					}
				}
			}
		}
	}
	return false
}

// carbonHydrogen checks if the remaining mass can be filled up with
// C and H. Trivalent atoms (N, P) count towards the hydrogen limit
// that keeps RDBE = C - H/2 + (N+P)/2 + 1 non-negative.
func carbonHydrogen(rem, tol float64, trivalent int) bool {
	for c := 0; float64(c)*massC <= rem+tol; c++ {
		r := rem - float64(c)*massC
		h := math.Round(r / massH)
		if h < 0 {
			continue
		}
		if math.Abs(r-h*massH) <= tol && int(h) <= 2*c+trivalent+2 {
			return true
		}
	}
	return false
}
