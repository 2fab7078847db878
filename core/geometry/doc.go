// Package geometry provides the straight-line maths behind screening curves.
// A technology's annual cost per unit capacity is a Line whose gradient is the
// variable cost and whose intercept is the fixed cost; break-even durations are
// the x coordinates where two lines cross.
//
// Undefined operations (parallel lines, zero gradients, vertical runs) report
// through a boolean instead of an error because callers routinely probe many
// pairs and most of them are expected to have no solution.
package geometry
