// Package variable implements the Variable abstraction (§4.5): a value
// producer with a declared shape that can be a plain array lookup, an
// affine sequence, a constant, or an element-wise combination of two other
// variables. Every Dimension role is filled by exactly one Variable.
package variable

import (
	"github.com/das-developers/das2go/array"
	"github.com/das-developers/das2go/value"
)

// AxisUsage tags how one external axis is used by a Variable's shape.
type AxisUsage int

const (
	// Unused marks an axis the variable does not vary along at all.
	Unused AxisUsage = iota
	// Func marks an axis driven by a computed function (Sequence).
	Func
	// Number marks an axis with a fixed, known length.
	Number
	// Ragged marks an axis whose length varies row to row.
	Ragged
)

// MaxRank mirrors array.MaxRank; a Variable's shape never exceeds it.
const MaxRank = array.MaxRank

// Variable is the common interface every subtype below implements,
// matching the vtable of §4.5.
type Variable interface {
	// Shape reports each external axis's usage and (for Number axes) its
	// length, writing into out and returning the rank.
	Shape(out []AxisLen) []AxisLen
	// IntrShape reports the variable's own intrinsic (internal, not
	// externally indexed) axes, e.g. the vector-component axis of a GeoVec.
	IntrShape(out []AxisLen) []AxisLen
	// LengthIn returns the length of the axis directly below prefix, or
	// array.RaggedLen if prefix does not pin one down.
	LengthIn(prefix ...int) int
	// Get writes the element at loc into dst (which must be at least
	// ElemType's Size long) and reports whether it resolved to a value
	// (false for an out-of-range ragged hole, which still yields dst=fill).
	Get(dst []byte, loc ...int) (bool, error)
	// IsFill reports whether b (an ElemType-sized element) equals the
	// variable's fill value.
	IsFill(b []byte) bool
	// IsNumeric reports whether the variable's values support arithmetic.
	IsNumeric() bool
	// ElemType is the VT of one element this variable produces.
	ElemType() value.VT
	// Degenerate reports whether the variable does not vary along axis.
	Degenerate(axis int) bool
	// Subset extracts a DynArray covering [min, max) along every axis.
	Subset(min, max []int) (*array.Array, error)
	// Expression renders a human-readable description, e.g.
	// "avg_e_spec_dens[i][j] V²m⁻²Hz⁻¹ | i:0..60, j:0..* [F32]".
	Expression() string
	// Copy returns an independent Variable sharing underlying storage
	// (reference-counted where backed by an Array).
	Copy() Variable
	// IncRef/DecRef manage the reference count of any backing Array.
	IncRef()
	DecRef() bool
}

// AxisLen describes one external axis's usage and (if Number) length.
type AxisLen struct {
	Usage AxisUsage
	N     int // meaningful only when Usage == Number
}

func fillAxisLen(out []AxisLen, rank int, f func(i int) AxisLen) []AxisLen {
	if cap(out) < rank {
		out = make([]AxisLen, rank)
	} else {
		out = out[:rank]
	}

	for i := 0; i < rank; i++ {
		out[i] = f(i)
	}

	return out
}
