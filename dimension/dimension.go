// Package dimension implements Dimension and Frame (§4.6): a named role
// group of Variables (one Dataset axis's coordinate or data content) plus
// the small registry of reference frames a Stream's vector dimensions are
// expressed in.
package dimension

import (
	"github.com/das-developers/das2go/descriptor"
	"github.com/das-developers/das2go/errs"
	"github.com/das-developers/das2go/value"
	"github.com/das-developers/das2go/variable"
)

// Kind distinguishes a coordinate dimension from a data dimension, mirroring
// how a Dataset orders them on encode (coords first, then data).
type Kind int

const (
	Coord Kind = iota
	Data
)

// Dimension groups one or more role-named Variables (center, reference,
// offset, min, max, ...) that together describe one axis of a Dataset, plus
// its own property bag chained to the owning Dataset's.
type Dimension struct {
	descriptor.Descriptor

	name  string
	frame string
	kind  Kind
	vars  map[string]variable.Variable
}

// New returns an empty Dimension named name of the given kind.
func New(name string, kind Kind) *Dimension {
	return &Dimension{name: name, kind: kind, vars: make(map[string]variable.Variable)}
}

func (d *Dimension) Name() string { return d.name }

func (d *Dimension) Kind() Kind { return d.kind }

// FrameName is the Frame this dimension's vectors (if any) are expressed in,
// or "" if the dimension carries no frame-relative vectors.
func (d *Dimension) FrameName() string { return d.frame }

func (d *Dimension) SetFrameName(name string) { d.frame = name }

// AddVar takes ownership of v under role, failing if role is already taken.
func (d *Dimension) AddVar(role string, v variable.Variable) error {
	if _, exists := d.vars[role]; exists {
		return errs.New(errs.Dim, "dimension %q: role %q already has a variable", d.name, role)
	}

	v.IncRef()
	d.vars[role] = v

	return nil
}

// Var returns the Variable filling role, if any.
func (d *Dimension) Var(role string) (variable.Variable, bool) {
	v, ok := d.vars[role]
	return v, ok
}

// Roles lists the role names currently filled, in no particular order.
func (d *Dimension) Roles() []string {
	roles := make([]string, 0, len(d.vars))
	for r := range d.vars {
		roles = append(roles, r)
	}

	return roles
}

// GetPointVar returns the "center" role if present; otherwise, when both
// "reference" and "offset" are present, it synthesizes a virtual
// center = reference + offset Binary variable (not cached: callers that
// need it repeatedly should cache the result themselves).
func (d *Dimension) GetPointVar() (variable.Variable, error) {
	if v, ok := d.vars["center"]; ok {
		return v, nil
	}

	ref, hasRef := d.vars["reference"]
	off, hasOff := d.vars["offset"]
	if !hasRef || !hasOff {
		return nil, errs.New(errs.Dim, "dimension %q: no center and no reference+offset pair", d.name)
	}

	vt := value.Merge(ref.ElemType(), value.OpPlus, off.ElemType())

	return variable.NewBinary(variable.BinaryPlus, ref, off, vt), nil
}

// CopyInProps imports axis-prefixed legacy properties (xLabel, yFill, ...)
// from a PktDesc-level property bag into this dimension's own bag, stripping
// the axis letter and lower-casing the next character (xLabel -> label).
// drop names the legacy property names that never survive the copy (e.g.
// the plane's own "source" key, consumed during classification instead).
func (d *Dimension) CopyInProps(src *descriptor.Descriptor, axis byte, drop map[string]bool) {
	d.Descriptor.CopyInAxisProps(src, axis, drop)
}

// Release drops this dimension's reference on every variable it owns.
func (d *Dimension) Release() {
	for _, v := range d.vars {
		v.DecRef()
	}
}
