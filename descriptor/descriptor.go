// Package descriptor implements the hierarchical property bag (§4.4) that
// every Dimension, Dataset, Variable and Stream carries: a flat,
// append-only record store plus parent-chain lookup, used to attach
// arbitrary named metadata (titles, source, cadence, ...) to any node in
// the das tree.
package descriptor

import (
	"strconv"
	"strings"

	"github.com/das-developers/das2go/errs"
	"github.com/das-developers/das2go/internal/dastime"
	"github.com/das-developers/das2go/value"
)

// record is one self-describing property entry. Removal never compacts the
// slice; it flips valid to false and bumps the owning Descriptor's invalid
// counter so iterators holding an index remain stable.
type record struct {
	name  string
	sem   value.Semantic
	sep   byte // 0 means whitespace-separated for multi-valued properties
	units string
	raw   string // the property's string form, as given
	valid bool
}

// Descriptor is the base property-bag node. Every das tree node (Stream,
// Dataset, Dimension, Variable) embeds or references one.
type Descriptor struct {
	parent  *Descriptor // weak: never owns, never inc/decRef's the parent
	records []record
	invalid int
}

// New returns an empty, parentless Descriptor.
func New() *Descriptor { return &Descriptor{} }

// SetParent installs d's lookup parent, used by property inheritance. The
// pointer is held weakly: Descriptor never manages the parent's lifetime.
func (d *Descriptor) SetParent(parent *Descriptor) { d.parent = parent }

// Parent returns d's lookup parent, or nil at the root.
func (d *Descriptor) Parent() *Descriptor { return d.parent }

// SetProp appends or updates a property record. If name already has a valid
// local record whose raw string fits in the same slot semantics (same
// semantic/units), that record is overwritten in place; otherwise the old
// record (if any) is invalidated and a new one appended.
func (d *Descriptor) SetProp(name string, sem value.Semantic, units string, sep byte, raw string) {
	for i := range d.records {
		r := &d.records[i]
		if !r.valid || r.name != name {
			continue
		}

		if r.sem == sem && r.units == units {
			r.raw = raw
			r.sep = sep
			return
		}

		r.valid = false
		d.invalid++

		break
	}

	d.records = append(d.records, record{name: name, sem: sem, sep: sep, units: units, raw: raw, valid: true})
}

// RemoveProp invalidates name's local record, if present, without
// compacting storage. Reports whether a record was found.
func (d *Descriptor) RemoveProp(name string) bool {
	for i := range d.records {
		r := &d.records[i]
		if r.valid && r.name == name {
			r.valid = false
			d.invalid++

			return true
		}
	}

	return false
}

// lookup walks local valid records first, then the parent chain, returning
// the first match.
func (d *Descriptor) lookup(name string) (record, bool) {
	for cur := d; cur != nil; cur = cur.parent {
		for i := len(cur.records) - 1; i >= 0; i-- {
			r := cur.records[i]
			if r.valid && r.name == name {
				return r, true
			}
		}
	}

	return record{}, false
}

// HasProp reports whether name resolves anywhere in d's parent chain.
func (d *Descriptor) HasProp(name string) bool {
	_, ok := d.lookup(name)
	return ok
}

// GetStr returns the raw string form of name, unparsed.
func (d *Descriptor) GetStr(name string) (string, bool) {
	r, ok := d.lookup(name)
	if !ok {
		return "", false
	}

	return r.raw, true
}

// GetDouble parses name's value as a float64.
func (d *Descriptor) GetDouble(name string) (float64, error) {
	r, ok := d.lookup(name)
	if !ok {
		return 0, errs.New(errs.Desc, "descriptor: no such property %q", name)
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(r.raw), 64)
	if err != nil {
		return 0, errs.Wrap(errs.Desc, err, "descriptor: property %q is not a real number", name)
	}

	return f, nil
}

// GetInt parses name's value as an int64.
func (d *Descriptor) GetInt(name string) (int64, error) {
	r, ok := d.lookup(name)
	if !ok {
		return 0, errs.New(errs.Desc, "descriptor: no such property %q", name)
	}

	n, err := strconv.ParseInt(strings.TrimSpace(r.raw), 10, 64)
	if err != nil {
		return 0, errs.Wrap(errs.Desc, err, "descriptor: property %q is not an integer", name)
	}

	return n, nil
}

// GetBool parses name's value per the das "true"/"false"/"1"/"0" convention.
func (d *Descriptor) GetBool(name string) (bool, error) {
	r, ok := d.lookup(name)
	if !ok {
		return false, errs.New(errs.Desc, "descriptor: no such property %q", name)
	}

	switch strings.ToLower(strings.TrimSpace(r.raw)) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no":
		return false, nil
	default:
		return false, errs.New(errs.Desc, "descriptor: property %q is not a boolean", name)
	}
}

// GetStrAry splits name's value on its configured separator (or whitespace)
// into a string slice, for multi-valued properties.
func (d *Descriptor) GetStrAry(name string) ([]string, error) {
	r, ok := d.lookup(name)
	if !ok {
		return nil, errs.New(errs.Desc, "descriptor: no such property %q", name)
	}

	if r.sep == 0 {
		return strings.Fields(r.raw), nil
	}

	parts := strings.Split(r.raw, string(r.sep))
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	return parts, nil
}

// GetDatum parses name's value as a Value of the semantic the property
// carries, applying the bare-number-vs-time heuristic: a value containing
// ':' or 'T' with no explicit units is treated as a UTC calendar time
// regardless of the property's recorded semantic.
func (d *Descriptor) GetDatum(name string) (value.VT, []byte, error) {
	r, ok := d.lookup(name)
	if !ok {
		return value.Unknown, nil, errs.New(errs.Desc, "descriptor: no such property %q", name)
	}

	raw := strings.TrimSpace(r.raw)

	sem := r.sem
	if r.units == "" && dastime.LooksLikeTime(raw) {
		sem = value.SemDatetime
	}

	vt := value.Time
	switch sem {
	case value.SemDatetime:
		vt = value.Time
	case value.SemInt:
		vt = value.I64
	case value.SemBool:
		vt = value.U8
	case value.SemString:
		vt = value.Text
	default:
		vt = value.F64
	}

	out, err := value.Parse(nil, vt, raw)
	if err != nil {
		return value.Unknown, nil, errs.Wrap(errs.Desc, err, "descriptor: property %q", name)
	}

	return vt, out, nil
}

// GetDatumRange parses a "min max" (or min/sep/max) pair from name's value
// using the same bare-number-vs-time heuristic as GetDatum for each half.
func (d *Descriptor) GetDatumRange(name string) (vt value.VT, lo, hi []byte, err error) {
	r, ok := d.lookup(name)
	if !ok {
		return value.Unknown, nil, nil, errs.New(errs.Desc, "descriptor: no such property %q", name)
	}

	raw := strings.TrimSpace(r.raw)

	var parts []string
	if r.sep != 0 {
		parts = strings.SplitN(raw, string(r.sep), 2)
	} else {
		parts = strings.Fields(raw)
	}

	if len(parts) != 2 {
		return value.Unknown, nil, nil, errs.New(errs.Desc, "descriptor: property %q is not a range", name)
	}

	sem := r.sem
	if r.units == "" && dastime.LooksLikeTime(strings.TrimSpace(parts[0])) {
		sem = value.SemDatetime
	}

	vt = value.F64
	switch sem {
	case value.SemDatetime:
		vt = value.Time
	case value.SemInt:
		vt = value.I64
	}

	lo, err = value.Parse(nil, vt, strings.TrimSpace(parts[0]))
	if err != nil {
		return value.Unknown, nil, nil, errs.Wrap(errs.Desc, err, "descriptor: property %q lower bound", name)
	}

	hi, err = value.Parse(nil, vt, strings.TrimSpace(parts[1]))
	if err != nil {
		return value.Unknown, nil, nil, errs.Wrap(errs.Desc, err, "descriptor: property %q upper bound", name)
	}

	return vt, lo, hi, nil
}

// Names returns the names of all currently-valid local properties, in
// insertion order; it does not walk the parent chain.
func (d *Descriptor) Names() []string {
	names := make([]string, 0, len(d.records)-d.invalid)
	for _, r := range d.records {
		if r.valid {
			names = append(names, r.name)
		}
	}

	return names
}

// InvalidCount reports how many local records have been invalidated by
// RemoveProp or an overwritten SetProp, for diagnostics and compaction
// heuristics a caller may apply on its own schedule.
func (d *Descriptor) InvalidCount() int { return d.invalid }

// CopyInProps copies every valid local property from src into d whose name
// survives the given prefix filter: names in drop are skipped outright,
// and any name with one of the stripPrefixes removed has the stripped
// form used as its new name in d. This is the building block
// LegacyUpgrader uses to migrate `<x>`/`<y>`/`<yscan>` properties onto a
// modern `<dataset>`/Dimension without carrying stale per-role prefixes.
func (d *Descriptor) CopyInProps(src *Descriptor, drop map[string]bool, stripPrefixes []string) {
	for _, r := range src.records {
		if !r.valid || drop[r.name] {
			continue
		}

		name := r.name
		for _, p := range stripPrefixes {
			if strings.HasPrefix(name, p) {
				name = strings.TrimPrefix(name, p)
				break
			}
		}

		d.SetProp(name, r.sem, r.units, r.sep, r.raw)
	}
}

// CopyInAxisProps migrates src's legacy axis-prefixed properties (xLabel,
// yFill, ...) onto d with the leading axis letter stripped and the next
// character lower-cased (xLabel -> label), skipping names in drop. Only
// records whose name actually begins with axis are considered.
func (d *Descriptor) CopyInAxisProps(src *Descriptor, axis byte, drop map[string]bool) {
	for _, r := range src.records {
		if !r.valid || drop[r.name] {
			continue
		}

		if len(r.name) < 2 || r.name[0] != axis {
			continue
		}

		rest := r.name[1:]
		name := strings.ToLower(rest[:1]) + rest[1:]

		d.SetProp(name, r.sem, r.units, r.sep, r.raw)
	}
}
