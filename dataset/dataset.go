// Package dataset implements Dataset (§4.7): a rank-N container of
// Dimensions sharing one extrinsic index space, the codec registry bound to
// its packet payload, and the shape-merge rule every Dimension's Variables
// must agree on.
package dataset

import (
	"github.com/das-developers/das2go/array"
	"github.com/das-developers/das2go/codec"
	"github.com/das-developers/das2go/descriptor"
	"github.com/das-developers/das2go/dimension"
	"github.com/das-developers/das2go/errs"
	"github.com/das-developers/das2go/internal/dlog"
	"github.com/das-developers/das2go/value"
	"github.com/das-developers/das2go/variable"
)

// embeddedCodecSlots is the small inline codec capacity before the registry
// spills to a heap-allocated slice, avoiding an allocation for the common
// low-plane-count packet.
const embeddedCodecSlots = 32

// Dataset is a rank-N extrinsic index space shared by a set of Dimensions
// (coordinate dimensions followed by data dimensions, matching encode
// order), plus the ordered codec registry driving its packet payload.
type Dataset struct {
	descriptor.Descriptor

	id   string
	rank int
	dims []*dimension.Dimension

	embedded [embeddedCodecSlots]*codec.Codec
	nEmbed   int
	overflow []*codec.Codec
}

// New returns an empty rank-N Dataset.
func New(id string, rank int) *Dataset {
	return &Dataset{id: id, rank: rank}
}

func (ds *Dataset) ID() string { return ds.id }

func (ds *Dataset) Rank() int { return ds.rank }

// AddDim appends d to the dataset, setting d's property-bag parent to the
// dataset's own so unqualified property lookups fall through.
func (ds *Dataset) AddDim(d *dimension.Dimension) {
	d.SetParent(&ds.Descriptor)
	ds.dims = append(ds.dims, d)
}

// Dims returns every dimension in encode order (coords first).
func (ds *Dataset) Dims() []*dimension.Dimension {
	out := make([]*dimension.Dimension, 0, len(ds.dims))
	for _, d := range ds.dims {
		if d.Kind() == dimension.Coord {
			out = append(out, d)
		}
	}
	for _, d := range ds.dims {
		if d.Kind() == dimension.Data {
			out = append(out, d)
		}
	}

	return out
}

func (ds *Dataset) Dim(name string) (*dimension.Dimension, bool) {
	for _, d := range ds.dims {
		if d.Name() == name {
			return d, true
		}
	}

	return nil, false
}

// mergeAxis applies the Ragged > Number > Func > Unused precedence,
// taking the minimum of two Number lengths.
func mergeAxis(a, b variable.AxisLen) variable.AxisLen {
	rank := func(u variable.AxisUsage) int {
		switch u {
		case variable.Ragged:
			return 3
		case variable.Number:
			return 2
		case variable.Func:
			return 1
		default:
			return 0
		}
	}

	switch {
	case rank(a.Usage) > rank(b.Usage):
		return a
	case rank(b.Usage) > rank(a.Usage):
		return b
	case a.Usage == variable.Number:
		n := a.N
		if b.N < n {
			n = b.N
		}
		return variable.AxisLen{Usage: variable.Number, N: n}
	default:
		return a
	}
}

// Shape merges every variable of every dimension into the dataset's single
// extrinsic shape: the most constrained axis usage all variables agree on.
func (ds *Dataset) Shape() []variable.AxisLen {
	shape := make([]variable.AxisLen, ds.rank)

	for _, d := range ds.dims {
		for _, role := range d.Roles() {
			v, _ := d.Var(role)
			vs := v.Shape(nil)

			for i := 0; i < ds.rank && i < len(vs); i++ {
				shape[i] = mergeAxis(shape[i], vs[i])
			}
		}
	}

	return shape
}

// LengthIn merges LengthIn across every variable of every dimension, the
// Dataset-level analogue of Variable.LengthIn.
func (ds *Dataset) LengthIn(prefix ...int) int {
	best := array.RaggedLen
	haveNumber := false

	for _, d := range ds.dims {
		for _, role := range d.Roles() {
			v, _ := d.Var(role)

			n := v.LengthIn(prefix...)
			if n == array.RaggedLen {
				continue
			}

			if !haveNumber || n < best {
				best = n
				haveNumber = true
			}
		}
	}

	return best
}

// addCodec appends c to the registry, spilling to the heap slice once the
// embedded array fills.
func (ds *Dataset) addCodec(c *codec.Codec) {
	if ds.nEmbed < embeddedCodecSlots {
		ds.embedded[ds.nEmbed] = c
		ds.nEmbed++

		return
	}

	ds.overflow = append(ds.overflow, c)
}

// Codecs returns every registered codec in declaration order.
func (ds *Dataset) Codecs() []*codec.Codec {
	out := make([]*codec.Codec, 0, ds.nEmbed+len(ds.overflow))
	out = append(out, ds.embedded[:ds.nEmbed]...)
	out = append(out, ds.overflow...)

	return out
}

// AddFixedCodec builds a new Codec bound to ary and registers it.
func (ds *Dataset) AddFixedCodec(ary *array.Array, sem value.Semantic, enc codec.BufEncoding, itemBytes int, sepByte byte, epochUnits, outFormat string) (*codec.Codec, error) {
	c, err := codec.Init(true, ary, sem, enc, itemBytes, sepByte, epochUnits, outFormat)
	if err != nil {
		return nil, err
	}

	ds.addCodec(c)

	return c, nil
}

// AddFixedCodecFrom clones ref's wire layout, re-points it at ary, and
// registers the clone — the path used when a reference codec (e.g. an
// original waveform's ytag codec, shared during LegacyUpgrader rebuilds)
// is reused by a second array with the same on-wire shape.
func (ds *Dataset) AddFixedCodecFrom(ref *codec.Codec, ary *array.Array) (*codec.Codec, error) {
	c, err := ref.CloneTo(ary)
	if err != nil {
		return nil, err
	}

	ds.addCodec(c)

	return c, nil
}

// CodecFor returns the registered codec bound to ary, if any, used by
// callers that need to rebind a clone of ary to the same wire layout.
func (ds *Dataset) CodecFor(ary *array.Array) (*codec.Codec, bool) {
	for _, c := range ds.Codecs() {
		if c.Array() == ary {
			return c, true
		}
	}

	return nil, false
}

// RecBytes sums items*bufItemSize across every registered codec, returning
// -1 if any codec has a variable item count (forcing streaming-mode
// parsing instead of a single fixed-size record read).
func (ds *Dataset) RecBytes(itemsPerCodec []int) int {
	codecs := ds.Codecs()
	if len(itemsPerCodec) != len(codecs) {
		return -1
	}

	total := 0
	for i, c := range codecs {
		if c.IsVarSize() {
			return -1
		}

		total += itemsPerCodec[i] * c.BufItemSize()
	}

	return total
}

// DecodePayload iterates the registered codecs in declaration order against
// raw, advancing the read cursor by each codec's actual consumption. Only
// the last codec may have a variable item count; an earlier variable-count
// codec would require a binary sentinel search this decoder does not
// implement.
func (ds *Dataset) DecodePayload(raw []byte, itemsPerCodec []int) error {
	codecs := ds.Codecs()
	if len(itemsPerCodec) != len(codecs) {
		return errs.New(errs.Dataset, "dataset %q: itemsPerCodec has %d entries, want %d", ds.id, len(itemsPerCodec), len(codecs))
	}

	cursor := raw

	for i, c := range codecs {
		if c.IsVarSize() && i != len(codecs)-1 {
			return errs.New(errs.NotImp, "dataset %q: variable-item-count codec before the last is not implemented (binary sentinel search)", ds.id)
		}

		unread, err := c.Decode(cursor, itemsPerCodec[i])
		if err != nil {
			return errs.Wrap(errs.Dataset, err, "dataset %q: codec %d decode", ds.id, i)
		}

		consumed := len(cursor) - unread
		cursor = cursor[consumed:]
	}

	if len(cursor) > 0 {
		// Trailing bytes after the last codec consumed its share: not an
		// error, just logged as a warning.
		dlog.Default.Warnf("dataset %q: %d trailing bytes after decode", ds.id, len(cursor))
	}

	return nil
}

// CubicCoords finds, for each of the dataset's rank axes, a coordinate
// dimension whose point variable is rank-1 along exactly that axis
// (degenerate everywhere else), covering every axis exactly once. Returns
// an error if no such orthogonal coordinate set exists — exporters that
// require it (CDF writer, simple plotters) use this to refuse datasets
// whose coordinates are fundamentally non-separable.
func (ds *Dataset) CubicCoords() ([]*dimension.Dimension, error) {
	axisOwner := make([]*dimension.Dimension, ds.rank)

	for _, d := range ds.dims {
		if d.Kind() != dimension.Coord {
			continue
		}

		v, err := d.GetPointVar()
		if err != nil {
			continue
		}

		shape := v.Shape(nil)

		varying := -1
		nVarying := 0
		for axis := range shape {
			if !v.Degenerate(axis) {
				nVarying++
				varying = axis
			}
		}

		if nVarying != 1 {
			continue
		}

		if axisOwner[varying] != nil {
			return nil, errs.New(errs.Dataset, "dataset %q: axis %d claimed by both %q and %q", ds.id, varying, axisOwner[varying].Name(), d.Name())
		}

		axisOwner[varying] = d
	}

	for axis, d := range axisOwner {
		if d == nil {
			return nil, errs.New(errs.Dataset, "dataset %q: no rank-1 coordinate dimension covers axis %d", ds.id, axis)
		}
	}

	return axisOwner, nil
}
