// Package legacyupgrade rewrites a legacy das2 packet descriptor — built
// from `<x>`, `<y>`, `<yscan>`, and `<z>` plane definitions — into a modern
// Dataset whose dimensions and codecs reproduce the original payload
// byte-for-byte.
package legacyupgrade

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/das-developers/das2go/array"
	"github.com/das-developers/das2go/codec"
	"github.com/das-developers/das2go/dataset"
	"github.com/das-developers/das2go/descriptor"
	"github.com/das-developers/das2go/dimension"
	"github.com/das-developers/das2go/errs"
	"github.com/das-developers/das2go/regression"
	"github.com/das-developers/das2go/value"
	"github.com/das-developers/das2go/variable"
)

// linearFitRSquared is the minimum goodness-of-fit a yscan's ytags must
// clear before they are rebuilt as an affine Sequence rather than an
// ArrayVar; below this threshold the rounding in a legacy ytag list is
// too coarse to trust as a true arithmetic progression.
const linearFitRSquared = 0.999999

// PlaneKind identifies which legacy element a Plane was parsed from.
type PlaneKind int

const (
	KindX PlaneKind = iota
	KindY
	KindYScan
	KindZ
)

// Plane is one `<x>`/`<y>`/`<yscan>`/`<z>` element: its wire encoding plus
// enough metadata to classify and rebuild it as a modern Variable.
type Plane struct {
	Kind PlaneKind

	// Role names this plane's position within a shared dimension ("center",
	// "uncertainty", ...); defaults to "center" when empty.
	Role string

	// Source groups Y planes that belong to the same dimension (two Y
	// planes sharing a Source join one Dimension under distinct Roles).
	Source string

	Encoding  codec.BufEncoding
	ItemBytes int
	SepByte   byte
	Units     string

	// NItems is the yscan fast-axis item count (ignored for X/Y/Z).
	NItems int

	YTagSpec   string
	YTagUnits  string
	YTagValues []float64
	Renderer   string
}

// LegacyPacket is the parsed form of a legacy `<packet>` descriptor: its
// plane list plus the flat property bag carrying axis-prefixed legacy
// property names (xLabel, yFill, ...).
type LegacyPacket struct {
	Props  *descriptor.Descriptor
	Planes []Plane
}

// legacyAxisDrop lists property names CopyInProps/CopyInAxisProps should
// never carry forward onto the modern Dataset; they describe wire layout
// the codec and array already capture.
var legacyAxisDrop = map[string]bool{
	"type": true, "zUnits": true, "yUnits": true, "xUnits": true,
}

// Upgrade classifies pkt's plane set and rebuilds it as a Dataset.
func Upgrade(pkt LegacyPacket) (*dataset.Dataset, error) {
	xPlanes := lo.Filter(pkt.Planes, func(p Plane, _ int) bool { return p.Kind == KindX })
	yPlanes := lo.Filter(pkt.Planes, func(p Plane, _ int) bool { return p.Kind == KindY })
	yscans := lo.Filter(pkt.Planes, func(p Plane, _ int) bool { return p.Kind == KindYScan })
	zPlanes := lo.Filter(pkt.Planes, func(p Plane, _ int) bool { return p.Kind == KindZ })

	switch {
	case len(xPlanes) == 2:
		return nil, errs.New(errs.NotImp, "legacyupgrade: events packets (two x planes) are not supported")
	case len(yscans) > 0:
		if len(xPlanes) != 1 {
			return nil, errs.New(errs.Serial, "legacyupgrade: yscan packet must have exactly one x plane, found %d", len(xPlanes))
		}
		return upgradeYScan(pkt, xPlanes[0], yscans)
	case len(zPlanes) > 0:
		if len(xPlanes) != 1 || len(yPlanes) != 1 {
			return nil, errs.New(errs.Serial, "legacyupgrade: xyz packet needs exactly one x and one y plane")
		}
		return upgradeXYZ(pkt, xPlanes[0], yPlanes[0], zPlanes)
	default:
		if len(xPlanes) != 1 {
			return nil, errs.New(errs.Serial, "legacyupgrade: xy packet needs exactly one x plane, found %d", len(xPlanes))
		}
		return upgradeXY(pkt, xPlanes[0], yPlanes)
	}
}

// upgradeXY builds a rank-1 dataset: the x plane's coordinate dim, plus one
// data dim per distinct Source among the y planes (roles within a dim
// keyed by Plane.Role, defaulting to "center").
func upgradeXY(pkt LegacyPacket, x Plane, ys []Plane) (*dataset.Dataset, error) {
	ds := dataset.New("", 1)

	xDim := dimension.New(dimNameForUnits(x.Units), dimension.Coord)
	if err := addCodecAndVar(ds, xDim, x, 1, 0); err != nil {
		return nil, err
	}
	xDim.CopyInProps(pkt.Props, 'x', legacyAxisDrop)
	ds.AddDim(xDim)

	groups := lo.GroupBy(ys, func(p Plane) string {
		if p.Source != "" {
			return p.Source
		}
		return "y"
	})

	for _, source := range sortedKeys(groups) {
		planes := groups[source]

		d := dimension.New(source, dimension.Data)
		for _, p := range planes {
			if err := addCodecAndVar(ds, d, p, 1, 0); err != nil {
				return nil, err
			}
		}
		d.CopyInProps(pkt.Props, 'y', legacyAxisDrop)
		ds.AddDim(d)
	}

	return ds, nil
}

// upgradeXYZ builds a rank-1 scatter dataset: independent x and y coordinate
// dims plus one data dim per z plane.
func upgradeXYZ(pkt LegacyPacket, x, y Plane, zs []Plane) (*dataset.Dataset, error) {
	ds := dataset.New("", 1)

	xDim := dimension.New("X", dimension.Coord)
	if err := addCodecAndVar(ds, xDim, x, 1, 0); err != nil {
		return nil, err
	}
	xDim.CopyInProps(pkt.Props, 'x', legacyAxisDrop)
	ds.AddDim(xDim)

	yDim := dimension.New("Y", dimension.Coord)
	if err := addCodecAndVar(ds, yDim, y, 1, 0); err != nil {
		return nil, err
	}
	yDim.CopyInProps(pkt.Props, 'y', legacyAxisDrop)
	ds.AddDim(yDim)

	for i, z := range zs {
		name := z.Source
		if name == "" {
			name = "z"
			if i > 0 {
				name = "z" + strconv.Itoa(i)
			}
		}

		d := dimension.New(name, dimension.Data)
		if err := addCodecAndVar(ds, d, z, 1, 0); err != nil {
			return nil, err
		}
		d.CopyInProps(pkt.Props, 'z', legacyAxisDrop)
		ds.AddDim(d)
	}

	return ds, nil
}

// upgradeYScan builds a rank-2 dataset after validating every yscan plane
// agrees on ytag_spec, item count, and ytag units/values. A single
// waveform-rendered yscan whose ytag units convert to seconds rebuilds the
// time coordinate as reference+offset=center; otherwise the ytags form
// their own coordinate dimension.
func upgradeYScan(pkt LegacyPacket, x Plane, yscans []Plane) (*dataset.Dataset, error) {
	first := yscans[0]
	for _, p := range yscans[1:] {
		if p.YTagSpec != first.YTagSpec || p.NItems != first.NItems || p.YTagUnits != first.YTagUnits {
			return nil, errs.New(errs.Serial, "legacyupgrade: yscan planes disagree on ytag_spec/nitems/units")
		}
		if !sameFloats(p.YTagValues, first.YTagValues) {
			return nil, errs.New(errs.Serial, "legacyupgrade: yscan planes disagree on ytag values")
		}
	}

	ds := dataset.New("", 2)

	asWaveform := len(yscans) == 1 && first.Renderer == "waveform" && secondsConvertible(first.YTagUnits)

	if asWaveform {
		timeDim, err := buildWaveformTimeDim(ds, x, first)
		if err != nil {
			return nil, err
		}
		timeDim.CopyInProps(pkt.Props, 'x', legacyAxisDrop)
		ds.AddDim(timeDim)
	} else {
		timeDim := dimension.New(dimNameForUnits(x.Units), dimension.Coord)
		if err := addCodecAndVar(ds, timeDim, x, 2, 0); err != nil {
			return nil, err
		}
		timeDim.CopyInProps(pkt.Props, 'x', legacyAxisDrop)
		ds.AddDim(timeDim)

		ytagDim, err := buildYTagDim(first)
		if err != nil {
			return nil, err
		}
		ds.AddDim(ytagDim)
	}

	for i, p := range yscans {
		name := p.Source
		if name == "" {
			name = "e_spec_dens"
			if i > 0 {
				name = name + strconv.Itoa(i)
			}
		}

		d := dimension.New(name, dimension.Data)
		if err := addCodecAndVar(ds, d, p, 2, 1); err != nil {
			return nil, err
		}
		d.CopyInProps(pkt.Props, 'z', legacyAxisDrop)
		ds.AddDim(d)
	}

	return ds, nil
}

// buildWaveformTimeDim rebuilds the time coordinate as three variables:
// reference (rank-1 in axis 0, the original x array), offset (rank-1 in
// axis 1, the ytag array or an affine Sequence when the ytags are linear),
// and center = reference + offset.
func buildWaveformTimeDim(ds *dataset.Dataset, x Plane, yscan Plane) (*dimension.Dimension, error) {
	refAry, err := array.New("reference", value.F64, value.Size(value.F64), value.Fill(value.F64), 2, []int{0, 0}, false, x.Units)
	if err != nil {
		return nil, errs.Wrap(errs.Array, err, "legacyupgrade: reference array")
	}

	if _, err := ds.AddFixedCodec(refAry, value.DefaultSemantic(value.F64), x.Encoding, x.ItemBytes, x.SepByte, "", ""); err != nil {
		return nil, errs.Wrap(errs.Enc, err, "legacyupgrade: reference codec")
	}

	refVar, err := variable.NewArrayVar(refAry, 2, []int{0, -1})
	if err != nil {
		return nil, errs.Wrap(errs.Var, err, "legacyupgrade: reference variable")
	}

	var offsetVar variable.Variable
	if b, m, ok := linearFit(yscan.YTagValues); ok {
		seq, err := variable.NewSequence(value.F64, b, m, yscan.YTagUnits, 2, 1)
		if err != nil {
			return nil, errs.Wrap(errs.Var, err, "legacyupgrade: offset sequence")
		}
		offsetVar = seq
	} else {
		offAry, err := array.New("offset", value.F64, value.Size(value.F64), value.Fill(value.F64), 2, []int{0, 0}, false, yscan.YTagUnits)
		if err != nil {
			return nil, errs.Wrap(errs.Array, err, "legacyupgrade: offset array")
		}
		if err := appendFloats(offAry, yscan.YTagValues); err != nil {
			return nil, err
		}
		av, err := variable.NewArrayVar(offAry, 2, []int{-1, 1})
		if err != nil {
			return nil, errs.Wrap(errs.Var, err, "legacyupgrade: offset variable")
		}
		offsetVar = av
	}

	centerVT := value.Merge(value.F64, value.OpPlus, offsetVar.ElemType())
	center := variable.NewBinary(variable.BinaryPlus, refVar, offsetVar, centerVT)

	d := dimension.New("time", dimension.Coord)
	if err := d.AddVar("reference", refVar); err != nil {
		return nil, err
	}
	if err := d.AddVar("offset", offsetVar); err != nil {
		return nil, err
	}
	if err := d.AddVar("center", center); err != nil {
		return nil, err
	}

	return d, nil
}

// buildYTagDim builds the ytags' own coordinate dimension when no waveform
// rewrite applies, named by what the ytag units are physically convertible
// to.
func buildYTagDim(yscan Plane) (*dimension.Dimension, error) {
	name := "ytags"
	switch {
	case hzConvertible(yscan.YTagUnits):
		name = "frequency"
	case eVConvertible(yscan.YTagUnits):
		name = "energy"
	case secondsConvertible(yscan.YTagUnits):
		name = "offset"
	}

	var v variable.Variable
	if b, m, ok := linearFit(yscan.YTagValues); ok {
		seq, err := variable.NewSequence(value.F64, b, m, yscan.YTagUnits, 2, 1)
		if err != nil {
			return nil, errs.Wrap(errs.Var, err, "legacyupgrade: %s sequence", name)
		}
		v = seq
	} else {
		ary, err := array.New(name, value.F64, value.Size(value.F64), value.Fill(value.F64), 2, []int{0, 0}, false, yscan.YTagUnits)
		if err != nil {
			return nil, errs.Wrap(errs.Array, err, "legacyupgrade: %s array", name)
		}
		if err := appendFloats(ary, yscan.YTagValues); err != nil {
			return nil, err
		}
		av, err := variable.NewArrayVar(ary, 2, []int{-1, 1})
		if err != nil {
			return nil, errs.Wrap(errs.Var, err, "legacyupgrade: %s variable", name)
		}
		v = av
	}

	d := dimension.New(name, dimension.Coord)
	if err := d.AddVar("center", v); err != nil {
		return nil, err
	}

	return d, nil
}

// addCodecAndVar allocates a DynArray sized for p's store type, binds a
// codec built from p's wire encoding, wraps it in an ArrayVar varying
// along funcAxis alone, and adds it to d under p.Role (defaulting to
// "center").
func addCodecAndVar(ds *dataset.Dataset, d *dimension.Dimension, p Plane, rank, funcAxis int) error {
	sem := value.DefaultSemantic(value.F64)
	if p.Encoding == codec.UTF8 && isTimeUnits(p.Units) {
		sem = value.SemDatetime
	}

	vt := value.StoreType(string(p.Encoding), p.ItemBytes, sem)

	elemSize := value.Size(vt)
	shape := make([]int, rank)

	ary, err := array.New(d.Name()+"."+roleOf(p), vt, elemSize, value.Fill(vt), rank, shape, false, p.Units)
	if err != nil {
		return errs.Wrap(errs.Array, err, "legacyupgrade: plane array")
	}

	epochUnits := ""
	if sem == value.SemDatetime {
		epochUnits = p.Units
	}

	if _, err := ds.AddFixedCodec(ary, sem, p.Encoding, p.ItemBytes, p.SepByte, epochUnits, ""); err != nil {
		return errs.Wrap(errs.Enc, err, "legacyupgrade: plane codec")
	}

	idxMap := make([]int, rank)
	for i := range idxMap {
		if i == funcAxis {
			idxMap[i] = funcAxis
		} else {
			idxMap[i] = -1
		}
	}

	v, err := variable.NewArrayVar(ary, rank, idxMap)
	if err != nil {
		return errs.Wrap(errs.Var, err, "legacyupgrade: plane variable")
	}

	return d.AddVar(roleOf(p), v)
}

func roleOf(p Plane) string {
	if p.Role == "" {
		return "center"
	}
	return p.Role
}

func dimNameForUnits(units string) string {
	if isTimeUnits(units) {
		return "time"
	}
	return "X"
}

func isTimeUnits(units string) bool {
	u := strings.ToLower(units)
	return strings.Contains(u, "2000") || strings.Contains(u, "utc") || strings.Contains(u, "tt")
}

func hzConvertible(units string) bool {
	u := strings.ToLower(units)
	return u == "hz" || strings.HasSuffix(u, "hz")
}

func eVConvertible(units string) bool {
	u := strings.ToLower(units)
	return u == "ev" || strings.HasSuffix(u, "ev")
}

func secondsConvertible(units string) bool {
	u := strings.ToLower(units)
	switch u {
	case "s", "sec", "second", "seconds", "us", "ms", "microseconds", "milliseconds":
		return true
	default:
		return false
	}
}

// linearFit reports whether vals is well-approximated by an arithmetic
// progression, and if so returns the fitted intercept b and step m. Ytags
// carried over from a legacy packet are rounded to the wire's item byte
// width, so exact equality of successive differences is too strict; a
// least-squares fit with a near-1 R² catches the same intent.
func linearFit(vals []float64) (b, m float64, ok bool) {
	if len(vals) < 2 {
		return 0, 0, false
	}

	x := make([]float64, len(vals))
	for i := range x {
		x[i] = float64(i)
	}

	fit, fitted := regression.FitLinear(x, vals)
	if !fitted || fit.RSquared < linearFitRSquared {
		return 0, 0, false
	}

	return fit.A, fit.B, true
}

func sameFloats(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func appendFloats(ary *array.Array, vals []float64) error {
	buf, err := ary.Append(nil, len(vals))
	if err != nil {
		return errs.Wrap(errs.Array, err, "legacyupgrade: append ytag values")
	}

	for i, v := range vals {
		writeF64(buf[i*8:i*8+8], v)
	}

	return nil
}

func writeF64(dst []byte, v float64) {
	bits := math.Float64bits(v)
	for i := 0; i < 8; i++ {
		dst[i] = byte(bits >> (8 * i))
	}
}

func sortedKeys(m map[string][]Plane) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}

	sort.Strings(out)

	return out
}
