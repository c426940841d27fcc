// Package array implements DynArray: a typed, rank-N (1..8), optionally
// ragged growable array with a fill value, the leaf storage type that every
// Variable, Codec, and Dataset in this module ultimately reads from or
// writes to.
//
// Storage is a single flat, row-major byte buffer. Every axis except
// possibly the innermost (fastest-moving) one is dense: every "row" at that
// axis has the same length. The innermost axis may instead be declared
// ragged, in which case each row (one per combination of the outer axes)
// tracks its own element count, closed explicitly by MarkEnd. This matches
// every ragged case this module's Variables and LegacyUpgrader actually
// produce (ragged text columns, variable-length yscan rows); true
// multi-axis raggedness is not exercised by any spec scenario and is not
// implemented here.
package array

import (
	"fmt"

	"github.com/das-developers/das2go/errs"
	"github.com/das-developers/das2go/internal/pool"
	"github.com/das-developers/das2go/value"
)

// MaxRank is the highest rank a DynArray may have (DASIDX_MAX in the
// original das2C source).
const MaxRank = 8

// Usage holds the per-array interpretation flags set via SetUsage.
type Usage uint8

const (
	// AsString treats the last byte axis as a NUL-terminated UTF-8 string.
	AsString Usage = 1 << iota
	// AsSubSeq treats the last axis as an opaque byte sequence (ByteSeq).
	AsSubSeq
)

// RaggedLen is returned by LengthIn when the requested prefix does not
// resolve to a single consistent row length (e.g. the prefix is shorter
// than rank-1 and rows underneath it differ in length).
const RaggedLen = -1

// Array is a typed, growable, optionally-ragged N-dimensional array; the
// DynArray of §4.2.
type Array struct {
	id       string
	vt       value.VT
	elemSize int // size of one element of vt (0 for composite Text/ByteSeq)
	fill     []byte
	rank     int
	shape    [MaxRank]int // fixed axis lengths; shape[rank-1] unused if ragged
	ragged   bool          // true: innermost axis is ragged
	units    string
	usage    Usage

	data []byte // dense storage (or, if ragged, concatenated row payloads)

	// Ragged bookkeeping, used only when ragged is true. rowLens[i] and
	// rowOffsets[i] describe the i-th row, where a "row" is one complete
	// combination of the outer (rank-1) axes, walked in row-major order.
	rowLens    []int
	rowOffsets []int
	curRowLen  int // elements appended to the in-progress row since the last MarkEnd
	curRowAt   int // byte offset where the in-progress row started

	appendedElems int // total elements appended along axis 0 of a dense array

	refCount int32
}

// New creates a DynArray. shape gives the fixed length of each axis
// (shape[rank-1] is ignored when ragged is true, since that axis grows
// row-by-row instead). elemSize is the byte width of one element of vt (0
// for the composite Text/ByteSeq kinds, whose per-row length is implicit in
// the ragged bookkeeping).
func New(id string, vt value.VT, elemSize int, fill []byte, rank int, shape []int, ragged bool, units string) (*Array, error) {
	if rank < 1 || rank > MaxRank {
		return nil, errs.New(errs.Array, "array %q: rank %d out of range 1..%d", id, rank, MaxRank)
	}

	a := &Array{
		id:       id,
		vt:       vt,
		elemSize: elemSize,
		fill:     fill,
		rank:     rank,
		ragged:   ragged,
		units:    units,
		refCount: 1,
	}

	for i := 0; i < rank; i++ {
		if i < len(shape) {
			a.shape[i] = shape[i]
		}
	}

	if ragged {
		a.rowOffsets = []int{0}
	}

	return a, nil
}

// ID is the array's identifier, unique within its owning Dataset.
func (a *Array) ID() string { return a.id }

// ValType is the element value type.
func (a *Array) ValType() value.VT { return a.vt }

// ValSize is the fixed byte width of one element, or 0 for composite types.
func (a *Array) ValSize() int { return a.elemSize }

// Units is the array's physical unit.
func (a *Array) Units() string { return a.units }

// Rank is the array's dimensionality.
func (a *Array) Rank() int { return a.rank }

// Fill returns the array's fill-value bytes.
func (a *Array) Fill() []byte { return a.fill }

// Ragged reports whether the array's innermost axis grows row-by-row
// rather than carrying a fixed dense length.
func (a *Array) Ragged() bool { return a.ragged }

// SetUsage installs interpretation flags (AsString / AsSubSeq).
func (a *Array) SetUsage(u Usage) { a.usage = u }

// Usage returns the current interpretation flags.
func (a *Array) Usage() Usage { return a.usage }

// IncRef increments the reference count; see package stream for ownership
// discipline (a Codec and its Variable each hold one strong reference).
func (a *Array) IncRef() { a.refCount++ }

// DecRef decrements the reference count and reports whether it reached
// zero. Callers that observe true may release the array.
func (a *Array) DecRef() bool {
	a.refCount--
	return a.refCount <= 0
}

// RefCount returns the current reference count, for diagnostics/tests.
func (a *Array) RefCount() int32 { return a.refCount }

// Shape writes the per-axis lengths into out (resized if needed) and
// returns it, one entry per axis. A ragged innermost axis reports RaggedLen.
func (a *Array) Shape(out []int) []int {
	if cap(out) < a.rank {
		out = make([]int, a.rank)
	} else {
		out = out[:a.rank]
	}

	for i := 0; i < a.rank; i++ {
		if a.ragged && i == a.rank-1 {
			out[i] = RaggedLen
		} else {
			out[i] = a.shape[i]
		}
	}

	return out
}

// rowCount is the product of the fixed axis lengths above the ragged
// axis (or the whole dense shape when not ragged), i.e. how many complete
// rows of outer-axis combinations exist once shape[0..rank-2] are known.
func (a *Array) rowCount() int {
	n := 1
	upper := a.rank
	if a.ragged {
		upper = a.rank - 1
	}

	for i := 0; i < upper; i++ {
		if a.shape[i] > 0 {
			n *= a.shape[i]
		}
	}

	return n
}

// denseStride returns the row-major strides for the dense (non-ragged) case.
func (a *Array) denseStride() []int {
	stride := make([]int, a.rank)
	acc := 1
	for i := a.rank - 1; i >= 0; i-- {
		stride[i] = acc
		acc *= max(a.shape[i], 1)
	}

	return stride
}

func max(a, b int) int {
	if a > b {
		return a
	}

	return b
}

// Stride writes the dense row-major strides (in elements) for each axis
// into out and returns it, one entry per axis. Only meaningful for non-ragged arrays;
// ragged arrays return the strides of the outer dense axes with the
// innermost entry set to 1 (per-element).
func (a *Array) Stride(out []int) []int {
	s := a.denseStride()
	if cap(out) < a.rank {
		out = make([]int, a.rank)
	} else {
		out = out[:a.rank]
	}
	copy(out, s)

	return out
}

// Append adds count elements (or, for text/bytesequence arrays, one
// variable-length item) to the end of the array, returning the byte slice
// just written so the caller (typically a Codec) can fill it in place.
// When data is nil the slot is zero-initialized; the caller overwrites it.
func (a *Array) Append(data []byte, count int) ([]byte, error) {
	if a.elemSize > 0 {
		need := count * a.elemSize
		start := len(a.data)
		a.data = growAndSlice(a.data, need)
		if data != nil {
			if len(data) < need {
				return nil, errs.New(errs.Array, "array %q: Append: short data, want %d got %d", a.id, need, len(data))
			}

			copy(a.data[start:], data[:need])
		} else {
			clear(a.data[start : start+need])
		}

		if a.ragged {
			a.curRowLen += count
		} else {
			a.advanceDenseCursor(count)
		}

		return a.data[start : start+need], nil
	}

	// Composite (Text/ByteSeq): one append = one variable-length item.
	start := len(a.data)
	a.data = append(a.data, data...)
	a.curRowLen++

	return a.data[start:], nil
}

// advanceDenseCursor tracks how many elements have been appended along
// axis 0 of a dense array, growing shape[0] as needed (the only axis
// Append ever extends for a non-ragged array).
func (a *Array) advanceDenseCursor(count int) {
	perOuterRow := 1
	for i := 1; i < a.rank; i++ {
		perOuterRow *= max(a.shape[i], 1)
	}

	if perOuterRow == 0 {
		perOuterRow = 1
	}

	a.appendedElems += count
	a.shape[0] = (a.appendedElems + perOuterRow - 1) / perOuterRow
}

func growAndSlice(buf []byte, need int) []byte {
	if need <= 0 {
		return buf
	}

	start := len(buf)
	if cap(buf)-start >= need {
		return buf[:start+need]
	}

	bb := pool.NewByteBuffer(start + need)
	bb.B = append(bb.B, buf...)
	bb.Grow(need)
	bb.B = bb.B[:start+need]

	return bb.B
}

// MarkEnd closes the current ragged row on axis, recording its length and
// advancing the row bookkeeping so the next Append starts a new row. It is
// a complete no-op on a non-ragged array, or for any axis other than the
// innermost, so Codec callers don't need to special-case the WRAP flag.
func (a *Array) MarkEnd(axis int) {
	if axis != a.rank-1 || !a.ragged {
		return
	}

	a.rowLens = append(a.rowLens, a.curRowLen)
	a.curRowAt = len(a.data)
	a.rowOffsets = append(a.rowOffsets, a.curRowAt)
	a.curRowLen = 0
}

// LengthIn returns the current row length directly below prefix (a row
// index for every axis above the innermost), or RaggedLen if prefix does
// not pin down a single closed row. For a non-ragged array it returns the
// dense length of the innermost axis when prefix has rank-1 entries, and
// RaggedLen for any other prefix length.
func (a *Array) LengthIn(prefix ...int) int {
	if !a.ragged {
		if a.rank-len(prefix) == 1 {
			return a.shape[a.rank-1]
		}

		return RaggedLen
	}

	if len(prefix) != a.rank-1 {
		return RaggedLen
	}

	row := a.flattenOuter(prefix)
	if row < 0 || row >= len(a.rowLens) {
		return RaggedLen
	}

	return a.rowLens[row]
}

func (a *Array) flattenOuter(prefix []int) int {
	idx := 0
	for i, p := range prefix {
		dim := 1
		for j := i + 1; j < a.rank-1; j++ {
			dim *= max(a.shape[j], 1)
		}

		idx += p * dim
	}

	return idx
}

// GetAt returns the raw bytes for the single element at idx (len(idx) must
// equal rank for fixed-size elements; for ragged arrays it must equal rank
// and the final index selects the element within its row).
func (a *Array) GetAt(idx ...int) ([]byte, error) {
	if len(idx) != a.rank {
		return nil, errs.New(errs.Array, "array %q: GetAt: want %d indices, got %d", a.id, a.rank, len(idx))
	}

	if !a.ragged {
		off := 0
		stride := a.denseStride()
		for i, ix := range idx {
			off += ix * stride[i]
		}
		off *= a.elemSize

		if off < 0 || off+a.elemSize > len(a.data) {
			return a.fill, nil
		}

		return a.data[off : off+a.elemSize], nil
	}

	row := a.flattenOuter(idx[:a.rank-1])
	if row < 0 || row >= len(a.rowOffsets)-1 {
		return a.fill, nil
	}

	within := idx[a.rank-1]
	if a.elemSize > 0 {
		rowStart := a.rowOffsets[row] + within*a.elemSize
		if within < 0 || within >= a.rowLens[row] {
			return a.fill, nil
		}

		return a.data[rowStart : rowStart+a.elemSize], nil
	}

	return nil, errs.New(errs.NotImp, "array %q: GetAt on composite ragged array requires GetIn", a.id)
}

// GetIn returns the slice of elements making up the row selected by prefix
// (len(prefix) == rank-1), i.e. the vector along the innermost axis at a
// fixed outer index.
func (a *Array) GetIn(prefix ...int) ([]byte, error) {
	if len(prefix) != a.rank-1 {
		return nil, errs.New(errs.Array, "array %q: GetIn: want %d indices, got %d", a.id, a.rank-1, len(prefix))
	}

	if !a.ragged {
		off := 0
		stride := a.denseStride()
		for i, ix := range prefix {
			off += ix * stride[i]
		}
		n := a.shape[a.rank-1]
		off *= a.elemSize

		if off < 0 || off+n*a.elemSize > len(a.data) {
			return nil, errs.New(errs.Array, "array %q: GetIn: index out of range", a.id)
		}

		return a.data[off : off+n*a.elemSize], nil
	}

	row := a.flattenOuter(prefix)
	if row < 0 || row >= len(a.rowLens) {
		return nil, errs.New(errs.Array, "array %q: GetIn: row out of range", a.id)
	}

	start := a.rowOffsets[row]
	end := a.rowOffsets[row+1]

	return a.data[start:end], nil
}

// ValidAt reports whether idx addresses an element actually written (as
// opposed to a fill value returned because the index is past the current
// ragged row length).
func (a *Array) ValidAt(idx ...int) bool {
	if len(idx) != a.rank {
		return false
	}

	if !a.ragged {
		b, err := a.GetAt(idx...)
		return err == nil && len(b) == a.elemSize
	}

	row := a.flattenOuter(idx[:a.rank-1])
	if row < 0 || row >= len(a.rowLens) {
		return false
	}

	return idx[a.rank-1] >= 0 && idx[a.rank-1] < a.rowLens[row]
}

// Clear resets the array to empty, retaining its allocated backing buffer,
// and returns the number of bytes freed (i.e. no longer considered live).
func (a *Array) Clear() int {
	freed := len(a.data)
	a.data = a.data[:0]
	a.rowLens = a.rowLens[:0]
	a.rowOffsets = a.rowOffsets[:1]
	a.curRowLen = 0
	a.curRowAt = 0
	a.appendedElems = 0
	a.shape[0] = 0

	return freed
}

// MemUsed returns the number of live payload bytes.
func (a *Array) MemUsed() int { return len(a.data) }

// MemOwned returns the number of allocated (but not necessarily live) bytes.
func (a *Array) MemOwned() int { return cap(a.data) }

// MemIndexed returns the bytes spent on ragged row bookkeeping.
func (a *Array) MemIndexed() int {
	return len(a.rowLens)*8 + len(a.rowOffsets)*8
}

// String implements fmt.Stringer for diagnostics.
func (a *Array) String() string {
	return fmt.Sprintf("Array{id=%s vt=%s rank=%d ragged=%v}", a.id, a.vt, a.rank, a.ragged)
}
