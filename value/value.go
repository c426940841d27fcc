// Package value implements the das Value type: a closed enumeration of
// storage kinds (VT) plus the type arithmetic, comparison, and text
// parse/format operations that the rest of the core builds on.
//
// A VT describes how a single element is stored in memory. A separate
// semantic tag ("bool", "int", "real", "datetime", "string") annotates
// intent independently of storage, since e.g. a calendar time may be
// stored as either an I64 (integer epoch count) or an F64 (fractional
// seconds) depending on the codec that produced it.
package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/das-developers/das2go/internal/dastime"
)

// VT is the storage type of a single Value element.
type VT uint8

const (
	// Unknown designates elements whose storage type was never resolved;
	// callers must cast the bytes themselves.
	Unknown VT = iota
	U8
	I8
	U16
	I16
	U32
	I32
	U64
	I64
	F32
	F64
	// Time stores a calendar-aware instant; internally reduced to an I64
	// or F64 epoch count by storeType, see Sequence in package variable
	// for the one place a raw calendar struct is still handed around.
	Time
	// Text is a rank-1 composite: a NUL-terminated UTF-8 string.
	Text
	// ByteSeq is a rank-1 composite: an opaque length-prefixed byte run.
	ByteSeq
	// GeoVec is a rank-1 composite holding up to 3 vector components; see
	// package dimension for the frame/system metadata carried alongside.
	GeoVec
	// Index is only used by array indexing elements that track the size
	// and location of ragged child dimensions; never a Property/Datum type.
	Index
)

// Semantic annotates the intended meaning of a value independent of its
// storage width, mirroring the 'bool'|'int'|'real'|'datetime'|'string'
// interpretation strings used by Codec and Property.
type Semantic uint8

const (
	SemUnknown Semantic = iota
	SemBool
	SemInt
	SemReal
	SemDatetime
	SemString
)

func (s Semantic) String() string {
	switch s {
	case SemBool:
		return "bool"
	case SemInt:
		return "int"
	case SemReal:
		return "real"
	case SemDatetime:
		return "datetime"
	case SemString:
		return "string"
	default:
		return "unknown"
	}
}

// ParseSemantic parses the das wire string form of a semantic tag.
func ParseSemantic(s string) Semantic {
	switch s {
	case "bool":
		return SemBool
	case "int":
		return SemInt
	case "real":
		return SemReal
	case "datetime":
		return SemDatetime
	case "string":
		return SemString
	default:
		return SemUnknown
	}
}

// Canonical fill values, carried over verbatim from das2C's value.h so that
// a stream produced by this package round-trips byte-for-byte against a
// das2C encoder on the fixed-width binary path (testable property §8.1).
const (
	RealFill  = -1e31
	Int64Fill = -0x7FFFFFFFFFFFFFFF
	Int32Fill = -0x7FFFFFFF
)

// Rank returns the composite rank of vt: 1 for Text/ByteSeq/GeoVec, 0 for
// every simple scalar type (including Time).
func (vt VT) Rank() int {
	switch vt {
	case Text, ByteSeq, GeoVec:
		return 1
	default:
		return 0
	}
}

// IsInt reports whether vt is one of the fixed-width integer kinds.
func (vt VT) IsInt() bool {
	switch vt {
	case U8, I8, U16, I16, U32, I32, U64, I64:
		return true
	default:
		return false
	}
}

// IsReal reports whether vt is a floating point kind.
func (vt VT) IsReal() bool {
	return vt == F32 || vt == F64
}

// IsUnsigned reports whether vt is an unsigned integer kind.
func (vt VT) IsUnsigned() bool {
	switch vt {
	case U8, U16, U32, U64:
		return true
	default:
		return false
	}
}

// Size returns the fixed in-memory size, in bytes, of a single element of
// vt. Text, ByteSeq and GeoVec have no fixed size and Size panics for them;
// callers must route through their rank-1 accessors instead.
func Size(vt VT) int {
	switch vt {
	case U8, I8:
		return 1
	case U16, I16:
		return 2
	case U32, I32, F32:
		return 4
	case U64, I64, F64, Time:
		return 8
	case Index:
		return 8
	default:
		panic(fmt.Sprintf("value: Size: %v has no fixed size", vt))
	}
}

// Fill returns the canonical fill-value bytes for vt in host-native byte
// order. Composite types (Text, ByteSeq, GeoVec) have no scalar fill and
// return nil; DynArray assigns them an empty/zero-length fill instead.
func Fill(vt VT) []byte {
	buf := make([]byte, 0, 8)

	switch vt {
	case U8:
		return append(buf, 0xFF)
	case I8:
		return append(buf, 0x80)
	case U16:
		return le16(0xFFFF)
	case I16:
		i16 := int16(-0x7FFF)
		return le16(uint16(i16))
	case U32:
		return le32(0xFFFFFFFF)
	case I32:
		i32 := int32(Int32Fill)
		return le32(uint32(i32))
	case U64:
		return le64(0xFFFFFFFFFFFFFFFF)
	case I64:
		i64 := int64(Int64Fill)
		return le64(uint64(i64))
	case F32:
		return le32(math.Float32bits(float32(RealFill)))
	case F64, Time:
		return le64(math.Float64bits(RealFill))
	default:
		return nil
	}
}

func le16(v uint16) []byte { return []byte{byte(v), byte(v >> 8)} }
func le32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}
func le64(v uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}

	return b
}

// DefaultSemantic returns the semantic tag implied by vt alone, used when a
// Property or Codec does not specify one explicitly.
func DefaultSemantic(vt VT) Semantic {
	switch {
	case vt == Time:
		return SemDatetime
	case vt == Text:
		return SemString
	case vt.IsInt():
		return SemInt
	case vt.IsReal():
		return SemReal
	default:
		return SemUnknown
	}
}

// String renders vt's wire name.
func (vt VT) String() string {
	switch vt {
	case U8:
		return "u8"
	case I8:
		return "i8"
	case U16:
		return "u16"
	case I16:
		return "i16"
	case U32:
		return "u32"
	case I32:
		return "i32"
	case U64:
		return "u64"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	case Time:
		return "time"
	case Text:
		return "text"
	case ByteSeq:
		return "byteseq"
	case GeoVec:
		return "geovec"
	case Index:
		return "index"
	default:
		return "unknown"
	}
}

// StoreType infers the smallest in-memory VT that can hold a buffer
// encoding/semantic combination without loss, mirroring das_vt_store_type.
//
//   - utf8 + datetime -> F64. StoreType is given no units, so it never
//     picks I64 for an integral epoch such as TT2000; StoreTypeForEpoch
//     does that.
//   - utf8 + int/real -> F32 when itemBytes is 1..12 characters, F64
//     otherwise (wider items, or itemBytes <= 0 for variable width).
//   - BEreal/LEreal 4 -> F32, 8 -> F64.
//   - BEint/LEint/BEuint/LEuint -> smallest integer VT of at least
//     itemBytes, signed per the buffer's signedness.
//   - byte/ubyte -> I8/U8.
func StoreType(enc string, itemBytes int, sem Semantic) VT {
	switch enc {
	case "utf8":
		if sem == SemDatetime {
			if epochIsIntegral(enc) {
				return I64
			}

			return F64
		}

		if itemBytes > 0 && itemBytes <= 12 {
			return F32
		}

		return F64

	case "byte":
		return I8
	case "ubyte":
		return U8
	case "BEreal", "LEreal":
		if itemBytes == 4 {
			return F32
		}

		return F64
	case "BEint", "LEint":
		return signedIntVT(itemBytes)
	case "BEuint", "LEuint":
		return unsignedIntVT(itemBytes)
	default:
		return Unknown
	}
}

// epochIsIntegral is a hook a Codec fills from the actual Units value; this
// default (no units context available) assumes a fractional-seconds epoch.
func epochIsIntegral(string) bool { return false }

func signedIntVT(itemBytes int) VT {
	switch {
	case itemBytes <= 1:
		return I8
	case itemBytes <= 2:
		return I16
	case itemBytes <= 4:
		return I32
	default:
		return I64
	}
}

func unsignedIntVT(itemBytes int) VT {
	switch {
	case itemBytes <= 1:
		return U8
	case itemBytes <= 2:
		return U16
	case itemBytes <= 4:
		return U32
	default:
		return U64
	}
}

// StoreTypeForEpoch is the epoch-aware variant of StoreType used by Codec,
// which knows the target Units and whether they have an integral calendar
// representation (e.g. TT2000 nanoseconds) via dastime.HasCalendarRep.
func StoreTypeForEpoch(enc string, itemBytes int, sem Semantic, epochIntegral bool) VT {
	if enc == "utf8" && sem == SemDatetime {
		if epochIntegral {
			return I64
		}

		return F64
	}

	return StoreType(enc, itemBytes, sem)
}

// CmpResult is the three-way (plus incomparable) outcome of Cmp.
type CmpResult int

const (
	Less         CmpResult = -1
	Equal        CmpResult = 0
	Greater      CmpResult = 1
	Incomparable CmpResult = -2
)

// Cmp compares two values of possibly different VTs.
//
// Rules (das_vt_cmpAny):
//  1. Strings are never equal to non-strings.
//  2. Times are never comparable to non-times.
//  3. Otherwise both sides are promoted to float64 and compared
//     numerically.
func Cmp(aVT VT, a []byte, bVT VT, b []byte) CmpResult {
	if aVT == Text || bVT == Text {
		if aVT != bVT {
			return Incomparable
		}

		return cmpString(string(a), string(b))
	}

	if (aVT == Time) != (bVT == Time) {
		return Incomparable
	}

	af, aok := toFloat64(aVT, a)
	bf, bok := toFloat64(bVT, b)
	if !aok || !bok {
		return Incomparable
	}

	switch {
	case af < bf:
		return Less
	case af > bf:
		return Greater
	default:
		return Equal
	}
}

func cmpString(a, b string) CmpResult {
	switch {
	case a < b:
		return Less
	case a > b:
		return Greater
	default:
		return Equal
	}
}

func toFloat64(vt VT, b []byte) (float64, bool) {
	switch vt {
	case U8:
		return float64(b[0]), true
	case I8:
		return float64(int8(b[0])), true
	case U16:
		return float64(leUint16(b)), true
	case I16:
		return float64(int16(leUint16(b))), true
	case U32:
		return float64(leUint32(b)), true
	case I32:
		return float64(int32(leUint32(b))), true
	case U64:
		return float64(leUint64(b)), true
	case I64, Time:
		return float64(int64(leUint64(b))), true
	case F32:
		return float64(math.Float32frombits(uint32(leUint32(b)))), true
	case F64:
		return math.Float64frombits(leUint64(b)), true
	default:
		return 0, false
	}
}

func leUint16(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }
func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
func leUint64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}

	return v
}

// Op identifies a binary arithmetic operator for Merge's type-combining
// rules. Only the identity of "is this Plus/Minus" vs "anything else"
// matters to Merge, mirroring das_vt_merge's treatment of a lexer token id.
type Op int

const (
	OpOther Op = iota
	OpPlus
	OpMinus
)

// Merge computes the resulting VT of applying op to values of type left and
// right, per the type-arithmetic rules of §4.1:
//
//   - Unknown/Index/ByteSeq/Text on either side absorbs to Unknown.
//   - {U8,U16,I16} combined with {U8,U16,I16} promotes to F32.
//   - Any of {I32,U32,I64,U64,F32,F64} combined with another numeric
//     promotes to F64.
//   - Time - Time -> F64.
//   - Time +/- number -> Time.
//   - Any other combination touching Time -> Unknown.
func Merge(left VT, op Op, right VT) VT {
	if absorbsToUnknown(left) || absorbsToUnknown(right) {
		return Unknown
	}

	if left == Time || right == Time {
		return mergeTime(left, op, right)
	}

	if isNarrow(left) && isNarrow(right) {
		return F32
	}

	if isNumeric(left) && isNumeric(right) {
		return F64
	}

	return Unknown
}

func absorbsToUnknown(vt VT) bool {
	switch vt {
	case Unknown, Index, ByteSeq, Text:
		return true
	default:
		return false
	}
}

func isNarrow(vt VT) bool {
	switch vt {
	case U8, U16, I16:
		return true
	default:
		return false
	}
}

func isNumeric(vt VT) bool {
	return vt.IsInt() || vt.IsReal()
}

func mergeTime(left VT, op Op, right VT) VT {
	switch {
	case left == Time && right == Time:
		if op == OpMinus {
			return F64
		}

		return Unknown
	case left == Time && isNumeric(right):
		if op == OpPlus || op == OpMinus {
			return Time
		}

		return Unknown
	case right == Time && isNumeric(left):
		if op == OpPlus {
			return Time
		}

		return Unknown
	default:
		return Unknown
	}
}

// Parse converts text into vt's binary form, appending into out (out's
// existing bytes, if any, are left in place). It returns the updated slice.
//
// The text is read as vt says; Parse does not itself guess that a bare
// number containing ':' or 'T' is a calendar time (package descriptor's
// Descriptor.GetDatum applies that heuristic before choosing the type).
func Parse(out []byte, vt VT, text string) ([]byte, error) {
	text = strings.TrimSpace(text)

	switch vt {
	case U8, U16, U32, U64:
		n, err := strconv.ParseUint(text, 10, Size(vt)*8)
		if err != nil {
			return out, errValue(vt, text, err)
		}

		return appendUint(out, vt, n), nil

	case I8, I16, I32, I64:
		n, err := strconv.ParseInt(text, 10, Size(vt)*8)
		if err != nil {
			return out, errValue(vt, text, err)
		}

		return appendInt(out, vt, n), nil

	case F32:
		f, err := strconv.ParseFloat(text, 32)
		if err != nil {
			return out, errValue(vt, text, err)
		}

		return le32Append(out, math.Float32bits(float32(f))), nil

	case F64:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return out, errValue(vt, text, err)
		}

		return le64Append(out, math.Float64bits(f)), nil

	case Time:
		t, err := dastime.ParseTime(text)
		if err != nil {
			return out, errValue(vt, text, err)
		}

		return le64Append(out, math.Float64bits(dastime.ToTT2000Seconds(t))), nil

	case Text:
		return append(out, []byte(text)...), nil

	default:
		return out, fmt.Errorf("value: Parse: unsupported VT %v", vt)
	}
}

func errValue(vt VT, text string, cause error) error {
	return fmt.Errorf("value: cannot parse %q as %v: %w", text, vt, cause)
}

func appendUint(out []byte, vt VT, n uint64) []byte {
	switch vt {
	case U8:
		return append(out, byte(n))
	case U16:
		return append(out, le16(uint16(n))...)
	case U32:
		return append(out, le32(uint32(n))...)
	default:
		return append(out, le64(n)...)
	}
}

func appendInt(out []byte, vt VT, n int64) []byte {
	switch vt {
	case I8:
		return append(out, byte(int8(n)))
	case I16:
		return append(out, le16(uint16(int16(n)))...)
	case I32:
		return append(out, le32(uint32(int32(n)))...)
	default:
		return append(out, le64(uint64(n))...)
	}
}

func le32Append(out []byte, v uint32) []byte { return append(out, le32(v)...) }
func le64Append(out []byte, v uint64) []byte { return append(out, le64(v)...) }

// Format renders the bytes of one vt element as text using fmtSpec (a
// printf-style verb like "%.6f"; empty uses a type-appropriate default) and
// returns the text. out is not used.
func Format(out []byte, vt VT, b []byte, fmtSpec string) (string, error) {
	switch vt {
	case Time:
		f, _ := toFloat64(vt, b)
		return dastime.FromTT2000Seconds(f).Format(time.RFC3339Nano), nil
	case Text:
		return string(b), nil
	default:
		f, ok := toFloat64(vt, b)
		if !ok {
			return "", fmt.Errorf("value: Format: unsupported VT %v", vt)
		}

		if fmtSpec == "" {
			fmtSpec = defaultFormat(vt)
		}

		return fmt.Sprintf(fmtSpec, formatArg(vt, f, b)), nil
	}
}

func defaultFormat(vt VT) string {
	if vt.IsReal() {
		return "%g"
	}

	return "%d"
}

// formatArg returns the value as the Go type fmt needs to honor integer vs.
// float verbs correctly (an int formatted with %d via a float64 would print
// with the wrong type if passed as float64 to Sprintf's %d path).
func formatArg(vt VT, f float64, b []byte) any {
	switch vt {
	case F32, F64:
		return f
	case U8, U16, U32, U64:
		u, _ := toUint64(vt, b)
		return u
	default:
		return int64(f)
	}
}

func toUint64(vt VT, b []byte) (uint64, bool) {
	switch vt {
	case U8:
		return uint64(b[0]), true
	case U16:
		return uint64(leUint16(b)), true
	case U32:
		return uint64(leUint32(b)), true
	case U64:
		return leUint64(b), true
	default:
		return 0, false
	}
}
