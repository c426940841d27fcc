// Package codec implements the bidirectional element<->byte translation
// layer (§4.3) that sits between a raw packet payload and an Array: it
// knows how one element (or run of elements) is represented on the wire
// and how the same element is represented in memory, and bridges the two
// on every Decode/Encode call.
package codec

import (
	"fmt"

	"github.com/das-developers/das2go/array"
	"github.com/das-developers/das2go/errs"
	"github.com/das-developers/das2go/internal/dastime"
	"github.com/das-developers/das2go/internal/endian"
	"github.com/das-developers/das2go/value"
)

// BufEncoding names the wire encoding of a single item in the external
// buffer, mirroring the sEncType strings of das2C's DasCodec_init.
type BufEncoding string

const (
	BEint  BufEncoding = "BEint"
	LEint  BufEncoding = "LEint"
	BEuint BufEncoding = "BEuint"
	LEuint BufEncoding = "LEuint"
	BEreal BufEncoding = "BEreal"
	LEreal BufEncoding = "LEreal"
	Byte   BufEncoding = "byte"
	UByte  BufEncoding = "ubyte"
	UTF8   BufEncoding = "utf8"
)

// ItemWidth sentinels for variable-length items, mirroring DASENC_ITEM_TERM
// / DASENC_ITEM_LEN. A positive ItemWidth is the fixed byte width of one
// item.
const (
	// ItemTerminated marks items separated by a terminator byte (the
	// codec's separator set) rather than carrying a fixed width.
	ItemTerminated = -9
	// ItemLengthPrefixed marks items each preceded by an explicit length.
	ItemLengthPrefixed = -1
)

// procFlags are the internal flags DasCodec_init derives once at
// construction time so Decode/Encode can dispatch on a cheap bitmask
// instead of re-deriving them on every call.
type procFlags uint16

const (
	flagSwap procFlags = 1 << iota
	flagCastUp
	flagCastDown
	flagText
	flagParse
	flagVarSz
	flagNullTerm
	flagWrap
	flagReader
)

// Codec describes how one element (or run of elements) is encoded in a
// byte stream and is bound to exactly one backing Array, matching the
// DasCodec contract of §4.3.
type Codec struct {
	aryValSz int // size of one array-side element
	bufValSz int // size of one buffer-side item; negative for variable width
	vtBuf    value.VT
	encType  BufEncoding
	semantic value.Semantic

	ary *array.Array

	sepSet       []byte // one separator byte per axis (0 means whitespace)
	itemLenMode  bool   // true: items are length-prefixed, ignore sepSet
	epochUnits   string
	outFormat    string
	maxString    int
	resLossWarned bool

	proc procFlags

	overflow []byte // scratch for variable-length items exceeding the common case
}

// Init validates that a buffer encoding of the given item width can be
// stored into ary's value type and, if so, builds a ready-to-use Codec.
// isReader selects read-path (decode) validation rules; the write path
// (encode) relaxes the integer-narrowing check into CAST_DOWN instead of an
// error, per the table in §4.3.
func Init(isReader bool, ary *array.Array, semantic value.Semantic, enc BufEncoding, itemBytes int, sepByte byte, epochUnits string, outFormat string) (*Codec, error) {
	c := &Codec{
		ary:        ary,
		encType:    enc,
		semantic:   semantic,
		aryValSz:   valSize(ary.ValType()),
		epochUnits: epochUnits,
		outFormat:  outFormat,
	}

	if isReader {
		c.proc |= flagReader
	}

	c.vtBuf = bufferVT(enc, itemBytes)
	c.bufValSz = itemBytes

	if sepByte != 0 || enc == UTF8 {
		c.sepSet = []byte{sepByte}
	}

	if itemBytes == ItemLengthPrefixed {
		c.itemLenMode = true
	}

	if itemBytes <= 0 {
		c.proc |= flagVarSz
	}

	if err := c.deriveFlags(isReader); err != nil {
		return nil, err
	}

	return c, nil
}

func valSize(vt value.VT) int {
	switch vt {
	case value.Text, value.ByteSeq, value.GeoVec:
		return 0
	default:
		return value.Size(vt)
	}
}

// bufferVT maps a wire encoding name + item width to the storage VT that
// represents it prior to any array-side promotion, used only to check
// compatibility; the array's own VT is what's actually written to.
func bufferVT(enc BufEncoding, itemBytes int) value.VT {
	switch enc {
	case Byte:
		return value.I8
	case UByte:
		return value.U8
	case BEint, LEint:
		return signedFor(itemBytes)
	case BEuint, LEuint:
		return unsignedFor(itemBytes)
	case BEreal, LEreal:
		if itemBytes == 4 {
			return value.F32
		}

		return value.F64
	case UTF8:
		return value.Text
	default:
		return value.Unknown
	}
}

func signedFor(n int) value.VT {
	switch {
	case n <= 1:
		return value.I8
	case n <= 2:
		return value.I16
	case n <= 4:
		return value.I32
	default:
		return value.I64
	}
}

func unsignedFor(n int) value.VT {
	switch {
	case n <= 1:
		return value.U8
	case n <= 2:
		return value.U16
	case n <= 4:
		return value.U32
	default:
		return value.U64
	}
}

// deriveFlags implements the compatibility table of §4.3.
func (c *Codec) deriveFlags(isReader bool) error {
	aryVT := c.ary.ValType()

	if c.encType == UTF8 {
		c.proc |= flagText

		if aryVT == value.U8 && c.ary.Usage()&array.AsString != 0 {
			c.proc |= flagNullTerm
			if c.proc&flagVarSz != 0 {
				c.proc |= flagWrap
			}

			return nil
		}

		if c.semantic == value.SemDatetime && dastime.HasCalendarRep(c.epochUnits) {
			c.proc |= flagParse
			return nil
		}

		if aryVT.IsInt() || aryVT.IsReal() {
			c.proc |= flagParse
			return nil
		}

		return errs.New(errs.Enc, "codec: utf8 buffer cannot target array value type %v", aryVT)
	}

	if c.encType == Byte || c.encType == UByte {
		return c.deriveIntFlags(isReader, aryVT)
	}

	if c.encType == BEint || c.encType == LEint || c.encType == BEuint || c.encType == LEuint {
		return c.deriveIntFlags(isReader, aryVT)
	}

	if c.encType == BEreal || c.encType == LEreal {
		return c.deriveRealFlags(isReader, aryVT)
	}

	return errs.New(errs.Enc, "codec: unknown buffer encoding %q", c.encType)
}

func (c *Codec) deriveIntFlags(isReader bool, aryVT value.VT) error {
	if aryVT.IsReal() {
		if c.bufValSz == value.Size(aryVT) {
			return errs.New(errs.Enc, "codec: integer buffer cannot target same-width real array (precision loss)")
		}
		if c.bufValSz < value.Size(aryVT) {
			c.maybeSwap()
			c.proc |= flagCastUp

			return nil
		}

		return errs.New(errs.Enc, "codec: integer buffer wider than real array target")
	}

	if !aryVT.IsInt() {
		return errs.New(errs.Enc, "codec: integer buffer cannot target array value type %v", aryVT)
	}

	switch {
	case c.bufValSz == value.Size(aryVT):
		c.maybeSwap()
	case c.bufValSz < value.Size(aryVT):
		c.maybeSwap()
		c.proc |= flagCastUp
	default:
		if isReader {
			return errs.New(errs.Enc, "codec: integer buffer (%d bytes) wider than array element (%d bytes) on read", c.bufValSz, value.Size(aryVT))
		}

		c.proc |= flagCastDown
	}

	return nil
}

func (c *Codec) deriveRealFlags(_ bool, aryVT value.VT) error {
	if !aryVT.IsReal() {
		return errs.New(errs.Enc, "codec: real buffer cannot target non-real array value type %v", aryVT)
	}

	if c.bufValSz == value.Size(aryVT) {
		c.maybeSwap()
		return nil
	}

	if c.bufValSz < value.Size(aryVT) {
		c.maybeSwap()
		c.proc |= flagCastUp

		return nil
	}

	return errs.New(errs.Enc, "codec: real buffer (%d bytes) wider than array real element (%d bytes)", c.bufValSz, value.Size(aryVT))
}

func (c *Codec) maybeSwap() {
	if isBigEndianEnc(c.encType) != !endian.IsNativeLittleEndian() {
		c.proc |= flagSwap
	}
}

func isBigEndianEnc(enc BufEncoding) bool {
	switch enc {
	case BEint, BEuint, BEreal:
		return true
	default:
		return false
	}
}

// IsValid reports whether Init completed successfully for this Codec.
func (c *Codec) IsValid() bool { return c.ary != nil }

// IsVarSize reports whether this codec's items have no fixed byte width
// (terminator- or length-prefixed), meaning a Dataset cannot compute its
// record byte length in advance and must stream-parse instead.
func (c *Codec) IsVarSize() bool { return c.proc&flagVarSz != 0 }

// BufItemSize returns the fixed byte width of one wire item, or a negative
// ItemTerminated/ItemLengthPrefixed sentinel for a variable-width codec.
func (c *Codec) BufItemSize() int { return c.bufValSz }

// Array returns the Codec's backing array.
func (c *Codec) Array() *array.Array { return c.ary }

// CloneTo duplicates c's wire-format configuration (encoding, item width,
// separators, flags) but re-points the clone at ary, re-deriving the
// cast/swap flags for ary's own value type. Used when a Dataset wants a
// reference codec's byte layout (e.g. a shared ytag array) bound to its own
// array instead.
func (c *Codec) CloneTo(ary *array.Array) (*Codec, error) {
	return Init(c.proc&flagReader != 0, ary, c.semantic, c.encType, c.bufValSz, c.sepByte(), c.epochUnits, c.outFormat)
}

func (c *Codec) sepByte() byte {
	if len(c.sepSet) == 0 {
		return 0
	}

	return c.sepSet[0]
}

func (c *Codec) String() string {
	return fmt.Sprintf("Codec{enc=%s buf=%d ary=%s proc=%016b}", c.encType, c.bufValSz, c.ary.ID(), c.proc)
}
