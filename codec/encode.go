package codec

import (
	"math"
	"strings"

	"github.com/das-developers/das2go/errs"
	"github.com/das-developers/das2go/internal/dastime"
	"github.com/das-developers/das2go/value"
)

// Encode reads count elements starting at element start out of the Codec's
// array and appends their wire representation to out, returning the grown
// slice. It mirrors Decode's dispatch but runs in the opposite direction;
// the cast-down path (an integer buffer item wider than the array element)
// is legal on encode, where it widens the element, even though the same
// width pairing is an error on decode, where it would narrow.
func (c *Codec) Encode(out []byte, start, count int) ([]byte, error) {
	switch {
	case c.proc&flagText != 0:
		return c.encodeText(out, start, count)
	case c.proc&flagVarSz != 0:
		return out, errs.New(errs.NotImp, "codec: variable-width binary encode not implemented")
	default:
		return c.encodeFixedBinary(out, start, count)
	}
}

func (c *Codec) encodeFixedBinary(out []byte, start, count int) ([]byte, error) {
	for i := 0; i < count; i++ {
		src, err := c.ary.GetAt(start + i)
		if err != nil {
			return out, err
		}

		item := make([]byte, c.bufValSz)

		switch {
		case c.proc&flagSwap == 0 && c.proc&(flagCastUp|flagCastDown) == 0:
			copy(item, src)

		case c.proc&flagSwap != 0 && c.proc&(flagCastUp|flagCastDown) == 0:
			swapInto(item, src, c.bufValSz)

		case c.proc&(flagCastDown|flagCastUp) != 0:
			// Both flags denote a buffer/array width mismatch (derived in
			// deriveIntFlags/deriveRealFlags); on encode either one means
			// converting the array element to the buffer's type and width,
			// narrowing (CAST_UP: wire item smaller) or widening (CAST_DOWN:
			// wire item larger) as needed.
			narrowInto(item, src, c.ary.ValType(), c.vtBuf)
			if c.proc&flagSwap != 0 {
				reverseInPlace(item)
			}

		default:
			return out, errs.New(errs.NotImp, "codec: unsupported fixed-binary encode combination")
		}

		out = append(out, item...)
	}

	return out, nil
}

// narrowInto converts one array-side numeric element into the wire item's
// type and width: truncating when the wire item is narrower, sign- or
// zero-extending when it is wider.
func narrowInto(dst, src []byte, aryVT, bufVT value.VT) {
	if aryVT.IsReal() {
		f := floatFrom(src, aryVT)
		if bufVT.IsReal() {
			putReal(dst, bufVT, f)
			return
		}

		putInt(dst, bufVT, int64(f), uint64(int64(f)), true)

		return
	}

	signedVal, u, signed := intBits(src, aryVT)
	if bufVT.IsReal() {
		if signed {
			putReal(dst, bufVT, float64(signedVal))
		} else {
			putReal(dst, bufVT, float64(u))
		}

		return
	}

	putInt(dst, bufVT, signedVal, u, signed)
}

func floatFrom(src []byte, vt value.VT) float64 {
	if vt == value.F32 {
		return float64(math.Float32frombits(leUint32(src)))
	}

	return math.Float64frombits(leUint64(src))
}

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

func reverseInPlace(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}

// encodeText renders count elements as their text form, separated per the
// Codec's separator set (or a single space when none was configured), and
// wraps output lines at a fixed column width the way das2C's stream writer
// wraps packet payloads for human readability.
func (c *Codec) encodeText(out []byte, start, count int) ([]byte, error) {
	items := make([]string, 0, count)

	for i := 0; i < count; i++ {
		s, err := c.formatOne(start + i)
		if err != nil {
			return out, err
		}

		items = append(items, s)
	}

	return printItems(out, items, c.sepRune()), nil
}

func (c *Codec) sepRune() byte {
	if len(c.sepSet) > 0 && c.sepSet[0] != 0 {
		return c.sepSet[0]
	}

	return ' '
}

func (c *Codec) formatOne(idx int) (string, error) {
	b, err := c.ary.GetAt(idx)
	if err != nil {
		return "", err
	}

	aryVT := c.ary.ValType()

	if c.semantic == value.SemDatetime {
		switch aryVT {
		case value.I64:
			t := dastime.FromTT2000Nanos(int64(leUint64(b)))
			return t.Format("2006-01-02T15:04:05.000000000Z"), nil
		case value.F64:
			t := dastime.FromTT2000Seconds(math.Float64frombits(leUint64(b)))
			return t.Format("2006-01-02T15:04:05.000000000Z"), nil
		default:
			return "", errs.New(errs.Enc, "codec: encode text: unsupported datetime array type %v", aryVT)
		}
	}

	s, err := value.Format(nil, aryVT, b, c.outFormat)
	if err != nil {
		return "", errs.Wrap(errs.Enc, err, "codec: encode text")
	}

	return trimTrailingZeros(s, aryVT), nil
}

// trimTrailingZeros strips insignificant trailing zeros (and a dangling
// decimal point) from a default-formatted real number, matching das2C's
// habit of shrinking %g output further for compact packet payloads. Integer
// and non-numeric renderings pass through unchanged.
func trimTrailingZeros(s string, vt value.VT) string {
	if !vt.IsReal() || !strings.Contains(s, ".") {
		return s
	}

	if strings.ContainsAny(s, "eE") {
		return s
	}

	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")

	return s
}

// printItems joins items with sep and wraps at 100 columns the way das2C's
// DasCodec_encode text writer does, breaking only at item boundaries so no
// item is ever split across lines.
func printItems(out []byte, items []string, sep byte) []byte {
	const wrapCol = 100

	lineLen := 0

	for i, it := range items {
		addLen := len(it)
		if i > 0 {
			addLen++ // separator
		}

		if lineLen > 0 && lineLen+addLen > wrapCol {
			out = append(out, '\n')
			lineLen = 0
		} else if i > 0 {
			out = append(out, sep)
			lineLen++
		}

		out = append(out, it...)
		lineLen += len(it)
	}

	return out
}
