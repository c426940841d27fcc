package codec

import (
	"bytes"
	"math"

	"github.com/das-developers/das2go/errs"
	"github.com/das-developers/das2go/internal/dastime"
	"github.com/das-developers/das2go/internal/dlog"
	"github.com/das-developers/das2go/value"
)

// Decode consumes up to expectCount items from buf and appends the decoded
// elements to the Codec's array, returning the number of bytes left unread
// in buf. A negative return is never produced; errors are returned via the
// error result instead (matching the "-err" convention of §4.3 expressed
// as a separate return rather than folded into an int, which is more
// idiomatic Go).
func (c *Codec) Decode(buf []byte, expectCount int) (unread int, err error) {
	switch {
	case c.proc&flagText != 0:
		return c.decodeText(buf, expectCount)
	case c.proc&flagVarSz != 0:
		return 0, errs.New(errs.NotImp, "codec: variable-width binary items not implemented")
	default:
		return c.decodeFixedBinary(buf, expectCount)
	}
}

// decodeFixedBinary handles the four fixed-width binary strategies:
// exact-fit memcpy, swap-only, cast-up-only, and swap+cast-up combined.
func (c *Codec) decodeFixedBinary(buf []byte, expectCount int) (int, error) {
	need := c.bufValSz * expectCount
	if len(buf) < need {
		return 0, errs.New(errs.Enc, "codec: decode: need %d bytes, have %d", need, len(buf))
	}

	out, err := c.ary.Append(nil, expectCount)
	if err != nil {
		return 0, err
	}

	src := buf[:need]

	switch {
	case c.proc&flagSwap == 0 && c.proc&(flagCastUp|flagCastDown) == 0:
		copy(out, src)

	case c.proc&flagSwap != 0 && c.proc&flagCastUp == 0:
		swapInto(out, src, c.bufValSz)

	case c.proc&flagCastUp != 0 && c.proc&flagSwap == 0:
		castUpInto(out, src, c.bufValSz, c.aryValSz, c.vtBuf, c.ary.ValType())

	case c.proc&flagCastUp != 0 && c.proc&flagSwap != 0:
		castUpSwapInto(out, src, c.bufValSz, c.aryValSz, c.vtBuf, c.ary.ValType())

	default:
		return 0, errs.New(errs.NotImp, "codec: unsupported fixed-binary combination")
	}

	return len(buf) - need, nil
}

// swapInto reverses each itemWidth-byte element of src into out. itemWidth
// is handled generically rather than unrolled per 2/4/8-byte case: Go's
// compiler inlines this loop well enough that the original's hand-unrolled
// C variants buy nothing here, and a single implementation avoids the
// missing-break bug class the original had to patch in codec.c (see
// SPEC_FULL §9).
func swapInto(out, src []byte, itemWidth int) {
	for i := 0; i+itemWidth <= len(src); i += itemWidth {
		for j := 0; j < itemWidth; j++ {
			out[i+j] = src[i+itemWidth-1-j]
		}
	}
}

// castUpInto widens each narrower buffer item into the array's wider
// numeric element type.
func castUpInto(out, src []byte, bufWidth, aryWidth int, bufVT, aryVT value.VT) {
	n := len(src) / bufWidth
	for i := 0; i < n; i++ {
		item := src[i*bufWidth : (i+1)*bufWidth]
		writeWidened(out[i*aryWidth:(i+1)*aryWidth], item, bufVT, aryVT)
	}
}

func castUpSwapInto(out, src []byte, bufWidth, aryWidth int, bufVT, aryVT value.VT) {
	tmp := make([]byte, bufWidth)
	n := len(src) / bufWidth
	for i := 0; i < n; i++ {
		item := src[i*bufWidth : (i+1)*bufWidth]
		for j := 0; j < bufWidth; j++ {
			tmp[j] = item[bufWidth-1-j]
		}

		writeWidened(out[i*aryWidth:(i+1)*aryWidth], tmp, bufVT, aryVT)
	}
}

// writeWidened sign/zero-extends or promotes one buffer item (already in
// host byte order) into one array-side element.
func writeWidened(dst, src []byte, bufVT, aryVT value.VT) {
	if aryVT.IsReal() {
		f := intBitsToFloat(src, bufVT)
		putReal(dst, aryVT, f)

		return
	}

	signedVal, u, signed := intBits(src, bufVT)
	putInt(dst, aryVT, signedVal, u, signed)
}

func intBitsToFloat(src []byte, vt value.VT) float64 {
	signedVal, u, signed := intBits(src, vt)
	if signed {
		return float64(signedVal)
	}

	return float64(u)
}

// intBits reads a little-endian integer of vt's width from src (already in
// host byte order) and returns both a sign-extended int64 view and the raw
// unsigned view, so callers can widen into either a signed or unsigned
// destination correctly.
func intBits(src []byte, vt value.VT) (signedVal int64, u uint64, signed bool) {
	var raw uint64
	for i := len(src) - 1; i >= 0; i-- {
		raw = raw<<8 | uint64(src[i])
	}

	switch vt {
	case value.I8:
		return int64(int8(raw)), raw, true
	case value.I16:
		return int64(int16(raw)), raw, true
	case value.I32:
		return int64(int32(raw)), raw, true
	case value.I64:
		return int64(raw), raw, true
	default:
		return int64(raw), raw, false
	}
}

func putReal(dst []byte, vt value.VT, f float64) {
	if vt == value.F32 {
		bits := math.Float32bits(float32(f))
		dst[0] = byte(bits)
		dst[1] = byte(bits >> 8)
		dst[2] = byte(bits >> 16)
		dst[3] = byte(bits >> 24)

		return
	}

	bits := math.Float64bits(f)
	for i := 0; i < 8; i++ {
		dst[i] = byte(bits >> (8 * i))
	}
}

// putInt widens a source integer (given as both its sign-extended int64
// form and raw unsigned form) into dst, a vt-typed destination element.
func putInt(dst []byte, vt value.VT, signedVal int64, u uint64, signed bool) {
	v := u
	if signed {
		v = uint64(signedVal)
	}

	for i := 0; i < value.Size(vt); i++ {
		dst[i] = byte(v >> (8 * i))
	}
}

// decodeText dispatches the three text strategies: fixed-width without
// parse (raw copy), fixed-width with parse, and variable-width (separator
// or whitespace scanning).
func (c *Codec) decodeText(buf []byte, expectCount int) (int, error) {
	if c.proc&flagVarSz == 0 && c.proc&flagParse == 0 {
		return c.decodeTextFixedRaw(buf, expectCount)
	}

	if c.proc&flagVarSz == 0 {
		return c.decodeTextFixedParsed(buf, expectCount)
	}

	return c.decodeTextVariable(buf, expectCount)
}

func (c *Codec) decodeTextFixedRaw(buf []byte, expectCount int) (int, error) {
	need := c.bufValSz * expectCount
	if len(buf) < need {
		return 0, errs.New(errs.Enc, "codec: decode text: need %d bytes, have %d", need, len(buf))
	}

	for i := 0; i < expectCount; i++ {
		item := trimTrailingNulAndSpace(buf[i*c.bufValSz : (i+1)*c.bufValSz])

		payload := item
		if c.proc&flagNullTerm != 0 {
			payload = append(append([]byte{}, item...), 0)
		}

		if _, err := c.ary.Append(payload, len(payload)); err != nil {
			return 0, err
		}

		if c.proc&flagWrap != 0 {
			c.ary.MarkEnd(c.ary.Rank() - 1)
		}
	}

	return len(buf) - need, nil
}

func (c *Codec) decodeTextFixedParsed(buf []byte, expectCount int) (int, error) {
	need := c.bufValSz * expectCount
	if len(buf) < need {
		return 0, errs.New(errs.Enc, "codec: decode text: need %d bytes, have %d", need, len(buf))
	}

	for i := 0; i < expectCount; i++ {
		item := string(trimTrailingNulAndSpace(buf[i*c.bufValSz : (i+1)*c.bufValSz]))
		if err := c.parseAndAppend(item); err != nil {
			return 0, err
		}
	}

	return len(buf) - need, nil
}

// decodeTextVariable scans for the configured separator (or whitespace when
// the separator byte is 0), taking each item as a sub-slice of buf (no
// separate overflow buffer is used), then either parses the scanned text
// into the array's numeric type or copies it verbatim (+MarkEnd) when the
// array stores strings.
func (c *Codec) decodeTextVariable(buf []byte, expectCount int) (int, error) {
	rest := buf
	for i := 0; i < expectCount; i++ {
		item, consumed, ok := c.scanItem(rest)
		if !ok {
			return len(rest), errs.New(errs.Enc, "codec: decode text: ran out of items at %d/%d", i, expectCount)
		}

		rest = rest[consumed:]

		if c.proc&flagParse != 0 {
			if err := c.parseAndAppend(string(item)); err != nil {
				return len(rest), err
			}

			continue
		}

		payload := item
		if c.proc&flagNullTerm != 0 {
			payload = append(append([]byte{}, item...), 0)
		}

		if _, err := c.ary.Append(payload, len(payload)); err != nil {
			return len(rest), err
		}

		if c.proc&flagWrap != 0 {
			c.ary.MarkEnd(c.ary.Rank() - 1)
		}
	}

	return len(rest), nil
}

// scanItem splits off the next item from buf. With an explicit separator
// byte the item ends there and the separator is consumed; with sep==0 any
// run of ASCII whitespace terminates the item (and is itself consumed, so
// repeated whitespace does not yield empty items).
func (c *Codec) scanItem(buf []byte) (item []byte, consumed int, ok bool) {
	if len(buf) == 0 {
		return nil, 0, false
	}

	sep := byte(0)
	if len(c.sepSet) > 0 {
		sep = c.sepSet[0]
	}

	if sep != 0 {
		idx := bytes.IndexByte(buf, sep)
		if idx < 0 {
			return buf, len(buf), true
		}

		return buf[:idx], idx + 1, true
	}

	start := 0
	for start < len(buf) && isSpace(buf[start]) {
		start++
	}

	end := start
	for end < len(buf) && !isSpace(buf[end]) {
		end++
	}

	consumedEnd := end
	for consumedEnd < len(buf) && isSpace(buf[consumedEnd]) {
		consumedEnd++
	}

	if end == start {
		return nil, len(buf), false
	}

	return buf[start:end], consumedEnd, true
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func trimTrailingNulAndSpace(b []byte) []byte {
	end := len(b)
	for end > 0 && (b[end-1] == 0 || isSpace(b[end-1])) {
		end--
	}

	return b[:end]
}

// parseAndAppend parses text per the array's semantic, handling the
// datetime epoch re-projection (and one-shot resolution-loss warning) of
// §4.3's TEXT-with-parse case.
func (c *Codec) parseAndAppend(text string) error {
	aryVT := c.ary.ValType()

	if c.semantic == value.SemDatetime {
		t, err := dastime.ParseTime(text)
		if err != nil {
			return errs.Wrap(errs.Value, err, "codec: parse datetime %q", text)
		}

		if aryVT == value.I64 {
			ns := dastime.ToTT2000Nanos(t)
			out, err := c.ary.Append(nil, 1)
			if err != nil {
				return err
			}
			putIntLE(out, uint64(ns), 8)

			return nil
		}

		// array is F64 but epoch units are integral (e.g. TT2000): warn
		// exactly once that integer-nanosecond resolution is lost.
		if !c.resLossWarned && dastime.IsIntegralEpoch(c.epochUnits) {
			c.resLossWarned = true
			dlog.Default.Warnf("codec: array %q decodes %s timestamps into float64, nanosecond resolution is lost", c.ary.ID(), c.epochUnits)
		}

		secs := dastime.ToTT2000Seconds(t)
		out, err := c.ary.Append(nil, 1)
		if err != nil {
			return err
		}
		putFloat64LE(out, secs)

		return nil
	}

	out, err := value.Parse(nil, aryVT, text)
	if err != nil {
		return errs.Wrap(errs.Value, err, "codec: parse %q as %v", text, aryVT)
	}

	dst, err := c.ary.Append(nil, 1)
	if err != nil {
		return err
	}
	copy(dst, out)

	return nil
}

func putIntLE(dst []byte, v uint64, width int) {
	for i := 0; i < width; i++ {
		dst[i] = byte(v >> (8 * i))
	}
}

func putFloat64LE(dst []byte, f float64) {
	bits := math.Float64bits(f)
	for i := 0; i < 8; i++ {
		dst[i] = byte(bits >> (8 * i))
	}
}

// ResolutionLossWarned reports whether the one-shot datetime
// resolution-loss warning has already fired for this Codec.
func (c *Codec) ResolutionLossWarned() bool { return c.resLossWarned }
