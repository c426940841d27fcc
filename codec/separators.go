package codec

// FloatSep holds the 32-bit ragged-row separator patterns for binary
// float32 payloads, one per possible axis (0..7), carried over verbatim
// from das2C's DAS_FLOAT_SEP table. Each pattern decodes to a NaN under
// either byte order but is distinguishable from an ordinary quiet NaN, so
// it can mark end-of-row in a ragged binary-real stream without being
// mistaken for real data.
var FloatSep = [8][4]byte{
	{0x7F, 0x80, 0x80, 0x7F},
	{0x7F, 0x81, 0x81, 0x7F},
	{0x7F, 0x82, 0x82, 0x7F},
	{0x7F, 0x83, 0x83, 0x7F},
	{0x7F, 0x84, 0x84, 0x7F},
	{0x7F, 0x85, 0x85, 0x7F},
	{0x7F, 0x86, 0x86, 0x7F},
	{0x7F, 0x87, 0x87, 0x7F},
}

// DoubleSep holds the 64-bit analogue of FloatSep for binary float64
// payloads.
var DoubleSep = [8][8]byte{
	{0x7F, 0xF0, 0x80, 0x80, 0x80, 0x80, 0xF0, 0x7F},
	{0x7F, 0xF0, 0x81, 0x81, 0x81, 0x81, 0xF0, 0x7F},
	{0x7F, 0xF0, 0x82, 0x82, 0x82, 0x82, 0xF0, 0x7F},
	{0x7F, 0xF0, 0x83, 0x83, 0x83, 0x83, 0xF0, 0x7F},
	{0x7F, 0xF0, 0x84, 0x84, 0x84, 0x84, 0xF0, 0x7F},
	{0x7F, 0xF0, 0x85, 0x85, 0x85, 0x85, 0xF0, 0x7F},
	{0x7F, 0xF0, 0x86, 0x86, 0x86, 0x86, 0xF0, 0x7F},
	{0x7F, 0xF0, 0x87, 0x87, 0x87, 0x87, 0xF0, 0x7F},
}

// IsFloatSep reports whether b is the 4-byte ragged separator for axis.
func IsFloatSep(b []byte, axis int) bool {
	if len(b) != 4 || axis < 0 || axis >= len(FloatSep) {
		return false
	}

	pat := FloatSep[axis]

	return b[0] == pat[0] && b[1] == pat[1] && b[2] == pat[2] && b[3] == pat[3]
}

// IsDoubleSep reports whether b is the 8-byte ragged separator for axis.
func IsDoubleSep(b []byte, axis int) bool {
	if len(b) != 8 || axis < 0 || axis >= len(DoubleSep) {
		return false
	}

	pat := DoubleSep[axis]
	for i, v := range pat {
		if b[i] != v {
			return false
		}
	}

	return true
}
