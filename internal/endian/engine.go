// Package endian detects the host's native byte order.
//
// codec uses this to decide, once per Codec, whether a wire encoding's
// declared byte order (big- or little-endian, carried in the packet
// header) matches the machine decoding it; a mismatch flips the
// byte-swap flag on every subsequent decode of that array.
package endian

import (
	"encoding/binary"
	"unsafe"
)

// CheckEndianness uses a fixed integer value to determine the host's byte order.
func CheckEndianness() binary.ByteOrder {
	// 0x0100 is 256. For a little-endian system, the LSB (0x00) is first.
	// For a big-endian system, the MSB (0x01) is first.
	var i uint16 = 0x0100

	// Create a byte slice pointing to the memory address of 'i'.
	// We only need the first byte.
	b := (*[2]byte)(unsafe.Pointer(&i))

	// Check the first byte at the lowest memory address
	if b[0] == 0x01 {
		return binary.BigEndian
	}

	return binary.LittleEndian
}

// IsNativeLittleEndian reports whether the host is little-endian.
func IsNativeLittleEndian() bool {
	return CheckEndianness() == binary.LittleEndian
}
