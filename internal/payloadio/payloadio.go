// Package payloadio implements optional stream-level compression of a das3
// data packet's payload bytes (§4.12, a domain extension beyond the legacy
// wire format): a small Codec interface and a one-byte Type selecting
// among None/Zstd/S2/LZ4. The Type is a per-Stream setting and applies to
// every data packet of that stream without changing any Dataset/codec
// layout.
package payloadio

import "github.com/das-developers/das2go/errs"

// Type is the one-byte compression type a Stream is configured with (see
// stream.WithCompression). It is not written to the wire; the packet
// framing carries neither this type nor a payload length.
type Type uint8

const (
	None Type = iota + 1
	Zstd
	S2
	LZ4
)

func (t Type) String() string {
	switch t {
	case None:
		return "None"
	case Zstd:
		return "Zstd"
	case S2:
		return "S2"
	case LZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}

// Codec compresses and decompresses a packet payload in one shot (payloads
// are at most a few tens of KB, so streaming isn't needed).
type Codec interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

// ForType returns the Codec registered for t.
func ForType(t Type) (Codec, error) {
	switch t {
	case None:
		return NoOpCodec{}, nil
	case Zstd:
		return ZstdCodec{}, nil
	case S2:
		return S2Codec{}, nil
	case LZ4:
		return LZ4Codec{}, nil
	default:
		return nil, errs.New(errs.IO, "payloadio: unknown compression type %d", t)
	}
}
