package payloadio

import "github.com/klauspost/compress/s2"

// S2Codec trades some of Zstd's ratio for much faster compression, useful
// for a live stream reader that can't afford Zstd's latency per packet.
type S2Codec struct{}

func (S2Codec) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return s2.Encode(nil, data), nil
}

func (S2Codec) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return s2.Decode(nil, data)
}
