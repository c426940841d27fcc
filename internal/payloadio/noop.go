package payloadio

// NoOpCodec passes payload bytes through unchanged, for packets that opt
// out of compression (the common case for already-compact binary payloads).
type NoOpCodec struct{}

func (NoOpCodec) Compress(data []byte) ([]byte, error) { return data, nil }

func (NoOpCodec) Decompress(data []byte) ([]byte, error) { return data, nil }
