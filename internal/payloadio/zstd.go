package payloadio

// ZstdCodec gives the best compression ratio of the four, at the cost of
// compression speed; picked for archival/re-transmission paths rather than
// the live packet-by-packet decode loop.
type ZstdCodec struct{}
