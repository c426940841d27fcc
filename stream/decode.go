package stream

import (
	"bufio"
	"errors"
	"io"
	"strconv"

	"github.com/das-developers/das2go/array"
	"github.com/das-developers/das2go/errs"
	"github.com/das-developers/das2go/internal/metrics"
	"github.com/das-developers/das2go/internal/payloadio"
	"github.com/das-developers/das2go/internal/pool"
	"github.com/das-developers/das2go/value"
	"github.com/das-developers/das2go/xmlstream"
)

// Decode reads framed tags from r until EOF, dispatching each to the
// stream header, a packet descriptor definition, or a data payload. It
// returns nil at a clean end of stream and the first decode error
// otherwise; callers that want to keep consuming a multi-stream file past
// a single truncated packet should catch the error and reopen framing at
// the next recognizable tag themselves.
func (s *Stream) Decode(r io.Reader) error {
	br := bufio.NewReader(r)

	for {
		tag, err := ReadTag(br)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		switch tag.Kind {
		case KindStreamHeader:
			if err := s.decodeHeader(br, tag); err != nil {
				return err
			}

		case KindPktDesc:
			if err := s.decodePktDesc(br, tag); err != nil {
				return err
			}

		case KindPktData, KindLegacyData:
			if err := s.decodeData(br, tag); err != nil {
				metrics.DecodeErrors.WithLabelValues(categoryOf(err)).Inc()
				s.log.Errorf("stream %q: packet %d decode: %v", s.id, tag.ID, err)

				return err
			}

		default:
			return errs.New(errs.Serial, "stream %q: unexpected legacy sub-tag as a top-level frame", s.id)
		}
	}
}

func (s *Stream) decodeHeader(br *bufio.Reader, tag Tag) error {
	bb := pool.GetStreamBuffer()
	defer pool.PutStreamBuffer(bb)

	bb.ExtendOrGrow(tag.Len)
	body := bb.Bytes()
	if _, err := io.ReadFull(br, body); err != nil {
		return errs.Wrap(errs.IO, err, "stream %q: reading header body", s.id)
	}

	hdr, err := xmlstream.ParseStreamHeader(body)
	if err != nil {
		return err
	}

	s.version = hdr.Version
	for _, p := range hdr.Props {
		s.SetProp(p.Name, value.SemString, "", 0, p.Raw)
	}

	for _, f := range hdr.Frames {
		if err := s.AddFrame(f); err != nil {
			return err
		}
	}

	metrics.BytesRead.Add(float64(len(body) + 10))
	s.log.Debugf("stream %q: header parsed, version %s, %d frame(s)", s.id, s.version, len(hdr.Frames))

	return nil
}

func (s *Stream) decodePktDesc(br *bufio.Reader, tag Tag) error {
	bb := pool.GetStreamBuffer()
	defer pool.PutStreamBuffer(bb)

	bb.ExtendOrGrow(tag.Len)
	body := bb.Bytes()
	if _, err := io.ReadFull(br, body); err != nil {
		return errs.Wrap(errs.IO, err, "stream %q: reading packet descriptor %d", s.id, tag.ID)
	}

	ds, err := xmlstream.ParseDataset(body)
	if err != nil {
		return err
	}

	if err := s.AddPktDesc(ds, tag.ID); err != nil {
		return err
	}

	metrics.BytesRead.Add(float64(len(body) + 10))
	s.log.Debugf("stream %q: packet descriptor %d registered", s.id, tag.ID)

	return nil
}

func (s *Stream) decodeData(br *bufio.Reader, tag Tag) error {
	p, ok := s.PktDescAt(tag.ID)
	if !ok {
		return errs.New(errs.Serial, "stream %q: data packet for unknown id %d", s.id, tag.ID)
	}

	codecs := p.DS.Codecs()
	n := p.DS.LengthIn()
	if n == array.RaggedLen {
		n = 1
	}

	itemsPerCodec := make([]int, len(codecs))
	for i := range itemsPerCodec {
		itemsPerCodec[i] = n
	}

	recBytes := p.DS.RecBytes(itemsPerCodec)
	if recBytes < 0 {
		return errs.New(errs.NotImp, "stream %q: packet %d has a variable record length, framing requires an explicit length this decoder does not compute", s.id, tag.ID)
	}

	bb := pool.GetPacketBuffer()
	defer pool.PutPacketBuffer(bb)

	bb.ExtendOrGrow(recBytes)
	raw := bb.Bytes()
	if _, err := io.ReadFull(br, raw); err != nil {
		return errs.Wrap(errs.IO, err, "stream %q: reading packet %d payload", s.id, tag.ID)
	}

	pc, err := payloadio.ForType(s.compression)
	if err != nil {
		return err
	}

	decoded, err := pc.Decompress(raw)
	if err != nil {
		return errs.Wrap(errs.IO, err, "stream %q: decompressing packet %d", s.id, tag.ID)
	}

	if err := p.DS.DecodePayload(decoded, itemsPerCodec); err != nil {
		return err
	}

	metrics.PacketsDecoded.WithLabelValues(strconv.Itoa(tag.ID)).Inc()
	metrics.BytesRead.Add(float64(len(raw) + 4))
	s.log.Debugf("stream %q: packet %d decoded, %d bytes", s.id, tag.ID, len(raw))

	return nil
}

func categoryOf(err error) string {
	if cat, ok := errs.CategoryOf(err); ok {
		return cat.String()
	}

	return "Unknown"
}
