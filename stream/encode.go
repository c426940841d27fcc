package stream

import (
	"fmt"
	"io"
	"strings"

	"github.com/das-developers/das2go/errs"
	"github.com/das-developers/das2go/internal/payloadio"
)

// EncodeHeader renders the stream's root envelope: the <stream> tag with
// its type/version attributes, stream-level properties, and every
// registered frame definition. Packet descriptor bodies are framed and
// written separately by WritePktDesc, one wire tag per packet id.
func (s *Stream) EncodeHeader() string {
	var b strings.Builder

	fmt.Fprintf(&b, "<stream type=\"das\" version=%q>\n", s.version)

	for _, name := range s.Names() {
		raw, _ := s.GetStr(name)
		fmt.Fprintf(&b, "  <p name=%q>%s</p>\n", name, escapeXML(raw))
	}

	for _, f := range s.Frames() {
		fmt.Fprintf(&b, "  <frame name=%q body=%q type=%q inertial=\"%t\">\n", f.Name, f.Body, f.Type, f.Inertial)
		for _, d := range f.Directions() {
			fmt.Fprintf(&b, "    <dir>%s</dir>\n", escapeXML(d))
		}
		b.WriteString("  </frame>\n")
	}

	b.WriteString("</stream>\n")

	return b.String()
}

func escapeXML(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", "\"", "&quot;")
	return r.Replace(s)
}

// WriteHeader frames and writes the stream envelope.
func (s *Stream) WriteHeader(w io.Writer) error {
	body := []byte(s.EncodeHeader())

	if err := WriteTag(w, Tag{Kind: KindStreamHeader, Len: len(body)}); err != nil {
		return err
	}

	if _, err := w.Write(body); err != nil {
		return errs.Wrap(errs.IO, err, "stream %q: writing header body", s.id)
	}

	return nil
}

// WritePktDesc frames and writes the packet descriptor registered at id.
func (s *Stream) WritePktDesc(w io.Writer, id int) error {
	p, ok := s.PktDescAt(id)
	if !ok {
		return errs.New(errs.Serial, "stream %q: no packet descriptor at id %d", s.id, id)
	}

	body := []byte(p.DS.EncodeHeader())

	if err := WriteTag(w, Tag{Kind: KindPktDesc, ID: id, Len: len(body)}); err != nil {
		return err
	}

	if _, err := w.Write(body); err != nil {
		return errs.Wrap(errs.IO, err, "stream %q: writing packet descriptor %d", s.id, id)
	}

	return nil
}

// WriteData frames, optionally compresses, and writes one data packet's
// raw payload bytes for the descriptor at id. The das3 "|dNN|" tag is
// used for version "3.0" streams; das2 ":NN:" otherwise.
func (s *Stream) WriteData(w io.Writer, id int, raw []byte) error {
	codec, err := payloadio.ForType(s.compression)
	if err != nil {
		return errs.Wrap(errs.IO, err, "stream %q: packet %d compression", s.id, id)
	}

	payload, err := codec.Compress(raw)
	if err != nil {
		return errs.Wrap(errs.IO, err, "stream %q: packet %d compress", s.id, id)
	}

	kind := KindLegacyData
	if s.version == "3.0" {
		kind = KindPktData
	}

	if err := WriteTag(w, Tag{Kind: kind, ID: id}); err != nil {
		return err
	}

	if _, err := w.Write(payload); err != nil {
		return errs.Wrap(errs.IO, err, "stream %q: writing packet %d payload", s.id, id)
	}

	return nil
}
