// Package stream implements Stream (§4.8): the top-level container that
// owns a Stream's packet-id table, its Frame table, and the framing layer
// multiplexing header and data bytes on the wire.
package stream

import (
	"sync"

	"github.com/das-developers/das2go/codec"
	"github.com/das-developers/das2go/dataset"
	"github.com/das-developers/das2go/descriptor"
	"github.com/das-developers/das2go/dimension"
	"github.com/das-developers/das2go/errs"
	"github.com/das-developers/das2go/internal/dlog"
	"github.com/das-developers/das2go/internal/hash"
	"github.com/das-developers/das2go/internal/options"
	"github.com/das-developers/das2go/internal/payloadio"
	"github.com/das-developers/das2go/internal/spatialindex"
	"github.com/das-developers/das2go/value"
	"github.com/das-developers/das2go/variable"
)

// legacySlots is the fixed-size packet-id table das2 streams are limited
// to; das3 streams grow the table into overflow on demand.
const legacySlots = 100

// PktDesc binds a packet id to its Dataset. Owned reports whether the
// Stream released the Dataset on FreeSubDesc (addPktDesc) or merely
// tracks it for lookups without managing its lifetime (shadowPktDesc).
type PktDesc struct {
	ID    int
	DS    *dataset.Dataset
	Owned bool
}

// Option configures a Stream at construction time.
type Option = options.Option[*Stream]

// WithVersion sets the stream format version ("2.2" or "3.0"); default "3.0".
func WithVersion(v string) Option {
	return options.NoError(func(s *Stream) { s.version = v })
}

// WithCompression sets the payload compression applied to data packets.
func WithCompression(t payloadio.Type) Option {
	return options.NoError(func(s *Stream) { s.compression = t })
}

// WithLogger overrides the Stream's logger; default dlog.Default.
func WithLogger(l *dlog.Logger) Option {
	return options.NoError(func(s *Stream) { s.log = l })
}

// Stream is the root das container: a table of up to legacySlots
// (or more, for das3) packet descriptors, a Frame table, and the
// stream-level property bag inherited by every Dataset it owns.
type Stream struct {
	descriptor.Descriptor

	id      string
	version string

	mu       sync.RWMutex
	slots    [legacySlots]*PktDesc
	overflow map[int]*PktDesc

	frames   *dimension.Table
	frameIdx *spatialindex.FrameIndex

	// groupIdx maps xxHash64(group name) to the owning packet id, so a
	// das3 packet group (the `group` property shared by related packet
	// descriptors, e.g. several yscans of one instrument) is looked up by
	// a 64-bit key; each lookup hashes the group name once to get it.
	groupIdx map[uint64]int

	compression payloadio.Type
	log         *dlog.Logger
}

// New returns an empty Stream tagged id, das3 by default.
func New(id string, opts ...Option) *Stream {
	s := &Stream{
		id:          id,
		version:     "3.0",
		overflow:    make(map[int]*PktDesc),
		frames:      dimension.NewTable(),
		groupIdx:    make(map[uint64]int),
		compression: payloadio.None,
		log:         dlog.Default,
	}

	_ = options.Apply(s, opts...)

	return s
}

func (s *Stream) ID() string      { return s.id }
func (s *Stream) Version() string { return s.version }

func (s *Stream) slot(id int) (*PktDesc, bool) {
	if id >= 0 && id < legacySlots {
		p := s.slots[id]
		return p, p != nil
	}

	p, ok := s.overflow[id]
	return p, ok
}

func (s *Stream) setSlot(id int, p *PktDesc) {
	if id >= 0 && id < legacySlots {
		s.slots[id] = p
		return
	}

	s.overflow[id] = p
}

// AddPktDesc registers ds under id, taking ownership: a later
// FreeSubDesc(id) releases it. Fails if id is already occupied by an
// owned descriptor.
func (s *Stream) AddPktDesc(ds *dataset.Dataset, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id < 0 {
		return errs.New(errs.Serial, "stream %q: packet id %d is negative", s.id, id)
	}

	if existing, ok := s.slot(id); ok && existing.Owned {
		return errs.New(errs.Serial, "stream %q: packet id %d already owned", s.id, id)
	}

	s.setSlot(id, &PktDesc{ID: id, DS: ds, Owned: true})

	if group, ok := ds.GetStr("group"); ok && group != "" {
		s.groupIdx[hash.ID(group)] = id
	}

	return nil
}

// PktDescByGroup looks up the packet descriptor whose Dataset declared a
// `group` property equal to name, via the hashed group index rather than
// a linear scan of every registered descriptor.
func (s *Stream) PktDescByGroup(name string) (*PktDesc, bool) {
	s.mu.RLock()
	id, ok := s.groupIdx[hash.ID(name)]
	s.mu.RUnlock()

	if !ok {
		return nil, false
	}

	return s.PktDescAt(id)
}

// ShadowPktDesc registers ds under id for lookup without taking
// ownership: FreeSubDesc on a shadow entry only drops the Stream's
// reference, it never implies the descriptor was otherwise unused.
func (s *Stream) ShadowPktDesc(ds *dataset.Dataset, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id < 0 {
		return errs.New(errs.Serial, "stream %q: packet id %d is negative", s.id, id)
	}

	if existing, ok := s.slot(id); ok && existing.Owned {
		return errs.New(errs.Serial, "stream %q: packet id %d already owned, cannot shadow", s.id, id)
	}

	s.setSlot(id, &PktDesc{ID: id, DS: ds, Owned: false})

	return nil
}

// FreeSubDesc releases the slot at id, regardless of ownership.
func (s *Stream) FreeSubDesc(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.slot(id); !ok {
		return errs.New(errs.Serial, "stream %q: no packet descriptor at id %d", s.id, id)
	}

	s.setSlot(id, nil)

	return nil
}

// PktDescAt returns the descriptor registered at id, if any.
func (s *Stream) PktDescAt(id int) (*PktDesc, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.slot(id)
}

// NextPktDesc iterates registered packet descriptors in id order,
// advancing *cursor past the id it returns. Call with *cursor == -1 to
// start from the beginning; returns ok == false once exhausted.
func (s *Stream) NextPktDesc(cursor *int) (*PktDesc, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for id := *cursor + 1; id < legacySlots; id++ {
		if p := s.slots[id]; p != nil {
			*cursor = id
			return p, true
		}
	}

	best := -1
	for id := range s.overflow {
		if id > *cursor && (best == -1 || id < best) {
			best = id
		}
	}

	if best == -1 {
		return nil, false
	}

	*cursor = best

	return s.overflow[best], true
}

// CreatePktDesc allocates the smallest free packet id and builds a
// minimal rank-1 Dataset with a single "time" coordinate Dimension whose
// point variable is an affine Sequence, ready for the caller to extend
// with data dimensions before registering data. This is the path a
// legacy decoder uses for :bx:/:by:/:b0: framed packets that never carry
// an explicit x-plane descriptor of their own.
func (s *Stream) CreatePktDesc(xEncoding codec.BufEncoding, xUnits string) (*dataset.Dataset, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := -1
	for i := 1; i < legacySlots; i++ {
		if s.slots[i] == nil {
			id = i
			break
		}
	}

	if id == -1 {
		for i := legacySlots; ; i++ {
			if _, ok := s.overflow[i]; !ok {
				id = i
				break
			}
		}
	}

	vt := vtForEncoding(xEncoding)

	seq, err := variable.NewSequence(vt, 0, 1, xUnits, 1, 0)
	if err != nil {
		return nil, 0, errs.Wrap(errs.Serial, err, "stream %q: createPktDesc", s.id)
	}

	d := dimension.New("time", dimension.Coord)
	if err := d.AddVar("center", seq); err != nil {
		return nil, 0, errs.Wrap(errs.Serial, err, "stream %q: createPktDesc", s.id)
	}

	ds := dataset.New("", 1)
	ds.AddDim(d)

	s.setSlot(id, &PktDesc{ID: id, DS: ds, Owned: true})

	return ds, id, nil
}

// vtForEncoding maps a legacy DasEncoding to the array element type a
// freshly synthesized coordinate Sequence should carry.
func vtForEncoding(enc codec.BufEncoding) value.VT {
	switch enc {
	case codec.UTF8:
		return value.Time
	case codec.BEint, codec.LEint, codec.BEuint, codec.LEuint, codec.Byte, codec.UByte:
		return value.I64
	default:
		return value.F64
	}
}

// AddFrame registers f in the stream's frame table, invalidating any
// cached nearest-frame index.
func (s *Stream) AddFrame(f *dimension.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.frames.Add(f); err != nil {
		return err
	}

	s.frameIdx = nil

	return nil
}

// Frame looks up a registered frame by name.
func (s *Stream) Frame(name string) (*dimension.Frame, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.frames.ByName(name)
}

// Frames returns every registered frame.
func (s *Stream) Frames() []*dimension.Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.frames.All()
}

// FramesNear returns every registered frame sharing body, using the
// diagnostic spatial index (built lazily, rebuilt after AddFrame) rather
// than a linear scan over a potentially large frame table.
func (s *Stream) FramesNear(body string) []*dimension.Frame {
	s.mu.Lock()
	if s.frameIdx == nil {
		frames := s.frames.All()
		entries := make([]spatialindex.Entry, len(frames))
		for i, f := range frames {
			entries[i] = spatialindex.Entry{Body: f.Body, ID: f.ID, Data: f}
		}
		s.frameIdx = spatialindex.NewFrameIndex(entries)
	}
	idx := s.frameIdx
	s.mu.Unlock()

	hits := idx.Near(body)

	out := make([]*dimension.Frame, 0, len(hits))
	for _, h := range hits {
		if f, ok := h.Data.(*dimension.Frame); ok {
			out = append(out, f)
		}
	}

	return out
}
