// Package spatialindex builds a diagnostic R-tree over a Stream's Frame
// table (§4.14, a domain expansion): frames are keyed on a
// (bodyName-hash, frameID) point so frames sharing a body cluster together,
// letting Stream.FramesNear group a large frame table for display without a
// linear scan. It never participates in decode/encode correctness.
package spatialindex

import (
	"hash/fnv"

	"github.com/dhconnelly/rtreego"
)

// Entry is one indexed frame: its id, the body it orbits/references, and a
// caller-supplied payload (typically *dimension.Frame, kept opaque here to
// avoid an import cycle with the dimension package).
type Entry struct {
	Body string
	ID   int
	Data any
}

// Bounds implements rtreego.Spatial: a degenerate (zero-area) rectangle at
// the entry's (bodyHash, id) point, sufficient for exact and near-body
// queries without needing any real geographic extent.
func (e Entry) Bounds() rtreego.Rect {
	p := rtreego.Point{bodyCoord(e.Body), float64(e.ID)}

	rect, _ := rtreego.NewRect(p, []float64{1e-9, 1e-9})

	return rect
}

func bodyCoord(body string) float64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(body))

	return float64(h.Sum32())
}

// FrameIndex is an R-tree over a Stream's frame table.
type FrameIndex struct {
	tree *rtreego.Rtree
}

// NewFrameIndex builds an index from entries.
func NewFrameIndex(entries []Entry) *FrameIndex {
	tree := rtreego.NewTree(2, 25, 50)
	for _, e := range entries {
		tree.Insert(e)
	}

	return &FrameIndex{tree: tree}
}

// Near returns every indexed entry sharing the same body name, by
// constructing a thin rectangle around that body's coordinate band and
// intersecting it (cheaper than a full NearestNeighbor search since body
// grouping, not metric distance, is what callers want).
func (fi *FrameIndex) Near(body string) []Entry {
	coord := bodyCoord(body)

	rect, err := rtreego.NewRect(rtreego.Point{coord - 0.5, -1e12}, []float64{1, 2e12})
	if err != nil {
		return nil
	}

	hits := fi.tree.SearchIntersect(rect)

	out := make([]Entry, 0, len(hits))
	for _, h := range hits {
		if e, ok := h.(Entry); ok && e.Body == body {
			out = append(out, e)
		}
	}

	return out
}
