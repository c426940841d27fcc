package stream

import (
	"runtime"
	"strconv"

	"github.com/alitto/pond"

	"github.com/das-developers/das2go/array"
	"github.com/das-developers/das2go/dataset"
	"github.com/das-developers/das2go/dimension"
	"github.com/das-developers/das2go/errs"
	"github.com/das-developers/das2go/internal/metrics"
	"github.com/das-developers/das2go/internal/payloadio"
	"github.com/das-developers/das2go/variable"
)

// BatchItem is one already-framed, already-buffered packet payload ready
// for bulk decode (e.g. every record of a cache file read up front).
type BatchItem struct {
	ID  int
	Raw []byte
}

// BatchResult is one BatchItem's outcome: the private Dataset its payload
// was decoded into, or the error that stopped it.
type BatchResult struct {
	ID  int
	DS  *dataset.Dataset
	Err error
}

// BatchDecode decodes items concurrently across workers goroutines (0 uses
// runtime.NumCPU), each against its own private clone of the item's packet
// descriptor so no two workers ever append to the same DynArray. Results
// are returned in items' original order — re-sequenced after the pool
// drains, before this function returns control to the caller — so a
// caller iterating the result slice sees exactly the delivery order §5
// requires of a single-threaded decode, even though the work itself ran
// in parallel.
func (s *Stream) BatchDecode(items []BatchItem, workers int) ([]BatchResult, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	pool := pond.New(workers, 0, pond.MinWorkers(workers))
	results := make([]BatchResult, len(items))

	for i, it := range items {
		i, it := i, it
		pool.Submit(func() {
			results[i] = s.decodeBatchItem(it)
		})
	}

	pool.StopAndWait()

	for _, r := range results {
		if r.Err != nil {
			metrics.DecodeErrors.WithLabelValues(categoryOf(r.Err)).Inc()
			return results, r.Err
		}
	}

	s.log.Debugf("stream %q: batch decoded %d packet(s) across %d worker(s)", s.id, len(items), workers)

	return results, nil
}

func (s *Stream) decodeBatchItem(it BatchItem) BatchResult {
	p, ok := s.PktDescAt(it.ID)
	if !ok {
		return BatchResult{ID: it.ID, Err: errs.New(errs.Serial, "stream %q: batch decode: unknown packet id %d", s.id, it.ID)}
	}

	clone, err := cloneDatasetForDecode(p.DS)
	if err != nil {
		return BatchResult{ID: it.ID, Err: err}
	}

	codecs := clone.Codecs()
	n := p.DS.LengthIn()
	if n == array.RaggedLen {
		n = 1
	}

	itemsPerCodec := make([]int, len(codecs))
	for i := range itemsPerCodec {
		itemsPerCodec[i] = n
	}

	pc, err := payloadio.ForType(s.compression)
	if err != nil {
		return BatchResult{ID: it.ID, Err: err}
	}

	decoded, err := pc.Decompress(it.Raw)
	if err != nil {
		return BatchResult{ID: it.ID, Err: errs.Wrap(errs.IO, err, "stream %q: batch decompress packet %d", s.id, it.ID)}
	}

	if err := clone.DecodePayload(decoded, itemsPerCodec); err != nil {
		return BatchResult{ID: it.ID, Err: err}
	}

	metrics.PacketsDecoded.WithLabelValues(strconv.Itoa(it.ID)).Inc()

	return BatchResult{ID: it.ID, DS: clone}
}

// cloneDatasetForDecode builds a structural copy of orig whose
// array-backed (ArrayVar) roles are rebound to freshly allocated, empty
// DynArrays with their own private codec, so a worker decoding into the
// clone never touches orig's shared storage. Const/Sequence roles carry
// no mutable array state, so they are reused directly.
func cloneDatasetForDecode(orig *dataset.Dataset) (*dataset.Dataset, error) {
	clone := dataset.New(orig.ID(), orig.Rank())

	for _, d := range orig.Dims() {
		cd := dimension.New(d.Name(), d.Kind())

		for _, role := range d.Roles() {
			v, _ := d.Var(role)

			av, ok := v.(*variable.ArrayVar)
			if !ok {
				if err := cd.AddVar(role, v); err != nil {
					return nil, errs.Wrap(errs.Dataset, err, "stream: cloning dataset %q", orig.ID())
				}

				continue
			}

			origAry := av.Array()

			c, ok := orig.CodecFor(origAry)
			if !ok {
				return nil, errs.New(errs.Dataset, "stream: cloning dataset %q: no codec bound to array %q", orig.ID(), origAry.ID())
			}

			shape := make([]int, origAry.Rank())
			freshAry, err := array.New(origAry.ID(), origAry.ValType(), origAry.ValSize(), origAry.Fill(), origAry.Rank(), shape, origAry.Ragged(), origAry.Units())
			if err != nil {
				return nil, errs.Wrap(errs.Array, err, "stream: cloning dataset %q", orig.ID())
			}

			if _, err := clone.AddFixedCodecFrom(c, freshAry); err != nil {
				return nil, errs.Wrap(errs.Dataset, err, "stream: cloning dataset %q", orig.ID())
			}

			idxMap := av.IdxMap()

			freshVar, err := variable.NewArrayVar(freshAry, len(idxMap), idxMap)
			if err != nil {
				return nil, errs.Wrap(errs.Var, err, "stream: cloning dataset %q", orig.ID())
			}

			if err := cd.AddVar(role, freshVar); err != nil {
				return nil, errs.Wrap(errs.Dataset, err, "stream: cloning dataset %q", orig.ID())
			}
		}

		clone.AddDim(cd)
	}

	return clone, nil
}
