// Package iterator walks the extrinsic index space of a Dataset (or an
// arbitrary rectangular index range) in row-major order, re-querying the
// innermost axis's length whenever a ragged Dataset's outer index changes.
package iterator

import (
	"github.com/das-developers/das2go/array"
	"github.com/das-developers/das2go/dataset"
	"github.com/das-developers/das2go/errs"
	"github.com/das-developers/das2go/internal/options"
	"github.com/das-developers/das2go/variable"
)

// Order selects which axis is reported as varying quickest; it affects
// only the presentation order of visited indices, never which indices are
// visited.
type Order int

const (
	// FastestLast varies the last (innermost) axis quickest, the
	// conventional row-major nesting.
	FastestLast Order = iota
	// FastestFirst varies the first (outermost) axis quickest.
	FastestFirst
)

type settings struct {
	order Order
}

// Option configures a DatasetIter/UniqueIter/CubeIter.
type Option = options.Option[*settings]

// WithOrder overrides the default FastestLast advance order.
func WithOrder(o Order) Option {
	return options.NoError(func(s *settings) { s.order = o })
}

func newSettings(opts []Option) (*settings, error) {
	s := &settings{order: FastestLast}
	if err := options.Apply(s, opts...); err != nil {
		return nil, err
	}

	return s, nil
}

// axisOrderFromAxes returns axes re-ordered by increment priority: for
// FastestLast the highest-indexed (innermost) axis is tried first; for
// FastestFirst the lowest-indexed axis is tried first. axes must already
// be ascending.
func axisOrderFromAxes(axes []int, order Order) []int {
	out := append([]int(nil), axes...)

	if order == FastestLast {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}

	return out
}

// DatasetIter walks every extrinsic index of a Dataset in row-major order.
// Every axis but the last must merge to a fixed Number length (§4.7's
// Shape merge); the last axis may additionally be Ragged, in which case
// its length is re-queried via Dataset.LengthIn each time the outer
// prefix changes.
type DatasetIter struct {
	ds    *dataset.Dataset
	rank  int
	shape []variable.AxisLen
	idx   []int
	order []int

	hasRagged bool
	started   bool
	done      bool
}

// NewDatasetIter builds a DatasetIter over ds. Returns NotImp if any axis
// but the last has a non-Number merged length, or if the last axis is
// Ragged and FastestFirst order is requested (the ragged axis's length
// query needs the full prefix of every other axis settled first, which
// FastestFirst cannot guarantee).
func NewDatasetIter(ds *dataset.Dataset, opts ...Option) (*DatasetIter, error) {
	s, err := newSettings(opts)
	if err != nil {
		return nil, err
	}

	rank := ds.Rank()
	shape := ds.Shape()

	hasRagged := false
	for axis, al := range shape {
		if axis == rank-1 && al.Usage == variable.Ragged {
			hasRagged = true
			continue
		}
		if al.Usage != variable.Number {
			return nil, errs.New(errs.NotImp, "iterator: axis %d has non-Number merged length %v, dataset iteration needs a fixed bound", axis, al.Usage)
		}
	}

	if hasRagged && s.order == FastestFirst {
		return nil, errs.New(errs.NotImp, "iterator: FastestFirst order is not supported with a ragged innermost axis")
	}

	axes := make([]int, rank)
	for i := range axes {
		axes[i] = i
	}

	return &DatasetIter{
		ds:        ds,
		rank:      rank,
		shape:     shape,
		idx:       make([]int, rank),
		order:     axisOrderFromAxes(axes, s.order),
		hasRagged: hasRagged,
	}, nil
}

// Index returns a copy of the current position.
func (it *DatasetIter) Index() []int { return append([]int(nil), it.idx...) }

func (it *DatasetIter) boundOf(axis int) int {
	if axis == it.rank-1 && it.hasRagged {
		n := it.ds.LengthIn(it.idx[:it.rank-1]...)
		if n == array.RaggedLen {
			return 0
		}

		return n
	}

	return it.shape[axis].N
}

// Next advances to the next index, returning false once the outermost
// axis exhausts. When the innermost axis is Ragged, a carry into a new
// outer index may land on a row of length zero; Next keeps carrying past
// any such empty row rather than reporting it.
func (it *DatasetIter) Next() bool {
	if it.done {
		return false
	}

	if it.rank == 0 {
		if it.started {
			it.done = true
			return false
		}

		it.started = true
		return true
	}

	if !it.started {
		it.started = true
		it.idx[it.order[0]] = -1
	}

	for {
		advanced := false

		for _, axis := range it.order {
			n := it.boundOf(axis)
			it.idx[axis]++

			if it.idx[axis] < n {
				for _, faster := range it.order {
					if faster == axis {
						break
					}
					it.idx[faster] = 0
				}

				advanced = true
				break
			}

			it.idx[axis] = 0
		}

		if !advanced {
			it.done = true
			return false
		}

		valid := true
		for _, axis := range it.order {
			if it.boundOf(axis) <= 0 {
				valid = false
				break
			}
		}

		if valid {
			return true
		}
	}
}

// UniqueIter walks a Dataset like DatasetIter, but locks to zero every
// axis v is degenerate on, so iteration visits each distinct value of v
// exactly once.
type UniqueIter struct {
	ds    *dataset.Dataset
	v     variable.Variable
	rank  int
	shape []variable.AxisLen
	idx   []int
	order []int

	raggedAxis int // -1 if none is active and ragged
	started    bool
	done       bool
}

// NewUniqueIter builds a UniqueIter over ds for variable v.
func NewUniqueIter(ds *dataset.Dataset, v variable.Variable, opts ...Option) (*UniqueIter, error) {
	s, err := newSettings(opts)
	if err != nil {
		return nil, err
	}

	rank := ds.Rank()
	shape := ds.Shape()

	var active []int
	raggedAxis := -1
	for axis := 0; axis < rank; axis++ {
		if v.Degenerate(axis) {
			continue
		}

		if axis == rank-1 && shape[axis].Usage == variable.Ragged {
			raggedAxis = axis
		} else if shape[axis].Usage != variable.Number {
			return nil, errs.New(errs.NotImp, "iterator: axis %d has non-Number merged length %v, unique iteration needs a fixed bound", axis, shape[axis].Usage)
		}

		active = append(active, axis)
	}

	if raggedAxis >= 0 && s.order == FastestFirst {
		return nil, errs.New(errs.NotImp, "iterator: FastestFirst order is not supported with a ragged innermost axis")
	}

	return &UniqueIter{
		ds:         ds,
		v:          v,
		rank:       rank,
		shape:      shape,
		idx:        make([]int, rank),
		order:      axisOrderFromAxes(active, s.order),
		raggedAxis: raggedAxis,
	}, nil
}

func (it *UniqueIter) Index() []int { return append([]int(nil), it.idx...) }

func (it *UniqueIter) boundOf(axis int) int {
	if axis == it.raggedAxis {
		n := it.ds.LengthIn(it.idx[:it.rank-1]...)
		if n == array.RaggedLen {
			return 0
		}

		return n
	}

	return it.shape[axis].N
}

// Next advances to the next distinct index, returning false once every
// active axis exhausts. Carries past any zero-length ragged row exactly
// as DatasetIter.Next does.
func (it *UniqueIter) Next() bool {
	if it.done {
		return false
	}

	if len(it.order) == 0 {
		if it.started {
			it.done = true
			return false
		}

		it.started = true
		return true
	}

	if !it.started {
		it.started = true
		it.idx[it.order[0]] = -1
	}

	for {
		advanced := false

		for _, axis := range it.order {
			n := it.boundOf(axis)
			it.idx[axis]++

			if it.idx[axis] < n {
				for _, faster := range it.order {
					if faster == axis {
						break
					}
					it.idx[faster] = 0
				}

				advanced = true
				break
			}

			it.idx[axis] = 0
		}

		if !advanced {
			it.done = true
			return false
		}

		valid := true
		for _, axis := range it.order {
			if it.boundOf(axis) <= 0 {
				valid = false
				break
			}
		}

		if valid {
			return true
		}
	}
}

// CubeIter walks an arbitrary rectangular index range [min, max).
type CubeIter struct {
	min, max []int
	idx      []int
	order    []int
	started  bool
	done     bool
}

// NewCubeIter builds a CubeIter over [min, max); min and max must have
// equal length and max[i] >= min[i] for every axis.
func NewCubeIter(min, max []int, opts ...Option) (*CubeIter, error) {
	s, err := newSettings(opts)
	if err != nil {
		return nil, err
	}

	if len(min) != len(max) {
		return nil, errs.New(errs.NotImp, "iterator: cube min/max rank mismatch (%d vs %d)", len(min), len(max))
	}

	for i := range min {
		if max[i] < min[i] {
			return nil, errs.New(errs.NotImp, "iterator: cube axis %d has max %d < min %d", i, max[i], min[i])
		}
	}

	axes := make([]int, len(min))
	for i := range axes {
		axes[i] = i
	}

	return &CubeIter{
		min:   append([]int(nil), min...),
		max:   append([]int(nil), max...),
		idx:   append([]int(nil), min...),
		order: axisOrderFromAxes(axes, s.order),
	}, nil
}

func (it *CubeIter) Index() []int { return append([]int(nil), it.idx...) }

// Next advances to the next index in the cube, returning false once the
// outermost axis exhausts.
func (it *CubeIter) Next() bool {
	if it.done {
		return false
	}

	if len(it.idx) == 0 {
		if it.started {
			it.done = true
			return false
		}

		it.started = true
		return true
	}

	if !it.started {
		it.started = true

		for i := range it.min {
			if it.max[i] <= it.min[i] {
				it.done = true
				return false
			}
		}

		return true
	}

	for _, axis := range it.order {
		it.idx[axis]++

		if it.idx[axis] < it.max[axis] {
			for _, faster := range it.order {
				if faster == axis {
					break
				}
				it.idx[faster] = it.min[faster]
			}

			return true
		}

		it.idx[axis] = it.min[axis]
	}

	it.done = true
	return false
}
