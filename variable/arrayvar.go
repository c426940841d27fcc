package variable

import (
	"fmt"

	"github.com/das-developers/das2go/array"
	"github.com/das-developers/das2go/errs"
	"github.com/das-developers/das2go/value"
)

// ArrayVar is a Variable that reads directly from a backing DynArray,
// mapping external axes to the array's own axes via idxMap (one entry per
// external axis; an Unused external axis has the entry -1).
type ArrayVar struct {
	ary    *array.Array
	rank   int       // external rank
	idxMap []int     // idxMap[externalAxis] = array axis, or -1 if unused
	fill   []byte
}

// NewArrayVar builds an ArrayVar over ary. idxMap has one entry per
// external axis (rank entries); -1 marks an axis the array does not vary
// along (Unused).
func NewArrayVar(ary *array.Array, rank int, idxMap []int) (*ArrayVar, error) {
	if len(idxMap) != rank {
		return nil, errs.New(errs.Var, "variable: array: idxMap length %d != rank %d", len(idxMap), rank)
	}

	ary.IncRef()

	return &ArrayVar{ary: ary, rank: rank, idxMap: append([]int(nil), idxMap...), fill: ary.Fill()}, nil
}

func (a *ArrayVar) Shape(out []AxisLen) []AxisLen {
	shape := a.ary.Shape(nil)

	return fillAxisLen(out, a.rank, func(i int) AxisLen {
		ax := a.idxMap[i]
		if ax < 0 {
			return AxisLen{Usage: Unused}
		}

		n := shape[ax]
		if n == array.RaggedLen {
			return AxisLen{Usage: Ragged}
		}

		return AxisLen{Usage: Number, N: n}
	})
}

func (a *ArrayVar) IntrShape(out []AxisLen) []AxisLen {
	extUsed := make(map[int]bool, a.rank)
	for _, ax := range a.idxMap {
		if ax >= 0 {
			extUsed[ax] = true
		}
	}

	shape := a.ary.Shape(nil)

	intr := out[:0]
	for ax, n := range shape {
		if extUsed[ax] {
			continue
		}

		intr = append(intr, AxisLen{Usage: Number, N: n})
	}

	return intr
}

func (a *ArrayVar) LengthIn(prefix ...int) int {
	return a.ary.LengthIn(a.mapPrefix(prefix)...)
}

// mapPrefix translates an external index prefix into the array's own axis
// order, dropping entries for axes the array doesn't vary along (Unused
// external axes contribute no array index at all).
func (a *ArrayVar) mapPrefix(prefix []int) []int {
	out := make([]int, 0, len(prefix))
	for i, p := range prefix {
		ax := a.idxMap[i]
		if ax < 0 {
			continue
		}

		out = append(out, p)
	}

	return out
}

func (a *ArrayVar) Get(dst []byte, loc ...int) (bool, error) {
	aryIdx := make([]int, a.ary.Rank())
	for i := range aryIdx {
		aryIdx[i] = -1
	}

	for ext, ax := range a.idxMap {
		if ax >= 0 && ext < len(loc) {
			aryIdx[ax] = loc[ext]
		}
	}

	for _, v := range aryIdx {
		if v < 0 {
			return false, errs.New(errs.Var, "variable: array: Get: unmapped array axis")
		}
	}

	b, err := a.ary.GetAt(aryIdx...)
	if err != nil {
		return false, err
	}

	valid := a.ary.ValidAt(aryIdx...)
	copy(dst, b)

	return valid, nil
}

func (a *ArrayVar) IsFill(b []byte) bool { return bytesEqual(b, a.fill) }

func (a *ArrayVar) IsNumeric() bool {
	vt := a.ary.ValType()
	return vt.IsInt() || vt.IsReal()
}

func (a *ArrayVar) ElemType() value.VT { return a.ary.ValType() }

func (a *ArrayVar) Degenerate(axis int) bool {
	if axis < 0 || axis >= a.rank {
		return true
	}

	return a.idxMap[axis] < 0
}

// Subset returns a direct contiguous view of the region when one exists;
// otherwise it copies element by element. That copy path serves both
// strided and ragged regions (there is no separate strided copy), and it
// fills ragged holes with the array's declared fill value.
func (a *ArrayVar) Subset(min, max []int) (*array.Array, error) {
	if dense, ok := a.trySubSetInView(min, max); ok {
		return dense, nil
	}

	return a.slowCopy(min, max)
}

// trySubSetInView only attempts the no-copy path when every external axis
// maps 1:1, in order, onto an array axis (the common case for a plain data
// variable with no broadcast/degenerate axes): then a prefix that pins
// every axis but the innermost down to a single index addresses a
// contiguous run SubSetIn can hand back directly.
func (a *ArrayVar) trySubSetInView(min, max []int) (*array.Array, bool) {
	if a.rank != a.ary.Rank() {
		return nil, false
	}

	for i, ax := range a.idxMap {
		if ax != i {
			return nil, false
		}
	}

	prefixLen := a.rank - 1
	prefix := make([]int, 0, prefixLen)
	for i := 0; i < prefixLen; i++ {
		if i >= len(min) || max[i]-min[i] != 1 {
			return nil, false
		}

		prefix = append(prefix, min[i])
	}

	view, err := a.ary.SubSetIn(prefix...)
	if err != nil {
		return nil, false
	}

	elemSize := a.ary.ValSize()
	if elemSize == 0 {
		return nil, false
	}

	out, err := array.New(a.ary.ID()+"#view", a.ary.ValType(), elemSize, a.fill, 1, view.Shape, false, a.ary.Units())
	if err != nil {
		return nil, false
	}

	if _, err := out.Append(view.Data, len(view.Data)/elemSize); err != nil {
		return nil, false
	}

	return out, true
}

func (a *ArrayVar) slowCopy(min, max []int) (*array.Array, error) {
	shape := make([]int, len(min))
	n := 1
	for i := range min {
		d := max[i] - min[i]
		if d < 0 {
			return nil, errs.New(errs.Var, "variable: array: subset has max < min on axis %d", i)
		}

		shape[i] = d
		n *= d
	}

	vt := a.ary.ValType()
	elemSize := a.ary.ValSize()
	out, err := array.New(a.ary.ID()+"#subset", vt, elemSize, a.fill, len(shape), shape, false, a.ary.Units())
	if err != nil {
		return nil, err
	}

	buf, err := out.Append(nil, n)
	if err != nil {
		return nil, err
	}

	stride := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		stride[i] = acc
		d := shape[i]
		if d < 1 {
			d = 1
		}
		acc *= d
	}

	loc := make([]int, len(shape))
	for flat := 0; flat < n; flat++ {
		rem := flat
		for i := range shape {
			if stride[i] == 0 {
				loc[i] = min[i]
				continue
			}

			loc[i] = min[i] + rem/stride[i]
			rem %= stride[i]
		}

		dst := buf[flat*elemSize : (flat+1)*elemSize]
		if ok, err := a.Get(dst, loc...); err != nil {
			return nil, err
		} else if !ok {
			copy(dst, a.fill)
		}
	}

	return out, nil
}

func (a *ArrayVar) Expression() string {
	return fmt.Sprintf("%s %s [%s]", a.ary.ID(), a.ary.Units(), a.ary.ValType())
}

func (a *ArrayVar) Copy() Variable {
	a.ary.IncRef()

	return &ArrayVar{ary: a.ary, rank: a.rank, idxMap: append([]int(nil), a.idxMap...), fill: a.fill}
}

// Array returns the backing DynArray, for callers (e.g. a private-clone
// decode path) that need to rebind its codec to a different array.
func (a *ArrayVar) Array() *array.Array { return a.ary }

// IdxMap returns a copy of the external-axis-to-array-axis mapping.
func (a *ArrayVar) IdxMap() []int { return append([]int(nil), a.idxMap...) }

func (a *ArrayVar) IncRef() { a.ary.IncRef() }

func (a *ArrayVar) DecRef() bool { return a.ary.DecRef() }
