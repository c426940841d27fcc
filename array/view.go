package array

import "github.com/das-developers/das2go/errs"

// View is a no-copy window into an Array's dense backing store, returned by
// SubSetIn when the requested prefix addresses a contiguous run.
type View struct {
	Array *Array
	Shape []int
	Data  []byte
}

// SubSetIn returns a contiguous view of the sub-array below prefix (one
// index per axis from the outside in), without copying, when the array is
// dense. Ragged arrays cannot offer a single contiguous view across rows of
// differing length; callers there fall back to GetIn per-row or a manual
// element-by-element copy (see the element-by-element copy path of package
// variable's ArrayVar.Subset).
func (a *Array) SubSetIn(prefix ...int) (View, error) {
	if a.ragged {
		return View{}, errs.New(errs.Array, "array %q: SubSetIn: no contiguous view of a ragged array", a.id)
	}

	if len(prefix) >= a.rank {
		return View{}, errs.New(errs.Array, "array %q: SubSetIn: prefix must leave at least one free axis", a.id)
	}

	stride := a.denseStride()
	off := 0
	for i, ix := range prefix {
		off += ix * stride[i]
	}
	off *= a.elemSize

	remaining := a.shape[len(prefix):a.rank]
	n := 1
	for _, d := range remaining {
		n *= max(d, 1)
	}
	n *= a.elemSize

	if off < 0 || off+n > len(a.data) {
		return View{}, errs.New(errs.Array, "array %q: SubSetIn: out of range", a.id)
	}

	shapeCopy := make([]int, len(remaining))
	copy(shapeCopy, remaining)

	return View{Array: a, Shape: shapeCopy, Data: a.data[off : off+n]}, nil
}
