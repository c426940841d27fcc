package variable

import (
	"fmt"
	"math"

	"github.com/das-developers/das2go/array"
	"github.com/das-developers/das2go/errs"
	"github.com/das-developers/das2go/value"
)

// UnaryOp identifies the element-wise transform a Unary variable applies.
type UnaryOp int

const (
	UnaryNeg UnaryOp = iota
	UnaryAbs
)

// Unary is a Variable computed as op(operand), sharing operand's shape.
type Unary struct {
	op  UnaryOp
	src Variable
	vt  value.VT
}

// NewUnary wraps src with op, producing values of vt (normally src's own
// ElemType, promoted if op demands it).
func NewUnary(op UnaryOp, src Variable, vt value.VT) *Unary {
	src.IncRef()
	return &Unary{op: op, src: src, vt: vt}
}

func (u *Unary) Shape(out []AxisLen) []AxisLen { return u.src.Shape(out) }

func (u *Unary) IntrShape(out []AxisLen) []AxisLen { return u.src.IntrShape(out) }

func (u *Unary) LengthIn(prefix ...int) int { return u.src.LengthIn(prefix...) }

func (u *Unary) Get(dst []byte, loc ...int) (bool, error) {
	srcBuf := make([]byte, value.Size(u.src.ElemType()))

	ok, err := u.src.Get(srcBuf, loc...)
	if err != nil {
		return false, err
	}

	f, _ := toFloat(u.src.ElemType(), srcBuf)

	switch u.op {
	case UnaryNeg:
		f = -f
	case UnaryAbs:
		f = math.Abs(f)
	}

	writeFloatAs(dst, u.vt, f)

	return ok, nil
}

func toFloat(vt value.VT, b []byte) (float64, bool) {
	switch vt {
	case value.F32:
		bits := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
		return float64(math.Float32frombits(bits)), true
	case value.F64:
		var bits uint64
		for i := 7; i >= 0; i-- {
			bits = bits<<8 | uint64(b[i])
		}
		return math.Float64frombits(bits), true
	default:
		var v int64
		for i := len(b) - 1; i >= 0; i-- {
			v = v<<8 | int64(b[i])
		}
		return float64(v), true
	}
}

func (u *Unary) IsFill(b []byte) bool { return bytesEqual(b, value.Fill(u.vt)) }

func (u *Unary) IsNumeric() bool { return true }

func (u *Unary) ElemType() value.VT { return u.vt }

func (u *Unary) Degenerate(axis int) bool { return u.src.Degenerate(axis) }

// Subset applies op element-wise over the same [min, max) region of the
// operand, since a Unary variable has no backing array.Array of its own
// to slice a view out of.
func (u *Unary) Subset(min, max []int) (*array.Array, error) {
	return subsetViaGet("unary", u.vt, min, max, u.Get)
}

func (u *Unary) Expression() string {
	return fmt.Sprintf("op(%s) [%s]", u.src.Expression(), u.vt)
}

func (u *Unary) Copy() Variable { return NewUnary(u.op, u.src.Copy(), u.vt) }

func (u *Unary) IncRef() { u.src.IncRef() }

func (u *Unary) DecRef() bool { return u.src.DecRef() }

// BinaryOp identifies the element-wise combination a Binary variable
// applies to its two operands.
type BinaryOp int

const (
	BinaryPlus BinaryOp = iota
	BinaryMinus
)

// Binary is a Variable computed as left op right, whose shape is the
// index-wise merge of its operands' shapes (Ragged > Number > Func >
// Unused per axis, matching Dataset's own merge rule).
type Binary struct {
	op          BinaryOp
	left, right Variable
	vt          value.VT
}

// NewBinary combines left and right with op, producing vt-typed values
// (the caller computes vt via value.Merge on the operand types).
func NewBinary(op BinaryOp, left, right Variable, vt value.VT) *Binary {
	left.IncRef()
	right.IncRef()

	return &Binary{op: op, left: left, right: right, vt: vt}
}

func mergeAxisLen(a, b AxisLen) AxisLen {
	rank := func(u AxisUsage) int {
		switch u {
		case Ragged:
			return 3
		case Number:
			return 2
		case Func:
			return 1
		default:
			return 0
		}
	}

	switch {
	case rank(a.Usage) > rank(b.Usage):
		return a
	case rank(b.Usage) > rank(a.Usage):
		return b
	case a.Usage == Number:
		n := a.N
		if b.N < n {
			n = b.N
		}
		return AxisLen{Usage: Number, N: n}
	default:
		return a
	}
}

func (bn *Binary) Shape(out []AxisLen) []AxisLen {
	la := bn.left.Shape(nil)
	ra := bn.right.Shape(nil)

	rank := len(la)
	if len(ra) > rank {
		rank = len(ra)
	}

	return fillAxisLen(out, rank, func(i int) AxisLen {
		var l, r AxisLen
		if i < len(la) {
			l = la[i]
		}
		if i < len(ra) {
			r = ra[i]
		}

		return mergeAxisLen(l, r)
	})
}

func (bn *Binary) IntrShape(out []AxisLen) []AxisLen { return out[:0] }

func (bn *Binary) LengthIn(prefix ...int) int {
	ll := bn.left.LengthIn(prefix...)
	rl := bn.right.LengthIn(prefix...)

	if ll == array.RaggedLen {
		return rl
	}
	if rl == array.RaggedLen {
		return ll
	}
	if ll < rl {
		return ll
	}

	return rl
}

func (bn *Binary) Get(dst []byte, loc ...int) (bool, error) {
	lBuf := make([]byte, value.Size(bn.left.ElemType()))
	rBuf := make([]byte, value.Size(bn.right.ElemType()))

	lok, err := bn.left.Get(lBuf, loc...)
	if err != nil {
		return false, err
	}

	rok, err := bn.right.Get(rBuf, loc...)
	if err != nil {
		return false, err
	}

	lf, _ := toFloat(bn.left.ElemType(), lBuf)
	rf, _ := toFloat(bn.right.ElemType(), rBuf)

	var f float64
	switch bn.op {
	case BinaryPlus:
		f = lf + rf
	case BinaryMinus:
		f = lf - rf
	}

	writeFloatAs(dst, bn.vt, f)

	return lok && rok, nil
}

func (bn *Binary) IsFill(b []byte) bool { return bytesEqual(b, value.Fill(bn.vt)) }

func (bn *Binary) IsNumeric() bool { return true }

func (bn *Binary) ElemType() value.VT { return bn.vt }

func (bn *Binary) Degenerate(axis int) bool {
	return bn.left.Degenerate(axis) && bn.right.Degenerate(axis)
}

// Subset combines left and right element-wise over the same [min, max)
// region, mirroring Get's own per-element evaluation rather than slicing
// a backing array.Array (Binary has none).
func (bn *Binary) Subset(min, max []int) (*array.Array, error) {
	return subsetViaGet("binary", bn.vt, min, max, bn.Get)
}

// subsetViaGet materializes [min, max) into a fresh array.Array by calling
// get once per element, the shared tail of Unary.Subset and Binary.Subset:
// neither variable has a backing array.Array to slice a view out of, so
// both fall back to the same element-by-element evaluation ArrayVar uses
// for its own ragged, slow-path Subset.
func subsetViaGet(kind string, vt value.VT, min, max []int, get func(dst []byte, loc ...int) (bool, error)) (*array.Array, error) {
	if len(min) != len(max) {
		return nil, errs.New(errs.Var, "variable: %s: subset min/max rank mismatch", kind)
	}

	rank := len(min)
	shape := make([]int, rank)
	n := 1
	for i := 0; i < rank; i++ {
		d := max[i] - min[i]
		if d < 0 {
			return nil, errs.New(errs.Var, "variable: %s: subset has max < min on axis %d", kind, i)
		}

		shape[i] = d
		n *= d
	}

	elemSize := value.Size(vt)
	fill := value.Fill(vt)
	out, err := array.New(kind+"#subset", vt, elemSize, fill, rank, shape, false, "")
	if err != nil {
		return nil, err
	}

	buf, err := out.Append(nil, n)
	if err != nil {
		return nil, err
	}

	stride := make([]int, rank)
	acc := 1
	for i := rank - 1; i >= 0; i-- {
		stride[i] = acc
		d := shape[i]
		if d < 1 {
			d = 1
		}
		acc *= d
	}

	loc := make([]int, rank)
	for flat := 0; flat < n; flat++ {
		rem := flat
		for i := 0; i < rank; i++ {
			if stride[i] == 0 {
				loc[i] = min[i]
				continue
			}

			loc[i] = min[i] + rem/stride[i]
			rem %= stride[i]
		}

		dst := buf[flat*elemSize : (flat+1)*elemSize]
		if ok, err := get(dst, loc...); err != nil {
			return nil, err
		} else if !ok {
			copy(dst, fill)
		}
	}

	return out, nil
}

func (bn *Binary) Expression() string {
	sym := "+"
	if bn.op == BinaryMinus {
		sym = "-"
	}

	return fmt.Sprintf("(%s %s %s) [%s]", bn.left.Expression(), sym, bn.right.Expression(), bn.vt)
}

func (bn *Binary) Copy() Variable {
	return NewBinary(bn.op, bn.left.Copy(), bn.right.Copy(), bn.vt)
}

func (bn *Binary) IncRef() {
	bn.left.IncRef()
	bn.right.IncRef()
}

func (bn *Binary) DecRef() bool {
	l := bn.left.DecRef()
	r := bn.right.DecRef()

	return l && r
}
