package variable

import (
	"fmt"

	"github.com/das-developers/das2go/array"
	"github.com/das-developers/das2go/errs"
	"github.com/das-developers/das2go/value"
)

// Const is a Variable whose value never changes: every external axis
// reports Unused and is degenerate.
type Const struct {
	vt    value.VT
	elem  []byte
	units string
	rank  int
}

// NewConst builds a Const variable of rank external axes (all Unused),
// holding one fixed element.
func NewConst(vt value.VT, elem []byte, units string, rank int) *Const {
	return &Const{vt: vt, elem: append([]byte(nil), elem...), units: units, rank: rank}
}

func (c *Const) Shape(out []AxisLen) []AxisLen {
	return fillAxisLen(out, c.rank, func(int) AxisLen { return AxisLen{Usage: Unused} })
}

func (c *Const) IntrShape(out []AxisLen) []AxisLen { return out[:0] }

func (c *Const) LengthIn(prefix ...int) int { return array.RaggedLen }

func (c *Const) Get(dst []byte, loc ...int) (bool, error) {
	if len(dst) < len(c.elem) {
		return false, errs.New(errs.Var, "variable: const: dst too small")
	}

	copy(dst, c.elem)

	return true, nil
}

func (c *Const) IsFill(b []byte) bool {
	fill := value.Fill(c.vt)
	return bytesEqual(b, fill)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

func (c *Const) IsNumeric() bool { return c.vt.IsInt() || c.vt.IsReal() }

func (c *Const) ElemType() value.VT { return c.vt }

func (c *Const) Degenerate(axis int) bool { return true }

func (c *Const) Subset(min, max []int) (*array.Array, error) {
	n := 1
	shape := make([]int, len(min))
	for i := range min {
		d := max[i] - min[i]
		if d < 0 {
			return nil, errs.New(errs.Var, "variable: const: subset has max < min on axis %d", i)
		}

		shape[i] = d
		n *= d
	}

	elemSize := value.Size(c.vt)
	ary, err := array.New("const", c.vt, elemSize, value.Fill(c.vt), len(shape), shape, false, c.units)
	if err != nil {
		return nil, err
	}

	buf, err := ary.Append(nil, n)
	if err != nil {
		return nil, err
	}

	for i := 0; i < n; i++ {
		copy(buf[i*elemSize:(i+1)*elemSize], c.elem)
	}

	return ary, nil
}

func (c *Const) Expression() string {
	s, _ := value.Format(nil, c.vt, c.elem, "")
	return fmt.Sprintf("%s %s [%s]", s, c.units, c.vt)
}

func (c *Const) Copy() Variable {
	return NewConst(c.vt, c.elem, c.units, c.rank)
}

func (c *Const) IncRef()        {}
func (c *Const) DecRef() bool   { return true }
