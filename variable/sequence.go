package variable

import (
	"fmt"
	"math"

	"github.com/das-developers/das2go/array"
	"github.com/das-developers/das2go/errs"
	"github.com/das-developers/das2go/value"
)

// Sequence is a Variable computed as B + M*i along one driving axis
// (Func usage), broadcast (replicated) across every other external axis.
// Negative indices are rejected.
type Sequence struct {
	vt       value.VT
	b, m     float64
	units    string
	rank     int
	funcAxis int
}

// NewSequence builds a Sequence variable: funcAxis is the single axis whose
// index drives the affine formula; every other axis (0..rank-1) broadcasts
// the same value.
func NewSequence(vt value.VT, b, m float64, units string, rank, funcAxis int) (*Sequence, error) {
	if funcAxis < 0 || funcAxis >= rank {
		return nil, errs.New(errs.Var, "variable: sequence: funcAxis %d out of range for rank %d", funcAxis, rank)
	}

	return &Sequence{vt: vt, b: b, m: m, units: units, rank: rank, funcAxis: funcAxis}, nil
}

func (s *Sequence) Shape(out []AxisLen) []AxisLen {
	return fillAxisLen(out, s.rank, func(i int) AxisLen {
		if i == s.funcAxis {
			return AxisLen{Usage: Func}
		}

		return AxisLen{Usage: Unused}
	})
}

func (s *Sequence) IntrShape(out []AxisLen) []AxisLen { return out[:0] }

func (s *Sequence) LengthIn(prefix ...int) int { return array.RaggedLen }

func (s *Sequence) valueAt(i int) float64 { return s.b + s.m*float64(i) }

func (s *Sequence) Get(dst []byte, loc ...int) (bool, error) {
	if s.funcAxis >= len(loc) {
		return false, errs.New(errs.Var, "variable: sequence: loc too short for funcAxis %d", s.funcAxis)
	}

	i := loc[s.funcAxis]
	if i < 0 {
		return false, errs.New(errs.Var, "variable: sequence: negative index %d rejected", i)
	}

	writeFloatAs(dst, s.vt, s.valueAt(i))

	return true, nil
}

func writeFloatAs(dst []byte, vt value.VT, f float64) {
	switch vt {
	case value.F32:
		bits := math.Float32bits(float32(f))
		dst[0], dst[1], dst[2], dst[3] = byte(bits), byte(bits>>8), byte(bits>>16), byte(bits>>24)
	case value.F64:
		bits := math.Float64bits(f)
		for i := 0; i < 8; i++ {
			dst[i] = byte(bits >> (8 * i))
		}
	case value.I64:
		v := uint64(int64(f))
		for i := 0; i < 8; i++ {
			dst[i] = byte(v >> (8 * i))
		}
	case value.I32:
		v := uint32(int32(f))
		dst[0], dst[1], dst[2], dst[3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
	default:
		dst[0] = byte(int64(f))
	}
}

func (s *Sequence) IsFill(b []byte) bool { return bytesEqual(b, value.Fill(s.vt)) }

func (s *Sequence) IsNumeric() bool { return true }

func (s *Sequence) ElemType() value.VT { return s.vt }

func (s *Sequence) Degenerate(axis int) bool { return axis != s.funcAxis }

func (s *Sequence) Subset(min, max []int) (*array.Array, error) {
	if len(min) != s.rank || len(max) != s.rank {
		return nil, errs.New(errs.Var, "variable: sequence: subset rank mismatch")
	}

	shape := make([]int, s.rank)
	n := 1
	for i := 0; i < s.rank; i++ {
		d := max[i] - min[i]
		if d < 0 {
			return nil, errs.New(errs.Var, "variable: sequence: subset has max < min on axis %d", i)
		}

		shape[i] = d
		n *= d
	}

	elemSize := value.Size(s.vt)
	ary, err := array.New("sequence", s.vt, elemSize, value.Fill(s.vt), s.rank, shape, false, s.units)
	if err != nil {
		return nil, err
	}

	buf, err := ary.Append(nil, n)
	if err != nil {
		return nil, err
	}

	stride := make([]int, s.rank)
	acc := 1
	for i := s.rank - 1; i >= 0; i-- {
		stride[i] = acc
		d := shape[i]
		if d < 1 {
			d = 1
		}
		acc *= d
	}

	loc := make([]int, s.rank)
	for flat := 0; flat < n; flat++ {
		rem := flat
		for i := 0; i < s.rank; i++ {
			if stride[i] == 0 {
				loc[i] = min[i]
				continue
			}

			loc[i] = min[i] + rem/stride[i]
			rem %= stride[i]
		}

		writeFloatAs(buf[flat*elemSize:(flat+1)*elemSize], s.vt, s.valueAt(loc[s.funcAxis]))
	}

	return ary, nil
}

func (s *Sequence) Expression() string {
	return fmt.Sprintf("%g + %g*i%d %s [%s]", s.b, s.m, s.funcAxis, s.units, s.vt)
}

func (s *Sequence) Copy() Variable {
	cp := *s
	return &cp
}

func (s *Sequence) IncRef()      {}
func (s *Sequence) DecRef() bool { return true }
