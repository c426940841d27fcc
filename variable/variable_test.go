package variable_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/das-developers/das2go/array"
	"github.com/das-developers/das2go/value"
	"github.com/das-developers/das2go/variable"
)

func f64(v float64) []byte {
	b := make([]byte, 8)
	bits := math.Float64bits(v)
	for i := 0; i < 8; i++ {
		b[i] = byte(bits >> (8 * i))
	}

	return b
}

func readF64(t *testing.T, v variable.Variable, loc ...int) float64 {
	t.Helper()

	buf := make([]byte, value.Size(v.ElemType()))
	_, err := v.Get(buf, loc...)
	require.NoError(t, err)

	var bits uint64
	for i := 7; i >= 0; i-- {
		bits = bits<<8 | uint64(buf[i])
	}

	return math.Float64frombits(bits)
}

func TestConstIsDegenerateEverywhere(t *testing.T) {
	c := variable.NewConst(value.F64, f64(3.5), "eV", 2)

	shape := c.Shape(nil)
	require.Len(t, shape, 2)
	for _, a := range shape {
		require.Equal(t, variable.Unused, a.Usage)
	}

	require.True(t, c.Degenerate(0))
	require.True(t, c.Degenerate(1))
	require.Equal(t, 3.5, readF64(t, c, 7, 9))
}

func TestSequenceAffineFormula(t *testing.T) {
	s, err := variable.NewSequence(value.F64, 10.0, 2.0, "s", 2, 1)
	require.NoError(t, err)

	require.False(t, s.Degenerate(1))
	require.True(t, s.Degenerate(0))

	require.Equal(t, 10.0, readF64(t, s, 0, 0))
	require.Equal(t, 16.0, readF64(t, s, 5, 3))

	_, err = s.Get(make([]byte, 8), 0, -1)
	require.Error(t, err)
}

func TestSequenceSubsetBroadcastsAcrossOtherAxis(t *testing.T) {
	s, err := variable.NewSequence(value.F64, 0.0, 1.0, "s", 2, 1)
	require.NoError(t, err)

	sub, err := s.Subset([]int{0, 0}, []int{2, 3})
	require.NoError(t, err)

	shape := sub.Shape(nil)
	require.Equal(t, []int{2, 3}, shape)

	got, err := sub.GetAt(1, 2)
	require.NoError(t, err)
	require.Equal(t, f64(2), got)
}

func newPlainArray(t *testing.T) *array.Array {
	t.Helper()

	a, err := array.New("plain", value.F64, 8, value.Fill(value.F64), 2, []int{0, 3}, false, "nT")
	require.NoError(t, err)

	buf, err := a.Append(nil, 6)
	require.NoError(t, err)
	for i := 0; i < 6; i++ {
		copy(buf[i*8:(i+1)*8], f64(float64(i)))
	}

	return a
}

func TestArrayVarIdentityGetAndSubset(t *testing.T) {
	a := newPlainArray(t)

	av, err := variable.NewArrayVar(a, 2, []int{0, 1})
	require.NoError(t, err)

	require.Equal(t, 4.0, readF64(t, av, 1, 1))

	sub, err := av.Subset([]int{0, 0}, []int{2, 3})
	require.NoError(t, err)
	require.Equal(t, []int{2, 3}, sub.Shape(nil))
}

func TestArrayVarUnmappedAxisIsDegenerate(t *testing.T) {
	a := newPlainArray(t)

	// rank 3 external, axis 2 dropped by the array (e.g. broadcast over a
	// vector-component axis the array doesn't itself carry).
	av, err := variable.NewArrayVar(a, 3, []int{0, 1, -1})
	require.NoError(t, err)

	require.False(t, av.Degenerate(0))
	require.True(t, av.Degenerate(2))

	_, err = av.Get(make([]byte, 8), 0, 0, 0)
	require.Error(t, err)
}

func TestUnaryNegation(t *testing.T) {
	s, err := variable.NewSequence(value.F64, 5.0, 1.0, "s", 1, 0)
	require.NoError(t, err)

	u := variable.NewUnary(variable.UnaryNeg, s, value.F64)
	require.Equal(t, -7.0, readF64(t, u, 2))
}

func TestBinaryPlusMergesShapeByUsageRank(t *testing.T) {
	seq, err := variable.NewSequence(value.F64, 0.0, 1.0, "s", 1, 0)
	require.NoError(t, err)

	a, err := array.New("flat", value.F64, 8, value.Fill(value.F64), 1, []int{0}, false, "nT")
	require.NoError(t, err)

	buf, err := a.Append(nil, 6)
	require.NoError(t, err)
	for i := 0; i < 6; i++ {
		copy(buf[i*8:(i+1)*8], f64(float64(i)))
	}

	av, err := variable.NewArrayVar(a, 1, []int{0})
	require.NoError(t, err)

	b := variable.NewBinary(variable.BinaryPlus, seq, av, value.F64)

	shape := b.Shape(nil)
	require.Len(t, shape, 1)
	require.Equal(t, variable.Number, shape[0].Usage)

	require.Equal(t, 6.0, readF64(t, b, 3))
}

func TestUnarySubsetNegatesEachElement(t *testing.T) {
	s, err := variable.NewSequence(value.F64, 0.0, 1.0, "s", 1, 0)
	require.NoError(t, err)

	u := variable.NewUnary(variable.UnaryNeg, s, value.F64)

	sub, err := u.Subset([]int{2}, []int{5})
	require.NoError(t, err)
	require.Equal(t, []int{3}, sub.Shape(nil))

	got, err := sub.GetAt(0)
	require.NoError(t, err)
	require.Equal(t, f64(-2), got)

	got, err = sub.GetAt(2)
	require.NoError(t, err)
	require.Equal(t, f64(-4), got)
}

func TestBinarySubsetSumsEachElement(t *testing.T) {
	left, err := variable.NewSequence(value.F64, 0.0, 1.0, "s", 1, 0)
	require.NoError(t, err)

	right, err := variable.NewSequence(value.F64, 10.0, 0.0, "s", 1, 0)
	require.NoError(t, err)

	bn := variable.NewBinary(variable.BinaryPlus, left, right, value.F64)

	sub, err := bn.Subset([]int{1}, []int{4})
	require.NoError(t, err)
	require.Equal(t, []int{3}, sub.Shape(nil))

	got, err := sub.GetAt(0)
	require.NoError(t, err)
	require.Equal(t, f64(11), got)

	got, err = sub.GetAt(2)
	require.NoError(t, err)
	require.Equal(t, f64(13), got)
}
