package value_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/das-developers/das2go/value"
)

func TestSize(t *testing.T) {
	require.Equal(t, 1, value.Size(value.U8))
	require.Equal(t, 2, value.Size(value.I16))
	require.Equal(t, 4, value.Size(value.F32))
	require.Equal(t, 8, value.Size(value.F64))
	require.Equal(t, 8, value.Size(value.Time))
}

func TestSizePanicsOnComposite(t *testing.T) {
	require.Panics(t, func() { value.Size(value.Text) })
}

func TestFill(t *testing.T) {
	f64 := value.Fill(value.F64)
	bits := math.Float64bits(value.RealFill)
	require.Len(t, f64, 8)
	require.Equal(t, bits, leUint64(f64))
}

func leUint64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}

	return v
}

func TestMergeNarrowPromotesToF32(t *testing.T) {
	require.Equal(t, value.F32, value.Merge(value.U8, value.OpPlus, value.I16))
}

func TestMergeWidePromotesToF64(t *testing.T) {
	require.Equal(t, value.F64, value.Merge(value.I32, value.OpPlus, value.F32))
}

func TestMergeUnknownAbsorbs(t *testing.T) {
	require.Equal(t, value.Unknown, value.Merge(value.Text, value.OpPlus, value.F64))
	require.Equal(t, value.Unknown, value.Merge(value.ByteSeq, value.OpPlus, value.F64))
}

func TestMergeTimeMinusTimeIsF64(t *testing.T) {
	require.Equal(t, value.F64, value.Merge(value.Time, value.OpMinus, value.Time))
}

func TestMergeTimePlusNumberIsTime(t *testing.T) {
	require.Equal(t, value.Time, value.Merge(value.Time, value.OpPlus, value.F64))
	require.Equal(t, value.Time, value.Merge(value.F64, value.OpPlus, value.Time))
}

func TestMergeTimeOtherOpIsUnknown(t *testing.T) {
	require.Equal(t, value.Unknown, value.Merge(value.Time, value.OpOther, value.F64))
}

func TestStoreTypeBinaryReal(t *testing.T) {
	require.Equal(t, value.F64, value.StoreType("BEreal", 8, value.SemReal))
	require.Equal(t, value.F32, value.StoreType("LEreal", 4, value.SemReal))
}

func TestStoreTypeUtf8Datetime(t *testing.T) {
	require.Equal(t, value.I64, value.StoreTypeForEpoch("utf8", 24, value.SemDatetime, true))
	require.Equal(t, value.F64, value.StoreTypeForEpoch("utf8", 24, value.SemDatetime, false))
}

func TestParseFormatRoundTripInt(t *testing.T) {
	out, err := value.Parse(nil, value.I32, "-42")
	require.NoError(t, err)
	s, err := value.Format(nil, value.I32, out, "")
	require.NoError(t, err)
	require.Equal(t, "-42", s)
}

func TestParseFormatRoundTripReal(t *testing.T) {
	out, err := value.Parse(nil, value.F64, "3.25")
	require.NoError(t, err)
	s, err := value.Format(nil, value.F64, out, "%.2f")
	require.NoError(t, err)
	require.Equal(t, "3.25", s)
}

func TestCmpCrossType(t *testing.T) {
	a, _ := value.Parse(nil, value.I32, "10")
	b, _ := value.Parse(nil, value.F64, "10")
	require.Equal(t, value.Equal, value.Cmp(value.I32, a, value.F64, b))
}

func TestCmpStringNeverEqualsNonString(t *testing.T) {
	a := []byte("10")
	b, _ := value.Parse(nil, value.F64, "10")
	require.Equal(t, value.Incomparable, value.Cmp(value.Text, a, value.F64, b))
}

func TestCmpTimeNeverComparesToNonTime(t *testing.T) {
	a, _ := value.Parse(nil, value.Time, "2020-01-01T00:00:00Z")
	b, _ := value.Parse(nil, value.F64, "10")
	require.Equal(t, value.Incomparable, value.Cmp(value.Time, a, value.F64, b))
}

func TestParseTimeEncodesEightBytes(t *testing.T) {
	out, err := value.Parse(nil, value.Time, "2020-01-01T00:00:00.000Z")
	require.NoError(t, err)
	require.Len(t, out, 8)
}
