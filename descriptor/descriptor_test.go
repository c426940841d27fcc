package descriptor_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/das-developers/das2go/descriptor"
	"github.com/das-developers/das2go/value"
)

func TestLookupFallsThroughToParent(t *testing.T) {
	parent := descriptor.New()
	parent.SetProp("title", value.SemString, "", 0, "root title")

	child := descriptor.New()
	child.SetParent(parent)

	s, ok := child.GetStr("title")
	require.True(t, ok)
	require.Equal(t, "root title", s)
}

func TestLocalOverridesParent(t *testing.T) {
	parent := descriptor.New()
	parent.SetProp("title", value.SemString, "", 0, "root title")

	child := descriptor.New()
	child.SetParent(parent)
	child.SetProp("title", value.SemString, "", 0, "child title")

	s, ok := child.GetStr("title")
	require.True(t, ok)
	require.Equal(t, "child title", s)
}

func TestRemovePropDoesNotCompact(t *testing.T) {
	d := descriptor.New()
	d.SetProp("a", value.SemInt, "", 0, "1")
	d.SetProp("b", value.SemInt, "", 0, "2")

	require.True(t, d.RemoveProp("a"))
	require.False(t, d.HasProp("a"))
	require.True(t, d.HasProp("b"))
	require.Equal(t, 1, d.InvalidCount())
}

func TestGetDatumBareTimeHeuristic(t *testing.T) {
	d := descriptor.New()
	d.SetProp("xCacheRange", value.SemString, "", 0, "2020-01-01T00:00:00Z")

	vt, _, err := d.GetDatum("xCacheRange")
	require.NoError(t, err)
	require.Equal(t, value.Time, vt)
}

func TestGetDatumRangeNumeric(t *testing.T) {
	d := descriptor.New()
	d.SetProp("validRange", value.SemReal, "", ' ', "0.0 100.0")

	vt, lo, hi, err := d.GetDatumRange("validRange")
	require.NoError(t, err)
	require.Equal(t, value.F64, vt)
	require.NotNil(t, lo)
	require.NotNil(t, hi)
}

func TestGetBool(t *testing.T) {
	d := descriptor.New()
	d.SetProp("renderer", value.SemBool, "", 0, "true")

	b, err := d.GetBool("renderer")
	require.NoError(t, err)
	require.True(t, b)
}

func TestGetStrAryWhitespace(t *testing.T) {
	d := descriptor.New()
	d.SetProp("tags", value.SemString, "", 0, "alpha beta gamma")

	ary, err := d.GetStrAry("tags")
	require.NoError(t, err)
	require.Equal(t, []string{"alpha", "beta", "gamma"}, ary)
}

func TestCopyInPropsStripsPrefix(t *testing.T) {
	src := descriptor.New()
	src.SetProp("yLabel", value.SemString, "", 0, "Flux")
	src.SetProp("yScaleType", value.SemString, "", 0, "log")
	src.SetProp("unrelated", value.SemString, "", 0, "keep-as-is")

	dst := descriptor.New()
	dst.CopyInProps(src, map[string]bool{"unrelated": true}, []string{"y"})

	s, ok := dst.GetStr("Label")
	require.True(t, ok)
	require.Equal(t, "Flux", s)

	require.False(t, dst.HasProp("unrelated"))
}
