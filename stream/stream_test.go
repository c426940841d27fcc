package stream_test

import (
	"bufio"
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/das-developers/das2go/array"
	"github.com/das-developers/das2go/codec"
	"github.com/das-developers/das2go/dataset"
	"github.com/das-developers/das2go/dimension"
	"github.com/das-developers/das2go/stream"
	"github.com/das-developers/das2go/value"
	"github.com/das-developers/das2go/variable"
)

func le64(v uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return b
}

func buildFixedVarDim(t *testing.T, name string, kind dimension.Kind, role string, vals []float64) (*dimension.Dimension, *codec.Codec, *array.Array) {
	t.Helper()

	ary, err := array.New(name+"."+role, value.F64, 8, value.Fill(value.F64), 1, []int{0}, false, "")
	require.NoError(t, err)

	for _, v := range vals {
		b, err := ary.Append(nil, 1)
		require.NoError(t, err)
		copy(b, le64(math.Float64bits(v)))
	}

	c, err := codec.Init(true, ary, value.SemReal, codec.BEreal, 8, 0, "", "")
	require.NoError(t, err)

	av, err := variable.NewArrayVar(ary, 1, []int{0})
	require.NoError(t, err)

	d := dimension.New(name, kind)
	require.NoError(t, d.AddVar(role, av))

	return d, c, ary
}

func buildDataset(t *testing.T, id string, timeVals, yVals []float64) (*dataset.Dataset, []byte) {
	t.Helper()

	ds := dataset.New(id, 1)

	timeDim, timeCodec, timeAry := buildFixedVarDim(t, "time", dimension.Coord, "center", timeVals)
	yDim, yCodec, yAry := buildFixedVarDim(t, "y", dimension.Data, "center", yVals)

	_, err := ds.AddFixedCodecFrom(timeCodec, timeAry)
	require.NoError(t, err)
	_, err = ds.AddFixedCodecFrom(yCodec, yAry)
	require.NoError(t, err)

	ds.AddDim(timeDim)
	ds.AddDim(yDim)

	timePayload, err := timeCodec.Encode(nil, 0, len(timeVals))
	require.NoError(t, err)
	yPayload, err := yCodec.Encode(nil, 0, len(yVals))
	require.NoError(t, err)

	return ds, append(timePayload, yPayload...)
}

func TestAddPktDescRejectsDoubleOwnership(t *testing.T) {
	s := stream.New("s1")
	ds, _ := buildDataset(t, "a", []float64{1}, []float64{2})

	require.NoError(t, s.AddPktDesc(ds, 1))
	require.Error(t, s.AddPktDesc(ds, 1))
}

func TestFreeSubDescThenReAdd(t *testing.T) {
	s := stream.New("s1")
	ds, _ := buildDataset(t, "a", []float64{1}, []float64{2})

	require.NoError(t, s.AddPktDesc(ds, 1))
	require.NoError(t, s.FreeSubDesc(1))
	require.NoError(t, s.AddPktDesc(ds, 1))
}

func TestCreatePktDescAllocatesSmallestFreeID(t *testing.T) {
	s := stream.New("s1")
	ds, _ := buildDataset(t, "a", []float64{1}, []float64{2})

	require.NoError(t, s.AddPktDesc(ds, 1))

	_, id, err := s.CreatePktDesc(codec.BEreal, "us2000")
	require.NoError(t, err)
	require.Equal(t, 2, id)
}

func TestNextPktDescIteratesInOrder(t *testing.T) {
	s := stream.New("s1")
	ds, _ := buildDataset(t, "a", []float64{1}, []float64{2})

	require.NoError(t, s.AddPktDesc(ds, 5))
	require.NoError(t, s.AddPktDesc(ds, 2))

	cursor := -1
	p, ok := s.NextPktDesc(&cursor)
	require.True(t, ok)
	require.Equal(t, 2, p.ID)

	p, ok = s.NextPktDesc(&cursor)
	require.True(t, ok)
	require.Equal(t, 5, p.ID)

	_, ok = s.NextPktDesc(&cursor)
	require.False(t, ok)
}

func TestFramesNearGroupsByBody(t *testing.T) {
	s := stream.New("s1")

	f1, err := dimension.NewFrame(1, "GSE", "Earth", "GSE", true)
	require.NoError(t, err)
	f2, err := dimension.NewFrame(2, "GSM", "Earth", "GSM", true)
	require.NoError(t, err)
	f3, err := dimension.NewFrame(3, "IAU_JUPITER", "Jupiter", "IAU", false)
	require.NoError(t, err)

	require.NoError(t, s.AddFrame(f1))
	require.NoError(t, s.AddFrame(f2))
	require.NoError(t, s.AddFrame(f3))

	earth := s.FramesNear("Earth")
	require.Len(t, earth, 2)

	jupiter := s.FramesNear("Jupiter")
	require.Len(t, jupiter, 1)
	require.Equal(t, "IAU_JUPITER", jupiter[0].Name)
}

func TestTagRoundTrip(t *testing.T) {
	cases := []stream.Tag{
		{Kind: stream.KindStreamHeader, Len: 123},
		{Kind: stream.KindPktDesc, ID: 7, Len: 456},
		{Kind: stream.KindPktData, ID: 3, Len: -1},
		{Kind: stream.KindLegacyData, ID: 9, Len: -1},
		{Kind: stream.KindLegacyXOffsets, Len: -1},
		{Kind: stream.KindLegacyYTags, Len: -1},
		{Kind: stream.KindLegacyRecord, Len: -1},
	}

	for _, want := range cases {
		var buf bytes.Buffer
		require.NoError(t, stream.WriteTag(&buf, want))

		got, err := stream.ReadTag(bufio.NewReader(&buf))
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	s1 := stream.New("s1")
	s1.SetProp("title", value.SemString, "", 0, "test stream")

	f, err := dimension.NewFrame(1, "GSE", "Earth", "GSE", true)
	require.NoError(t, err)
	require.NoError(t, f.AddDirection("x"))
	require.NoError(t, s1.AddFrame(f))

	ds, payload := buildDataset(t, "", []float64{10, 11, 12}, []float64{1, 2, 3})
	require.NoError(t, s1.AddPktDesc(ds, 1))

	var buf bytes.Buffer
	require.NoError(t, s1.WriteHeader(&buf))
	require.NoError(t, s1.WritePktDesc(&buf, 1))
	require.NoError(t, s1.WriteData(&buf, 1, payload))

	s2 := stream.New("s2")
	require.NoError(t, s2.Decode(&buf))

	require.Equal(t, "3.0", s2.Version())
	title, ok := s2.GetStr("title")
	require.True(t, ok)
	require.Equal(t, "test stream", title)

	gf, ok := s2.Frame("GSE")
	require.True(t, ok)
	require.Equal(t, "Earth", gf.Body)

	p2, ok := s2.PktDescAt(1)
	require.True(t, ok)

	yDim, ok := p2.DS.Dim("y")
	require.True(t, ok)

	yVar, ok := yDim.Var("center")
	require.True(t, ok)

	got := make([]byte, 8)
	ok2, err := yVar.Get(got, 1)
	require.NoError(t, err)
	require.True(t, ok2)
	require.Equal(t, float64(2), math.Float64frombits(
		uint64(got[0])|uint64(got[1])<<8|uint64(got[2])<<16|uint64(got[3])<<24|
			uint64(got[4])<<32|uint64(got[5])<<40|uint64(got[6])<<48|uint64(got[7])<<56))
}
