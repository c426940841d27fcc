// Package xmlstream is the SAX-style decode counterpart to dataset's and
// stream's hand-built XML encoders (§4.8/§4.11): it drives encoding/xml's
// streaming Decoder.Token() over a header body and reconstructs the
// Dataset/Frame/property tree the encoder produced, without ever buffering
// the whole document into a DOM.
package xmlstream

import (
	"bytes"
	"encoding/xml"
	"io"

	"github.com/das-developers/das2go/array"
	"github.com/das-developers/das2go/codec"
	"github.com/das-developers/das2go/dataset"
	"github.com/das-developers/das2go/dimension"
	"github.com/das-developers/das2go/errs"
	"github.com/das-developers/das2go/value"
	"github.com/das-developers/das2go/variable"
)

// Prop is one decoded <p name="...">raw</p> property.
type Prop struct {
	Name string
	Raw  string
}

func attr(se xml.StartElement, name string) (string, bool) {
	for _, a := range se.Attr {
		if a.Name.Local == name {
			return a.Value, true
		}
	}

	return "", false
}

func parseVT(s string) value.VT {
	switch s {
	case "u8":
		return value.U8
	case "i8":
		return value.I8
	case "u16":
		return value.U16
	case "i16":
		return value.I16
	case "u32":
		return value.U32
	case "i32":
		return value.I32
	case "u64":
		return value.U64
	case "i64":
		return value.I64
	case "f32":
		return value.F32
	case "f64":
		return value.F64
	case "time":
		return value.Time
	case "text":
		return value.Text
	case "byteseq":
		return value.ByteSeq
	case "geovec":
		return value.GeoVec
	case "index":
		return value.Index
	default:
		return value.Unknown
	}
}

// newArrayVar builds a dsRank-dimensional dynamic Array for vt, registers a
// default fixed codec sized for vt on ds, and wraps the array in an
// identity-mapped ArrayVar. Every <scalar> element is reconstructed this
// way (an inline <sequence> is not recognised): the header only
// declares shape and type, the actual elements arrive in the packet's data
// payload and are bound through the codec this registers.
func newArrayVar(ds *dataset.Dataset, dsRank int, name string, vt value.VT) (variable.Variable, error) {
	elemSize := 1
	if vt != value.Text {
		elemSize = value.Size(vt)
	}

	shape := make([]int, dsRank)

	ary, err := array.New(name, vt, elemSize, value.Fill(vt), dsRank, shape, vt == value.Text, "")
	if err != nil {
		return nil, errs.Wrap(errs.Serial, err, "xmlstream: building array for %q", name)
	}

	enc, itemBytes, sepByte := wireEncodingFor(vt)

	epochUnits := ""
	if vt == value.Time {
		epochUnits = "t2000"
	}

	if _, err := ds.AddFixedCodec(ary, value.DefaultSemantic(vt), enc, itemBytes, sepByte, epochUnits, ""); err != nil {
		return nil, errs.Wrap(errs.Serial, err, "xmlstream: binding codec for %q", name)
	}

	idxMap := make([]int, dsRank)
	for i := range idxMap {
		idxMap[i] = i
	}

	av, err := variable.NewArrayVar(ary, dsRank, idxMap)
	if err != nil {
		return nil, errs.Wrap(errs.Serial, err, "xmlstream: building variable for %q", name)
	}

	return av, nil
}

func wireEncodingFor(vt value.VT) (enc codec.BufEncoding, itemBytes int, sepByte byte) {
	switch vt {
	case value.F32:
		return codec.BEreal, 4, 0
	case value.F64, value.Time:
		return codec.BEreal, 8, 0
	case value.I8, value.U8:
		return codec.Byte, 1, 0
	case value.I16, value.U16:
		return codec.BEint, 2, 0
	case value.I32, value.U32:
		return codec.BEint, 4, 0
	case value.I64, value.U64:
		return codec.BEint, 8, 0
	case value.Text:
		return codec.UTF8, codec.ItemTerminated, 0
	default:
		return codec.BEreal, 8, 0
	}
}

// ParseDataset reconstructs a Dataset from one <dataset>...</dataset> body,
// the packet descriptor definition framed by a "[NN]NNNNNN" wire tag.
func ParseDataset(body []byte) (*dataset.Dataset, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))

	var ds *dataset.Dataset
	var curDim *dimension.Dimension
	var dsRank int

	var pendingPropName string
	var pendingText string

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errs.Wrap(errs.Serial, err, "xmlstream: parsing dataset header")
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "dataset":
				rankStr, _ := attr(t, "rank")
				dsRank = atoiSafe(rankStr)
				ds = dataset.New("", dsRank)
			case "p":
				pendingPropName, _ = attr(t, "name")
				pendingText = ""
			case "coord", "data":
				if ds == nil {
					return nil, errs.New(errs.Serial, "xmlstream: %s outside dataset", t.Name.Local)
				}

				name, _ := attr(t, "name")
				kind := dimension.Coord
				if t.Name.Local == "data" {
					kind = dimension.Data
				}
				curDim = dimension.New(name, kind)
			case "scalar":
				if curDim == nil {
					return nil, errs.New(errs.Serial, "xmlstream: scalar outside coord/data")
				}

				role, _ := attr(t, "role")
				typeName, _ := attr(t, "type")
				vt := parseVT(typeName)

				v, err := newArrayVar(ds, dsRank, curDim.Name()+"."+role, vt)
				if err != nil {
					return nil, err
				}

				if err := curDim.AddVar(role, v); err != nil {
					return nil, errs.Wrap(errs.Serial, err, "xmlstream: adding role %q", role)
				}
			}

		case xml.CharData:
			pendingText += string(t)

		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				if ds != nil {
					ds.SetProp(pendingPropName, value.SemString, "", 0, pendingText)
				}
			case "coord", "data":
				if ds != nil && curDim != nil {
					ds.AddDim(curDim)
				}
				curDim = nil
			}
		}
	}

	if ds == nil {
		return nil, errs.New(errs.Serial, "xmlstream: no <dataset> element found")
	}

	return ds, nil
}

func atoiSafe(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return n
		}
		n = n*10 + int(c-'0')
	}

	return n
}
