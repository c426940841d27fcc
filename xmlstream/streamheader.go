package xmlstream

import (
	"bytes"
	"encoding/xml"
	"io"

	"github.com/das-developers/das2go/dimension"
	"github.com/das-developers/das2go/errs"
)

// StreamHeader is the decoded form of a "[00]NNNNNN"-framed <stream>
// envelope: its format version, flat properties, and frame definitions.
type StreamHeader struct {
	Version string
	Props   []Prop
	Frames  []*dimension.Frame
}

// ParseStreamHeader reconstructs a StreamHeader from one
// <stream>...</stream> body.
func ParseStreamHeader(body []byte) (StreamHeader, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))

	var hdr StreamHeader

	var curFrame *dimension.Frame
	var pendingPropName string
	var pendingText string

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return StreamHeader{}, errs.Wrap(errs.Serial, err, "xmlstream: parsing stream header")
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "stream":
				hdr.Version, _ = attr(t, "version")
			case "p":
				pendingPropName, _ = attr(t, "name")
				pendingText = ""
			case "frame":
				name, _ := attr(t, "name")
				body, _ := attr(t, "body")
				frameType, _ := attr(t, "type")
				inertial, _ := attr(t, "inertial")

				f, err := dimension.NewFrame(len(hdr.Frames)+1, name, body, frameType, inertial == "true")
				if err != nil {
					return StreamHeader{}, errs.Wrap(errs.Serial, err, "xmlstream: frame %q", name)
				}

				curFrame = f
			case "dir":
				pendingText = ""
			}

		case xml.CharData:
			pendingText += string(t)

		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				hdr.Props = append(hdr.Props, Prop{Name: pendingPropName, Raw: pendingText})
			case "dir":
				if curFrame != nil {
					if err := curFrame.AddDirection(pendingText); err != nil {
						return StreamHeader{}, errs.Wrap(errs.Serial, err, "xmlstream: frame direction")
					}
				}
			case "frame":
				if curFrame != nil {
					hdr.Frames = append(hdr.Frames, curFrame)
				}
				curFrame = nil
			}
		}
	}

	return hdr, nil
}
