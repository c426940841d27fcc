package dataset

import (
	"fmt"
	"strings"

	"github.com/das-developers/das2go/dimension"
	"github.com/das-developers/das2go/variable"
)

// EncodeHeader renders the dataset's <dataset> XML element: a rank
// attribute, an index string (e.g. "*;1440"), inherited properties, then
// each dimension (coordinates first) with its variables.
func (ds *Dataset) EncodeHeader() string {
	var b strings.Builder

	fmt.Fprintf(&b, "<dataset rank=\"%d\" index=\"%s\">\n", ds.rank, ds.indexString())

	for _, name := range ds.Names() {
		raw, _ := ds.GetStr(name)
		fmt.Fprintf(&b, "  <p name=%q>%s</p>\n", name, escapeXML(raw))
	}

	for _, d := range ds.Dims() {
		ds.encodeDim(&b, d)
	}

	b.WriteString("</dataset>\n")

	return b.String()
}

// indexString renders the dataset's merged shape as "*;1440"-style text:
// "*" for a Ragged or Func axis, the numeric length for a Number axis.
func (ds *Dataset) indexString() string {
	shape := ds.Shape()

	parts := make([]string, len(shape))
	for i, a := range shape {
		switch a.Usage {
		case variable.Number:
			parts[i] = fmt.Sprintf("%d", a.N)
		default:
			parts[i] = "*"
		}
	}

	return strings.Join(parts, ";")
}

func (ds *Dataset) encodeDim(b *strings.Builder, d *dimension.Dimension) {
	tag := "coord"
	if d.Kind() == dimension.Data {
		tag = "data"
	}

	fmt.Fprintf(b, "  <%s name=%q>\n", tag, d.Name())

	for _, role := range d.Roles() {
		v, _ := d.Var(role)

		elemTag := "scalar"
		fmt.Fprintf(b, "    <%s role=%q type=%q/>\n", elemTag, role, v.ElemType().String())
	}

	fmt.Fprintf(b, "  </%s>\n", tag)
}

func escapeXML(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", "\"", "&quot;")
	return r.Replace(s)
}
