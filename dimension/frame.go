package dimension

import "github.com/das-developers/das2go/errs"

// MaxDirections is the largest number of named axis directions a Frame can
// carry (e.g. "x","y","z" for a Cartesian frame).
const MaxDirections = 4

// Frame describes a reference frame vector dimensions are expressed in:
// a body, a type (e.g. "GSE", "GSM"), an inertial flag, and up to
// MaxDirections axis direction names. Id 0 is reserved to mean "no frame".
type Frame struct {
	ID        int
	Name      string
	Body      string
	Type      string
	Inertial  bool
	Direction [MaxDirections]string
	NDir      int
}

// NewFrame builds a Frame; id must be nonzero (0 is the reserved sentinel).
func NewFrame(id int, name, body, frameType string, inertial bool) (*Frame, error) {
	if id == 0 {
		return nil, errs.New(errs.Vec, "frame: id 0 is reserved for \"no frame\"")
	}

	return &Frame{ID: id, Name: name, Body: body, Type: frameType, Inertial: inertial}, nil
}

// AddDirection appends one axis direction name, failing once MaxDirections
// is reached.
func (f *Frame) AddDirection(name string) error {
	if f.NDir >= MaxDirections {
		return errs.New(errs.Vec, "frame %q: already has %d directions", f.Name, MaxDirections)
	}

	f.Direction[f.NDir] = name
	f.NDir++

	return nil
}

// Directions returns the filled-in direction names, in declaration order.
func (f *Frame) Directions() []string { return f.Direction[:f.NDir] }

// Table is a Stream's frame registry: case-sensitive names, ids unique
// within the table (id 0 never stored).
type Table struct {
	byID   map[int]*Frame
	byName map[string]*Frame
}

// NewTable returns an empty frame table.
func NewTable() *Table {
	return &Table{byID: make(map[int]*Frame), byName: make(map[string]*Frame)}
}

// Add registers f, failing on a duplicate id or name.
func (t *Table) Add(f *Frame) error {
	if f.ID == 0 {
		return errs.New(errs.Vec, "frame table: id 0 is reserved")
	}

	if _, exists := t.byID[f.ID]; exists {
		return errs.New(errs.Vec, "frame table: id %d already registered", f.ID)
	}

	if _, exists := t.byName[f.Name]; exists {
		return errs.New(errs.Vec, "frame table: name %q already registered", f.Name)
	}

	t.byID[f.ID] = f
	t.byName[f.Name] = f

	return nil
}

// ByID looks up a frame by id.
func (t *Table) ByID(id int) (*Frame, bool) {
	f, ok := t.byID[id]
	return f, ok
}

// ByName looks up a frame by its case-sensitive name.
func (t *Table) ByName(name string) (*Frame, bool) {
	f, ok := t.byName[name]
	return f, ok
}

// All returns every registered frame, in no particular order.
func (t *Table) All() []*Frame {
	out := make([]*Frame, 0, len(t.byID))
	for _, f := range t.byID {
		out = append(out, f)
	}

	return out
}
