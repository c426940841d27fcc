package errs

import (
	"fmt"
	"os"
)

// Mode selects how a Dispatcher reacts to an error it is given.
type Mode int

const (
	// Return mode hands the error back to the caller untouched. This is
	// the core's own mode: it never aborts the process itself.
	Return Mode = iota
	// ExitOnError mode logs the error via Sink and terminates the
	// process. Intended for simple batch tools layered on top of the
	// core, never used by the core's own code paths.
	ExitOnError
)

// Sink receives a formatted error line before ExitOnError terminates the
// process. Tests can inject a capturing Sink to assert on the message
// without actually exiting.
type Sink interface {
	Errorf(format string, args ...any)
}

// stderrSink is the default Sink, used when Dispatcher.Sink is nil.
type stderrSink struct{}

func (stderrSink) Errorf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

// Dispatcher is the single place the core routes errors through. It never
// panics or exits on its own; only ExitOnError mode does, and only when the
// caller explicitly selected it.
type Dispatcher struct {
	Mode Mode
	Sink Sink
	// exit is overridable in tests so ExitOnError can be asserted without
	// tearing down the test binary.
	exit func(code int)
}

// NewDispatcher creates a Dispatcher in Return mode by default.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{Mode: Return, exit: os.Exit}
}

func (d *Dispatcher) sink() Sink {
	if d.Sink != nil {
		return d.Sink
	}

	return stderrSink{}
}

// Dispatch routes err according to the Dispatcher's Mode. In Return mode it
// returns err unchanged (nil stays nil). In ExitOnError mode a non-nil err
// is logged and the process terminates; Dispatch never returns in that
// case.
func (d *Dispatcher) Dispatch(err error) error {
	if err == nil {
		return nil
	}

	if d.Mode == Return {
		return err
	}

	d.sink().Errorf("das: fatal: %v", err)

	exit := d.exit
	if exit == nil {
		exit = os.Exit
	}
	exit(1)

	return err // unreachable in production; kept for testability when exit is stubbed
}
