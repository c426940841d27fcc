// Package config carries the functional options a stream reader is built
// from: buffer sizing, iterator advance order, the exit-on-error toggle,
// and the default epoch used when a dataset's time units are ambiguous.
package config

import (
	"github.com/das-developers/das2go/errs"
	"github.com/das-developers/das2go/internal/dlog"
	"github.com/das-developers/das2go/internal/options"
	"github.com/das-developers/das2go/internal/payloadio"
	"github.com/das-developers/das2go/iterator"
	"github.com/das-developers/das2go/stream"
)

// defaultReadBuf is the default ReadBufBytes. NewStream does not pass
// ReadBufBytes on, so it does not size any buffer of the stream.
const defaultReadBuf = 64 * 1024

// StreamOptions is the settled configuration of a stream reader, built by
// applying Options over sane defaults.
type StreamOptions struct {
	ReadBufBytes int
	IterOrder    iterator.Order
	ErrMode      errs.Mode
	DefaultEpoch string
	Compression  payloadio.Type
	Log          *dlog.Logger
}

// Option configures StreamOptions at construction time.
type Option = options.Option[*StreamOptions]

// WithReadBufBytes sets ReadBufBytes, which must be positive. The value is
// only recorded; NewStream does not apply it.
func WithReadBufBytes(n int) Option {
	return options.New(func(o *StreamOptions) error {
		if n <= 0 {
			return errs.New(errs.Serial, "config: read buffer size must be positive, got %d", n)
		}

		o.ReadBufBytes = n

		return nil
	})
}

// WithIterOrder records an iterator advance order in IterOrder. No code in
// this module reads the field; iterators do not take their order from it.
func WithIterOrder(o iterator.Order) Option {
	return options.NoError(func(s *StreamOptions) { s.IterOrder = o })
}

// WithExitOnError switches the reader's error dispatch from Return (the
// default, propagate to the caller) to ExitOnError (log then terminate),
// for simple batch tools layered on top of the core.
func WithExitOnError() Option {
	return options.NoError(func(s *StreamOptions) { s.ErrMode = errs.ExitOnError })
}

// WithDefaultEpoch records a time unit string (e.g. "us2000", "t2000") in
// DefaultEpoch. No code in this module reads the field; it is not applied
// to legacy datasets whose header leaves the units ambiguous.
func WithDefaultEpoch(units string) Option {
	return options.NoError(func(s *StreamOptions) { s.DefaultEpoch = units })
}

// WithLogger overrides the reader's logger; default dlog.Default.
func WithLogger(l *dlog.Logger) Option {
	return options.NoError(func(s *StreamOptions) { s.Log = l })
}

// WithCompression sets the payload compression data packets are read and
// written with; default payloadio.None.
func WithCompression(t payloadio.Type) Option {
	return options.NoError(func(s *StreamOptions) { s.Compression = t })
}

// New builds a StreamOptions from defaults plus opts.
func New(opts ...Option) (*StreamOptions, error) {
	o := &StreamOptions{
		ReadBufBytes: defaultReadBuf,
		IterOrder:    iterator.FastestLast,
		ErrMode:      errs.Return,
		DefaultEpoch: "us2000",
		Compression:  payloadio.None,
		Log:          dlog.Default,
	}

	if err := options.Apply(o, opts...); err != nil {
		return nil, err
	}

	return o, nil
}

// Dispatcher builds an errs.Dispatcher matching this configuration's
// ErrMode and Log sink.
func (o *StreamOptions) Dispatcher() *errs.Dispatcher {
	d := errs.NewDispatcher()
	d.Mode = o.ErrMode
	d.Sink = o.Log

	return d
}

// NewStream builds a Stream tagged id, carrying this configuration's
// compression and logger settings.
func (o *StreamOptions) NewStream(id string) *stream.Stream {
	return stream.New(id, stream.WithCompression(o.Compression), stream.WithLogger(o.Log))
}
