// Copyright © 2018 One Concern

package legacy

import (
	"context"
	"fmt"
	"io"
	"iter"

	"github.com/oneconcern/timestream/pkg/content"
	"github.com/oneconcern/timestream/pkg/errors"
	"github.com/oneconcern/timestream/pkg/instant"
	"github.com/oneconcern/timestream/pkg/layout"
	"github.com/oneconcern/timestream/pkg/status"
	"github.com/oneconcern/timestream/pkg/timestream"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

// ErrMalformed is returned when a legacy stream cannot be decoded
var ErrMalformed = errors.New("malformed legacy stream")

// Decoder reads records from a legacy stream
type Decoder struct {
	dec *msgpack.Decoder
	l   *zap.Logger
}

// DecoderOption is a functor to build a decoder with some options
type DecoderOption func(*Decoder)

// DecoderLogger for a decoder
func DecoderLogger(l *zap.Logger) DecoderOption {
	return func(d *Decoder) {
		if l != nil {
			d.l = l
		}
	}
}

// NewDecoder reading from r
func NewDecoder(r io.Reader, opts ...DecoderOption) *Decoder {
	d := &Decoder{
		dec: msgpack.NewDecoder(r),
		l:   zap.NewNop(),
	}
	for _, apply := range opts {
		apply(d)
	}
	return d
}

// All records of the stream, with inline content, in stream order.
//
// The sequence ends at a clean end of stream. A message truncated or lacking
// its datetime or image yields ErrMalformed, after which the sequence ends.
func (d *Decoder) All(ctx context.Context) iter.Seq2[*timestream.Record, error] {
	return func(yield func(*timestream.Record, error) bool) {
		for n := 0; ; n++ {
			if err := ctx.Err(); err != nil {
				yield(nil, status.ErrCancelled.Wrap(err))
				return
			}
			rec, err := d.next()
			if err == io.EOF {
				d.l.Debug("legacy stream read", zap.Int("messages", n))
				return
			}
			if err != nil {
				yield(nil, ErrMalformed.Wrapf("message %d", n).Wrap(err))
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// next decodes one message, returning io.EOF only at a message boundary
func (d *Decoder) next() (*timestream.Record, error) {
	n, err := d.dec.DecodeMapLen()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("nil message")
	}

	var (
		datetime, filename string
		image              []byte
		hasImage           bool
	)
	for k := 0; k < n; k++ {
		key, err := d.text()
		if err != nil {
			return nil, unexpected(err)
		}
		switch key {
		case KeyDatetime:
			datetime, err = d.text()
		case KeyFilename:
			filename, err = d.text()
		case KeyImage:
			image, err = d.bytes()
			hasImage = true
		default:
			err = d.dec.Skip()
		}
		if err != nil {
			return nil, unexpected(err)
		}
	}

	if datetime == "" || !hasImage {
		return nil, fmt.Errorf("missing %q or %q", KeyDatetime, KeyImage)
	}
	at, err := instant.Parse(datetime)
	if err != nil {
		return nil, err
	}
	// the name may carry a sub-second slot or an index the datetime lacks
	if named, ok := instant.FromName(filename); ok && named.Time().Equal(at.Time()) {
		at = named
	}
	if filename == "" {
		filename = layout.FileName("", at, "")
	}
	return timestream.NewRecord(at, filename, content.Inline(image)), nil
}

// text decodes a str or bin value
func (d *Decoder) text() (string, error) {
	b, err := d.bytes()
	return string(b), err
}

// bytes decodes a str or bin value
func (d *Decoder) bytes() ([]byte, error) {
	v, err := d.dec.DecodeInterface()
	if err != nil {
		return nil, err
	}
	switch t := v.(type) {
	case []byte:
		return t, nil
	case string:
		return []byte(t), nil
	default:
		return nil, fmt.Errorf("expected str or bin, got %T", v)
	}
}

func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
