// Copyright © 2018 One Concern

package legacy

import (
	"context"
	"io"
	"sync"

	"github.com/oneconcern/timestream/pkg/instant"
	"github.com/oneconcern/timestream/pkg/layout"
	"github.com/oneconcern/timestream/pkg/status"
	"github.com/oneconcern/timestream/pkg/timestream"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

// Message keys
const (
	KeyDatetime = "datetime"
	KeyImage    = "image"
	KeyFilename = "filename"
)

// Encoder writes records to a legacy stream. It is safe for concurrent use.
type Encoder struct {
	mu     sync.Mutex
	enc    *msgpack.Encoder
	count  int64
	closed bool
	l      *zap.Logger
}

// EncoderOption is a functor to build an encoder with some options
type EncoderOption func(*Encoder)

// EncoderLogger for an encoder
func EncoderLogger(l *zap.Logger) EncoderOption {
	return func(e *Encoder) {
		if l != nil {
			e.l = l
		}
	}
}

// NewEncoder writing to w
func NewEncoder(w io.Writer, opts ...EncoderOption) *Encoder {
	e := &Encoder{
		enc: msgpack.NewEncoder(w),
		l:   zap.NewNop(),
	}
	for _, apply := range opts {
		apply(e)
	}
	return e
}

// Write a record, with its name
func (e *Encoder) Write(ctx context.Context, rec *timestream.Record) error {
	data, err := rec.Fetch(ctx)
	if err != nil {
		return err
	}
	return e.write(rec.Instant, data, rec.Name)
}

// WriteVerbatim writes raw bytes at some instant, named after the instant
func (e *Encoder) WriteVerbatim(data []byte, at instant.Instant) error {
	return e.write(at, data, layout.FileName("", at, ""))
}

func (e *Encoder) write(at instant.Instant, data []byte, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return status.ErrClosed
	}

	if err := e.enc.EncodeMapLen(3); err != nil {
		return err
	}
	if err := e.pair(KeyDatetime, []byte(at.ISO8601())); err != nil {
		return err
	}
	if err := e.pair(KeyImage, data); err != nil {
		return err
	}
	if err := e.pair(KeyFilename, []byte(name)); err != nil {
		return err
	}
	e.count++
	e.l.Debug("legacy message written", zap.Stringer("instant", at), zap.String("name", name))
	return nil
}

func (e *Encoder) pair(key string, value []byte) error {
	if err := e.enc.EncodeBytes([]byte(key)); err != nil {
		return err
	}
	return e.enc.EncodeBytes(value)
}

// Count of messages written
func (e *Encoder) Count() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.count
}

// Close the encoder. The underlying writer is not closed.
func (e *Encoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		e.l.Info("legacy stream written", zap.Int64("messages", e.count))
	}
	return nil
}
