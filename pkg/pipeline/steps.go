// Copyright © 2018 One Concern

package pipeline

import (
	"context"
	"path"
	"strings"
	"time"

	"github.com/oneconcern/timestream/pkg/content"
	"github.com/oneconcern/timestream/pkg/instant"
	"github.com/oneconcern/timestream/pkg/timestream"
)

// Copy passes records on unchanged
func Copy() Step {
	return StepFunc(func(_ context.Context, rec *timestream.Record) (*timestream.Record, error) {
		return rec, nil
	})
}

// Sink receives records, e.g. a timestream.Writer
type Sink interface {
	Write(context.Context, *timestream.Record) error
}

// Tee writes records to a sink, and always passes on its input unchanged
func Tee(sink Sink) Step {
	return StepFunc(func(ctx context.Context, rec *timestream.Record) (*timestream.Record, error) {
		if err := sink.Write(ctx, rec); err != nil {
			return nil, err
		}
		return rec, nil
	})
}

// Keep drops the records for which keep returns false
func Keep(keep func(*timestream.Record) bool) Step {
	return StepFunc(func(_ context.Context, rec *timestream.Record) (*timestream.Record, error) {
		if !keep(rec) {
			return nil, nil
		}
		return rec, nil
	})
}

// TimeFilter drops the records outside a time filter
func TimeFilter(f *instant.TimeFilter) Step {
	return Keep(func(rec *timestream.Record) bool {
		return f.Match(rec.Instant)
	})
}

// Report fields set by FileStats
const (
	FieldSize = "file_size"
	FieldName = "file_name"
)

// FileStats reports the size, the name and the digests of the content of records
func FileStats(algs ...content.Algorithm) Step {
	return StepFunc(func(ctx context.Context, rec *timestream.Record) (*timestream.Record, error) {
		data, err := rec.Fetch(ctx)
		if err != nil {
			return nil, err
		}
		rec.Set(FieldSize, len(data))
		rec.Set(FieldName, rec.Name)
		for _, alg := range algs {
			sum, err := rec.Content.Checksum(ctx, alg)
			if err != nil {
				return nil, err
			}
			rec.Set("file_"+string(alg), sum)
		}
		return rec, nil
	})
}

// AlignTime truncates the instant of records down to a multiple of d, e.g. to the
// nominal schedule of a camera
func AlignTime(d time.Duration) Step {
	return StepFunc(func(_ context.Context, rec *timestream.Record) (*timestream.Record, error) {
		aligned := rec.Derive()
		aligned.Instant = rec.Instant.Truncate(d)
		return aligned, nil
	})
}

// Codec decodes and encodes record content, e.g. images.
//
// Implementations may hold a non thread-safe working set: the engine never shares
// a record between workers, but a Codec used by many workers must be safe for concurrent use.
type Codec interface {
	Decode(ctx context.Context, data []byte, format string) (interface{}, error)
	Encode(ctx context.Context, value interface{}, format string) ([]byte, error)
}

// Decode promotes a raw record to a decoded record with its Value set
func Decode(codec Codec) Step {
	return StepFunc(func(ctx context.Context, rec *timestream.Record) (*timestream.Record, error) {
		data, err := rec.Fetch(ctx)
		if err != nil {
			return nil, err
		}
		value, err := codec.Decode(ctx, data, rec.Ext())
		if err != nil {
			return nil, err
		}
		decoded := rec.Derive()
		decoded.Value = value
		return decoded, nil
	})
}

// Encode replaces the content of decoded records by their encoding in some format
func Encode(codec Codec, format string) Step {
	format = strings.TrimPrefix(format, ".")
	return StepFunc(func(ctx context.Context, rec *timestream.Record) (*timestream.Record, error) {
		if rec.Value == nil {
			return nil, ErrNotDecoded.Wrapf("%s", rec.Name)
		}
		data, err := codec.Encode(ctx, rec.Value, format)
		if err != nil {
			return nil, err
		}
		encoded := rec.Derive()
		encoded.Name = strings.TrimSuffix(rec.Name, path.Ext(rec.Name)) + "." + format
		encoded.Content = content.Inline(data)
		encoded.Value = nil
		return encoded, nil
	})
}
