// Copyright © 2018 One Concern

package timestream

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"

	units "github.com/docker/go-units"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/oneconcern/timestream/pkg/layout"
	"github.com/oneconcern/timestream/pkg/lock"
	"github.com/oneconcern/timestream/pkg/status"
	"github.com/spf13/afero"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const stageSuffix = ".put-stage"

var (
	// writes are serialized across processes on the OS file system
	osLocker = lock.New(lock.InterProcess(true))
	// and in-process only on other file systems
	localLocker = lock.New(lock.InterProcess(false))
)

// Writer lays out records under an output root.
//
// A Writer is safe for concurrent use. Writes are idempotent: rewriting identical
// bytes at the same location is a no-op, while different bytes fail with
// ErrConflictingWrite. Archive entries are never replaced.
type Writer struct {
	root   string
	fs     afero.Fs
	base   string
	format string
	bundle layout.Granularity
	method uint16
	locker *lock.Locker
	l      *zap.Logger

	mu     sync.RWMutex
	closed bool

	written   atomic.Int64
	unchanged atomic.Int64
	size      atomic.Int64
}

// WriterOption is a functor to build a writer with some options
type WriterOption func(*Writer)

// Name sets the base name of output files. Defaults to the base name of the output root.
func Name(base string) WriterOption {
	return func(w *Writer) {
		if base != "" {
			w.base = base
		}
	}
}

// OutputFormat sets the extension of output files. Defaults to the extension of each record.
func OutputFormat(ext string) WriterOption {
	return func(w *Writer) {
		w.format = trimExt(ext)
	}
}

// Bundle sets the granularity at which files are grouped into archives. Defaults to layout.None.
//
// Each new entry rebuilds its archive into a staged copy, so filling an archive
// of n entries copies O(n²) bytes. Prefer finer granularities for large bundles.
func Bundle(g layout.Granularity) WriterOption {
	return func(w *Writer) {
		w.bundle = g
	}
}

// Compression sets the zip method of archive entries: zip.Store (default), zip.Deflate or zstd.ZipMethodWinZip
func Compression(method uint16) WriterOption {
	return func(w *Writer) {
		w.method = method
	}
}

// Locker sets the locker serializing archive appends and loose file writes
func Locker(lk *lock.Locker) WriterOption {
	return func(w *Writer) {
		if lk != nil {
			w.locker = lk
		}
	}
}

// WriterFs sets the file system to write to. Defaults to the OS file system.
func WriterFs(fs afero.Fs) WriterOption {
	return func(w *Writer) {
		if fs != nil {
			w.fs = fs
		}
	}
}

// WriterLogger sets the logger of a writer
func WriterLogger(l *zap.Logger) WriterOption {
	return func(w *Writer) {
		if l != nil {
			w.l = l
		}
	}
}

// NewWriter prepares an output root for writing
func NewWriter(root string, opts ...WriterOption) (*Writer, error) {
	w := &Writer{
		root:   root,
		fs:     afero.NewOsFs(),
		base:   layout.BaseName(root),
		method: zip.Store,
		l:      zap.NewNop(),
	}
	for _, apply := range opts {
		apply(w)
	}
	if w.base == "" {
		w.base = "timestream"
	}
	if w.locker == nil {
		w.locker = localLocker
		if _, isOS := w.fs.(*afero.OsFs); isOS {
			w.locker = osLocker
		}
	}
	if err := w.fs.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return w, nil
}

// Root of the output timestream
func (w *Writer) Root() string { return w.root }

// Target computes where a record is written, relative to the output root
func (w *Writer) Target(rec *Record) layout.Target {
	format := w.format
	if format == "" {
		format = rec.Ext()
	}
	return layout.Plan(w.base, rec.Instant, format, w.bundle)
}

// Write a record. Its content is fetched, then stored as one atomic step.
func (w *Writer) Write(ctx context.Context, rec *Record) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return status.ErrClosed
	}

	data, err := rec.Fetch(ctx)
	if err != nil {
		return err
	}

	target := w.Target(rec)
	var changed bool
	if target.Bundled() {
		archive := filepath.Join(w.root, filepath.FromSlash(target.Archive))
		// the lock file lives next to the archive
		if err = w.fs.MkdirAll(filepath.Dir(archive), 0o755); err != nil {
			return err
		}
		err = w.locker.With(ctx, archive, func() (e error) {
			changed, e = w.appendEntry(archive, target.Entry, rec, data)
			return e
		})
	} else {
		loose := filepath.Join(w.root, filepath.FromSlash(target.Entry))
		if err = w.fs.MkdirAll(filepath.Dir(loose), 0o755); err != nil {
			return err
		}
		err = w.locker.With(ctx, loose, func() (e error) {
			changed, e = w.writeLoose(loose, data)
			return e
		})
	}
	if err != nil {
		return err
	}

	if changed {
		w.written.Inc()
		w.size.Add(int64(len(data)))
	} else {
		w.unchanged.Inc()
	}
	w.l.Debug("record written",
		zap.Stringer("instant", rec.Instant),
		zap.String("archive", target.Archive),
		zap.String("entry", target.Entry),
		zap.Bool("unchanged", !changed),
	)
	return nil
}

func (w *Writer) writeLoose(target string, data []byte) (bool, error) {
	existing, err := afero.ReadFile(w.fs, target)
	switch {
	case err == nil && bytes.Equal(existing, data):
		return false, nil
	case err == nil:
		return false, status.ErrConflictingWrite.Wrapf("file %q holds different content", target)
	case !os.IsNotExist(err):
		return false, err
	}

	return true, w.stage(filepath.Dir(target), target, func(f io.Writer) error {
		_, err := f.Write(data)
		return err
	})
}

// stage writes a temporary sibling file then renames it over the target
func (w *Writer) stage(dir, target string, write func(io.Writer) error) (err error) {
	f, err := afero.TempFile(w.fs, dir, "."+filepath.Base(target)+"-*"+stageSuffix)
	if err != nil {
		return err
	}
	staged := f.Name()
	defer func() {
		if err != nil {
			err = multierr.Append(err, w.fs.Remove(staged))
		}
	}()

	if err = write(f); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return w.fs.Rename(staged, target)
}

// appendEntry adds an entry to a zip archive, unless it already holds it.
//
// The archive is rebuilt into a staged copy: existing entries are copied without
// recompression, then the new entry is added and the copy renamed over the original.
func (w *Writer) appendEntry(archive, entry string, rec *Record, data []byte) (bool, error) {
	var existing []*zip.File
	if f, err := w.fs.Open(archive); err == nil {
		defer func() { _ = f.Close() }()
		info, err := f.Stat()
		if err != nil {
			return false, err
		}
		zr, err := zip.NewReader(f, info.Size())
		if err != nil {
			return false, status.ErrUnsupportedContainer.Wrapf("archive %q: %v", archive, err)
		}
		for _, zf := range zr.File {
			if zf.Name != entry {
				continue
			}
			same, err := sameContent(zf, data)
			if err != nil {
				return false, err
			}
			if same {
				return false, nil
			}
			return false, status.ErrConflictingWrite.Wrapf("entry %q in %q holds different content", entry, archive)
		}
		existing = zr.File
	} else if !os.IsNotExist(err) {
		return false, err
	}

	err := w.stage(filepath.Dir(archive), archive, func(f io.Writer) error {
		zw := zip.NewWriter(f)
		zw.RegisterCompressor(zstd.ZipMethodWinZip, zstd.ZipCompressor())
		for _, zf := range existing {
			if err := zw.Copy(zf); err != nil {
				return err
			}
		}
		out, err := zw.CreateHeader(&zip.FileHeader{
			Name:     entry,
			Method:   w.method,
			Modified: rec.Instant.Time(),
		})
		if err != nil {
			return err
		}
		if _, err = out.Write(data); err != nil {
			return err
		}
		return zw.Close()
	})
	if err != nil {
		return false, err
	}
	if len(existing) == 0 {
		w.l.Info("new archive", zap.String("archive", archive))
	}
	return true, nil
}

func sameContent(zf *zip.File, data []byte) (bool, error) {
	if zf.UncompressedSize64 != uint64(len(data)) {
		return false, nil
	}
	rc, err := zf.Open()
	if err != nil {
		return false, err
	}
	defer func() { _ = rc.Close() }()
	existing, err := io.ReadAll(rc)
	if err != nil {
		return false, err
	}
	return bytes.Equal(existing, data), nil
}

// WriterStats counts what a writer did
type WriterStats struct {
	Written   int64
	Unchanged int64
	Bytes     int64
}

// Stats of this writer so far
func (w *Writer) Stats() WriterStats {
	return WriterStats{
		Written:   w.written.Load(),
		Unchanged: w.unchanged.Load(),
		Bytes:     w.size.Load(),
	}
}

// Close the writer. It waits for writes in progress, and may be called many times.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	stats := w.Stats()
	w.l.Info("writer closed",
		zap.String("root", w.root),
		zap.Int64("written", stats.Written),
		zap.Int64("unchanged", stats.Unchanged),
		zap.String("size", units.HumanSize(float64(stats.Bytes))),
	)
	return nil
}

func trimExt(ext string) string {
	for len(ext) > 0 && ext[0] == '.' {
		ext = ext[1:]
	}
	return ext
}
