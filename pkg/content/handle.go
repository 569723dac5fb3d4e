// Copyright © 2018 One Concern

// Package content provides lazy, cached references to the bytes of a timestream file,
// whatever its backing medium: memory, a loose file, or an entry in a zip or tar archive.
package content

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/oneconcern/timestream/pkg/errors"
	"github.com/oneconcern/timestream/pkg/status"
	"github.com/spf13/afero"
)

func init() {
	// zip entries compressed with zstd (WinZip method 93) are readable
	zip.RegisterDecompressor(zstd.ZipMethodWinZip, zstd.ZipDecompressor())
}

// Kind of content backing
type Kind uint8

// Supported backings
const (
	KindInline Kind = iota
	KindFile
	KindZipEntry
	KindTarEntry
)

func (k Kind) String() string {
	switch k {
	case KindInline:
		return "inline"
	case KindFile:
		return "file"
	case KindZipEntry:
		return "zip"
	case KindTarEntry:
		return "tar"
	default:
		return "unknown"
	}
}

// Handle refers to the bytes of a single file.
//
// Bytes are fetched on the first call to Fetch and cached for the lifetime of the handle.
// Failed fetches are not cached. A Handle is safe for concurrent use.
//
// Archive-backed handles open their archive on every fetch: no archive handle or
// cursor is ever shared between handles.
type Handle struct {
	kind   Kind
	fs     afero.Fs
	path   string  // loose file or archive path
	entry  string  // entry in archive
	parent *Handle // archive nested in another container

	mu     sync.Mutex
	data   []byte
	cached bool
}

// Inline content
func Inline(data []byte) *Handle {
	return &Handle{kind: KindInline, data: data, cached: true}
}

// FilePath refers to a loose file
func FilePath(fs afero.Fs, path string) *Handle {
	return &Handle{kind: KindFile, fs: fs, path: path}
}

// ZipEntry refers to an entry in a zip archive file
func ZipEntry(fs afero.Fs, archive, entry string) *Handle {
	return &Handle{kind: KindZipEntry, fs: fs, path: archive, entry: entry}
}

// TarEntry refers to an entry in a tar archive file
func TarEntry(fs afero.Fs, archive, entry string) *Handle {
	return &Handle{kind: KindTarEntry, fs: fs, path: archive, entry: entry}
}

// ZipEntryOf refers to an entry in a zip archive which is itself held by another handle
func ZipEntryOf(parent *Handle, entry string) *Handle {
	return &Handle{kind: KindZipEntry, parent: parent, path: parent.String(), entry: entry}
}

// TarEntryOf refers to an entry in a tar archive which is itself held by another handle
func TarEntryOf(parent *Handle, entry string) *Handle {
	return &Handle{kind: KindTarEntry, parent: parent, path: parent.String(), entry: entry}
}

// Kind of backing
func (h *Handle) Kind() Kind { return h.kind }

// Path of the loose file or of the archive holding the entry
func (h *Handle) Path() string { return h.path }

// Entry name in the archive, if any
func (h *Handle) Entry() string { return h.entry }

func (h *Handle) String() string {
	switch h.kind {
	case KindInline:
		return fmt.Sprintf("inline(%d bytes)", len(h.data))
	case KindFile:
		return h.path
	default:
		return h.path + "!" + h.entry
	}
}

// Cached tells if the bytes have already been fetched
func (h *Handle) Cached() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cached
}

// Prime seeds the cache with bytes already read, e.g. while streaming an archive.
// It has no effect on a handle which already holds bytes.
func (h *Handle) Prime(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.cached {
		h.data = data
		h.cached = true
	}
}

// Fetch the bytes. Failures wrap status.ErrContentUnavailable.
//
// The returned slice is shared by all callers and must not be modified.
func (h *Handle) Fetch(ctx context.Context) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cached {
		return h.data, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, status.ErrContentUnavailable.Wrapf("%s: %v", h, err)
	}

	data, err := h.fetch(ctx)
	if err != nil {
		if errors.Is(err, status.ErrContentUnavailable) {
			return nil, err
		}
		return nil, status.ErrContentUnavailable.Wrapf("%s: %v", h, err)
	}
	h.data = data
	h.cached = true
	return data, nil
}

func (h *Handle) fetch(ctx context.Context) ([]byte, error) {
	switch h.kind {
	case KindFile:
		return afero.ReadFile(h.fs, h.path)
	case KindZipEntry:
		ra, size, closer, err := h.archive(ctx)
		if err != nil {
			return nil, err
		}
		defer func() { _ = closer.Close() }()
		return ReadZipEntry(ra, size, h.entry)
	case KindTarEntry:
		ra, size, closer, err := h.archive(ctx)
		if err != nil {
			return nil, err
		}
		defer func() { _ = closer.Close() }()
		return ReadTarEntry(io.NewSectionReader(ra, 0, size), h.entry)
	default:
		return nil, fmt.Errorf("unsupported content kind %v", h.kind)
	}
}

// archive opens an independent reader on the archive holding this entry
func (h *Handle) archive(ctx context.Context) (io.ReaderAt, int64, io.Closer, error) {
	if h.parent != nil {
		data, err := h.parent.Fetch(ctx)
		if err != nil {
			return nil, 0, nil, err
		}
		return bytes.NewReader(data), int64(len(data)), nopCloser{}, nil
	}

	f, err := h.fs.Open(h.path)
	if err != nil {
		return nil, 0, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, nil, err
	}
	return f, info.Size(), f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// ReadZipEntry reads the bytes of a named entry in a zip archive
func ReadZipEntry(ra io.ReaderAt, size int64, entry string) ([]byte, error) {
	zr, err := zip.NewReader(ra, size)
	if err != nil {
		return nil, err
	}
	for _, zf := range zr.File {
		if zf.Name != entry {
			continue
		}
		rc, err := zf.Open()
		if err != nil {
			return nil, err
		}
		defer func() { _ = rc.Close() }()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("entry %q: %w", entry, os.ErrNotExist)
}

// ReadTarEntry scans a tar stream for a named entry and reads its bytes
func ReadTarEntry(r io.Reader, entry string) ([]byte, error) {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil, fmt.Errorf("entry %q: %w", entry, os.ErrNotExist)
		}
		if err != nil {
			return nil, err
		}
		if hdr.Name == entry && hdr.Typeflag != tar.TypeDir {
			return io.ReadAll(tr)
		}
	}
}
