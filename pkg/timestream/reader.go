// Copyright © 2018 One Concern

package timestream

import (
	"context"
	"iter"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	lru "github.com/hashicorp/golang-lru"
	"github.com/klauspost/compress/zip"
	"github.com/oneconcern/timestream/pkg/container"
	"github.com/oneconcern/timestream/pkg/content"
	"github.com/oneconcern/timestream/pkg/instant"
	"github.com/oneconcern/timestream/pkg/layout"
	"github.com/oneconcern/timestream/pkg/status"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Reader of a timestream
type Reader struct {
	root    string
	fs      afero.Fs
	format  string
	filter  *instant.TimeFilter
	pattern string
	lookups int
	l       *zap.Logger

	listing *container.Listing
	handles *lru.Cache
}

// DefaultLookupCacheSize is the number of content handles kept by Lookup
const DefaultLookupCacheSize = 128

// ReaderOption is a functor to build a reader with some options
type ReaderOption func(*Reader)

// FormatFilter restricts records to a file extension, e.g. "jpg". Matching ignores case.
func FormatFilter(ext string) ReaderOption {
	return func(r *Reader) {
		r.format = strings.ToLower(strings.TrimPrefix(ext, "."))
	}
}

// TimeFilter restricts records to a date and time-of-day range
func TimeFilter(f *instant.TimeFilter) ReaderOption {
	return func(r *Reader) {
		r.filter = f
	}
}

// NamePattern restricts records to base names matching a glob, e.g. "cam1_*"
func NamePattern(glob string) ReaderOption {
	return func(r *Reader) {
		r.pattern = glob
	}
}

// LookupCache sets the number of content handles kept by Lookup, so that
// looking up a record again reuses its fetched content. Zero disables the cache.
func LookupCache(size int) ReaderOption {
	return func(r *Reader) {
		if size >= 0 {
			r.lookups = size
		}
	}
}

// ReaderFs sets the file system to read from. Defaults to the OS file system.
func ReaderFs(fs afero.Fs) ReaderOption {
	return func(r *Reader) {
		if fs != nil {
			r.fs = fs
		}
	}
}

// ReaderLogger sets the logger of a reader
func ReaderLogger(l *zap.Logger) ReaderOption {
	return func(r *Reader) {
		if l != nil {
			r.l = l
		}
	}
}

// Open a timestream for reading.
//
// The root is resolved right away: a missing root fails with ErrNotFound, a file
// which is neither an archive nor a timestream file with ErrUnsupportedContainer.
func Open(root string, opts ...ReaderOption) (*Reader, error) {
	r := &Reader{
		root:    root,
		fs:      afero.NewOsFs(),
		lookups: DefaultLookupCacheSize,
		l:       zap.NewNop(),
	}
	for _, apply := range opts {
		apply(r)
	}
	if r.pattern != "" && !doublestar.ValidatePattern(r.pattern) {
		return nil, status.ErrInvalidPattern.Wrapf("%q", r.pattern)
	}

	listing, err := container.New(
		container.Fs(r.fs),
		container.Accept(r.accepts),
		container.Logger(r.l),
	).Resolve(root)
	if err != nil {
		return nil, err
	}
	r.listing = listing
	if r.lookups > 0 {
		if r.handles, err = lru.New(r.lookups); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Reader) accepts(name string) bool {
	if r.format != "" && !strings.EqualFold(strings.TrimPrefix(path.Ext(name), "."), r.format) {
		return false
	}
	if r.pattern != "" {
		if ok, _ := doublestar.Match(r.pattern, name); !ok {
			return false
		}
	}
	return true
}

// Root of the timestream
func (r *Reader) Root() string { return r.root }

// Sorted tells if records came in chronological order so far.
//
// It turns false as soon as a tar archive is met while iterating.
func (r *Reader) Sorted() bool { return r.listing.Sorted() }

// All records, lazily. Each call resolves the root again from scratch.
//
// Iteration stops after the first error.
func (r *Reader) All(ctx context.Context) iter.Seq2[*Record, error] {
	return func(yield func(*Record, error) bool) {
		for e, err := range r.listing.All(ctx) {
			if err != nil {
				yield(nil, err)
				return
			}
			if !r.filter.Match(e.Instant) {
				continue
			}
			if !yield(NewRecord(e.Instant, e.Name, e.Content), nil) {
				return
			}
		}
	}
}

// Instants of all records, lazily
func (r *Reader) Instants(ctx context.Context) iter.Seq2[instant.Instant, error] {
	return func(yield func(instant.Instant, error) bool) {
		for rec, err := range r.All(ctx) {
			if err != nil {
				yield(instant.Instant{}, err)
				return
			}
			if !yield(rec.Instant, nil) {
				return
			}
		}
	}
}

// Index maps instants to records
type Index struct {
	records  map[string]*Record
	instants []instant.Instant
}

// Get the record at some instant
func (x *Index) Get(i instant.Instant) (*Record, bool) {
	rec, ok := x.records[i.String()]
	return rec, ok
}

// Instants in chronological order
func (x *Index) Instants() []instant.Instant { return x.instants }

// Len of the index
func (x *Index) Len() int { return len(x.records) }

// Index reads all records into memory, keyed by instant.
//
// Two records at the same instant fail with ErrDuplicateInstant.
func (r *Reader) Index(ctx context.Context) (*Index, error) {
	x := &Index{records: make(map[string]*Record)}
	for rec, err := range r.All(ctx) {
		if err != nil {
			return nil, err
		}
		key := rec.Instant.String()
		if prev, dup := x.records[key]; dup {
			return nil, status.ErrDuplicateInstant.Wrapf("%s: %s and %s", key, prev.Content, rec.Content)
		}
		x.records[key] = rec
		x.instants = append(x.instants, rec.Instant)
	}
	sort.SliceStable(x.instants, func(i, j int) bool { return x.instants[i].Before(x.instants[j]) })
	return x, nil
}

// Lookup a single record by file name.
//
// Directories are probed at the name, then at its loose layout location, before
// falling back to a walk. Zip archives are looked up in their central directory.
// It fails with ErrNoTimestampFound if the name carries no instant, with ErrNotFound
// if no such record exists.
func (r *Reader) Lookup(ctx context.Context, name string) (*Record, error) {
	name = path.Base(filepath.ToSlash(name))
	i, ok := instant.FromName(name)
	if !ok {
		return nil, status.ErrNoTimestampFound.Wrapf("%q", name)
	}
	if !r.accepts(name) || !r.filter.Match(i) {
		return nil, status.ErrNotFound.Wrapf("%q in %s", name, r.root)
	}
	if r.handles != nil {
		if h, ok := r.handles.Get(name); ok {
			return NewRecord(i, name, h.(*content.Handle)), nil
		}
	}

	rec, err := r.lookup(ctx, name, i)
	if err != nil {
		return nil, err
	}
	if r.handles != nil {
		r.handles.Add(name, rec.Content)
	}
	return rec, nil
}

func (r *Reader) lookup(ctx context.Context, name string, i instant.Instant) (*Record, error) {
	info, err := r.fs.Stat(r.root)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		dirs := layout.Skeleton(i)
		for _, candidate := range []string{
			filepath.Join(r.root, name),
			filepath.Join(r.root, filepath.Join(dirs[:]...), name),
		} {
			if fi, err := r.fs.Stat(candidate); err == nil && fi.Mode().IsRegular() {
				return NewRecord(i, name, content.FilePath(r.fs, candidate)), nil
			}
		}
	} else if rec, found, err := r.lookupZip(name, i); err != nil || found {
		return rec, err
	}

	r.l.Debug("lookup falls back to a walk", zap.String("root", r.root), zap.String("name", name))
	for rec, err := range r.All(ctx) {
		if err != nil {
			return nil, err
		}
		if rec.Name == name {
			return rec, nil
		}
	}
	return nil, status.ErrNotFound.Wrapf("%q in %s", name, r.root)
}

// lookupZip searches the central directory of a zip root
func (r *Reader) lookupZip(name string, i instant.Instant) (*Record, bool, error) {
	f, err := r.fs.Open(r.root)
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = f.Close() }()

	format, err := container.SniffReader(f)
	if err != nil || format != container.Zip {
		return nil, false, err
	}
	info, err := f.Stat()
	if err != nil {
		return nil, false, err
	}
	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		return nil, false, err
	}
	for _, zf := range zr.File {
		if path.Base(zf.Name) == name && !zf.FileInfo().IsDir() {
			return NewRecord(i, name, content.ZipEntry(r.fs, r.root, zf.Name)), true, nil
		}
	}
	// nested archives are left to the walk
	for _, zf := range zr.File {
		if ext := strings.ToLower(path.Ext(zf.Name)); ext == ".zip" || ext == ".tar" {
			return nil, false, nil
		}
	}
	return nil, false, status.ErrNotFound.Wrapf("%q in %s", name, r.root)
}
