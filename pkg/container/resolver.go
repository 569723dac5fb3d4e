// Copyright © 2018 One Concern

package container

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"iter"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/karrick/godirwalk"
	"github.com/klauspost/compress/zip"
	"github.com/oneconcern/timestream/pkg/content"
	"github.com/oneconcern/timestream/pkg/instant"
	"github.com/oneconcern/timestream/pkg/lock"
	"github.com/oneconcern/timestream/pkg/status"
	"github.com/spf13/afero"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Entry is one timestream file found in a container
type Entry struct {
	// Name is the base name of the file
	Name string
	// Location of the file: a path, or archive!entry for archive members
	Location string
	Instant  instant.Instant
	Content  *content.Handle
}

// Resolver lists the timestream entries found under a root
type Resolver struct {
	fs     afero.Fs
	accept func(string) bool
	l      *zap.Logger
}

// Option for a Resolver
type Option func(*Resolver)

// Fs sets the file system to resolve roots on. Defaults to the OS file system.
func Fs(fs afero.Fs) Option {
	return func(r *Resolver) {
		if fs != nil {
			r.fs = fs
		}
	}
}

// Accept sets the predicate selecting entries by base name.
//
// Names without a valid instant are always skipped, whatever the predicate.
func Accept(fn func(name string) bool) Option {
	return func(r *Resolver) {
		r.accept = fn
	}
}

// Logger for a Resolver
func Logger(l *zap.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.l = l
		}
	}
}

// New resolver
func New(opts ...Option) *Resolver {
	r := &Resolver{
		fs: afero.NewOsFs(),
		l:  zap.NewNop(),
	}
	for _, apply := range opts {
		apply(r)
	}
	return r
}

// ignored names are hidden files, e.g. staged writes, and lock files
func ignored(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasSuffix(name, lock.Suffix)
}

func (r *Resolver) accepts(name string) (instant.Instant, bool) {
	if ignored(name) {
		return instant.Instant{}, false
	}
	i, ok := instant.FromName(name)
	if !ok {
		return i, false
	}
	if r.accept != nil && !r.accept(name) {
		return i, false
	}
	return i, true
}

// Listing is a resolved root. It may be iterated many times.
type Listing struct {
	r        *Resolver
	root     string
	format   Format
	dir      bool
	unsorted atomic.Bool
}

// Resolve a root. It fails with ErrNotFound if the root does not exist, and
// with ErrUnsupportedContainer if it is a file which is neither an archive nor an
// accepted timestream file.
func (r *Resolver) Resolve(root string) (*Listing, error) {
	info, err := r.fs.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, status.ErrNotFound.Wrapf("root %q", root)
		}
		return nil, err
	}
	l := &Listing{r: r, root: root}
	if info.IsDir() {
		l.dir = true
		return l, nil
	}

	format, err := r.sniffFile(root)
	if err != nil {
		return nil, err
	}
	switch format {
	case Tar:
		l.markUnsorted(root)
	case NotContainer:
		if _, ok := r.accepts(path.Base(filepath.ToSlash(root))); !ok {
			return nil, status.ErrUnsupportedContainer.Wrapf("%q", root)
		}
	}
	l.format = format
	r.l.Debug("resolved root", zap.String("root", root), zap.Stringer("format", format))
	return l, nil
}

// Root of this listing
func (l *Listing) Root() string { return l.root }

// Sorted tells if entries are sorted chronologically within each directory or
// archive. Across levels, a directory's files come before its subdirectories.
//
// It turns false as soon as a tar archive is met, and stays so.
func (l *Listing) Sorted() bool { return !l.unsorted.Load() }

func (l *Listing) markUnsorted(archive string) {
	if l.unsorted.CompareAndSwap(false, true) {
		l.r.l.Warn("tar archives are streamed in on-disk order: entries are not sorted",
			zap.String("root", l.root), zap.String("archive", archive))
	}
}

// All entries, lazily resolved. Each call re-resolves the root from scratch.
//
// Iteration stops after the first error.
func (l *Listing) All(ctx context.Context) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		w := &walker{Listing: l, ctx: ctx, yield: yield}
		switch {
		case l.dir:
			w.dir(l.root)
		case l.format == Zip:
			w.archive(fileArchive(l.r.fs, l.root), Zip)
		case l.format == Tar:
			w.archive(fileArchive(l.r.fs, l.root), Tar)
		default:
			w.loose(l.root)
		}
	}
}

// walker holds the state of one iteration
type walker struct {
	*Listing
	ctx   context.Context
	yield func(Entry, error) bool
	done  bool
}

func (w *walker) emit(e Entry) bool {
	if w.done {
		return false
	}
	if err := w.ctx.Err(); err != nil {
		return w.fail(err)
	}
	if !w.yield(e, nil) {
		w.done = true
	}
	return !w.done
}

func (w *walker) fail(err error) bool {
	if !w.done {
		w.done = true
		w.yield(Entry{}, err)
	}
	return false
}

func (w *walker) loose(p string) bool {
	name := path.Base(filepath.ToSlash(p))
	i, ok := w.r.accepts(name)
	if !ok {
		return true
	}
	return w.emit(Entry{Name: name, Location: p, Instant: i, Content: content.FilePath(w.r.fs, p)})
}

// dir emits the files of a directory sorted by instant, then recurses into sorted subdirectories
func (w *walker) dir(dir string) bool {
	files, dirs, err := w.r.readDir(dir)
	if err != nil {
		return w.fail(err)
	}
	sortByInstant(files)
	sort.Strings(dirs)

	for _, name := range files {
		if ignored(name) {
			continue
		}
		p := filepath.Join(dir, name)
		format, err := w.r.sniffFile(p)
		if err != nil {
			return w.fail(err)
		}
		if format != NotContainer {
			if format == Tar {
				w.markUnsorted(p)
			}
			if !w.archive(fileArchive(w.r.fs, p), format) {
				return false
			}
			continue
		}
		if !w.loose(p) {
			return false
		}
	}
	for _, name := range dirs {
		if !w.dir(filepath.Join(dir, name)) {
			return false
		}
	}
	return true
}

// archiveRef locates an archive: a file, or an entry of another archive
type archiveRef struct {
	fs       afero.Fs
	path     string
	location string
	handle   *content.Handle // nil for archive files
}

func fileArchive(fs afero.Fs, p string) archiveRef {
	return archiveRef{fs: fs, path: p, location: p}
}

func (a archiveRef) entry(format Format, name string) *content.Handle {
	switch {
	case a.handle == nil && format == Zip:
		return content.ZipEntry(a.fs, a.path, name)
	case a.handle == nil:
		return content.TarEntry(a.fs, a.path, name)
	case format == Zip:
		return content.ZipEntryOf(a.handle, name)
	default:
		return content.TarEntryOf(a.handle, name)
	}
}

func (a archiveRef) nested(format Format, name string) archiveRef {
	return archiveRef{location: a.location + "!" + name, handle: a.entry(format, name)}
}

// open an independent reader on the archive
func (a archiveRef) open(ctx context.Context) (io.ReaderAt, int64, func(), error) {
	if a.handle != nil {
		data, err := a.handle.Fetch(ctx)
		if err != nil {
			return nil, 0, nil, err
		}
		return bytes.NewReader(data), int64(len(data)), func() {}, nil
	}
	f, err := a.fs.Open(a.path)
	if err != nil {
		return nil, 0, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, nil, err
	}
	return f, info.Size(), func() { _ = f.Close() }, nil
}

func (w *walker) archive(a archiveRef, format Format) bool {
	ra, size, closer, err := a.open(w.ctx)
	if err != nil {
		return w.fail(err)
	}
	defer closer()
	if format == Zip {
		return w.zip(a, ra, size)
	}
	return w.tar(a, io.NewSectionReader(ra, 0, size))
}

func (w *walker) zip(a archiveRef, ra io.ReaderAt, size int64) bool {
	zr, err := zip.NewReader(ra, size)
	if err != nil {
		return w.fail(status.ErrUnsupportedContainer.Wrapf("%s: %v", a.location, err))
	}
	names := make([]string, 0, len(zr.File))
	byName := make(map[string]*zip.File, len(zr.File))
	for _, zf := range zr.File {
		if zf.FileInfo().IsDir() {
			continue
		}
		names = append(names, zf.Name)
		byName[zf.Name] = zf
	}
	sortByInstant(names)

	for _, name := range names {
		base := path.Base(name)
		format, err := sniffZipFile(byName[name])
		if err != nil {
			return w.fail(err)
		}
		if format != NotContainer {
			if format == Tar {
				w.markUnsorted(a.location + "!" + name)
			}
			if !w.archive(a.nested(Zip, name), format) {
				return false
			}
			continue
		}
		i, ok := w.r.accepts(base)
		if !ok {
			continue
		}
		if !w.emit(Entry{Name: base, Location: a.location + "!" + name, Instant: i, Content: a.entry(Zip, name)}) {
			return false
		}
	}
	return true
}

func (w *walker) tar(a archiveRef, r io.Reader) bool {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return true
		}
		if err != nil {
			return w.fail(status.ErrUnsupportedContainer.Wrapf("%s: %v", a.location, err))
		}
		if !hdr.FileInfo().Mode().IsRegular() {
			continue
		}
		base := path.Base(hdr.Name)
		i, ok := w.r.accepts(base)

		head := make([]byte, sniffLen)
		n, err := io.ReadFull(tr, head)
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return w.fail(err)
		}
		format := Sniff(head[:n])
		if format == NotContainer && !ok {
			continue
		}
		rest, err := io.ReadAll(tr)
		if err != nil {
			return w.fail(err)
		}
		h := a.entry(Tar, hdr.Name)
		h.Prime(append(head[:n], rest...))

		if format != NotContainer {
			if format == Tar {
				w.markUnsorted(a.location + "!" + hdr.Name)
			}
			ref := archiveRef{location: a.location + "!" + hdr.Name, handle: h}
			if !w.archive(ref, format) {
				return false
			}
			continue
		}
		if !w.emit(Entry{Name: base, Location: a.location + "!" + hdr.Name, Instant: i, Content: h}) {
			return false
		}
	}
}

func sniffZipFile(zf *zip.File) (Format, error) {
	rc, err := zf.Open()
	if err != nil {
		return NotContainer, err
	}
	defer func() { _ = rc.Close() }()
	return SniffReader(rc)
}

func (r *Resolver) sniffFile(p string) (Format, error) {
	f, err := r.fs.Open(p)
	if err != nil {
		return NotContainer, err
	}
	defer func() { _ = f.Close() }()
	return SniffReader(f)
}

// sortByInstant sorts names chronologically, then by full name. Names without an
// instant, such as archives, come last.
func sortByInstant(names []string) {
	type keyed struct {
		name    string
		at      instant.Instant
		instant bool
	}
	keys := make([]keyed, len(names))
	for k, name := range names {
		at, ok := instant.FromName(path.Base(name))
		keys[k] = keyed{name: name, at: at, instant: ok}
	}
	sort.SliceStable(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.instant != b.instant {
			return a.instant
		}
		if c := instant.Compare(a.at, b.at); c != 0 {
			return c < 0
		}
		return a.name < b.name
	})
	for k := range keys {
		names[k] = keys[k].name
	}
}

// readDir splits the content of a directory into files and subdirectories.
// Symbolic links are followed.
func (r *Resolver) readDir(dir string) (files, dirs []string, err error) {
	if _, isOS := r.fs.(*afero.OsFs); isOS {
		return readOSDir(dir)
	}
	infos, err := afero.ReadDir(r.fs, dir)
	if err != nil {
		return nil, nil, err
	}
	for _, info := range infos {
		switch {
		case info.IsDir():
			dirs = append(dirs, info.Name())
		case info.Mode().IsRegular():
			files = append(files, info.Name())
		}
	}
	return files, dirs, nil
}

func readOSDir(dir string) (files, dirs []string, err error) {
	dirents, err := godirwalk.ReadDirents(dir, nil)
	if err != nil {
		return nil, nil, err
	}
	for _, de := range dirents {
		switch {
		case de.IsDir():
			dirs = append(dirs, de.Name())
		case de.IsRegular():
			files = append(files, de.Name())
		case de.IsSymlink():
			info, err := os.Stat(filepath.Join(dir, de.Name()))
			if err != nil {
				// dangling link
				continue
			}
			if info.IsDir() {
				dirs = append(dirs, de.Name())
			} else if info.Mode().IsRegular() {
				files = append(files, de.Name())
			}
		}
	}
	return files, dirs, nil
}
