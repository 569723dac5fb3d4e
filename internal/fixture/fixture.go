// Copyright © 2018 One Concern

// Package fixture writes reference timestreams for tests, in the various layouts
// a reader must support.
package fixture

import (
	"archive/tar"
	"bytes"
	"fmt"
	"path"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/oneconcern/timestream/internal/rand"
	"github.com/oneconcern/timestream/pkg/instant"
	"github.com/oneconcern/timestream/pkg/layout"
	"github.com/spf13/afero"
)

// PayloadSize of fixture files
const PayloadSize = 512

// File of a fixture timestream
type File struct {
	Name string
	Data []byte
}

// Files of a fixture timestream
type Files []File

// Small is the reference timestream: 10 files over 2 days, hourly from 09:14:15 to 13:14:15.
func Small(ext string) Files {
	files := make(Files, 0, 10)
	for _, day := range []int{1, 2} {
		for hour := 9; hour < 14; hour++ {
			i := instant.New(time.Date(2001, 2, day, hour, 14, 15, 0, time.UTC), 0)
			files = append(files, file(layout.FileName("", i, ext)))
		}
	}
	return files
}

// GVLike is a timestream of 10 files sharing the same second, told apart by an index from 01 to 10
func GVLike(ext string) Files {
	files := make(Files, 0, 10)
	base := instant.New(time.Date(2001, 2, 1, 9, 14, 15, 0, time.UTC), 0)
	for n := 1; n <= 10; n++ {
		files = append(files, file(layout.FileName("", base.WithIndex(fmt.Sprintf("%02d", n)), ext)))
	}
	return files
}

func file(name string) File {
	return File{Name: name, Data: rand.Payload(name, PayloadSize)}
}

// Prefixed returns a copy of the files named with a camera prefix
func (f Files) Prefixed(prefix string) Files {
	out := make(Files, len(f))
	for i, file := range f {
		out[i] = File{Name: prefix + "_" + file.Name, Data: file.Data}
	}
	return out
}

// Reversed returns a copy of the files in reverse order
func (f Files) Reversed() Files {
	out := make(Files, len(f))
	for i, file := range f {
		out[len(f)-1-i] = file
	}
	return out
}

// Names of the files
func (f Files) Names() []string {
	names := make([]string, len(f))
	for i, file := range f {
		names[i] = file.Name
	}
	return names
}

// Instants of the files, in the order of the files
func (f Files) Instants() []instant.Instant {
	out := make([]instant.Instant, len(f))
	for i, file := range f {
		out[i] = instant.MustParse(file.Name)
	}
	return out
}

// ByDay groups the files by their YYYY_MM_DD day, preserving order
func (f Files) ByDay() map[string]Files {
	days := make(map[string]Files)
	for _, file := range f {
		day := instant.MustParse(file.Name).Time().Format("2006_01_02")
		days[day] = append(days[day], file)
	}
	return days
}

// WriteFlat writes the files in a single directory
func WriteFlat(fs afero.Fs, root string, files Files) error {
	for _, f := range files {
		if err := writeFile(fs, path.Join(root, f.Name), f.Data); err != nil {
			return err
		}
	}
	return nil
}

// WriteNested writes the files in the YYYY/YYYY_MM/YYYY_MM_DD/YYYY_MM_DD_HH skeleton
func WriteNested(fs afero.Fs, root string, files Files) error {
	for _, f := range files {
		dirs := layout.Skeleton(instant.MustParse(f.Name))
		if err := writeFile(fs, path.Join(root, path.Join(dirs[:]...), f.Name), f.Data); err != nil {
			return err
		}
	}
	return nil
}

// WriteZip writes the files as a deflated zip archive, with entries in the order of the files
func WriteZip(fs afero.Fs, archive string, files Files) error {
	return writeFile(fs, archive, ZipBytes(files, zip.Deflate))
}

// WriteTar writes the files as an uncompressed tar archive, with entries in the order of the files
func WriteTar(fs afero.Fs, archive string, files Files) error {
	return writeFile(fs, archive, TarBytes(files))
}

// ZipBytes builds a zip archive. Supported methods are zip.Store, zip.Deflate and zstd.ZipMethodWinZip.
func ZipBytes(files Files, method uint16) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(zstd.ZipMethodWinZip, zstd.ZipCompressor())
	for _, f := range files {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: f.Name, Method: method, Modified: time.Unix(0, 0)})
		if err != nil {
			panic(err)
		}
		if _, err = w.Write(f.Data); err != nil {
			panic(err)
		}
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// TarBytes builds an uncompressed tar archive
func TarBytes(files Files) []byte {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, f := range files {
		if err := tw.WriteHeader(&tar.Header{
			Name:     f.Name,
			Mode:     0o644,
			Size:     int64(len(f.Data)),
			Typeflag: tar.TypeReg,
			ModTime:  time.Unix(0, 0),
		}); err != nil {
			panic(err)
		}
		if _, err := tw.Write(f.Data); err != nil {
			panic(err)
		}
	}
	if err := tw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func writeFile(fs afero.Fs, name string, data []byte) error {
	if err := fs.MkdirAll(path.Dir(name), 0o755); err != nil {
		return err
	}
	return afero.WriteFile(fs, name, data, 0o644)
}
