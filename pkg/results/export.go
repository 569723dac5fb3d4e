// Copyright © 2018 One Concern

package results

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
)

// InstantColumn is the header of the first exported column
const InstantColumn = "instant"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// WriteDelimited exports the table as delimited text, e.g. with ',' or '\t' as separator.
//
// The first column holds instants, rows are in chronological order and missing
// values are rendered as NA.
func (t *Table) WriteDelimited(w io.Writer, sep rune) error {
	fields, rows := t.Rows()
	cw := csv.NewWriter(w)
	cw.Comma = sep

	record := make([]string, len(fields)+1)
	record[0] = InstantColumn
	copy(record[1:], fields)
	if err := cw.Write(record); err != nil {
		return err
	}
	for _, r := range rows {
		record[0] = r.Instant.String()
		for i, field := range fields {
			v, ok := r.Values[field]
			if !ok || v == nil {
				record[i+1] = NA
				continue
			}
			record[i+1] = fmt.Sprint(v)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSONLines exports the table as one JSON object per row, in chronological order.
// Missing values are rendered as null.
func (t *Table) WriteJSONLines(w io.Writer) error {
	fields, rows := t.Rows()
	stream := json.BorrowStream(w)
	defer json.ReturnStream(stream)

	for _, r := range rows {
		stream.WriteObjectStart()
		stream.WriteObjectField(InstantColumn)
		stream.WriteString(r.Instant.String())
		for _, field := range fields {
			stream.WriteMore()
			stream.WriteObjectField(field)
			stream.WriteVal(r.Values[field])
		}
		stream.WriteObjectEnd()
		stream.WriteRaw("\n")
		if stream.Error != nil {
			return stream.Error
		}
	}
	return stream.Flush()
}

// Export writes the table in the format told by the extension of name:
// .json or .jsonl for JSON lines, .csv for comma-separated values, tab-separated values otherwise.
func (t *Table) Export(w io.Writer, name string) error {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".jsonl":
		return t.WriteJSONLines(w)
	case ".csv":
		return t.WriteDelimited(w, ',')
	default:
		return t.WriteDelimited(w, '\t')
	}
}

// SaveFile atomically replaces a file with an export of the table
func (t *Table) SaveFile(fs afero.Fs, name string) (err error) {
	dir := filepath.Dir(name)
	if err = fs.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := afero.TempFile(fs, dir, "."+filepath.Base(name)+"-*.put-stage")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, fs.Remove(f.Name()))
		}
	}()
	if err = t.Export(f, name); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return fs.Rename(f.Name(), name)
}
