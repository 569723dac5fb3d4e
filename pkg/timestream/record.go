// Copyright © 2018 One Concern

package timestream

import (
	"context"
	"path"
	"strings"

	"github.com/oneconcern/timestream/pkg/content"
	"github.com/oneconcern/timestream/pkg/instant"
)

// Record is one file of a timestream
type Record struct {
	Instant instant.Instant
	// Name is the base file name, without directory
	Name    string
	Content *content.Handle
	// Report holds results computed while processing this record
	Report map[string]interface{}
	// Value holds a decoded form of the content, if any
	Value interface{}
}

// NewRecord builds a record
func NewRecord(i instant.Instant, name string, h *content.Handle) *Record {
	return &Record{
		Instant: i,
		Name:    path.Base(name),
		Content: h,
		Report:  make(map[string]interface{}),
	}
}

// FromBytes builds a record with inline content, taking its instant from the name
func FromBytes(name string, data []byte) (*Record, error) {
	i, err := instant.Parse(name)
	if err != nil {
		return nil, err
	}
	return NewRecord(i, name, content.Inline(data)), nil
}

// Derive a record from this one. The report is copied, so that the new record
// carries it forward without sharing it.
func (r *Record) Derive() *Record {
	d := *r
	d.Report = make(map[string]interface{}, len(r.Report))
	for k, v := range r.Report {
		d.Report[k] = v
	}
	return &d
}

// Ext is the lower-case extension of the record name, without a leading dot
func (r *Record) Ext() string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(r.Name), "."))
}

// Fetch the content bytes
func (r *Record) Fetch(ctx context.Context) ([]byte, error) {
	return r.Content.Fetch(ctx)
}

// Set a report field
func (r *Record) Set(field string, value interface{}) {
	if r.Report == nil {
		r.Report = make(map[string]interface{})
	}
	r.Report[field] = value
}

func (r *Record) String() string {
	return r.Name
}
