// Copyright © 2018 One Concern

// Package results accumulates per-instant results of a pipeline run, and exports them as tables.
package results

import (
	"sort"
	"strings"
	"sync"

	"github.com/oneconcern/timestream/pkg/instant"
	"github.com/oneconcern/timestream/pkg/status"
)

// NA renders missing values on export
const NA = "NA"

// Policy on duplicate instants
type Policy uint8

// Duplicate policies
const (
	// Fail a merge for an instant which has already been merged
	Fail Policy = iota
	// Overwrite merges fields from later merges over earlier ones
	Overwrite
)

func (p Policy) String() string {
	if p == Overwrite {
		return "overwrite"
	}
	return "fail"
}

// ParsePolicy parses fail or overwrite
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "", "fail":
		return Fail, nil
	case "overwrite":
		return Overwrite, nil
	default:
		return Fail, status.ErrInvalidPolicy.Wrapf("duplicates: %q: expected fail|overwrite", s)
	}
}

// Table is a sparse table of values, keyed by instant.
//
// Columns are recorded in first-seen order. A Table is safe for concurrent use.
type Table struct {
	mu     sync.Mutex
	rows   map[string]*row
	fields []string
	known  map[string]struct{}
	policy Policy
}

type row struct {
	at     instant.Instant
	values map[string]interface{}
	merged bool
}

// Option for a Table
type Option func(*Table)

// Duplicates sets the policy on duplicate instants. Defaults to Fail.
func Duplicates(p Policy) Option {
	return func(t *Table) {
		t.policy = p
	}
}

// NewTable builds an empty table
func NewTable(opts ...Option) *Table {
	t := &Table{
		rows:  make(map[string]*row),
		known: make(map[string]struct{}),
	}
	for _, apply := range opts {
		apply(t)
	}
	return t
}

// Record sets a value at some instant. It never fails on duplicates.
func (t *Table) Record(at instant.Instant, field string, value interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := t.row(at)
	t.learn(field)
	r.values[field] = value
}

// Merge the report of a record processed at some instant.
//
// A second merge for the same instant fails with ErrDuplicateInstant, unless
// the table has the Overwrite policy.
func (t *Table) Merge(at instant.Instant, report map[string]interface{}) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := t.row(at)
	if r.merged && t.policy == Fail {
		return status.ErrDuplicateInstant.Wrapf("%s", at)
	}
	r.merged = true

	fields := make([]string, 0, len(report))
	for field := range report {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		t.learn(field)
		r.values[field] = report[field]
	}
	return nil
}

func (t *Table) row(at instant.Instant) *row {
	key := at.String()
	r, ok := t.rows[key]
	if !ok {
		r = &row{at: at, values: make(map[string]interface{})}
		t.rows[key] = r
	}
	return r
}

func (t *Table) learn(field string) {
	if _, ok := t.known[field]; !ok {
		t.known[field] = struct{}{}
		t.fields = append(t.fields, field)
	}
}

// Len is the number of rows
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.rows)
}

// Fields in first-seen order
func (t *Table) Fields() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.fields...)
}

// Get a copy of the values at some instant
func (t *Table) Get(at instant.Instant) (map[string]interface{}, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.rows[at.String()]
	if !ok {
		return nil, false
	}
	values := make(map[string]interface{}, len(r.values))
	for k, v := range r.values {
		values[k] = v
	}
	return values, true
}

// Row of an exported table
type Row struct {
	Instant instant.Instant
	Values  map[string]interface{}
}

// Rows returns a snapshot of the table, in chronological order
func (t *Table) Rows() ([]string, []Row) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rows := make([]Row, 0, len(t.rows))
	for _, r := range t.rows {
		values := make(map[string]interface{}, len(r.values))
		for k, v := range r.values {
			values[k] = v
		}
		rows = append(rows, Row{Instant: r.at, Values: values})
	}
	sort.Slice(rows, func(i, j int) bool {
		if c := instant.Compare(rows[i].Instant, rows[j].Instant); c != 0 {
			return c < 0
		}
		return rows[i].Instant.String() < rows[j].Instant.String()
	})
	return append([]string(nil), t.fields...), rows
}
