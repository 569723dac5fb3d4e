// Copyright © 2018 One Concern

package results

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/oneconcern/timestream/pkg/errors"
	"github.com/oneconcern/timestream/pkg/instant"
	"github.com/oneconcern/timestream/pkg/status"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	t1 = instant.MustParse("2001_02_01_09_14_15_00")
	t2 = instant.MustParse("2001_02_01_10_14_15_00")
	t3 = instant.MustParse("2001_02_02_09_14_15_00")
)

func sampleTable(t *testing.T) *Table {
	tbl := NewTable()
	require.NoError(t, tbl.Merge(t3, map[string]interface{}{"size": 3, "mean": 0.5}))
	require.NoError(t, tbl.Merge(t1, map[string]interface{}{"size": 1}))
	require.NoError(t, tbl.Merge(t2, map[string]interface{}{"qr": "cam1", "size": 2}))
	return tbl
}

func TestTableMerge(t *testing.T) {
	tbl := sampleTable(t)
	assert.Equal(t, 3, tbl.Len())
	assert.Equal(t, []string{"mean", "size", "qr"}, tbl.Fields(), "first-seen order, sorted within a report")

	err := tbl.Merge(t1, map[string]interface{}{"size": 10})
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrDuplicateInstant))
	values, ok := tbl.Get(t1)
	require.True(t, ok)
	assert.Equal(t, 1, values["size"], "a failed merge changes nothing")

	tbl.Record(t1, "note", "late")
	values, _ = tbl.Get(t1)
	assert.Equal(t, "late", values["note"])

	lww := NewTable(Duplicates(Overwrite))
	require.NoError(t, lww.Merge(t1, map[string]interface{}{"size": 1, "a": true}))
	require.NoError(t, lww.Merge(t1, map[string]interface{}{"size": 2}))
	values, _ = lww.Get(t1)
	assert.Equal(t, map[string]interface{}{"size": 2, "a": true}, values)

	// indexed instants are distinct rows
	require.NoError(t, tbl.Merge(t1.WithIndex("01"), map[string]interface{}{"size": 4}))
	assert.Equal(t, 4, tbl.Len())
}

func TestTableConcurrentMerge(t *testing.T) {
	tbl := NewTable()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			at := t1.WithIndex(strings.Repeat("x", n+1))
			assert.NoError(t, tbl.Merge(at, map[string]interface{}{"n": n}))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 50, tbl.Len())
	assert.Equal(t, []string{"n"}, tbl.Fields())
}

func TestWriteDelimited(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleTable(t).WriteDelimited(&buf, '\t'))
	assert.Equal(t, strings.Join([]string{
		"instant\tmean\tsize\tqr",
		"2001_02_01_09_14_15_00\tNA\t1\tNA",
		"2001_02_01_10_14_15_00\tNA\t2\tcam1",
		"2001_02_02_09_14_15_00\t0.5\t3\tNA",
		"",
	}, "\n"), buf.String())
}

func TestWriteJSONLines(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleTable(t).WriteJSONLines(&buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.JSONEq(t, `{"instant":"2001_02_01_09_14_15_00","mean":null,"size":1,"qr":null}`, lines[0])
	assert.JSONEq(t, `{"instant":"2001_02_02_09_14_15_00","mean":0.5,"size":3,"qr":null}`, lines[2])
}

func TestSaveFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	tbl := sampleTable(t)
	require.NoError(t, tbl.SaveFile(fs, "/out/results.csv"))
	require.NoError(t, tbl.SaveFile(fs, "/out/results.jsonl"))

	tbl.Record(t3, "late", 1)
	require.NoError(t, tbl.SaveFile(fs, "/out/results.csv"))

	data, err := afero.ReadFile(fs, "/out/results.csv")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "instant,mean,size,qr,late\n"))

	infos, err := afero.ReadDir(fs, "/out")
	require.NoError(t, err)
	assert.Len(t, infos, 2, "no staged file is left behind")
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("Overwrite")
	require.NoError(t, err)
	assert.Equal(t, Overwrite, p)
	p, err = ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, Fail, p)
	_, err = ParsePolicy("merge")
	assert.True(t, errors.Is(err, status.ErrInvalidPolicy))
}
