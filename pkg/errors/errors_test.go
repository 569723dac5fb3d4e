// Copyright © 2018 One Concern

package errors

import (
	stderr "errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError(t *testing.T) {
	e1 := New("cause1")
	e2 := New("cause2").Wrap(e1)
	e := New("dummy").Wrap(e2)
	e3 := e.Unwrap()
	assert.True(t, Is(e, e1))
	assert.True(t, Is(e, e2))
	assert.True(t, e3 == e2)
}

func TestWrapKeepsSentinel(t *testing.T) {
	sentinel := New("content unavailable")

	derived := sentinel.Wrap(io.ErrUnexpectedEOF)
	require.Equal(t, "content unavailable: unexpected EOF", derived.Error())
	assert.True(t, Is(derived, sentinel))
	assert.True(t, Is(derived, io.ErrUnexpectedEOF))

	// the sentinel is left untouched
	assert.Equal(t, "content unavailable", sentinel.Error())
	assert.Nil(t, sentinel.Unwrap())
}

func TestWrapf(t *testing.T) {
	sentinel := New("conflicting write")

	derived := sentinel.Wrapf("entry %q", "a/b.jpg").Wrap(io.EOF)
	assert.Equal(t, `conflicting write: entry "a/b.jpg": EOF`, derived.Error())
	assert.True(t, Is(derived, sentinel))
	assert.False(t, Is(derived, New("conflicting write")))

	var target *Error
	require.True(t, As(stderr.Join(io.EOF, derived), &target))
	assert.True(t, target.Is(sentinel))
}
