// Copyright © 2018 One Concern

package lock

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/oneconcern/timestream/pkg/errors"
	"github.com/oneconcern/timestream/pkg/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

func TestLockSerializes(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "bundle.tif.zip")
	lk := New(Timeout(5 * time.Second))

	var (
		inside  atomic.Int32
		maxSeen atomic.Int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := lk.With(context.Background(), archive, func() error {
				n := inside.Inc()
				if n > maxSeen.Load() {
					maxSeen.Store(n)
				}
				_, err := os.Stat(archive + Suffix)
				time.Sleep(5 * time.Millisecond)
				inside.Dec()
				return err
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxSeen.Load())
	_, err := os.Stat(archive + Suffix)
	assert.True(t, os.IsNotExist(err), "lock file is removed on release")
}

func TestLockTimeout(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "bundle.tif.zip")
	lk := New(Timeout(50 * time.Millisecond))

	release, err := lk.Lock(context.Background(), archive)
	require.NoError(t, err)

	_, err = lk.Lock(context.Background(), archive)
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrLocked))

	require.NoError(t, release())
	require.NoError(t, release(), "release is idempotent")

	release, err = lk.Lock(context.Background(), archive)
	require.NoError(t, err)
	require.NoError(t, release())
}

func TestLockInProcessOnly(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "bundle.tif.zip")
	lk := New(InterProcess(false))

	ctx, cancel := context.WithCancel(context.Background())
	release, err := lk.Lock(ctx, archive)
	require.NoError(t, err)
	_, err = os.Stat(archive + Suffix)
	assert.True(t, os.IsNotExist(err))

	cancel()
	_, err = lk.Lock(ctx, archive)
	assert.True(t, errors.Is(err, status.ErrLocked))
	require.NoError(t, release())

	// distinct paths do not contend
	other, err := lk.Lock(context.Background(), archive+".other")
	require.NoError(t, err)
	again, err := lk.Lock(context.Background(), archive)
	require.NoError(t, err)
	require.NoError(t, multiRelease(other, again))
}

func multiRelease(releases ...Release) error {
	for _, release := range releases {
		if err := release(); err != nil {
			return err
		}
	}
	return nil
}
