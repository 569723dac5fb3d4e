// Copyright © 2018 One Concern

// Package lock serializes the mutations of a file, within a process and across processes.
//
// Inside a process, a per-path slot is taken first. Across processes, an advisory
// lock file ("{path}.lock", holding the pid of its owner) is then acquired with
// retries until a deadline.
package lock

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/nightlyone/lockfile"
	"github.com/oneconcern/timestream/pkg/status"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Suffix of advisory lock files
const Suffix = ".lock"

const (
	defaultTimeout  = 30 * time.Second
	defaultInterval = 10 * time.Millisecond
)

// Locker hands out exclusive locks keyed by file path.
//
// A Locker is safe for concurrent use. Locks are not reentrant.
type Locker struct {
	mu           sync.Mutex
	slots        map[string]chan struct{}
	timeout      time.Duration
	interval     time.Duration
	interProcess bool
	l            *zap.Logger
}

// Option for a Locker
type Option func(*Locker)

// Timeout sets how long to wait for a lock before giving up with ErrLocked
func Timeout(d time.Duration) Option {
	return func(lk *Locker) {
		if d > 0 {
			lk.timeout = d
		}
	}
}

// Interval sets the initial retry interval on a busy lock file
func Interval(d time.Duration) Option {
	return func(lk *Locker) {
		if d > 0 {
			lk.interval = d
		}
	}
}

// InterProcess enables advisory lock files. Only meaningful on the OS file system.
func InterProcess(enabled bool) Option {
	return func(lk *Locker) {
		lk.interProcess = enabled
	}
}

// Logger for a Locker
func Logger(l *zap.Logger) Option {
	return func(lk *Locker) {
		if l != nil {
			lk.l = l
		}
	}
}

// New locker
func New(opts ...Option) *Locker {
	lk := &Locker{
		slots:        make(map[string]chan struct{}),
		timeout:      defaultTimeout,
		interval:     defaultInterval,
		interProcess: true,
		l:            zap.NewNop(),
	}
	for _, apply := range opts {
		apply(lk)
	}
	return lk
}

// Release a lock
type Release func() error

// Lock acquires the lock on path, waiting until the configured timeout or the
// cancellation of ctx. The returned Release must be called exactly once.
func (lk *Locker) Lock(ctx context.Context, path string) (Release, error) {
	key, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, lk.timeout)
	defer cancel()

	slot := lk.slot(key)
	select {
	case slot <- struct{}{}:
	case <-ctx.Done():
		return nil, status.ErrLocked.Wrapf("%s: %v", path, ctx.Err())
	}

	if !lk.interProcess {
		return lk.releaser(key, slot, nil), nil
	}

	lf, err := lockfile.New(key + Suffix)
	if err != nil {
		<-slot
		return nil, err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = lk.interval
	policy.MaxInterval = 50 * lk.interval
	policy.MaxElapsedTime = 0 // bounded by ctx

	attempts := 0
	err = backoff.Retry(func() error {
		attempts++
		e := lf.TryLock()
		if e == nil {
			return nil
		}
		if isTemporary(e) {
			return e // retry
		}
		return backoff.Permanent(e)
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		<-slot
		lk.l.Warn("lock not acquired", zap.String("lock", string(lf)), zap.Int("attempts", attempts), zap.Error(err))
		return nil, status.ErrLocked.Wrapf("%s: %v", path, err)
	}
	if attempts > 1 {
		lk.l.Debug("lock acquired after retries", zap.String("lock", string(lf)), zap.Int("attempts", attempts))
	}
	return lk.releaser(key, slot, &lf), nil
}

func (lk *Locker) releaser(key string, slot chan struct{}, lf *lockfile.Lockfile) Release {
	var once sync.Once
	return func() (err error) {
		once.Do(func() {
			if lf != nil {
				err = multierr.Append(err, lf.Unlock())
			}
			<-slot
		})
		if err != nil {
			lk.l.Warn("lock release", zap.String("path", key), zap.Error(err))
		}
		return err
	}
}

func (lk *Locker) slot(key string) chan struct{} {
	lk.mu.Lock()
	defer lk.mu.Unlock()
	s, ok := lk.slots[key]
	if !ok {
		s = make(chan struct{}, 1)
		lk.slots[key] = s
	}
	return s
}

func isTemporary(err error) bool {
	t, ok := err.(interface{ Temporary() bool })
	return ok && t.Temporary()
}

// With runs fn while holding the lock on path. Release errors are combined with the error of fn.
func (lk *Locker) With(ctx context.Context, path string, fn func() error) (err error) {
	release, err := lk.Lock(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, release())
	}()
	return fn()
}
