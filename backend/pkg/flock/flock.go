// Package `flock` wraps syscall `flock(2)`.
//
// `tierarch` locks the archive tier root while it moves services, so that two
// runs never operate on the same service paths concurrently.
package flock

import (
	"context"
	"errors"
	"os"
	"syscall"
	"time"
)

var ErrNoLock = errors.New("did not acquire lock")

type Flock struct {
	fp *os.File
}

// `Open()` opens `path`, which may be a directory.
func Open(path string) (*Flock, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Flock{fp}, nil
}

func (lk *Flock) Close() {
	_ = lk.fp.Close()
}

// `TryLock()` retries every `retryDelay` until it acquires an exclusive lock
// or `ctx` is done.
func (lk *Flock) TryLock(ctx context.Context, retryDelay time.Duration) error {
	for {
		err := lk.sysTryLock()
		switch err {
		case nil:
			return nil
		case ErrNoLock: // retry
		default:
			return err
		}

		select {
		case <-ctx.Done():
			return ErrNoLock
		case <-time.After(retryDelay):
			// retry
		}
	}
}

// `LockWait()` opens `path` and locks it, waiting at most `wait`.  The caller
// must `Unlock()` and `Close()` the returned lock.
func LockWait(path string, wait time.Duration) (*Flock, error) {
	lk, err := Open(path)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()
	if err := lk.TryLock(ctx, 200*time.Millisecond); err != nil {
		lk.Close()
		return nil, err
	}
	return lk, nil
}

func (lk *Flock) Unlock() error {
	return lk.sysUnlock()
}

func (lk *Flock) sysTryLock() error {
	fd := int(lk.fp.Fd())
	err := syscall.Flock(fd, syscall.LOCK_EX|syscall.LOCK_NB)
	switch err {
	case nil:
		return nil
	case syscall.EWOULDBLOCK:
		return ErrNoLock
	default:
		return err
	}
}

func (lk *Flock) sysUnlock() error {
	fd := int(lk.fp.Fd())
	return syscall.Flock(fd, syscall.LOCK_UN)
}
