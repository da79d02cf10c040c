// Package `ratelimit` wraps the subset of `github.com/juju/ratelimit` that
// tierarch uses to limit the bandwidth of data streams.
package ratelimit

import (
	"io"

	"github.com/juju/ratelimit"
)

type Bucket = ratelimit.Bucket

// Fixed bucket capacity for bandwidth limits.
const Capacity = 1024 * 1024

// `NewBandwidth()` returns a bucket for `bytesPerSecond` with a fixed 1 MiB
// capacity, or nil if `bytesPerSecond` is zero, which means unlimited.
func NewBandwidth(bytesPerSecond uint64) *Bucket {
	if bytesPerSecond == 0 {
		return nil
	}
	return ratelimit.NewBucketWithRate(float64(bytesPerSecond), Capacity)
}

// `Reader()` limits `r` by `b`.  A nil bucket returns `r` unchanged.
func Reader(r io.Reader, b *Bucket) io.Reader {
	if b == nil {
		return r
	}
	return ratelimit.Reader(r, b)
}
