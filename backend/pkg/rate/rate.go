// Package `rate` reports the progress of long data streams, such as archive
// transfers, without flooding the log.  Throughput is estimated with a
// `ratecounter` window, and messages are limited by a `x/time/rate` token
// bucket.
package rate

import (
	"io"
	"sync/atomic"
	"time"

	"github.com/paulbellamy/ratecounter"
	"golang.org/x/time/rate"
)

const (
	DefaultEvery = 30 * time.Second
	DefaultTau   = 5 * time.Second
)

type Config struct {
	Name string
	// `Total` is the expected number of bytes, or 0 if unknown.
	Total uint64
	// `Every` is the minimum interval between progress messages.
	Every time.Duration
	// `Tau` is the window of the throughput estimate.
	Tau time.Duration
}

type Logger interface {
	Infow(msg string, kv ...interface{})
}

type Progress struct {
	lg    Logger
	name  string
	total uint64
	done  uint64

	tau   time.Duration
	lim   *rate.Limiter
	bytes *ratecounter.RateCounter
}

func NewProgress(lg Logger, cfg Config) *Progress {
	if cfg.Every <= 0 {
		cfg.Every = DefaultEvery
	}
	if cfg.Tau <= 0 {
		cfg.Tau = DefaultTau
	}
	return &Progress{
		lg:    lg,
		name:  cfg.Name,
		total: cfg.Total,
		tau:   cfg.Tau,
		lim:   rate.NewLimiter(rate.Every(cfg.Every), 1),
		bytes: ratecounter.NewRateCounter(cfg.Tau),
	}
}

// `Add()` records `n` transferred bytes and maybe logs progress.
func (p *Progress) Add(n int) {
	if n <= 0 {
		return
	}
	done := atomic.AddUint64(&p.done, uint64(n))
	p.bytes.Incr(int64(n))
	if !p.lim.Allow() {
		return
	}

	kv := []interface{}{
		"name", p.name,
		"bytes", done,
		"bytesPerSecond", int64(p.BytesPerSecond()),
	}
	if p.total > 0 {
		kv = append(kv,
			"total", p.total,
			"percent", 100*done/p.total,
		)
	}
	p.lg.Infow("Transfer progress.", kv...)
}

func (p *Progress) Done() uint64 {
	return atomic.LoadUint64(&p.done)
}

func (p *Progress) BytesPerSecond() float64 {
	secs := float64(p.tau) / float64(time.Second)
	return float64(p.bytes.Rate()) / secs
}

// `Reader()` returns a reader that calls `Add()` for data read from `r`.
func (p *Progress) Reader(r io.Reader) io.Reader {
	return &progressReader{p: p, r: r}
}

type progressReader struct {
	p *Progress
	r io.Reader
}

func (r *progressReader) Read(b []byte) (int, error) {
	n, err := r.r.Read(b)
	r.p.Add(n)
	return n, err
}
