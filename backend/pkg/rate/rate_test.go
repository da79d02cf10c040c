package rate_test

import (
	"bytes"
	"io"
	"io/ioutil"
	"testing"
	"time"

	"github.com/bu-isciii/tierarch/backend/pkg/rate"
	"github.com/stretchr/testify/require"
)

type countLogger struct {
	n  int
	kv []interface{}
}

func (lg *countLogger) Infow(msg string, kv ...interface{}) {
	lg.n++
	lg.kv = kv
}

func TestProgressThrottlesMessages(t *testing.T) {
	lg := &countLogger{}
	p := rate.NewProgress(lg, rate.Config{
		Name:  "SRV1.tar.zst",
		Total: 4096,
		Every: time.Hour,
	})

	r := p.Reader(io.LimitReader(bytes.NewReader(make([]byte, 4096)), 4096))
	buf := make([]byte, 512)
	for {
		_, err := r.Read(buf)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}

	require.Equal(t, uint64(4096), p.Done())
	require.Equal(t, 1, lg.n)
	require.Contains(t, lg.kv, "percent")
}

func TestProgressCopy(t *testing.T) {
	lg := &countLogger{}
	p := rate.NewProgress(lg, rate.Config{Name: "x"})
	n, err := io.Copy(ioutil.Discard, p.Reader(bytes.NewReader([]byte("abc"))))
	require.NoError(t, err)
	require.Equal(t, int64(3), n)
	require.Equal(t, uint64(3), p.Done())
	require.NotContains(t, lg.kv, "percent")
}
