package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/bu-isciii/tierarch/backend/internal/orchestrator"
	"github.com/bu-isciii/tierarch/backend/pkg/mulog"
	"github.com/docopt/docopt-go"
	"github.com/stretchr/testify/require"
)

func TestUsage(t *testing.T) {
	for _, c := range []struct {
		argv []string
		keys []string
	}{
		{
			[]string{"archive", "full", "--service=SRVCNM584"},
			[]string{"archive", "full"},
		},
		{
			[]string{
				"--decide=skip", "--yes", "retrieve", "transfer",
				"--from=2023-01-01", "--until=2023-01-31",
			},
			[]string{"retrieve", "transfer", "--yes"},
		},
		{
			[]string{"archive", "delete", "--year=2023", "--month=2"},
			[]string{"archive", "delete"},
		},
		{
			[]string{"-C", "/tmp", "paths", "--service=SRV1"},
			[]string{"paths"},
		},
	} {
		opts, err := docopt.ParseArgs(usage, c.argv, version)
		require.NoError(t, err, "%v", c.argv)
		for _, k := range c.keys {
			require.Equal(t, true, opts[k], "%v %s", c.argv, k)
		}
		require.Equal(t, "5s", opts["--lock-wait"])
	}
	require.NotContains(t, usage, "''")
}

func TestRunLogger(t *testing.T) {
	var buf bytes.Buffer
	l := withRun(writerLogger{mulog.Writer{W: &buf}}, "01ARZ3NDEKTSV4RRFFQ69G5FAV")
	l.Infow("Selected services.", "n", 2)
	require.Equal(t,
		"info: Selected services. [run 01ARZ3NDEKTSV4RRFFQ69G5FAV n 2]\n",
		buf.String(),
	)
}

type writerLogger struct {
	mulog.Writer
}

func (writerLogger) Fatalw(msg string, kv ...interface{}) {
	panic(msg)
}

func TestIsNothingToDo(t *testing.T) {
	require.True(t, isNothingToDo(orchestrator.ErrNotFound))
	require.True(t, isNothingToDo(errors.New("connection refused")))
	require.False(t, isNothingToDo(orchestrator.ErrInvalidRange))
}
