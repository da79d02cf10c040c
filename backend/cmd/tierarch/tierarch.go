// vim: sw=8

package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bu-isciii/tierarch/backend/internal/tiers"
	"github.com/bu-isciii/tierarch/backend/pkg/mulog"
	"github.com/bu-isciii/tierarch/backend/pkg/ulid"
	"github.com/bu-isciii/tierarch/backend/pkg/zap"
	"github.com/docopt/docopt-go"
)

// `xVersion` and `xBuild` are injected by the `Makefile`.
var (
	xVersion string
	xBuild   string
	version  = fmt.Sprintf("tierarch-%s+%s", xVersion, xBuild)
)

// `qqBackticks()` translates double single quote to backtick.
func qqBackticks(s string) string {
	return strings.Replace(s, "''", "`", -1)
}

var usage = qqBackticks(strings.TrimSpace(`
Usage:
  tierarch [options] (archive|retrieve) (compress|transfer|expand|delete|full) --service=<id>
  tierarch [options] (archive|retrieve) (compress|transfer|expand|delete|full) --from=<date> --until=<date>
  tierarch [options] (archive|retrieve) (compress|transfer|expand|delete|full) --year=<year> [--month=<month>]
  tierarch [options] paths --service=<id>

Options:
  -C <dir>           Run as if tierarch was started in ''<dir>''.
  --config=<file>    Config file.  By default, ''tierarch.yml'' or the
                     deprecated ''tierarch.config.hcl'' in the working
                     directory.
  --type=<type>      [default: services_and_collaborations]
                     Service type, which is the first directory level below
                     the tier roots: ''services_and_collaborations'' or
                     ''research''.
  --decide=<policy>  [default: ask]
                     How to resolve conflicts: ''ask'' interactively, ''skip''
                     to keep existing data, or ''redo'' to always proceed.
  --yes              Start batches without confirmation.
  --limit=<bandwidth>  Bandwidth limit in bytes per second for reading
                     service data and for transfers.  ''k'', ''m'', ... can
                     be used, which are interpreted as binary SI.  Overrides
                     ''sync.bandwidthLimit''.
  --lock-wait=<duration>  [default: 5s]
                     Maximum time to wait for the archive tier lock.
  --log=<logger>     [default: mu]
                     Logger: ''prod'', ''dev'', or ''mu''.
  --log-file=<path>  Also append a verbose log to ''<path>''.
  --metrics-textfile=<path>  Write Prometheus metrics for the node exporter
                     textfile collector to ''<path>''.
  --plain            Print an unstyled summary.
  --service=<id>     Service request id, like ''SRVCNM584''.
  --from=<date>      First delivery date, ''YYYY-MM-DD''.
  --until=<date>     Last delivery date, ''YYYY-MM-DD'', inclusive.
  --year=<year>      Select services delivered in ''<year>''.
  --month=<month>    Restrict ''--year'' to a month, 1 to 12.

''tierarch archive'' moves services from the live tier to the archive tier.
''tierarch retrieve'' moves them back.  Services are selected from the
inventory by request id or by delivery date range.

The stages are:

 - ''compress'': pack the source directory into ''<dir>.<archiveExt>''.
 - ''transfer'': copy the archive to the destination tier and verify its
   SHA-256.  A mismatching copy is removed.
 - ''expand'': unpack the archive at the destination tier.
 - ''delete'': remove the source directory and the archives, but only if the
   expanded destination exists and is identical to the source directory.
 - ''full'': all four stages in order.  A service stops at its first failed
   stage; the batch continues.

Each stage checks the filesystem first and skips work that is already done,
so that an interrupted run can simply be repeated.

''tierarch paths'' prints the tier paths and the pipeline phase of a service
without modifying anything.

Exit codes: 0 complete success; 3 nothing to do; 4 aborted by user; 10
completed, but services were skipped by choice; 11 completed with failed
services; 1 fatal errors, including configuration errors.
`))

const (
	exitOK        = 0
	exitFatal     = 1
	exitNothing   = 3
	exitAborted   = 4
	exitSkipped   = 10
	exitFailures  = 11
	dateLayoutArg = "2006-01-02"
)

type Logger interface {
	Infow(msg string, kv ...interface{})
	Warnw(msg string, kv ...interface{})
	Errorw(msg string, kv ...interface{})
	Fatalw(msg string, kv ...interface{})
}

var lg Logger = mulog.Printer{}

func main() {
	args := argparse()
	lg = withRun(newLogger(args), ulid.MustNew().String())

	if d, ok := args["-C"].(string); ok {
		if err := os.Chdir(d); err != nil {
			lg.Fatalw("Failed to apply -C.", "err", err)
		}
	}

	switch {
	case args["paths"].(bool):
		os.Exit(cmdPaths(args))
	default:
		os.Exit(cmdRun(args))
	}
}

func newLogger(args map[string]interface{}) Logger {
	logFile, _ := args["--log-file"].(string)
	var l Logger
	var err error
	switch args["--log"].(string) {
	case "prod":
		l, err = zap.New(false, logFile)
	case "dev":
		l, err = zap.New(true, logFile)
	case "mu":
		if logFile != "" {
			err = fmt.Errorf("--log-file requires --log=prod or --log=dev")
		}
		l = mulog.Printer{}
	default:
		err = fmt.Errorf("Invalid --log option.")
	}
	if err != nil {
		log.Fatal(err)
	}
	return l
}

// `runLogger` adds the run id to every message.
type runLogger struct {
	lg  Logger
	run string
}

func withRun(l Logger, run string) Logger {
	return &runLogger{lg: l, run: run}
}

func (l *runLogger) kv(kv []interface{}) []interface{} {
	return append([]interface{}{"run", l.run}, kv...)
}

func (l *runLogger) Infow(msg string, kv ...interface{}) {
	l.lg.Infow(msg, l.kv(kv)...)
}

func (l *runLogger) Warnw(msg string, kv ...interface{}) {
	l.lg.Warnw(msg, l.kv(kv)...)
}

func (l *runLogger) Errorw(msg string, kv ...interface{}) {
	l.lg.Errorw(msg, l.kv(kv)...)
}

func (l *runLogger) Fatalw(msg string, kv ...interface{}) {
	l.lg.Fatalw(msg, l.kv(kv)...)
}

func argparse() map[string]interface{} {
	const autoHelp = true
	const noOptionFirst = false
	args, err := docopt.Parse(
		usage, nil, autoHelp, version, noOptionFirst,
	)
	if err != nil {
		lg.Fatalw("docopt failed.", "err", err)
	}

	for _, k := range []string{
		"--limit",
	} {
		if arg, ok := args[k].(string); ok {
			v, err := tiers.ParseUint64Si(arg)
			if err != nil {
				msg := fmt.Sprintf("Invalid %s.", k)
				lg.Fatalw(msg, "err", err)
			}
			args[k] = v
		}
	}

	for _, k := range []string{
		"--lock-wait",
	} {
		if arg, ok := args[k].(string); ok {
			v, err := time.ParseDuration(arg)
			if err != nil {
				msg := fmt.Sprintf("Invalid %s.", k)
				lg.Fatalw(msg, "err", err)
			}
			args[k] = v
		}
	}

	for _, k := range []string{
		"--from",
		"--until",
	} {
		if arg, ok := args[k].(string); ok {
			v, err := time.Parse(dateLayoutArg, arg)
			if err != nil {
				msg := fmt.Sprintf("Invalid %s.", k)
				lg.Fatalw(msg, "err", err)
			}
			args[k] = v
		}
	}

	for _, k := range []string{
		"--year",
		"--month",
	} {
		if arg, ok := args[k].(string); ok {
			v, err := strconv.Atoi(arg)
			if err != nil {
				msg := fmt.Sprintf("Invalid %s.", k)
				lg.Fatalw(msg, "err", err)
			}
			args[k] = v
		}
	}

	return args
}
