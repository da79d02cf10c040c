package orchestrator

import (
	"fmt"
	"strings"

	"github.com/bu-isciii/tierarch/backend/internal/tiers"
)

type Stage int

const (
	StageUnspecified Stage = iota
	StageCompress
	StageTransfer
	StageExpand
	StageDelete
)

// `Stages` in pipeline order.
var Stages = []Stage{StageCompress, StageTransfer, StageExpand, StageDelete}

// `String()` returns the ledger name.
func (s Stage) String() string {
	switch s {
	case StageCompress:
		return "compression"
	case StageTransfer:
		return "transfer"
	case StageExpand:
		return "decompression"
	case StageDelete:
		return "deletion"
	default:
		return "unspecified"
	}
}

type Op int

const (
	OpUnspecified Op = iota
	OpCompress
	OpTransfer
	OpExpand
	OpDelete
	OpFull
)

var opNames = map[string]Op{
	"compress": OpCompress,
	"transfer": OpTransfer,
	"expand":   OpExpand,
	"delete":   OpDelete,
	"full":     OpFull,
}

func ParseOp(s string) (Op, error) {
	op, ok := opNames[s]
	if !ok {
		return OpUnspecified, fmt.Errorf("unknown operation `%s`", s)
	}
	return op, nil
}

func (op Op) String() string {
	for name, o := range opNames {
		if o == op {
			return name
		}
	}
	return "unspecified"
}

func (op Op) Stages() []Stage {
	switch op {
	case OpCompress:
		return []Stage{StageCompress}
	case OpTransfer:
		return []Stage{StageTransfer}
	case OpExpand:
		return []Stage{StageExpand}
	case OpDelete:
		return []Stage{StageDelete}
	case OpFull:
		return Stages
	default:
		return nil
	}
}

type Outcome int

const (
	Succeeded Outcome = iota
	SkippedAlreadyDone
	SkippedByUserChoice
	Failed
)

var Outcomes = []Outcome{
	Succeeded, SkippedAlreadyDone, SkippedByUserChoice, Failed,
}

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case SkippedAlreadyDone:
		return "skipped-already-done"
	case SkippedByUserChoice:
		return "skipped-by-user-choice"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

type Entry struct {
	Service string
	Stage   Stage
	Outcome Outcome
	// `Err` is set for `Failed`.
	Err error
}

// `Report` accumulates the outcomes of one run in order.  It is owned by
// the caller after `Run()` returns.
type Report struct {
	Direction tiers.Direction
	Op        Op
	Entries   []Entry
	// `BytesSaved` sums directory size minus archive size over successful
	// compressions.  It is negative if data did not compress.
	BytesSaved int64
	Aborted    bool
}

func (r *Report) add(e Entry) {
	r.Entries = append(r.Entries, e)
}

func (r *Report) Count(s Stage, o Outcome) int {
	n := 0
	for _, e := range r.Entries {
		if e.Stage == s && e.Outcome == o {
			n++
		}
	}
	return n
}

// `Services()` lists the services with outcome `o` at stage `s` in run
// order.
func (r *Report) Services(s Stage, o Outcome) []string {
	var ids []string
	for _, e := range r.Entries {
		if e.Stage == s && e.Outcome == o {
			ids = append(ids, e.Service)
		}
	}
	return ids
}

// `Ledger()` maps stages to the services that failed there.
func (r *Report) Ledger() map[Stage][]string {
	l := make(map[Stage][]string)
	for _, e := range r.Entries {
		if e.Outcome == Failed {
			l[e.Stage] = append(l[e.Stage], e.Service)
		}
	}
	return l
}

func (r *Report) Failures() []Entry {
	var es []Entry
	for _, e := range r.Entries {
		if e.Outcome == Failed {
			es = append(es, e)
		}
	}
	return es
}

func (r *Report) Has(o Outcome) bool {
	for _, e := range r.Entries {
		if e.Outcome == o {
			return true
		}
	}
	return false
}

func (r *Report) String() string {
	var parts []string
	for _, s := range Stages {
		for _, o := range Outcomes {
			if n := r.Count(s, o); n > 0 {
				parts = append(parts, fmt.Sprintf("%s %s %d", s, o, n))
			}
		}
	}
	if len(parts) == 0 {
		return "no outcomes"
	}
	return strings.Join(parts, ", ")
}

// `Sink` receives outcomes as they happen, for example to update metrics.
type Sink interface {
	StageDone(stage Stage, service string, outcome Outcome, err error)
}
