// Package `orchestrator` moves services between the live and the archive
// tier.  Per service and direction, it runs the pipeline
//
// ```
// compress -> transfer and verify -> expand -> delete source
// ```
//
// Each stage first re-derives the service state from the filesystem with
// `DeriveState()`.  A stage whose postcondition already holds is skipped as
// done, which makes every stage safe to repeat.  A failed stage is recorded
// in the `Report`, and the run continues with the next service.  Only a
// user abort or a cancelled context stops the run.
//
// Deletion requires a witness.  A source directory is only removed if it
// is deeply identical to the expanded destination, and an archive file only
// if its expanded directory exists at the destination.
package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/bu-isciii/tierarch/backend/internal/decide"
	"github.com/bu-isciii/tierarch/backend/internal/inventory"
	"github.com/bu-isciii/tierarch/backend/internal/safedelete"
	"github.com/bu-isciii/tierarch/backend/internal/services"
	"github.com/bu-isciii/tierarch/backend/internal/tarz"
	"github.com/bu-isciii/tierarch/backend/internal/tiers"
	"github.com/bu-isciii/tierarch/backend/internal/tiersync/drivers"
	"github.com/bu-isciii/tierarch/backend/pkg/ratelimit"
)

var ErrNotFound = inventory.ErrNotFound
var ErrTransport = drivers.ErrTransport
var ErrIntegrityMismatch = fmt.Errorf("%w: integrity mismatch", ErrTransport)
var ErrUnsafeDeletion = safedelete.ErrUnsafeDeletion
var ErrMissingWitness = safedelete.ErrMissingWitness
var ErrAborted = errors.New("aborted by user")

type Logger interface {
	Infow(msg string, kv ...interface{})
	Warnw(msg string, kv ...interface{})
	Errorw(msg string, kv ...interface{})
}

type Config struct {
	Tiers     *tiers.Config
	Type      services.Type
	Direction tiers.Direction
	Sync      drivers.Synchronizer
	Decider   decide.Decider
	// `Sink` is optional.
	Sink Sink
	// `Bandwidth` optionally limits reading source directories during
	// compression.
	Bandwidth *ratelimit.Bucket
}

type Orchestrator struct {
	lg        Logger
	tiers     *tiers.Config
	typ       services.Type
	direction tiers.Direction
	format    tarz.Format
	sync      drivers.Synchronizer
	decider   decide.Decider
	sink      Sink
	bandwidth *ratelimit.Bucket
}

func New(lg Logger, cfg Config) (*Orchestrator, error) {
	if cfg.Tiers == nil {
		return nil, fmt.Errorf("%w: missing tier config", tiers.ErrConfig)
	}
	switch cfg.Direction {
	case tiers.Archive, tiers.Retrieve:
	default:
		return nil, errors.New("missing direction")
	}
	if cfg.Sync == nil {
		return nil, errors.New("missing synchronizer")
	}
	if cfg.Decider == nil {
		return nil, errors.New("missing decider")
	}
	format, err := tarz.FormatForExt(cfg.Tiers.ArchiveExt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", tiers.ErrConfig, err)
	}

	return &Orchestrator{
		lg:        lg,
		tiers:     cfg.Tiers,
		typ:       cfg.Type,
		direction: cfg.Direction,
		format:    format,
		sync:      cfg.Sync,
		decider:   cfg.Decider,
		sink:      cfg.Sink,
		bandwidth: cfg.Bandwidth,
	}, nil
}

// `Layout()` returns the artifact paths of `rec` for the direction of the
// orchestrator.
func (o *Orchestrator) Layout(rec services.Record) tiers.Layout {
	return tiers.Resolve(o.tiers, o.typ, rec).
		Layout(o.direction, o.tiers.ArchiveExt)
}

func (o *Orchestrator) Compress(
	ctx context.Context, recs []services.Record,
) (*Report, error) {
	return o.Run(ctx, OpCompress, recs)
}

func (o *Orchestrator) Transfer(
	ctx context.Context, recs []services.Record,
) (*Report, error) {
	return o.Run(ctx, OpTransfer, recs)
}

func (o *Orchestrator) Expand(
	ctx context.Context, recs []services.Record,
) (*Report, error) {
	return o.Run(ctx, OpExpand, recs)
}

func (o *Orchestrator) Delete(
	ctx context.Context, recs []services.Record,
) (*Report, error) {
	return o.Run(ctx, OpDelete, recs)
}

// `Full()` runs all stages in order and stops a service at its first
// failure.
func (o *Orchestrator) Full(
	ctx context.Context, recs []services.Record,
) (*Report, error) {
	return o.Run(ctx, OpFull, recs)
}

// `Run()` processes `recs` sequentially.  It always returns a report, also
// with `ErrAborted` or a context error, in which case the report covers
// the services up to the stop.
func (o *Orchestrator) Run(
	ctx context.Context, op Op, recs []services.Record,
) (*Report, error) {
	stages := op.Stages()
	if len(stages) == 0 {
		return nil, fmt.Errorf("invalid operation %d", op)
	}
	rep := &Report{Direction: o.direction, Op: op}

	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			return rep, err
		}

		l := o.Layout(rec)
		for _, stage := range stages {
			outcome, err := o.runStage(ctx, rep, stage, rec.RequestId, l)
			if errors.Is(err, ErrAborted) {
				rep.Aborted = true
				o.lg.Warnw(
					"Run aborted.",
					"service", rec.RequestId,
					"stage", stage.String(),
				)
				return rep, ErrAborted
			}
			o.record(rep, Entry{
				Service: rec.RequestId,
				Stage:   stage,
				Outcome: outcome,
				Err:     err,
			})
			if outcome == Failed {
				break
			}
		}
	}

	// A cancel during the last stage shows up as a failure only.
	if err := ctx.Err(); err != nil {
		return rep, err
	}
	return rep, nil
}

func (o *Orchestrator) record(rep *Report, e Entry) {
	rep.add(e)
	if o.sink != nil {
		o.sink.StageDone(e.Stage, e.Service, e.Outcome, e.Err)
	}

	kv := []interface{}{
		"service", e.Service,
		"stage", e.Stage.String(),
		"outcome", e.Outcome.String(),
	}
	if e.Outcome == Failed {
		kv = append(kv, "err", e.Err)
		o.lg.Errorw("Stage failed.", kv...)
	} else {
		o.lg.Infow("Stage done.", kv...)
	}
}

func (o *Orchestrator) runStage(
	ctx context.Context, rep *Report,
	stage Stage, id string, l tiers.Layout,
) (Outcome, error) {
	switch stage {
	case StageCompress:
		return o.compress(ctx, rep, id, l)
	case StageTransfer:
		return o.transfer(ctx, id, l)
	case StageExpand:
		return o.expand(ctx, id, l)
	case StageDelete:
		return o.delete(ctx, id, l)
	default:
		return Failed, fmt.Errorf("invalid stage %d", stage)
	}
}

// `ask()` returns `ErrAborted` if the decider aborts or fails.
func (o *Orchestrator) ask(
	ctx context.Context, c decide.Conflict,
) (decide.Decision, error) {
	d, err := o.decider.Decide(ctx, c)
	if err != nil {
		o.lg.Errorw(
			"Decision failed.",
			"service", c.Service,
			"kind", c.Kind.String(),
			"err", err,
		)
		return decide.Abort, fmt.Errorf("%w: %v", ErrAborted, err)
	}
	if d == decide.Abort {
		return d, ErrAborted
	}
	o.lg.Infow(
		"Decided.",
		"service", c.Service,
		"kind", c.Kind.String(),
		"decision", d.String(),
	)
	return d, nil
}
