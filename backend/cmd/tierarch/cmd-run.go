package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bu-isciii/tierarch/backend/internal/decide"
	"github.com/bu-isciii/tierarch/backend/internal/orchestrator"
	"github.com/bu-isciii/tierarch/backend/internal/report"
	"github.com/bu-isciii/tierarch/backend/internal/services"
	"github.com/bu-isciii/tierarch/backend/internal/tiers"
	"github.com/bu-isciii/tierarch/backend/internal/tiersync"
	"github.com/bu-isciii/tierarch/backend/pkg/flock"
	"github.com/bu-isciii/tierarch/backend/pkg/ratelimit"
)

func cmdRun(args map[string]interface{}) int {
	direction := tiers.Archive
	if args["retrieve"].(bool) {
		direction = tiers.Retrieve
	}
	var op orchestrator.Op
	for _, name := range []string{
		"compress", "transfer", "expand", "delete", "full",
	} {
		if args[name].(bool) {
			op, _ = orchestrator.ParseOp(name)
		}
	}
	lockWait := args["--lock-wait"].(time.Duration)
	limit, _ := args["--limit"].(uint64)
	metricsFile, _ := args["--metrics-textfile"].(string)

	policy, err := decide.ParsePolicy(args["--decide"].(string))
	if err != nil {
		lg.Fatalw("Invalid --decide.", "err", err)
	}
	decider := decide.New(policy, args["--yes"].(bool))

	cfg := loadConfig(args)
	typ := parseType(args)
	now := time.Now()
	sel := parseSelection(args, now)

	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer stop()

	recs, err := orchestrator.Select(ctx, openInventory(cfg), sel, now)
	if err != nil {
		if isNothingToDo(err) {
			if errors.Is(err, orchestrator.ErrNotFound) {
				lg.Infow("Nothing to do.", "reason", err)
			} else {
				lg.Errorw("Inventory query failed; nothing to do.", "err", err)
			}
			return exitNothing
		}
		lg.Fatalw("Failed to select services.", "err", err)
	}
	lg.Infow(
		"Selected services.",
		"direction", direction.String(),
		"op", op.String(),
		"n", len(recs),
		"services", services.Ids(recs),
	)

	lock, err := flock.LockWait(cfg.ArchiveRoot, lockWait)
	if err != nil {
		lg.Fatalw(
			"Failed to lock archive tier.",
			"archiveRoot", cfg.ArchiveRoot,
			"err", err,
		)
	}
	defer func() {
		_ = lock.Unlock()
		lock.Close()
	}()

	sync, err := tiersync.Open(lg, cfg, limit)
	if err != nil {
		lg.Fatalw("Failed to open sync driver.", "err", err)
	}

	var metrics *report.Metrics
	var sink orchestrator.Sink
	if metricsFile != "" {
		metrics = report.NewMetrics()
		sink = metrics
	}

	bw := limit
	if bw == 0 {
		bw, _ = cfg.BandwidthLimit()
	}
	orc, err := orchestrator.New(lg, orchestrator.Config{
		Tiers:     cfg,
		Type:      typ,
		Direction: direction,
		Sync:      sync,
		Decider:   decider,
		Sink:      sink,
		Bandwidth: ratelimit.NewBandwidth(bw),
	})
	if err != nil {
		lg.Fatalw("Failed to initialize.", "err", err)
	}

	if !confirmBatch(ctx, orc, decider, recs) {
		lg.Warnw("Batch not confirmed.")
		return exitAborted
	}

	rep, err := orc.Run(ctx, op, recs)
	printReport(args, rep)
	if metrics != nil {
		metrics.Finish(rep)
		if err := metrics.WriteTextfile(metricsFile); err != nil {
			lg.Errorw("Failed to write metrics.", "err", err)
		}
	}

	switch {
	case errors.Is(err, orchestrator.ErrAborted):
		return exitAborted
	case err != nil:
		lg.Errorw("Run interrupted.", "err", err)
		return exitFatal
	case rep.Has(orchestrator.Failed):
		return exitFailures
	case rep.Has(orchestrator.SkippedByUserChoice):
		return exitSkipped
	default:
		return exitOK
	}
}

func confirmBatch(
	ctx context.Context,
	orc *orchestrator.Orchestrator,
	decider decide.Decider,
	recs []services.Record,
) bool {
	size, err := orc.EstimateSize(
		ctx, recs, orchestrator.DefaultSizeConcurrency,
	)
	if err != nil {
		lg.Warnw("Failed to estimate batch size.", "err", err)
	}
	summary := fmt.Sprintf(
		"%d services, total size %s. Continue?",
		len(recs), report.FormatGiB(int64(size)),
	)
	lg.Infow("Batch size.", "n", len(recs), "bytes", size)

	d, err := decider.Decide(ctx, decide.Conflict{
		Kind:     decide.KindConfirmBatch,
		Services: len(recs),
		Bytes:    size,
		Summary:  summary,
	})
	if err != nil {
		lg.Errorw("Confirmation failed.", "err", err)
		return false
	}
	return d == decide.Proceed
}

func printReport(args map[string]interface{}, rep *orchestrator.Report) {
	if rep == nil {
		return
	}
	if args["--plain"].(bool) {
		if err := report.WriteText(os.Stdout, rep); err != nil {
			lg.Errorw("Failed to print summary.", "err", err)
		}
		return
	}
	fmt.Print(report.Render(rep))
}
