package main

import (
	"context"
	"fmt"
	"time"

	"github.com/bu-isciii/tierarch/backend/internal/orchestrator"
	"github.com/bu-isciii/tierarch/backend/internal/tiers"
)

// `cmdPaths()` prints where a service lives in both tiers and how far each
// direction has progressed.
func cmdPaths(args map[string]interface{}) int {
	cfg := loadConfig(args)
	typ := parseType(args)
	id := args["--service"].(string)

	recs, err := orchestrator.Select(
		context.Background(), openInventory(cfg),
		orchestrator.Selection{Service: id}, time.Now(),
	)
	if err != nil {
		lg.Errorw("Failed to find service.", "service", id, "err", err)
		return exitNothing
	}

	for _, rec := range recs {
		p := tiers.Resolve(cfg, typ, rec)
		fmt.Printf("service: %s\n", rec.RequestId)
		fmt.Printf("live: %s\n", p.Live)
		fmt.Printf("archived: %s\n", p.Archived)
		for _, d := range []tiers.Direction{tiers.Archive, tiers.Retrieve} {
			st := orchestrator.DeriveState(p.Layout(d, cfg.ArchiveExt))
			fmt.Printf("%s: %s\n", d, st.Phase())
		}
	}
	return exitOK
}
