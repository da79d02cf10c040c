package main

import (
	"errors"
	"time"

	"github.com/bu-isciii/tierarch/backend/internal/inventory"
	"github.com/bu-isciii/tierarch/backend/internal/orchestrator"
	"github.com/bu-isciii/tierarch/backend/internal/services"
	"github.com/bu-isciii/tierarch/backend/internal/tiers"
)

func loadConfig(args map[string]interface{}) *tiers.Config {
	var cfg *tiers.Config
	var err error
	if path, ok := args["--config"].(string); ok {
		cfg, err = tiers.LoadFile(lg, path)
	} else {
		cfg, err = tiers.Load(lg, ".")
	}
	if err != nil {
		lg.Fatalw("Failed to load config.", "err", err)
	}
	return cfg
}

func parseType(args map[string]interface{}) services.Type {
	typ, err := services.ParseType(args["--type"].(string))
	if err != nil {
		lg.Fatalw("Invalid --type.", "err", err)
	}
	return typ
}

func openInventory(cfg *tiers.Config) *inventory.Client {
	timeout, err := cfg.InventoryTimeout()
	if err != nil {
		lg.Fatalw("Invalid config.", "err", err)
	}
	inv, err := inventory.New(inventory.Config{
		URL:     cfg.Inventory.URL,
		Token:   cfg.Inventory.Token,
		Timeout: timeout,
	})
	if err != nil {
		lg.Fatalw("Invalid inventory config.", "err", err)
	}
	return inv
}

func parseSelection(
	args map[string]interface{}, now time.Time,
) orchestrator.Selection {
	if id, ok := args["--service"].(string); ok {
		return orchestrator.Selection{Service: id}
	}

	if year, ok := args["--year"].(int); ok {
		month, _ := args["--month"].(int)
		from, until, err := orchestrator.MonthRange(year, month, now)
		if err != nil {
			lg.Fatalw("Invalid --year or --month.", "err", err)
		}
		return orchestrator.Selection{From: from, Until: until}
	}

	sel := orchestrator.Selection{
		From:  args["--from"].(time.Time),
		Until: args["--until"].(time.Time),
	}
	if err := orchestrator.ValidateRange(sel.From, sel.Until, now); err != nil {
		lg.Fatalw("Invalid date range.", "err", err)
	}
	return sel
}

// `isNothingToDo()` tells whether a selection error means that there is no
// work.  Inventory failures count as no work, since nothing has been
// touched yet.
func isNothingToDo(err error) bool {
	return errors.Is(err, orchestrator.ErrNotFound) ||
		!errors.Is(err, orchestrator.ErrInvalidRange)
}
