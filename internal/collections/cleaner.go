package collections

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
)

type Mode string

const (
	// ModeStrict stops at the first folder whose collection is missing or whose
	// name is not a collection id. Nothing is removed in this mode.
	ModeStrict Mode = "strict"
	// ModeRemoveMissing removes folders of missing collections and skips
	// folders that are not named after a collection id.
	ModeRemoveMissing Mode = "remove-missing"
)

func (m Mode) IsValid() bool {
	return m == ModeStrict || m == ModeRemoveMissing
}

type Report struct {
	Scanned int
	Kept    int
	Removed int
	Skipped int
}

type Cleaner struct {
	Store  FolderStore
	Lookup Lookup
	Mode   Mode
	DryRun bool
	Logger *slog.Logger
}

func (c *Cleaner) Run(ctx context.Context) (Report, error) {
	var report Report

	if !c.Mode.IsValid() {
		return report, fmt.Errorf("invalid mode %q", c.Mode)
	}

	folders, err := c.Store.ListFolders(ctx)
	if err != nil {
		return report, err
	}

	for _, folder := range folders {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Scanned++

		id, err := strconv.ParseInt(folder, 10, 64)
		if err != nil {
			if c.Mode == ModeStrict {
				return report, fmt.Errorf("folder %q is not a collection id: %w", folder, err)
			}
			c.Logger.WarnContext(ctx, "Skipping folder that is not a collection id", "folder", folder)
			report.Skipped++
			continue
		}

		exists, err := c.Lookup.Exists(ctx, id)
		if err != nil {
			return report, err
		}
		if exists {
			c.Logger.DebugContext(ctx, "Keeping folder", "folder", folder)
			report.Kept++
			continue
		}

		if c.Mode == ModeStrict {
			return report, fmt.Errorf("collection %d does not exist", id)
		}

		if c.DryRun {
			c.Logger.InfoContext(ctx, "Would remove folder", "folder", folder)
			report.Removed++
			continue
		}

		if err := c.Store.RemoveFolder(ctx, folder); err != nil {
			return report, err
		}
		c.Logger.InfoContext(ctx, "Removed folder", "folder", folder)
		report.Removed++
	}

	c.Logger.InfoContext(ctx, "Collection cleanup finished",
		"mode", c.Mode,
		"dry_run", c.DryRun,
		"scanned", report.Scanned,
		"kept", report.Kept,
		"removed", report.Removed,
		"skipped", report.Skipped,
	)

	return report, nil
}
