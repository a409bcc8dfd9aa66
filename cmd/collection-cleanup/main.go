// Command collection-cleanup checks the per-collection image folders in
// private media storage against the collection table.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/freekieb7/neurovault-users/internal/collections"
	"github.com/freekieb7/neurovault-users/internal/config"
	"github.com/freekieb7/neurovault-users/internal/database"
	"github.com/jessevdk/go-flags"
)

type Options struct {
	Mode    string `long:"mode" env:"CLEANUP_MODE" default:"strict" choice:"strict" choice:"remove-missing" description:"Abort on the first orphan folder, or remove orphan folders"`
	DryRun  bool   `long:"dry-run" description:"Report what would be removed without removing anything"`
	DBURL   string `long:"db-url" env:"DB_URL" required:"true" description:"Postgres connection URL"`
	Verbose bool   `short:"v" long:"verbose" description:"Log every folder"`
}

func main() {
	var opts Options

	parser := flags.NewParser(&opts, flags.Default)
	parser.Usage = "[OPTIONS]"
	if _, err := parser.Parse(); err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	if err := Run(context.Background(), opts); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func Run(ctx context.Context, opts Options) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	media, err := config.LoadMedia()
	if err != nil {
		return fmt.Errorf("failed to load media config: %w", err)
	}

	store, err := newFolderStore(media)
	if err != nil {
		return fmt.Errorf("failed to open media storage: %w", err)
	}

	db := database.NewDatabase()
	if err := db.Connect(ctx, config.Database{URL: opts.DBURL, MaxOpenConns: 2, MaxIdleConns: 1}); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	cleaner := collections.Cleaner{
		Store:  store,
		Lookup: collections.NewPostgresLookup(db.Pool),
		Mode:   collections.Mode(opts.Mode),
		DryRun: opts.DryRun,
		Logger: logger,
	}

	logger.InfoContext(ctx, "Checking collection folders", "storage", media.StorageMode, "mode", opts.Mode, "dry_run", opts.DryRun)
	_, err = cleaner.Run(ctx)
	return err
}

func newFolderStore(media config.Media) (collections.FolderStore, error) {
	if media.StorageMode == "s3" {
		return collections.NewS3Store(media.S3.Endpoint, media.S3.AccessKey, media.S3.SecretKey, media.S3.Bucket, media.S3.UseSSL)
	}
	return collections.NewFilesystemStore(media.PrivateRoot), nil
}
