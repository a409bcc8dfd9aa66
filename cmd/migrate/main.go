// Command migrate manages the database schema outside of server start up.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/freekieb7/neurovault-users/internal/database"
	"github.com/jessevdk/go-flags"
)

type Options struct {
	DBURL string `long:"db-url" env:"DB_URL" required:"true" description:"Postgres connection URL"`
}

type UpCommand struct{}

type DownCommand struct {
	Steps int `long:"steps" default:"1" description:"Number of migrations to roll back, 0 rolls back everything"`
}

type VersionCommand struct{}

type ForceCommand struct {
	Args struct {
		Version int `positional-arg-name:"version" required:"true"`
	} `positional-args:"yes"`
}

var (
	opts   Options
	logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
)

func migrator() database.Migrator {
	return database.NewMigrator(opts.DBURL, logger)
}

func (c *UpCommand) Execute([]string) error {
	return migrator().Up()
}

func (c *DownCommand) Execute([]string) error {
	if c.Steps < 0 {
		return fmt.Errorf("steps must not be negative, got %d", c.Steps)
	}
	return migrator().Down(c.Steps)
}

func (c *VersionCommand) Execute([]string) error {
	version, dirty, err := migrator().Version()
	if err != nil {
		return err
	}
	fmt.Printf("version=%d dirty=%t\n", version, dirty)
	return nil
}

func (c *ForceCommand) Execute([]string) error {
	return migrator().Force(c.Args.Version)
}

func main() {
	parser := flags.NewParser(&opts, flags.Default)
	_, _ = parser.AddCommand("up", "Apply all pending migrations", "", &UpCommand{})
	_, _ = parser.AddCommand("down", "Roll back migrations", "", &DownCommand{})
	_, _ = parser.AddCommand("version", "Print the current schema version", "", &VersionCommand{})
	_, _ = parser.AddCommand("force", "Set the schema version without migrating", "", &ForceCommand{})

	if _, err := parser.Parse(); err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		os.Exit(1)
	}
}
