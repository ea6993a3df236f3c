package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/brutusburger/brutabot/internal/catalog"
	"github.com/brutusburger/brutabot/internal/config"
)

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed <menu.yaml>",
		Short: "Load a menu file into the catalog database",
		Long: `Load a YAML menu definition into the catalog database.

The file lists items with name, description, price, category and the
trigger phrases customers use for them. Existing rows are not removed;
run against a fresh database to start over.

Example:
  brutabot seed -c bot.yaml menu.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runSeed(opts *RootOptions, menuPath string, cmd *cobra.Command) error {
	logLevel := slog.LevelWarn
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	formatter := &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: opts.Verbose,
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		formatter.Error(ErrCodeConfig, "failed to load config", err.Error())
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	store, err := catalog.Open(cfg.Databases.Catalog)
	if err != nil {
		formatter.Error(ErrCodeDatabase, "failed to open catalog database", err.Error())
		return WrapExitError(ExitCommandError, "failed to open catalog database", err)
	}
	defer store.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	count, err := catalog.SeedFromFile(ctx, store, menuPath)
	if err != nil {
		formatter.Error(ErrCodeSeedFailed, "failed to seed menu", err.Error())
		return WrapExitError(ExitCommandError, "failed to seed menu", err)
	}

	if opts.Format == "json" {
		return formatter.Success(map[string]interface{}{
			"items":    count,
			"database": cfg.Databases.Catalog,
		})
	}
	return formatter.Success(fmt.Sprintf("Seeded %d items into %s", count, cfg.Databases.Catalog))
}
