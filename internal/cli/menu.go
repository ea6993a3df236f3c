package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/brutusburger/brutabot/internal/catalog"
	"github.com/brutusburger/brutabot/internal/config"
)

// NewMenuCommand creates the menu command.
func NewMenuCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "menu",
		Short: "List the catalog",
		Long: `List every item in the catalog database, including the trigger
phrases that match it and whether it is currently available.

Example:
  brutabot menu -c bot.yaml
  brutabot menu -c bot.yaml --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMenu(rootOpts, cmd)
		},
	}

	return cmd
}

// menuEntry is the JSON shape for one catalog item.
type menuEntry struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Price       float64  `json:"price"`
	Category    string   `json:"category"`
	Available   bool     `json:"available"`
	Triggers    []string `json:"triggers,omitempty"`
}

func runMenu(opts *RootOptions, cmd *cobra.Command) error {
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

	items, err := store.Items(ctx)
	if err != nil {
		formatter.Error(ErrCodeDatabase, "failed to list catalog", err.Error())
		return WrapExitError(ExitCommandError, "failed to list catalog", err)
	}

	triggers, err := store.Triggers(ctx)
	if err != nil {
		formatter.Error(ErrCodeDatabase, "failed to list triggers", err.Error())
		return WrapExitError(ExitCommandError, "failed to list triggers", err)
	}
	byItem := map[int64][]string{}
	for phrase, id := range triggers {
		byItem[id] = append(byItem[id], phrase)
	}

	entries := make([]menuEntry, 0, len(items))
	for _, it := range items {
		entries = append(entries, menuEntry{
			ID:          it.ID,
			Name:        it.Name,
			Description: it.Description,
			Price:       it.Price,
			Category:    string(it.Category),
			Available:   it.Available,
			Triggers:    byItem[it.ID],
		})
	}

	if opts.Format == "json" {
		return formatter.Success(entries)
	}

	var b strings.Builder
	for _, e := range entries {
		marker := " "
		if !e.Available {
			marker = "x"
		}
		fmt.Fprintf(&b, "[%s] #%d %s (%s) R$ %.2f\n", marker, e.ID, e.Name, e.Category, e.Price)
		if len(e.Triggers) > 0 {
			fmt.Fprintf(&b, "      gatilhos: %s\n", strings.Join(e.Triggers, ", "))
		}
	}
	if b.Len() == 0 {
		return formatter.Success("catalog is empty")
	}
	return formatter.Success(strings.TrimRight(b.String(), "\n"))
}
