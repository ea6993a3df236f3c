package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/brutusburger/brutabot/internal/catalog"
	"github.com/brutusburger/brutabot/internal/config"
	"github.com/brutusburger/brutabot/internal/flow"
	"github.com/brutusburger/brutabot/internal/followup"
	"github.com/brutusburger/brutabot/internal/geo"
	"github.com/brutusburger/brutabot/internal/messages"
	"github.com/brutusburger/brutabot/internal/orders"
	"github.com/brutusburger/brutabot/internal/pricing"
	"github.com/brutusburger/brutabot/internal/resolver"
	"github.com/brutusburger/brutabot/internal/session"
)

// ChatOptions holds flags for the chat command.
type ChatOptions struct {
	*RootOptions
	Customer string
}

// NewChatCommand creates the chat command.
func NewChatCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ChatOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the bot from the terminal",
		Long: `Start an interactive session with the ordering bot.

Each line you type is handled as a customer message. Two slash
commands map the channel features that have no text form:

  /local <lat> <lng>   send a location pin
  /saiu                mark the finalized order out for delivery

Example:
  brutabot chat -c bot.yaml
  brutabot chat -c bot.yaml --customer 554299999999`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Customer, "customer", "console", "customer id for the session")

	return cmd
}

// consoleTransport prints replies to the terminal.
type consoleTransport struct {
	out  io.Writer
	menu flow.MenuSource
}

func (t *consoleTransport) Reply(ctx context.Context, customerID, text string) error {
	fmt.Fprintln(t.out, text)
	fmt.Fprintln(t.out)
	return nil
}

func (t *consoleTransport) SendMenu(ctx context.Context, customerID string) error {
	items, err := t.menu.Items(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(t.out, "*CARDÁPIO*")
	for _, it := range items {
		if !it.Available {
			continue
		}
		fmt.Fprintf(t.out, "%s - R$ %.2f\n", it.Name, it.Price)
		if it.Description != "" {
			fmt.Fprintf(t.out, "  %s\n", it.Description)
		}
	}
	fmt.Fprintln(t.out)
	return nil
}

// consoleNotifier prints operator notifications inline, marked so they
// are not mistaken for bot replies.
type consoleNotifier struct {
	out io.Writer
}

func (n *consoleNotifier) NotifySupport(ctx context.Context, text string) error {
	fmt.Fprintf(n.out, "[operador]\n%s\n\n", text)
	return nil
}

func runChat(opts *ChatOptions, cmd *cobra.Command) error {
	logLevel := slog.LevelWarn
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	catStore, err := catalog.Open(cfg.Databases.Catalog)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open catalog database", err)
	}
	defer catStore.Close()

	orderStore, err := orders.Open(cfg.Databases.Orders)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open orders database", err)
	}
	defer orderStore.Close()

	msgStore, err := messages.OpenStore(cfg.Databases.Messages)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open messages database", err)
	}
	defer msgStore.Close()

	geocoder := geo.NewNominatimGeocoder(cfg.Geo.UserAgent,
		geo.WithNominatimURL(nominatimURL(cfg)))
	router := geo.NewOSRMRouter(geo.WithOSRMURL(osrmURL(cfg)))
	quoter := pricing.NewQuoter(router, geocoder, cfg.Origin(),
		pricing.WithPolicy(cfg.Policy()),
		pricing.WithGeoPolicy(cfg.GeoPolicy()))

	cache := catalog.NewCache(catStore)
	transport := &consoleTransport{out: cmd.OutOrStdout(), menu: catStore}

	machine := flow.New(flow.Deps{
		Sessions:  session.NewStore(),
		Resolver:  resolver.New(cache),
		Catalog:   cache,
		Menu:      catStore,
		Quoter:    quoter,
		Archive:   orderStore,
		Messages:  messages.NewTable(messages.WithStore(msgStore)),
		Transport: transport,
		Notifier:  &consoleNotifier{out: cmd.OutOrStdout()},
		Scheduler: followup.TimerScheduler{},
	},
		flow.WithPixKey(cfg.Checkout.PixKey),
		flow.WithPickup(cfg.Checkout.PickupEnabled),
		flow.WithFollowupDelay(cfg.Checkout.FollowupDelay),
	)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Conversando como %s. Ctrl-D encerra.\n\n", opts.Customer)

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if handled, err := handleSlash(ctx, machine, opts.Customer, line, cmd.OutOrStdout()); handled {
			if err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "erro: %v\n\n", err)
			}
			continue
		}
		machine.HandleMessage(ctx, opts.Customer, line)
	}
	if err := scanner.Err(); err != nil {
		return WrapExitError(ExitFailure, "reading input", err)
	}
	return nil
}

// handleSlash dispatches the channel features that have no text form.
func handleSlash(ctx context.Context, m *flow.Machine, customerID, line string, out io.Writer) (bool, error) {
	if !strings.HasPrefix(line, "/") {
		return false, nil
	}
	fields := strings.Fields(line)
	switch fields[0] {
	case "/local":
		if len(fields) != 3 {
			return true, fmt.Errorf("uso: /local <lat> <lng>")
		}
		lat, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return true, fmt.Errorf("latitude inválida: %q", fields[1])
		}
		lng, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return true, fmt.Errorf("longitude inválida: %q", fields[2])
		}
		m.HandleLocation(ctx, customerID, lat, lng)
		return true, nil
	case "/saiu":
		return true, m.MarkOutForDelivery(ctx, customerID)
	default:
		return true, fmt.Errorf("comando desconhecido: %s", fields[0])
	}
}

func nominatimURL(cfg config.Config) string {
	if cfg.Geo.NominatimURL != "" {
		return cfg.Geo.NominatimURL
	}
	return geo.DefaultNominatimURL
}

func osrmURL(cfg config.Config) string {
	if cfg.Geo.OSRMURL != "" {
		return cfg.Geo.OSRMURL
	}
	return geo.DefaultOSRMURL
}
