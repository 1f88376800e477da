package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/tejjnayak/clawdeck/internal/config"
	"github.com/tejjnayak/clawdeck/internal/db"
	"github.com/tejjnayak/clawdeck/internal/dispatch"
	"github.com/tejjnayak/clawdeck/internal/gateway"
	"github.com/tejjnayak/clawdeck/internal/log"
	"github.com/tejjnayak/clawdeck/internal/proto"
	"github.com/tejjnayak/clawdeck/internal/session"
	"github.com/tejjnayak/clawdeck/internal/usage"
	"github.com/tejjnayak/clawdeck/internal/version"
)

func init() {
	rootCmd.PersistentFlags().StringP("host", "H", "", "Gateway host (TCP, Unix socket, or named pipe)")
	rootCmd.PersistentFlags().StringP("data-dir", "D", "", "Custom clawdeck data directory")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Debug")
	rootCmd.PersistentFlags().String("token", "", "Gateway auth token")

	rootCmd.Flags().StringP("session", "s", "", "Session to focus on startup")
	rootCmd.Flags().StringP("prompt", "p", "", "Send a prompt to the focused session after connecting")
	rootCmd.Flags().BoolP("quiet", "q", false, "Hide the streaming progress transcript")
}

var rootCmd = &cobra.Command{
	Use:   "clawdeck",
	Short: "Terminal client for a clawd agent gateway",
	Long: `Clawdeck connects to a running clawd gateway, streams agent activity for
your chat sessions, and keeps per-session usage accounting. If the gateway
is not running and a gateway command is configured, it is launched on
demand.`,
	Example: `
	# Connect to the default gateway socket and stream the focused session
	clawdeck

	# Connect to a TCP gateway with a token
	clawdeck -H tcp://127.0.0.1:4096 --token $CLAWDECK_TOKEN

	# Focus a specific session and send a prompt
	clawdeck -s main -p "Summarize yesterday's notes"

	# Launch the configured gateway in the foreground
	clawdeck gateway
  `,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup(cmd)
		if err != nil {
			return err
		}
		return runStream(cmd, cfg)
	},
}

// Execute runs the CLI.
func Execute() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(version.Version),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}

// setup loads config, applies flag overrides, and configures logging.
func setup(cmd *cobra.Command) (*config.Config, error) {
	debug, _ := cmd.Flags().GetBool("debug")
	dataDir, _ := cmd.Flags().GetString("data-dir")

	cfg, err := config.Load(dataDir, debug)
	if err != nil {
		return nil, err
	}
	if host, _ := cmd.Flags().GetString("host"); host != "" {
		cfg.Host = host
	}
	if cfg.Host == "" {
		cfg.Host = gateway.DefaultHost()
	}
	if token, _ := cmd.Flags().GetString("token"); token != "" {
		cfg.Token = token
	}
	if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
		cfg.Options.QuietProgress = true
	}

	log.Setup(cfg.LogFile(), cfg.Options.Debug)
	slog.Debug("configuration loaded", "host", cfg.Host, "token", log.MaskToken(cfg.Token))
	return cfg, nil
}

func runStream(cmd *cobra.Command, cfg *config.Config) error {
	ctx := cmd.Context()

	client, err := gateway.NewClient(cfg.Host)
	if err != nil {
		return fmt.Errorf("invalid gateway host: %w", err)
	}

	// Buffer frames until the dispatcher is wired; processed strictly in
	// arrival order by the event loop below.
	frames := make(chan []byte, 256)
	client.OnData = func(frame []byte) {
		select {
		case frames <- frame:
		default:
			slog.Warn("dropping frame, event buffer full")
		}
	}

	connected := make(chan struct{}, 1)
	ctrl := gateway.NewController(client,
		gateway.WithToken(cfg.Token),
		gateway.WithLauncher(&gateway.ExecLauncher{
			Path: cfg.GatewayCommand,
			Args: cfg.GatewayArgs,
		}),
		gateway.OnStatus(func(status gateway.Status) {
			slog.Info("gateway status changed", "status", status)
			if status == gateway.StatusConnected {
				select {
				case connected <- struct{}{}:
				default:
				}
			}
		}),
	)
	defer ctrl.Close()
	client.OnDisconnect = func(err error) {
		ctrl.HandleDisconnect(ctx, err)
	}

	if cfg.GatewayCommand != "" && client.Health(ctx) != nil {
		if err := ctrl.Launch(ctx); err != nil {
			return fmt.Errorf("failed to launch gateway: %w", err)
		}
	} else {
		ctrl.Connect(ctx)
	}

	select {
	case <-connected:
	case <-time.After(time.Minute):
		return fmt.Errorf("timed out waiting for gateway connection")
	case <-ctx.Done():
		return ctx.Err()
	}

	sessions, err := client.ListSessions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(sessions) == 0 {
		// The session set is owned by the UI layer; seed a default tab.
		sessions = []*session.Session{session.New("main", "Main")}
	}
	store := session.NewStore(sessions...)
	if focus, _ := cmd.Flags().GetString("session"); focus != "" {
		store.SetFocused(focus)
	}

	conn, err := db.Connect(ctx, cfg.DataDir())
	if err != nil {
		return fmt.Errorf("failed to open usage database: %w", err)
	}
	defer conn.Close()
	usageStore := db.NewStore(conn)

	providers := usage.LoadProviders(cfg.DataDir())
	accountant := usage.NewAccountant(usage.NewCatalogLookup(providers), usage.PriceTable(providers))
	dispatcher := dispatch.New(store, accountant,
		dispatch.WithUI(newConsoleUI(os.Stdout)),
		dispatch.WithPersister(&usagePersister{store: usageStore}),
	)
	dispatcher.SetProgressSuppressed(cfg.Options.QuietProgress)

	refreshUsage := func() {
		refreshCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		totals, err := usageStore.SessionTotals(refreshCtx, store.FocusedID())
		if err != nil {
			slog.Error("failed to refresh session usage", "error", err)
			return
		}
		slog.Info("session usage refreshed",
			"session", store.FocusedID(),
			"requests", totals.Requests,
			"cost", totals.Cost)
	}
	// The first connect is covered by the direct call; the hook handles
	// reconnects from here on.
	ctrl.SetOnConnected(refreshUsage)
	refreshUsage()

	if prompt, _ := cmd.Flags().GetString("prompt"); prompt != "" {
		req := proto.Prompt{SessionID: store.FocusedID(), Content: prompt}
		if err := client.Send(ctx, req); err != nil {
			return fmt.Errorf("failed to send prompt: %w", err)
		}
	}

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, os.Interrupt)
	defer signal.Stop(sigch)

	for {
		select {
		case frame := <-frames:
			dispatcher.HandleFrame(frame)
		case <-sigch:
			slog.Info("received interrupt signal, shutting down")
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

// usagePersister adapts the sqlite usage store to the dispatcher's
// fire-and-forget persistence port.
type usagePersister struct {
	store *db.Store
}

func (p *usagePersister) RecordRun(ctx context.Context, rec dispatch.RunRecord) error {
	return p.store.RecordUsage(ctx, db.UsageLog{
		RunID:        rec.RunID,
		SessionID:    rec.SessionID,
		Model:        rec.Model,
		Provider:     rec.Provider,
		InputTokens:  rec.InputTokens,
		OutputTokens: rec.OutputTokens,
		Cost:         rec.Cost,
	})
}
