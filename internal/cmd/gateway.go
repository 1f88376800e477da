package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"

	"github.com/charmbracelet/log/v2"
	"github.com/spf13/cobra"

	"github.com/tejjnayak/clawdeck/internal/config"
)

func init() {
	rootCmd.AddCommand(gatewayCmd)
}

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Run the configured gateway process in the foreground",
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, _ := cmd.Flags().GetString("data-dir")
		debug, _ := cmd.Flags().GetBool("debug")

		cfg, err := config.Load(dataDir, debug)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %v", err)
		}
		if cfg.GatewayCommand == "" {
			return fmt.Errorf("no gateway command configured; set gateway_command in %s", cfg.DataDir())
		}

		logger := log.New(os.Stderr)
		logger.SetReportTimestamp(true)
		slog.SetDefault(slog.New(logger))
		if debug {
			logger.SetLevel(log.DebugLevel)
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}

		gw := exec.CommandContext(cmd.Context(), cfg.GatewayCommand, cfg.GatewayArgs...)
		gw.Stdout = os.Stdout
		gw.Stderr = os.Stderr

		slog.Info("Starting gateway...", "command", cfg.GatewayCommand)
		if err := gw.Start(); err != nil {
			return fmt.Errorf("failed to start gateway: %v", err)
		}

		errch := make(chan error, 1)
		sigch := make(chan os.Signal, 1)
		signal.Notify(sigch, os.Interrupt)
		defer signal.Stop(sigch)

		go func() {
			errch <- gw.Wait()
		}()

		select {
		case <-sigch:
			slog.Info("Received interrupt signal, stopping gateway...")
			_ = gw.Process.Signal(os.Interrupt)
			return <-errch
		case err := <-errch:
			if err != nil {
				slog.Error("Gateway exited", "error", err)
				return fmt.Errorf("gateway error: %v", err)
			}
			return nil
		}
	},
}
