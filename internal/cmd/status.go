package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tejjnayak/clawdeck/internal/gateway"
	"github.com/tejjnayak/clawdeck/internal/version"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the gateway connection",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup(cmd)
		if err != nil {
			return err
		}

		client, err := gateway.NewClient(cfg.Host)
		if err != nil {
			return fmt.Errorf("invalid gateway host: %w", err)
		}

		fmt.Printf("clawdeck %s\n", version.Version)
		fmt.Printf("gateway:  %s\n", cfg.Host)
		if err := client.Health(cmd.Context()); err != nil {
			fmt.Println("status:   unreachable")
			return err
		}
		fmt.Println("status:   healthy")
		return nil
	},
}
