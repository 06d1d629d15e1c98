package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/poolside-scheduler/internal/booking"
)

func newRunCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one booking run and print the outcome",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := buildApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.close()

			outcome := a.orch.Run(ctx, force)
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			_ = enc.Encode(outcome)

			if outcome.Status == booking.StatusAborted {
				return fmt.Errorf("run aborted: %s", outcome.Reason)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "run even outside the trigger window")
	return cmd
}
