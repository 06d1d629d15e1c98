package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/poolside-scheduler/internal/scheduler"
	"github.com/example/poolside-scheduler/internal/web"
)

func newServerCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the trigger endpoint + cron schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := buildApp(ctx, migrateUp)
			if err != nil {
				return err
			}
			defer a.close()

			sched, err := scheduler.New(a.cfg.CronSpec, a.cfg.Timezone, func() {
				a.orch.Run(ctx, false)
			})
			if err != nil {
				return err
			}
			sched.Start(ctx)

			ws := &web.Server{
				Orch:     a.orch,
				Auth:     a.auth,
				Outcomes: a.outcomes,
				Margin:   a.cfg.AuthSafetyMargin,
			}
			return web.Start(ctx, a.cfg.HTTPAddr, ws.Routes())
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup")
	cmd.Flags().Lookup("migrate").NoOptDefVal = "true"
	return cmd
}
