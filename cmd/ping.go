package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Verify the session token against the remote account endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := buildApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.close()

			sess, err := a.auth.ValidToken(ctx)
			if err != nil {
				return err
			}
			if err := a.client.Ping(ctx, sess.AccessToken); err != nil {
				return err
			}
			fmt.Println("token accepted")
			return nil
		},
	}
}
