package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/poolside-scheduler/internal/token"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the stored session token",
	}
	cmd.AddCommand(newTokenStatusCmd())
	cmd.AddCommand(newTokenRefreshCmd())
	cmd.AddCommand(newTokenImportCmd())
	return cmd
}

func newTokenStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored token's expiry",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := buildApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.close()

			sess, err := a.auth.Peek(ctx)
			if err != nil {
				return err
			}
			now := time.Now()
			fmt.Printf("issued:   %s\n", sess.IssuedAt.Format(time.RFC3339))
			fmt.Printf("expires:  %s (in %s)\n", sess.ExpiresAt.Format(time.RFC3339), sess.TTL(now).Round(time.Second))
			fmt.Printf("usable:   %v\n", sess.Usable(now, a.cfg.AuthSafetyMargin))
			return nil
		},
	}
}

func newTokenRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Force a token refresh now",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := buildApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.close()

			sess, err := a.auth.ForceRefresh(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("refreshed; expires %s\n", sess.ExpiresAt.Format(time.RFC3339))
			return nil
		},
	}
}

// newTokenImportCmd seeds the store with tokens captured from the one-time
// interactive login, which needs a browser and cannot run headless.
func newTokenImportCmd() *cobra.Command {
	var accessToken, refreshToken string
	var expiresIn time.Duration

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Store tokens captured from an interactive login",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := buildApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.close()

			now := time.Now()
			sess := token.Session{
				AccessToken:  accessToken,
				RefreshToken: refreshToken,
				IssuedAt:     now,
				ExpiresAt:    now.Add(expiresIn),
			}
			if err := a.store.Save(ctx, sess); err != nil {
				return err
			}
			fmt.Printf("session stored; expires %s\n", sess.ExpiresAt.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&accessToken, "access-token", "", "access token")
	cmd.Flags().StringVar(&refreshToken, "refresh-token", "", "refresh token")
	cmd.Flags().DurationVar(&expiresIn, "expires-in", 2*time.Hour, "access token lifetime")
	_ = cmd.MarkFlagRequired("access-token")
	_ = cmd.MarkFlagRequired("refresh-token")
	return cmd
}
