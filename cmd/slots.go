package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newSlotsCmd() *cobra.Command {
	var venueID string

	cmd := &cobra.Command{
		Use:   "slots",
		Short: "List open slots at a venue for the current target slot",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := buildApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.close()

			if venueID == "" {
				venueID = a.cfg.Venues[0].ID
			}

			slot, ok := a.cfg.Window().TargetSlot(time.Now())
			if !ok {
				return fmt.Errorf("target date is blacked out")
			}

			sess, err := a.auth.ValidToken(ctx)
			if err != nil {
				return err
			}
			slots, err := a.client.Availability(ctx, sess.AccessToken, venueID, slot, a.cfg.PartySize)
			if err != nil {
				return err
			}
			if len(slots) == 0 {
				fmt.Printf("no open slots at %s for %s\n", venueID, slot.Format(time.RFC3339))
				return nil
			}
			for _, s := range slots {
				fmt.Printf("%s  duration=%dm  type=%s  area=%s\n", s.Start, s.Duration, s.TableType, s.Area)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&venueID, "venue", "", "venue id (default: highest priority venue)")
	return cmd
}
