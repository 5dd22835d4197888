package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/apps/communities"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/apps/deliveries"
)

func scheduleCmd() *cobra.Command {
	var (
		communityID string
		date        string
		staff       []string
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Schedule a delivery run for a community",
		Example: `  foodbankctl schedule --bank bamx-gdl --community 3f1c... \
    --date 2026-11-07T09:00:00-06:00 --staff 9a2b... --staff 77de...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(communityID)
			if err != nil {
				return fmt.Errorf("invalid --community: %w", err)
			}
			when, err := time.Parse(time.RFC3339, date)
			if err != nil {
				return fmt.Errorf("invalid --date, want RFC 3339: %w", err)
			}
			staffIDs := make([]uuid.UUID, 0, len(staff))
			for _, s := range staff {
				sid, err := uuid.Parse(s)
				if err != nil {
					return fmt.Errorf("invalid --staff %q: %w", s, err)
				}
				staffIDs = append(staffIDs, sid)
			}

			e, err := setup()
			if err != nil {
				return err
			}
			defer e.close()
			bank, err := e.requireBank()
			if err != nil {
				return err
			}

			registry := communities.NewService(e.db, e.registry, e.validate)
			scheduler := deliveries.NewScheduler(e.db, registry, deliveries.NewCodeAllocator())
			res, err := scheduler.Schedule(cmd.Context(), bank, &deliveries.ScheduleRequest{
				CommunityID:  id,
				DeliveryDate: when,
				StaffIDs:     staffIDs,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d deliveries, skipped %d already scheduled\n", res.CreatedCount, res.SkippedCount)
			return nil
		},
	}

	cmd.Flags().StringVarP(&communityID, "community", "c", "", "community id")
	cmd.Flags().StringVarP(&date, "date", "d", "", "delivery date and time (RFC 3339)")
	cmd.Flags().StringSliceVarP(&staff, "staff", "s", nil, "staff user id (repeatable)")
	_ = cmd.MarkFlagRequired("community")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}
