package main

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"venue-booking-backend/internal/availability"
	"venue-booking-backend/internal/db"
	"venue-booking-backend/internal/model"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			gormDB, err := db.Init(&cfg.Database)
			if err != nil {
				return err
			}
			if sqlDB, err := gormDB.DB(); err == nil {
				defer sqlDB.Close()
			}
			cmd.Println("schema is up to date")
			return nil
		},
	}
}

func newPlanCmd(opts *rootOptions) *cobra.Command {
	var (
		family string
		force  bool
	)
	c := &cobra.Command{
		Use:   "plan <booking-id>",
		Short: "Plan automation for one booking",
		Long: "Plans every family, or only --family. With --force the family's pending and\n" +
			"failed jobs are cancelled and the family is planned again.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if force && family == "" {
				return errors.New("--force requires --family")
			}
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()
			a.start(cmd.Context())

			now := time.Now()
			if family == "" {
				results, err := a.planner.PlanAll(cmd.Context(), args[0], now)
				if perr := printJSON(cmd.OutOrStdout(), results); perr != nil {
					return perr
				}
				return err
			}

			f := model.JobFamily(family)
			if force {
				res, err := a.planner.ForceReschedule(cmd.Context(), args[0], f, now)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			}
			res, err := a.planner.PlanFamily(cmd.Context(), args[0], f, false, now)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	c.Flags().StringVar(&family, "family", "", "balance_payment, host_report, guest_feedback or lifecycle")
	c.Flags().BoolVar(&force, "force", false, "cancel live jobs and replan the family")
	return c
}

func newSweepCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one replanning pass over every active booking",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()
			a.start(cmd.Context())

			sum, err := a.sweeper.SweepOnce(cmd.Context())
			if perr := printJSON(cmd.OutOrStdout(), sum); perr != nil {
				return perr
			}
			return err
		},
	}
}

func newResolveCmd(opts *rootOptions) *cobra.Command {
	var p availability.Proposal
	var bookingType string
	c := &cobra.Command{
		Use:   "resolve",
		Short: "Check whether a window is free without booking it",
		RunE: func(cmd *cobra.Command, args []string) error {
			p.Type = model.BookingType(bookingType)
			if !p.Type.Valid() {
				return errors.Newf("--type must be daily or hourly, got %q", bookingType)
			}
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			d, err := a.bookings.Check(cmd.Context(), p)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), d)
		},
	}
	c.Flags().StringVar(&p.Date, "date", "", "event date, YYYY-MM-DD")
	c.Flags().StringVar(&bookingType, "type", string(model.BookingTypeHourly), "daily or hourly")
	c.Flags().StringVar(&p.StartTime, "start", "", "start time, HH:MM (hourly only)")
	c.Flags().StringVar(&p.EndTime, "end", "", "end time, HH:MM (hourly only)")
	_ = c.MarkFlagRequired("date")
	return c
}
