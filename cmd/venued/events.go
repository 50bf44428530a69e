package main

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"venue-booking-backend/internal/model"
	"venue-booking-backend/internal/mq"
)

func newEventsCmd(opts *rootOptions) *cobra.Command {
	var (
		queue string
		keys  []string
	)
	c := &cobra.Command{
		Use:   "events",
		Short: "Follow audit events published to the message broker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if cfg.MQ.URL == "" {
				return errors.WithHint(errors.New("mq.url is not configured"), "set AMQP_URL or mq.url")
			}

			consumer, err := mq.NewConsumer(cfg.MQ.URL, cfg.MQ.Exchange, queue, keys)
			if err != nil {
				return err
			}
			defer consumer.Close()

			deliveries, err := consumer.Deliveries(cmd.Context())
			if err != nil {
				return errors.Wrap(err, "consume")
			}
			out := cmd.OutOrStdout()
			for d := range deliveries {
				var ev model.BookingEvent
				if err := json.Unmarshal(d.Body, &ev); err != nil {
					cmd.PrintErrf("skipping malformed message on %s: %v\n", d.RoutingKey, err)
					_ = d.Nack(false, false)
					continue
				}
				if err := printJSON(out, ev); err != nil {
					return err
				}
				_ = d.Ack(false)
			}
			return nil
		},
	}
	c.Flags().StringVar(&queue, "queue", "", "durable queue name; empty for a temporary queue")
	c.Flags().StringSliceVar(&keys, "key", []string{mq.RoutingKeyPrefix + "#"}, "routing keys to bind")
	return c
}
