package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iho/cashdesk/internal/adapter/notification"
	postgresRepo "github.com/iho/cashdesk/internal/adapter/repository/postgres"
	"github.com/iho/cashdesk/internal/infrastructure/eventpublisher"
	natsinfra "github.com/iho/cashdesk/internal/infrastructure/nats"
)

func newOutboxCmd() *cobra.Command {
	outboxCmd := &cobra.Command{
		Use:   "outbox",
		Short: "Outbox maintenance",
	}

	outboxCmd.AddCommand(&cobra.Command{
		Use:   "drain",
		Short: "Publish every pending outbox event once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			var publisher eventpublisher.Publisher = eventpublisher.NewLogPublisher(e.log)
			if e.cfg.NATSURL != "" {
				conn, err := natsinfra.Connect(natsinfra.DefaultConfig(e.cfg.NATSURL), e.log)
				if err != nil {
					return err
				}
				defer conn.Drain()
				publisher = notification.NewNATSPublisher(conn, e.cfg.NATSSubject)
			}

			ep := eventpublisher.NewEventPublisher(eventpublisher.Config{
				OutboxRepo: postgresRepo.NewOutboxRepository(e.pool),
				Publisher:  publisher,
				Logger:     e.log,
				BatchSize:  e.cfg.OutboxBatchSize,
			})

			n, err := ep.Drain(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "published %d events\n", n)
			return err
		},
	})

	return outboxCmd
}
