package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	redisclient "github.com/yungbote/personachat-backend/internal/clients/redis"
)

// NewTailAuditCommand streams audit events published by running servers.
func NewTailAuditCommand() *cobra.Command {
	eventType := ""
	cmd := &cobra.Command{
		Use:   "tail-audit",
		Short: "Print audit events from the redis audit channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, cfg, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync()

			bus, err := redisclient.NewAuditBus(log, redisclient.Config{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
				Channel:  cfg.AuditRedisChannel,
			})
			if err != nil {
				return err
			}
			defer bus.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			err = bus.StartForwarder(ctx, func(m redisclient.AuditMessage) {
				if eventType != "" && m.EventType != eventType {
					return
				}
				line, err := json.Marshal(m)
				if err != nil {
					return
				}
				fmt.Fprintln(out, string(line))
			})
			if err != nil {
				return err
			}
			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().StringVar(&eventType, "event", "", "Only print events of this type")
	return cmd
}
