package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/yungbote/personachat-backend/internal/app"
)

type ServeFlags struct {
	ListenAddr  string
	MetricsAddr string
}

func (f *ServeFlags) BindFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&f.ListenAddr, "listen", "", "The address to serve the API on (default LISTEN_ADDR or :8080)")
	flagSet.StringVar(&f.MetricsAddr, "listen-metrics", "", "The address to serve prometheus metrics on (default METRICS_ADDR or :9090)")
}

func NewServeCommand() *cobra.Command {
	f := &ServeFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, cfg, err := bootstrap()
			if err != nil {
				return err
			}
			if f.ListenAddr != "" {
				cfg.ListenAddr = f.ListenAddr
			}
			if f.MetricsAddr != "" {
				cfg.MetricsAddr = f.MetricsAddr
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, log, cfg)
			if err != nil {
				log.Error("startup failed", "error", err)
				log.Sync()
				return err
			}
			defer a.Close()

			if err := a.Run(ctx, cfg.ListenAddr, cfg.MetricsAddr); err != nil {
				log.Error("server stopped", "error", err)
				return err
			}
			log.Info("server stopped")
			return nil
		},
	}
	f.BindFlags(cmd.Flags())
	return cmd
}
