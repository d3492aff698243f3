package main

import (
	"github.com/spf13/cobra"

	"github.com/yungbote/personachat-backend/internal/data/db"
)

func NewMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, cfg, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync()

			pg, err := db.NewPostgresService(log, cfg.Postgres)
			if err != nil {
				return err
			}
			defer pg.Close()
			if err := pg.AutoMigrateAll(); err != nil {
				return err
			}
			log.Info("migration complete")
			return nil
		},
	}
}
