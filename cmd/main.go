package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yungbote/personachat-backend/internal/app"
	"github.com/yungbote/personachat-backend/internal/platform/logger"
)

var logMode string

var rootCmd = &cobra.Command{
	Use:           "personachat",
	Short:         "Persona chat backend",
	Long:          `Serves chat turns to persona webhooks, with retries, per-persona circuit breakers and message-edit branching.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(
		NewServeCommand(),
		NewMigrateCommand(),
		NewSealWebhookCommand(),
		NewTailAuditCommand(),
	)
	rootCmd.PersistentFlags().StringVar(&logMode, "log-mode", "",
		"Logger mode (development, production); defaults to LOG_MODE")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// bootstrap builds the logger and config shared by every command.
func bootstrap() (*logger.Logger, app.Config, error) {
	mode := logMode
	if mode == "" {
		mode = os.Getenv("LOG_MODE")
	}
	if mode == "" {
		mode = "development"
	}
	log, err := logger.New(mode)
	if err != nil {
		return nil, app.Config{}, fmt.Errorf("init logger: %w", err)
	}
	log.Info("Loading environment variables...")
	cfg, err := app.LoadConfig(log)
	if err != nil {
		log.Sync()
		return nil, app.Config{}, err
	}
	return log, cfg, nil
}
