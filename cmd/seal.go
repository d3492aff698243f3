package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/personachat-backend/internal/modules/chat/webhook"
	"github.com/yungbote/personachat-backend/internal/platform/secrets"
)

// NewSealWebhookCommand encrypts a webhook URL for a persona's webhook_url
// column, rejecting URLs the dispatcher would refuse.
func NewSealWebhookCommand() *cobra.Command {
	skipValidation := false
	cmd := &cobra.Command{
		Use:   "seal-webhook <url>",
		Short: "Encrypt a persona webhook URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, cfg, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync()

			if !skipValidation {
				if _, err := webhook.ValidateURL(args[0], cfg.Webhook); err != nil {
					return fmt.Errorf("webhook url rejected: %w", err)
				}
			}
			c, err := secrets.NewCipher(cfg.WebhookEncryptionKey)
			if err != nil {
				return err
			}
			sealed, err := c.Encrypt(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sealed)
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipValidation, "skip-validation", false, "Seal the URL even if the current allow-list rejects it")
	return cmd
}
