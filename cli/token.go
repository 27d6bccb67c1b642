package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"speedraw/config"
	"speedraw/models"
	"speedraw/utils"
)

func newTokenCmd() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
		grant   models.BatchGrant
		headers map[string]string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an API token signed with SPEEDRAW_JWT_SECRET",
		Example: `  # Token valid for one day, limited to 20 images per batch
  speedraw token --subject studio-a --ttl 24h --max-items 20

  # Publish through stored credentials and notify on completion
  speedraw token --subject studio-b --storage-key 4f0c... --callback https://example.com/done`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			grant.CallbackHeaders = headers
			claims := utils.NewClaims(config.GetJWTIssuer(), subject, ttl, grant)
			token, err := utils.CreateSpeedrawJWT(claims, config.GetJWTSecret())
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "Token subject (client name)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Validity period, 0 for no expiry")
	cmd.Flags().StringVar(&grant.CompletionCallback, "callback", "", "URL notified when a batch finishes")
	cmd.Flags().StringToStringVar(&headers, "callback-header", nil, "Extra callback headers (key=value)")
	cmd.Flags().IntVar(&grant.MaxItems, "max-items", 0, "Maximum images per batch, 0 for unlimited")
	cmd.Flags().StringVar(&grant.StorageKey, "storage-key", "", "Stored credentials used to publish animations")
	cmd.Flags().StringVar(&grant.SubDir, "subdir", "", "Folder for published animations")
	cmd.MarkFlagRequired("subject")

	return cmd
}
