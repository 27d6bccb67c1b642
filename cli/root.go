// Package cli holds the speedraw commands.
package cli

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"speedraw/logger"
)

// NewRootCmd builds the speedraw command tree.
func NewRootCmd() *cobra.Command {
	var logFile, logLevel string

	cmd := &cobra.Command{
		Use:   "speedraw",
		Short: "Batch speed drawing animation service",
		Long: `Speedraw turns batches of images into speed drawing animations.

Each image is uploaded, converted to line art and rendered with its own
animation settings, falling back to the global defaults.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			if logFile != "" {
				if err := logger.Init(logFile, true); err != nil {
					return err
				}
			}
			if logLevel != "" {
				logger.SetLevel(logger.ParseLevel(logLevel))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write logs to this file")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Minimum log level (debug, info, warn, error)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newTokenCmd())
	cmd.AddCommand(newStylesCmd())

	return cmd
}
