package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewResetCmd zeroes every player's stats through the API.
func NewResetCmd(configPath, serverURL *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset all player stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadRuntime(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()

			resp, err := newAPIClient(cfg, *serverURL).ResetPlayers(cmd.Context())
			if err != nil {
				return err
			}
			log.Debug("reset done", zap.Int64("matched", resp.MatchedCount), zap.Int64("modified", resp.ModifiedCount))
			fmt.Fprintf(cmd.OutOrStdout(), "%s (matched %d, modified %d)\n", resp.Message, resp.MatchedCount, resp.ModifiedCount)
			return nil
		},
	}
}
