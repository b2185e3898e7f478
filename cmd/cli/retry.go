package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var retryCmd = &cobra.Command{
	Use:   "retry <run-id>",
	Short: "Re-queues a failed review run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runID, err := newAPIClient().retryRun(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("failed to retry review run: %w", err)
		}
		successColor.Printf("Run %s re-queued.\n", runID)
		return nil
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	rootCmd.AddCommand(retryCmd)
}
