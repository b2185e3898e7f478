package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var outputJSON bool

// Color definitions
var (
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	dimColor     = color.New(color.FgHiBlack)
)

var statusCmd = &cobra.Command{
	Use:   "status <owner/repo> <pr-number>",
	Short: "Shows the review runs of a pull request",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		number, err := strconv.Atoi(args[1])
		if err != nil || number <= 0 {
			return fmt.Errorf("invalid pull request number %q", args[1])
		}

		runs, err := newAPIClient().listRuns(context.Background(), args[0], number)
		if err != nil {
			return fmt.Errorf("failed to list review runs: %w", err)
		}

		if outputJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(runs)
		}

		if len(runs) == 0 {
			fmt.Printf("No review runs found for %s#%d.\n", args[0], number)
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "RUN ID\tSTATUS\tDECISION\tCOMMENTS\tTRIGGERED BY\tUPDATED")
		for _, run := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
				run.ID,
				statusColor(run.Status).Sprint(run.Status),
				run.Decision,
				run.CommentCount,
				run.TriggeredBy,
				run.UpdatedAt,
			)
		}
		return w.Flush()
	},
}

// statusColor maps a run status to its display color.
func statusColor(status string) *color.Color {
	switch status {
	case "completed":
		return successColor
	case "failed":
		return errorColor
	case "processing":
		return warnColor
	default:
		return dimColor
	}
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	statusCmd.Flags().BoolVar(&outputJSON, "json", false, "Output status as JSON")
	rootCmd.AddCommand(statusCmd)
}
