package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

var showJSON bool

var showCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Shows one review run, rendering its summary as markdown",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		run, err := newAPIClient().getRun(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("failed to load review run: %w", err)
		}

		if showJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(run)
		}

		fmt.Printf("Run      %s\n", run.ID)
		fmt.Printf("Repo     %s#%d\n", run.RepoFullName, run.PRNumber)
		fmt.Printf("Status   %s\n", statusColor(run.Status).Sprint(run.Status))
		if run.Decision != "" {
			fmt.Printf("Decision %s\n", run.Decision)
		}
		fmt.Printf("Comments %d\n", run.CommentCount)
		if run.Error != "" {
			errorColor.Printf("Error    %s\n", run.Error)
		}

		if run.Summary != "" {
			fmt.Println()
			rendered, err := renderMarkdown(run.Summary)
			if err != nil {
				// Fall back to the raw text on rendering trouble.
				fmt.Println(run.Summary)
				return nil
			}
			fmt.Print(rendered)
		}
		return nil
	},
}

// renderMarkdown renders markdown for the terminal.
func renderMarkdown(md string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", err
	}
	return r.Render(md)
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Output the run as JSON")
	rootCmd.AddCommand(showCmd)
}
