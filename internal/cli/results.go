package cli

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

func newResultsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results",
		Short: "Final results commands",
	}

	cmd.AddCommand(newResultsExportCmd())

	return cmd
}

func newResultsExportCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "export <event-id>",
		Short: "Download the results workbook (.xlsx)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				file = args[0] + "-results.xlsx"
			}

			data, err := client.Raw(http.MethodGet, eventPath(args[0], "results.xlsx"), nil)
			if err != nil {
				return err
			}
			if err := os.WriteFile(file, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", file, err)
			}

			output(cmd).PrintMessage(fmt.Sprintf("Wrote %s (%d bytes)", file, len(data)))
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Output path (default <event-id>-results.xlsx)")

	return cmd
}
