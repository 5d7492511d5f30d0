package cli

import (
	"github.com/spf13/cobra"

	"github.com/mcoot/qhunt/internal/api/request"
	"github.com/mcoot/qhunt/internal/api/response"
)

func newScanCmd() *cobra.Command {
	var method string

	cmd := &cobra.Command{
		Use:   "scan <event-id> <player-id> <code>",
		Short: "Submit a code for a player",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := request.ScanRequest{
				EventID:   args[0],
				PlayerID:  args[1],
				CodeValue: args[2],
				Method:    method,
			}
			var result response.ScanResponse

			if err := client.Post("/api/v1/scan", req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&method, "method", "manual", "Scan method: qr, manual")

	return cmd
}
