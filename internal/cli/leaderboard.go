package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mcoot/qhunt/internal/api/response"
)

func newLeaderboardCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "leaderboard <event-id>",
		Short: "Show the ranked leaderboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := eventPath(args[0], "leaderboard")
			if limit > 0 {
				path += "?limit=" + strconv.Itoa(limit)
			}

			var result response.Leaderboard
			if err := client.Get(path, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Only show the top N players")

	return cmd
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <event-id>",
		Short: "Show aggregate event statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Stats

			if err := client.Get(eventPath(args[0], "stats"), &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newRecentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recent <event-id>",
		Short: "Show recent scan activity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result []response.RecentScan

			if err := client.Get(eventPath(args[0], "recent"), &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newTeamsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "teams <event-id>",
		Short: "Recompute and show team standings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result []response.TeamScore

			if err := client.Get(eventPath(args[0], "teams"), &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}
