package cli

import (
	"net/url"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mcoot/qhunt/internal/api/request"
	"github.com/mcoot/qhunt/internal/api/response"
)

func newPlayerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "player",
		Short: "Player commands",
	}

	cmd.AddCommand(newPlayerRegisterCmd())
	cmd.AddCommand(newPlayerStartCmd())
	cmd.AddCommand(newPlayerGetCmd())
	cmd.AddCommand(newPlayerScansCmd())

	return cmd
}

func playerPath(eventID, playerID string, rest ...string) string {
	return eventPath(eventID, append([]string{"players", url.PathEscape(playerID)}, rest...)...)
}

func newPlayerRegisterCmd() *cobra.Command {
	var id, name, avatarType, avatarValue, team string

	cmd := &cobra.Command{
		Use:   "register <event-id>",
		Short: "Register a player, or update their profile",
		Long: `Register a player for an event. Registering again with the same
player ID is safe and updates the name or avatar when the phase allows it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" {
				id = uuid.NewString()
			}

			req := request.RegisterRequest{
				EventID:     args[0],
				PlayerID:    id,
				Name:        name,
				AvatarType:  avatarType,
				AvatarValue: avatarValue,
				TeamID:      team,
			}
			var result response.RegisterResponse

			if err := client.Post("/api/v1/register", req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Player ID (generated if empty)")
	cmd.Flags().StringVar(&name, "name", "", "Display name (required)")
	cmd.Flags().StringVar(&avatarType, "avatar-type", "emoji", "Avatar type")
	cmd.Flags().StringVar(&avatarValue, "avatar", "🙂", "Avatar value")
	cmd.Flags().StringVar(&team, "team", "", "Team ID (team mode only)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newPlayerStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <event-id> <player-id>",
		Short: "Start the player's personal timer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Player

			if err := client.Post(playerPath(args[0], args[1], "start"), nil, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newPlayerGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <event-id> <player-id>",
		Short: "Show a player",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Player

			if err := client.Get(playerPath(args[0], args[1]), &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newPlayerScansCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scans <event-id> <player-id>",
		Short: "List a player's scans",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result []response.Scan

			if err := client.Get(playerPath(args[0], args[1], "scans"), &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}
