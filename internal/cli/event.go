package cli

import (
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mcoot/qhunt/internal/api/request"
	"github.com/mcoot/qhunt/internal/api/response"
)

func newEventCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event",
		Short: "Event management commands",
	}

	cmd.AddCommand(newEventCreateCmd())
	cmd.AddCommand(newEventGetCmd())
	cmd.AddCommand(newEventConfigCmd())
	cmd.AddCommand(newEventPhaseCmd())
	cmd.AddCommand(newEventResetCmd())
	cmd.AddCommand(newEventCodeCmd())

	return cmd
}

func eventPath(eventID string, rest ...string) string {
	p := "/api/v1/events/" + url.PathEscape(eventID)
	for _, r := range rest {
		p += "/" + r
	}
	return p
}

// loadGameRules reads a game definition. YAML is a superset of JSON so either works.
func loadGameRules(path string) (request.GameRules, error) {
	var rules request.GameRules
	data, err := os.ReadFile(path)
	if err != nil {
		return rules, err
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return rules, fmt.Errorf("parse %s: %w", path, err)
	}
	return rules, nil
}

func newEventCreateCmd() *cobra.Command {
	var id, title, file string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an event from a game definition file",
		Long: `Create an event in the registration phase.

The game file holds the rules in YAML or JSON:

  mode: individual
  game_duration_seconds: 600
  target_code_count: 5
  codes:
    - id: oak
      value: OAK-1
      points: 100`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var rules request.GameRules
			if file != "" {
				var err error
				if rules, err = loadGameRules(file); err != nil {
					return err
				}
			}

			req := request.CreateEventRequest{ID: id, Title: title, Game: rules}
			var result response.Event

			if err := client.Post("/api/v1/events", req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Event ID (generated if empty)")
	cmd.Flags().StringVar(&title, "title", "", "Event title (required)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Game definition file (YAML or JSON)")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func newEventGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <event-id>",
		Short: "Show an event and its game configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Event

			if err := client.Get(eventPath(args[0]), &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newEventConfigCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "config <event-id>",
		Short: "Replace the game rules (registration phase only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := loadGameRules(file)
			if err != nil {
				return err
			}

			var result response.Event
			if err := client.Put(eventPath(args[0], "config"), rules, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Game definition file (YAML or JSON, required)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func newEventPhaseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "phase <event-id> <phase>",
		Short: "Move the event to the next phase",
		Long: `Move the event forward one phase:

  registration -> countdown -> playing -> finished -> results

Use "event reset" to return to registration.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := request.TransitionRequest{Phase: args[1]}
			var result response.Event

			if err := client.Post(eventPath(args[0], "phase"), req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newEventResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <event-id>",
		Short: "Delete all players and scans and return to registration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Event

			if err := client.Post(eventPath(args[0], "reset"), nil, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newEventCodeCmd() *cobra.Command {
	var disable bool

	cmd := &cobra.Command{
		Use:   "code <event-id> <code-id>",
		Short: "Enable or disable a code",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			active := !disable
			req := request.SetCodeActiveRequest{Active: &active}
			var result response.Event

			if err := client.Patch(eventPath(args[0], "codes", url.PathEscape(args[1])), req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&disable, "disable", false, "Disable the code instead of enabling it")

	return cmd
}
