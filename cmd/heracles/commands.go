package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kalambet/heracles/internal/agent"
	"github.com/kalambet/heracles/internal/config"
	"github.com/kalambet/heracles/internal/nutrition"
	"github.com/kalambet/heracles/internal/runtime"
	"github.com/kalambet/heracles/internal/tools"
)

// --- calc ---

var calcCmd = &cobra.Command{
	Use:   "calc",
	Short: "Estimate daily calories and macros",
	Long: `Estimate daily calories and macros with the Mifflin-St Jeor formula.

Example:
  heracles calc --age 30 --sex male --height 180 --weight 80 \
    --activity moderately_active --goal lose_weight`,
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		profile := map[string]any{}
		flags := []struct{ flag, field string }{
			{"age", "age"},
			{"sex", "sex"},
			{"height", "height_cm"},
			{"weight", "weight_kg"},
			{"activity", "activity_level"},
			{"goal", "goal"},
		}
		for _, f := range flags {
			if cmd.Flags().Changed(f.flag) {
				profile[f.field] = cmd.Flags().Lookup(f.flag).Value.String()
			}
		}
		return runCalc(os.Stdout, profile, asJSON)
	},
}

func init() {
	calcCmd.Flags().Int("age", 0, "age in years")
	calcCmd.Flags().String("sex", "", "male or female")
	calcCmd.Flags().Float64("height", 0, "height in cm")
	calcCmd.Flags().Float64("weight", 0, "weight in kg")
	calcCmd.Flags().String("activity", "", "activity level, e.g. moderately_active")
	calcCmd.Flags().String("goal", "", "goal, e.g. lose_weight")
	calcCmd.Flags().Bool("json", false, "print the raw result as JSON")
}

func runCalc(w io.Writer, profile map[string]any, asJSON bool) error {
	res, err := nutrition.Calculate(profile)
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(w, res)
	}
	printStatus(w, "Calories", "%d kcal/day", res.Calories)
	printStatus(w, "Protein", "%d g", res.Protein)
	printStatus(w, "Carbohydrates", "%d g", res.Carbs)
	printStatus(w, "Fat", "%d g", res.Fat)
	printStatus(w, "BMR", "%.1f kcal", res.Details.BMR)
	printStatus(w, "TDEE", "%.2f kcal (%s)", res.Details.TDEE, res.Details.ActivityLevel)
	printStatus(w, "Goal", "%s (%+d kcal)", res.Details.Goal, res.Details.GoalAdjustment)
	return nil
}

// --- tools ---

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Inspect the agent tools",
}

var toolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the tools agents can call",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := tools.Default(tools.Deps{})
		if err != nil {
			return err
		}
		verbose, _ := cmd.Flags().GetBool("schema")
		return listTools(os.Stdout, reg, verbose)
	},
}

func init() {
	toolsListCmd.Flags().Bool("schema", false, "include parameter schemas")
	toolsCmd.AddCommand(toolsListCmd)
}

func listTools(w io.Writer, reg *tools.Registry, withSchema bool) error {
	for _, t := range reg.List() {
		fmt.Fprintf(w, "%s\n  %s\n", colorize(colorBold, t.Name()), t.Description())
		if withSchema {
			if err := printJSON(w, t.Schema()); err != nil {
				return err
			}
		}
	}
	return nil
}

// --- agents ---

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "Inspect the coaching agents",
}

var agentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List agents and what they delegate to",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := agent.LoadCatalog()
		if err != nil {
			return err
		}
		listAgents(os.Stdout, c)
		return nil
	},
}

var agentsShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show an agent's instruction, tools and messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := agent.LoadCatalog()
		if err != nil {
			return err
		}
		return showAgent(os.Stdout, c, args[0])
	},
}

func init() {
	agentsCmd.AddCommand(agentsListCmd)
	agentsCmd.AddCommand(agentsShowCmd)
}

func listAgents(w io.Writer, c *agent.Catalog) {
	for _, s := range c.Agents {
		fmt.Fprintf(w, "%s\n  %s\n", colorize(colorBold, s.Name), s.Description)
		if len(s.SubAgents) > 0 {
			fmt.Fprintf(w, "  delegates to: %s\n", strings.Join(s.SubAgents, ", "))
		}
		if len(s.Tools) > 0 {
			fmt.Fprintf(w, "  tools: %s\n", strings.Join(s.Tools, ", "))
		}
	}
}

func showAgent(w io.Writer, c *agent.Catalog, name string) error {
	spec, ok := c.Get(name)
	if !ok {
		return fmt.Errorf("unknown agent %q (known: %s)", name, strings.Join(c.Names(), ", "))
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(spec); err != nil {
		return err
	}
	return enc.Close()
}

// --- sessions ---

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect sessions on a running server",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return listSessions(cmd.Context(), client, os.Stdout, limit)
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a session's state and turn log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		withTurns, _ := cmd.Flags().GetBool("turns")
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return showSession(cmd.Context(), client, os.Stdout, args[0], withTurns)
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a session and its turn log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.delete(cmd.Context(), "/sessions/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}
		if err := decodeJSON(resp, nil); err != nil {
			return err
		}
		printSuccess("Deleted session %s", args[0])
		return nil
	},
}

func init() {
	sessionsListCmd.Flags().Int("limit", 20, "maximum number of sessions to list")
	sessionsShowCmd.Flags().Bool("turns", false, "include the turn log")
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
}

func listSessions(ctx context.Context, client *apiClient, w io.Writer, limit int) error {
	resp, err := client.get(ctx, fmt.Sprintf("/sessions?limit=%d", limit))
	if err != nil {
		return err
	}
	var sessions []runtime.Info
	if err := decodeJSON(resp, &sessions); err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions found.")
		return nil
	}
	for _, s := range sessions {
		fmt.Fprintf(w, "%s  %s  %-28s %d turns\n",
			colorize(colorCyan, s.ID),
			s.UpdatedAt.Format("2006-01-02 15:04"),
			s.ActiveAgent,
			s.Turns,
		)
	}
	return nil
}

func showSession(ctx context.Context, client *apiClient, w io.Writer, id string, withTurns bool) error {
	resp, err := client.get(ctx, "/sessions/"+url.PathEscape(id))
	if err != nil {
		return err
	}
	var info runtime.Info
	if err := decodeJSON(resp, &info); err != nil {
		return err
	}
	if err := printJSON(w, info); err != nil {
		return err
	}
	if !withTurns {
		return nil
	}

	resp, err = client.get(ctx, "/sessions/"+url.PathEscape(id)+"/turns")
	if err != nil {
		return err
	}
	var turns []runtime.Turn
	if err := decodeJSON(resp, &turns); err != nil {
		return err
	}
	for _, t := range turns {
		fmt.Fprintf(w, "\n%s %s\n", colorize(colorBold, fmt.Sprintf("#%d >", t.Seq)), t.Input)
		printTurn(w, t)
	}
	return nil
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		showConfig(os.Stdout, cfg)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: "Set a configuration value in " + config.FilePath() + ".\n\nKeys: " +
		strings.Join(config.ValidKeys(), ", "),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func showConfig(w io.Writer, cfg config.Config) {
	for _, k := range config.ShowAll(cfg) {
		value := k.Value
		if k.Secret && value == "" {
			value = "(unset)"
		}
		fmt.Fprintf(w, "  %s = %s  %s\n", colorize(colorBold, k.Key), value, colorize(colorCyan, "$"+k.EnvVar))
	}
}
