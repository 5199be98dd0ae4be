package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/deskbot/internal/config"
	"github.com/zulandar/deskbot/internal/servicenow"
)

func newSnowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snow",
		Short: "Query the ServiceNow instance with the bot's service account",
		Long:  "Read-only ServiceNow lookups, useful for checking credentials and data before going live.",
	}

	cmd.AddCommand(newSnowUserCmd())
	cmd.AddCommand(newSnowIncidentsCmd())
	cmd.AddCommand(newSnowSearchCmd())
	return cmd
}

// snowFromConfig loads config and builds a ServiceNow client.
func snowFromConfig(configPath string) (*servicenow.Client, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return newServiceNowClient(cfg)
}

func newSnowUserCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "user <first-name> <last-name>",
		Short: "Look up users by first and last name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := snowFromConfig(configPath)
			if err != nil {
				return err
			}
			return runSnowUser(cmd, client, args[0], args[1])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to deskbot config file")
	return cmd
}

func runSnowUser(cmd *cobra.Command, client *servicenow.Client, first, last string) error {
	out := cmd.OutOrStdout()
	users, err := client.GetUsersByName(context.Background(), first, last)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		fmt.Fprintf(out, "No users named %s %s.\n", first, last)
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SYS_ID\tUSER_NAME\tNAME\tEMAIL")
	for _, u := range users {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.SysID, u.UserName, u.DisplayName(), u.Email)
	}
	return w.Flush()
}

func newSnowIncidentsCmd() *cobra.Command {
	var (
		configPath string
		number     string
	)

	cmd := &cobra.Command{
		Use:   "incidents [caller-sys-id]",
		Short: "List a caller's incidents, or look one up with --number",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if number == "" && len(args) == 0 {
				return fmt.Errorf("either a caller sys_id or --number is required")
			}
			client, err := snowFromConfig(configPath)
			if err != nil {
				return err
			}
			caller := ""
			if len(args) == 1 {
				caller = args[0]
			}
			return runSnowIncidents(cmd, client, caller, number)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to deskbot config file")
	cmd.Flags().StringVar(&number, "number", "", "incident number, e.g. INC0010001")
	return cmd
}

func runSnowIncidents(cmd *cobra.Command, client *servicenow.Client, caller, number string) error {
	out := cmd.OutOrStdout()
	ctx := context.Background()

	var (
		incidents []servicenow.Incident
		err       error
	)
	if number != "" {
		incidents, err = client.GetIncidentByNumber(ctx, number)
	} else {
		incidents, err = client.GetIncidentsByCaller(ctx, caller)
	}
	if err != nil {
		return err
	}
	if len(incidents) == 0 {
		fmt.Fprintln(out, "No incidents found.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NUMBER\tSTATE\tOPENED\tDESCRIPTION\tURL")
	for _, inc := range incidents {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			inc.Number, inc.State, inc.OpenedAt, truncate(inc.ShortDescription, 50), client.IncidentURL(inc.SysID))
	}
	return w.Flush()
}

func newSnowSearchCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the knowledge base",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := snowFromConfig(configPath)
			if err != nil {
				return err
			}
			return runSnowSearch(cmd, client, strings.Join(args, " "))
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to deskbot config file")
	return cmd
}

func runSnowSearch(cmd *cobra.Command, client *servicenow.Client, query string) error {
	out := cmd.OutOrStdout()
	articles, err := client.SearchKnowledgeBase(context.Background(), query)
	if err != nil {
		return err
	}
	if len(articles) == 0 {
		fmt.Fprintf(out, "No articles match %q.\n", query)
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NUMBER\tTITLE\tURL")
	for _, a := range articles {
		fmt.Fprintf(w, "%s\t%s\t%s\n", a.Number, truncate(a.ShortDescription, 60), client.ArticleURL(a.SysID))
	}
	return w.Flush()
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
