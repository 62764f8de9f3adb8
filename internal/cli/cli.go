package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/avkuzmin/schedule-parser/internal/config"
	"github.com/avkuzmin/schedule-parser/internal/directory"
	"github.com/avkuzmin/schedule-parser/internal/fetch"
	"github.com/avkuzmin/schedule-parser/internal/runner"
	"github.com/avkuzmin/schedule-parser/internal/store"
	"github.com/avkuzmin/schedule-parser/internal/timetable"
	"github.com/avkuzmin/schedule-parser/migrations"
)

const dateFlagFormat = "02.01.2006"

var (
	flagConfig  string
	flagVerbose bool
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule-parser",
		Short: "Scrape the published school timetable into Postgres",
		Long: `schedule-parser downloads the school's published HTML timetable,
extracts structured lesson events per group, and stores them in Postgres.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagVerbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfig, "config", "config.yaml", "Path to the YAML config file")
	cmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable debug logging")

	cmd.AddCommand(newRunCmd(), newGroupsCmd(), newShowCmd())
	return cmd
}

func newRunCmd() *cobra.Command {
	var (
		flagGroup   string
		flagFrom    string
		flagTo      string
		flagMigrate bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a full parse and store events in Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load(flagConfig)
			if err != nil {
				return err
			}

			from, err := parseDateFlag(flagFrom)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			to, err := parseDateFlag(flagTo)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}

			db, err := store.Open(ctx, cfg.Database.DSN)
			if err != nil {
				return err
			}
			defer db.Close()

			if flagMigrate {
				if err := migrations.Up(db); err != nil {
					return fmt.Errorf("applying migrations: %w", err)
				}
			}

			res, err := runner.Run(ctx, newClient(cfg), store.New(db), runner.Options{
				GroupCode: strings.TrimSpace(flagGroup),
				DateFrom:  from,
				DateTo:    to,
				DaysAhead: cfg.Window.DaysAhead,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "run %s: %s (groups %d/%d ok, %d events)\n",
				res.RunID, res.Status, res.GroupsOK, res.GroupsTotal, res.EventsSaved)
			if res.Status == store.RunPartial {
				return fmt.Errorf("%d of %d groups failed", res.GroupsFailed, res.GroupsTotal)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flagGroup, "group", "", "Restrict the run to one group code")
	cmd.Flags().StringVar(&flagFrom, "from", "", "Window start as dd.mm.yyyy (default: today)")
	cmd.Flags().StringVar(&flagTo, "to", "", "Window end as dd.mm.yyyy (default: from + configured days)")
	cmd.Flags().BoolVar(&flagMigrate, "migrate", false, "Apply database migrations before the run")
	return cmd
}

func newGroupsCmd() *cobra.Command {
	var flagFormat string

	cmd := &cobra.Command{
		Use:   "groups",
		Short: "Fetch and print the group directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := ParseFormat(flagFormat)
			if err != nil {
				return err
			}
			cfg, err := config.Load(flagConfig)
			if err != nil {
				return err
			}

			groups, err := directory.FetchGroups(cmd.Context(), newClient(cfg))
			if err != nil {
				return err
			}
			return WriteGroups(cmd.OutOrStdout(), groups, format)
		},
	}

	cmd.Flags().StringVar(&flagFormat, "format", "text", "Output format: text or json")
	return cmd
}

func newShowCmd() *cobra.Command {
	var (
		flagGroup  string
		flagURL    string
		flagFormat string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Extract one group's schedule and print it without storing",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			format, err := ParseFormat(flagFormat)
			if err != nil {
				return err
			}
			cfg, err := config.Load(flagConfig)
			if err != nil {
				return err
			}
			client := newClient(cfg)

			code := strings.TrimSpace(flagGroup)
			url := strings.TrimSpace(flagURL)
			if url == "" {
				// Resolve the page through the directory.
				groups, err := directory.FetchGroups(ctx, client)
				if err != nil {
					return err
				}
				for _, g := range groups {
					if g.Code == code {
						url = g.URL
						break
					}
				}
				if url == "" {
					return fmt.Errorf("group %q not found in the directory", code)
				}
			}

			html, err := client.Get(ctx, url)
			if err != nil {
				return err
			}
			events, err := timetable.Extract(html, code, url, time.Time{}, time.Time{})
			if err != nil {
				return err
			}
			return WriteEvents(cmd.OutOrStdout(), events, format)
		},
	}

	cmd.Flags().StringVar(&flagGroup, "group", "", "Group code, e.g. АТ141 (required)")
	cmd.Flags().StringVar(&flagURL, "url", "", "Schedule page path (skips the directory lookup)")
	cmd.Flags().StringVar(&flagFormat, "format", "text", "Output format: text or json")
	cmd.MarkFlagRequired("group")
	return cmd
}

func newClient(cfg config.Config) *fetch.Client {
	client := fetch.New(cfg.Site.BaseURL)
	if cfg.Site.UserAgent != "" {
		client.UserAgent = cfg.Site.UserAgent
	}
	if cfg.HTTP.Timeout > 0 {
		client.HTTPClient.Timeout = cfg.HTTP.Timeout
	}
	client.MaxRetries = cfg.HTTP.Retries
	if cfg.HTTP.RetryDelay > 0 {
		client.RetryDelay = cfg.HTTP.RetryDelay
	}
	return client
}

// parseDateFlag parses a dd.mm.yyyy flag value; an empty value is the zero
// time, which downstream defaults replace.
func parseDateFlag(value string) (time.Time, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateFlagFormat, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected dd.mm.yyyy, got %q", value)
	}
	return t, nil
}
