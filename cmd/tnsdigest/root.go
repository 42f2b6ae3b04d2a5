package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"TNSDigest/internal/app"
	"TNSDigest/internal/config"
	"TNSDigest/internal/logging"
)

const dateLayout = "2006-01-02"

type cli struct {
	configPath string
	envFiles   []string
	outputDir  string
	date       string

	logger *slog.Logger
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tnsdigest",
		Short: "Daily TNS transient digest enriched with NED host galaxies",
		Long: `tnsdigest pulls the transients made public on the Transient Name Server
since a given day, looks up the nearest known galaxy for each one in NED,
derives a luminosity distance from the galaxy redshift and writes every
transient with a usable distance to tns_results-<Y-M-D>.csv.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          c.runE,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "YAML config file (default $TNS_DIGEST_CONFIG)")
	flags.StringSliceVar(&c.envFiles, "env-file", []string{".env"}, "dotenv files loaded before the config")
	flags.StringVar(&c.outputDir, "output-dir", "", "directory for CSV reports (overrides report.outputDir)")

	run := &cobra.Command{
		Use:   "run",
		Short: "Process a single day and exit",
		Args:  cobra.NoArgs,
		RunE:  c.runE,
	}
	for _, cmd := range []*cobra.Command{root, run} {
		cmd.Flags().StringVar(&c.date, "date", "", "day to process as YYYY-MM-DD (default today)")
	}

	schedule := &cobra.Command{
		Use:   "schedule",
		Short: "Run the digest on the configured interval until interrupted",
		Args:  cobra.NoArgs,
		RunE:  c.scheduleE,
	}

	root.AddCommand(run, schedule)
	return root
}

func (c *cli) runE(cmd *cobra.Command, _ []string) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	day, err := parseDay(c.date, cfg.Scheduler.Location(), time.Now())
	if err != nil {
		return err
	}

	return c.withApp(cmd.Context(), cfg, func(ctx context.Context, a *app.Application) error {
		_, err := a.RunOnce(ctx, day)
		return err
	})
}

func (c *cli) scheduleE(cmd *cobra.Command, _ []string) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	return c.withApp(cmd.Context(), cfg, func(ctx context.Context, a *app.Application) error {
		return a.Schedule(ctx)
	})
}

func (c *cli) loadConfig() (config.Config, error) {
	config.LoadEnvFiles(c.envFiles...)

	cfg, err := config.Load(c.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if c.outputDir != "" {
		cfg.Report.OutputDir = c.outputDir
	}

	c.logger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	return cfg, nil
}

func (c *cli) withApp(ctx context.Context, cfg config.Config, fn func(context.Context, *app.Application) error) error {
	application, err := app.New(ctx, cfg, c.logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := application.Close(); cerr != nil {
			c.logger.Warn("close application", "error", cerr)
		}
	}()

	return fn(ctx, application)
}

// parseDay turns the --date flag into a calendar day in loc; empty means today.
func parseDay(value string, loc *time.Location, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return now.In(loc), nil
	}

	day, err := time.ParseInLocation(dateLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q, want YYYY-MM-DD: %w", value, err)
	}
	return day, nil
}
