package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pankaj-dahiya-devops/accountguard/internal/api"
	"github.com/pankaj-dahiya-devops/accountguard/internal/app"
	"github.com/pankaj-dahiya-devops/accountguard/internal/config"
	"github.com/pankaj-dahiya-devops/accountguard/internal/logging"
	"github.com/pankaj-dahiya-devops/accountguard/internal/models"
	"github.com/pankaj-dahiya-devops/accountguard/internal/output"
	"github.com/pankaj-dahiya-devops/accountguard/internal/policy"
	"github.com/pankaj-dahiya-devops/accountguard/internal/recommend"
	"github.com/pankaj-dahiya-devops/accountguard/internal/render"
	"github.com/pankaj-dahiya-devops/accountguard/internal/version"
)

// rootOptions are the persistent flags shared by every subcommand. Empty
// values keep what the config file says.
type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
	fixture    string
	stateDir   string
	color      bool
}

type cli struct {
	opts rootOptions
	deps app.Deps
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(app.Deps{})
}

// newRootCmdWith builds the command tree with injected external clients.
func newRootCmdWith(deps app.Deps) *cobra.Command {
	c := &cli{deps: deps}
	root := &cobra.Command{
		Use:           "ag",
		Short:         "AccountGuard: account security posture scans and automated remediation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.opts.configPath, "config", "", "Config file (default: $XDG_CONFIG_HOME/accountguard/config.yaml)")
	pf.StringVar(&c.opts.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	pf.StringVar(&c.opts.logFormat, "log-format", "", "Log format: text or json")
	pf.StringVar(&c.opts.fixture, "fixture", "", "Read account data from this YAML fixture instead of a live provider")
	pf.StringVar(&c.opts.stateDir, "state-dir", "", "Keep scan results as files in this directory")
	pf.BoolVar(&c.opts.color, "color", false, "Colorize severities in table output")

	root.AddCommand(
		c.newScanCmd(),
		c.newRemediateCmd(),
		newRecommendCmd(),
		c.newReportCmd(),
		c.newServeCmd(),
		c.newDoctorCmd(),
		newVersionCmd(),
	)
	return root
}

// loadConfig reads the config file and applies the persistent flag
// overrides. It does not validate.
func (c *cli) loadConfig() (*config.Config, error) {
	cfg, err := config.FileLoader{Path: c.opts.configPath}.Load()
	if err != nil {
		return nil, err
	}
	if c.opts.logLevel != "" {
		cfg.Log.Level = c.opts.logLevel
	}
	if c.opts.logFormat != "" {
		cfg.Log.Format = c.opts.logFormat
	}
	if c.opts.fixture != "" {
		cfg.Connector.Provider = "memory"
		cfg.Connector.Fixture = c.opts.fixture
	}
	if c.opts.stateDir != "" {
		cfg.Store.Kind = "file"
		cfg.Store.Dir = c.opts.stateDir
	}
	return cfg, nil
}

// openApp validates cfg and builds the App. The caller must Close it.
func (c *cli) openApp(cmd *cobra.Command, cfg *config.Config) (*app.App, error) {
	if errs := config.Validate(cfg); len(errs) > 0 {
		return nil, fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	logger := logging.New(cmd.ErrOrStderr(), logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	return app.New(cmd.Context(), cfg, logger, c.deps)
}

// latest loads the most recent stored result without building connectors.
func (c *cli) latest(cmd *cobra.Command) (*models.AnalysisResult, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	st := c.deps.Store
	if st == nil {
		if st, err = app.OpenStore(cmd.Context(), cfg.Store, c.deps.Kube); err != nil {
			return nil, err
		}
	}
	return st.Latest(cmd.Context())
}

func (c *cli) newScanCmd() *cobra.Command {
	var (
		sources   []string
		reportFmt string
		outPath   string
		policyArg string
		severity  string
		category  string
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the account and report security issues",
		RunE: func(cmd *cobra.Command, args []string) error {
			srcs, err := parseSources(sources)
			if err != nil {
				return err
			}
			sev, cat, err := parseFilter(severity, category)
			if err != nil {
				return err
			}

			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if policyArg != "" {
				cfg.Scan.Policy = policyArg
			}
			a, err := c.openApp(cmd, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.Scan(cmd.Context(), srcs...)
			if result == nil {
				return fmt.Errorf("scan failed: %w", err)
			}
			if err != nil {
				a.Logger.Warn("scan incomplete", "error", err)
			}

			if outPath != "" {
				if err := writeReportToFile(outPath, result); err != nil {
					return err
				}
			}

			view := result
			if sev != "" || cat != "" {
				filtered := *result
				filtered.Issues = result.Filter(sev, cat)
				view = &filtered
			}

			w := cmd.OutOrStdout()
			if reportFmt == "json" {
				if err := printJSON(w, view); err != nil {
					return err
				}
			} else {
				printTable(w, view, c.opts.color)
			}

			if policy.ShouldFail(result.Issues, a.Policy) {
				return &exitError{code: 2, err: errors.New("policy violation: issues at or above fail_on_severity")}
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&sources, "source", nil, "Source(s) to scan: mail, media, storage, calendar, identity (default: all)")
	cmd.Flags().StringVar(&reportFmt, "report", "table", "Output format: json or table")
	cmd.Flags().StringVar(&outPath, "output", "", "Write the full JSON export to this file path (in addition to stdout output)")
	cmd.Flags().StringVar(&policyArg, "policy", "", "Policy file (ag.yaml) applied to the scan")
	cmd.Flags().StringVar(&severity, "severity", "", "Only show issues of this severity")
	cmd.Flags().StringVar(&category, "category", "", "Only show issues of this category")

	return cmd
}

func (c *cli) newRemediateCmd() *cobra.Command {
	var (
		issues    []string
		all       bool
		delay     time.Duration
		rescan    bool
		reportFmt string
	)

	cmd := &cobra.Command{
		Use:   "remediate",
		Short: "Apply auto-fixes to issues of the latest scan",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(issues) == 0 && !all {
				return errors.New("either --issue or --all is required")
			}

			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("delay") {
				cfg.Remediation.Delay = delay
			}
			a, err := c.openApp(cmd, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.Remediate(cmd.Context(), issues, all)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if reportFmt == "json" {
				if err := printJSON(w, report); err != nil {
					return err
				}
			} else {
				output.RenderReport(w, report, c.opts.color)
			}

			if rescan {
				result, err := a.Scan(cmd.Context())
				if result == nil {
					return fmt.Errorf("rescan failed: %w", err)
				}
				fmt.Fprintln(w)
				output.RenderSummary(w, result, c.opts.color)
			}

			if report.Failed > 0 {
				return fmt.Errorf("%d of %d remediation actions failed", report.Failed, report.Total)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&issues, "issue", nil, "Issue ID to remediate (repeatable)")
	cmd.Flags().BoolVar(&all, "all", false, "Remediate every auto-fixable issue of the latest scan")
	cmd.Flags().DurationVar(&delay, "delay", time.Second, "Minimum pause between actions")
	cmd.Flags().BoolVar(&rescan, "rescan", false, "Scan again after remediating and print the new score")
	cmd.Flags().StringVar(&reportFmt, "report", "table", "Output format: json or table")

	return cmd
}

func newRecommendCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "recommend <category>",
		Short: "Show hardening advice for an issue category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := recommend.ParseCategory(args[0])
			if err != nil {
				cat = models.Category(args[0])
			}
			recs := recommend.For(cat)
			if format == "json" {
				return printJSON(cmd.OutOrStdout(), recs)
			}
			output.RenderRecommendations(cmd.OutOrStdout(), recs)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", `Output format: "table" or "json"`)
	return cmd
}

func (c *cli) newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Work with the latest stored scan result",
	}
	cmd.AddCommand(c.newExportCmd(), c.newExplainCmd())
	return cmd
}

func (c *cli) newExportCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the latest scan result as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.latest(cmd)
			if err != nil {
				return err
			}
			if out != "" {
				return writeReportToFile(out, result)
			}
			return render.WriteExportJSON(cmd.OutOrStdout(), result, recommend.ForIssues(result.Issues), time.Now())
		},
	}
	cmd.Flags().StringVar(&out, "output", "", "Write the export to this file path instead of stdout")
	return cmd
}

func (c *cli) newExplainCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "explain <issue-id>",
		Short: "Explain one issue of the latest scan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.latest(cmd)
			if err != nil {
				return err
			}
			id := args[0]
			issue, found := result.Issue(id)
			w := cmd.OutOrStdout()

			if format == "json" {
				if !found {
					if err := render.WriteExplainJSON(w, nil, nil, id); err != nil {
						return err
					}
					return &exitError{code: 1}
				}
				return render.WriteExplainJSON(w, &issue, recommend.For(issue.Category), id)
			}
			if !found {
				return fmt.Errorf("no issue found with id %s", id)
			}
			render.RenderIssueExplanation(w, issue, recommend.For(issue.Category))
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", `Output format: "table" or "json"`)
	return cmd
}

func (c *cli) newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the scan and remediation API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			a, err := c.openApp(cmd, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return api.NewServer(a, a.Registry, a.Logger.With("component", "api")).ListenAndServe(ctx, cfg.Server.Addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, :8080)")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), version.Info())
		},
	}
}

func parseSources(names []string) ([]models.Source, error) {
	var out []models.Source
	for _, n := range names {
		src := models.Source(n)
		if !slices.Contains(models.AllSources(), src) {
			return nil, fmt.Errorf("unknown source %q", n)
		}
		out = append(out, src)
	}
	return out, nil
}

func parseFilter(severity, category string) (models.Severity, models.Category, error) {
	sev := models.Severity(strings.ToUpper(severity))
	if sev != "" && !sev.Valid() {
		return "", "", fmt.Errorf("unknown severity %q", severity)
	}
	var cat models.Category
	if category != "" {
		var err error
		if cat, err = recommend.ParseCategory(category); err != nil {
			return "", "", err
		}
	}
	return sev, cat, nil
}

// printJSON writes v as indented JSON to w.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeReportToFile writes the JSON export of result to path, creating or
// overwriting the file. It does not affect stdout output.
func writeReportToFile(path string, result *models.AnalysisResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write report file %q: %w", path, err)
	}
	defer f.Close()
	if err := render.WriteExportJSON(f, result, recommend.ForIssues(result.Issues), time.Now()); err != nil {
		return fmt.Errorf("write report file %q: %w", path, err)
	}
	return nil
}

// printTable renders the score summary followed by the issue table.
func printTable(w io.Writer, result *models.AnalysisResult, colored bool) {
	output.RenderSummary(w, result, colored)
	fmt.Fprintln(w)
	output.RenderIssues(w, result.Issues, output.TableOptions{Colored: colored, IncludeSource: true, IncludeFix: true})
}
