package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/nao1215/linkcheck/internal/checker"
	"github.com/nao1215/linkcheck/internal/config"
	"github.com/nao1215/linkcheck/internal/crawler"
	"github.com/nao1215/linkcheck/internal/database"
	"github.com/nao1215/linkcheck/internal/log"
	"github.com/nao1215/linkcheck/internal/model"
	"github.com/nao1215/linkcheck/internal/pool"
	"github.com/nao1215/linkcheck/internal/report"
	"github.com/nao1215/linkcheck/internal/robots"
)

// sqlFormat is the output format that stores results in the database.
const sqlFormat = "sql"

var (
	// ErrBrokenLinks is returned when a run found invalid links.
	// It makes the process exit with status 1.
	ErrBrokenLinks = errors.New("broken links found")

	// ErrAborted is returned when a run was interrupted.
	ErrAborted = errors.New("check aborted")
)

// NewCheckCmd creates the check command.
func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [url|file]...",
		Short: "Check URLs and HTML files for broken links",
		Long: `Check validates the given URLs and every link reachable from them.

Pages on the hosts of the given URLs are internal: their links are checked
and followed recursively. Other links are external: they are checked but
not followed. Arguments without a scheme are local files when they exist,
http URLs otherwise.

Examples:
  # Check a web site
  linkcheck check https://example.com/

  # Check only the given page and its direct links
  linkcheck check -r 1 https://example.com/

  # Check a local HTML file
  linkcheck check docs/index.html

  # Write broken links as CSV and Markdown files in addition to stdout
  linkcheck check -F csv -F markdown/report.md https://example.com/

  # Do not check links to social media at all
  linkcheck check --extern-strict '^https://(twitter|x)\.com/' https://example.com/

  # Check through a SOCKS5 proxy and store the run in the database
  linkcheck check --proxy 127.0.0.1:9050 --save https://example.com/

The exit status is 1 when broken links were found.`,
		Args: cobra.ArbitraryArgs,
		RunE: runCheckCmd,
	}

	// Crawl behavior flags
	cmd.Flags().IntP("threads", "t", config.DefaultThreads,
		"Number of concurrent check workers")
	cmd.Flags().Int("host-connections", config.DefaultHostConnections,
		"Maximum open connections per host")
	cmd.Flags().Bool("no-wait", false,
		"Fail a check instead of waiting when its host has no free connection")
	cmd.Flags().Duration("wait-timeout", config.DefaultWaitTimeout,
		"Timeout when waiting for a free connection (0 waits until the run ends)")
	cmd.Flags().Duration("timeout", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().IntP("recursion-level", "r", config.DefaultRecursionLevel,
		"Maximum recursion depth (-1 is unlimited, 0 checks only the given URLs)")
	cmd.Flags().Float64("rate", 0,
		"Maximum requests per second per host (0 is unlimited)")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header, also matched against robots.txt")
	cmd.Flags().Bool("ignore-robots", false,
		"Do not read robots.txt")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy address (e.g., 127.0.0.1:9050)")

	// URL filter flags
	cmd.Flags().StringArray("intern", nil,
		"Regular expression of internal URLs (repeatable, leading '!' negates)")
	cmd.Flags().StringArray("extern", nil,
		"Regular expression of URLs that are checked but not followed (repeatable)")
	cmd.Flags().StringArray("extern-strict", nil,
		"Regular expression of URLs that are not checked at all (repeatable)")

	// Output flags
	cmd.Flags().StringP("output", "o", config.DefaultOutputFormat,
		"Output format on stdout: "+strings.Join(report.NewRegistry().Names(), ", "))
	cmd.Flags().StringArrayP("file", "F", nil,
		"Also write results to a file as FORMAT[/PATH] (repeatable)")
	cmd.Flags().String("language", config.DefaultLanguage,
		"Language of number formatting in text output (e.g., en, de, ja)")
	cmd.Flags().Bool("save", false,
		"Store the run in the result database")
	cmd.Flags().String("db-dir", "",
		"Result database directory (default: XDG data directory)")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .linkcheck, XDG config dir or home directory)")

	return cmd
}

func runCheckCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := runCheck(ctx, cfg, cmd.OutOrStdout(), logger)
	if err != nil {
		return err
	}
	if summary.Aborted {
		return ErrAborted
	}
	if summary.Invalid > 0 {
		return fmt.Errorf("%w: %d of %d", ErrBrokenLinks, summary.Invalid, summary.Total)
	}
	return nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from defaults, the configuration file and
// the flags set on the command line, in increasing order of precedence.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	cfg.ConfigFilePath, err = flags.GetString("config")
	if err != nil {
		return nil, err
	}

	// An explicitly specified config file must exist. Otherwise the
	// default locations are optional.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cf, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		if err := cfg.ApplyFile(cf); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
		}
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	if flags.Changed("threads") {
		if cfg.Threads, err = flags.GetInt("threads"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("host-connections") {
		if cfg.HostConnections, err = flags.GetInt("host-connections"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("no-wait") {
		if cfg.NoWait, err = flags.GetBool("no-wait"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("wait-timeout") {
		if cfg.WaitTimeout, err = flags.GetDuration("wait-timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("recursion-level") {
		if cfg.RecursionLevel, err = flags.GetInt("recursion-level"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("rate") {
		if cfg.RequestsPerSecond, err = flags.GetFloat64("rate"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("user-agent") {
		if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("ignore-robots") {
		if cfg.IgnoreRobots, err = flags.GetBool("ignore-robots"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("proxy") {
		if cfg.Proxy, err = flags.GetString("proxy"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("output") {
		if cfg.OutputFormat, err = flags.GetString("output"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("language") {
		if cfg.Language, err = flags.GetString("language"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("save") {
		if cfg.SaveToDB, err = flags.GetBool("save"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("db-dir") {
		if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
			return nil, err
		}
	}

	if err := addPatterns(cfg, cmd); err != nil {
		return nil, err
	}

	files, err := flags.GetStringArray("file")
	if err != nil {
		return nil, err
	}
	outputs, err := config.ParseFileOutputs(files)
	if err != nil {
		return nil, err
	}
	cfg.Files = append(cfg.Files, outputs...)

	cfg.OutputFormat = strings.ToLower(cfg.OutputFormat)
	cfg.Verbose = getVerboseFlag(cmd)
	cfg.Seeds = make([]string, 0, len(args))
	for _, arg := range args {
		cfg.Seeds = append(cfg.Seeds, seedURL(arg))
	}
	return cfg, nil
}

// addPatterns appends the link patterns given on the command line.
func addPatterns(cfg *config.Config, cmd *cobra.Command) error {
	for _, f := range []struct {
		name   string
		strict bool
		dst    *[]model.LinkPattern
	}{
		{"intern", false, &cfg.Intern},
		{"extern", false, &cfg.Extern},
		{"extern-strict", true, &cfg.Extern},
	} {
		args, err := cmd.Flags().GetStringArray(f.name)
		if err != nil {
			return err
		}
		patterns, err := config.ParsePatterns(args, f.strict)
		if err != nil {
			return fmt.Errorf("--%s: %w", f.name, err)
		}
		*f.dst = append(*f.dst, patterns...)
	}
	return nil
}

// seedURL turns a command line argument into a URL. Arguments with a
// scheme are kept. Existing paths become file URLs, anything else is
// treated as an http host.
func seedURL(arg string) string {
	if strings.Contains(arg, "://") || strings.HasPrefix(strings.ToLower(arg), "mailto:") {
		return arg
	}
	if _, err := os.Stat(arg); err == nil {
		if abs, err := filepath.Abs(arg); err == nil {
			return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
		}
	}
	return "http://" + arg
}

// runCheck wires the checker, engine and result loggers for cfg and runs
// the check. Results are written to stdout in cfg.OutputFormat.
func runCheck(ctx context.Context, cfg *config.Config, stdout io.Writer, logger *slog.Logger) (model.Summary, error) {
	tag, err := language.Parse(cfg.Language)
	if err != nil {
		return model.Summary{}, fmt.Errorf("invalid language %q: %w", cfg.Language, err)
	}

	registry := report.NewRegistry()
	if !registry.Has(cfg.OutputFormat) {
		return model.Summary{}, fmt.Errorf("%w: %s", report.ErrUnknownFormat, cfg.OutputFormat)
	}
	for _, f := range cfg.Files {
		if !registry.Has(f.Format) {
			return model.Summary{}, fmt.Errorf("%w: %s", report.ErrUnknownFormat, f.Format)
		}
	}

	opts := report.Options{
		Verbose:  cfg.Verbose,
		Language: tag,
		Version:  getVersion(),
	}

	if needsDB(cfg) {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return model.Summary{}, fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "path", db.Path())
		opts.DB = db
	}

	results, closeOutputs, err := newResultLogger(registry, cfg, stdout, opts)
	if err != nil {
		return model.Summary{}, err
	}
	defer closeOutputs()

	chk, err := checker.New(
		checker.WithUserAgent(cfg.UserAgent),
		checker.WithTimeout(cfg.Timeout),
		checker.WithMaxBodySize(cfg.MaxBodySize),
		checker.WithProxy(cfg.Proxy),
		checker.WithSites(siteFunc(cfg.SiteConfigs)),
		checker.WithLogger(logger),
	)
	if err != nil {
		return model.Summary{}, fmt.Errorf("failed to create checker: %w", err)
	}

	engine := crawler.NewEngine(chk, results,
		crawler.WithThreads(cfg.Threads),
		crawler.WithPollInterval(cfg.PollInterval),
		crawler.WithAbortTimeout(cfg.AbortTimeout),
		crawler.WithFilter(crawler.NewFilter(cfg.Intern, cfg.Extern, cfg.RecursionLevel)),
		crawler.WithPoolOptions(
			pool.WithMaxPerHost(cfg.HostConnections),
			pool.WithWait(!cfg.NoWait),
			pool.WithWaitTimeout(cfg.WaitTimeout),
			pool.WithRequestsPerSecond(cfg.RequestsPerSecond),
		),
		crawler.WithRobotsOptions(robots.WithUserAgent(cfg.UserAgent)),
		crawler.WithIgnoreRobots(cfg.IgnoreRobots),
		crawler.WithLogger(logger),
	)

	logger.Info("starting check",
		"run_id", engine.RunID(),
		"seeds", cfg.Seeds,
		"threads", cfg.Threads,
		"recursionLevel", cfg.RecursionLevel,
		"saveToDB", cfg.SaveToDB,
	)
	return engine.Run(ctx, cfg.Seeds...)
}

// needsDB reports whether any output stores results in the database.
func needsDB(cfg *config.Config) bool {
	if cfg.SaveToDB || cfg.OutputFormat == sqlFormat {
		return true
	}
	for _, f := range cfg.Files {
		if f.Format == sqlFormat {
			return true
		}
	}
	return false
}

// newResultLogger creates the stdout logger, one logger per file output
// and, when saving, the sql logger. The returned func closes the files.
func newResultLogger(registry *report.Registry, cfg *config.Config, stdout io.Writer, opts report.Options) (report.Logger, func(), error) {
	var (
		loggers []report.Logger
		files   []*os.File
		save    = cfg.SaveToDB
	)
	closeFiles := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}

	stdoutLogger, err := registry.New(cfg.OutputFormat, stdout, opts)
	if err != nil {
		return nil, nil, err
	}
	loggers = append(loggers, stdoutLogger)

	for _, out := range cfg.Files {
		// The database is the destination of the sql format.
		if out.Format == sqlFormat {
			save = true
			continue
		}
		f, err := createOutputFile(out.Path)
		if err != nil {
			closeFiles()
			return nil, nil, err
		}
		files = append(files, f)

		l, err := registry.New(out.Format, f, opts)
		if err != nil {
			closeFiles()
			return nil, nil, err
		}
		loggers = append(loggers, l)
	}

	if save && cfg.OutputFormat != sqlFormat {
		l, err := registry.New(sqlFormat, io.Discard, opts)
		if err != nil {
			closeFiles()
			return nil, nil, err
		}
		loggers = append(loggers, l)
	}

	if len(loggers) == 1 {
		return loggers[0], closeFiles, nil
	}
	return report.NewMultiLogger(loggers...), closeFiles, nil
}

// createOutputFile creates or truncates path with owner-only permissions.
// Reports may contain URLs with credentials.
func createOutputFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, nil
}

// siteFunc adapts the per-host configuration file entries to the checker.
func siteFunc(cf *config.File) checker.SiteFunc {
	return func(host string) checker.Site {
		if cf == nil {
			return checker.Site{}
		}
		sc := cf.GetSiteConfig(host)
		return checker.Site{Cookie: sc.Cookie, Headers: sc.Headers}
	}
}
