// langcache regenerates the on-disk cache of language files served by a
// remote language API: PHP language files for the configured applications
// and XML language files for the registered applets.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/minios-linux/langcache/apiclient"
	"github.com/minios-linux/langcache/batch"
	"github.com/minios-linux/langcache/cachefile"
	"github.com/minios-linux/langcache/config"
	"github.com/minios-linux/langcache/i18n"
	"github.com/minios-linux/langcache/langmeta"
	"github.com/minios-linux/langcache/lockfile"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	tagInfo    = color.New(color.FgBlue).Sprint("[INFO]")
	tagSuccess = color.New(color.FgGreen).Sprint("[OK]")
	tagWarning = color.New(color.FgYellow, color.Bold).Sprint("[WARN]")
	tagError   = color.New(color.FgRed).Sprint("[ERROR]")
	tagDebug   = color.New(color.FgHiBlack).Sprint("[DEBUG]")

	heading = color.New(color.FgBlue)
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(color.Error, tagInfo+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(color.Error, tagSuccess+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(color.Error, tagWarning+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(color.Error, tagError+" "+format+"\n", args...)
}

func logDebug(format string, args ...any) {
	fmt.Fprintf(color.Error, tagDebug+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	rootDir    string
	configPath string
	cacheRoot  string
	apiURL     string
	apiProxy   string
	apiTimeout time.Duration
	offline    bool
	verbose    bool
	uiLang     string
)

// globalFlags returns the flags shared by every subcommand.
func globalFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("global", pflag.ContinueOnError)
	fs.StringVar(&rootDir, "root", ".", "Project root directory (where .langcache.yaml lives)")
	fs.StringVar(&configPath, "config", "", "Config file path (default: <root>/"+config.FileName+")")
	fs.StringVar(&cacheRoot, "cache-root", "", "Override system.paths.root")
	fs.StringVar(&apiURL, "api-url", "", "Override the language API URL")
	fs.StringVar(&apiProxy, "proxy", "", "HTTP proxy URL (default: HTTP_PROXY/HTTPS_PROXY)")
	fs.DurationVar(&apiTimeout, "timeout", 0, "Per-request timeout (e.g. 30s)")
	fs.BoolVar(&offline, "offline", false, "Use built-in canned responses instead of the API")
	fs.BoolVarP(&verbose, "verbose", "v", false, "Log every API request")
	fs.StringVar(&uiLang, "ui-lang", "", "Language of langcache's own messages (default: from environment)")
	return fs
}

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "langcache",
		Short: "Regenerate the language file cache from the language API",
		Long: `langcache: regenerate the language file cache from the language API.

Fetches the PHP language file of every configured application and language
into <root>/cache/<application>/<language>.php, then the XML language files
of every registered applet into <root>/cache/flash/lang_<language>.xml.
Every run regenerates every file; the first failure stops the run.

Commands:
  run         Regenerate application and applet files (default)
  apps        Regenerate application language files only
  applets     Regenerate applet language XML files only
  status      Show configuration and cache contents
  init        Create a starter .langcache.yaml
  version     Show version information`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if _, ok := i18n.Init(uiLang); !ok && uiLang != "" {
				logWarning("no message catalog for %q, using English (available: %s)", uiLang, catalogList())
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(stepAll)
		},
	}

	root.PersistentFlags().AddFlagSet(globalFlags())

	root.AddCommand(
		newRunCmd(),
		newAppsCmd(),
		newAppletsCmd(),
		newStatusCmd(),
		newInitCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		switch {
		case errors.Is(err, config.ErrNotFound):
			logInfo("%s", i18n.T("Run 'langcache init' to create one."))
		case errors.Is(err, context.Canceled):
			logWarning("%s", i18n.T("Interrupted; files written so far were kept."))
		}
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("langcache version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// run / apps / applets
// ---------------------------------------------------------------------------

type step int

const (
	stepAll step = iota
	stepApps
	stepApplets
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Regenerate application and applet language files",
		Long: `Regenerate every application language file, then every applet
language XML file. Stops at the first failure; files written before it stay.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(stepAll)
		},
	}
}

func newAppsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apps",
		Short: "Regenerate application language files only",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(stepApps)
		},
	}
}

func newAppletsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "applets",
		Short: "Regenerate applet language XML files only",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(stepApplets)
		},
	}
}

func loadConfig() (*config.File, error) {
	return config.Load(rootDir, configPath, config.Overrides{
		Root:    cacheRoot,
		APIURL:  apiURL,
		Timeout: apiTimeout,
		Proxy:   apiProxy,
	})
}

// newClient picks the canned client when offline or when no API URL is
// configured, the HTTP client otherwise.
func newClient(cfg *config.File) (apiclient.Client, error) {
	if offline {
		return apiclient.Canned{}, nil
	}
	if cfg.API.URL == "" {
		logWarning("%s", i18n.T("No API URL configured, using built-in canned responses"))
		return apiclient.Canned{}, nil
	}

	opts := apiclient.HTTPOptions{
		BaseURL:   cfg.API.URL,
		Timeout:   cfg.API.Timeout,
		Proxy:     cfg.API.Proxy,
		UserAgent: "langcache/" + version,
	}
	if verbose {
		opts.Debug = logDebug
	}
	return apiclient.NewHTTPClient(opts)
}

func batchOptions(cfg *config.File, rec batch.Recorder) batch.Options {
	opts := batch.Options{
		Log:      func(format string, args ...any) { logInfo(i18n.T(format), args...) },
		Success:  func(format string, args ...any) { logSuccess(i18n.T(format), args...) },
		Recorder: rec,
		Target:   cfg.API.Target,
		Mode:     cfg.API.Mode,
	}
	if verbose {
		opts.Debug = logDebug
	}
	return opts
}

func runBatch(s step) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	lf, err := lockfile.Load(filepath.Dir(cfg.FilePath()))
	if err != nil {
		return err
	}

	// Setup signal handling for graceful cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logWarning("%s", i18n.T("Interrupted, stopping..."))
			cancel()
		case <-ctx.Done():
		}
	}()

	layout := cachefile.Layout{Root: cfg.System.Paths.Root}
	logInfo(i18n.T("Cache directory: %s"), layout.Dir())

	b := batch.New(client, nil, layout, batchOptions(cfg, lf))
	applets := batch.DefaultApplets.Merge(cfg.Applets)

	switch s {
	case stepApps:
		err = b.GenerateApplicationLanguageFiles(ctx, cfg.System.TranslatedApplications)
	case stepApplets:
		err = b.GenerateAppletLanguageXMLFiles(ctx, applets)
	default:
		err = b.Run(ctx, cfg.System.TranslatedApplications, applets)
	}

	if err == nil {
		pruneLockFile(lf, b.Written(), s == stepAll)
	}
	// Files written before a failure stay on disk, so their checksums are
	// kept too.
	if saveErr := lf.Save(); saveErr != nil {
		logWarning(i18n.T("Could not save lock file: %v"), saveErr)
	}

	stats := b.Stats()
	if stats.Files > 0 {
		logInfo(i18n.N("%d file written (%s): %d changed, %d unchanged",
			"%d files written (%s): %d changed, %d unchanged", stats.Files),
			stats.Files, humanize.Bytes(uint64(stats.Bytes)), stats.Changed, stats.Unchanged)
	}

	return err
}

// pruneLockFile drops lock entries for files a successful run did not write.
// A full run also drops directories it did not touch at all, such as
// applications removed from the configuration.
func pruneLockFile(lf *lockfile.LockFile, written map[string][]string, full bool) {
	if full {
		for _, dir := range lf.Dirs() {
			lf.Clean(dir, written[dir])
		}
		return
	}
	for dir, files := range written {
		lf.Clean(dir, files)
	}
}

// ---------------------------------------------------------------------------
// status (read-only: configuration + cache contents)
// ---------------------------------------------------------------------------

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration and cache contents",
		Long: `Show the loaded configuration, the expected cache files with their
sizes and ages, the applet registry and the lock file summary.
Does not contact the API and does not modify any files.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus()
		},
	}
}

func runStatus() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	layout := cachefile.Layout{Root: cfg.System.Paths.Root}

	heading.Fprintf(color.Error, "\n%s\n", i18n.T("Configuration"))
	fmt.Fprintln(color.Error, strings.Repeat("─", 60))
	fmt.Fprintf(color.Error, "  %-12s %s\n", i18n.T("Config:"), cfg.FilePath())
	fmt.Fprintf(color.Error, "  %-12s %s\n", i18n.T("Cache:"), layout.Dir())
	if offline || cfg.API.URL == "" {
		fmt.Fprintf(color.Error, "  %-12s %s\n", i18n.T("API:"), i18n.T("built-in canned responses"))
	} else {
		fmt.Fprintf(color.Error, "  %-12s %s\n", i18n.T("API:"), cfg.API.URL)
		fmt.Fprintf(color.Error, "  %-12s %s / %s, %s\n", i18n.T("Routing:"), cfg.API.Target, cfg.API.Mode, cfg.API.Timeout)
	}
	fmt.Fprintln(color.Error)

	apps := cfg.System.TranslatedApplications
	if len(apps) == 0 {
		logInfo("%s", i18n.T("No applications configured."))
	} else {
		showApplicationTable(layout, apps)
	}

	applets := batch.DefaultApplets.Merge(cfg.Applets)
	heading.Fprintf(color.Error, "%s\n", i18n.T("Applets"))
	fmt.Fprintln(color.Error, strings.Repeat("─", 60))
	for _, ap := range applets {
		fmt.Fprintf(color.Error, "  %-16s %s\n", ap.Directory, ap.ID)
	}
	showAppletFiles(layout)
	fmt.Fprintln(color.Error)

	lf, err := lockfile.Load(filepath.Dir(cfg.FilePath()))
	if err != nil {
		logWarning("%v", err)
		return nil
	}
	fmt.Fprintf(color.Error, "%s %s\n\n", i18n.T("Lock file:"), lf.Summary())
	return nil
}

func showApplicationTable(layout cachefile.Layout, apps config.Applications) {
	heading.Fprintf(color.Error, "%s\n", i18n.T("Application language files"))
	fmt.Fprintln(color.Error, strings.Repeat("─", 60))
	fmt.Fprintf(color.Error, "%-16s %-28s %-10s %s\n", i18n.T("Application"), i18n.T("Language"), i18n.T("Size"), i18n.T("Updated"))

	missing := 0
	for _, app := range apps {
		for _, lang := range app.Languages {
			path, err := layout.ApplicationFile(app.ID, lang)
			if err != nil {
				continue
			}
			size, updated := describeFile(path)
			if size == "" {
				missing++
				size, updated = i18n.T("missing"), "-"
			}
			fmt.Fprintf(color.Error, "%-16s %-28s %-10s %s\n", app.ID, langCell(lang), size, updated)
		}
	}

	fmt.Fprintln(color.Error, strings.Repeat("─", 60))
	total := len(batch.ExpectedFiles(apps))
	fmt.Fprintf(color.Error, i18n.T("Expected files: %d, missing: %d")+"\n\n", total, missing)
}

func showAppletFiles(layout cachefile.Layout) {
	matches, _ := filepath.Glob(filepath.Join(layout.Dir(), cachefile.FlashDirName, "lang_*"+cachefile.ExtXML))
	if len(matches) == 0 {
		fmt.Fprintf(color.Error, "  %s\n", i18n.T("No applet language files cached."))
		return
	}
	sort.Strings(matches)
	for _, m := range matches {
		size, updated := describeFile(m)
		fmt.Fprintf(color.Error, "  %-28s %-10s %s\n", layout.Rel(m), size, updated)
	}
}

// describeFile returns the humanized size and age of path, or empty strings
// when it does not exist.
func describeFile(path string) (string, string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", ""
	}
	return humanize.Bytes(uint64(info.Size())), humanize.Time(info.ModTime())
}

func langCell(lang string) string {
	m := langmeta.Resolve(lang)
	label := langmeta.Label(lang)
	if m.Flag != "" {
		return m.Flag + " " + label
	}
	return label
}

// catalogList names the UI languages with a message catalog.
func catalogList() string {
	tags := i18n.Catalogs()
	names := make([]string, len(tags))
	for i, tag := range tags {
		names[i] = tag.String()
	}
	return strings.Join(names, ", ")
}

// ---------------------------------------------------------------------------
// init (create a starter config)
// ---------------------------------------------------------------------------

func newInitCmd() *cobra.Command {
	var (
		apps  []string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a starter .langcache.yaml",
		Long: `Create a .langcache.yaml in the project root.

Applications are given as --app <name>=<lang>,<lang>; repeat the flag for
more applications. The cache root defaults to the project root and can be
set with --cache-root; the API URL with --api-url.`,
		Example: `  langcache init --cache-root ~/sites/shop --app shop=en,hu --app portal=en`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(apps, force)
		},
	}

	cmd.Flags().StringArrayVar(&apps, "app", nil, "Application and its languages (name=lang,lang)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	return cmd
}

func runInit(specs []string, force bool) error {
	path, err := config.Path(rootDir, configPath)
	if err != nil {
		return err
	}
	if fileExists(path) && !force {
		return fmt.Errorf(i18n.T("%s already exists (use --force to overwrite)"), path)
	}

	apps, err := parseAppSpecs(specs)
	if err != nil {
		return err
	}

	root := cacheRoot
	if root == "" {
		root = "."
	}

	f := config.New(path, root, apps)
	f.API.URL = apiURL
	f.API.Proxy = apiProxy
	if apiTimeout > 0 {
		f.API.Timeout = apiTimeout
	}
	if err := f.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := f.Save(); err != nil {
		return err
	}

	logSuccess(i18n.T("Created %s"), path)
	if len(apps) == 0 {
		logInfo("%s", i18n.T("Add applications under system.translated_applications before running."))
	}
	return nil
}

// parseAppSpecs parses "shop=en,hu" values in the order given.
func parseAppSpecs(specs []string) (config.Applications, error) {
	var apps config.Applications
	for _, spec := range specs {
		name, langs, ok := strings.Cut(spec, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf(i18n.T("invalid --app value %q (want name=lang,lang)"), spec)
		}

		app := config.Application{ID: name}
		for _, l := range strings.Split(langs, ",") {
			if l = strings.TrimSpace(l); l != "" {
				app.Languages = append(app.Languages, l)
			}
		}
		apps = append(apps, app)
	}
	return apps, nil
}

// fileExists returns true if the file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
