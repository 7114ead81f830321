// Package main provides the CLI entrypoint for spirecurve.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/spirecurve/internal/chart"
	"github.com/verte-zerg/spirecurve/internal/config"
	"github.com/verte-zerg/spirecurve/internal/export"
	"github.com/verte-zerg/spirecurve/internal/model"
	"github.com/verte-zerg/spirecurve/internal/pipeline"
	"github.com/verte-zerg/spirecurve/internal/runfile"
	"github.com/verte-zerg/spirecurve/internal/runs"
	"github.com/verte-zerg/spirecurve/internal/stats"
	"github.com/verte-zerg/spirecurve/internal/statsui"
	"github.com/verte-zerg/spirecurve/internal/store"
)

var (
	runsDir          string
	runsMinAsc       int
	runsMinFloor     int
	runsMaxFloor     int
	runsVictory      string
	runsIncludeDaily bool

	statsWindow int
	statsChar   string
	statsSince  string
	statsLast   int

	fromDB  bool
	dbPath  string
	verbose bool

	curvesHTML   string
	curvesHeight int

	exportFormat string
	exportOut    string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "spirecurve",
		Short:         "Rolling win-rate curves for Slay the Spire run history",
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.NoArgs,
		RunE:          runCurvesCmd,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&runsDir, "dir", "", "run history directory (default: Steam install)")
	flags.IntVar(&runsMinAsc, "min-ascension", model.DefaultMinAscension, "minimum ascension level")
	flags.IntVar(&runsMinFloor, "min-floor", model.DefaultMinFloor, "minimum floor reached")
	flags.IntVar(&runsMaxFloor, "max-floor", model.DefaultMaxFloor, "floor count of a full run")
	flags.StringVar(&runsVictory, "victory", string(model.VictoryFromField), "victory derivation (fromField or floorEqualsMax)")
	flags.BoolVar(&runsIncludeDaily, "include-daily", false, "keep daily-challenge runs")
	flags.IntVar(&statsWindow, "window", model.DefaultWindow, "rolling window size")
	flags.StringVar(&statsChar, "char", "all", "character filter (ironclad, silent, defect, watcher, all)")
	flags.StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	flags.IntVar(&statsLast, "last", 0, "limit to last N runs")
	flags.BoolVar(&fromDB, "from-db", false, "read runs from the archive instead of the run directory")
	flags.StringVar(&dbPath, "db", "", "archive path (default: XDG data dir)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "log skipped and ineligible runs")

	rootCmd.Flags().StringVar(&curvesHTML, "html", "", "also write an interactive chart page to this file")
	rootCmd.Flags().IntVar(&curvesHeight, "height", 0, "plot height in rows (default 10)")

	rootCmd.AddCommand(newRunsCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

// settings is the merged flag and file configuration of one invocation.
type settings struct {
	pipeline model.PipelineConfig
	stats    model.StatsConfig
	logger   *slog.Logger
}

func loadSettings(cmd *cobra.Command) (settings, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return settings{}, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "dir", &runsDir, fileCfg.Runs.Dir)
	applyIntConfig(cmd, "min-ascension", &runsMinAsc, fileCfg.Runs.MinAscension)
	applyIntConfig(cmd, "min-floor", &runsMinFloor, fileCfg.Runs.MinFloor)
	applyIntConfig(cmd, "max-floor", &runsMaxFloor, fileCfg.Runs.MaxFloor)
	applyStringConfig(cmd, "victory", &runsVictory, fileCfg.Runs.Victory)
	if fileCfg.Runs.ExcludeDaily != nil && !cmd.Flags().Changed("include-daily") {
		runsIncludeDaily = !*fileCfg.Runs.ExcludeDaily
	}
	applyIntConfig(cmd, "window", &statsWindow, fileCfg.Stats.Window)
	applyStringConfig(cmd, "char", &statsChar, fileCfg.Stats.Character)

	dir := runsDir
	if dir == "" {
		dir = config.DefaultRunsDir()
	}
	victory, err := model.ParseVictoryDerivation(runsVictory)
	if err != nil {
		return settings{}, fmt.Errorf("--victory: %w", err)
	}
	pcfg := model.PipelineConfig{
		RootPath:     dir,
		MinAscension: runsMinAsc,
		MinFloor:     runsMinFloor,
		MaxFloor:     runsMaxFloor,
		Victory:      victory,
		ExcludeDaily: !runsIncludeDaily,
	}

	var sinceTime *time.Time
	if statsSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", statsSince, time.Local)
		if err != nil {
			return settings{}, fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	scfg := model.StatsConfig{
		Window:    statsWindow,
		Character: model.ParseCharacter(statsChar),
		Since:     sinceTime,
		Last:      statsLast,
	}
	if err := validateConfig(pcfg, scfg); err != nil {
		return settings{}, err
	}
	return settings{pipeline: pcfg, stats: scfg, logger: newLogger(os.Stderr, verbose)}, nil
}

func validateConfig(pcfg model.PipelineConfig, scfg model.StatsConfig) error {
	if pcfg.MaxFloor < 1 {
		return fmt.Errorf("--max-floor must be >= 1")
	}
	if pcfg.MinFloor > pcfg.MaxFloor {
		return fmt.Errorf("--min-floor must be <= --max-floor")
	}
	if scfg.Window < 1 {
		return fmt.Errorf("--window must be >= 1")
	}
	if scfg.Last < 0 {
		return fmt.Errorf("--last must be >= 0")
	}
	if scfg.Character != model.AllChars && !scfg.Character.IsKnown() {
		return fmt.Errorf("--char: unknown character %q", strings.ToLower(string(scfg.Character)))
	}
	return nil
}

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadCohort returns the chronological cohort either from the run directory
// or from the archive.
func loadCohort(ctx context.Context, s settings) ([]model.RunRecord, error) {
	if fromDB {
		st, err := openStore()
		if err != nil {
			return nil, err
		}
		defer func() {
			if cerr := st.Close(); cerr != nil {
				logErrf("failed to close db: %v\n", cerr)
			}
		}()
		all, err := st.ListRuns(ctx, store.RunFilter{})
		if err != nil {
			return nil, fmt.Errorf("failed to list runs: %w", err)
		}
		res, err := pipeline.Select(all, s.pipeline, pipeline.LogSink(s.logger))
		if err != nil {
			return nil, err
		}
		logIneligible(s, res.All)
		s.logger.Debug("loaded archive", "runs", res.Scanned, "skipped", res.Skipped,
			"ineligible", res.Ineligible, "cohort", len(res.Cohort))
		return res.Cohort, nil
	}

	res, err := pipeline.Run(s.pipeline, runfile.Source{}, pipeline.LogSink(s.logger))
	if err != nil {
		return nil, err
	}
	logIneligible(s, res.All)
	s.logger.Debug("scanned run directory", "dir", s.pipeline.RootPath, "files", res.Scanned,
		"skipped", res.Skipped, "ineligible", res.Ineligible, "cohort", len(res.Cohort))
	return res.Cohort, nil
}

func logIneligible(s settings, records []model.RunRecord) {
	if !s.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	cohort := runs.NewCohort(s.pipeline)
	for _, r := range records {
		if cohort.Eligible(r) {
			continue
		}
		s.logger.Debug("ineligible run", "id", r.ID, "character", r.Character,
			"ascension", r.AscensionLevel, "floor", r.FloorReached, "daily", r.IsDaily)
	}
}

func buildReport(cmd *cobra.Command) (stats.Report, error) {
	s, err := loadSettings(cmd)
	if err != nil {
		return stats.Report{}, err
	}
	cohort, err := loadCohort(cmd.Context(), s)
	if err != nil {
		return stats.Report{}, err
	}
	report, err := stats.BuildReport(cohort, s.stats, s.pipeline.MaxFloor)
	if err != nil {
		return stats.Report{}, fmt.Errorf("failed to compute stats: %w", err)
	}
	return report, nil
}

func runCurvesCmd(cmd *cobra.Command, _ []string) error {
	if curvesHeight < 0 {
		return fmt.Errorf("--height must be >= 0")
	}
	report, err := buildReport(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(report.Records) == 0 {
		return stats.RenderSummary(out, report)
	}
	presenter := stats.TerminalPresenter{W: out, Opts: stats.PlotOptions{Height: curvesHeight}}
	if err := report.Present(presenter); err != nil {
		return err
	}
	if err := stats.RenderSummary(out, report); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if curvesHTML == "" {
		return nil
	}
	return writeChartPage(curvesHTML, report)
}

func writeChartPage(path string, report stats.Report) error {
	page := chart.NewPage("")
	if err := report.Present(page); err != nil {
		return err
	}
	if page.Len() == 0 {
		logErrf("Not enough runs for a window of %d; no chart written.\n", report.Window)
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := page.Render(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	logErrf("Wrote %s\n", path)
	return nil
}

func newRunsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "List cohort runs with win rate and longest streak",
		Args:  cobra.NoArgs,
		RunE:  runRunsCmd,
	}
}

func runRunsCmd(cmd *cobra.Command, _ []string) error {
	report, err := buildReport(cmd)
	if err != nil {
		return err
	}
	records := runs.ByCharacter(report.Records, report.Overall.Character)
	if err := stats.RenderRuns(cmd.OutOrStdout(), records); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Browse stats interactively",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	cohort, err := loadCohort(cmd.Context(), s)
	if err != nil {
		return err
	}
	model := statsui.NewModel(cohort, s.stats, s.pipeline.MaxFloor)
	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Copy normalized runs from the run directory into the archive",
		Args:  cobra.NoArgs,
		RunE:  runImportCmd,
	}
}

func runImportCmd(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	res, err := pipeline.Run(s.pipeline, runfile.Source{}, pipeline.LogSink(s.logger))
	if err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()
	added, err := st.InsertRuns(cmd.Context(), res.All)
	if err != nil {
		return fmt.Errorf("failed to import runs: %w", err)
	}
	total, err := st.CountRuns(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to count runs: %w", err)
	}
	logErrf("Imported %d new runs (%d files scanned, %d skipped, %d archived)\n",
		added, res.Scanned, res.Skipped, total)
	return nil
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write curves and totals as JSON or YAML",
		Args:  cobra.NoArgs,
		RunE:  runExportCmd,
	}
	cmd.Flags().StringVarP(&exportFormat, "format", "f", string(export.JSON), "output format (json or yaml)")
	cmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default: stdout)")
	return cmd
}

func runExportCmd(cmd *cobra.Command, _ []string) error {
	format, err := export.ParseFormat(exportFormat)
	if err != nil {
		return fmt.Errorf("--format: %w", err)
	}
	report, err := buildReport(cmd)
	if err != nil {
		return err
	}
	if exportOut == "" {
		return export.Write(cmd.OutOrStdout(), report, format)
	}
	f, err := os.Create(exportOut)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", exportOut, err)
	}
	if err := export.Write(f, report, format); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", exportOut, err)
	}
	return f.Close()
}

func openStore() (*store.Store, error) {
	path := dbPath
	if path == "" {
		path = config.DefaultDBPath()
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	return st, nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# spirecurve configuration
# Uncomment a value to enable it. CLI flags override config values.

[runs]
# dir = %q
# min-ascension = %d       # Minimum ascension level
# min-floor = %d            # Drop runs abandoned before this floor
# max-floor = %d           # Floor count of a full run
# victory = %q     # fromField or floorEqualsMax
# exclude-daily = true      # Drop daily-challenge runs

[stats]
# window = %d              # Rolling window size
# char = "all"              # ironclad, silent, defect, watcher or all
`,
		config.DefaultRunsDir(),
		model.DefaultMinAscension,
		model.DefaultMinFloor,
		model.DefaultMaxFloor,
		model.VictoryFromField,
		model.DefaultWindow,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
