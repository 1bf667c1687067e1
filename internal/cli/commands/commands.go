package commands

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"ctrf/internal/cli"
	"ctrf/internal/config"
	"ctrf/internal/discovery"
	"ctrf/internal/execution"
	"ctrf/internal/history"
	"ctrf/internal/storage"
	"ctrf/internal/ui"
)

// Commands holds all CLI commands
type Commands struct {
	Run      *RunCommand
	Collect  *CollectCommand
	Merge    *MergeCommand
	List     *ListCommand
	Failures *FailuresCommand
	Publish  *PublishCommand

	storage storage.Storage
}

// NewCommands creates all commands with dependencies
func NewCommands(cfg *config.Config, logger *zap.Logger) *Commands {
	// Initialize dependencies
	scanner := discovery.NewScanner(cfg.PathsToIgnore)
	filter := discovery.NewFilter()
	testCaseParser := discovery.NewParser()
	runner := execution.NewRunner(cfg)
	scheduler := execution.NewRoundRobinScheduler()
	executor := execution.NewWorkerPool(cfg, runner, scheduler, logger)
	jsonStorage := storage.NewJSONStorage(cfg)
	formatter := ui.NewFormatter(cfg, testCaseParser)
	publisher := history.NewMySQLPublisher(cfg, logger)
	errorViewer := ui.NewErrorViewer(cfg)

	return &Commands{
		Run:      NewRunCommand(cfg, scanner, filter, testCaseParser, executor, jsonStorage, formatter, publisher, logger),
		Collect:  NewCollectCommand(cfg, scanner, testCaseParser, jsonStorage, formatter, logger),
		Merge:    NewMergeCommand(cfg, jsonStorage, formatter, logger),
		List:     NewListCommand(cfg, scanner, filter, formatter, jsonStorage, logger),
		Failures: NewFailuresCommand(cfg, jsonStorage, errorViewer),
		Publish:  NewPublishCommand(cfg, jsonStorage, publisher),
		storage:  jsonStorage,
	}
}

// Register registers all commands with cobra
func (c *Commands) Register(rootCmd *cobra.Command, flags *cli.Flags, cfg *config.Config) {
	rootCmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "Enable debug logging")

	// Run command
	runCmd := &cobra.Command{
		Use:   "run [packages] [-- go test flags]",
		Short: "Run go tests and write a CTRF report",
		Long:  "Discover Go test packages, run them with go test -json on parallel workers and aggregate the results into a CTRF report",
		RunE:  c.Run.Execute,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return c.applyFlags(cmd, flags, cfg)
		},
	}
	runCmd.Flags().IntVarP(&flags.Processors, "processors", "p", config.DefaultProcessors, "Number of workers to use (1 runs without distribution)")
	runCmd.Flags().StringVarP(&flags.TestPath, "test-path", "t", "", "Path to the folder where package discovery should start")
	runCmd.Flags().StringVarP(&flags.NameFilter, "filter", "f", "", "Filter packages by import path pattern (supports wildcards, e.g., '*/store' or '*payment*')")
	runCmd.Flags().BoolVar(&flags.FailFast, "fail-fast", false, "Stop on first test failure")
	runCmd.Flags().StringVar(&flags.GoBinary, "go", config.DefaultGoBinary, "Go tool used to run the tests")
	runCmd.Flags().BoolVar(&flags.Publish, "publish", false, "Publish the report to the history database after the run")
	addReportFlags(runCmd, flags)
	rootCmd.AddCommand(runCmd)

	// Collect command
	collectCmd := &cobra.Command{
		Use:   "collect [file]",
		Short: "Build a CTRF report from an event stream",
		Long:  "Read go test -json output (or native events) from a file or stdin and aggregate it into a CTRF report",
		// A bare --ctrf may be followed by the report path; Execute checks the rest
		Args: cobra.MaximumNArgs(2),
		RunE: c.Collect.Execute,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return c.applyFlags(cmd, flags, cfg)
		},
	}
	collectCmd.Flags().StringVar(&flags.Format, "format", config.DefaultEventFormat, "Input format: gotest or events")
	collectCmd.Flags().StringVar(&flags.PackageDir, "package-dir", "", "Module directory used to resolve test source files")
	addReportFlags(collectCmd, flags)
	rootCmd.AddCommand(collectCmd)

	// Merge command
	mergeCmd := &cobra.Command{
		Use:   "merge -o output part...",
		Short: "Merge CTRF reports",
		Long:  "Merge CTRF reports written by separate runs into one report with a recomputed summary",
		Args:  cobra.MinimumNArgs(1),
		RunE:  c.Merge.Execute,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := c.applyFlags(cmd, flags, cfg); err != nil {
				return err
			}
			cfg.ReportEnabled = true
			cfg.ReportPath = flags.Output
			return c.storage.CheckWritable()
		},
	}
	mergeCmd.Flags().StringVarP(&flags.Output, "output", "o", "", "File the merged report is written to")
	_ = mergeCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(mergeCmd)

	// List command
	listCmd := &cobra.Command{
		Use:   "list [packages]",
		Short: "List discovered test packages",
		Long:  "Scan and list all Go test packages without executing them",
		RunE:  c.List.Execute,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return c.applyFlags(cmd, flags, cfg)
		},
	}
	listCmd.Flags().StringVarP(&flags.NameFilter, "filter", "f", "", "Filter packages by import path pattern (supports wildcards, e.g., '*/store' or '*payment*')")
	listCmd.Flags().StringVarP(&flags.TestPath, "test-path", "t", "", "Path to the folder where package discovery should start")
	listCmd.Flags().BoolVarP(&flags.TestCases, "test-cases", "c", false, "List test functions of every package")
	rootCmd.AddCommand(listCmd)

	// Failures command
	failuresCmd := &cobra.Command{
		Use:   "failures [report]",
		Short: "View test failures interactively",
		Long:  "Display the failed and errored tests of a CTRF report in an interactive viewer",
		Args:  cobra.MaximumNArgs(1),
		RunE:  c.Failures.Execute,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return c.applyFlags(cmd, flags, cfg)
		},
	}
	rootCmd.AddCommand(failuresCmd)

	// Publish command
	publishCmd := &cobra.Command{
		Use:   "publish [report]",
		Short: "Store a CTRF report in the history database",
		Long:  "Insert a CTRF report into MySQL (connection from DB_HOST, DB_PORT, DB_USERNAME, DB_PASSWORD, DB_DATABASE)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  c.Publish.Execute,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return c.applyFlags(cmd, flags, cfg)
		},
	}
	rootCmd.AddCommand(publishCmd)
}

// addReportFlags adds the flags controlling the CTRF report
func addReportFlags(cmd *cobra.Command, flags *cli.Flags) {
	cmd.Flags().Var(&reportFlag{path: &flags.Report, fs: cmd.Flags()}, "ctrf", "Write a CTRF report to this file (bare --ctrf writes "+config.DefaultReportFile+")")
	cmd.Flags().Lookup("ctrf").NoOptDefVal = config.DefaultReportFile
	cmd.Flags().StringVar(&flags.Suite, "ctrf-suite", config.DefaultSuite, "Default suite prefix of every test (empty uses the file name only)")
	cmd.Flags().StringVar(&flags.MarkersPath, "markers", "", "YAML marker file (default "+config.DefaultMarkersFile+" when present)")
}

// applyFlags updates the config once flags are parsed. Flags win over the
// environment; the report destination is checked before any test runs.
func (c *Commands) applyFlags(cmd *cobra.Command, flags *cli.Flags, cfg *config.Config) error {
	cfg.Flags = flags.ToConfigFlags()
	if flags.Processors > 0 {
		cfg.Processors = flags.Processors
	}
	if err := cfg.LoadEnv(); err != nil {
		return err
	}

	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}
	if changed("ctrf") {
		cfg.ReportEnabled = true
		cfg.ReportPath = flags.Report
	}
	if changed("ctrf-suite") {
		cfg.Suite = flags.Suite
	}
	if changed("markers") {
		cfg.MarkersPath = flags.MarkersPath
	}
	if changed("go") {
		cfg.GoBinary = flags.GoBinary
	}

	if cfg.ReportEnabled {
		return c.storage.CheckWritable()
	}
	return nil
}

// reportFlag is the value of --ctrf. pflag never reads the value of a flag
// with NoOptDefVal from the next argument, so "--ctrf out.json" sets the
// default file and leaves out.json as a positional argument. The flag keeps
// its position among the positional arguments so the path can be claimed back.
type reportFlag struct {
	path *string
	fs   *pflag.FlagSet
	bare bool
	at   int
}

func (r *reportFlag) String() string {
	if r.path == nil {
		return ""
	}
	return *r.path
}

func (r *reportFlag) Set(value string) error {
	*r.path = value
	r.bare = value == config.DefaultReportFile
	// positional arguments parsed so far
	r.at = r.fs.NArg()
	return nil
}

func (r *reportFlag) Type() string {
	return "string"
}

// claimReportPath moves a ".json" argument that directly follows a bare --ctrf
// from args to the report path and checks the new destination. It returns the
// remaining arguments.
func claimReportPath(cmd *cobra.Command, cfg *config.Config, st storage.Storage, args []string) ([]string, error) {
	f := cmd.Flags().Lookup("ctrf")
	if f == nil {
		return args, nil
	}
	r, ok := f.Value.(*reportFlag)
	if !ok || !r.bare || r.at >= len(args) || !strings.HasSuffix(args[r.at], ".json") {
		return args, nil
	}

	cfg.ReportEnabled = true
	cfg.ReportPath = args[r.at]
	rest := append(append([]string(nil), args[:r.at]...), args[r.at+1:]...)
	if err := st.CheckWritable(); err != nil {
		return nil, err
	}
	return rest, nil
}
