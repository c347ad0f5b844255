// Package cmd implements the xroci command line.
package cmd

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/metaformsystems/xregistry-oci/internal/config"
	"github.com/metaformsystems/xregistry-oci/internal/logger"
	"github.com/metaformsystems/xregistry-oci/internal/logger/sanitize"
	"github.com/metaformsystems/xregistry-oci/internal/pipeline"
)

// Log file names inside the log directory
const (
	logFileName       = "xroci.log"
	eventsFileName    = "build-events.jsonl"
	summaryFileName   = "build-summary.md"
	logDirEnvVar      = "XROCI_LOG_DIR"
	projectDirDefault = "."
)

var (
	debugLog = logger.New("cmd:root")
	version  = "dev" // Default version, overridden by SetVersion

	// defaultLogDir is used when neither --log-dir nor XROCI_LOG_DIR is set
	defaultLogDir = filepath.Join(os.TempDir(), "xroci", "logs")
)

// rootOptions holds the persistent flags and what is loaded from them
type rootOptions struct {
	configFile string
	projectDir string
	logDir     string

	cfg *config.Config
}

// getDefaultLogDir returns XROCI_LOG_DIR or the default log directory
func getDefaultLogDir() string {
	if dir := os.Getenv(logDirEnvVar); dir != "" {
		return dir
	}
	return defaultLogDir
}

// NewRootCmd builds the xroci command tree
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:     "xroci",
		Short:   "Package xRegistries as OCI artifacts",
		Version: version,
		Long: `xroci packages a file-system xRegistry (policies, schemas and rules in
compact format) as an OCI image layout and a distributable tar archive, and
moves the result between the layout and OCI registries.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return logger.CloseAll()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "Path to config file (default: <project-dir>/"+config.DefaultConfigFile+" if present)")
	flags.StringVarP(&opts.projectDir, "project-dir", "p", projectDirDefault, "Project directory")
	flags.StringVar(&opts.logDir, "log-dir", getDefaultLogDir(), "Directory for log files (also "+logDirEnvVar+")")

	rootCmd.AddCommand(
		newBuildCmd(opts),
		newTasksCmd(opts),
		newListCmd(opts),
		newValidateCmd(opts),
		newDigestCmd(),
		newInspectCmd(opts),
		newPushCmd(opts),
		newPullCmd(opts),
		newServeCmd(opts),
		newCompletionCmd(),
	)
	return rootCmd
}

// setup initializes the loggers, loads the configuration and checks the
// environment
func (o *rootOptions) setup(cmd *cobra.Command) error {
	debugLog.Printf("Running %s: args=%v", cmd.CommandPath(), sanitize.SanitizeArgs(os.Args[1:]))

	if err := logger.InitFileLogger(o.logDir, logFileName); err != nil {
		log.Printf("Warning: failed to initialize file logger: %v", err)
	}
	if err := logger.InitJSONLLogger(o.logDir, eventsFileName); err != nil {
		log.Printf("Warning: failed to initialize build event log: %v", err)
	}
	if err := logger.InitMarkdownLogger(o.logDir, summaryFileName); err != nil {
		log.Printf("Warning: failed to initialize markdown summary: %v", err)
	}

	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}
	o.cfg = cfg

	result := config.ValidateExecutionEnvironment(cfg)
	for _, warning := range result.ValidationWarnings {
		log.Printf("Warning: %s", warning)
		logger.LogWarn("startup", "%s", warning)
	}
	if !result.IsValid() {
		logger.LogError("startup", "%s", result.Error())
		return fmt.Errorf("%s", result.Error())
	}
	return nil
}

// loadConfig reads --config when given, otherwise the default file of the
// project directory when it exists
func (o *rootOptions) loadConfig() (*config.Config, error) {
	if o.configFile != "" {
		cfg, err := config.LoadFromFile(o.configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		return cfg, nil
	}

	path := filepath.Join(o.projectDir, config.DefaultConfigFile)
	cfg, err := config.LoadOptional(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// project resolves the project of the current invocation
func (o *rootOptions) project(overrides pipeline.Overrides) (*pipeline.Project, error) {
	return pipeline.NewProject(o.projectDir, o.cfg, overrides)
}

// Execute runs the root command
func Execute() {
	err := NewRootCmd().Execute()
	// PersistentPostRunE is skipped when a command fails
	logger.CloseAll()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// SetVersion sets the version string for the CLI and for configuration
// error messages
func SetVersion(v string) {
	version = v
	config.SetVersion(v)
}
