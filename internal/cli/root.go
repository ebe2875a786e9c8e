package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/me/mgasm/internal/config"
	"github.com/me/mgasm/internal/logging"
)

var (
	flagServer    string
	flagConfig    string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	logger *slog.Logger
	client *Client
)

// defaultServer returns the default server URL, checking MGASM_SERVER env var first.
func defaultServer() string {
	if s := os.Getenv("MGASM_SERVER"); s != "" {
		return s
	}
	return "http://localhost:5000"
}

// NewRootCmd creates the root cobra command for the mgasm CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mgasm",
		Short: "mgasm: JGI metagenome assembly pipeline",
		Long: "mgasm filters, corrects and assembles metagenome reads, maps them back to the\n" +
			"assembly and publishes the outputs with a summary report.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagDebug {
				flagLogLevel = "debug"
			}
			logger = logging.NewLogger(logging.ParseLevel(flagLogLevel), flagLogFormat)
			client = NewClient(flagServer, logger)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagServer, "server", defaultServer(), "mgasm server URL for submit/status (or MGASM_SERVER env)")
	root.PersistentFlags().StringVar(&flagConfig, "config", os.Getenv("MGASM_CONFIG"), "Path to YAML config file (or MGASM_CONFIG env)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newRunCmd(),
		newRunsCmd(),
		newSubmitCmd(),
		newStatusCmd(),
		newToolsCmd(),
		newCatalogCmd(),
		newServeCmd(),
	)

	return root
}

// loadConfig reads the configuration named by --config. Command line log
// settings override the file.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return cfg, err
	}
	if cmd.Flags().Changed("log-level") || flagDebug {
		cfg.LogLevel = flagLogLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.LogFormat = flagLogFormat
	}
	return cfg, nil
}

// openApp loads the configuration and wires the application for commands
// that work on local state.
func openApp(cmd *cobra.Command) (*App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	app, err := NewApp(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	return app, nil
}
