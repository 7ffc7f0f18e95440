package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"eve-hubarb/internal/config"
	"eve-hubarb/internal/engine"
	"eve-hubarb/internal/logger"
	"eve-hubarb/internal/sde"
)

// app carries state shared by every subcommand.
type app struct {
	version    string
	configPath string
	logLevel   string
	noColor    bool

	cfg    *config.Config
	tables *sde.Data
}

// load reads configuration and static tables. Failures wrap engine.ErrConfiguration.
// In JSON mode logs move to stderr before anything is logged.
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.noColor {
		cfg.Output.Color = "never"
	}
	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	switch cfg.Output.Color {
	case "always":
		logger.SetColor(true)
	case "never":
		logger.SetColor(false)
	}
	if isJSON(outputFormat(cmd, cfg.Output.Format)) {
		routeLogsAway(cfg.Output.Color)
	}

	if file := config.ConfigFile(a.configPath); file != "" {
		logger.Debug("CONFIG", fmt.Sprintf("Using %s", file))
	}
	tables, err := sde.Load(cfg.TablesPath)
	if err != nil {
		return fmt.Errorf("%w: %v", engine.ErrConfiguration, err)
	}
	a.cfg, a.tables = cfg, tables
	return nil
}

// outputFormat returns the command's --format flag when set, else the configured format.
func outputFormat(cmd *cobra.Command, configured string) string {
	if f := cmd.Flags().Lookup("format"); f != nil && f.Changed {
		return f.Value.String()
	}
	return configured
}

// NewRootCommand creates the root command for the CLI.
func NewRootCommand(version string) *cobra.Command {
	a := &app{version: version}
	rootCmd := &cobra.Command{
		Use:   "hubarb",
		Short: "Find cross-hub arbitrage routes in EVE Online markets",
		Long: `hubarb scans the order books of the major trade hubs, prices every
buy-here/sell-there route after transport cost, and ranks what is left.

Examples:
  hubarb scan
  hubarb scan --hubs Jita,Amarr --items 34,35 --format json
  hubarb top --limit 10 --by score
  hubarb ships Jita Amarr --volume 250000
  hubarb hubs`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "",
		"Path to config file (default ./hubarb.yaml or ~/.config/hubarb/hubarb.yaml)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "",
		"Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&a.noColor, "no-color", false,
		"Disable coloured output")

	rootCmd.AddCommand(newScanCommand(a))
	rootCmd.AddCommand(newTopCommand(a))
	rootCmd.AddCommand(newHistoryCommand(a))
	rootCmd.AddCommand(newShipsCommand(a))
	rootCmd.AddCommand(newHubsCommand(a))

	return rootCmd
}

// Execute runs the root command and returns the process exit code.
func Execute(version string) int {
	rootCmd := NewRootCommand(version)
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, engine.ErrConfiguration) {
			logger.Error("CONFIG", err.Error())
		} else {
			logger.Error("HUBARB", err.Error())
		}
		return 1
	}
	return 0
}

// isJSON reports whether the command output should be machine-readable.
func isJSON(format string) bool {
	return format == "json"
}

// routeLogsAway sends log lines to stderr so stdout stays parseable.
func routeLogsAway(color string) {
	logger.SetOutput(os.Stderr)
	if color == "auto" {
		logger.SetColor(logger.IsTerminal(os.Stderr))
	}
}
