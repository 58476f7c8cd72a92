package cli

import (
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"intraday-backtester/internal/config"
	"intraday-backtester/internal/logging"
	"intraday-backtester/internal/strategy"
)

// Version information
const (
	Version   = "0.3.0"
	BuildDate = "2025-08-01"
)

// App holds the application dependencies.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	rootCmd := &cobra.Command{
		Use:   "backtester",
		Short: "Intraday options backtester for Indian index derivatives",
		Long: `Backtester replays minute candles through intraday option-selling
strategies and produces trade ledgers, minute PnL series, and
performance analytics.

Use 'backtester strategies' to list available strategies.
Use 'backtester run --help' to see run options.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/intraday-backtester)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newStrategiesCmd())
	rootCmd.AddCommand(newRunCmd(app))
	rootCmd.AddCommand(newAnalyzeCmd(app))

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("Intraday Backtester v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newStrategiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "List available strategies",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			names := strategy.Names()
			if output.IsJSON() {
				output.JSON(names)
				return
			}
			output.Bold("Available strategies:")
			for _, n := range names {
				output.Printf("  %s\n", n)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			return showConfig(output, app.Config)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) error {
	output.Bold("Run Configuration")
	output.Printf("  Index:      %s\n", cfg.Run.Index)
	output.Printf("  Strategy:   %s\n", cfg.Run.Strategy)
	output.Printf("  Dates:      %s to %s\n", cfg.Run.StartDate, cfg.Run.EndDate)
	output.Printf("  Batch Size: %d\n", cfg.Run.BatchSize)
	output.Printf("  Fallback:   %s\n", cfg.Run.Fallback)
	output.Printf("  Minute PnL: %v\n", cfg.Run.MinutePnL)
	output.Println()

	output.Bold("Data Configuration")
	output.Printf("  Archive:    %s\n", cfg.Data.ArchivePath)
	output.Printf("  Volatility: %s\n", cfg.Data.VolatilityName)
	output.Println()

	output.Bold("Output Configuration")
	output.Printf("  Directory:   %s\n", cfg.Output.Dir)
	output.Printf("  Errors File: %s\n", cfg.Output.ErrorsFile)
	output.Println()

	output.Bold("Analytics Configuration")
	output.Printf("  Margin:      %.0f\n", cfg.Analytics.Margin)
	output.Printf("  Lot Size:    %d\n", cfg.Analytics.LotSize)
	output.Printf("  Simulations: %d\n", cfg.Analytics.Simulations)
	output.Printf("  Seed:        %d\n", cfg.Analytics.Seed)

	return nil
}

// normalizeStrategyName accepts both registry names and loose spellings.
func normalizeStrategyName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
