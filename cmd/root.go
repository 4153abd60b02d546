package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/tgwatch/internal/config"
	"github.com/nextlevelbuilder/tgwatch/internal/state"
)

// Version is set at build time via -ldflags "-X github.com/nextlevelbuilder/tgwatch/cmd.Version=v1.0.0"
var Version = "dev"

var (
	cfgFile string
	envFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "tgwatch",
	Short: "tgwatch: Telegram keyword monitor",
	Long:  "tgwatch watches Telegram channels for keywords and forwards matching posts to a destination chat, each post at most once.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMonitor(cmd.Context())
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: config.json or $TGWATCH_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(matchCmd())
	rootCmd.AddCommand(stateCmd())
	rootCmd.AddCommand(journalCmd())
	rootCmd.AddCommand(onboardCmd())
	rootCmd.AddCommand(doctorCmd())
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("tgwatch %s\n", Version)
		},
	}
}

func resolveConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if v := os.Getenv("TGWATCH_CONFIG"); v != "" {
		return v
	}
	return "config.json"
}

func setupLogging() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))
}

// loadConfig loads the dotenv file and then the config.
func loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func statePaths(cfg *config.Config) state.Paths {
	return state.Paths{
		LastMessages: config.ExpandHome(cfg.State.LastMessagesFile),
		SentMessages: config.ExpandHome(cfg.State.SentMessagesFile),
		LastRun:      config.ExpandHome(cfg.State.LastRunFile),
	}
}

// Execute runs the root cobra command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
