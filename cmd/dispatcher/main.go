package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ignite/mail-dispatcher/internal/config"
	"github.com/ignite/mail-dispatcher/internal/pkg/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	cfgFile  string
	logLevel string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "dispatcher",
	Short: "Bulk mail dispatcher",
	Long: `Dispatcher sends one personalized email per contact of a CSV file,
picking a random template and sender identity for each contact and
recording every attempt in per-template and per-sender ledgers.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "settings.yaml", "settings file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadSettings reads the settings file and applies the logging section.
func loadSettings() (*config.Settings, error) {
	s, err := config.LoadFromEnv(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	level := s.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	logger.SetLevel(logger.ParseLevel(level))
	logger.SetRedactPII(s.Log.ShouldRedact())
	return s, nil
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the settings and print them for review",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings()
		if err != nil {
			return err
		}
		if err := s.Check(); err != nil {
			return fmt.Errorf("important settings are not completed: %w", err)
		}
		if _, err := s.Configuration(); err != nil {
			return err
		}
		if err := s.WriteReview(cmd.OutOrStdout(), ""); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "\n   Settings OK.")
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "dispatcher %s\n", version)
	},
}
