package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"smartdocs/internal/config"
	"smartdocs/internal/logging"
	"smartdocs/internal/reconcile"
)

var (
	rootCmd = &cobra.Command{
		Use:               "smartdocs",
		Short:             "Keep generated documentation in step with the code",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
	}
	configPath string
	logLevel   string

	cfg *config.Config
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if errors.Is(err, reconcile.ErrUserCancelled) {
			os.Exit(130)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to the smartdocs config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(historyCmd)
}

func setup(cmd *cobra.Command, _ []string) error {
	c, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config %s: %w", configPath, err)
	}
	if logLevel != "" {
		c.Log.Level = logLevel
	}
	if c.Log.Level == "" && os.Getenv("DEBUG") != "" {
		c.Log.Level = "debug"
	}
	logging.SetDefault(logging.New(cmd.ErrOrStderr(), logging.Config{
		Level:   c.Log.Level,
		Format:  c.Log.Format,
		NoColor: os.Getenv("NO_COLOR") != "",
	}))
	cfg = c
	return nil
}
