// cmd/pipelinectl/root.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"job-matcher/internal/app"
	"job-matcher/internal/common/config"
	apperrors "job-matcher/internal/common/errors"
	"job-matcher/internal/common/logger"
)

const cliName = "pipelinectl"

// Actual version can be specified in build command.
var version = "dev"

var (
	cfgFile  string
	logLevel string

	rootCmd = &cobra.Command{
		Use:           cliName,
		Short:         "pipelinectl operates candidate matching and hiring pipelines directly against the stores",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version: %s\n", cliName, version)
		},
	}
)

// Execute runs the root command and prints failures with their error code.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		std := apperrors.AsStandardError(err)
		fmt.Fprintf(rootCmd.ErrOrStderr(), "error [%s]: %s\n", std.Code, err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is configs/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "warn", "log level")
	rootCmd.AddCommand(versionCmd)
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.LoadFromFile(cfgFile)
	}
	return config.Load()
}

// withApp opens the stores for the duration of fn. Interrupts cancel fn's context.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.NewStructured(logLevel, "console")
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log, nil)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
