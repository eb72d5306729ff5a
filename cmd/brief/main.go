package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/timmy/repobrief/internal/app"
	"github.com/timmy/repobrief/internal/config"
	"github.com/timmy/repobrief/internal/logger"
	"github.com/timmy/repobrief/internal/service"
)

var (
	flagConfig string
	flagOut    string
	flagQuiet  bool
)

var rootCmd = &cobra.Command{
	Use:           "brief",
	Short:         "Summarize a hosted repository into a README draft",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCmd = &cobra.Command{
	Use:   "run <repo-url>",
	Short: "Run the pipeline for one repository and print the result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, err := config.Load(flagConfig)
		if err != nil {
			return err
		}
		cfg.Database.Driver = "memory"

		a, err := app.Build(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		var report service.ProgressFunc
		if !flagQuiet {
			report = func(stage service.Stage) error {
				fmt.Fprintf(os.Stderr, "[%3.0f%%] %s\n", stage.Progress(), stage)
				return nil
			}
		}

		res, err := a.Jobs.RunSync(ctx, args[0], report)
		if err != nil {
			return err
		}
		if !flagQuiet {
			fmt.Fprintf(os.Stderr, "Built from %d of %d files: %v\n", len(res.SelectedPaths), res.FileCount, res.SelectedPaths)
		}

		if flagOut == "" {
			_, err = fmt.Fprintln(cmd.OutOrStdout(), res.Content)
			return err
		}
		return os.WriteFile(flagOut, []byte(res.Content), 0o644)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Print the stored status of a job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flagConfig)
		if err != nil {
			return err
		}
		a, err := app.Build(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(a.Jobs.Status(cmd.Context(), args[0]))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default ./configs/config.yaml)")
	runCmd.Flags().StringVarP(&flagOut, "out", "o", "", "write the summary to this file instead of stdout")
	runCmd.Flags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress progress output")
	rootCmd.AddCommand(runCmd, statusCmd)
}

func main() {
	logger.SetDefaultLogger(logger.NewDefault())
	defer logger.Sync()

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
