package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"weeklypanel/internal/app"
	"weeklypanel/pkg/contracts"
)

const stopTimeout = 10 * time.Second

type action func(a *app.Application, ctx context.Context) error

// newRootCommand builds the command tree. Every subcommand loads the
// configuration given by --config and shuts telemetry down on return.
func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "panel",
		Short:         "Build a weekly regression panel from daily, last-value and monthly series",
		Version:       contracts.GetFullVersionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/panel.yaml", "path to the YAML configuration")

	command := func(use, short string, run action) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				a, err := app.NewApplication(configPath, cmd.OutOrStdout())
				if err != nil {
					return err
				}
				runErr := run(a, cmd.Context())

				ctx, cancel := context.WithTimeout(context.WithoutCancel(cmd.Context()), stopTimeout)
				defer cancel()
				if err := a.Stop(ctx); err != nil {
					a.Logger.Warn("shutdown incomplete", slog.String("error", err.Error()))
				}
				if runErr != nil {
					return fmt.Errorf("%s: %w", use, runErr)
				}
				return nil
			},
		}
	}

	root.AddCommand(
		command("check", "Validate the input files and output directory", (*app.Application).Check),
		command("fetch", "Download daily bars for every series with a symbol", (*app.Application).Fetch),
		command("resample", "Resample every series to weekly files", (*app.Application).Resample),
		command("align", "Align the weekly files into the panel", (*app.Application).Align),
		command("regress", "Fit the configured regression on the stored panel", (*app.Application).Regress),
		command("run", "Resample, align and regress in one pass", (*app.Application).Run),
		command("serve", "Run once, then serve the results over HTTP", (*app.Application).Serve),
	)
	return root
}
