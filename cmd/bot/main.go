package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"jats/internal/modules/config"
)

var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var flags config.Flags

	root := &cobra.Command{
		Use:           "jats",
		Short:         "Single-position trading bot for Upbit and KIS",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.Path, "config", "c", "", "config file (default configs/<env>_config.yaml or $CONFIG_FILE)")
	root.PersistentFlags().DurationVarP(&flags.Interval, "interval", "i", 0, "override trading.short_interval")

	root.AddCommand(runCmd(&flags), configCmd(&flags), versionCmd())
	return root
}

// platformArgs: позиционные [platform] [env].
func platformArgs(flags *config.Flags, args []string) {
	if len(args) > 0 {
		flags.Platform = args[0]
	}
	if len(args) > 1 {
		flags.Env = args[1]
	}
}

func runCmd(flags *config.Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "run [platform] [env]",
		Short: "Start trading (platform: upbit|kis, env: dev|prod)",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			platformArgs(flags, args)
			app := fx.New(options(*flags), fx.StopTimeout(30*time.Second))
			if err := app.Err(); err != nil {
				return err
			}

			startCtx, cancel := context.WithTimeout(context.Background(), app.StartTimeout())
			defer cancel()
			if err := app.Start(startCtx); err != nil {
				return err
			}

			sig := <-app.Wait()

			stopCtx, cancelStop := context.WithTimeout(context.Background(), app.StopTimeout())
			defer cancelStop()
			if err := app.Stop(stopCtx); err != nil {
				fmt.Fprintf(os.Stderr, "stop: %v\n", err)
			}
			if sig.ExitCode != 0 {
				os.Exit(sig.ExitCode)
			}
			return nil
		},
	}
}

func configCmd(flags *config.Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "config [platform] [env]",
		Short: "Print the effective configuration with secrets masked",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			platformArgs(flags, args)
			cfg, err := config.Load(*flags)
			if err != nil {
				return err
			}
			out, err := cfg.Dump()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "jats %s\n", version)
		},
	}
}
