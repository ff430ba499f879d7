// Command netsim runs a network simulation scenario script and writes
// the per-device logs.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/dfg-98/netsim/sim"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		outputPath string
		configPath string
		verbose    bool
	)
	cmd := &cobra.Command{
		Use:           "netsim [script]",
		Short:         "Discrete-time network simulator",
		Long:          "netsim executes a scenario script against a simulated TCP/IP stack,\nfrom the physical medium up to ICMP echo, and records per-device logs.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			scriptPath := "script.txt"
			if len(args) == 1 {
				scriptPath = args[0]
			}
			log := newLogger(verbose)

			cfg, err := sim.LoadConfig(configPath)
			if err != nil {
				return err
			}
			instructions, err := sim.LoadScript(scriptPath)
			if err != nil {
				return err
			}
			log.Info("starting simulation",
				"script", scriptPath,
				"instructions", len(instructions),
				"signal_time", cfg.SignalTime,
				"error_prob", cfg.ErrorProb)

			s := sim.New(cfg, outputPath, log)
			start := time.Now()
			if err := s.Start(instructions); err != nil {
				return err
			}
			log.Info("simulation finished",
				"ticks", s.Time(),
				"elapsed", time.Since(start),
				"output", outputPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "output", "directory for device logs")
	cmd.Flags().StringVarP(&configPath, "config", "c", "config.txt", "configuration file")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	return cmd
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
	}))
}
