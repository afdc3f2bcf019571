// Command statecheck runs one of the models compiled into the binary and
// reports either the explored state count or a counterexample.
//
// Exit status: 0 when exploration completes with no violation, 1 when a
// violation is found, 2 for usage errors and fatal faults.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"statecheck/checker"
	"statecheck/config"
	"statecheck/metrics"
	"statecheck/model"

	// Compiled-in demo models register themselves.
	_ "statecheck/examples/counter"
	_ "statecheck/examples/mutex"
	_ "statecheck/examples/toggle"
)

const (
	exitCompleted = 0
	exitFailed    = 1
	exitFatal     = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	status := exitCompleted
	root := newRootCmd(&status)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "statecheck:", err)
		return exitFatal
	}
	return status
}

// logLevel maps the configuration to the handler level. Progress and summary
// lines are part of the tool's normal output and report at info; verbose
// additionally lifts debug logging.
func logLevel(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func newRootCmd(status *int) *cobra.Command {
	var (
		threads     int
		configPath  string
		verbose     bool
		metricsAddr string
	)

	root := &cobra.Command{
		Use:           "statecheck",
		Short:         "Explicit-state model checker",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the models compiled into this binary",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range model.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	})

	runCmd := &cobra.Command{
		Use:   "run <model>",
		Short: "Exhaustively explore one model's state space",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, ok := model.Lookup(args[0])
			if !ok {
				return fmt.Errorf("unknown model %q (see 'statecheck list')", args[0])
			}

			cfg := config.Default()
			if configPath != "" {
				var err error
				if cfg, err = config.Load(configPath); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("threads") {
				cfg.Threads = threads
			}
			if verbose {
				cfg.Verbose = true
			}

			log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel(cfg.Verbose)}))

			opts := []checker.Option{checker.WithLogger(log)}
			if metricsAddr != "" {
				reg := prometheus.NewRegistry()
				opts = append(opts, checker.WithMetrics(metrics.New(reg)))
				go serveMetrics(log, metricsAddr, reg)
			}

			c, err := checker.New(m, cfg, opts...)
			if err != nil {
				return err
			}
			result, err := c.Run(context.Background())
			if err != nil {
				return err
			}

			result.Write(cmd.OutOrStdout())
			if result.Verdict == checker.Failed {
				*status = exitFailed
			}
			return nil
		},
	}
	runCmd.Flags().IntVar(&threads, "threads", config.Default().Threads, "number of worker goroutines")
	runCmd.Flags().StringVar(&configPath, "config", "", "path to a YAML configuration file")
	runCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address during the run")
	root.AddCommand(runCmd)

	return root
}

func serveMetrics(log *slog.Logger, addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("metrics listener failed", "addr", addr, "err", err)
	}
}
