// Copyright 2021 The retryflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package plan

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gogama/retryflow/config"
)

const (
	outputText = "text"
	outputYAML = "yaml"
)

type options struct {
	configPath string
	output     string
	logLevel   string
}

// NewRootCommand creates the root command of the retryplan tool.
func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "retryplan",
		Short: "retryplan - dry-run retry configurations",
		Long: `retryplan loads a retry configuration and shows what it would do,
without sending any requests or waiting out any delays.

Run 'retryplan simulate 503 503 200' to see the decision made after
each scripted attempt outcome. Run 'retryplan schedule' to list the
delays the configured schedule produces.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to YAML retry configuration (default: built-in defaults)")
	cmd.PersistentFlags().StringVarP(&opts.output, "output", "o", outputText, "Output format: text or yaml")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override the configured log level")

	cmd.AddCommand(newSimulateCommand(opts), newScheduleCommand(opts))

	return cmd
}

func newSimulateCommand(opts *options) *cobra.Command {
	var method string
	cmd := &cobra.Command{
		Use:   "simulate OUTCOME...",
		Short: "Drive one retry flow against scripted attempt outcomes",
		Long: `Drive one retry flow against scripted attempt outcomes.

Each OUTCOME is a transport failure kind (connect, read, write, other),
an HTTP status code such as 503, or a status code with a Retry-After
value in seconds such as 429:5. The last outcome repeats if the flow
keeps retrying after the script runs out.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			script, err := ParseOutcomes(args)
			if err != nil {
				return err
			}
			o, err := cfg.Orchestrator()
			if err != nil {
				return err
			}
			report, err := Simulate(o, method, script, logger)
			if err != nil {
				return err
			}
			logger.Info().
				Int("attempts", len(report.Attempts)).
				Dur("total_delay", report.TotalDelay).
				Msg("simulation complete")
			return opts.render(cmd.OutOrStdout(), report, func(w io.Writer) error {
				return writeReport(w, report)
			})
		},
	}
	cmd.Flags().StringVarP(&method, "method", "X", "GET", "HTTP method of the simulated request")
	return cmd
}

func newScheduleCommand(opts *options) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "List the delays produced by the configured schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if count < 1 {
				return fmt.Errorf("--count must be positive, got %d", count)
			}
			cfg, _, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			s, err := cfg.Schedule.Build()
			if err != nil {
				return err
			}
			delays := Delays(s, count)
			return opts.render(cmd.OutOrStdout(), map[string][]time.Duration{"delays": delays}, func(w io.Writer) error {
				for i, d := range delays {
					if _, err := fmt.Fprintf(w, "retry %d\t%s\n", i+1, d); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 8, "Number of delays to list")
	return cmd
}

func (opts *options) load(logOut io.Writer) (*config.Config, zerolog.Logger, error) {
	var cfg *config.Config
	var err error
	if opts.configPath == "" {
		cfg, err = config.Parse(nil)
	} else {
		cfg, err = config.Load(opts.configPath)
	}
	if err != nil {
		return nil, zerolog.Nop(), err
	}

	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}

	return cfg, NewLogger(cfg.Log, logOut), nil
}

func (opts *options) render(w io.Writer, v interface{}, text func(io.Writer) error) error {
	switch opts.output {
	case outputText:
		return text(w)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q: want %s or %s", opts.output, outputText, outputYAML)
	}
}

func writeReport(w io.Writer, report *Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ATTEMPT\tELAPSED\tOUTCOME\tDECISION\tDELAY")
	for _, a := range report.Attempts {
		delay := "-"
		if a.Decision == "Retry" {
			delay = a.Delay.String()
		}
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", a.Attempt, a.Elapsed, a.Outcome, a.Decision, delay)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "final: %s after %d attempt(s), %s total delay\n",
		report.Final, len(report.Attempts), report.TotalDelay)
	return err
}
