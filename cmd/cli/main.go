package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"gosim/adapters/excel"
	"gosim/app"
	"gosim/domain/dataset"
	"gosim/domain/run"
	"gosim/domain/verdict"
	"gosim/internal/model"
	"gosim/internal/statistic"
	"gosim/ports"

	"github.com/spf13/cobra"
)

var (
	flags   overrides
	asJSON  bool
	rootCmd = &cobra.Command{
		Use:   "gosim",
		Short: "Simulation-based statistical inference: bootstrap intervals, permutation and model tests",
		Long: `gosim estimates sampling distributions by repeated resampling and uses them
for percentile intervals and hypothesis tests.

Defaults come from the environment (SIM_SEED, SIM_TRIALS, SIM_WORKERS,
SIM_ALPHA, SIM_CONFIDENCE, LOG_LEVEL, DATABASE_URL, METRICS_ADDR) and can be
overridden per command with flags. A .env file in the working directory is
loaded if present.`,
		SilenceUsage: true,
	}
)

func main() {
	pf := rootCmd.PersistentFlags()
	pf.Int64Var(&flags.seed, "seed", 0, "Random seed (default: SIM_SEED, else OS entropy)")
	pf.IntVar(&flags.trials, "trials", 0, "Number of simulation trials (default: SIM_TRIALS)")
	pf.IntVar(&flags.workers, "workers", 0, "Parallel workers; 0 uses every CPU (default: SIM_WORKERS)")
	pf.Float64Var(&flags.alpha, "alpha", 0, "Significance level (default: SIM_ALPHA)")
	pf.Float64Var(&flags.level, "level", 0, "Confidence level in percent (default: SIM_CONFIDENCE)")
	pf.BoolVar(&asJSON, "json", false, "Print results as JSON")

	rootCmd.AddCommand(
		newBootstrapCmd(),
		newPermuteCmd(),
		newModelTestCmd(),
		newIntervalTestCmd(),
		newCoverageCmd(),
		newRunsCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withEnvironment builds the environment for cmd, runs fn and tears down
func withEnvironment(cmd *cobra.Command, fn func(ctx context.Context, env *environment) error) error {
	ctx := cmd.Context()
	env, err := newEnvironment(ctx, flags, cmd.Flags().Changed)
	if err != nil {
		return err
	}
	defer env.Close()
	return fn(ctx, env)
}

func loadTable(path string) (*dataset.Frame, error) {
	frame, err := excel.LoadFrame(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return frame, nil
}

func output(v interface{}, human string, args ...interface{}) error {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	fmt.Printf(human+"\n", args...)
	return nil
}

func printTest(res *app.TestResult) error {
	p := "n/a"
	if res.Verdict.PValue != nil {
		p = fmt.Sprintf("%.4f", *res.Verdict.PValue)
	}
	interval := ""
	if res.Interval != nil {
		interval = ", " + res.Interval.String()
	}
	return output(res, "H0: %s\n%s (p-value %s%s, alpha %g, seed %d, run %s)",
		res.Null, res.Verdict.Decision, p, interval, res.Verdict.Alpha, res.Seed, res.RunID)
}

func newBootstrapCmd() *cobra.Command {
	var column, stat string

	cmd := &cobra.Command{
		Use:   "bootstrap [data-file]",
		Short: "Percentile bootstrap confidence interval for a statistic",
		Long: `Resample the data with replacement, compute the statistic on every resample
and report the central confidence interval.

Example: gosim bootstrap salaries.csv --column salary --statistic median --level 95 --seed 42`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reducer, err := statistic.Lookup(stat)
			if err != nil {
				return err
			}
			sample, err := loadTable(args[0])
			if err != nil {
				return err
			}
			return withEnvironment(cmd, func(ctx context.Context, env *environment) error {
				res, err := env.service.BootstrapInterval(ctx, app.BootstrapRequest{
					Sample: sample, Column: column, Statistic: reducer,
				})
				if err != nil {
					return err
				}
				return output(res, "%s of %q: %g\n%s (seed %d, run %s)",
					reducer.Name(), column, res.Estimate, res.Interval, res.Seed, res.RunID)
			})
		},
	}

	cmd.Flags().StringVar(&column, "column", "", "Numeric column to summarize")
	cmd.Flags().StringVar(&stat, "statistic", "mean", "Statistic: mean|median|max|min|variance|sum|count")
	_ = cmd.MarkFlagRequired("column")
	return cmd
}

func newPermuteCmd() *cobra.Command {
	var column, groupColumn, groupA, groupB, stat, orientation string

	cmd := &cobra.Command{
		Use:   "permute [data-file]",
		Short: "Two-sample permutation test",
		Long: `Test whether two groups share one population by shuffling group labels.
The test statistic is statistic(group A) - statistic(group B).

Example: gosim permute babies.csv --column weight --group-column smoker --group-a true --group-b false --orientation less`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reducer, err := statistic.Lookup(stat)
			if err != nil {
				return err
			}
			o, err := verdict.ParseOrientation(orientation)
			if err != nil {
				return err
			}
			table, err := loadTable(args[0])
			if err != nil {
				return err
			}
			a, err := dataset.WhereLabel(table, groupColumn, groupA)
			if err != nil {
				return err
			}
			b, err := dataset.WhereLabel(table, groupColumn, groupB)
			if err != nil {
				return err
			}
			return withEnvironment(cmd, func(ctx context.Context, env *environment) error {
				res, err := env.service.PermutationTest(ctx, app.PermutationRequest{
					GroupA: a, GroupB: b, Column: column, Statistic: reducer, Orientation: o,
				})
				if err != nil {
					return err
				}
				return printTest(res)
			})
		},
	}

	cmd.Flags().StringVar(&column, "column", "", "Numeric column to compare")
	cmd.Flags().StringVar(&groupColumn, "group-column", "", "Categorical column holding group labels")
	cmd.Flags().StringVar(&groupA, "group-a", "", "Label of group A")
	cmd.Flags().StringVar(&groupB, "group-b", "", "Label of group B")
	cmd.Flags().StringVar(&stat, "statistic", "mean", "Statistic compared between groups")
	cmd.Flags().StringVar(&orientation, "orientation", "two_sided", "Alternative: less|greater|two_sided")
	for _, name := range []string{"column", "group-column", "group-a", "group-b"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newModelTestCmd() *cobra.Command {
	var p, observed float64
	var n int
	var orientation string

	cmd := &cobra.Command{
		Use:   "model-test",
		Short: "Test an observed proportion against a chance model",
		Long: `Simulate the proportion of successes in n draws that each succeed with
probability p, and compare the observed proportion to that distribution.

Example (Swain v. Alabama): gosim model-test --p 0.26 --n 100 --observed 0.08`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := verdict.ParseOrientation(orientation)
			if err != nil {
				return err
			}
			m := model.Proportion{P: p, N: n}
			if err := m.Validate(); err != nil {
				return err
			}
			return withEnvironment(cmd, func(ctx context.Context, env *environment) error {
				res, err := env.service.ModelTest(ctx, app.ModelTestRequest{
					Null:        fmt.Sprintf("each of %d draws succeeds with probability %g", n, p),
					Model:       fmt.Sprintf("proportion(p=%g,n=%d)", p, n),
					Simulate:    m.Simulate,
					Observed:    observed,
					Orientation: o,
					NullValue:   &p,
				})
				if err != nil {
					return err
				}
				return printTest(res)
			})
		},
	}

	cmd.Flags().Float64Var(&p, "p", 0.5, "Success probability under the null")
	cmd.Flags().IntVar(&n, "n", 100, "Draws per simulated sample")
	cmd.Flags().Float64Var(&observed, "observed", 0, "Observed proportion")
	cmd.Flags().StringVar(&orientation, "orientation", "two_sided", "Alternative: less|greater|two_sided")
	_ = cmd.MarkFlagRequired("observed")
	return cmd
}

func newIntervalTestCmd() *cobra.Command {
	var column, stat string
	var null float64

	cmd := &cobra.Command{
		Use:   "interval-test [data-file]",
		Short: "Test a parameter value with a bootstrap confidence interval",
		Long: `Bootstrap a 100*(1-alpha)% interval for the statistic and reject the null
value when the interval excludes it.

Example: gosim interval-test ages.csv --column age --statistic median --null 30 --alpha 0.01`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reducer, err := statistic.Lookup(stat)
			if err != nil {
				return err
			}
			sample, err := loadTable(args[0])
			if err != nil {
				return err
			}
			return withEnvironment(cmd, func(ctx context.Context, env *environment) error {
				res, err := env.service.IntervalTest(ctx, app.IntervalTestRequest{
					Sample: sample, Column: column, Statistic: reducer, NullValue: null,
				})
				if err != nil {
					return err
				}
				return printTest(res)
			})
		},
	}

	cmd.Flags().StringVar(&column, "column", "", "Numeric column")
	cmd.Flags().StringVar(&stat, "statistic", "mean", "Statistic")
	cmd.Flags().Float64Var(&null, "null", 0, "Parameter value under the null hypothesis")
	_ = cmd.MarkFlagRequired("column")
	_ = cmd.MarkFlagRequired("null")
	return cmd
}

func newCoverageCmd() *cobra.Command {
	var column, stat string
	var sampleSize, bootTrials int

	cmd := &cobra.Command{
		Use:   "coverage [population-file]",
		Short: "Measure how often bootstrap intervals capture the population parameter",
		Long: `Treat the file as the population. Draw --trials samples from it, bootstrap an
interval from each and report the fraction that contain the population value.

Example: gosim coverage salaries.csv --column salary --statistic median --sample-size 500 --trials 200`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reducer, err := statistic.Lookup(stat)
			if err != nil {
				return err
			}
			pop, err := loadTable(args[0])
			if err != nil {
				return err
			}
			return withEnvironment(cmd, func(ctx context.Context, env *environment) error {
				res, err := env.service.CoverageStudy(ctx, app.CoverageRequest{
					Population: pop, Column: column, Statistic: reducer,
					SampleSize: sampleSize, BootstrapTrials: bootTrials,
				})
				if err != nil {
					return err
				}
				return output(res, "population %s: %g\n%.1f%% of %d %g%% intervals contain it (seed %d, run %s)",
					reducer.Name(), res.Parameter, 100*res.Coverage, res.Intervals, res.Level, res.Seed, res.RunID)
			})
		},
	}

	cmd.Flags().StringVar(&column, "column", "", "Numeric column")
	cmd.Flags().StringVar(&stat, "statistic", "median", "Statistic")
	cmd.Flags().IntVar(&sampleSize, "sample-size", 100, "Rows drawn without replacement per sample")
	cmd.Flags().IntVar(&bootTrials, "bootstrap-trials", 1000, "Bootstrap resamples per interval")
	_ = cmd.MarkFlagRequired("column")
	return cmd
}

func newRunsCmd() *cobra.Command {
	var kind string
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs (requires DATABASE_URL)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnvironment(cmd, func(ctx context.Context, env *environment) error {
				if !env.cfg.Database.Enabled() {
					return fmt.Errorf("DATABASE_URL is not set; runs are only kept for the life of one command")
				}
				filters := ports.RunFilters{Limit: limit}
				if kind != "" {
					k := run.Kind(kind)
					filters.Kind = &k
				}
				records, err := env.ledger.ListRuns(ctx, filters)
				if err != nil {
					return err
				}
				if asJSON {
					return output(records, "")
				}
				for _, r := range records {
					fmt.Printf("%s  %-20s seed=%-20d trials=%-7d %s\n",
						r.CreatedAt, r.Kind, r.Seed(), r.Trials(), r.Fingerprint.Fingerprint.Short())
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Only list runs of this kind")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to list")
	return cmd
}
