package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/katalvlaran/lvmatch/config"
	"github.com/katalvlaran/lvmatch/maxpart"
	"github.com/katalvlaran/lvmatch/partition"
	"github.com/katalvlaran/lvmatch/solver/gonumlp"
)

func newPartitionCmd(a *app) *cobra.Command {
	var (
		k         int
		minSize   int
		maxSize   int
		exact     bool
		heuristic bool
	)
	cmd := &cobra.Command{
		Use:   "partition [flags] weight...",
		Short: "Split weights into k groups with the smallest max-min spread",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			weights := make([]float64, len(args))
			for i, s := range args {
				w, err := strconv.ParseFloat(s, 64)
				if err != nil {
					return fmt.Errorf("weight %q: %w", s, err)
				}
				weights[i] = w
			}
			opts := partition.DefaultOptions()
			opts.MinSize, opts.MaxSize, opts.TimeLimit = minSize, maxSize, a.settings.TimeLimit
			switch {
			case exact && heuristic:
				return fmt.Errorf("--exact and --heuristic are exclusive")
			case exact:
				opts.Algorithm = partition.Exact
			case heuristic:
				opts.Algorithm = partition.Heuristic
			}

			ctx := logr.NewContext(cmd.Context(), a.log)
			res, err := partition.Partition(ctx, weights, k, opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for g, members := range res.Groups {
				vals := make([]string, len(members))
				for i, m := range members {
					vals[i] = strconv.FormatFloat(weights[m], 'g', -1, 64)
				}
				fmt.Fprintf(out, "group %d: [%s] sum=%g\n", g+1, strings.Join(vals, " "), res.Sums[g])
			}
			fmt.Fprintf(out, "spread=%g exact=%t method=%s\n", res.Spread, res.Exact, res.Method)

			return nil
		},
	}
	f := cmd.Flags()
	f.IntVar(&k, "k", 2, "number of groups")
	f.IntVar(&minSize, "min-size", 0, "minimum items per group")
	f.IntVar(&maxSize, "max-size", 0, "maximum items per group (0 = unbounded)")
	f.BoolVar(&exact, "exact", false, "force branch-and-bound")
	f.BoolVar(&heuristic, "heuristic", false, "force the heuristic")

	return cmd
}

// newModelCmd builds "lp" or, with integer set, "ilp".
func newModelCmd(a *app, integer bool) *cobra.Command {
	use, short := "lp", "Solve a linear model file"
	if integer {
		use, short = "ilp", "Solve an integer model file"
	}

	return &cobra.Command{
		Use:   use + " model.{yaml,toml,json}",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mf, err := config.LoadModel(args[0])
			if err != nil {
				return err
			}
			mdl, names, err := mf.Build(integer)
			if err != nil {
				return err
			}
			ctx := logr.NewContext(cmd.Context(), a.log)
			sol, err := gonumlp.NewSolver().Solve(ctx, mdl, a.settings.TimeLimit)
			if err != nil {
				return err
			}
			a.log.V(1).Info("solved", "status", sol.Status, "nodes", sol.Nodes, "elapsed", sol.Elapsed)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "status=%s\n", sol.Status)
			if !sol.HasValues() {
				return nil
			}
			fmt.Fprintf(out, "objective=%.6g\n", sol.Objective)
			for i, name := range names {
				fmt.Fprintf(out, "%s=%.6g\n", name, sol.Values[i])
			}

			return nil
		},
	}
}

// parseSupply reads "addend=count" pairs.
func parseSupply(pairs []string) (map[int64]int64, error) {
	supply := make(map[int64]int64, len(pairs))
	for _, p := range pairs {
		a, c, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("addend %q: want addend=count", p)
		}
		av, err := strconv.ParseInt(strings.TrimSpace(a), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("addend %q: %w", p, err)
		}
		cv, err := strconv.ParseInt(strings.TrimSpace(c), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("addend %q: %w", p, err)
		}
		supply[av] += cv
	}

	return supply, nil
}

func newMaxpartCmd(a *app) *cobra.Command {
	var (
		target   int64
		addends  []string
		maxPlans int
	)
	cmd := &cobra.Command{
		Use:   "maxpart --target n --addend a=count...",
		Short: "Form as many disjoint partitions of a target as the supply allows",
		RunE: func(cmd *cobra.Command, _ []string) error {
			supply, err := parseSupply(addends)
			if err != nil {
				return err
			}
			ctx := logr.NewContext(cmd.Context(), a.log)
			res, err := maxpart.Solve(ctx, supply, target, gonumlp.NewSolver(),
				maxpart.Options{MaxPlans: maxPlans, TimeLimit: a.settings.TimeLimit})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, p := range res.Plans {
				keys := make([]int64, 0, len(p.Addends))
				for k := range p.Addends {
					keys = append(keys, k)
				}
				sort.Slice(keys, func(i, j int) bool { return keys[i] > keys[j] })
				parts := make([]string, len(keys))
				for i, k := range keys {
					parts[i] = fmt.Sprintf("%dx%d", k, p.Addends[k])
				}
				fmt.Fprintf(out, "%d x [%s]\n", p.Count, strings.Join(parts, " "))
			}
			fmt.Fprintf(out, "total=%d plans=%d exact=%t\n", res.Total, res.Considered, res.Exact)

			return nil
		},
	}
	f := cmd.Flags()
	f.Int64Var(&target, "target", 0, "value every partition sums to")
	f.StringArrayVar(&addends, "addend", nil, "available addend as value=count (repeatable)")
	f.IntVar(&maxPlans, "max-plans", 0, "cap on enumerated plans (0 = default)")
	_ = cmd.MarkFlagRequired("target")

	return cmd
}
