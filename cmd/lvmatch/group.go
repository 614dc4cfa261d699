package main

import (
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/katalvlaran/lvmatch/config"
	"github.com/katalvlaran/lvmatch/item"
	"github.com/katalvlaran/lvmatch/loader"
	"github.com/katalvlaran/lvmatch/match"
	"github.com/katalvlaran/lvmatch/solver/gonumlp"
	"github.com/katalvlaran/lvmatch/store"
)

func newGroupCmd(a *app) *cobra.Command {
	var (
		specPaths []string
		itemsPath string
		storeDir  string
	)
	cmd := &cobra.Command{
		Use:   "group --spec round.yaml [--spec ...] [--items items.csv]",
		Short: "Run grouping rounds and print their decisions as JSON",
		Long: `Each --spec file is one independent round; several rounds run concurrently
(--parallelism). One round prints a decision object, several print an array.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var shared []item.Item
			if itemsPath != "" {
				var err error
				if shared, err = readItems(itemsPath); err != nil {
					return err
				}
			}
			scorers := match.NewScorers()
			rounds := make([]match.Round, len(specPaths))
			for i, path := range specPaths {
				rf, err := config.LoadRound(path)
				if err != nil {
					return err
				}
				spec, err := rf.RoundSpec(scorers)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				if spec.TimeLimit == 0 {
					spec.TimeLimit = a.settings.TimeLimit
				}
				items := rf.ItemList()
				if shared != nil {
					items = shared
				}
				rounds[i] = match.Round{Items: items, Spec: spec}
			}

			orc, err := match.New(gonumlp.NewSolver(),
				match.WithLogger(a.log),
				match.WithRegistry(prometheus.NewRegistry()),
			)
			if err != nil {
				return err
			}
			ctx := logr.NewContext(cmd.Context(), a.log)
			outcomes := orc.RunRounds(ctx, rounds, a.settings.Parallelism)

			var (
				decisions []*match.Decision
				roundErrs error
			)
			for _, o := range outcomes {
				if o.Decision != nil {
					decisions = append(decisions, o.Decision)
				}
				if o.Err != nil {
					roundErrs = multierr.Append(roundErrs, fmt.Errorf("%s: %w", specPaths[o.Index], o.Err))
				}
			}
			if storeDir != "" {
				if err := save(cmd, a, storeDir, decisions); err != nil {
					return err
				}
			}
			var payload any = decisions
			if len(decisions) == 1 {
				payload = decisions[0]
			}
			if err := writeJSON(cmd.OutOrStdout(), payload); err != nil {
				return err
			}

			return roundErrs
		},
	}
	f := cmd.Flags()
	f.StringArrayVar(&specPaths, "spec", nil, "round file (yaml, toml or json); repeatable")
	f.StringVar(&itemsPath, "items", "", "items CSV with an id column; replaces items in the round files")
	f.StringVar(&storeDir, "store", "", "badger directory to persist decisions in")
	_ = cmd.MarkFlagRequired("spec")

	return cmd
}

func save(cmd *cobra.Command, a *app, dir string, decisions []*match.Decision) (err error) {
	st, err := store.Open(store.DefaultConfig(dir), a.log)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, st.Close()) }()
	for _, d := range decisions {
		if err = st.Save(cmd.Context(), d); err != nil {
			return err
		}
	}

	return nil
}

func readItems(path string) ([]item.Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	items, err := loader.LoadItems(f, loader.ItemOptions{})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return items, nil
}
