package main

import (
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/katalvlaran/lvmatch/loader"
	"github.com/katalvlaran/lvmatch/lobby"
	"github.com/katalvlaran/lvmatch/pool"
	"github.com/katalvlaran/lvmatch/solver"
	"github.com/katalvlaran/lvmatch/solver/gonumlp"
)

func newMatchmakeCmd(a *app) *cobra.Command {
	var (
		unitsPath string
		dbPath    string
		nowUnix   int64
		crit      lobby.Criteria
		greedy    bool
	)
	cmd := &cobra.Command{
		Use:   "matchmake [--units units.csv] [--db pool.db]",
		Short: "Queue units in the pool and form games from everything waiting",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := logr.NewContext(cmd.Context(), a.log)
			now := time.Now().UTC()
			if nowUnix != 0 {
				now = time.Unix(nowUnix, 0).UTC()
			}

			p, err := pool.Open(ctx, dbPath)
			if err != nil {
				return err
			}
			defer p.Close()
			if unitsPath != "" {
				f, err := os.Open(unitsPath)
				if err != nil {
					return err
				}
				units, err := loader.LoadUnits(f, loader.UnitOptions{Entered: now})
				f.Close()
				if err != nil {
					return err
				}
				if err = p.AddAll(ctx, units); err != nil {
					return err
				}
			}
			waiting, err := p.All(ctx)
			if err != nil {
				return err
			}

			var slv solver.Solver
			if !greedy {
				slv = gonumlp.NewSolver()
			}
			mm, err := lobby.New(crit, lobby.DefaultTolerance(), slv, a.settings.TimeLimit)
			if err != nil {
				return err
			}
			res, err := mm.Match(ctx, waiting, now)
			if err != nil {
				return err
			}
			removed, err := p.RemoveMatched(ctx, res)
			if err != nil {
				return err
			}
			a.log.Info("matchmaking done", "waiting", len(waiting), "games", len(res.Games), "dequeued", removed)

			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
	f := cmd.Flags()
	f.StringVar(&unitsPath, "units", "", "CSV of users (matchunitid, userid, rank, tsmu) to queue first")
	f.StringVar(&dbPath, "db", pool.Memory, "sqlite pool file")
	f.Int64Var(&nowUnix, "now", 0, "matching instant as unix seconds (default: current time)")
	f.IntVar(&crit.TeamsPerGame, "teams", 2, "teams per game")
	f.IntVar(&crit.UsersPerTeam, "team-size", 5, "users per team")
	f.IntVar(&crit.MaxTeams, "max-teams", 0, "cap on feasible teams (0 = default)")
	f.IntVar(&crit.MaxGames, "max-games", 0, "candidate games kept (0 = default)")
	f.BoolVar(&greedy, "greedy", false, "select games greedily instead of solving set packing")

	return cmd
}
