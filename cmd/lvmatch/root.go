package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/katalvlaran/lvmatch/config"
)

// app carries what every subcommand needs once the root has run.
type app struct {
	settings config.Settings
	log      logr.Logger
	zap      *zap.Logger
	cfgFile  string
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{log: logr.Discard()}
	root := &cobra.Command{
		Use:           "lvmatch",
		Short:         "Constrained grouping, partitioning and matchmaking",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.zap != nil {
				_ = a.zap.Sync()
			}
		},
	}
	root.SetOut(out)
	config.AddFlags(root.PersistentFlags())
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "settings file (yaml, toml or json)")

	root.AddCommand(
		newPartitionCmd(a),
		newModelCmd(a, false),
		newModelCmd(a, true),
		newGroupCmd(a),
		newMatchmakeCmd(a),
		newMaxpartCmd(a),
	)

	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	s, err := config.LoadSettings(cmd.Flags(), a.cfgFile)
	if err != nil {
		return err
	}
	a.settings = s
	a.zap, err = newZap(s.LogLevel, s.LogDev)
	if err != nil {
		return err
	}
	a.log = zapr.NewLogger(a.zap).WithName("lvmatch")

	return nil
}

// newZap builds the production (JSON) or development (console) logger.
// Both write to stderr so command output stays parseable.
func newZap(level string, dev bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	cfg := zap.NewProductionConfig()
	if dev {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}

	return cfg.Build()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}
