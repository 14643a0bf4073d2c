package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mycos-run/mycos"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Load a chunk/link set and drive a fixed number of ticks",
	RunE:  runRun,
}

func init() {
	flags := runCmd.Flags()
	flags.String("chunks", "", "directory of chunk binaries, one file per chunk (required)")
	flags.String("links", "", "path to a link table binary (optional)")
	flags.Uint32("ticks", 1, "number of ticks to drive")
	flags.String("policy", "freeze_last_stable", "quench policy: freeze_last_stable, clamp_commutative, parity_quench")
	flags.Uint32("max-rounds", 0, "override the per-tick round cap (0 = engine default)")
	flags.Uint64("max-effects", 0, "override the per-tick effect cap (0 = engine default)")
	bindRunFlags(flags)
}

func bindRunFlags(flags *pflag.FlagSet) {
	for _, name := range []string{"chunks", "links", "ticks", "policy", "max-rounds", "max-effects"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	engine, err := buildEngine()
	if err != nil {
		return err
	}

	ticks := viper.GetUint32("ticks")
	var maxRoundsOverride *uint32
	if mr := viper.GetUint32("max-rounds"); mr > 0 {
		maxRoundsOverride = &mr
	}

	for i := uint32(0); i < ticks; i++ {
		m, err := engine.Tick(maxRoundsOverride)
		if err != nil {
			return errors.Wrapf(err, "tick %d", i)
		}
		logger.Info("tick",
			zap.Uint32("tick", i),
			zap.Uint32("rounds", m.Rounds),
			zap.Uint64("effects_applied", m.EffectsApplied),
			zap.Uint64("proposals", m.Proposals),
			zap.Uint64("winners", m.Winners),
			zap.Bool("oscillator", m.Oscillator),
			zap.Int("period", m.Period),
			zap.Bool("guard_tripped", m.GuardTripped),
		)
	}
	return nil
}

// buildEngine loads chunks and links per the run/serve flag set shared by
// both commands and returns a ready-to-tick Engine.
func buildEngine() (*mycos.Engine, error) {
	chunksDir := viper.GetString("chunks")
	if chunksDir == "" {
		return nil, errors.New("mycos: --chunks is required")
	}

	cfg := mycos.DefaultConfig()
	if mr := viper.GetUint32("max-rounds"); mr > 0 {
		cfg.MaxRounds = mr
	}
	if me := viper.GetUint64("max-effects"); me > 0 {
		cfg.MaxEffects = me
	}
	if name := viper.GetString("policy"); name != "" {
		p, err := mycos.ParsePolicy(name)
		if err != nil {
			return nil, err
		}
		cfg.Policy = p
	}

	e := mycos.NewEngine(cfg, logger)

	raw, err := loadChunkDir(chunksDir)
	if err != nil {
		return nil, err
	}
	if err := e.LoadChunks(raw); err != nil {
		return nil, errors.Wrap(err, "loading chunks")
	}

	links, err := loadLinksFile(viper.GetString("links"))
	if err != nil {
		return nil, err
	}
	if err := e.LoadLinks(links); err != nil {
		return nil, errors.Wrap(err, "loading links")
	}

	return e, nil
}
