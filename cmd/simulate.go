package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/tutor-cli/internal/config"
	"github.com/sells-group/tutor-cli/internal/episode"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Evaluate the selection policy offline",
	Long:  "Runs decide, attempt, and update without any generator or judge calls. The snapshot is only written with --save.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		applyExperimentFlags(cmd, cfg)
		if err := cfg.Validate(config.ModeOffline); err != nil {
			return err
		}

		g, store, err := loadLearner(cfg)
		if err != nil {
			return err
		}

		opts := runnerOptions(cfg)
		if save, _ := cmd.Flags().GetBool("save"); save {
			opts = append(opts, episode.WithSnapshotPath(cfg.Student.Path))
		}
		r := episode.New(g, store, opts...)

		report, err := r.Simulate(ctx, cfg.Experiment.Episodes)
		if report != nil {
			formatReport(cmd.OutOrStdout(), report)
		}
		return eris.Wrap(err, "simulate")
	},
}

func init() {
	simulateCmd.Flags().Int("episodes", 20, "number of simulated episodes (>= 1)")
	simulateCmd.Flags().Uint64("seed", 0, "seed for the simulated learner (0 picks one at random)")
	simulateCmd.Flags().Bool("save", false, "write the updated snapshot at the end")
	rootCmd.AddCommand(simulateCmd)
}
