package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/tutor-cli/internal/config"
	"github.com/sells-group/tutor-cli/internal/episode"
	"github.com/sells-group/tutor-cli/internal/llm"
)

var experimentCmd = &cobra.Command{
	Use:   "experiment",
	Short: "Run a sequence of tutoring episodes",
	Long:  "Runs N episodes against one learner and prints the acceptance and score summary. Ctrl-C stops after the episode in flight; the snapshot is always saved.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		applyExperimentFlags(cmd, cfg)
		if err := cfg.Validate(config.ModeEpisode); err != nil {
			return err
		}

		g, store, err := loadLearner(cfg)
		if err != nil {
			return err
		}
		collab, err := llm.NewCollaborators(cfg)
		if err != nil {
			return eris.Wrap(err, "init collaborators")
		}

		opts := append(runnerOptions(cfg),
			episode.WithGenerator(collab.Generator),
			episode.WithJudge(collab.Judge),
			episode.WithSnapshotPath(cfg.Student.Path),
			episode.WithSaveEvery(cfg.Experiment.SaveEvery),
		)
		r := episode.New(g, store, opts...)

		report, err := r.Run(ctx, cfg.Experiment.Episodes)
		if report != nil {
			formatReport(cmd.OutOrStdout(), report)
		}
		if err != nil {
			return eris.Wrap(err, "experiment")
		}
		if report.Stopped {
			zap.L().Info("experiment stopped early", zap.Int("completed", report.Completed))
		}
		return nil
	},
}

// applyExperimentFlags copies explicitly set flags over the config values.
func applyExperimentFlags(cmd *cobra.Command, c *config.Config) {
	if cmd.Flags().Changed("episodes") {
		c.Experiment.Episodes, _ = cmd.Flags().GetInt("episodes")
	}
	if cmd.Flags().Changed("save-every") {
		c.Experiment.SaveEvery, _ = cmd.Flags().GetInt("save-every")
	}
	if cmd.Flags().Changed("seed") {
		c.Experiment.Seed, _ = cmd.Flags().GetUint64("seed")
	}
}

func init() {
	experimentCmd.Flags().Int("episodes", 20, "number of episodes to run (>= 1)")
	experimentCmd.Flags().Int("save-every", 0, "also save the snapshot every N episodes (0 saves only at the end)")
	experimentCmd.Flags().Uint64("seed", 0, "seed for the simulated learner (0 picks one at random)")
	rootCmd.AddCommand(experimentCmd)
}
