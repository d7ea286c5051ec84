package main

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/tutor-cli/internal/config"
	"github.com/sells-group/tutor-cli/internal/episode"
	"github.com/sells-group/tutor-cli/internal/llm"
)

var episodeJSON bool

var episodeCmd = &cobra.Command{
	Use:   "episode",
	Short: "Run a single tutoring episode",
	Long:  "Decides the next concept, generates and verifies an exercise, simulates the learner's attempt, and asks the judge for a score. The snapshot is saved when mastery changed.",
	RunE: func(cmd *cobra.Command, args []string) error {
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
		)
		r := episode.New(g, store, opts...)

		res := r.RunEpisode(cmd.Context(), 1)
		if res.MasteryUpdated() {
			if err := r.Save(); err != nil {
				return eris.Wrap(err, "save learner snapshot")
			}
		}

		if episodeJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		formatEpisode(cmd.OutOrStdout(), res)
		return nil
	},
}

func init() {
	episodeCmd.Flags().BoolVar(&episodeJSON, "json", false, "print the episode result as JSON")
	rootCmd.AddCommand(episodeCmd)
}
