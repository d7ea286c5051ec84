package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/sells-group/tutor-cli/internal/config"
	"github.com/sells-group/tutor-cli/internal/tutor"
)

var decideJSON bool

var decideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Print the next tutoring decision",
	Long:  "Loads the graph and the learner, and prints the concept, difficulty, and target misconceptions the policy would pick. Nothing is generated or saved.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(config.ModeOffline); err != nil {
			return err
		}
		g, store, err := loadLearner(cfg)
		if err != nil {
			return err
		}

		d, err := tutor.NewPolicy(tutor.WithThreshold(cfg.Policy.Threshold)).Decide(g, store)
		if err != nil {
			return err
		}
		name, err := g.ConceptName(d.Concept)
		if err != nil {
			return err
		}
		depth, err := g.Depth(d.Concept)
		if err != nil {
			return err
		}

		view := decisionView{Decision: d, Name: name, Depth: depth, Mastery: store.Mastery(d.Concept)}
		if decideJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(view)
		}
		formatDecision(cmd.OutOrStdout(), view)
		return nil
	},
}

func init() {
	decideCmd.Flags().BoolVar(&decideJSON, "json", false, "print the decision as JSON")
	rootCmd.AddCommand(decideCmd)
}
