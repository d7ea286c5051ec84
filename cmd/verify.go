package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/tutor-cli/internal/apperr"
	"github.com/sells-group/tutor-cli/internal/graph"
	"github.com/sells-group/tutor-cli/internal/verifier"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify a saved generator output",
	Long:  "Runs the exercise verifier on a file holding raw generator output and prints the verdict. Exits non-zero when the exercise is rejected.",
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		concept, _ := cmd.Flags().GetString("concept")

		raw, err := os.ReadFile(file)
		if err != nil {
			return eris.Wrapf(apperr.ErrIO, "read %s: %v", file, err)
		}
		g, err := graph.Load(cfg.Graph.Path)
		if err != nil {
			return eris.Wrap(err, "load knowledge graph")
		}
		if _, err := g.Concept(concept); err != nil {
			return err
		}

		res := verifier.New(g).Verify(string(raw), concept)
		formatVerification(cmd.OutOrStdout(), res)
		return verifier.AsError(res, concept)
	},
}

func init() {
	verifyCmd.Flags().String("file", "", "file with the raw generator output")
	verifyCmd.Flags().String("concept", "", "concept the exercise was generated for")
	_ = verifyCmd.MarkFlagRequired("file")
	_ = verifyCmd.MarkFlagRequired("concept")
	rootCmd.AddCommand(verifyCmd)
}
