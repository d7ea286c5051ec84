package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/tutor-cli/internal/config"
)

var (
	cfg *config.Config

	configFile  string
	graphPath   string
	studentPath string
)

var rootCmd = &cobra.Command{
	Use:   "tutor-cli",
	Short: "Adaptive tutoring decision loop",
	Long:  "Selects the next concept and difficulty from a prerequisite graph, verifies generated exercises, and updates a learner's mastery from simulated attempts.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.LoadFile(configFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if cmd.Flags().Changed("graph") {
			c.Graph.Path = graphPath
		}
		if cmd.Flags().Changed("student") {
			c.Student.Path = studentPath
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ./config.yaml when present)")
	rootCmd.PersistentFlags().StringVar(&graphPath, "graph", "", "knowledge graph file (JSON or YAML)")
	rootCmd.PersistentFlags().StringVar(&studentPath, "student", "", "learner mastery snapshot")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
