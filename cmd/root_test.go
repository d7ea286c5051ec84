package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/tutor-cli/internal/apperr"
	"github.com/sells-group/tutor-cli/internal/mastery"
)

const testGraphJSON = `{
  "concepts": {
    "eq1": {"name": "One-step equations", "prerequisites": [], "common_errors": ["sign_error"]},
    "eq2": {"name": "Two-step equations", "prerequisites": ["eq1"], "common_errors": ["order_of_operations"]}
  }
}`

// testFiles writes a graph and a quiet config into a temp dir.
func testFiles(t *testing.T) (dir, configPath, graphFile string) {
	t.Helper()
	dir = t.TempDir()
	configPath = filepath.Join(dir, "config.yaml")
	graphFile = filepath.Join(dir, "graph.json")
	require.NoError(t, os.WriteFile(configPath, []byte("log:\n  level: error\n  format: console\n"), 0o644))
	require.NoError(t, os.WriteFile(graphFile, []byte(testGraphJSON), 0o644))
	return dir, configPath, graphFile
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	defer rootCmd.SetOut(nil)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"episode", "experiment", "decide", "verify", "simulate"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "tutor-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	for _, name := range []string{"config", "graph", "student"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), "missing --%s", name)
	}
}

func TestExperimentCommand_Flags(t *testing.T) {
	flag := experimentCmd.Flags().Lookup("episodes")
	require.NotNil(t, flag)
	assert.Equal(t, "20", flag.DefValue)

	flag = experimentCmd.Flags().Lookup("save-every")
	require.NotNil(t, flag)
	assert.Equal(t, "0", flag.DefValue)

	assert.NotNil(t, experimentCmd.Flags().Lookup("seed"))
}

func TestVerifyCommand_RequiredFlags(t *testing.T) {
	for _, name := range []string{"file", "concept"} {
		flag := verifyCmd.Flags().Lookup(name)
		require.NotNil(t, flag, "verify should have --%s", name)
		assert.Equal(t, []string{"true"}, flag.Annotations["cobra_annotation_bash_completion_one_required_flag"])
	}
}

func TestSimulateCommand_SavesOnlyWhenAsked(t *testing.T) {
	dir, configPath, graphFile := testFiles(t)
	student := filepath.Join(dir, "student.json")

	out, err := execute(t, "simulate", "--config", configPath, "--graph", graphFile, "--student", student,
		"--episodes", "5", "--seed", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "Episodes:")
	assert.Contains(t, out, "5/5")
	assert.NoFileExists(t, student)

	out, err = execute(t, "simulate", "--config", configPath, "--graph", graphFile, "--student", student,
		"--episodes", "5", "--seed", "7", "--save")
	require.NoError(t, err)
	assert.Contains(t, out, "eq1")

	saved, err := mastery.Load(student)
	require.NoError(t, err)
	assert.Len(t, saved.History(), 5)
}

func TestDecideCommand(t *testing.T) {
	dir, configPath, graphFile := testFiles(t)
	student := filepath.Join(dir, "student.json")
	require.NoError(t, os.WriteFile(student, []byte(`{"mastery": {"eq1": 0.7, "eq2": 0.0}, "common_errors": ["order_of_operations"]}`), 0o644))

	out, err := execute(t, "decide", "--config", configPath, "--graph", graphFile, "--student", student)
	require.NoError(t, err)
	assert.Contains(t, out, "eq2 (Two-step equations)")
	assert.Contains(t, out, "Depth:")
	assert.Contains(t, out, "order_of_operations")
}

func TestVerifyCommand(t *testing.T) {
	dir, configPath, graphFile := testFiles(t)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"concept":"eq2","difficulty":1,"exercise":"e","solution":{"steps":["s"],"final_answer":"x = 1"},"pedagogical_feedback":"f"}`), 0o644))
	out, err := execute(t, "verify", "--config", configPath, "--graph", graphFile, "--file", bad, "--concept", "eq1")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, out, "rejected")
	assert.Contains(t, out, "Concept mismatch: expected eq1, got eq2")

	good := filepath.Join(dir, "good.json")
	require.NoError(t, os.WriteFile(good, []byte(`{"concept":"eq1","difficulty":1,"exercise":"e","solution":{"steps":["s"],"final_answer":"x = 1"},"pedagogical_feedback":"Mind the sign error."}`), 0o644))
	out, err = execute(t, "verify", "--config", configPath, "--graph", graphFile, "--file", good, "--concept", "eq1")
	require.NoError(t, err)
	assert.Contains(t, out, "valid")
	assert.Contains(t, out, "sign_error")
}

func TestVerifyCommand_UnknownConcept(t *testing.T) {
	dir, configPath, graphFile := testFiles(t)
	file := filepath.Join(dir, "ex.json")
	require.NoError(t, os.WriteFile(file, []byte(`{}`), 0o644))

	_, err := execute(t, "verify", "--config", configPath, "--graph", graphFile, "--file", file, "--concept", "ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestExperimentCommand_RejectsZeroEpisodes(t *testing.T) {
	dir, configPath, graphFile := testFiles(t)
	_, err := execute(t, "experiment", "--config", configPath, "--graph", graphFile,
		"--student", filepath.Join(dir, "s.json"), "--episodes", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "experiment.episodes must be >= 1")
}

func TestRootCommand_MissingConfigFile(t *testing.T) {
	_, err := execute(t, "decide", "--config", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}
