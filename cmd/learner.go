package main

import (
	"errors"
	"io/fs"
	"math/rand/v2"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/tutor-cli/internal/config"
	"github.com/sells-group/tutor-cli/internal/episode"
	"github.com/sells-group/tutor-cli/internal/graph"
	"github.com/sells-group/tutor-cli/internal/mastery"
	"github.com/sells-group/tutor-cli/internal/simulate"
	"github.com/sells-group/tutor-cli/internal/tutor"
)

// loadLearner loads the knowledge graph and the learner snapshot. A missing
// snapshot starts an empty learner; it is created on the first save.
func loadLearner(c *config.Config) (*graph.Graph, *mastery.Store, error) {
	g, err := graph.Load(c.Graph.Path)
	if err != nil {
		return nil, nil, eris.Wrap(err, "load knowledge graph")
	}

	store, err := mastery.Load(c.Student.Path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		zap.L().Warn("no learner snapshot, starting from zero mastery", zap.String("path", c.Student.Path))
		store = mastery.New()
	case err != nil:
		return nil, nil, eris.Wrap(err, "load learner snapshot")
	}

	zap.L().Debug("learner loaded",
		zap.String("graph", c.Graph.Path),
		zap.Int("concepts", g.Len()),
		zap.String("student", c.Student.Path),
		zap.Int("history", len(store.History())),
	)
	return g, store, nil
}

// newSource seeds the simulated learner. Seed 0 draws a random seed.
func newSource(seed uint64) simulate.Source {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return simulate.NewSource(seed)
}

// runnerOptions are the options shared by every command that runs episodes.
func runnerOptions(c *config.Config) []episode.Option {
	return []episode.Option{
		episode.WithPolicy(tutor.NewPolicy(tutor.WithThreshold(c.Policy.Threshold))),
		episode.WithSource(newSource(c.Experiment.Seed)),
		episode.WithMaxConsecutiveNoConcept(c.Experiment.MaxConsecutiveNoConcept),
	}
}
