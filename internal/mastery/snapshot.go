package mastery

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/tutor-cli/internal/apperr"
	"github.com/sells-group/tutor-cli/internal/model"
)

// snapshot is the on-disk shape of a learner model.
type snapshot struct {
	Mastery      map[string]float64 `json:"mastery"`
	CommonErrors []string           `json:"common_errors"`
	History      []historyEntry     `json:"history"`
}

type historyEntry struct {
	Concept   string  `json:"concept"`
	Success   bool    `json:"success"`
	Error     *string `json:"error"`
	Timestamp string  `json:"timestamp"`
}

// timestampLayouts are tried in order when reading history. The naive forms
// carry no zone and are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

func parseTimestamp(s string) (time.Time, error) {
	var firstErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// Load restores a learner model from a snapshot file.
func Load(path string, opts ...Option) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "mastery: read %s", path)
	}
	s, err := Parse(data, opts...)
	if err != nil {
		return nil, eris.Wrapf(err, "mastery: load %s", path)
	}
	return s, nil
}

// Parse decodes snapshot JSON. A missing "mastery" key, a mastery outside
// [0, 1], or an unreadable history timestamp is a format error. Missing
// "common_errors" and "history" keys load as empty.
func Parse(data []byte, opts ...Option) (*Store, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, eris.Wrapf(apperr.ErrFormat, "mastery: invalid snapshot: %v", err)
	}
	if snap.Mastery == nil {
		return nil, eris.Wrap(apperr.ErrFormat, "mastery: missing key \"mastery\"")
	}

	s := New(opts...)
	for concept, m := range snap.Mastery {
		if m < minMastery || m > maxMastery {
			return nil, eris.Wrapf(apperr.ErrFormat, "mastery: %q has mastery %v outside [0, 1]", concept, m)
		}
		s.mastery[concept] = m
	}

	for _, label := range snap.CommonErrors {
		if label != "" && !s.HasMisconception(label) {
			s.misconceptions = append(s.misconceptions, label)
		}
	}

	for i, h := range snap.History {
		ts, err := parseTimestamp(h.Timestamp)
		if err != nil {
			return nil, eris.Wrapf(apperr.ErrFormat, "mastery: history[%d] timestamp %q", i, h.Timestamp)
		}
		s.history = append(s.history, model.AttemptRecord{
			Concept:   h.Concept,
			Success:   h.Success,
			Error:     h.Error,
			Timestamp: ts,
		})
	}
	return s, nil
}

// Marshal encodes the full learner model as indented snapshot JSON.
func (s *Store) Marshal() ([]byte, error) {
	snap := snapshot{
		Mastery:      s.MasteryState(),
		CommonErrors: slices.Clone(s.misconceptions),
		History:      make([]historyEntry, len(s.history)),
	}
	for i, h := range s.history {
		snap.History[i] = historyEntry{
			Concept:   h.Concept,
			Success:   h.Success,
			Error:     h.Error,
			Timestamp: h.Timestamp.UTC().Format(time.RFC3339Nano),
		}
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "mastery: marshal snapshot")
	}
	return append(data, '\n'), nil
}

// Save writes the full learner model to path atomically: the snapshot goes to
// a temp file in the same directory which is synced and renamed over path.
// Any failure leaves the previous file untouched and returns an error
// matching apperr.ErrIO.
func (s *Store) Save(path string) error {
	data, err := s.Marshal()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return eris.Wrapf(apperr.ErrIO, "mastery: create temp in %s: %v", dir, err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return eris.Wrapf(apperr.ErrIO, "mastery: write %s: %v", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return eris.Wrapf(apperr.ErrIO, "mastery: sync %s: %v", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return eris.Wrapf(apperr.ErrIO, "mastery: close %s: %v", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return eris.Wrapf(apperr.ErrIO, "mastery: rename to %s: %v", path, err)
	}
	return nil
}
