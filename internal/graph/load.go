package graph

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/tutor-cli/internal/apperr"
	"github.com/sells-group/tutor-cli/internal/model"
)

// Format identifies the encoding of a graph source.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from a file extension. Anything that is not
// .yaml or .yml is treated as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// sourceConcept mirrors one entry of the "concepts" object. Pointers
// distinguish absent keys from empty values.
type sourceConcept struct {
	Name          *string   `json:"name" yaml:"name"`
	Prerequisites *[]string `json:"prerequisites" yaml:"prerequisites"`
	CommonErrors  []string  `json:"common_errors" yaml:"common_errors"`
}

// Load reads and parses a graph source file.
func Load(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "graph: read %s", path)
	}
	g, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, eris.Wrapf(err, "graph: load %s", path)
	}
	return g, nil
}

// Parse decodes a graph source of the given format:
//
//	{"concepts": {<id>: {"name": ..., "prerequisites": [...], "common_errors": [...]}}}
//
// Concept declaration order is kept as the canonical order.
func Parse(data []byte, format Format) (*Graph, error) {
	var (
		concepts []model.Concept
		err      error
	)
	switch format {
	case FormatYAML:
		concepts, err = parseYAML(data)
	case FormatJSON, "":
		concepts, err = parseJSON(data)
	default:
		return nil, eris.Wrapf(apperr.ErrFormat, "graph: unsupported format %q", format)
	}
	if err != nil {
		return nil, err
	}
	return New(concepts)
}

func parseJSON(data []byte) ([]model.Concept, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, eris.Wrapf(apperr.ErrFormat, "graph: invalid json: %v", err)
	}
	raw, ok := top["concepts"]
	if !ok {
		return nil, eris.Wrap(apperr.ErrFormat, "graph: missing key \"concepts\"")
	}

	// Stream the object so key order survives.
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, eris.Wrapf(apperr.ErrFormat, "graph: concepts: %v", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, eris.Wrap(apperr.ErrFormat, "graph: \"concepts\" must be an object")
	}

	var concepts []model.Concept
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, eris.Wrapf(apperr.ErrFormat, "graph: concepts: %v", err)
		}
		id := tok.(string) // object keys are always strings
		var sc sourceConcept
		if err := dec.Decode(&sc); err != nil {
			return nil, eris.Wrapf(apperr.ErrFormat, "graph: concept %q: %v", id, err)
		}
		c, err := toConcept(id, sc)
		if err != nil {
			return nil, err
		}
		concepts = append(concepts, c)
	}
	if _, err := dec.Token(); err != nil && err != io.EOF {
		return nil, eris.Wrapf(apperr.ErrFormat, "graph: concepts: %v", err)
	}
	return concepts, nil
}

func parseYAML(data []byte) ([]model.Concept, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrapf(apperr.ErrFormat, "graph: invalid yaml: %v", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, eris.Wrap(apperr.ErrFormat, "graph: top level must be a mapping")
	}

	root := doc.Content[0]
	var conceptsNode *yaml.Node
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == "concepts" {
			conceptsNode = root.Content[i+1]
			break
		}
	}
	if conceptsNode == nil {
		return nil, eris.Wrap(apperr.ErrFormat, "graph: missing key \"concepts\"")
	}
	if conceptsNode.Kind != yaml.MappingNode {
		return nil, eris.Wrap(apperr.ErrFormat, "graph: \"concepts\" must be a mapping")
	}

	var concepts []model.Concept
	for i := 0; i+1 < len(conceptsNode.Content); i += 2 {
		id := conceptsNode.Content[i].Value
		var sc sourceConcept
		if err := conceptsNode.Content[i+1].Decode(&sc); err != nil {
			return nil, eris.Wrapf(apperr.ErrFormat, "graph: concept %q: %v", id, err)
		}
		c, err := toConcept(id, sc)
		if err != nil {
			return nil, err
		}
		concepts = append(concepts, c)
	}
	return concepts, nil
}

func toConcept(id string, sc sourceConcept) (model.Concept, error) {
	if sc.Name == nil {
		return model.Concept{}, eris.Wrapf(apperr.ErrFormat, "graph: concept %q missing \"name\"", id)
	}
	if sc.Prerequisites == nil {
		return model.Concept{}, eris.Wrapf(apperr.ErrFormat, "graph: concept %q missing \"prerequisites\"", id)
	}
	errs := sc.CommonErrors
	if errs == nil {
		errs = []string{}
	}
	return model.Concept{
		ID:            id,
		Name:          *sc.Name,
		Prerequisites: *sc.Prerequisites,
		CommonErrors:  errs,
	}, nil
}
