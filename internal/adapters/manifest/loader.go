// Package manifest reads manifest files that assign paths to profiles.
package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/sawolford/onsub/internal/core/domain"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// Loader implements ports.ManifestLoader for YAML and TOML manifests.
type Loader struct{}

// NewLoader creates a new Loader.
func NewLoader() *Loader {
	return &Loader{}
}

type section struct {
	name    string
	entries []domain.Candidate
}

// Load reads every manifest file. Candidates are grouped by section in order
// of the section's first appearance across all files; within a section they
// keep file order.
func (l *Loader) Load(paths []string) ([]domain.Candidate, error) {
	var sections []*section
	index := make(map[string]*section)

	for _, path := range paths {
		parsed, err := readFile(path)
		if err != nil {
			return nil, err
		}
		for _, s := range parsed {
			existing, ok := index[s.name]
			if !ok {
				existing = &section{name: s.name}
				index[s.name] = existing
				sections = append(sections, existing)
			}
			existing.entries = append(existing.entries, s.entries...)
		}
	}

	var candidates []domain.Candidate
	for _, s := range sections {
		candidates = append(candidates, s.entries...)
	}
	return candidates, nil
}

func readFile(path string) ([]*section, error) {
	// #nosec G304 -- manifest paths are chosen by the user
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, zerr.With(zerr.Wrap(domain.ErrManifestNotFound, "cannot open manifest"), "path", path)
		}
		return nil, parseError(path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return parseYAML(path, data)
	case ".toml":
		return parseTOML(path, data)
	default:
		return nil, zerr.With(zerr.Wrap(domain.ErrUnsupportedFormat, "cannot load manifest"), "path", path)
	}
}

func parseError(path string, err error) error {
	return zerr.With(zerr.Wrap(domain.ErrManifestParseFailed, err.Error()), "path", path)
}

func parseYAML(path string, data []byte) ([]*section, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, parseError(path, err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, parseError(path, errors.New("manifest must map profile names to path lists"))
	}

	sections := make([]*section, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		name := root.Content[i].Value
		var raw []any
		if err := root.Content[i+1].Decode(&raw); err != nil {
			return nil, parseError(path, err)
		}
		s, err := newSection(name, raw)
		if err != nil {
			return nil, parseError(path, err)
		}
		sections = append(sections, s)
	}
	return sections, nil
}

func parseTOML(path string, data []byte) ([]*section, error) {
	var raw map[string][]any
	md, err := toml.Decode(string(data), &raw)
	if err != nil {
		return nil, parseError(path, err)
	}

	var order []string
	for _, key := range md.Keys() {
		if len(key) == 1 && !slices.Contains(order, key[0]) {
			order = append(order, key[0])
		}
	}

	sections := make([]*section, 0, len(order))
	for _, name := range order {
		s, err := newSection(name, raw[name])
		if err != nil {
			return nil, parseError(path, err)
		}
		sections = append(sections, s)
	}
	return sections, nil
}

// newSection converts the decoded entries of one section. An entry is either
// a path string or a list whose first element is the path and whose remaining
// elements are extra arguments.
func newSection(name string, raw []any) (*section, error) {
	s := &section{name: name, entries: make([]domain.Candidate, 0, len(raw))}
	for i, item := range raw {
		var fields []string
		switch v := item.(type) {
		case string:
			fields = []string{v}
		case []any:
			for _, f := range v {
				fields = append(fields, fmt.Sprint(f))
			}
		default:
			return nil, zerr.With(zerr.New("unsupported manifest entry"), "section", name)
		}
		if len(fields) == 0 || fields[0] == "" {
			return nil, zerr.With(zerr.With(zerr.New("manifest entry without a path"), "section", name), "index", i)
		}
		s.entries = append(s.entries, domain.Candidate{
			Path:    fields[0],
			Section: name,
			Args:    fields[1:],
		})
	}
	return s, nil
}
