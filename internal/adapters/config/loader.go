// Package config provides the configuration loader for onsub.
package config

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/sawolford/onsub/internal/core/domain"
	"github.com/sawolford/onsub/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// Loader implements ports.ConfigLoader for YAML and TOML files.
type Loader struct {
	Logger ports.Logger
	fs     FileSystem
	goos   string
}

// NewLoader creates a new Loader reading from the host filesystem.
func NewLoader(logger ports.Logger) *Loader {
	return NewLoaderWithFS(logger, NewOSFS(), runtime.GOOS)
}

// NewLoaderWithFS creates a Loader over fsys that applies platform overlays for goos.
func NewLoaderWithFS(logger ports.Logger, fsys FileSystem, goos string) *Loader {
	return &Loader{Logger: logger, fs: fsys, goos: goos}
}

// Load reads the configuration file at path and builds the profile registry.
func (l *Loader) Load(path string) (*domain.Config, error) {
	file, order, err := l.read(path)
	if err != nil {
		return nil, err
	}

	registry := domain.NewRegistry()
	for _, name := range profileOrder(file.Profiles, order) {
		dto := file.Profiles[name]
		if dto == nil {
			dto = &ProfileDTO{}
		}
		p, err := l.buildProfile(name, dto, file.Defaults)
		if err != nil {
			return nil, zerr.With(err, "path", path)
		}
		registry.Add(p)
	}

	return &domain.Config{
		Path:     path,
		Profiles: registry,
		Colors:   file.Colors,
		Settings: file.Settings,
	}, nil
}

func (l *Loader) read(path string) (*File, []string, error) {
	data, err := l.fs.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, zerr.With(zerr.Wrap(domain.ErrConfigNotFound, "cannot open configuration"), "path", path)
		}
		return nil, nil, zerr.With(zerr.Wrap(domain.ErrConfigReadFailed, err.Error()), "path", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return readYAML(path, data)
	case ".toml":
		return readTOML(path, data)
	default:
		return nil, nil, zerr.With(zerr.Wrap(domain.ErrUnsupportedFormat, "cannot load configuration"), "path", path)
	}
}

func readYAML(path string, data []byte) (*File, []string, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &File{}, nil, nil
		}
		return nil, nil, parseError(path, err)
	}

	var file File
	if err := doc.Decode(&file); err != nil {
		return nil, nil, parseError(path, err)
	}
	return &file, mappingKeys(&doc, "profiles"), nil
}

func readTOML(path string, data []byte) (*File, []string, error) {
	var file File
	md, err := toml.Decode(string(data), &file)
	if err != nil {
		return nil, nil, parseError(path, err)
	}

	var order []string
	for _, key := range md.Keys() {
		if len(key) == 2 && key[0] == "profiles" && !slices.Contains(order, key[1]) {
			order = append(order, key[1])
		}
	}
	return &file, order, nil
}

func parseError(path string, err error) error {
	return zerr.With(zerr.Wrap(domain.ErrConfigParseFailed, err.Error()), "path", path)
}

// mappingKeys returns the keys of the mapping stored under key in a YAML
// document, in document order.
func mappingKeys(doc *yaml.Node, key string) []string {
	root := doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value != key || root.Content[i+1].Kind != yaml.MappingNode {
			continue
		}
		m := root.Content[i+1]
		keys := make([]string, 0, len(m.Content)/2)
		for j := 0; j+1 < len(m.Content); j += 2 {
			keys = append(keys, m.Content[j].Value)
		}
		return keys
	}
	return nil
}

// profileOrder returns the profile names in document order. Names the
// decoder saw but the order scan missed are appended sorted.
func profileOrder(profiles map[string]*ProfileDTO, order []string) []string {
	names := make([]string, 0, len(profiles))
	for _, name := range order {
		if _, ok := profiles[name]; ok && !slices.Contains(names, name) {
			names = append(names, name)
		}
	}

	var rest []string
	for name := range profiles {
		if !slices.Contains(names, name) {
			rest = append(rest, name)
		}
	}
	slices.Sort(rest)
	return append(names, rest...)
}
