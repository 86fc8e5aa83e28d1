package config

import (
	"fmt"

	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// File represents the structure of the onsub configuration file.
type File struct {
	Settings map[string]any         `yaml:"settings" toml:"settings"`
	Colors   map[string]string      `yaml:"colors" toml:"colors"`
	Defaults DefaultsDTO            `yaml:"defaults" toml:"defaults"`
	Profiles map[string]*ProfileDTO `yaml:"profiles" toml:"profiles"`
}

// DefaultsDTO holds variables merged under every profile.
type DefaultsDTO struct {
	Vars     map[string]VarDTO            `yaml:"vars" toml:"vars"`
	Platform map[string]map[string]VarDTO `yaml:"platform" toml:"platform"`
}

// ProfileDTO represents a profile definition in the configuration.
type ProfileDTO struct {
	Enabled   bool                         `yaml:"enabled" toml:"enabled"`
	Priority  PriorityDTO                  `yaml:"priority" toml:"priority"`
	Construct *ConstructDTO                `yaml:"construct" toml:"construct"`
	Vars      map[string]VarDTO            `yaml:"vars" toml:"vars"`
	Commands  map[string]string            `yaml:"commands" toml:"commands"`
	Functions map[string]string            `yaml:"functions" toml:"functions"`
	Platform  map[string]map[string]VarDTO `yaml:"platform" toml:"platform"`
}

// PriorityDTO describes when a profile applies to a directory.
type PriorityDTO struct {
	Score  int      `yaml:"score" toml:"score"`
	Always bool     `yaml:"always" toml:"always"`
	Exists []string `yaml:"exists" toml:"exists"`
	Dirs   []string `yaml:"dirs" toml:"dirs"`
	Files  []string `yaml:"files" toml:"files"`
}

// ConstructDTO describes how a missing directory is materialized.
type ConstructDTO struct {
	Command      string   `yaml:"command" toml:"command"`
	Function     string   `yaml:"function" toml:"function"`
	Args         int      `yaml:"args" toml:"args"`
	UnlessExists []string `yaml:"unless_exists" toml:"unless_exists"`
}

// VarDTO is a variable value: either a plain string or a mapping with an
// env key naming an environment variable read at visit time. Value is the
// fallback when the environment variable is empty.
type VarDTO struct {
	Value string `yaml:"value" toml:"value"`
	Env   string `yaml:"env" toml:"env"`
}

// UnmarshalYAML accepts a scalar or a mapping.
func (v *VarDTO) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		v.Value = node.Value
		return nil
	}

	var aux struct {
		Value string `yaml:"value"`
		Env   string `yaml:"env"`
	}
	if err := node.Decode(&aux); err != nil {
		return err
	}
	v.Value, v.Env = aux.Value, aux.Env
	return nil
}

// UnmarshalTOML accepts a primitive value or a table.
func (v *VarDTO) UnmarshalTOML(data any) error {
	switch d := data.(type) {
	case string:
		v.Value = d
	case int64, float64, bool:
		v.Value = fmt.Sprint(d)
	case map[string]any:
		if s, ok := d["value"]; ok {
			v.Value = fmt.Sprint(s)
		}
		if s, ok := d["env"]; ok {
			v.Env = fmt.Sprint(s)
		}
	default:
		return zerr.With(zerr.New("unsupported variable value"), "type", fmt.Sprintf("%T", data))
	}
	return nil
}
