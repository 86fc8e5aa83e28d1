package app

import (
	"io"

	"github.com/sawolford/onsub/internal/core/domain"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

type profileDump struct {
	Enabled   bool              `yaml:"enabled"`
	Construct string            `yaml:"construct,omitempty"`
	Vars      map[string]string `yaml:"vars,omitempty"`
	Commands  map[string]string `yaml:"commands,omitempty"`
	Functions map[string]string `yaml:"functions,omitempty"`
}

// writeDump encodes profiles in registration order. Variables are evaluated
// as if the profile visited cwd.
func writeDump(w io.Writer, profiles []*domain.Profile, cwd string) error {
	doc := &yaml.Node{Kind: yaml.MappingNode}

	for _, p := range profiles {
		vc := domain.NewVisitContext(cwd, ".", p.Name)
		vc.Cwd = cwd

		d := profileDump{
			Enabled:   p.Enabled,
			Commands:  p.Commands,
			Functions: p.Functions,
		}
		if len(p.Variables) > 0 {
			d.Vars = make(map[string]string, len(p.Variables))
			for name, v := range p.Variables {
				d.Vars[name] = v(vc)
			}
		}
		if p.Construct != nil {
			d.Construct = "command"
			if p.Construct.Function != "" {
				d.Construct = "function " + p.Construct.Function
			}
		}

		var value yaml.Node
		if err := value.Encode(d); err != nil {
			return zerr.With(zerr.Wrap(err, "cannot encode profile"), "profile", p.Name)
		}
		doc.Content = append(doc.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: p.Name},
			&value,
		)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return zerr.Wrap(err, "cannot write profile dump")
	}
	return zerr.Wrap(enc.Close(), "cannot write profile dump")
}
