package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

type Intent struct {
	Name     string
	Keywords []string
}

// IntentTable keeps intents in document order; matching is first-match.
type IntentTable []Intent

// UnmarshalYAML accepts both
//
//	greeting: [hello, hi]
//
// and
//
//	greeting:
//	  keywords: [hello, hi]
func (t *IntentTable) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: intents must be a mapping", value.Line)
	}

	out := make(IntentTable, 0, len(value.Content)/2)
	seen := make(map[string]bool)

	for i := 0; i+1 < len(value.Content); i += 2 {
		key, val := value.Content[i], value.Content[i+1]

		if seen[key.Value] {
			return fmt.Errorf("line %d: duplicate intent %q", key.Line, key.Value)
		}
		seen[key.Value] = true

		in := Intent{Name: key.Value}

		switch val.Kind {
		case yaml.SequenceNode:
			if err := val.Decode(&in.Keywords); err != nil {
				return fmt.Errorf("intent %q: %w", key.Value, err)
			}
		case yaml.MappingNode:
			var body struct {
				Keywords []string `yaml:"keywords"`
			}
			if err := val.Decode(&body); err != nil {
				return fmt.Errorf("intent %q: %w", key.Value, err)
			}
			in.Keywords = body.Keywords
		default:
			return fmt.Errorf("line %d: intent %q must be a keyword list", val.Line, key.Value)
		}

		out = append(out, in)
	}

	*t = out
	return nil
}
