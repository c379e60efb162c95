// Package seed holds the bundled event set used when no stored catalog exists.
package seed

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fr0stylo/venuecal/internal/app/domain"
)

//go:embed events.yaml
var bundled []byte

type document struct {
	Events []domain.Event `yaml:"events"`
}

// Load parses the bundled events.
func Load() ([]domain.Event, error) {
	return Parse(bundled)
}

// Parse decodes a seed document in the bundled format. Every event needs a
// unique id: seeded events are served before they are first mirrored, so a
// generated id would change on each start.
func Parse(raw []byte) ([]domain.Event, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse seed events: %w", err)
	}
	seen := make(map[string]struct{}, len(doc.Events))
	for i, event := range doc.Events {
		id := strings.TrimSpace(event.ID)
		if id == "" {
			return nil, fmt.Errorf("seed event %d has no id", i)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("seed event %d: duplicate id %q", i, id)
		}
		seen[id] = struct{}{}
		doc.Events[i].ID = id
	}
	return doc.Events, nil
}
