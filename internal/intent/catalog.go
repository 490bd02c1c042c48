package intent

import (
	"embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"pait-backend/internal/specialist"
)

//go:embed catalog.yaml
var catalogFile embed.FS

// ErrNotFound indicates the intent id is not in the catalog.
var ErrNotFound = errors.New("intent not found")

// Intent maps a user-facing question type to the specialists it needs.
// Entries are immutable after catalog load.
type Intent struct {
	ID        string            `json:"id" yaml:"id"`
	Roles     []specialist.Role `json:"roles" yaml:"roles"`
	Rationale string            `json:"rationale" yaml:"rationale"`
}

// Catalog is the single source of truth for which specialists each kind of
// question needs. Read-only after Load.
type Catalog struct {
	byID  map[string]Intent
	order []string
}

type catalogFileShape struct {
	Intents []Intent `yaml:"intents"`
}

// Load parses the embedded catalog table. Called once at process start.
func Load() (*Catalog, error) {
	raw, err := catalogFile.ReadFile("catalog.yaml")
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var shape catalogFileShape
	if err := yaml.Unmarshal(raw, &shape); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(shape.Intents) == 0 {
		return nil, errors.New("catalog is empty")
	}

	c := &Catalog{byID: make(map[string]Intent, len(shape.Intents))}
	for _, in := range shape.Intents {
		if in.ID == "" {
			return nil, errors.New("catalog entry missing id")
		}
		if _, dup := c.byID[in.ID]; dup {
			return nil, fmt.Errorf("duplicate intent %q", in.ID)
		}
		if len(in.Roles) == 0 {
			return nil, fmt.Errorf("intent %q has no roles", in.ID)
		}
		seen := make(map[specialist.Role]bool, len(in.Roles))
		for _, role := range in.Roles {
			if !role.Valid() {
				return nil, fmt.Errorf("intent %q references unknown role %q", in.ID, role)
			}
			if seen[role] {
				return nil, fmt.Errorf("intent %q repeats role %q", in.ID, role)
			}
			seen[role] = true
		}
		c.byID[in.ID] = in
		c.order = append(c.order, in.ID)
	}
	return c, nil
}

// Resolve looks up an intent by id.
func (c *Catalog) Resolve(id string) (Intent, error) {
	in, ok := c.byID[id]
	if !ok {
		return Intent{}, ErrNotFound
	}
	return in, nil
}

// List returns all intents in catalog order, for the selection UI.
func (c *Catalog) List() []Intent {
	out := make([]Intent, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}
