// Package catalog loads the SOP step catalog from YAML and validates step
// inputs with JSON schema.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"refurb-workflow/internal/domain"
	"refurb-workflow/internal/domain/model"
	"refurb-workflow/internal/domain/ports/adapter"
)

// DefaultCategory holds steps used for categories with no entry of their own.
const DefaultCategory = "*"

var _ adapter.StepCatalog = (*Catalog)(nil)

type fileStep struct {
	Code        string         `yaml:"code"`
	Title       string         `yaml:"title"`
	Required    bool           `yaml:"required"`
	InputSchema map[string]any `yaml:"input_schema"`
}

type file struct {
	Categories map[string]map[string][]fileStep `yaml:"categories"`
}

// Catalog is an immutable in-memory SOP catalog.
type Catalog struct {
	steps map[string]map[model.State][]model.StepDescriptor

	mu      sync.RWMutex
	schemas map[string]*gojsonschema.Schema
}

func Load(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(b)
}

// Parse builds a catalog and compiles every input schema so a broken
// catalog fails at startup.
func Parse(b []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	c := &Catalog{
		steps:   make(map[string]map[model.State][]model.StepDescriptor, len(f.Categories)),
		schemas: make(map[string]*gojsonschema.Schema),
	}
	for category, states := range f.Categories {
		byState := make(map[model.State][]model.StepDescriptor, len(states))
		for rawState, list := range states {
			st, err := model.ParseState(rawState)
			if err != nil {
				return nil, fmt.Errorf("catalog %s: %w", category, err)
			}
			seen := make(map[string]bool, len(list))
			out := make([]model.StepDescriptor, 0, len(list))
			for _, s := range list {
				code := strings.TrimSpace(s.Code)
				if code == "" {
					return nil, fmt.Errorf("catalog %s/%s: step without code", category, st)
				}
				if seen[code] {
					return nil, fmt.Errorf("catalog %s/%s: duplicate step %q", category, st, code)
				}
				seen[code] = true
				d := model.StepDescriptor{Code: code, Title: s.Title, Required: s.Required}
				if len(s.InputSchema) > 0 {
					raw, err := json.Marshal(s.InputSchema)
					if err != nil {
						return nil, fmt.Errorf("catalog %s/%s/%s: schema: %w", category, st, code, err)
					}
					if _, err := c.compile(raw); err != nil {
						return nil, fmt.Errorf("catalog %s/%s/%s: schema: %w", category, st, code, err)
					}
					d.InputSchema = raw
				}
				out = append(out, d)
			}
			byState[st] = out
		}
		c.steps[category] = byState
	}
	return c, nil
}

func (c *Catalog) Steps(_ context.Context, category string, state model.State) ([]model.StepDescriptor, error) {
	byState, ok := c.steps[category]
	if !ok {
		byState = c.steps[DefaultCategory]
	}
	list := byState[state]
	out := make([]model.StepDescriptor, len(list))
	copy(out, list)
	return out, nil
}

func (c *Catalog) ValidateInputs(step model.StepDescriptor, inputs map[string]any) error {
	if len(step.InputSchema) == 0 {
		return nil
	}
	schema, err := c.compile(step.InputSchema)
	if err != nil {
		return fmt.Errorf("step %s schema: %w", step.Code, err)
	}
	if inputs == nil {
		inputs = map[string]any{}
	}
	res, err := schema.Validate(gojsonschema.NewGoLoader(inputs))
	if err != nil {
		return domain.InvalidArgument("step %s inputs: %v", step.Code, err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, desc := range res.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		msgs = append(msgs, field+": "+desc.Description())
	}
	return domain.InvalidArgument("step %s inputs: %s", step.Code, strings.Join(msgs, "; "))
}

// compile caches schemas by their JSON text.
func (c *Catalog) compile(raw []byte) (*gojsonschema.Schema, error) {
	key := string(raw)
	c.mu.RLock()
	s, ok := c.schemas[key]
	c.mu.RUnlock()
	if ok {
		return s, nil
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.schemas[key] = s
	c.mu.Unlock()
	return s, nil
}
