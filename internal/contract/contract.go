// Package contract loads the static tool catalogs presented to the completion
// provider. A catalog is immutable once loaded and safe for concurrent use.
package contract

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/kidslingo/kidslingo/internal/schema"
)

// Built-in catalog names.
const (
	Learning = "learning" // remote-backend tutoring tools
	Basic    = "basic"    // local-only RAG + calculator
)

//go:embed catalogs/*.yaml
var catalogFS embed.FS

// Catalog is a versioned, read-only tool contract.
type Catalog struct {
	name     string
	version  int
	tools    []schema.ToolSpec
	index    map[string]int
	compiled map[string]*jsonschema.Schema
}

type catalogFile struct {
	Name    string     `yaml:"name"`
	Version int        `yaml:"version"`
	Tools   []toolFile `yaml:"tools"`
}

type toolFile struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Parameters  map[string]any `yaml:"parameters"`
}

// Load returns the embedded catalog with the given name.
func Load(name string) (*Catalog, error) {
	data, err := catalogFS.ReadFile("catalogs/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("unknown tool contract %q (available: %v)", name, Names())
	}
	return Parse(data)
}

// Names lists the embedded catalogs.
func Names() []string {
	entries, _ := catalogFS.ReadDir("catalogs")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		n := e.Name()
		names = append(names, n[:len(n)-len(".yaml")])
	}
	sort.Strings(names)
	return names
}

// Parse decodes and validates a YAML catalog. Tool names must be unique and
// non-empty and every parameter schema must compile.
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode tool contract: %w", err)
	}
	if file.Name == "" {
		return nil, errors.New("tool contract has no name")
	}

	c := &Catalog{
		name:     file.Name,
		version:  file.Version,
		tools:    make([]schema.ToolSpec, 0, len(file.Tools)),
		index:    make(map[string]int, len(file.Tools)),
		compiled: make(map[string]*jsonschema.Schema, len(file.Tools)),
	}
	for i, t := range file.Tools {
		if t.Name == "" {
			return nil, fmt.Errorf("contract %s: tool #%d has no name", file.Name, i)
		}
		if _, dup := c.index[t.Name]; dup {
			return nil, fmt.Errorf("contract %s: duplicate tool %q", file.Name, t.Name)
		}
		params := t.Parameters
		if params == nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("contract %s: encode %q parameters: %w", file.Name, t.Name, err)
		}
		compiled, err := compileSchema(t.Name, raw)
		if err != nil {
			return nil, fmt.Errorf("contract %s: %w", file.Name, err)
		}

		c.index[t.Name] = len(c.tools)
		c.tools = append(c.tools, schema.ToolSpec{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  raw,
		})
		c.compiled[t.Name] = compiled
	}
	return c, nil
}

func compileSchema(name string, raw []byte) (*jsonschema.Schema, error) {
	url := name + ".json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("add schema resource for %q: %w", name, err)
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema for %q: %w", name, err)
	}
	return compiled, nil
}

func (c *Catalog) Name() string { return c.name }
func (c *Catalog) Version() int { return c.version }

// List returns the tools in declaration order.
func (c *Catalog) List() []schema.ToolSpec {
	out := make([]schema.ToolSpec, len(c.tools))
	copy(out, c.tools)
	return out
}

// Get resolves a tool by name.
func (c *Catalog) Get(name string) (schema.ToolSpec, bool) {
	i, ok := c.index[name]
	if !ok {
		return schema.ToolSpec{}, false
	}
	return c.tools[i], true
}

// Definitions returns all tool definitions in OpenAI function-calling format.
func (c *Catalog) Definitions() []map[string]any {
	list := make([]map[string]any, 0, len(c.tools))
	for _, t := range c.tools {
		list = append(list, t.Definition())
	}
	return list
}

// Validate checks args against the named tool's parameter schema.
// The orchestration loop never calls this; tool backends do.
func (c *Catalog) Validate(name string, args map[string]any) error {
	compiled, ok := c.compiled[name]
	if !ok {
		return fmt.Errorf("unknown tool %s", name)
	}
	// Round-trip so the validator sees plain JSON values (float64, []any).
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode arguments: %w", err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}
	if v == nil {
		v = map[string]any{}
	}
	return compiled.Validate(v)
}

var _ schema.Contract = (*Catalog)(nil)
