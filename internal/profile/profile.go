// Package profile loads the per-engine configuration record that drives a
// synthesis run: builtin environment, template and generator weights, and the
// numeric knobs of the builder. Process settings are carried verbatim for the
// harness that executes the programs.
package profile

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/orizon-lang/tierforge/internal/builder"
	tferrors "github.com/orizon-lang/tierforge/internal/errors"
	"github.com/orizon-lang/tierforge/internal/types"
)

//go:embed profiles/*.yaml
var builtinFS embed.FS

// Profile is the decoded configuration record.
type Profile struct {
	Name             string            `yaml:"name"`
	EngineVersion    string            `yaml:"engine_version"`
	ProcessArguments []string          `yaml:"process_arguments"`
	ProcessEnv       map[string]string `yaml:"process_env"`
	CodePrefix       string            `yaml:"code_prefix"`
	CodeSuffix       string            `yaml:"code_suffix"`
	CrashTests       []string          `yaml:"crash_tests"`
	CrashSignals     []string          `yaml:"crash_signals"`
	Builtins         []Builtin         `yaml:"builtins"`
	Templates        []TemplateWeight  `yaml:"templates"`
	Generators       Generators        `yaml:"generators"`
	Synthesis        Synthesis         `yaml:"synthesis"`
}

// Builtin declares a name the target engine provides.
type Builtin struct {
	Name string `yaml:"name"`
	// Since is a semver constraint on engine_version; empty means always.
	Since string     `yaml:"since,omitempty"`
	Type  types.Spec `yaml:"type"`
}

// TemplateWeight activates a template.
type TemplateWeight struct {
	Name   string `yaml:"name"`
	Weight int    `yaml:"weight"`
}

// Generators layers the base generator registry.
type Generators struct {
	// Weights replaces the weights of units already in the registry.
	Weights map[string]int `yaml:"weights,omitempty"`
	Disable []string       `yaml:"disable,omitempty"`
	// Add puts catalogue units into the registry by name.
	Add map[string]int `yaml:"add,omitempty"`
}

// Synthesis tunes the builder and the templates. Zero values fall back to
// the package defaults of builder and templates.
type Synthesis struct {
	RecursionBudget int     `yaml:"recursion_budget"`
	MaxRetries      int     `yaml:"max_retries"`
	Incidental      int     `yaml:"incidental"`
	TierLoops       []int64 `yaml:"tier_loops,flow"`
}

// Parse decodes and validates a profile. Unknown keys are rejected.
func Parse(data []byte) (*Profile, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var p Profile
	if err := dec.Decode(&p); err != nil {
		return nil, tferrors.InvalidProfile("yaml", err.Error())
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return &p, nil
}

// LoadFile reads a profile from disk. A profile without a name is named
// after its file.
func LoadFile(file string) (*Profile, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read profile %s: %w", file, err)
	}

	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", file, err)
	}

	if p.Name == "" {
		p.Name = strings.TrimSuffix(path.Base(file), path.Ext(file))
	}

	return p, nil
}

// Load resolves name as a built-in profile first and as a file path otherwise.
func Load(name string) (*Profile, error) {
	if p, err := Embedded(name); err == nil {
		return p, nil
	}

	return LoadFile(name)
}

// Embedded returns one of the embedded profiles.
func Embedded(name string) (*Profile, error) {
	data, err := builtinFS.ReadFile("profiles/" + name + ".yaml")
	if err != nil {
		return nil, tferrors.InvalidProfile("name", fmt.Sprintf("no built-in profile %q", name))
	}

	return Parse(data)
}

// Names lists the embedded profiles.
func Names() []string {
	entries, err := builtinFS.ReadDir("profiles")
	if err != nil {
		return nil
	}

	var names []string
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}

	sort.Strings(names)

	return names
}

// Validate checks every field that can be checked without the catalogues.
func (p *Profile) Validate() error {
	var engine *semver.Version

	if p.EngineVersion != "" {
		v, err := semver.NewVersion(p.EngineVersion)
		if err != nil {
			return tferrors.InvalidProfile("engine_version", err.Error())
		}

		engine = v
	}

	seen := make(map[string]bool, len(p.Builtins))

	for i, b := range p.Builtins {
		field := fmt.Sprintf("builtins[%d]", i)

		if b.Name == "" {
			return tferrors.InvalidProfile(field, "missing name")
		}

		if seen[b.Name] {
			return tferrors.InvalidProfile(field, fmt.Sprintf("duplicate builtin %q", b.Name))
		}

		seen[b.Name] = true

		if _, err := b.Type.Type(); err != nil {
			return tferrors.InvalidProfile(field+".type", err.Error())
		}

		if b.Since != "" {
			if _, err := semver.NewConstraint(b.Since); err != nil {
				return tferrors.InvalidProfile(field+".since", err.Error())
			}

			if engine == nil {
				return tferrors.InvalidProfile(field+".since", "requires engine_version")
			}
		}
	}

	for i, t := range p.Templates {
		if t.Name == "" {
			return tferrors.InvalidProfile(fmt.Sprintf("templates[%d]", i), "missing name")
		}

		if t.Weight <= 0 {
			return tferrors.InvalidProfile(fmt.Sprintf("templates[%d]", i),
				fmt.Sprintf("weight %d for %s must be positive", t.Weight, t.Name))
		}
	}

	for name, w := range p.Generators.Weights {
		if w <= 0 {
			return tferrors.InvalidProfile("generators.weights."+name, "weight must be positive")
		}
	}

	for name, w := range p.Generators.Add {
		if w <= 0 {
			return tferrors.InvalidProfile("generators.add."+name, "weight must be positive")
		}
	}

	s := p.Synthesis
	if s.RecursionBudget < 0 {
		return tferrors.InvalidProfile("synthesis.recursion_budget", "must not be negative")
	}

	if s.MaxRetries < 0 {
		return tferrors.InvalidProfile("synthesis.max_retries", "must not be negative")
	}

	if s.Incidental < 0 {
		return tferrors.InvalidProfile("synthesis.incidental", "must not be negative")
	}

	for i, n := range s.TierLoops {
		if n <= 0 {
			return tferrors.InvalidProfile(fmt.Sprintf("synthesis.tier_loops[%d]", i), "must be positive")
		}
	}

	return nil
}

// ResolveBuiltins converts the builtins whose since constraint holds for the
// profile's engine version.
func (p *Profile) ResolveBuiltins() ([]builder.Builtin, error) {
	var engine *semver.Version

	if p.EngineVersion != "" {
		v, err := semver.NewVersion(p.EngineVersion)
		if err != nil {
			return nil, tferrors.InvalidProfile("engine_version", err.Error())
		}

		engine = v
	}

	out := make([]builder.Builtin, 0, len(p.Builtins))

	for _, b := range p.Builtins {
		if b.Since != "" {
			c, err := semver.NewConstraint(b.Since)
			if err != nil {
				return nil, tferrors.InvalidProfile("builtins."+b.Name+".since", err.Error())
			}

			if engine == nil || !c.Check(engine) {
				continue
			}
		}

		t, err := b.Type.Type()
		if err != nil {
			return nil, tferrors.InvalidProfile("builtins."+b.Name+".type", err.Error())
		}

		out = append(out, builder.Builtin{Name: b.Name, Type: t})
	}

	return out, nil
}

// Marshal encodes p back to YAML.
func (p *Profile) Marshal() ([]byte, error) {
	var buf bytes.Buffer

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)

	if err := enc.Encode(p); err != nil {
		return nil, err
	}

	if err := enc.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
