// Package catalog holds the static configuration of the sync engine: input
// fan-out mappings, the correlation rule table and the scoring curves.
//
// A Catalog is decoded once and never mutated afterwards. Trigger
// expressions are parsed at load time and transforms are data, not code.
package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/takumisawano-hash/dodo-demo-sub000/internal/domain/model"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// Target is one secondary write of a fan-out. With SkipIfMissing the write
// is omitted when a source field of the transform is absent or nil.
type Target struct {
	Agent         string
	Field         string
	Transform     Transform
	SkipIfMissing bool
}

// InputMapping routes one input type to a primary agent plus secondaries.
type InputMapping struct {
	InputType string
	Primary   string
	Secondary []Target
}

// CorrelationRule is one cross-agent heuristic.
type CorrelationRule struct {
	Key            string
	Trigger        Trigger
	Message        string
	AffectedAgents []string
	Category       string
	Priority       model.Priority
}

// Category groups metrics of one life domain.
type Category struct {
	Key     string
	Name    string
	Weight  float64
	Agents  []string
	Metrics []string
}

// Threshold is the scoring curve of one metric.
type Threshold struct {
	Optimal float64 `yaml:"optimal"`
	Min     float64 `yaml:"min"`
	Max     float64 `yaml:"max"`
}

// Catalog is the immutable, validated configuration.
type Catalog struct {
	mappings   []InputMapping
	byType     map[string]int
	rules      []CorrelationRule
	categories []Category
	thresholds map[string]Threshold
}

type rawTransform struct {
	Kind    string `yaml:"kind"`
	Value   any    `yaml:"value"`
	Field   string `yaml:"field"`
	Default any    `yaml:"default"`
	Op      string `yaml:"op"`
	Other   string `yaml:"other"`
	Then    any    `yaml:"then"`
	Else    any    `yaml:"else"`
}

type rawTarget struct {
	Agent         string       `yaml:"agent"`
	Field         string       `yaml:"field"`
	Transform     rawTransform `yaml:"transform"`
	SkipIfMissing bool         `yaml:"skip_if_missing"`
}

type rawMapping struct {
	InputType string      `yaml:"input_type"`
	Primary   string      `yaml:"primary"`
	Secondary []rawTarget `yaml:"secondary"`
}

type rawRule struct {
	Key            string   `yaml:"key"`
	Trigger        string   `yaml:"trigger"`
	Message        string   `yaml:"message"`
	AffectedAgents []string `yaml:"affected_agents"`
	Category       string   `yaml:"category"`
}

type rawCategory struct {
	Key     string   `yaml:"key"`
	Name    string   `yaml:"name"`
	Weight  float64  `yaml:"weight"`
	Agents  []string `yaml:"agents"`
	Metrics []string `yaml:"metrics"`
}

type rawCatalog struct {
	InputMappings []rawMapping         `yaml:"input_mappings"`
	Rules         []rawRule            `yaml:"rules"`
	Priorities    map[string]string    `yaml:"priorities"`
	Categories    []rawCategory        `yaml:"categories"`
	Thresholds    map[string]Threshold `yaml:"thresholds"`
}

// Default returns the built-in catalog. It panics if the embedded YAML is
// invalid, which is a build defect.
func Default() *Catalog {
	c, err := Load(bytes.NewReader(defaultYAML))
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}

// LoadFile decodes and validates a catalog file.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Load(f)
}

// Load decodes and validates a YAML catalog.
func Load(r io.Reader) (*Catalog, error) {
	var raw rawCatalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrInvalidCatalog, err)
	}
	return build(raw)
}

func build(raw rawCatalog) (*Catalog, error) {
	c := &Catalog{
		byType:     make(map[string]int, len(raw.InputMappings)),
		thresholds: make(map[string]Threshold, len(raw.Thresholds)),
	}

	for _, rm := range raw.InputMappings {
		if rm.InputType == "" || rm.Primary == "" {
			return nil, fmt.Errorf("%w: mapping needs input_type and primary", ErrInvalidCatalog)
		}
		if _, dup := c.byType[rm.InputType]; dup {
			return nil, fmt.Errorf("%w: duplicate input type %q", ErrInvalidCatalog, rm.InputType)
		}
		m := InputMapping{InputType: rm.InputType, Primary: rm.Primary}
		for _, rt := range rm.Secondary {
			if rt.Agent == "" || rt.Field == "" {
				return nil, fmt.Errorf("%w: %s: secondary needs agent and field", ErrInvalidCatalog, rm.InputType)
			}
			tr, err := buildTransform(rt.Transform)
			if err != nil {
				return nil, fmt.Errorf("%s -> %s.%s: %w", rm.InputType, rt.Agent, rt.Field, err)
			}
			if rt.SkipIfMissing && tr.Kind == KindConstant {
				return nil, fmt.Errorf("%w: %s -> %s.%s: skip_if_missing needs a source field", ErrInvalidCatalog, rm.InputType, rt.Agent, rt.Field)
			}
			m.Secondary = append(m.Secondary, Target{Agent: rt.Agent, Field: rt.Field, Transform: tr, SkipIfMissing: rt.SkipIfMissing})
		}
		c.byType[m.InputType] = len(c.mappings)
		c.mappings = append(c.mappings, m)
	}

	for key, p := range raw.Priorities {
		if p != string(model.PriorityHigh) && p != string(model.PriorityMedium) && p != string(model.PriorityLow) {
			return nil, fmt.Errorf("%w: rule %q has unknown priority %q", ErrInvalidCatalog, key, p)
		}
	}

	seen := make(map[string]bool, len(raw.Rules))
	for _, rr := range raw.Rules {
		if rr.Key == "" {
			return nil, fmt.Errorf("%w: rule without key", ErrInvalidCatalog)
		}
		if seen[rr.Key] {
			return nil, fmt.Errorf("%w: duplicate rule key %q", ErrInvalidCatalog, rr.Key)
		}
		seen[rr.Key] = true
		trig, err := ParseTrigger(rr.Trigger)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", rr.Key, err)
		}
		c.rules = append(c.rules, CorrelationRule{
			Key:            rr.Key,
			Trigger:        trig,
			Message:        rr.Message,
			AffectedAgents: slices.Clone(rr.AffectedAgents),
			Category:       rr.Category,
			Priority:       model.ParsePriority(raw.Priorities[rr.Key]),
		})
	}

	for _, rc := range raw.Categories {
		if rc.Key == "" || rc.Weight <= 0 {
			return nil, fmt.Errorf("%w: category %q needs a key and a positive weight", ErrInvalidCatalog, rc.Key)
		}
		c.categories = append(c.categories, Category{
			Key:     rc.Key,
			Name:    rc.Name,
			Weight:  rc.Weight,
			Agents:  slices.Clone(rc.Agents),
			Metrics: slices.Clone(rc.Metrics),
		})
	}

	for metric, th := range raw.Thresholds {
		if th.Min > th.Optimal || th.Optimal > th.Max {
			return nil, fmt.Errorf("%w: threshold %q must satisfy min <= optimal <= max", ErrInvalidCatalog, metric)
		}
		c.thresholds[metric] = th
	}
	return c, nil
}

func buildTransform(rt rawTransform) (Transform, error) {
	t := Transform{
		Kind:    TransformKind(rt.Kind),
		Value:   rt.Value,
		Field:   rt.Field,
		Default: rt.Default,
		Other:   rt.Other,
		Then:    rt.Then,
		Else:    rt.Else,
	}
	if rt.Op != "" {
		op, err := ParseOperator(rt.Op)
		if err != nil {
			return Transform{}, err
		}
		t.Op = op
	}
	if err := t.validate(); err != nil {
		return Transform{}, err
	}
	return t, nil
}

// Mapping returns the fan-out mapping of an input type.
func (c *Catalog) Mapping(inputType string) (InputMapping, bool) {
	i, ok := c.byType[inputType]
	if !ok {
		return InputMapping{}, false
	}
	m := c.mappings[i]
	m.Secondary = slices.Clone(m.Secondary)
	return m, true
}

// InputTypes lists known input types in declaration order.
func (c *Catalog) InputTypes() []string {
	out := make([]string, len(c.mappings))
	for i, m := range c.mappings {
		out[i] = m.InputType
	}
	return out
}

// Rules returns the rule table in declaration order.
func (c *Catalog) Rules() []CorrelationRule {
	return slices.Clone(c.rules)
}

// Categories returns metric categories in declaration order.
func (c *Catalog) Categories() []Category {
	return slices.Clone(c.categories)
}

// Thresholds returns a copy of the metric thresholds.
func (c *Catalog) Thresholds() map[string]Threshold {
	out := make(map[string]Threshold, len(c.thresholds))
	for k, v := range c.thresholds {
		out[k] = v
	}
	return out
}
