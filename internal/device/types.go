package device

import "sort"

// TelemetryKind is the topic kind devices publish their telemetry on.
const TelemetryKind = "data"

// DevicePlaceholder is substituted with the device id in topic templates.
const DevicePlaceholder = "{device_id}"

// RuleKind is the expected JSON kind of a settings value.
type RuleKind string

// Supported rule kinds.
const (
	KindNumber  RuleKind = "number"
	KindInteger RuleKind = "integer"
	KindBoolean RuleKind = "boolean"
	KindString  RuleKind = "string"
)

// Rule constrains a single settings field.
// Min and Max apply to number and integer kinds only.
type Rule struct {
	Kind RuleKind `yaml:"kind" json:"kind"`
	Min  *float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max  *float64 `yaml:"max,omitempty" json:"max,omitempty"`
}

// Type describes a class of device: its topics, default settings and rules.
type Type struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`

	// Topics maps a kind ("data" or a command name) to a topic template.
	Topics map[string]string `yaml:"topics" json:"topics"`

	Defaults map[string]any  `yaml:"defaults" json:"defaults"`
	Rules    map[string]Rule `yaml:"rules" json:"rules"`
}

// Commands returns the sorted command names the type accepts.
func (t Type) Commands() []string {
	commands := make([]string, 0, len(t.Rules))
	for name := range t.Rules {
		if name == TelemetryKind {
			continue
		}
		commands = append(commands, name)
	}
	sort.Strings(commands)
	return commands
}

// clone returns a copy sharing no maps with t.
func (t Type) clone() Type {
	cpy := t
	cpy.Topics = make(map[string]string, len(t.Topics))
	for k, v := range t.Topics {
		cpy.Topics[k] = v
	}
	cpy.Defaults = DeepCopyMap(t.Defaults)
	cpy.Rules = cloneRules(t.Rules)
	return cpy
}

func cloneRules(rules map[string]Rule) map[string]Rule {
	cpy := make(map[string]Rule, len(rules))
	for k, r := range rules {
		if r.Min != nil {
			v := *r.Min
			r.Min = &v
		}
		if r.Max != nil {
			v := *r.Max
			r.Max = &v
		}
		cpy[k] = r
	}
	return cpy
}

// Instance is a catalog entry for one physical device.
type Instance struct {
	ID   string `yaml:"id" json:"id"`
	Type string `yaml:"type" json:"type"`
}

// Catalog is the raw, unvalidated registry content.
type Catalog struct {
	Types   []Type     `yaml:"types"`
	Devices []Instance `yaml:"devices"`
}

// DeepCopyMap creates a deep copy of a decoded JSON or YAML document.
// Nested maps and slices are recursively copied.
func DeepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = deepCopyValue(v)
	}
	return cpy
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return DeepCopyMap(val)
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = deepCopyValue(elem)
		}
		return cpy
	default:
		return v
	}
}
