package device

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Registry is the validated, read-only device catalogue.
//
// All methods are safe for concurrent use: nothing is written after
// NewRegistry returns, and every returned map or Type is a copy.
type Registry struct {
	types     map[string]*entry
	typeIDs   []string
	devices   map[string]string // device id → type id
	deviceIDs []string

	// telemetry maps each concrete telemetry topic back to its device.
	telemetry map[string]string
}

type entry struct {
	def    Type
	schema *gojsonschema.Schema
}

// NewRegistry validates a catalog and builds the registry from it.
//
// Construction fails with ErrInvalidCatalog when:
//   - a type lacks a "data" topic, or a topic for a command it has a rule for
//   - a template does not contain {device_id}
//   - a default value does not satisfy its rule
//   - a device references an unknown type, or ids are duplicated
//   - two devices resolve to the same telemetry topic
func NewRegistry(cat Catalog) (*Registry, error) {
	r := &Registry{
		types:     make(map[string]*entry, len(cat.Types)),
		devices:   make(map[string]string, len(cat.Devices)),
		telemetry: make(map[string]string, len(cat.Devices)),
	}

	for _, t := range cat.Types {
		e, err := compileType(t)
		if err != nil {
			return nil, err
		}
		if _, dup := r.types[t.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate type %q", ErrInvalidCatalog, t.ID)
		}
		r.types[t.ID] = e
		r.typeIDs = append(r.typeIDs, t.ID)
	}

	for _, d := range cat.Devices {
		if err := validateID("device", d.ID); err != nil {
			return nil, err
		}
		if _, dup := r.devices[d.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate device %q", ErrInvalidCatalog, d.ID)
		}
		e, ok := r.types[d.Type]
		if !ok {
			return nil, fmt.Errorf("%w: device %q references unknown type %q", ErrInvalidCatalog, d.ID, d.Type)
		}

		topic := expand(e.def.Topics[TelemetryKind], d.ID)
		if other, clash := r.telemetry[topic]; clash {
			return nil, fmt.Errorf("%w: devices %q and %q share telemetry topic %q", ErrInvalidCatalog, other, d.ID, topic)
		}
		r.telemetry[topic] = d.ID
		r.devices[d.ID] = d.Type
		r.deviceIDs = append(r.deviceIDs, d.ID)
	}

	sort.Strings(r.typeIDs)
	sort.Strings(r.deviceIDs)
	return r, nil
}

func compileType(t Type) (*entry, error) {
	if err := validateID("type", t.ID); err != nil {
		return nil, err
	}
	if _, ok := t.Topics[TelemetryKind]; !ok {
		return nil, fmt.Errorf("%w: type %q has no %q topic", ErrInvalidCatalog, t.ID, TelemetryKind)
	}
	if _, ok := t.Rules[TelemetryKind]; ok {
		return nil, fmt.Errorf("%w: type %q declares a rule for reserved kind %q", ErrInvalidCatalog, t.ID, TelemetryKind)
	}
	for kind, tmpl := range t.Topics {
		if !strings.Contains(tmpl, DevicePlaceholder) {
			return nil, fmt.Errorf("%w: type %q topic %q lacks %s", ErrInvalidCatalog, t.ID, kind, DevicePlaceholder)
		}
		if strings.ContainsAny(tmpl, "+#") {
			return nil, fmt.Errorf("%w: type %q topic %q contains a wildcard", ErrInvalidCatalog, t.ID, kind)
		}
	}
	for command := range t.Rules {
		if _, ok := t.Topics[command]; !ok {
			return nil, fmt.Errorf("%w: type %q has a rule but no topic for command %q", ErrInvalidCatalog, t.ID, command)
		}
	}

	schema, err := compileSchema(t.Rules)
	if err != nil {
		return nil, fmt.Errorf("type %q: %w", t.ID, err)
	}
	if len(t.Defaults) > 0 {
		if err := validateAgainst(schema, t.Defaults); err != nil {
			return nil, fmt.Errorf("%w: type %q defaults: %w", ErrInvalidCatalog, t.ID, err)
		}
	}

	def := t.clone()
	if def.Name == "" {
		def.Name = def.ID
	}
	if def.Defaults == nil {
		def.Defaults = map[string]any{}
	}
	return &entry{def: def, schema: schema}, nil
}

// expand substitutes the device id into a topic template.
func expand(template, deviceID string) string {
	return strings.ReplaceAll(template, DevicePlaceholder, deviceID)
}

// IsValid reports whether id is a registered device.
func (r *Registry) IsValid(id string) bool {
	_, ok := r.devices[id]
	return ok
}

// TypeOf returns the type of a registered device.
func (r *Registry) TypeOf(deviceID string) (Type, error) {
	typeID, ok := r.devices[deviceID]
	if !ok {
		return Type{}, fmt.Errorf("%w: %q", ErrUnknownDevice, deviceID)
	}
	return r.types[typeID].def.clone(), nil
}

// Type returns a device type by id.
func (r *Registry) Type(typeID string) (Type, error) {
	e, ok := r.types[typeID]
	if !ok {
		return Type{}, fmt.Errorf("%w: %q", ErrUnknownType, typeID)
	}
	return e.def.clone(), nil
}

// Rules returns the validation rules of a type.
func (r *Registry) Rules(typeID string) (map[string]Rule, error) {
	e, ok := r.types[typeID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typeID)
	}
	return cloneRules(e.def.Rules), nil
}

// Defaults returns the default settings of a type.
func (r *Registry) Defaults(typeID string) (map[string]any, error) {
	e, ok := r.types[typeID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typeID)
	}
	return DeepCopyMap(e.def.Defaults), nil
}

// Types returns every device type, sorted by id.
func (r *Registry) Types() []Type {
	types := make([]Type, 0, len(r.typeIDs))
	for _, id := range r.typeIDs {
		types = append(types, r.types[id].def.clone())
	}
	return types
}

// DeviceIDs returns every registered device id, sorted.
func (r *Registry) DeviceIDs() []string {
	return append([]string(nil), r.deviceIDs...)
}

// Topic resolves the concrete topic for a device and kind.
//
// Returns ErrUnknownDevice for unregistered ids and ErrUnknownCommand when the
// device's type defines no such kind.
func (r *Registry) Topic(deviceID, kind string) (string, error) {
	typeID, ok := r.devices[deviceID]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownDevice, deviceID)
	}
	e := r.types[typeID]
	if kind != TelemetryKind {
		if _, ok := e.def.Rules[kind]; !ok {
			return "", fmt.Errorf("%w: %q for type %q", ErrUnknownCommand, kind, typeID)
		}
	}
	return expand(e.def.Topics[kind], deviceID), nil
}

// TelemetryTopics returns the telemetry topic of every device, sorted.
func (r *Registry) TelemetryTopics() []string {
	topics := make([]string, 0, len(r.telemetry))
	for topic := range r.telemetry {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics
}

// DeviceFromTopic maps a telemetry topic back to its device id.
// Topics of unregistered devices report false.
func (r *Registry) DeviceFromTopic(topic string) (string, bool) {
	id, ok := r.telemetry[topic]
	return id, ok
}

// ValidateSettings checks every field of a settings change.
//
// Fields the type has no rule for fail with ErrUnknownCommand; otherwise all
// rule violations are reported together in a *ValidationError.
func (r *Registry) ValidateSettings(typeID string, settings map[string]any) error {
	e, ok := r.types[typeID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownType, typeID)
	}

	var unknown []string
	for field := range settings {
		if _, ok := e.def.Rules[field]; !ok {
			unknown = append(unknown, field)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%w: %s for type %q", ErrUnknownCommand, strings.Join(unknown, ", "), typeID)
	}

	return validateAgainst(e.schema, settings)
}
