package device

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Validation constants.
const (
	maxIDLength   = 64
	maxNameLength = 100

	// rootField is how gojsonschema names the document itself.
	rootField = "(root)"
)

// buildSchema turns a type's rules into a JSON Schema document.
//
// Every property is optional so partial settings changes validate; fields
// without a rule are rejected as additional properties.
func buildSchema(rules map[string]Rule) (map[string]any, error) {
	properties := make(map[string]any, len(rules))
	for field, rule := range rules {
		prop := map[string]any{}
		switch rule.Kind {
		case KindNumber, KindInteger, KindBoolean, KindString:
			prop["type"] = string(rule.Kind)
		default:
			return nil, fmt.Errorf("%w: rule %q has unsupported kind %q", ErrInvalidCatalog, field, rule.Kind)
		}

		if rule.Min != nil || rule.Max != nil {
			if rule.Kind != KindNumber && rule.Kind != KindInteger {
				return nil, fmt.Errorf("%w: rule %q sets a range on kind %q", ErrInvalidCatalog, field, rule.Kind)
			}
			if rule.Min != nil && rule.Max != nil && *rule.Min > *rule.Max {
				return nil, fmt.Errorf("%w: rule %q has min above max", ErrInvalidCatalog, field)
			}
		}
		if rule.Min != nil {
			prop["minimum"] = *rule.Min
		}
		if rule.Max != nil {
			prop["maximum"] = *rule.Max
		}
		properties[field] = prop
	}

	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}, nil
}

func compileSchema(rules map[string]Rule) (*gojsonschema.Schema, error) {
	doc, err := buildSchema(rules)
	if err != nil {
		return nil, err
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("%w: compiling rules: %w", ErrInvalidCatalog, err)
	}
	return schema, nil
}

// validateAgainst checks a settings document against a compiled schema and
// returns a *ValidationError naming every rejected field.
func validateAgainst(schema *gojsonschema.Schema, settings map[string]any) error {
	result, err := schema.Validate(gojsonschema.NewGoLoader(settings))
	if err != nil {
		// The loader cannot encode the value (e.g. a channel or NaN).
		return &ValidationError{Fields: map[string]string{rootField: err.Error()}}
	}
	if result.Valid() {
		return nil
	}

	fields := make(map[string]string, len(result.Errors()))
	for _, re := range result.Errors() {
		field := re.Field()
		if field == rootField {
			if prop, ok := re.Details()["property"].(string); ok {
				field = prop
			}
		}
		if _, seen := fields[field]; !seen {
			fields[field] = re.Description()
		}
	}
	return &ValidationError{Fields: fields}
}

// validateID checks a device or type identifier. Identifiers become topic
// levels, so MQTT separators and wildcards are not allowed.
func validateID(what, id string) error {
	if id == "" {
		return fmt.Errorf("%w: %s id is required", ErrInvalidCatalog, what)
	}
	if len(id) > maxIDLength {
		return fmt.Errorf("%w: %s id %q exceeds %d characters", ErrInvalidCatalog, what, id, maxIDLength)
	}
	if strings.ContainsAny(id, "/+# ") {
		return fmt.Errorf("%w: %s id %q contains a topic separator, wildcard or space", ErrInvalidCatalog, what, id)
	}
	return nil
}

// ValidateName checks a user-supplied display name.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return &ValidationError{Fields: map[string]string{"name": "must not be empty"}}
	}
	if len(trimmed) > maxNameLength {
		return &ValidationError{Fields: map[string]string{"name": fmt.Sprintf("must be at most %d characters", maxNameLength)}}
	}
	return nil
}
