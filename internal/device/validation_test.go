package device

import (
	"errors"
	"testing"
)

func TestValidateSetting_Threshold(t *testing.T) {
	r := testRegistry(t)

	tests := []struct {
		name    string
		value   any
		wantErr bool
	}{
		{"lower bound", 0, false},
		{"upper bound", 40, false},
		{"fractional", 22.5, false},
		{"json number", float64(25), false},
		{"above range", 50, true},
		{"below range", -0.5, true},
		{"wrong kind string", "22", true},
		{"wrong kind bool", true, true},
		{"null", nil, true},
		{"object", map[string]any{"v": 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.ValidateSettings("climate", map[string]any{"threshold": tt.value})
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateSettings(%v) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
			if err == nil {
				return
			}
			if !errors.Is(err, ErrInvalidSetting) {
				t.Errorf("error = %v, want ErrInvalidSetting", err)
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("error type = %T, want *ValidationError", err)
			}
			if _, ok := ve.Fields["threshold"]; !ok {
				t.Errorf("Fields = %v, want threshold entry", ve.Fields)
			}
		})
	}
}

func TestValidateSettings_AllKinds(t *testing.T) {
	cat := Catalog{
		Types: []Type{{
			ID: "thermostat",
			Topics: map[string]string{
				TelemetryKind: "devices/{device_id}/data",
				"setpoint":    "devices/{device_id}/setpoint",
				"fan_speed":   "devices/{device_id}/fan",
				"enabled":     "devices/{device_id}/enabled",
				"mode":        "devices/{device_id}/mode",
			},
			Rules: map[string]Rule{
				"setpoint":  {Kind: KindNumber, Min: floatPtr(5), Max: floatPtr(30)},
				"fan_speed": {Kind: KindInteger, Min: floatPtr(0), Max: floatPtr(3)},
				"enabled":   {Kind: KindBoolean},
				"mode":      {Kind: KindString},
			},
		}},
		Devices: []Instance{{ID: "tstat01", Type: "thermostat"}},
	}
	r, err := NewRegistry(cat)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	valid := map[string]any{"setpoint": 21.5, "fan_speed": 2, "enabled": false, "mode": "eco"}
	if err := r.ValidateSettings("thermostat", valid); err != nil {
		t.Errorf("ValidateSettings(valid) error = %v", err)
	}

	invalid := map[string]any{"setpoint": 31, "fan_speed": 1.5, "enabled": "yes", "mode": "eco"}
	err = r.ValidateSettings("thermostat", invalid)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("ValidateSettings(invalid) error = %v, want *ValidationError", err)
	}
	for _, field := range []string{"setpoint", "fan_speed", "enabled"} {
		if _, ok := ve.Fields[field]; !ok {
			t.Errorf("Fields missing %q: %v", field, ve.Fields)
		}
	}
	if _, ok := ve.Fields["mode"]; ok {
		t.Errorf("Fields should not report valid field mode: %v", ve.Fields)
	}
}

func TestValidateSettings_UnknownFieldIsUnknownCommand(t *testing.T) {
	r := testRegistry(t)

	err := r.ValidateSettings("climate", map[string]any{"threshold": 20, "colour": "red"})
	if !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("error = %v, want ErrUnknownCommand", err)
	}
	if errors.Is(err, ErrInvalidSetting) {
		t.Error("unknown command must not be classified as a validation error")
	}
}

func TestValidateSettings_UnknownType(t *testing.T) {
	r := testRegistry(t)
	if err := r.ValidateSettings("toaster", map[string]any{}); !errors.Is(err, ErrUnknownType) {
		t.Errorf("error = %v, want ErrUnknownType", err)
	}
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"b": "too big", "a": "wrong kind"}}
	want := "device: invalid setting: a: wrong kind; b: too big"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestValidateName(t *testing.T) {
	long := make([]byte, maxNameLength+1)
	for i := range long {
		long[i] = 'x'
	}

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "Living room sensor", false},
		{"empty", "", true},
		{"whitespace", "   ", true},
		{"too long", string(long), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidSetting) {
				t.Errorf("error = %v, want ErrInvalidSetting", err)
			}
		})
	}
}
