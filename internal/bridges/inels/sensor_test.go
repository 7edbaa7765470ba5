package inels

import (
	"errors"
	"testing"
)

func TestDecodeSensor(t *testing.T) {
	got, err := DecodeSensor(ModelRFTI10B, "00\nB4\n0A\n6E\n0A\n")
	if err != nil {
		t.Fatalf("DecodeSensor() error: %v", err)
	}
	want := SensorReading{Battery: 0, TempIn: 27.4, TempOut: 26.7}
	if got != want {
		t.Errorf("DecodeSensor() = %+v, want %+v", got, want)
	}
}

func TestDecodeSensorErrors(t *testing.T) {
	if _, err := DecodeSensor(ModelRFTI10B, "00\nB4\n"); !errors.Is(err, ErrMalformedPayload) {
		t.Errorf("short payload error = %v, want ErrMalformedPayload", err)
	}
	if _, err := DecodeSensor("RFTC-10", "00\nB4\n0A\n6E\n0A\n"); !errors.Is(err, ErrUnsupportedDevice) {
		t.Errorf("unknown model error = %v, want ErrUnsupportedDevice", err)
	}
}

func TestValueState(t *testing.T) {
	tests := []struct {
		name  string
		dt    DeviceType
		raw   string
		key   string
		value any
	}{
		{"switch", DeviceTypeSwitch, "02\n01\n", StateKeyOn, true},
		{"light level", DeviceTypeLight, "C9\n4F\n", StateKeyLevel, 20},
		{"light on", DeviceTypeLight, "C9\n4F\n", StateKeyOn, true},
		{"light off", DeviceTypeLight, "FF\nFF\n", StateKeyOn, false},
		{"cover", DeviceTypeCover, "03\n00\n", StateKeyPosition, "closed"},
		{"climate", DeviceTypeClimate, "64\n14\n2B\n", StateKeySetpoint, 21.5},
		{"sensor raw", DeviceTypeSensor, "00\nB4\n0A\n6E\n0A\n", StateKeyRaw, "00\nB4\n0A\n6E\n0A\n"},
		{"sensor decoded", DeviceTypeSensor, "00\nB4\n0A\n6E\n0A\n", StateKeyTempIn, 27.4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := FromStatus(tt.dt, "", tt.raw, nil)
			if err != nil {
				t.Fatalf("FromStatus() error: %v", err)
			}
			if got := v.State()[tt.key]; got != tt.value {
				t.Errorf("State()[%q] = %v (%T), want %v (%T)", tt.key, got, got, tt.value, tt.value)
			}
		})
	}
}

func TestSemanticFromState(t *testing.T) {
	tests := []struct {
		name  string
		dt    DeviceType
		state map[string]any
		want  any
	}{
		{"switch", DeviceTypeSwitch, map[string]any{"on": true}, true},
		{"light from JSON float", DeviceTypeLight, map[string]any{"level": 40.0}, 40},
		{"cover", DeviceTypeCover, map[string]any{"position": "open"}, CoverOpen},
		{"climate", DeviceTypeClimate,
			map[string]any{"battery": 100.0, "temperature": 19.5, "setpoint": 21.0},
			Climate{Battery: 100, Current: 19.5, Required: 21}},
		{"sensor", DeviceTypeSensor, map[string]any{"raw": "00\n"}, "00\n"},
		{"missing key", DeviceTypeSwitch, map[string]any{"level": 10}, nil},
		{"empty", DeviceTypeCover, nil, nil},
		{"bad cover", DeviceTypeCover, map[string]any{"position": "ajar"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SemanticFromState(tt.dt, tt.state); got != tt.want {
				t.Errorf("SemanticFromState() = %v (%T), want %v (%T)", got, got, tt.want, tt.want)
			}
		})
	}
}
