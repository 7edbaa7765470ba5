package inels

// State keys used in platform state maps.
const (
	StateKeyOn          = "on"
	StateKeyLevel       = "level"
	StateKeyPosition    = "position"
	StateKeyBattery     = "battery"
	StateKeyTemperature = "temperature"
	StateKeySetpoint    = "setpoint"
	StateKeyTempIn      = "temperature_in"
	StateKeyTempOut     = "temperature_out"
	StateKeyRaw         = "raw"
	StateKeyAvailable   = "available"
)

// State renders the semantic value as a platform state map.
//
//	switch:  {"on": true}
//	light:   {"on": true, "level": 20}
//	cover:   {"position": "open"}
//	climate: {"battery": 100, "temperature": 21.5, "setpoint": 22}
//	sensor:  {"raw": "00\nB4\n..."} plus decoded readings when the model is known
//	button:  {"raw": "..."}
func (v *Value) State() map[string]any {
	state := make(map[string]any)

	switch s := v.semantic.(type) {
	case bool:
		state[StateKeyOn] = s
	case int:
		state[StateKeyOn] = s > 0
		state[StateKeyLevel] = s
	case CoverState:
		state[StateKeyPosition] = string(s)
	case Climate:
		state[StateKeyBattery] = s.Battery
		state[StateKeyTemperature] = s.Current
		state[StateKeySetpoint] = s.Required
	case string:
		state[StateKeyRaw] = s
		if v.deviceType == DeviceTypeSensor {
			if r, err := DecodeSensor(v.model, s); err == nil {
				state[StateKeyBattery] = r.Battery
				state[StateKeyTempIn] = r.TempIn
				state[StateKeyTempOut] = r.TempOut
			}
		}
	}

	return state
}

// SemanticFromState rebuilds a semantic value from a persisted state map,
// so the previous-value fallback survives restarts. It returns nil when
// the state does not carry a value for the device type.
//
// Numbers decoded from JSON arrive as float64; all numeric types are
// accepted.
func SemanticFromState(t DeviceType, state map[string]any) any {
	if len(state) == 0 {
		return nil
	}

	switch t {
	case DeviceTypeSwitch:
		if on, ok := state[StateKeyOn].(bool); ok {
			return on
		}
	case DeviceTypeLight:
		if level, ok := asLevel(state[StateKeyLevel]); ok {
			return level
		}
	case DeviceTypeCover:
		if pos, ok := asCoverState(state[StateKeyPosition]); ok {
			return pos
		}
	case DeviceTypeClimate:
		current, okCur := asFloat(state[StateKeyTemperature])
		required, okReq := asFloat(state[StateKeySetpoint])
		if !okCur || !okReq {
			return nil
		}
		battery, _ := asFloat(state[StateKeyBattery])
		return Climate{Battery: int(battery), Current: current, Required: required}
	case DeviceTypeSensor, DeviceTypeButton:
		if raw, ok := state[StateKeyRaw].(string); ok {
			return raw
		}
	}
	return nil
}
