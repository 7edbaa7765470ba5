package inels

import (
	"encoding/json"
	"fmt"
	"math"
)

// lightStep is the quantisation step of the dimmer brightness table.
const lightStep = 10

// Climate is the composite semantic value of a thermostat.
type Climate struct {
	// Battery is the raw battery indicator reported by the device.
	Battery int `json:"battery"`

	// Current is the measured temperature in °C.
	Current float64 `json:"current"`

	// Required is the target temperature in °C.
	Required float64 `json:"required"`
}

// Input is a single translation request. Exactly one of Status and
// Semantic must be set; the other is derived.
type Input struct {
	Type  DeviceType
	Model Model // empty selects the type's default model

	// Status is the raw status payload received from the broker.
	// nil means absent; an empty non-nil slice is a (malformed) payload.
	Status []byte

	// Semantic is the platform-facing value to translate to broker form:
	//   switch: bool
	//   light: brightness percent (any numeric type)
	//   cover: CoverState or its string form
	//   climate: Climate, *Climate, or a bare number for the required temperature
	//   sensor, button: the raw payload string
	Semantic any

	// Previous is the last known semantic value of the device, used as a
	// fallback when a table has no entry for the requested value.
	Previous any
}

// Value is the result of one translation: the status payload, the
// semantic value and the set payload of a device, all filled in together.
// A Value is immutable once returned.
type Value struct {
	deviceType DeviceType
	model      Model
	status     string
	hasStatus  bool
	semantic   any
	set        string
	hasSet     bool
	previous   any
	fellBack   bool
}

// Type returns the device type the value was translated for.
func (v *Value) Type() DeviceType { return v.deviceType }

// Model returns the device model the value was translated for.
func (v *Value) Model() Model { return v.model }

// Status returns the raw status payload. For values translated from a
// status payload this is the payload as received.
func (v *Value) Status() (string, bool) { return v.status, v.hasStatus }

// Semantic returns the semantic value.
func (v *Value) Semantic() any { return v.semantic }

// SetPayload returns the command that drives the device to this value.
// Read-only devices have none.
func (v *Value) SetPayload() (string, bool) { return v.set, v.hasSet }

// Previous returns the previous semantic value supplied with the request.
func (v *Value) Previous() any { return v.previous }

// FellBack reports whether the previous value was substituted because a
// table had no entry for the requested one.
func (v *Value) FellBack() bool { return v.fellBack }

// Translator converts between raw iNels payloads and semantic values.
//
// Translation itself is pure; the translator only holds an optional
// logger for previous-value fallbacks. The zero value and a nil
// *Translator are ready to use. Safe for concurrent use.
type Translator struct {
	logger Logger
}

// NewTranslator creates a translator that logs fallbacks to logger.
// logger may be nil.
func NewTranslator(logger Logger) *Translator {
	return &Translator{logger: logger}
}

// defaultTranslator backs the package-level helpers and never logs.
var defaultTranslator = &Translator{}

// Translate converts in using a translator without a logger.
func Translate(in Input) (*Value, error) {
	return defaultTranslator.Translate(in)
}

// FromStatus translates a raw status payload using a translator without a logger.
func FromStatus(t DeviceType, m Model, status string, previous any) (*Value, error) {
	return defaultTranslator.FromStatus(t, m, status, previous)
}

// FromSemantic translates a semantic value using a translator without a logger.
func FromSemantic(t DeviceType, m Model, semantic, previous any) (*Value, error) {
	return defaultTranslator.FromSemantic(t, m, semantic, previous)
}

// Translate dispatches to FromStatus or FromSemantic depending on which
// side of in is set. Supplying both or neither fails with ErrInvalidInput.
func (tr *Translator) Translate(in Input) (*Value, error) {
	hasStatus := in.Status != nil
	hasSemantic := in.Semantic != nil
	if hasStatus == hasSemantic {
		return nil, ErrInvalidInput
	}
	if hasStatus {
		return tr.FromStatus(in.Type, in.Model, string(in.Status), in.Previous)
	}
	return tr.FromSemantic(in.Type, in.Model, in.Semantic, in.Previous)
}

// FromStatus derives the semantic value and set payload from a raw status
// payload received on the broker.
func (tr *Translator) FromStatus(t DeviceType, m Model, status string, previous any) (*Value, error) {
	v, err := newValue(t, m, previous)
	if err != nil {
		return nil, err
	}
	v.status, v.hasStatus = status, true

	switch v.deviceType {
	case DeviceTypeSwitch:
		err = tr.switchFromStatus(v)
	case DeviceTypeCover:
		err = tr.coverFromStatus(v)
	case DeviceTypeLight:
		err = tr.lightFromStatus(v)
	case DeviceTypeClimate:
		err = climateFromStatus(v)
	case DeviceTypeSensor, DeviceTypeButton:
		v.semantic = status
	default:
		err = fmt.Errorf("%w: type %q", ErrUnsupportedDevice, t)
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// FromSemantic derives the status payload and set payload for a semantic
// value requested by the platform.
func (tr *Translator) FromSemantic(t DeviceType, m Model, semantic, previous any) (*Value, error) {
	v, err := newValue(t, m, previous)
	if err != nil {
		return nil, err
	}

	switch v.deviceType {
	case DeviceTypeSwitch:
		err = tr.switchFromSemantic(v, semantic)
	case DeviceTypeCover:
		err = tr.coverFromSemantic(v, semantic)
	case DeviceTypeLight:
		err = tr.lightFromSemantic(v, semantic)
	case DeviceTypeClimate:
		err = climateFromSemantic(v, semantic)
	case DeviceTypeSensor, DeviceTypeButton:
		raw, ok := semantic.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s value must be a raw payload string, got %T", ErrUnsupportedValue, t, semantic)
		}
		v.semantic = raw
		v.status, v.hasStatus = raw, true
	default:
		err = fmt.Errorf("%w: type %q", ErrUnsupportedDevice, t)
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// newValue validates the type/model pair and starts a result.
func newValue(t DeviceType, m Model, previous any) (*Value, error) {
	if !t.IsValid() {
		return nil, fmt.Errorf("%w: type %q", ErrUnsupportedDevice, t)
	}
	if m == "" {
		m = defaultModelFor(t)
	}
	return &Value{deviceType: t, model: m, previous: previous}, nil
}

// ─── Switch ───────────────────────────────────────────────────────

func (tr *Translator) switchFromStatus(v *Value) error {
	on, fellBack, err := lookupSemantic(tr, v, switchStatus, asBool)
	if err != nil {
		return err
	}
	v.semantic, v.fellBack = on, fellBack
	v.set, v.hasSet = switchSet[on], true
	return nil
}

func (tr *Translator) switchFromSemantic(v *Value, semantic any) error {
	on, ok := asBool(semantic)
	if !ok {
		return fmt.Errorf("%w: switch value must be bool, got %T", ErrUnsupportedValue, semantic)
	}
	status, fellBack, err := lookupRaw(tr, v, switchStatus, on, asBool)
	if err != nil {
		return err
	}
	v.semantic, v.fellBack = on, fellBack
	v.status, v.hasStatus = status, true
	v.set, v.hasSet = switchSet[on], true
	return nil
}

// ─── Cover ────────────────────────────────────────────────────────

func (tr *Translator) coverFromStatus(v *Value) error {
	tables, ok := coverModels[v.model]
	if !ok {
		return fmt.Errorf("%w: cover model %q", ErrUnsupportedDevice, v.model)
	}
	state, fellBack, err := lookupSemantic(tr, v, tables.status, asCoverState)
	if err != nil {
		// A stop target never shows up in a status payload but is still a
		// usable previous value: the cover stays where it was told.
		prev, ok := asCoverState(v.previous)
		if !ok || !isStopState(prev) {
			return err
		}
		tr.warnFallback(v, tables.status.name, v.status, prev)
		state, fellBack = prev, true
	}
	v.semantic, v.fellBack = state, fellBack
	v.set, v.hasSet = tables.set[state]
	return nil
}

func isStopState(s CoverState) bool {
	return s == CoverStopDown || s == CoverStopUp
}

func (tr *Translator) coverFromSemantic(v *Value, semantic any) error {
	tables, ok := coverModels[v.model]
	if !ok {
		return fmt.Errorf("%w: cover model %q", ErrUnsupportedDevice, v.model)
	}
	target, ok := asCoverState(semantic)
	if !ok {
		return fmt.Errorf("%w: cover value %v", ErrUnsupportedValue, semantic)
	}
	set, ok := tables.set[target]
	if !ok {
		return fmt.Errorf("%w: %s has no command for %q", ErrUnsupportedValue, v.model, target)
	}

	// Stop targets have no status entry, so the status comes from the
	// previous value and the reported state is whatever that status means.
	status, fellBack, err := lookupRaw(tr, v, tables.status, target, asCoverState)
	if err != nil {
		return err
	}
	state := target
	if fellBack {
		state = tables.status.toSemantic[status]
	}

	v.semantic, v.fellBack = state, fellBack
	v.status, v.hasStatus = status, true
	v.set, v.hasSet = set, true
	return nil
}

// ─── Light ────────────────────────────────────────────────────────

func (tr *Translator) lightFromStatus(v *Value) error {
	table, ok := lightModels[v.model]
	if !ok {
		return fmt.Errorf("%w: light model %q", ErrUnsupportedDevice, v.model)
	}
	level, fellBack, err := lookupSemantic(tr, v, table, asLevel)
	if err != nil {
		return err
	}
	raw, _ := table.raw(level)
	v.semantic, v.fellBack = level, fellBack
	v.set, v.hasSet = lightSetPayload(raw), true
	return nil
}

func (tr *Translator) lightFromSemantic(v *Value, semantic any) error {
	table, ok := lightModels[v.model]
	if !ok {
		return fmt.Errorf("%w: light model %q", ErrUnsupportedDevice, v.model)
	}
	level, ok := asLevel(semantic)
	if !ok {
		return fmt.Errorf("%w: light value must be numeric, got %T", ErrUnsupportedValue, semantic)
	}
	status, fellBack, err := lookupRaw(tr, v, table, level, asLevel)
	if err != nil {
		return err
	}
	v.semantic, v.fellBack = table.toSemantic[status], fellBack
	v.status, v.hasStatus = status, true
	v.set, v.hasSet = lightSetPayload(status), true
	return nil
}

// ─── Climate ──────────────────────────────────────────────────────

func climateFromStatus(v *Value) error {
	schema, ok := climateModels[v.model]
	if !ok {
		return fmt.Errorf("%w: climate model %q", ErrUnsupportedDevice, v.model)
	}
	tokens := Tokens(v.status)
	if len(tokens) < schema.size() {
		return fmt.Errorf("%w: %s needs %d tokens, got %d", ErrMalformedPayload, v.model, schema.size(), len(tokens))
	}

	battery, err := decodeHexGroup(tokens, schema.battery)
	if err != nil {
		return err
	}
	current, err := decodeHexGroup(tokens, schema.current)
	if err != nil {
		return err
	}
	required, err := decodeHexGroup(tokens, schema.required)
	if err != nil {
		return err
	}

	c := Climate{
		Battery:  battery,
		Current:  float64(current) * climateTempUnit,
		Required: float64(required) * climateTempUnit,
	}
	set, err := climateSetPayload(c.Required)
	if err != nil {
		return err
	}
	v.semantic = c
	v.set, v.hasSet = set, true
	return nil
}

func climateFromSemantic(v *Value, semantic any) error {
	schema, ok := climateModels[v.model]
	if !ok {
		return fmt.Errorf("%w: climate model %q", ErrUnsupportedDevice, v.model)
	}

	var c Climate
	if full, ok := asClimate(semantic); ok {
		c = full
	} else if required, ok := asFloat(semantic); ok {
		// A bare number only changes the target; the rest comes from the
		// last reading, if any.
		c, _ = asClimate(v.previous)
		c.Required = required
	} else {
		return fmt.Errorf("%w: climate value %T", ErrUnsupportedValue, semantic)
	}

	set, err := climateSetPayload(c.Required)
	if err != nil {
		return err
	}

	tokens := make([]string, schema.size())
	for i := range tokens {
		tokens[i] = hexToken(0)
	}
	fields := []struct {
		group []int
		raw   int
	}{
		{schema.battery, c.Battery},
		{schema.current, climateRawUnits(c.Current)},
		{schema.required, climateRawUnits(c.Required)},
	}
	for _, f := range fields {
		if err := encodeHexGroup(tokens, f.group, f.raw); err != nil {
			return err
		}
	}

	v.semantic = c
	v.status, v.hasStatus = JoinPayload(tokens), true
	v.set, v.hasSet = set, true
	return nil
}

// climateRawUnits converts a temperature to raw half-degree units.
func climateRawUnits(temp float64) int {
	return int(math.RoundToEven(temp / climateTempUnit))
}

// climateSetPayload builds the command that sets a thermostat target.
//
// Example: 21.5 → "00 2B 00"
func climateSetPayload(required float64) (string, error) {
	if math.IsNaN(required) {
		return "", fmt.Errorf("%w: required temperature is NaN", ErrUnsupportedValue)
	}
	raw := climateRawUnits(required)
	if raw < 0 || raw > maxByte {
		return "", fmt.Errorf("%w: required temperature %.1f out of range", ErrUnsupportedValue, required)
	}
	return CommandPayload(hexToken(0), hexToken(raw), hexToken(0)), nil
}

// ─── Lookup with previous-value fallback ──────────────────────────

// lookupSemantic maps v's status payload through table. When the payload
// is not in the table, the previous value is used instead.
func lookupSemantic[S comparable](tr *Translator, v *Value, table *lookupTable[S], conv func(any) (S, bool)) (S, bool, error) {
	if s, ok := table.semantic(v.status); ok {
		return s, false, nil
	}
	if prev, ok := conv(v.previous); ok {
		if _, known := table.raw(prev); known {
			tr.warnFallback(v, table.name, v.status, prev)
			return prev, true, nil
		}
	}
	var zero S
	return zero, false, fmt.Errorf("%w: %s has no entry for %q", ErrUnsupportedValue, table.name, v.status)
}

// lookupRaw finds the status payload for want. When want is not in the
// table, the status payload of the previous value is used instead. The
// order matters: the requested value always wins over the previous one.
func lookupRaw[S comparable](tr *Translator, v *Value, table *lookupTable[S], want S, conv func(any) (S, bool)) (string, bool, error) {
	if raw, ok := table.raw(want); ok {
		return raw, false, nil
	}
	if prev, ok := conv(v.previous); ok {
		if raw, ok := table.raw(prev); ok {
			tr.warnFallback(v, table.name, want, prev)
			return raw, true, nil
		}
	}
	return "", false, fmt.Errorf("%w: %s has no entry for %v", ErrUnsupportedValue, table.name, want)
}

func (tr *Translator) warnFallback(v *Value, table string, requested, previous any) {
	if tr == nil || tr.logger == nil {
		return
	}
	tr.logger.Warn("value not in table, using previous value",
		"table", table,
		"device_type", v.deviceType,
		"model", v.model,
		"requested", requested,
		"previous", previous)
}

// ─── Semantic value conversions ───────────────────────────────────

func asBool(x any) (bool, bool) {
	b, ok := x.(bool)
	return b, ok
}

// asLevel converts a numeric brightness to the nearest table step.
// Halfway values round to the even step, so 25 → 20 and 35 → 40.
func asLevel(x any) (int, bool) {
	f, ok := asFloat(x)
	if !ok {
		return 0, false
	}
	return int(math.RoundToEven(f/lightStep)) * lightStep, true
}

func asFloat(x any) (float64, bool) {
	var f float64
	switch n := x.(type) {
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case float64:
		f = n
	case float32:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func asCoverState(x any) (CoverState, bool) {
	var s CoverState
	switch c := x.(type) {
	case CoverState:
		s = c
	case string:
		s = CoverState(c)
	default:
		return "", false
	}
	switch s {
	case CoverOpen, CoverClosed, CoverStopDown, CoverStopUp:
		return s, true
	default:
		return "", false
	}
}

func asClimate(x any) (Climate, bool) {
	switch c := x.(type) {
	case Climate:
		return c, true
	case *Climate:
		if c == nil {
			return Climate{}, false
		}
		return *c, true
	default:
		return Climate{}, false
	}
}
