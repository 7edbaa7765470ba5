package inels

import "strings"

// lookupTable is an immutable bidirectional map between canonical raw
// status payloads and semantic values. Both directions are built once,
// when the package is initialised.
type lookupTable[S comparable] struct {
	name       string
	toSemantic map[string]S
	toRaw      map[S]string
}

// tableEntry is one raw ↔ semantic pair of a lookup table.
type tableEntry[S comparable] struct {
	raw      string
	semantic S
}

// newLookupTable builds both directions of a table. When several raw
// payloads map to the same semantic value, the reverse direction keeps
// the first one listed.
func newLookupTable[S comparable](name string, entries ...tableEntry[S]) *lookupTable[S] {
	t := &lookupTable[S]{
		name:       name,
		toSemantic: make(map[string]S, len(entries)),
		toRaw:      make(map[S]string, len(entries)),
	}
	for _, e := range entries {
		raw := canonicalPayload(e.raw)
		t.toSemantic[raw] = e.semantic
		if _, exists := t.toRaw[e.semantic]; !exists {
			t.toRaw[e.semantic] = raw
		}
	}
	return t
}

// semantic looks up the semantic value for a raw payload.
func (t *lookupTable[S]) semantic(raw string) (S, bool) {
	s, ok := t.toSemantic[canonicalPayload(raw)]
	return s, ok
}

// raw looks up the raw payload for a semantic value.
func (t *lookupTable[S]) raw(s S) (string, bool) {
	r, ok := t.toRaw[s]
	return r, ok
}

// ─── Switch (type 02) ─────────────────────────────────────────────

// switchStatus maps RFSC-61 status payloads to on/off.
var switchStatus = newLookupTable("switch status",
	tableEntry[bool]{"02\n01\n", true},
	tableEntry[bool]{"02\n00\n", false},
)

// switchSet holds the command that drives a switch to each state.
var switchSet = map[bool]string{
	true:  "01\n00\n00\n",
	false: "02\n00\n00\n",
}

// ─── Cover (type 03) ──────────────────────────────────────────────

// CoverState is the semantic state of a shutter.
type CoverState string

// Cover states. Only open and closed are ever reported by the device;
// the stop states exist as command targets.
const (
	CoverOpen     CoverState = "open"
	CoverClosed   CoverState = "closed"
	CoverStopDown CoverState = "stop_down"
	CoverStopUp   CoverState = "stop_up"
)

// coverTables holds the status and command tables per cover model.
type coverTables struct {
	status *lookupTable[CoverState]
	set    map[CoverState]string
}

var coverModels = map[Model]coverTables{
	ModelRFJA12: {
		status: newLookupTable("RFJA-12 status",
			tableEntry[CoverState]{"03\n01\n", CoverOpen},
			tableEntry[CoverState]{"03\n00\n", CoverClosed},
		),
		set: map[CoverState]string{
			CoverOpen:     "02 00 00",
			CoverClosed:   "01 00 00",
			CoverStopDown: "03 00 00",
			CoverStopUp:   "05 00 00",
		},
	},
}

// ─── Light (type 05) ──────────────────────────────────────────────

// lightSetPrefix is the command byte prepended to the status tokens to
// form a dimmer set command.
const lightSetPrefix = "01"

// lightModels holds the quantised brightness table per dimmer model.
var lightModels = map[Model]*lookupTable[int]{
	ModelRFDAC71B: newLookupTable("RFDAC-71B brightness",
		tableEntry[int]{"FF\nFF\n", 0},
		tableEntry[int]{"E4\nA7\n", 10},
		tableEntry[int]{"C9\n4F\n", 20},
		tableEntry[int]{"AD\nF7\n", 30},
		tableEntry[int]{"92\n9F\n", 40},
		tableEntry[int]{"77\n47\n", 50},
		tableEntry[int]{"5B\nEF\n", 60},
		tableEntry[int]{"40\n97\n", 70},
		tableEntry[int]{"25\n3F\n", 80},
		tableEntry[int]{"09\nE7\n", 90},
		tableEntry[int]{"00\n00\n", 100},
	),
}

// lightSetPayload builds the dimmer command for a table status payload.
//
// Example: "C9\n4F\n" → "01 C9 4F"
func lightSetPayload(status string) string {
	return CommandPayload(append([]string{lightSetPrefix}, Tokens(status)...)...)
}

// ─── Climate (type 09) ────────────────────────────────────────────

// climateTempUnit is the temperature represented by one raw unit.
const climateTempUnit = 0.5

// climateSchema names the token groups of a thermostat status payload.
type climateSchema struct {
	battery  []int
	current  []int
	required []int
}

var climateModels = map[Model]climateSchema{
	ModelRFATV2: {
		battery:  []int{0},
		current:  []int{1},
		required: []int{2},
	},
}

// size returns the number of tokens a status payload must carry.
func (s climateSchema) size() int {
	return requiredTokens(s.battery, s.current, s.required)
}

// ─── Sensor (type 10) ─────────────────────────────────────────────

// sensorTempDivisor converts raw sensor temperature units to degrees.
const sensorTempDivisor = 100.0

// sensorSchema names the token groups of a temperature sensor payload.
// Multi-token groups are listed most significant token first.
type sensorSchema struct {
	battery []int
	tempIn  []int
	tempOut []int
}

var sensorModels = map[Model]sensorSchema{
	ModelRFTI10B: {
		battery: []int{0},
		tempIn:  []int{2, 1},
		tempOut: []int{4, 3},
	},
}

// size returns the number of tokens a status payload must carry.
func (s sensorSchema) size() int {
	return requiredTokens(s.battery, s.tempIn, s.tempOut)
}

// ─── Model resolution ─────────────────────────────────────────────

// defaultModelFor returns the model assumed for a device type when the
// caller does not name one.
func defaultModelFor(t DeviceType) Model {
	for code, dt := range typeCodes {
		if dt == t {
			return defaultModels[code]
		}
	}
	return ""
}

// ParseModel normalises a model name from configuration or an API request.
func ParseModel(s string) Model {
	return Model(strings.ToUpper(strings.TrimSpace(s)))
}
