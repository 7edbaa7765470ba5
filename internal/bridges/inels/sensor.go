package inels

import "fmt"

// SensorReading holds the decoded sub-readings of a temperature sensor.
type SensorReading struct {
	Battery int     `json:"battery"`
	TempIn  float64 `json:"temperature_in"`
	TempOut float64 `json:"temperature_out"`
}

// DecodeSensor decodes a sensor status payload into its sub-readings.
// The translator passes sensor payloads through unchanged; this is used
// for telemetry and richer state messages.
//
// Example (RFTI-10B): "00\nB4\n0A\n6E\n0A\n" → battery 0, in 27.40 °C, out 26.70 °C
func DecodeSensor(m Model, raw string) (SensorReading, error) {
	if m == "" {
		m = defaultModelFor(DeviceTypeSensor)
	}
	schema, ok := sensorModels[m]
	if !ok {
		return SensorReading{}, fmt.Errorf("%w: sensor model %q", ErrUnsupportedDevice, m)
	}

	tokens := Tokens(raw)
	if len(tokens) < schema.size() {
		return SensorReading{}, fmt.Errorf("%w: %s needs %d tokens, got %d", ErrMalformedPayload, m, schema.size(), len(tokens))
	}

	battery, err := decodeHexGroup(tokens, schema.battery)
	if err != nil {
		return SensorReading{}, err
	}
	tempIn, err := decodeHexGroup(tokens, schema.tempIn)
	if err != nil {
		return SensorReading{}, err
	}
	tempOut, err := decodeHexGroup(tokens, schema.tempOut)
	if err != nil {
		return SensorReading{}, err
	}

	return SensorReading{
		Battery: battery,
		TempIn:  float64(tempIn) / sensorTempDivisor,
		TempOut: float64(tempOut) / sensorTempDivisor,
	}, nil
}
