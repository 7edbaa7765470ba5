// Package inels implements the iNels protocol bridge for Gray Logic.
//
// The iNels gateway publishes device status on MQTT topics of the form
//
//	<domain>/<status|set|connected>/<serial>/<type code>/<unique id>
//
// with payloads made of newline-terminated hex tokens ("02\n01\n").
// This package translates those payloads to semantic values (on/off,
// brightness, cover position, thermostat readings) and back, and runs a
// bridge that mirrors them onto Core's graylogic/* topics.
//
// # Architecture
//
//	┌─────────────────┐          ┌─────────────────┐          ┌──────────────┐
//	│   Gray Logic    │   MQTT   │   iNels Bridge  │   MQTT   │ iNels gateway│
//	│      Core       │◄────────►│   (this pkg)    │◄────────►│  (inels/#)   │
//	└─────────────────┘          └─────────────────┘          └──────────────┘
//
// # Translation
//
// The translator is table-driven and pure. Given a device type, a model
// and either a status payload or a semantic value, it derives the other
// side plus the set payload that drives the device:
//
//	v, err := inels.FromStatus(inels.DeviceTypeLight, inels.ModelRFDAC71B, "C9\n4F\n", nil)
//	// v.Semantic() == 20, set payload "01 C9 4F"
//
// When a table has no entry for the requested value, the previous
// semantic value of the device is used instead and a warning is logged.
// Only if that also fails does translation return ErrUnsupportedValue.
//
// # Error handling
//
//   - ErrUnrecognizedTopic: the bridge drops the message with a debug log.
//   - ErrUnsupportedValue: returned to the caller; commands are acked as failed.
//   - ErrMalformedPayload: returned before any token is read out of range.
//
// # Thread Safety
//
// All exported types are safe for concurrent use from multiple goroutines.
package inels
