// Package config loads the bridge configuration.
//
// Values come from built-in defaults, overlaid by a YAML file, overlaid by
// INELSBRIDGE_* environment variables. Keep secrets such as the MQTT
// password and the InfluxDB token in the environment:
//
//	cfg, err := config.Load(config.ResolvePath())
//	if errors.Is(err, config.ErrInvalid) {
//		// cfg failed validation; err lists every problem
//	}
package config
