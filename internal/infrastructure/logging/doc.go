// Package logging builds the bridge's log/slog loggers.
//
// Every entry carries service and version fields; Component adds a
// component field per subsystem. Children share their root's level, so
// SetLevel on the root (done on SIGHUP by the bridge binary) retunes all
// of them at once:
//
//	log := logging.New(cfg.Logging, version)
//	bridgeLog := log.Component("inels")
//	bridgeLog.Info("status received", "device_id", id)
//	log.SetLevel("debug")
//
// Credentials from the MQTT and InfluxDB sections must never be logged.
package logging
