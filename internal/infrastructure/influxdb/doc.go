// Package influxdb writes bridge telemetry to InfluxDB 2.x.
//
// It wraps influxdb-client-go v2 with the non-blocking, batched write API.
// The bridge records numeric device readings (temperatures, setpoints,
// brightness, battery) under the device_metrics measurement and its own
// counters under bridge_stats.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteDeviceMetric("4254524524-452454", "temperature_c", 21.5)
//
// Telemetry is optional: Connect returns ErrDisabled when influxdb.enabled
// is false and callers carry on without it.
package influxdb
