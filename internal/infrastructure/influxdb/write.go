package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by the bridge.
const (
	MeasurementDevice = "device_metrics"
	MeasurementBridge = "bridge_stats"
)

// WriteDeviceMetric records one numeric reading of a device, such as a
// thermostat's current temperature or a dimmer's brightness.
//
// Example:
//
//	client.WriteDeviceMetric("4254524524-452454", "temperature_c", 21.5)
func (c *Client) WriteDeviceMetric(deviceID string, measurement string, value float64) {
	c.WritePoint(MeasurementDevice,
		map[string]string{
			"device_id":   deviceID,
			"measurement": measurement,
		},
		map[string]any{
			"value": value,
		},
	)
}

// WriteBridgeStats records the bridge counters under one point.
func (c *Client) WriteBridgeStats(bridgeID string, fields map[string]any) {
	if len(fields) == 0 {
		return
	}
	c.WritePoint(MeasurementBridge, map[string]string{"bridge_id": bridgeID}, fields)
}

// WritePoint writes a point stamped with the current time.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
