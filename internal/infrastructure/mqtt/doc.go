// Package mqtt provides MQTT client connectivity for the iNels bridge.
//
// This package manages:
//   - Connection to the broker with auto-reconnect and subscription restore
//   - Message publishing and wildcard subscriptions
//   - Last Will and Testament for offline detection
//   - One-shot discovery of retained topics on a temporary session
//
// # Architecture
//
// The iNels gateway and the Gray Logic core share one broker. The bridge
// subscribes to the gateway's status and connected topics and to core
// commands, and publishes set payloads, state, acks and health.
//
//	iNels gateway ↔ MQTT broker ↔ inelsbridge ↔ MQTT broker ↔ core
//
// # Availability
//
// IsConnected follows the live session. IsAvailable is the outcome of the
// latest connect attempt: a dropped connection leaves it true, and it only
// turns false once a reconnect attempt fails. HealthCheck reports the
// difference by also wrapping ErrConnectionFailed in the second case.
//
// # Client IDs
//
// Every session, including probe and discovery sessions, connects with the
// configured client_id plus a random suffix, so two bridges never evict
// each other from the broker.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, mqtt.WithWill(will))
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe("inels/status/#", 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %q", topic, payload)
//	        return nil
//	    })
//
//	found, err := client.DiscoverAll(ctx, "inels/status/#", 5*time.Second, nil)
package mqtt
