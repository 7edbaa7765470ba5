package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// DefaultDiscoveryIdle is how long DiscoverAll waits for another matching
// message before it returns.
const DefaultDiscoveryIdle = 5 * time.Second

// message is one delivery collected during discovery.
type message struct {
	topic   string
	payload []byte
}

// DiscoverAll collects the retained and live messages published on filter
// until no message accepted by match has arrived for idle.
//
// It runs on a separate short-lived session so the subscriptions of the
// long-lived session are left untouched, and so the broker replays retained
// messages for filter even when it is already subscribed. A nil match
// accepts every topic. The last payload per topic wins.
//
// If ctx ends first, the messages collected so far are returned together
// with the context error.
func (c *Client) DiscoverAll(ctx context.Context, filter string, idle time.Duration, match func(topic string) bool) (map[string][]byte, error) {
	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	if idle <= 0 {
		idle = DefaultDiscoveryIdle
	}

	session := pahomqtt.NewClient(buildSessionOptions(c.cfg, NewClientID(c.cfg.Broker.ClientID+"-discover")))
	if err := waitToken(session.Connect(), defaultConnectTimeout); err != nil {
		return nil, fmt.Errorf("%w: session connect: %w", ErrDiscoveryFailed, err)
	}
	defer session.Disconnect(probeDisconnectQuiesce)

	msgs := make(chan message, 64)
	done := make(chan struct{})
	release := sync.OnceFunc(func() { close(done) })
	defer release()

	handler := func(_ pahomqtt.Client, m pahomqtt.Message) {
		select {
		case msgs <- message{topic: m.Topic(), payload: m.Payload()}:
		case <-done:
		}
	}

	if err := waitToken(session.Subscribe(filter, byte(c.cfg.QoS), handler), defaultPublishTimeout); err != nil {
		return nil, fmt.Errorf("%w: subscribe %s: %w", ErrDiscoveryFailed, filter, err)
	}

	found, err := collect(ctx, msgs, idle, match)
	release()

	if unsub := session.Unsubscribe(filter); !unsub.WaitTimeout(defaultPublishTimeout) {
		c.warn("discovery unsubscribe timed out", "filter", filter)
	}
	return found, err
}

// collect drains msgs into a topic to payload map. The idle timer restarts
// on every message accepted by match; rejected messages are skipped without
// extending the window.
func collect(ctx context.Context, msgs <-chan message, idle time.Duration, match func(string) bool) (map[string][]byte, error) {
	found := make(map[string][]byte)

	timer := time.NewTimer(idle)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return found, ctx.Err()
		case <-timer.C:
			return found, nil
		case m, ok := <-msgs:
			if !ok {
				return found, nil
			}
			if match != nil && !match(m.topic) {
				continue
			}
			found[m.topic] = m.payload

			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(idle)
		}
	}
}
