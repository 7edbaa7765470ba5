package mqtt

import (
	"errors"
	"fmt"
)

var errNilHandler = errors.New("handler cannot be nil")

// Subscribe registers handler for messages matching filter, which may use
// the + and # wildcards:
//
//	err := client.Subscribe("inels/status/#", 1, func(topic string, payload []byte) error {
//		return bridge.HandleStatus(topic, payload)
//	})
//
// The subscription is replayed after every reconnect. Subscribing a filter
// again replaces its handler; if the broker refuses, the earlier
// subscription is kept.
func (c *Client) Subscribe(filter string, qos byte, handler MessageHandler) error {
	if err := validateFilter(filter); err != nil {
		return err
	}
	switch {
	case qos > maxQoS:
		return ErrInvalidQoS
	case handler == nil:
		return fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, filter, errNilHandler)
	case !c.IsConnected():
		return ErrNotConnected
	}

	restore := c.track(filter, subscription{qos: qos, handler: handler})

	if err := waitToken(c.conn.Subscribe(filter, qos, c.wrapHandler(handler)), defaultPublishTimeout); err != nil {
		restore()
		return fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, filter, err)
	}
	return nil
}

// track records sub under filter and returns a func that puts back
// whatever was there before.
func (c *Client) track(filter string, sub subscription) (restore func()) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	previous, existed := c.subscriptions[filter]
	c.subscriptions[filter] = sub

	return func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		if existed {
			c.subscriptions[filter] = previous
		} else {
			delete(c.subscriptions, filter)
		}
	}
}

// Unsubscribe drops filter. Messages already in flight may still arrive.
func (c *Client) Unsubscribe(filter string) error {
	if err := validateFilter(filter); err != nil {
		return err
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.subMu.Lock()
	delete(c.subscriptions, filter)
	c.subMu.Unlock()

	if err := waitToken(c.conn.Unsubscribe(filter), defaultPublishTimeout); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnsubscribeFailed, filter, err)
	}
	return nil
}

// SubscriptionCount returns the number of tracked filters.
func (c *Client) SubscriptionCount() int {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	return len(c.subscriptions)
}
