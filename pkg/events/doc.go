/*
Package events implements a lightweight in-process event bus for broadcasting
runtime events between the playout engine's managers.

Rather than wiring every producer directly to every consumer, producers
publish an Event to a shared Broker and consumers Subscribe to receive a
channel of events.

# Core Components

Broker:
  - Owns a buffered intake channel and a set of subscriber channels
  - Start()/Stop() run and stop the internal distribution goroutine
  - Publish() enqueues an event; never blocks on a slow subscriber
  - Subscribe()/Unsubscribe() manage per-consumer channels

Event:
  - ID, Type, Timestamp, Message, Metadata
  - Timestamp defaults to time.Now() if left zero at Publish time

EventType constants name the occurrences producers in this module care
about: subscription reassembly outcomes, context/touch-input arrivals,
handler restarts, renderer lifecycle transitions, and cache completions.

# Usage

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	go func() {
		for ev := range sub {
			log.WithComponent("scheduling").Info().
				Str("type", string(ev.Type)).
				Msg(ev.Message)
		}
	}()

	broker.Publish(&events.Event{
		Type:    events.EventSubscriptionUpdated,
		Message: "root CDS reassembled",
	})

# Delivery Semantics

Publish never blocks the caller on a full subscriber buffer: broadcast drops
the event for that one subscriber rather than stalling the whole bus.

# Integration Points

  - cmd/yarelycore (run): the device request handler publishes
    EventHandlerRegistered, EventSubscriptionUpdated and
    EventSubscriptionFailed; a logging subscriber writes every event it
    receives to the log.

The remaining EventType constants are defined but not published by any
package in this module.
*/
package events
