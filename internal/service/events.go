package service

import "sync"

// EventType defines the type of event
type EventType string

const (
	EventComponentCreated  EventType = "component_created"
	EventComponentUpdated  EventType = "component_updated"
	EventComponentDeleted  EventType = "component_deleted"
	EventConnectionCreated EventType = "connection_created"
	EventConnectionDeleted EventType = "connection_deleted"
	EventConnectionDenied  EventType = "connection_rejected"
	EventAgentsUpdated     EventType = "agents_updated"
	EventProblemApplied    EventType = "problem_applied"
	EventProblemResolved   EventType = "problem_resolved"
	EventSimulationStarted EventType = "simulation_started"
	EventSimulationStopped EventType = "simulation_stopped"
	EventPacketLaunched    EventType = "packet_launched"
	EventPacketsDelivered  EventType = "packets_delivered"
	EventTopologyLoaded    EventType = "topology_loaded"
	EventTopologySaved     EventType = "topology_saved"
)

// Event represents an event that occurred in the system
type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// EventBus allows publishing and subscribing to events
type EventBus struct {
	mu          sync.RWMutex
	subscribers []chan<- Event
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make([]chan<- Event, 0),
	}
}

// Subscribe adds a subscriber to receive events
func (eb *EventBus) Subscribe(ch chan<- Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.subscribers = append(eb.subscribers, ch)
}

// Unsubscribe removes a subscriber
func (eb *EventBus) Unsubscribe(ch chan<- Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	for i, sub := range eb.subscribers {
		if sub == ch {
			eb.subscribers = append(eb.subscribers[:i:i], eb.subscribers[i+1:]...)
			return
		}
	}
}

// Publish sends an event to all subscribers. A nil bus drops events.
func (eb *EventBus) Publish(event Event) {
	if eb == nil {
		return
	}
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	for _, ch := range eb.subscribers {
		select {
		case ch <- event:
		default:
			// Subscriber is slow, skip
		}
	}
}
