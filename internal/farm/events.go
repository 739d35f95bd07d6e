package farm

import "time"

// EventKind classifies farm events pushed to subscribers.
type EventKind string

const (
	EventPlanted    EventKind = "planted"
	EventWatered    EventKind = "watered"
	EventFertilized EventKind = "fertilized"
	EventGrew       EventKind = "grew"
	EventReady      EventKind = "ready"
	EventHarvested  EventKind = "harvested"
	EventInstalled  EventKind = "asset_installed"
	EventRemoved    EventKind = "asset_removed"
	EventSold       EventKind = "sold"
	EventStored     EventKind = "stored"
	EventSupport    EventKind = "support"
	EventPrices     EventKind = "prices"
	EventNews       EventKind = "news"
	EventSettings   EventKind = "settings"
	EventRejected   EventKind = "rejected"
)

// Event is one state change notification.
type Event struct {
	Kind     EventKind `json:"kind"`
	Plot     string    `json:"plot,omitempty"`
	Message  string    `json:"message"`
	At       time.Time `json:"at"`
	Revision uint64    `json:"revision"`
}
