package models

// Trip stream event types. The client sends location fixes and route
// updates; the server pushes utterances from the alert pipeline.
const (
	StreamEventLocation = "location"
	StreamEventRoute    = "route"
	StreamEventClear    = "clear"

	StreamEventUtterance = "utterance"
	StreamEventError     = "error"
)

// StreamClientEvent is a message from the traveller's device.
type StreamClientEvent struct {
	Type string `json:"type"`

	// Location is required for location events.
	Location *Point `json:"location,omitempty"`

	// RouteID switches the active route for route events.
	RouteID string `json:"routeId,omitempty"`
}

// StreamServerEvent is a message pushed to the traveller's device.
type StreamServerEvent struct {
	Type string `json:"type"`

	// Text is the utterance to present, set for utterance events.
	Text string `json:"text,omitempty"`

	// Detail carries error information for error events.
	Detail string `json:"detail,omitempty"`
}
