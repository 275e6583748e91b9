package models

// SoldOutNotification is broadcast to connected clients when an event's
// AVAILABLE ticket count reaches zero.
type SoldOutNotification struct {
	EventID   string `json:"eventId"`
	EventName string `json:"eventName"`
	Message   string `json:"message"`
}
