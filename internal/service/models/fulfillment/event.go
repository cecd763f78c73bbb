package fulfillment

import (
	"fmt"
	"regexp"
	"strings"
)

// EventName is the routing key for invoice generation events. Exactly
// one event with this name is emitted per submitted order.
const EventName = "invoice/generate"

var orderIDPattern = regexp.MustCompile(`^ORD-\d{14}-[A-Z0-9]{5}$`)

// Event is the message handed to the fulfillment pipeline. The payload
// is schema-checked at the consumer boundary; malformed events are
// dead-lettered instead of silently processed.
type Event struct {
	EventID string `json:"eventId"`
	Name    string `json:"name"`
	OrderID string `json:"orderId"`
	UserID  int64  `json:"userId"`
	Email   string `json:"email"`
}

// Validate checks the event against the wire contract.
func (e Event) Validate() error {
	if e.EventID == "" {
		return fmt.Errorf("event id is empty")
	}
	if e.Name != EventName {
		return fmt.Errorf("unexpected event name %q", e.Name)
	}
	if !orderIDPattern.MatchString(e.OrderID) {
		return fmt.Errorf("malformed order id %q", e.OrderID)
	}
	if e.UserID <= 0 {
		return fmt.Errorf("invalid user id %d", e.UserID)
	}
	if !strings.Contains(e.Email, "@") {
		return fmt.Errorf("invalid customer email")
	}

	return nil
}
