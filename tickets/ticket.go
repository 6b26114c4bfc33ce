package tickets

import (
	"time"

	"github.com/golang-sql/civil"
)

// LiftTicket is a single lift ticket purchase event.
// Every field is set once at generation time and never mutated afterwards.
type LiftTicket struct {
	// Unique transaction identifier (UUID)
	TransactionID string `json:"txid"`

	// RFID token of the ticket card, 96 random bits as 0x-prefixed hex
	DeviceID string `json:"rfid"`

	// Resort name, one of Resorts
	Resort string `json:"resort"`

	// Purchase instant in UTC
	PurchaseTime time.Time `json:"purchase_time"`

	// Fixed season end date
	ExpirationTime civil.Date `json:"expiration_time"`

	// Number of ski days, 1 to 7
	Days int `json:"days"`

	// Ticket holder name
	Name string `json:"name"`

	Address          Optional[Address]          `json:"address"`
	Phone            Optional[string]           `json:"phone"`
	Email            Optional[string]           `json:"email"`
	EmergencyContact Optional[EmergencyContact] `json:"emergency_contact"`
}

// Address is the ticket holder's postal address.
// PostalCode always belongs to State.
type Address struct {
	Street     string `json:"street_address"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalcode"`
}

// EmergencyContact is an optional second person attached to a ticket.
type EmergencyContact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}
