package model

import "time"

// Ticket is an admission ticket of a given type held by exactly one user.
type Ticket struct {
	ID            int64     `json:"id"`
	Type          string    `json:"type"`
	OwnerID       int64     `json:"owner_id"`
	Valid         bool      `json:"valid"`
	PickupService bool      `json:"pickup_service"`
	CHMember      bool      `json:"ch_member"`
	CreatedAt     time.Time `json:"created_at"`

	// Joined fields (not always populated).
	OwnerUsername string `json:"owner_username,omitempty"`
}

// TicketType is a sellable ticket category with a hard sale limit.
type TicketType struct {
	Name  string `json:"name"`
	Limit int    `json:"limit"`

	// Sold is only populated by availability listings.
	Sold int `json:"sold"`
}

// Available returns how many tickets of the type can still be issued.
func (t TicketType) Available() int {
	if t.Sold >= t.Limit {
		return 0
	}
	return t.Limit - t.Sold
}

// Default ticket types, used when the configuration names none.
const (
	TicketTypeEarlyBird   = "EARLY_BIRD"
	TicketTypeRegularFull = "REGULAR_FULL"
	TicketTypeLastMinute  = "LAST_MINUTE"
	TicketTypeTest        = "TEST"
)

// DefaultTicketTypes is the sale catalogue of a fresh installation.
func DefaultTicketTypes() []TicketType {
	return []TicketType{
		{Name: TicketTypeEarlyBird, Limit: 50},
		{Name: TicketTypeRegularFull, Limit: 150},
		{Name: TicketTypeLastMinute, Limit: 20},
		{Name: TicketTypeTest, Limit: 2},
	}
}
