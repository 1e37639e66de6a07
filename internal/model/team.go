package model

import "time"

// Team is a group of users playing together, led by a captain.
type Team struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CaptainID int64     `json:"captain_id"`
	CreatedAt time.Time `json:"created_at"`

	// Joined fields (not always populated).
	CaptainUsername string   `json:"captain_username,omitempty"`
	Members         []string `json:"members,omitempty"`
}
