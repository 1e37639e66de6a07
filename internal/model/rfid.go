package model

// RFIDLength is the number of characters on an attendee badge.
const RFIDLength = 10

// RFIDLink binds an RFID badge to a ticket.
type RFIDLink struct {
	RFID     string `json:"rfid"`
	TicketID int64  `json:"ticket_id"`
}

// IsValidRFID checks the badge format: RFIDLength ASCII letters or digits.
func IsValidRFID(rfid string) bool {
	if len(rfid) != RFIDLength {
		return false
	}
	for i := 0; i < len(rfid); i++ {
		c := rfid[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z') {
			return false
		}
	}
	return true
}
