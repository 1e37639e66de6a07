package model

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("username or email already in use")
	ErrTicketNotFound     = errors.New("ticket not found")
	ErrTicketTypeNotFound = errors.New("ticket type not found")
	ErrTicketUnavailable  = errors.New("ticket unavailable")
	ErrTokenNotFound      = errors.New("token not found")
	ErrInvalidToken       = errors.New("token is expired, used or revoked")
	ErrTransferPending    = errors.New("ticket is already set up for transfer")
	ErrTransferToSelf     = errors.New("ticket already belongs to that user")
	ErrNotTransferTarget  = errors.New("ticket was not offered to this user")
	ErrTeamNotFound       = errors.New("team not found")
	ErrTeamExists         = errors.New("team name already in use")
	ErrAlreadyMember      = errors.New("user is already a team member")
	ErrNotMember          = errors.New("user is not a team member")
	ErrRFIDNotFound       = errors.New("rfid link not found")
	ErrRFIDTaken          = errors.New("rfid already linked")
	ErrTicketLinked       = errors.New("ticket already linked to an rfid")
	ErrInvalidRFID        = errors.New("invalid rfid")
	ErrPasswordTooShort   = errors.New("password too short")
	ErrInvalidProfile     = errors.New("invalid profile")
	ErrInvalidInput       = errors.New("invalid input")
)
