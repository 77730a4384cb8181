package domain

import "time"

// TicketState enumerates lifecycle states for tickets.
type TicketState string

const (
	TicketStateOpen   TicketState = "OPEN"
	TicketStateClosed TicketState = "CLOSED"
)

// OwnerIdentity carries both identities of the submitting user.
type OwnerIdentity struct {
	DiscordID       string
	DiscordUsername string
	RobloxUsername  string
}

// Ticket is the server-side materialization of a report: a private Discord
// channel plus the identities it was opened for. The channel itself is the
// store of record; this struct is what the workflow hands around.
type Ticket struct {
	ChannelID   string
	ChannelName string
	Owner       OwnerIdentity
	Roblox      ResolvedIdentity
	State       TicketState
	CreatedAt   time.Time
}

// TranscriptEntry is one line of a closed ticket's flattened history.
type TranscriptEntry struct {
	Author  string
	Content string
}
