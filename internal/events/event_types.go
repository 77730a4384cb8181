package events

import (
	"time"

	"github.com/agency-ops/report-desk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated  EventType = "ticket_created"
	EventTicketRejected EventType = "ticket_rejected"
	EventTicketClosed   EventType = "ticket_closed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	ChannelID string      `json:"channel_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	ChannelName     string                  `json:"channel_name"`
	DiscordID       string                  `json:"discord_id"`
	DiscordUsername string                  `json:"discord_username"`
	RobloxUsername  string                  `json:"roblox_username"`
	Roblox          domain.ResolvedIdentity `json:"roblox"`
	Title           string                  `json:"title"`
}

// TicketRejectedPayload payload, emitted when the duplicate guard blocks a
// submission.
type TicketRejectedPayload struct {
	ChannelName     string `json:"channel_name"`
	DiscordUsername string `json:"discord_username"`
	Reason          string `json:"reason"`
}

// TicketClosedPayload payload.
type TicketClosedPayload struct {
	ChannelName         string `json:"channel_name"`
	ClosedBy            string `json:"closed_by"`
	TranscriptDelivered bool   `json:"transcript_delivered"`
	MessageCount        int    `json:"message_count"`
}
