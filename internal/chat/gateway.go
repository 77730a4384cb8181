package chat

import (
	"context"

	"github.com/agency-ops/report-desk/internal/domain"
)

// Channel is the gateway-level view of a Discord channel.
type Channel struct {
	ID       string
	Name     string
	ParentID string
}

// ProvisionParams describes a private ticket channel to create. The channel
// is created with two overwrites: deny @everyone visibility, allow the staff
// role visibility and message-send.
type ProvisionParams struct {
	Name        string
	CategoryID  string
	StaffRoleID string
}

// ReportMessage is the structured report posted into a freshly provisioned
// ticket channel.
type ReportMessage struct {
	Title          string
	Description    string
	DiscordID      string
	StaffRoleID    string
	RobloxUsername string
	Roblox         domain.ResolvedIdentity
	Attachments    []domain.EvidenceFile
}

// Gateway is the chat-platform surface the ticket workflow depends on. The
// concrete implementation wraps a Discord bot session; tests substitute a
// fake.
type Gateway interface {
	// GuildID returns the guild the bot operates in, or an error when the
	// bot is not a member of any guild.
	GuildID() (string, error)

	// ListCategoryChannels returns a fresh view of the channels under the
	// given category.
	ListCategoryChannels(ctx context.Context, guildID, categoryID string) ([]Channel, error)

	// CreateTicketChannel provisions the private channel. This is the one
	// fatal step of the workflow when it fails.
	CreateTicketChannel(ctx context.Context, guildID string, params ProvisionParams) (Channel, error)

	// GrantMemberAccess adds a member overwrite for visibility and
	// message-send. Callers treat failures as non-fatal.
	GrantMemberAccess(ctx context.Context, channelID, memberID string) error

	// PublishReport posts the report embed, close button and evidence
	// attachments into the channel.
	PublishReport(ctx context.Context, channelID string, msg ReportMessage) error

	// RecentMessages fetches up to limit messages, newest first, as the
	// platform API returns them.
	RecentMessages(ctx context.Context, channelID string, limit int) ([]domain.TranscriptEntry, error)

	// DeliverTranscript sends the serialized transcript as a file
	// attachment to the given log channel.
	DeliverTranscript(ctx context.Context, logChannelID, note, filename string, content []byte) error

	// DeleteChannel removes a channel.
	DeleteChannel(ctx context.Context, channelID string) error
}
