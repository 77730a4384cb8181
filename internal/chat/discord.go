package chat

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/agency-ops/report-desk/internal/domain"
)

const embedColor = 0xc41e3a

// DiscordGateway implements Gateway on top of a discordgo bot session.
type DiscordGateway struct {
	session *discordgo.Session
	logger  *zap.Logger
}

// NewDiscordGateway builds the session with the intents the ticket workflow
// needs. The session is not opened yet; call Open.
func NewDiscordGateway(botToken string, logger *zap.Logger) (*DiscordGateway, error) {
	session, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentMessageContent

	return &DiscordGateway{session: session, logger: logger}, nil
}

// Open connects the gateway websocket and waits for the ready event to fill
// the guild state.
func (g *DiscordGateway) Open() error {
	if err := g.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	g.logger.Info("discord session open",
		zap.String("user", g.session.State.User.String()))
	return nil
}

// Close shuts the session down.
func (g *DiscordGateway) Close() error {
	return g.session.Close()
}

// GuildID returns the first guild the bot is a member of.
func (g *DiscordGateway) GuildID() (string, error) {
	guilds := g.session.State.Guilds
	if len(guilds) == 0 {
		return "", errors.New("bot not in any guild")
	}
	return guilds[0].ID, nil
}

// ListCategoryChannels lists the guild's channels and keeps those parented to
// the category. Always hits the API so the duplicate guard sees fresh state.
func (g *DiscordGateway) ListCategoryChannels(ctx context.Context, guildID, categoryID string) ([]Channel, error) {
	channels, err := g.session.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("list guild channels: %w", err)
	}
	out := make([]Channel, 0, len(channels))
	for _, ch := range channels {
		if ch.ParentID != categoryID {
			continue
		}
		out = append(out, Channel{ID: ch.ID, Name: ch.Name, ParentID: ch.ParentID})
	}
	return out, nil
}

// CreateTicketChannel creates the private text channel under the category.
func (g *DiscordGateway) CreateTicketChannel(ctx context.Context, guildID string, params ProvisionParams) (Channel, error) {
	overwrites := []*discordgo.PermissionOverwrite{
		{
			ID:   guildID, // @everyone shares the guild id
			Type: discordgo.PermissionOverwriteTypeRole,
			Deny: discordgo.PermissionViewChannel,
		},
		{
			ID:    params.StaffRoleID,
			Type:  discordgo.PermissionOverwriteTypeRole,
			Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages,
		},
	}

	created, err := g.session.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:                 params.Name,
		Type:                 discordgo.ChannelTypeGuildText,
		ParentID:             params.CategoryID,
		PermissionOverwrites: overwrites,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return Channel{}, fmt.Errorf("create channel %q: %w", params.Name, err)
	}
	return Channel{ID: created.ID, Name: created.Name, ParentID: created.ParentID}, nil
}

// GrantMemberAccess adds the submitter overwrite after creation.
func (g *DiscordGateway) GrantMemberAccess(ctx context.Context, channelID, memberID string) error {
	return g.session.ChannelPermissionSet(channelID, memberID,
		discordgo.PermissionOverwriteTypeMember,
		discordgo.PermissionViewChannel|discordgo.PermissionSendMessages,
		0,
		discordgo.WithContext(ctx))
}

// PublishReport posts the report embed with the close button and evidence
// files.
func (g *DiscordGateway) PublishReport(ctx context.Context, channelID string, msg ReportMessage) error {
	embed := &discordgo.MessageEmbed{
		Title: "Nuova Segnalazione: " + msg.Title,
		Color: embedColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Utente Discord", Value: fmt.Sprintf("<@%s>", msg.DiscordID), Inline: true},
			{
				Name: "Utente Roblox",
				Value: fmt.Sprintf("[%s](%s) (ID: %s)",
					msg.RobloxUsername, msg.Roblox.ProfileLink, msg.Roblox.ID),
				Inline: true,
			},
			{Name: "Descrizione", Value: msg.Description},
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	row := discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    "Chiudi Ticket",
				Style:    discordgo.DangerButton,
				CustomID: CloseButtonID,
			},
		},
	}

	files, closeFiles, err := openAttachments(msg.Attachments)
	if err != nil {
		return err
	}
	defer closeFiles()

	_, err = g.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:    fmt.Sprintf("<@%s> <@&%s>", msg.DiscordID, msg.StaffRoleID),
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: []discordgo.MessageComponent{row},
		Files:      files,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("publish report: %w", err)
	}
	return nil
}

// RecentMessages fetches up to limit messages, newest first.
func (g *DiscordGateway) RecentMessages(ctx context.Context, channelID string, limit int) ([]domain.TranscriptEntry, error) {
	msgs, err := g.session.ChannelMessages(channelID, limit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetch channel messages: %w", err)
	}
	entries := make([]domain.TranscriptEntry, 0, len(msgs))
	for _, m := range msgs {
		author := "unknown"
		if m.Author != nil {
			author = m.Author.String()
		}
		entries = append(entries, domain.TranscriptEntry{Author: author, Content: m.Content})
	}
	return entries, nil
}

// DeliverTranscript posts the transcript file with the closure note.
func (g *DiscordGateway) DeliverTranscript(ctx context.Context, logChannelID, note, filename string, content []byte) error {
	_, err := g.session.ChannelMessageSendComplex(logChannelID, &discordgo.MessageSend{
		Content: note,
		Files: []*discordgo.File{
			{Name: filename, ContentType: "text/plain", Reader: bytes.NewReader(content)},
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("deliver transcript: %w", err)
	}
	return nil
}

// DeleteChannel removes a channel.
func (g *DiscordGateway) DeleteChannel(ctx context.Context, channelID string) error {
	if _, err := g.session.ChannelDelete(channelID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("delete channel: %w", err)
	}
	return nil
}

func openAttachments(attachments []domain.EvidenceFile) ([]*discordgo.File, func(), error) {
	files := make([]*discordgo.File, 0, len(attachments))
	handles := make([]*os.File, 0, len(attachments))
	closeAll := func() {
		for _, h := range handles {
			_ = h.Close()
		}
	}
	for _, att := range attachments {
		f, err := os.Open(att.Path)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("open evidence %s: %w", att.FileName, err)
		}
		handles = append(handles, f)
		files = append(files, &discordgo.File{Name: att.FileName, Reader: f})
	}
	return files, closeAll, nil
}
