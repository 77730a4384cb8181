package chat

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// CloseButtonID is the component custom id of the close-ticket affordance.
const CloseButtonID = "close_ticket"

// CloseRequest captures who pressed the close button and where.
type CloseRequest struct {
	ChannelID   string
	ChannelName string
	ActorID     string
	ActorTag    string
	ActorRoles  []string
}

// Responder sends a private (ephemeral) reply to the interacting user. An
// interaction accepts exactly one response.
type Responder interface {
	Ephemeral(content string) error
}

// CloseHandler processes a close-ticket interaction.
type CloseHandler func(ctx context.Context, req CloseRequest, respond Responder)

// OnCloseTicket registers the handler for close-button interactions. Other
// interactions are ignored.
func (g *DiscordGateway) OnCloseTicket(handler CloseHandler) {
	g.session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.Type != discordgo.InteractionMessageComponent {
			return
		}
		if i.MessageComponentData().CustomID != CloseButtonID {
			return
		}
		if i.Member == nil || i.Member.User == nil {
			return
		}

		req := CloseRequest{
			ChannelID:  i.ChannelID,
			ActorID:    i.Member.User.ID,
			ActorTag:   i.Member.User.String(),
			ActorRoles: i.Member.Roles,
		}
		if ch, err := s.State.Channel(i.ChannelID); err == nil {
			req.ChannelName = ch.Name
		} else if ch, err := s.Channel(i.ChannelID); err == nil {
			req.ChannelName = ch.Name
		} else {
			g.logger.Warn("cannot resolve channel name for interaction",
				zap.String("channel_id", i.ChannelID), zap.Error(err))
		}

		handler(context.Background(), req, &interactionResponder{session: s, interaction: i.Interaction})
	})
}

type interactionResponder struct {
	session     *discordgo.Session
	interaction *discordgo.Interaction
}

func (r *interactionResponder) Ephemeral(content string) error {
	return r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}
