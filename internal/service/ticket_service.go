package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agency-ops/report-desk/internal/chat"
	"github.com/agency-ops/report-desk/internal/config"
	"github.com/agency-ops/report-desk/internal/domain"
	"github.com/agency-ops/report-desk/internal/events"
	"github.com/agency-ops/report-desk/internal/observability"
	"github.com/agency-ops/report-desk/internal/repository"
	"github.com/agency-ops/report-desk/internal/reservation"
	apperrors "github.com/agency-ops/report-desk/pkg/util"
)

// reservationTTL bounds how long a derived name stays locked when a workflow
// dies without releasing it.
const reservationTTL = 30 * time.Second

// plausibleDiscordIDLength gates the best-effort submitter overwrite; real
// snowflakes are longer than this.
const plausibleDiscordIDLength = 15

// IdentityResolver resolves a primary-claim handle to an external identity,
// degrading instead of failing.
type IdentityResolver interface {
	Resolve(ctx context.Context, handle string) domain.ResolvedIdentity
}

// TicketService coordinates the submission workflow:
// resolve -> derive name -> duplicate guard -> reserve -> provision -> publish.
type TicketService struct {
	gateway      chat.Gateway
	resolver     IdentityResolver
	reservations reservation.Reservations
	submissions  repository.SubmissionRepository
	dispatcher   events.Dispatcher
	metrics      *observability.Metrics
	logger       *zap.Logger

	categoryID  string
	staffRoleID string
	apiTimeout  time.Duration
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Gateway      chat.Gateway
	Resolver     IdentityResolver
	Reservations reservation.Reservations
	Submissions  repository.SubmissionRepository
	Dispatcher   events.Dispatcher
	Metrics      *observability.Metrics
	Logger       *zap.Logger
}

// SubmitInput describes one validated submission.
type SubmitInput struct {
	DiscordID       string
	DiscordUsername string
	RobloxUsername  string
	Title           string
	Description     string
	Evidence        []domain.EvidenceFile
}

// NewTicketService constructs the service.
func NewTicketService(cfg config.DiscordConfig, deps TicketDependencies) *TicketService {
	return &TicketService{
		gateway:      deps.Gateway,
		resolver:     deps.Resolver,
		reservations: deps.Reservations,
		submissions:  deps.Submissions,
		dispatcher:   deps.Dispatcher,
		metrics:      deps.Metrics,
		logger:       deps.Logger,
		categoryID:   cfg.CategoryID,
		staffRoleID:  cfg.StaffRoleID,
		apiTimeout:   cfg.APITimeout(),
	}
}

// Submit runs the full ticket-creation workflow. On success the returned
// ticket carries the provisioned channel id. Steps run strictly in order; any
// failure after channel creation triggers a best-effort rollback so the
// client never sees an error for a ticket that silently exists.
func (s *TicketService) Submit(ctx context.Context, input SubmitInput) (*domain.Ticket, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}
	if s.categoryID == "" || s.staffRoleID == "" {
		return nil, apperrors.NewDomainError("CONFIG_MISSING",
			"Server configuration error: Missing IDs", http.StatusInternalServerError, nil)
	}

	s.logger.Info("new report submission",
		zap.String("discord_username", input.DiscordUsername),
		zap.String("discord_id", input.DiscordID),
		zap.Int("evidence_files", len(input.Evidence)))

	guildID, err := s.gateway.GuildID()
	if err != nil {
		return nil, apperrors.NewUpstreamError("Bot not in any guild", err)
	}

	resolved := s.resolveIdentity(ctx, input.RobloxUsername)
	name := DeriveChannelName(input.DiscordUsername)

	if err := s.checkDuplicate(ctx, guildID, name, input); err != nil {
		return nil, err
	}

	held, err := s.reservations.Acquire(ctx, name, reservationTTL)
	if err != nil {
		s.logger.Warn("reservation acquire failed; proceeding on guard alone",
			zap.String("name", name), zap.Error(err))
	} else if !held {
		s.metrics.RecordDuplicateRejected()
		return nil, s.rejectDuplicate(ctx, name, input, "reservation held by a concurrent submission")
	}
	reserved := err == nil && held
	defer func() {
		if reserved {
			releaseCtx, cancel := context.WithTimeout(context.Background(), s.apiTimeout)
			defer cancel()
			if err := s.reservations.Release(releaseCtx, name); err != nil {
				s.logger.Warn("reservation release failed", zap.String("name", name), zap.Error(err))
			}
		}
	}()

	channel, err := s.provision(ctx, guildID, name)
	if err != nil {
		s.recordAudit(ctx, "", name, input, resolved, repository.OutcomeFailed, err.Error())
		return nil, apperrors.NewUpstreamError(fmt.Sprintf("Server Error: %v", err), err)
	}
	s.logger.Info("ticket channel created",
		zap.String("channel_id", channel.ID), zap.String("channel", channel.Name))

	s.grantSubmitterAccess(ctx, channel.ID, input.DiscordID)

	if err := s.publish(ctx, channel.ID, input, resolved); err != nil {
		s.rollback(channel)
		s.recordAudit(ctx, channel.ID, name, input, resolved, repository.OutcomeFailed, err.Error())
		return nil, apperrors.NewUpstreamError(fmt.Sprintf("Server Error: %v", err), err)
	}

	ticket := &domain.Ticket{
		ChannelID:   channel.ID,
		ChannelName: channel.Name,
		Owner: domain.OwnerIdentity{
			DiscordID:       input.DiscordID,
			DiscordUsername: input.DiscordUsername,
			RobloxUsername:  input.RobloxUsername,
		},
		Roblox:    resolved,
		State:     domain.TicketStateOpen,
		CreatedAt: time.Now(),
	}

	s.metrics.RecordTicketCreated()
	s.recordAudit(ctx, channel.ID, name, input, resolved, repository.OutcomeCreated, "")
	s.publishEvent(ctx, events.Event{
		Type:      events.EventTicketCreated,
		ChannelID: channel.ID,
		Payload: events.TicketCreatedPayload{
			ChannelName:     channel.Name,
			DiscordID:       input.DiscordID,
			DiscordUsername: input.DiscordUsername,
			RobloxUsername:  input.RobloxUsername,
			Roblox:          resolved,
			Title:           input.Title,
		},
	})
	return ticket, nil
}

func (s *TicketService) validate(input SubmitInput) error {
	missing := map[string]any{}
	for field, value := range map[string]string{
		"discordId":       input.DiscordID,
		"discordUsername": input.DiscordUsername,
		"robloxUsername":  input.RobloxUsername,
		"title":           input.Title,
		"description":     input.Description,
	} {
		if strings.TrimSpace(value) == "" {
			missing[field] = "required"
		}
	}
	if len(missing) > 0 {
		return apperrors.NewValidationError("Compila tutti i campi", missing)
	}
	if len(input.Evidence) == 0 {
		return apperrors.NewValidationError("Allega almeno una prova", nil)
	}
	return nil
}

func (s *TicketService) resolveIdentity(ctx context.Context, handle string) domain.ResolvedIdentity {
	lookupCtx, cancel := context.WithTimeout(ctx, s.apiTimeout)
	defer cancel()
	resolved := s.resolver.Resolve(lookupCtx, handle)
	if !resolved.Resolved {
		s.logger.Warn("roblox identity degraded", zap.String("handle", handle))
	}
	return resolved
}

// checkDuplicate refreshes the category's children and rejects when the
// derived name already exists. Check-then-act: the reservation taken right
// after closes the race this listing cannot.
func (s *TicketService) checkDuplicate(ctx context.Context, guildID, name string, input SubmitInput) error {
	listCtx, cancel := context.WithTimeout(ctx, s.apiTimeout)
	defer cancel()

	channels, err := s.gateway.ListCategoryChannels(listCtx, guildID, s.categoryID)
	if err != nil {
		return apperrors.NewUpstreamError(fmt.Sprintf("Server Error: %v", err), err)
	}
	for _, ch := range channels {
		if ch.Name == name {
			s.metrics.RecordDuplicateRejected()
			return s.rejectDuplicate(ctx, name, input, "channel already exists")
		}
	}
	return nil
}

func (s *TicketService) rejectDuplicate(ctx context.Context, name string, input SubmitInput, reason string) error {
	s.logger.Info("duplicate ticket rejected",
		zap.String("name", name), zap.String("reason", reason))
	s.recordAudit(ctx, "", name, input, domain.ResolvedIdentity{}, repository.OutcomeDuplicate, reason)
	s.publishEvent(ctx, events.Event{
		Type: events.EventTicketRejected,
		Payload: events.TicketRejectedPayload{
			ChannelName:     name,
			DiscordUsername: input.DiscordUsername,
			Reason:          reason,
		},
	})
	return apperrors.NewDuplicateTicket(fmt.Sprintf(
		"Hai già un ticket aperto: %s. Chiudilo prima di aprirne un altro.", name))
}

func (s *TicketService) provision(ctx context.Context, guildID, name string) (chat.Channel, error) {
	createCtx, cancel := context.WithTimeout(ctx, s.apiTimeout)
	defer cancel()
	return s.gateway.CreateTicketChannel(createCtx, guildID, chat.ProvisionParams{
		Name:        name,
		CategoryID:  s.categoryID,
		StaffRoleID: s.staffRoleID,
	})
}

// grantSubmitterAccess adds the submitter overwrite when the id looks like a
// real snowflake. Failure never fails the ticket.
func (s *TicketService) grantSubmitterAccess(ctx context.Context, channelID, discordID string) {
	if len(discordID) <= plausibleDiscordIDLength {
		return
	}
	grantCtx, cancel := context.WithTimeout(ctx, s.apiTimeout)
	defer cancel()
	if err := s.gateway.GrantMemberAccess(grantCtx, channelID, discordID); err != nil {
		s.logger.Warn("could not add submitter to channel",
			zap.String("discord_id", discordID), zap.Error(err))
	}
}

func (s *TicketService) publish(ctx context.Context, channelID string, input SubmitInput, resolved domain.ResolvedIdentity) error {
	publishCtx, cancel := context.WithTimeout(ctx, s.apiTimeout)
	defer cancel()
	return s.gateway.PublishReport(publishCtx, channelID, chat.ReportMessage{
		Title:          input.Title,
		Description:    input.Description,
		DiscordID:      input.DiscordID,
		StaffRoleID:    s.staffRoleID,
		RobloxUsername: input.RobloxUsername,
		Roblox:         resolved,
		Attachments:    input.Evidence,
	})
}

// rollback deletes the channel created by a workflow that failed afterwards.
func (s *TicketService) rollback(channel chat.Channel) {
	deleteCtx, cancel := context.WithTimeout(context.Background(), s.apiTimeout)
	defer cancel()
	if err := s.gateway.DeleteChannel(deleteCtx, channel.ID); err != nil {
		s.logger.Error("rollback of orphaned ticket channel failed",
			zap.String("channel_id", channel.ID), zap.Error(err))
		return
	}
	s.logger.Info("rolled back orphaned ticket channel",
		zap.String("channel_id", channel.ID), zap.String("channel", channel.Name))
}

func (s *TicketService) recordAudit(ctx context.Context, channelID, name string, input SubmitInput, resolved domain.ResolvedIdentity, outcome repository.SubmissionOutcome, errMsg string) {
	if s.submissions == nil {
		return
	}
	rec := &repository.SubmissionRecord{
		ChannelID:       channelID,
		ChannelName:     name,
		DiscordID:       input.DiscordID,
		DiscordUsername: input.DiscordUsername,
		RobloxUsername:  input.RobloxUsername,
		RobloxID:        resolved.ID,
		RobloxResolved:  resolved.Resolved,
		Outcome:         outcome,
		ErrorMessage:    errMsg,
	}
	if err := s.submissions.Create(ctx, rec); err != nil {
		s.logger.Warn("audit record failed", zap.Error(err))
	}
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
