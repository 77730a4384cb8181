package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agency-ops/report-desk/internal/chat"
	"github.com/agency-ops/report-desk/internal/config"
	"github.com/agency-ops/report-desk/internal/domain"
	"github.com/agency-ops/report-desk/internal/events"
	"github.com/agency-ops/report-desk/internal/observability"
)

// transcriptLimit caps how much history goes into a transcript.
const transcriptLimit = 100

// CloserService archives and removes a ticket when staff presses the close
// button. Triggered from chat interactions, outside any HTTP request.
type CloserService struct {
	gateway    chat.Gateway
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger

	staffRoleID  string
	logChannelID string
	apiTimeout   time.Duration
	deleteDelay  time.Duration
}

// CloserDependencies bundles collaborators for the closer service.
type CloserDependencies struct {
	Gateway    chat.Gateway
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewCloserService constructs the service.
func NewCloserService(cfg config.DiscordConfig, deps CloserDependencies) *CloserService {
	return &CloserService{
		gateway:      deps.Gateway,
		dispatcher:   deps.Dispatcher,
		metrics:      deps.Metrics,
		logger:       deps.Logger,
		staffRoleID:  cfg.StaffRoleID,
		logChannelID: cfg.LogChannelID,
		apiTimeout:   cfg.APITimeout(),
		deleteDelay:  cfg.CloseDeleteDelay(),
	}
}

// HandleClose processes one close-button interaction. Non-staff actors get a
// private denial and nothing else happens. For staff the flow is: private
// acknowledgement, transcript of the last messages delivered to the log
// channel, channel deletion after a short grace period so the ack stays
// visible.
func (s *CloserService) HandleClose(ctx context.Context, req chat.CloseRequest, respond chat.Responder) {
	if !s.isStaff(req.ActorRoles) {
		if err := respond.Ephemeral("Non hai il permesso di chiudere questo ticket."); err != nil {
			s.logger.Warn("denial reply failed", zap.Error(err))
		}
		return
	}

	if err := respond.Ephemeral("Chiusura ticket in corso..."); err != nil {
		s.logger.Warn("close ack failed", zap.Error(err))
	}

	entries := s.fetchHistory(ctx, req.ChannelID)
	delivered := s.deliverTranscript(ctx, req, entries)

	s.scheduleDeletion(req.ChannelID, req.ChannelName)

	s.metrics.RecordTicketClosed()
	s.publishEvent(ctx, events.Event{
		Type:      events.EventTicketClosed,
		ChannelID: req.ChannelID,
		Payload: events.TicketClosedPayload{
			ChannelName:         req.ChannelName,
			ClosedBy:            req.ActorTag,
			TranscriptDelivered: delivered,
			MessageCount:        len(entries),
		},
	})
}

func (s *CloserService) isStaff(roles []string) bool {
	for _, role := range roles {
		if role == s.staffRoleID {
			return true
		}
	}
	return false
}

func (s *CloserService) fetchHistory(ctx context.Context, channelID string) []domain.TranscriptEntry {
	fetchCtx, cancel := context.WithTimeout(ctx, s.apiTimeout)
	defer cancel()

	entries, err := s.gateway.RecentMessages(fetchCtx, channelID, transcriptLimit)
	if err != nil {
		s.logger.Warn("transcript fetch failed; closing without history",
			zap.String("channel_id", channelID), zap.Error(err))
		return nil
	}
	return entries
}

// deliverTranscript serializes the history chronologically and sends it to
// the log channel. Missing log channel or delivery failure skips archiving
// without blocking the closure.
func (s *CloserService) deliverTranscript(ctx context.Context, req chat.CloseRequest, entries []domain.TranscriptEntry) bool {
	if s.logChannelID == "" {
		s.logger.Warn("LOG_CHANNEL_ID not configured; skipping transcript delivery")
		return false
	}

	content := SerializeTranscript(entries)
	note := fmt.Sprintf("Ticket chiuso da %s", req.ActorTag)
	filename := fmt.Sprintf("transcript-%s.txt", req.ChannelName)

	deliverCtx, cancel := context.WithTimeout(ctx, s.apiTimeout)
	defer cancel()
	if err := s.gateway.DeliverTranscript(deliverCtx, s.logChannelID, note, filename, []byte(content)); err != nil {
		s.logger.Warn("transcript delivery failed",
			zap.String("channel_id", req.ChannelID), zap.Error(err))
		return false
	}
	return true
}

// scheduleDeletion removes the channel after the grace period. Fire and
// forget: failures are logged and otherwise ignored.
func (s *CloserService) scheduleDeletion(channelID, channelName string) {
	time.AfterFunc(s.deleteDelay, func() {
		deleteCtx, cancel := context.WithTimeout(context.Background(), s.apiTimeout)
		defer cancel()
		if err := s.gateway.DeleteChannel(deleteCtx, channelID); err != nil {
			s.logger.Error("scheduled channel deletion failed",
				zap.String("channel_id", channelID), zap.Error(err))
			return
		}
		s.logger.Info("ticket channel deleted",
			zap.String("channel_id", channelID), zap.String("channel", channelName))
	})
}

// SerializeTranscript flattens newest-first history into chronological
// "author: content" lines.
func SerializeTranscript(entries []domain.TranscriptEntry) string {
	lines := make([]string, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		lines = append(lines, fmt.Sprintf("%s: %s", entries[i].Author, entries[i].Content))
	}
	return strings.Join(lines, "\n")
}

func (s *CloserService) publishEvent(ctx context.Context, event events.Event) {
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
