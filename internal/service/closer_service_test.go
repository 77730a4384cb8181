package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agency-ops/report-desk/internal/chat"
	"github.com/agency-ops/report-desk/internal/config"
	"github.com/agency-ops/report-desk/internal/domain"
	"github.com/agency-ops/report-desk/internal/events"
	"github.com/agency-ops/report-desk/internal/observability"
)

type fakeResponder struct {
	messages []string
	err      error
}

func (f *fakeResponder) Ephemeral(content string) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, content)
	return nil
}

func newCloser(gw *fakeGateway, logChannelID string) (*CloserService, events.Dispatcher) {
	dispatcher := events.NewInMemoryDispatcher()
	cfg := config.DiscordConfig{
		StaffRoleID:             "staff-1",
		LogChannelID:            logChannelID,
		APITimeoutSeconds:       2,
		CloseDeleteDelaySeconds: 0,
	}
	svc := NewCloserService(cfg, CloserDependencies{
		Gateway:    gw,
		Dispatcher: dispatcher,
		Metrics:    observability.NewMetrics(),
		Logger:     zap.NewNop(),
	})
	return svc, dispatcher
}

func closeRequest(roles ...string) chat.CloseRequest {
	return chat.CloseRequest{
		ChannelID:   "chan-1",
		ChannelName: "ticket-steve",
		ActorID:     "999",
		ActorTag:    "Mod#0001",
		ActorRoles:  roles,
	}
}

func waitForDeletion(t *testing.T, gw *fakeGateway) string {
	t.Helper()
	select {
	case id := <-gw.deletedSig:
		return id
	case <-time.After(2 * time.Second):
		t.Fatal("channel was never deleted")
		return ""
	}
}

func TestHandleClose_NonStaffDenied(t *testing.T) {
	gw := newFakeGateway()
	svc, _ := newCloser(gw, "log-1")
	responder := &fakeResponder{}

	svc.HandleClose(context.Background(), closeRequest("member-role"), responder)

	require.Len(t, responder.messages, 1)
	assert.Equal(t, "Non hai il permesso di chiudere questo ticket.", responder.messages[0])
	assert.Empty(t, gw.delivered, "no transcript for a denied close")
	assert.Empty(t, gw.deleted, "channel must survive a denied close")
}

func TestHandleClose_StaffFlowArchivesAndDeletes(t *testing.T) {
	gw := newFakeGateway()
	// Platform history arrives newest first.
	gw.transcript = []domain.TranscriptEntry{
		{Author: "Mod#0001", Content: "looking into it"},
		{Author: "Steve#1234", Content: "he scammed me"},
	}
	svc, dispatcher := newCloser(gw, "log-1")

	var closed []events.Event
	dispatcher.Subscribe(events.EventTicketClosed, func(ctx context.Context, e events.Event) error {
		closed = append(closed, e)
		return nil
	})

	responder := &fakeResponder{}
	svc.HandleClose(context.Background(), closeRequest("staff-1"), responder)

	require.Len(t, responder.messages, 1)
	assert.Equal(t, "Chiusura ticket in corso...", responder.messages[0])

	require.Len(t, gw.delivered, 1)
	tr := gw.delivered[0]
	assert.Equal(t, "log-1", tr.logChannelID)
	assert.Equal(t, "Ticket chiuso da Mod#0001", tr.note)
	assert.Equal(t, "transcript-ticket-steve.txt", tr.filename)
	assert.Equal(t, "Steve#1234: he scammed me\nMod#0001: looking into it", tr.content)

	assert.Equal(t, "chan-1", waitForDeletion(t, gw))

	require.Len(t, closed, 1)
	payload, ok := closed[0].Payload.(events.TicketClosedPayload)
	require.True(t, ok)
	assert.True(t, payload.TranscriptDelivered)
	assert.Equal(t, 2, payload.MessageCount)
	assert.Equal(t, "Mod#0001", payload.ClosedBy)
}

func TestHandleClose_HistoryFetchFailureStillCloses(t *testing.T) {
	gw := newFakeGateway()
	gw.recentErr = errors.New("missing access")
	svc, dispatcher := newCloser(gw, "log-1")

	var closed []events.Event
	dispatcher.Subscribe(events.EventTicketClosed, func(ctx context.Context, e events.Event) error {
		closed = append(closed, e)
		return nil
	})

	svc.HandleClose(context.Background(), closeRequest("staff-1"), &fakeResponder{})

	assert.Equal(t, "chan-1", waitForDeletion(t, gw))
	require.Len(t, closed, 1)
	payload := closed[0].Payload.(events.TicketClosedPayload)
	assert.Equal(t, 0, payload.MessageCount)
}

func TestHandleClose_NoLogChannelSkipsTranscript(t *testing.T) {
	gw := newFakeGateway()
	gw.transcript = []domain.TranscriptEntry{{Author: "Steve#1234", Content: "hello"}}
	svc, dispatcher := newCloser(gw, "")

	var closed []events.Event
	dispatcher.Subscribe(events.EventTicketClosed, func(ctx context.Context, e events.Event) error {
		closed = append(closed, e)
		return nil
	})

	svc.HandleClose(context.Background(), closeRequest("staff-1"), &fakeResponder{})

	assert.Empty(t, gw.delivered)
	assert.Equal(t, "chan-1", waitForDeletion(t, gw))
	require.Len(t, closed, 1)
	assert.False(t, closed[0].Payload.(events.TicketClosedPayload).TranscriptDelivered)
}

func TestHandleClose_DeliveryFailureStillCloses(t *testing.T) {
	gw := newFakeGateway()
	gw.transcript = []domain.TranscriptEntry{{Author: "Steve#1234", Content: "hello"}}
	gw.deliverErr = errors.New("log channel gone")
	svc, _ := newCloser(gw, "log-1")

	svc.HandleClose(context.Background(), closeRequest("staff-1"), &fakeResponder{})

	assert.Equal(t, "chan-1", waitForDeletion(t, gw))
}

func TestSerializeTranscript(t *testing.T) {
	entries := []domain.TranscriptEntry{
		{Author: "c", Content: "third"},
		{Author: "b", Content: "second"},
		{Author: "a", Content: "first"},
	}
	assert.Equal(t, "a: first\nb: second\nc: third", SerializeTranscript(entries))
	assert.Equal(t, "", SerializeTranscript(nil))
}
