package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agency-ops/report-desk/internal/api/dto"
	"github.com/agency-ops/report-desk/internal/config"
	"github.com/agency-ops/report-desk/internal/domain"
	"github.com/agency-ops/report-desk/internal/events"
	"github.com/agency-ops/report-desk/internal/observability"
	"github.com/agency-ops/report-desk/internal/reservation"
	"github.com/agency-ops/report-desk/internal/service"
	"github.com/agency-ops/report-desk/internal/storage"
	"github.com/agency-ops/report-desk/internal/wizard"
	apperrors "github.com/agency-ops/report-desk/pkg/util"
)

func newWizardApp(t *testing.T) (*fiber.App, wizard.Store) {
	t.Helper()

	store, err := storage.NewEvidenceStore(t.TempDir())
	require.NoError(t, err)
	sessions := wizard.NewMemoryStore(time.Minute)

	svc := service.NewTicketService(
		config.DiscordConfig{CategoryID: "cat-1", StaffRoleID: "staff-1", APITimeoutSeconds: 2},
		service.TicketDependencies{
			Gateway:      &stubGateway{},
			Resolver:     stubResolver{},
			Reservations: reservation.NewMemory(),
			Dispatcher:   events.NewInMemoryDispatcher(),
			Metrics:      observability.NewMetrics(),
			Logger:       zap.NewNop(),
		})

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		err := c.Next()
		if err != nil {
			domainErr := apperrors.ToDomainError(err)
			c.Status(domainErr.HTTPStatus)
			return c.JSON(fiber.Map{"error": domainErr.Message})
		}
		return nil
	})

	handler := NewWizardHandler(sessions, svc, store, 10)
	group := app.Group("/api/wizard")
	group.Post("/", handler.Create)
	group.Get("/:id", handler.Get)
	group.Post("/:id/primary", handler.SetPrimary)
	group.Post("/:id/secondary/confirm", handler.ConfirmSecondary)
	group.Post("/:id/details", handler.SetDetails)
	group.Post("/:id/evidence", handler.AttachEvidence)
	group.Post("/:id/submit", handler.Submit)
	group.Post("/:id/dismiss", handler.DismissError)
	group.Post("/:id/reset", handler.Reset)
	return app, sessions
}

func doJSON(t *testing.T, app *fiber.App, method, path string, payload any) (int, dto.WizardSessionResponse) {
	t.Helper()
	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(raw)
	} else {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var parsed dto.WizardSessionResponse
	_ = json.NewDecoder(resp.Body).Decode(&parsed)
	return resp.StatusCode, parsed
}

func TestWizardFlow_EndToEnd(t *testing.T) {
	app, sessions := newWizardApp(t)

	status, session := doJSON(t, app, http.MethodPost, "/api/wizard/", nil)
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, session.ID)
	assert.Equal(t, string(wizard.StatePrimaryIdentity), session.State)

	status, session = doJSON(t, app, http.MethodPost, "/api/wizard/"+session.ID+"/primary",
		dto.PrimaryIdentityRequest{RobloxUsername: "player123"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, string(wizard.StateSecondaryIdentity), session.State)

	// The OAuth callback delivers the Discord claim out of band.
	stored, err := sessions.Get(context.Background(), session.ID)
	require.NoError(t, err)
	stored.Resume(&domain.IdentityClaim{
		Kind:       domain.ClaimKindSecondary,
		Handle:     "Steve#1234",
		ExternalID: "123456789012345678",
		Resolved:   true,
	})
	require.NoError(t, sessions.Put(context.Background(), stored))

	status, session = doJSON(t, app, http.MethodPost, "/api/wizard/"+session.ID+"/details",
		dto.DetailsRequest{Title: "Suspicious trade", Description: "details here"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, string(wizard.StateEvidence), session.State)

	body, contentType := submitForm(t, nil, []string{"proof.png"})
	req := httptest.NewRequest(http.MethodPost, "/api/wizard/"+session.ID+"/evidence", body)
	req.Header.Set("Content-Type", contentType)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	status, session = doJSON(t, app, http.MethodPost, "/api/wizard/"+session.ID+"/submit", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, string(wizard.StateSuccess), session.State)
	assert.Equal(t, "chan-1", session.ChannelID)

	// A finished wizard is gone.
	_, err = sessions.Get(context.Background(), session.ID)
	assert.ErrorIs(t, err, wizard.ErrSessionNotFound)
}

func TestWizardSubmit_FailureLandsOnFailureState(t *testing.T) {
	app, sessions := newWizardApp(t)

	_, created := doJSON(t, app, http.MethodPost, "/api/wizard/", nil)

	stored, err := sessions.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.NoError(t, stored.SetPrimary("player123"))
	stored.Resume(&domain.IdentityClaim{
		Kind: domain.ClaimKindSecondary, Handle: "Steve#1234", ExternalID: "123456789012345678", Resolved: true,
	})
	require.NoError(t, stored.SetDetails("Suspicious trade", "details here"))
	// No evidence attached; the workflow rejects the draft at submit time.
	stored.Draft.Evidence = nil
	stored.State = wizard.StateReview
	require.NoError(t, sessions.Put(context.Background(), stored))

	status, session := doJSON(t, app, http.MethodPost, "/api/wizard/"+created.ID+"/submit", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, string(wizard.StateFailure), session.State)
	assert.Equal(t, "Allega almeno una prova", session.LastError)

	status, session = doJSON(t, app, http.MethodPost, "/api/wizard/"+created.ID+"/dismiss", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, string(wizard.StateReview), session.State)
	assert.Empty(t, session.LastError)
}

func TestWizardGet_UnknownSession(t *testing.T) {
	app, _ := newWizardApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/wizard/nope", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var parsed struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	assert.True(t, strings.Contains(parsed.Error, "not found"))
}
