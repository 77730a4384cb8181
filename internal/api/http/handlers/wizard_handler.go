package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/agency-ops/report-desk/internal/api/dto"
	"github.com/agency-ops/report-desk/internal/service"
	"github.com/agency-ops/report-desk/internal/storage"
	"github.com/agency-ops/report-desk/internal/wizard"
	apperrors "github.com/agency-ops/report-desk/pkg/util"
)

// WizardHandler exposes the report wizard session over HTTP. Each endpoint
// loads the session, applies one transition and persists the result.
type WizardHandler struct {
	sessions         wizard.Store
	tickets          *service.TicketService
	store            *storage.EvidenceStore
	maxEvidenceFiles int
}

// NewWizardHandler constructs handler.
func NewWizardHandler(sessions wizard.Store, tickets *service.TicketService, store *storage.EvidenceStore, maxEvidenceFiles int) *WizardHandler {
	return &WizardHandler{sessions: sessions, tickets: tickets, store: store, maxEvidenceFiles: maxEvidenceFiles}
}

// Create POST /api/wizard. Starts a new session at the primary step.
func (h *WizardHandler) Create(c *fiber.Ctx) error {
	session := wizard.NewSession()
	if err := h.sessions.Put(c.UserContext(), session); err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.WizardSessionView(session))
}

// Get GET /api/wizard/:id.
func (h *WizardHandler) Get(c *fiber.Ctx) error {
	session, err := h.load(c)
	if err != nil {
		return err
	}
	return c.JSON(dto.WizardSessionView(session))
}

// SetPrimary POST /api/wizard/:id/primary.
func (h *WizardHandler) SetPrimary(c *fiber.Ctx) error {
	var req dto.PrimaryIdentityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("Compila tutti i campi", nil)
	}
	return h.transition(c, func(s *wizard.Session) error {
		return s.SetPrimary(req.RobloxUsername)
	})
}

// ConfirmSecondary POST /api/wizard/:id/secondary/confirm. Acknowledges the
// Discord claim delivered by the OAuth callback.
func (h *WizardHandler) ConfirmSecondary(c *fiber.Ctx) error {
	return h.transition(c, func(s *wizard.Session) error {
		return s.ConfirmSecondary()
	})
}

// SetDetails POST /api/wizard/:id/details.
func (h *WizardHandler) SetDetails(c *fiber.Ctx) error {
	var req dto.DetailsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("Compila tutti i campi", nil)
	}
	return h.transition(c, func(s *wizard.Session) error {
		return s.SetDetails(req.Title, req.Description)
	})
}

// AttachEvidence POST /api/wizard/:id/evidence. Multipart upload of one or
// more evidence files.
func (h *WizardHandler) AttachEvidence(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return apperrors.NewValidationError("Allega almeno una prova", nil)
	}
	files := form.File["evidence"]
	if h.maxEvidenceFiles > 0 && len(files) > h.maxEvidenceFiles {
		return apperrors.NewValidationError(
			fmt.Sprintf("Puoi allegare al massimo %d file", h.maxEvidenceFiles), nil)
	}

	evidence, err := saveEvidence(h.store, files)
	if err != nil {
		return err
	}
	return h.transition(c, func(s *wizard.Session) error {
		return s.AttachEvidence(evidence)
	})
}

// Submit POST /api/wizard/:id/submit. Freezes the draft and runs the ticket
// workflow; the session lands on SUCCESS or FAILURE.
func (h *WizardHandler) Submit(c *fiber.Ctx) error {
	session, err := h.load(c)
	if err != nil {
		return err
	}
	if err := session.BeginSubmit(); err != nil {
		return err
	}

	input := service.SubmitInput{
		DiscordID:       session.Secondary.ExternalID,
		DiscordUsername: session.Secondary.Handle,
		RobloxUsername:  session.Primary.Handle,
		Title:           session.Draft.Title,
		Description:     session.Draft.Description,
		Evidence:        session.Draft.Evidence,
	}

	ticket, submitErr := h.tickets.Submit(c.UserContext(), input)
	if submitErr != nil {
		session.FailSubmit(apperrors.ToDomainError(submitErr).Message)
		if err := h.sessions.Put(c.UserContext(), session); err != nil {
			return apperrors.NewInternalError(err)
		}
		return c.JSON(dto.WizardSessionView(session))
	}

	// A finished wizard has nothing left to resume.
	session.CompleteSubmit(ticket.ChannelID)
	if err := h.sessions.Delete(c.UserContext(), session.ID); err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.JSON(dto.WizardSessionView(session))
}

// DismissError POST /api/wizard/:id/dismiss. Returns a failed session to the
// review step with all input intact.
func (h *WizardHandler) DismissError(c *fiber.Ctx) error {
	return h.transition(c, func(s *wizard.Session) error {
		return s.DismissError()
	})
}

// Reset POST /api/wizard/:id/reset.
func (h *WizardHandler) Reset(c *fiber.Ctx) error {
	return h.transition(c, func(s *wizard.Session) error {
		s.Reset()
		return nil
	})
}

func (h *WizardHandler) load(c *fiber.Ctx) (*wizard.Session, error) {
	session, err := h.sessions.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, wizard.ErrSessionNotFound) {
			return nil, apperrors.NewNotFound("wizard session", nil)
		}
		return nil, apperrors.NewInternalError(err)
	}
	return session, nil
}

func (h *WizardHandler) transition(c *fiber.Ctx, apply func(*wizard.Session) error) error {
	session, err := h.load(c)
	if err != nil {
		return err
	}
	if err := apply(session); err != nil {
		return err
	}
	if err := h.sessions.Put(c.UserContext(), session); err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.JSON(dto.WizardSessionView(session))
}
