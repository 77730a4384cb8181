package handlers

import (
	"fmt"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"

	"github.com/agency-ops/report-desk/internal/api/dto"
	"github.com/agency-ops/report-desk/internal/domain"
	"github.com/agency-ops/report-desk/internal/service"
	"github.com/agency-ops/report-desk/internal/storage"
	apperrors "github.com/agency-ops/report-desk/pkg/util"
)

// ReportHandler accepts the single-shot report submission.
type ReportHandler struct {
	tickets          *service.TicketService
	store            *storage.EvidenceStore
	maxEvidenceFiles int
}

// NewReportHandler constructs handler.
func NewReportHandler(tickets *service.TicketService, store *storage.EvidenceStore, maxEvidenceFiles int) *ReportHandler {
	return &ReportHandler{tickets: tickets, store: store, maxEvidenceFiles: maxEvidenceFiles}
}

// Submit POST /api/report/submit. Multipart form: text fields plus one or
// more evidence files.
func (h *ReportHandler) Submit(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return apperrors.NewValidationError("Compila tutti i campi", nil)
	}

	input := service.SubmitInput{
		DiscordID:       c.FormValue("discordId"),
		DiscordUsername: c.FormValue("discordUsername"),
		RobloxUsername:  c.FormValue("robloxUsername"),
		Title:           c.FormValue("title"),
		Description:     c.FormValue("description"),
	}

	files := form.File["evidence"]
	if len(files) == 0 {
		return apperrors.NewValidationError("Allega almeno una prova", nil)
	}
	if h.maxEvidenceFiles > 0 && len(files) > h.maxEvidenceFiles {
		return apperrors.NewValidationError(
			fmt.Sprintf("Puoi allegare al massimo %d file", h.maxEvidenceFiles), nil)
	}

	evidence, err := saveEvidence(h.store, files)
	if err != nil {
		return err
	}
	input.Evidence = evidence

	ticket, err := h.tickets.Submit(c.UserContext(), input)
	if err != nil {
		return err
	}

	return c.JSON(dto.SubmitResponse{Success: true, ChannelID: ticket.ChannelID})
}

func saveEvidence(store *storage.EvidenceStore, files []*multipart.FileHeader) ([]domain.EvidenceFile, error) {
	evidence := make([]domain.EvidenceFile, 0, len(files))
	for _, header := range files {
		src, err := header.Open()
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		saved, err := store.Save(header.Filename, src)
		_ = src.Close()
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		evidence = append(evidence, saved)
	}
	return evidence, nil
}
