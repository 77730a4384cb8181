package dto

import (
	"github.com/agency-ops/report-desk/internal/domain"
	"github.com/agency-ops/report-desk/internal/wizard"
)

// SubmitResponse is returned on successful report submission.
type SubmitResponse struct {
	Success   bool   `json:"success"`
	ChannelID string `json:"channelId"`
}

// ErrorResponse is the flat error shape every failing endpoint returns.
type ErrorResponse struct {
	Error string `json:"error"`
}

// PrimaryIdentityRequest carries the free-text Roblox claim.
type PrimaryIdentityRequest struct {
	RobloxUsername string `json:"robloxUsername"`
}

// DetailsRequest carries the report title and description.
type DetailsRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// EvidenceItem is a stored evidence reference echoed back to the client.
type EvidenceItem struct {
	FileName string `json:"fileName"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
}

// WizardSessionResponse is the client view of a wizard session.
type WizardSessionResponse struct {
	ID        string         `json:"id"`
	State     string         `json:"state"`
	Primary   *ClaimView     `json:"primary,omitempty"`
	Secondary *ClaimView     `json:"secondary,omitempty"`
	Title     string         `json:"title,omitempty"`
	Evidence  []EvidenceItem `json:"evidence,omitempty"`
	ChannelID string         `json:"channelId,omitempty"`
	LastError string         `json:"lastError,omitempty"`
}

// ClaimView is the client view of an identity claim.
type ClaimView struct {
	Handle   string `json:"handle"`
	Resolved bool   `json:"resolved"`
}

// WizardSessionView maps a session to its response shape.
func WizardSessionView(s *wizard.Session) WizardSessionResponse {
	resp := WizardSessionResponse{
		ID:        s.ID,
		State:     string(s.State),
		Title:     s.Draft.Title,
		ChannelID: s.ChannelID,
		LastError: s.LastError,
		Evidence:  evidenceItems(s.Draft.Evidence),
	}
	if s.Primary != nil {
		resp.Primary = &ClaimView{Handle: s.Primary.Handle, Resolved: s.Primary.Resolved}
	}
	if s.Secondary != nil {
		resp.Secondary = &ClaimView{Handle: s.Secondary.Handle, Resolved: s.Secondary.Resolved}
	}
	return resp
}

func evidenceItems(files []domain.EvidenceFile) []EvidenceItem {
	if len(files) == 0 {
		return nil
	}
	items := make([]EvidenceItem, 0, len(files))
	for _, f := range files {
		items = append(items, EvidenceItem{FileName: f.FileName, Path: f.Path, Size: f.SizeBytes})
	}
	return items
}
