// Package wizard implements the five-step report wizard as an explicit state
// machine with ephemeral server-held sessions. The session survives the hard
// navigation boundary of the Discord OAuth redirect: the primary (Roblox)
// claim is persisted in the session, the secondary (Discord) claim arrives
// with the callback, and Resume reconciles the two fragments.
package wizard

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agency-ops/report-desk/internal/domain"
	apperrors "github.com/agency-ops/report-desk/pkg/util"
)

// State enumerates wizard states.
type State string

const (
	StatePrimaryIdentity   State = "PRIMARY_IDENTITY"
	StateSecondaryIdentity State = "SECONDARY_IDENTITY"
	StateDetails           State = "DETAILS"
	StateEvidence          State = "EVIDENCE"
	StateReview            State = "REVIEW"
	StateSubmitting        State = "SUBMITTING"
	StateSuccess           State = "SUCCESS"
	StateFailure           State = "FAILURE"
)

// GenericSubmitError is the fallback surfaced when the server provides no
// message of its own.
const GenericSubmitError = "Si è verificato un errore durante l'invio della segnalazione. Riprova."

// Session is one user's wizard progress. All mutation happens through the
// transition methods; a failed guard leaves the session untouched.
type Session struct {
	ID        string                `json:"id"`
	State     State                 `json:"state"`
	Primary   *domain.IdentityClaim `json:"primary,omitempty"`
	Secondary *domain.IdentityClaim `json:"secondary,omitempty"`
	Draft     domain.ReportDraft    `json:"draft"`
	ChannelID string                `json:"channel_id,omitempty"`
	LastError string                `json:"last_error,omitempty"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// NewSession starts a wizard at the primary-identity step.
func NewSession() *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.NewString(),
		State:     StatePrimaryIdentity,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SetPrimary records the free-text Roblox claim and advances to the secondary
// identity step. Guard: non-empty handle.
func (s *Session) SetPrimary(handle string) error {
	if s.State != StatePrimaryIdentity && s.State != StateSecondaryIdentity {
		return invalidState(s.State)
	}
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return apperrors.NewValidationError("Inserisci il tuo nome utente Roblox", nil)
	}
	s.Primary = &domain.IdentityClaim{
		Kind:   domain.ClaimKindPrimary,
		Handle: handle,
	}
	s.State = StateSecondaryIdentity
	s.touch()
	return nil
}

// Resume reconciles the session after the OAuth redirect round trip. The
// secondary claim, when present, is merged in; the next state depends on
// which claims survived:
//   - both present: details step
//   - secondary without primary: back to the primary step, never an
//     inconsistent later step
//   - primary only: stay on the secondary step
//
// A session already submitting or finished is left alone.
func (s *Session) Resume(secondary *domain.IdentityClaim) {
	switch s.State {
	case StateSubmitting, StateSuccess, StateFailure:
		return
	}
	if secondary != nil {
		claim := *secondary
		claim.Kind = domain.ClaimKindSecondary
		s.Secondary = &claim
	}

	switch {
	case s.Primary != nil && s.Secondary != nil:
		// Never regress a session that already progressed past details.
		if s.State == StatePrimaryIdentity || s.State == StateSecondaryIdentity {
			s.State = StateDetails
		}
	case s.Secondary != nil:
		s.State = StatePrimaryIdentity
	case s.Primary != nil:
		s.State = StateSecondaryIdentity
	default:
		s.State = StatePrimaryIdentity
	}
	s.touch()
}

// ConfirmSecondary advances past the secondary step once the OAuth identity
// is in place.
func (s *Session) ConfirmSecondary() error {
	if s.State != StateSecondaryIdentity {
		return invalidState(s.State)
	}
	if s.Secondary == nil {
		return apperrors.NewValidationError("Verifica il tuo account Discord per continuare", nil)
	}
	s.State = StateDetails
	s.touch()
	return nil
}

// SetDetails records title and description. Guard: both non-empty.
func (s *Session) SetDetails(title, description string) error {
	if s.State != StateDetails {
		return invalidState(s.State)
	}
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" || description == "" {
		return apperrors.NewValidationError("Compila tutti i campi", nil)
	}
	s.Draft.Title = title
	s.Draft.Description = description
	s.State = StateEvidence
	s.touch()
	return nil
}

// AttachEvidence records stored evidence references. Guard: at least one.
func (s *Session) AttachEvidence(files []domain.EvidenceFile) error {
	if s.State != StateEvidence {
		return invalidState(s.State)
	}
	if len(files) == 0 {
		return apperrors.NewValidationError("Allega almeno una prova", nil)
	}
	s.Draft.Evidence = append(s.Draft.Evidence, files...)
	s.State = StateReview
	s.touch()
	return nil
}

// BeginSubmit freezes the draft and enters the submitting state. Guard: both
// identity claims present.
func (s *Session) BeginSubmit() error {
	if s.State != StateReview {
		return invalidState(s.State)
	}
	if s.Primary == nil || s.Secondary == nil {
		return apperrors.NewValidationError(
			"Autenticazione mancante. Per favore ricarica la pagina e riprova.", nil)
	}
	s.State = StateSubmitting
	s.touch()
	return nil
}

// CompleteSubmit records the created channel and finishes the wizard.
func (s *Session) CompleteSubmit(channelID string) {
	if s.State != StateSubmitting {
		return
	}
	s.ChannelID = channelID
	s.LastError = ""
	s.State = StateSuccess
	s.touch()
}

// FailSubmit records the failure. The message is surfaced verbatim when the
// server provided one, otherwise the generic fallback.
func (s *Session) FailSubmit(message string) {
	if s.State != StateSubmitting {
		return
	}
	if strings.TrimSpace(message) == "" {
		message = GenericSubmitError
	}
	s.LastError = message
	s.State = StateFailure
	s.touch()
}

// DismissError returns from a recoverable failure to the review step with all
// prior input intact.
func (s *Session) DismissError() error {
	if s.State != StateFailure {
		return invalidState(s.State)
	}
	s.LastError = ""
	s.State = StateReview
	s.touch()
	return nil
}

// Reset discards all progress and restarts at the primary step.
func (s *Session) Reset() {
	s.Primary = nil
	s.Secondary = nil
	s.Draft = domain.ReportDraft{}
	s.ChannelID = ""
	s.LastError = ""
	s.State = StatePrimaryIdentity
	s.touch()
}

func (s *Session) touch() {
	s.UpdatedAt = time.Now()
}

func invalidState(state State) error {
	return apperrors.NewValidationError("operazione non valida per lo stato corrente",
		map[string]any{"state": string(state)})
}
