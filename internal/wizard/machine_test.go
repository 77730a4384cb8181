package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agency-ops/report-desk/internal/domain"
)

func discordClaim() *domain.IdentityClaim {
	return &domain.IdentityClaim{
		Kind:       domain.ClaimKindSecondary,
		Handle:     "Steve#1",
		ExternalID: "555",
		Resolved:   true,
	}
}

func sessionAtReview(t *testing.T) *Session {
	t.Helper()
	s := NewSession()
	require.NoError(t, s.SetPrimary("player123"))
	s.Resume(discordClaim())
	require.NoError(t, s.SetDetails("Suspicious trade", "details here"))
	require.NoError(t, s.AttachEvidence([]domain.EvidenceFile{{FileName: "a.png", Path: "uploads/1.png"}}))
	return s
}

func TestNewSession_StartsAtPrimaryIdentity(t *testing.T) {
	s := NewSession()
	assert.Equal(t, StatePrimaryIdentity, s.State)
	assert.NotEmpty(t, s.ID)
}

func TestSetPrimary_EmptyHandleBlocked(t *testing.T) {
	s := NewSession()
	err := s.SetPrimary("   ")
	require.Error(t, err)
	assert.Equal(t, StatePrimaryIdentity, s.State)
	assert.Nil(t, s.Primary)
}

func TestSetPrimary_AdvancesToSecondary(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.SetPrimary("player123"))
	assert.Equal(t, StateSecondaryIdentity, s.State)
	assert.Equal(t, "player123", s.Primary.Handle)
	assert.Equal(t, domain.ClaimKindPrimary, s.Primary.Kind)
}

func TestResume_BothClaimsAdvanceToDetails(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.SetPrimary("player123"))

	s.Resume(discordClaim())

	assert.Equal(t, StateDetails, s.State)
	require.NotNil(t, s.Secondary)
	assert.Equal(t, "555", s.Secondary.ExternalID)
}

func TestResume_SecondaryWithoutPrimaryFallsBackToStart(t *testing.T) {
	// Simulates losing the persisted primary claim across the OAuth redirect.
	s := NewSession()

	s.Resume(discordClaim())

	assert.Equal(t, StatePrimaryIdentity, s.State)
	assert.NotNil(t, s.Secondary, "delivered claim must not be dropped")
}

func TestResume_PrimaryOnlyStaysOnSecondaryStep(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.SetPrimary("player123"))

	s.Resume(nil)

	assert.Equal(t, StateSecondaryIdentity, s.State)
}

func TestResume_DoesNotRegressLaterSteps(t *testing.T) {
	s := sessionAtReview(t)

	s.Resume(discordClaim())

	assert.Equal(t, StateReview, s.State)
}

func TestResume_IgnoredWhileSubmitting(t *testing.T) {
	s := sessionAtReview(t)
	require.NoError(t, s.BeginSubmit())

	s.Resume(nil)

	assert.Equal(t, StateSubmitting, s.State)
}

func TestConfirmSecondary_RequiresClaim(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.SetPrimary("player123"))

	err := s.ConfirmSecondary()
	require.Error(t, err)
	assert.Equal(t, StateSecondaryIdentity, s.State)

	s.Resume(discordClaim())
	assert.Equal(t, StateDetails, s.State)
}

func TestSetDetails_EmptyFieldsDoNotMutateDraft(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.SetPrimary("player123"))
	s.Resume(discordClaim())

	err := s.SetDetails("Suspicious trade", "")
	require.Error(t, err)
	assert.Equal(t, StateDetails, s.State)
	assert.Empty(t, s.Draft.Title, "guard failure must not mutate the draft")
	assert.Empty(t, s.Draft.Description)
}

func TestSetDetails_Advances(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.SetPrimary("player123"))
	s.Resume(discordClaim())

	require.NoError(t, s.SetDetails("  Suspicious trade  ", "details"))
	assert.Equal(t, StateEvidence, s.State)
	assert.Equal(t, "Suspicious trade", s.Draft.Title)
}

func TestAttachEvidence_RequiresAtLeastOne(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.SetPrimary("player123"))
	s.Resume(discordClaim())
	require.NoError(t, s.SetDetails("t", "d"))

	err := s.AttachEvidence(nil)
	require.Error(t, err)
	assert.Equal(t, StateEvidence, s.State)
	assert.Empty(t, s.Draft.Evidence)
}

func TestAttachEvidence_AdvancesToReview(t *testing.T) {
	s := sessionAtReview(t)
	assert.Equal(t, StateReview, s.State)
	assert.Len(t, s.Draft.Evidence, 1)
}

func TestBeginSubmit_MissingClaimsBlocked(t *testing.T) {
	s := sessionAtReview(t)
	s.Secondary = nil

	err := s.BeginSubmit()
	require.Error(t, err)
	assert.Equal(t, StateReview, s.State)
}

func TestSubmitLifecycle_SuccessAndFailure(t *testing.T) {
	s := sessionAtReview(t)
	require.NoError(t, s.BeginSubmit())
	assert.Equal(t, StateSubmitting, s.State)

	s.FailSubmit("Hai già un ticket aperto: ticket-steve. Chiudilo prima di aprirne un altro.")
	assert.Equal(t, StateFailure, s.State)
	assert.Contains(t, s.LastError, "ticket-steve")

	require.NoError(t, s.DismissError())
	assert.Equal(t, StateReview, s.State)
	assert.Empty(t, s.LastError)
	assert.Equal(t, "Suspicious trade", s.Draft.Title, "failure must preserve prior input")

	require.NoError(t, s.BeginSubmit())
	s.CompleteSubmit("chan-42")
	assert.Equal(t, StateSuccess, s.State)
	assert.Equal(t, "chan-42", s.ChannelID)
}

func TestFailSubmit_EmptyMessageUsesGenericFallback(t *testing.T) {
	s := sessionAtReview(t)
	require.NoError(t, s.BeginSubmit())

	s.FailSubmit("  ")
	assert.Equal(t, GenericSubmitError, s.LastError)
}

func TestForwardTransitionsRequireMatchingState(t *testing.T) {
	s := NewSession()

	assert.Error(t, s.SetDetails("t", "d"))
	assert.Error(t, s.AttachEvidence([]domain.EvidenceFile{{FileName: "a"}}))
	assert.Error(t, s.BeginSubmit())
	assert.Error(t, s.DismissError())
	assert.Equal(t, StatePrimaryIdentity, s.State)
}

func TestReset_ClearsEverything(t *testing.T) {
	s := sessionAtReview(t)
	s.Reset()

	assert.Equal(t, StatePrimaryIdentity, s.State)
	assert.Nil(t, s.Primary)
	assert.Nil(t, s.Secondary)
	assert.Empty(t, s.Draft.Title)
	assert.Empty(t, s.Draft.Evidence)
}
