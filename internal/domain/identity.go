package domain

// ClaimKind distinguishes the two identity sources of a submission.
type ClaimKind string

const (
	ClaimKindPrimary   ClaimKind = "PRIMARY"
	ClaimKindSecondary ClaimKind = "SECONDARY"
)

// IdentityClaim is one identity asserted during the wizard. The primary claim
// is a free-text Roblox username; the secondary claim comes back from Discord
// OAuth with a verified external id.
type IdentityClaim struct {
	Kind       ClaimKind `json:"kind"`
	Handle     string    `json:"handle"`
	ExternalID string    `json:"external_id,omitempty"`
	Resolved   bool      `json:"resolved"`
}

// ResolvedIdentity is the outcome of the best-effort Roblox lookup. When the
// lookup misses or fails, ID is "Unknown" and ProfileLink points at a
// keyword search for the original handle.
type ResolvedIdentity struct {
	ID          string `json:"id"`
	ProfileLink string `json:"profile_link"`
	Resolved    bool   `json:"resolved"`
}

// DiscordProfile is the identity returned by the OAuth callback.
type DiscordProfile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}
