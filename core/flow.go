package core

import "time"

// FlowState is a state of the external-signer authentication flow.
type FlowState string

const (
	FlowIdle                    FlowState = "idle"
	FlowAwaitingPubkey          FlowState = "awaiting_pubkey"
	FlowAwaitingSignedChallenge FlowState = "awaiting_signed_challenge"
	FlowVerifying               FlowState = "verifying"
	FlowAuthenticated           FlowState = "authenticated"
	FlowFailed                  FlowState = "failed"
)

// PendingAuthFlow is the durable record of an in-flight external-signer
// flow. Control leaves the process entirely between redirects, so this
// record must be persisted before handing off and read back on return.
// At most one pending flow exists at a time.
type PendingAuthFlow struct {
	ID            string    `json:"id"`
	State         FlowState `json:"state"`
	Challenge     string    `json:"challenge"`
	EventTemplate *Event    `json:"event_template,omitempty"`
	ReturnContext string    `json:"return_context,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Stale reports whether the pending flow is older than the staleness
// window and should be discarded on next access.
func (f *PendingAuthFlow) Stale(now time.Time, window time.Duration) bool {
	return now.Sub(f.CreatedAt) > window
}
