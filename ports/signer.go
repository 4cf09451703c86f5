package ports

import (
	"context"
	"fmt"

	"github.com/zapgate/zapgate/core"
)

// Signer is the capability shared by every signer variant: an in-process
// key (browser-extension analog), a URL-scheme signer app, or a remote
// bunker over a relay. The flow selects one variant at start and never
// probes for others mid-flow.
type Signer interface {
	// GetPublicKey returns the signer's 64-hex x-only public key.
	GetPublicKey(ctx context.Context) (string, error)

	// SignEvent signs the event and returns it with id, pubkey and sig
	// filled in.
	SignEvent(ctx context.Context, event *core.Event) (*core.Event, error)

	// Method names the authentication method that sessions minted through
	// this signer record.
	Method() string
}

// RedirectError is returned by signer variants that cannot answer
// in-process. The flow persists its pending state and surfaces the URL to
// the host application; the signer's answer arrives later through the
// callback URL and is fed back via Resume. There is no suspension
// primitive across the redirect: before-redirect and after-resume are two
// independent invocations unified only by the persisted pending flow.
type RedirectError struct {
	URL string
}

func (e *RedirectError) Error() string {
	return fmt.Sprintf("signer requires redirect to %s", e.URL)
}
