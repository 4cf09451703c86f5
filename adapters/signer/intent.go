package signer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/zapgate/zapgate/core"
	"github.com/zapgate/zapgate/ports"
)

// DefaultScheme is the URL scheme understood by external signer apps.
const DefaultScheme = "nostrsigner"

// IntentSigner hands requests to an external signer app through a URL
// scheme. It can never answer in-process: both methods return a
// RedirectError carrying the request URL, and the signer app appends its
// answer to the callback URL's "event" query parameter when it returns
// control.
type IntentSigner struct {
	scheme      string
	callbackURL string
}

// NewIntentSigner creates a URL-scheme signer. callbackURL is the location
// the host application observes after the signer app returns control.
func NewIntentSigner(callbackURL string) *IntentSigner {
	return &IntentSigner{scheme: DefaultScheme, callbackURL: callbackURL}
}

// GetPublicKey requests the signer app's public key via redirect.
func (s *IntentSigner) GetPublicKey(ctx context.Context) (string, error) {
	u := fmt.Sprintf("%s:?type=get_public_key&callback_url=%s",
		s.scheme, url.QueryEscape(s.callbackURL))
	return "", &ports.RedirectError{URL: u}
}

// SignEvent requests a signature for the exact event via redirect.
func (s *IntentSigner) SignEvent(ctx context.Context, event *core.Event) (*core.Event, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	u := fmt.Sprintf("%s:%s?type=sign_event&callback_url=%s",
		s.scheme, url.QueryEscape(string(payload)), url.QueryEscape(s.callbackURL))
	return nil, &ports.RedirectError{URL: u}
}

// Method names the session auth method for signer-app logins.
func (s *IntentSigner) Method() string {
	return core.AuthMethodExternal
}

var _ ports.Signer = (*IntentSigner)(nil)
